// Package xconf 加载 xcorrd 的配置，基于 koanf 实现。
//
// 支持 YAML（.yaml / .yml）与 JSON（.json）。[New] 从文件加载，
// [NewFromBytes] 从内存数据加载，[Config.Client] 暴露底层 koanf 实例。
//
// [LoadDaemon] 在默认值之上叠加配置文件中出现的键，并校验结果：
//
//	listen: ":8080"
//	workers: 8
//	upstream: "http://127.0.0.1:9090"
//	tls:
//	  listen: ":8443"
//	  cert_file: /etc/xcorrd/tls.crt
//	  key_file: /etc/xcorrd/tls.key
//	log:
//	  file: /var/log/xcorrd/xcorrd.log
//	  error_file: /var/log/xcorrd/xcorrd.err.log
//	  max_size_mb: 100
//	  max_backups: 7
//	  max_age_days: 30
//
// Unmarshal 使用 mapstructure，允许弱类型转换（字符串 "8" 可转为 int 8）。
package xconf
