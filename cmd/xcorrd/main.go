// xcorrd 是请求关联日志的演示守护进程。
//
// 进程内只有一个事件循环，所有请求处理函数都运行在循环 goroutine 上；
// 每个入站请求分配一个关联身份，处理函数在其后续回调中输出的日志都带有
// "[<pid>:<id>] " 前缀，首次输出前先输出一行 "Method: <method>  - url: <url>"。
//
// 用法:
//
//	xcorrd [全局选项] [命令]
//
// 全局选项:
//
//	-c, --config     配置文件路径（.yaml / .yml / .json）
//	    --listen     覆盖配置中的明文监听地址
//	    --upstream   覆盖配置中的上游地址
//	    --workers    覆盖配置中的后台并发上限
//	    --heartbeat  心跳日志的 cron 表达式，为空时关闭（默认: @every 1m）
//
// 命令:
//
//	serve          启动服务（默认命令）
//	check-config   校验配置并以 YAML 输出生效值
//
// 退出码:
//
//	0: 正常退出（包括收到终止信号）
//	1: 运行失败
//	2: 参数或配置错误
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xcorr/pkg/config/xconf"
	"github.com/omeyang/xcorr/pkg/lifecycle/xrun"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// defaultHeartbeat 默认心跳调度。
const defaultHeartbeat = "@every 1m"

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用，stdout / stderr 为命令的输出目标。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xcorrd",
		Usage:     "请求关联日志演示服务",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml / json）",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "明文监听地址，覆盖配置",
			},
			&cli.StringFlag{
				Name:  "upstream",
				Usage: "出站调用目标，覆盖配置",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "后台阻塞操作并发上限，覆盖配置",
			},
			&cli.StringFlag{
				Name:  "heartbeat",
				Usage: "心跳日志 cron 表达式，为空时关闭",
				Value: defaultHeartbeat,
			},
		},
		Commands: []*cli.Command{
			createServeCommand(),
			createCheckConfigCommand(),
		},
		DefaultCommand: "serve",
		OnUsageError:   onUsageError,
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

// run 执行命令并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	err := app.Run(ctx, args)
	switch {
	case err == nil, errors.Is(err, xrun.ErrSignal):
		return 0
	case isConfigError(err):
		fmt.Fprintf(stderr, "配置错误: %v\n", err)
		return 2
	case isUsageError(err):
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
}

// usageError 命令行参数错误。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// onUsageError 把 CLI 框架的 flag 解析错误（未知 flag、非法取值）转为 *usageError。
// 根命令与每个子命令都需要设置。
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{msg: err.Error()}
}

// isUsageError 判断是否为参数错误。
func isUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}
	var ec cli.ExitCoder
	return errors.As(err, &ec)
}

func isConfigError(err error) bool {
	for _, target := range []error{
		xconf.ErrEmptyPath,
		xconf.ErrUnsupportedFormat,
		xconf.ErrLoadFailed,
		xconf.ErrParseFailed,
		xconf.ErrUnmarshalFailed,
		xconf.ErrInvalidConfig,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
