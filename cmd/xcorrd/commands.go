package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xcorr/pkg/config/xconf"
	"github.com/omeyang/xcorr/pkg/lifecycle/xfatal"
)

func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:         "serve",
		Usage:        "启动服务",
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			root := cmd.Root()
			d, err := newDaemon(cfg, daemonOptions{
				configPath: cmd.String("config"),
				heartbeat:  cmd.String("heartbeat"),
				stdout:     root.Writer,
				stderr:     root.ErrWriter,
			})
			if err != nil {
				return err
			}
			defer d.close()

			l, err := xfatal.Install(d.corr)
			if err != nil {
				return err
			}
			d.onPanic = l.Handle
			return d.serve(ctx)
		},
	}
}

func createCheckConfigCommand() *cli.Command {
	return &cli.Command{
		Name:         "check-config",
		Usage:        "校验配置并输出生效值",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "输出格式（yaml / json）",
				Value: string(xconf.FormatYAML),
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal(xconf.Format(cmd.String("format")))
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			_, err = fmt.Fprint(cmd.Root().Writer, string(data))
			return err
		},
	}
}

// loadConfig 加载配置文件并叠加命令行覆盖，最后整体校验。
func loadConfig(cmd *cli.Command) (*xconf.Daemon, error) {
	var cfg xconf.Config
	if path := cmd.String("config"); path != "" {
		c, err := xconf.New(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	d, err := xconf.LoadDaemon(cfg)
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("listen") {
		d.Listen = cmd.String("listen")
	}
	if cmd.IsSet("upstream") {
		d.Upstream = cmd.String("upstream")
	}
	if cmd.IsSet("workers") {
		d.Workers = int(cmd.Int("workers"))
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
