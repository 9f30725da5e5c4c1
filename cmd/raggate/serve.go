package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"raggate/internal/app/gateway"
)

func newServeCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP网关",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := gateway.NewApp(ctx, cfg, gateway.Options{ConfigPath: configDir, Env: envName, Watch: watch})
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "监听配置目录并热更新日志级别与功能开关")
	return cmd
}
