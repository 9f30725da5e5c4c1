package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"raggate/internal/config"
	"raggate/internal/pkg/logger"
)

var (
	configDir string
	envName   string

	// cfg 由 PersistentPreRunE 加载，子命令直接使用
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "raggate",
	Short: "RAGFlow 多用户网关",
	Long: `raggate 在 RAGFlow 之前提供用户、角色权限与邀请码注册，
并按数据集归属转发数据集/文档/检索请求。

示例:
  raggate serve --config configs
  raggate migrate up
  raggate init-perms --file configs/permissions.yaml
  raggate invite create -n 5
  raggate user create -u admin --superuser
  raggate worker
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configDir, envName)
		if err != nil {
			return err
		}
		if _, err := logger.InitLogger(&loaded.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", config.GetEnvString("CONFIG_PATH", "configs"), "配置目录")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "运行环境 (development, test, production)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWorkerCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newInitPermsCmd())
	rootCmd.AddCommand(newInviteCmd())
	rootCmd.AddCommand(newUserCmd())
}
