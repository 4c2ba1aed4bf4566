package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/scriptindex/internal/app"
	"github.com/weisyn/scriptindex/pkg/types"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigFile string // 配置文件路径
	DataDir    string // 数据目录（覆盖配置）
}

var globalFlags GlobalFlags

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "scriptindex",
	Short: "脚本确认历史索引",
	Long: `scriptindex - 按锁定脚本索引已确认交易

为每个脚本（p2pk / p2pkh / p2sh / other）维护按 (高度, 区块内序号, txid)
排序的确认历史，随链重组同步回滚，并提供分页查询接口。

配置文件路径也可以通过环境变量 ` + app.ConfigPathEnv + ` 指定。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "JSON 配置文件路径")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DataDir, "data-dir", "", "数据根目录 (覆盖配置中的 storage.data_root)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

// appOptions 根据全局标志生成应用选项
func appOptions(extra ...app.Option) ([]app.Option, error) {
	opts := []app.Option{app.WithConfigFile(globalFlags.ConfigFile)}
	if globalFlags.DataDir != "" {
		cfg, err := app.LoadConfig(globalFlags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if cfg.Storage == nil {
			cfg.Storage = &types.UserStorageConfig{}
		}
		cfg.Storage.DataRoot = &globalFlags.DataDir
		opts = append(opts, app.WithAppConfig(cfg))
	}
	return append(opts, extra...), nil
}
