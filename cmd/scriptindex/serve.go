package main

import (
	"github.com/spf13/cobra"

	"github.com/weisyn/scriptindex/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动索引服务",
	Long:  "启动脚本历史索引，并按配置开启 HTTP 查询接口与 WebSocket 推送",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := appOptions()
		if err != nil {
			return err
		}
		running, err := app.Start(opts...)
		if err != nil {
			return err
		}
		running.Wait()
		return nil
	},
}
