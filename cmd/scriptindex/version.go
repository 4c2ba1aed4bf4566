package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/scriptindex/internal/app/version"
)

var versionFlags struct {
	json  bool
	short bool
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本信息",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionFlags.json {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(version.GetBuildInfo())
		}
		if versionFlags.short {
			fmt.Println(version.GetVersion())
			return nil
		}
		fmt.Println(version.GetFullVersion())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionFlags.json, "json", false, "以 JSON 输出完整构建信息")
	versionCmd.Flags().BoolVar(&versionFlags.short, "short", false, "只输出版本号")
}
