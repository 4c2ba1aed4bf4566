package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	httptypes "github.com/weisyn/scriptindex/internal/api/http/types"
	"github.com/weisyn/scriptindex/internal/app"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/query"
	"github.com/weisyn/scriptindex/pkg/types"
)

var queryFlags struct {
	page     string
	pageSize string
	address  bool
}

var queryCmd = &cobra.Command{
	Use:   "query <type> <payload> | query --address <address>",
	Short: "查询脚本的确认历史",
	Example: `  scriptindex query p2pkh 62e907b15cbf27d5425399ebf6f0fb50ebb88f18
  scriptindex query --address 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa --page 1`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryFlags.address && len(args) != 1 {
			return fmt.Errorf("--address 需要且只需要一个参数")
		}
		if !queryFlags.address && len(args) != 2 {
			return fmt.Errorf("需要脚本类型与十六进制载荷两个参数")
		}

		raw := query.RawParams{}
		if cmd.Flags().Changed("page") {
			raw.Page = &queryFlags.page
		}
		if cmd.Flags().Changed("page-size") {
			raw.PageSize = &queryFlags.pageSize
		}

		var service *query.Service
		opts, err := appOptions(app.WithoutAPI(), app.WithReadOnly(), app.WithFxOptions(fx.Populate(&service)))
		if err != nil {
			return err
		}
		running, err := app.Start(opts...)
		if err != nil {
			return err
		}
		defer func() { _ = running.Stop() }()

		var page *types.Page
		if queryFlags.address {
			page, err = service.ConfirmedHistoryForAddressRequest(cmd.Context(), args[0], raw)
		} else {
			page, err = service.ConfirmedHistoryRequest(cmd.Context(), args[0], args[1], raw)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(httptypes.NewHistoryPageResponse(page))
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryFlags.page, "page", "", "页码 (默认 0)")
	queryCmd.Flags().StringVar(&queryFlags.pageSize, "page-size", "", "每页条数 (默认 25)")
	queryCmd.Flags().BoolVar(&queryFlags.address, "address", false, "参数为地址而非脚本类型与载荷")
}
