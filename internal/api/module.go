package api

import (
	"github.com/weisyn/scriptindex/internal/api/http"
	"go.uber.org/fx"
)

// Module 返回API模块
//
// HTTP 服务同时承载查询接口、健康检查、/metrics 与 /ws 推送。
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),
	)
}
