package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/scriptindex/internal/core/scripthistory/query"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/types"
)

// HistoryQuerier 处理器依赖的查询能力
type HistoryQuerier interface {
	ConfirmedHistoryRequest(ctx context.Context, scriptType, payloadHex string, raw query.RawParams) (*types.Page, error)
	ConfirmedHistoryForAddressRequest(ctx context.Context, addr string, raw query.RawParams) (*types.Page, error)
}

// HistoryHandlers 确认历史查询处理器
type HistoryHandlers struct {
	querier HistoryQuerier
	logger  log.Logger
}

// NewHistoryHandlers 创建确认历史处理器
func NewHistoryHandlers(querier HistoryQuerier, logger log.Logger) *HistoryHandlers {
	return &HistoryHandlers{querier: querier, logger: logger}
}

// RegisterRoutes 注册路由
//
//	GET /script/:type/:payload/confirmed-txs?page=&page_size=
//	GET /address/:address/confirmed-txs?page=&page_size=
func (h *HistoryHandlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/script/:type/:payload/confirmed-txs", h.GetScriptConfirmedTxs)
	r.GET("/address/:address/confirmed-txs", h.GetAddressConfirmedTxs)
}

// GetScriptConfirmedTxs 按脚本类型与 payload 查询确认历史
func (h *HistoryHandlers) GetScriptConfirmedTxs(c *gin.Context) {
	page, err := h.querier.ConfirmedHistoryRequest(c.Request.Context(), c.Param("type"), c.Param("payload"), rawParams(c))
	if err != nil {
		writeQueryError(c, h.logger, err)
		return
	}
	writePage(c, page)
}

// GetAddressConfirmedTxs 按地址查询确认历史
func (h *HistoryHandlers) GetAddressConfirmedTxs(c *gin.Context) {
	page, err := h.querier.ConfirmedHistoryForAddressRequest(c.Request.Context(), c.Param("address"), rawParams(c))
	if err != nil {
		writeQueryError(c, h.logger, err)
		return
	}
	writePage(c, page)
}

// rawParams 读取分页参数；未出现的参数保持 nil
func rawParams(c *gin.Context) query.RawParams {
	var raw query.RawParams
	if v, ok := c.GetQuery(query.ParamPage); ok {
		raw.Page = &v
	}
	if v, ok := c.GetQuery(query.ParamPageSize); ok {
		raw.PageSize = &v
	}
	return raw
}
