package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/scriptindex/internal/api/http/types"
	"github.com/weisyn/scriptindex/internal/app/version"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/types"
)

// TipReader 读取已索引链尖
type TipReader interface {
	IndexedTip(ctx context.Context) (*types.BlockMeta, error)
}

// HaltReporter 报告同步器是否已停止
type HaltReporter interface {
	Halted() error
}

// HealthHandler 健康检查端点处理器
//
// 提供三个端点：
//   - /health: 完整报告（链尖、同步状态）
//   - /health/live: 存活检查
//   - /health/ready: 就绪检查（同步器停止或存储不可读时 503）
type HealthHandler struct {
	logger    log.Logger
	startTime time.Time
	tips      TipReader
	sync      HaltReporter
}

// NewHealthHandler 创建健康检查处理器；sync 可为 nil
func NewHealthHandler(logger log.Logger, tips TipReader, sync HaltReporter) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		startTime: time.Now(),
		tips:      tips,
		sync:      sync,
	}
}

// RegisterRoutes 注册健康检查路由
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	health := r.Group("/health")
	{
		health.GET("", h.GetHealth)
		health.GET("/live", h.GetLiveness)
		health.GET("/ready", h.GetReadiness)
	}
}

// GetHealth 完整健康报告
func (h *HealthHandler) GetHealth(c *gin.Context) {
	resp, status := h.report(c.Request.Context())
	c.JSON(status, resp)
}

// GetLiveness 存活检查：进程能响应即存活
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// GetReadiness 就绪检查
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	resp, status := h.report(c.Request.Context())
	c.JSON(status, gin.H{"status": resp.Status})
}

func (h *HealthHandler) report(ctx context.Context) (*apitypes.HealthResponse, int) {
	resp := &apitypes.HealthResponse{
		Status:    "healthy",
		Version:   version.GetVersion(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.sync != nil {
		if err := h.sync.Halted(); err != nil {
			resp.Status = "halted"
			resp.Error = err.Error()
			return resp, http.StatusServiceUnavailable
		}
	}

	tip, err := h.tips.IndexedTip(ctx)
	if err != nil {
		if h.logger != nil {
			h.logger.Warnf("健康检查读取链尖失败: %v", err)
		}
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		return resp, http.StatusServiceUnavailable
	}
	if tip != nil {
		height := tip.Height
		resp.IndexedHeight = &height
		resp.IndexedHash = tip.Hash.String()
	}
	return resp, http.StatusOK
}
