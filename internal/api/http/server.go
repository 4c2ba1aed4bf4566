package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/weisyn/scriptindex/internal/api/http/handlers"
	"github.com/weisyn/scriptindex/internal/api/http/middleware"
	"github.com/weisyn/scriptindex/internal/api/websocket"
	apiconfig "github.com/weisyn/scriptindex/internal/config/api"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
)

// Deps HTTP服务器依赖
type Deps struct {
	Options   apiconfig.HTTPConfig
	Logger    log.Logger
	AccessLog *zap.Logger // 可选，nil 时不记录访问日志
	Querier   handlers.HistoryQuerier
	Tips      handlers.TipReader
	Sync      handlers.HaltReporter // 可选
	EventBus  event.EventBus        // 可选，WebSocket 推送使用
}

// Server HTTP服务器
// 负责路由注册与服务启停
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	options    apiconfig.HTTPConfig
	logger     log.Logger
	ws         *websocket.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer 创建HTTP服务器并注册路由
func NewServer(deps Deps) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		router:  router,
		options: deps.Options,
		logger:  deps.Logger,
	}

	router.Use(
		middleware.Recovery(deps.Logger),
		middleware.NewRequestID().Middleware(),
		middleware.NewLogger(deps.AccessLog).Middleware(),
	)
	if deps.Options.EnableMetrics {
		router.Use(middleware.NewMetrics().Middleware())
	}

	if deps.Options.EnableWebSocket {
		ws, err := websocket.NewServer(deps.Logger, deps.EventBus, websocket.Options{
			ReadBufferSize:  deps.Options.WSReadBufferSize,
			WriteBufferSize: deps.Options.WSWriteBufferSize,
		})
		if err != nil {
			return nil, fmt.Errorf("创建WebSocket服务失败: %w", err)
		}
		s.ws = ws
	}

	s.setupRoutes(deps)
	return s, nil
}

// setupRoutes 设置HTTP路由
func (s *Server) setupRoutes(deps Deps) {
	handlers.NewHistoryHandlers(deps.Querier, deps.Logger).RegisterRoutes(s.router)
	handlers.NewHealthHandler(deps.Logger, deps.Tips, deps.Sync).RegisterRoutes(s.router)

	if s.options.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if s.ws != nil {
		s.ws.RegisterRoutes(s.router)
	}

	s.router.NoRoute(func(c *gin.Context) {
		middleware.WriteError(c, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
}

// Handler 返回路由处理器（测试与嵌入使用）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动HTTP服务器
//
// 先同步完成端口监听，监听失败直接返回错误；之后在后台处理请求。
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.options.Host, fmt.Sprintf("%d", s.options.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.logger != nil {
				s.logger.Errorf("HTTP服务器运行失败: %v", err)
			}
		}
	}()

	if s.logger != nil {
		s.logger.Infof("HTTP服务器已启动，监听地址: %s", ln.Addr())
	}
	return nil
}

// Addr 实际监听地址；未启动时返回空串
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 优雅关闭，等待进行中的请求完成
func (s *Server) Stop(ctx context.Context) error {
	if s.ws != nil {
		s.ws.Close()
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if s.options.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.ShutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Errorf("HTTP服务器关闭出错: %v", err)
		}
		return err
	}
	if s.logger != nil {
		s.logger.Info("HTTP服务器已关闭")
	}
	return nil
}
