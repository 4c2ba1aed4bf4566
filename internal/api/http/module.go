package http

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	logimpl "github.com/weisyn/scriptindex/internal/core/infrastructure/log"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/chainsync"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/query"
	"github.com/weisyn/scriptindex/pkg/interfaces/config"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
)

// ModuleParams HTTP模块依赖
type ModuleParams struct {
	fx.In

	Lifecycle    fx.Lifecycle
	Provider     config.Provider
	Logger       log.Logger
	ZapLogger    *zap.Logger `optional:"true"`
	Service      *query.Service
	HistoryStore scripthistory.HistoryStore
	Syncer       *chainsync.Syncer `optional:"true"`
	EventBus     event.EventBus    `optional:"true"`
}

// Module 返回HTTP服务模块
func Module() fx.Option {
	return fx.Options(
		fx.Provide(ProvideServer),
		fx.Invoke(func(*Server) {}),
	)
}

// ProvideServer 创建HTTP服务器并挂接生命周期；HTTP 关闭时不监听端口
func ProvideServer(p ModuleParams) (*Server, error) {
	opts := p.Provider.GetAPI().HTTP

	deps := Deps{
		Options:   opts,
		Logger:    p.Logger,
		AccessLog: logimpl.NewModuleZapLogger(p.ZapLogger, "api"),
		Querier:   p.Service,
		Tips:      p.HistoryStore,
		EventBus:  p.EventBus,
	}
	if p.Syncer != nil {
		deps.Sync = p.Syncer
	}

	server, err := NewServer(deps)
	if err != nil {
		return nil, err
	}

	if !opts.Enabled {
		p.Logger.Info("HTTP API 已在配置中关闭")
		return server, nil
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})
	return server, nil
}
