package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/weisyn/scriptindex/internal/api"
	config "github.com/weisyn/scriptindex/internal/config"
	"github.com/weisyn/scriptindex/internal/core/infrastructure/event"
	log "github.com/weisyn/scriptindex/internal/core/infrastructure/log"
	"github.com/weisyn/scriptindex/internal/core/infrastructure/storage"
	"github.com/weisyn/scriptindex/internal/core/scripthistory"
)

// Bootstrap 应用引导程序
//
// 模块按层加载：基础设施（配置、日志）→ 通信与数据（事件、存储）
// → 业务（脚本历史索引）→ 应用（API）。
type Bootstrap struct {
	opts  *options
	fxApp *fx.App
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{opts: opts}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		fx.Provide(b.opts.provide),
		config.Module(), // 配置（不依赖其他）
		log.Module(),    // 日志（依赖配置）
	}
}

// SetupCommunicationLayer 设置通信与数据层模块
func (b *Bootstrap) SetupCommunicationLayer() []fx.Option {
	return []fx.Option{
		event.Module(),   // 事件总线
		storage.Module(), // BadgerDB 与内存缓存
	}
}

// SetupBusinessLayer 设置业务逻辑层模块
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		scripthistory.Module(),
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	var modules []fx.Option
	if b.opts.enableAPI {
		modules = append(modules, api.Module())
	}
	return append(modules, b.opts.extra...)
}

// SetupModules 组装全部模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var all []fx.Option
	all = append(all, b.SetupInfrastructureLayer()...)
	all = append(all, b.SetupCommunicationLayer()...)
	all = append(all, b.SetupBusinessLayer()...)
	all = append(all, b.SetupApplicationLayer()...)
	return all
}

// CreateFxApp 创建fx应用并检查依赖图
func (b *Bootstrap) CreateFxApp() error {
	b.fxApp = fx.New(
		fx.Options(b.SetupModules()...),
		fx.NopLogger,
	)
	if err := b.fxApp.Err(); err != nil {
		return fmt.Errorf("组装应用失败: %w", err)
	}
	return nil
}

// StartApp 启动应用
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}
