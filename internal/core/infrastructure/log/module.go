// Package log 提供日志管理功能
package log

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	logconfig "github.com/weisyn/scriptindex/internal/config/log"
	"github.com/weisyn/scriptindex/pkg/interfaces/config"
	logInterface "github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
)

// ModuleParams 定义日志模块的依赖参数
type ModuleParams struct {
	fx.In

	Provider config.Provider // 配置提供者
}

// ModuleOutput 定义日志模块的输出结构
type ModuleOutput struct {
	fx.Out

	Logger    logInterface.Logger // 日志记录器接口
	ZapLogger *zap.Logger         // 底层 zap 日志器（HTTP 访问日志使用）
}

// Module 返回日志模块
//
// 应用停止时刷新日志缓冲区，保证退出前最后几条日志落盘。
func Module() fx.Option {
	return fx.Module("log",
		fx.Provide(ProvideServices),
		fx.Invoke(func(lc fx.Lifecycle, logger logInterface.Logger) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					// 控制台输出在部分平台上 Sync 会返回 EINVAL，忽略即可
					_ = logger.Sync()
					return nil
				},
			})
		}),
	)
}

// ProvideServices 根据配置创建日志记录器
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger, err := New(logconfig.NewFromProvider(params.Provider))
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建日志记录器失败: %w", err)
	}

	return ModuleOutput{
		Logger:    logger,
		ZapLogger: logger.GetZapLogger(),
	}, nil
}

// NewModuleLogger 创建带 module 字段的日志器；base 为 nil 时返回丢弃输出的日志器
func NewModuleLogger(base logInterface.Logger, module string) logInterface.Logger {
	if base == nil {
		return NewNop()
	}
	return base.With("module", module)
}

// NewModuleZapLogger 创建带 module 字段的 zap 日志器；base 为 nil 时返回 nil
func NewModuleZapLogger(base *zap.Logger, module string) *zap.Logger {
	if base == nil {
		return nil
	}
	return base.With(zap.String("module", module))
}
