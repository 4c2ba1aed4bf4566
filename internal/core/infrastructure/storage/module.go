// Package storage 提供存储管理功能
package storage

import (
	"context"
	"fmt"

	badgerconfig "github.com/weisyn/scriptindex/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/scriptindex/internal/config/storage/memory"
	"github.com/weisyn/scriptindex/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/scriptindex/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/scriptindex/pkg/interfaces/config"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	storageInterface "github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/storage"
	"go.uber.org/fx"
)

// ModuleParams 定义存储模块的依赖参数
type ModuleParams struct {
	fx.In

	Provider config.Provider // 配置提供者
	Logger   log.Logger      // 日志记录器
}

// ModuleOutput 定义存储模块的输出结构
type ModuleOutput struct {
	fx.Out

	BadgerStore storageInterface.BadgerStore // BadgerDB存储（必需，失败即错误）
	MemoryStore storageInterface.MemoryStore `optional:"true"` // 内存存储（可选）
}

// Module 返回存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideServices),

		// 应用停止时关闭存储
		fx.Invoke(func(lc fx.Lifecycle, badgerStore storageInterface.BadgerStore, memoryStore storageInterface.MemoryStore, logger log.Logger) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					logger.Info("正在关闭存储服务...")

					if memoryStore != nil {
						if err := memoryStore.Close(); err != nil {
							// 继续关闭BadgerDB
							logger.Errorf("关闭内存存储失败: %v", err)
						}
					}

					if err := badgerStore.Close(); err != nil {
						logger.Errorf("关闭BadgerDB存储失败: %v", err)
						return err
					}

					logger.Info("存储服务已安全关闭")
					return nil
				},
			})
		}),
	)
}

// ProvideServices 提供存储服务
// 根据配置初始化各类存储引擎并返回
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	badgerStore, err := badger.New(badgerconfig.NewFromOptions(params.Provider.GetBadger()), params.Logger)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("初始化BadgerDB存储失败: %w", err)
	}

	memoryStore, err := memory.New(memoryconfig.New(params.Provider.GetMemory()), params.Logger)
	if err != nil {
		_ = badgerStore.Close()
		return ModuleOutput{}, fmt.Errorf("初始化内存存储失败: %w", err)
	}

	return ModuleOutput{
		BadgerStore: badgerStore,
		MemoryStore: memoryStore,
	}, nil
}
