// Package scripthistory 提供脚本确认历史索引的 fx 模块配置
//
// 📋 **脚本历史模块 (Script History Module)**
//
// 组装索引的三个部分：
//   - store：基于 BadgerDB 的分页历史存储（HistoryStore）
//   - chainsync：区块连接/断开的串行写者（ChainSync）
//   - query：参数校验与分页查询门面（QueryService）
//
// 启动时若索引为空且配置了 index_genesis，写入所配置网络的创世区块。
package scripthistory

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	scripthistoryconfig "github.com/weisyn/scriptindex/internal/config/scripthistory"
	logimpl "github.com/weisyn/scriptindex/internal/core/infrastructure/log"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/chainsync"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/query"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/store"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
)

// ModuleInput 脚本历史模块的输入依赖
type ModuleInput struct {
	fx.In

	Config      *scripthistoryconfig.Config
	BadgerStore storage.BadgerStore
	MemoryStore storage.MemoryStore `optional:"true"` // 分页缓存
	EventBus    event.EventBus      `optional:"true"`
	Logger      log.Logger          `optional:"true"`
}

// ModuleOutput 脚本历史模块导出的服务
type ModuleOutput struct {
	fx.Out

	HistoryStore scripthistory.HistoryStore
	ChainSync    scripthistory.ChainSync
	QueryService scripthistory.QueryService

	// 具体类型，供 API 与 CLI 使用扩展方法
	Store   *store.Store
	Syncer  *chainsync.Syncer
	Service *query.Service
}

// Module 返回脚本历史模块
func Module() fx.Option {
	return fx.Module("scripthistory",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideServices 创建存储、同步器与查询服务
func ProvideServices(in ModuleInput) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(in.Logger, "scripthistory")

	historyStore := store.New(in.BadgerStore, in.MemoryStore, in.Config, logger)

	syncer, err := chainsync.New(historyStore, in.Config, in.EventBus, logger)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建链同步适配器失败: %w", err)
	}

	service, err := query.New(historyStore, in.Config, logger)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建查询服务失败: %w", err)
	}

	return ModuleOutput{
		HistoryStore: historyStore,
		ChainSync:    syncer,
		QueryService: service,
		Store:        historyStore,
		Syncer:       syncer,
		Service:      service,
	}, nil
}

func registerLifecycle(lc fx.Lifecycle, syncer *chainsync.Syncer, historyStore *store.Store, logger log.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := syncer.SeedGenesis(ctx); err != nil {
				return fmt.Errorf("写入创世区块失败: %w", err)
			}
			tip, err := historyStore.IndexedTip(ctx)
			if err != nil {
				return fmt.Errorf("读取已索引链尖失败: %w", err)
			}
			incomplete, err := historyStore.IncompleteBlocks(ctx)
			if err != nil {
				return fmt.Errorf("检查未完成区块失败: %w", err)
			}
			if logger != nil {
				for _, b := range incomplete {
					logger.Warnf("区块 %s (高度 %d) 未完成写入，等待重新投递", b.Hash, b.Height)
				}
				if tip == nil {
					logger.Info("脚本历史索引为空")
				} else {
					logger.Infof("脚本历史索引就绪: 链尖=%s 高度=%d", tip.Hash, tip.Height)
				}
			}
			return nil
		},
	})
}
