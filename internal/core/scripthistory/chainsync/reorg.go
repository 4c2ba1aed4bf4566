package chainsync

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

// Reorg 重组：先从链尖到分叉点逐个断开，再从分叉点到新链尖逐个连接
//
// 两个阶段都复用单区块的断开/连接逻辑，期间持有写锁，读者只会看到每个区块的完整状态。
// 任一步失败后同步停止，已完成的步骤不会回滚。
func (s *Syncer) Reorg(ctx context.Context, disconnect []chainhash.Hash, connect []*types.ConnectedBlock) error {
	var events []pendingEvent

	s.mu.Lock()
	err := func() error {
		for _, hash := range disconnect {
			ev, err := s.disconnect(ctx, hash)
			if err != nil {
				return err
			}
			events = append(events, pendingEvent{types.EventTypeBlockDisconnected, ev})
		}
		for _, block := range connect {
			ev, err := s.connect(ctx, block)
			if err != nil {
				return err
			}
			events = append(events, pendingEvent{types.EventTypeBlockConnected, ev})
		}
		return nil
	}()
	s.mu.Unlock()

	s.publishAll(events)
	if err == nil && s.logger != nil {
		s.logger.Infof("脚本历史重组完成: 断开=%d 连接=%d", len(disconnect), len(connect))
	}
	return err
}

// pendingEvent 写锁释放后再发布的事件，同步订阅者可以安全地回调 Syncer
type pendingEvent struct {
	eventType event.EventType
	ev        *types.BlockEvent
}

func (s *Syncer) publishAll(events []pendingEvent) {
	for _, pe := range events {
		s.publish(pe.eventType, pe.ev)
	}
}

// CatchUp 把索引追赶到区块源的链尖
//
// 已索引链尖不在区块源的活动链上时，先逐个断开直到回到共同祖先。
// 区块源读取失败不会停止同步（尚未改写任何数据），存储错误照常停止。
// 每个区块之间检查 ctx，取消后保留已完成的进度。
func (s *Syncer) CatchUp(ctx context.Context, src scripthistory.BlockSource) error {
	var events []pendingEvent
	s.mu.Lock()
	err := s.catchUp(ctx, src, &events)
	s.mu.Unlock()

	s.publishAll(events)
	return err
}

func (s *Syncer) catchUp(ctx context.Context, src scripthistory.BlockSource, events *[]pendingEvent) error {
	if err := s.checkHalted(); err != nil {
		return err
	}

	srcTip, err := src.TipHeight(ctx)
	if err != nil {
		return fmt.Errorf("读取区块源高度失败: %w", err)
	}

	tip, err := s.store.IndexedTip(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("读取已索引链尖失败: %w", err))
	}

	// 回退到区块源活动链上的祖先
	for tip != nil {
		if tip.Height <= srcTip {
			blk, err := src.BlockAt(ctx, tip.Height)
			if err != nil {
				return fmt.Errorf("读取高度 %d 的区块失败: %w", tip.Height, err)
			}
			if blk.Meta.Hash == tip.Hash {
				break
			}
		}
		if s.logger != nil {
			s.logger.Warnf("已索引链尖 %s (高度 %d) 不在活动链上，回退", tip.Hash, tip.Height)
		}
		ev, err := s.disconnect(ctx, tip.Hash)
		if err != nil {
			return err
		}
		*events = append(*events, pendingEvent{types.EventTypeBlockDisconnected, ev})
		if tip, err = s.store.IndexedTip(ctx); err != nil {
			return s.fail(fmt.Errorf("读取已索引链尖失败: %w", err))
		}
	}

	start := uint32(0)
	if tip != nil {
		if tip.Height >= srcTip {
			return nil
		}
		start = tip.Height + 1
	}

	connected := 0
	for h := start; h <= srcTip; h++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		blk, err := src.BlockAt(ctx, h)
		if err != nil {
			return fmt.Errorf("读取高度 %d 的区块失败: %w", h, err)
		}
		ev, err := s.connect(ctx, blk)
		if err != nil {
			return err
		}
		*events = append(*events, pendingEvent{types.EventTypeBlockConnected, ev})
		connected++
		if h == ^uint32(0) {
			break
		}
	}

	if s.logger != nil {
		s.logger.Infof("脚本历史追赶完成: 起始高度=%d 连接区块=%d 链尖高度=%d", start, connected, srcTip)
	}
	return nil
}

// SeedGenesis 空索引时写入配置网络的创世区块
func (s *Syncer) SeedGenesis(ctx context.Context) error {
	if !s.indexGenesis {
		return nil
	}

	s.mu.Lock()
	tip, err := s.store.IndexedTip(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("读取已索引链尖失败: %w", err)
	}
	if tip != nil {
		s.mu.Unlock()
		return nil
	}

	block, err := FromWireBlock(s.params.GenesisBlock, 0, nil)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	ev, err := s.connect(ctx, block)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(types.EventTypeBlockConnected, ev)
	if s.logger != nil {
		s.logger.Infof("已索引 %s 创世区块 %s", s.params.Name, block.Meta.Hash)
	}
	return nil
}
