// Package chainsync 消费区块连接/断开通知，维护脚本历史索引与活动链一致
//
// 所有写操作由 Syncer 串行执行。任何存储或链序错误都会让 Syncer 停止工作，
// 之后的写调用一律返回 ErrSyncHalted，直到进程重启后重新追赶。
package chainsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	scripthistoryconfig "github.com/weisyn/scriptindex/internal/config/scripthistory"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/metrics"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

var (
	// ErrSyncHalted 同步已因先前的错误停止
	ErrSyncHalted = errors.New("script history sync halted")
	// ErrOutOfOrder 连接的区块不是已索引链尖的直接后继
	ErrOutOfOrder = errors.New("block does not extend the indexed tip")
	// ErrNotTip 断开的区块不是已索引链尖
	ErrNotTip = errors.New("block is not the indexed tip")
)

// Syncer 链同步适配器
type Syncer struct {
	store   scripthistory.HistoryStore
	tracker *FirstSeenTracker
	bus     event.EventBus
	logger  log.Logger
	params  *chaincfg.Params

	indexSpends  bool
	indexGenesis bool

	mu     sync.Mutex
	halted error
}

var _ scripthistory.ChainSync = (*Syncer)(nil)

// New 创建同步适配器；bus 与 logger 可为 nil
func New(store scripthistory.HistoryStore, cfg *scripthistoryconfig.Config, bus event.EventBus, logger log.Logger) (*Syncer, error) {
	if cfg == nil {
		cfg = scripthistoryconfig.New(nil)
	}
	opts := cfg.GetOptions()

	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}
	tracker, err := NewFirstSeenTracker(opts.MempoolTrackerSize)
	if err != nil {
		return nil, fmt.Errorf("创建首见时间追踪器失败: %w", err)
	}

	return &Syncer{
		store:        store,
		tracker:      tracker,
		bus:          bus,
		logger:       logger,
		params:       params,
		indexSpends:  opts.IndexSpends,
		indexGenesis: opts.IndexGenesis,
	}, nil
}

// Halted 返回使同步停止的错误；正常运行时为 nil
func (s *Syncer) Halted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// OnConnect 处理区块连接
func (s *Syncer) OnConnect(ctx context.Context, block *types.ConnectedBlock) error {
	s.mu.Lock()
	ev, err := s.connect(ctx, block)
	s.mu.Unlock()

	s.publish(types.EventTypeBlockConnected, ev)
	return err
}

// OnDisconnect 处理区块断开
func (s *Syncer) OnDisconnect(ctx context.Context, blockHash chainhash.Hash) error {
	s.mu.Lock()
	ev, err := s.disconnect(ctx, blockHash)
	s.mu.Unlock()

	s.publish(types.EventTypeBlockDisconnected, ev)
	return err
}

// OnMempoolAdd 记录交易首次出现在内存池的时间
func (s *Syncer) OnMempoolAdd(txid chainhash.Hash, seenAt int64) {
	s.tracker.Add(txid, seenAt)
}

// OnMempoolRemove 交易未被打包而离开内存池
func (s *Syncer) OnMempoolRemove(txid chainhash.Hash) {
	s.tracker.Remove(txid)
}

// checkHalted 调用方持有 s.mu
func (s *Syncer) checkHalted() error {
	if s.halted != nil {
		return fmt.Errorf("%w: %v", ErrSyncHalted, s.halted)
	}
	return nil
}

// fail 锁存错误并返回；调用方持有 s.mu
func (s *Syncer) fail(err error) error {
	s.halted = err
	metrics.SetHalted(true)
	if s.logger != nil {
		s.logger.Errorf("脚本历史同步停止: %v", err)
	}
	return err
}

// connect 连接一个区块；调用方持有 s.mu。返回待发布的事件（无变更时为 nil）
func (s *Syncer) connect(ctx context.Context, block *types.ConnectedBlock) (*types.BlockEvent, error) {
	if err := s.checkHalted(); err != nil {
		return nil, err
	}
	if block == nil {
		return nil, s.fail(fmt.Errorf("连接区块为空"))
	}

	has, err := s.store.HasBlock(ctx, block.Meta.Hash)
	if err != nil {
		return nil, s.fail(fmt.Errorf("查询区块 %s 失败: %w", block.Meta.Hash, err))
	}
	if has {
		if s.logger != nil {
			s.logger.Debugf("区块 %s 已索引，忽略重复连接", block.Meta.Hash)
		}
		return nil, nil
	}

	tip, err := s.store.IndexedTip(ctx)
	if err != nil {
		return nil, s.fail(fmt.Errorf("读取已索引链尖失败: %w", err))
	}
	if tip != nil && (block.PrevHash != tip.Hash || block.Meta.Height != tip.Height+1) {
		return nil, s.fail(fmt.Errorf("%w: 区块 %s (高度 %d, 父 %s), 链尖 %s (高度 %d)",
			ErrOutOfOrder, block.Meta.Hash, block.Meta.Height, block.PrevHash, tip.Hash, tip.Height))
	}

	items, keys := s.collect(block)
	if err := s.store.ApplyBlock(ctx, block.Meta, block.PrevHash, items); err != nil {
		return nil, s.fail(fmt.Errorf("写入区块 %s 失败: %w", block.Meta.Hash, err))
	}

	// 已确认的交易不再处于内存池
	for _, tx := range block.Txs {
		s.tracker.Remove(tx.TxID)
	}

	metrics.ObserveConnect(block.Meta.Height, len(items))
	if s.logger != nil {
		s.logger.Debugf("连接区块 %s 高度=%d 条目=%d 脚本=%d",
			block.Meta.Hash, block.Meta.Height, len(items), len(keys))
	}
	return &types.BlockEvent{Block: block.Meta, Keys: keys, Entries: len(items)}, nil
}

// collect 按区块内顺序生成各脚本键的条目，同一交易对同一键只记一次
func (s *Syncer) collect(block *types.ConnectedBlock) ([]types.KeyedEntry, []types.ScriptKey) {
	var items []types.KeyedEntry
	var keys []types.ScriptKey
	touched := make(map[string]struct{})

	for i, tx := range block.Txs {
		entry := types.HistoryEntry{
			Tx:      types.TxRef{TxID: tx.TxID, IsCoinbase: tx.IsCoinbase},
			Block:   block.Meta,
			TxIndex: uint32(i),
		}
		if !tx.IsCoinbase {
			entry.FirstSeen = s.tracker.FirstSeen(tx.TxID)
		}

		seen := make(map[string]struct{})
		add := func(list []types.ScriptKey) {
			for _, key := range list {
				kb := string(key.Bytes())
				if _, dup := seen[kb]; dup {
					continue
				}
				seen[kb] = struct{}{}
				items = append(items, types.KeyedEntry{Key: key, Entry: entry})
				if _, ok := touched[kb]; !ok {
					touched[kb] = struct{}{}
					keys = append(keys, key)
				}
			}
		}
		add(tx.Outputs)
		if s.indexSpends {
			add(tx.Spent)
		}
	}
	return items, keys
}

// disconnect 断开一个区块；调用方持有 s.mu
func (s *Syncer) disconnect(ctx context.Context, blockHash chainhash.Hash) (*types.BlockEvent, error) {
	if err := s.checkHalted(); err != nil {
		return nil, err
	}

	tip, err := s.store.IndexedTip(ctx)
	if err != nil {
		return nil, s.fail(fmt.Errorf("读取已索引链尖失败: %w", err))
	}

	if tip == nil || tip.Hash != blockHash {
		has, err := s.store.HasBlock(ctx, blockHash)
		if err != nil {
			return nil, s.fail(fmt.Errorf("查询区块 %s 失败: %w", blockHash, err))
		}
		if has {
			return nil, s.fail(fmt.Errorf("%w: %s", ErrNotTip, blockHash))
		}
		// 未索引的区块：重复断开为空操作，中断的拆分写入在此清理
		n, err := s.store.RemoveBlock(ctx, blockHash)
		if err != nil {
			return nil, s.fail(fmt.Errorf("清理区块 %s 失败: %w", blockHash, err))
		}
		if n > 0 && s.logger != nil {
			s.logger.Warnf("清理未完成索引的区块 %s, 移除条目=%d", blockHash, n)
		}
		return nil, nil
	}

	keys, err := s.store.BlockKeys(ctx, blockHash)
	if err != nil {
		return nil, s.fail(fmt.Errorf("读取区块 %s 记录失败: %w", blockHash, err))
	}
	n, err := s.store.RemoveBlock(ctx, blockHash)
	if err != nil {
		return nil, s.fail(fmt.Errorf("移除区块 %s 失败: %w", blockHash, err))
	}

	newHeight := uint32(0)
	if tip.Height > 0 {
		newHeight = tip.Height - 1
	}
	metrics.ObserveDisconnect(newHeight, n)
	if s.logger != nil {
		s.logger.Debugf("断开区块 %s 高度=%d 移除条目=%d", blockHash, tip.Height, n)
	}
	return &types.BlockEvent{Block: *tip, Keys: keys, Entries: n}, nil
}

func (s *Syncer) publish(eventType event.EventType, ev *types.BlockEvent) {
	if s.bus == nil || ev == nil {
		return
	}
	s.bus.Publish(eventType, ev)
}
