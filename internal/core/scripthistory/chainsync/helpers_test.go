package chainsync_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	scripthistoryconfig "github.com/weisyn/scriptindex/internal/config/scripthistory"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/chainsync"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/store"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/testutil"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scriptindex/pkg/types"
)

// newSyncer 创建基于内存 badger 的同步器；mutate 可调整配置
func newSyncer(t *testing.T, bus event.EventBus, mutate func(o *scripthistoryconfig.ScriptHistoryOptions)) (*chainsync.Syncer, *store.Store) {
	t.Helper()
	cfg := testutil.Config(1000, false)
	cfg.GetOptions().IndexGenesis = false
	if mutate != nil {
		mutate(cfg.GetOptions())
	}
	s := store.New(testutil.NewBadger(t), nil, cfg, nil)
	syncer, err := chainsync.New(s, cfg, bus, nil)
	require.NoError(t, err)
	return syncer, s
}

// mkBlock 构造 coinbase 支付到 key 的区块，extra 追加在 coinbase 之后
func mkBlock(tag string, height uint32, prev chainhash.Hash, key types.ScriptKey, extra ...types.BlockTx) *types.ConnectedBlock {
	txs := []types.BlockTx{{
		TxID:       testutil.Hash(tag+"/cb", height),
		IsCoinbase: true,
		Outputs:    []types.ScriptKey{key},
	}}
	return &types.ConnectedBlock{
		Meta:     testutil.Block(tag, height),
		PrevHash: prev,
		Txs:      append(txs, extra...),
	}
}

// mkChain 从 prev 之后连续构造 n 个区块
func mkChain(tag string, from uint32, prev chainhash.Hash, n int, key types.ScriptKey) []*types.ConnectedBlock {
	blocks := make([]*types.ConnectedBlock, 0, n)
	for i := 0; i < n; i++ {
		b := mkBlock(tag, from+uint32(i), prev, key)
		blocks = append(blocks, b)
		prev = b.Meta.Hash
	}
	return blocks
}

// blockSource 基于切片的区块源
type blockSource struct {
	blocks []*types.ConnectedBlock
}

func (s *blockSource) TipHeight(ctx context.Context) (uint32, error) {
	if len(s.blocks) == 0 {
		return 0, fmt.Errorf("empty source")
	}
	return uint32(len(s.blocks) - 1), nil
}

func (s *blockSource) BlockAt(ctx context.Context, height uint32) (*types.ConnectedBlock, error) {
	if int(height) >= len(s.blocks) {
		return nil, fmt.Errorf("no block at %d", height)
	}
	return s.blocks[height], nil
}

// heights 提取条目的区块高度
func heights(entries []types.HistoryEntry) []uint32 {
	out := make([]uint32, len(entries))
	for i, e := range entries {
		out[i] = e.Block.Height
	}
	return out
}
