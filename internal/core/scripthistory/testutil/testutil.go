// Package testutil 提供脚本历史索引测试使用的存储与数据构造工具
package testutil

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	scripthistoryconfig "github.com/weisyn/scriptindex/internal/config/scripthistory"
	badgerconfig "github.com/weisyn/scriptindex/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/scriptindex/internal/config/storage/memory"
	"github.com/weisyn/scriptindex/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/scriptindex/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/store"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

// NewBadger 创建内存模式的 badger 存储，测试结束时关闭
func NewBadger(t testing.TB) storage.BadgerStore {
	t.Helper()
	db, err := badger.New(badgerconfig.NewFromOptions(&badgerconfig.BadgerOptions{
		InMemory:     true,
		MemTableSize: 16 << 20,
	}), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewMemory 创建 bigcache 内存存储，测试结束时关闭
func NewMemory(t testing.TB) storage.MemoryStore {
	t.Helper()
	mem, err := memory.New(memoryconfig.New(nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })
	return mem
}

// Config 构造指定内部分页大小的索引配置
func Config(pageSize uint32, cache bool) *scripthistoryconfig.Config {
	cfg := scripthistoryconfig.New(nil)
	cfg.GetOptions().InternalPageSize = pageSize
	cfg.GetOptions().PageCacheEnabled = cache
	return cfg
}

// NewHistoryStore 创建基于内存 badger 的历史存储
func NewHistoryStore(t testing.TB, pageSize uint32, cache bool) *store.Store {
	t.Helper()
	var mem storage.MemoryStore
	if cache {
		mem = NewMemory(t)
	}
	return store.New(NewBadger(t), mem, Config(pageSize, cache), nil)
}

// Hash 由标签与序号确定性地生成哈希
func Hash(tag string, n uint32) chainhash.Hash {
	buf := make([]byte, 0, len(tag)+4)
	buf = append(buf, tag...)
	buf = binary.BigEndian.AppendUint32(buf, n)
	return chainhash.DoubleHashH(buf)
}

// Block 构造高度为 height 的区块元数据（时间戳随高度递增）
func Block(tag string, height uint32) types.BlockMeta {
	return types.BlockMeta{
		Hash:      Hash(tag, height),
		Height:    height,
		Timestamp: 1300000000 + int64(height)*600,
	}
}

// Entry 构造区块内第 idx 笔交易的历史条目
func Entry(block types.BlockMeta, txid chainhash.Hash, idx uint32) types.HistoryEntry {
	return types.HistoryEntry{
		Tx:      types.TxRef{TxID: txid, IsCoinbase: idx == 0},
		Block:   block,
		TxIndex: idx,
	}
}

// P2SHKey 构造由单字节填充的 P2SH 脚本键
func P2SHKey(fill byte) types.ScriptKey {
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = fill
	}
	return types.NewScriptKey(types.ScriptTypeP2SH, payload)
}

// ReadAll 读取键的完整历史
func ReadAll(t testing.TB, s scripthistory.HistoryStore, key types.ScriptKey) []types.HistoryEntry {
	t.Helper()
	var all []types.HistoryEntry
	err := s.Lookup(context.Background(), key, func(snap scripthistory.HistorySnapshot) error {
		ps := snap.InternalPageSize()
		pages := (snap.NumTxs() + ps - 1) / ps
		for i := uint32(0); i < pages; i++ {
			entries, err := snap.ReadPage(context.Background(), i)
			if err != nil {
				return err
			}
			all = append(all, entries...)
		}
		require.Len(t, all, int(snap.NumTxs()))
		return nil
	})
	require.NoError(t, err)
	return all
}
