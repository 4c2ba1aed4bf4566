package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/scriptindex/internal/core/scripthistory/query"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/store"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/testutil"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

// keyed 为同一脚本键构造一组待写入条目
func keyed(key types.ScriptKey, entries ...types.HistoryEntry) []types.KeyedEntry {
	out := make([]types.KeyedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.KeyedEntry{Key: key, Entry: e})
	}
	return out
}

func TestLookupAbsentKey(t *testing.T) {
	s := testutil.NewHistoryStore(t, 1000, false)

	err := s.Lookup(context.Background(), testutil.P2SHKey(0x01), func(snap scripthistory.HistorySnapshot) error {
		assert.Zero(t, snap.NumTxs())
		assert.Equal(t, uint32(1000), snap.InternalPageSize())
		page, err := snap.ReadPage(context.Background(), 0)
		assert.Empty(t, page)
		return err
	})
	require.NoError(t, err)
}

func TestApplyAndRemoveBlock(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewBadger(t)
	s := store.New(db, nil, testutil.Config(1000, false), nil)

	keyA, keyB := testutil.P2SHKey(0xaa), testutil.P2SHKey(0xbb)
	b1 := testutil.Block("main", 1)
	cb := testutil.Entry(b1, testutil.Hash("tx", 0), 0)
	tx1 := testutil.Entry(b1, testutil.Hash("tx", 1), 1)

	items := append(keyed(keyA, cb, tx1), keyed(keyB, tx1)...)
	require.NoError(t, s.ApplyBlock(ctx, b1, chainhash.Hash{}, items))

	if diff := cmp.Diff([]types.HistoryEntry{cb, tx1}, testutil.ReadAll(t, s, keyA)); diff != "" {
		t.Fatalf("keyA 历史不一致 (-want +got):\n%s", diff)
	}
	assert.Equal(t, []types.HistoryEntry{tx1}, testutil.ReadAll(t, s, keyB))

	has, err := s.HasBlock(ctx, b1.Hash)
	require.NoError(t, err)
	assert.True(t, has)

	keys, err := s.BlockKeys(ctx, b1.Hash)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.True(t, keys[0].Equal(keyA))
	assert.True(t, keys[1].Equal(keyB))

	tip, err := s.IndexedTip(ctx)
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, b1, *tip)

	removed, err := s.RemoveBlock(ctx, b1.Hash)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	assert.Empty(t, testutil.ReadAll(t, s, keyA))
	assert.Empty(t, testutil.ReadAll(t, s, keyB))

	has, err = s.HasBlock(ctx, b1.Hash)
	require.NoError(t, err)
	assert.False(t, has)

	tip, err = s.IndexedTip(ctx)
	require.NoError(t, err)
	assert.Nil(t, tip)

	// 条目清空后不留下任何记录
	leftovers, err := db.PrefixScan(ctx, []byte("sh/"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRemoveUnknownBlock(t *testing.T) {
	s := testutil.NewHistoryStore(t, 1000, false)

	removed, err := s.RemoveBlock(context.Background(), testutil.Hash("nowhere", 7))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestWritesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewHistoryStore(t, 2, false)
	key := testutil.P2SHKey(0x01)

	b1 := testutil.Block("main", 1)
	entries := []types.HistoryEntry{
		testutil.Entry(b1, testutil.Hash("tx", 0), 0),
		testutil.Entry(b1, testutil.Hash("tx", 1), 1),
		testutil.Entry(b1, testutil.Hash("tx", 2), 2),
	}
	require.NoError(t, s.ApplyBlock(ctx, b1, chainhash.Hash{}, keyed(key, entries...)))
	require.NoError(t, s.ApplyBlock(ctx, b1, chainhash.Hash{}, keyed(key, entries...)))
	require.NoError(t, s.Append(ctx, key, entries[1]))

	assert.Equal(t, entries, testutil.ReadAll(t, s, key))

	// 同一区块内同一交易多次涉及该键只记一次
	b2 := testutil.Block("main", 2)
	dup := testutil.Entry(b2, testutil.Hash("tx", 9), 1)
	require.NoError(t, s.ApplyBlock(ctx, b2, b1.Hash, keyed(key, dup, dup)))
	assert.Len(t, testutil.ReadAll(t, s, key), 4)
}

func TestAppendOutOfOrderKeepsSortedFullPages(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewHistoryStore(t, 2, false)
	key := testutil.P2SHKey(0x02)

	var want []types.HistoryEntry
	for _, h := range []uint32{5, 3, 9, 1, 7} {
		require.NoError(t, s.Append(ctx, key, testutil.Entry(testutil.Block("main", h), testutil.Hash("tx", h), 1)))
	}
	for _, h := range []uint32{1, 3, 5, 7, 9} {
		want = append(want, testutil.Entry(testutil.Block("main", h), testutil.Hash("tx", h), 1))
	}
	assert.Equal(t, want, testutil.ReadAll(t, s, key))

	err := s.Lookup(ctx, key, func(snap scripthistory.HistorySnapshot) error {
		for i, size := range []int{2, 2, 1} {
			page, err := snap.ReadPage(ctx, uint32(i))
			require.NoError(t, err)
			assert.Len(t, page, size, "page %d", i)
		}
		page, err := snap.ReadPage(ctx, 3)
		assert.Empty(t, page)
		return err
	})
	require.NoError(t, err)

	// Append 登记的区块可被整体移除
	removed, err := s.RemoveBlock(ctx, testutil.Hash("main", 3))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, testutil.ReadAll(t, s, key), 4)
}

func TestSameHeightOrdering(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewHistoryStore(t, 1000, false)
	key := testutil.P2SHKey(0x03)

	b := testutil.Block("main", 10)
	var lo, hi chainhash.Hash
	lo[chainhash.HashSize-1] = 0x01
	hi[0] = 0xff // 显示序中最后一个字节在最前，hi 仍小于 lo

	items := keyed(key,
		testutil.Entry(b, testutil.Hash("tx", 5), 5),
		testutil.Entry(b, lo, 2),
		testutil.Entry(b, hi, 2),
		testutil.Entry(b, testutil.Hash("tx", 0), 0),
	)
	require.NoError(t, s.ApplyBlock(ctx, b, chainhash.Hash{}, items))

	got := testutil.ReadAll(t, s, key)
	require.Len(t, got, 4)
	assert.Equal(t, uint32(0), got[0].TxIndex)
	assert.Equal(t, hi, got[1].Tx.TxID)
	assert.Equal(t, lo, got[2].Tx.TxID)
	assert.Equal(t, uint32(5), got[3].TxIndex)
}

func TestPageBoundary(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewHistoryStore(t, 1000, true)
	key := testutil.P2SHKey(0x04)

	b1 := testutil.Block("main", 1)
	first := make([]types.HistoryEntry, 0, 1000)
	for i := uint32(0); i < 1000; i++ {
		first = append(first, testutil.Entry(b1, testutil.Hash("tx1", i), i))
	}
	require.NoError(t, s.ApplyBlock(ctx, b1, chainhash.Hash{}, keyed(key, first...)))

	b2 := testutil.Block("main", 2)
	last := testutil.Entry(b2, testutil.Hash("tx2", 0), 3)
	require.NoError(t, s.ApplyBlock(ctx, b2, b1.Hash, keyed(key, last)))

	err := s.Lookup(ctx, key, func(snap scripthistory.HistorySnapshot) error {
		assert.Equal(t, uint32(1001), snap.NumTxs())
		p0, err := snap.ReadPage(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, p0, 1000)
		p1, err := snap.ReadPage(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []types.HistoryEntry{last}, p1)
		return nil
	})
	require.NoError(t, err)

	removed, err := s.RemoveBlock(ctx, b2.Hash)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got := testutil.ReadAll(t, s, key)
	assert.Equal(t, first, got)

	tip, err := s.IndexedTip(ctx)
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, b1, *tip)
}

func TestCacheFollowsRewrites(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewHistoryStore(t, 2, true)
	key := testutil.P2SHKey(0x05)

	e5 := testutil.Entry(testutil.Block("main", 5), testutil.Hash("tx", 5), 1)
	e6 := testutil.Entry(testutil.Block("main", 6), testutil.Hash("tx", 6), 1)
	require.NoError(t, s.Append(ctx, key, e5))
	require.NoError(t, s.Append(ctx, key, e6))

	// 预热缓存
	assert.Equal(t, []types.HistoryEntry{e5, e6}, testutil.ReadAll(t, s, key))
	assert.Equal(t, []types.HistoryEntry{e5, e6}, testutil.ReadAll(t, s, key))

	// 在最前插入，第 0 页内容变化
	e1 := testutil.Entry(testutil.Block("main", 1), testutil.Hash("tx", 1), 1)
	require.NoError(t, s.Append(ctx, key, e1))
	assert.Equal(t, []types.HistoryEntry{e1, e5, e6}, testutil.ReadAll(t, s, key))

	_, err := s.RemoveBlock(ctx, e5.Block.Hash)
	require.NoError(t, err)
	assert.Equal(t, []types.HistoryEntry{e1, e6}, testutil.ReadAll(t, s, key))
}

func TestTipFollowsParent(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewHistoryStore(t, 1000, false)
	key := testutil.P2SHKey(0x06)

	b1, b2 := testutil.Block("main", 1), testutil.Block("main", 2)
	require.NoError(t, s.ApplyBlock(ctx, b1, chainhash.Hash{}, keyed(key, testutil.Entry(b1, testutil.Hash("tx", 1), 0))))
	// 不涉及任何键的区块同样推进链尖
	require.NoError(t, s.ApplyBlock(ctx, b2, b1.Hash, nil))

	tip, err := s.IndexedTip(ctx)
	require.NoError(t, err)
	assert.Equal(t, b2, *tip)

	_, err = s.RemoveBlock(ctx, b2.Hash)
	require.NoError(t, err)
	tip, err = s.IndexedTip(ctx)
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, b1, *tip)

	_, err = s.RemoveBlock(ctx, b1.Hash)
	require.NoError(t, err)
	tip, err = s.IndexedTip(ctx)
	require.NoError(t, err)
	assert.Nil(t, tip)
}

func TestApplyBlockRejectsForeignEntries(t *testing.T) {
	s := testutil.NewHistoryStore(t, 1000, false)
	b1, other := testutil.Block("main", 1), testutil.Block("side", 1)

	err := s.ApplyBlock(context.Background(), b1, chainhash.Hash{},
		keyed(testutil.P2SHKey(0x07), testutil.Entry(other, testutil.Hash("tx", 1), 0)))
	assert.Error(t, err)
}

// limitedStore 单个事务写操作超过上限时返回 ErrTxnTooBig
type limitedStore struct {
	storage.BadgerStore
	limit int

	mu       sync.Mutex
	tooBig   int
	commits  int
	failNext error
}

type limitedTxn struct {
	storage.BadgerTransaction
	owner *limitedStore
	ops   int
}

func (t *limitedTxn) count() error {
	t.ops++
	if t.ops > t.owner.limit {
		t.owner.mu.Lock()
		t.owner.tooBig++
		t.owner.mu.Unlock()
		return storage.ErrTxnTooBig
	}
	return nil
}

func (t *limitedTxn) Set(key, value []byte) error {
	if err := t.count(); err != nil {
		return err
	}
	return t.BadgerTransaction.Set(key, value)
}

func (t *limitedTxn) Delete(key []byte) error {
	if err := t.count(); err != nil {
		return err
	}
	return t.BadgerTransaction.Delete(key)
}

func (l *limitedStore) RunInTransaction(ctx context.Context, fn func(tx storage.BadgerTransaction) error) error {
	err := l.BadgerStore.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		return fn(&limitedTxn{BadgerTransaction: tx, owner: l})
	})
	if err == nil {
		l.mu.Lock()
		l.commits++
		l.mu.Unlock()
	}
	return err
}

func TestSplitWritesWhenTransactionTooBig(t *testing.T) {
	ctx := context.Background()
	db := &limitedStore{BadgerStore: testutil.NewBadger(t), limit: 3}
	s := store.New(db, nil, testutil.Config(1000, false), nil)

	keyA, keyB := testutil.P2SHKey(0x0a), testutil.P2SHKey(0x0b)
	b1 := testutil.Block("main", 1)
	cb := testutil.Entry(b1, testutil.Hash("tx", 0), 0)
	tx1 := testutil.Entry(b1, testutil.Hash("tx", 1), 1)

	require.NoError(t, s.ApplyBlock(ctx, b1, chainhash.Hash{}, append(keyed(keyA, cb), keyed(keyB, tx1)...)))
	assert.Equal(t, 1, db.tooBig)
	// 区块记录 + 每个键一个事务 + 完成标记
	assert.Equal(t, 4, db.commits)

	assert.Equal(t, []types.HistoryEntry{cb}, testutil.ReadAll(t, s, keyA))
	assert.Equal(t, []types.HistoryEntry{tx1}, testutil.ReadAll(t, s, keyB))
	has, err := s.HasBlock(ctx, b1.Hash)
	require.NoError(t, err)
	assert.True(t, has)

	removed, err := s.RemoveBlock(ctx, b1.Hash)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, db.tooBig)
	assert.Empty(t, testutil.ReadAll(t, s, keyA))
	assert.Empty(t, testutil.ReadAll(t, s, keyB))

	tip, err := s.IndexedTip(ctx)
	require.NoError(t, err)
	assert.Nil(t, tip)
}

// failingStore 在第 n 次读写事务时返回固定错误
type failingStore struct {
	storage.BadgerStore
	n, calls int
	err      error
}

func (f *failingStore) RunInTransaction(ctx context.Context, fn func(tx storage.BadgerTransaction) error) error {
	f.calls++
	if f.calls == f.n {
		return f.err
	}
	return f.BadgerStore.RunInTransaction(ctx, fn)
}

func TestInterruptedSplitLeavesBlockIncomplete(t *testing.T) {
	ctx := context.Background()
	inner := &limitedStore{BadgerStore: testutil.NewBadger(t), limit: 3}
	boom := errors.New("disk gone")
	// 第 1 次：整块事务（过大）；第 2 次：区块记录；第 3 次：第一个键
	db := &failingStore{BadgerStore: inner, n: 3, err: boom}
	s := store.New(db, nil, testutil.Config(1000, false), nil)

	keyA, keyB := testutil.P2SHKey(0x0c), testutil.P2SHKey(0x0d)
	b1 := testutil.Block("main", 1)
	items := append(keyed(keyA, testutil.Entry(b1, testutil.Hash("tx", 0), 0)),
		keyed(keyB, testutil.Entry(b1, testutil.Hash("tx", 1), 1))...)

	err := s.ApplyBlock(ctx, b1, chainhash.Hash{}, items)
	require.ErrorIs(t, err, boom)

	has, err := s.HasBlock(ctx, b1.Hash)
	require.NoError(t, err)
	assert.False(t, has)
	tip, err := s.IndexedTip(ctx)
	require.NoError(t, err)
	assert.Nil(t, tip)

	incomplete, err := s.IncompleteBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.BlockMeta{b1}, incomplete)

	// 重新投递可以补齐
	require.NoError(t, s.ApplyBlock(ctx, b1, chainhash.Hash{}, items))
	has, err = s.HasBlock(ctx, b1.Hash)
	require.NoError(t, err)
	assert.True(t, has)
	incomplete, err = s.IncompleteBlocks(ctx)
	require.NoError(t, err)
	assert.Empty(t, incomplete)
	assert.Len(t, testutil.ReadAll(t, s, keyA), 1)
	assert.Len(t, testutil.ReadAll(t, s, keyB), 1)
}

// TestConcurrentReadersSeeWholeBlocks 读者与区块写入/移除并发时只看到整块提交后的状态
func TestConcurrentReadersSeeWholeBlocks(t *testing.T) {
	const (
		blocks        = 40
		entriesPerBlk = 4
		readers       = 4
	)
	ctx := context.Background()
	s := testutil.NewHistoryStore(t, 3, true)
	key := testutil.P2SHKey(0x0c)

	var stop atomic.Bool
	var wg sync.WaitGroup
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				err := s.Lookup(ctx, key, func(snap scripthistory.HistorySnapshot) error {
					page, err := query.Paginate(ctx, snap, 0, 200)
					if err != nil {
						return err
					}
					assert.Zero(t, page.NumTxs%entriesPerBlk, "快照包含不完整的区块")
					assert.Len(t, page.Entries, int(page.NumTxs))
					for i := 1; i < len(page.Entries); i++ {
						assert.Negative(t, types.CompareEntries(page.Entries[i-1], page.Entries[i]))
					}
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}

	prev := chainhash.Hash{}
	kept := 0
	for h := uint32(1); h <= blocks; h++ {
		b := testutil.Block("main", h)
		var items []types.KeyedEntry
		for i := uint32(0); i < entriesPerBlk; i++ {
			items = append(items, keyed(key, testutil.Entry(b, testutil.Hash("tx", h*10+i), i))...)
		}
		require.NoError(t, s.ApplyBlock(ctx, b, prev, items))
		if h%3 == 0 {
			removed, err := s.RemoveBlock(ctx, b.Hash)
			require.NoError(t, err)
			require.Equal(t, entriesPerBlk, removed)
			continue
		}
		prev = b.Hash
		kept++
	}
	stop.Store(true)
	wg.Wait()

	assert.Len(t, testutil.ReadAll(t, s, key), kept*entriesPerBlk)
}
