// Package store 实现基于 BadgerDB 的脚本确认历史存储
//
// 每个脚本键的历史按排序键 (高度, 区块内序号, 交易ID显示序) 保存为固定大小的
// 内部分页，除最后一页外都是满页。写入只重写插入/删除点之后的分页后缀，
// 每个键的改写在单个 badger 事务内提交，读者要么看到改写前、要么看到改写后。
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	scripthistoryconfig "github.com/weisyn/scriptindex/internal/config/scripthistory"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

// Store 脚本历史存储
type Store struct {
	db       storage.BadgerStore
	cache    *pageCache
	pageSize uint32
	logger   log.Logger

	// versionSeq 分页版本序列，以启动时刻初始化，保证进程内版本号不复用
	versionSeq uint64
}

var _ scripthistory.HistoryStore = (*Store)(nil)

// New 创建历史存储
//
// mem 为 nil 或配置关闭分页缓存时，所有分页直接从 badger 读取。
func New(db storage.BadgerStore, mem storage.MemoryStore, cfg *scripthistoryconfig.Config, logger log.Logger) *Store {
	if cfg == nil {
		cfg = scripthistoryconfig.New(nil)
	}
	opts := cfg.GetOptions()

	s := &Store{
		db:         db,
		pageSize:   opts.InternalPageSize,
		logger:     logger,
		versionSeq: uint64(time.Now().UnixNano()),
	}
	if mem != nil && opts.PageCacheEnabled {
		s.cache = newPageCache(mem)
	}
	return s
}

// nextVersion 返回大于 prev 的新版本号
func (s *Store) nextVersion(prev uint64) uint64 {
	v := atomic.AddUint64(&s.versionSeq, 1)
	if v <= prev {
		return prev + 1
	}
	return v
}

// ==================== 写入 ====================

// Append 插入单个条目
//
// 同一 (key, txid, block hash) 重复插入为空操作。条目所在区块的记录会登记该键，
// 以便 RemoveBlock 能找回它；Append 不推进链尖，也不把区块标记为已完整索引。
func (s *Store) Append(ctx context.Context, key types.ScriptKey, entry types.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		if _, err := s.insertEntries(tx, key, []types.HistoryEntry{entry}); err != nil {
			return err
		}

		rec, err := loadBlockRecord(tx, entry.Block.Hash)
		if err != nil {
			return err
		}
		if rec == nil {
			rec = &blockRecord{height: entry.Block.Height, timestamp: entry.Block.Timestamp}
		}
		rec.addKey(key)
		return tx.Set(blockKey(entry.Block.Hash), encodeBlockRecord(rec))
	})
}

// ApplyBlock 写入一次区块连接的全部条目，并把链尖推进到该区块
//
// 正常情况下整个区块在一个事务内提交。区块过大（ErrTxnTooBig）时按键拆分：
// 先写入未完成标记的区块记录，再逐键提交，最后标记完成并推进链尖。
// 拆分只发生在键之间，单个键的改写始终原子可见。
func (s *Store) ApplyBlock(ctx context.Context, block types.BlockMeta, prevHash chainhash.Hash, items []types.KeyedEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	groups, err := groupByKey(block, items)
	if err != nil {
		return err
	}

	err = s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		rec, err := s.mergedBlockRecord(tx, block, prevHash, groups)
		if err != nil {
			return err
		}
		for _, g := range groups {
			if _, err := s.insertEntries(tx, g.key, g.entries); err != nil {
				return err
			}
		}
		rec.complete = true
		if err := tx.Set(blockKey(block.Hash), encodeBlockRecord(rec)); err != nil {
			return err
		}
		return tx.Set(keyTip, encodeTip(block))
	})
	if err == nil || !errors.Is(err, storage.ErrTxnTooBig) {
		return err
	}

	if s.logger != nil {
		s.logger.Warnf("区块 %s (高度 %d) 写入量过大，按脚本键拆分事务 keys=%d",
			block.Hash, block.Height, len(groups))
	}
	return s.applyBlockSplit(ctx, block, prevHash, groups)
}

func (s *Store) applyBlockSplit(ctx context.Context, block types.BlockMeta, prevHash chainhash.Hash, groups []keyGroup) error {
	err := s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		rec, err := s.mergedBlockRecord(tx, block, prevHash, groups)
		if err != nil {
			return err
		}
		rec.complete = false
		return tx.Set(blockKey(block.Hash), encodeBlockRecord(rec))
	})
	if err != nil {
		return fmt.Errorf("写入区块记录失败: %w", err)
	}

	for _, g := range groups {
		g := g
		err := s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
			_, err := s.insertEntries(tx, g.key, g.entries)
			return err
		})
		if err != nil {
			return fmt.Errorf("写入脚本键 %s 失败: %w", g.key, err)
		}
	}

	return s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		rec, err := loadBlockRecord(tx, block.Hash)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("区块记录丢失: %s", block.Hash)
		}
		rec.complete = true
		if err := tx.Set(blockKey(block.Hash), encodeBlockRecord(rec)); err != nil {
			return err
		}
		return tx.Set(keyTip, encodeTip(block))
	})
}

// mergedBlockRecord 读取已有区块记录（可能由 Append 或中断的拆分写入产生）并合并本次的键
func (s *Store) mergedBlockRecord(tx storage.BadgerTransaction, block types.BlockMeta, prevHash chainhash.Hash, groups []keyGroup) (*blockRecord, error) {
	rec, err := loadBlockRecord(tx, block.Hash)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &blockRecord{}
	}
	rec.height = block.Height
	rec.timestamp = block.Timestamp
	rec.prevHash = prevHash
	for _, g := range groups {
		rec.addKey(g.key)
	}
	return rec, nil
}

// RemoveBlock 移除区块在所有键下的条目
//
// 区块不存在时返回 (0, nil)。若该区块是链尖，链尖回退到父区块。
func (s *Store) RemoveBlock(ctx context.Context, blockHash chainhash.Hash) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var removed int
	var rec *blockRecord
	err := s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		removed = 0
		var err error
		rec, err = loadBlockRecord(tx, blockHash)
		if err != nil || rec == nil {
			return err
		}
		for _, key := range rec.keys {
			n, err := s.removeFromKey(tx, key, blockHash, rec.height)
			if err != nil {
				return err
			}
			removed += n
		}
		return s.dropBlockRecord(tx, blockHash, rec)
	})
	if err == nil || !errors.Is(err, storage.ErrTxnTooBig) {
		return removed, err
	}

	if s.logger != nil {
		s.logger.Warnf("断开区块 %s 写入量过大，按脚本键拆分事务", blockHash)
	}
	return s.removeBlockSplit(ctx, blockHash, rec)
}

func (s *Store) removeBlockSplit(ctx context.Context, blockHash chainhash.Hash, rec *blockRecord) (int, error) {
	// 先取消完成标记，中断后 HasBlock 不会把半移除的区块当作已索引
	err := s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		rec.complete = false
		return tx.Set(blockKey(blockHash), encodeBlockRecord(rec))
	})
	if err != nil {
		return 0, fmt.Errorf("更新区块记录失败: %w", err)
	}

	removed := 0
	for _, key := range rec.keys {
		key := key
		err := s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
			n, err := s.removeFromKey(tx, key, blockHash, rec.height)
			if err == nil {
				removed += n
			}
			return err
		})
		if err != nil {
			return removed, fmt.Errorf("移除脚本键 %s 条目失败: %w", key, err)
		}
	}

	err = s.db.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		return s.dropBlockRecord(tx, blockHash, rec)
	})
	return removed, err
}

// dropBlockRecord 删除区块记录，必要时回退链尖
func (s *Store) dropBlockRecord(tx storage.BadgerTransaction, blockHash chainhash.Hash, rec *blockRecord) error {
	if err := tx.Delete(blockKey(blockHash)); err != nil {
		return err
	}

	tip, err := loadTip(tx)
	if err != nil {
		return err
	}
	if tip == nil || tip.Hash != blockHash {
		return nil
	}

	parent, err := loadBlockRecord(tx, rec.prevHash)
	if err != nil {
		return err
	}
	if parent == nil {
		return tx.Delete(keyTip)
	}
	return tx.Set(keyTip, encodeTip(parent.meta(rec.prevHash)))
}

// ==================== 读取 ====================

// HasBlock 区块是否已完整索引
func (s *Store) HasBlock(ctx context.Context, blockHash chainhash.Hash) (bool, error) {
	var found bool
	err := s.db.View(ctx, func(tx storage.BadgerTransaction) error {
		rec, err := loadBlockRecord(tx, blockHash)
		found = rec != nil && rec.complete
		return err
	})
	return found, err
}

// BlockKeys 区块记录中登记的脚本键
func (s *Store) BlockKeys(ctx context.Context, blockHash chainhash.Hash) ([]types.ScriptKey, error) {
	var keys []types.ScriptKey
	err := s.db.View(ctx, func(tx storage.BadgerTransaction) error {
		rec, err := loadBlockRecord(tx, blockHash)
		if rec != nil {
			keys = rec.keys
		}
		return err
	})
	return keys, err
}

// IndexedTip 已索引链尖
func (s *Store) IndexedTip(ctx context.Context) (*types.BlockMeta, error) {
	var tip *types.BlockMeta
	err := s.db.View(ctx, func(tx storage.BadgerTransaction) error {
		var err error
		tip, err = loadTip(tx)
		return err
	})
	return tip, err
}

// IncompleteBlocks 列出有区块记录但尚未完整索引的区块（按高度升序）
//
// 拆分事务中途失败或单独 Append 的条目会留下这类记录；重新投递同一区块即可补齐。
func (s *Store) IncompleteBlocks(ctx context.Context) ([]types.BlockMeta, error) {
	records, err := s.db.PrefixScan(ctx, prefixBlock)
	if err != nil {
		return nil, err
	}

	var out []types.BlockMeta
	for k, v := range records {
		rec, err := decodeBlockRecord(v)
		if err != nil {
			return nil, fmt.Errorf("解析区块记录 %x 失败: %w", k, err)
		}
		if rec.complete {
			continue
		}
		hash, err := chainhash.NewHash([]byte(k)[len(prefixBlock):])
		if err != nil {
			return nil, err
		}
		out = append(out, rec.meta(*hash))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Height != out[j].Height {
			return out[i].Height < out[j].Height
		}
		return bytes.Compare(out[i].Hash[:], out[j].Hash[:]) < 0
	})
	return out, nil
}

// Lookup 在一致性快照中读取某个键的历史
func (s *Store) Lookup(ctx context.Context, key types.ScriptKey, fn func(snap scripthistory.HistorySnapshot) error) error {
	return s.db.View(ctx, func(tx storage.BadgerTransaction) error {
		meta, err := loadMeta(tx, key)
		if err != nil {
			return err
		}
		if meta == nil {
			meta = &keyMeta{pageSize: s.pageSize}
		}
		return fn(&snapshot{tx: tx, key: key, meta: meta, cache: s.cache})
	})
}

// ==================== 键级改写 ====================

// insertEntries 把已排序的新条目合并进键的历史，返回实际新增数量
func (s *Store) insertEntries(tx storage.BadgerTransaction, key types.ScriptKey, incoming []types.HistoryEntry) (int, error) {
	if len(incoming) == 0 {
		return 0, nil
	}

	meta, err := loadMeta(tx, key)
	if err != nil {
		return 0, err
	}
	if meta == nil {
		meta = &keyMeta{pageSize: s.pageSize}
	}

	// 从最后一页向前回溯，直到分页首条目不大于最小的新条目
	first := incoming[0]
	var from uint32
	var suffix []types.HistoryEntry
	if meta.pages > 0 {
		from = meta.pages - 1
		if suffix, err = loadPage(tx, key, from); err != nil {
			return 0, err
		}
		for from > 0 && (len(suffix) == 0 || types.CompareEntries(suffix[0], first) > 0) {
			from--
			prev, err := loadPage(tx, key, from)
			if err != nil {
				return 0, err
			}
			suffix = append(prev, suffix...)
		}
	}

	merged, added := mergeEntries(suffix, incoming)
	if added == 0 {
		return 0, nil
	}
	return added, s.writeSuffix(tx, key, meta, from, merged)
}

// removeFromKey 移除键历史中属于该区块的条目，返回移除数量
func (s *Store) removeFromKey(tx storage.BadgerTransaction, key types.ScriptKey, blockHash chainhash.Hash, height uint32) (int, error) {
	meta, err := loadMeta(tx, key)
	if err != nil || meta == nil || meta.pages == 0 {
		return 0, err
	}

	// 回溯到首条目高度低于区块高度的分页，之前的分页不可能包含该区块
	from := meta.pages - 1
	suffix, err := loadPage(tx, key, from)
	if err != nil {
		return 0, err
	}
	for from > 0 && (len(suffix) == 0 || suffix[0].Block.Height >= height) {
		from--
		prev, err := loadPage(tx, key, from)
		if err != nil {
			return 0, err
		}
		suffix = append(prev, suffix...)
	}

	kept := make([]types.HistoryEntry, 0, len(suffix))
	for _, e := range suffix {
		if e.Block.Hash != blockHash {
			kept = append(kept, e)
		}
	}
	removed := len(suffix) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.writeSuffix(tx, key, meta, from, kept)
}

// writeSuffix 从第 from 页开始按分页大小重新切分写回，删除多余的尾页并更新元数据
//
// 调用方保证 from 之前的分页都是满页且未改变。
func (s *Store) writeSuffix(tx storage.BadgerTransaction, key types.ScriptKey, meta *keyMeta, from uint32, suffix []types.HistoryEntry) error {
	ps := int(meta.pageSize)
	newPages := from + uint32((len(suffix)+ps-1)/ps)

	for i := 0; i*ps < len(suffix); i++ {
		end := (i + 1) * ps
		if end > len(suffix) {
			end = len(suffix)
		}
		if err := tx.Set(pageKey(key, from+uint32(i)), encodePage(suffix[i*ps:end])); err != nil {
			return err
		}
	}
	for p := newPages; p < meta.pages; p++ {
		if err := tx.Delete(pageKey(key, p)); err != nil {
			return err
		}
	}

	total := uint64(from)*uint64(meta.pageSize) + uint64(len(suffix))
	if total > uint64(^uint32(0)) {
		return fmt.Errorf("脚本键 %s 历史条目数超出上限", key)
	}
	if total == 0 {
		return tx.Delete(metaKey(key))
	}

	meta.count = uint32(total)
	meta.pages = newPages
	meta.version = s.nextVersion(meta.version)
	return tx.Set(metaKey(key), encodeMeta(meta))
}

// mergeEntries 合并两个有序序列，跳过已存在的 (txid, block hash)
func mergeEntries(existing, incoming []types.HistoryEntry) ([]types.HistoryEntry, int) {
	fresh := make([]types.HistoryEntry, 0, len(incoming))
	for _, e := range incoming {
		if containsEvent(existing, e) || containsEvent(fresh, e) {
			continue
		}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return existing, 0
	}

	merged := make([]types.HistoryEntry, 0, len(existing)+len(fresh))
	i, j := 0, 0
	for i < len(existing) && j < len(fresh) {
		if types.CompareEntries(fresh[j], existing[i]) < 0 {
			merged = append(merged, fresh[j])
			j++
		} else {
			merged = append(merged, existing[i])
			i++
		}
	}
	merged = append(merged, existing[i:]...)
	merged = append(merged, fresh[j:]...)
	return merged, len(fresh)
}

// containsEvent 在按高度有序的序列中查找同一 (txid, block hash) 的条目
func containsEvent(sorted []types.HistoryEntry, e types.HistoryEntry) bool {
	h := e.Block.Height
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Block.Height >= h })
	for ; i < len(sorted) && sorted[i].Block.Height == h; i++ {
		if sorted[i].SameEvent(e) {
			return true
		}
	}
	return false
}

// keyGroup 同一脚本键在一个区块内的条目
type keyGroup struct {
	key     types.ScriptKey
	entries []types.HistoryEntry
}

// groupByKey 按键分组（保持键的首次出现顺序），组内按排序键排序
func groupByKey(block types.BlockMeta, items []types.KeyedEntry) ([]keyGroup, error) {
	index := make(map[string]int)
	var groups []keyGroup
	for _, it := range items {
		if it.Entry.Block.Hash != block.Hash {
			return nil, fmt.Errorf("条目区块 %s 与写入区块 %s 不一致", it.Entry.Block.Hash, block.Hash)
		}
		k := string(it.Key.Bytes())
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, keyGroup{key: it.Key})
		}
		groups[gi].entries = append(groups[gi].entries, it.Entry)
	}
	for i := range groups {
		entries := groups[i].entries
		sort.SliceStable(entries, func(a, b int) bool {
			return types.CompareEntries(entries[a], entries[b]) < 0
		})
	}
	return groups, nil
}

// ==================== 记录读取 ====================

func loadMeta(tx storage.BadgerTransaction, key types.ScriptKey) (*keyMeta, error) {
	data, err := tx.Get(metaKey(key))
	if err != nil || data == nil {
		return nil, err
	}
	return decodeMeta(data)
}

func loadPage(tx storage.BadgerTransaction, key types.ScriptKey, page uint32) ([]types.HistoryEntry, error) {
	data, err := tx.Get(pageKey(key, page))
	if err != nil || data == nil {
		return nil, err
	}
	return decodePage(data)
}

func loadBlockRecord(tx storage.BadgerTransaction, hash chainhash.Hash) (*blockRecord, error) {
	data, err := tx.Get(blockKey(hash))
	if err != nil || data == nil {
		return nil, err
	}
	return decodeBlockRecord(data)
}

func loadTip(tx storage.BadgerTransaction) (*types.BlockMeta, error) {
	data, err := tx.Get(keyTip)
	if err != nil || data == nil {
		return nil, err
	}
	return decodeTip(data)
}
