package store

import (
	"context"

	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/scriptindex/pkg/types"
)

// snapshot 单个键在某个 badger 读事务中的视图
type snapshot struct {
	tx    storage.BadgerTransaction
	key   types.ScriptKey
	meta  *keyMeta
	cache *pageCache
}

func (s *snapshot) NumTxs() uint32 { return s.meta.count }

func (s *snapshot) InternalPageSize() uint32 { return s.meta.pageSize }

// ReadPage 读取内部分页；先查版本化缓存，未命中时从快照读取并回填
func (s *snapshot) ReadPage(ctx context.Context, i uint32) ([]types.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i >= s.meta.pages {
		return nil, nil
	}

	if s.cache != nil {
		if data, ok := s.cache.get(ctx, s.key, i, s.meta.version); ok {
			return decodePage(data)
		}
	}

	data, err := s.tx.Get(pageKey(s.key, i))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if s.cache != nil {
		s.cache.put(ctx, s.key, i, s.meta.version, data)
	}
	return decodePage(data)
}
