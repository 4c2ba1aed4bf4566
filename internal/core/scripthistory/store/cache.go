package store

import (
	"context"
	"encoding/hex"
	"strconv"

	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/scriptindex/pkg/types"
)

// pageCache 以 (脚本键, 分页号, 版本) 寻址的分页缓存
//
// 键的每次改写都会产生新版本，同一地址的内容永不变化，
// 因此缓存无需失效，旧版本条目由内存存储按生命窗口回收。
// 缓存保存压缩后的分页原文。
type pageCache struct {
	mem storage.MemoryStore
}

func newPageCache(mem storage.MemoryStore) *pageCache {
	return &pageCache{mem: mem}
}

func cacheKey(key types.ScriptKey, page uint32, version uint64) string {
	return hex.EncodeToString(key.Bytes()) + "/" +
		strconv.FormatUint(uint64(page), 10) + "/" +
		strconv.FormatUint(version, 10)
}

func (c *pageCache) get(ctx context.Context, key types.ScriptKey, page uint32, version uint64) ([]byte, bool) {
	data, ok, err := c.mem.Get(ctx, cacheKey(key, page, version))
	if err != nil || !ok {
		return nil, false
	}
	return data, true
}

// put 写入失败只影响命中率，忽略错误
func (c *pageCache) put(ctx context.Context, key types.ScriptKey, page uint32, version uint64, data []byte) {
	_ = c.mem.Set(ctx, cacheKey(key, page, version), data, 0)
}
