package chainsync

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lru "github.com/hashicorp/golang-lru"
)

// FirstSeenTracker 记录交易首次进入内存池的时间
//
// 容量有限，超出时淘汰最久未使用的交易；被淘汰的交易确认时首见时间按 0 处理。
type FirstSeenTracker struct {
	cache *lru.Cache
}

// NewFirstSeenTracker 创建首见时间追踪器
func NewFirstSeenTracker(size int) (*FirstSeenTracker, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &FirstSeenTracker{cache: cache}, nil
}

// Add 记录首见时间；已记录的交易保留最早的时间
func (t *FirstSeenTracker) Add(txid chainhash.Hash, seenAt int64) {
	t.cache.ContainsOrAdd(txid, seenAt)
}

// Remove 移除交易
func (t *FirstSeenTracker) Remove(txid chainhash.Hash) {
	t.cache.Remove(txid)
}

// FirstSeen 返回首见时间，未见过时为 0
func (t *FirstSeenTracker) FirstSeen(txid chainhash.Hash) int64 {
	v, ok := t.cache.Peek(txid)
	if !ok {
		return 0
	}
	return v.(int64)
}

// Len 当前追踪的交易数
func (t *FirstSeenTracker) Len() int {
	return t.cache.Len()
}
