package storage

import (
	"context"
	"time"
)

// MemoryStore 进程内字节缓存接口
type MemoryStore interface {
	// Get 获取缓存值；未命中时 exists 为 false
	Get(ctx context.Context, key string) (value []byte, exists bool, err error)

	// Set 设置缓存值；ttl 为 0 时使用存储的默认生命周期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除缓存值
	Delete(ctx context.Context, key string) error

	// Clear 清空缓存
	Clear(ctx context.Context) error

	// Count 返回当前条目数
	Count(ctx context.Context) (int64, error)

	// Close 释放缓存资源
	Close() error
}
