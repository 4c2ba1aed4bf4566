// Package storage 定义持久化与缓存存储接口
//
// 💾 **存储接口**
//
// - BadgerStore：有序键值存储，支持读写事务与一致性只读快照
// - MemoryStore：进程内字节缓存，按 TTL 过期
//
// 实现位于 internal/core/infrastructure/storage。
package storage

import (
	"context"
	"errors"
)

// ErrTxnTooBig 单个事务写入量超过存储引擎上限
//
// 调用方可以据此把一次写入拆分成多个较小的事务。
var ErrTxnTooBig = errors.New("transaction too big")

//=============================================================================
// BadgerStore 接口定义
//=============================================================================

// BadgerStore 定义了键值存储的应用接口
type BadgerStore interface {
	// Close 关闭存储，等待进行中的写入完成
	Close() error

	// Get 获取键值；键不存在时返回 (nil, nil)
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set 写入键值
	Set(ctx context.Context, key, value []byte) error

	// Delete 删除键
	Delete(ctx context.Context, key []byte) error

	// PrefixScan 返回所有以 prefix 开头的键值
	PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error)

	// RunInTransaction 在读写事务中执行 fn；fn 返回错误时事务回滚
	RunInTransaction(ctx context.Context, fn func(tx BadgerTransaction) error) error

	// View 在只读快照中执行 fn；快照内多次读取看到同一时刻的数据
	View(ctx context.Context, fn func(tx BadgerTransaction) error) error
}

// BadgerTransaction 事务内的键值操作
//
// 只读快照中调用写方法会返回错误。
type BadgerTransaction interface {
	// Get 获取键值；键不存在时返回 (nil, nil)
	Get(key []byte) ([]byte, error)

	// Set 写入键值
	Set(key, value []byte) error

	// Delete 删除键
	Delete(key []byte) error
}
