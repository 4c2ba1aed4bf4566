// Package scripthistory 定义脚本确认历史索引的公共接口
//
// 📋 **脚本历史索引 (Script History Index)**
//
// 索引把脚本键映射到按链顺序排列的确认交易列表：
//   - HistoryStore：持久化存储，按固定大小的内部分页保存条目
//   - ChainSync：消费区块连接/断开通知，维护存储与活动链一致
//   - QueryService：对外唯一的查询入口，校验参数后分页返回
//
// 索引只保存交易标识，交易体与区块头由外部存储持有。
package scripthistory

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/weisyn/scriptindex/pkg/types"
)

// HistorySnapshot 某个脚本键历史的一致性只读视图
//
// 快照生命周期内多次读取看到同一时刻的数据；快照只在 Lookup 回调内有效。
type HistorySnapshot interface {
	// NumTxs 条目总数
	NumTxs() uint32
	// InternalPageSize 内部分页大小
	InternalPageSize() uint32
	// ReadPage 读取第 i 个内部分页（从 0 开始）；越界返回空切片
	ReadPage(ctx context.Context, i uint32) ([]types.HistoryEntry, error)
}

// HistoryStore 脚本历史存储
type HistoryStore interface {
	// Append 按排序键插入单个条目；同一 (key, txid, block hash) 重复插入为空操作
	Append(ctx context.Context, key types.ScriptKey, entry types.HistoryEntry) error

	// ApplyBlock 写入一次区块连接产生的全部条目并推进已索引链尖
	ApplyBlock(ctx context.Context, block types.BlockMeta, prevHash chainhash.Hash, items []types.KeyedEntry) error

	// RemoveBlock 移除该区块在所有键下的条目，返回移除数量；区块不存在时为空操作
	RemoveBlock(ctx context.Context, blockHash chainhash.Hash) (int, error)

	// BlockKeys 区块涉及的脚本键；区块不存在时返回 nil
	BlockKeys(ctx context.Context, blockHash chainhash.Hash) ([]types.ScriptKey, error)

	// HasBlock 区块是否已被索引
	HasBlock(ctx context.Context, blockHash chainhash.Hash) (bool, error)

	// IndexedTip 已索引链尖；尚未索引任何区块时返回 nil
	IndexedTip(ctx context.Context) (*types.BlockMeta, error)

	// Lookup 在一致性快照中读取某个键的历史
	Lookup(ctx context.Context, key types.ScriptKey, fn func(snap HistorySnapshot) error) error
}

// ChainSync 链同步适配器
//
// 所有写方法由单个写者串行调用；任何存储或状态错误都会让适配器停止工作。
type ChainSync interface {
	// OnConnect 处理区块连接
	OnConnect(ctx context.Context, block *types.ConnectedBlock) error
	// OnDisconnect 处理区块断开
	OnDisconnect(ctx context.Context, blockHash chainhash.Hash) error
	// Reorg 先按链尖到分叉点的顺序断开，再按分叉点到新链尖的顺序连接
	Reorg(ctx context.Context, disconnect []chainhash.Hash, connect []*types.ConnectedBlock) error
	// CatchUp 从外部区块源补齐已索引链尖之后的区块
	CatchUp(ctx context.Context, src BlockSource) error
	// OnMempoolAdd 记录交易首次出现在内存池的时间
	OnMempoolAdd(txid chainhash.Hash, seenAt int64)
	// OnMempoolRemove 交易离开内存池（未被打包）
	OnMempoolRemove(txid chainhash.Hash)
}

// QueryService 确认历史查询服务
type QueryService interface {
	// ConfirmedHistory 查询某个脚本的确认交易历史
	ConfirmedHistory(ctx context.Context, q types.HistoryQuery) (*types.Page, error)
}

// BlockSource 外部区块存储（冷启动重建时使用）
type BlockSource interface {
	// TipHeight 当前活动链高度
	TipHeight(ctx context.Context) (uint32, error)
	// BlockAt 返回活动链上指定高度的区块
	BlockAt(ctx context.Context, height uint32) (*types.ConnectedBlock, error)
}

// PrevOutResolver 解析输入所花费的前序输出脚本
type PrevOutResolver interface {
	// PrevOutScript 返回前序输出的锁定脚本
	PrevOutScript(outpoint wire.OutPoint) ([]byte, error)
}
