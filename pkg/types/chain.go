package types

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ConnectedBlock 验证引擎推送的区块连接通知
//
// Txs 必须按区块内顺序排列（coinbase 在首位）。
type ConnectedBlock struct {
	Meta     BlockMeta
	PrevHash chainhash.Hash
	Txs      []BlockTx
}

// BlockTx 区块内交易的脚本视图
//
// 脚本分类由交易存储完成，索引只消费分类结果。
type BlockTx struct {
	TxID       chainhash.Hash
	IsCoinbase bool
	// Outputs 交易输出引用的脚本
	Outputs []ScriptKey
	// Spent 交易输入所花费的前序输出脚本（coinbase 为空）
	Spent []ScriptKey
}

// BlockEvent 索引变更后发布到事件总线的通知
type BlockEvent struct {
	Block   BlockMeta
	Keys    []ScriptKey
	Entries int
}

const (
	// EventTypeBlockConnected 区块条目已写入索引
	EventTypeBlockConnected = "scripthistory.block_connected"
	// EventTypeBlockDisconnected 区块条目已从索引移除
	EventTypeBlockDisconnected = "scripthistory.block_disconnected"
)
