package types

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxRef 交易引用（只保存标识，不持有交易体）
type TxRef struct {
	TxID       chainhash.Hash `json:"txid"`
	IsCoinbase bool           `json:"is_coinbase"`
}

// BlockMeta 确认区块元数据
type BlockMeta struct {
	Hash      chainhash.Hash `json:"hash"`
	Height    uint32         `json:"height"`
	Timestamp int64          `json:"timestamp"`
}

// HistoryEntry 脚本历史条目
//
// 排序键：(Block.Height, TxIndex, TxID 显示序)。
type HistoryEntry struct {
	Tx        TxRef     `json:"tx"`
	Block     BlockMeta `json:"block"`
	TxIndex   uint32    `json:"tx_index"`
	FirstSeen int64     `json:"time_first_seen"`
}

// KeyedEntry 一次连接事件中待写入某个脚本键的条目
type KeyedEntry struct {
	Key   ScriptKey
	Entry HistoryEntry
}

// Page 分页查询结果（派生值，不持久化）
type Page struct {
	Entries  []HistoryEntry `json:"txs"`
	NumPages uint32         `json:"num_pages"`
	NumTxs   uint32         `json:"num_txs"`
}

// SameEvent 判断两个条目是否来自同一 (txid, block) 组合，用于幂等判定
func (e HistoryEntry) SameEvent(other HistoryEntry) bool {
	return e.Tx.TxID == other.Tx.TxID && e.Block.Hash == other.Block.Hash
}

// CompareEntries 按排序键比较两个条目，返回 -1/0/1
func CompareEntries(a, b HistoryEntry) int {
	switch {
	case a.Block.Height < b.Block.Height:
		return -1
	case a.Block.Height > b.Block.Height:
		return 1
	case a.TxIndex < b.TxIndex:
		return -1
	case a.TxIndex > b.TxIndex:
		return 1
	}
	return CompareTxIDs(a.Tx.TxID, b.Tx.TxID)
}

// CompareTxIDs 按显示序（字节逆序，即十六进制字符串顺序）比较交易ID
func CompareTxIDs(a, b chainhash.Hash) int {
	for i := chainhash.HashSize - 1; i >= 0; i-- {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
