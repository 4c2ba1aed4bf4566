// Package types provides HTTP response type definitions.
package types

import (
	"github.com/weisyn/scriptindex/internal/api/format"
	coretypes "github.com/weisyn/scriptindex/pkg/types"
)

// HistoryBlock 条目所在区块
type HistoryBlock struct {
	Hash      string `json:"hash"`
	Height    uint32 `json:"height"`
	Timestamp int64  `json:"timestamp"`
}

// HistoryTx 单条确认历史
type HistoryTx struct {
	TxID          string       `json:"txid"`
	IsCoinbase    bool         `json:"is_coinbase"`
	Block         HistoryBlock `json:"block"`
	TxIndex       uint32       `json:"tx_index"`
	TimeFirstSeen int64        `json:"time_first_seen"`
}

// HistoryPageResponse 确认历史分页响应
type HistoryPageResponse struct {
	Txs      []HistoryTx `json:"txs"`
	NumPages uint32      `json:"num_pages"`
	NumTxs   uint32      `json:"num_txs"`
}

// NewHistoryPageResponse 由查询结果构造响应（哈希以显示序 hex 输出）
func NewHistoryPageResponse(page *coretypes.Page) *HistoryPageResponse {
	resp := &HistoryPageResponse{
		Txs:      make([]HistoryTx, 0, len(page.Entries)),
		NumPages: page.NumPages,
		NumTxs:   page.NumTxs,
	}
	for _, e := range page.Entries {
		resp.Txs = append(resp.Txs, HistoryTx{
			TxID:       format.HashToHex(e.Tx.TxID),
			IsCoinbase: e.Tx.IsCoinbase,
			Block: HistoryBlock{
				Hash:      format.HashToHex(e.Block.Hash),
				Height:    e.Block.Height,
				Timestamp: e.Block.Timestamp,
			},
			TxIndex:       e.TxIndex,
			TimeFirstSeen: e.FirstSeen,
		})
	}
	return resp
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status        string  `json:"status"` // healthy, halted, unhealthy
	Version       string  `json:"version"`
	Uptime        string  `json:"uptime"`
	Timestamp     string  `json:"timestamp"`
	IndexedHeight *uint32 `json:"indexed_height,omitempty"`
	IndexedHash   string  `json:"indexed_hash,omitempty"`
	Error         string  `json:"error,omitempty"`
}
