package chainsync

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/wire"

	"github.com/weisyn/scriptindex/internal/core/scripthistory/scriptkey"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

// ErrPrevOutNotFound 前序输出无法解析
var ErrPrevOutNotFound = errors.New("previous output not found")

// FromWireBlock 把 btcd 区块转换为连接通知
//
// 首笔交易视为 coinbase。prevOuts 为 nil 时不解析花费方脚本；
// 花费同一区块内更早输出的输入直接由区块自身解析。
func FromWireBlock(msg *wire.MsgBlock, height uint32, prevOuts scripthistory.PrevOutResolver) (*types.ConnectedBlock, error) {
	if msg == nil {
		return nil, fmt.Errorf("区块为空")
	}

	block := &types.ConnectedBlock{
		Meta: types.BlockMeta{
			Hash:      msg.BlockHash(),
			Height:    height,
			Timestamp: msg.Header.Timestamp.Unix(),
		},
		PrevHash: msg.Header.PrevBlock,
		Txs:      make([]types.BlockTx, 0, len(msg.Transactions)),
	}

	local := make(map[wire.OutPoint][]byte)
	for i, tx := range msg.Transactions {
		txid := tx.TxHash()
		btx := types.BlockTx{TxID: txid, IsCoinbase: i == 0}

		if !btx.IsCoinbase && prevOuts != nil {
			for _, in := range tx.TxIn {
				script, ok := local[in.PreviousOutPoint]
				if !ok {
					var err error
					script, err = prevOuts.PrevOutScript(in.PreviousOutPoint)
					if err != nil {
						return nil, fmt.Errorf("解析交易 %s 的输入 %s 失败: %w", txid, in.PreviousOutPoint, err)
					}
				}
				if len(script) > 0 {
					btx.Spent = append(btx.Spent, scriptkey.FromScript(script))
				}
			}
		}

		for vout, out := range tx.TxOut {
			if len(out.PkScript) == 0 {
				continue
			}
			btx.Outputs = append(btx.Outputs, scriptkey.FromScript(out.PkScript))
			local[wire.OutPoint{Hash: txid, Index: uint32(vout)}] = out.PkScript
		}

		block.Txs = append(block.Txs, btx)
	}
	return block, nil
}

// PrevOutCache 进程内的未花费输出脚本集合
//
// 按链顺序喂入区块（AddBlock）后即可为后续区块解析前序输出，
// 用于离线导入等没有外部交易存储的场景。
type PrevOutCache struct {
	mu      sync.RWMutex
	scripts map[wire.OutPoint][]byte
}

var _ scripthistory.PrevOutResolver = (*PrevOutCache)(nil)

// NewPrevOutCache 创建空集合
func NewPrevOutCache() *PrevOutCache {
	return &PrevOutCache{scripts: make(map[wire.OutPoint][]byte)}
}

// PrevOutScript 实现 PrevOutResolver
func (c *PrevOutCache) PrevOutScript(outpoint wire.OutPoint) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	script, ok := c.scripts[outpoint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrevOutNotFound, outpoint)
	}
	return script, nil
}

// AddBlock 登记区块创建的输出并移除其花费的输出
func (c *PrevOutCache) AddBlock(msg *wire.MsgBlock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, tx := range msg.Transactions {
		if i > 0 {
			for _, in := range tx.TxIn {
				delete(c.scripts, in.PreviousOutPoint)
			}
		}
		txid := tx.TxHash()
		for vout, out := range tx.TxOut {
			c.scripts[wire.OutPoint{Hash: txid, Index: uint32(vout)}] = out.PkScript
		}
	}
}

// Len 集合大小
func (c *PrevOutCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scripts)
}
