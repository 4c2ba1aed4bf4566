package format

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/weisyn/scriptindex/pkg/types"
)

// ContentTypeProtobuf 协议缓冲区响应类型
const ContentTypeProtobuf = "application/x-protobuf"

// 消息字段编号
//
//	TxHistoryPage { repeated Tx txs = 1; uint32 num_pages = 2; uint32 num_txs = 3; }
//	Tx            { bytes txid = 1; bool is_coinbase = 2; BlockMeta block = 3;
//	                int64 time_first_seen = 4; uint32 tx_index = 5; }
//	BlockMeta     { bytes hash = 1; int32 height = 2; int64 timestamp = 3; }
//	Error         { string msg = 1; }
const (
	fieldPageTxs      protowire.Number = 1
	fieldPageNumPages protowire.Number = 2
	fieldPageNumTxs   protowire.Number = 3

	fieldTxID        protowire.Number = 1
	fieldTxCoinbase  protowire.Number = 2
	fieldTxBlock     protowire.Number = 3
	fieldTxFirstSeen protowire.Number = 4
	fieldTxIndex     protowire.Number = 5

	fieldBlockHash      protowire.Number = 1
	fieldBlockHeight    protowire.Number = 2
	fieldBlockTimestamp protowire.Number = 3

	fieldErrorMsg protowire.Number = 1
)

var errMalformed = errors.New("malformed protobuf message")

// EncodePage 将分页结果编码为 TxHistoryPage（哈希为内部字节序）
func EncodePage(page *types.Page) []byte {
	var b []byte
	for _, e := range page.Entries {
		b = protowire.AppendTag(b, fieldPageTxs, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeEntry(e))
	}
	b = protowire.AppendTag(b, fieldPageNumPages, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(page.NumPages))
	b = protowire.AppendTag(b, fieldPageNumTxs, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(page.NumTxs))
	return b
}

// EncodeError 将错误消息编码为 Error
func EncodeError(msg string) []byte {
	b := protowire.AppendTag(nil, fieldErrorMsg, protowire.BytesType)
	return protowire.AppendString(b, msg)
}

func encodeEntry(e types.HistoryEntry) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTxID, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Tx.TxID[:])
	if e.Tx.IsCoinbase {
		b = protowire.AppendTag(b, fieldTxCoinbase, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}

	var blk []byte
	blk = protowire.AppendTag(blk, fieldBlockHash, protowire.BytesType)
	blk = protowire.AppendBytes(blk, e.Block.Hash[:])
	blk = protowire.AppendTag(blk, fieldBlockHeight, protowire.VarintType)
	blk = protowire.AppendVarint(blk, uint64(int64(int32(e.Block.Height))))
	blk = protowire.AppendTag(blk, fieldBlockTimestamp, protowire.VarintType)
	blk = protowire.AppendVarint(blk, uint64(e.Block.Timestamp))
	b = protowire.AppendTag(b, fieldTxBlock, protowire.BytesType)
	b = protowire.AppendBytes(b, blk)

	if e.FirstSeen != 0 {
		b = protowire.AppendTag(b, fieldTxFirstSeen, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.FirstSeen))
	}
	if e.TxIndex != 0 {
		b = protowire.AppendTag(b, fieldTxIndex, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.TxIndex))
	}
	return b
}

// DecodePage 解析 EncodePage 的输出；未知字段被跳过
func DecodePage(b []byte) (*types.Page, error) {
	page := &types.Page{Entries: []types.HistoryEntry{}}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, raw []byte, v uint64) error {
		switch {
		case num == fieldPageTxs && typ == protowire.BytesType:
			e, err := decodeEntry(raw)
			if err != nil {
				return err
			}
			page.Entries = append(page.Entries, e)
		case num == fieldPageNumPages && typ == protowire.VarintType:
			page.NumPages = uint32(v)
		case num == fieldPageNumTxs && typ == protowire.VarintType:
			page.NumTxs = uint32(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// DecodeError 解析 Error 消息
func DecodeError(b []byte) (string, error) {
	var msg string
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, raw []byte, _ uint64) error {
		if num == fieldErrorMsg && typ == protowire.BytesType {
			msg = string(raw)
		}
		return nil
	})
	return msg, err
}

func decodeEntry(b []byte) (types.HistoryEntry, error) {
	var e types.HistoryEntry
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, raw []byte, v uint64) error {
		switch {
		case num == fieldTxID && typ == protowire.BytesType:
			return setHash(&e.Tx.TxID, raw)
		case num == fieldTxCoinbase && typ == protowire.VarintType:
			e.Tx.IsCoinbase = v != 0
		case num == fieldTxBlock && typ == protowire.BytesType:
			return walkFields(raw, func(num protowire.Number, typ protowire.Type, raw []byte, v uint64) error {
				switch {
				case num == fieldBlockHash && typ == protowire.BytesType:
					return setHash(&e.Block.Hash, raw)
				case num == fieldBlockHeight && typ == protowire.VarintType:
					e.Block.Height = uint32(int32(v))
				case num == fieldBlockTimestamp && typ == protowire.VarintType:
					e.Block.Timestamp = int64(v)
				}
				return nil
			})
		case num == fieldTxFirstSeen && typ == protowire.VarintType:
			e.FirstSeen = int64(v)
		case num == fieldTxIndex && typ == protowire.VarintType:
			e.TxIndex = uint32(v)
		}
		return nil
	})
	return e, err
}

func setHash(dst *chainhash.Hash, raw []byte) error {
	if len(raw) != chainhash.HashSize {
		return fmt.Errorf("%w: hash length %d", errMalformed, len(raw))
	}
	copy(dst[:], raw)
	return nil
}

// walkFields 逐个读取字段；bytes 字段通过 raw 传入，varint 字段通过 v 传入
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, raw []byte, v uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		var (
			raw []byte
			v   uint64
		)
		switch typ {
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(num, typ, raw, v); err != nil {
			return err
		}
	}
	return nil
}
