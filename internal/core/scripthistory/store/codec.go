package store

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/weisyn/scriptindex/pkg/types"
)

// 记录体使用 protobuf wire 格式手工编码，字段号见各 encode 函数。
// 分页与区块记录再经 snappy 压缩；元数据与链尖记录很小，不压缩。

// keyMeta 脚本键元数据
type keyMeta struct {
	count    uint32 // 条目总数
	pages    uint32 // 分页数（除最后一页外均为满页）
	version  uint64 // 每次改写递增，用于分页缓存寻址
	pageSize uint32 // 该键创建时的内部分页大小
}

// blockRecord 区块记录
type blockRecord struct {
	height    uint32
	timestamp int64
	prevHash  chainhash.Hash
	keys      []types.ScriptKey
	// complete 区块的全部条目均已写入
	complete bool
}

func (r *blockRecord) meta(hash chainhash.Hash) types.BlockMeta {
	return types.BlockMeta{Hash: hash, Height: r.height, Timestamp: r.timestamp}
}

// addKey 追加未出现过的键
func (r *blockRecord) addKey(key types.ScriptKey) {
	for _, k := range r.keys {
		if k.Equal(key) {
			return
		}
	}
	r.keys = append(r.keys, key)
}

// fieldFunc 处理单个字段，返回消费的字节数（负数为解析错误）
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walkFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("字段类型错误: 期望varint, 实际%d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = v
	}
	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("字段类型错误: 期望bytes, 实际%d", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = v
	}
	return n, nil
}

func consumeHash(typ protowire.Type, b []byte, dst *chainhash.Hash) (int, error) {
	var raw []byte
	n, err := consumeBytes(typ, b, &raw)
	if err != nil || n < 0 {
		return n, err
	}
	if len(raw) != chainhash.HashSize {
		return 0, fmt.Errorf("哈希长度错误: %d", len(raw))
	}
	copy(dst[:], raw)
	return n, nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// ==================== 元数据 ====================

func encodeMeta(m *keyMeta) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.count))
	b = appendVarintField(b, 2, uint64(m.pages))
	b = appendVarintField(b, 3, m.version)
	b = appendVarintField(b, 4, uint64(m.pageSize))
	return b
}

func decodeMeta(data []byte) (*keyMeta, error) {
	var count, pages, version, pageSize uint64
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, &count)
		case 2:
			return consumeVarint(typ, b, &pages)
		case 3:
			return consumeVarint(typ, b, &version)
		case 4:
			return consumeVarint(typ, b, &pageSize)
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("解码键元数据失败: %w", err)
	}
	if pageSize == 0 {
		return nil, fmt.Errorf("解码键元数据失败: 分页大小为0")
	}
	return &keyMeta{
		count:    uint32(count),
		pages:    uint32(pages),
		version:  version,
		pageSize: uint32(pageSize),
	}, nil
}

// ==================== 分页 ====================

func appendEntry(b []byte, e *types.HistoryEntry) []byte {
	b = appendBytesField(b, 1, e.Tx.TxID[:])
	if e.Tx.IsCoinbase {
		b = appendVarintField(b, 2, protowire.EncodeBool(true))
	}
	b = appendBytesField(b, 3, e.Block.Hash[:])
	b = appendVarintField(b, 4, uint64(e.Block.Height))
	b = appendVarintField(b, 5, uint64(e.Block.Timestamp))
	b = appendVarintField(b, 6, uint64(e.TxIndex))
	if e.FirstSeen != 0 {
		b = appendVarintField(b, 7, uint64(e.FirstSeen))
	}
	return b
}

func decodeEntry(data []byte) (types.HistoryEntry, error) {
	var e types.HistoryEntry
	var coinbase, height, timestamp, txIndex, firstSeen uint64
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeHash(typ, b, &e.Tx.TxID)
		case 2:
			return consumeVarint(typ, b, &coinbase)
		case 3:
			return consumeHash(typ, b, &e.Block.Hash)
		case 4:
			return consumeVarint(typ, b, &height)
		case 5:
			return consumeVarint(typ, b, &timestamp)
		case 6:
			return consumeVarint(typ, b, &txIndex)
		case 7:
			return consumeVarint(typ, b, &firstSeen)
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return types.HistoryEntry{}, err
	}
	e.Tx.IsCoinbase = protowire.DecodeBool(coinbase)
	e.Block.Height = uint32(height)
	e.Block.Timestamp = int64(timestamp)
	e.TxIndex = uint32(txIndex)
	e.FirstSeen = int64(firstSeen)
	return e, nil
}

func encodePage(entries []types.HistoryEntry) []byte {
	var b, scratch []byte
	for i := range entries {
		scratch = appendEntry(scratch[:0], &entries[i])
		b = appendBytesField(b, 1, scratch)
	}
	return snappy.Encode(nil, b)
}

func decodePage(data []byte) ([]types.HistoryEntry, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("解压分页失败: %w", err)
	}

	var entries []types.HistoryEntry
	err = walkFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		var body []byte
		n, err := consumeBytes(typ, b, &body)
		if err != nil || n < 0 {
			return n, err
		}
		e, err := decodeEntry(body)
		if err != nil {
			return 0, err
		}
		entries = append(entries, e)
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("解码分页失败: %w", err)
	}
	return entries, nil
}

// ==================== 区块记录 ====================

func encodeBlockRecord(r *blockRecord) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(r.height))
	b = appendVarintField(b, 2, uint64(r.timestamp))
	b = appendBytesField(b, 3, r.prevHash[:])
	for _, k := range r.keys {
		b = appendBytesField(b, 4, k.Bytes())
	}
	b = appendVarintField(b, 5, protowire.EncodeBool(r.complete))
	return snappy.Encode(nil, b)
}

func decodeBlockRecord(data []byte) (*blockRecord, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("解压区块记录失败: %w", err)
	}

	r := &blockRecord{}
	var height, timestamp, complete uint64
	err = walkFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, &height)
		case 2:
			return consumeVarint(typ, b, &timestamp)
		case 3:
			return consumeHash(typ, b, &r.prevHash)
		case 4:
			var kb []byte
			n, err := consumeBytes(typ, b, &kb)
			if err != nil || n < 0 {
				return n, err
			}
			key, err := types.ScriptKeyFromBytes(kb)
			if err != nil {
				return 0, err
			}
			r.keys = append(r.keys, key)
			return n, nil
		case 5:
			return consumeVarint(typ, b, &complete)
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("解码区块记录失败: %w", err)
	}
	r.height = uint32(height)
	r.timestamp = int64(timestamp)
	r.complete = protowire.DecodeBool(complete)
	return r, nil
}

// ==================== 链尖 ====================

func encodeTip(m types.BlockMeta) []byte {
	var b []byte
	b = appendBytesField(b, 1, m.Hash[:])
	b = appendVarintField(b, 2, uint64(m.Height))
	b = appendVarintField(b, 3, uint64(m.Timestamp))
	return b
}

func decodeTip(data []byte) (*types.BlockMeta, error) {
	m := &types.BlockMeta{}
	var height, timestamp uint64
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeHash(typ, b, &m.Hash)
		case 2:
			return consumeVarint(typ, b, &height)
		case 3:
			return consumeVarint(typ, b, &timestamp)
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("解码链尖记录失败: %w", err)
	}
	m.Height = uint32(height)
	m.Timestamp = int64(timestamp)
	return m, nil
}
