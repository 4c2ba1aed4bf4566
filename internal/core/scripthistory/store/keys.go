package store

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/weisyn/scriptindex/pkg/types"
)

// 存储键布局（badger）：
//
//	sh/m/<scriptkey>          键元数据：条目数、分页数、版本、分页大小
//	sh/p/<scriptkey><u32 BE>  内部分页
//	sh/b/<block hash>         区块记录：高度、时间、父哈希、涉及的脚本键
//	sh/tip                    已索引链尖
//
// scriptkey 采用 ScriptKey.Bytes() 的长度前缀编码，分页后缀不会与其他键混淆。
var (
	prefixMeta  = []byte("sh/m/")
	prefixPage  = []byte("sh/p/")
	prefixBlock = []byte("sh/b/")
	keyTip      = []byte("sh/tip")
)

func metaKey(key types.ScriptKey) []byte {
	kb := key.Bytes()
	out := make([]byte, 0, len(prefixMeta)+len(kb))
	out = append(out, prefixMeta...)
	return append(out, kb...)
}

func pageKey(key types.ScriptKey, page uint32) []byte {
	kb := key.Bytes()
	out := make([]byte, 0, len(prefixPage)+len(kb)+4)
	out = append(out, prefixPage...)
	out = append(out, kb...)
	return binary.BigEndian.AppendUint32(out, page)
}

func blockKey(hash chainhash.Hash) []byte {
	out := make([]byte, 0, len(prefixBlock)+chainhash.HashSize)
	out = append(out, prefixBlock...)
	return append(out, hash[:]...)
}
