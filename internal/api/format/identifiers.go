// Package format 提供 API 层的标识符格式化与响应编码工具
//
// 标识符表示约定：
//   - 哈希类标识：64 位小写 hex，显示序（字节逆序），不带 0x 前缀
//   - 脚本键：type:hex 形式，与查询路径一致
package format

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/weisyn/scriptindex/pkg/types"
)

// HashToHex 将哈希转换为显示序 hex 字符串
//
// 适用于：TxID、区块哈希
func HashToHex(hash chainhash.Hash) string {
	return hash.String()
}

// HexToHash 解析显示序 hex 字符串
func HexToHash(s string) (chainhash.Hash, error) {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return *h, nil
}

// ScriptKeyToString 将脚本键格式化为 type:hex
func ScriptKeyToString(key types.ScriptKey) string {
	return key.String()
}

// SplitScriptKey 拆分 type:hex 形式的脚本标识
//
// 只做语法拆分，类型与 payload 的校验由查询层完成。
func SplitScriptKey(s string) (scriptType, payloadHex string, err error) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", "", fmt.Errorf("脚本标识格式应为 type:hex: %q", s)
	}
	return s[:i], s[i+1:], nil
}
