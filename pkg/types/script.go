package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// ScriptType 脚本类型
//
// 只包含索引可识别的类型；未知类型在构造 ScriptKey 之前就会被拒绝。
type ScriptType uint8

const (
	// ScriptTypeOther 任意脚本，payload 为原始脚本字节（长度不限）
	ScriptTypeOther ScriptType = iota
	// ScriptTypeP2PK 公钥脚本，payload 为 33 或 65 字节公钥
	ScriptTypeP2PK
	// ScriptTypeP2PKH 公钥哈希脚本，payload 为 20 字节哈希
	ScriptTypeP2PKH
	// ScriptTypeP2SH 脚本哈希脚本，payload 为 20 字节哈希
	ScriptTypeP2SH
)

var scriptTypeTokens = map[ScriptType]string{
	ScriptTypeOther: "other",
	ScriptTypeP2PK:  "p2pk",
	ScriptTypeP2PKH: "p2pkh",
	ScriptTypeP2SH:  "p2sh",
}

var scriptTypeNames = map[ScriptType]string{
	ScriptTypeOther: "OTHER",
	ScriptTypeP2PK:  "P2PK",
	ScriptTypeP2PKH: "P2PKH",
	ScriptTypeP2SH:  "P2SH",
}

// ParseScriptType 将请求中的类型标记解析为 ScriptType（大小写敏感）
func ParseScriptType(token string) (ScriptType, bool) {
	for t, tok := range scriptTypeTokens {
		if tok == token {
			return t, true
		}
	}
	return 0, false
}

// String 返回请求中使用的小写标记
func (t ScriptType) String() string {
	if tok, ok := scriptTypeTokens[t]; ok {
		return tok
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// DisplayName 返回错误消息中使用的大写名称
func (t ScriptType) DisplayName() string {
	if name, ok := scriptTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// PayloadLengths 返回该类型允许的 payload 长度；nil 表示不限长度
func (t ScriptType) PayloadLengths() []int {
	switch t {
	case ScriptTypeP2PK:
		return []int{33, 65}
	case ScriptTypeP2PKH, ScriptTypeP2SH:
		return []int{20}
	default:
		return nil
	}
}

// ScriptKey 脚本索引键
//
// 构造后视为不可变；Payload 不应被调用方修改。
type ScriptKey struct {
	Type    ScriptType
	Payload []byte
}

// NewScriptKey 构造脚本键（复制 payload）
func NewScriptKey(t ScriptType, payload []byte) ScriptKey {
	p := make([]byte, len(payload))
	copy(p, payload)
	return ScriptKey{Type: t, Payload: p}
}

// Bytes 返回规范化编码：type(1) || uvarint(len) || payload
//
// 长度前缀保证不同长度的 OTHER payload 之间不存在前缀关系。
func (k ScriptKey) Bytes() []byte {
	buf := make([]byte, 1+binary.MaxVarintLen64+len(k.Payload))
	buf[0] = byte(k.Type)
	n := binary.PutUvarint(buf[1:], uint64(len(k.Payload)))
	copy(buf[1+n:], k.Payload)
	return buf[:1+n+len(k.Payload)]
}

// ScriptKeyFromBytes 解析 Bytes 的输出
func ScriptKeyFromBytes(b []byte) (ScriptKey, error) {
	if len(b) < 2 {
		return ScriptKey{}, fmt.Errorf("script key too short: %d bytes", len(b))
	}
	l, n := binary.Uvarint(b[1:])
	if n <= 0 || uint64(len(b)-1-n) != l {
		return ScriptKey{}, fmt.Errorf("malformed script key length prefix")
	}
	return NewScriptKey(ScriptType(b[0]), b[1+n:]), nil
}

// Equal 比较两个脚本键
func (k ScriptKey) Equal(other ScriptKey) bool {
	return k.Type == other.Type && bytes.Equal(k.Payload, other.Payload)
}

// String 返回 "type:hex" 形式，用于日志与订阅匹配
func (k ScriptKey) String() string {
	return k.Type.String() + ":" + hex.EncodeToString(k.Payload)
}
