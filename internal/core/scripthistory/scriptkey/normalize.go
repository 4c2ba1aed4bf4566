// Package scriptkey 把请求中的脚本类型与十六进制 payload 规范化为索引键
package scriptkey

import (
	"github.com/weisyn/scriptindex/pkg/types"
)

// Normalize 校验并构造脚本键
//
// 校验顺序：类型 → 十六进制 → 长度。任一失败返回 *types.QueryError。
func Normalize(scriptType, payloadHex string) (types.ScriptKey, error) {
	t, ok := types.ParseScriptType(scriptType)
	if !ok {
		return types.ScriptKey{}, &types.QueryError{
			Code:  types.ErrCodeInvalidScriptType,
			Token: scriptType,
		}
	}

	payload, err := decodeHex(payloadHex)
	if err != nil {
		return types.ScriptKey{}, err
	}

	if err := checkLength(t, len(payload)); err != nil {
		return types.ScriptKey{}, err
	}

	return types.ScriptKey{Type: t, Payload: payload}, nil
}

// decodeHex 解码十六进制字符串（大小写均可）
//
// 奇数长度优先于非法字符报告；非法字符按字节位置报告第一个。
func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, &types.QueryError{Code: types.ErrCodeInvalidHex}
	}

	out := make([]byte, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		hi, ok := fromHexChar(s[i])
		if !ok {
			return nil, invalidHexChar(s[i], i)
		}
		lo, ok := fromHexChar(s[i+1])
		if !ok {
			return nil, invalidHexChar(s[i+1], i+1)
		}
		out[i/2] = hi<<4 | lo
	}
	return out, nil
}

func invalidHexChar(c byte, pos int) error {
	return &types.QueryError{
		Code: types.ErrCodeInvalidHex,
		Char: rune(c),
		Pos:  pos,
	}
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// checkLength 检查 payload 长度是否符合类型要求
func checkLength(t types.ScriptType, got int) error {
	allowed := t.PayloadLengths()
	if allowed == nil {
		return nil
	}
	for _, l := range allowed {
		if l == got {
			return nil
		}
	}
	return &types.QueryError{
		Code:       types.ErrCodeInvalidPayloadLength,
		ScriptType: t,
		Expected:   allowed,
		Got:        got,
	}
}
