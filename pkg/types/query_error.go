package types

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// QueryErrorCode 查询输入错误分类
type QueryErrorCode string

const (
	ErrCodeInvalidScriptType    QueryErrorCode = "InvalidScriptType"
	ErrCodeInvalidHex           QueryErrorCode = "InvalidHex"
	ErrCodeInvalidPayloadLength QueryErrorCode = "InvalidPayloadLength"
	ErrCodePageSizeTooSmall     QueryErrorCode = "PageSizeTooSmall"
	ErrCodePageSizeTooBig       QueryErrorCode = "PageSizeTooBig"
	ErrCodeParamOutOfRange      QueryErrorCode = "ParamOutOfRange"
	ErrCodeInvalidParam         QueryErrorCode = "InvalidParam"
	ErrCodeInvalidAddress       QueryErrorCode = "InvalidAddress"
)

// QueryError 结构化查询错误
//
// 每种错误只携带渲染消息所需的数据，消息文本统一由 Error() 生成。
// 消息文本是对外契约的一部分，调用方依赖其精确措辞。
type QueryError struct {
	Code QueryErrorCode

	// InvalidScriptType
	Token string

	// InvalidHex：Char 为空字符时表示奇数长度
	Char rune
	Pos  int

	// InvalidPayloadLength
	ScriptType ScriptType
	Expected   []int
	Got        int

	// PageSizeTooSmall / PageSizeTooBig
	Requested uint64
	Bound     uint64

	// ParamOutOfRange / InvalidParam / InvalidAddress
	Param  string
	Value  string
	Reason string
}

// Error 渲染错误消息（不含状态码前缀）
func (e *QueryError) Error() string {
	switch e.Code {
	case ErrCodeInvalidScriptType:
		return "Unknown script type: " + e.Token
	case ErrCodeInvalidHex:
		if e.Char == 0 {
			return "Invalid hex: Odd number of digits"
		}
		return fmt.Sprintf("Invalid hex: Invalid character %q at position %d", e.Char, e.Pos)
	case ErrCodeInvalidPayloadLength:
		return fmt.Sprintf("Invalid payload for %s: Invalid length, expected %s but got %d bytes",
			e.ScriptType.DisplayName(), renderExpectedLengths(e.Expected), e.Got)
	case ErrCodePageSizeTooSmall:
		return fmt.Sprintf("Requested page size %d is too small, minimum is %d", e.Requested, e.Bound)
	case ErrCodePageSizeTooBig:
		return fmt.Sprintf("Requested page size %d is too big, maximum is %d", e.Requested, e.Bound)
	case ErrCodeParamOutOfRange:
		return fmt.Sprintf("Invalid param %s: %s, number too large to fit in target type", e.Param, e.Value)
	case ErrCodeInvalidParam:
		return fmt.Sprintf("Invalid param %s: %s, %s", e.Param, e.Value, e.Reason)
	case ErrCodeInvalidAddress:
		return fmt.Sprintf("Invalid address %s: %s", e.Value, e.Reason)
	default:
		return string(e.Code)
	}
}

// Status 返回错误的状态类（输入错误统一为 400）
func (e *QueryError) Status() int {
	return http.StatusBadRequest
}

func renderExpectedLengths(lengths []int) string {
	if len(lengths) == 1 {
		return strconv.Itoa(lengths[0]) + " bytes"
	}
	parts := make([]string, len(lengths))
	for i, l := range lengths {
		parts[i] = strconv.Itoa(l)
	}
	return "one of [" + strings.Join(parts, ", ") + "]"
}
