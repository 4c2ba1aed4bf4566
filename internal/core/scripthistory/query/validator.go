package query

import (
	"errors"
	"math"
	"strconv"

	"github.com/weisyn/scriptindex/pkg/types"
)

// 参数名，出现在错误消息中
const (
	ParamPage     = "page"
	ParamPageSize = "page_size"
)

// Bounds page_size 的闭区间
type Bounds struct {
	Min uint32
	Max uint32
}

// DefaultBounds 默认 page_size 范围 [1, 200]
var DefaultBounds = Bounds{Min: 1, Max: 200}

// Check 校验 page_size
func (b Bounds) Check(size uint32) error {
	if size < b.Min {
		return &types.QueryError{
			Code:      types.ErrCodePageSizeTooSmall,
			Requested: uint64(size),
			Bound:     uint64(b.Min),
		}
	}
	if size > b.Max {
		return &types.QueryError{
			Code:      types.ErrCodePageSizeTooBig,
			Requested: uint64(size),
			Bound:     uint64(b.Max),
		}
	}
	return nil
}

// ValidatePageSize 按默认范围校验 page_size
func ValidatePageSize(size uint32) error {
	return DefaultBounds.Check(size)
}

// ParseParam 把查询字符串中的参数解析为 32 位无符号整数
//
// 允许一个前导 '+'。空串与非数字返回 InvalidParam，超出 32 位返回 ParamOutOfRange。
func ParseParam(name, raw string) (uint32, error) {
	digits := raw
	if len(digits) > 1 && digits[0] == '+' {
		digits = digits[1:]
	}

	v, err := strconv.ParseUint(digits, 10, 32)
	if err == nil {
		return uint32(v), nil
	}

	qe := &types.QueryError{Code: types.ErrCodeInvalidParam, Param: name, Value: raw}
	switch {
	case errors.Is(err, strconv.ErrRange):
		qe.Code = types.ErrCodeParamOutOfRange
	case raw == "":
		qe.Reason = "cannot parse integer from empty string"
	default:
		qe.Reason = "invalid digit found in string"
	}
	return 0, qe
}

// narrowParam 把可选的 64 位参数收窄为 32 位，nil 时取默认值
func narrowParam(name string, v *uint64, def uint32) (uint32, error) {
	if v == nil {
		return def, nil
	}
	if *v > math.MaxUint32 {
		return 0, &types.QueryError{
			Code:  types.ErrCodeParamOutOfRange,
			Param: name,
			Value: strconv.FormatUint(*v, 10),
		}
	}
	return uint32(*v), nil
}

// RawParams 查询字符串中未解析的分页参数；nil 表示未提供
type RawParams struct {
	Page     *string
	PageSize *string
}

// parse 解析并扩展为 64 位可选值，交给 narrowParam 统一处理
func (p RawParams) parse() (page, pageSize *uint64, err error) {
	if page, err = parseOptional(ParamPage, p.Page); err != nil {
		return nil, nil, err
	}
	if pageSize, err = parseOptional(ParamPageSize, p.PageSize); err != nil {
		return nil, nil, err
	}
	return page, pageSize, nil
}

func parseOptional(name string, raw *string) (*uint64, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := ParseParam(name, *raw)
	if err != nil {
		return nil, err
	}
	wide := uint64(v)
	return &wide, nil
}
