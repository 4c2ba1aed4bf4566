package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/scriptindex/pkg/types"
)

func TestValidatePageSize(t *testing.T) {
	tests := []struct {
		size    uint32
		wantErr string
	}{
		{size: 0, wantErr: "Requested page size 0 is too small, minimum is 1"},
		{size: 1},
		{size: 25},
		{size: 200},
		{size: 201, wantErr: "Requested page size 201 is too big, maximum is 200"},
		{size: 4294967295, wantErr: "Requested page size 4294967295 is too big, maximum is 200"},
	}
	for _, tt := range tests {
		err := ValidatePageSize(tt.size)
		if tt.wantErr == "" {
			assert.NoError(t, err, "size %d", tt.size)
			continue
		}
		require.Error(t, err, "size %d", tt.size)
		assert.Equal(t, tt.wantErr, err.Error())
	}
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		name     string
		param    string
		raw      string
		want     uint32
		wantCode types.QueryErrorCode
		wantErr  string
	}{
		{name: "零", param: ParamPage, raw: "0", want: 0},
		{name: "上限", param: ParamPage, raw: "4294967295", want: 4294967295},
		{name: "前导加号", param: ParamPageSize, raw: "+25", want: 25},
		{name: "前导零", param: ParamPageSize, raw: "0007", want: 7},
		{
			name: "超出32位", param: ParamPageSize, raw: "4294967296",
			wantCode: types.ErrCodeParamOutOfRange,
			wantErr:  "Invalid param page_size: 4294967296, number too large to fit in target type",
		},
		{
			name: "page超出32位", param: ParamPage, raw: "4294967296",
			wantCode: types.ErrCodeParamOutOfRange,
			wantErr:  "Invalid param page: 4294967296, number too large to fit in target type",
		},
		{
			name: "非数字", param: ParamPage, raw: "x",
			wantCode: types.ErrCodeInvalidParam,
			wantErr:  "Invalid param page: x, invalid digit found in string",
		},
		{
			name: "负数", param: ParamPage, raw: "-1",
			wantCode: types.ErrCodeInvalidParam,
			wantErr:  "Invalid param page: -1, invalid digit found in string",
		},
		{
			name: "单独加号", param: ParamPage, raw: "+",
			wantCode: types.ErrCodeInvalidParam,
			wantErr:  "Invalid param page: +, invalid digit found in string",
		},
		{
			name: "空串", param: ParamPageSize, raw: "",
			wantCode: types.ErrCodeInvalidParam,
			wantErr:  "Invalid param page_size: , cannot parse integer from empty string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParam(tt.param, tt.raw)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var qe *types.QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.wantCode, qe.Code)
			assert.Equal(t, tt.wantErr, qe.Error())
			assert.Equal(t, 400, qe.Status())
		})
	}
}

func TestNarrowParam(t *testing.T) {
	v, err := narrowParam(ParamPage, nil, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)

	max := uint64(4294967295)
	v, err = narrowParam(ParamPage, &max, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), v)

	over := max + 1
	_, err = narrowParam(ParamPageSize, &over, 0)
	require.Error(t, err)
	assert.Equal(t, "Invalid param page_size: 4294967296, number too large to fit in target type", err.Error())
}
