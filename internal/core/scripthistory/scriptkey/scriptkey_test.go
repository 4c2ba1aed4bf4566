package scriptkey

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/scriptindex/pkg/types"
)

const genesisPubKeyHex = "04678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6" +
	"bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5f"

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name       string
		scriptType string
		payload    string
		code       types.QueryErrorCode
		message    string
	}{
		{"空类型", "", "", types.ErrCodeInvalidScriptType, "Unknown script type: "},
		{"未知类型", "foo", "", types.ErrCodeInvalidScriptType, "Unknown script type: foo"},
		{"大小写敏感", "P2PKH", "", types.ErrCodeInvalidScriptType, "Unknown script type: P2PKH"},
		{"非法字符", "p2pkh", "LILALI", types.ErrCodeInvalidHex, "Invalid hex: Invalid character 'L' at position 0"},
		{"other也校验十六进制", "other", "LILALI", types.ErrCodeInvalidHex, "Invalid hex: Invalid character 'L' at position 0"},
		{"非法字符在低半字节", "other", "aZ", types.ErrCodeInvalidHex, "Invalid hex: Invalid character 'Z' at position 1"},
		{"奇数长度", "other", "abc", types.ErrCodeInvalidHex, "Invalid hex: Odd number of digits"},
		{"类型先于十六进制", "foo", "LILALI", types.ErrCodeInvalidScriptType, "Unknown script type: foo"},
		{"p2pkh空", "p2pkh", "", types.ErrCodeInvalidPayloadLength, "Invalid payload for P2PKH: Invalid length, expected 20 bytes but got 0 bytes"},
		{"p2pkh一字节", "p2pkh", "aA", types.ErrCodeInvalidPayloadLength, "Invalid payload for P2PKH: Invalid length, expected 20 bytes but got 1 bytes"},
		{"p2sh两字节", "p2sh", "aaBB", types.ErrCodeInvalidPayloadLength, "Invalid payload for P2SH: Invalid length, expected 20 bytes but got 2 bytes"},
		{"p2pk三字节", "p2pk", "aaBBcc", types.ErrCodeInvalidPayloadLength, "Invalid payload for P2PK: Invalid length, expected one of [33, 65] but got 3 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.scriptType, tt.payload)
			require.Error(t, err)

			var qe *types.QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.code, qe.Code)
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, 400, qe.Status())
		})
	}
}

func TestNormalizeSuccess(t *testing.T) {
	key, err := Normalize("p2pk", genesisPubKeyHex)
	require.NoError(t, err)
	assert.Equal(t, types.ScriptTypeP2PK, key.Type)
	assert.Len(t, key.Payload, 65)

	key, err = Normalize("p2pkh", strings.Repeat("AB", 20))
	require.NoError(t, err)
	assert.Equal(t, types.ScriptTypeP2PKH, key.Type)
	assert.Equal(t, byte(0xab), key.Payload[19])

	compressed := "02" + strings.Repeat("11", 32)
	key, err = Normalize("p2pk", compressed)
	require.NoError(t, err)
	assert.Len(t, key.Payload, 33)

	// other 不限长度，包括空脚本
	key, err = Normalize("other", "")
	require.NoError(t, err)
	assert.Equal(t, types.ScriptTypeOther, key.Type)
	assert.Empty(t, key.Payload)
}

func TestFromScript(t *testing.T) {
	pk, err := hex.DecodeString(genesisPubKeyHex)
	require.NoError(t, err)
	hash := btcutil.Hash160(pk)

	p2pkScript := append(append([]byte{txscript.OP_DATA_65}, pk...), txscript.OP_CHECKSIG)
	key := FromScript(p2pkScript)
	assert.Equal(t, types.ScriptTypeP2PK, key.Type)
	assert.Equal(t, pk, key.Payload)

	pkhAddr, err := btcutil.NewAddressPubKeyHash(hash, &chaincfg.MainNetParams)
	require.NoError(t, err)
	p2pkhScript, err := txscript.PayToAddrScript(pkhAddr)
	require.NoError(t, err)
	key = FromScript(p2pkhScript)
	assert.Equal(t, types.ScriptTypeP2PKH, key.Type)
	assert.Equal(t, hash, key.Payload)

	shAddr, err := btcutil.NewAddressScriptHashFromHash(hash, &chaincfg.MainNetParams)
	require.NoError(t, err)
	p2shScript, err := txscript.PayToAddrScript(shAddr)
	require.NoError(t, err)
	key = FromScript(p2shScript)
	assert.Equal(t, types.ScriptTypeP2SH, key.Type)
	assert.Equal(t, hash, key.Payload)

	opReturn := []byte{txscript.OP_RETURN, 0x01, 0x02}
	key = FromScript(opReturn)
	assert.Equal(t, types.ScriptTypeOther, key.Type)
	assert.Equal(t, opReturn, key.Payload)
}

func TestFromAddress(t *testing.T) {
	// 创世块 coinbase 公钥对应的 P2PKH 地址
	key, err := FromAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", &chaincfg.MainNetParams)
	require.NoError(t, err)
	assert.Equal(t, types.ScriptTypeP2PKH, key.Type)
	assert.Equal(t, "62e907b15cbf27d5425399ebf6f0fb50ebb88f18", hex.EncodeToString(key.Payload))

	hash := make([]byte, 20)
	hash[0] = 0x42
	shAddr, err := btcutil.NewAddressScriptHashFromHash(hash, &chaincfg.MainNetParams)
	require.NoError(t, err)
	key, err = FromAddress(shAddr.EncodeAddress(), &chaincfg.MainNetParams)
	require.NoError(t, err)
	assert.Equal(t, types.ScriptTypeP2SH, key.Type)
	assert.Equal(t, hash, key.Payload)

	_, err = FromAddress("not-an-address", &chaincfg.MainNetParams)
	var qe *types.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, types.ErrCodeInvalidAddress, qe.Code)

	// 主网地址不能用于测试网
	_, err = FromAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", &chaincfg.TestNet3Params)
	require.Error(t, err)
}
