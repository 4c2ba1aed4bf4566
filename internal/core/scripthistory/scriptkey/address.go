package scriptkey

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/weisyn/scriptindex/pkg/types"
)

// FromAddress 把 base58 地址解析为脚本键
//
// 支持 P2PKH、P2SH 与公钥地址；隔离见证地址不在索引的脚本类型内。
func FromAddress(addr string, params *chaincfg.Params) (types.ScriptKey, error) {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return types.ScriptKey{}, invalidAddress(addr, err.Error())
	}
	if !decoded.IsForNet(params) {
		return types.ScriptKey{}, invalidAddress(addr, "address is for a different network")
	}

	switch a := decoded.(type) {
	case *btcutil.AddressPubKeyHash:
		return types.NewScriptKey(types.ScriptTypeP2PKH, a.ScriptAddress()), nil
	case *btcutil.AddressScriptHash:
		return types.NewScriptKey(types.ScriptTypeP2SH, a.ScriptAddress()), nil
	case *btcutil.AddressPubKey:
		return types.NewScriptKey(types.ScriptTypeP2PK, a.ScriptAddress()), nil
	default:
		return types.ScriptKey{}, invalidAddress(addr, "unsupported address type")
	}
}

func invalidAddress(addr, reason string) error {
	return &types.QueryError{
		Code:   types.ErrCodeInvalidAddress,
		Value:  addr,
		Reason: reason,
	}
}
