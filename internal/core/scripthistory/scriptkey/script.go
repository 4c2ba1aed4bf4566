package scriptkey

import (
	"github.com/btcsuite/btcd/txscript"

	"github.com/weisyn/scriptindex/pkg/types"
)

// FromScript 把输出锁定脚本归类为脚本键
//
// 标准 P2PK/P2PKH/P2SH 取出公钥或哈希作为 payload，其余脚本归为 OTHER，
// payload 为原始脚本。
func FromScript(pkScript []byte) types.ScriptKey {
	switch txscript.GetScriptClass(pkScript) {
	case txscript.PubKeyTy:
		// OP_DATA_33|65 <pubkey> OP_CHECKSIG
		return types.NewScriptKey(types.ScriptTypeP2PK, pkScript[1:len(pkScript)-1])
	case txscript.PubKeyHashTy:
		// OP_DUP OP_HASH160 OP_DATA_20 <hash> OP_EQUALVERIFY OP_CHECKSIG
		return types.NewScriptKey(types.ScriptTypeP2PKH, pkScript[3:23])
	case txscript.ScriptHashTy:
		// OP_HASH160 OP_DATA_20 <hash> OP_EQUAL
		return types.NewScriptKey(types.ScriptTypeP2SH, pkScript[2:22])
	default:
		return types.NewScriptKey(types.ScriptTypeOther, pkScript)
	}
}
