package store

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/scriptindex/pkg/types"
)

func TestPageCodecPreservesEntries(t *testing.T) {
	entries := []types.HistoryEntry{
		{
			Tx:      types.TxRef{TxID: chainhash.DoubleHashH([]byte("cb")), IsCoinbase: true},
			Block:   types.BlockMeta{Hash: chainhash.DoubleHashH([]byte("b")), Height: 0, Timestamp: 1231006505},
			TxIndex: 0,
		},
		{
			Tx:        types.TxRef{TxID: chainhash.DoubleHashH([]byte("tx"))},
			Block:     types.BlockMeta{Hash: chainhash.DoubleHashH([]byte("b2")), Height: 1002, Timestamp: 1300001000},
			TxIndex:   7,
			FirstSeen: 1300000500,
		},
	}

	got, err := decodePage(encodePage(entries))
	require.NoError(t, err)
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Fatalf("分页解码结果不一致 (-want +got):\n%s", diff)
	}

	empty, err := decodePage(encodePage(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBlockRecordCodec(t *testing.T) {
	rec := &blockRecord{
		height:    101,
		timestamp: 1300000000,
		prevHash:  chainhash.DoubleHashH([]byte("parent")),
		complete:  true,
	}
	rec.addKey(types.NewScriptKey(types.ScriptTypeP2SH, make([]byte, 20)))
	rec.addKey(types.NewScriptKey(types.ScriptTypeOther, []byte{0x6a}))
	rec.addKey(types.NewScriptKey(types.ScriptTypeP2SH, make([]byte, 20)))
	require.Len(t, rec.keys, 2)

	got, err := decodeBlockRecord(encodeBlockRecord(rec))
	require.NoError(t, err)
	assert.Equal(t, rec.height, got.height)
	assert.Equal(t, rec.timestamp, got.timestamp)
	assert.Equal(t, rec.prevHash, got.prevHash)
	assert.True(t, got.complete)
	require.Len(t, got.keys, 2)
	assert.True(t, got.keys[1].Equal(rec.keys[1]))
}

func TestMetaAndTipCodec(t *testing.T) {
	m := &keyMeta{count: 1001, pages: 2, version: 1<<40 + 3, pageSize: 1000}
	got, err := decodeMeta(encodeMeta(m))
	require.NoError(t, err)
	assert.Equal(t, m, got)

	tip := types.BlockMeta{Hash: chainhash.DoubleHashH([]byte("tip")), Height: 5, Timestamp: 42}
	gotTip, err := decodeTip(encodeTip(tip))
	require.NoError(t, err)
	assert.Equal(t, tip, *gotTip)

	_, err = decodeMeta([]byte{0xff})
	assert.Error(t, err)
}

func TestPageKeysDoNotCollideAcrossPayloadLengths(t *testing.T) {
	a := types.NewScriptKey(types.ScriptTypeOther, []byte{0x01})
	b := types.NewScriptKey(types.ScriptTypeOther, []byte{0x01, 0x00, 0x00, 0x00, 0x00})
	assert.NotEqual(t, pageKey(a, 0), pageKey(b, 0)[:len(pageKey(a, 0))])
}
