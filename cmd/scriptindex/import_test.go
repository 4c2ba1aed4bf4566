package main

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBlock(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, chaincfg.MainNetParams.GenesisBlock.Serialize(&buf))

	msg, err := decodeBlock(hex.EncodeToString(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, *chaincfg.MainNetParams.GenesisHash, msg.BlockHash())
	assert.Len(t, msg.Transactions, 1)
}

func TestDecodeBlockErrors(t *testing.T) {
	_, err := decodeBlock("zz")
	assert.ErrorContains(t, err, "十六进制解码失败")

	_, err = decodeBlock("0100")
	assert.ErrorContains(t, err, "反序列化区块失败")
}
