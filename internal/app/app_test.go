package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/weisyn/scriptindex/internal/core/scripthistory/query"
	"github.com/weisyn/scriptindex/pkg/interfaces/scripthistory"
	"github.com/weisyn/scriptindex/pkg/types"
)

const genesisPubKey = "04678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6" +
	"bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5f"

func TestLoadExampleConfig(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "scriptindex.example.json"))
	require.NoError(t, err)
	require.NotNil(t, cfg.ScriptHistory)
	require.NotNil(t, cfg.API)
	assert.Equal(t, "mainnet", *cfg.ScriptHistory.Network)
	assert.Equal(t, uint32(25), *cfg.ScriptHistory.DefaultPageSize)
	assert.Equal(t, 28090, *cfg.API.HTTPPort)
}

func TestConfigPathEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"script_history":{"network":"regtest"}}`), 0o600))
	t.Setenv(ConfigPathEnv, path)

	assert.Equal(t, path, ConfigPath("ignored.json"))
	cfg, err := LoadConfig("ignored.json")
	require.NoError(t, err)
	assert.Equal(t, "regtest", *cfg.ScriptHistory.Network)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, &types.AppConfig{}, cfg)
}

func TestStartSeedsGenesis(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	dataRoot := t.TempDir()
	cfg := &types.AppConfig{
		Storage: &types.UserStorageConfig{DataRoot: &dataRoot},
	}

	var (
		service      *query.Service
		historyStore scripthistory.HistoryStore
	)
	running, err := Start(
		WithAppConfig(cfg),
		WithoutAPI(),
		WithFxOptions(fx.Populate(&service, &historyStore)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, running.Stop()) })

	ctx := context.Background()
	tip, err := historyStore.IndexedTip(ctx)
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, *chaincfg.MainNetParams.GenesisHash, tip.Hash)

	page, err := service.ConfirmedHistoryRequest(ctx, "p2pk", genesisPubKey, query.RawParams{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), page.NumTxs)
	assert.Equal(t, uint32(1), page.NumPages)
}

func TestStartReadOnlySkipsGenesis(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	dataRoot := t.TempDir()
	cfg := &types.AppConfig{
		Storage: &types.UserStorageConfig{DataRoot: &dataRoot},
	}

	var (
		service      *query.Service
		historyStore scripthistory.HistoryStore
	)
	running, err := Start(
		WithAppConfig(cfg),
		WithoutAPI(),
		WithReadOnly(),
		WithFxOptions(fx.Populate(&service, &historyStore)),
	)
	require.NoError(t, err)

	ctx := context.Background()
	tip, err := historyStore.IndexedTip(ctx)
	require.NoError(t, err)
	assert.Nil(t, tip)

	page, err := service.ConfirmedHistoryRequest(ctx, "p2pk", genesisPubKey, query.RawParams{})
	require.NoError(t, err)
	assert.Zero(t, page.NumTxs)
	require.NoError(t, running.Stop())

	// 调用方的配置保持不变
	assert.Nil(t, cfg.ScriptHistory)

	// 已有索引在只读模式下照常可查
	running, err = Start(WithAppConfig(cfg), WithoutAPI())
	require.NoError(t, err)
	require.NoError(t, running.Stop())

	running, err = Start(
		WithAppConfig(cfg),
		WithoutAPI(),
		WithReadOnly(),
		WithFxOptions(fx.Populate(&service)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, running.Stop()) })

	page, err = service.ConfirmedHistoryRequest(ctx, "p2pk", genesisPubKey, query.RawParams{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), page.NumTxs)
}

func TestApplyReadOnly(t *testing.T) {
	network := "regtest"
	indexGenesis := true
	cfg := &types.AppConfig{
		ScriptHistory: &types.UserScriptHistoryConfig{Network: &network, IndexGenesis: &indexGenesis},
	}

	o := newOptions(WithAppConfig(cfg), WithReadOnly())
	o.applyReadOnly()

	got := o.GetAppConfig().ScriptHistory
	require.NotNil(t, got)
	assert.False(t, *got.IndexGenesis)
	assert.Equal(t, "regtest", *got.Network)
	assert.True(t, *cfg.ScriptHistory.IndexGenesis)

	plain := newOptions(WithAppConfig(cfg))
	plain.applyReadOnly()
	assert.Same(t, cfg, plain.GetAppConfig())
}
