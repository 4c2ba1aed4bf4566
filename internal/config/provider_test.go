package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/scriptindex/pkg/types"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func u32Ptr(v uint32) *uint32 { return &v }

// TestGetScriptHistory 测试脚本历史配置的默认值与覆盖
func TestGetScriptHistory(t *testing.T) {
	t.Run("未配置时使用默认值", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{})
		opts := provider.GetScriptHistory()
		assert.Equal(t, uint32(1000), opts.InternalPageSize)
		assert.Equal(t, uint32(25), opts.DefaultPageSize)
		assert.Equal(t, uint32(1), opts.MinPageSize)
		assert.Equal(t, uint32(200), opts.MaxPageSize)
		assert.True(t, opts.IndexSpends)
		assert.Equal(t, "mainnet", opts.Network)
	})

	t.Run("nil 配置等同于默认值", func(t *testing.T) {
		provider := NewProvider(nil)
		assert.Equal(t, uint32(25), provider.GetScriptHistory().DefaultPageSize)
	})

	t.Run("用户覆盖生效", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{
			ScriptHistory: &types.UserScriptHistoryConfig{
				InternalPageSize: u32Ptr(7),
				DefaultPageSize:  u32Ptr(50),
				IndexSpends:      boolPtr(false),
				Network:          strPtr("regtest"),
			},
		})
		opts := provider.GetScriptHistory()
		assert.Equal(t, uint32(7), opts.InternalPageSize)
		assert.Equal(t, uint32(50), opts.DefaultPageSize)
		assert.False(t, opts.IndexSpends)
		assert.Equal(t, "regtest", opts.Network)
	})

	t.Run("内部分页为 0 时保留默认值", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{
			ScriptHistory: &types.UserScriptHistoryConfig{InternalPageSize: u32Ptr(0)},
		})
		assert.Equal(t, uint32(1000), provider.GetScriptHistory().InternalPageSize)
	})
}

// TestGetBadger 测试存储路径推导
func TestGetBadger(t *testing.T) {
	t.Run("data_root 下使用 badger 子目录", func(t *testing.T) {
		root := t.TempDir()
		provider := NewProvider(&types.AppConfig{
			Storage: &types.UserStorageConfig{DataRoot: strPtr(root)},
		})
		assert.Equal(t, filepath.Join(root, "badger"), provider.GetBadger().Path)
	})

	t.Run("内存模式", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{
			Storage: &types.UserStorageConfig{InMemory: boolPtr(true)},
		})
		assert.True(t, provider.GetBadger().InMemory)
	})
}

// TestGetLog 测试日志配置覆盖
func TestGetLog(t *testing.T) {
	provider := NewProvider(&types.AppConfig{
		Log: &types.UserLogConfig{Level: strPtr("debug"), FilePath: strPtr("/tmp/x.log")},
	})
	opts := provider.GetLog()
	assert.Equal(t, "debug", opts.Level)
	assert.Equal(t, "/tmp/x.log", opts.FilePath)
	assert.False(t, opts.ToConsole, "指定文件路径时默认不输出到控制台")
}

// TestLoadAppConfig 测试配置文件加载
func TestLoadAppConfig(t *testing.T) {
	t.Run("空路径返回空配置", func(t *testing.T) {
		cfg, err := LoadAppConfig("")
		require.NoError(t, err)
		assert.Nil(t, cfg.ScriptHistory)
	})

	t.Run("解析 JSON 文件", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"api": {"http_port": 9999},
			"script_history": {"default_page_size": 10, "network": "testnet3"}
		}`), 0o600))

		cfg, err := LoadAppConfig(path)
		require.NoError(t, err)

		provider := NewProvider(cfg)
		assert.Equal(t, 9999, provider.GetAPI().HTTP.Port)
		assert.Equal(t, uint32(10), provider.GetScriptHistory().DefaultPageSize)
		assert.Equal(t, "testnet3", provider.GetScriptHistory().Network)
	})

	t.Run("文件不存在返回错误", func(t *testing.T) {
		_, err := LoadAppConfig(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("非法 JSON 返回错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
		_, err := LoadAppConfig(path)
		assert.Error(t, err)
	})
}

// TestProvideConfigServices_RejectsInvalidPageBounds 测试启动前的配置校验
func TestProvideConfigServices_RejectsInvalidPageBounds(t *testing.T) {
	opts := appOptions{cfg: &types.AppConfig{
		ScriptHistory: &types.UserScriptHistoryConfig{DefaultPageSize: u32Ptr(500)},
	}}
	_, err := ProvideConfigServices(ConfigParams{AppOptions: opts})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_page_size")
}

type appOptions struct{ cfg *types.AppConfig }

func (o appOptions) GetAppConfig() *types.AppConfig { return o.cfg }
