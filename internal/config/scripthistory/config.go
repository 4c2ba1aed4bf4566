// Package scripthistory 提供脚本历史索引的配置
package scripthistory

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/weisyn/scriptindex/pkg/types"
)

// ScriptHistoryOptions 脚本历史索引配置选项
type ScriptHistoryOptions struct {
	// === 存储配置 ===
	InternalPageSize uint32 `json:"internal_page_size"` // 每个存储分页的条目数
	PageCacheEnabled bool   `json:"page_cache_enabled"` // 是否启用分页读缓存

	// === 查询配置 ===
	DefaultPageSize uint32 `json:"default_page_size"` // 未指定 page_size 时的默认值
	MinPageSize     uint32 `json:"min_page_size"`     // 允许的最小 page_size
	MaxPageSize     uint32 `json:"max_page_size"`     // 允许的最大 page_size

	// === 同步配置 ===
	IndexSpends        bool   `json:"index_spends"`         // 是否索引输入花费的前序输出脚本
	MempoolTrackerSize int    `json:"mempool_tracker_size"` // 首见时间追踪容量
	Network            string `json:"network"`              // mainnet | testnet3 | regtest | simnet
	IndexGenesis       bool   `json:"index_genesis"`        // 空索引启动时是否写入创世区块
}

// Config 脚本历史配置实现
type Config struct {
	options *ScriptHistoryOptions
}

// New 创建脚本历史配置
//
// userConfig 支持 *types.UserScriptHistoryConfig 与 *ScriptHistoryOptions。
func New(userConfig interface{}) *Config {
	if opts, ok := userConfig.(*ScriptHistoryOptions); ok && opts != nil {
		return &Config{options: opts}
	}

	options := createDefaultOptions()
	if user, ok := userConfig.(*types.UserScriptHistoryConfig); ok && user != nil {
		applyUserConfig(options, user)
	}
	return &Config{options: options}
}

func createDefaultOptions() *ScriptHistoryOptions {
	return &ScriptHistoryOptions{
		InternalPageSize:   defaultInternalPageSize,
		PageCacheEnabled:   defaultPageCacheEnabled,
		DefaultPageSize:    defaultPageSize,
		MinPageSize:        defaultMinPageSize,
		MaxPageSize:        defaultMaxPageSize,
		IndexSpends:        defaultIndexSpends,
		MempoolTrackerSize: defaultMempoolTrackerSize,
		Network:            defaultNetwork,
		IndexGenesis:       defaultIndexGenesis,
	}
}

func applyUserConfig(options *ScriptHistoryOptions, user *types.UserScriptHistoryConfig) {
	if user.InternalPageSize != nil && *user.InternalPageSize > 0 {
		options.InternalPageSize = *user.InternalPageSize
	}
	if user.DefaultPageSize != nil {
		options.DefaultPageSize = *user.DefaultPageSize
	}
	if user.MaxPageSize != nil {
		options.MaxPageSize = *user.MaxPageSize
	}
	if user.IndexSpends != nil {
		options.IndexSpends = *user.IndexSpends
	}
	if user.MempoolTrackerSize != nil && *user.MempoolTrackerSize > 0 {
		options.MempoolTrackerSize = *user.MempoolTrackerSize
	}
	if user.Network != nil {
		options.Network = *user.Network
	}
	if user.IndexGenesis != nil {
		options.IndexGenesis = *user.IndexGenesis
	}
	if user.PageCacheEnabled != nil {
		options.PageCacheEnabled = *user.PageCacheEnabled
	}
}

// GetOptions 获取完整配置选项
func (c *Config) GetOptions() *ScriptHistoryOptions {
	return c.options
}

// Validate 校验配置的一致性
func (c *Config) Validate() error {
	o := c.options
	if o.InternalPageSize == 0 {
		return fmt.Errorf("internal_page_size 必须大于 0")
	}
	if o.MinPageSize == 0 || o.MinPageSize > o.MaxPageSize {
		return fmt.Errorf("page size 范围无效: [%d, %d]", o.MinPageSize, o.MaxPageSize)
	}
	if o.MaxPageSize > pageSizeLimit {
		return fmt.Errorf("max_page_size %d 超过上限 %d", o.MaxPageSize, pageSizeLimit)
	}
	if o.DefaultPageSize < o.MinPageSize || o.DefaultPageSize > o.MaxPageSize {
		return fmt.Errorf("default_page_size %d 不在 [%d, %d] 范围内", o.DefaultPageSize, o.MinPageSize, o.MaxPageSize)
	}
	if _, err := c.ChainParams(); err != nil {
		return err
	}
	return nil
}

// ChainParams 返回配置网络对应的链参数
func (c *Config) ChainParams() (*chaincfg.Params, error) {
	switch c.options.Network {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("未知网络: %s", c.options.Network)
	}
}
