package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/weisyn/scriptindex/internal/config/api"
	"github.com/weisyn/scriptindex/internal/config/event"
	"github.com/weisyn/scriptindex/internal/config/log"
	"github.com/weisyn/scriptindex/internal/config/scripthistory"
	"github.com/weisyn/scriptindex/internal/config/storage/badger"
	"github.com/weisyn/scriptindex/internal/config/storage/memory"
	"github.com/weisyn/scriptindex/pkg/interfaces/config"
	"github.com/weisyn/scriptindex/pkg/types"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	return &Provider{
		appConfig: appConfig,
	}
}

// LoadAppConfig 从JSON文件加载应用配置
// 路径为空时返回空配置（全部使用默认值）
func LoadAppConfig(path string) (*types.AppConfig, error) {
	if path == "" {
		return &types.AppConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	var appConfig types.AppConfig
	if err := json.Unmarshal(data, &appConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &appConfig, nil
}

// GetAPI 获取API服务配置
func (p *Provider) GetAPI() *api.APIOptions {
	var userAPIConfig *types.UserAPIConfig
	if p.appConfig != nil && p.appConfig.API != nil {
		userAPIConfig = p.appConfig.API
	}
	return api.New(userAPIConfig).GetOptions()
}

// GetScriptHistory 获取脚本历史索引配置
func (p *Provider) GetScriptHistory() *scripthistory.ScriptHistoryOptions {
	var userConfig *types.UserScriptHistoryConfig
	if p.appConfig != nil && p.appConfig.ScriptHistory != nil {
		userConfig = p.appConfig.ScriptHistory
	}
	return scripthistory.New(userConfig).GetOptions()
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	var userLogConfig *types.UserLogConfig
	if p.appConfig != nil && p.appConfig.Log != nil {
		userLogConfig = p.appConfig.Log
	}
	return log.New(userLogConfig).GetOptions()
}

// GetEvent 获取事件配置
func (p *Provider) GetEvent() *event.EventOptions {
	return event.New(nil).GetOptions()
}

// === 存储引擎配置方法 ===

// GetBadger 获取BadgerDB存储配置
func (p *Provider) GetBadger() *badger.BadgerOptions {
	var userStorageConfig *types.UserStorageConfig
	if p.appConfig != nil && p.appConfig.Storage != nil {
		userStorageConfig = p.appConfig.Storage
	}
	return badger.New(userStorageConfig).GetOptions()
}

// GetMemory 获取内存存储配置
func (p *Provider) GetMemory() *memory.MemoryOptions {
	return memory.New(nil).GetOptions()
}
