// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/weisyn/scriptindex/internal/config/api"
	eventconfig "github.com/weisyn/scriptindex/internal/config/event"
	logconfig "github.com/weisyn/scriptindex/internal/config/log"
	scripthistoryconfig "github.com/weisyn/scriptindex/internal/config/scripthistory"
	badgerconfig "github.com/weisyn/scriptindex/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/scriptindex/internal/config/storage/memory"
)

// Provider 配置提供者接口
//
// 每个 Get 方法返回已合并默认值与用户覆盖的完整选项。
type Provider interface {
	// === 核心配置 ===
	GetAPI() *apiconfig.APIOptions
	GetScriptHistory() *scripthistoryconfig.ScriptHistoryOptions

	// === 基础设施配置 ===
	GetLog() *logconfig.LogOptions
	GetEvent() *eventconfig.EventOptions

	// === 存储引擎配置 ===
	GetBadger() *badgerconfig.BadgerOptions
	GetMemory() *memoryconfig.MemoryOptions
}
