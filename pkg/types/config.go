package types

// AppConfig 应用配置（对应 JSON 配置文件）
//
// 字段均为指针：nil 表示用户未设置，使用默认值；非 nil 即使是零值也会被采用。
type AppConfig struct {
	AppName *string `json:"app_name,omitempty"`
	DataDir *string `json:"data_dir,omitempty"`

	Storage       *UserStorageConfig       `json:"storage,omitempty"`
	Log           *UserLogConfig           `json:"log,omitempty"`
	API           *UserAPIConfig           `json:"api,omitempty"`
	ScriptHistory *UserScriptHistoryConfig `json:"script_history,omitempty"`
}

// UserStorageConfig 用户存储配置
type UserStorageConfig struct {
	DataRoot *string `json:"data_root,omitempty"` // 数据根目录
	InMemory *bool   `json:"in_memory,omitempty"` // 纯内存模式（测试/演示）
}

// UserLogConfig 用户日志配置
type UserLogConfig struct {
	Level    *string `json:"level,omitempty"`     // debug, info, warn, error, fatal
	FilePath *string `json:"file_path,omitempty"` // 日志文件路径
}

// UserAPIConfig 用户 API 配置
type UserAPIConfig struct {
	HTTPEnabled *bool   `json:"http_enabled,omitempty"`
	HTTPHost    *string `json:"http_host,omitempty"`
	HTTPPort    *int    `json:"http_port,omitempty"`
	EnableWS    *bool   `json:"enable_websocket,omitempty"`
}

// UserScriptHistoryConfig 脚本历史索引配置
type UserScriptHistoryConfig struct {
	InternalPageSize   *uint32 `json:"internal_page_size,omitempty"`
	DefaultPageSize    *uint32 `json:"default_page_size,omitempty"`
	MaxPageSize        *uint32 `json:"max_page_size,omitempty"`
	IndexSpends        *bool   `json:"index_spends,omitempty"`
	MempoolTrackerSize *int    `json:"mempool_tracker_size,omitempty"`
	Network            *string `json:"network,omitempty"`
	IndexGenesis       *bool   `json:"index_genesis,omitempty"`
	PageCacheEnabled   *bool   `json:"page_cache_enabled,omitempty"`
}
