package memory

import "time"

// MemoryOptions 内存存储配置选项
type MemoryOptions struct {
	// === 基础配置 ===
	MaxMemory  int64         `json:"max_memory"`  // 最大内存使用量
	MaxEntries int           `json:"max_entries"` // 最大条目数
	DefaultTTL time.Duration `json:"default_ttl"` // 默认TTL

	// === 清理配置 ===
	CleanupInterval time.Duration `json:"cleanup_interval"` // 清理间隔
}

// Config 内存存储配置实现
type Config struct {
	options *MemoryOptions
}

// New 创建内存存储配置实现
func New(userConfig interface{}) *Config {
	options := createDefaultMemoryOptions()
	if opts, ok := userConfig.(*MemoryOptions); ok && opts != nil {
		options = opts
	}
	return &Config{
		options: options,
	}
}

// createDefaultMemoryOptions 创建默认内存存储配置
func createDefaultMemoryOptions() *MemoryOptions {
	return &MemoryOptions{
		MaxMemory:       defaultMaxMemory,
		MaxEntries:      defaultMaxEntries,
		DefaultTTL:      defaultDefaultTTL,
		CleanupInterval: defaultCleanupInterval,
	}
}

// GetOptions 获取完整的内存存储配置选项
func (c *Config) GetOptions() *MemoryOptions {
	return c.options
}

// GetMaxMemoryMB 获取最大内存使用量（MB，BigCache HardMaxCacheSize 使用）
func (c *Config) GetMaxMemoryMB() int {
	return int(c.options.MaxMemory >> 20)
}

// GetLifeWindow 获取条目生命周期
func (c *Config) GetLifeWindow() time.Duration {
	return c.options.DefaultTTL
}

// GetCleanWindow 获取清理间隔
func (c *Config) GetCleanWindow() time.Duration {
	return c.options.CleanupInterval
}

// GetMaxEntriesInWindow 获取窗口内最大条目数
// 限制为 1024，减少 BigCache 的预分配内存
func (c *Config) GetMaxEntriesInWindow() int {
	if c.options.MaxEntries > 1024 {
		return 1024
	}
	return c.options.MaxEntries
}

// GetMaxEntrySize 获取单条目预估大小（仅用于初始分配，超出后分片自动扩容）
func (c *Config) GetMaxEntrySize() int {
	return 8 * 1024
}
