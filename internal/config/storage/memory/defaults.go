package memory

import "time"

// 内存存储默认配置值
const (
	// defaultMaxMemory 默认最大内存使用量为256MB
	defaultMaxMemory = 256 << 20 // 256MB

	// defaultMaxEntries 默认最大条目数为100000
	defaultMaxEntries = 100000

	// defaultDefaultTTL 默认TTL为1小时
	// 原因：分页缓存按版本寻址，旧版本不会被读取，只需等待过期回收
	defaultDefaultTTL = time.Hour

	// defaultCleanupInterval 默认清理间隔为10分钟
	defaultCleanupInterval = 10 * time.Minute
)
