package badger

// BadgerDB存储默认配置值
const (
	// defaultPath 默认数据库路径
	defaultPath = "./data/badger"

	// defaultInMemory 默认落盘
	defaultInMemory = false

	// defaultSyncWrites 默认启用同步写入
	// 原因：已确认的连接事件不会重放，丢失的写入会让索引与链永久不一致
	defaultSyncWrites = true

	// defaultMemTableSize 默认内存表大小为64MB
	defaultMemTableSize = 64 << 20 // 64MB

	// defaultEnableAutoCompaction 默认启用自动压缩
	// 原因：断开区块会重写尾部分页，旧版本需要及时回收
	defaultEnableAutoCompaction = true
)
