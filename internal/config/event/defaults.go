package event

// 事件系统默认配置值
const (
	// defaultEnabled 默认启用事件系统
	// 原因：WebSocket 推送与指标都依赖区块索引事件
	defaultEnabled = true

	// defaultMaxSubscribers 默认最大订阅者数量设为1000
	// 原因：每个 WebSocket 连接会注册一个订阅者
	defaultMaxSubscribers = 1000
)
