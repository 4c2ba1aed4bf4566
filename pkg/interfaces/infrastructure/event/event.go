// Package event 提供事件总线接口定义
//
// 🎯 **事件总线 (Event Bus)**
//
// 索引在区块连接/断开成功后发布通知，订阅者（例如 WebSocket 推送）
// 只读消费事件，不能反向影响索引写入路径。
package event

// EventType 事件类型
type EventType string

// SubscriptionID 订阅标识
type SubscriptionID string

// EventHandler 带标识订阅的处理器
//
// 处理器在发布方的 goroutine 中同步执行，耗时操作应自行转交到后台。
type EventHandler func(eventType EventType, data interface{})

// EventBus 事件总线接口
type EventBus interface {
	// Subscribe 订阅事件（处理器签名需与发布参数一致）
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅事件；transactional 为 true 时同一订阅者串行处理
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error
	// WaitAsync 等待所有异步处理完成
	WaitAsync()
	// HasCallback 检查是否有回调函数
	HasCallback(eventType EventType) bool

	// SubscribeWithID 订阅单参数事件并返回订阅标识
	SubscribeWithID(eventType EventType, handler EventHandler) (SubscriptionID, error)
	// UnsubscribeByID 通过订阅ID取消订阅；未知ID返回错误
	UnsubscribeByID(id SubscriptionID) error
}
