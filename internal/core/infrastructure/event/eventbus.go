// 基于asaskevich/EventBus的事件总线实现

package event

import (
	"fmt"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	eventconfig "github.com/weisyn/scriptindex/internal/config/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
)

// subscription 带标识的订阅
type subscription struct {
	id        event.SubscriptionID
	eventType event.EventType
	handler   event.EventHandler
}

// EventBus 是基于asaskevich/EventBus的实现
//
// 标准订阅直接交给底层总线；带标识订阅由每个事件类型一个分发器统一派发，
// 这样取消订阅不依赖底层按函数指针比较处理器。
type EventBus struct {
	bus    evbus.Bus           // 底层事件总线
	config *eventconfig.Config // 配置

	subMu         sync.RWMutex
	subscriptions map[event.SubscriptionID]*subscription
	byType        map[event.EventType][]*subscription
	dispatchers   map[event.EventType]bool
}

var _ event.EventBus = (*EventBus)(nil)

// New 创建事件总线实例
func New(config *eventconfig.Config) *EventBus {
	if config == nil {
		config = eventconfig.New(nil)
	}
	return &EventBus{
		bus:           evbus.New(),
		config:        config,
		subscriptions: make(map[event.SubscriptionID]*subscription),
		byType:        make(map[event.EventType][]*subscription),
		dispatchers:   make(map[event.EventType]bool),
	}
}

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil // 如果事件系统未启用，静默成功
	}
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.Publish(string(eventType), args...)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.config.IsEnabled() {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}

// SubscribeWithID 订阅单参数事件并返回订阅标识
func (eb *EventBus) SubscribeWithID(eventType event.EventType, handler event.EventHandler) (event.SubscriptionID, error) {
	if !eb.config.IsEnabled() {
		return "", nil
	}
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}

	eb.subMu.Lock()
	defer eb.subMu.Unlock()

	if limit := eb.config.GetMaxSubscribers(); limit > 0 && len(eb.byType[eventType]) >= limit {
		return "", fmt.Errorf("事件类型 %s 订阅者已达上限 %d", eventType, limit)
	}

	if !eb.dispatchers[eventType] {
		if err := eb.bus.Subscribe(string(eventType), eb.dispatcher(eventType)); err != nil {
			return "", err
		}
		eb.dispatchers[eventType] = true
	}

	sub := &subscription{
		id:        event.SubscriptionID(uuid.New().String()),
		eventType: eventType,
		handler:   handler,
	}
	eb.subscriptions[sub.id] = sub
	eb.byType[eventType] = append(eb.byType[eventType], sub)
	return sub.id, nil
}

// UnsubscribeByID 通过订阅ID取消订阅
func (eb *EventBus) UnsubscribeByID(id event.SubscriptionID) error {
	eb.subMu.Lock()
	defer eb.subMu.Unlock()

	sub, ok := eb.subscriptions[id]
	if !ok {
		return fmt.Errorf("订阅不存在: %s", id)
	}
	delete(eb.subscriptions, id)

	subs := eb.byType[sub.eventType]
	for i, s := range subs {
		if s.id == id {
			eb.byType[sub.eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

// dispatcher 为事件类型创建分发器
func (eb *EventBus) dispatcher(eventType event.EventType) func(data interface{}) {
	return func(data interface{}) {
		eb.subMu.RLock()
		subs := eb.byType[eventType]
		eb.subMu.RUnlock()

		for _, sub := range subs {
			sub.handler(eventType, data)
		}
	}
}
