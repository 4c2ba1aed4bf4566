package websocket

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/weisyn/scriptindex/internal/api/format"
	wstypes "github.com/weisyn/scriptindex/internal/api/websocket/types"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scriptindex/pkg/types"
)

// Subscription 订阅信息
type Subscription struct {
	ID     string  // 订阅ID
	Script string  // 规范化脚本键（type:hex）
	client *client // 所属连接
}

// SubscriptionManager 订阅管理器
//
// 对每种索引事件只在事件总线上注册一次，再按脚本键分发给各连接。
// 事件在索引写入提交之后发布，推送顺序与索引变更顺序一致。
type SubscriptionManager struct {
	logger log.Logger
	bus    event.EventBus

	mu       sync.RWMutex
	subs     map[string]*Subscription            // 订阅ID → 订阅
	byScript map[string]map[string]*Subscription // 脚本键 → 订阅ID → 订阅
	busIDs   []event.SubscriptionID
}

// NewSubscriptionManager 创建订阅管理器并挂到事件总线；bus 可为 nil
func NewSubscriptionManager(logger log.Logger, bus event.EventBus) (*SubscriptionManager, error) {
	m := &SubscriptionManager{
		logger:   logger,
		bus:      bus,
		subs:     make(map[string]*Subscription),
		byScript: make(map[string]map[string]*Subscription),
	}
	if bus == nil {
		return m, nil
	}
	for _, et := range []event.EventType{types.EventTypeBlockConnected, types.EventTypeBlockDisconnected} {
		id, err := bus.SubscribeWithID(et, m.handleEvent)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("订阅事件 %s 失败: %w", et, err)
		}
		if id != "" {
			m.busIDs = append(m.busIDs, id)
		}
	}
	return m, nil
}

// Close 从事件总线注销
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	ids := m.busIDs
	m.busIDs = nil
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.bus.UnsubscribeByID(id); err != nil && m.logger != nil {
			m.logger.Warnf("注销事件订阅 %s 失败: %v", id, err)
		}
	}
}

// Subscribe 为连接订阅一个脚本键
func (m *SubscriptionManager) Subscribe(c *client, key types.ScriptKey) string {
	sub := &Subscription{
		ID:     uuid.New().String(),
		Script: format.ScriptKeyToString(key),
		client: c,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	if m.byScript[sub.Script] == nil {
		m.byScript[sub.Script] = make(map[string]*Subscription)
	}
	m.byScript[sub.Script][sub.ID] = sub
	return sub.ID
}

// Unsubscribe 取消订阅；只能取消本连接的订阅
func (m *SubscriptionManager) Unsubscribe(c *client, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[id]
	if !ok || sub.client != c {
		return fmt.Errorf("订阅不存在: %s", id)
	}
	m.remove(sub)
	return nil
}

// CleanupByConnection 清理连接的全部订阅
func (m *SubscriptionManager) CleanupByConnection(c *client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs {
		if sub.client == c {
			m.remove(sub)
		}
	}
}

// Count 当前订阅数
func (m *SubscriptionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// remove 调用方持有 m.mu
func (m *SubscriptionManager) remove(sub *Subscription) {
	delete(m.subs, sub.ID)
	if set := m.byScript[sub.Script]; set != nil {
		delete(set, sub.ID)
		if len(set) == 0 {
			delete(m.byScript, sub.Script)
		}
	}
}

// handleEvent 事件总线回调，在发布方 goroutine 中执行，只做入队
func (m *SubscriptionManager) handleEvent(eventType event.EventType, data interface{}) {
	ev, ok := data.(*types.BlockEvent)
	if !ok || ev == nil {
		return
	}
	kind := wstypes.EventConfirmed
	if eventType == types.EventTypeBlockDisconnected {
		kind = wstypes.EventRemoved
	}

	type delivery struct {
		sub *Subscription
		msg []byte
	}
	var out []delivery

	m.mu.RLock()
	for _, key := range ev.Keys {
		script := format.ScriptKeyToString(key)
		for _, sub := range m.byScript[script] {
			msg, err := json.Marshal(wstypes.Notification{
				Method:       wstypes.MethodNotify,
				Subscription: sub.ID,
				Event: wstypes.ScriptEvent{
					Type:      kind,
					Script:    script,
					BlockHash: format.HashToHex(ev.Block.Hash),
					Height:    ev.Block.Height,
					Timestamp: ev.Block.Timestamp,
				},
			})
			if err != nil {
				continue
			}
			out = append(out, delivery{sub: sub, msg: msg})
		}
	}
	m.mu.RUnlock()

	for _, d := range out {
		if !d.sub.client.enqueue(d.msg) {
			// 慢消费者：断开连接，由客户端重新订阅并回补
			if m.logger != nil {
				m.logger.Warnf("WebSocket 发送队列已满，断开连接 subscription=%s", d.sub.ID)
			}
			d.sub.client.close()
		}
	}
}
