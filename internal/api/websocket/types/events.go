// Package types provides WebSocket message type definitions.
package types

import "encoding/json"

// 方法名
const (
	MethodSubscribe   = "subscribe"
	MethodUnsubscribe = "unsubscribe"
	MethodNotify      = "script_event"
)

// 事件类型
const (
	EventConfirmed = "confirmed" // 区块连接，条目写入
	EventRemoved   = "removed"   // 区块断开，条目移除
)

// Request 客户端请求
type Request struct {
	ID     interface{}     `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// SubscribeParams 订阅参数
type SubscribeParams struct {
	ScriptType string `json:"script_type"`
	Payload    string `json:"payload"`
}

// UnsubscribeParams 取消订阅参数
type UnsubscribeParams struct {
	Subscription string `json:"subscription"`
}

// Response 请求应答
type Response struct {
	ID     interface{} `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// Error 应答错误
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// 错误码
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
)

// Notification 服务端推送
type Notification struct {
	Method       string      `json:"method"`
	Subscription string      `json:"subscription"`
	Event        ScriptEvent `json:"event"`
}

// ScriptEvent 脚本历史变更事件
type ScriptEvent struct {
	Type      string `json:"type"`   // confirmed, removed
	Script    string `json:"script"` // type:hex
	BlockHash string `json:"block_hash"`
	Height    uint32 `json:"height"`
	Timestamp int64  `json:"timestamp"`
}
