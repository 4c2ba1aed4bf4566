// Package websocket 提供脚本历史变更的实时推送
//
// 客户端通过 /ws 订阅脚本键，索引连接或断开涉及该脚本的区块后，
// 服务端推送 confirmed / removed 事件。推送只是通知，权威数据以查询接口为准。
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	wstypes "github.com/weisyn/scriptindex/internal/api/websocket/types"
	"github.com/weisyn/scriptindex/internal/core/scripthistory/scriptkey"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// Options WebSocket 服务参数
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
}

// Server WebSocket服务器
type Server struct {
	logger        log.Logger
	subscriptions *SubscriptionManager
	upgrader      websocket.Upgrader
}

// NewServer 创建WebSocket服务器；bus 为 nil 时只接受连接不推送
func NewServer(logger log.Logger, bus event.EventBus, opts Options) (*Server, error) {
	subs, err := NewSubscriptionManager(logger, bus)
	if err != nil {
		return nil, err
	}
	return &Server{
		logger:        logger,
		subscriptions: subs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
		},
	}, nil
}

// RegisterRoutes 注册WebSocket路由到Gin
func (s *Server) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws", s.HandleWebSocket)
}

// Close 注销事件总线订阅
func (s *Server) Close() {
	s.subscriptions.Close()
}

// HandleWebSocket 处理WebSocket连接（Gin Handler）
func (s *Server) HandleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warnf("WebSocket 升级失败: %v", err)
		}
		return
	}

	cl := newClient(conn)
	go cl.writePump()
	defer func() {
		s.subscriptions.CleanupByConnection(cl)
		cl.close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && s.logger != nil {
				s.logger.Debugf("WebSocket 连接异常关闭: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.handleMessage(cl, message)
	}
}

func (s *Server) handleMessage(cl *client, message []byte) {
	var req wstypes.Request
	if err := json.Unmarshal(message, &req); err != nil {
		cl.reply(wstypes.Response{Error: &wstypes.Error{Code: wstypes.CodeParseError, Message: "Parse error"}})
		return
	}

	switch req.Method {
	case wstypes.MethodSubscribe:
		var p wstypes.SubscribeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			cl.reply(wstypes.Response{ID: req.ID, Error: &wstypes.Error{Code: wstypes.CodeInvalidParams, Message: "Invalid params"}})
			return
		}
		key, err := scriptkey.Normalize(p.ScriptType, p.Payload)
		if err != nil {
			cl.reply(wstypes.Response{ID: req.ID, Error: &wstypes.Error{Code: wstypes.CodeInvalidParams, Message: err.Error()}})
			return
		}
		cl.reply(wstypes.Response{ID: req.ID, Result: s.subscriptions.Subscribe(cl, key)})

	case wstypes.MethodUnsubscribe:
		var p wstypes.UnsubscribeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			cl.reply(wstypes.Response{ID: req.ID, Error: &wstypes.Error{Code: wstypes.CodeInvalidParams, Message: "Invalid params"}})
			return
		}
		if err := s.subscriptions.Unsubscribe(cl, p.Subscription); err != nil {
			cl.reply(wstypes.Response{ID: req.ID, Error: &wstypes.Error{Code: wstypes.CodeServerError, Message: err.Error()}})
			return
		}
		cl.reply(wstypes.Response{ID: req.ID, Result: true})

	default:
		cl.reply(wstypes.Response{ID: req.ID, Error: &wstypes.Error{Code: wstypes.CodeMethodNotFound, Message: "Method not found"}})
	}
}

// client 单个连接；所有写操作都经过 send 队列，由 writePump 串行写出
type client struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// enqueue 非阻塞入队；队列满或连接已关闭时返回 false
func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) reply(resp wstypes.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
