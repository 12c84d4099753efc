package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"release-portal/pkg/protocol"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // 允许跨域
}

// Hub 管理后台实时推送 (版本目录 / 下载汇总)
// 同类型的更新在一个节流周期内只推送最后一次
type Hub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.Mutex

	// 数据缓存 (用于节流)
	latest   map[string]interface{}
	dirty    map[string]bool
	interval time.Duration
	logger   *zap.Logger
}

func NewHub(interval time.Duration, logger *zap.Logger) *Hub {
	if interval <= 0 {
		interval = time.Second
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		latest:     make(map[string]interface{}),
		dirty:      make(map[string]bool),
		interval:   interval,
		logger:     logger,
	}
}

// Run 阻塞直到 ctx 结束，退出时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer h.closeAll()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			// 连接建立时，立即发送一次当前状态
			h.pushCurrentState(conn)

		case conn := <-h.unregister:
			h.disconnect(conn)

		case <-ticker.C:
			h.flush()
		}
	}
}

// Publish 只更新缓存并标记为 Dirty，不立即发送，也不阻塞调用方
func (h *Hub) Publish(msgType string, data interface{}) {
	h.mu.Lock()
	h.latest[msgType] = data
	h.dirty[msgType] = true
	h.mu.Unlock()
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) flush() {
	h.mu.Lock()
	var msgs []protocol.WSMessage
	for _, t := range []string{protocol.TypeVersions, protocol.TypeStats} {
		if h.dirty[t] && h.latest[t] != nil {
			msgs = append(msgs, protocol.WSMessage{Type: t, Data: h.latest[t]})
			h.dirty[t] = false
		}
	}
	h.mu.Unlock()

	if len(msgs) > 0 {
		h.broadcastToAll(msgs)
	}
}

func (h *Hub) broadcastToAll(msgs []protocol.WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		for _, msg := range msgs {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write failed", zap.Error(err))
				conn.Close()
				delete(h.clients, conn)
				break
			}
		}
	}
}

func (h *Hub) disconnect(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// 新连接建立时，推送现有缓存的数据
func (h *Hub) pushCurrentState(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range []string{protocol.TypeVersions, protocol.TypeStats} {
		if h.latest[t] != nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteJSON(protocol.WSMessage{Type: t, Data: h.latest[t]})
		}
	}
}

// HandleWebsocket 供 Server 路由调用
func (h *Hub) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// 保持连接读取，处理 Close 消息
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
