package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"minerduel/mechanics"
)

// closeGrace 写协程未能及时发出关闭帧时的强制关闭期限
const closeGrace = 2 * time.Second

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ID        uuid.UUID
	ws        *websocket.Conn
	send      chan []byte
	closing   chan []byte // 关闭帧，由写协程在清空 send 之后写出
	done      chan struct{}
	closeOnce sync.Once
	closeReq  sync.Once
	draining  atomic.Bool
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ID:      uuid.New(),
		ws:      ws,
		send:    make(chan []byte, 64),
		closing: make(chan []byte, 1),
		done:    make(chan struct{}),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满、关闭中或已关闭返回 false）
func (c *ClientConn) Enqueue(b []byte) bool {
	if c.draining.Load() || c.Closed() {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *ClientConn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close 立即关闭底层连接，写协程随之退出，队列中未写出的消息丢弃
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// CloseWithStatus 请求写协程先写完已入队的消息，再发送关闭帧并关闭连接。
// 不阻塞调用方；写协程在 closeGrace 内未完成则强制关闭。
func (c *ClientConn) CloseWithStatus(code int, reason string) {
	c.closeReq.Do(func() {
		c.draining.Store(true)
		c.closing <- websocket.FormatCloseMessage(code, reason)
		time.AfterFunc(closeGrace, c.Close)
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	defer c.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case frame := <-c.closing:
			if err := c.flush(); err != nil {
				return
			}
			_ = c.write(websocket.CloseMessage, frame)
			return
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// flush 写出 send 中剩余的消息
func (c *ClientConn) flush() error {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *ClientConn) write(kind int, msg []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteMessage(kind, msg)
}

// InboundMessage 入站消息：{"type":"join","mode":"single"} / {"type":"snap",...} / {"type":"leave"}
type InboundMessage struct {
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
	mechanics.ClientSnap
}

// readPump 读取客户端消息，快照只追加到缓冲，由 Tick 统一结算
func (c *ClientConn) readPump(s *Server, id mechanics.AccountID) {
	defer c.Close()
	// 只注销连接；所在会话由健康检查在下一个 Tick 终止
	defer s.Remote.Unregister(id, c)
	c.ws.SetReadLimit(1 << 16)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Log.Debugw("websocket read failed", "user", id, "conn", c.ID, "error", err)
			}
			return
		}
		var im InboundMessage
		if err := json.Unmarshal(payload, &im); err != nil {
			s.Log.Debugw("malformed message", "user", id, "error", err)
			continue
		}
		switch strings.ToLower(im.Type) {
		case "join":
			if strings.EqualFold(im.Mode, "single") {
				s.Mech.AddSingleWaiter(id)
			} else {
				s.Mech.AddWaiter(id)
			}
		case "snap":
			s.Mech.AddClientSnapshot(id, im.ClientSnap)
		case "leave":
			s.Mech.Leave(id)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：/ws?player=alice（鉴权不在本服务内）
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	if player == "" {
		http.Error(w, "missing player query", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warnf("upgrade error: %v", err)
		return
	}

	id := mechanics.AccountID(player)
	client := NewClientConn(ws)
	s.Remote.Register(id, client)
	s.Log.Infof("user %s connected (conn %s)", id, client.ID)

	go client.writePump()
	go client.readPump(s, id)
}
