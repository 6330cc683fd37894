package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"minerduel/mechanics"
)

var (
	ErrNotConnected  = errors.New("user is not connected")
	ErrSendQueueFull = errors.New("send queue is full")
)

// RemotePointService 账号到 WebSocket 连接的映射：投递、存活检查、强制断开
type RemotePointService struct {
	mu    sync.RWMutex
	conns map[mechanics.AccountID]*ClientConn
	log   *zap.SugaredLogger
}

func NewRemotePointService(log *zap.SugaredLogger) *RemotePointService {
	return &RemotePointService{conns: make(map[mechanics.AccountID]*ClientConn), log: log}
}

// Register 登记连接；同一账号重复接入时关闭旧连接
func (r *RemotePointService) Register(id mechanics.AccountID, c *ClientConn) {
	r.mu.Lock()
	old := r.conns[id]
	r.conns[id] = c
	r.mu.Unlock()
	if old != nil {
		r.log.Infof("user %s reconnected, closing connection %s", id, old.ID)
		old.CloseWithStatus(websocket.ClosePolicyViolation, "replaced by a new connection")
	}
}

// Unregister 仅当登记的仍是该连接时移除，避免旧连接的读协程误删新连接
func (r *RemotePointService) Unregister(id mechanics.AccountID, c *ClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[id]; ok && cur.ID == c.ID {
		delete(r.conns, id)
	}
}

func (r *RemotePointService) IsConnected(id mechanics.AccountID) bool {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	return ok && !c.Closed()
}

// SendMessageToUser 编码为 JSON 后放入发送队列
func (r *RemotePointService) SendMessageToUser(id mechanics.AccountID, msg any) error {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok || c.Closed() {
		return fmt.Errorf("send to %s: %w", id, ErrNotConnected)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", id, err)
	}
	if !c.Enqueue(b) {
		return fmt.Errorf("send to %s: %w", id, ErrSendQueueFull)
	}
	return nil
}

// CutDownConnection 以给定状态关闭连接并移除登记
func (r *RemotePointService) CutDownConnection(id mechanics.AccountID, status mechanics.CloseStatus) {
	r.mu.Lock()
	c, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	code := websocket.CloseNormalClosure
	if status == mechanics.CloseServerError {
		code = websocket.CloseInternalServerErr
	}
	c.CloseWithStatus(code, status.String())
}

// Connected 当前在线账号数
func (r *RemotePointService) Connected() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
