package mechanics

import (
	"strconv"
	"sync/atomic"
)

// SessionID 会话唯一标识，进程生命周期内单调递增
type SessionID uint64

func (id SessionID) String() string { return strconv.FormatUint(uint64(id), 10) }

// IDAllocator 会话 ID 分配器，并发安全；由注册表持有，便于测试时注入起始值
type IDAllocator struct {
	last atomic.Uint64
}

// NewIDAllocator 创建分配器，首个返回值为 start
func NewIDAllocator(start uint64) *IDAllocator {
	a := &IDAllocator{}
	a.last.Store(start)
	return a
}

// Next 返回严格大于之前所有返回值的新 ID
func (a *IDAllocator) Next() SessionID {
	return SessionID(a.last.Add(1) - 1)
}
