package mechanics

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionTask 绑定到会话的定时任务。
// Operate 返回下一次触发的延迟；again 为 false 时任务结束，不再排期。
type SessionTask interface {
	Session() *GameSession
	Operate() (next time.Duration, again bool)
}

// Timer 可停止的定时器（*time.Timer 满足该接口）
type Timer interface {
	Stop() bool
}

// AfterFunc 定时触发函数，默认 time.AfterFunc，测试可替换为手动触发
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// GameTaskScheduler 在独立的定时器协程上执行会话任务。
// 没有单个任务的取消操作：任务在触发时自行检查会话是否结束。
type GameTaskScheduler struct {
	mu        sync.Mutex
	afterFunc AfterFunc
	timers    map[uint64]Timer
	seq       uint64
	stopped   bool
	log       *zap.SugaredLogger
}

func NewGameTaskScheduler(log *zap.SugaredLogger, af AfterFunc) *GameTaskScheduler {
	if af == nil {
		af = realAfterFunc
	}
	return &GameTaskScheduler{
		afterFunc: af,
		timers:    make(map[uint64]Timer),
		log:       log,
	}
}

// Schedule 在 delay 之后触发一次 task
func (s *GameTaskScheduler) Schedule(delay time.Duration, task SessionTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.seq++
	id := s.seq
	// 持锁登记，回调在 fire 中需要同一把锁，保证先登记后触发
	s.timers[id] = s.afterFunc(delay, func() { s.fire(id, task) })
}

func (s *GameTaskScheduler) fire(id uint64, task SessionTask) {
	s.mu.Lock()
	delete(s.timers, id)
	stopped := s.stopped
	s.mu.Unlock()
	if stopped || task.Session().IsFinished() {
		return
	}
	next, again := task.Operate()
	if !again {
		return
	}
	s.log.Debugf("session %s task rescheduled in %s", task.Session().ID(), next)
	s.Schedule(next, task)
}

// Pending 当前已排期未触发的任务数
func (s *GameTaskScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop 进程退出时停止全部定时器，之后的 Schedule 调用被忽略
func (s *GameTaskScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
