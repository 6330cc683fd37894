package mechanics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type cutCall struct {
	id     AccountID
	status CloseStatus
}

// fakeRemote 记录所有网关调用
type fakeRemote struct {
	mu        sync.Mutex
	connected map[AccountID]bool
	cuts      []cutCall
	sent      map[AccountID][]any
	failFor   map[AccountID]bool
}

func newFakeRemote(ids ...AccountID) *fakeRemote {
	r := &fakeRemote{
		connected: make(map[AccountID]bool),
		sent:      make(map[AccountID][]any),
		failFor:   make(map[AccountID]bool),
	}
	for _, id := range ids {
		r.connected[id] = true
	}
	return r
}

func (r *fakeRemote) IsConnected(id AccountID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected[id]
}

func (r *fakeRemote) SendMessageToUser(id AccountID, msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[id] {
		return errors.New("broken pipe")
	}
	r.sent[id] = append(r.sent[id], msg)
	return nil
}

func (r *fakeRemote) CutDownConnection(id AccountID, status CloseStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cuts = append(r.cuts, cutCall{id, status})
	r.connected[id] = false
}

func (r *fakeRemote) setConnected(id AccountID, v bool) {
	r.mu.Lock()
	r.connected[id] = v
	r.mu.Unlock()
}

func (r *fakeRemote) cutCalls() []cutCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cutCall(nil), r.cuts...)
}

func (r *fakeRemote) finishFor(id AccountID) []Overcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Overcome
	for _, m := range r.sent[id] {
		if fg, ok := m.(FinishGame); ok {
			out = append(out, fg.Overcome)
		}
	}
	return out
}

type mapCall struct {
	op   string
	id   AccountID
	at   Coords
	move Move
}

// fakeMap 记录调用顺序的地图
type fakeMap struct {
	calls    []mapCall
	shuffles int
}

func (m *fakeMap) CheckGravity(id AccountID) { m.calls = append(m.calls, mapCall{op: "gravity", id: id}) }
func (m *fakeMap) CheckJump(id AccountID)    { m.calls = append(m.calls, mapCall{op: "jumpcheck", id: id}) }
func (m *fakeMap) CheckBonus(id AccountID)   { m.calls = append(m.calls, mapCall{op: "bonus", id: id}) }
func (m *fakeMap) StartJump(id AccountID)    { m.calls = append(m.calls, mapCall{op: "jump", id: id}) }
func (m *fakeMap) Shuffle()                  { m.shuffles++ }

func (m *fakeMap) DrillAt(at Coords, id AccountID) {
	m.calls = append(m.calls, mapCall{op: "drill", id: id, at: at})
}

func (m *fakeMap) MoveTo(move Move, id AccountID) {
	m.calls = append(m.calls, mapCall{op: "move", id: id, move: move})
}

func (m *fakeMap) ops(id AccountID) []string {
	var out []string
	for _, c := range m.calls {
		if c.id == id {
			out = append(out, c.op)
		}
	}
	return out
}

func (m *fakeMap) find(op string) (mapCall, bool) {
	for _, c := range m.calls {
		if c.op == op {
			return c, true
		}
	}
	return mapCall{}, false
}

// fakeInit 为每个会话返回同一个 fakeMap
type fakeInit struct {
	maps map[SessionID]*fakeMap
}

func (f *fakeInit) InitGameFor(s *GameSession) GameMap {
	if f.maps == nil {
		f.maps = make(map[SessionID]*fakeMap)
	}
	m := &fakeMap{}
	f.maps[s.ID()] = m
	return m
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock 手动触发的 AfterFunc，测试不依赖真实定时器
type manualClock struct {
	mu      sync.Mutex
	pending []*manualTimer
	fired   []time.Duration
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	c.pending = append(c.pending, t)
	return t
}

// fireNext 触发最早排期的定时器，返回其延迟
func (c *manualClock) fireNext() (time.Duration, bool) {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return 0, false
	}
	t := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()
	if t.stopped {
		return t.delay, true
	}
	c.mu.Lock()
	c.fired = append(c.fired, t.delay)
	c.mu.Unlock()
	t.f()
	return t.delay, true
}

func (c *manualClock) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

type testEnv struct {
	svc    *GameSessionService
	remote *fakeRemote
	snaps  *ClientSnapshotsService
	clock  *manualClock
	time   *TimeService
	init   *fakeInit
	logs   *observer.ObservedLogs
}

func newTestEnv(t *testing.T, settings Settings, ids ...AccountID) *testEnv {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core).Sugar()
	env := &testEnv{
		remote: newFakeRemote(ids...),
		snaps:  NewClientSnapshotsService(),
		clock:  &manualClock{},
		time:   NewTimeService(),
		init:   &fakeInit{},
		logs:   logs,
	}
	env.svc = NewGameSessionService(SessionDeps{
		IDs:       NewIDAllocator(1),
		Remote:    env.remote,
		Clock:     env.time,
		Init:      env.init,
		Scheduler: NewGameTaskScheduler(log, env.clock.AfterFunc),
		Snapshots: env.snaps,
		Log:       log,
	}, settings)
	return env
}
