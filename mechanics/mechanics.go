package mechanics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Settings 机制层参数
type Settings struct {
	TickInterval     time.Duration
	Swap             DecayPolicy
	Cooldowns        Cooldowns
	GameDuration     time.Duration // 0 表示不限时
	ScoresToWin      int           // 0 表示不按得分结束
	ParallelSessions int           // 单个 Tick 内并行结算的会话数上限
}

func DefaultSettings() Settings {
	return Settings{
		TickInterval: 50 * time.Millisecond,
		Swap: DecayPolicy{
			Start: 10 * time.Second,
			Delta: 500 * time.Millisecond,
			Min:   2 * time.Second,
		},
		Cooldowns: Cooldowns{
			Drill: 300 * time.Millisecond,
			Move:  100 * time.Millisecond,
			Jump:  800 * time.Millisecond,
		},
		GameDuration:     3 * time.Minute,
		ScoresToWin:      30,
		ParallelSessions: 8,
	}
}

// Mechanics 机制核心：等待队列配对、每 Tick 结算所有会话
type Mechanics struct {
	Sessions  *GameSessionService
	Snapshots *ClientSnapshotsService
	Scheduler *GameTaskScheduler
	Clock     *TimeService
	Metrics   *Metrics

	remote RemotePoint
	log    *zap.SugaredLogger

	waitMu  sync.Mutex
	waiters []AccountID
	singles []AccountID
}

func NewMechanics(remote RemotePoint, init GameInitService, settings Settings, log *zap.SugaredLogger) *Mechanics {
	clock := NewTimeService()
	metrics := &Metrics{}
	snaps := NewClientSnapshotsService()
	sched := NewGameTaskScheduler(log, nil)
	sessions := NewGameSessionService(SessionDeps{
		IDs:       NewIDAllocator(0),
		Remote:    remote,
		Clock:     clock,
		Init:      init,
		Scheduler: sched,
		Snapshots: snaps,
		Metrics:   metrics,
		Log:       log,
	}, settings)
	return &Mechanics{
		Sessions:  sessions,
		Snapshots: snaps,
		Scheduler: sched,
		Clock:     clock,
		Metrics:   metrics,
		remote:    remote,
		log:       log,
	}
}

// AddWaiter 进入对战等待队列
func (m *Mechanics) AddWaiter(id AccountID) {
	m.waitMu.Lock()
	m.waiters = append(m.waiters, id)
	m.waitMu.Unlock()
	m.log.Debugf("user %s is waiting for an opponent", id)
}

// AddSingleWaiter 单人模式，下一个 Tick 开局
func (m *Mechanics) AddSingleWaiter(id AccountID) {
	m.waitMu.Lock()
	m.singles = append(m.singles, id)
	m.waitMu.Unlock()
}

// AddClientSnapshot 网络协程调用：只追加，不结算。
// 追加后再次确认会话未变：期间若会话已被拆除，拆除的清理可能早于本次追加，
// 由这里补清，避免旧快照留到下一局。
func (m *Mechanics) AddClientSnapshot(id AccountID, snap ClientSnap) {
	session := m.Sessions.SessionForUser(id)
	if session == nil {
		m.Metrics.IncSnapsIgnored()
		return
	}
	m.Snapshots.PushClientSnap(id, snap)
	if m.Sessions.SessionForUser(id) != session {
		m.Snapshots.ClearForUser(id)
		m.Metrics.IncSnapsIgnored()
		return
	}
	m.Metrics.IncSnapsAccepted()
}

// Leave 玩家主动离开：正常终止其所在会话，并移出等待队列
func (m *Mechanics) Leave(id AccountID) {
	m.waitMu.Lock()
	m.waiters = without(m.waiters, id)
	m.singles = without(m.singles, id)
	m.waitMu.Unlock()
	if s := m.Sessions.SessionForUser(id); s != nil {
		m.Sessions.ForceTerminate(s, false)
	}
}

// Run 按 TickInterval 推进，直到 ctx 结束
func (m *Mechanics) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Sessions.Settings().TickInterval)
	defer ticker.Stop()
	defer m.Scheduler.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Step(ctx, now.Sub(last))
			last = now
		}
	}
}

// Step 一次完整的 Tick：推进时钟 → 配对 → 并行结算各会话
func (m *Mechanics) Step(ctx context.Context, frame time.Duration) {
	start := time.Now()
	m.Clock.Tick(frame)
	m.tryStartGames()

	settings := m.Sessions.Settings()
	g, _ := errgroup.WithContext(ctx)
	if settings.ParallelSessions > 0 {
		g.SetLimit(settings.ParallelSessions)
	}
	for _, session := range m.Sessions.Sessions() {
		session := session
		g.Go(func() error {
			m.stepSession(session, settings)
			return nil
		})
	}
	_ = g.Wait()
	m.Metrics.AddTick(time.Since(start).Nanoseconds())
}

func (m *Mechanics) stepSession(session *GameSession, settings Settings) {
	session.Lock()
	defer session.Unlock()
	if session.IsFinished() {
		return
	}
	if !m.Sessions.CheckHealthState(session) {
		m.Sessions.ForceTerminate(session, true)
		return
	}
	m.Snapshots.ProcessSnapshotsFor(session)
	if m.shouldFinish(session, settings) {
		m.Sessions.FinishGame(session)
		m.Sessions.ForceTerminate(session, false)
	}
}

func (m *Mechanics) shouldFinish(session *GameSession, settings Settings) bool {
	if settings.GameDuration > 0 && m.Clock.Now()-session.StartedAt() >= settings.GameDuration {
		return true
	}
	if settings.ScoresToWin <= 0 {
		return false
	}
	for _, p := range session.Players() {
		if MechanicOf(p).Score() >= settings.ScoresToWin {
			return true
		}
	}
	return false
}

// tryStartGames 按先来先配对；掉线或已在对局中的等待者被丢弃
func (m *Mechanics) tryStartGames() {
	m.waitMu.Lock()
	singles := m.singles
	m.singles = nil
	var ready []AccountID
	for _, id := range m.waiters {
		if m.remote.IsConnected(id) && !m.Sessions.IsPlaying(id) && !containsID(ready, id) {
			ready = append(ready, id)
		}
	}
	pairs := len(ready) / 2 * 2
	m.waiters = append([]AccountID(nil), ready[pairs:]...)
	m.waitMu.Unlock()

	for i := 0; i+1 < pairs; i += 2 {
		if _, err := m.Sessions.StartGame(ready[i], ready[i+1]); err != nil {
			m.log.Warnw("failed to start game", "first", ready[i], "second", ready[i+1], "error", err)
		}
	}
	for _, id := range singles {
		if !m.remote.IsConnected(id) {
			continue
		}
		if _, err := m.Sessions.StartGame(id, ""); err != nil {
			m.log.Warnw("failed to start single game", "user", id, "error", err)
		}
	}
}

func without(ids []AccountID, id AccountID) []AccountID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []AccountID, id AccountID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
