package mechanics

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrAlreadyPlaying 参与者已在另一局进行中
var ErrAlreadyPlaying = errors.New("user already has a live session")

// GameSessionService 会话注册表：唯一允许修改会话成员关系的地方
type GameSessionService struct {
	mu       sync.RWMutex
	usersMap map[AccountID]*GameSession
	sessions []*GameSession // 按创建顺序，用于健康检查

	ids       *IDAllocator
	remote    RemotePoint
	clock     *TimeService
	initSvc   GameInitService
	scheduler *GameTaskScheduler
	snapshots *ClientSnapshotsService
	metrics   *Metrics
	log       *zap.SugaredLogger

	settingsMu sync.RWMutex
	settings   Settings
}

// SessionDeps 注册表依赖的协作者
type SessionDeps struct {
	IDs       *IDAllocator
	Remote    RemotePoint
	Clock     *TimeService
	Init      GameInitService
	Scheduler *GameTaskScheduler
	Snapshots *ClientSnapshotsService
	Metrics   *Metrics
	Log       *zap.SugaredLogger
}

func NewGameSessionService(deps SessionDeps, settings Settings) *GameSessionService {
	if deps.IDs == nil {
		deps.IDs = NewIDAllocator(0)
	}
	if deps.Metrics == nil {
		deps.Metrics = &Metrics{}
	}
	return &GameSessionService{
		usersMap:  make(map[AccountID]*GameSession),
		ids:       deps.IDs,
		remote:    deps.Remote,
		clock:     deps.Clock,
		initSvc:   deps.Init,
		scheduler: deps.Scheduler,
		snapshots: deps.Snapshots,
		metrics:   deps.Metrics,
		log:       deps.Log,
		settings:  settings,
	}
}

// Settings 当前配置副本
func (s *GameSessionService) Settings() Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// SetSwapPolicy 热更新地图交换节奏，只影响之后开始的会话
func (s *GameSessionService) SetSwapPolicy(p DecayPolicy) {
	s.settingsMu.Lock()
	s.settings.Swap = p
	s.settingsMu.Unlock()
}

// Sessions 存活会话的快照（按创建顺序）
func (s *GameSessionService) Sessions() []*GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*GameSession(nil), s.sessions...)
}

func (s *GameSessionService) SessionForUser(id AccountID) *GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersMap[id]
}

func (s *GameSessionService) IsPlaying(id AccountID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.usersMap[id]
	return ok
}

// CheckHealthState 所有参与者连接都存活时返回 true
func (s *GameSessionService) CheckHealthState(session *GameSession) bool {
	for _, p := range session.Players() {
		if !s.remote.IsConnected(p.AccountID()) {
			return false
		}
	}
	return true
}

// StartGame 创建会话；second 为空时为单人模式
func (s *GameSessionService) StartGame(first, second AccountID) (*GameSession, error) {
	settings := s.Settings()

	s.mu.Lock()
	for _, id := range []AccountID{first, second} {
		if id == "" {
			continue
		}
		if _, ok := s.usersMap[id]; ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("start game for %s: %w", id, ErrAlreadyPlaying)
		}
	}
	if first == second {
		s.mu.Unlock()
		return nil, fmt.Errorf("start game for %s against itself: %w", first, ErrInvalidArgument)
	}
	var secondUser *GameUser
	if second != "" {
		secondUser = NewGameUser(second, s.clock, settings.Cooldowns)
	}
	session := newGameSession(s.ids.Next(), NewGameUser(first, s.clock, settings.Cooldowns), secondUser, s.clock.Now())
	s.sessions = append(s.sessions, session)
	for _, p := range session.Players() {
		s.usersMap[p.AccountID()] = session
	}
	s.mu.Unlock()

	if s.initSvc != nil {
		session.Lock()
		session.gameMap = s.initSvc.InitGameFor(session)
		session.Unlock()
	}
	s.scheduler.Schedule(settings.Swap.Start, NewSwapTask(session, settings.Swap, s.metrics))
	s.metrics.IncStarted()
	s.log.Infof("Game session %s started. %s", session.ID(), session)
	return session, nil
}

// ForceTerminate 幂等的会话拆除。只有真正从存活集合中移除会话的那次调用
// 才会断开连接并记录日志；缓冲清理每次都执行。
func (s *GameSessionService) ForceTerminate(session *GameSession, isError bool) {
	s.mu.Lock()
	exists := false
	for i, live := range s.sessions {
		if live == session {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			exists = true
			break
		}
	}
	session.SetFinished()
	for _, p := range session.Players() {
		// 玩家可能已进入新会话，只移除指向本会话的映射
		if s.usersMap[p.AccountID()] == session {
			delete(s.usersMap, p.AccountID())
		}
	}
	s.mu.Unlock()

	if exists {
		status := CloseNormal
		if isError {
			status = CloseServerError
		}
		for _, p := range session.Players() {
			s.remote.CutDownConnection(p.AccountID(), status)
		}
		s.metrics.IncTerminated(isError)
		if isError {
			s.log.Infof("Game session %s was terminated due to error. %s", session.ID(), session)
		} else {
			s.log.Infof("Game session %s was cleaned. %s", session.ID(), session)
		}
	}
	for _, p := range session.Players() {
		s.snapshots.ClearForUser(p.AccountID())
	}
}

// FinishGame 标记结束、按得分判定胜负并通知每个参与者。
// 单个参与者投递失败只记录日志，不影响另一方，也不回滚结束状态。
func (s *GameSessionService) FinishGame(session *GameSession) {
	session.SetFinished()
	s.metrics.IncFinished()

	for _, p := range session.Players() {
		overcome := s.overcomeFor(session, p)
		s.log.Infof("Game session %s finished for %s: %s", session.ID(), p.AccountID(), overcome)
		if err := s.remote.SendMessageToUser(p.AccountID(), NewFinishGame(overcome)); err != nil {
			s.metrics.IncDeliveryFailure()
			s.log.Warnw("Failed to send FinishGame message",
				"user", p.AccountID(), "session", session.ID(), "error", err)
		}
	}
}

func (s *GameSessionService) overcomeFor(session *GameSession, p *GameUser) Overcome {
	score := MechanicOf(p).Score()
	enemy, err := session.Enemy(p.AccountID())
	if err != nil || enemy == nil {
		// 单人局：没有得分目标时无胜负可言
		target := s.Settings().ScoresToWin
		switch {
		case target <= 0:
			return OvercomeDraw
		case score >= target:
			return OvercomeWin
		default:
			return OvercomeLose
		}
	}
	return Outcome(score, MechanicOf(enemy).Score())
}

// Outcome 按严格数值比较判定己方结果
func Outcome(mine, theirs int) Overcome {
	switch {
	case mine == theirs:
		return OvercomeDraw
	case mine > theirs:
		return OvercomeWin
	default:
		return OvercomeLose
	}
}
