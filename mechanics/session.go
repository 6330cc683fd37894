package mechanics

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrInvalidArgument 编程错误类：调用方传入了不合法的参数
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotParticipant 查询对手时账号不在该会话中
	ErrNotParticipant = fmt.Errorf("%w: user is not a participant of the session", ErrInvalidArgument)
)

// GameSession 一局对战（或单人）。finished 一旦置位不会回退。
type GameSession struct {
	id         SessionID
	first      *GameUser
	second     *GameUser // 单人模式为 nil
	singlePlay bool
	startedAt  time.Duration
	finished   atomic.Bool

	// mu 会话级互斥：快照处理与定时任务都在此锁内修改会话状态
	mu      sync.Mutex
	gameMap GameMap
}

func newGameSession(id SessionID, first, second *GameUser, startedAt time.Duration) *GameSession {
	return &GameSession{
		id:         id,
		first:      first,
		second:     second,
		singlePlay: second == nil,
		startedAt:  startedAt,
	}
}

func (s *GameSession) ID() SessionID            { return s.id }
func (s *GameSession) First() *GameUser         { return s.first }
func (s *GameSession) Second() *GameUser        { return s.second }
func (s *GameSession) IsSinglePlay() bool       { return s.singlePlay }
func (s *GameSession) IsFinished() bool         { return s.finished.Load() }
func (s *GameSession) SetFinished()             { s.finished.Store(true) }
func (s *GameSession) StartedAt() time.Duration { return s.startedAt }
func (s *GameSession) Map() GameMap             { return s.gameMap }

func (s *GameSession) Lock()   { s.mu.Lock() }
func (s *GameSession) Unlock() { s.mu.Unlock() }

// Players 参与者列表，单人模式只有 first
func (s *GameSession) Players() []*GameUser {
	if s.second == nil {
		return []*GameUser{s.first}
	}
	return []*GameUser{s.first, s.second}
}

// Enemy 返回对手；单人模式返回 nil
func (s *GameSession) Enemy(id AccountID) (*GameUser, error) {
	if s.second == nil {
		if id == s.first.accountID {
			return nil, nil
		}
		return nil, fmt.Errorf("enemy of %s in session %s: %w", id, s.id, ErrNotParticipant)
	}
	switch id {
	case s.first.accountID:
		return s.second, nil
	case s.second.accountID:
		return s.first, nil
	}
	return nil, fmt.Errorf("enemy of %s in session %s: %w", id, s.id, ErrNotParticipant)
}

func (s *GameSession) String() string {
	if s.second == nil {
		return fmt.Sprintf("[sessionId=%s, first=%s, single]", s.id, s.first)
	}
	return fmt.Sprintf("[sessionId=%s, first=%s, second=%s]", s.id, s.first, s.second)
}
