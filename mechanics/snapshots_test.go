package mechanics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconcileSession(t *testing.T, cd Cooldowns, ids ...AccountID) (*GameSession, *fakeMap, *TimeService) {
	t.Helper()
	clock := NewTimeService()
	var users []*GameUser
	for _, id := range ids {
		users = append(users, NewGameUser(id, clock, cd))
	}
	var second *GameUser
	if len(users) > 1 {
		second = users[1]
	}
	s := newGameSession(1, users[0], second, 0)
	m := &fakeMap{}
	s.gameMap = m
	return s, m, clock
}

func TestProcessSnapshots_FirstActionWinsLastStateWins(t *testing.T) {
	s, m, _ := newReconcileSession(t, Cooldowns{}, "alice")
	svc := NewClientSnapshotsService()
	svc.PushClientSnap("alice", ClientSnap{IsDrill: true, Mouse: Coords{X: 1, Y: 5}})
	svc.PushClientSnap("alice", ClientSnap{IsDrill: true, Mouse: Coords{X: 2, Y: 5}})
	svc.PushClientSnap("alice", ClientSnap{IsMove: true, MoveTo: MoveLeft, Mouse: Coords{X: 3, Y: 6}})

	svc.ProcessSnapshotsFor(s)

	drill, ok := m.find("drill")
	require.True(t, ok)
	assert.Equal(t, Coords{X: 1, Y: 5}, drill.at)
	move, ok := m.find("move")
	require.True(t, ok)
	assert.Equal(t, MoveLeft, move.move)
	_, jumped := m.find("jump")
	assert.False(t, jumped)

	assert.Equal(t, Coords{X: 3, Y: 6}, MouseOf(s.First()).Mouse())
	assert.Equal(t, MoveLeft, MoveOf(s.First()).Move())
	assert.Empty(t, svc.SnapsForUser("alice"))
}

func TestProcessSnapshots_FixedOrder(t *testing.T) {
	s, m, _ := newReconcileSession(t, Cooldowns{}, "alice")
	svc := NewClientSnapshotsService()
	// 到达顺序与结算顺序无关：环境 → 挖掘 → 移动 → 跳跃
	svc.PushClientSnap("alice", ClientSnap{IsJump: true})
	svc.PushClientSnap("alice", ClientSnap{IsMove: true, MoveTo: MoveRight})
	svc.PushClientSnap("alice", ClientSnap{IsDrill: true})

	svc.ProcessSnapshotsFor(s)

	assert.Equal(t, []string{"gravity", "jumpcheck", "bonus", "drill", "move", "jump"}, m.ops("alice"))
	// 持续状态取最后一个快照，即使它没有移动意图
	assert.Equal(t, MoveNone, MoveOf(s.First()).Move())
}

func TestProcessSnapshots_EmptyBufferStillRunsEnvironment(t *testing.T) {
	s, m, _ := newReconcileSession(t, Cooldowns{}, "alice", "bob")
	MouseOf(s.Second()).SetMouse(Coords{X: 9, Y: 9})
	svc := NewClientSnapshotsService()

	svc.ProcessSnapshotsFor(s)

	assert.Equal(t, []string{"gravity", "jumpcheck", "bonus"}, m.ops("alice"))
	assert.Equal(t, []string{"gravity", "jumpcheck", "bonus"}, m.ops("bob"))
	assert.Equal(t, Coords{X: 9, Y: 9}, MouseOf(s.Second()).Mouse())
}

func TestProcessSnapshots_BufferIsolation(t *testing.T) {
	s, m, _ := newReconcileSession(t, Cooldowns{}, "alice", "bob")
	svc := NewClientSnapshotsService()
	for i := 0; i < 3; i++ {
		svc.PushClientSnap("alice", ClientSnap{IsDrill: true, Mouse: Coords{X: float64(i)}})
	}
	// 不在本会话中的玩家的缓冲不受影响
	svc.PushClientSnap("carol", ClientSnap{IsJump: true})

	svc.ProcessSnapshotsFor(s)

	assert.Empty(t, svc.SnapsForUser("alice"))
	assert.Empty(t, svc.SnapsForUser("bob"))
	assert.Len(t, svc.SnapsForUser("carol"), 1)
	assert.Equal(t, []string{"gravity", "jumpcheck", "bonus"}, m.ops("bob"))
	assert.Equal(t, Coords{}, MouseOf(s.Second()).Mouse())
	assert.Equal(t, Coords{X: 2}, MouseOf(s.First()).Mouse())
}

func TestProcessSnapshots_CooldownGatesActions(t *testing.T) {
	cd := Cooldowns{Drill: 200 * time.Millisecond, Move: 200 * time.Millisecond, Jump: 200 * time.Millisecond}
	s, m, clock := newReconcileSession(t, cd, "alice")
	svc := NewClientSnapshotsService()
	all := ClientSnap{IsDrill: true, IsMove: true, IsJump: true, MoveTo: MoveRight}

	svc.PushClientSnap("alice", all)
	svc.ProcessSnapshotsFor(s)
	assert.Equal(t, []string{"gravity", "jumpcheck", "bonus", "drill", "move", "jump"}, m.ops("alice"))

	m.calls = nil
	clock.Tick(100 * time.Millisecond)
	svc.PushClientSnap("alice", all)
	svc.ProcessSnapshotsFor(s)
	assert.Equal(t, []string{"gravity", "jumpcheck", "bonus"}, m.ops("alice"))
	// 被冷却拦下的动作不影响持续状态
	assert.Equal(t, MoveRight, MoveOf(s.First()).Move())

	m.calls = nil
	clock.Tick(100 * time.Millisecond)
	svc.PushClientSnap("alice", all)
	svc.ProcessSnapshotsFor(s)
	assert.Equal(t, []string{"gravity", "jumpcheck", "bonus", "drill", "move", "jump"}, m.ops("alice"))
}

func TestClientSnapshotsService_ConcurrentPushAndProcess(t *testing.T) {
	s, _, _ := newReconcileSession(t, Cooldowns{}, "alice")
	svc := NewClientSnapshotsService()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				svc.PushClientSnap("alice", ClientSnap{Mouse: Coords{X: float64(i)}})
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		s.Lock()
		svc.ProcessSnapshotsFor(s)
		s.Unlock()
		select {
		case <-done:
			s.Lock()
			svc.ProcessSnapshotsFor(s)
			s.Unlock()
			assert.Empty(t, svc.SnapsForUser("alice"))
			return
		default:
		}
	}
}

func TestClientSnapshotsService_ClearAndReset(t *testing.T) {
	svc := NewClientSnapshotsService()
	svc.PushClientSnap("alice", ClientSnap{})
	svc.PushClientSnap("bob", ClientSnap{})

	svc.ClearForUser("alice")
	assert.Empty(t, svc.SnapsForUser("alice"))
	assert.Len(t, svc.SnapsForUser("bob"), 1)

	svc.Reset()
	assert.Empty(t, svc.SnapsForUser("bob"))
}
