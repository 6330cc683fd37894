package mechanics

import "sync"

// ClientSnapshotsService 按玩家缓存两次 Tick 之间的客户端快照，并在每个 Tick 统一结算。
// 网络协程只追加，Tick 协程是唯一的取出方。
type ClientSnapshotsService struct {
	mu    sync.Mutex
	snaps map[AccountID][]ClientSnap
}

func NewClientSnapshotsService() *ClientSnapshotsService {
	return &ClientSnapshotsService{snaps: make(map[AccountID][]ClientSnap)}
}

// PushClientSnap 追加一条快照，保持到达顺序
func (c *ClientSnapshotsService) PushClientSnap(user AccountID, snap ClientSnap) {
	c.mu.Lock()
	c.snaps[user] = append(c.snaps[user], snap)
	c.mu.Unlock()
}

// SnapsForUser 当前缓冲内容的副本
func (c *ClientSnapshotsService) SnapsForUser(user AccountID) []ClientSnap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ClientSnap(nil), c.snaps[user]...)
}

// drain 一次性取走该玩家的全部快照
func (c *ClientSnapshotsService) drain(user AccountID) []ClientSnap {
	c.mu.Lock()
	defer c.mu.Unlock()
	snaps := c.snaps[user]
	delete(c.snaps, user)
	return snaps
}

func (c *ClientSnapshotsService) ClearForUser(user AccountID) {
	c.mu.Lock()
	delete(c.snaps, user)
	c.mu.Unlock()
}

func (c *ClientSnapshotsService) Reset() {
	c.mu.Lock()
	c.snaps = make(map[AccountID][]ClientSnap)
	c.mu.Unlock()
}

// ProcessSnapshotsFor 结算一个会话本 Tick 的输入。调用方持有会话锁。
// 顺序固定：环境检查 → 挖掘 → 移动 → 跳跃 → 持续状态。
// 动作取首个匹配的快照，持续状态取最后一个快照。
func (c *ClientSnapshotsService) ProcessSnapshotsFor(session *GameSession) {
	gm := session.Map()
	for _, player := range session.Players() {
		id := player.AccountID()
		snaps := c.drain(id)
		if gm != nil {
			gm.CheckGravity(id)
			gm.CheckJump(id)
			gm.CheckBonus(id)
		}
		if len(snaps) == 0 {
			continue
		}

		mech := MechanicOf(player)
		if snap, ok := firstSnap(snaps, func(s ClientSnap) bool { return s.IsDrill }); ok && mech.TryDrill() && gm != nil {
			gm.DrillAt(snap.Mouse, id)
		}
		if snap, ok := firstSnap(snaps, func(s ClientSnap) bool { return s.IsMove }); ok && mech.TryMove() && gm != nil {
			gm.MoveTo(snap.MoveTo, id)
		}
		if _, ok := firstSnap(snaps, func(s ClientSnap) bool { return s.IsJump }); ok && mech.TryJump() && gm != nil {
			gm.StartJump(id)
		}

		last := snaps[len(snaps)-1]
		MouseOf(player).SetMouse(last.Mouse)
		MoveOf(player).SetMove(last.MoveTo)
	}
}

func firstSnap(snaps []ClientSnap, match func(ClientSnap) bool) (ClientSnap, bool) {
	for _, s := range snaps {
		if match(s) {
			return s, true
		}
	}
	return ClientSnap{}, false
}
