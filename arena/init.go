package arena

import (
	"go.uber.org/zap"

	"minerduel/mechanics"
)

// Initializer 会话开始时生成地图并摆放玩家
type Initializer struct {
	Rules Rules
	// Seed 为 0 时每局使用会话 ID 作为种子
	Seed int64
	Log  *zap.SugaredLogger
}

func (i *Initializer) InitGameFor(session *mechanics.GameSession) mechanics.GameMap {
	seed := i.Seed
	if seed == 0 {
		seed = int64(session.ID()) + 1
	}
	b := NewBoard(i.Rules, seed)
	players := session.Players()
	// 均匀分布在地图宽度上
	for n, p := range players {
		b.Place(p, (n+1)*i.Rules.Width/(len(players)+1))
	}
	if i.Log != nil {
		i.Log.Debugf("board %dx%d ready for session %s (seed=%d)", i.Rules.Width, i.Rules.Height, session.ID(), seed)
	}
	return b
}
