package mechanics

// CloseStatus 强制断开连接时携带的状态
type CloseStatus int

const (
	CloseNormal CloseStatus = iota
	CloseServerError
)

func (s CloseStatus) String() string {
	if s == CloseServerError {
		return "SERVER_ERROR"
	}
	return "NORMAL"
}

// RemotePoint 连接网关：投递消息、存活检查、强制断开
type RemotePoint interface {
	IsConnected(id AccountID) bool
	SendMessageToUser(id AccountID, msg any) error
	CutDownConnection(id AccountID, status CloseStatus)
}

// GameMap 地图/物理模拟，所有操作以账号为键。
// 实现无需自带锁：调用方在会话锁内串行调用。
type GameMap interface {
	CheckGravity(id AccountID)
	CheckJump(id AccountID)
	CheckBonus(id AccountID)
	StartJump(id AccountID)
	DrillAt(at Coords, id AccountID)
	MoveTo(move Move, id AccountID)
	// Shuffle 由定时交换任务触发的全局环境变化
	Shuffle()
}

// GameInitService 会话开始时调用一次，为会话构建地图
type GameInitService interface {
	InitGameFor(session *GameSession) GameMap
}
