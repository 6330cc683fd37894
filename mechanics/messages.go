package mechanics

import (
	"fmt"
	"strings"
)

// AccountID 玩家账号标识（每个在线玩家唯一）
type AccountID string

func (id AccountID) String() string { return string(id) }

// Coords 指针坐标（地图单位）
type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Move 离散移动目标
type Move int

const (
	MoveNone Move = iota
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

var moveNames = [...]string{"none", "left", "right", "up", "down"}

func (m Move) String() string {
	if m < 0 || int(m) >= len(moveNames) {
		return fmt.Sprintf("move(%d)", int(m))
	}
	return moveNames[m]
}

func (m Move) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText 未知方向按 none 处理，越界由地图自行裁剪
func (m *Move) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for i, name := range moveNames {
		if name == s {
			*m = Move(i)
			return nil
		}
	}
	*m = MoveNone
	return nil
}

// ClientSnap 客户端一次输入采样，接收后不可变
type ClientSnap struct {
	Mouse     Coords `json:"mouse"`
	MoveTo    Move   `json:"moveTo"`
	IsDrill   bool   `json:"isDrill"`
	IsMove    bool   `json:"isMove"`
	IsJump    bool   `json:"isJump"`
	FrameTime int64  `json:"frameTime"`
}

// Overcome 对局结果
type Overcome string

const (
	OvercomeWin  Overcome = "WIN"
	OvercomeLose Overcome = "LOSE"
	OvercomeDraw Overcome = "DRAW"
)

// FinishGame 结束通知，分别发送给每个参与者
type FinishGame struct {
	Type     string   `json:"type"`
	Overcome Overcome `json:"overcome"`
}

func NewFinishGame(o Overcome) FinishGame {
	return FinishGame{Type: "finish", Overcome: o}
}
