package mechanics

import "fmt"

// GameUser 会话中的玩家：能力部件按标签注册，而非固定字段
type GameUser struct {
	accountID AccountID
	parts     map[PartKind]GamePart
}

// NewGameUser 创建玩家并挂载默认的三个部件
func NewGameUser(id AccountID, clock *TimeService, cd Cooldowns) *GameUser {
	u := &GameUser{accountID: id, parts: make(map[PartKind]GamePart, 3)}
	u.AddPart(NewMechanicPart(clock, cd))
	u.AddPart(&MovePart{})
	u.AddPart(&MousePart{})
	return u
}

func (u *GameUser) AccountID() AccountID { return u.accountID }

// AddPart 注册（或替换）一个部件
func (u *GameUser) AddPart(p GamePart) {
	u.parts[p.Kind()] = p
}

// ClaimPart 按标签取部件；未注册返回 nil
func (u *GameUser) ClaimPart(kind PartKind) GamePart {
	return u.parts[kind]
}

func (u *GameUser) String() string {
	return fmt.Sprintf("{account=%s}", u.accountID)
}

// claim 类型化取部件，缺失视为编程错误
func claim[T GamePart](u *GameUser, kind PartKind) T {
	p, ok := u.parts[kind].(T)
	if !ok {
		panic(fmt.Sprintf("game user %s has no %s part", u.accountID, kind))
	}
	return p
}

func MechanicOf(u *GameUser) *MechanicPart { return claim[*MechanicPart](u, PartMechanic) }

func MoveOf(u *GameUser) *MovePart { return claim[*MovePart](u, PartMove) }

func MouseOf(u *GameUser) *MousePart { return claim[*MousePart](u, PartMouse) }
