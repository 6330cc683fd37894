package mechanics

import "time"

// PartKind 能力部件标签
type PartKind int

const (
	PartMechanic PartKind = iota
	PartMove
	PartMouse
)

func (k PartKind) String() string {
	switch k {
	case PartMechanic:
		return "mechanic"
	case PartMove:
		return "move"
	case PartMouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// GamePart 玩家身上一块独立的可变状态
type GamePart interface {
	Kind() PartKind
}

// Cooldowns 三种动作各自的冷却时长
type Cooldowns struct {
	Drill time.Duration
	Move  time.Duration
	Jump  time.Duration
}

// MechanicPart 动作冷却与得分。冷却时间以 TimeService 为准。
type MechanicPart struct {
	clock     *TimeService
	cooldowns Cooldowns

	score     int
	lastDrill time.Duration
	lastMove  time.Duration
	lastJump  time.Duration
	used      [3]bool
}

func NewMechanicPart(clock *TimeService, cd Cooldowns) *MechanicPart {
	return &MechanicPart{clock: clock, cooldowns: cd}
}

func (p *MechanicPart) Kind() PartKind { return PartMechanic }

func (p *MechanicPart) Score() int { return p.score }

func (p *MechanicPart) AddScore(n int) { p.score += n }

func (p *MechanicPart) TryDrill() bool { return p.try(0, &p.lastDrill, p.cooldowns.Drill) }

func (p *MechanicPart) TryMove() bool { return p.try(1, &p.lastMove, p.cooldowns.Move) }

func (p *MechanicPart) TryJump() bool { return p.try(2, &p.lastJump, p.cooldowns.Jump) }

// try 冷却已过则记录本次时间并放行；首次使用总是放行
func (p *MechanicPart) try(slot int, last *time.Duration, cd time.Duration) bool {
	now := p.clock.Now()
	if p.used[slot] && now-*last < cd {
		return false
	}
	p.used[slot] = true
	*last = now
	return true
}

// MovePart 当前按住的移动方向（持续状态）
type MovePart struct {
	move Move
}

func (p *MovePart) Kind() PartKind { return PartMove }
func (p *MovePart) Move() Move     { return p.move }
func (p *MovePart) SetMove(m Move) { p.move = m }

// MousePart 当前指针位置（持续状态）
type MousePart struct {
	mouse Coords
}

func (p *MousePart) Kind() PartKind    { return PartMouse }
func (p *MousePart) Mouse() Coords     { return p.mouse }
func (p *MousePart) SetMouse(c Coords) { p.mouse = c }
