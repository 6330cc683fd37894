// Package arena 提供地图/物理模拟：重力、跳跃、奖励拾取、挖掘与地图交换。
// Board 不是并发安全的，调用方需在会话锁内串行调用。
package arena

import (
	"math"
	"math/rand"

	"minerduel/mechanics"
)

// Cell 地图格子类型
type Cell byte

const (
	Empty Cell = iota
	Dirt
	Stone
	Bonus
)

// Rules 地图规则参数
type Rules struct {
	Width      int
	Height     int
	JumpHeight int // 一次跳跃上升的格数
	DrillReach int // 挖掘的最大切比雪夫距离
	DrillScore int
	BonusScore int
	BonusRate  float64 // 初始生成时泥土格变为奖励的概率
}

func DefaultRules() Rules {
	return Rules{
		Width:      24,
		Height:     16,
		JumpHeight: 2,
		DrillReach: 2,
		DrillScore: 1,
		BonusScore: 5,
		BonusRate:  0.05,
	}
}

type pos struct{ x, y int }

type miner struct {
	at       pos
	jumpLeft int
	user     *mechanics.GameUser
}

// Board 一局的地图。y 轴向下，第 0 行为顶部。
type Board struct {
	rules  Rules
	cells  [][]Cell
	miners map[mechanics.AccountID]*miner
	rnd    *rand.Rand
}

// NewBoard 生成地图：上方两行留空，其余为泥土，底行为石头，随机散布奖励
func NewBoard(rules Rules, seed int64) *Board {
	b := &Board{
		rules:  rules,
		miners: make(map[mechanics.AccountID]*miner),
		rnd:    rand.New(rand.NewSource(seed)),
	}
	b.cells = make([][]Cell, rules.Height)
	for y := range b.cells {
		row := make([]Cell, rules.Width)
		for x := range row {
			switch {
			case y < 2:
				row[x] = Empty
			case y == rules.Height-1:
				row[x] = Stone
			case b.rnd.Float64() < rules.BonusRate:
				row[x] = Bonus
			default:
				row[x] = Dirt
			}
		}
		b.cells[y] = row
	}
	return b
}

// Place 把玩家放到第 x 列顶部
func (b *Board) Place(user *mechanics.GameUser, x int) {
	x = clamp(x, 0, b.rules.Width-1)
	b.miners[user.AccountID()] = &miner{at: pos{x, 0}, user: user}
}

// Position 玩家所在格子
func (b *Board) Position(id mechanics.AccountID) (x, y int, ok bool) {
	m, ok := b.miners[id]
	if !ok {
		return 0, 0, false
	}
	return m.at.x, m.at.y, true
}

func (b *Board) Cell(x, y int) Cell {
	if !b.inside(x, y) {
		return Stone
	}
	return b.cells[y][x]
}

func (b *Board) SetCell(x, y int, c Cell) {
	if b.inside(x, y) {
		b.cells[y][x] = c
	}
}

// CheckGravity 脚下为空且不在上升中时下落一格
func (b *Board) CheckGravity(id mechanics.AccountID) {
	m, ok := b.miners[id]
	if !ok || m.jumpLeft > 0 {
		return
	}
	if b.passable(m.at.x, m.at.y+1) {
		m.at.y++
	}
}

// CheckJump 上升阶段每 Tick 升一格，碰顶即结束
func (b *Board) CheckJump(id mechanics.AccountID) {
	m, ok := b.miners[id]
	if !ok || m.jumpLeft == 0 {
		return
	}
	if b.passable(m.at.x, m.at.y-1) {
		m.at.y--
		m.jumpLeft--
		return
	}
	m.jumpLeft = 0
}

// CheckBonus 站在奖励格上时拾取
func (b *Board) CheckBonus(id mechanics.AccountID) {
	m, ok := b.miners[id]
	if !ok || b.Cell(m.at.x, m.at.y) != Bonus {
		return
	}
	b.cells[m.at.y][m.at.x] = Empty
	mechanics.MechanicOf(m.user).AddScore(b.rules.BonusScore)
}

// StartJump 只有站在实地上才能起跳
func (b *Board) StartJump(id mechanics.AccountID) {
	m, ok := b.miners[id]
	if !ok || m.jumpLeft > 0 || b.passable(m.at.x, m.at.y+1) {
		return
	}
	m.jumpLeft = b.rules.JumpHeight
}

// DrillAt 挖掉射程内的泥土（奖励格保留，需走过去拾取）
func (b *Board) DrillAt(at mechanics.Coords, id mechanics.AccountID) {
	m, ok := b.miners[id]
	if !ok {
		return
	}
	x, y := int(math.Floor(at.X)), int(math.Floor(at.Y))
	if abs(x-m.at.x) > b.rules.DrillReach || abs(y-m.at.y) > b.rules.DrillReach {
		return
	}
	if b.Cell(x, y) != Dirt {
		return
	}
	b.cells[y][x] = Empty
	mechanics.MechanicOf(m.user).AddScore(b.rules.DrillScore)
}

// MoveTo 左右移动一格；上下由重力和跳跃决定
func (b *Board) MoveTo(move mechanics.Move, id mechanics.AccountID) {
	m, ok := b.miners[id]
	if !ok {
		return
	}
	dx := 0
	switch move {
	case mechanics.MoveLeft:
		dx = -1
	case mechanics.MoveRight:
		dx = 1
	default:
		return
	}
	if b.passable(m.at.x+dx, m.at.y) {
		m.at.x += dx
	}
}

// Shuffle 随机交换两个未被占据的格子
func (b *Board) Shuffle() {
	w, h := b.rules.Width, b.rules.Height
	for attempt := 0; attempt < 8; attempt++ {
		a := pos{b.rnd.Intn(w), b.rnd.Intn(h - 1)}
		c := pos{b.rnd.Intn(w), b.rnd.Intn(h - 1)}
		if a == c || b.occupied(a) || b.occupied(c) || b.cells[a.y][a.x] == b.cells[c.y][c.x] {
			continue
		}
		b.cells[a.y][a.x], b.cells[c.y][c.x] = b.cells[c.y][c.x], b.cells[a.y][a.x]
		return
	}
}

func (b *Board) occupied(p pos) bool {
	for _, m := range b.miners {
		if m.at == p {
			return true
		}
	}
	return false
}

func (b *Board) passable(x, y int) bool {
	c := b.Cell(x, y)
	return c == Empty || c == Bonus
}

func (b *Board) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.rules.Width && y < b.rules.Height
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
