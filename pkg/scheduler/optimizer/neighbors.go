package optimizer

import (
	"math/rand"

	"github.com/paiban/roster/pkg/model"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveChange    MoveType = iota // 改变一个单元格
	MoveSwapDays                  // 同一员工交换两天
	MoveSwapStaff                 // 同一天交换两名员工
	MoveRectangle                 // 两名员工在两天上交叉交换
	numMoveTypes
)

// String 返回移动名称
func (t MoveType) String() string {
	switch t {
	case MoveSwapDays:
		return "swap_days"
	case MoveSwapStaff:
		return "swap_staff"
	case MoveRectangle:
		return "rectangle"
	default:
		return "change"
	}
}

// CellChange 单元格变化
type CellChange struct {
	Staff, Day int
	From, To   model.ShiftID
}

// Move 邻域移动操作
type Move struct {
	Type  MoveType
	Cells []CellChange
}

// Rows 受影响的员工
func (m Move) Rows() []int {
	return uniq(m.Cells, func(c CellChange) int { return c.Staff })
}

// Days 受影响的日期
func (m Move) Days() []int {
	return uniq(m.Cells, func(c CellChange) int { return c.Day })
}

func uniq(cells []CellChange, key func(CellChange) int) []int {
	out := make([]int, 0, 2)
	for _, c := range cells {
		k := key(c)
		seen := false
		for _, x := range out {
			if x == k {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, k)
		}
	}
	return out
}

// NeighborhoodGenerator 邻域生成器，只生成取值域内的移动
type NeighborhoodGenerator struct {
	rng         *rand.Rand
	allowed     [][][]bool // allowed[员工][日期][班次]
	free        [][2]int   // 取值域大于 1 的单元格
	moveWeights [numMoveTypes]float64
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(rng *rand.Rand, domains [][][]model.ShiftID, vocabLen int) *NeighborhoodGenerator {
	n := &NeighborhoodGenerator{
		rng:     rng,
		allowed: make([][][]bool, len(domains)),
		moveWeights: [numMoveTypes]float64{
			MoveChange:    0.40,
			MoveSwapDays:  0.25,
			MoveSwapStaff: 0.25,
			MoveRectangle: 0.10,
		},
	}
	for s, row := range domains {
		n.allowed[s] = make([][]bool, len(row))
		for d, dom := range row {
			n.allowed[s][d] = make([]bool, vocabLen)
			for _, v := range dom {
				n.allowed[s][d][v] = true
			}
			if len(dom) > 1 {
				n.free = append(n.free, [2]int{s, d})
			}
		}
	}
	return n
}

// SetMoveWeights 设置移动类型权重
func (n *NeighborhoodGenerator) SetMoveWeights(weights map[MoveType]float64) {
	for t, w := range weights {
		if t >= 0 && t < numMoveTypes {
			n.moveWeights[t] = w
		}
	}
}

func (n *NeighborhoodGenerator) allows(s, d int, v model.ShiftID) bool {
	return n.allowed[s][d][v]
}

// selectMoveType 按权重选择移动类型
func (n *NeighborhoodGenerator) selectMoveType() MoveType {
	total := 0.0
	for _, w := range n.moveWeights {
		total += w
	}
	r := n.rng.Float64() * total
	for t, w := range n.moveWeights {
		r -= w
		if r < 0 {
			return MoveType(t)
		}
	}
	return MoveChange
}

// Generate 在当前排班上随机生成一个移动，失败返回 false
func (n *NeighborhoodGenerator) Generate(grid *model.Assignment) (Move, bool) {
	if len(n.free) == 0 {
		return Move{}, false
	}
	switch n.selectMoveType() {
	case MoveSwapDays:
		return n.swapDays(grid)
	case MoveSwapStaff:
		return n.swapStaff(grid)
	case MoveRectangle:
		return n.rectangle(grid)
	default:
		return n.change(grid)
	}
}

func (n *NeighborhoodGenerator) change(grid *model.Assignment) (Move, bool) {
	cell := n.free[n.rng.Intn(len(n.free))]
	s, d := cell[0], cell[1]
	cur := grid.Get(s, d)
	opts := n.allowed[s][d]
	// 随机起点扫描，保证均匀
	start := n.rng.Intn(len(opts))
	for i := 0; i < len(opts); i++ {
		v := model.ShiftID((start + i) % len(opts))
		if opts[v] && v != cur {
			return Move{Type: MoveChange, Cells: []CellChange{{s, d, cur, v}}}, true
		}
	}
	return Move{}, false
}

func (n *NeighborhoodGenerator) swapDays(grid *model.Assignment) (Move, bool) {
	cell := n.free[n.rng.Intn(len(n.free))]
	s, d1 := cell[0], cell[1]
	d2 := n.rng.Intn(grid.Days())
	a, b := grid.Get(s, d1), grid.Get(s, d2)
	if d1 == d2 || a == b || !n.allows(s, d1, b) || !n.allows(s, d2, a) {
		return Move{}, false
	}
	return Move{Type: MoveSwapDays, Cells: []CellChange{{s, d1, a, b}, {s, d2, b, a}}}, true
}

func (n *NeighborhoodGenerator) swapStaff(grid *model.Assignment) (Move, bool) {
	cell := n.free[n.rng.Intn(len(n.free))]
	s1, d := cell[0], cell[1]
	s2 := n.rng.Intn(grid.Staff())
	a, b := grid.Get(s1, d), grid.Get(s2, d)
	if s1 == s2 || a == b || !n.allows(s1, d, b) || !n.allows(s2, d, a) {
		return Move{}, false
	}
	return Move{Type: MoveSwapStaff, Cells: []CellChange{{s1, d, a, b}, {s2, d, b, a}}}, true
}

func (n *NeighborhoodGenerator) rectangle(grid *model.Assignment) (Move, bool) {
	cell := n.free[n.rng.Intn(len(n.free))]
	s1, d1 := cell[0], cell[1]
	s2 := n.rng.Intn(grid.Staff())
	d2 := n.rng.Intn(grid.Days())
	if s1 == s2 || d1 == d2 {
		return Move{}, false
	}
	var cells []CellChange
	for _, d := range [2]int{d1, d2} {
		a, b := grid.Get(s1, d), grid.Get(s2, d)
		if a == b {
			continue
		}
		if !n.allows(s1, d, b) || !n.allows(s2, d, a) {
			return Move{}, false
		}
		cells = append(cells, CellChange{s1, d, a, b}, CellChange{s2, d, b, a})
	}
	if len(cells) < 4 {
		return Move{}, false
	}
	return Move{Type: MoveRectangle, Cells: cells}, true
}
