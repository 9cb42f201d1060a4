package solver

import (
	"context"
	"math/rand"
	"sort"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// ConstructStats 构造阶段统计
type ConstructStats struct {
	Nodes      int64 `json:"nodes"`
	Backtracks int64 `json:"backtracks"`
}

// constructor 按日期优先的完备深度优先搜索，逐格带行前瞻与列检查
type constructor struct {
	ctx  context.Context
	plan *constraint.Plan
	doms Domains
	rows []*rowModel
	rng  *rand.Rand

	rowHard []constraint.Constraint
	dayHard []constraint.Constraint

	coverHard  bool
	traineeCap bool

	state [][]rowState // state[员工][日期] 为进入该日前的行状态
	cap   [][]int      // cap[日期][班次] 可独立上岗人数
	tr    [][]int      // tr[日期][班次] 见习人数

	stats   ConstructStats
	stopped bool
}

func newConstructor(ctx context.Context, m *constraint.Manager, p *constraint.Plan, doms Domains, rows []*rowModel, rng *rand.Rand) *constructor {
	c := &constructor{
		ctx:  ctx,
		plan: p,
		doms: doms,
		rows: rows,
		rng:  rng,
		cap:  make([][]int, p.Days()),
		tr:   make([][]int, p.Days()),
	}
	for d := range c.cap {
		c.cap[d] = make([]int, p.Vocab().Len())
		c.tr[d] = make([]int, p.Vocab().Len())
	}
	for _, h := range m.GetByCategory(constraint.CategoryHard) {
		if h.Scope() == constraint.ScopeDay {
			c.dayHard = append(c.dayHard, h)
		} else {
			c.rowHard = append(c.rowHard, h)
		}
		switch h.Type() {
		case constraint.TypeCoverage:
			c.coverHard = true
		case constraint.TypeTraineeCap:
			c.traineeCap = true
		}
	}
	c.state = make([][]rowState, p.Staff())
	for s := range c.state {
		c.state[s] = make([]rowState, p.Days()+1)
		c.state[s][0] = rows[s].start
	}
	return c
}

// run 返回找到的排班；搜索树穷尽返回 nil，超时或取消时 stopped 为 true
func (c *constructor) run() *model.Assignment {
	if c.day(0) {
		return c.plan.Grid.Clone()
	}
	return nil
}

func (c *constructor) tick() bool {
	c.stats.Nodes++
	if c.stats.Nodes%1024 == 1 && c.ctx.Err() != nil {
		c.stopped = true
	}
	return !c.stopped
}

func (c *constructor) day(d int) bool {
	if d == c.plan.Days() {
		return c.complete()
	}
	return c.cell(d, c.staffOrder(d), 0)
}

func (c *constructor) cell(d int, order []int, i int) bool {
	if i == len(order) {
		if hard, _ := constraint.Sum(c.dayHard, c.plan, d); hard > 0 {
			return false
		}
		return c.day(d + 1)
	}
	s := order[i]
	for _, v := range c.candidates(s, d) {
		if !c.tick() {
			return false
		}
		next, ok := c.rows[s].next(d, c.state[s][d], v)
		if !ok || !c.columnAllows(d, s, v, len(order)-i-1) {
			continue
		}
		c.plan.Grid.Set(s, d, v)
		c.state[s][d+1] = next
		c.count(s, d, v, 1)
		if c.cell(d, order, i+1) {
			return true
		}
		c.count(s, d, v, -1)
		if c.stopped {
			return false
		}
		c.stats.Backtracks++
	}
	c.plan.Grid.Set(s, d, model.Rest)
	return false
}

// complete 整张排班的行约束复核
func (c *constructor) complete() bool {
	for s := 0; s < c.plan.Staff(); s++ {
		if hard, _ := constraint.Sum(c.rowHard, c.plan, s); hard > 0 {
			return false
		}
	}
	return true
}

func (c *constructor) count(s, d int, v model.ShiftID, delta int) {
	if !c.plan.Vocab().IsDuty(v) {
		return
	}
	switch c.plan.Problem.Staff[s].Grade(v) {
	case model.GradeCapable:
		c.cap[d][v] += delta
	case model.GradeTrainee:
		c.tr[d][v] += delta
	}
}

// columnAllows 当天的必要条件：不重复覆盖、见习不超员、剩余人数够补齐未覆盖班次
func (c *constructor) columnAllows(d, s int, v model.ShiftID, remaining int) bool {
	vocab := c.plan.Vocab()
	if vocab.IsDuty(v) {
		switch c.plan.Problem.Staff[s].Grade(v) {
		case model.GradeCapable:
			if c.coverHard && c.cap[d][v] >= 1 {
				return false
			}
		case model.GradeTrainee:
			if c.traineeCap && c.tr[d][v] >= 1 {
				return false
			}
		}
	}
	if !c.coverHard {
		return true
	}
	uncovered := 0
	day := c.plan.Problem.Days[d]
	for _, t := range vocab.Duties() {
		if !day.Active(t) || c.cap[d][t] > 0 {
			continue
		}
		if t == v && c.plan.Problem.Staff[s].Grade(v) == model.GradeCapable {
			continue
		}
		uncovered++
	}
	return uncovered <= remaining
}

// staffOrder 进入某天时固定员工顺序：无法休息者优先，再按出勤进度，随机打破平局
func (c *constructor) staffOrder(d int) []int {
	type entry struct {
		s      int
		forced bool
		mgr    bool
		pace   float64
		jitter float64
	}
	entries := make([]entry, c.plan.Staff())
	for s := range entries {
		_, canRest := c.rows[s].next(d, c.state[s][d], model.Rest)
		entries[s] = entry{
			s:      s,
			forced: !canRest,
			mgr:    c.plan.Problem.Staff[s].IsManager(),
			pace:   c.restPace(s, d),
			jitter: c.rng.Float64(),
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.forced != b.forced {
			return a.forced
		}
		if a.mgr != b.mgr {
			return !a.mgr
		}
		if a.pace != b.pace {
			return a.pace < b.pace
		}
		return a.jitter < b.jitter
	})
	order := make([]int, len(entries))
	for i, e := range entries {
		order[i] = e.s
	}
	return order
}

// restPace 剩余天数中仍需休息的比例
func (c *constructor) restPace(s, d int) float64 {
	remaining := c.plan.Days() - d
	if remaining <= 0 {
		return 0
	}
	need := c.plan.Problem.Staff[s].HolidayTarget - c.state[s][d].rests
	return float64(need) / float64(remaining)
}

// candidates 按启发式排序单元格取值：优先补未覆盖班次，再按休息进度和管理者作息
func (c *constructor) candidates(s, d int) []model.ShiftID {
	p := c.plan
	vocab := p.Vocab()
	st := p.Problem.Staff[s]
	day := p.Problem.Days[d]
	pace := c.restPace(s, d)

	type scored struct {
		v model.ShiftID
		w float64
	}
	dom := c.doms[s][d]
	list := make([]scored, 0, len(dom))
	for _, v := range dom {
		w := c.rng.Float64() * 0.5
		switch {
		case v == model.Rest:
			w += 4 * pace
			if d >= 2 && p.At(s, d-1) == model.Rest && p.At(s, d-2) == model.Rest {
				w -= 2
			}
		case vocab.IsDuty(v):
			switch st.Grade(v) {
			case model.GradeCapable:
				if c.cap[d][v] == 0 {
					w += 3 + 2*(1-pace)
					if !st.IsManager() {
						w += 0.5
					}
				} else {
					w -= 2
				}
			case model.GradeTrainee:
				if c.cap[d][v] > 0 && c.tr[d][v] == 0 && st.TraineeTarget(v) > 0 {
					w += 1
				} else {
					w -= 1
				}
			}
		default:
			w += 1 - pace
		}
		if st.IsManager() && !p.Requested(s, d) {
			if day.IsWeekend() == (v == model.Rest) {
				w += 2
			}
		}
		if d > 0 && p.Category(s, d-1) != vocab.CategoryOf(v) {
			w += 0.2
		}
		list = append(list, scored{v: v, w: w})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].w > list[j].w })

	out := make([]model.ShiftID, len(list))
	for i, x := range list {
		out[i] = x.v
	}
	return out
}
