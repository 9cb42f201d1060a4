package optimizer

import (
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// Evaluator 增量评估器，缓存每行、每天的硬违反数与分层得分
type Evaluator struct {
	plan  *constraint.Plan
	rowCS []constraint.Constraint
	dayCS []constraint.Constraint

	rowHard  []int
	rowScore []policy.Score
	dayHard  []int
	dayScore []policy.Score

	hard  int
	score policy.Score
}

// NewEvaluator 创建评估器并完成一次全量评估
func NewEvaluator(m *constraint.Manager, plan *constraint.Plan) *Evaluator {
	e := &Evaluator{
		plan:     plan,
		rowCS:    m.GetByScope(constraint.ScopeStaff),
		dayCS:    m.GetByScope(constraint.ScopeDay),
		rowHard:  make([]int, plan.Staff()),
		rowScore: make([]policy.Score, plan.Staff()),
		dayHard:  make([]int, plan.Days()),
		dayScore: make([]policy.Score, plan.Days()),
	}
	e.Reset()
	return e
}

// Reset 全量重新评估
func (e *Evaluator) Reset() {
	e.hard = 0
	e.score = policy.Score{}
	for s := range e.rowHard {
		e.rowHard[s], e.rowScore[s] = constraint.Sum(e.rowCS, e.plan, s)
		e.hard += e.rowHard[s]
		e.score.Add(e.rowScore[s])
	}
	for d := range e.dayHard {
		e.dayHard[d], e.dayScore[d] = constraint.Sum(e.dayCS, e.plan, d)
		e.hard += e.dayHard[d]
		e.score.Add(e.dayScore[d])
	}
}

// Hard 当前硬违反数
func (e *Evaluator) Hard() int { return e.hard }

// Score 当前分层得分
func (e *Evaluator) Score() policy.Score { return e.score }

// Plan 评估所用的排班上下文
func (e *Evaluator) Plan() *constraint.Plan { return e.plan }

type cached struct {
	index int
	hard  int
	score policy.Score
}

// undo 撤销一次移动所需的记录
type undo struct {
	move  Move
	rows  []cached
	days  []cached
	hard  int
	score policy.Score
}

// Apply 执行移动并只重新评估受影响的行与天
func (e *Evaluator) Apply(mv Move) *undo {
	u := &undo{move: mv, hard: e.hard, score: e.score}
	for _, c := range mv.Cells {
		e.plan.Grid.Set(c.Staff, c.Day, c.To)
	}
	for _, s := range mv.Rows() {
		u.rows = append(u.rows, cached{s, e.rowHard[s], e.rowScore[s]})
		h, sc := constraint.Sum(e.rowCS, e.plan, s)
		e.hard += h - e.rowHard[s]
		e.score.Add(sc)
		e.score.Sub(e.rowScore[s])
		e.rowHard[s], e.rowScore[s] = h, sc
	}
	for _, d := range mv.Days() {
		u.days = append(u.days, cached{d, e.dayHard[d], e.dayScore[d]})
		h, sc := constraint.Sum(e.dayCS, e.plan, d)
		e.hard += h - e.dayHard[d]
		e.score.Add(sc)
		e.score.Sub(e.dayScore[d])
		e.dayHard[d], e.dayScore[d] = h, sc
	}
	return u
}

// Undo 撤销移动
func (e *Evaluator) Undo(u *undo) {
	for _, c := range u.move.Cells {
		e.plan.Grid.Set(c.Staff, c.Day, c.From)
	}
	for _, r := range u.rows {
		e.rowHard[r.index], e.rowScore[r.index] = r.hard, r.score
	}
	for _, d := range u.days {
		e.dayHard[d.index], e.dayScore[d.index] = d.hard, d.score
	}
	e.hard, e.score = u.hard, u.score
}
