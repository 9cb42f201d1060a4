package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// dayTally 某天各班次的在岗情况
type dayTally struct {
	capable  []int // 可独立上岗人数
	trainees []int // 见习人数
	filler   []int // 唯一可独立上岗者的员工下标
}

func tallyDay(p *constraint.Plan, d int) dayTally {
	n := p.Vocab().Len()
	t := dayTally{
		capable:  make([]int, n),
		trainees: make([]int, n),
		filler:   make([]int, n),
	}
	for s := 0; s < p.Staff(); s++ {
		v := p.At(s, d)
		if !p.Vocab().IsDuty(v) {
			continue
		}
		switch p.Problem.Staff[s].Grade(v) {
		case model.GradeCapable:
			t.capable[v]++
			t.filler[v] = s
		case model.GradeTrainee:
			t.trainees[v]++
		}
	}
	return t
}

// CoverageConstraint 每个开放的（日期,班次）恰好一名可独立上岗者
type CoverageConstraint struct {
	*BaseConstraint
}

// NewCoverageConstraint 创建覆盖约束
func NewCoverageConstraint(s policy.Strictness) *CoverageConstraint {
	return &CoverageConstraint{
		BaseConstraint: NewBaseConstraint("班次覆盖", constraint.TypeCoverage, constraint.CategoryOf(s), policy.TierCoverage, constraint.ScopeDay),
	}
}

// Bounds 软约束时每个开放班次 [-1, +1]
func (c *CoverageConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	if c.IsHard() {
		return 0, 0
	}
	pairs := int64(p.Problem.ActivePairs())
	return -pairs, pairs
}

// Evaluate 评估一天
func (c *CoverageConstraint) Evaluate(p *constraint.Plan, d int) constraint.Eval {
	t := tallyDay(p, d)
	var e constraint.Eval
	for _, id := range p.Vocab().Duties() {
		if !p.Problem.Days[d].Active(id) {
			continue
		}
		if t.capable[id] == 1 {
			if !c.IsHard() {
				e.Units++
			}
			continue
		}
		if c.IsHard() {
			e.Hard++
		} else {
			// 无人带的见习
			e.Units -= int64(t.trainees[id])
		}
	}
	return e
}

// Explain 列出未恰好覆盖的班次
func (c *CoverageConstraint) Explain(p *constraint.Plan, d int) []constraint.ViolationDetail {
	t := tallyDay(p, d)
	var out []constraint.ViolationDetail
	for _, id := range p.Vocab().Duties() {
		if !p.Problem.Days[d].Active(id) || t.capable[id] == 1 {
			continue
		}
		msg := fmt.Sprintf("可独立上岗人数为 %d", t.capable[id])
		if t.trainees[id] > 0 {
			msg += "，见习无人带"
		}
		out = append(out, p.Detail(c, -1, d, id, msg, -int64(t.trainees[id])))
	}
	return out
}

// TraineeCapConstraint 每个（日期,班次）至多一名见习
type TraineeCapConstraint struct {
	*BaseConstraint
}

// NewTraineeCapConstraint 创建见习人数上限约束
func NewTraineeCapConstraint() *TraineeCapConstraint {
	return &TraineeCapConstraint{
		BaseConstraint: NewBaseConstraint("见习上限", constraint.TypeTraineeCap, constraint.CategoryHard, policy.TierCoverage, constraint.ScopeDay),
	}
}

// Evaluate 评估一天
func (c *TraineeCapConstraint) Evaluate(p *constraint.Plan, d int) constraint.Eval {
	t := tallyDay(p, d)
	n := 0
	for _, id := range p.Vocab().Duties() {
		if t.trainees[id] > 1 {
			n += t.trainees[id] - 1
		}
	}
	return constraint.Eval{Hard: n}
}

// Explain 列出超员的班次
func (c *TraineeCapConstraint) Explain(p *constraint.Plan, d int) []constraint.ViolationDetail {
	t := tallyDay(p, d)
	var out []constraint.ViolationDetail
	for _, id := range p.Vocab().Duties() {
		if t.trainees[id] > 1 {
			out = append(out, p.Detail(c, -1, d, id, fmt.Sprintf("见习 %d 人", t.trainees[id]), 0))
		}
	}
	return out
}

// RegularCoverageConstraint 覆盖者优先为普通员工
type RegularCoverageConstraint struct {
	*BaseConstraint
}

// NewRegularCoverageConstraint 创建普通员工覆盖偏好
func NewRegularCoverageConstraint() *RegularCoverageConstraint {
	return &RegularCoverageConstraint{
		BaseConstraint: NewBaseConstraint("普通员工覆盖", constraint.TypeRegularCoverage, constraint.CategorySoft, policy.TierRegularCoverage, constraint.ScopeDay),
	}
}

// Bounds 每个开放班次至多 +1
func (c *RegularCoverageConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	return 0, int64(p.Problem.ActivePairs())
}

// Evaluate 评估一天
func (c *RegularCoverageConstraint) Evaluate(p *constraint.Plan, d int) constraint.Eval {
	t := tallyDay(p, d)
	var e constraint.Eval
	for _, id := range p.Vocab().Duties() {
		if p.Problem.Days[d].Active(id) && t.capable[id] == 1 && !p.Problem.Staff[t.filler[id]].IsManager() {
			e.Units++
		}
	}
	return e
}

// Explain 列出由管理者覆盖的班次
func (c *RegularCoverageConstraint) Explain(p *constraint.Plan, d int) []constraint.ViolationDetail {
	t := tallyDay(p, d)
	var out []constraint.ViolationDetail
	for _, id := range p.Vocab().Duties() {
		if p.Problem.Days[d].Active(id) && t.capable[id] == 1 && p.Problem.Staff[t.filler[id]].IsManager() {
			out = append(out, p.Detail(c, t.filler[id], d, id, "由管理者覆盖", 0))
		}
	}
	return out
}
