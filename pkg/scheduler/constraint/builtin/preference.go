package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// TraineeQuotaConstraint 见习次数接近目标
type TraineeQuotaConstraint struct {
	*BaseConstraint
}

// NewTraineeQuotaConstraint 创建见习次数约束
func NewTraineeQuotaConstraint() *TraineeQuotaConstraint {
	return &TraineeQuotaConstraint{
		BaseConstraint: NewBaseConstraint("见习次数", constraint.TypeTraineeQuota, constraint.CategorySoft, policy.TierTraineeQuota, constraint.ScopeStaff),
	}
}

// quotas 返回员工有目标的见习班次
func quotas(p *constraint.Plan, s int) []model.ShiftID {
	st := p.Problem.Staff[s]
	var ids []model.ShiftID
	for _, id := range p.Vocab().Duties() {
		if st.Grade(id) == model.GradeTrainee && st.TraineeTarget(id) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func countShift(p *constraint.Plan, s int, id model.ShiftID) int {
	n := 0
	for d := 0; d < p.Days(); d++ {
		if p.At(s, d) == id {
			n++
		}
	}
	return n
}

// Bounds 偏差最大为 max(目标, 天数-目标)
func (c *TraineeQuotaConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	var lo int64
	for s, st := range p.Problem.Staff {
		for _, id := range quotas(p, s) {
			target := st.TraineeTarget(id)
			lo -= int64(max(target, p.Days()-target))
		}
	}
	return lo, 0
}

// Evaluate 评估一行
func (c *TraineeQuotaConstraint) Evaluate(p *constraint.Plan, s int) constraint.Eval {
	var e constraint.Eval
	st := p.Problem.Staff[s]
	for _, id := range quotas(p, s) {
		e.Units -= int64(abs(countShift(p, s, id) - st.TraineeTarget(id)))
	}
	return e
}

// Explain 列出偏差
func (c *TraineeQuotaConstraint) Explain(p *constraint.Plan, s int) []constraint.ViolationDetail {
	var out []constraint.ViolationDetail
	st := p.Problem.Staff[s]
	for _, id := range quotas(p, s) {
		n, target := countShift(p, s, id), st.TraineeTarget(id)
		if n != target {
			msg := fmt.Sprintf("见习 %d 次，目标 %d 次", n, target)
			out = append(out, p.Detail(c, s, -1, id, msg, -int64(abs(n-target))))
		}
	}
	return out
}

// ShiftRhythmConstraint 相邻两天类别变化加分
type ShiftRhythmConstraint struct {
	*BaseConstraint
}

// NewShiftRhythmConstraint 创建节奏加分
func NewShiftRhythmConstraint() *ShiftRhythmConstraint {
	return &ShiftRhythmConstraint{
		BaseConstraint: NewBaseConstraint("班次节奏", constraint.TypeShiftRhythm, constraint.CategorySoft, policy.TierRhythm, constraint.ScopeStaff),
	}
}

// Bounds 每人每个相邻日对至多 +1
func (c *ShiftRhythmConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	if p.Days() < 2 {
		return 0, 0
	}
	return 0, int64(p.Staff() * (p.Days() - 1))
}

// Evaluate 评估一行
func (c *ShiftRhythmConstraint) Evaluate(p *constraint.Plan, s int) constraint.Eval {
	var e constraint.Eval
	for d := 0; d+1 < p.Days(); d++ {
		if p.Category(s, d) != p.Category(s, d+1) {
			e.Units++
		}
	}
	return e
}

// Explain 节奏只加分，不产生违反
func (c *ShiftRhythmConstraint) Explain(p *constraint.Plan, s int) []constraint.ViolationDetail {
	return nil
}
