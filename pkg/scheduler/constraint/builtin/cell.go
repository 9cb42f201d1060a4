package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// cellRule 单元格谓词，返回 false 表示取值不允许
type cellRule func(p *constraint.Plan, s, d int, v model.ShiftID) bool

// CellConstraint 逐单元格检查的硬约束，同时用于裁剪取值域
type CellConstraint struct {
	*BaseConstraint
	allows  cellRule
	message string
}

func newCellConstraint(name string, typ constraint.Type, message string, allows cellRule) *CellConstraint {
	return &CellConstraint{
		BaseConstraint: NewBaseConstraint(name, typ, constraint.CategoryHard, policy.TierCoverage, constraint.ScopeStaff),
		allows:         allows,
		message:        message,
	}
}

// Allows 单元格取值是否允许
func (c *CellConstraint) Allows(p *constraint.Plan, s, d int, v model.ShiftID) bool {
	return c.allows(p, s, d, v)
}

// Evaluate 统计一行中不允许的单元格
func (c *CellConstraint) Evaluate(p *constraint.Plan, s int) constraint.Eval {
	n := 0
	for d := 0; d < p.Days(); d++ {
		if !c.allows(p, s, d, p.At(s, d)) {
			n++
		}
	}
	return constraint.Eval{Hard: n}
}

// Explain 列出违反的单元格
func (c *CellConstraint) Explain(p *constraint.Plan, s int) []constraint.ViolationDetail {
	var out []constraint.ViolationDetail
	for d := 0; d < p.Days(); d++ {
		v := p.At(s, d)
		if !c.allows(p, s, d, v) {
			out = append(out, p.Detail(c, s, d, v, c.message, 0))
		}
	}
	return out
}

// NewOneShiftPerDayConstraint 每人每天恰好一个有效取值
func NewOneShiftPerDayConstraint() *CellConstraint {
	return newCellConstraint("每日唯一班次", constraint.TypeOneShiftPerDay, "取值不在班次词表中",
		func(p *constraint.Plan, s, d int, v model.ShiftID) bool {
			return p.Vocab().Valid(v)
		})
}

// NewForbiddenGradeConstraint 不可排的班次不能分配
func NewForbiddenGradeConstraint() *CellConstraint {
	return newCellConstraint("禁止班次", constraint.TypeForbiddenGrade, "分配了技能等级为不可排的班次",
		func(p *constraint.Plan, s, d int, v model.ShiftID) bool {
			if !p.Vocab().IsDuty(v) {
				return true
			}
			return p.Problem.Staff[s].Grade(v) != model.GradeForbidden
		})
}

// NewRequestPinningConstraint 请求的班次必须满足
func NewRequestPinningConstraint() *CellConstraint {
	return newCellConstraint("希望班次", constraint.TypeRequestPinning, "未满足请求",
		func(p *constraint.Plan, s, d int, v model.ShiftID) bool {
			req := p.Problem.Request(s, d)
			return req == model.NoShift || req == v
		})
}

// NewExtraDutyRoleConstraint 普通员工仅在请求时可排出勤
func NewExtraDutyRoleConstraint() *CellConstraint {
	return newCellConstraint("出勤角色限制", constraint.TypeExtraDutyRole, "普通员工未经请求被排出勤",
		func(p *constraint.Plan, s, d int, v model.ShiftID) bool {
			if v != p.Vocab().ExtraDuty() || p.Problem.Staff[s].IsManager() {
				return true
			}
			return p.Problem.Request(s, d) == v
		})
}

// NewShiftExclusionConstraint 停开的班次当天不排人
func NewShiftExclusionConstraint() *CellConstraint {
	return newCellConstraint("停开班次", constraint.TypeShiftExclusion, "班次当天停开",
		func(p *constraint.Plan, s, d int, v model.ShiftID) bool {
			return !p.Vocab().IsDuty(v) || p.Problem.Days[d].Active(v)
		})
}

// ManagerRoleConstraint 管理者平日出勤、周末休息
type ManagerRoleConstraint struct {
	*BaseConstraint
}

// NewManagerRoleConstraint 创建管理者出勤约束
func NewManagerRoleConstraint(s policy.Strictness) *ManagerRoleConstraint {
	return &ManagerRoleConstraint{
		BaseConstraint: NewBaseConstraint("管理者出勤", constraint.TypeManagerRole, constraint.CategoryOf(s), policy.TierManagerRole, constraint.ScopeStaff),
	}
}

// misses 未请求的单元格上管理者是否不符合出勤要求
func (c *ManagerRoleConstraint) misses(p *constraint.Plan, s, d int, v model.ShiftID) bool {
	if !p.Problem.Staff[s].IsManager() || p.Requested(s, d) {
		return false
	}
	if p.Problem.Days[d].IsWeekend() {
		return model.IsWorking(v)
	}
	return !model.IsWorking(v)
}

// Allows 严格模式下直接裁剪取值
func (c *ManagerRoleConstraint) Allows(p *constraint.Plan, s, d int, v model.ShiftID) bool {
	return !c.IsHard() || !c.misses(p, s, d, v)
}

// Bounds 每名管理者每天至多一次
func (c *ManagerRoleConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	if c.IsHard() {
		return 0, 0
	}
	var lo int64
	for _, st := range p.Problem.Staff {
		if st.IsManager() {
			lo -= int64(p.Days())
		}
	}
	return lo, 0
}

// Evaluate 评估一行
func (c *ManagerRoleConstraint) Evaluate(p *constraint.Plan, s int) constraint.Eval {
	n := 0
	for d := 0; d < p.Days(); d++ {
		if c.misses(p, s, d, p.At(s, d)) {
			n++
		}
	}
	return c.violations(n)
}

// Explain 列出不符合的日期
func (c *ManagerRoleConstraint) Explain(p *constraint.Plan, s int) []constraint.ViolationDetail {
	var out []constraint.ViolationDetail
	for d := 0; d < p.Days(); d++ {
		v := p.At(s, d)
		if !c.misses(p, s, d, v) {
			continue
		}
		msg := "管理者平日休息"
		if p.Problem.Days[d].IsWeekend() {
			msg = fmt.Sprintf("管理者周末(%s)出勤", p.Problem.Days[d].Weekday)
		}
		out = append(out, p.Detail(c, s, d, v, msg, -1))
	}
	return out
}
