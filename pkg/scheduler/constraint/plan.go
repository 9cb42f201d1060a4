package constraint

import (
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// Plan 排班上下文：问题、策略和当前排班
type Plan struct {
	Problem *model.Problem
	Policy  policy.Policy
	Grid    *model.Assignment
}

// NewPlan 创建排班上下文
func NewPlan(problem *model.Problem, pol policy.Policy, grid *model.Assignment) *Plan {
	return &Plan{Problem: problem, Policy: pol, Grid: grid}
}

// WithGrid 复用问题与策略，换一张排班
func (p *Plan) WithGrid(grid *model.Assignment) *Plan {
	return &Plan{Problem: p.Problem, Policy: p.Policy, Grid: grid}
}

// Vocab 班次词表
func (p *Plan) Vocab() *model.Vocabulary {
	return p.Problem.Vocabulary
}

// Staff 员工数
func (p *Plan) Staff() int { return p.Problem.NumStaff() }

// Days 天数
func (p *Plan) Days() int { return p.Problem.NumDays() }

// At 返回班次，d < 0 时取上期末尾，超出范围返回 NoShift
func (p *Plan) At(s, d int) model.ShiftID {
	if d < 0 {
		return p.Problem.TailAt(s, d).Shift
	}
	if d >= p.Days() {
		return model.NoShift
	}
	return p.Grid.Grid[s][d]
}

// Working 是否出勤，d < 0 时取上期末尾
func (p *Plan) Working(s, d int) bool {
	if d < 0 {
		return p.Problem.TailAt(s, d).Working
	}
	if d >= p.Days() {
		return false
	}
	return model.IsWorking(p.Grid.Grid[s][d])
}

// Category 班次类别，未知的上期出勤视为普通
func (p *Plan) Category(s, d int) model.Category {
	v := p.At(s, d)
	if v == model.NoShift {
		if p.Working(s, d) {
			return model.CategoryNeutral
		}
		return model.CategoryRest
	}
	return p.Vocab().CategoryOf(v)
}

// Requested 单元格是否有请求
func (p *Plan) Requested(s, d int) bool {
	return p.Problem.Request(s, d) != model.NoShift
}

// RunEndingAt 截至第 d 天（含）的连续出勤天数，最多回看到上期末尾
func (p *Plan) RunEndingAt(s, d int) int {
	run := 0
	for i := d; i >= -model.TailDays; i-- {
		if !p.Working(s, i) {
			break
		}
		run++
	}
	return run
}

// Detail 构造违反详情，d < 0 表示整行
func (p *Plan) Detail(c Constraint, s, d int, v model.ShiftID, msg string, units int64) ViolationDetail {
	vd := ViolationDetail{
		ConstraintType: c.Type(),
		ConstraintName: c.Name(),
		Day:            d + 1,
		Message:        msg,
		Units:          units,
		Severity:       "warning",
	}
	if d < 0 {
		vd.Day = 0
	}
	if c.Category() == CategoryHard {
		vd.Severity = "error"
	}
	if s >= 0 && s < p.Staff() {
		st := p.Problem.Staff[s]
		vd.StaffID = st.ID
		vd.Staff = st.Name
	}
	if v != model.NoShift {
		vd.Shift = p.Vocab().Code(v)
	}
	return vd
}
