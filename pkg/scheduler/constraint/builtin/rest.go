package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// LateEarlyConstraint 晚班次日不可接早班，包含上期末尾到首日
type LateEarlyConstraint struct {
	*BaseConstraint
}

// NewLateEarlyConstraint 创建晚接早约束
func NewLateEarlyConstraint(s policy.Strictness) *LateEarlyConstraint {
	return &LateEarlyConstraint{
		BaseConstraint: NewBaseConstraint("晚班接早班", constraint.TypeLateEarly, constraint.CategoryOf(s), policy.TierLateEarly, constraint.ScopeStaff),
	}
}

func lateThenEarly(p *constraint.Plan, s, d int) bool {
	return p.Category(s, d-1) == model.CategoryLate && p.Category(s, d) == model.CategoryEarly
}

// Bounds 每人每天至多一次
func (c *LateEarlyConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	if c.IsHard() {
		return 0, 0
	}
	return -int64(p.Staff() * p.Days()), 0
}

// Evaluate 评估一行
func (c *LateEarlyConstraint) Evaluate(p *constraint.Plan, s int) constraint.Eval {
	n := 0
	for d := 0; d < p.Days(); d++ {
		if lateThenEarly(p, s, d) {
			n++
		}
	}
	return c.violations(n)
}

// Explain 列出违反的日期
func (c *LateEarlyConstraint) Explain(p *constraint.Plan, s int) []constraint.ViolationDetail {
	var out []constraint.ViolationDetail
	for d := 0; d < p.Days(); d++ {
		if lateThenEarly(p, s, d) {
			out = append(out, p.Detail(c, s, d, p.At(s, d), "前一天为晚班", -1))
		}
	}
	return out
}

// ConsecutiveWorkConstraint 连续出勤不超过 maxDays 天
// 等价于任意 maxDays+1 天的窗口内出勤不超过 maxDays 天，窗口可跨上期末尾
type ConsecutiveWorkConstraint struct {
	*BaseConstraint
	maxDays int
}

// NewConsecutiveWorkConstraint 创建连续出勤约束
func NewConsecutiveWorkConstraint(s policy.Strictness, maxDays int) *ConsecutiveWorkConstraint {
	return &ConsecutiveWorkConstraint{
		BaseConstraint: NewBaseConstraint("连续出勤上限", constraint.TypeConsecutiveWork, constraint.CategoryOf(s), policy.TierConsecutive, constraint.ScopeStaff),
		maxDays:        maxDays,
	}
}

// MaxDays 连续出勤上限
func (c *ConsecutiveWorkConstraint) MaxDays() int { return c.maxDays }

// Bounds 每个结束于本期的窗口至多一次
func (c *ConsecutiveWorkConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	if c.IsHard() {
		return 0, 0
	}
	return -int64(p.Staff() * p.Days()), 0
}

// overfull 返回结束于每一天的满员窗口
func (c *ConsecutiveWorkConstraint) overfull(p *constraint.Plan, s int) []int {
	var days []int
	run := p.RunEndingAt(s, -1)
	for d := 0; d < p.Days(); d++ {
		if p.Working(s, d) {
			run++
		} else {
			run = 0
		}
		if run > c.maxDays {
			days = append(days, d)
		}
	}
	return days
}

// Evaluate 评估一行
func (c *ConsecutiveWorkConstraint) Evaluate(p *constraint.Plan, s int) constraint.Eval {
	return c.violations(len(c.overfull(p, s)))
}

// Explain 列出违反的日期
func (c *ConsecutiveWorkConstraint) Explain(p *constraint.Plan, s int) []constraint.ViolationDetail {
	var out []constraint.ViolationDetail
	for _, d := range c.overfull(p, s) {
		out = append(out, p.Detail(c, s, d, p.At(s, d), fmt.Sprintf("连续出勤超过 %d 天", c.maxDays), -1))
	}
	return out
}

// HolidayQuotaConstraint 本期休息天数与公休目标一致
type HolidayQuotaConstraint struct {
	*BaseConstraint
	mode      policy.HolidayMode
	tolerance int
}

// NewHolidayQuotaConstraint 创建公休天数约束
func NewHolidayQuotaConstraint(mode policy.HolidayMode, tolerance int) *HolidayQuotaConstraint {
	cat := constraint.CategoryHard
	if mode == policy.HolidaySoft {
		cat = constraint.CategorySoft
	}
	return &HolidayQuotaConstraint{
		BaseConstraint: NewBaseConstraint("公休天数", constraint.TypeHolidayQuota, cat, policy.TierHoliday, constraint.ScopeStaff),
		mode:           mode,
		tolerance:      tolerance,
	}
}

// Bounds 精确模式不计分，其余按偏差计
func (c *HolidayQuotaConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	switch c.mode {
	case policy.HolidayExact:
		return 0, 0
	case policy.HolidayTolerance:
		return -int64(p.Staff() * c.tolerance), 0
	}
	var lo int64
	for _, st := range p.Problem.Staff {
		lo -= int64(max(st.HolidayTarget, p.Days()-st.HolidayTarget))
	}
	return lo, 0
}

// Evaluate 评估一行
func (c *HolidayQuotaConstraint) Evaluate(p *constraint.Plan, s int) constraint.Eval {
	target := p.Problem.Staff[s].HolidayTarget
	rest := p.Grid.RestCount(s)
	diff := abs(rest - target)

	var e constraint.Eval
	switch c.mode {
	case policy.HolidayExact:
		if diff != 0 {
			e.Hard = 1
		}
	case policy.HolidayTolerance:
		if diff > c.tolerance {
			e.Hard = 1
		} else {
			e.Units = -int64(diff)
		}
	default:
		e.Units = -int64(diff)
	}
	return e
}

// Explain 说明偏差
func (c *HolidayQuotaConstraint) Explain(p *constraint.Plan, s int) []constraint.ViolationDetail {
	target := p.Problem.Staff[s].HolidayTarget
	rest := p.Grid.RestCount(s)
	if rest == target {
		return nil
	}
	msg := fmt.Sprintf("休息 %d 天，目标 %d 天", rest, target)
	d := p.Detail(c, s, -1, model.NoShift, msg, -int64(abs(rest-target)))
	if c.mode == policy.HolidayTolerance && abs(rest-target) <= c.tolerance {
		d.Severity = "warning"
	}
	return []constraint.ViolationDetail{d}
}

// RestStreakConstraint 避免未经请求的连休
// 每个连续 3 天休息且都非请求的窗口记 1，连续 4 天的窗口再记 10
type RestStreakConstraint struct {
	*BaseConstraint
}

// NewRestStreakConstraint 创建连休约束
func NewRestStreakConstraint() *RestStreakConstraint {
	return &RestStreakConstraint{
		BaseConstraint: NewBaseConstraint("避免连休", constraint.TypeRestStreak, constraint.CategorySoft, policy.TierRestStreak, constraint.ScopeStaff),
	}
}

const (
	streak3Penalty = 1
	streak4Penalty = 10
)

// Bounds 按窗口数计算下界
func (c *RestStreakConstraint) Bounds(p *constraint.Plan) (int64, int64) {
	n := p.Days()
	perStaff := int64(max(n-2, 0)*streak3Penalty + max(n-3, 0)*streak4Penalty)
	return -perStaff * int64(p.Staff()), 0
}

// streaks 返回 3 天与 4 天窗口的起始日期
func (c *RestStreakConstraint) streaks(p *constraint.Plan, s int) (w3, w4 []int) {
	free := func(d int) bool {
		return p.At(s, d) == model.Rest && p.Problem.Request(s, d) != model.Rest
	}
	run := 0
	for d := 0; d < p.Days(); d++ {
		if free(d) {
			run++
		} else {
			run = 0
		}
		if run >= 3 {
			w3 = append(w3, d-2)
		}
		if run >= 4 {
			w4 = append(w4, d-3)
		}
	}
	return w3, w4
}

// Evaluate 评估一行
func (c *RestStreakConstraint) Evaluate(p *constraint.Plan, s int) constraint.Eval {
	w3, w4 := c.streaks(p, s)
	return constraint.Eval{Units: -int64(len(w3)*streak3Penalty + len(w4)*streak4Penalty)}
}

// Explain 列出连休窗口
func (c *RestStreakConstraint) Explain(p *constraint.Plan, s int) []constraint.ViolationDetail {
	w3, w4 := c.streaks(p, s)
	var out []constraint.ViolationDetail
	for _, d := range w3 {
		out = append(out, p.Detail(c, s, d, model.Rest, "连续 3 天未请求的休息", -streak3Penalty))
	}
	for _, d := range w4 {
		out = append(out, p.Detail(c, s, d, model.Rest, "连续 4 天未请求的休息", -streak4Penalty))
	}
	return out
}
