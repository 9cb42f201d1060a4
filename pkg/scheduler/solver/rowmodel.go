package solver

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// rowRules 需要在行内精确前瞻的硬规则
type rowRules struct {
	lateEarly bool
	maxRun    int // 0 表示不限制连续出勤
	holiday   bool
}

func rowRulesOf(m *constraint.Manager, maxConsecutive int) rowRules {
	var r rowRules
	hard := func(t constraint.Type) constraint.Constraint {
		c := m.GetConstraint(t)
		if c == nil || c.Category() != constraint.CategoryHard {
			return nil
		}
		return c
	}
	r.lateEarly = hard(constraint.TypeLateEarly) != nil
	if c := hard(constraint.TypeConsecutiveWork); c != nil {
		r.maxRun = maxConsecutive
		if md, ok := c.(interface{ MaxDays() int }); ok {
			r.maxRun = md.MaxDays()
		}
	}
	r.holiday = hard(constraint.TypeHolidayQuota) != nil
	return r
}

// rowState 进入某天前的行状态
type rowState struct {
	run   int  // 截至前一天的连续出勤天数
	late  bool // 前一天是否晚班
	rests int  // 已休息天数
}

// rowModel 单名员工的行自动机：ok 记录从某状态出发能否完成整行
type rowModel struct {
	days   int
	rules  rowRules
	lo, hi int
	cats   []model.Category
	dom    [][]model.ShiftID
	start  rowState
	ok     []bool
}

func newRowModel(p *constraint.Plan, s int, rules rowRules, dom [][]model.ShiftID) *rowModel {
	r := &rowModel{
		days:  p.Days(),
		rules: rules,
		lo:    0,
		hi:    p.Days(),
		dom:   dom,
	}
	if rules.holiday {
		r.lo, r.hi = p.Policy.HolidayBand(p.Problem.Staff[s].HolidayTarget, p.Days())
	}
	r.cats = make([]model.Category, p.Vocab().Len())
	for i := range r.cats {
		r.cats[i] = p.Vocab().CategoryOf(model.ShiftID(i))
	}
	if rules.maxRun > 0 {
		r.start.run = min(p.RunEndingAt(s, -1), rules.maxRun)
	}
	if rules.lateEarly {
		r.start.late = p.Category(s, -1) == model.CategoryLate
	}
	r.build()
	return r
}

func (r *rowModel) index(d int, st rowState) int {
	late := 0
	if st.late {
		late = 1
	}
	return ((d*(r.rules.maxRun+1)+st.run)*2+late)*(r.days+1) + st.rests
}

// step 在状态 st 下取值 v 后的状态
func (r *rowModel) step(st rowState, v model.ShiftID) (rowState, bool) {
	if v == model.Rest {
		return rowState{rests: st.rests + 1}, true
	}
	cat := r.cats[v]
	if r.rules.lateEarly && st.late && cat == model.CategoryEarly {
		return st, false
	}
	next := rowState{rests: st.rests}
	if r.rules.maxRun > 0 {
		if st.run+1 > r.rules.maxRun {
			return st, false
		}
		next.run = st.run + 1
	}
	if r.rules.lateEarly {
		next.late = cat == model.CategoryLate
	}
	return next, true
}

// build 自后向前计算可完成状态
func (r *rowModel) build() {
	r.ok = make([]bool, (r.days+1)*(r.rules.maxRun+1)*2*(r.days+1))
	for rests := r.lo; rests <= r.hi; rests++ {
		for run := 0; run <= r.rules.maxRun; run++ {
			r.ok[r.index(r.days, rowState{run: run, rests: rests})] = true
			r.ok[r.index(r.days, rowState{run: run, late: true, rests: rests})] = true
		}
	}
	for d := r.days - 1; d >= 0; d-- {
		for run := 0; run <= r.rules.maxRun; run++ {
			for _, late := range []bool{false, true} {
				for rests := 0; rests <= d; rests++ {
					st := rowState{run: run, late: late, rests: rests}
					for _, v := range r.dom[d] {
						if _, ok := r.next(d, st, v); ok {
							r.ok[r.index(d, st)] = true
							break
						}
					}
				}
			}
		}
	}
}

// next 取值后仍可完成整行时返回新状态
func (r *rowModel) next(d int, st rowState, v model.ShiftID) (rowState, bool) {
	nx, ok := r.step(st, v)
	if !ok || nx.rests > r.hi {
		return st, false
	}
	return nx, r.ok[r.index(d+1, nx)]
}

// feasible 整行是否存在满足硬规则的取值
func (r *rowModel) feasible() bool {
	return r.ok[r.index(0, r.start)]
}

// restRange 可达的最少与最多休息天数，不可行时返回 -1, -1
func (r *rowModel) restRange() (lo, hi int) {
	if !r.feasible() {
		return -1, -1
	}
	cur := map[rowState]bool{r.start: true}
	for d := 0; d < r.days; d++ {
		nxt := make(map[rowState]bool, len(cur))
		for st := range cur {
			for _, v := range r.dom[d] {
				if ns, ok := r.next(d, st, v); ok {
					nxt[ns] = true
				}
			}
		}
		cur = nxt
	}
	lo, hi = -1, -1
	for st := range cur {
		if lo < 0 || st.rests < lo {
			lo = st.rests
		}
		if st.rests > hi {
			hi = st.rests
		}
	}
	return lo, hi
}

// buildRows 为每名员工建立行自动机，任一行无法完成即证明无解
func buildRows(p *constraint.Plan, rules rowRules, doms Domains) ([]*rowModel, error) {
	rows := make([]*rowModel, p.Staff())
	for s := range rows {
		rows[s] = newRowModel(p, s, rules, doms[s])
		if !rows[s].feasible() {
			st := p.Problem.Staff[s]
			return nil, &infeasibleError{reason: fmt.Sprintf(
				"员工 %s 的请求、公休目标 %d 与连续出勤/晚接早规则无法同时满足", st.Name, st.HolidayTarget)}
		}
	}
	return rows, nil
}
