package solver

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// Domains 每个单元格的可选班次：Domains[员工][日期]
type Domains [][][]model.ShiftID

// CompileDomains 用全部裁剪约束生成单元格取值域，出现空域即证明无解
func CompileDomains(m *constraint.Manager, p *constraint.Plan) (Domains, error) {
	filters := m.Filters()
	n := p.Vocab().Len()

	doms := make(Domains, p.Staff())
	for s := range doms {
		doms[s] = make([][]model.ShiftID, p.Days())
		for d := range doms[s] {
			cell := make([]model.ShiftID, 0, n)
			for v := model.ShiftID(0); int(v) < n; v++ {
				allowed := true
				for _, f := range filters {
					if !f.Allows(p, s, d, v) {
						allowed = false
						break
					}
				}
				if allowed {
					cell = append(cell, v)
				}
			}
			if len(cell) == 0 {
				return nil, &infeasibleError{reason: fmt.Sprintf("员工 %s 第 %d 天没有可选班次",
					p.Problem.Staff[s].Name, d+1)}
			}
			doms[s][d] = cell
		}
	}
	return doms, nil
}

// Contains 单元格取值域是否包含 v
func (ds Domains) Contains(s, d int, v model.ShiftID) bool {
	for _, x := range ds[s][d] {
		if x == v {
			return true
		}
	}
	return false
}

// Pinned 取值域只剩一个值时返回该值
func (ds Domains) Pinned(s, d int) (model.ShiftID, bool) {
	if len(ds[s][d]) == 1 {
		return ds[s][d][0], true
	}
	return model.NoShift, false
}

// infeasibleError 可证明的无解原因
type infeasibleError struct {
	reason string
}

func (e *infeasibleError) Error() string { return e.reason }
