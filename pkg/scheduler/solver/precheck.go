package solver

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// checkColumns 硬覆盖下的必要条件：
// 每个开放班次至少一名可独立上岗者，且不得有两名可独立上岗者被同时固定；
// 每天可上岗人数不少于开放班次数；全期可出勤人日不少于开放班次总数；
// 全期必须上班次的人日不超过班次容量（见 checkSlots）
func checkColumns(p *constraint.Plan, doms Domains, rows []*rowModel, traineeCap bool) error {
	vocab := p.Vocab()
	duties := vocab.Duties()

	for d, day := range p.Problem.Days {
		active := 0
		able := make([]bool, p.Staff())
		for _, t := range duties {
			if !day.Active(t) {
				continue
			}
			active++
			candidates, pinned := 0, 0
			for s, st := range p.Problem.Staff {
				if st.Grade(t) != model.GradeCapable || !doms.Contains(s, d, t) {
					continue
				}
				candidates++
				able[s] = true
				if v, ok := doms.Pinned(s, d); ok && v == t {
					pinned++
				}
			}
			if candidates == 0 {
				return &infeasibleError{reason: fmt.Sprintf("%s 班次 %s 无人可覆盖", day.Header(), vocab.Code(t))}
			}
			if pinned > 1 {
				return &infeasibleError{reason: fmt.Sprintf("%s 班次 %s 被 %d 名可独立上岗者同时固定",
					day.Header(), vocab.Code(t), pinned)}
			}
		}
		n := 0
		for _, ok := range able {
			if ok {
				n++
			}
		}
		if n < active {
			return &infeasibleError{reason: fmt.Sprintf("%s 可上岗人数 %d 少于开放班次 %d", day.Header(), n, active)}
		}
	}

	capacity := 0
	for _, r := range rows {
		lo, _ := r.restRange()
		capacity += r.days - lo
	}
	if pairs := p.Problem.ActivePairs(); capacity < pairs {
		return &infeasibleError{reason: fmt.Sprintf("全期最多可出勤 %d 人日，少于需覆盖的 %d 个班次", capacity, pairs)}
	}
	return checkSlots(p, doms, rows, traineeCap)
}

// checkSlots 上班但不能排出勤的日子只能占用班次名额。
// 每个开放班次恰有一名可独立上岗者，见习上限为硬规则时另加至多一名见习，
// 因此各员工至少要上的班次天数之和不能超过全部名额
func checkSlots(p *constraint.Plan, doms Domains, rows []*rowModel, traineeCap bool) error {
	vocab := p.Vocab()
	extra := vocab.ExtraDuty()

	need := 0
	for s, r := range rows {
		_, maxRests := r.restRange()
		flexible := 0
		for d := range p.Problem.Days {
			if doms.Contains(s, d, extra) {
				flexible++
			}
		}
		need += max(0, r.days-maxRests-flexible)
	}

	slots := 0
	for d, day := range p.Problem.Days {
		for _, t := range vocab.Duties() {
			if day.Active(t) {
				slots++
			}
			trainees := 0
			for s, st := range p.Problem.Staff {
				if st.Grade(t) == model.GradeTrainee && doms.Contains(s, d, t) {
					trainees++
				}
			}
			if traineeCap {
				trainees = min(trainees, 1)
			}
			slots += trainees
		}
	}

	if need > slots {
		return &infeasibleError{reason: fmt.Sprintf(
			"不能排出勤的员工全期至少要上 %d 个班次，但只有 %d 个名额（每个班次一名可独立上岗者加见习）", need, slots)}
	}
	return nil
}
