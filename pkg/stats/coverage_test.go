package stats

import (
	"testing"

	"github.com/paiban/roster/pkg/model"
)

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	p := newProblem(t)
	a := model.NewAssignment(p.NumStaff(), p.NumDays())
	// 甲每天 A，乙每天 D：全覆盖
	fill(a, 1, 1)
	fill(a, 2, 2)

	m := NewCoverageAnalyzer().Analyze(p, a)
	if m.TotalPairs != 56 || m.CoveredPairs != 56 || m.OverallCoverage != 100 {
		t.Errorf("覆盖统计异常: total=%d covered=%d rate=%f", m.TotalPairs, m.CoveredPairs, m.OverallCoverage)
	}
	if len(m.UncoveredShifts) != 0 {
		t.Errorf("不应有未覆盖班次，实际 %d", len(m.UncoveredShifts))
	}
	if m.DailyCoverage[0].StaffCount != 2 || m.DailyCoverage[0].Resting != 2 {
		t.Errorf("首日人数异常: %+v", m.DailyCoverage[0])
	}
}

func TestCoverageAnalyzer_Gaps(t *testing.T) {
	p := newProblem(t)
	p.Days[0].Excluded[2] = true
	a := model.NewAssignment(p.NumStaff(), p.NumDays())
	fill(a, 1, 1)
	fill(a, 2, 1)             // A 每天两人覆盖
	fill(a, 3, 2, model.Rest) // 丙是 D 的见习

	m := NewCoverageAnalyzer().Analyze(p, a)

	// A 28 天全部多人，D 除停开的首日外 27 天无人
	if m.TotalPairs != 55 {
		t.Errorf("TotalPairs = %d, 期望 55", m.TotalPairs)
	}
	if m.CoveredPairs != 0 || len(m.UncoveredShifts) != 55 {
		t.Errorf("CoveredPairs=%d Uncovered=%d", m.CoveredPairs, len(m.UncoveredShifts))
	}
	if m.UncoveredShifts[0].Shift != "A" || m.UncoveredShifts[0].Capable != 2 {
		t.Errorf("首个未覆盖班次异常: %+v", m.UncoveredShifts[0])
	}
	if m.TraineeShifts != 14 || m.UnaccompaniedTrainees != 14 {
		t.Errorf("见习统计异常: %d/%d", m.TraineeShifts, m.UnaccompaniedTrainees)
	}
	if m.ShiftTypeCoverage["A"] != 0 || m.ShiftTypeCoverage["D"] != 0 {
		t.Errorf("按班次覆盖率异常: %v", m.ShiftTypeCoverage)
	}
	if m.DailyCoverage[0].Active != 1 {
		t.Errorf("首日开放班次应为 1，实际 %d", m.DailyCoverage[0].Active)
	}
}

func TestPercent(t *testing.T) {
	if percent(0, 0) != 100 {
		t.Error("无开放班次应视为完全覆盖")
	}
	if percent(1, 4) != 25 {
		t.Error("percent(1,4) 应为 25")
	}
}
