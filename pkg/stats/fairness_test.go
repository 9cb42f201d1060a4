package stats

import (
	"math"
	"testing"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalizer"
)

// newProblem 2026 年 2 月（28 天），A 早班、D 晚班，一名管理者加三名一般员工
func newProblem(t *testing.T) *model.Problem {
	t.Helper()
	p, err := normalizer.Normalize(&normalizer.RawConfig{
		Year:   2026,
		Month:  2,
		Shifts: []string{"A", "D"},
		Early:  []string{"A"},
		Late:   []string{"D"},
		Staff: []normalizer.RawStaff{
			{Name: "店长", Role: "manager", HolidayTarget: 8},
			{Name: "甲", HolidayTarget: 10},
			{Name: "乙", HolidayTarget: 10},
			{Name: "丙", HolidayTarget: 10, Skills: map[string]string{"D": "△"}},
		},
	})
	if err != nil {
		t.Fatalf("规范化失败: %v", err)
	}
	return p
}

// fill 按周期填充一行
func fill(a *model.Assignment, s int, cycle ...model.ShiftID) {
	for d := 0; d < a.Days(); d++ {
		a.Set(s, d, cycle[d%len(cycle)])
	}
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	p := newProblem(t)
	a := model.NewAssignment(p.NumStaff(), p.NumDays())
	fill(a, 0, p.Vocabulary.ExtraDuty())
	fill(a, 1, 1, 2, model.Rest, model.Rest) // 14 休
	fill(a, 2, 1, 1, 2, model.Rest)          // 7 休
	fill(a, 3, 2, 1, 1, model.Rest)          // 7 休

	metrics := NewFairnessAnalyzer().Analyze(p, a)

	if len(metrics.StaffStats) != 3 {
		t.Fatalf("默认不统计管理者，期望 3 行，实际 %d", len(metrics.StaffStats))
	}
	if got := metrics.StaffStats[0].Name; got != "丙" {
		t.Errorf("出勤最多且姓名排序靠前的应为 丙，实际 %s", got)
	}
	if math.Abs(metrics.RestMean-28.0/3) > 1e-9 {
		t.Errorf("RestMean = %f", metrics.RestMean)
	}
	if metrics.RestGini <= 0 || metrics.RestGini >= 1 {
		t.Errorf("RestGini 应在 (0,1)，实际 %f", metrics.RestGini)
	}
	if metrics.MaxWork != 21 || metrics.MinWork != 14 {
		t.Errorf("MaxWork/MinWork = %d/%d", metrics.MaxWork, metrics.MinWork)
	}
	// 店长 |0-8| + 甲 |14-10| + 乙 |7-10| + 丙 |7-10|
	if metrics.HolidayError != 18 {
		t.Errorf("HolidayError = %d, 期望 18", metrics.HolidayError)
	}
	if metrics.OverallFairnessScore < 0 || metrics.OverallFairnessScore > 100 {
		t.Errorf("评分越界 %f", metrics.OverallFairnessScore)
	}

	var early, late float64
	for k, v := range metrics.CategoryDistribution {
		switch k {
		case model.CategoryEarly.String():
			early = v
		case model.CategoryLate.String():
			late = v
		}
	}
	if math.Abs(early+late-100) > 1e-9 || early <= late {
		t.Errorf("早晚班占比异常: early=%f late=%f", early, late)
	}
}

func TestFairnessAnalyzer_IncludeManagers(t *testing.T) {
	p := newProblem(t)
	a := model.NewAssignment(p.NumStaff(), p.NumDays())
	fill(a, 0, p.Vocabulary.ExtraDuty(), model.Rest)

	metrics := NewFairnessAnalyzer().IncludeManagers().Analyze(p, a)
	if len(metrics.StaffStats) != 4 {
		t.Fatalf("期望 4 行，实际 %d", len(metrics.StaffStats))
	}
	top := metrics.StaffStats[0]
	if top.Name != "店长" || top.ExtraDuty != 14 || top.WeekendWork != 4 {
		t.Errorf("店长统计异常: %+v", top)
	}
}

func TestFairnessAnalyzer_Equal(t *testing.T) {
	p := newProblem(t)
	a := model.NewAssignment(p.NumStaff(), p.NumDays())
	for s := 1; s < p.NumStaff(); s++ {
		fill(a, s, 1, 2, model.Rest)
	}

	metrics := NewFairnessAnalyzer().Analyze(p, a)
	if metrics.RestGini != 0 || metrics.RestStdDev != 0 || metrics.WorkVariance != 0 {
		t.Errorf("完全均等应无差异: %+v", metrics)
	}
	for _, st := range metrics.StaffStats {
		if st.Deviation != 0 {
			t.Errorf("%s 偏差应为 0，实际 %f", st.Name, st.Deviation)
		}
	}
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	p := newProblem(t)
	p.Staff = p.Staff[:1]
	a := model.NewAssignment(1, p.NumDays())

	metrics := NewFairnessAnalyzer().Analyze(p, a)
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("无一般员工时评分应为 100，实际 %f", metrics.OverallFairnessScore)
	}
}

func TestGini(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"空", nil, 0},
		{"全零", []float64{0, 0, 0}, 0},
		{"均等", []float64{5, 5, 5, 5}, 0},
		{"一人独占", []float64{0, 0, 0, 4}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gini(tt.values); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("gini(%v) = %f, 期望 %f", tt.values, got, tt.want)
			}
		})
	}
}

func TestCompareSchedules(t *testing.T) {
	p := newProblem(t)
	even := model.NewAssignment(p.NumStaff(), p.NumDays())
	uneven := model.NewAssignment(p.NumStaff(), p.NumDays())
	for s := 1; s < p.NumStaff(); s++ {
		fill(even, s, 1, 2, model.Rest)
	}
	fill(uneven, 1, 1, 2, 2, 1)
	fill(uneven, 2, 1, model.Rest)

	diff := NewFairnessAnalyzer().CompareSchedules(p, even, uneven)
	if diff["overall_score_diff"] >= 0 {
		t.Errorf("不均等排班评分应更低，diff=%f", diff["overall_score_diff"])
	}
	if diff["rest_gini_diff"] <= 0 {
		t.Errorf("不均等排班基尼系数应更高，diff=%f", diff["rest_gini_diff"])
	}
}
