// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/paiban/roster/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 休息公平性
	RestGini     float64 `json:"rest_gini"`     // 休息天数基尼系数 (0=完全公平, 1=完全不公平)
	RestMean     float64 `json:"rest_mean"`     // 人均休息天数
	RestStdDev   float64 `json:"rest_std_dev"`  // 休息天数标准差
	WorkVariance float64 `json:"work_variance"` // 出勤天数方差
	MaxWork      int     `json:"max_work"`      // 最多出勤天数
	MinWork      int     `json:"min_work"`      // 最少出勤天数
	HolidayError int     `json:"holiday_error"` // 公休偏差绝对值之和

	// 班次类别公平性
	CategoryDistribution map[string]float64 `json:"category_distribution"` // 早/晚/普通班占比 (%)
	LateShiftGini        float64            `json:"late_shift_gini"`       // 晚班分配基尼系数
	WeekendWorkGini      float64            `json:"weekend_work_gini"`     // 周末出勤基尼系数

	StaffStats []StaffStat `json:"staff_stats"`

	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// StaffStat 员工统计
type StaffStat struct {
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Rests       int     `json:"rests"`
	Work        int     `json:"work"`
	EarlyShifts int     `json:"early_shifts"`
	LateShifts  int     `json:"late_shifts"`
	WeekendWork int     `json:"weekend_work"`
	ExtraDuty   int     `json:"extra_duty"`
	Deviation   float64 `json:"deviation"` // 出勤天数与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	// 只统计一般员工；管理者作息由角色规则决定，不参与比较
	regularsOnly bool
}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{regularsOnly: true}
}

// IncludeManagers 管理者也参与公平性比较
func (f *FairnessAnalyzer) IncludeManagers() *FairnessAnalyzer {
	f.regularsOnly = false
	return f
}

// Analyze 分析排班公平性
func (f *FairnessAnalyzer) Analyze(p *model.Problem, a *model.Assignment) *FairnessMetrics {
	staffStats := f.staffStats(p, a)
	if len(staffStats) == 0 {
		return &FairnessMetrics{
			CategoryDistribution: make(map[string]float64),
			StaffStats:           []StaffStat{},
			OverallFairnessScore: 100,
		}
	}

	rests := make([]float64, len(staffStats))
	work := make([]float64, len(staffStats))
	late := make([]float64, len(staffStats))
	weekend := make([]float64, len(staffStats))
	for i, st := range staffStats {
		rests[i] = float64(st.Rests)
		work[i] = float64(st.Work)
		late[i] = float64(st.LateShifts)
		weekend[i] = float64(st.WeekendWork)
	}

	restMean, restStd := stat.PopMeanStdDev(rests, nil)
	workMean := stat.Mean(work, nil)
	_, workVar := stat.PopMeanVariance(work, nil)
	for i := range staffStats {
		if workMean > 0 {
			staffStats[i].Deviation = (work[i] - workMean) / workMean * 100
		}
	}

	m := &FairnessMetrics{
		RestGini:             gini(rests),
		RestMean:             restMean,
		RestStdDev:           restStd,
		WorkVariance:         workVar,
		CategoryDistribution: categoryDistribution(p, a),
		LateShiftGini:        gini(late),
		WeekendWorkGini:      gini(weekend),
		StaffStats:           staffStats,
	}
	m.MaxWork, m.MinWork = staffStats[0].Work, staffStats[len(staffStats)-1].Work
	for s, st := range p.Staff {
		m.HolidayError += abs(a.RestCount(s) - st.HolidayTarget)
	}
	m.OverallFairnessScore = overallScore(m.RestGini, m.LateShiftGini, m.WeekendWorkGini, restStd, restMean)
	return m
}

func (f *FairnessAnalyzer) staffStats(p *model.Problem, a *model.Assignment) []StaffStat {
	vocab := p.Vocabulary
	out := make([]StaffStat, 0, p.NumStaff())
	for s, st := range p.Staff {
		if f.regularsOnly && st.IsManager() {
			continue
		}
		ss := StaffStat{Name: st.Name, Role: st.Role.String()}
		for d, day := range p.Days {
			v := a.Get(s, d)
			if !model.IsWorking(v) {
				ss.Rests++
				continue
			}
			ss.Work++
			if day.IsWeekend() {
				ss.WeekendWork++
			}
			switch {
			case v == vocab.ExtraDuty():
				ss.ExtraDuty++
			case vocab.CategoryOf(v) == model.CategoryEarly:
				ss.EarlyShifts++
			case vocab.CategoryOf(v) == model.CategoryLate:
				ss.LateShifts++
			}
		}
		out = append(out, ss)
	}

	// 按出勤天数降序，同天数按姓名
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Work != out[j].Work {
			return out[i].Work > out[j].Work
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// categoryDistribution 配置班次中早/晚/普通班的占比
func categoryDistribution(p *model.Problem, a *model.Assignment) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for s := range p.Staff {
		for d := range p.Days {
			v := a.Get(s, d)
			if !p.Vocabulary.IsDuty(v) {
				continue
			}
			counts[p.Vocabulary.CategoryOf(v).String()]++
			total++
		}
	}
	dist := make(map[string]float64, len(counts))
	for k, n := range counts {
		dist[k] = float64(n) / float64(total) * 100
	}
	return dist
}

// gini 基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := stat.Mean(sorted, nil) * float64(n)
	if sum == 0 {
		return 0
	}
	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g /= float64(n) * sum
	return math.Max(0, math.Min(1, g))
}

// overallScore 综合公平性评分
func overallScore(restGini, lateGini, weekendGini, restStd, restMean float64) float64 {
	const (
		restWeight    = 0.4
		lateWeight    = 0.25
		weekendWeight = 0.25
		cvWeight      = 0.1
	)

	cvScore := 100.0
	if restMean > 0 {
		cvScore = math.Max(0, 100-restStd/restMean*200)
	}
	score := restWeight*(1-restGini)*100 +
		lateWeight*(1-lateGini)*100 +
		weekendWeight*(1-weekendGini)*100 +
		cvWeight*cvScore
	return math.Max(0, math.Min(100, score))
}

// CompareSchedules 比较同一问题下两张排班的公平性
func (f *FairnessAnalyzer) CompareSchedules(p *model.Problem, a1, a2 *model.Assignment) map[string]float64 {
	m1 := f.Analyze(p, a1)
	m2 := f.Analyze(p, a2)
	return map[string]float64{
		"rest_gini_diff":          m2.RestGini - m1.RestGini,
		"late_gini_diff":          m2.LateShiftGini - m1.LateShiftGini,
		"weekend_gini_diff":       m2.WeekendWorkGini - m1.WeekendWorkGini,
		"overall_score_diff":      m2.OverallFairnessScore - m1.OverallFairnessScore,
		"schedule1_overall_score": m1.OverallFairnessScore,
		"schedule2_overall_score": m2.OverallFairnessScore,
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
