package stats

import (
	"github.com/paiban/roster/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖率
	TotalPairs      int     `json:"total_pairs"`      // 开放的（日期,班次）数
	CoveredPairs    int     `json:"covered_pairs"`    // 恰好一名可独立上岗者的数量
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage     []DayCoverage      `json:"daily_coverage"`      // 每日覆盖情况
	ShiftTypeCoverage map[string]float64 `json:"shift_type_coverage"` // 按班次覆盖率 (%)

	// 问题识别
	UncoveredShifts       []UncoveredShift `json:"uncovered_shifts"`       // 无人或多人覆盖的班次
	TraineeShifts         int              `json:"trainee_shifts"`         // 见习出勤人次
	UnaccompaniedTrainees int              `json:"unaccompanied_trainees"` // 无人带的见习人次
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day          string  `json:"day"`
	Active       int     `json:"active"`
	Covered      int     `json:"covered"`
	CoverageRate float64 `json:"coverage_rate"`
	StaffCount   int     `json:"staff_count"` // 当天出勤人数
	Resting      int     `json:"resting"`
}

// UncoveredShift 未恰好覆盖的班次
type UncoveredShift struct {
	Day     string `json:"day"`
	Shift   string `json:"shift"`
	Capable int    `json:"capable"` // 实际可独立上岗人数
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析覆盖率
func (c *CoverageAnalyzer) Analyze(p *model.Problem, a *model.Assignment) *CoverageMetrics {
	m := &CoverageMetrics{
		DailyCoverage:     make([]DayCoverage, 0, p.NumDays()),
		ShiftTypeCoverage: make(map[string]float64),
		UncoveredShifts:   []UncoveredShift{},
	}
	vocab := p.Vocabulary
	typeActive := make(map[model.ShiftID]int)
	typeCovered := make(map[model.ShiftID]int)

	for d, day := range p.Days {
		dc := DayCoverage{Day: day.Header()}
		capable := make(map[model.ShiftID]int)
		trainees := make(map[model.ShiftID]int)
		for s, st := range p.Staff {
			v := a.Get(s, d)
			if !model.IsWorking(v) {
				dc.Resting++
				continue
			}
			dc.StaffCount++
			if !vocab.IsDuty(v) {
				continue
			}
			switch st.Grade(v) {
			case model.GradeCapable:
				capable[v]++
			case model.GradeTrainee:
				trainees[v]++
			}
		}

		for _, t := range vocab.Duties() {
			m.TraineeShifts += trainees[t]
			if capable[t] == 0 {
				m.UnaccompaniedTrainees += trainees[t]
			}
			if !day.Active(t) {
				continue
			}
			dc.Active++
			typeActive[t]++
			if capable[t] == 1 {
				dc.Covered++
				typeCovered[t]++
				continue
			}
			m.UncoveredShifts = append(m.UncoveredShifts, UncoveredShift{
				Day: day.Header(), Shift: vocab.Code(t), Capable: capable[t],
			})
		}
		dc.CoverageRate = percent(dc.Covered, dc.Active)
		m.TotalPairs += dc.Active
		m.CoveredPairs += dc.Covered
		m.DailyCoverage = append(m.DailyCoverage, dc)
	}

	for _, t := range vocab.Duties() {
		m.ShiftTypeCoverage[vocab.Code(t)] = percent(typeCovered[t], typeActive[t])
	}
	m.OverallCoverage = percent(m.CoveredPairs, m.TotalPairs)
	return m
}

// percent 没有开放班次时视为完全覆盖
func percent(n, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(n) / float64(total) * 100
}
