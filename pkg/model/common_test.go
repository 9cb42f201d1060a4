package model

import (
	"testing"
	"time"
)

func TestMonthDays(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		month   time.Month
		days    int
		weekday time.Weekday
	}{
		{"2025年1月", 2025, time.January, 31, time.Wednesday},
		{"2026年2月", 2026, time.February, 28, time.Sunday},
		{"2024年闰月", 2024, time.February, 29, time.Thursday},
		{"2025年6月", 2025, time.June, 30, time.Sunday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := MonthDays(tt.year, tt.month, 4)
			if len(days) != tt.days {
				t.Fatalf("len = %d, expected %d", len(days), tt.days)
			}
			if days[0].Weekday != tt.weekday {
				t.Errorf("首日星期 = %v, expected %v", days[0].Weekday, tt.weekday)
			}
			if len(days[0].Excluded) != 4 {
				t.Errorf("Excluded len = %d", len(days[0].Excluded))
			}
		})
	}
}

func TestDay_HeaderAndWeekend(t *testing.T) {
	days := MonthDays(2025, time.January, 3)

	if got := days[0].Header(); got != "1(Wed)" {
		t.Errorf("Header() = %q", got)
	}
	if !days[3].IsWeekend() || !days[4].IsWeekend() || days[5].IsWeekend() {
		t.Error("2025-01-04/05 应为周末，01-06 不是")
	}

	days[2].Excluded[1] = true
	if days[2].Active(1) || !days[2].Active(2) {
		t.Error("Active 判断错误")
	}
}

func TestProblem_TailAndPeriod(t *testing.T) {
	p := &Problem{
		Year:  2025,
		Month: time.December,
		Tail: [][]TailDay{{
			{Shift: Rest},
			{Shift: 1, Working: true},
			{Shift: 2, Working: true},
			{Shift: 5, Working: true},
		}},
	}

	if got := p.TailAt(0, -1); got.Shift != 5 || !got.Working {
		t.Errorf("TailAt(-1) = %+v", got)
	}
	if got := p.TailAt(0, -4); got.Shift != Rest {
		t.Errorf("TailAt(-4) = %+v", got)
	}
	if got := p.TailAt(0, -5); got.Shift != NoShift || got.Working {
		t.Errorf("越界应视为未出勤: %+v", got)
	}
	if got := p.TailAt(1, -1); got.Shift != NoShift || got.Working {
		t.Errorf("无末尾记录的员工应视为未出勤: %+v", got)
	}
	if got := (&Problem{}).TailAt(0, -1); got.Shift != NoShift || got.Working {
		t.Errorf("未设置 Tail 时应视为未出勤: %+v", got)
	}
	if p.Period() != "2025-12" || p.NextPeriod() != "2026-01" {
		t.Errorf("Period = %s, Next = %s", p.Period(), p.NextPeriod())
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
		solution bool
	}{
		{StatusOptimal, "optimal", true},
		{StatusFeasible, "feasible", true},
		{StatusInfeasible, "infeasible", false},
		{StatusTimedOutNoSolution, "timed_out_no_solution", false},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if tt.status.String() != tt.expected || tt.status.HasSolution() != tt.solution {
				t.Errorf("%v: String=%s HasSolution=%v", tt.status, tt.status.String(), tt.status.HasSolution())
			}
		})
	}
}
