package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TailDays 上期末尾携带的天数
const TailDays = 4

// Status 求解状态
type Status int

const (
	StatusOptimal            Status = iota // 已证明最优
	StatusFeasible                         // 可行但未证明最优
	StatusInfeasible                       // 已证明无可行解
	StatusTimedOutNoSolution               // 时限内未找到可行解
)

// String 返回状态名
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "timed_out_no_solution"
	}
}

// HasSolution 是否携带可用排班
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// MarshalText 序列化为状态名
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Day 排班周期中的一天
type Day struct {
	Index   int          `json:"index"`
	Date    time.Time    `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	// Excluded 按 ShiftID 索引，true 表示该班次当天停开
	Excluded []bool `json:"excluded"`
}

// IsWeekend 是否周末
func (d Day) IsWeekend() bool {
	return d.Weekday == time.Saturday || d.Weekday == time.Sunday
}

// Active 班次当天是否开放
func (d Day) Active(id ShiftID) bool {
	return int(id) >= len(d.Excluded) || !d.Excluded[id]
}

// Header 表头，如 "1(Mon)"
func (d Day) Header() string {
	return fmt.Sprintf("%d(%s)", d.Date.Day(), d.Weekday.String()[:3])
}

// MonthDays 生成某年某月的全部日期
func MonthDays(year int, month time.Month, shifts int) []Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	n := first.AddDate(0, 1, -1).Day()
	days := make([]Day, n)
	for i := range days {
		date := first.AddDate(0, 0, i)
		days[i] = Day{
			Index:    i,
			Date:     date,
			Weekday:  date.Weekday(),
			Excluded: make([]bool, shifts),
		}
	}
	return days
}

// TailDay 上期某天的实际情况
type TailDay struct {
	Shift   ShiftID `json:"shift"` // 未知时为 NoShift
	Working bool    `json:"working"`
}

// Problem 规范化后的排班问题快照
type Problem struct {
	ID         uuid.UUID   `json:"id"`
	Year       int         `json:"year"`
	Month      time.Month  `json:"month"`
	Vocabulary *Vocabulary `json:"-"`
	Staff      []*Staff    `json:"staff"`
	Days       []Day       `json:"days"`
	// Requests[员工][日期]，NoShift 表示无请求
	Requests [][]ShiftID `json:"requests"`
	// Tail[员工] 为最近 TailDays 天，最旧在前
	Tail [][]TailDay `json:"tail"`
}

// NumStaff 员工数
func (p *Problem) NumStaff() int { return len(p.Staff) }

// NumDays 天数
func (p *Problem) NumDays() int { return len(p.Days) }

// Request 获取请求，无请求返回 NoShift
func (p *Problem) Request(s, d int) ShiftID {
	if s >= len(p.Requests) || d >= len(p.Requests[s]) {
		return NoShift
	}
	return p.Requests[s][d]
}

// TailAt 获取上期第 offset 天（-1 为第 0 天前一天），无记录视为未出勤
func (p *Problem) TailAt(s, offset int) TailDay {
	if s < 0 || s >= len(p.Tail) {
		return TailDay{Shift: NoShift}
	}
	row := p.Tail[s]
	i := len(row) + offset
	if offset >= 0 || i < 0 {
		return TailDay{Shift: NoShift}
	}
	return row[i]
}

// Period 返回 YYYY-MM
func (p *Problem) Period() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// NextPeriod 返回下一期 YYYY-MM
func (p *Problem) NextPeriod() string {
	t := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ActivePairs 开放的（日期,班次）数量
func (p *Problem) ActivePairs() int {
	n := 0
	for _, day := range p.Days {
		for _, t := range p.Vocabulary.Duties() {
			if day.Active(t) {
				n++
			}
		}
	}
	return n
}
