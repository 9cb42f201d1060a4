// Package policy 定义目标分层、各规则的严格程度以及分层权重的计算
package policy

import (
	"fmt"
	"strings"
)

// Strictness 规则的严格程度
type Strictness int

const (
	Hard Strictness = iota // 硬约束
	Soft                   // 软约束，违反计入对应层
)

// String 返回名称
func (s Strictness) String() string {
	if s == Soft {
		return "soft"
	}
	return "hard"
}

// ParseStrictness 解析严格程度，"strict" 等同 hard
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hard", "strict":
		return Hard, nil
	case "soft":
		return Soft, nil
	}
	return Hard, fmt.Errorf("未知严格程度 %q", s)
}

// HolidayMode 公休天数规则模式
type HolidayMode int

const (
	HolidayExact     HolidayMode = iota // 精确等于目标
	HolidayTolerance                    // 允许偏差，偏差越小越好
	HolidaySoft                         // 仅作为偏好
)

// String 返回名称
func (m HolidayMode) String() string {
	switch m {
	case HolidayTolerance:
		return "tolerance"
	case HolidaySoft:
		return "soft"
	default:
		return "exact"
	}
}

// ParseHolidayMode 解析公休模式
func ParseHolidayMode(s string) (HolidayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "":
		return HolidayExact, nil
	case "tolerance":
		return HolidayTolerance, nil
	case "soft":
		return HolidaySoft, nil
	}
	return HolidayExact, fmt.Errorf("未知公休模式 %q", s)
}

// Weighting 比较方式
type Weighting int

const (
	Scalarized    Weighting = iota // 按计算出的权重求和
	Lexicographic                  // 逐层比较
)

// String 返回名称
func (w Weighting) String() string {
	if w == Lexicographic {
		return "lexicographic"
	}
	return "scalar"
}

// ParseWeighting 解析比较方式
func ParseWeighting(s string) (Weighting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar", "scalarized", "":
		return Scalarized, nil
	case "lexicographic", "lex":
		return Lexicographic, nil
	}
	return Scalarized, fmt.Errorf("未知比较方式 %q", s)
}

// Policy 单次求解的规则策略，每条规则在一次求解中只取一种严格程度
type Policy struct {
	Coverage         Strictness  `json:"coverage"`
	LateEarly        Strictness  `json:"late_early"`
	Consecutive      Strictness  `json:"consecutive"`
	ManagerRole      Strictness  `json:"manager_role"`
	Holiday          HolidayMode `json:"holiday"`
	HolidayTolerance int         `json:"holiday_tolerance"`
	MaxConsecutive   int         `json:"max_consecutive"`
	Weighting        Weighting   `json:"weighting"`
}

// Default 默认策略：覆盖为软约束，其余法定规则为硬约束
func Default() Policy {
	return Policy{
		Coverage:         Soft,
		LateEarly:        Hard,
		Consecutive:      Hard,
		ManagerRole:      Soft,
		Holiday:          HolidayExact,
		HolidayTolerance: 1,
		MaxConsecutive:   4,
		Weighting:        Scalarized,
	}
}

// Validate 检查策略参数
func (p Policy) Validate() error {
	if p.MaxConsecutive < 1 {
		return fmt.Errorf("max_consecutive 必须 >= 1，当前 %d", p.MaxConsecutive)
	}
	if p.Holiday == HolidayTolerance && p.HolidayTolerance < 0 {
		return fmt.Errorf("holiday_tolerance 不能为负，当前 %d", p.HolidayTolerance)
	}
	return nil
}

// HolidayBand 返回公休天数的硬性允许区间
func (p Policy) HolidayBand(target, days int) (lo, hi int) {
	switch p.Holiday {
	case HolidayExact:
		return target, target
	case HolidayTolerance:
		lo, hi = target-p.HolidayTolerance, target+p.HolidayTolerance
		if lo < 0 {
			lo = 0
		}
		if hi > days {
			hi = days
		}
		return lo, hi
	default:
		return 0, days
	}
}
