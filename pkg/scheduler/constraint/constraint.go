// Package constraint 定义约束接口和管理器
package constraint

import (
	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// Type 约束类型标识
type Type string

const (
	// 单元格取值约束
	TypeOneShiftPerDay Type = "one_shift_per_day"
	TypeForbiddenGrade Type = "forbidden_grade"
	TypeRequestPinning Type = "request_pinning"
	TypeExtraDutyRole  Type = "extra_duty_role"
	TypeShiftExclusion Type = "shift_exclusion"

	// 按日约束
	TypeCoverage        Type = "coverage"
	TypeTraineeCap      Type = "trainee_cap"
	TypeRegularCoverage Type = "regular_coverage"

	// 按员工约束
	TypeLateEarly       Type = "late_early"
	TypeConsecutiveWork Type = "consecutive_work"
	TypeManagerRole     Type = "manager_role"
	TypeHolidayQuota    Type = "holiday_quota"
	TypeTraineeQuota    Type = "trainee_quota"
	TypeRestStreak      Type = "rest_streak"
	TypeShiftRhythm     Type = "shift_rhythm"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// CategoryOf 由策略的严格程度得到类别
func CategoryOf(s policy.Strictness) Category {
	if s == policy.Soft {
		return CategorySoft
	}
	return CategoryHard
}

// Scope 约束的评估范围
type Scope int

const (
	ScopeStaff Scope = iota // 按员工一行评估
	ScopeDay                // 按日期一列评估
)

// Eval 单行或单列的评估结果
type Eval struct {
	Hard  int   // 硬约束违反次数
	Units int64 // 计入所属层的得分
}

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Tier 返回得分所属层
	Tier() policy.Tier

	// Scope 返回评估范围
	Scope() Scope

	// Bounds 返回整张排班在所属层上的得分范围
	Bounds(p *Plan) (lo, hi int64)

	// Evaluate 评估一行（员工下标）或一列（日期下标）
	Evaluate(p *Plan, index int) Eval

	// Explain 列出一行或一列的违反详情
	Explain(p *Plan, index int) []ViolationDetail
}

// DomainFilter 可在单元格上直接裁剪取值的约束
type DomainFilter interface {
	Allows(p *Plan, s, d int, v model.ShiftID) bool
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type      `json:"constraint_type"`
	ConstraintName string    `json:"constraint_name"`
	StaffID        uuid.UUID `json:"staff_id,omitempty"`
	Staff          string    `json:"staff,omitempty"`
	Day            int       `json:"day"` // 1 起，0 表示整行
	Shift          string    `json:"shift,omitempty"`
	Message        string    `json:"message"`
	Severity       string    `json:"severity"` // error/warning
	Units          int64     `json:"units"`
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	HardCount      int               `json:"hard_count"`
	Score          policy.Score      `json:"score"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
}
