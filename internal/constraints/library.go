// Package constraints 内置规则说明库
package constraints

import (
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, string
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // 当前策略下为 hard 或 soft
	Category    string            `json:"category"` // 分类
	Scope       string            `json:"scope"`    // cell, day, staff
	Tier        string            `json:"tier"`     // 得分所属层
	PolicyKey   string            `json:"policy_key,omitempty"`
	Description string            `json:"description"`
	Params      []ConstraintParam `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Policy  policy.Policy          `json:"policy"`
	Library []ConstraintDefinition `json:"library"`
}

type entry struct {
	category    string
	policyKey   string
	description string
	params      []ConstraintParam
}

var strictnessParam = func(key, def string) []ConstraintParam {
	return []ConstraintParam{{Name: key, Type: "string", Description: "hard 或 soft", Default: def}}
}

var entries = map[constraint.Type]entry{
	constraint.TypeOneShiftPerDay: {
		category:    "取值范围",
		description: "每人每天恰好一个取值：休息、某个班次或出勤。",
	},
	constraint.TypeForbiddenGrade: {
		category:    "技能",
		description: "技能等级为 × 的班次不会分配给该员工。",
	},
	constraint.TypeRequestPinning: {
		category:    "请求",
		description: "员工在某天提出的班次请求必须满足，请求本身不可满足时整期无解。",
	},
	constraint.TypeExtraDutyRole: {
		category:    "角色",
		description: "出勤只分配给管理者；普通员工仅在请求时才会被排出勤。",
	},
	constraint.TypeShiftExclusion: {
		category:    "日历",
		description: "当天停开的班次（如周日的 C 班）不排人，也不要求覆盖。",
	},
	constraint.TypeCoverage: {
		category:    "覆盖",
		policyKey:   "coverage",
		description: "每天每个开放班次恰好由一名可独立上岗者担任；软约束时按覆盖数计分。",
		params:      strictnessParam("coverage", "soft"),
	},
	constraint.TypeTraineeCap: {
		category:    "覆盖",
		description: "同一天同一班次的见习人数不超过可独立上岗人数。",
	},
	constraint.TypeRegularCoverage: {
		category:    "覆盖",
		description: "开放班次优先由普通员工而非管理者覆盖。",
	},
	constraint.TypeLateEarly: {
		category:    "休息保障",
		policyKey:   "late_early",
		description: "晚班后的次日不排早班，包括与上期末日的衔接。",
		params:      strictnessParam("late_early", "hard"),
	},
	constraint.TypeConsecutiveWork: {
		category:    "休息保障",
		policyKey:   "consecutive",
		description: "任意连续 N+1 天中至少休息一天，窗口可跨越上期末尾。",
		params: append(strictnessParam("consecutive", "hard"),
			ConstraintParam{Name: "max_consecutive", Type: "int", Description: "最多连续出勤天数", Default: "4", Min: "1", Max: "14"}),
	},
	constraint.TypeManagerRole: {
		category:    "角色",
		policyKey:   "manager_role",
		description: "管理者平日出勤、周末休息。",
		params:      strictnessParam("manager_role", "soft"),
	},
	constraint.TypeHolidayQuota: {
		category:    "休息保障",
		policyKey:   "holiday",
		description: "每人休息天数等于公休目标；tolerance 模式允许偏差，soft 模式按偏差扣分。",
		params: []ConstraintParam{
			{Name: "holiday", Type: "string", Description: "exact, tolerance 或 soft", Default: "exact"},
			{Name: "holiday_tolerance", Type: "int", Description: "允许的偏差天数", Default: "1", Min: "0", Max: "5"},
		},
	},
	constraint.TypeTraineeQuota: {
		category:    "技能",
		description: "见习次数尽量接近各班次的见习目标。",
	},
	constraint.TypeRestStreak: {
		category:    "偏好",
		description: "尽量避免连续休息。",
	},
	constraint.TypeShiftRhythm: {
		category:    "偏好",
		description: "相邻工作日尽量轮换不同班次。",
	},
}

// GetLibrary 按策略列出全部内置约束，类型随策略的严格程度变化
func GetLibrary(pol policy.Policy) []ConstraintDefinition {
	m := builtin.NewManager(pol)
	all := m.GetAll()
	out := make([]ConstraintDefinition, 0, len(all))
	for _, c := range all {
		e := entries[c.Type()]
		def := ConstraintDefinition{
			Name:        string(c.Type()),
			DisplayName: c.Name(),
			Type:        string(c.Category()),
			Category:    e.category,
			Scope:       scopeName(c),
			Tier:        c.Tier().String(),
			PolicyKey:   e.policyKey,
			Description: e.description,
			Params:      e.params,
		}
		if def.Params == nil {
			def.Params = []ConstraintParam{}
		}
		out = append(out, def)
	}
	return out
}

// GetByType 按类型查找约束定义
func GetByType(pol policy.Policy, name string) (ConstraintDefinition, bool) {
	for _, def := range GetLibrary(pol) {
		if def.Name == name {
			return def, true
		}
	}
	return ConstraintDefinition{}, false
}

func scopeName(c constraint.Constraint) string {
	if _, ok := c.(*builtin.CellConstraint); ok {
		return "cell"
	}
	if c.Scope() == constraint.ScopeDay {
		return "day"
	}
	return "staff"
}
