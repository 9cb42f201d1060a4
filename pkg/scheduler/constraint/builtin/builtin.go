// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// RegisterDefaultConstraints 按策略注册全部内置约束
func RegisterDefaultConstraints(manager *constraint.Manager, pol policy.Policy) {
	// 单元格取值
	manager.Register(NewOneShiftPerDayConstraint())
	manager.Register(NewForbiddenGradeConstraint())
	manager.Register(NewRequestPinningConstraint())
	manager.Register(NewExtraDutyRoleConstraint())
	manager.Register(NewShiftExclusionConstraint())

	// 按日
	manager.Register(NewCoverageConstraint(pol.Coverage))
	manager.Register(NewTraineeCapConstraint())
	manager.Register(NewRegularCoverageConstraint())

	// 按员工
	manager.Register(NewLateEarlyConstraint(pol.LateEarly))
	manager.Register(NewConsecutiveWorkConstraint(pol.Consecutive, pol.MaxConsecutive))
	manager.Register(NewHolidayQuotaConstraint(pol.Holiday, pol.HolidayTolerance))
	manager.Register(NewManagerRoleConstraint(pol.ManagerRole))
	manager.Register(NewTraineeQuotaConstraint())
	manager.Register(NewRestStreakConstraint())
	manager.Register(NewShiftRhythmConstraint())
}

// NewManager 创建已注册默认约束的管理器
func NewManager(pol policy.Policy) *constraint.Manager {
	m := constraint.NewManager()
	RegisterDefaultConstraints(m, pol)
	return m
}
