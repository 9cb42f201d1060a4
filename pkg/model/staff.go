package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role 员工角色
type Role int

const (
	RoleRegular Role = iota // 普通员工
	RoleManager             // 管理者
)

// String 返回角色名
func (r Role) String() string {
	if r == RoleManager {
		return "manager"
	}
	return "regular"
}

// ParseRole 解析角色
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regular", "staff", "一般":
		return RoleRegular, nil
	case "manager", "管理者":
		return RoleManager, nil
	}
	return RoleRegular, fmt.Errorf("未知角色 %q", s)
}

// Grade 技能等级
type Grade int

const (
	GradeCapable   Grade = iota // 可独立上岗（默认）
	GradeTrainee                // 见习，需有人带
	GradeForbidden              // 不可排
)

// String 返回等级名
func (g Grade) String() string {
	switch g {
	case GradeTrainee:
		return "trainee"
	case GradeForbidden:
		return "forbidden"
	default:
		return "capable"
	}
}

// ParseGrade 解析技能等级
func ParseGrade(s string) (Grade, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "capable", "ok", "◯", "○":
		return GradeCapable, nil
	case "trainee", "training", "△":
		return GradeTrainee, nil
	case "forbidden", "no", "×", "✕":
		return GradeForbidden, nil
	}
	return GradeCapable, fmt.Errorf("未知技能等级 %q", s)
}

// StaffNamespace 员工ID命名空间，按姓名派生稳定ID
var StaffNamespace = uuid.MustParse("6f1c2f4e-8a53-4d0c-9d5e-3b7a52c1e0a1")

// Staff 员工
type Staff struct {
	Index         int       `json:"index"`
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	HolidayTarget int       `json:"holiday_target"`
	// Grades 按 ShiftID 索引，Rest 与 ExtraDuty 恒为 Capable
	Grades []Grade `json:"grades"`
	// TraineeTargets 按 ShiftID 索引的见习次数目标
	TraineeTargets []int `json:"trainee_targets"`
}

// StaffID 按姓名派生员工ID
func StaffID(name string) uuid.UUID {
	return uuid.NewSHA1(StaffNamespace, []byte(name))
}

// Grade 返回某班次的技能等级
func (s *Staff) Grade(id ShiftID) Grade {
	if int(id) < 0 || int(id) >= len(s.Grades) {
		return GradeCapable
	}
	return s.Grades[id]
}

// TraineeTarget 返回某班次的见习目标
func (s *Staff) TraineeTarget(id ShiftID) int {
	if int(id) < 0 || int(id) >= len(s.TraineeTargets) {
		return 0
	}
	return s.TraineeTargets[id]
}

// IsManager 是否是管理者
func (s *Staff) IsManager() bool {
	return s.Role == RoleManager
}
