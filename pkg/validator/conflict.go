// Package validator 提供排班验证功能，直接在排班表上复核不变式
package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictShape       ConflictType = "shape"        // 排班表尺寸或取值无效
	ConflictForbidden   ConflictType = "forbidden"    // 禁止的技能等级
	ConflictRequest     ConflictType = "request"      // 未按请求排班
	ConflictExtraDuty   ConflictType = "extra_duty"   // 一般员工未经请求出勤
	ConflictExclusion   ConflictType = "exclusion"    // 停开班次有人
	ConflictLateEarly   ConflictType = "late_early"   // 晚班接早班
	ConflictConsecutive ConflictType = "consecutive"  // 连续天数过多
	ConflictHoliday     ConflictType = "holiday"      // 公休天数不符
	ConflictCoverage    ConflictType = "coverage"     // 覆盖人数不为 1
	ConflictTraineeCap  ConflictType = "trainee_cap"  // 见习超员
	ConflictManager     ConflictType = "manager_role" // 管理者作息
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	StaffID  uuid.UUID    `json:"staff_id,omitempty"`
	Staff    string       `json:"staff,omitempty"`
	Day      int          `json:"day"` // 1 起，0 表示整行或整期
	Shift    string       `json:"shift,omitempty"`
	Message  string       `json:"message"`
}

// DetectorConfig 检测器配置，按策略决定哪些规则是硬性的
type DetectorConfig struct {
	MaxConsecutiveDays int  // 最大连续工作天数
	CheckLateEarly     bool // 是否检查晚接早
	CheckConsecutive   bool // 是否检查连续出勤
	CheckCoverage      bool // 是否检查覆盖
	CheckTraineeCap    bool // 是否检查见习人数
	CheckManagerRole   bool // 是否检查管理者作息
	Policy             policy.Policy
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return ConfigFromPolicy(policy.Default())
}

// ConfigFromPolicy 由求解策略生成检测配置
func ConfigFromPolicy(p policy.Policy) *DetectorConfig {
	return &DetectorConfig{
		MaxConsecutiveDays: p.MaxConsecutive,
		CheckLateEarly:     p.LateEarly == policy.Hard,
		CheckConsecutive:   p.Consecutive == policy.Hard,
		CheckCoverage:      p.Coverage == policy.Hard,
		CheckTraineeCap:    true,
		CheckManagerRole:   p.ManagerRole == policy.Hard,
		Policy:             p,
	}
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测所有冲突，按日期与员工排序
func (d *ConflictDetector) DetectAll(p *model.Problem, a *model.Assignment) []Conflict {
	if conflicts := d.detectShape(p, a); len(conflicts) > 0 {
		return conflicts
	}

	var conflicts []Conflict
	for s := range p.Staff {
		conflicts = append(conflicts, d.detectCells(p, a, s)...)
		conflicts = append(conflicts, d.detectRow(p, a, s)...)
	}
	for day := range p.Days {
		conflicts = append(conflicts, d.detectDay(p, a, day)...)
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Day != conflicts[j].Day {
			return conflicts[i].Day < conflicts[j].Day
		}
		return conflicts[i].Staff < conflicts[j].Staff
	})
	return conflicts
}

// HasErrors 是否存在 error 级冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == "error" {
			return true
		}
	}
	return false
}

func (d *ConflictDetector) detectShape(p *model.Problem, a *model.Assignment) []Conflict {
	if a == nil || len(a.Grid) != p.NumStaff() {
		return []Conflict{{Type: ConflictShape, Severity: "error", Message: fmt.Sprintf("排班表应有 %d 行", p.NumStaff())}}
	}
	var conflicts []Conflict
	for s, row := range a.Grid {
		st := p.Staff[s]
		if len(row) != p.NumDays() {
			conflicts = append(conflicts, newConflict(ConflictShape, st, 0, "",
				fmt.Sprintf("应有 %d 天，实际 %d 天", p.NumDays(), len(row))))
			continue
		}
		for day, v := range row {
			if !p.Vocabulary.Valid(v) {
				conflicts = append(conflicts, newConflict(ConflictShape, st, day+1, "",
					fmt.Sprintf("无效班次编号 %d", v)))
			}
		}
	}
	return conflicts
}

func newConflict(t ConflictType, st *model.Staff, day int, shift, msg string) Conflict {
	c := Conflict{Type: t, Severity: "error", Day: day, Shift: shift, Message: msg}
	if st != nil {
		c.StaffID = st.ID
		c.Staff = st.Name
	}
	return c
}

// detectCells 单元格级：技能、请求、出勤角色、停开班次、管理者作息
func (d *ConflictDetector) detectCells(p *model.Problem, a *model.Assignment, s int) []Conflict {
	var conflicts []Conflict
	st := p.Staff[s]
	vocab := p.Vocabulary
	for day, v := range a.Grid[s] {
		code := vocab.Code(v)
		if vocab.IsDuty(v) && st.Grade(v) == model.GradeForbidden {
			conflicts = append(conflicts, newConflict(ConflictForbidden, st, day+1, code, "技能等级为不可排"))
		}
		req := p.Request(s, day)
		if req != model.NoShift && req != v {
			conflicts = append(conflicts, newConflict(ConflictRequest, st, day+1, code,
				fmt.Sprintf("请求为 %s", vocab.Code(req))))
		}
		if v == vocab.ExtraDuty() && !st.IsManager() && req != v {
			conflicts = append(conflicts, newConflict(ConflictExtraDuty, st, day+1, code, "一般员工未经请求出勤"))
		}
		if vocab.IsDuty(v) && !p.Days[day].Active(v) {
			conflicts = append(conflicts, newConflict(ConflictExclusion, st, day+1, code, "班次当天停开"))
		}
		if d.config.CheckManagerRole && st.IsManager() && req == model.NoShift &&
			p.Days[day].IsWeekend() == model.IsWorking(v) {
			conflicts = append(conflicts, newConflict(ConflictManager, st, day+1, code, "管理者应平日出勤、周末休息"))
		}
	}
	return conflicts
}

// detectRow 行级：晚接早、连续出勤、公休天数，窗口跨上期末尾
func (d *ConflictDetector) detectRow(p *model.Problem, a *model.Assignment, s int) []Conflict {
	var conflicts []Conflict
	st := p.Staff[s]
	vocab := p.Vocabulary

	prevLate := false
	if last := p.TailAt(s, -1); last.Shift != model.NoShift {
		prevLate = vocab.CategoryOf(last.Shift) == model.CategoryLate
	}
	run := 0
	for off := -1; off >= -model.TailDays && p.TailAt(s, off).Working; off-- {
		run++
	}

	rests := 0
	for day, v := range a.Grid[s] {
		cat := vocab.CategoryOf(v)
		if d.config.CheckLateEarly && prevLate && cat == model.CategoryEarly {
			conflicts = append(conflicts, newConflict(ConflictLateEarly, st, day+1, vocab.Code(v), "前一天为晚班"))
		}
		prevLate = cat == model.CategoryLate

		if model.IsWorking(v) {
			run++
		} else {
			run = 0
			rests++
		}
		if d.config.CheckConsecutive && run > d.config.MaxConsecutiveDays {
			conflicts = append(conflicts, newConflict(ConflictConsecutive, st, day+1, vocab.Code(v),
				fmt.Sprintf("连续出勤 %d 天，超过 %d 天", run, d.config.MaxConsecutiveDays)))
		}
	}

	lo, hi := d.config.Policy.HolidayBand(st.HolidayTarget, p.NumDays())
	if rests < lo || rests > hi {
		conflicts = append(conflicts, newConflict(ConflictHoliday, st, 0, vocab.Code(model.Rest),
			fmt.Sprintf("休息 %d 天，允许 %d..%d 天", rests, lo, hi)))
	}
	return conflicts
}

// detectDay 列级：覆盖与见习人数
func (d *ConflictDetector) detectDay(p *model.Problem, a *model.Assignment, day int) []Conflict {
	var conflicts []Conflict
	vocab := p.Vocabulary
	for _, t := range vocab.Duties() {
		capable, trainees := 0, 0
		for s, st := range p.Staff {
			if a.Grid[s][day] != t {
				continue
			}
			switch st.Grade(t) {
			case model.GradeCapable:
				capable++
			case model.GradeTrainee:
				trainees++
			}
		}
		if d.config.CheckCoverage && p.Days[day].Active(t) && capable != 1 {
			conflicts = append(conflicts, newConflict(ConflictCoverage, nil, day+1, vocab.Code(t),
				fmt.Sprintf("可独立上岗人数 %d，应为 1", capable)))
		}
		if d.config.CheckTraineeCap && trainees > 1 {
			conflicts = append(conflicts, newConflict(ConflictTraineeCap, nil, day+1, vocab.Code(t),
				fmt.Sprintf("见习 %d 人，最多 1 人", trainees)))
		}
	}
	return conflicts
}
