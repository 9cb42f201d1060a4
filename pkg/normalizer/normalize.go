package normalizer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
)

var validate = validator.New()

// Normalize 校验配置并生成问题快照，任何引用错误都返回配置错误
func Normalize(raw *RawConfig) (*model.Problem, error) {
	if raw == nil {
		return nil, apperrors.Configuration("config", "配置为空")
	}

	ve := &apperrors.ValidationErrors{}
	if err := validate.Struct(raw); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				ve.Addf(fe.Namespace(), "不满足 %s=%s", fe.Tag(), fe.Param())
			}
		} else {
			ve.Add("config", err.Error())
		}
		return nil, ve.ToConfigurationError()
	}

	n := &normalizer{raw: raw, ve: ve}
	n.buildVocabulary()
	n.buildDays()
	n.buildStaff()
	if ve.HasErrors() {
		return nil, ve.ToConfigurationError()
	}
	n.buildRequests()
	n.buildExclusions()
	n.buildTail()
	if ve.HasErrors() {
		return nil, ve.ToConfigurationError()
	}

	logger.Debug().
		Str("period", n.problem.Period()).
		Int("staff", n.problem.NumStaff()).
		Int("shifts", len(n.problem.Vocabulary.Duties())).
		Msg("排班配置规范化完成")
	return n.problem, nil
}

type normalizer struct {
	raw     *RawConfig
	ve      *apperrors.ValidationErrors
	problem *model.Problem
	byName  map[string]int
}

func labelOr(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// buildVocabulary 去重班次标签并设置早晚类别
func (n *normalizer) buildVocabulary() {
	rest := labelOr(n.raw.RestLabel, DefaultRestLabel)
	extra := labelOr(n.raw.ExtraDutyLabel, DefaultExtraDutyLabel)
	if rest == extra {
		n.ve.Addf("extra_duty_label", "与休息标签 %q 相同", rest)
	}

	seen := make(map[string]bool)
	codes := make([]string, 0, len(n.raw.Shifts))
	for i, c := range n.raw.Shifts {
		c = strings.TrimSpace(c)
		switch {
		case c == "" || seen[c]:
			continue
		case c == rest || c == extra:
			n.ve.Addf(fmt.Sprintf("shifts[%d]", i), "%q 与保留标签冲突", c)
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	if len(codes) == 0 {
		n.ve.Add("shifts", "至少需要一个班次")
	}

	vocab := model.NewVocabulary(rest, extra, codes)
	early := n.categorize(vocab, "early", n.raw.Early, model.CategoryEarly)
	late := n.categorize(vocab, "late", n.raw.Late, model.CategoryLate)
	for id := range early {
		if late[id] {
			n.ve.Addf("late", "班次 %q 同时属于早班和晚班", vocab.Code(id))
		}
	}

	month := time.Month(n.raw.Month)
	n.problem = &model.Problem{
		ID:         uuid.New(),
		Year:       n.raw.Year,
		Month:      month,
		Vocabulary: vocab,
	}
}

func (n *normalizer) categorize(vocab *model.Vocabulary, field string, labels []string, c model.Category) map[model.ShiftID]bool {
	set := make(map[model.ShiftID]bool)
	for i, l := range labels {
		id, ok := vocab.Lookup(l)
		if !ok || !vocab.IsDuty(id) {
			n.ve.Addf(fmt.Sprintf("%s[%d]", field, i), "未知班次 %q", l)
			continue
		}
		if set[id] {
			continue
		}
		set[id] = true
		if c == model.CategoryLate && vocab.CategoryOf(id) == model.CategoryEarly {
			continue
		}
		_ = vocab.SetCategory(id, c)
	}
	return set
}

func (n *normalizer) buildDays() {
	n.problem.Days = model.MonthDays(n.raw.Year, n.problem.Month, n.problem.Vocabulary.Len())
}

// buildStaff 解析角色、技能等级与见习目标
func (n *normalizer) buildStaff() {
	vocab := n.problem.Vocabulary
	days := n.problem.NumDays()
	n.byName = make(map[string]int, len(n.raw.Staff))

	for i, rs := range n.raw.Staff {
		field := fmt.Sprintf("staff[%d]", i)
		name := strings.TrimSpace(rs.Name)
		if _, dup := n.byName[name]; dup {
			n.ve.Addf(field+".name", "员工 %q 重复", name)
			continue
		}
		n.byName[name] = len(n.problem.Staff)

		role, err := model.ParseRole(rs.Role)
		if err != nil {
			n.ve.Add(field+".role", err.Error())
		}
		if rs.HolidayTarget > days {
			n.ve.Addf(field+".holiday_target", "%d 超过本期天数 %d", rs.HolidayTarget, days)
		}

		id := model.StaffID(name)
		if rs.ID != "" {
			id = uuid.MustParse(rs.ID)
		}
		st := &model.Staff{
			Index:          len(n.problem.Staff),
			ID:             id,
			Name:           name,
			Role:           role,
			HolidayTarget:  rs.HolidayTarget,
			Grades:         make([]model.Grade, vocab.Len()),
			TraineeTargets: make([]int, vocab.Len()),
		}

		for _, label := range sortedKeys(rs.Skills) {
			sid, ok := vocab.Lookup(label)
			if !ok || !vocab.IsDuty(sid) {
				n.ve.Addf(field+".skills", "未知班次 %q", label)
				continue
			}
			g, err := model.ParseGrade(rs.Skills[label])
			if err != nil {
				n.ve.Add(field+".skills."+label, err.Error())
				continue
			}
			st.Grades[sid] = g
		}

		for label, target := range rs.TraineeTargets {
			sid, ok := vocab.Lookup(label)
			if !ok || !vocab.IsDuty(sid) {
				n.ve.Addf(field+".trainee_targets", "未知班次 %q", label)
				continue
			}
			if target < 0 || target > days {
				n.ve.Addf(field+".trainee_targets."+label, "目标 %d 超出范围", target)
				continue
			}
			if st.Grades[sid] != model.GradeTrainee {
				logger.Debug().Str("staff", name).Str("shift", label).Msg("非见习班次的见习目标已忽略")
				continue
			}
			st.TraineeTargets[sid] = target
		}

		n.problem.Staff = append(n.problem.Staff, st)
	}
}

// buildRequests 把 员工→日→标签 映射为请求矩阵
func (n *normalizer) buildRequests() {
	p := n.problem
	p.Requests = make([][]model.ShiftID, p.NumStaff())
	for s := range p.Requests {
		row := make([]model.ShiftID, p.NumDays())
		for d := range row {
			row[d] = model.NoShift
		}
		p.Requests[s] = row
	}

	for _, name := range sortedKeys(n.raw.Requests) {
		s, ok := n.byName[strings.TrimSpace(name)]
		if !ok {
			n.ve.Addf("requests", "未知员工 %q", name)
			continue
		}
		for dayKey, label := range n.raw.Requests[name] {
			field := fmt.Sprintf("requests.%s.%s", name, dayKey)
			d, err := strconv.Atoi(strings.TrimSpace(dayKey))
			if err != nil || d < 1 || d > p.NumDays() {
				n.ve.Addf(field, "日期 %q 不在 1..%d 内", dayKey, p.NumDays())
				continue
			}
			if strings.TrimSpace(label) == "" {
				continue
			}
			id, ok := p.Vocabulary.Lookup(label)
			if !ok {
				n.ve.Addf(field, "未知标签 %q", label)
				continue
			}
			p.Requests[s][d-1] = id
		}
	}
}

// buildExclusions 合并显式停开与 RRULE 停开
func (n *normalizer) buildExclusions() {
	p := n.problem
	for i, ex := range n.raw.Exclusions {
		field := fmt.Sprintf("exclusions[%d]", i)
		if ex.Day > p.NumDays() {
			n.ve.Addf(field+".day", "日期 %d 超过本期天数 %d", ex.Day, p.NumDays())
			continue
		}
		for _, label := range ex.Shifts {
			id, ok := p.Vocabulary.Lookup(label)
			if !ok || !p.Vocabulary.IsDuty(id) {
				n.ve.Addf(field+".shifts", "未知班次 %q", label)
				continue
			}
			p.Days[ex.Day-1].Excluded[id] = true
		}
	}

	if len(p.Days) == 0 {
		return
	}
	first, last := p.Days[0].Date, p.Days[len(p.Days)-1].Date
	for i, wr := range n.raw.WeekdayRules {
		field := fmt.Sprintf("weekday_rules[%d]", i)
		id, ok := p.Vocabulary.Lookup(wr.Shift)
		if !ok || !p.Vocabulary.IsDuty(id) {
			n.ve.Addf(field+".shift", "未知班次 %q", wr.Shift)
			continue
		}
		rule, err := rrule.StrToRRule(wr.RRule)
		if err != nil {
			n.ve.Addf(field+".rrule", "无效 RRULE: %v", err)
			continue
		}
		rule.DTStart(first)
		for _, occ := range rule.Between(first, last, true) {
			if occ.Year() == p.Year && occ.Month() == p.Month {
				p.Days[occ.Day()-1].Excluded[id] = true
			}
		}
	}
}

// buildTail 解析上期末尾，最旧在前，不足补未出勤
func (n *normalizer) buildTail() {
	p := n.problem
	p.Tail = make([][]model.TailDay, p.NumStaff())
	for s := range p.Tail {
		p.Tail[s] = emptyTail()
	}

	for _, name := range sortedKeys(n.raw.Tail) {
		s, ok := n.byName[strings.TrimSpace(name)]
		if !ok {
			n.ve.Addf("tail", "未知员工 %q", name)
			continue
		}
		labels := n.raw.Tail[name]
		if len(labels) > model.TailDays {
			labels = labels[len(labels)-model.TailDays:]
		}
		offset := model.TailDays - len(labels)
		for i, label := range labels {
			td, err := DecodeTailLabel(p.Vocabulary, label)
			if err != nil {
				n.ve.Addf(fmt.Sprintf("tail.%s[%d]", name, i), "%v", err)
				continue
			}
			p.Tail[s][offset+i] = td
		}
	}
}

// WorkMarker 表示上期出勤但班次未知
const WorkMarker = "*"

// DecodeTailLabel 解析上期标签：班次标签、休息、出勤标记或空
func DecodeTailLabel(vocab *model.Vocabulary, label string) (model.TailDay, error) {
	label = strings.TrimSpace(label)
	switch label {
	case "":
		return model.TailDay{Shift: model.NoShift}, nil
	case WorkMarker:
		return model.TailDay{Shift: model.NoShift, Working: true}, nil
	}
	id, ok := vocab.Lookup(label)
	if !ok {
		return model.TailDay{}, fmt.Errorf("未知标签 %q", label)
	}
	return model.TailDay{Shift: id, Working: model.IsWorking(id)}, nil
}

func emptyTail() []model.TailDay {
	tail := make([]model.TailDay, model.TailDays)
	for i := range tail {
		tail[i] = model.TailDay{Shift: model.NoShift}
	}
	return tail
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
