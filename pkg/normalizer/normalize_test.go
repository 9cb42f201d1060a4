package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
)

func baseConfig() *RawConfig {
	return &RawConfig{
		Year:   2025,
		Month:  6,
		Shifts: []string{"A", "B", "C", "D", "E"},
		Early:  []string{"A", "B", "C"},
		Late:   []string{"D", "E"},
		Staff: []RawStaff{
			{Name: "店长", Role: "manager", HolidayTarget: 9},
			{Name: "佐藤", HolidayTarget: 9, Skills: map[string]string{"E": "△", "C": "×"}, TraineeTargets: map[string]int{"E": 2, "A": 3}},
			{Name: "铃木", HolidayTarget: 9},
		},
	}
}

func TestNormalize_Basic(t *testing.T) {
	p, err := Normalize(baseConfig())
	require.NoError(t, err)

	assert.Equal(t, 30, p.NumDays())
	assert.Equal(t, 3, p.NumStaff())
	assert.Equal(t, "2025-06", p.Period())
	assert.Equal(t, 7, p.Vocabulary.Len())
	assert.Equal(t, "休", p.Vocabulary.Code(model.Rest))
	assert.Equal(t, "出", p.Vocabulary.Code(p.Vocabulary.ExtraDuty()))

	a, _ := p.Vocabulary.Lookup("A")
	d, _ := p.Vocabulary.Lookup("D")
	assert.Equal(t, model.CategoryEarly, p.Vocabulary.CategoryOf(a))
	assert.Equal(t, model.CategoryLate, p.Vocabulary.CategoryOf(d))

	sato := p.Staff[1]
	e, _ := p.Vocabulary.Lookup("E")
	c, _ := p.Vocabulary.Lookup("C")
	assert.Equal(t, model.GradeTrainee, sato.Grade(e))
	assert.Equal(t, model.GradeForbidden, sato.Grade(c))
	assert.Equal(t, model.GradeCapable, sato.Grade(a))
	assert.Equal(t, 2, sato.TraineeTarget(e))
	assert.Equal(t, 0, sato.TraineeTarget(a), "非见习班次的目标应被忽略")
	assert.Equal(t, model.StaffID("佐藤"), sato.ID)
	assert.True(t, p.Staff[0].IsManager())

	for s := 0; s < p.NumStaff(); s++ {
		for d := 0; d < p.NumDays(); d++ {
			assert.Equal(t, model.NoShift, p.Request(s, d))
		}
		for off := -model.TailDays; off < 0; off++ {
			assert.False(t, p.TailAt(s, off).Working)
		}
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *RawConfig)
		field  string
	}{
		{"月份越界", func(c *RawConfig) { c.Month = 13 }, "Month"},
		{"无员工", func(c *RawConfig) { c.Staff = nil }, "Staff"},
		{"班次与保留标签冲突", func(c *RawConfig) { c.Shifts = append(c.Shifts, "休") }, "shifts[5]"},
		{"早班未知", func(c *RawConfig) { c.Early = []string{"Z"} }, "early[0]"},
		{"早晚重叠", func(c *RawConfig) { c.Late = []string{"A"} }, "late"},
		{"员工重名", func(c *RawConfig) { c.Staff = append(c.Staff, RawStaff{Name: "铃木"}) }, "staff[3].name"},
		{"公休超过天数", func(c *RawConfig) { c.Staff[2].HolidayTarget = 31 }, "staff[2].holiday_target"},
		{"未知角色", func(c *RawConfig) { c.Staff[2].Role = "boss" }, "staff[2].role"},
		{"未知等级", func(c *RawConfig) { c.Staff[2].Skills = map[string]string{"A": "?"} }, "staff[2].skills.A"},
		{"请求未知员工", func(c *RawConfig) {
			c.Requests = map[string]map[string]string{"田中": {"1": "休"}}
		}, "requests"},
		{"请求日期越界", func(c *RawConfig) {
			c.Requests = map[string]map[string]string{"铃木": {"31": "休"}}
		}, "requests.铃木.31"},
		{"请求未知标签", func(c *RawConfig) {
			c.Requests = map[string]map[string]string{"铃木": {"3": "Q"}}
		}, "requests.铃木.3"},
		{"RRULE 无效", func(c *RawConfig) {
			c.WeekdayRules = []RawWeekdayRule{{Shift: "C", RRule: "FREQ=SOMETIMES"}}
		}, "weekday_rules[0].rrule"},
		{"上期未知标签", func(c *RawConfig) {
			c.Tail = map[string][]string{"铃木": {"A", "Q"}}
		}, "tail.铃木[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			_, err := Normalize(cfg)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeConfiguration, apperrors.GetCode(err))

			assert.Contains(t, apperrors.As(err).Details, tt.field)
		})
	}
}

func TestNormalize_RequestsAndExclusions(t *testing.T) {
	cfg := baseConfig()
	cfg.Requests = map[string]map[string]string{
		"铃木": {"5": "D", "6": "休", "7": ""},
		"店长": {"1": "出"},
	}
	cfg.Exclusions = []RawExclusion{{Day: 10, Shifts: []string{"A", "B"}}}
	cfg.WeekdayRules = []RawWeekdayRule{{Shift: "C", RRule: "FREQ=WEEKLY;BYDAY=SU"}}

	p, err := Normalize(cfg)
	require.NoError(t, err)

	d, _ := p.Vocabulary.Lookup("D")
	assert.Equal(t, d, p.Request(2, 4))
	assert.Equal(t, model.Rest, p.Request(2, 5))
	assert.Equal(t, model.NoShift, p.Request(2, 6), "空标签表示无请求")
	assert.Equal(t, p.Vocabulary.ExtraDuty(), p.Request(0, 0))

	a, _ := p.Vocabulary.Lookup("A")
	c, _ := p.Vocabulary.Lookup("C")
	assert.False(t, p.Days[9].Active(a))
	assert.True(t, p.Days[10].Active(a))

	sundays := 0
	for _, day := range p.Days {
		if day.Weekday == time.Sunday {
			sundays++
			assert.False(t, day.Active(c), "周日 C 停开: %s", day.Header())
		} else {
			assert.True(t, day.Active(c), "非周日 C 开放: %s", day.Header())
		}
	}
	// 2025-06 有 5 个周日
	assert.Equal(t, 5, sundays)
	assert.Equal(t, 30*5-5-2, p.ActivePairs())
}

func TestNormalize_Tail(t *testing.T) {
	cfg := baseConfig()
	cfg.Tail = map[string][]string{
		"店长": {"A"},
		"佐藤": {"休", "D", WorkMarker, "E", "A", "休"},
		"铃木": {"", "*", "出", "D"},
	}

	p, err := Normalize(cfg)
	require.NoError(t, err)

	a, _ := p.Vocabulary.Lookup("A")
	d, _ := p.Vocabulary.Lookup("D")
	e, _ := p.Vocabulary.Lookup("E")

	tests := []struct {
		name    string
		staff   int
		offset  int
		shift   model.ShiftID
		working bool
	}{
		{"短尾部补未出勤", 0, -4, model.NoShift, false},
		{"短尾部最新一天", 0, -1, a, true},
		{"长尾部保留最后四天", 1, -4, model.NoShift, true},
		{"长尾部第二天", 1, -3, e, true},
		{"长尾部第三天", 1, -2, a, true},
		{"长尾部最后为休息", 1, -1, model.Rest, false},
		{"空标签", 2, -4, model.NoShift, false},
		{"出勤标记", 2, -3, model.NoShift, true},
		{"出勤班次", 2, -2, p.Vocabulary.ExtraDuty(), true},
		{"晚班", 2, -1, d, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.TailAt(tt.staff, tt.offset)
			assert.Equal(t, tt.shift, got.Shift)
			assert.Equal(t, tt.working, got.Working)
		})
	}
}

func TestNormalize_CustomLabelsAndDedupe(t *testing.T) {
	cfg := baseConfig()
	cfg.Shifts = []string{" A ", "A", "D", ""}
	cfg.Early = []string{"A"}
	cfg.Late = []string{"D"}
	cfg.RestLabel = "OFF"
	cfg.ExtraDutyLabel = "EX"
	cfg.Staff[1].Skills = nil
	cfg.Staff[1].TraineeTargets = nil

	p, err := Normalize(cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Vocabulary.Len())
	assert.Equal(t, "OFF", p.Vocabulary.Code(model.Rest))
	assert.Equal(t, "EX", p.Vocabulary.Code(3))

	cfg.ExtraDutyLabel = "OFF"
	_, err = Normalize(cfg)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	yamlDoc := []byte(`
year: 2025
month: 6
shifts: [A, D]
early: [A]
late: [D]
staff:
  - name: 店长
    role: manager
    holiday_target: 9
  - name: 佐藤
    holiday_target: 9
    skills: {D: "△"}
weekday_rules:
  - shift: A
    rrule: FREQ=WEEKLY;BYDAY=SU
`)
	cfg, err := Parse(yamlDoc, false)
	require.NoError(t, err)
	assert.Equal(t, 2, len(cfg.Staff))
	assert.Equal(t, "△", cfg.Staff[1].Skills["D"])

	jsonDoc := []byte(`{"year":2025,"month":6,"shifts":["A"],"staff":[{"name":"x","holiday_target":1}]}`)
	cfg, err = Parse(jsonDoc, true)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Staff[0].Name)

	_, err = Parse([]byte("{"), true)
	assert.Equal(t, apperrors.CodeConfiguration, apperrors.GetCode(err))
}
