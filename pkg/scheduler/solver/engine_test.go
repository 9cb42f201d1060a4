package solver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalizer"
	"github.com/paiban/roster/pkg/scheduler/policy"
	"github.com/paiban/roster/pkg/validator"
)

// scenarioConfig 10 名员工（2 名管理者），2025 年 6 月，A/B/C 早班，D/E 晚班
func scenarioConfig(target int) *normalizer.RawConfig {
	cfg := &normalizer.RawConfig{
		Year:   2025,
		Month:  6,
		Shifts: []string{"A", "B", "C", "D", "E"},
		Early:  []string{"A", "B", "C"},
		Late:   []string{"D", "E"},
	}
	for i := 1; i <= 2; i++ {
		cfg.Staff = append(cfg.Staff, normalizer.RawStaff{Name: fmt.Sprintf("店长%d", i), Role: "manager", HolidayTarget: target})
	}
	for i := 1; i <= 8; i++ {
		cfg.Staff = append(cfg.Staff, normalizer.RawStaff{Name: fmt.Sprintf("员工%d", i), HolidayTarget: target})
	}
	return cfg
}

func mustProblem(t *testing.T, cfg *normalizer.RawConfig) *model.Problem {
	t.Helper()
	p, err := normalizer.Normalize(cfg)
	require.NoError(t, err)
	return p
}

func newTestEngine(pol policy.Policy) *Engine {
	e := NewEngine(Options{
		Policy:        pol,
		TimeLimit:     10 * time.Second,
		Workers:       2,
		Seed:          42,
		MaxIterations: 20000,
	})
	e.SetLogger(logger.NewNopSchedulerLogger())
	return e
}

// assertInvariants 复核不变式：禁止等级、晚接早、连续出勤
func assertInvariants(t *testing.T, p *model.Problem, pol policy.Policy, a *model.Assignment) {
	t.Helper()
	conflicts := validator.NewConflictDetector(validator.ConfigFromPolicy(pol)).DetectAll(p, a)
	assert.Empty(t, conflicts)

	vocab := p.Vocabulary
	for s := range p.Staff {
		run := 0
		for d := 0; d < p.NumDays(); d++ {
			v := a.Get(s, d)
			if model.IsWorking(v) {
				run++
			} else {
				run = 0
			}
			assert.LessOrEqual(t, run, 4, "员工 %d 第 %d 天连续出勤", s, d+1)
			if d > 0 && vocab.CategoryOf(a.Get(s, d-1)) == model.CategoryLate {
				assert.NotEqual(t, model.CategoryEarly, vocab.CategoryOf(v), "员工 %d 第 %d 天晚接早", s, d+1)
			}
		}
	}
}

func TestEngine_ScenarioA(t *testing.T) {
	p := mustProblem(t, scenarioConfig(9))
	pol := policy.Default()

	result, err := newTestEngine(pol).Solve(context.Background(), p)
	require.NoError(t, err)
	require.True(t, result.Status.HasSolution(), "status = %s", result.Status)
	require.NotNil(t, result.Assignment)

	for s := range p.Staff {
		assert.Equal(t, 9, result.Assignment.RestCount(s), "员工 %s 的休息天数", p.Staff[s].Name)
	}
	assertInvariants(t, p, pol, result.Assignment)

	assert.True(t, result.Evaluation.IsValid)
	assert.Equal(t, result.Weights.Scalar(result.Score), result.Objective)
	assert.Equal(t, 2, result.Stats.Islands)
	assert.Greater(t, result.Score[policy.TierCoverage], int64(0))

	// 管理者连续五个工作日出勤会超过连续上限，角色得分到不了上界，只能是可行解
	assert.Less(t, result.Score[policy.TierManagerRole], result.Bounds.Hi[policy.TierManagerRole])
	assert.Equal(t, model.StatusFeasible, result.Status)
}

func TestEngine_ScenarioB(t *testing.T) {
	t.Run("硬覆盖无解", func(t *testing.T) {
		p := mustProblem(t, scenarioConfig(25))
		pol := policy.Default()
		pol.Coverage = policy.Hard

		result, err := newTestEngine(pol).Solve(context.Background(), p)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeNoFeasibleSolution, apperrors.GetCode(err))
		require.NotNil(t, result)
		assert.Equal(t, model.StatusInfeasible, result.Status)
		assert.Nil(t, result.Assignment)
		assert.Contains(t, result.Reason, "150")
	})

	t.Run("软模式报告公休偏差", func(t *testing.T) {
		p := mustProblem(t, scenarioConfig(25))
		pol := policy.Default()
		pol.Holiday = policy.HolidaySoft

		result, err := newTestEngine(pol).Solve(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFeasible, result.Status)
		assert.Less(t, result.Score[policy.TierHoliday], int64(0))
	})
}

func TestEngine_ScenarioC(t *testing.T) {
	cfg := scenarioConfig(9)
	cfg.Staff[0].Skills = map[string]string{"A": "×", "B": "×", "C": "×", "D": "×", "E": "×"}
	p := mustProblem(t, cfg)

	result, err := newTestEngine(policy.Default()).Solve(context.Background(), p)
	require.NoError(t, err)
	for d := 0; d < p.NumDays(); d++ {
		v := result.Assignment.Get(0, d)
		assert.True(t, v == model.Rest || v == p.Vocabulary.ExtraDuty(), "第 %d 天为 %s", d+1, p.Vocabulary.Code(v))
	}
}

func TestEngine_ScenarioD(t *testing.T) {
	cfg := scenarioConfig(9)
	cfg.Requests = map[string]map[string]string{"员工2": {"5": "D"}}
	p := mustProblem(t, cfg)
	require.Equal(t, "员工2", p.Staff[3].Name)

	result, err := newTestEngine(policy.Default()).Solve(context.Background(), p)
	require.NoError(t, err)

	d, _ := p.Vocabulary.Lookup("D")
	assert.Equal(t, d, result.Assignment.Get(3, 4))
	assert.NotEqual(t, model.CategoryEarly, p.Vocabulary.CategoryOf(result.Assignment.Get(3, 5)))
}

func TestEngine_HardCoverageFeasible(t *testing.T) {
	cfg := &normalizer.RawConfig{
		Year:   2026,
		Month:  2,
		Shifts: []string{"A", "D"},
		Early:  []string{"A"},
		Late:   []string{"D"},
		Staff: []normalizer.RawStaff{
			{Name: "店长", Role: "manager", HolidayTarget: 8},
			{Name: "甲", HolidayTarget: 10},
			{Name: "乙", HolidayTarget: 10},
			{Name: "丙", HolidayTarget: 10},
		},
	}
	p := mustProblem(t, cfg)
	pol := policy.Default()
	pol.Coverage = policy.Hard
	pol.Holiday = policy.HolidayTolerance

	result, err := newTestEngine(pol).Solve(context.Background(), p)
	require.NoError(t, err)
	assertInvariants(t, p, pol, result.Assignment)

	for d := 0; d < p.NumDays(); d++ {
		for _, t2 := range p.Vocabulary.Duties() {
			assert.Equal(t, 1, result.Assignment.CountOn(d, t2), "第 %d 天 %s", d+1, p.Vocabulary.Code(t2))
		}
	}
	for s, st := range p.Staff {
		assert.InDelta(t, st.HolidayTarget, result.Assignment.RestCount(s), 1)
	}
}

func TestEngine_Infeasible(t *testing.T) {
	tests := []struct {
		name   string
		cfg    func() *normalizer.RawConfig
		hard   bool
		reason string
	}{
		{
			name: "整行无法满足连续出勤",
			cfg: func() *normalizer.RawConfig {
				return &normalizer.RawConfig{Year: 2025, Month: 6, Shifts: []string{"A"},
					Staff: []normalizer.RawStaff{{Name: "独行", HolidayTarget: 0}}}
			},
			reason: "独行",
		},
		{
			name: "请求了禁止的班次",
			cfg: func() *normalizer.RawConfig {
				c := scenarioConfig(9)
				c.Staff[4].Skills = map[string]string{"A": "×"}
				c.Requests = map[string]map[string]string{"员工3": {"2": "A"}}
				return c
			},
			reason: "第 2 天",
		},
		{
			name: "两人固定在同一班次",
			cfg: func() *normalizer.RawConfig {
				c := scenarioConfig(9)
				c.Requests = map[string]map[string]string{"员工1": {"3": "B"}, "员工2": {"3": "B"}}
				return c
			},
			hard:   true,
			reason: "同时固定",
		},
		{
			name:   "硬覆盖下一般员工出勤超出班次名额",
			cfg:    func() *normalizer.RawConfig { return scenarioConfig(9) },
			hard:   true,
			reason: "168",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol := policy.Default()
			if tt.hard {
				pol.Coverage = policy.Hard
			}
			result, err := newTestEngine(pol).Solve(context.Background(), mustProblem(t, tt.cfg()))
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeNoFeasibleSolution))
			assert.Equal(t, model.StatusInfeasible, result.Status)
			assert.Contains(t, result.Reason, tt.reason)
		})
	}
}

func TestEngine_CancelledBeforeConstruction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestEngine(policy.Default()).Solve(ctx, mustProblem(t, scenarioConfig(9)))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTimeout, apperrors.GetCode(err))
	assert.Equal(t, model.StatusTimedOutNoSolution, result.Status)
	assert.Nil(t, result.Assignment)
}

func TestEngine_TailBoundary(t *testing.T) {
	cfg := scenarioConfig(9)
	cfg.Tail = map[string][]string{
		"员工1": {"A", "B", "D", "E"},
		"员工2": {"休", "休", "休", "D"},
	}
	p := mustProblem(t, cfg)
	pol := policy.Default()

	result, err := newTestEngine(pol).Solve(context.Background(), p)
	require.NoError(t, err)

	// 上期已连续出勤 4 天，首日必须休息
	assert.Equal(t, model.Rest, result.Assignment.Get(2, 0))
	// 上期末日为晚班，首日不能接早班
	assert.NotEqual(t, model.CategoryEarly, p.Vocabulary.CategoryOf(result.Assignment.Get(3, 0)))
	assertInvariants(t, p, pol, result.Assignment)
}

func TestEngine_ReproducibleObjective(t *testing.T) {
	p := mustProblem(t, scenarioConfig(9))
	e := NewEngine(Options{Policy: policy.Default(), TimeLimit: 10 * time.Second, Workers: 1, Seed: 7, MaxIterations: 3000})
	e.SetLogger(logger.NewNopSchedulerLogger())

	first, err := e.Solve(context.Background(), p)
	require.NoError(t, err)
	second, err := e.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, first.Objective, second.Objective)
	assert.Equal(t, first.Assignment.Grid, second.Assignment.Grid)
}
