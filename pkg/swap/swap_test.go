package swap

import (
	"testing"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalizer"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// newFixture 甲：A,A,B,休；乙：B,休,A,A；丙：休,A,B,A。每人 7 天休息且等于公休目标
func newFixture(t *testing.T) (*model.Problem, *model.Assignment) {
	t.Helper()
	p, err := normalizer.Normalize(&normalizer.RawConfig{
		Year:   2026,
		Month:  2,
		Shifts: []string{"A", "B"},
		Early:  []string{"A"},
		Staff: []normalizer.RawStaff{
			{Name: "甲", HolidayTarget: 7},
			{Name: "乙", HolidayTarget: 7},
			{Name: "丙", HolidayTarget: 7},
		},
	})
	if err != nil {
		t.Fatalf("规范化失败: %v", err)
	}
	cycles := [][]model.ShiftID{
		{1, 1, 2, model.Rest},
		{2, model.Rest, 1, 1},
		{model.Rest, 1, 2, 1},
	}
	a := model.NewAssignment(p.NumStaff(), p.NumDays())
	for s, c := range cycles {
		for d := 0; d < p.NumDays(); d++ {
			a.Set(s, d, c[d%4])
		}
	}
	return p, a
}

func softHoliday() policy.Policy {
	pol := policy.Default()
	pol.Holiday = policy.HolidaySoft
	return pol
}

func TestEvaluateSwap(t *testing.T) {
	p, a := newFixture(t)

	tests := []struct {
		name     string
		pol      policy.Policy
		req      SwapRequest
		valid    bool
		swapType string
		issue    constraint.Type
	}{
		{"两人都上班时互换", policy.Default(), SwapRequest{Staff: 0, Target: 1, Day: 0}, true, "exchange", ""},
		{"顶班改变公休天数", policy.Default(), SwapRequest{Staff: 0, Target: 2, Day: 0}, false, "take_over", constraint.TypeHolidayQuota},
		{"公休为软约束时可以顶班", softHoliday(), SwapRequest{Staff: 0, Target: 2, Day: 0}, true, "take_over", ""},
		{"替对方上班", softHoliday(), SwapRequest{Staff: 2, Target: 0, Day: 0}, true, "give_away", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewSwapEvaluator(tt.pol).EvaluateSwap(p, a, tt.req)
			if err != nil {
				t.Fatalf("评估失败: %v", err)
			}
			if ev.IsValid != tt.valid {
				t.Errorf("IsValid = %v, 期望 %v, issues=%+v", ev.IsValid, tt.valid, ev.Issues)
			}
			if ev.SwapType != tt.swapType {
				t.Errorf("SwapType = %s, 期望 %s", ev.SwapType, tt.swapType)
			}
			if tt.issue != "" {
				if len(ev.Issues) == 0 || ev.Issues[0].ConstraintType != tt.issue {
					t.Errorf("期望新增 %s 违反, got %+v", tt.issue, ev.Issues)
				}
			} else if len(ev.Issues) != 0 {
				t.Errorf("不应有新增违反, got %+v", ev.Issues)
			}
			if ev.Comparison != ev.After.Compare(ev.Before) {
				t.Errorf("Comparison 与得分不一致")
			}
		})
	}

	// 原排班不被修改
	if a.Get(0, 0) != 1 || a.Get(2, 0) != model.Rest {
		t.Error("评估不应修改原排班")
	}
}

func TestCanSwap(t *testing.T) {
	p, a := newFixture(t)
	e := NewSwapEvaluator(policy.Default())

	tests := []struct {
		name string
		req  SwapRequest
	}{
		{"与自己换", SwapRequest{Staff: 0, Target: 0, Day: 0}},
		{"日期越界", SwapRequest{Staff: 0, Target: 1, Day: 28}},
		{"员工越界", SwapRequest{Staff: 0, Target: 3, Day: 0}},
		{"取值相同", SwapRequest{Staff: 0, Target: 2, Day: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ok, reason := e.CanSwap(p, a, tt.req); ok || reason == "" {
				t.Errorf("应拒绝: ok=%v reason=%q", ok, reason)
			}
			if _, err := e.EvaluateSwap(p, a, tt.req); err == nil {
				t.Error("EvaluateSwap 应返回错误")
			}
		})
	}
}

func TestRecommendSwapTargets(t *testing.T) {
	p, a := newFixture(t)

	recs := NewRecommender(policy.Default()).RecommendSwapTargets(p, a, 0, 0, nil)
	if len(recs) != 1 || recs[0].Target != "乙" || recs[0].Rank != 1 {
		t.Fatalf("公休严格时只能与乙互换, got %+v", recs)
	}

	rest := NewRecommender(softHoliday()).RecommendSwapTargets(p, a, 0, 0, &RecommendOptions{WantRest: true, AllowWorse: true})
	if len(rest) != 1 || rest[0].Target != "丙" || rest[0].Evaluation.To != normalizer.DefaultRestLabel {
		t.Fatalf("想休息时只能由丙顶班, got %+v", rest)
	}

	if best := NewRecommender(policy.Default()).FindBestSwapMatch(p, a, 0, 0, true); best != nil {
		t.Errorf("公休严格时没有可行的顶班, got %+v", best)
	}
}
