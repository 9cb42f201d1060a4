package constraints

import (
	"testing"

	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

func TestGetLibrary(t *testing.T) {
	lib := GetLibrary(policy.Default())
	if len(lib) != len(entries) {
		t.Fatalf("约束数 = %d, 期望 %d", len(lib), len(entries))
	}
	for _, def := range lib {
		if def.Description == "" {
			t.Errorf("%s 缺少说明", def.Name)
		}
		if def.Params == nil {
			t.Errorf("%s 的参数列表应为空切片而非 nil", def.Name)
		}
	}
}

func TestGetLibrary_FollowsPolicy(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*policy.Policy)
		typ      constraint.Type
		expected string
	}{
		{"默认覆盖为软约束", func(*policy.Policy) {}, constraint.TypeCoverage, "soft"},
		{"覆盖改为硬约束", func(p *policy.Policy) { p.Coverage = policy.Hard }, constraint.TypeCoverage, "hard"},
		{"晚接早改为软约束", func(p *policy.Policy) { p.LateEarly = policy.Soft }, constraint.TypeLateEarly, "soft"},
		{"单元格规则恒为硬约束", func(*policy.Policy) {}, constraint.TypeForbiddenGrade, "hard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol := policy.Default()
			tt.mutate(&pol)
			def, ok := GetByType(pol, string(tt.typ))
			if !ok {
				t.Fatalf("未找到 %s", tt.typ)
			}
			if def.Type != tt.expected {
				t.Errorf("类型 = %s, 期望 %s", def.Type, tt.expected)
			}
		})
	}
}

func TestScope(t *testing.T) {
	want := map[string]string{
		string(constraint.TypeRequestPinning): "cell",
		string(constraint.TypeCoverage):       "day",
		string(constraint.TypeHolidayQuota):   "staff",
	}
	for _, def := range GetLibrary(policy.Default()) {
		if s, ok := want[def.Name]; ok && def.Scope != s {
			t.Errorf("%s 范围 = %s, 期望 %s", def.Name, def.Scope, s)
		}
	}
}
