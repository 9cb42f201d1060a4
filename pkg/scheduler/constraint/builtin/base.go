// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	tier     policy.Tier
	scope    constraint.Scope
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, tier policy.Tier, scope constraint.Scope) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		tier:     tier,
		scope:    scope,
	}
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回约束类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Tier 返回得分所属层
func (c *BaseConstraint) Tier() policy.Tier { return c.tier }

// Scope 返回评估范围
func (c *BaseConstraint) Scope() constraint.Scope { return c.scope }

// Bounds 默认不计分
func (c *BaseConstraint) Bounds(p *constraint.Plan) (int64, int64) { return 0, 0 }

// IsHard 是否为硬约束
func (c *BaseConstraint) IsHard() bool {
	return c.category == constraint.CategoryHard
}

// violations 硬约束计违反次数，软约束计负分
func (c *BaseConstraint) violations(n int) constraint.Eval {
	if c.IsHard() {
		return constraint.Eval{Hard: n}
	}
	return constraint.Eval{Units: -int64(n)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
