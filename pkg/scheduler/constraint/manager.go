// Package constraint 定义约束接口和管理器
package constraint

import (
	"sort"
	"sync"

	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.SchedulerLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
		logger:      logger.NewSchedulerLogger(),
	}
}

// SetLogger 替换日志器
func (m *Manager) SetLogger(l *logger.SchedulerLogger) {
	m.logger = l
}

// Register 注册约束，同类型约束会被替换
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 硬约束在前，同类别按层级
	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Tier() < cj.Tier()
	})
}

// Unregister 注销约束
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Type() == t {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// GetByScope 按评估范围获取约束
func (m *Manager) GetByScope(scope Scope) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Scope() == scope {
			result = append(result, c)
		}
	}
	return result
}

// Filters 获取可裁剪单元格取值的约束
func (m *Manager) Filters() []DomainFilter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []DomainFilter
	for _, c := range m.constraints {
		if f, ok := c.(DomainFilter); ok {
			result = append(result, f)
		}
	}
	return result
}

// Allows 单元格取值是否通过全部裁剪约束
func (m *Manager) Allows(p *Plan, s, d int, v model.ShiftID) bool {
	for _, f := range m.Filters() {
		if !f.Allows(p, s, d, v) {
			return false
		}
	}
	return true
}

// Bounds 汇总各层的得分范围
func (m *Manager) Bounds(p *Plan) policy.Bounds {
	var b policy.Bounds
	for _, c := range m.GetAll() {
		lo, hi := c.Bounds(p)
		b.Lo[c.Tier()] += lo
		b.Hi[c.Tier()] += hi
	}
	return b
}

// EvaluateStaff 评估一名员工的全部按行约束
func (m *Manager) EvaluateStaff(p *Plan, s int) (int, policy.Score) {
	return Sum(m.GetByScope(ScopeStaff), p, s)
}

// EvaluateDay 评估一天的全部按列约束
func (m *Manager) EvaluateDay(p *Plan, d int) (int, policy.Score) {
	return Sum(m.GetByScope(ScopeDay), p, d)
}

// Sum 对同一范围的一组约束求硬违反数与各层得分
func Sum(cs []Constraint, p *Plan, index int) (int, policy.Score) {
	var score policy.Score
	hard := 0
	for _, c := range cs {
		e := c.Evaluate(p, index)
		hard += e.Hard
		score[c.Tier()] += e.Units
	}
	return hard, score
}

// Evaluate 评估整张排班并收集违反详情
func (m *Manager) Evaluate(p *Plan) *Result {
	result := &Result{
		IsValid:        true,
		HardViolations: make([]ViolationDetail, 0),
		SoftViolations: make([]ViolationDetail, 0),
	}

	for _, c := range m.GetAll() {
		n := p.Staff()
		if c.Scope() == ScopeDay {
			n = p.Days()
		}
		for i := 0; i < n; i++ {
			e := c.Evaluate(p, i)
			result.HardCount += e.Hard
			result.Score[c.Tier()] += e.Units
			for _, d := range c.Explain(p, i) {
				if d.Severity == "error" {
					result.HardViolations = append(result.HardViolations, d)
					m.logger.ConstraintViolation(c.Name(), d.Message)
				} else {
					result.SoftViolations = append(result.SoftViolations, d)
				}
			}
		}
	}

	result.IsValid = result.HardCount == 0
	return result
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make([]Constraint, 0)
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Summary 返回约束摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard, soft := 0, 0
	types := make([]string, 0, len(m.constraints))
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
		types = append(types, string(c.Type()))
	}

	return map[string]interface{}{
		"total": len(m.constraints),
		"hard":  hard,
		"soft":  soft,
		"types": types,
	}
}
