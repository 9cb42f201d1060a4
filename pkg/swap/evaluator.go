// Package swap 提供换班/调班功能：在已定的排班上交换两人同一天的取值
package swap

import (
	"fmt"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// SwapEvaluator 换班评估器
type SwapEvaluator struct {
	manager *constraint.Manager
	policy  policy.Policy
}

// NewSwapEvaluator 按策略创建换班评估器
func NewSwapEvaluator(pol policy.Policy) *SwapEvaluator {
	m := builtin.NewManager(pol)
	// 候选很多，逐条违反不写日志
	m.SetLogger(logger.NewNopSchedulerLogger())
	return &SwapEvaluator{manager: m, policy: pol}
}

// SwapRequest 换班请求，下标从 0 起
type SwapRequest struct {
	Staff  int `json:"staff"`
	Target int `json:"target"`
	Day    int `json:"day"`
}

// SwapEvaluation 换班评估结果
type SwapEvaluation struct {
	Request    SwapRequest                  `json:"request"`
	SwapType   string                       `json:"swap_type"` // exchange/take_over/give_away
	From       string                       `json:"from"`      // 申请人原取值
	To         string                       `json:"to"`        // 申请人换后取值
	IsValid    bool                         `json:"is_valid"`
	Issues     []constraint.ViolationDetail `json:"issues"` // 换后新增的硬约束违反
	Before     policy.Score                 `json:"before"`
	After      policy.Score                 `json:"after"`
	Delta      map[string]int64             `json:"delta"` // 仅列出变化的层
	Comparison int                          `json:"comparison"`
}

// apply 返回交换后的副本
func (e *SwapEvaluator) apply(a *model.Assignment, req SwapRequest) *model.Assignment {
	next := a.Clone()
	x, y := a.Get(req.Staff, req.Day), a.Get(req.Target, req.Day)
	next.Set(req.Staff, req.Day, y)
	next.Set(req.Target, req.Day, x)
	return next
}

// CanSwap 检查请求本身是否有意义
func (e *SwapEvaluator) CanSwap(p *model.Problem, a *model.Assignment, req SwapRequest) (bool, string) {
	switch {
	case req.Staff < 0 || req.Staff >= p.NumStaff() || req.Target < 0 || req.Target >= p.NumStaff():
		return false, "员工下标超出范围"
	case req.Staff == req.Target:
		return false, "不能与自己换班"
	case req.Day < 0 || req.Day >= p.NumDays():
		return false, fmt.Sprintf("日期 %d 不在 1..%d 内", req.Day+1, p.NumDays())
	case a.Get(req.Staff, req.Day) == a.Get(req.Target, req.Day):
		return false, "两人当天取值相同"
	}
	return true, ""
}

// EvaluateSwap 评估交换两人某天取值后的影响
func (e *SwapEvaluator) EvaluateSwap(p *model.Problem, a *model.Assignment, req SwapRequest) (*SwapEvaluation, error) {
	if ok, reason := e.CanSwap(p, a, req); !ok {
		return nil, apperrors.InvalidInput("swap", reason)
	}
	plan := constraint.NewPlan(p, e.policy, a)
	before := e.manager.Evaluate(plan)
	after := e.manager.Evaluate(plan.WithGrid(e.apply(a, req)))

	vocab := p.Vocabulary
	from, to := a.Get(req.Staff, req.Day), a.Get(req.Target, req.Day)
	ev := &SwapEvaluation{
		Request:    req,
		SwapType:   swapType(from, to),
		From:       vocab.Code(from),
		To:         vocab.Code(to),
		IsValid:    after.IsValid,
		Issues:     newViolations(before.HardViolations, after.HardViolations),
		Before:     before.Score,
		After:      after.Score,
		Delta:      make(map[string]int64),
		Comparison: after.Score.Compare(before.Score),
	}
	for _, t := range policy.Tiers() {
		if d := after.Score[t] - before.Score[t]; d != 0 {
			ev.Delta[t.String()] = d
		}
	}
	return ev, nil
}

// swapType 申请人上班而对方休息为 take_over（对方顶班），反之为 give_away
func swapType(from, to model.ShiftID) string {
	switch {
	case model.IsWorking(from) && !model.IsWorking(to):
		return "take_over"
	case !model.IsWorking(from) && model.IsWorking(to):
		return "give_away"
	}
	return "exchange"
}

func newViolations(before, after []constraint.ViolationDetail) []constraint.ViolationDetail {
	type key struct {
		typ   constraint.Type
		staff string
		day   int
	}
	seen := make(map[key]int, len(before))
	for _, v := range before {
		seen[key{v.ConstraintType, v.Staff, v.Day}]++
	}
	out := make([]constraint.ViolationDetail, 0)
	for _, v := range after {
		k := key{v.ConstraintType, v.Staff, v.Day}
		if seen[k] > 0 {
			seen[k]--
			continue
		}
		out = append(out, v)
	}
	return out
}
