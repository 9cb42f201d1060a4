// Package solver 提供排班求解器：取值域编译、可行性证明、完备构造与并行改进
package solver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/optimizer"
	"github.com/paiban/roster/pkg/scheduler/policy"
	"github.com/paiban/roster/pkg/validator"
)

// DefaultTimeLimit 默认求解时限
const DefaultTimeLimit = 30 * time.Second

// Options 求解选项
type Options struct {
	Policy        policy.Policy `json:"policy"`
	TimeLimit     time.Duration `json:"time_limit"`
	Workers       int           `json:"workers"`
	Seed          int64         `json:"seed"`           // 0 表示按时间
	MaxIterations int           `json:"max_iterations"` // 每个岛的迭代上限，0 表示只受时限约束
}

// DefaultOptions 默认求解选项
func DefaultOptions() Options {
	return Options{
		Policy:    policy.Default(),
		TimeLimit: DefaultTimeLimit,
		Workers:   4,
	}
}

// Stats 求解统计
type Stats struct {
	Construct  ConstructStats `json:"construct"`
	Islands    int            `json:"islands"`
	Iterations int            `json:"iterations"`
	Accepted   int            `json:"accepted"`
	Winner     int            `json:"winner"`
}

// Result 求解结果
type Result struct {
	ID         uuid.UUID          `json:"id"`
	Status     model.Status       `json:"status"`
	Assignment *model.Assignment  `json:"assignment,omitempty"`
	Score      policy.Score       `json:"score"`
	Objective  int64              `json:"objective"`
	Weights    policy.Weights     `json:"weights"`
	Weighting  policy.Weighting   `json:"weighting"`
	Bounds     policy.Bounds      `json:"bounds"`
	Evaluation *constraint.Result `json:"evaluation,omitempty"`
	Duration   time.Duration      `json:"duration"`
	Reason     string             `json:"reason,omitempty"`
	Stats      Stats              `json:"stats"`
}

// Engine 排班求解引擎，不在两次求解之间保存状态
type Engine struct {
	opts    Options
	manager *constraint.Manager
	logger  *logger.SchedulerLogger
}

// NewEngine 按选项创建引擎并注册默认约束
func NewEngine(opts Options) *Engine {
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = DefaultTimeLimit
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	l := logger.NewSchedulerLogger()
	m := builtin.NewManager(opts.Policy)
	m.SetLogger(l)
	return &Engine{opts: opts, manager: m, logger: l}
}

// SetLogger 设置日志记录器
func (e *Engine) SetLogger(l *logger.SchedulerLogger) {
	e.logger = l
	e.manager.SetLogger(l)
}

// Manager 返回约束管理器
func (e *Engine) Manager() *constraint.Manager {
	return e.manager
}

// Name 返回求解器名称
func (e *Engine) Name() string {
	return "RosterEngine"
}

// Solve 求解一期排班。无解或时限内未找到解时返回带状态的结果和类型化错误
func (e *Engine) Solve(ctx context.Context, problem *model.Problem) (*Result, error) {
	start := time.Now()
	pol := e.opts.Policy
	if err := pol.Validate(); err != nil {
		return nil, apperrors.Configuration("policy", err.Error())
	}
	if problem == nil || problem.NumStaff() == 0 || problem.NumDays() == 0 {
		return nil, apperrors.Configuration("problem", "员工数与天数必须为正")
	}

	result := &Result{ID: problem.ID, Weighting: pol.Weighting}
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	solveID := result.ID.String()
	e.logger.StartSolve(solveID, problem.NumStaff(), problem.NumDays(), e.opts.TimeLimit)

	plan := constraint.NewPlan(problem, pol, model.NewAssignment(problem.NumStaff(), problem.NumDays()))
	result.Bounds = e.manager.Bounds(plan)
	weights, err := policy.ComputeWeights(result.Bounds)
	switch {
	case errors.Is(err, policy.ErrWeightOverflow) && pol.Weighting == policy.Scalarized:
		return nil, apperrors.Wrap(err, apperrors.CodeWeightOverflow, "实例规模过大，请改用 lexicographic 比较")
	case errors.Is(err, policy.ErrWeightOverflow):
		weights = policy.Weights{}
	case err != nil:
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "权重计算失败")
	}
	result.Weights = weights
	cmp := policy.Comparator{Mode: pol.Weighting, Weights: weights}

	ctx, cancel := context.WithTimeout(ctx, e.opts.TimeLimit)
	defer cancel()

	seed := e.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// 编译取值域并做可行性证明
	doms, err := CompileDomains(e.manager, plan)
	if err != nil {
		return e.infeasible(result, start, err)
	}
	rows, err := buildRows(plan, rowRulesOf(e.manager, pol.MaxConsecutive), doms)
	if err != nil {
		return e.infeasible(result, start, err)
	}
	if c := e.manager.GetConstraint(constraint.TypeCoverage); c != nil && c.Category() == constraint.CategoryHard {
		traineeCap := false
		if tc := e.manager.GetConstraint(constraint.TypeTraineeCap); tc != nil {
			traineeCap = tc.Category() == constraint.CategoryHard
		}
		if err := checkColumns(plan, doms, rows, traineeCap); err != nil {
			return e.infeasible(result, start, err)
		}
	}

	// 构造初始可行解
	cons := newConstructor(ctx, e.manager, plan, doms, rows, rand.New(rand.NewSource(seed)))
	initial := cons.run()
	result.Stats.Construct = cons.stats
	if initial == nil {
		if cons.stopped {
			result.Status = model.StatusTimedOutNoSolution
			result.Reason = "时限内未找到可行解"
			result.Duration = time.Since(start)
			e.logger.SolveComplete(solveID, result.Duration, result.Status.String(), 0)
			return result, apperrors.NoSolutionInTime(e.opts.TimeLimit.String())
		}
		return e.infeasible(result, start, &infeasibleError{reason: "搜索树已穷尽，硬约束无法同时满足"})
	}

	// 并行改进
	cfg := optimizer.DefaultOptConfig()
	cfg.ParallelWorkers = e.opts.Workers
	cfg.MaxIterations = e.opts.MaxIterations
	cfg.Seed = seed
	islands := optimizer.NewIslandOptimizer(cfg, e.manager, cmp, result.Bounds.Hi, doms)
	islands.SetLogger(e.logger)
	best, stats, err := islands.OptimizeIslands(ctx, solveID, plan, initial)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "优化失败")
	}
	result.Stats.Islands = stats.Islands
	result.Stats.Iterations = stats.Iterations
	result.Stats.Accepted = stats.Accepted
	result.Stats.Winner = stats.Winner

	// 独立复核
	final := plan.WithGrid(best.Grid)
	detector := validator.NewConflictDetector(validator.ConfigFromPolicy(pol))
	if conflicts := detector.DetectAll(problem, best.Grid); validator.HasErrors(conflicts) {
		return nil, apperrors.New(apperrors.CodeInternal, "求解结果未通过复核").
			WithDetails(fmt.Sprintf("%s: %s", conflicts[0].Type, conflicts[0].Message))
	}
	result.Evaluation = e.manager.Evaluate(final)
	if !result.Evaluation.IsValid {
		return nil, apperrors.New(apperrors.CodeInternal, "求解结果存在硬约束违反")
	}

	result.Assignment = best.Grid
	result.Score = result.Evaluation.Score
	result.Objective = weights.Scalar(result.Score)
	result.Status = model.StatusFeasible
	if result.Score == result.Bounds.Hi {
		result.Status = model.StatusOptimal
	}
	result.Duration = time.Since(start)
	e.logger.SolveComplete(solveID, result.Duration, result.Status.String(), result.Objective)
	return result, nil
}

func (e *Engine) infeasible(result *Result, start time.Time, err error) (*Result, error) {
	var inf *infeasibleError
	if !errors.As(err, &inf) {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "求解失败")
	}
	result.Status = model.StatusInfeasible
	result.Reason = inf.reason
	result.Duration = time.Since(start)
	e.logger.Infeasible(result.ID.String(), inf.reason)
	return result, apperrors.NoFeasibleSolution(inf.reason)
}
