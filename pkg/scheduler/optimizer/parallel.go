package optimizer

import (
	"context"
	"sync"
	"time"

	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// IslandOptimizer 岛屿模型并行优化器
// 多个岛从同一初始解出发，使用不同种子独立搜索，取最优岛的结果
type IslandOptimizer struct {
	config     *OptimizationConfig
	manager    *constraint.Manager
	comparator policy.Comparator
	target     policy.Score
	domains    [][][]model.ShiftID
	logger     *logger.SchedulerLogger
}

// NewIslandOptimizer 创建岛屿模型优化器
func NewIslandOptimizer(config *OptimizationConfig, m *constraint.Manager, cmp policy.Comparator, target policy.Score, domains [][][]model.ShiftID) *IslandOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &IslandOptimizer{
		config:     config,
		manager:    m,
		comparator: cmp,
		target:     target,
		domains:    domains,
		logger:     logger.NewSchedulerLogger(),
	}
}

// SetLogger 设置日志记录器
func (io *IslandOptimizer) SetLogger(l *logger.SchedulerLogger) {
	io.logger = l
}

// Island 岛屿（独立搜索）
type Island struct {
	ID        int
	Best      *Solution
	Err       error
	Optimizer *LocalSearchOptimizer
}

// IslandStats 并行优化统计
type IslandStats struct {
	Islands    int `json:"islands"`
	Iterations int `json:"iterations"`
	Accepted   int `json:"accepted"`
	Winner     int `json:"winner"`
}

// OptimizeIslands 岛屿模型并行优化，任一岛达到上界即通知其余岛停止
func (io *IslandOptimizer) OptimizeIslands(ctx context.Context, solveID string, plan *constraint.Plan, initial *model.Assignment) (*Solution, IslandStats, error) {
	count := io.config.ParallelWorkers
	if count < 1 {
		count = 1
	}
	baseSeed := io.config.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	islands := make([]*Island, count)
	for i := range islands {
		cfg := *io.config
		cfg.Seed = baseSeed + int64(i)*7919
		opt := NewLocalSearchOptimizer(&cfg, io.manager, io.comparator, io.target, io.domains)
		opt.SetLogger(io.logger, solveID, i)
		islands[i] = &Island{ID: i, Optimizer: opt}
	}

	var wg sync.WaitGroup
	for _, island := range islands {
		wg.Add(1)
		go func(island *Island) {
			defer wg.Done()
			island.Best, island.Err = island.Optimizer.Optimize(ctx, plan, initial)
			if island.Err == nil && island.Best.Optimal {
				cancel()
			}
		}(island)
	}
	wg.Wait()

	// 找出全局最优解
	var globalBest *Solution
	stats := IslandStats{Islands: count}
	for _, island := range islands {
		if island.Err != nil {
			return nil, stats, island.Err
		}
		stats.Iterations += island.Best.Iterations
		stats.Accepted += island.Best.Accepted
		if globalBest == nil || io.comparator.Compare(island.Best.Score, globalBest.Score) > 0 {
			globalBest = island.Best
			stats.Winner = island.ID
		}
	}

	io.logger.Logger().Debug().
		Str("solve_id", solveID).
		Int("islands", count).
		Int("winner", stats.Winner).
		Int("iterations", stats.Iterations).
		Int64("objective", io.comparator.Weights.Scalar(globalBest.Score)).
		Msg("岛屿模型优化完成")

	return globalBest, stats, nil
}
