// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	MaxIterations    int     `json:"max_iterations"`    // 每个岛的最大迭代次数，0 表示只受时限约束
	InitialTemp      float64 `json:"initial_temp"`      // 模拟退火初始温度
	MinTemp          float64 `json:"min_temp"`          // 最低温度
	CoolingRate      float64 `json:"cooling_rate"`      // 冷却速率
	TabuSize         int     `json:"tabu_size"`         // 禁忌表大小
	ParallelWorkers  int     `json:"parallel_workers"`  // 并行岛数
	PlateauThreshold int     `json:"plateau_threshold"` // 平台期阈值（无改进迭代次数）
	KickSize         int     `json:"kick_size"`         // 平台期扰动步数
	Seed             int64   `json:"seed"`              // 随机种子，0 表示按时间
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxIterations:    0,
		InitialTemp:      2.0,
		MinTemp:          0.02,
		CoolingRate:      0.9995,
		TabuSize:         64,
		ParallelWorkers:  4,
		PlateauThreshold: 20000,
		KickSize:         8,
	}
}

// Solution 表示一个排班方案
type Solution struct {
	Grid       *model.Assignment `json:"grid"`
	Score      policy.Score      `json:"score"`
	Hard       int               `json:"hard"`
	Worker     int               `json:"worker"`
	Iterations int               `json:"iterations"`
	Accepted   int               `json:"accepted"`
	Optimal    bool              `json:"optimal"`
}

// Clone 深拷贝解决方案
func (s *Solution) Clone() *Solution {
	clone := *s
	clone.Grid = s.Grid.Clone()
	return &clone
}

// LocalSearchOptimizer 局部搜索优化器：模拟退火接受准则加禁忌表，平台期扰动
type LocalSearchOptimizer struct {
	config     *OptimizationConfig
	manager    *constraint.Manager
	comparator policy.Comparator
	target     policy.Score // 各层上界，达到即为最优
	domains    [][][]model.ShiftID
	logger     *logger.SchedulerLogger
	solveID    string
	worker     int
	rng        *rand.Rand
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, m *constraint.Manager, cmp policy.Comparator, target policy.Score, domains [][][]model.ShiftID) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LocalSearchOptimizer{
		config:     config,
		manager:    m,
		comparator: cmp,
		target:     target,
		domains:    domains,
		logger:     logger.NewSchedulerLogger(),
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// SetLogger 设置日志记录器
func (o *LocalSearchOptimizer) SetLogger(l *logger.SchedulerLogger, solveID string, worker int) {
	o.logger = l
	o.solveID = solveID
	o.worker = worker
}

// Optimize 从无硬违反的初始排班出发优化，只接受保持零硬违反的移动
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, plan *constraint.Plan, initial *model.Assignment) (*Solution, error) {
	work := plan.WithGrid(initial.Clone())
	eval := NewEvaluator(o.manager, work)
	gen := NewNeighborhoodGenerator(o.rng, o.domains, work.Vocab().Len())
	tabu := NewTabuList(o.config.TabuSize)

	current := eval.Score()
	best := &Solution{Grid: work.Grid.Clone(), Score: current, Hard: eval.Hard(), Worker: o.worker}
	if eval.Hard() > 0 || current == o.target {
		best.Optimal = eval.Hard() == 0
		return best, nil
	}

	temperature := o.config.InitialTemp
	noImprovementCount := 0
	iter := 0
	for ; o.config.MaxIterations <= 0 || iter < o.config.MaxIterations; iter++ {
		if iter&255 == 0 && ctx.Err() != nil {
			break
		}

		mv, ok := gen.Generate(work.Grid)
		if !ok {
			continue
		}

		// 禁忌：不得立即恢复最近被改掉的取值
		inTabu := false
		for _, c := range mv.Cells {
			if tabu.Contains(moveKey(c.Staff, c.Day, c.To)) {
				inTabu = true
				break
			}
		}

		u := eval.Apply(mv)
		if eval.Hard() > 0 {
			eval.Undo(u)
			noImprovementCount++
			continue
		}

		candidate := eval.Score()
		cmp := o.comparator.Compare(candidate, current)
		improvesBest := o.comparator.Compare(candidate, best.Score) > 0

		accept := false
		switch {
		case inTabu:
			// 特赦：刷新全局最优时忽略禁忌
			accept = improvesBest
		case cmp >= 0:
			accept = true
		default:
			accept = o.rng.Float64() < boltzmannProbability(tierDelta(current, candidate), temperature)
		}

		if !accept {
			eval.Undo(u)
			noImprovementCount++
		} else {
			current = candidate
			best.Accepted++
			for _, c := range mv.Cells {
				tabu.Add(moveKey(c.Staff, c.Day, c.From))
			}
			if improvesBest {
				best.Grid = work.Grid.Clone()
				best.Score = current
				noImprovementCount = 0
				o.logger.Incumbent(o.solveID, o.worker, iter, o.comparator.Weights.Scalar(current))
				if current == o.target {
					best.Optimal = true
					iter++
					break
				}
			} else {
				noImprovementCount++
			}
		}

		temperature = math.Max(temperature*o.config.CoolingRate, o.config.MinTemp)

		// 平台期：回到最优解并随机扰动，重新升温
		if o.config.PlateauThreshold > 0 && noImprovementCount >= o.config.PlateauThreshold {
			copyGrid(work.Grid, best.Grid)
			eval.Reset()
			current = o.kick(eval, gen)
			tabu.Clear()
			temperature = o.config.InitialTemp
			noImprovementCount = 0
		}
	}

	best.Iterations = iter
	best.Hard = 0
	return best, nil
}

// kick 执行若干步只保持零硬违反的随机移动
func (o *LocalSearchOptimizer) kick(eval *Evaluator, gen *NeighborhoodGenerator) policy.Score {
	for i, tries := 0, 0; i < o.config.KickSize && tries < o.config.KickSize*50; tries++ {
		mv, ok := gen.Generate(eval.Plan().Grid)
		if !ok {
			continue
		}
		u := eval.Apply(mv)
		if eval.Hard() > 0 {
			eval.Undo(u)
			continue
		}
		i++
	}
	return eval.Score()
}

func copyGrid(dst, src *model.Assignment) {
	for s := range src.Grid {
		copy(dst.Grid[s], src.Grid[s])
	}
}

// tierDelta 在首个不同层上的恶化量，按层的优先级放大
func tierDelta(current, candidate policy.Score) float64 {
	k := current.FirstDiff(candidate)
	if k < 0 {
		return 0
	}
	return float64(current[k]-candidate[k]) * float64(policy.NumTiers-k)
}

// moveKey 单元格取值的哈希键 (使用FNV-1a算法)
func moveKey(s, d int, v model.ShiftID) uint64 {
	h := fnv.New64a()
	var buf [12]byte
	put := func(i int, x int) {
		buf[i] = byte(x)
		buf[i+1] = byte(x >> 8)
		buf[i+2] = byte(x >> 16)
		buf[i+3] = byte(x >> 24)
	}
	put(0, s)
	put(4, d)
	put(8, int(v))
	h.Write(buf[:])
	return h.Sum64()
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 恶化量
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0 // 不更差总是接受
	}
	if temperature <= 0 {
		return 0.0 // 温度为0时不接受更差的解
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（使用uint64哈希作为键提高性能）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxSize <= 0 {
		return
	}
	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Len 禁忌表当前长度
func (t *TabuList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
