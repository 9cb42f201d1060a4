package optimizer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalizer"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// fixture 两个班次、四名员工的小实例，硬约束只保留单元格规则与晚接早
type fixture struct {
	manager *constraint.Manager
	plan    *constraint.Plan
	domains [][][]model.ShiftID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p, err := normalizer.Normalize(&normalizer.RawConfig{
		Year:   2025,
		Month:  6,
		Shifts: []string{"A", "D"},
		Early:  []string{"A"},
		Late:   []string{"D"},
		Staff: []normalizer.RawStaff{
			{Name: "甲", HolidayTarget: 10},
			{Name: "乙", HolidayTarget: 10},
			{Name: "丙", HolidayTarget: 10},
			{Name: "丁", HolidayTarget: 10},
		},
	})
	require.NoError(t, err)

	pol := policy.Default()
	pol.Holiday = policy.HolidaySoft
	pol.Consecutive = policy.Soft
	m := builtin.NewManager(pol)
	plan := constraint.NewPlan(p, pol, model.NewAssignment(p.NumStaff(), p.NumDays()))

	doms := make([][][]model.ShiftID, p.NumStaff())
	for s := range doms {
		doms[s] = make([][]model.ShiftID, p.NumDays())
		for d := range doms[s] {
			for v := model.ShiftID(0); int(v) < p.Vocabulary.Len(); v++ {
				if m.Allows(plan, s, d, v) {
					doms[s][d] = append(doms[s][d], v)
				}
			}
		}
	}
	return &fixture{manager: m, plan: plan, domains: doms}
}

func TestEvaluator_ApplyUndoConsistent(t *testing.T) {
	f := newFixture(t)
	eval := NewEvaluator(f.manager, f.plan.WithGrid(f.plan.Grid.Clone()))
	gen := NewNeighborhoodGenerator(rand.New(rand.NewSource(3)), f.domains, f.plan.Vocab().Len())

	for i := 0; i < 500; i++ {
		mv, ok := gen.Generate(eval.Plan().Grid)
		if !ok {
			continue
		}
		before, hardBefore := eval.Score(), eval.Hard()
		u := eval.Apply(mv)

		// 增量结果应与全量重算一致
		full := f.manager.Evaluate(eval.Plan())
		require.Equal(t, full.Score, eval.Score(), "第 %d 次移动 %s", i, mv.Type)
		require.Equal(t, full.HardCount, eval.Hard())

		if i%2 == 0 {
			eval.Undo(u)
			assert.Equal(t, before, eval.Score())
			assert.Equal(t, hardBefore, eval.Hard())
		}
	}
}

func TestNeighborhoodGenerator_StaysInDomain(t *testing.T) {
	f := newFixture(t)
	gen := NewNeighborhoodGenerator(rand.New(rand.NewSource(11)), f.domains, f.plan.Vocab().Len())
	grid := f.plan.Grid.Clone()

	seen := map[MoveType]int{}
	for i := 0; i < 2000; i++ {
		mv, ok := gen.Generate(grid)
		if !ok {
			continue
		}
		seen[mv.Type]++
		for _, c := range mv.Cells {
			assert.Equal(t, grid.Get(c.Staff, c.Day), c.From)
			assert.Contains(t, f.domains[c.Staff][c.Day], c.To)
		}
		for _, c := range mv.Cells {
			grid.Set(c.Staff, c.Day, c.To)
		}
	}
	assert.Greater(t, seen[MoveChange], 0)
	assert.Greater(t, seen[MoveSwapDays], 0)
	assert.Greater(t, seen[MoveSwapStaff], 0)
}

func TestMove_RowsAndDays(t *testing.T) {
	mv := Move{Type: MoveRectangle, Cells: []CellChange{
		{Staff: 0, Day: 1}, {Staff: 0, Day: 4}, {Staff: 2, Day: 1}, {Staff: 2, Day: 4},
	}}
	assert.Equal(t, []int{0, 2}, mv.Rows())
	assert.Equal(t, []int{1, 4}, mv.Days())
	assert.Equal(t, "rectangle", mv.Type.String())
}

func TestLocalSearchOptimizer_Improves(t *testing.T) {
	f := newFixture(t)
	bounds := f.manager.Bounds(f.plan)
	weights, err := policy.ComputeWeights(bounds)
	require.NoError(t, err)
	cmp := policy.Comparator{Mode: policy.Scalarized, Weights: weights}

	cfg := DefaultOptConfig()
	cfg.MaxIterations = 5000
	cfg.Seed = 5
	opt := NewLocalSearchOptimizer(cfg, f.manager, cmp, bounds.Hi, f.domains)

	initial := f.plan.Grid.Clone()
	start := f.manager.Evaluate(f.plan.WithGrid(initial))
	require.True(t, start.IsValid)

	sol, err := opt.Optimize(context.Background(), f.plan, initial)
	require.NoError(t, err)
	assert.Equal(t, 0, sol.Hard)
	assert.GreaterOrEqual(t, cmp.Compare(sol.Score, start.Score), 0)
	assert.Greater(t, sol.Score[policy.TierCoverage], start.Score[policy.TierCoverage])

	final := f.manager.Evaluate(f.plan.WithGrid(sol.Grid))
	assert.True(t, final.IsValid)
	assert.Equal(t, final.Score, sol.Score)
	// 初始排班不被修改
	assert.Equal(t, 0, initial.CountOn(0, 1))
}

func TestIslandOptimizer_PicksBest(t *testing.T) {
	f := newFixture(t)
	bounds := f.manager.Bounds(f.plan)
	weights, err := policy.ComputeWeights(bounds)
	require.NoError(t, err)
	cmp := policy.Comparator{Mode: policy.Lexicographic, Weights: weights}

	cfg := DefaultOptConfig()
	cfg.MaxIterations = 2000
	cfg.ParallelWorkers = 3
	cfg.Seed = 9
	io := NewIslandOptimizer(cfg, f.manager, cmp, bounds.Hi, f.domains)

	best, stats, err := io.OptimizeIslands(context.Background(), "test", f.plan, f.plan.Grid.Clone())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Islands)
	assert.GreaterOrEqual(t, stats.Winner, 0)
	assert.Less(t, stats.Winner, 3)
	assert.Positive(t, stats.Iterations)
	assert.True(t, f.manager.Evaluate(f.plan.WithGrid(best.Grid)).IsValid)
}

func TestLocalSearchOptimizer_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt := NewLocalSearchOptimizer(DefaultOptConfig(), f.manager, policy.Comparator{Mode: policy.Lexicographic}, f.manager.Bounds(f.plan).Hi, f.domains)
	sol, err := opt.Optimize(ctx, f.plan, f.plan.Grid.Clone())
	require.NoError(t, err)
	assert.Equal(t, 0, sol.Iterations)
}

func TestTabuList(t *testing.T) {
	tabu := NewTabuList(2)
	tabu.Add(moveKey(0, 0, 1))
	tabu.Add(moveKey(0, 1, 1))
	tabu.Add(moveKey(0, 1, 1))
	assert.Equal(t, 2, tabu.Len())

	tabu.Add(moveKey(1, 0, 2))
	assert.False(t, tabu.Contains(moveKey(0, 0, 1)), "最旧的应被移除")
	assert.True(t, tabu.Contains(moveKey(1, 0, 2)))

	tabu.Clear()
	assert.Equal(t, 0, tabu.Len())
	assert.NotEqual(t, moveKey(1, 2, 3), moveKey(2, 1, 3))
}

func TestBoltzmannProbability(t *testing.T) {
	tests := []struct {
		name        string
		delta, temp float64
		want        float64
	}{
		{"不更差总是接受", 0, 1, 1},
		{"零温度拒绝", 1, 0, 0},
		{"常规", 1, 1, 0.36787944},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, boltzmannProbability(tt.delta, tt.temp), 1e-6)
		})
	}
}

func TestTierDelta(t *testing.T) {
	var cur, cand policy.Score
	assert.Zero(t, tierDelta(cur, cand))

	cur[policy.TierRhythm] = 5
	cand[policy.TierRhythm] = 3
	assert.Equal(t, float64(2), tierDelta(cur, cand))

	cand[policy.TierCoverage] = -1
	assert.Equal(t, float64(policy.NumTiers), tierDelta(cur, cand))
}
