package swap

import (
	"sort"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/policy"
)

// Recommender 换班推荐器
type Recommender struct {
	evaluator *SwapEvaluator
}

// NewRecommender 创建换班推荐器
func NewRecommender(pol policy.Policy) *Recommender {
	return &Recommender{evaluator: NewSwapEvaluator(pol)}
}

// Evaluator 返回底层评估器
func (r *Recommender) Evaluator() *SwapEvaluator {
	return r.evaluator
}

// Recommendation 换班推荐
type Recommendation struct {
	Target     string          `json:"target"`
	Evaluation *SwapEvaluation `json:"evaluation"`
	Rank       int             `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int  // 最大推荐数量，0 表示不限
	WantRest           bool // 只考虑让申请人当天休息的换法
	AllowWorse         bool // 允许总得分下降的换法
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{MaxRecommendations: 5, AllowWorse: true}
}

// RecommendSwapTargets 为某人某天推荐换班对象：只返回换后不违反硬约束的，
// 得分高的在前，同分按员工顺序
func (r *Recommender) RecommendSwapTargets(p *model.Problem, a *model.Assignment, staff, day int, opts *RecommendOptions) []Recommendation {
	if opts == nil {
		opts = DefaultRecommendOptions()
	}

	var out []Recommendation
	for t := range p.Staff {
		req := SwapRequest{Staff: staff, Target: t, Day: day}
		if ok, _ := r.evaluator.CanSwap(p, a, req); !ok {
			continue
		}
		if opts.WantRest && model.IsWorking(a.Get(t, day)) {
			continue
		}
		ev, err := r.evaluator.EvaluateSwap(p, a, req)
		if err != nil || !ev.IsValid {
			continue
		}
		if !opts.AllowWorse && ev.Comparison < 0 {
			continue
		}
		out = append(out, Recommendation{Target: p.Staff[t].Name, Evaluation: ev})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Evaluation.After.Compare(out[j].Evaluation.After) > 0
	})
	if opts.MaxRecommendations > 0 && len(out) > opts.MaxRecommendations {
		out = out[:opts.MaxRecommendations]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// FindBestSwapMatch 返回最佳换班对象，没有可行的换法时返回 nil
func (r *Recommender) FindBestSwapMatch(p *model.Problem, a *model.Assignment, staff, day int, wantRest bool) *Recommendation {
	recs := r.RecommendSwapTargets(p, a, staff, day, &RecommendOptions{MaxRecommendations: 1, WantRest: wantRest, AllowWorse: true})
	if len(recs) == 0 {
		return nil
	}
	return &recs[0]
}
