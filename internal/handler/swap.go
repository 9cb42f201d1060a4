package handler

import (
	"net/http"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalizer"
	"github.com/paiban/roster/pkg/swap"
)

// SwapRequest 换班请求。指定 target 时评估与其互换，否则推荐换班对象
type SwapRequest struct {
	Config   normalizer.RawConfig `json:"config"`
	CSV      string               `json:"csv"`
	Staff    string               `json:"staff"`
	Day      int                  `json:"day"` // 1 起
	Target   string               `json:"target,omitempty"`
	WantRest bool                 `json:"want_rest,omitempty"`
	Limit    int                  `json:"limit,omitempty"`
	Policy   *config.PolicyConfig `json:"policy,omitempty"`
}

// SwapResponse 换班响应
type SwapResponse struct {
	Evaluation      *swap.SwapEvaluation  `json:"evaluation,omitempty"`
	Recommendations []swap.Recommendation `json:"recommendations,omitempty"`
}

// Swap 评估或推荐换班
func (h *ScheduleHandler) Swap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SwapRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, errors.As(err))
		return
	}
	opts, err := h.solveOptions(&SolveOptions{Policy: req.Policy})
	if err != nil {
		respondError(w, errors.As(err))
		return
	}
	problem, assignment, err := parseSchedule(&req.Config, req.CSV)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}
	staff, ok := staffIndex(problem, req.Staff)
	if !ok {
		respondError(w, errors.InvalidInput("staff", "未知员工: "+req.Staff))
		return
	}
	day := req.Day - 1

	rec := swap.NewRecommender(opts.Policy)
	if req.Target != "" {
		target, ok := staffIndex(problem, req.Target)
		if !ok {
			respondError(w, errors.InvalidInput("target", "未知员工: "+req.Target))
			return
		}
		ev, err := rec.Evaluator().EvaluateSwap(problem, assignment, swap.SwapRequest{Staff: staff, Target: target, Day: day})
		if err != nil {
			respondError(w, errors.As(err))
			return
		}
		respondJSON(w, http.StatusOK, SwapResponse{Evaluation: ev})
		return
	}

	if day < 0 || day >= problem.NumDays() {
		respondError(w, errors.InvalidInput("day", "日期超出本期范围"))
		return
	}
	ropts := swap.DefaultRecommendOptions()
	ropts.WantRest = req.WantRest
	if req.Limit > 0 {
		ropts.MaxRecommendations = req.Limit
	}
	recs := rec.RecommendSwapTargets(problem, assignment, staff, day, ropts)
	if recs == nil {
		recs = []swap.Recommendation{}
	}
	respondJSON(w, http.StatusOK, SwapResponse{Recommendations: recs})
}

func staffIndex(p *model.Problem, name string) (int, bool) {
	for s, st := range p.Staff {
		if st.Name == name {
			return s, true
		}
	}
	return 0, false
}
