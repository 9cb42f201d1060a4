package handler

import (
	"net/http"

	"github.com/paiban/roster/internal/constraints"
	"github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/normalizer"
	"github.com/paiban/roster/pkg/stats"
)

// StatsRequest 统计请求
type StatsRequest struct {
	Config          normalizer.RawConfig `json:"config"`
	CSV             string               `json:"csv"`
	IncludeManagers bool                 `json:"include_managers,omitempty"`
}

// StatsResponse 统计响应
type StatsResponse struct {
	Fairness *stats.FairnessMetrics `json:"fairness"`
	Coverage *stats.CoverageMetrics `json:"coverage"`
}

// Stats 统计一张已有排班的公平性与覆盖率
func (h *ScheduleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req StatsRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, errors.As(err))
		return
	}
	problem, assignment, err := parseSchedule(&req.Config, req.CSV)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}

	fairness := stats.NewFairnessAnalyzer()
	if req.IncludeManagers {
		fairness.IncludeManagers()
	}
	respondJSON(w, http.StatusOK, StatsResponse{
		Fairness: fairness.Analyze(problem, assignment),
		Coverage: stats.NewCoverageAnalyzer().Analyze(problem, assignment),
	})
}

// Library 返回当前策略下的内置约束说明
func (h *ScheduleHandler) Library(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{
		Policy:  h.options.Policy,
		Library: constraints.GetLibrary(h.options.Policy),
	})
}
