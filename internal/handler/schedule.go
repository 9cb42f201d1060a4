// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalizer"
	"github.com/paiban/roster/pkg/scheduler/decoder"
	"github.com/paiban/roster/pkg/scheduler/solver"
	"github.com/paiban/roster/pkg/stats"
	"github.com/paiban/roster/pkg/validator"
)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	options solver.Options
	tails   repository.TailStore // 可为 nil
	metrics *metrics.Recorder    // 可为 nil
	maxBody int64
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(opts solver.Options, tails repository.TailStore, rec *metrics.Recorder) *ScheduleHandler {
	return &ScheduleHandler{options: opts, tails: tails, metrics: rec, maxBody: 1 << 20}
}

// SetMaxBodyBytes 设置请求体上限
func (h *ScheduleHandler) SetMaxBodyBytes(n int64) {
	if n > 0 {
		h.maxBody = n
	}
}

// SolveOptions 单次求解的选项，未填写的字段使用服务配置
type SolveOptions struct {
	TimeLimit string               `json:"time_limit,omitempty"` // 如 "20s"
	Workers   int                  `json:"workers,omitempty"`
	Seed      int64                `json:"seed,omitempty"`
	Policy    *config.PolicyConfig `json:"policy,omitempty"`
}

// SolveRequest 排班求解请求
type SolveRequest struct {
	Config  normalizer.RawConfig `json:"config"`
	Options *SolveOptions        `json:"options,omitempty"`
}

// SolveResponse 排班求解响应
type SolveResponse struct {
	Schedule *decoder.Schedule      `json:"schedule"`
	Fairness *stats.FairnessMetrics `json:"fairness,omitempty"`
	Coverage *stats.CoverageMetrics `json:"coverage,omitempty"`
	NextTail map[string][]string    `json:"next_tail,omitempty"`
	Stats    solver.Stats           `json:"stats"`
}

// Solve 求解一期排班
func (h *ScheduleHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SolveRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, errors.As(err))
		return
	}
	opts, err := h.solveOptions(req.Options)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}

	ctx := r.Context()
	if err := h.loadTail(ctx, &req.Config); err != nil {
		respondError(w, errors.As(err))
		return
	}
	problem, err := normalizer.Normalize(&req.Config)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}

	start := time.Now()
	result, err := solver.NewEngine(opts).Solve(ctx, problem)
	if h.metrics != nil {
		h.metrics.RecordSolve(result, time.Since(start))
	}
	if err != nil {
		appErr := errors.As(err)
		if result != nil {
			appErr = appErr.WithField("status", result.Status.String())
			if result.Reason != "" {
				appErr = appErr.WithDetails(result.Reason)
			}
		}
		respondError(w, appErr)
		return
	}

	next := decoder.NextTail(problem, result.Assignment)
	if h.tails != nil {
		if err := h.tails.Save(ctx, problem.NextPeriod(), problem.Staff, next); err != nil {
			// 末尾状态保存失败不影响本期结果
			logger.WithContext(ctx).Warn().Err(err).Str("period", problem.NextPeriod()).Msg("保存末尾状态失败")
		}
	}

	respondJSON(w, http.StatusOK, SolveResponse{
		Schedule: decoder.Decode(problem, result),
		Fairness: stats.NewFairnessAnalyzer().Analyze(problem, result.Assignment),
		Coverage: stats.NewCoverageAnalyzer().Analyze(problem, result.Assignment),
		NextTail: next,
		Stats:    result.Stats,
	})
}

// ValidateRequest 验证请求，排班表为 Solve 导出的 CSV
type ValidateRequest struct {
	Config normalizer.RawConfig `json:"config"`
	CSV    string               `json:"csv"`
	Policy *config.PolicyConfig `json:"policy,omitempty"`
}

// ValidateResponse 验证响应
type ValidateResponse struct {
	IsValid   bool                 `json:"is_valid"`
	Conflicts []validator.Conflict `json:"conflicts"`
	Schedule  *decoder.Schedule    `json:"schedule"`
}

// Validate 复核一张已有排班
func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
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

	conflicts := validator.NewConflictDetector(validator.ConfigFromPolicy(opts.Policy)).DetectAll(problem, assignment)
	if conflicts == nil {
		conflicts = []validator.Conflict{}
	}
	respondJSON(w, http.StatusOK, ValidateResponse{
		IsValid:   !validator.HasErrors(conflicts),
		Conflicts: conflicts,
		Schedule:  decoder.DecodeAssignment(problem, assignment),
	})
}

func parseSchedule(raw *normalizer.RawConfig, csvText string) (*model.Problem, *model.Assignment, error) {
	if strings.TrimSpace(csvText) == "" {
		return nil, nil, errors.InvalidInput("csv", "排班表不能为空")
	}
	problem, err := normalizer.Normalize(raw)
	if err != nil {
		return nil, nil, err
	}
	assignment, err := decoder.ReadCSV(strings.NewReader(csvText), problem)
	if err != nil {
		return nil, nil, err
	}
	return problem, assignment, nil
}

// loadTail 请求未给出末尾状态时从存储读取本期的末尾状态
func (h *ScheduleHandler) loadTail(ctx context.Context, raw *normalizer.RawConfig) error {
	if h.tails == nil || len(raw.Tail) > 0 || raw.Year == 0 || raw.Month == 0 {
		return nil
	}
	period := (&model.Problem{Year: raw.Year, Month: time.Month(raw.Month)}).Period()
	tail, err := h.tails.Load(ctx, period)
	if err != nil {
		return err
	}
	if len(tail) > 0 {
		raw.Tail = tail
		logger.WithContext(ctx).Info().Str("period", period).Int("staff", len(tail)).Msg("使用已保存的末尾状态")
	}
	return nil
}

// solveOptions 在默认求解选项上叠加请求参数
func (h *ScheduleHandler) solveOptions(o *SolveOptions) (solver.Options, error) {
	opts := h.options
	if o == nil {
		return opts, nil
	}
	if o.TimeLimit != "" {
		d, err := time.ParseDuration(o.TimeLimit)
		if err != nil || d <= 0 {
			return opts, errors.InvalidInput("time_limit", "无效的求解时限: "+o.TimeLimit)
		}
		opts.TimeLimit = d
	}
	if o.Workers > 0 {
		opts.Workers = o.Workers
	}
	if o.Seed != 0 {
		opts.Seed = o.Seed
	}
	if o.Policy != nil {
		pol, err := o.Policy.Build()
		if err != nil {
			return opts, errors.Configuration("policy", err.Error())
		}
		opts.Policy = pol
	}
	return opts, nil
}

func (h *ScheduleHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败")
	}
	return nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
		"fields":  err.Fields,
	})
}
