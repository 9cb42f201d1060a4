package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/middleware"
	"github.com/paiban/roster/pkg/errors"
)

// HealthChecker 外部依赖的健康检查，如数据库
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter 注册全部端点并套上中间件。
// 执行顺序：recovery -> requestID -> securityHeaders -> cors -> logging -> apiKey -> rateLimit -> metrics -> handler。
// ctx 结束时停止限流器的后台清理
func NewRouter(ctx context.Context, cfg *config.Config, h *ScheduleHandler, rec *metrics.Recorder, db HealthChecker) http.Handler {
	h.SetMaxBodyBytes(cfg.API.MaxBodyBytes)
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "healthy", "time": time.Now().Format(time.RFC3339)}
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				respondJSON(w, http.StatusServiceUnavailable, status)
				return
			}
			status["database"] = "ok"
		}
		respondJSON(w, http.StatusOK, status)
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"name":    cfg.App.Name,
			"version": cfg.App.Version,
		})
	})
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/" {
			respondError(w, errors.New(errors.CodeNotFound, "接口不存在: "+r.URL.Path))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"name":    cfg.App.Name,
			"version": cfg.App.Version,
			"endpoints": []string{
				"POST /api/v1/roster/solve",
				"POST /api/v1/roster/validate",
				"POST /api/v1/roster/stats",
				"POST /api/v1/roster/swap",
				"GET /api/v1/constraints/library",
			},
		})
	})

	mux.HandleFunc("/api/v1/roster/solve", h.Solve)
	mux.HandleFunc("/api/v1/roster/validate", h.Validate)
	mux.HandleFunc("/api/v1/roster/stats", h.Stats)
	mux.HandleFunc("/api/v1/roster/swap", h.Swap)
	mux.HandleFunc("/api/v1/constraints/library", h.Library)

	chain := []middleware.Middleware{middleware.Recovery, middleware.RequestID, middleware.SecurityHeaders}
	if cfg.API.CORS.Enabled {
		chain = append(chain, middleware.CORS(cfg.API.CORS.Origins))
	}
	chain = append(chain, middleware.Logging)
	if len(cfg.API.Keys) > 0 {
		chain = append(chain, middleware.APIKey(cfg.API.Keys, "/health", "/version", cfg.Metrics.Path))
	}
	if rl := cfg.API.RateLimit; rl.Enabled {
		limiter := middleware.NewRateLimiter(rl.Requests, rl.Window)
		go limiter.Run(ctx)
		chain = append(chain, middleware.RateLimit(limiter))
	}
	if rec != nil {
		if cfg.Metrics.Enabled {
			mux.Handle(cfg.Metrics.Path, rec.Handler())
		}
		chain = append(chain, rec.Middleware)
	}
	return middleware.Chain(mux, chain...)
}
