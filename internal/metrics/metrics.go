// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/roster/pkg/scheduler/solver"
)

// Recorder 排班求解与HTTP指标
type Recorder struct {
	solves       *prometheus.CounterVec
	solveSeconds *prometheus.HistogramVec
	objective    prometheus.Gauge
	tierScore    *prometheus.GaugeVec
	nodes        prometheus.Counter
	backtracks   prometheus.Counter
	iterations   prometheus.Counter
	requests     *prometheus.CounterVec
	reqSeconds   *prometheus.HistogramVec
	gatherer     prometheus.Gatherer
}

var (
	defaultRecorder *Recorder
	once            sync.Once
)

// Default 返回注册在全局注册表上的记录器
func Default() *Recorder {
	once.Do(func() {
		r, err := NewRecorder(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
		defaultRecorder = r
	})
	return defaultRecorder
}

// NewRecorder 在指定注册表上注册指标，nil 表示全局注册表。
// 同名指标已注册时复用已有的收集器
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_solves_total",
			Help: "排班求解次数",
		}, []string{"status"}),
		solveSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_solve_duration_seconds",
			Help:    "排班求解耗时",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"status"}),
		objective: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_objective",
			Help: "最近一次可行解的加权目标值",
		}),
		tierScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roster_tier_score",
			Help: "最近一次可行解各层级得分",
		}, []string{"tier"}),
		nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_construct_nodes_total",
			Help: "构造阶段搜索节点数",
		}),
		backtracks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_construct_backtracks_total",
			Help: "构造阶段回溯次数",
		}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_optimizer_iterations_total",
			Help: "改进阶段迭代次数",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_http_requests_total",
			Help: "HTTP请求总数",
		}, []string{"method", "path", "status"}),
		reqSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_http_request_duration_seconds",
			Help:    "HTTP请求延迟",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	var err error
	if r.solves, err = register(reg, r.solves); err != nil {
		return nil, err
	}
	if r.solveSeconds, err = register(reg, r.solveSeconds); err != nil {
		return nil, err
	}
	if r.objective, err = register(reg, r.objective); err != nil {
		return nil, err
	}
	if r.tierScore, err = register(reg, r.tierScore); err != nil {
		return nil, err
	}
	if r.nodes, err = register(reg, r.nodes); err != nil {
		return nil, err
	}
	if r.backtracks, err = register(reg, r.backtracks); err != nil {
		return nil, err
	}
	if r.iterations, err = register(reg, r.iterations); err != nil {
		return nil, err
	}
	if r.requests, err = register(reg, r.requests); err != nil {
		return nil, err
	}
	if r.reqSeconds, err = register(reg, r.reqSeconds); err != nil {
		return nil, err
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		r.gatherer = g
	} else {
		r.gatherer = prometheus.DefaultGatherer
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolve 记录一次求解；无结果时按内部错误计数
func (r *Recorder) RecordSolve(res *solver.Result, elapsed time.Duration) {
	status := "error"
	if res != nil {
		status = res.Status.String()
	}
	r.solves.WithLabelValues(status).Inc()
	r.solveSeconds.WithLabelValues(status).Observe(elapsed.Seconds())
	if res == nil {
		return
	}

	r.nodes.Add(float64(res.Stats.Construct.Nodes))
	r.backtracks.Add(float64(res.Stats.Construct.Backtracks))
	r.iterations.Add(float64(res.Stats.Iterations))
	if res.Assignment == nil {
		return
	}
	r.objective.Set(float64(res.Objective))
	for tier, v := range res.Score.Map() {
		r.tierScore.WithLabelValues(tier).Set(float64(v))
	}
}

// RecordRequest 记录HTTP请求
func (r *Recorder) RecordRequest(method, path string, status int, duration time.Duration) {
	r.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.reqSeconds.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Middleware 记录每个请求的状态码与耗时
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)
		r.RecordRequest(req.Method, req.URL.Path, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
