package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/policy"
	"github.com/paiban/roster/pkg/scheduler/solver"
)

func newRecorder(t *testing.T) (*Recorder, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("注册指标失败: %v", err)
	}
	return r, reg
}

func TestRecordSolve(t *testing.T) {
	r, _ := newRecorder(t)

	var score policy.Score
	score[policy.TierCoverage] = 56
	feasible := &solver.Result{
		Status:     model.StatusFeasible,
		Assignment: model.NewAssignment(1, 1),
		Score:      score,
		Objective:  5600,
		Stats: solver.Stats{
			Construct:  solver.ConstructStats{Nodes: 120, Backtracks: 3},
			Iterations: 500,
		},
	}
	r.RecordSolve(feasible, 2*time.Second)
	r.RecordSolve(&solver.Result{Status: model.StatusInfeasible}, time.Millisecond)
	r.RecordSolve(nil, time.Millisecond)

	expected := `
# HELP roster_solves_total 排班求解次数
# TYPE roster_solves_total counter
roster_solves_total{status="error"} 1
roster_solves_total{status="feasible"} 1
roster_solves_total{status="infeasible"} 1
`
	if err := testutil.CollectAndCompare(r.solves, strings.NewReader(expected)); err != nil {
		t.Errorf("求解计数不符: %v", err)
	}
	if got := testutil.ToFloat64(r.objective); got != 5600 {
		t.Errorf("目标值 = %v, 期望 5600", got)
	}
	if got := testutil.ToFloat64(r.tierScore.WithLabelValues(policy.TierCoverage.String())); got != 56 {
		t.Errorf("覆盖层得分 = %v, 期望 56", got)
	}
	if got := testutil.ToFloat64(r.nodes); got != 120 {
		t.Errorf("节点数 = %v, 期望 120", got)
	}
	if got := testutil.ToFloat64(r.iterations); got != 500 {
		t.Errorf("迭代数 = %v, 期望 500", got)
	}
}

func TestNewRecorder_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("首次注册失败: %v", err)
	}
	second, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("重复注册应复用已有指标: %v", err)
	}
	second.nodes.Add(7)
	if got := testutil.ToFloat64(first.nodes); got != 7 {
		t.Errorf("两个记录器应共享同一计数器, got %v", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	r, _ := newRecorder(t)
	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/roster/solve", nil))
	if got := testutil.ToFloat64(r.requests.WithLabelValues("POST", "/api/v1/roster/solve", "422")); got != 1 {
		t.Errorf("请求计数 = %v, 期望 1", got)
	}

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "roster_http_requests_total") {
		t.Errorf("指标输出缺少 roster_http_requests_total")
	}
}
