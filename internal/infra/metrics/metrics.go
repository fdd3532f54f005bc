// Package metrics exposes Prometheus collectors for plan autosave, AI calls
// and HTTP traffic.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/business-planner/backend/internal/application/adapter"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

var (
	PlanSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_saves_total",
			Help: "Total number of plan save attempts by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	PlanSaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plan_save_duration_seconds",
			Help:    "Duration of plan save attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI analysis requests by operation and result",
		},
		[]string{"operation", "result"},
	)

	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Duration of AI analysis requests in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"operation"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// ObserveSave records one plan save attempt. Attempt zero is a manual flush;
// automatic saves count from one.
func ObserveSave(planID string, attempt int, elapsed time.Duration, err error) {
	trigger := "autosave"
	if attempt == 0 {
		trigger = "flush"
	}
	PlanSavesTotal.WithLabelValues(trigger, result(err)).Inc()
	PlanSaveDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

// Handler serves the registered collectors.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records request counts and latencies per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// instrumentedAI records metrics around an AIAnalysisService.
type instrumentedAI struct {
	next adapter.AIAnalysisService
}

// InstrumentAI wraps an AI service so every call is counted and timed.
func InstrumentAI(next adapter.AIAnalysisService) adapter.AIAnalysisService {
	return &instrumentedAI{next: next}
}

func (s *instrumentedAI) IsAvailable() bool {
	return s.next.IsAvailable()
}

func (s *instrumentedAI) MarketScan(ctx context.Context, request *adapter.MarketScanRequest) (*adapter.MarketScanResult, error) {
	start := time.Now()
	out, err := s.next.MarketScan(ctx, request)
	observeAI("market_scan", start, err)
	return out, err
}

func (s *instrumentedAI) CompetitorDeepDive(ctx context.Context, request *adapter.DeepDiveRequest) (*adapter.DeepDiveResult, error) {
	start := time.Now()
	out, err := s.next.CompetitorDeepDive(ctx, request)
	observeAI("deep_dive", start, err)
	return out, err
}

func observeAI(operation string, start time.Time, err error) {
	AIRequestsTotal.WithLabelValues(operation, result(err)).Inc()
	AIRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
