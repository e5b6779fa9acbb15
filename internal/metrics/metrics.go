package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 结果标签取值
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Registry 应用指标集合，每个实例持有独立的 prometheus 注册表
type Registry struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	NotificationsSent   *prometheus.CounterVec
	AICompletions       *prometheus.CounterVec
	TicketTransitions   *prometheus.CounterVec
}

// NewRegistry 创建并注册全部指标
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		),
		NotificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Notification delivery attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		AICompletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_completions_total",
				Help: "Generative text completions by provider and result",
			},
			[]string{"provider", "result"},
		),
		TicketTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_transitions_total",
				Help: "Ticket state transitions by event and resulting status",
			},
			[]string{"event", "status"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.HTTPRequestsTotal,
		r.HTTPRequestDuration,
		r.NotificationsSent,
		r.AICompletions,
		r.TicketTransitions,
	)
	return r
}

// Gatherer 暴露底层注册表（测试读取指标）
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler 返回 /metrics 处理器
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// GinMiddleware 采集 HTTP 请求指标
func (r *Registry) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		r.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveNotification 记录一次通知投递结果
func (r *Registry) ObserveNotification(channel string, err error) {
	if r == nil {
		return
	}
	r.NotificationsSent.WithLabelValues(channel, resultLabel(err)).Inc()
}

// ObserveCompletion 记录一次生成式文本调用结果
func (r *Registry) ObserveCompletion(provider string, err error) {
	if r == nil {
		return
	}
	r.AICompletions.WithLabelValues(provider, resultLabel(err)).Inc()
}

// ObserveTicketTransition 记录工单状态流转
func (r *Registry) ObserveTicketTransition(event, status string) {
	if r == nil {
		return
	}
	r.TicketTransitions.WithLabelValues(event, status).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
