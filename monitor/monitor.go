package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	ordersCreated   prometheus.Counter
	ordersSubmitted prometheus.Counter
	ordersCompleted *prometheus.CounterVec
	ordersFailed    *prometheus.CounterVec
	ordersCanceled  prometheus.Counter
	pendingOrders   prometheus.Gauge

	// 支付指标
	paymentEvents    *prometheus.CounterVec
	paymentObservers prometheus.Gauge
	earnConfirmed    prometheus.Counter

	// 对账指标
	reconciliations prometheus.Counter

	// 网关指标
	gatewayRequests *prometheus.CounterVec
	gatewayLatency  prometheus.Histogram
}

// Config 监控配置
type Config struct {
	Namespace string
}

// New 创建Monitor并注册所有指标
func New(cfg Config) *Monitor {
	if cfg.Namespace == "" {
		cfg.Namespace = "marketplace"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,
		ordersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "orders", Name: "created_total",
			Help: "Orders created against the order service.",
		}),
		ordersSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "orders", Name: "submitted_total",
			Help: "Orders submitted for fulfillment.",
		}),
		ordersCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "orders", Name: "completed_total",
			Help: "Orders that reached completed status.",
		}, []string{"external"}),
		ordersFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "orders", Name: "failed_total",
			Help: "Orders that reached failed status.",
		}, []string{"external"}),
		ordersCanceled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "orders", Name: "canceled_total",
			Help: "Orders canceled by the client.",
		}),
		pendingOrders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: "orders", Name: "pending",
			Help: "Submitted-but-unreconciled orders.",
		}),
		paymentEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "payment", Name: "events_total",
			Help: "Payment events by outcome.",
		}, []string{"outcome"}),
		paymentObservers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: "payment", Name: "observer_refcount",
			Help: "Logical waiters sharing the payment subscription.",
		}),
		earnConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "payment", Name: "earn_confirmed_total",
			Help: "Earn payments confirmed on chain.",
		}),
		reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "orders", Name: "reconciliations_total",
			Help: "Authoritative status fetches triggered by payment events.",
		}),
		gatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "gateway", Name: "requests_total",
			Help: "Order service requests by operation and result.",
		}, []string{"op", "result"}),
		gatewayLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: "gateway", Name: "latency_seconds",
			Help:    "Order service request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler 返回 /metrics 处理器
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 暴露底层registry，供测试读取
func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

func (m *Monitor) OrderCreated()             { m.ordersCreated.Inc() }
func (m *Monitor) OrderSubmitted()           { m.ordersSubmitted.Inc() }
func (m *Monitor) OrderCanceled()            { m.ordersCanceled.Inc() }
func (m *Monitor) SetPendingOrders(n int64)  { m.pendingOrders.Set(float64(n)) }
func (m *Monitor) SetPaymentObservers(n int) { m.paymentObservers.Set(float64(n)) }
func (m *Monitor) Reconciled()               { m.reconciliations.Inc() }

// PaymentEvent 记录一条支付结果
func (m *Monitor) PaymentEvent(succeeded bool) {
	outcome := "failed"
	if succeeded {
		outcome = "success"
	}
	m.paymentEvents.WithLabelValues(outcome).Inc()
}

// GatewayRequest 记录一次网关调用
func (m *Monitor) GatewayRequest(op string, err error, seconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.gatewayRequests.WithLabelValues(op, result).Inc()
	m.gatewayLatency.Observe(seconds)
}

// 以下实现 order.EventLogger，把业务遥测转成指标。

func (m *Monitor) SpendOrderCreationRequested(string, bool) { m.ordersCreated.Inc() }

func (m *Monitor) SpendOrderCompletionSubmitted(string, string, bool) { m.ordersSubmitted.Inc() }

func (m *Monitor) SpendOrderCompleted(_, _ string, external bool) {
	m.ordersCompleted.WithLabelValues(boolLabel(external)).Inc()
}

func (m *Monitor) SpendOrderFailed(_, _, _ string, external bool) {
	m.ordersFailed.WithLabelValues(boolLabel(external)).Inc()
}

func (m *Monitor) EarnOrderPaymentConfirmed(string, string) { m.earnConfirmed.Inc() }

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
