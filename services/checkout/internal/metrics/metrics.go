package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout collects checkout engine metrics. A nil *Checkout is a no-op so
// tests can leave it out.
type Checkout struct {
	Attempts        *prometheus.CounterVec
	TxDurationMS    *prometheus.HistogramVec
	OrdersCreated   *prometheus.CounterVec
	GatewaySessions *prometheus.CounterVec
	OutboxPublished *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Checkout {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Checkout attempts by payment method and result code.",
	}, []string{"payment_method", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marketplace",
		Subsystem: "checkout",
		Name:      "transaction_duration_ms",
		Help:      "Order creation transaction latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "checkout",
		Name:      "orders_created_total",
		Help:      "Vendor orders committed.",
	}, []string{"payment_method"})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "checkout",
		Name:      "gateway_sessions_total",
		Help:      "Hosted payment session requests by result.",
	}, []string{"result"})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "checkout",
		Name:      "outbox_events_total",
		Help:      "Outbox events handed to the broker by result.",
	}, []string{"result"})

	reg.MustRegister(attempts, duration, orders, sessions, outbox)
	return &Checkout{
		Attempts:        attempts,
		TxDurationMS:    duration,
		OrdersCreated:   orders,
		GatewaySessions: sessions,
		OutboxPublished: outbox,
	}
}

func (m *Checkout) ObserveAttempt(method, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.Attempts.WithLabelValues(method, code).Inc()
}

func (m *Checkout) ObserveTx(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TxDurationMS.WithLabelValues(outcome).Observe(float64(d.Milliseconds()))
}

func (m *Checkout) AddOrders(method string, n int) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(method).Add(float64(n))
}

func (m *Checkout) ObserveSession(ok bool) {
	if m == nil {
		return
	}
	m.GatewaySessions.WithLabelValues(result(ok)).Inc()
}

func (m *Checkout) ObserveOutbox(ok bool, n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(result(ok)).Add(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
