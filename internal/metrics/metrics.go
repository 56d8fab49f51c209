package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bridge"

// Metrics 服务指标，使用独立的 registry
type Metrics struct {
	Registry         *prometheus.Registry
	Requests         *prometheus.CounterVec
	ApprovalsPending prometheus.Gauge
	Signatures       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Dispatched requests by action and outcome.",
		}, []string{"action", "outcome"}),
		ApprovalsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "approvals_pending",
			Help:      "Approvals waiting for the holder, including the active one.",
		}),
		Signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_total",
			Help:      "Signatures produced by blockchain and outcome.",
		}, []string{"blockchain", "outcome"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.ApprovalsPending,
		m.Signatures,
	)
	return m
}

// ObserveRequest nil 安全
func (m *Metrics) ObserveRequest(action string, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(action, outcome).Inc()
}

// ObserveSignature nil 安全
func (m *Metrics) ObserveSignature(blockchain string, outcome string) {
	if m == nil {
		return
	}
	m.Signatures.WithLabelValues(blockchain, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
