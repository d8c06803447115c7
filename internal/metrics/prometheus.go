package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	transitions   *prom.CounterVec
	projects      prom.Gauge
	reclaimable   prom.Gauge
	cleanResults  *prom.CounterVec
	cleanedBytes  prom.Counter
	notifications *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A nil reg
// gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kondo",
			Name:      "state_transitions_total",
			Help:      "Canonical state transitions applied, by transition name",
		}, []string{"transition"}),
		projects: prom.NewGauge(prom.GaugeOpts{
			Namespace: "kondo",
			Name:      "projects",
			Help:      "Projects in the canonical collection",
		}),
		reclaimable: prom.NewGauge(prom.GaugeOpts{
			Namespace: "kondo",
			Name:      "reclaimable_bytes",
			Help:      "Artifact bytes that can still be cleaned",
		}),
		cleanResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kondo",
			Name:      "clean_results_total",
			Help:      "Per-project clean attempts by result",
		}, []string{"result"}),
		cleanedBytes: prom.NewCounter(prom.CounterOpts{
			Namespace: "kondo",
			Name:      "cleaned_bytes_total",
			Help:      "Artifact bytes removed",
		}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kondo",
			Name:      "notifications_total",
			Help:      "Push notifications received, by topic",
		}, []string{"topic"}),
	}
	reg.MustRegister(pr.transitions, pr.projects, pr.reclaimable, pr.cleanResults, pr.cleanedBytes, pr.notifications)
	return pr
}

func (p *PrometheusRecorder) IncTransition(name string) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(name).Inc()
}

func (p *PrometheusRecorder) SetProjects(n int) {
	if p == nil {
		return
	}
	p.projects.Set(float64(n))
}

func (p *PrometheusRecorder) SetReclaimableBytes(n uint64) {
	if p == nil {
		return
	}
	p.reclaimable.Set(float64(n))
}

func (p *PrometheusRecorder) IncCleanResult(success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.cleanResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) AddCleanedBytes(n uint64) {
	if p == nil {
		return
	}
	p.cleanedBytes.Add(float64(n))
}

func (p *PrometheusRecorder) IncNotification(topic string) {
	if p == nil {
		return
	}
	p.notifications.WithLabelValues(topic).Inc()
}

// HTTPHandler returns an http.Handler that serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
