// Package metrics exposes Prometheus instrumentation for question supply
// and redemption decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. All methods are safe on a nil receiver so
// components can run without instrumentation.
type Metrics struct {
	registry           *prometheus.Registry
	handler            http.Handler
	questionsServed    *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
	redeemDecisions    *prometheus.CounterVec
	answers            *prometheus.CounterVec
}

// New registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	questionsServed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bharatrewards_questions_served_total",
		Help: "Questions handed to quiz rounds, by category and source",
	}, []string{"category", "source"})

	generationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bharatrewards_generation_failures_total",
		Help: "Generation calls that failed and were replaced by fallback questions",
	}, []string{"category"})

	redeemDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bharatrewards_redeem_requests_total",
		Help: "Redeem requests by resulting status",
	}, []string{"status"})

	answers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bharatrewards_answers_total",
		Help: "Submitted answers by category and correctness",
	}, []string{"category", "correct"})

	registry.MustRegister(questionsServed, generationFailures, redeemDecisions, answers)

	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		questionsServed:    questionsServed,
		generationFailures: generationFailures,
		redeemDecisions:    redeemDecisions,
		answers:            answers,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// QuestionsServed records n questions of a category served from source.
func (m *Metrics) QuestionsServed(category, source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.questionsServed.WithLabelValues(category, source).Add(float64(n))
}

// GenerationFailed records a failed generation call.
func (m *Metrics) GenerationFailed(category string) {
	if m == nil {
		return
	}
	m.generationFailures.WithLabelValues(category).Inc()
}

// RedeemDecision records a redeem request reaching status.
func (m *Metrics) RedeemDecision(status string) {
	if m == nil {
		return
	}
	m.redeemDecisions.WithLabelValues(status).Inc()
}

// AnswerSubmitted records an answer.
func (m *Metrics) AnswerSubmitted(category string, correct bool) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.answers.WithLabelValues(category, label).Inc()
}
