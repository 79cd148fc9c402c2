// metrics — prometheus-коллекторы клиента.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portal_client"

// Metrics — набор коллекторов. Nil-получатель допустим: методы ничего не делают.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	Refreshes     *prometheus.CounterVec
	AccessExpired prometheus.Counter
}

// New создаёт и регистрирует коллекторы в reg. Если reg == nil — коллекторы
// создаются без регистрации.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Outgoing backend requests by method and status code.",
		}, []string{"method", "code"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Outgoing backend request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Session refresh calls by result.",
		}, []string{"result"}),
		AccessExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_expired_total",
			Help:      "Code-based course access grants observed as expired.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration, m.Refreshes, m.AccessExpired)
	}

	return m
}

// ObserveRequest учитывает один запрос. code — "error" для транспортных сбоев.
func (m *Metrics) ObserveRequest(method, code string, seconds float64) {
	if m == nil {
		return
	}

	m.Requests.WithLabelValues(method, code).Inc()
	m.Duration.WithLabelValues(method).Observe(seconds)
}

// ObserveRefresh учитывает вызов обновления сессии.
func (m *Metrics) ObserveRefresh(err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

// ObserveAccessExpired учитывает переход гранта в истёкший.
func (m *Metrics) ObserveAccessExpired() {
	if m == nil {
		return
	}

	m.AccessExpired.Inc()
}
