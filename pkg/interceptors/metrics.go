package interceptors

import (
	"context"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/morezero/ckan-portal/pkg/portal"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeServerError = "server_error"
	OutcomeInvalid     = "invalid_response"
)

// Metrics records Prometheus metrics for portal invocations.
type Metrics struct {
	started  *prometheus.CounterVec
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
	timer    *inflight
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		started: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ckan_portal_requests_started_total",
				Help: "Action invocations sent to the transport.",
			},
			[]string{"action"},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ckan_portal_requests_total",
				Help: "Action invocations that received a response, by outcome.",
			},
			[]string{"action", "outcome", "error_type"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ckan_portal_request_duration_seconds",
				Help:    "Time from sending an invocation to receiving its response.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		timer: newInflight(),
	}

	for _, c := range []prometheus.Collector{m.started, m.finished, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Interceptor returns the interceptor that feeds the collectors.
func (m *Metrics) Interceptor() portal.Interceptor {
	return phaseFunc(
		func(_ context.Context, u *url.URL, params *portal.RequestParams) error {
			name, _ := actionName(u)
			m.started.WithLabelValues(name).Inc()
			m.timer.start(params)
			return nil
		},
		func(_ context.Context, u *url.URL, params *portal.RequestParams, resp portal.Response) (portal.Response, error) {
			name, _ := actionName(u)
			m.duration.WithLabelValues(name).Observe(m.timer.finish(params).Seconds())

			env, replay, err := inspect(resp)
			switch {
			case err != nil:
				m.finished.WithLabelValues(name, OutcomeInvalid, "").Inc()
			case env.Success:
				m.finished.WithLabelValues(name, OutcomeSuccess, "").Inc()
			default:
				m.finished.WithLabelValues(name, OutcomeServerError, env.ErrorType()).Inc()
			}
			return replay, nil
		},
	)
}
