package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/webflow/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	sessionsStarted *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	stateEntries    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	viewRenders     *prometheus.CounterVec
	pauses          *prometheus.CounterVec
	exceptions      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_sessions_started_total",
			Help: "Flow sessions started, subflows included.",
		}, []string{"flow_id"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_sessions_ended_total",
			Help: "Flow sessions ended, by outcome.",
		}, []string{"flow_id", "outcome"}),
		stateEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_state_entries_total",
			Help: "States entered.",
		}, []string{"flow_id", "state_id", "state_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_transitions_total",
			Help: "Transitions executed, by source state and event.",
		}, []string{"flow_id", "from", "event"}),
		viewRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_view_renders_total",
			Help: "Views rendered.",
		}, []string{"flow_id", "state_id"}),
		pauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_executions_paused_total",
			Help: "Requests that ended with the execution paused.",
		}, []string{"flow_id"}),
		exceptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_exceptions_total",
			Help: "Errors raised during flow execution.",
		}, []string{"flow_id", "state_id"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webflow_request_duration_seconds",
			Help:    "Duration of launch and resume requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow_id", "kind", "result"}),
	}
	reg.MustRegister(
		m.sessionsStarted, m.sessionsEnded, m.stateEntries, m.transitions,
		m.viewRenders, m.pauses, m.exceptions, m.requestDuration,
	)
	return m
}

// Hooks returns lifecycle hooks updating the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStarted: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsStarted.WithLabelValues(e.FlowID).Inc()
		},
		OnSessionEnded: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsEnded.WithLabelValues(e.FlowID, e.Outcome).Inc()
		},
		OnStateEntered: func(_ context.Context, e *domain.StateEvent) {
			m.stateEntries.WithLabelValues(e.FlowID, e.StateID, e.StateType).Inc()
		},
		OnTransitionExecuting: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(e.FlowID, e.From, e.EventID).Inc()
		},
		OnViewRendered: func(_ context.Context, e *domain.ViewEvent) {
			m.viewRenders.WithLabelValues(e.FlowID, e.StateID).Inc()
		},
		OnPaused: func(_ context.Context, e *domain.RequestEvent) {
			m.pauses.WithLabelValues(e.FlowID).Inc()
		},
		OnException: func(_ context.Context, e *domain.ExceptionEvent) {
			m.exceptions.WithLabelValues(e.FlowID, e.StateID).Inc()
		},
	}
}

// ObserveRequest records how long a launch or resume request took. result is
// "paused", "ended" or "error".
func (m *Metrics) ObserveRequest(flowID, kind, result string, d time.Duration) {
	m.requestDuration.WithLabelValues(flowID, kind, result).Observe(d.Seconds())
}
