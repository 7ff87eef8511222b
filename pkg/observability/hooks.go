package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/webflow/pkg/domain"
)

// LoggingHooks logs the execution lifecycle at Debug, and errors at Warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStarted: func(ctx context.Context, e *domain.SessionEvent) {
			logger.DebugContext(ctx, "session started", "flow_id", e.FlowID, "depth", e.Depth)
		},
		OnSessionEnded: func(ctx context.Context, e *domain.SessionEvent) {
			logger.DebugContext(ctx, "session ended", "flow_id", e.FlowID, "outcome", e.Outcome)
		},
		OnStateEntered: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state entered", "flow_id", e.FlowID, "state_id", e.StateID, "previous", e.Previous)
		},
		OnTransitionExecuting: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition", "flow_id", e.FlowID, "from", e.From, "event", e.EventID)
		},
		OnPaused: func(ctx context.Context, e *domain.RequestEvent) {
			logger.DebugContext(ctx, "execution paused", "flow_id", e.FlowID, "execution", e.Key)
		},
		OnException: func(ctx context.Context, e *domain.ExceptionEvent) {
			logger.WarnContext(ctx, "flow exception", "flow_id", e.FlowID, "state_id", e.StateID, "err", e.Err)
		},
	}
}

// Combine returns hooks calling every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnRequestSubmitted = chain(out.OnRequestSubmitted, h.OnRequestSubmitted)
		out.OnRequestProcessed = chain(out.OnRequestProcessed, h.OnRequestProcessed)
		out.OnSessionStarting = chain(out.OnSessionStarting, h.OnSessionStarting)
		out.OnSessionStarted = chain(out.OnSessionStarted, h.OnSessionStarted)
		out.OnSessionEnding = chain(out.OnSessionEnding, h.OnSessionEnding)
		out.OnSessionEnded = chain(out.OnSessionEnded, h.OnSessionEnded)
		out.OnStateEntering = chain(out.OnStateEntering, h.OnStateEntering)
		out.OnStateEntered = chain(out.OnStateEntered, h.OnStateEntered)
		out.OnTransitionExecuting = chain(out.OnTransitionExecuting, h.OnTransitionExecuting)
		out.OnViewRendering = chain(out.OnViewRendering, h.OnViewRendering)
		out.OnViewRendered = chain(out.OnViewRendered, h.OnViewRendered)
		out.OnPaused = chain(out.OnPaused, h.OnPaused)
		out.OnResuming = chain(out.OnResuming, h.OnResuming)
		out.OnException = chain(out.OnException, h.OnException)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
