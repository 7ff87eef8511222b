package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventRequestSubmitted    EventType = "request_submitted"
	EventRequestProcessed    EventType = "request_processed"
	EventSessionStarting     EventType = "session_starting"
	EventSessionStarted      EventType = "session_started"
	EventSessionEnding       EventType = "session_ending"
	EventSessionEnded        EventType = "session_ended"
	EventStateEntering       EventType = "state_entering"
	EventStateEntered        EventType = "state_entered"
	EventTransitionExecuting EventType = "transition_executing"
	EventViewRendering       EventType = "view_rendering"
	EventViewRendered        EventType = "view_rendered"
	EventPaused              EventType = "paused"
	EventResuming            EventType = "resuming"
	EventException           EventType = "exception"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Key       string    `json:"key,omitempty"`
}

// RequestEvent marks the boundaries of one request against an execution.
type RequestEvent struct {
	EventBase
	FlowID string `json:"flow_id"`
	Active bool   `json:"active"`
}

// SessionEvent represents a flow session starting or ending.
type SessionEvent struct {
	EventBase
	FlowID  string         `json:"flow_id"`
	Depth   int            `json:"depth"`
	Outcome string         `json:"outcome,omitempty"`
	Output  map[string]any `json:"output,omitempty"`
}

// StateEvent represents entry into a state.
type StateEvent struct {
	EventBase
	FlowID    string `json:"flow_id"`
	StateID   string `json:"state_id"`
	StateType string `json:"state_type"`
	Previous  string `json:"previous,omitempty"`
}

// TransitionEvent represents a transition about to execute.
type TransitionEvent struct {
	EventBase
	FlowID  string `json:"flow_id"`
	From    string `json:"from,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

// ViewEvent represents a view being rendered.
type ViewEvent struct {
	EventBase
	FlowID  string `json:"flow_id"`
	StateID string `json:"state_id"`
}

// ExceptionEvent represents an error escaping a state or flow.
type ExceptionEvent struct {
	EventBase
	FlowID  string `json:"flow_id"`
	StateID string `json:"state_id,omitempty"`
	Err     error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnRequestSubmitted    func(context.Context, *RequestEvent)
	OnRequestProcessed    func(context.Context, *RequestEvent)
	OnSessionStarting     func(context.Context, *SessionEvent)
	OnSessionStarted      func(context.Context, *SessionEvent)
	OnSessionEnding       func(context.Context, *SessionEvent)
	OnSessionEnded        func(context.Context, *SessionEvent)
	OnStateEntering       func(context.Context, *StateEvent)
	OnStateEntered        func(context.Context, *StateEvent)
	OnTransitionExecuting func(context.Context, *TransitionEvent)
	OnViewRendering       func(context.Context, *ViewEvent)
	OnViewRendered        func(context.Context, *ViewEvent)
	OnPaused              func(context.Context, *RequestEvent)
	OnResuming            func(context.Context, *RequestEvent)
	OnException           func(context.Context, *ExceptionEvent)
}
