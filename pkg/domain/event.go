package domain

import "time"

// Standard event ids produced by actions and the event factory.
const (
	EventSuccess = "success"
	EventError   = "error"
	EventYes     = "yes"
	EventNo      = "no"
	EventNull    = "null"
)

// Event is a signal that something happened; its id is matched against transitions.
type Event struct {
	ID         string         `json:"id"`
	Source     string         `json:"source,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewEvent creates an event with the given id raised by source.
func NewEvent(source, id string) *Event {
	return &Event{
		ID:        id,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// WithAttribute returns the event after setting an attribute on it.
func (e *Event) WithAttribute(name string, value any) *Event {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[name] = value
	return e
}

// EventIDer is implemented by values that know which event they stand for.
// Evaluate actions use it to turn enum-like results into events.
type EventIDer interface {
	EventID() string
}
