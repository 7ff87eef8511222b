package engine

import (
	"fmt"
	"strings"

	"github.com/aretw0/webflow/pkg/binding/mapping"
)

// DefinitionError reports a malformed flow definition. It is returned while building
// flows and never retried.
type DefinitionError struct {
	FlowID  string
	StateID string
	Reason  string
}

func (e *DefinitionError) Error() string {
	if e.StateID != "" {
		return fmt.Sprintf("flow %q state %q: %s", e.FlowID, e.StateID, e.Reason)
	}
	return fmt.Sprintf("flow %q: %s", e.FlowID, e.Reason)
}

// NoMatchingTransitionError is returned when no transition of the current state, nor
// any global transition, matches the event being handled.
type NoMatchingTransitionError struct {
	FlowID  string
	StateID string
	EventID string
	// Tried lists every event id signaled by an action state, in order.
	Tried []string
}

func (e *NoMatchingTransitionError) Error() string {
	if len(e.Tried) > 1 {
		return fmt.Sprintf("no transition found in flow %q state %q for events [%s]", e.FlowID, e.StateID, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("no transition found in flow %q state %q for event %q", e.FlowID, e.StateID, e.EventID)
}

// FlowExecutionError wraps any error that escaped the processing of a request.
type FlowExecutionError struct {
	FlowID  string
	StateID string
	Err     error
}

func (e *FlowExecutionError) Error() string {
	if e.StateID != "" {
		return fmt.Sprintf("flow %q state %q: %v", e.FlowID, e.StateID, e.Err)
	}
	return fmt.Sprintf("flow %q: %v", e.FlowID, e.Err)
}

func (e *FlowExecutionError) Unwrap() error { return e.Err }

// ViewRenderingError reports a view that failed to render.
type ViewRenderingError struct {
	FlowID  string
	StateID string
	Err     error
}

func (e *ViewRenderingError) Error() string {
	return fmt.Sprintf("render view of flow %q state %q: %v", e.FlowID, e.StateID, e.Err)
}

func (e *ViewRenderingError) Unwrap() error { return e.Err }

// FlowInputMappingError reports input mappings that failed when a flow session started.
type FlowInputMappingError struct {
	FlowID  string
	StateID string
	Results *mapping.Results
}

func (e *FlowInputMappingError) Error() string {
	return fmt.Sprintf("flow %q: input mapping failed: %s", e.FlowID, describe(e.Results))
}

// FlowOutputMappingError reports output mappings that failed when a flow session ended.
type FlowOutputMappingError struct {
	FlowID  string
	StateID string
	Results *mapping.Results
}

func (e *FlowOutputMappingError) Error() string {
	return fmt.Sprintf("flow %q state %q: output mapping failed: %s", e.FlowID, e.StateID, describe(e.Results))
}

func describe(results *mapping.Results) string {
	errs := results.Errors()
	parts := make([]string, 0, len(errs))
	for _, r := range errs {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, "; ")
}
