package engine

import (
	"github.com/aretw0/webflow/pkg/domain"
)

// UserEventStateAttribute is the flash attribute carrying a view's user event state
// across a redirect in the same state.
const UserEventStateAttribute = "viewActionState"

// View renders a view state and turns user input into flow events.
type View interface {
	// Render writes the view to the response.
	Render() error
	// UserEventQueued reports whether the request carries a user event for this view.
	UserEventQueued() bool
	// ProcessUserEvent handles the queued user event, typically binding and validating
	// input, and decides whether a flow event results.
	ProcessUserEvent() error
	// HasFlowEvent reports whether processing produced a flow event.
	HasFlowEvent() bool
	FlowEvent() *domain.Event
	// SaveState records view state before the view state is left.
	SaveState()
	// UserEventState returns serializable state to restore after a redirect.
	UserEventState() any
}

// ViewFactory creates the view for the current request.
type ViewFactory interface {
	GetView(rc RequestContext) (View, error)
}

// ViewFactoryFunc adapts a function to ViewFactory.
type ViewFactoryFunc func(rc RequestContext) (View, error)

func (f ViewFactoryFunc) GetView(rc RequestContext) (View, error) { return f(rc) }
