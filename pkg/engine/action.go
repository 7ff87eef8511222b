package engine

import (
	"github.com/aretw0/webflow/pkg/domain"
)

// Action is a unit of behavior executed by a flow. The returned event, if any, is
// matched against transitions by action states; elsewhere it is ignored.
type Action interface {
	Execute(rc RequestContext) (*domain.Event, error)
}

// ActionFunc adapts a function to Action.
type ActionFunc func(rc RequestContext) (*domain.Event, error)

func (f ActionFunc) Execute(rc RequestContext) (*domain.Event, error) { return f(rc) }

// ActionList is an ordered list of actions.
type ActionList struct {
	actions []Action
}

// NewActionList creates a list holding actions.
func NewActionList(actions ...Action) *ActionList {
	l := &ActionList{}
	l.Add(actions...)
	return l
}

// Add appends actions, skipping nils.
func (l *ActionList) Add(actions ...Action) *ActionList {
	for _, a := range actions {
		if a != nil {
			l.actions = append(l.actions, a)
		}
	}
	return l
}

func (l *ActionList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.actions)
}

// All returns the actions in order.
func (l *ActionList) All() []Action {
	if l == nil {
		return nil
	}
	return append([]Action(nil), l.actions...)
}

// Execute runs every action in order, stopping at the first error.
func (l *ActionList) Execute(rc RequestContext) error {
	for _, a := range l.All() {
		if _, err := a.Execute(rc); err != nil {
			return err
		}
	}
	return nil
}

// Success builds the standard success event.
func Success(source string) *domain.Event {
	return domain.NewEvent(source, domain.EventSuccess)
}

// Error builds the standard error event.
func Error(source string, err error) *domain.Event {
	ev := domain.NewEvent(source, domain.EventError)
	if err != nil {
		ev.WithAttribute("exception", err.Error())
	}
	return ev
}

// IsSuccess reports whether ev counts as a successful action result. A nil event is
// a success: actions that return nothing have nothing to object to.
func IsSuccess(ev *domain.Event) bool {
	if ev == nil {
		return true
	}
	switch ev.ID {
	case domain.EventSuccess, domain.EventYes, "true":
		return true
	}
	return false
}
