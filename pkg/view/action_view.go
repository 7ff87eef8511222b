package view

import (
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// ActionExecutingViewFactory creates views that render by executing an action.
type ActionExecutingViewFactory struct {
	Action engine.Action
}

func NewActionExecutingViewFactory(a engine.Action) *ActionExecutingViewFactory {
	return &ActionExecutingViewFactory{Action: a}
}

func (f *ActionExecutingViewFactory) GetView(rc engine.RequestContext) (engine.View, error) {
	return &actionExecutingView{action: f.Action, rc: rc}, nil
}

type actionExecutingView struct {
	action    engine.Action
	rc        engine.RequestContext
	eventID   *string
	processed bool
}

func (v *actionExecutingView) Render() error {
	if v.action == nil {
		return nil
	}
	_, err := v.action.Execute(v.rc)
	return err
}

func (v *actionExecutingView) UserEventQueued() bool { return v.event() != "" }

func (v *actionExecutingView) ProcessUserEvent() error {
	v.processed = true
	return nil
}

func (v *actionExecutingView) HasFlowEvent() bool { return v.processed && v.event() != "" }

func (v *actionExecutingView) FlowEvent() *domain.Event {
	if !v.HasFlowEvent() {
		return nil
	}
	return domain.NewEvent("view", v.event())
}

func (v *actionExecutingView) SaveState() {}

func (v *actionExecutingView) UserEventState() any { return nil }

func (v *actionExecutingView) event() string {
	if v.eventID == nil {
		id := FindEventID(v.rc.RequestParameters())
		v.eventID = &id
	}
	return *v.eventID
}
