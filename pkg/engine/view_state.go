package engine

import (
	"github.com/aretw0/webflow/pkg/domain"
)

// ViewState pauses the execution to render a view and waits for a user event.
type ViewState struct {
	transitionableBase
	factory       ViewFactory
	variables     []*ViewVariable
	redirect      *bool
	popup         bool
	renderActions *ActionList
}

// NewViewState adds a view state to flow. factory is required.
func NewViewState(flow *Flow, id string, factory ViewFactory) (*ViewState, error) {
	b, err := newTransitionableBase(flow, id, KindView)
	if err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, &DefinitionError{FlowID: flow.ID(), StateID: id, Reason: "view factory is required"}
	}
	s := &ViewState{transitionableBase: b, factory: factory, renderActions: NewActionList()}
	flow.add(s)
	return s, nil
}

func (s *ViewState) ViewFactory() ViewFactory { return s.factory }

// SetRedirect forces (true) or suppresses (false) a redirect before rendering,
// overriding the execution's redirect policy.
func (s *ViewState) SetRedirect(redirect bool) *ViewState {
	s.redirect = &redirect
	return s
}

// Redirect returns the explicit redirect setting and whether one was made.
func (s *ViewState) Redirect() (redirect bool, set bool) {
	if s.redirect == nil {
		return false, false
	}
	return *s.redirect, true
}

// SetPopup requests the view to be shown in a popup window.
func (s *ViewState) SetPopup(popup bool) *ViewState {
	s.popup = popup
	return s
}

func (s *ViewState) Popup() bool { return s.popup }

// RenderActions run before every render.
func (s *ViewState) RenderActions() *ActionList { return s.renderActions }

func (s *ViewState) AddVariable(v ...*ViewVariable) *ViewState {
	s.variables = append(s.variables, v...)
	return s
}

func (s *ViewState) Variable(name string) (*ViewVariable, bool) {
	for _, v := range s.variables {
		if v.Name() == name {
			return v, true
		}
	}
	return nil, false
}

func (s *ViewState) Variables() []*ViewVariable {
	return append([]*ViewVariable(nil), s.variables...)
}

func (s *ViewState) Enter(rc *RequestControlContext) error {
	return s.enter(rc, s, s.createVariables, s.doEnter)
}

func (s *ViewState) doEnter(rc *RequestControlContext) error {
	if _, err := rc.AssignFlowExecutionKey(); err != nil {
		return err
	}
	ext := rc.ExternalContext()
	if ext.IsResponseComplete() {
		if !ext.IsResponseCompleteFlowExecutionRedirect() {
			clearFlash(rc)
		}
		return nil
	}
	if s.shouldRedirect(rc) {
		if err := ext.RequestFlowExecutionRedirect(); err != nil {
			return err
		}
		if s.popup {
			return ext.RequestRedirectInPopup()
		}
		return nil
	}
	view, err := s.factory.GetView(rc)
	if err != nil {
		return err
	}
	rc.SetCurrentView(view)
	return s.render(rc, view)
}

// Resume continues a paused view state with the current request.
func (s *ViewState) Resume(rc *RequestControlContext) error {
	if err := s.restoreVariables(rc); err != nil {
		return err
	}
	view, err := s.factory.GetView(rc)
	if err != nil {
		return err
	}
	rc.SetCurrentView(view)

	if !view.UserEventQueued() {
		return s.refresh(rc, view)
	}

	exited, err := s.handleUserEvent(rc, view)
	if err != nil || exited {
		return err
	}

	ext := rc.ExternalContext()
	switch {
	case ext.IsResponseComplete():
		if ext.IsResponseCompleteFlowExecutionRedirect() {
			rc.FlashScope().Put(UserEventStateAttribute, view.UserEventState())
		} else {
			clearFlash(rc)
		}
	case ext.IsAjaxRequest():
		return s.render(rc, view)
	case s.shouldRedirectInSameState(rc):
		rc.FlashScope().Put(UserEventStateAttribute, view.UserEventState())
		return ext.RequestFlowExecutionRedirect()
	case ext.IsResponseAllowed():
		return s.render(rc, view)
	}
	return nil
}

// Exit runs the exit actions, applies the history policy of the transition being
// taken and destroys the view variables.
func (s *ViewState) Exit(rc *RequestControlContext) error {
	if err := s.transitionableBase.Exit(rc); err != nil {
		return err
	}
	if err := s.updateHistory(rc); err != nil {
		return err
	}
	s.destroyVariables(rc)
	rc.SetCurrentView(nil)
	return nil
}

func (s *ViewState) handleUserEvent(rc *RequestControlContext, view View) (bool, error) {
	if err := view.ProcessUserEvent(); err != nil {
		return false, err
	}
	if !view.HasFlowEvent() {
		return false, nil
	}
	ev := view.FlowEvent()
	rc.Logger().Debug("event returned from view", "flow_id", s.flow.ID(), "state_id", s.id, "event", ev.ID)
	return rc.HandleEvent(ev)
}

func (s *ViewState) refresh(rc *RequestControlContext, view View) error {
	if rc.ExternalContext().IsResponseComplete() {
		clearFlash(rc)
		return nil
	}
	return s.render(rc, view)
}

// shouldRedirect decides whether entering the state redirects before rendering.
// An explicit setting wins; an ajax request in embedded mode never redirects.
func (s *ViewState) shouldRedirect(rc *RequestControlContext) bool {
	if s.redirect != nil {
		return *s.redirect
	}
	if rc.ExternalContext().IsAjaxRequest() && rc.EmbeddedMode() {
		return false
	}
	return rc.RedirectOnPause()
}

func (s *ViewState) shouldRedirectInSameState(rc *RequestControlContext) bool {
	if s.redirect != nil {
		return *s.redirect
	}
	if rc.ExternalContext().IsAjaxRequest() && rc.EmbeddedMode() {
		return false
	}
	return rc.RedirectInSameState()
}

func (s *ViewState) render(rc *RequestControlContext, view View) error {
	rc.Logger().Debug("rendering view", "flow_id", s.flow.ID(), "state_id", s.id,
		"flash", rc.FlashScope().String(), "messages", rc.MessageContext().Len())
	rc.viewRendering(view)
	if err := s.renderActions.Execute(rc); err != nil {
		return err
	}
	if err := view.Render(); err != nil {
		return &ViewRenderingError{FlowID: s.flow.ID(), StateID: s.id, Err: err}
	}
	clearFlash(rc)
	rc.ExternalContext().RecordResponseComplete()
	rc.viewRendered(view)
	return nil
}

func (s *ViewState) updateHistory(rc *RequestControlContext) error {
	history := domain.HistoryPreserve
	if t := rc.CurrentTransition(); t != nil {
		history = t.History()
	}
	switch history {
	case domain.HistoryDiscard:
		return rc.RemoveCurrentFlowExecutionSnapshot()
	case domain.HistoryInvalidate:
		return rc.RemoveAllFlowExecutionSnapshots()
	default:
		if view := rc.CurrentView(); view != nil && s.shouldRedirect(rc) {
			view.SaveState()
		}
		return rc.UpdateCurrentFlowExecutionSnapshot()
	}
}

func (s *ViewState) createVariables(rc *RequestControlContext) error {
	viewScope, err := rc.ViewScope()
	if err != nil {
		return err
	}
	for _, v := range s.variables {
		rc.Logger().Debug("creating view variable", "state_id", s.id, "name", v.Name())
		if err := v.create(viewScope, rc); err != nil {
			return err
		}
	}
	return nil
}

func (s *ViewState) restoreVariables(rc *RequestControlContext) error {
	viewScope, err := rc.ViewScope()
	if err != nil {
		return err
	}
	for _, v := range s.variables {
		if err := v.restore(viewScope, rc); err != nil {
			return err
		}
	}
	return nil
}

func (s *ViewState) destroyVariables(rc *RequestControlContext) {
	viewScope, err := rc.ViewScope()
	if err != nil {
		return
	}
	for _, v := range s.variables {
		viewScope.Remove(v.Name())
	}
}

func clearFlash(rc RequestContext) {
	rc.FlashScope().Clear()
	rc.MessageContext().Clear()
}
