package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/scope"
)

// FlowSession is one activation of a flow on an execution's session stack.
type FlowSession struct {
	flow      *Flow
	state     State
	scope     *scope.AttributeMap
	viewScope *scope.AttributeMap
	parent    *FlowSession
	embedded  bool
}

func newFlowSession(flow *Flow, parent *FlowSession) *FlowSession {
	return &FlowSession{flow: flow, scope: scope.New(), parent: parent}
}

func (s *FlowSession) Definition() *Flow { return s.flow }

// State is the current state, nil until the session's start state is entered.
func (s *FlowSession) State() State { return s.state }

// Scope is the flow scope of this session.
func (s *FlowSession) Scope() *scope.AttributeMap { return s.scope }

// ViewScope exists only while the current state is a view state.
func (s *FlowSession) ViewScope() (*scope.AttributeMap, error) {
	if s.viewScope == nil {
		return nil, fmt.Errorf("%w: view scope of %s is only available in a view state", domain.ErrIllegalState, s.flow)
	}
	return s.viewScope, nil
}

func (s *FlowSession) Parent() *FlowSession { return s.parent }

func (s *FlowSession) IsRoot() bool { return s.parent == nil }

// IsEmbeddedMode reports whether the flow runs embedded in a page, in which case
// partial update requests render without redirecting.
func (s *FlowSession) IsEmbeddedMode() bool { return s.embedded }

func (s *FlowSession) setState(state State) error {
	if state.Flow() != s.flow {
		return fmt.Errorf("%w: state %q belongs to %s, not to the active %s", domain.ErrIllegalState, state.ID(), state.Flow(), s.flow)
	}
	if s.state != nil && s.state.IsViewState() {
		s.viewScope = nil
	}
	s.state = state
	if state.IsViewState() {
		s.viewScope = scope.New()
	}
	return nil
}

func (s *FlowSession) String() string {
	stateID := ""
	if s.state != nil {
		stateID = s.state.ID()
	}
	return fmt.Sprintf("session[flow=%s, state=%s]", s.flow.ID(), stateID)
}
