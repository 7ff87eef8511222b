package engine

import (
	"errors"
	"fmt"

	"github.com/aretw0/webflow/pkg/scope"
)

// StateKind names a state variant.
type StateKind string

const (
	KindView     StateKind = "view"
	KindAction   StateKind = "action"
	KindDecision StateKind = "decision"
	KindSubflow  StateKind = "subflow"
	KindEnd      StateKind = "end"
)

// State is a step in a flow. The set of implementations is closed to this package.
type State interface {
	ID() string
	Flow() *Flow
	Kind() StateKind
	IsViewState() bool
	EntryActions() *ActionList
	ExceptionHandlers() *ExceptionHandlerSet
	Attributes() *scope.AttributeMap
	// Enter makes the state current and runs its entry behavior.
	Enter(rc *RequestControlContext) error

	base() *stateBase
}

// TransitionableState is a state that can be left through a transition.
type TransitionableState interface {
	State
	Transitions() *TransitionSet
	ExitActions() *ActionList
	// Transition returns the first transition matching the current event, or nil.
	Transition(rc RequestContext) (*Transition, error)
	// HandleEvent executes the transition matching the current event.
	HandleEvent(rc *RequestControlContext) (bool, error)
	// Exit runs when a transition leaves the state.
	Exit(rc *RequestControlContext) error
}

type stateBase struct {
	id           string
	flow         *Flow
	kind         StateKind
	entryActions *ActionList
	handlers     *ExceptionHandlerSet
	attributes   *scope.AttributeMap
}

func newStateBase(flow *Flow, id string, kind StateKind) (stateBase, error) {
	if flow == nil {
		return stateBase{}, &DefinitionError{StateID: id, Reason: "state has no owning flow"}
	}
	if id == "" {
		return stateBase{}, &DefinitionError{FlowID: flow.ID(), Reason: "state id is required"}
	}
	if _, exists := flow.State(id); exists {
		return stateBase{}, &DefinitionError{FlowID: flow.ID(), StateID: id, Reason: "duplicate state id"}
	}
	return stateBase{
		id:           id,
		flow:         flow,
		kind:         kind,
		entryActions: NewActionList(),
		handlers:     &ExceptionHandlerSet{},
		attributes:   scope.New(),
	}, nil
}

func (s *stateBase) ID() string                              { return s.id }
func (s *stateBase) Flow() *Flow                             { return s.flow }
func (s *stateBase) Kind() StateKind                         { return s.kind }
func (s *stateBase) IsViewState() bool                       { return s.kind == KindView }
func (s *stateBase) EntryActions() *ActionList               { return s.entryActions }
func (s *stateBase) ExceptionHandlers() *ExceptionHandlerSet { return s.handlers }
func (s *stateBase) Attributes() *scope.AttributeMap         { return s.attributes }
func (s *stateBase) base() *stateBase                        { return s }

func (s *stateBase) String() string {
	return fmt.Sprintf("%s state %q of flow %q", s.kind, s.id, s.flow.ID())
}

// enter is the shared entry template: make self current, run pre-entry work, the entry
// actions and finally the variant's own behavior.
func (s *stateBase) enter(rc *RequestControlContext, self State, preEntry, doEnter func(*RequestControlContext) error) error {
	rc.Logger().Debug("entering state", "flow_id", s.flow.ID(), "state_id", s.id, "state_type", string(s.kind))
	if err := rc.SetCurrentState(self); err != nil {
		return err
	}
	if preEntry != nil {
		if err := preEntry(rc); err != nil {
			return err
		}
	}
	if err := s.entryActions.Execute(rc); err != nil {
		return err
	}
	return doEnter(rc)
}

type transitionableBase struct {
	stateBase
	transitions *TransitionSet
	exitActions *ActionList
}

func newTransitionableBase(flow *Flow, id string, kind StateKind) (transitionableBase, error) {
	b, err := newStateBase(flow, id, kind)
	if err != nil {
		return transitionableBase{}, err
	}
	return transitionableBase{
		stateBase:   b,
		transitions: &TransitionSet{},
		exitActions: NewActionList(),
	}, nil
}

func (s *transitionableBase) Transitions() *TransitionSet { return s.transitions }
func (s *transitionableBase) ExitActions() *ActionList    { return s.exitActions }

func (s *transitionableBase) Transition(rc RequestContext) (*Transition, error) {
	return s.transitions.Match(rc)
}

func (s *transitionableBase) requiredTransition(rc RequestContext) (*Transition, error) {
	t, err := s.Transition(rc)
	if err != nil {
		return nil, err
	}
	if t == nil {
		eventID := ""
		if ev := rc.CurrentEvent(); ev != nil {
			eventID = ev.ID
		}
		return nil, &NoMatchingTransitionError{FlowID: s.flow.ID(), StateID: s.id, EventID: eventID}
	}
	return t, nil
}

func (s *transitionableBase) HandleEvent(rc *RequestControlContext) (bool, error) {
	t, err := s.requiredTransition(rc)
	if err != nil {
		return false, err
	}
	return rc.Execute(t)
}

func (s *transitionableBase) Exit(rc *RequestControlContext) error {
	return s.exitActions.Execute(rc)
}

// noMatchFor reports whether err is the no-matching-transition failure of state s
// itself rather than of some state entered later in the same request.
func noMatchFor(err error, s State) bool {
	var nm *NoMatchingTransitionError
	return errors.As(err, &nm) && nm.StateID == s.ID() && nm.FlowID == s.Flow().ID()
}

// ActionState executes its actions in order; the first action whose event matches a
// transition moves the flow on.
type ActionState struct {
	transitionableBase
	actions *ActionList
}

// NewActionState adds an action state to flow.
func NewActionState(flow *Flow, id string, actions ...Action) (*ActionState, error) {
	b, err := newTransitionableBase(flow, id, KindAction)
	if err != nil {
		return nil, err
	}
	s := &ActionState{transitionableBase: b, actions: NewActionList(actions...)}
	flow.add(s)
	return s, nil
}

func (s *ActionState) Actions() *ActionList { return s.actions }

func (s *ActionState) Enter(rc *RequestControlContext) error {
	return s.enter(rc, s, nil, s.doEnter)
}

func (s *ActionState) doEnter(rc *RequestControlContext) error {
	if s.actions.Len() == 0 {
		return &DefinitionError{FlowID: s.flow.ID(), StateID: s.id, Reason: "action state has no actions to execute"}
	}
	var tried []string
	lastID := ""
	for _, a := range s.actions.All() {
		ev, err := a.Execute(rc)
		if err != nil {
			return err
		}
		if ev == nil {
			tried = append(tried, "")
			continue
		}
		tried = append(tried, ev.ID)
		lastID = ev.ID
		_, err = rc.HandleEvent(ev)
		if err == nil {
			return nil
		}
		if !noMatchFor(err, s) {
			return err
		}
		rc.Logger().Debug("action event matched no transition", "flow_id", s.flow.ID(), "state_id", s.id, "event", ev.ID)
	}
	return &NoMatchingTransitionError{FlowID: s.flow.ID(), StateID: s.id, EventID: lastID, Tried: tried}
}

// DecisionState routes immediately: the first transition whose criteria pass is taken.
type DecisionState struct {
	transitionableBase
}

// NewDecisionState adds a decision state to flow.
func NewDecisionState(flow *Flow, id string) (*DecisionState, error) {
	b, err := newTransitionableBase(flow, id, KindDecision)
	if err != nil {
		return nil, err
	}
	s := &DecisionState{transitionableBase: b}
	flow.add(s)
	return s, nil
}

// AddIf appends an if/then[/else] rule. An empty elseStateID adds no else branch.
func (s *DecisionState) AddIf(test TransitionCriteria, thenStateID, elseStateID string) *DecisionState {
	s.transitions.Add(NewTransition(Matching(test), To(thenStateID)))
	if elseStateID != "" {
		s.transitions.Add(NewTransition(Matching(EventIDCriteria(Wildcard)), To(elseStateID)))
	}
	return s
}

func (s *DecisionState) Enter(rc *RequestControlContext) error {
	return s.enter(rc, s, nil, s.doEnter)
}

func (s *DecisionState) doEnter(rc *RequestControlContext) error {
	t, err := s.requiredTransition(rc)
	if err != nil {
		return err
	}
	_, err = rc.Execute(t)
	return err
}
