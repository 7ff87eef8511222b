package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/scope"
)

// FlowLocator resolves flow definitions by id. Executions hold flows only by id in
// their snapshots and use a locator to get them back.
type FlowLocator interface {
	Flow(id string) (*Flow, error)
}

// Flow is a flow definition. Build it fully before executing it; flows are shared by
// every execution and must not change afterwards.
type Flow struct {
	id           string
	states       []State
	byID         map[string]State
	start        State
	globals      *TransitionSet
	variables    []*FlowVariable
	inputMapper  mapping.Mapper
	outputMapper mapping.Mapper
	startActions *ActionList
	endActions   *ActionList
	handlers     *ExceptionHandlerSet
	attributes   *scope.AttributeMap
}

// NewFlow creates an empty flow definition.
func NewFlow(id string) *Flow {
	return &Flow{
		id:           id,
		byID:         make(map[string]State),
		globals:      &TransitionSet{},
		startActions: NewActionList(),
		endActions:   NewActionList(),
		handlers:     &ExceptionHandlerSet{},
		attributes:   scope.New(),
	}
}

func (f *Flow) ID() string { return f.id }

func (f *Flow) add(s State) {
	f.states = append(f.states, s)
	f.byID[s.ID()] = s
	if f.start == nil {
		f.start = s
	}
}

// State returns the state with the given id.
func (f *Flow) State(id string) (State, bool) {
	s, ok := f.byID[id]
	return s, ok
}

// States returns every state in definition order.
func (f *Flow) States() []State {
	return append([]State(nil), f.states...)
}

// StartState defaults to the first state added.
func (f *Flow) StartState() State { return f.start }

func (f *Flow) SetStartState(id string) error {
	s, ok := f.State(id)
	if !ok {
		return &DefinitionError{FlowID: f.id, StateID: id, Reason: "start state does not exist"}
	}
	f.start = s
	return nil
}

// GlobalTransitions are consulted when the current state has no matching transition.
func (f *Flow) GlobalTransitions() *TransitionSet { return f.globals }

func (f *Flow) AddVariable(v ...*FlowVariable) *Flow {
	f.variables = append(f.variables, v...)
	return f
}

func (f *Flow) Variables() []*FlowVariable {
	return append([]*FlowVariable(nil), f.variables...)
}

// SetInputMapper sets the mapper from the session input to the request context.
func (f *Flow) SetInputMapper(m mapping.Mapper) *Flow {
	f.inputMapper = m
	return f
}

// SetOutputMapper sets the mapper from the request context to the session output.
func (f *Flow) SetOutputMapper(m mapping.Mapper) *Flow {
	f.outputMapper = m
	return f
}

func (f *Flow) InputMapper() mapping.Mapper             { return f.inputMapper }
func (f *Flow) OutputMapper() mapping.Mapper            { return f.outputMapper }
func (f *Flow) StartActions() *ActionList               { return f.startActions }
func (f *Flow) EndActions() *ActionList                 { return f.endActions }
func (f *Flow) ExceptionHandlers() *ExceptionHandlerSet { return f.handlers }
func (f *Flow) Attributes() *scope.AttributeMap         { return f.attributes }
func (f *Flow) String() string                          { return fmt.Sprintf("flow %q", f.id) }

// Validate checks that the flow can start and that every statically known transition
// target exists.
func (f *Flow) Validate() error {
	if f.start == nil {
		return &DefinitionError{FlowID: f.id, Reason: "flow has no states"}
	}
	check := func(stateID string, ts *TransitionSet) error {
		for _, t := range ts.All() {
			if target := t.TargetStateID(); target != "" {
				if _, ok := f.State(target); !ok {
					return &DefinitionError{FlowID: f.id, StateID: stateID, Reason: fmt.Sprintf("transition targets unknown state %q", target)}
				}
			}
		}
		return nil
	}
	for _, s := range f.states {
		if ts, ok := s.(TransitionableState); ok {
			if err := check(s.ID(), ts.Transitions()); err != nil {
				return err
			}
		}
		if a, ok := s.(*ActionState); ok && a.Actions().Len() == 0 {
			return &DefinitionError{FlowID: f.id, StateID: s.ID(), Reason: "action state has no actions"}
		}
	}
	for _, h := range f.handlers.handlers {
		if th, ok := h.(*TransitionExecutingExceptionHandler); ok {
			if _, exists := f.State(th.TargetStateID()); !exists {
				return &DefinitionError{FlowID: f.id, Reason: fmt.Sprintf("exception handler targets unknown state %q", th.TargetStateID())}
			}
		}
	}
	return check("", f.globals)
}

func (f *Flow) begin(rc *RequestControlContext, input *scope.AttributeMap) error {
	if f.start == nil {
		return &DefinitionError{FlowID: f.id, Reason: "flow has no start state"}
	}
	if err := f.createVariables(rc); err != nil {
		return err
	}
	if f.inputMapper != nil {
		results := f.inputMapper.Map(input, rc)
		if results.HasErrors() {
			return &FlowInputMappingError{FlowID: f.id, Results: results}
		}
	}
	if err := f.startActions.Execute(rc); err != nil {
		return err
	}
	return f.start.Enter(rc)
}

func (f *Flow) finish(rc *RequestControlContext, outcome string, output *scope.AttributeMap) error {
	if err := f.endActions.Execute(rc); err != nil {
		return err
	}
	if f.outputMapper != nil {
		results := f.outputMapper.Map(rc, output)
		if results.HasErrors() {
			return &FlowOutputMappingError{FlowID: f.id, StateID: outcome, Results: results}
		}
	}
	return nil
}

// handleEvent lets the current state handle the current event, falling back to the
// global transitions when the state has no match of its own.
func (f *Flow) handleEvent(rc *RequestControlContext) (bool, error) {
	state, ok := rc.CurrentState().(TransitionableState)
	if !ok {
		return false, fmt.Errorf("%w: current state of %s cannot handle events", domain.ErrIllegalState, f)
	}
	handled, err := state.HandleEvent(rc)
	if err == nil || !noMatchFor(err, state) {
		return handled, err
	}
	t, terr := f.globals.Match(rc)
	if terr != nil {
		return false, terr
	}
	if t == nil {
		return false, err
	}
	return rc.Execute(t)
}

func (f *Flow) createVariables(rc *RequestControlContext) error {
	for _, v := range f.variables {
		if err := v.create(rc.FlowScope(), rc); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flow) restoreVariables(rc *RequestControlContext, session *FlowSession) error {
	for _, v := range f.variables {
		if err := v.restore(session.Scope(), rc); err != nil {
			return err
		}
	}
	return nil
}
