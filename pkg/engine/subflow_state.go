package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/scope"
)

// SubflowAttributeMapper moves data between a parent flow and a subflow.
type SubflowAttributeMapper interface {
	CreateSubflowInput(rc RequestContext) (*scope.AttributeMap, error)
	MapSubflowOutput(output *scope.AttributeMap, rc RequestContext) error
}

// GenericSubflowAttributeMapper applies an input mapper from the parent request context
// to the subflow input, and an output mapper from the subflow output back to it.
// Either mapper may be nil.
type GenericSubflowAttributeMapper struct {
	Input  mapping.Mapper
	Output mapping.Mapper
}

func (m GenericSubflowAttributeMapper) CreateSubflowInput(rc RequestContext) (*scope.AttributeMap, error) {
	input := scope.New()
	if m.Input == nil {
		return input, nil
	}
	results := m.Input.Map(rc, input)
	if results.HasErrors() {
		return nil, &FlowInputMappingError{FlowID: flowIDOf(rc), StateID: stateIDOf(rc), Results: results}
	}
	return input, nil
}

func (m GenericSubflowAttributeMapper) MapSubflowOutput(output *scope.AttributeMap, rc RequestContext) error {
	if m.Output == nil {
		return nil
	}
	results := m.Output.Map(output, rc)
	if results.HasErrors() {
		return &FlowOutputMappingError{FlowID: flowIDOf(rc), StateID: stateIDOf(rc), Results: results}
	}
	return nil
}

// SubflowState spawns a child flow session. When the child ends, its outcome is
// handled as an event by this state.
type SubflowState struct {
	transitionableBase
	subflow expression.Expression
	mapper  SubflowAttributeMapper
}

// NewSubflowState adds a subflow state to flow. subflow evaluates to a *Flow or to the
// id of a flow known to the execution's flow locator.
func NewSubflowState(flow *Flow, id string, subflow expression.Expression) (*SubflowState, error) {
	b, err := newTransitionableBase(flow, id, KindSubflow)
	if err != nil {
		return nil, err
	}
	if subflow == nil {
		return nil, &DefinitionError{FlowID: flow.ID(), StateID: id, Reason: "subflow expression is required"}
	}
	s := &SubflowState{transitionableBase: b, subflow: subflow}
	flow.add(s)
	return s, nil
}

// Subflow returns the expression resolving the child flow.
func (s *SubflowState) Subflow() expression.Expression { return s.subflow }

func (s *SubflowState) SetAttributeMapper(m SubflowAttributeMapper) *SubflowState {
	s.mapper = m
	return s
}

func (s *SubflowState) AttributeMapper() SubflowAttributeMapper { return s.mapper }

func (s *SubflowState) Enter(rc *RequestControlContext) error {
	return s.enter(rc, s, nil, s.doEnter)
}

func (s *SubflowState) doEnter(rc *RequestControlContext) error {
	subflow, err := s.resolveSubflow(rc)
	if err != nil {
		return err
	}
	input := scope.New()
	if s.mapper != nil {
		input, err = s.mapper.CreateSubflowInput(rc)
		if err != nil {
			return err
		}
	}
	return rc.Start(subflow, input)
}

// HandleEvent maps the subflow output carried by the current event before looking up
// the transition for the subflow outcome.
func (s *SubflowState) HandleEvent(rc *RequestControlContext) (bool, error) {
	if s.mapper != nil {
		output := scope.New()
		if ev := rc.CurrentEvent(); ev != nil {
			for k, v := range ev.Attributes {
				output.Put(k, v)
			}
		}
		if err := s.mapper.MapSubflowOutput(output, rc); err != nil {
			return false, err
		}
	}
	return s.transitionableBase.HandleEvent(rc)
}

func (s *SubflowState) resolveSubflow(rc *RequestControlContext) (*Flow, error) {
	v, err := s.subflow.GetValue(rc)
	if err != nil {
		return nil, err
	}
	switch f := v.(type) {
	case *Flow:
		return f, nil
	case string:
		return rc.FlowExecution().locateFlow(f)
	}
	return nil, fmt.Errorf("subflow expression %q of state %q returned %T, not a flow", s.subflow, s.id, v)
}

func flowIDOf(rc RequestContext) string {
	if f := rc.ActiveFlow(); f != nil {
		return f.ID()
	}
	return ""
}

func stateIDOf(rc RequestContext) string {
	if s := rc.CurrentState(); s != nil {
		return s.ID()
	}
	return ""
}
