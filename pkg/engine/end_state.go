package engine

import (
	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/scope"
)

// EndState terminates the active flow session. Ending the root session ends the whole
// execution; ending a subflow session resumes the parent flow with the end state id
// as the outcome event.
type EndState struct {
	stateBase
	finalResponse Action
	outputMapper  mapping.Mapper
}

// NewEndState adds an end state to flow.
func NewEndState(flow *Flow, id string) (*EndState, error) {
	b, err := newStateBase(flow, id, KindEnd)
	if err != nil {
		return nil, err
	}
	s := &EndState{stateBase: b}
	flow.add(s)
	return s, nil
}

// SetFinalResponseAction sets the action producing the final response when the root
// session ends and nothing has answered the request yet.
func (s *EndState) SetFinalResponseAction(a Action) *EndState {
	s.finalResponse = a
	return s
}

func (s *EndState) FinalResponseAction() Action { return s.finalResponse }

// SetOutputMapper sets the mapper filling the session output from the request context.
func (s *EndState) SetOutputMapper(m mapping.Mapper) *EndState {
	s.outputMapper = m
	return s
}

func (s *EndState) OutputMapper() mapping.Mapper { return s.outputMapper }

func (s *EndState) Enter(rc *RequestControlContext) error {
	return s.enter(rc, s, nil, s.doEnter)
}

func (s *EndState) doEnter(rc *RequestControlContext) error {
	session, err := rc.FlowExecution().ActiveSession()
	if err != nil {
		return err
	}
	if session.IsRoot() && s.finalResponse != nil && !rc.ExternalContext().IsResponseComplete() {
		if _, err := s.finalResponse.Execute(rc); err != nil {
			return err
		}
		rc.ExternalContext().RecordResponseComplete()
	}
	output, err := s.createSessionOutput(rc)
	if err != nil {
		return err
	}
	return rc.EndActiveFlowSession(s.id, output)
}

func (s *EndState) createSessionOutput(rc RequestContext) (*scope.AttributeMap, error) {
	output := scope.New()
	if s.outputMapper == nil {
		return output, nil
	}
	results := s.outputMapper.Map(rc, output)
	if results.HasErrors() {
		return nil, &FlowOutputMappingError{FlowID: s.flow.ID(), StateID: s.id, Results: results}
	}
	return output, nil
}
