package engine

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/scope"
)

// Snapshot captures the execution as plain data. Flows and states are referenced by id,
// scopes are encoded as typed JSON so values restore with their Go types (see
// scope.Register).
func (e *FlowExecution) Snapshot() (*domain.ExecutionSnapshot, error) {
	snap := &domain.ExecutionSnapshot{
		FlowID:   e.flow.ID(),
		Status:   e.status,
		Sessions: make([]domain.SessionSnapshot, 0, len(e.sessions)),
	}
	if !e.key.IsZero() {
		snap.Key = e.key.String()
	}
	var err error
	if snap.Flash, err = encodeScope(e.flash); err != nil {
		return nil, fmt.Errorf("encode flash scope: %w", err)
	}
	if snap.Conversation, err = encodeScope(e.conversation); err != nil {
		return nil, fmt.Errorf("encode conversation scope: %w", err)
	}
	if snap.Attributes, err = encodeScope(e.attributes); err != nil {
		return nil, fmt.Errorf("encode execution attributes: %w", err)
	}
	for _, s := range e.sessions {
		ss := domain.SessionSnapshot{FlowID: s.flow.ID(), Embedded: s.embedded}
		if s.state != nil {
			ss.StateID = s.state.ID()
		}
		if ss.Scope, err = encodeScope(s.scope); err != nil {
			return nil, fmt.Errorf("encode flow scope of %s: %w", s, err)
		}
		if s.viewScope != nil {
			if ss.ViewScope, err = encodeScope(s.viewScope); err != nil {
				return nil, fmt.Errorf("encode view scope of %s: %w", s, err)
			}
		}
		snap.Sessions = append(snap.Sessions, ss)
	}
	return snap, nil
}

// Restore rebuilds an execution from a snapshot. Flow definitions are resolved through
// locator; opts configure the restored execution as they would a new one. Variable
// references are restored lazily, at the start of the next request.
func Restore(snap *domain.ExecutionSnapshot, locator FlowLocator, opts ...ExecutionOption) (*FlowExecution, error) {
	if locator == nil {
		return nil, fmt.Errorf("%w: restoring an execution requires a flow locator", domain.ErrIllegalState)
	}
	root, err := locator.Flow(snap.FlowID)
	if err != nil {
		return nil, err
	}
	e := NewExecution(root, append([]ExecutionOption{WithFlowLocator(locator)}, opts...)...)
	e.status = snap.Status
	if snap.Key != "" {
		if e.key, err = domain.ParseKey(snap.Key); err != nil {
			return nil, err
		}
	}
	if err := decodeScope(snap.Flash, e.flash); err != nil {
		return nil, fmt.Errorf("decode flash scope: %w", err)
	}
	if err := decodeScope(snap.Conversation, e.conversation); err != nil {
		return nil, fmt.Errorf("decode conversation scope: %w", err)
	}
	if err := decodeScope(snap.Attributes, e.attributes); err != nil {
		return nil, fmt.Errorf("decode execution attributes: %w", err)
	}

	var parent *FlowSession
	for i, ss := range snap.Sessions {
		flow := root
		if i > 0 || ss.FlowID != root.ID() {
			if flow, err = e.locateFlow(ss.FlowID); err != nil {
				return nil, err
			}
		}
		session := newFlowSession(flow, parent)
		session.embedded = ss.Embedded
		if ss.StateID != "" {
			state, ok := flow.State(ss.StateID)
			if !ok {
				return nil, &DefinitionError{FlowID: flow.ID(), StateID: ss.StateID, Reason: "snapshot references unknown state"}
			}
			session.state = state
		}
		if err := decodeScope(ss.Scope, session.scope); err != nil {
			return nil, fmt.Errorf("decode flow scope of %s: %w", session, err)
		}
		if len(ss.ViewScope) > 0 {
			session.viewScope = scope.New()
			if err := decodeScope(ss.ViewScope, session.viewScope); err != nil {
				return nil, fmt.Errorf("decode view scope of %s: %w", session, err)
			}
		} else if session.state != nil && session.state.IsViewState() {
			session.viewScope = scope.New()
		}
		e.sessions = append(e.sessions, session)
		parent = session
	}
	return e, nil
}

func encodeScope(m *scope.AttributeMap) (json.RawMessage, error) {
	if m == nil || m.IsEmpty() {
		return nil, nil
	}
	return m.MarshalTyped()
}

func decodeScope(raw json.RawMessage, into *scope.AttributeMap) error {
	if len(raw) == 0 {
		return nil
	}
	return into.UnmarshalTyped(raw)
}
