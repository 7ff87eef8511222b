package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/binding/convert"
	"github.com/aretw0/webflow/pkg/binding/message"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/scope"
)

// Execution attributes consulted by the redirect policy.
const (
	AlwaysRedirectOnPauseAttribute = "alwaysRedirectOnPause"
	RedirectInSameStateAttribute   = "redirectInSameState"
)

// Flash attribute holding the messages of the previous request.
const MessagesMementoAttribute = "messagesMemento"

// Input attribute that starts a session in embedded mode when set to "embedded".
const (
	ModeInputAttribute = "mode"
	EmbeddedMode       = "embedded"
)

// FlowExecution is one conversation driven through a flow definition.
type FlowExecution struct {
	flow         *Flow
	sessions     []*FlowSession
	flash        *scope.AttributeMap
	conversation *scope.AttributeMap
	attributes   *scope.AttributeMap
	status       domain.ExecutionStatus
	key          domain.FlowExecutionKey
	outcome      *domain.Outcome

	keys       KeyFactory
	locator    FlowLocator
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	conversion convert.Service
}

// ExecutionOption configures a FlowExecution.
type ExecutionOption func(*FlowExecution)

// WithKeyFactory sets the factory issuing keys and managing snapshots.
func WithKeyFactory(k KeyFactory) ExecutionOption {
	return func(e *FlowExecution) { e.keys = k }
}

// WithFlowLocator sets the locator used to resolve subflows by id.
func WithFlowLocator(l FlowLocator) ExecutionOption {
	return func(e *FlowExecution) { e.locator = l }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) ExecutionOption {
	return func(e *FlowExecution) { e.hooks = h }
}

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) ExecutionOption {
	return func(e *FlowExecution) { e.logger = l }
}

// WithConversionService sets the conversion service exposed to actions and variables.
func WithConversionService(s convert.Service) ExecutionOption {
	return func(e *FlowExecution) { e.conversion = s }
}

// WithAttributes copies execution attributes such as AlwaysRedirectOnPauseAttribute.
func WithAttributes(attrs map[string]any) ExecutionOption {
	return func(e *FlowExecution) {
		for k, v := range attrs {
			e.attributes.Put(k, v)
		}
	}
}

// NewExecution creates a not yet started execution of flow.
func NewExecution(flow *Flow, opts ...ExecutionOption) *FlowExecution {
	e := &FlowExecution{
		flow:         flow,
		flash:        scope.New(),
		conversation: scope.New(),
		attributes:   scope.New(),
		status:       domain.StatusNotStarted,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.applyDefaults()
	return e
}

func (e *FlowExecution) applyDefaults() {
	if e.keys == nil {
		e.keys = newSequenceKeys()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.conversion == nil {
		e.conversion = convert.NewDefaultService()
	}
}

// Definition returns the root flow.
func (e *FlowExecution) Definition() *Flow { return e.flow }

func (e *FlowExecution) Status() domain.ExecutionStatus { return e.status }

// IsActive is true while the session stack is not empty.
func (e *FlowExecution) IsActive() bool { return len(e.sessions) > 0 }

// HasStarted reports whether Start was ever called.
func (e *FlowExecution) HasStarted() bool { return e.status != domain.StatusNotStarted }

// HasEnded reports whether the root session ended.
func (e *FlowExecution) HasEnded() bool { return e.status == domain.StatusEnded }

// Key is zero until a view state was entered.
func (e *FlowExecution) Key() domain.FlowExecutionKey { return e.key }

// Outcome is nil until the execution has ended.
func (e *FlowExecution) Outcome() *domain.Outcome { return e.outcome }

func (e *FlowExecution) FlashScope() *scope.AttributeMap        { return e.flash }
func (e *FlowExecution) ConversationScope() *scope.AttributeMap { return e.conversation }
func (e *FlowExecution) Attributes() *scope.AttributeMap        { return e.attributes }

// ActiveSession returns the session on top of the stack.
func (e *FlowExecution) ActiveSession() (*FlowSession, error) {
	if len(e.sessions) == 0 {
		return nil, fmt.Errorf("%w: execution of %s is not active", domain.ErrIllegalState, e.flow)
	}
	return e.sessions[len(e.sessions)-1], nil
}

// Sessions returns the session stack, root first.
func (e *FlowExecution) Sessions() []*FlowSession {
	return append([]*FlowSession(nil), e.sessions...)
}

// Start launches the execution with input, handling the first request through ext.
func (e *FlowExecution) Start(ctx context.Context, input *scope.AttributeMap, ext external.Context) error {
	if e.HasStarted() {
		return fmt.Errorf("start %s: %w: execution already started", e.flow, domain.ErrIllegalState)
	}
	rc := e.newRequest(ctx, ext)
	e.fireRequest(rc, domain.EventRequestSubmitted, e.hooks.OnRequestSubmitted)
	err := e.startSession(e.flow, input, rc)
	return e.finishRequest(rc, err)
}

// Resume continues a paused execution with the request carried by ext.
func (e *FlowExecution) Resume(ctx context.Context, ext external.Context) error {
	if !e.IsActive() {
		return fmt.Errorf("resume %s: %w: execution is not active", e.flow, domain.ErrIllegalState)
	}
	rc := e.newRequest(ctx, ext)
	e.fireRequest(rc, domain.EventRequestSubmitted, e.hooks.OnRequestSubmitted)
	e.fireRequest(rc, domain.EventResuming, e.hooks.OnResuming)
	err := e.resume(rc)
	return e.finishRequest(rc, err)
}

func (e *FlowExecution) resume(rc *RequestControlContext) error {
	for _, s := range e.sessions {
		if err := s.flow.restoreVariables(rc, s); err != nil {
			return err
		}
	}
	session, _ := e.ActiveSession()
	view, ok := session.State().(*ViewState)
	if !ok {
		return fmt.Errorf("%w: cannot resume %s outside a view state", domain.ErrIllegalState, session)
	}
	return view.Resume(rc)
}

func (e *FlowExecution) newRequest(ctx context.Context, ext external.Context) *RequestControlContext {
	rc := newRequestControlContext(ctx, e, ext)
	if raw, ok := e.flash.Lookup(MessagesMementoAttribute); ok {
		e.flash.Remove(MessagesMementoAttribute)
		var memento message.Memento
		if m, isMemento := raw.(message.Memento); isMemento {
			memento = m
		} else if m, err := convert.To[message.Memento](e.conversion, raw); err == nil {
			memento = m
		}
		rc.messages.Restore(memento)
	}
	return rc
}

func (e *FlowExecution) finishRequest(rc *RequestControlContext, err error) error {
	if err != nil {
		err = e.handleException(err, rc)
	}
	if e.IsActive() {
		if rc.messages.Len() > 0 {
			e.flash.Put(MessagesMementoAttribute, rc.messages.Memento())
		}
		e.fireRequest(rc, domain.EventPaused, e.hooks.OnPaused)
	}
	e.fireRequest(rc, domain.EventRequestProcessed, e.hooks.OnRequestProcessed)
	return err
}

// handleException gives the current state, then the active flow, a chance to recover.
func (e *FlowExecution) handleException(err error, rc *RequestControlContext) error {
	fe := e.wrap(err, rc)
	e.logger.Debug("flow execution error", "flow_id", fe.FlowID, "state_id", fe.StateID, "error", err)
	e.fireException(rc, fe)
	if !e.IsActive() {
		return fe
	}
	session, _ := e.ActiveSession()
	if state := session.State(); state != nil {
		handled, herr := state.ExceptionHandlers().handle(fe, rc)
		if handled {
			return e.wrapHandlerError(herr, rc)
		}
	}
	handled, herr := session.flow.handlers.handle(fe, rc)
	if handled {
		return e.wrapHandlerError(herr, rc)
	}
	return fe
}

func (e *FlowExecution) wrapHandlerError(err error, rc *RequestControlContext) error {
	if err == nil {
		return nil
	}
	return e.wrap(err, rc)
}

func (e *FlowExecution) wrap(err error, rc *RequestControlContext) *FlowExecutionError {
	var fe *FlowExecutionError
	if errors.As(err, &fe) {
		return fe
	}
	fe = &FlowExecutionError{FlowID: e.flow.ID(), Err: err}
	if f := rc.ActiveFlow(); f != nil {
		fe.FlowID = f.ID()
	}
	if s := rc.CurrentState(); s != nil {
		fe.StateID = s.ID()
	}
	return fe
}

func (e *FlowExecution) startSession(flow *Flow, input *scope.AttributeMap, rc *RequestControlContext) error {
	if input == nil {
		input = scope.New()
	}
	e.fireSession(rc, flow, domain.EventSessionStarting, e.hooks.OnSessionStarting, "", nil)
	var parent *FlowSession
	if len(e.sessions) > 0 {
		parent = e.sessions[len(e.sessions)-1]
	}
	session := newFlowSession(flow, parent)
	if input.GetString(ModeInputAttribute) == EmbeddedMode {
		session.embedded = true
	}
	e.sessions = append(e.sessions, session)
	if session.IsRoot() {
		e.status = domain.StatusActive
	}
	e.logger.Debug("starting flow session", "flow_id", flow.ID(), "depth", len(e.sessions))
	if err := flow.begin(rc, input); err != nil {
		return err
	}
	e.fireSession(rc, flow, domain.EventSessionStarted, e.hooks.OnSessionStarted, "", nil)
	return nil
}

func (e *FlowExecution) endActiveSession(outcome string, output *scope.AttributeMap, rc *RequestControlContext) error {
	session, err := e.ActiveSession()
	if err != nil {
		return err
	}
	if output == nil {
		output = scope.New()
	}
	e.fireSession(rc, session.flow, domain.EventSessionEnding, e.hooks.OnSessionEnding, outcome, output)
	if err := session.flow.finish(rc, outcome, output); err != nil {
		return err
	}
	e.sessions = e.sessions[:len(e.sessions)-1]
	ended := len(e.sessions) == 0
	if ended {
		e.status = domain.StatusEnded
		e.outcome = &domain.Outcome{ID: outcome, Output: output.AsMap()}
	}
	e.logger.Debug("flow session ended", "flow_id", session.flow.ID(), "outcome", outcome, "execution_ended", ended)
	e.fireSession(rc, session.flow, domain.EventSessionEnded, e.hooks.OnSessionEnded, outcome, output)
	if ended {
		return nil
	}

	parent, _ := e.ActiveSession()
	if err := parent.flow.restoreVariables(rc, parent); err != nil {
		return err
	}
	ev := domain.NewEvent(session.State().ID(), outcome)
	ev.Attributes = output.AsMap()
	_, err = rc.HandleEvent(ev)
	return err
}

func (e *FlowExecution) setCurrentState(state State, rc *RequestControlContext) error {
	session, err := e.ActiveSession()
	if err != nil {
		return err
	}
	previous := ""
	if session.state != nil {
		previous = session.state.ID()
	}
	e.fireState(rc, state, previous, domain.EventStateEntering, e.hooks.OnStateEntering)
	if err := session.setState(state); err != nil {
		return err
	}
	e.fireState(rc, state, previous, domain.EventStateEntered, e.hooks.OnStateEntered)
	return nil
}

func (e *FlowExecution) handleEvent(ev *domain.Event, rc *RequestControlContext) (bool, error) {
	session, err := e.ActiveSession()
	if err != nil {
		return false, err
	}
	e.logger.Debug("handling event", "flow_id", session.flow.ID(), "event", ev.ID)
	return session.flow.handleEvent(rc)
}

func (e *FlowExecution) execute(t *Transition, rc *RequestControlContext) (bool, error) {
	rc.transition = t
	from := ""
	if s := rc.CurrentState(); s != nil {
		from = s.ID()
	}
	if e.hooks.OnTransitionExecuting != nil {
		ev := &domain.TransitionEvent{EventBase: e.eventBase(domain.EventTransitionExecuting), FlowID: flowIDOf(rc), From: from}
		if rc.event != nil {
			ev.EventID = rc.event.ID
		}
		e.hooks.OnTransitionExecuting(rc.ctx, ev)
	}
	return t.Execute(rc.CurrentState(), rc)
}

func (e *FlowExecution) assignKey() (domain.FlowExecutionKey, error) {
	key, err := e.keys.GetKey(e)
	if err != nil {
		return domain.FlowExecutionKey{}, err
	}
	e.key = key
	return key, nil
}

// UpdateCurrentFlowExecutionSnapshot refreshes the snapshot of the current key.
func (e *FlowExecution) UpdateCurrentFlowExecutionSnapshot() error {
	return e.keys.UpdateSnapshot(e)
}

// RemoveCurrentFlowExecutionSnapshot removes the snapshot of the current key.
func (e *FlowExecution) RemoveCurrentFlowExecutionSnapshot() error {
	return e.keys.RemoveSnapshot(e)
}

// RemoveAllFlowExecutionSnapshots removes every snapshot of this execution.
func (e *FlowExecution) RemoveAllFlowExecutionSnapshots() error {
	return e.keys.RemoveAllSnapshots(e)
}

func (e *FlowExecution) locateFlow(id string) (*Flow, error) {
	if id == e.flow.ID() {
		return e.flow, nil
	}
	if e.locator == nil {
		return nil, fmt.Errorf("%w: %q (no flow locator configured)", domain.ErrFlowNotFound, id)
	}
	return e.locator.Flow(id)
}

func (e *FlowExecution) String() string {
	return fmt.Sprintf("execution[flow=%s, key=%s, status=%s]", e.flow.ID(), e.key, e.status)
}

func (e *FlowExecution) eventBase(t domain.EventType) domain.EventBase {
	b := domain.EventBase{Timestamp: time.Now(), Type: t}
	if !e.key.IsZero() {
		b.Key = e.key.String()
	}
	return b
}

func (e *FlowExecution) fireRequest(rc *RequestControlContext, t domain.EventType, hook func(context.Context, *domain.RequestEvent)) {
	if hook == nil {
		return
	}
	hook(rc.ctx, &domain.RequestEvent{EventBase: e.eventBase(t), FlowID: e.flow.ID(), Active: e.IsActive()})
}

func (e *FlowExecution) fireSession(rc *RequestControlContext, flow *Flow, t domain.EventType, hook func(context.Context, *domain.SessionEvent), outcome string, output *scope.AttributeMap) {
	if hook == nil {
		return
	}
	ev := &domain.SessionEvent{EventBase: e.eventBase(t), FlowID: flow.ID(), Depth: len(e.sessions), Outcome: outcome}
	if output != nil {
		ev.Output = output.AsMap()
	}
	hook(rc.ctx, ev)
}

func (e *FlowExecution) fireState(rc *RequestControlContext, state State, previous string, t domain.EventType, hook func(context.Context, *domain.StateEvent)) {
	if hook == nil {
		return
	}
	hook(rc.ctx, &domain.StateEvent{
		EventBase: e.eventBase(t),
		FlowID:    state.Flow().ID(),
		StateID:   state.ID(),
		StateType: string(state.Kind()),
		Previous:  previous,
	})
}

func (e *FlowExecution) fireView(rc *RequestControlContext, t domain.EventType, hook func(context.Context, *domain.ViewEvent)) {
	if hook == nil {
		return
	}
	hook(rc.ctx, &domain.ViewEvent{EventBase: e.eventBase(t), FlowID: flowIDOf(rc), StateID: stateIDOf(rc)})
}

func (e *FlowExecution) fireException(rc *RequestControlContext, fe *FlowExecutionError) {
	if e.hooks.OnException == nil {
		return
	}
	e.hooks.OnException(rc.ctx, &domain.ExceptionEvent{EventBase: e.eventBase(domain.EventException), FlowID: fe.FlowID, StateID: fe.StateID, Err: fe.Err})
}
