package engine

import (
	"context"
	"log/slog"

	"github.com/aretw0/webflow/pkg/binding/convert"
	"github.com/aretw0/webflow/pkg/binding/message"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/scope"
)

// Names under which expressions address the request context.
const (
	VarRequestScope      = "requestScope"
	VarFlashScope        = "flashScope"
	VarViewScope         = "viewScope"
	VarFlowScope         = "flowScope"
	VarConversationScope = "conversationScope"
	VarRequestParameters = "requestParameters"
	VarCurrentEvent      = "currentEvent"
	VarMessageContext    = "messageContext"
	VarExternalContext   = "externalContext"
	VarFlowExecutionURL  = "flowExecutionUrl"
	VarFlowRequestCtx    = "flowRequestContext"
)

// RequestContext is what actions, views and expressions see of a request.
type RequestContext interface {
	Context() context.Context
	// ActiveFlow is nil once the execution has ended.
	ActiveFlow() *Flow
	CurrentState() State
	CurrentEvent() *domain.Event
	CurrentTransition() *Transition
	CurrentView() View
	InViewState() bool

	RequestScope() *scope.AttributeMap
	FlashScope() *scope.AttributeMap
	// ViewScope fails with domain.ErrIllegalState outside a view state.
	ViewScope() (*scope.AttributeMap, error)
	// FlowScope is nil once the execution has ended.
	FlowScope() *scope.AttributeMap
	ConversationScope() *scope.AttributeMap

	RequestParameters() *external.ParameterMap
	ExternalContext() external.Context
	MessageContext() *message.Context
	// Attributes are request attributes that are not part of any scope.
	Attributes() *scope.AttributeMap
	FlowExecution() *FlowExecution
	// FlowExecutionURL is "" until a key has been assigned.
	FlowExecutionURL() string
	ConversionService() convert.Service
	Logger() *slog.Logger

	ResolveVariable(name string) (any, bool)
	SetVariable(name string, value any) error
	AsMap() map[string]any
}

// RequestControlContext is the per-request facade states use to drive the execution.
// It lives for exactly one request and is never shared.
type RequestControlContext struct {
	ctx        context.Context
	execution  *FlowExecution
	external   external.Context
	messages   *message.Context
	request    *scope.AttributeMap
	attributes *scope.AttributeMap
	event      *domain.Event
	transition *Transition
	view       View
}

var _ RequestContext = (*RequestControlContext)(nil)

func newRequestControlContext(ctx context.Context, e *FlowExecution, ext external.Context) *RequestControlContext {
	return &RequestControlContext{
		ctx:        ctx,
		execution:  e,
		external:   ext,
		messages:   message.NewContext(),
		request:    scope.New(),
		attributes: scope.New(),
	}
}

func (rc *RequestControlContext) Context() context.Context { return rc.ctx }

func (rc *RequestControlContext) ActiveFlow() *Flow {
	if s, err := rc.execution.ActiveSession(); err == nil {
		return s.Definition()
	}
	return nil
}

func (rc *RequestControlContext) CurrentState() State {
	if s, err := rc.execution.ActiveSession(); err == nil {
		return s.State()
	}
	return nil
}

func (rc *RequestControlContext) CurrentEvent() *domain.Event       { return rc.event }
func (rc *RequestControlContext) CurrentTransition() *Transition    { return rc.transition }
func (rc *RequestControlContext) CurrentView() View                 { return rc.view }
func (rc *RequestControlContext) RequestScope() *scope.AttributeMap { return rc.request }
func (rc *RequestControlContext) FlashScope() *scope.AttributeMap   { return rc.execution.flash }
func (rc *RequestControlContext) Attributes() *scope.AttributeMap   { return rc.attributes }
func (rc *RequestControlContext) ExternalContext() external.Context { return rc.external }
func (rc *RequestControlContext) MessageContext() *message.Context  { return rc.messages }
func (rc *RequestControlContext) FlowExecution() *FlowExecution     { return rc.execution }
func (rc *RequestControlContext) Logger() *slog.Logger              { return rc.execution.logger }

func (rc *RequestControlContext) ConversionService() convert.Service {
	return rc.execution.conversion
}

func (rc *RequestControlContext) ConversationScope() *scope.AttributeMap {
	return rc.execution.conversation
}

func (rc *RequestControlContext) InViewState() bool {
	s := rc.CurrentState()
	return rc.execution.IsActive() && s != nil && s.IsViewState()
}

func (rc *RequestControlContext) ViewScope() (*scope.AttributeMap, error) {
	s, err := rc.execution.ActiveSession()
	if err != nil {
		return nil, err
	}
	return s.ViewScope()
}

func (rc *RequestControlContext) FlowScope() *scope.AttributeMap {
	if s, err := rc.execution.ActiveSession(); err == nil {
		return s.Scope()
	}
	return nil
}

func (rc *RequestControlContext) RequestParameters() *external.ParameterMap {
	return rc.external.RequestParameters()
}

func (rc *RequestControlContext) FlowExecutionURL() string {
	if rc.execution.key.IsZero() {
		return ""
	}
	return rc.external.FlowExecutionURL(rc.execution.flow.ID(), rc.execution.key.String())
}

// SetCurrentState makes state the current state of the active session, replacing the
// view scope as needed.
func (rc *RequestControlContext) SetCurrentState(state State) error {
	return rc.execution.setCurrentState(state, rc)
}

func (rc *RequestControlContext) SetCurrentView(v View) { rc.view = v }

// AssignFlowExecutionKey obtains a new key for the snapshot taken at the end of this
// request.
func (rc *RequestControlContext) AssignFlowExecutionKey() (domain.FlowExecutionKey, error) {
	return rc.execution.assignKey()
}

// HandleEvent signals ev against the current state.
func (rc *RequestControlContext) HandleEvent(ev *domain.Event) (bool, error) {
	rc.event = ev
	return rc.execution.handleEvent(ev, rc)
}

// Execute takes transition t from the current state.
func (rc *RequestControlContext) Execute(t *Transition) (bool, error) {
	return rc.execution.execute(t, rc)
}

// Start pushes a new session for flow and enters its start state.
func (rc *RequestControlContext) Start(flow *Flow, input *scope.AttributeMap) error {
	return rc.execution.startSession(flow, input, rc)
}

// EndActiveFlowSession pops the active session with the given outcome.
func (rc *RequestControlContext) EndActiveFlowSession(outcome string, output *scope.AttributeMap) error {
	return rc.execution.endActiveSession(outcome, output, rc)
}

func (rc *RequestControlContext) UpdateCurrentFlowExecutionSnapshot() error {
	return rc.execution.UpdateCurrentFlowExecutionSnapshot()
}

func (rc *RequestControlContext) RemoveCurrentFlowExecutionSnapshot() error {
	return rc.execution.RemoveCurrentFlowExecutionSnapshot()
}

func (rc *RequestControlContext) RemoveAllFlowExecutionSnapshots() error {
	return rc.execution.RemoveAllFlowExecutionSnapshots()
}

// RedirectOnPause is true when the environment cannot answer directly, otherwise it
// follows the execution's alwaysRedirectOnPause attribute (default false).
func (rc *RequestControlContext) RedirectOnPause() bool {
	if !rc.external.IsResponseAllowed() {
		return true
	}
	v, ok := rc.execution.attributes.GetBool(AlwaysRedirectOnPauseAttribute)
	return ok && v
}

// RedirectInSameState is true when the environment cannot answer directly, otherwise it
// follows the redirectInSameState attribute, defaulting to RedirectOnPause.
func (rc *RequestControlContext) RedirectInSameState() bool {
	if !rc.external.IsResponseAllowed() {
		return true
	}
	if v, ok := rc.execution.attributes.GetBool(RedirectInSameStateAttribute); ok {
		return v
	}
	return rc.RedirectOnPause()
}

// EmbeddedMode reports whether the active session runs embedded in a page.
func (rc *RequestControlContext) EmbeddedMode() bool {
	s, err := rc.execution.ActiveSession()
	return err == nil && s.IsEmbeddedMode()
}

func (rc *RequestControlContext) viewRendering(v View) {
	rc.execution.fireView(rc, domain.EventViewRendering, rc.execution.hooks.OnViewRendering)
}

func (rc *RequestControlContext) viewRendered(v View) {
	rc.execution.fireView(rc, domain.EventViewRendered, rc.execution.hooks.OnViewRendered)
}

// ResolveVariable resolves the implicit variables first, then searches the request,
// flash, view, flow and conversation scopes in that order.
func (rc *RequestControlContext) ResolveVariable(name string) (any, bool) {
	switch name {
	case VarRequestScope:
		return rc.request, true
	case VarFlashScope:
		return rc.FlashScope(), true
	case VarViewScope:
		vs, err := rc.ViewScope()
		if err != nil {
			return nil, false
		}
		return vs, true
	case VarFlowScope:
		fs := rc.FlowScope()
		return fs, fs != nil
	case VarConversationScope:
		return rc.ConversationScope(), true
	case VarRequestParameters:
		return rc.RequestParameters(), true
	case VarCurrentEvent:
		return rc.event, rc.event != nil
	case VarMessageContext:
		return rc.messages, true
	case VarExternalContext:
		return rc.external, true
	case VarFlowExecutionURL:
		return rc.FlowExecutionURL(), true
	case VarFlowRequestCtx:
		return rc, true
	}
	for _, m := range rc.searchScopes() {
		if v, ok := m.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// SetVariable writes name into the first scope that already holds it.
func (rc *RequestControlContext) SetVariable(name string, value any) error {
	for _, m := range rc.searchScopes() {
		if m.Contains(name) {
			m.Put(name, value)
			return nil
		}
	}
	return &UnknownVariableError{Name: name}
}

// AsMap exposes the request context as plain data for query expressions: every scope
// by name, plus all scoped attributes merged with request scope taking precedence.
func (rc *RequestControlContext) AsMap() map[string]any {
	out := make(map[string]any)
	scopes := rc.searchScopes()
	for i := len(scopes) - 1; i >= 0; i-- {
		for k, v := range scopes[i].AsMap() {
			out[k] = v
		}
	}
	out[VarRequestScope] = rc.request.AsMap()
	out[VarFlashScope] = rc.FlashScope().AsMap()
	out[VarConversationScope] = rc.ConversationScope().AsMap()
	out[VarRequestParameters] = rc.RequestParameters().AsMap()
	if fs := rc.FlowScope(); fs != nil {
		out[VarFlowScope] = fs.AsMap()
	}
	if vs, err := rc.ViewScope(); err == nil {
		out[VarViewScope] = vs.AsMap()
	}
	if rc.event != nil {
		out[VarCurrentEvent] = map[string]any{"id": rc.event.ID, "source": rc.event.Source, "attributes": rc.event.Attributes}
	}
	return out
}

func (rc *RequestControlContext) searchScopes() []*scope.AttributeMap {
	scopes := []*scope.AttributeMap{rc.request, rc.FlashScope()}
	if vs, err := rc.ViewScope(); err == nil {
		scopes = append(scopes, vs)
	}
	if fs := rc.FlowScope(); fs != nil {
		scopes = append(scopes, fs)
	}
	return append(scopes, rc.ConversationScope())
}

// UnknownVariableError is returned when writing a name no scope holds. Qualify the
// target with a scope name ("flowScope.name") to create it.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return "no scope holds variable " + `"` + e.Name + `"`
}
