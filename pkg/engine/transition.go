package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/scope"
)

// Wildcard matches any event.
const Wildcard = "*"

// TransitionCriteria decides whether a transition applies.
type TransitionCriteria interface {
	Test(rc RequestContext) (bool, error)
}

// CriteriaFunc adapts a function to TransitionCriteria.
type CriteriaFunc func(rc RequestContext) (bool, error)

func (f CriteriaFunc) Test(rc RequestContext) (bool, error) { return f(rc) }

// Always is criteria that always pass.
var Always TransitionCriteria = CriteriaFunc(func(RequestContext) (bool, error) { return true, nil })

// EventIDCriteria matches the current event by id; Wildcard matches everything.
type EventIDCriteria string

func (c EventIDCriteria) Test(rc RequestContext) (bool, error) {
	if c == Wildcard {
		return true, nil
	}
	ev := rc.CurrentEvent()
	return ev != nil && ev.ID == string(c), nil
}

func (c EventIDCriteria) String() string { return string(c) }

// ExpressionCriteria passes when the expression evaluates to true.
type ExpressionCriteria struct {
	Expr expression.Expression
}

func (c ExpressionCriteria) Test(rc RequestContext) (bool, error) {
	return expression.Bool(c.Expr, rc)
}

func (c ExpressionCriteria) String() string { return c.Expr.String() }

// And passes when every criteria passes, evaluated in order.
func And(criteria ...TransitionCriteria) TransitionCriteria {
	return CriteriaFunc(func(rc RequestContext) (bool, error) {
		for _, c := range criteria {
			ok, err := c.Test(rc)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}

// ActionCriteria executes actions as a transition guard. The transition proceeds only
// if every action succeeds.
func ActionCriteria(actions ...Action) TransitionCriteria {
	return CriteriaFunc(func(rc RequestContext) (bool, error) {
		for _, a := range actions {
			ev, err := a.Execute(rc)
			if err != nil {
				return false, err
			}
			if !IsSuccess(ev) {
				return false, nil
			}
		}
		return true, nil
	})
}

// TargetStateResolver picks the state a transition leads to. source is nil when the
// transition starts a flow. A nil state means the transition goes nowhere.
type TargetStateResolver interface {
	Resolve(t *Transition, source State, rc RequestContext) (State, error)
}

// DefaultTargetStateResolver evaluates an expression to a state id of the active flow.
type DefaultTargetStateResolver struct {
	expr expression.Expression
}

// NewTargetStateResolver resolves to a fixed state id.
func NewTargetStateResolver(stateID string) *DefaultTargetStateResolver {
	return &DefaultTargetStateResolver{expr: expression.Static{Value: stateID}}
}

// NewExpressionTargetStateResolver resolves the state id at runtime.
func NewExpressionTargetStateResolver(expr expression.Expression) *DefaultTargetStateResolver {
	return &DefaultTargetStateResolver{expr: expr}
}

func (r *DefaultTargetStateResolver) Resolve(_ *Transition, _ State, rc RequestContext) (State, error) {
	id, err := expression.String(r.expr, rc)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	flow := rc.ActiveFlow()
	if flow == nil {
		return nil, fmt.Errorf("resolve target %q: %w: no active flow", id, domain.ErrIllegalState)
	}
	state, ok := flow.State(id)
	if !ok {
		return nil, &DefinitionError{FlowID: flow.ID(), StateID: id, Reason: "no such state"}
	}
	return state, nil
}

// StaticID returns the target id when it is known without evaluation.
func (r *DefaultTargetStateResolver) StaticID() (string, bool) {
	if s, ok := r.expr.(expression.Static); ok {
		id, isString := s.Value.(string)
		return id, isString
	}
	return "", false
}

func (r *DefaultTargetStateResolver) String() string { return r.expr.String() }

// Transition is a path from one state to another.
type Transition struct {
	matching   TransitionCriteria
	execution  TransitionCriteria
	resolver   TargetStateResolver
	attributes *scope.AttributeMap
}

// TransitionOption configures a Transition.
type TransitionOption func(*Transition)

// OnEvent matches events with the given id.
func OnEvent(eventID string) TransitionOption {
	return func(t *Transition) { t.matching = EventIDCriteria(eventID) }
}

// Matching sets arbitrary matching criteria.
func Matching(c TransitionCriteria) TransitionOption {
	return func(t *Transition) { t.matching = c }
}

// Guard sets the execution criteria checked after matching.
func Guard(c TransitionCriteria) TransitionOption {
	return func(t *Transition) { t.execution = c }
}

// To targets a fixed state id.
func To(stateID string) TransitionOption {
	return func(t *Transition) { t.resolver = NewTargetStateResolver(stateID) }
}

// ToResolver sets the target state resolver.
func ToResolver(r TargetStateResolver) TransitionOption {
	return func(t *Transition) { t.resolver = r }
}

// WithHistory sets the history policy applied when the transition leaves a view state.
func WithHistory(h domain.History) TransitionOption {
	return func(t *Transition) { t.attributes.Put(domain.HistoryAttribute, h) }
}

// WithAttribute sets a transition attribute.
func WithAttribute(name string, value any) TransitionOption {
	return func(t *Transition) { t.attributes.Put(name, value) }
}

// NewTransition builds a transition. Without OnEvent or Matching it matches every event;
// without To or ToResolver it never changes state.
func NewTransition(opts ...TransitionOption) *Transition {
	t := &Transition{
		matching:   Always,
		execution:  Always,
		attributes: scope.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transition) MatchingCriteria() TransitionCriteria     { return t.matching }
func (t *Transition) ExecutionCriteria() TransitionCriteria    { return t.execution }
func (t *Transition) TargetStateResolver() TargetStateResolver { return t.resolver }
func (t *Transition) Attributes() *scope.AttributeMap          { return t.attributes }

// ID returns the event id matched by the transition, or "" for other criteria.
func (t *Transition) ID() string {
	if c, ok := t.matching.(EventIDCriteria); ok {
		return string(c)
	}
	return ""
}

// TargetStateID returns the static target id, or "" when unknown.
func (t *Transition) TargetStateID() string {
	if r, ok := t.resolver.(interface{ StaticID() (string, bool) }); ok {
		id, _ := r.StaticID()
		return id
	}
	return ""
}

// History returns the history policy; unset or unknown values mean preserve.
func (t *Transition) History() domain.History {
	switch h := t.attributes.Get(domain.HistoryAttribute).(type) {
	case domain.History:
		return h
	case string:
		if parsed, err := domain.ParseHistory(h); err == nil {
			return parsed
		}
	}
	return domain.HistoryPreserve
}

// Matches reports whether the transition applies to the current request.
func (t *Transition) Matches(rc RequestContext) (bool, error) {
	return t.matching.Test(rc)
}

// CanExecute evaluates the execution criteria.
func (t *Transition) CanExecute(rc RequestContext) (bool, error) {
	return t.execution.Test(rc)
}

// Execute moves the execution from source to the resolved target. It returns false,
// without exiting source, when the execution criteria reject the transition or no
// target state resolves.
func (t *Transition) Execute(source State, rc *RequestControlContext) (bool, error) {
	ok, err := t.CanExecute(rc)
	if err != nil || !ok {
		return false, err
	}
	if t.resolver == nil {
		return false, nil
	}
	target, err := t.resolver.Resolve(t, source, rc)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, nil
	}
	if ts, ok := source.(TransitionableState); ok && ts != nil {
		if err := ts.Exit(rc); err != nil {
			return false, err
		}
	}
	if err := target.Enter(rc); err != nil {
		return true, err
	}
	return true, nil
}

func (t *Transition) String() string {
	return fmt.Sprintf("transition[on=%v, to=%v]", t.matching, t.resolver)
}

// TransitionSet is an ordered set of transitions; the first match wins.
type TransitionSet struct {
	transitions []*Transition
}

func (s *TransitionSet) Add(ts ...*Transition) *TransitionSet {
	s.transitions = append(s.transitions, ts...)
	return s
}

func (s *TransitionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.transitions)
}

func (s *TransitionSet) All() []*Transition {
	if s == nil {
		return nil
	}
	return append([]*Transition(nil), s.transitions...)
}

// Match returns the first transition matching the request, or nil.
func (s *TransitionSet) Match(rc RequestContext) (*Transition, error) {
	for _, t := range s.All() {
		ok, err := t.Matches(rc)
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
	}
	return nil, nil
}

// HasMatch reports whether any transition matches.
func (s *TransitionSet) HasMatch(rc RequestContext) (bool, error) {
	t, err := s.Match(rc)
	return t != nil, err
}
