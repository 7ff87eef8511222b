package action

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// ResultAttribute names the event attribute carrying the evaluated value.
const ResultAttribute = "result"

// EventFactory turns the value computed by an action into the event it signals.
type EventFactory interface {
	CreateResultEvent(source string, result any, rc engine.RequestContext) (*domain.Event, error)
}

// ResultObjectEventFactory maps results by type:
//
//	nil, blank       -> "null"
//	bool             -> "yes" / "no"
//	string           -> the string
//	*domain.Event    -> the event itself
//	domain.EventIDer -> its EventID, with the value in the "result" attribute
type ResultObjectEventFactory struct{}

func (ResultObjectEventFactory) CreateResultEvent(source string, result any, _ engine.RequestContext) (*domain.Event, error) {
	switch r := result.(type) {
	case nil:
		return domain.NewEvent(source, domain.EventNull), nil
	case bool:
		if r {
			return domain.NewEvent(source, domain.EventYes), nil
		}
		return domain.NewEvent(source, domain.EventNo), nil
	case string:
		if strings.TrimSpace(r) == "" {
			return domain.NewEvent(source, domain.EventNull), nil
		}
		return domain.NewEvent(source, r), nil
	case *domain.Event:
		return r, nil
	case domain.EventIDer:
		return domain.NewEvent(source, r.EventID()).WithAttribute(ResultAttribute, r), nil
	}
	return nil, fmt.Errorf("cannot map result %v of type %T to an event", result, result)
}

// SuccessEventFactory always signals success, carrying the result as an attribute.
type SuccessEventFactory struct{}

func (SuccessEventFactory) CreateResultEvent(source string, result any, _ engine.RequestContext) (*domain.Event, error) {
	ev := engine.Success(source)
	if result != nil {
		ev.WithAttribute(ResultAttribute, result)
	}
	return ev, nil
}

// Evaluate evaluates an expression, optionally stores the value and signals the event
// its EventFactory derives from it.
type Evaluate struct {
	expr    expression.Expression
	result  expression.Expression
	typ     reflect.Type
	factory EventFactory
}

// EvaluateOption configures an Evaluate action.
type EvaluateOption func(*Evaluate)

// StoreResult assigns the value to target, converted to typ when typ is non-nil.
func StoreResult(target expression.Expression, typ reflect.Type) EvaluateOption {
	return func(a *Evaluate) {
		a.result = target
		a.typ = typ
	}
}

// WithEventFactory replaces the default ResultObjectEventFactory.
func WithEventFactory(f EventFactory) EvaluateOption {
	return func(a *Evaluate) { a.factory = f }
}

func NewEvaluate(expr expression.Expression, opts ...EvaluateOption) (*Evaluate, error) {
	if expr == nil {
		return nil, fmt.Errorf("evaluate: %w", errNilExpression)
	}
	a := &Evaluate{expr: expr, factory: ResultObjectEventFactory{}}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Evaluate) Execute(rc engine.RequestContext) (*domain.Event, error) {
	value, err := a.expr.GetValue(rc)
	if err != nil {
		return nil, err
	}
	if a.result != nil {
		stored := value
		if a.typ != nil && value != nil {
			if stored, err = rc.ConversionService().Convert(value, a.typ); err != nil {
				return nil, err
			}
		}
		if err := a.result.SetValue(rc, stored); err != nil {
			return nil, err
		}
	}
	return a.factory.CreateResultEvent(a.expr.String(), value, rc)
}

func (a *Evaluate) String() string { return "evaluate " + a.expr.String() }

// Set assigns the value of an expression to a target expression and signals success.
type Set struct {
	target expression.Expression
	value  expression.Expression
	typ    reflect.Type
}

// NewSet creates the action. typ, when non-nil, is the type value is converted to.
func NewSet(target, value expression.Expression, typ reflect.Type) (*Set, error) {
	if target == nil || value == nil {
		return nil, fmt.Errorf("set: %w", errNilExpression)
	}
	return &Set{target: target, value: value, typ: typ}, nil
}

func (a *Set) Execute(rc engine.RequestContext) (*domain.Event, error) {
	v, err := a.value.GetValue(rc)
	if err != nil {
		return nil, err
	}
	if a.typ != nil && v != nil {
		if v, err = rc.ConversionService().Convert(v, a.typ); err != nil {
			return nil, err
		}
	}
	if err := a.target.SetValue(rc, v); err != nil {
		return nil, err
	}
	return engine.Success(a.target.String()), nil
}

func (a *Set) String() string { return "set " + a.target.String() + " = " + a.value.String() }
