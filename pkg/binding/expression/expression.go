// Package expression evaluates the dynamic lookups used by flow definitions: view ids,
// transition targets, criteria, mapping sources and targets.
package expression

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrReadOnly is returned by SetValue on expressions that cannot be assigned.
var ErrReadOnly = errors.New("expression is read-only")

// Expression is evaluated against a context object, typically a request control
// context, an attribute map or a plain Go value.
type Expression interface {
	GetValue(ctx any) (any, error)
	SetValue(ctx any, value any) error
	String() string
}

// Typed is implemented by expressions that know the type they expect to be assigned.
type Typed interface {
	ExpectedType() reflect.Type
}

// TypeResolver is implemented by expressions that can infer the type of the value they
// write from the context they are evaluated against.
type TypeResolver interface {
	ValueType(ctx any) (reflect.Type, error)
}

// Resolver resolves top level variable names.
type Resolver interface {
	ResolveVariable(name string) (any, bool)
}

// Writer assigns top level variable names.
type Writer interface {
	SetVariable(name string, value any) error
}

// Mapper exposes a context as plain data for query expressions.
type Mapper interface {
	AsMap() map[string]any
}

// EvaluationError reports a failed read or write.
type EvaluationError struct {
	Expression string
	Op         string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Static always evaluates to Value.
type Static struct {
	Value any
}

// Literal builds a Static expression.
func Literal(v any) Static { return Static{Value: v} }

func (s Static) GetValue(any) (any, error) { return s.Value, nil }

func (s Static) SetValue(any, any) error {
	return &EvaluationError{Expression: s.String(), Op: "set", Err: ErrReadOnly}
}

func (s Static) String() string { return fmt.Sprint(s.Value) }

// Func adapts a Go function to a read-only Expression.
type Func struct {
	Name string
	Fn   func(ctx any) (any, error)
}

func (f Func) GetValue(ctx any) (any, error) { return f.Fn(ctx) }

func (f Func) SetValue(any, any) error {
	return &EvaluationError{Expression: f.Name, Op: "set", Err: ErrReadOnly}
}

func (f Func) String() string {
	if f.Name == "" {
		return "func"
	}
	return f.Name
}

// Bool evaluates expr and interprets the result as a boolean.
// nil is false; strings must read "true" or "false".
func Bool(expr Expression, ctx any) (bool, error) {
	v, err := expr.GetValue(ctx)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case string:
		switch b {
		case "true":
			return true, nil
		case "false", "":
			return false, nil
		}
	}
	return false, &EvaluationError{Expression: expr.String(), Op: "get", Err: fmt.Errorf("result %v (%T) is not a boolean", v, v)}
}

// String evaluates expr and renders the result as a string; nil becomes "".
func String(expr Expression, ctx any) (string, error) {
	v, err := expr.GetValue(ctx)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
