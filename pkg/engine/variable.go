package engine

import (
	"reflect"

	"github.com/aretw0/webflow/pkg/scope"
)

// VariableValueFactory creates a variable's initial value and rehydrates the value
// after the execution was restored from a snapshot.
type VariableValueFactory interface {
	CreateInitialValue(rc RequestContext) (any, error)
	RestoreReferences(value any, rc RequestContext) (any, error)
}

// ValueFactoryFuncs adapts a pair of functions. A nil Restore keeps values as they are.
type ValueFactoryFuncs struct {
	Create  func(rc RequestContext) (any, error)
	Restore func(value any, rc RequestContext) (any, error)
}

func (f ValueFactoryFuncs) CreateInitialValue(rc RequestContext) (any, error) {
	if f.Create == nil {
		return nil, nil
	}
	return f.Create(rc)
}

func (f ValueFactoryFuncs) RestoreReferences(value any, rc RequestContext) (any, error) {
	if f.Restore == nil {
		return value, nil
	}
	return f.Restore(value, rc)
}

// TypedValueFactory creates a zero *T and, on restore, decodes the snapshot form of the
// value back into a *T with the request's conversion service. Creating a value registers
// T with the scope codec.
type TypedValueFactory[T any] struct{}

func (TypedValueFactory[T]) CreateInitialValue(RequestContext) (any, error) {
	v := new(T)
	scope.Register(v)
	return v, nil
}

func (TypedValueFactory[T]) RestoreReferences(value any, rc RequestContext) (any, error) {
	if value == nil {
		return new(T), nil
	}
	if v, ok := value.(*T); ok {
		return v, nil
	}
	return rc.ConversionService().Convert(value, reflect.TypeOf((*T)(nil)))
}

type variable struct {
	name    string
	factory VariableValueFactory
}

func (v variable) Name() string { return v.name }

func (v variable) create(target *scope.AttributeMap, rc RequestContext) error {
	value, err := v.factory.CreateInitialValue(rc)
	if err != nil {
		return err
	}
	target.Put(v.name, value)
	return nil
}

func (v variable) restore(target *scope.AttributeMap, rc RequestContext) error {
	current, ok := target.Lookup(v.name)
	if !ok {
		return nil
	}
	value, err := v.factory.RestoreReferences(current, rc)
	if err != nil {
		return err
	}
	target.Put(v.name, value)
	return nil
}

// ViewVariable lives in view scope while its view state is the current state.
type ViewVariable struct {
	variable
}

func NewViewVariable(name string, factory VariableValueFactory) *ViewVariable {
	return &ViewVariable{variable{name: name, factory: factory}}
}

// FlowVariable lives in flow scope for the lifetime of its flow session.
type FlowVariable struct {
	variable
}

func NewFlowVariable(name string, factory VariableValueFactory) *FlowVariable {
	return &FlowVariable{variable{name: name, factory: factory}}
}
