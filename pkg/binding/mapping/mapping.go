// Package mapping copies values between objects through expressions.
//
// A mapper runs every configured Mapping, in order, and reports one Result per mapping.
// Failures are recorded, never returned: one broken mapping does not stop its siblings.
package mapping

import (
	"fmt"
	"reflect"

	"github.com/aretw0/webflow/pkg/binding/convert"
	"github.com/aretw0/webflow/pkg/binding/expression"
)

// Mapping assigns the value of Source, evaluated against the source object, to Target,
// evaluated against the target object.
type Mapping struct {
	Source   expression.Expression
	Target   expression.Expression
	Type     reflect.Type
	Required bool
}

// New builds a mapping between two expressions.
func New(source, target expression.Expression) *Mapping {
	return &Mapping{Source: source, Target: target}
}

// Paths builds a mapping between two dotted paths.
func Paths(source, target string) (*Mapping, error) {
	s, err := expression.NewPath(source)
	if err != nil {
		return nil, err
	}
	t, err := expression.NewPath(target)
	if err != nil {
		return nil, err
	}
	return New(s, t), nil
}

// MustPaths is Paths that panics on error.
func MustPaths(source, target string) *Mapping {
	m, err := Paths(source, target)
	if err != nil {
		panic(err)
	}
	return m
}

// AsRequired marks the mapping as required and returns it.
func (m *Mapping) AsRequired() *Mapping {
	m.Required = true
	return m
}

// As sets the conversion target type and returns the mapping.
func (m *Mapping) As(t reflect.Type) *Mapping {
	m.Type = t
	return m
}

func (m *Mapping) String() string {
	return fmt.Sprintf("%s -> %s", m.Source, m.Target)
}

// Mapper maps a source object onto a target object.
type Mapper interface {
	Map(source, target any) *Results
}

// Option configures a DefaultMapper.
type Option func(*DefaultMapper)

// WithConversionService overrides the conversion service.
func WithConversionService(s convert.Service) Option {
	return func(m *DefaultMapper) {
		m.conversion = s
	}
}

// DefaultMapper is immutable once built and safe for concurrent use.
type DefaultMapper struct {
	mappings   []*Mapping
	conversion convert.Service
}

// NewMapper creates a mapper over the given mappings.
func NewMapper(mappings []*Mapping, opts ...Option) *DefaultMapper {
	m := &DefaultMapper{
		mappings:   append([]*Mapping(nil), mappings...),
		conversion: convert.NewDefaultService(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mappings returns the configured mappings in order.
func (m *DefaultMapper) Mappings() []*Mapping {
	return append([]*Mapping(nil), m.mappings...)
}

func (m *DefaultMapper) Map(source, target any) *Results {
	results := &Results{Source: source, Target: target}
	for _, mp := range m.mappings {
		results.add(m.apply(mp, source, target))
	}
	return results
}

func (m *DefaultMapper) apply(mp *Mapping, source, target any) Result {
	value, err := mp.Source.GetValue(source)
	if err != nil {
		return Result{Mapping: mp, Code: SourceAccessError, Err: err}
	}
	if mp.Required && isEmpty(value) {
		return Result{Mapping: mp, Code: RequiredError, OriginalValue: value}
	}

	mapped := value
	targetType, err := m.targetType(mp, target)
	if err != nil {
		return Result{Mapping: mp, Code: TargetAccessError, OriginalValue: value, Err: err}
	}
	if targetType != nil && value != nil {
		mapped, err = m.conversion.Convert(value, targetType)
		if err != nil {
			return Result{Mapping: mp, Code: TypeConversionError, OriginalValue: value, Err: err}
		}
	}

	if err := mp.Target.SetValue(target, mapped); err != nil {
		return Result{Mapping: mp, Code: TargetAccessError, OriginalValue: value, Err: err}
	}
	return Result{Mapping: mp, Code: Success, OriginalValue: value, MappedValue: mapped}
}

func (m *DefaultMapper) targetType(mp *Mapping, target any) (reflect.Type, error) {
	if mp.Type != nil {
		return mp.Type, nil
	}
	if t, ok := mp.Target.(expression.Typed); ok && t.ExpectedType() != nil {
		return t.ExpectedType(), nil
	}
	if r, ok := mp.Target.(expression.TypeResolver); ok {
		return r.ValueType(target)
	}
	return nil, nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
