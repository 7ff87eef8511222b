// Package convert converts values to the types mapping targets expect.
//
// DefaultService leans on mapstructure's weakly typed decoding, so "42" becomes 42,
// "true" becomes true and maps decode into structs. Custom converters registered for an
// exact (source, target) pair take precedence.
package convert

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Service converts a value to a target type.
type Service interface {
	Convert(value any, target reflect.Type) (any, error)
}

// ConversionError reports a value that could not be converted.
type ConversionError struct {
	Value  any
	Target reflect.Type
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %v (%T) to %s: %v", e.Value, e.Value, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Converter converts one value. It is registered for an exact type pair.
type Converter func(value any) (any, error)

type pair struct {
	from, to reflect.Type
}

// DefaultService is safe for concurrent use.
type DefaultService struct {
	mu         sync.RWMutex
	converters map[pair]Converter
	hook       mapstructure.DecodeHookFunc
}

// NewDefaultService returns a service with duration, RFC 3339 time and comma separated
// slice decoding.
func NewDefaultService() *DefaultService {
	return &DefaultService{
		converters: make(map[pair]Converter),
		hook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
}

// Register adds a converter for values of type from to type to.
func (s *DefaultService) Register(from, to reflect.Type, fn Converter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.converters[pair{from, to}] = fn
}

// Convert returns value unchanged when no target is given, when value is nil or when it
// is already assignable to target.
func (s *DefaultService) Convert(value any, target reflect.Type) (any, error) {
	if target == nil || value == nil {
		return value, nil
	}
	src := reflect.TypeOf(value)
	if src.AssignableTo(target) {
		return value, nil
	}

	s.mu.RLock()
	fn, ok := s.converters[pair{src, target}]
	s.mu.RUnlock()
	if ok {
		out, err := fn(value)
		if err != nil {
			return nil, &ConversionError{Value: value, Target: target, Err: err}
		}
		return out, nil
	}

	ptr := reflect.New(target)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       s.hook,
		WeaklyTypedInput: true,
		Result:           ptr.Interface(),
	})
	if err != nil {
		return nil, &ConversionError{Value: value, Target: target, Err: err}
	}
	if err := dec.Decode(value); err != nil {
		return nil, &ConversionError{Value: value, Target: target, Err: err}
	}
	return ptr.Elem().Interface(), nil
}

// To converts value to T through s.
func To[T any](s Service, value any) (T, error) {
	var zero T
	out, err := s.Convert(value, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}
