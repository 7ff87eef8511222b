package expression

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var pathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)

// ErrNullIntermediate is returned when a path walks through a nil value.
var ErrNullIntermediate = errors.New("null intermediate value")

// Path is a dotted property path such as "flowScope.order.total".
// The first segment is resolved against the context; later segments walk maps,
// structs and slices. Missing map keys read as nil.
type Path struct {
	raw      string
	segments []string
	typ      reflect.Type
}

// IsPath reports whether s is a valid dotted path.
func IsPath(s string) bool {
	return pathPattern.MatchString(s)
}

// NewPath parses a dotted path.
func NewPath(raw string) (*Path, error) {
	if !IsPath(raw) {
		return nil, fmt.Errorf("invalid property path %q", raw)
	}
	return &Path{raw: raw, segments: strings.Split(raw, ".")}, nil
}

// MustPath is NewPath that panics on error. Intended for static definitions.
func MustPath(raw string) *Path {
	p, err := NewPath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// WithType returns a copy of p that declares the type values are converted to
// before being assigned.
func (p *Path) WithType(t reflect.Type) *Path {
	cp := *p
	cp.typ = t
	return &cp
}

func (p *Path) ExpectedType() reflect.Type { return p.typ }

// ValueType returns the declared type, or the static type of the property the path
// points at when the parent is a struct or a typed map. nil means untyped.
func (p *Path) ValueType(ctx any) (reflect.Type, error) {
	if p.typ != nil {
		return p.typ, nil
	}
	parent := ctx
	if len(p.segments) > 1 {
		var err error
		parent, err = (&Path{raw: p.raw, segments: p.segments[:len(p.segments)-1]}).GetValue(ctx)
		if err != nil {
			return nil, err
		}
	}
	if parent == nil {
		return nil, nil
	}
	if _, ok := parent.(Resolver); ok {
		return nil, nil
	}
	rv := reflect.ValueOf(parent)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if f, ok := field(rv, p.segments[len(p.segments)-1]); ok {
			return f.Type(), nil
		}
	case reflect.Map:
		if elem := rv.Type().Elem(); elem.Kind() != reflect.Interface {
			return elem, nil
		}
	}
	return nil, nil
}

func (p *Path) String() string { return p.raw }

// Segments returns the path elements.
func (p *Path) Segments() []string { return append([]string(nil), p.segments...) }

func (p *Path) GetValue(ctx any) (any, error) {
	cur, err := resolveRoot(ctx, p.segments[0])
	if err != nil {
		return nil, p.wrap("get", err)
	}
	for i, seg := range p.segments[1:] {
		if cur == nil {
			return nil, p.wrap("get", fmt.Errorf("%w at %q", ErrNullIntermediate, strings.Join(p.segments[:i+1], ".")))
		}
		cur, err = property(cur, seg)
		if err != nil {
			return nil, p.wrap("get", err)
		}
	}
	return cur, nil
}

func (p *Path) SetValue(ctx any, value any) error {
	last := p.segments[len(p.segments)-1]
	if len(p.segments) == 1 {
		if err := assign(ctx, last, value); err != nil {
			return p.wrap("set", err)
		}
		return nil
	}
	parent, err := (&Path{raw: p.raw, segments: p.segments[:len(p.segments)-1]}).GetValue(ctx)
	if err != nil {
		return p.wrap("set", errors.Unwrap(err))
	}
	if parent == nil {
		return p.wrap("set", ErrNullIntermediate)
	}
	if err := assign(parent, last, value); err != nil {
		return p.wrap("set", err)
	}
	return nil
}

func (p *Path) wrap(op string, err error) error {
	return &EvaluationError{Expression: p.raw, Op: op, Err: err}
}

func resolveRoot(ctx any, name string) (any, error) {
	if r, ok := ctx.(Resolver); ok {
		v, _ := r.ResolveVariable(name)
		return v, nil
	}
	if ctx == nil {
		return nil, ErrNullIntermediate
	}
	return property(ctx, name)
}

func property(obj any, name string) (any, error) {
	switch o := obj.(type) {
	case Resolver:
		v, _ := o.ResolveVariable(name)
		return v, nil
	case map[string]any:
		return o[name], nil
	case map[string]string:
		if v, ok := o[name]; ok {
			return v, nil
		}
		return nil, nil
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, ErrNullIntermediate
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map with %s keys is not addressable by name", rv.Type().Key())
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		f, ok := field(rv, name)
		if !ok {
			return nil, fmt.Errorf("no property %q on %s", name, rv.Type())
		}
		return f.Interface(), nil
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("index %q on %s: %w", name, rv.Type(), err)
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, fmt.Errorf("index %d out of range on %s", idx, rv.Type())
		}
		return rv.Index(idx).Interface(), nil
	}
	return nil, fmt.Errorf("no property %q on %T", name, obj)
}

func assign(obj any, name string, value any) error {
	switch o := obj.(type) {
	case Writer:
		return o.SetVariable(name, value)
	case map[string]any:
		o[name] = value
		return nil
	case nil:
		return ErrNullIntermediate
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Map {
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("map with %s keys is not addressable by name", rv.Type().Key())
		}
		val, err := assignable(value, rv.Type().Elem())
		if err != nil {
			return err
		}
		rv.SetMapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()), val)
		return nil
	}
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("cannot set %q on non-pointer %T", name, obj)
	}
	rv = rv.Elem()
	switch rv.Kind() {
	case reflect.Struct:
		f, ok := field(rv, name)
		if !ok || !f.CanSet() {
			return fmt.Errorf("no writable property %q on %s", name, rv.Type())
		}
		val, err := assignable(value, f.Type())
		if err != nil {
			return err
		}
		f.Set(val)
		return nil
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(name)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return fmt.Errorf("invalid index %q on %s", name, rv.Type())
		}
		val, err := assignable(value, rv.Type().Elem())
		if err != nil {
			return err
		}
		rv.Index(idx).Set(val)
		return nil
	}
	return fmt.Errorf("cannot set %q on %T", name, obj)
}

func assignable(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %T is not assignable to %s", value, t)
}

// field finds a struct field by exact name, json tag or case-insensitive name.
func field(rv reflect.Value, name string) (reflect.Value, bool) {
	t := rv.Type()
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return rv.FieldByIndex(f.Index), true
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if tag == name || strings.EqualFold(f.Name, name) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}
