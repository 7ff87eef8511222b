package external

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ParameterMap is an immutable view of request parameters.
type ParameterMap struct {
	values url.Values
}

// NewParameterMap copies values.
func NewParameterMap(values url.Values) *ParameterMap {
	cp := make(url.Values, len(values))
	for k, v := range values {
		cp[k] = append([]string(nil), v...)
	}
	return &ParameterMap{values: cp}
}

// ParametersOf builds a map of single valued parameters.
func ParametersOf(values map[string]string) *ParameterMap {
	v := make(url.Values, len(values))
	for k, s := range values {
		v.Set(k, s)
	}
	return &ParameterMap{values: v}
}

// Get returns the first value of name, or "".
func (p *ParameterMap) Get(name string) string {
	if p == nil {
		return ""
	}
	return p.values.Get(name)
}

func (p *ParameterMap) GetAll(name string) []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.values[name]...)
}

// Require returns the value of name or an error when it is missing or blank.
func (p *ParameterMap) Require(name string) (string, error) {
	v := p.Get(name)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("required request parameter %q is not present", name)
	}
	return v, nil
}

func (p *ParameterMap) Contains(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[name]
	return ok
}

// Names returns parameter names in sorted order.
func (p *ParameterMap) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (p *ParameterMap) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// AsMap returns single valued parameters as strings and multi valued ones as []string.
func (p *ParameterMap) AsMap() map[string]any {
	out := make(map[string]any, p.Len())
	for _, k := range p.Names() {
		vs := p.values[k]
		if len(vs) == 1 {
			out[k] = vs[0]
		} else {
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// Values returns a copy of the underlying url.Values.
func (p *ParameterMap) Values() url.Values {
	return NewParameterMap(p.valuesOrNil()).values
}

func (p *ParameterMap) valuesOrNil() url.Values {
	if p == nil {
		return nil
	}
	return p.values
}

// ResolveVariable lets expressions read parameters by name.
func (p *ParameterMap) ResolveVariable(name string) (any, bool) {
	if !p.Contains(name) {
		return nil, false
	}
	return p.Get(name), true
}
