package scope

import (
	"bytes"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// AttributeMap is an insertion-ordered string keyed map.
// The zero value is ready to use.
type AttributeMap struct {
	om *orderedmap.OrderedMap[string, any]
}

// New creates an empty AttributeMap.
func New() *AttributeMap {
	return &AttributeMap{om: orderedmap.New[string, any]()}
}

// FromMap copies m into a new AttributeMap. Key order follows the iteration order of m,
// so callers that care about order should Put keys explicitly.
func FromMap(m map[string]any) *AttributeMap {
	a := New()
	for k, v := range m {
		a.Put(k, v)
	}
	return a
}

func (a *AttributeMap) init() {
	if a.om == nil {
		a.om = orderedmap.New[string, any]()
	}
}

// Get returns the value for key, or nil.
func (a *AttributeMap) Get(key string) any {
	v, _ := a.Lookup(key)
	return v
}

// Lookup returns the value for key and whether it was present.
func (a *AttributeMap) Lookup(key string) (any, bool) {
	if a == nil || a.om == nil {
		return nil, false
	}
	return a.om.Get(key)
}

// GetOr returns the value for key, or def when absent.
func (a *AttributeMap) GetOr(key string, def any) any {
	if v, ok := a.Lookup(key); ok {
		return v
	}
	return def
}

// GetString returns the value for key rendered as a string, or "".
func (a *AttributeMap) GetString(key string) string {
	v, ok := a.Lookup(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetBool returns the boolean value of key. Strings are parsed with strconv.ParseBool.
// ok is false when the key is absent or not a boolean.
func (a *AttributeMap) GetBool(key string) (value bool, ok bool) {
	v, present := a.Lookup(key)
	if !present {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	return false, false
}

// Contains reports whether key is present.
func (a *AttributeMap) Contains(key string) bool {
	_, ok := a.Lookup(key)
	return ok
}

// Put sets key to value, returning the previous value. An existing key keeps its position.
func (a *AttributeMap) Put(key string, value any) any {
	a.init()
	prev, _ := a.om.Set(key, value)
	return prev
}

// PutAll copies every attribute of other into a, in other's order.
func (a *AttributeMap) PutAll(other *AttributeMap) {
	other.Range(func(k string, v any) bool {
		a.Put(k, v)
		return true
	})
}

// Remove deletes key, returning the removed value.
func (a *AttributeMap) Remove(key string) any {
	if a == nil || a.om == nil {
		return nil
	}
	prev, _ := a.om.Delete(key)
	return prev
}

// Extract removes key and returns its value.
func (a *AttributeMap) Extract(key string) any {
	return a.Remove(key)
}

// Clear removes every attribute.
func (a *AttributeMap) Clear() {
	if a == nil {
		return
	}
	a.om = orderedmap.New[string, any]()
}

// Len returns the number of attributes.
func (a *AttributeMap) Len() int {
	if a == nil || a.om == nil {
		return 0
	}
	return a.om.Len()
}

// IsEmpty reports whether the map holds no attributes.
func (a *AttributeMap) IsEmpty() bool {
	return a.Len() == 0
}

// Keys returns the attribute names in insertion order.
func (a *AttributeMap) Keys() []string {
	keys := make([]string, 0, a.Len())
	a.Range(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Range calls fn for each attribute in order until fn returns false.
func (a *AttributeMap) Range(fn func(key string, value any) bool) {
	if a == nil || a.om == nil {
		return
	}
	for pair := a.om.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// AsMap returns a shallow copy as a plain map.
func (a *AttributeMap) AsMap() map[string]any {
	out := make(map[string]any, a.Len())
	a.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// Clone returns a shallow copy preserving order.
func (a *AttributeMap) Clone() *AttributeMap {
	out := New()
	out.PutAll(a)
	return out
}

// Union returns a new map holding a's attributes overlaid by other's.
func (a *AttributeMap) Union(other *AttributeMap) *AttributeMap {
	out := a.Clone()
	out.PutAll(other)
	return out
}

// ResolveVariable lets expressions address attributes by name.
func (a *AttributeMap) ResolveVariable(name string) (any, bool) {
	return a.Lookup(name)
}

// SetVariable lets expressions write attributes by name.
func (a *AttributeMap) SetVariable(name string, value any) error {
	a.Put(name, value)
	return nil
}

func (a *AttributeMap) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	a.Range(func(k string, v any) bool {
		if buf.Len() > 1 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s=%v", k, v)
		return true
	})
	buf.WriteByte('}')
	return buf.String()
}

// MarshalJSON encodes the map as a JSON object keeping insertion order. Values come
// back from UnmarshalJSON as generic JSON values; use MarshalTyped to keep their types.
func (a *AttributeMap) MarshalJSON() ([]byte, error) {
	if a == nil || a.om == nil {
		return []byte("{}"), nil
	}
	return a.om.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object keeping the document's key order.
func (a *AttributeMap) UnmarshalJSON(data []byte) error {
	if err := expectObject(data); err != nil {
		return err
	}
	a.Clear()
	if isNull(data) {
		return nil
	}
	return a.om.UnmarshalJSON(data)
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func expectObject(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if isNull(trimmed) || (len(trimmed) > 0 && trimmed[0] == '{') {
		return nil
	}
	return fmt.Errorf("attribute map: expected a JSON object")
}
