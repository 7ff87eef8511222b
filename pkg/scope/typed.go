package scope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	typesMu sync.RWMutex
	types   = make(map[string]reflect.Type)
)

func init() {
	for _, v := range []any{
		"", false,
		0, int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
		float32(0), float64(0),
		time.Time{}, time.Duration(0),
		[]string(nil), []int(nil), map[string]string(nil),
	} {
		Register(v)
	}
}

// Register records the type of value so that typed snapshots restore it as that type,
// in the manner of gob.Register. Registering T also covers *T.
func Register(value any) {
	t := reflect.TypeOf(value)
	if t == nil {
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	typesMu.Lock()
	types[typeName(t)] = t
	typesMu.Unlock()
}

func lookupType(name string) (reflect.Type, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	t, ok := types[name]
	return t, ok
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + typeName(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// typedValue is the snapshot form of one attribute.
type typedValue struct {
	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value"`
}

// MarshalTyped encodes the map keeping insertion order and, for every value, the name of
// its Go type.
func (a *AttributeMap) MarshalTyped() ([]byte, error) {
	typed := orderedmap.New[string, typedValue]()
	var err error
	a.Range(func(k string, v any) bool {
		var tv typedValue
		if tv, err = encodeTyped(v); err != nil {
			err = fmt.Errorf("attribute %q: %w", k, err)
			return false
		}
		typed.Set(k, tv)
		return true
	})
	if err != nil {
		return nil, err
	}
	return typed.MarshalJSON()
}

// UnmarshalTyped decodes data written by MarshalTyped. Values of registered types come
// back as that type. Others come back as generic JSON values, with integral numbers as int.
func (a *AttributeMap) UnmarshalTyped(data []byte) error {
	if err := expectObject(data); err != nil {
		return err
	}
	a.Clear()
	if isNull(data) {
		return nil
	}
	typed := orderedmap.New[string, typedValue]()
	if err := typed.UnmarshalJSON(data); err != nil {
		return err
	}
	for pair := typed.Oldest(); pair != nil; pair = pair.Next() {
		v, err := decodeTyped(pair.Value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", pair.Key, err)
		}
		a.Put(pair.Key, v)
	}
	return nil
}

func encodeTyped(v any) (typedValue, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return typedValue{}, err
	}
	tv := typedValue{Value: raw}
	if v != nil {
		tv.Type = typeName(reflect.TypeOf(v))
	}
	return tv, nil
}

func decodeTyped(tv typedValue) (any, error) {
	if len(tv.Value) == 0 || isNull(tv.Value) {
		return nil, nil
	}
	name, pointer := strings.CutPrefix(tv.Type, "*")
	if t, ok := lookupType(name); ok {
		ptr := reflect.New(t)
		if err := json.Unmarshal(tv.Value, ptr.Interface()); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tv.Type, err)
		}
		if pointer {
			return ptr.Interface(), nil
		}
		return ptr.Elem().Interface(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(tv.Value))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return normalizeNumbers(generic), nil
}

// normalizeNumbers turns json.Number values into int when integral, float64 otherwise.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
		return x
	}
	return v
}
