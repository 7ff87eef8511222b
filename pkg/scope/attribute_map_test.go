package scope_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/webflow/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeMap_PreservesInsertionOrder(t *testing.T) {
	m := scope.New()
	m.Put("zeta", 1)
	m.Put("alpha", 2)
	m.Put("mid", 3)
	m.Put("zeta", 4)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	assert.Equal(t, 4, m.Get("zeta"))

	m.Remove("alpha")
	assert.Equal(t, []string{"zeta", "mid"}, m.Keys())
	assert.Equal(t, 2, m.Len())
}

func TestAttributeMap_ZeroValue(t *testing.T) {
	var m scope.AttributeMap
	assert.Nil(t, m.Get("x"))
	assert.True(t, m.IsEmpty())
	m.Put("x", "y")
	assert.Equal(t, "y", m.GetString("x"))
}

func TestAttributeMap_TypedGetters(t *testing.T) {
	m := scope.New()
	m.Put("flag", "true")
	m.Put("real", false)
	m.Put("num", 42)

	v, ok := m.GetBool("flag")
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = m.GetBool("real")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = m.GetBool("num")
	assert.False(t, ok)

	_, ok = m.GetBool("missing")
	assert.False(t, ok)

	assert.Equal(t, "42", m.GetString("num"))
	assert.Equal(t, "dflt", m.GetOr("missing", "dflt"))
}

func TestAttributeMap_UnionDoesNotMutate(t *testing.T) {
	a := scope.New()
	a.Put("a", 1)
	b := scope.New()
	b.Put("a", 2)
	b.Put("b", 3)

	u := a.Union(b)
	assert.Equal(t, 2, u.Get("a"))
	assert.Equal(t, 3, u.Get("b"))
	assert.Equal(t, 1, a.Get("a"))
	assert.False(t, a.Contains("b"))
}

func TestAttributeMap_JSONRoundTripKeepsOrder(t *testing.T) {
	m := scope.New()
	m.Put("b", "two")
	m.Put("a", 1.5)
	m.Put("c", []any{"x"})

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":"two","a":1.5,"c":["x"]}`, string(raw))

	var back scope.AttributeMap
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, []string{"b", "a", "c"}, back.Keys())
	assert.Equal(t, "two", back.Get("b"))
}

func TestAttributeMap_UnmarshalRejectsNonObject(t *testing.T) {
	var m scope.AttributeMap
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &m))
}

func TestAttributeMap_RemoveThenPutAppends(t *testing.T) {
	var m scope.AttributeMap
	data, err := json.Marshal(&m)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)
	assert.Equal(t, 1, m.Remove("a"))
	m.Put("a", 4)
	assert.Equal(t, []string{"b", "c", "a"}, m.Keys())

	data, err = json.Marshal(&m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"c":3,"a":4}`, string(data))
}
