package scope_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/scope"
)

type ticket struct {
	Seat  string
	Price float64
}

func TestAttributeMap_TypedRoundTrip(t *testing.T) {
	scope.Register(ticket{})
	when := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	m := scope.New()
	m.Put("count", 2)
	m.Put("ticket", ticket{Seat: "12A", Price: 9.5})
	m.Put("ref", &ticket{Seat: "3C"})
	m.Put("when", when)
	m.Put("wait", 5*time.Second)
	m.Put("tags", []string{"a", "b"})
	m.Put("none", nil)

	data, err := m.MarshalTyped()
	require.NoError(t, err)

	got := scope.New()
	require.NoError(t, got.UnmarshalTyped(data))
	assert.Equal(t, m.Keys(), got.Keys())
	assert.Equal(t, 2, got.Get("count"))
	assert.Equal(t, ticket{Seat: "12A", Price: 9.5}, got.Get("ticket"))
	assert.Equal(t, &ticket{Seat: "3C"}, got.Get("ref"))
	assert.True(t, when.Equal(got.Get("when").(time.Time)))
	assert.Equal(t, 5*time.Second, got.Get("wait"))
	assert.Equal(t, []string{"a", "b"}, got.Get("tags"))
	assert.True(t, got.Contains("none"))
	assert.Nil(t, got.Get("none"))
}

func TestAttributeMap_TypedUnregisteredValuesNormalizeNumbers(t *testing.T) {
	type draft struct{ Rooms int }

	m := scope.New()
	m.Put("draft", draft{Rooms: 2})
	m.Put("mixed", map[string]any{"n": 3, "f": 1.5, "list": []any{1, "x"}})

	data, err := m.MarshalTyped()
	require.NoError(t, err)

	got := scope.New()
	require.NoError(t, got.UnmarshalTyped(data))
	assert.Equal(t, map[string]any{"Rooms": 2}, got.Get("draft"))
	assert.Equal(t, map[string]any{"n": 3, "f": 1.5, "list": []any{1, "x"}}, got.Get("mixed"))
}

func TestAttributeMap_UnmarshalTypedRejectsNonObject(t *testing.T) {
	m := scope.New()
	m.Put("stale", true)
	assert.Error(t, m.UnmarshalTyped([]byte(`[1]`)))

	require.NoError(t, m.UnmarshalTyped([]byte(`null`)))
	assert.True(t, m.IsEmpty())
}
