package convert_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/webflow/pkg/binding/convert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type money struct {
	Amount   int
	Currency string
}

func TestDefaultService_WeakConversions(t *testing.T) {
	s := convert.NewDefaultService()

	n, err := convert.To[int](s, "42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	b, err := convert.To[bool](s, "true")
	require.NoError(t, err)
	assert.True(t, b)

	str, err := convert.To[string](s, 7)
	require.NoError(t, err)
	assert.Equal(t, "7", str)

	d, err := convert.To[time.Duration](s, "1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	parts, err := convert.To[[]string](s, "a,b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, parts)

	m, err := convert.To[money](s, map[string]any{"amount": "10", "currency": "EUR"})
	require.NoError(t, err)
	assert.Equal(t, money{Amount: 10, Currency: "EUR"}, m)
}

func TestDefaultService_PassThrough(t *testing.T) {
	s := convert.NewDefaultService()

	v, err := s.Convert("x", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = s.Convert(nil, reflect.TypeOf(0))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDefaultService_Failure(t *testing.T) {
	s := convert.NewDefaultService()
	_, err := s.Convert("abc", reflect.TypeOf(0))
	require.Error(t, err)

	var convErr *convert.ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "abc", convErr.Value)
	assert.Equal(t, reflect.TypeOf(0), convErr.Target)
}

func TestDefaultService_CustomConverter(t *testing.T) {
	s := convert.NewDefaultService()
	s.Register(reflect.TypeOf(""), reflect.TypeOf(money{}), func(v any) (any, error) {
		raw := v.(string)
		if !strings.HasPrefix(raw, "EUR ") {
			return nil, errors.New("unknown currency")
		}
		return money{Amount: len(raw) - 4, Currency: "EUR"}, nil
	})

	m, err := convert.To[money](s, "EUR 123")
	require.NoError(t, err)
	assert.Equal(t, money{Amount: 3, Currency: "EUR"}, m)

	_, err = convert.To[money](s, "USD 1")
	assert.Error(t, err)
}
