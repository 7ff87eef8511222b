package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/internal/testutils"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/registry"
)

var errBoom = errors.New("boom")

func TestValidateFlow(t *testing.T) {
	views := &testutils.ViewRecorder{}

	// Scenario A: Valid Flow
	// form -> pay (subflow) -> done, failures caught into "failed"
	flows := registry.NewFlows()
	payment, err := dsl.New("payment").End("paid").Done().Build()
	require.NoError(t, err)
	require.NoError(t, flows.Register(payment))

	valid, err := dsl.New("checkout").
		View("form", views.Factory("form")).On("submit", "pay").Done().
		Subflow("pay", "payment").On("paid", "done").Done().
		End("done").Done().
		End("failed").Done().
		Catch("failed", errBoom).
		Build()
	require.NoError(t, err)
	assert.NoError(t, ValidateFlow(valid, flows))

	// Scenario B: Unreachable state and unknown subflow
	broken, err := dsl.New("broken").
		View("form", views.Factory("form")).On("submit", "pay").Done().
		Subflow("pay", "ghost").On("done", "done").Done().
		End("done").Done().
		View("orphan", views.Factory("orphan")).On("x", "done").Done().
		Build()
	require.NoError(t, err)

	err = ValidateFlow(broken, flows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable state 'orphan'")
	assert.Contains(t, err.Error(), "unknown subflow 'ghost'")
	assert.Equal(t, 2, strings.Count(err.Error(), "\n- "))

	// Scenario C: No end state reachable, subflows unchecked without a locator
	loop, err := dsl.New("loop").
		View("a", views.Factory("a")).On("next", "b").Done().
		View("b", views.Factory("b")).On("next", "a").Done().
		End("never").Done().
		Build()
	require.NoError(t, err)

	err = ValidateFlow(loop, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no end state is reachable")
	assert.Contains(t, err.Error(), "unreachable state 'never'")
}

func TestValidateFlow_GlobalTransitions(t *testing.T) {
	views := &testutils.ViewRecorder{}
	flow, err := dsl.New("globals").
		View("a", views.Factory("a")).On("next", "a").Done().
		End("cancelled").Done().
		Global("cancel", "cancelled").
		Build()
	require.NoError(t, err)

	assert.NoError(t, ValidateFlow(flow, nil))
}
