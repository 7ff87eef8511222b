package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/registry"
)

func endOnly(id string) *engine.Flow {
	f := engine.NewFlow(id)
	if _, err := engine.NewEndState(f, "end"); err != nil {
		panic(err)
	}
	return f
}

func TestFlows(t *testing.T) {
	r := registry.NewFlows()
	require.NoError(t, r.Register(endOnly("b"), endOnly("a")))

	assert.Equal(t, []string{"a", "b"}, r.IDs())
	f, err := r.Flow("a")
	require.NoError(t, err)
	assert.Equal(t, "a", f.ID())

	_, err = r.Flow("zzz")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestFlows_RejectsInvalidFlow(t *testing.T) {
	r := registry.NewFlows()

	err := r.Register(engine.NewFlow("empty"))

	var de *engine.DefinitionError
	assert.ErrorAs(t, err, &de)
	assert.Empty(t, r.IDs())
}

func TestActions(t *testing.T) {
	r := registry.NewActions()
	r.RegisterFunc("noop", func(engine.RequestContext) (*domain.Event, error) { return nil, nil })

	a, err := r.Lookup("noop")
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.Equal(t, []string{"noop"}, r.Names())

	_, err = r.Lookup("missing")
	assert.Error(t, err)
}
