package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/internal/testutils"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

type flows map[string]*engine.Flow

func (f flows) Flow(id string) (*engine.Flow, error) {
	if flow, ok := f[id]; ok {
		return flow, nil
	}
	return nil, &engine.DefinitionError{FlowID: id, Reason: "unknown flow"}
}

// formFlow: form --submit--> done.
func formFlow(t *testing.T, views *testutils.ViewRecorder) *engine.Flow {
	t.Helper()
	flow := engine.NewFlow("booking")
	form := must(engine.NewViewState(flow, "form", views.Factory("form")))
	form.Transitions().Add(engine.NewTransition(engine.OnEvent("submit"), engine.To("done")))
	must(engine.NewEndState(flow, "done"))
	require.NoError(t, flow.Validate())
	return flow
}

func event(id string) *external.Local {
	return external.NewLocal(map[string]string{testutils.EventParameter: id})
}

func start(t *testing.T, e *engine.FlowExecution) *external.Local {
	t.Helper()
	ext := external.NewLocal(nil)
	require.NoError(t, e.Start(context.Background(), nil, ext))
	return ext
}

func signal(t *testing.T, e *engine.FlowExecution, eventID string) *external.Local {
	t.Helper()
	ext := event(eventID)
	require.NoError(t, e.Resume(context.Background(), ext))
	return ext
}

func currentState(t *testing.T, e *engine.FlowExecution) string {
	t.Helper()
	s, err := e.ActiveSession()
	require.NoError(t, err)
	return s.State().ID()
}
