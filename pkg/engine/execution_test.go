package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/internal/testutils"
	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/scope"
)

func TestExecution_StartRendersFirstView(t *testing.T) {
	views := &testutils.ViewRecorder{}
	exec := engine.NewExecution(formFlow(t, views))

	ext := start(t, exec)

	assert.True(t, exec.IsActive())
	assert.Equal(t, domain.StatusActive, exec.Status())
	assert.Equal(t, []string{"form"}, views.Renders())
	assert.True(t, ext.IsResponseComplete())
	assert.Equal(t, external.NoRedirect, ext.Redirect().Kind)
	assert.Equal(t, "form", currentState(t, exec))
	assert.False(t, exec.Key().IsZero())
}

func TestExecution_StartTwiceFails(t *testing.T) {
	exec := engine.NewExecution(formFlow(t, &testutils.ViewRecorder{}))
	start(t, exec)

	err := exec.Start(context.Background(), nil, external.NewLocal(nil))
	assert.ErrorIs(t, err, domain.ErrIllegalState)
}

func TestExecution_ResumeInactiveFails(t *testing.T) {
	exec := engine.NewExecution(formFlow(t, &testutils.ViewRecorder{}))

	err := exec.Resume(context.Background(), event("submit"))
	assert.ErrorIs(t, err, domain.ErrIllegalState)
}

func TestExecution_RootEndEndsExecution(t *testing.T) {
	exec := engine.NewExecution(formFlow(t, &testutils.ViewRecorder{}))
	start(t, exec)

	signal(t, exec, "submit")

	assert.False(t, exec.IsActive())
	assert.True(t, exec.HasEnded())
	require.NotNil(t, exec.Outcome())
	assert.Equal(t, "done", exec.Outcome().ID)
	_, err := exec.ActiveSession()
	assert.ErrorIs(t, err, domain.ErrIllegalState)
}

func TestExecution_RefreshRendersAgain(t *testing.T) {
	views := &testutils.ViewRecorder{}
	exec := engine.NewExecution(formFlow(t, views))
	start(t, exec)

	ext := external.NewLocal(nil)
	require.NoError(t, exec.Resume(context.Background(), ext))

	assert.Equal(t, []string{"form", "form"}, views.Renders())
	assert.True(t, ext.IsResponseComplete())
}

func TestExecution_RedirectPolicies(t *testing.T) {
	t.Run("explicit redirect redirects instead of rendering", func(t *testing.T) {
		views := &testutils.ViewRecorder{}
		flow := engine.NewFlow("f")
		must(engine.NewViewState(flow, "form", views.Factory("form"))).SetRedirect(true)
		exec := engine.NewExecution(flow)

		ext := start(t, exec)

		assert.Empty(t, views.Renders())
		assert.Equal(t, external.FlowExecutionRedirect, ext.Redirect().Kind)
		assert.True(t, ext.IsResponseCompleteFlowExecutionRedirect())
	})

	t.Run("always redirect on pause", func(t *testing.T) {
		views := &testutils.ViewRecorder{}
		exec := engine.NewExecution(formFlow(t, views),
			engine.WithAttributes(map[string]any{engine.AlwaysRedirectOnPauseAttribute: true}))

		ext := start(t, exec)
		assert.Empty(t, views.Renders())
		assert.Equal(t, external.FlowExecutionRedirect, ext.Redirect().Kind)

		refresh := external.NewLocal(nil)
		require.NoError(t, exec.Resume(context.Background(), refresh))
		assert.Equal(t, []string{"form"}, views.Renders())
		assert.Equal(t, external.NoRedirect, refresh.Redirect().Kind)
	})

	t.Run("explicit no redirect overrides the policy", func(t *testing.T) {
		views := &testutils.ViewRecorder{}
		flow := engine.NewFlow("f")
		must(engine.NewViewState(flow, "form", views.Factory("form"))).SetRedirect(false)
		exec := engine.NewExecution(flow,
			engine.WithAttributes(map[string]any{engine.AlwaysRedirectOnPauseAttribute: "true"}))

		start(t, exec)
		assert.Equal(t, []string{"form"}, views.Renders())
	})

	t.Run("ajax request in embedded mode renders", func(t *testing.T) {
		views := &testutils.ViewRecorder{}
		exec := engine.NewExecution(formFlow(t, views),
			engine.WithAttributes(map[string]any{engine.AlwaysRedirectOnPauseAttribute: true}))
		ext := external.NewLocal(nil).SetAjax(true)
		input := scope.New()
		input.Put(engine.ModeInputAttribute, engine.EmbeddedMode)

		require.NoError(t, exec.Start(context.Background(), input, ext))

		assert.Equal(t, []string{"form"}, views.Renders())
		assert.Equal(t, external.NoRedirect, ext.Redirect().Kind)
	})

	t.Run("response not allowed forces a redirect", func(t *testing.T) {
		views := &testutils.ViewRecorder{}
		exec := engine.NewExecution(formFlow(t, views))
		ext := external.NewLocal(nil).SetResponseAllowed(false)

		require.NoError(t, exec.Start(context.Background(), nil, ext))

		assert.Empty(t, views.Renders())
		assert.Equal(t, external.FlowExecutionRedirect, ext.Redirect().Kind)
	})
}

func TestExecution_RedirectInSameStateKeepsMessages(t *testing.T) {
	views := &testutils.ViewRecorder{}
	flow := engine.NewFlow("f")
	form := must(engine.NewViewState(flow, "form", views.Factory("form")))
	form.Transitions().Add(engine.NewTransition(
		engine.OnEvent("submit"),
		engine.Guard(engine.CriteriaFunc(func(rc engine.RequestContext) (bool, error) {
			rc.MessageContext().Errorf("name", "name is required")
			return false, nil
		})),
		engine.To("done"),
	))
	must(engine.NewEndState(flow, "done"))

	var seen int
	form.RenderActions().Add(engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		seen = rc.MessageContext().Len()
		return nil, nil
	}))

	exec := engine.NewExecution(flow,
		engine.WithAttributes(map[string]any{engine.AlwaysRedirectOnPauseAttribute: true}))
	start(t, exec)

	ext := signal(t, exec, "submit")
	assert.Equal(t, external.FlowExecutionRedirect, ext.Redirect().Kind)
	assert.Equal(t, "form", currentState(t, exec))
	assert.True(t, exec.FlashScope().Contains(engine.UserEventStateAttribute))
	assert.True(t, exec.FlashScope().Contains(engine.MessagesMementoAttribute))

	require.NoError(t, exec.Resume(context.Background(), external.NewLocal(nil)))
	assert.Equal(t, 1, seen)
	assert.True(t, exec.FlashScope().IsEmpty())
}

func TestExecution_TransitionWithoutTargetStays(t *testing.T) {
	views := &testutils.ViewRecorder{}
	flow := engine.NewFlow("f")
	form := must(engine.NewViewState(flow, "form", views.Factory("form")))
	exited := 0
	form.ExitActions().Add(engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
		exited++
		return nil, nil
	}))
	form.Transitions().Add(
		engine.NewTransition(engine.OnEvent("reload")),
		engine.NewTransition(engine.OnEvent("submit"), engine.Guard(engine.CriteriaFunc(func(engine.RequestContext) (bool, error) {
			return false, nil
		})), engine.To("done")),
	)
	must(engine.NewEndState(flow, "done"))
	exec := engine.NewExecution(flow)
	start(t, exec)

	signal(t, exec, "reload")
	signal(t, exec, "submit")

	assert.Zero(t, exited)
	assert.Equal(t, "form", currentState(t, exec))
	assert.Equal(t, []string{"form", "form", "form"}, views.Renders())
}

func TestExecution_UnknownEventFails(t *testing.T) {
	exec := engine.NewExecution(formFlow(t, &testutils.ViewRecorder{}))
	start(t, exec)

	err := exec.Resume(context.Background(), event("bogus"))

	var nm *engine.NoMatchingTransitionError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, "form", nm.StateID)
	assert.Equal(t, "bogus", nm.EventID)
	var fe *engine.FlowExecutionError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "booking", fe.FlowID)
}

func TestExecution_HistoryPolicies(t *testing.T) {
	tests := []struct {
		history domain.History
		want    []string
	}{
		{domain.HistoryPreserve, []string{"get", "update", "get"}},
		{domain.HistoryDiscard, []string{"get", "remove", "get"}},
		{domain.HistoryInvalidate, []string{"get", "removeAll", "get"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.history), func(t *testing.T) {
			views := &testutils.ViewRecorder{}
			keys := testutils.NewKeyRecorder()
			flow := engine.NewFlow("f")
			form := must(engine.NewViewState(flow, "form", views.Factory("form")))
			form.Transitions().Add(engine.NewTransition(engine.OnEvent("next"), engine.To("confirm"), engine.WithHistory(tt.history)))
			must(engine.NewViewState(flow, "confirm", views.Factory("confirm")))
			exec := engine.NewExecution(flow, engine.WithKeyFactory(keys))

			start(t, exec)
			assert.Equal(t, "ec1s1", exec.Key().String())
			signal(t, exec, "next")

			assert.Equal(t, tt.want, keys.Calls())
			assert.Equal(t, "ec1s2", exec.Key().String())
			assert.Equal(t, []string{"form", "confirm"}, views.Renders())
		})
	}
}

func TestExecution_RequiredInputMapping(t *testing.T) {
	views := &testutils.ViewRecorder{}
	flow := formFlow(t, views)
	flow.SetInputMapper(mapping.NewMapper([]*mapping.Mapping{
		mapping.MustPaths("name", "flowScope.name").AsRequired(),
	}))

	exec := engine.NewExecution(flow)
	err := exec.Start(context.Background(), nil, external.NewLocal(nil))

	var inputErr *engine.FlowInputMappingError
	require.ErrorAs(t, err, &inputErr)
	require.Len(t, inputErr.Results.Errors(), 1)
	assert.Equal(t, mapping.RequiredError, inputErr.Results.Errors()[0].Code)
	assert.Empty(t, views.Renders())

	input := scope.New()
	input.Put("name", "Ada")
	exec = engine.NewExecution(flow)
	require.NoError(t, exec.Start(context.Background(), input, external.NewLocal(nil)))
	session, err := exec.ActiveSession()
	require.NoError(t, err)
	assert.Equal(t, "Ada", session.Scope().Get("name"))
}

func TestExecution_GlobalTransition(t *testing.T) {
	flow := formFlow(t, &testutils.ViewRecorder{})
	flow.GlobalTransitions().Add(engine.NewTransition(engine.OnEvent("cancel"), engine.To("cancelled")))
	must(engine.NewEndState(flow, "cancelled"))
	require.NoError(t, flow.Validate())
	exec := engine.NewExecution(flow)
	start(t, exec)

	signal(t, exec, "cancel")

	require.True(t, exec.HasEnded())
	assert.Equal(t, "cancelled", exec.Outcome().ID)
}

var errDeclined = errors.New("card declined")

func TestExecution_ExceptionHandlers(t *testing.T) {
	build := func(views *testutils.ViewRecorder, handle bool) *engine.Flow {
		flow := engine.NewFlow("payment")
		charge := must(engine.NewActionState(flow, "charge", engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
			return nil, errDeclined
		})))
		charge.Transitions().Add(engine.NewTransition(engine.OnEvent("success"), engine.To("paid")))
		must(engine.NewEndState(flow, "paid"))
		failed := must(engine.NewViewState(flow, "failed", views.Factory("failed")))
		failed.RenderActions().Add(engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
			rc.RequestScope().Put("cause", rc.FlashScope().GetString(engine.RootCauseExceptionAttribute))
			return nil, nil
		}))
		if handle {
			flow.ExceptionHandlers().Add(engine.NewTransitionExecutingExceptionHandler("failed", errDeclined))
		}
		return flow
	}

	t.Run("handled by flow", func(t *testing.T) {
		views := &testutils.ViewRecorder{}
		var failures []string
		exec := engine.NewExecution(build(views, true), engine.WithLifecycleHooks(domain.LifecycleHooks{
			OnException: func(_ context.Context, e *domain.ExceptionEvent) { failures = append(failures, e.StateID) },
		}))

		start(t, exec)

		assert.Equal(t, []string{"failed"}, views.Renders())
		assert.Equal(t, "failed", currentState(t, exec))
		assert.Equal(t, []string{"charge"}, failures)
	})

	t.Run("unhandled", func(t *testing.T) {
		views := &testutils.ViewRecorder{}
		exec := engine.NewExecution(build(views, false))

		err := exec.Start(context.Background(), nil, external.NewLocal(nil))

		assert.ErrorIs(t, err, errDeclined)
		var fe *engine.FlowExecutionError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "payment", fe.FlowID)
		assert.Equal(t, "charge", fe.StateID)
		assert.Empty(t, views.Renders())
	})
}

func TestExecution_LifecycleHooks(t *testing.T) {
	var entered, paused []string
	var requests int
	hooks := domain.LifecycleHooks{
		OnStateEntered: func(_ context.Context, e *domain.StateEvent) {
			entered = append(entered, e.StateID)
		},
		OnPaused: func(_ context.Context, e *domain.RequestEvent) {
			paused = append(paused, e.Key)
		},
		OnRequestProcessed: func(context.Context, *domain.RequestEvent) { requests++ },
	}
	exec := engine.NewExecution(formFlow(t, &testutils.ViewRecorder{}),
		engine.WithLifecycleHooks(hooks), engine.WithKeyFactory(testutils.NewKeyRecorder()))

	start(t, exec)
	signal(t, exec, "submit")

	assert.Equal(t, []string{"form", "done"}, entered)
	assert.Equal(t, []string{"ec1s1"}, paused)
	assert.Equal(t, 2, requests)
}
