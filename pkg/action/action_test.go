package action_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/internal/testutils"
	"github.com/aretw0/webflow/pkg/action"
	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
)

// run executes a in an action state; any event leads to the view state "show".
func run(t *testing.T, a engine.Action) (*engine.FlowExecution, *external.Local) {
	t.Helper()
	flow := engine.NewFlow("f")
	state, err := engine.NewActionState(flow, "act", a)
	require.NoError(t, err)
	state.Transitions().Add(engine.NewTransition(engine.OnEvent(engine.Wildcard), engine.To("show")))
	_, err = engine.NewViewState(flow, "show", (&testutils.ViewRecorder{}).Factory("show"))
	require.NoError(t, err)

	exec := engine.NewExecution(flow)
	ext := external.NewLocal(nil)
	require.NoError(t, exec.Start(context.Background(), nil, ext))
	return exec, ext
}

func flowScope(t *testing.T, exec *engine.FlowExecution) map[string]any {
	t.Helper()
	s, err := exec.ActiveSession()
	require.NoError(t, err)
	return s.Scope().AsMap()
}

func TestExternalRedirect(t *testing.T) {
	a, err := action.NewExternalRedirect(expression.Literal("/wherever"))
	require.NoError(t, err)

	_, ext := run(t, a)

	assert.Equal(t, external.ExternalRedirect, ext.Redirect().Kind)
	assert.Equal(t, "/wherever", ext.Redirect().Location)
}

func TestExternalRedirect_NilLocation(t *testing.T) {
	_, err := action.NewExternalRedirect(nil)
	assert.Error(t, err)
}

func TestFlowDefinitionRedirect(t *testing.T) {
	tests := []struct {
		target string
		flowID string
		input  map[string]any
	}{
		{"user?foo=bar", "user", map[string]any{"foo": "bar"}},
		{"user", "user", map[string]any{}},
		{"search?q=go+flows&page=2", "search", map[string]any{"q": "go flows", "page": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			a, err := action.NewFlowDefinitionRedirect(expression.Literal(tt.target))
			require.NoError(t, err)

			_, ext := run(t, a)

			rd := ext.Redirect()
			assert.Equal(t, external.FlowDefinitionRedirect, rd.Kind)
			assert.Equal(t, tt.flowID, rd.FlowID)
			assert.Equal(t, tt.input, rd.Input)
		})
	}
}

func TestFlowDefinitionRedirect_NilFlowID(t *testing.T) {
	_, err := action.NewFlowDefinitionRedirect(nil)
	assert.Error(t, err)
}

func TestParseFlowRedirect_Empty(t *testing.T) {
	_, _, err := action.ParseFlowRedirect("?a=b")
	assert.Error(t, err)
}

func TestSet_ConvertsValue(t *testing.T) {
	a, err := action.NewSet(expression.MustPath("flowScope.count"), expression.Literal("3"), reflect.TypeOf(0))
	require.NoError(t, err)

	exec, _ := run(t, a)

	assert.Equal(t, 3, flowScope(t, exec)["count"])
}

func TestEvaluate_StoresResultAndSignalsEvent(t *testing.T) {
	var signalled []string
	check := expression.Func{Name: "isOpen", Fn: func(any) (any, error) { return true, nil }}
	a, err := action.NewEvaluate(check, action.StoreResult(expression.MustPath("flowScope.open"), nil))
	require.NoError(t, err)

	flow := engine.NewFlow("f")
	state, err := engine.NewActionState(flow, "act", engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		ev, err := a.Execute(rc)
		if ev != nil {
			signalled = append(signalled, ev.ID)
		}
		return ev, err
	}))
	require.NoError(t, err)
	state.Transitions().Add(engine.NewTransition(engine.OnEvent(domain.EventYes), engine.To("done")))
	done, err := engine.NewEndState(flow, "done")
	require.NoError(t, err)
	var open any
	done.EntryActions().Add(engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		open = rc.FlowScope().Get("open")
		return nil, nil
	}))

	exec := engine.NewExecution(flow)
	require.NoError(t, exec.Start(context.Background(), nil, external.NewLocal(nil)))

	assert.Equal(t, []string{"yes"}, signalled)
	assert.Equal(t, true, open)
	assert.True(t, exec.HasEnded())
}

type status string

func (s status) EventID() string { return string(s) }

func TestResultObjectEventFactory(t *testing.T) {
	f := action.ResultObjectEventFactory{}
	custom := domain.NewEvent("x", "custom")

	tests := []struct {
		name   string
		result any
		want   string
	}{
		{"nil", nil, domain.EventNull},
		{"true", true, domain.EventYes},
		{"false", false, domain.EventNo},
		{"string", "submit", "submit"},
		{"empty string", "", domain.EventNull},
		{"blank string", "  \t", domain.EventNull},
		{"event", custom, "custom"},
		{"event ider", status("approved"), "approved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := f.CreateResultEvent("src", tt.result, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.ID)
		})
	}

	ev, err := f.CreateResultEvent("src", status("approved"), nil)
	require.NoError(t, err)
	assert.Equal(t, status("approved"), ev.Attributes[action.ResultAttribute])

	_, err = f.CreateResultEvent("src", 42, nil)
	assert.Error(t, err)
}
