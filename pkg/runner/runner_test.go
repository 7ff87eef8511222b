package runner_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/testutils"
	"github.com/aretw0/webflow/pkg/action"
	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/aretw0/webflow/pkg/runner"
)

type fixture struct {
	views *testutils.ViewRecorder
	flows *registry.Flows
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{views: &testutils.ViewRecorder{}, flows: registry.NewFlows()}

	ext, err := action.NewExternalRedirect(expression.Literal("https://example.com/bye"))
	require.NoError(t, err)
	jump, err := action.NewFlowDefinitionRedirect(expression.Literal("other?x=1"))
	require.NoError(t, err)

	wizard, err := dsl.New("wizard").
		View("ask", f.views.Factory("ask")).
		On("next", "done").
		On("leave", "away").
		On("jump", "jumped").Done().
		End("done").Done().
		End("away").FinalResponse(ext).Done().
		End("jumped").FinalResponse(jump).Done().
		Build()
	require.NoError(t, err)
	other, err := dsl.New("other").
		Input("x", false).
		View("landing", f.views.Factory("landing")).On("ok", "end").Done().
		End("end").Done().
		Build()
	require.NoError(t, err)

	require.NoError(t, f.flows.Register(wizard))
	require.NoError(t, f.flows.Register(other))
	return f
}

func (f *fixture) run(t *testing.T, input string, opts ...webflow.Option) (*webflow.Result, string, error) {
	t.Helper()
	exec, err := webflow.New(f.flows, opts...)
	require.NoError(t, err)
	var out bytes.Buffer
	r := runner.New(exec,
		runner.WithInput(strings.NewReader(input)),
		runner.WithOutput(&out),
		runner.WithPrompt(""),
	)
	res, err := r.Run(context.Background(), "wizard", nil)
	return res, out.String(), err
}

func TestRunner_RunsToCompletion(t *testing.T) {
	f := newFixture(t)

	res, out, err := f.run(t, "next\n")
	require.NoError(t, err)
	assert.False(t, res.Paused)
	assert.Equal(t, "done", res.Outcome.ID)
	assert.Contains(t, out, "ask")
	assert.Equal(t, []string{"ask"}, f.views.Renders())
}

func TestRunner_UnknownEventKeepsPrompting(t *testing.T) {
	f := newFixture(t)

	res, out, err := f.run(t, "bogus\nnext")
	require.NoError(t, err)
	assert.Contains(t, out, `no transition for "bogus" in "ask"`)
	assert.Equal(t, "done", res.Outcome.ID)
}

func TestRunner_EmptyLineRefreshes(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.run(t, "\nnext\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"ask", "ask"}, f.views.Renders())
}

func TestRunner_EOFLeavesExecutionPaused(t *testing.T) {
	f := newFixture(t)

	res, _, err := f.run(t, "")
	require.NoError(t, err)
	assert.True(t, res.Paused)
	assert.NotEmpty(t, res.Key)
}

func TestRunner_FollowsExecutionRedirects(t *testing.T) {
	f := newFixture(t)

	res, _, err := f.run(t, "next\n", webflow.WithExecutionAttributes(map[string]any{
		engine.AlwaysRedirectOnPauseAttribute: true,
	}))
	require.NoError(t, err)
	assert.Equal(t, "done", res.Outcome.ID)
	assert.Equal(t, []string{"ask"}, f.views.Renders(), "the redirect renders on the follow-up request")
}

func TestRunner_ExternalRedirectLeaves(t *testing.T) {
	f := newFixture(t)

	res, out, err := f.run(t, "leave\nnext\n")
	require.NoError(t, err)
	assert.Contains(t, out, "-> https://example.com/bye")
	assert.Equal(t, "away", res.Outcome.ID)
}

func TestRunner_FlowDefinitionRedirectStartsFlow(t *testing.T) {
	f := newFixture(t)

	res, _, err := f.run(t, "jump\n")
	require.NoError(t, err)
	assert.Equal(t, "other", res.FlowID)
	assert.True(t, res.Paused)
	assert.Equal(t, []string{"ask", "landing"}, f.views.Renders())
}
