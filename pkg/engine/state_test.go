package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/internal/testutils"
	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/scope"
)

func returning(id string, calls *[]string) engine.Action {
	return engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
		*calls = append(*calls, id)
		return domain.NewEvent("test", id), nil
	})
}

func TestActionState_TriesActionsInOrder(t *testing.T) {
	var calls []string
	views := &testutils.ViewRecorder{}
	flow := engine.NewFlow("f")
	act := must(engine.NewActionState(flow, "load", returning("skip", &calls), returning("success", &calls), returning("never", &calls)))
	act.Transitions().Add(engine.NewTransition(engine.OnEvent("success"), engine.To("show")))
	must(engine.NewViewState(flow, "show", views.Factory("show")))
	require.NoError(t, flow.Validate())

	exec := engine.NewExecution(flow)
	start(t, exec)

	assert.Equal(t, []string{"skip", "success"}, calls)
	assert.Equal(t, "show", currentState(t, exec))
}

func TestActionState_NoActionEventMatches(t *testing.T) {
	var calls []string
	flow := engine.NewFlow("f")
	act := must(engine.NewActionState(flow, "load", returning("a", &calls), returning("b", &calls)))
	act.Transitions().Add(engine.NewTransition(engine.OnEvent("success"), engine.To("end")))
	must(engine.NewEndState(flow, "end"))

	err := engine.NewExecution(flow).Start(context.Background(), nil, external.NewLocal(nil))

	var nm *engine.NoMatchingTransitionError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, "load", nm.StateID)
	assert.Equal(t, []string{"a", "b"}, nm.Tried)
}

func TestActionState_WithoutActionsIsInvalid(t *testing.T) {
	flow := engine.NewFlow("f")
	must(engine.NewActionState(flow, "empty"))

	var de *engine.DefinitionError
	require.ErrorAs(t, flow.Validate(), &de)
	assert.Equal(t, "empty", de.StateID)
}

func TestDecisionState_Routes(t *testing.T) {
	build := func() *engine.Flow {
		flow := engine.NewFlow("f")
		flow.SetInputMapper(mapping.NewMapper([]*mapping.Mapping{mapping.MustPaths("vip", "flowScope.vip")}))
		must(engine.NewDecisionState(flow, "check")).
			AddIf(engine.ExpressionCriteria{Expr: expression.MustParse("#{flowScope.vip}")}, "lounge", "queue")
		must(engine.NewEndState(flow, "lounge"))
		must(engine.NewEndState(flow, "queue"))
		require.NoError(t, flow.Validate())
		return flow
	}

	for _, tt := range []struct {
		vip  any
		want string
	}{
		{true, "lounge"},
		{"true", "lounge"},
		{false, "queue"},
		{nil, "queue"},
	} {
		input := scope.New()
		input.Put("vip", tt.vip)
		exec := engine.NewExecution(build())
		require.NoError(t, exec.Start(context.Background(), input, external.NewLocal(nil)))
		require.True(t, exec.HasEnded())
		assert.Equal(t, tt.want, exec.Outcome().ID, "vip=%v", tt.vip)
	}
}

func TestState_DuplicateIDRejected(t *testing.T) {
	flow := engine.NewFlow("f")
	must(engine.NewEndState(flow, "end"))

	_, err := engine.NewEndState(flow, "end")
	var de *engine.DefinitionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "end", de.StateID)
}

func TestFlow_ValidateUnknownTarget(t *testing.T) {
	flow := engine.NewFlow("f")
	must(engine.NewViewState(flow, "form", (&testutils.ViewRecorder{}).Factory("form"))).
		Transitions().Add(engine.NewTransition(engine.OnEvent("go"), engine.To("nowhere")))

	var de *engine.DefinitionError
	require.ErrorAs(t, flow.Validate(), &de)
	assert.Equal(t, "form", de.StateID)
}

func TestEndState_FinalResponseOnlyForRoot(t *testing.T) {
	var responses int
	final := engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		responses++
		return nil, nil
	})

	flow := engine.NewFlow("f")
	must(engine.NewEndState(flow, "end")).SetFinalResponseAction(final)
	ext := external.NewLocal(nil)
	require.NoError(t, engine.NewExecution(flow).Start(context.Background(), nil, ext))

	assert.Equal(t, 1, responses)
	assert.True(t, ext.IsResponseComplete())
}

// subflowFixture: main starts child, which collects an amount and returns it.
func subflowFixture(t *testing.T, views *testutils.ViewRecorder) (*engine.Flow, flows) {
	t.Helper()
	child := engine.NewFlow("child")
	child.SetInputMapper(mapping.NewMapper([]*mapping.Mapping{mapping.MustPaths("amount", "flowScope.amount")}))
	child.StartActions().Add(engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		rc.FlowScope().Put("secret", "child only")
		return nil, nil
	}))
	must(engine.NewViewState(child, "edit", views.Factory("edit"))).
		Transitions().Add(engine.NewTransition(engine.OnEvent("finish"), engine.To("saved")))
	must(engine.NewEndState(child, "saved")).
		SetOutputMapper(mapping.NewMapper([]*mapping.Mapping{mapping.MustPaths("flowScope.amount", "total")}))

	main := engine.NewFlow("main")
	main.StartActions().Add(engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		rc.FlowScope().Put("amount", 10)
		rc.FlowScope().Put("owner", "main")
		return nil, nil
	}))
	sub := must(engine.NewSubflowState(main, "collect", expression.Literal("child")))
	sub.SetAttributeMapper(engine.GenericSubflowAttributeMapper{
		Input:  mapping.NewMapper([]*mapping.Mapping{mapping.MustPaths("flowScope.amount", "amount")}),
		Output: mapping.NewMapper([]*mapping.Mapping{mapping.MustPaths("total", "flowScope.total")}),
	})
	sub.Transitions().Add(engine.NewTransition(engine.OnEvent("saved"), engine.To("review")))
	must(engine.NewViewState(main, "review", views.Factory("review")))
	require.NoError(t, main.Validate())
	require.NoError(t, child.Validate())
	return main, flows{"main": main, "child": child}
}

func TestSubflowState_RunsChildAndMapsOutput(t *testing.T) {
	views := &testutils.ViewRecorder{}
	main, locator := subflowFixture(t, views)
	exec := engine.NewExecution(main, engine.WithFlowLocator(locator))

	start(t, exec)

	require.Len(t, exec.Sessions(), 2)
	child, err := exec.ActiveSession()
	require.NoError(t, err)
	assert.Equal(t, "child", child.Definition().ID())
	assert.False(t, child.IsRoot())
	assert.Equal(t, 10, child.Scope().Get("amount"))
	assert.False(t, child.Scope().Contains("owner"))
	assert.Equal(t, "collect", child.Parent().State().ID())

	signal(t, exec, "finish")

	require.Len(t, exec.Sessions(), 1)
	parent, err := exec.ActiveSession()
	require.NoError(t, err)
	assert.Equal(t, "review", parent.State().ID())
	assert.Equal(t, 10, parent.Scope().Get("total"))
	assert.Equal(t, "main", parent.Scope().Get("owner"))
	assert.False(t, parent.Scope().Contains("secret"))
	assert.True(t, exec.IsActive())
	assert.Equal(t, []string{"edit", "review"}, views.Renders())
}

func TestSubflowState_UnknownFlow(t *testing.T) {
	main := engine.NewFlow("main")
	must(engine.NewSubflowState(main, "collect", expression.Literal("missing")))

	err := engine.NewExecution(main).Start(context.Background(), nil, external.NewLocal(nil))
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}
