package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/webflow/internal/presentation/graph"
	"github.com/aretw0/webflow/internal/testutils"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
)

func bookingFlow(t *testing.T) *engine.Flow {
	t.Helper()
	views := &testutils.ViewRecorder{}
	b := dsl.New("booking")
	b.Decision("check").If("flowScope.ready", "details", "cancelled")
	b.View("details", views.Factory("details")).
		On("submit", "pay").
		On("cancel", "cancelled")
	b.Subflow("pay", "payment").On("paid", "booked")
	b.Action("audit", engine.ActionFunc(func(engine.RequestContext) (*domain.Event, error) {
		return engine.Success("audit"), nil
	})).On("success", "booked")
	b.End("booked")
	b.End("cancelled")
	b.Global("abort", "cancelled")
	flow, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return flow
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(bookingFlow(t), nil)

	contains := []string{
		"graph TD",
		"check{\"check\"}",
		"details[/\"details\"/]",
		"pay[[\"pay <br/> ↳ payment\"]]",
		"audit[\"audit\"]",
		"booked((\"booked\"))",
		"check -- \"flowScope.ready\" --> details",
		"check --> cancelled",
		"details -- \"submit\" --> pay",
		"pay -- \"paid\" --> booked",
		"audit -- \"success\" --> booked",
		"global((\"*\"))",
		"global -. \"abort\" .-> cancelled",
		"class check start;",
	}
	for _, want := range contains {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Overlay Styles") {
		t.Error("Expected no overlay section without an overlay")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(bookingFlow(t), &graph.GraphOverlay{
		VisitedStates: []string{"check", "details", "check"},
		CurrentState:  "details",
	})

	if strings.Count(out, "class check visited;") != 1 {
		t.Errorf("Expected visited states to be deduplicated, got:\n%s", out)
	}
	if !strings.Contains(out, "class details current;") {
		t.Errorf("Expected current state class, got:\n%s", out)
	}
}

func TestSanitizeIDs(t *testing.T) {
	views := &testutils.ViewRecorder{}
	b := dsl.New("ids")
	b.View("step-one.a", views.Factory("x")).On("next", "done/now")
	b.End("done/now")
	flow, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	out := graph.GenerateMermaid(flow, nil)
	if !strings.Contains(out, "step_one_a -- \"next\" --> done_now") {
		t.Errorf("Expected sanitized ids, got:\n%s", out)
	}
}
