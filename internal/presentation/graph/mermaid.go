package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/webflow/pkg/engine"
)

// GraphOverlay contains execution data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart of a flow definition.
// It applies semantic styling:
// - View: [/Parallelogram/] (waits for user input)
// - Action: [Rectangle]
// - Decision: {Rhombus}
// - Subflow: [[Subroutine]]
// - End: ((Circle))
// Global transitions are drawn as dotted edges from a shared "*" node.
func GenerateMermaid(flow *engine.Flow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, s := range flow.States() {
		safeID := sanitizeMermaidID(s.ID())
		opener, closer := shape(s.Kind())
		label := s.ID()
		if sub, ok := s.(*engine.SubflowState); ok {
			label = fmt.Sprintf("%s <br/> ↳ %s", s.ID(), quote(sub.Subflow().String()))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		ts, ok := s.(engine.TransitionableState)
		if !ok {
			continue
		}
		for _, t := range ts.Transitions().All() {
			writeEdge(&sb, safeID, t, false)
		}
	}

	if globals := flow.GlobalTransitions(); globals.Len() > 0 {
		sb.WriteString("    global((\"*\"))\n")
		for _, t := range globals.All() {
			writeEdge(&sb, "global", t, true)
		}
	}

	sb.WriteString("\n    classDef start stroke-width:3px;\n")
	if start := flow.StartState(); start != nil {
		fmt.Fprintf(&sb, "    class %s start;\n", sanitizeMermaidID(start.ID()))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if !visited[safeID] && safeID != "" {
				visited[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
		}
	}

	return sb.String()
}

func shape(kind engine.StateKind) (string, string) {
	switch kind {
	case engine.KindView:
		return "[/", "/]"
	case engine.KindDecision:
		return "{", "}"
	case engine.KindSubflow:
		return "[[", "]]"
	case engine.KindEnd:
		return "((", "))"
	}
	return "[", "]"
}

// writeEdge draws one transition. Transitions whose target is only known at runtime,
// or that have no target at all, are skipped.
func writeEdge(sb *strings.Builder, from string, t *engine.Transition, dotted bool) {
	to := t.TargetStateID()
	if to == "" {
		return
	}
	label := edgeLabel(t)
	switch {
	case label == "" && dotted:
		fmt.Fprintf(sb, "    %s -.-> %s\n", from, sanitizeMermaidID(to))
	case label == "":
		fmt.Fprintf(sb, "    %s --> %s\n", from, sanitizeMermaidID(to))
	case dotted:
		fmt.Fprintf(sb, "    %s -. \"%s\" .-> %s\n", from, quote(label), sanitizeMermaidID(to))
	default:
		fmt.Fprintf(sb, "    %s -- \"%s\" --> %s\n", from, quote(label), sanitizeMermaidID(to))
	}
}

func edgeLabel(t *engine.Transition) string {
	if id := t.ID(); id != "" {
		if id == engine.Wildcard {
			return ""
		}
		return id
	}
	if s, ok := t.MatchingCriteria().(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}

// quote escapes double quotes for Mermaid labels.
func quote(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
