package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/engine"
)

// ValidateFlow checks for unreachable states, missing end states and subflows the
// locator cannot resolve. Transition targets themselves are already checked when the
// flow is built. A nil locator skips the subflow check.
func ValidateFlow(flow *engine.Flow, flows engine.FlowLocator) error {
	var problems []string

	start := flow.StartState()
	if start == nil {
		return fmt.Errorf("flow %q has no start state", flow.ID())
	}

	// Crawler
	visited := make(map[string]bool)
	queue := []string{start.ID()}
	follow := func(ts *engine.TransitionSet) {
		for _, t := range ts.All() {
			if target := t.TargetStateID(); target != "" && !visited[target] {
				queue = append(queue, target)
			}
		}
	}
	follow(flow.GlobalTransitions())
	for _, h := range flow.ExceptionHandlers().All() {
		if th, ok := h.(*engine.TransitionExecutingExceptionHandler); ok {
			queue = append(queue, th.TargetStateID())
		}
	}

	reachesEnd := false
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		s, ok := flow.State(currentID)
		if !ok {
			problems = append(problems, fmt.Sprintf("missing state '%s'", currentID))
			continue
		}
		if s.Kind() == engine.KindEnd {
			reachesEnd = true
		}
		if ts, ok := s.(engine.TransitionableState); ok {
			follow(ts.Transitions())
		}
		for _, h := range s.ExceptionHandlers().All() {
			if th, ok := h.(*engine.TransitionExecutingExceptionHandler); ok && !visited[th.TargetStateID()] {
				queue = append(queue, th.TargetStateID())
			}
		}
		if sub, ok := s.(*engine.SubflowState); ok && flows != nil {
			if problem := checkSubflow(sub, flows); problem != "" {
				problems = append(problems, problem)
			}
		}
	}

	var unreachable []string
	for _, s := range flow.States() {
		if !visited[s.ID()] {
			unreachable = append(unreachable, s.ID())
		}
	}
	sort.Strings(unreachable)
	for _, id := range unreachable {
		problems = append(problems, fmt.Sprintf("unreachable state '%s'", id))
	}
	if !reachesEnd {
		problems = append(problems, "no end state is reachable")
	}

	if len(problems) > 0 {
		return fmt.Errorf("flow %q: found %d problems:\n- %s", flow.ID(), len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

// checkSubflow resolves subflow ids known at build time.
func checkSubflow(s *engine.SubflowState, flows engine.FlowLocator) string {
	lit, ok := s.Subflow().(expression.Static)
	if !ok {
		return ""
	}
	id := fmt.Sprint(lit.Value)
	if _, err := flows.Flow(id); err != nil {
		return fmt.Sprintf("state '%s' starts unknown subflow '%s'", s.ID(), id)
	}
	return ""
}
