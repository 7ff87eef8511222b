package dsl

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/engine"
)

// StateBuilder provides a fluent API for configuring a state.
// Options that do not apply to the state's kind are reported by Build.
type StateBuilder struct {
	id      string
	kind    engine.StateKind
	create  func(*engine.Flow) (engine.State, error)
	ops     []func(engine.State) error
	builder *Builder
}

func (s *StateBuilder) apply(op func(engine.State) error) *StateBuilder {
	s.ops = append(s.ops, op)
	return s
}

func (s *StateBuilder) unsupported(option string) error {
	return fmt.Errorf("%s is not supported by %s states", option, s.kind)
}

// On adds a transition on event to target.
func (s *StateBuilder) On(event, target string) *StateBuilder {
	return s.OnWith(event, target)
}

// OnWith adds a transition on event to target with extra options such as a guard or a
// history policy.
func (s *StateBuilder) OnWith(event, target string, opts ...engine.TransitionOption) *StateBuilder {
	return s.apply(func(st engine.State) error {
		ts, ok := st.(engine.TransitionableState)
		if !ok {
			return s.unsupported("transitions")
		}
		base := []engine.TransitionOption{engine.OnEvent(event)}
		if target != "" {
			base = append(base, engine.To(target))
		}
		ts.Transitions().Add(engine.NewTransition(append(base, opts...)...))
		return nil
	})
}

// Go adds a transition to target taken on any event.
func (s *StateBuilder) Go(target string) *StateBuilder {
	return s.On(engine.Wildcard, target)
}

// If adds a decision rule; condition is a path or a "#{...}" expression. An empty
// elseTarget adds no else branch.
func (s *StateBuilder) If(condition, thenTarget, elseTarget string) *StateBuilder {
	expr, err := ParseCondition(condition)
	return s.apply(func(st engine.State) error {
		d, ok := st.(*engine.DecisionState)
		if !ok {
			return s.unsupported("if")
		}
		if err != nil {
			return fmt.Errorf("if %q: %w", condition, err)
		}
		d.AddIf(engine.ExpressionCriteria{Expr: expr}, thenTarget, elseTarget)
		return nil
	})
}

// Entry adds entry actions.
func (s *StateBuilder) Entry(actions ...engine.Action) *StateBuilder {
	return s.apply(func(st engine.State) error {
		st.EntryActions().Add(actions...)
		return nil
	})
}

// Exit adds exit actions.
func (s *StateBuilder) Exit(actions ...engine.Action) *StateBuilder {
	return s.apply(func(st engine.State) error {
		ts, ok := st.(engine.TransitionableState)
		if !ok {
			return s.unsupported("exit actions")
		}
		ts.ExitActions().Add(actions...)
		return nil
	})
}

// Render adds render actions to a view state.
func (s *StateBuilder) Render(actions ...engine.Action) *StateBuilder {
	return s.view("render actions", func(v *engine.ViewState) {
		v.RenderActions().Add(actions...)
	})
}

// Redirect forces or suppresses the redirect before a view state renders.
func (s *StateBuilder) Redirect(redirect bool) *StateBuilder {
	return s.view("redirect", func(v *engine.ViewState) { v.SetRedirect(redirect) })
}

// Popup shows a view state in a popup.
func (s *StateBuilder) Popup() *StateBuilder {
	return s.view("popup", func(v *engine.ViewState) { v.SetPopup(true) })
}

// Var declares a view variable.
func (s *StateBuilder) Var(name string, factory engine.VariableValueFactory) *StateBuilder {
	return s.view("view variables", func(v *engine.ViewState) {
		v.AddVariable(engine.NewViewVariable(name, factory))
	})
}

func (s *StateBuilder) view(option string, fn func(*engine.ViewState)) *StateBuilder {
	return s.apply(func(st engine.State) error {
		v, ok := st.(*engine.ViewState)
		if !ok {
			return s.unsupported(option)
		}
		fn(v)
		return nil
	})
}

// Catch routes errors raised in this state to target.
func (s *StateBuilder) Catch(target string, errs ...error) *StateBuilder {
	return s.apply(func(st engine.State) error {
		st.ExceptionHandlers().Add(engine.NewTransitionExecutingExceptionHandler(target, errs...))
		return nil
	})
}

// Attr sets a state attribute.
func (s *StateBuilder) Attr(name string, value any) *StateBuilder {
	return s.apply(func(st engine.State) error {
		st.Attributes().Put(name, value)
		return nil
	})
}

// Pass maps the value of source in the parent request to the subflow input attribute
// name.
func (s *StateBuilder) Pass(name, source string) *StateBuilder {
	return s.subflowMapping(source, name, true)
}

// Receive maps the subflow output attribute name to target in the parent request.
func (s *StateBuilder) Receive(name, target string) *StateBuilder {
	return s.subflowMapping(name, target, false)
}

func (s *StateBuilder) subflowMapping(source, target string, input bool) *StateBuilder {
	m, err := mapping.Paths(source, target)
	return s.apply(func(st engine.State) error {
		sub, ok := st.(*engine.SubflowState)
		if !ok {
			return s.unsupported("subflow mappings")
		}
		if err != nil {
			return err
		}
		gm, _ := sub.AttributeMapper().(*engine.GenericSubflowAttributeMapper)
		if gm == nil {
			gm = &engine.GenericSubflowAttributeMapper{}
			sub.SetAttributeMapper(gm)
		}
		if input {
			gm.Input = appendMapping(gm.Input, m)
		} else {
			gm.Output = appendMapping(gm.Output, m)
		}
		return nil
	})
}

// Output maps the value of source to the output attribute name of an end state.
func (s *StateBuilder) Output(name, source string) *StateBuilder {
	m, err := mapping.Paths(source, name)
	return s.apply(func(st engine.State) error {
		end, ok := st.(*engine.EndState)
		if !ok {
			return s.unsupported("output")
		}
		if err != nil {
			return err
		}
		end.SetOutputMapper(appendMapping(end.OutputMapper(), m))
		return nil
	})
}

// FinalResponse sets the action answering the request when the flow ends.
func (s *StateBuilder) FinalResponse(a engine.Action) *StateBuilder {
	return s.apply(func(st engine.State) error {
		end, ok := st.(*engine.EndState)
		if !ok {
			return s.unsupported("final response")
		}
		end.SetFinalResponseAction(a)
		return nil
	})
}

// Done returns the flow builder, to continue a chain.
func (s *StateBuilder) Done() *Builder { return s.builder }

func appendMapping(m mapping.Mapper, add *mapping.Mapping) mapping.Mapper {
	var existing []*mapping.Mapping
	if dm, ok := m.(*mapping.DefaultMapper); ok {
		existing = dm.Mappings()
	}
	return mapping.NewMapper(append(existing, add))
}
