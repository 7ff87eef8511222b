package dsl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/engine"
)

// Builder manages the construction of one flow.
type Builder struct {
	id       string
	states   []*StateBuilder
	byID     map[string]*StateBuilder
	start    string
	inputs   []*mapping.Mapping
	outputs  []*mapping.Mapping
	flowOps  []func(*engine.Flow) error
	problems []error
}

// New creates a builder for the flow with the given id.
func New(flowID string) *Builder {
	return &Builder{
		id:   flowID,
		byID: make(map[string]*StateBuilder),
	}
}

func (b *Builder) add(id string, kind engine.StateKind, create func(*engine.Flow) (engine.State, error)) *StateBuilder {
	if sb, ok := b.byID[id]; ok {
		if sb.kind != kind {
			b.fail(fmt.Errorf("state %q declared as both %s and %s", id, sb.kind, kind))
		}
		return sb
	}
	sb := &StateBuilder{id: id, kind: kind, create: create, builder: b}
	b.states = append(b.states, sb)
	b.byID[id] = sb
	return sb
}

func (b *Builder) fail(err error) {
	b.problems = append(b.problems, err)
}

// View adds a view state rendered by factory.
func (b *Builder) View(id string, factory engine.ViewFactory) *StateBuilder {
	return b.add(id, engine.KindView, func(f *engine.Flow) (engine.State, error) {
		return engine.NewViewState(f, id, factory)
	})
}

// Action adds an action state executing actions in order.
func (b *Builder) Action(id string, actions ...engine.Action) *StateBuilder {
	return b.add(id, engine.KindAction, func(f *engine.Flow) (engine.State, error) {
		return engine.NewActionState(f, id, actions...)
	})
}

// Decision adds a decision state; route it with If.
func (b *Builder) Decision(id string) *StateBuilder {
	return b.add(id, engine.KindDecision, func(f *engine.Flow) (engine.State, error) {
		return engine.NewDecisionState(f, id)
	})
}

// Subflow adds a subflow state starting the flow with id subflowID.
func (b *Builder) Subflow(id, subflowID string) *StateBuilder {
	return b.add(id, engine.KindSubflow, func(f *engine.Flow) (engine.State, error) {
		return engine.NewSubflowState(f, id, expression.Literal(subflowID))
	})
}

// End adds an end state.
func (b *Builder) End(id string) *StateBuilder {
	return b.add(id, engine.KindEnd, func(f *engine.Flow) (engine.State, error) {
		return engine.NewEndState(f, id)
	})
}

// Start sets the start state. By default the first state added starts the flow.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Global adds a global transition on event to target.
func (b *Builder) Global(event, target string, opts ...engine.TransitionOption) *Builder {
	b.flowOps = append(b.flowOps, func(f *engine.Flow) error {
		f.GlobalTransitions().Add(engine.NewTransition(append([]engine.TransitionOption{engine.OnEvent(event), engine.To(target)}, opts...)...))
		return nil
	})
	return b
}

// Var declares a flow variable.
func (b *Builder) Var(name string, factory engine.VariableValueFactory) *Builder {
	b.flowOps = append(b.flowOps, func(f *engine.Flow) error {
		f.AddVariable(engine.NewFlowVariable(name, factory))
		return nil
	})
	return b
}

// Input maps the input attribute name into flow scope.
func (b *Builder) Input(name string, required bool) *Builder {
	m, err := mapping.Paths(name, "flowScope."+name)
	if err != nil {
		b.fail(fmt.Errorf("input %q: %w", name, err))
		return b
	}
	m.Required = required
	b.inputs = append(b.inputs, m)
	return b
}

// InputMapping adds a fully configured input mapping, from the input map to the
// request context.
func (b *Builder) InputMapping(m *mapping.Mapping) *Builder {
	b.inputs = append(b.inputs, m)
	return b
}

// Attr sets a flow attribute.
func (b *Builder) Attr(name string, value any) *Builder {
	b.flowOps = append(b.flowOps, func(f *engine.Flow) error {
		f.Attributes().Put(name, value)
		return nil
	})
	return b
}

// Output maps the value of source, evaluated against the request, to the output
// attribute name when the flow ends.
func (b *Builder) Output(name, source string) *Builder {
	m, err := mapping.Paths(source, name)
	if err != nil {
		b.fail(fmt.Errorf("output %q: %w", name, err))
		return b
	}
	b.outputs = append(b.outputs, m)
	return b
}

// OnStart adds flow start actions.
func (b *Builder) OnStart(actions ...engine.Action) *Builder {
	b.flowOps = append(b.flowOps, func(f *engine.Flow) error {
		f.StartActions().Add(actions...)
		return nil
	})
	return b
}

// OnEnd adds flow end actions.
func (b *Builder) OnEnd(actions ...engine.Action) *Builder {
	b.flowOps = append(b.flowOps, func(f *engine.Flow) error {
		f.EndActions().Add(actions...)
		return nil
	})
	return b
}

// Catch routes errors matching targets (all errors when none are given) to state.
func (b *Builder) Catch(state string, targets ...error) *Builder {
	b.flowOps = append(b.flowOps, func(f *engine.Flow) error {
		f.ExceptionHandlers().Add(engine.NewTransitionExecutingExceptionHandler(state, targets...))
		return nil
	})
	return b
}

// Build creates and validates the flow, reporting every problem found.
func (b *Builder) Build() (*engine.Flow, error) {
	flow := engine.NewFlow(b.id)
	errs := append([]error(nil), b.problems...)
	for _, sb := range b.states {
		state, err := sb.create(flow)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, op := range sb.ops {
			if err := op(state); err != nil {
				errs = append(errs, fmt.Errorf("state %q: %w", sb.id, err))
			}
		}
	}
	for _, op := range b.flowOps {
		if err := op(flow); err != nil {
			errs = append(errs, err)
		}
	}
	if len(b.inputs) > 0 {
		flow.SetInputMapper(mapping.NewMapper(b.inputs))
	}
	if len(b.outputs) > 0 {
		flow.SetOutputMapper(mapping.NewMapper(b.outputs))
	}
	if b.start != "" {
		if err := flow.SetStartState(b.start); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		if err := flow.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("build flow %q: %w", b.id, errors.Join(errs...))
	}
	return flow, nil
}

// ParseCondition parses a condition written either as a bare path or query, or as
// "#{...}" text.
func ParseCondition(raw string) (expression.Expression, error) {
	if strings.Contains(raw, "#{") {
		return expression.Parse(raw)
	}
	return expression.ParseInner(raw)
}
