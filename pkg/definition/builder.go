package definition

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"reflect"
	"time"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/action"
	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/aretw0/webflow/pkg/view"
)

// ViewResolver returns the view factory for a view name of a state.
type ViewResolver func(name string, state *StateModel) (engine.ViewFactory, error)

// Builder turns flow models into engine flows.
type Builder struct {
	actions   *registry.Actions
	templates *template.Template
	resolver  ViewResolver
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithActions sets the registry named actions are looked up in.
func WithActions(a *registry.Actions) Option {
	return func(b *Builder) { b.actions = a }
}

// WithTemplates renders views with the named templates of t.
func WithTemplates(t *template.Template) Option {
	return func(b *Builder) { b.templates = t }
}

// WithViewResolver replaces template lookup for view names.
func WithViewResolver(r ViewResolver) Option {
	return func(b *Builder) { b.resolver = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{actions: registry.NewActions(), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates the flow described by m.
func (b *Builder) Build(m *FlowModel) (*engine.Flow, error) {
	fb := dsl.New(m.ID)
	var errs []error
	fail := func(err error) { errs = append(errs, err) }

	if m.Start != "" {
		fb.Start(m.Start)
	}
	for name, v := range m.Attributes {
		fb.Attr(name, v)
	}
	for _, in := range m.Inputs {
		mp, err := inputMapping(in)
		if err != nil {
			fail(err)
			continue
		}
		fb.InputMapping(mp)
	}
	for _, out := range m.Outputs {
		fb.Output(out.Name, out.Value)
	}
	for _, v := range m.Vars {
		fb.Var(v.Name, copyFactory(v.Value))
	}
	if acts, err := b.actionList(m.OnStart); err != nil {
		fail(fmt.Errorf("on_start: %w", err))
	} else if len(acts) > 0 {
		fb.OnStart(acts...)
	}
	if acts, err := b.actionList(m.OnEnd); err != nil {
		fail(fmt.Errorf("on_end: %w", err))
	} else if len(acts) > 0 {
		fb.OnEnd(acts...)
	}
	for _, t := range m.GlobalTransitions {
		opts, err := b.transitionOptions(t)
		if err != nil {
			fail(fmt.Errorf("global transition on %q: %w", t.On, err))
			continue
		}
		fb.Global(t.On, t.To, opts...)
	}
	for _, h := range m.ExceptionHandlers {
		fb.Catch(h.To)
	}

	for i := range m.States {
		if err := b.state(fb, &m.States[i]); err != nil {
			fail(fmt.Errorf("state %q: %w", m.States[i].ID, err))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("build flow %q: %w", m.ID, errors.Join(errs...))
	}

	flow, err := fb.Build()
	if err != nil {
		return nil, err
	}
	b.logger.Debug("flow built", "flow", m.ID, "states", len(m.States))
	return flow, nil
}

func (b *Builder) state(fb *dsl.Builder, s *StateModel) error {
	var sb *dsl.StateBuilder
	switch s.Type {
	case "view":
		factory, err := b.viewFactory(s)
		if err != nil {
			return err
		}
		sb = fb.View(s.ID, factory)
		if s.Redirect != nil {
			sb.Redirect(*s.Redirect)
		}
		if s.Popup {
			sb.Popup()
		}
		for _, v := range s.Vars {
			sb.Var(v.Name, copyFactory(v.Value))
		}
		acts, err := b.actionList(s.OnRender)
		if err != nil {
			return fmt.Errorf("on_render: %w", err)
		}
		if len(acts) > 0 {
			sb.Render(acts...)
		}
	case "action":
		acts, err := b.actionList(s.Actions)
		if err != nil {
			return err
		}
		sb = fb.Action(s.ID, acts...)
	case "decision":
		sb = fb.Decision(s.ID)
		for _, rule := range s.If {
			sb.If(rule.Test, rule.Then, rule.Else)
		}
	case "subflow":
		if s.Subflow == "" {
			return errors.New("subflow is required")
		}
		sb = fb.Subflow(s.ID, s.Subflow)
		for _, in := range s.Input {
			sb.Pass(in.Name, in.Value)
		}
		for _, out := range s.Output {
			sb.Receive(out.Name, out.Value)
		}
	case "end":
		sb = fb.End(s.ID)
		for _, out := range s.Output {
			sb.Output(out.Name, out.Value)
		}
		if s.View != "" {
			factory, err := b.viewFactory(s)
			if err != nil {
				return err
			}
			sb.FinalResponse(renderAction(factory))
		}
	default:
		return fmt.Errorf("unknown state type %q", s.Type)
	}

	if err := checkFields(s); err != nil {
		return err
	}
	for name, v := range s.Attributes {
		sb.Attr(name, v)
	}
	acts, err := b.actionList(s.OnEntry)
	if err != nil {
		return fmt.Errorf("on_entry: %w", err)
	}
	if len(acts) > 0 {
		sb.Entry(acts...)
	}
	if acts, err = b.actionList(s.OnExit); err != nil {
		return fmt.Errorf("on_exit: %w", err)
	}
	if len(acts) > 0 {
		sb.Exit(acts...)
	}
	for _, t := range s.Transitions {
		opts, err := b.transitionOptions(t)
		if err != nil {
			return fmt.Errorf("transition on %q: %w", t.On, err)
		}
		sb.OnWith(t.On, t.To, opts...)
	}
	for _, h := range s.ExceptionHandlers {
		sb.Catch(h.To)
	}
	return nil
}

// checkFields rejects settings that belong to another kind of state.
func checkFields(s *StateModel) error {
	var bad []string
	add := func(set bool, name string) {
		if set {
			bad = append(bad, name)
		}
	}
	if s.Type != "view" {
		add(s.Redirect != nil, "redirect")
		add(s.Popup, "popup")
		add(s.Model != "", "model")
		add(len(s.Bindings) > 0, "bindings")
		add(len(s.Vars) > 0, "vars")
		add(len(s.OnRender) > 0, "on_render")
	}
	if s.Type != "view" && s.Type != "end" {
		add(s.View != "", "view")
	}
	if s.Type != "action" {
		add(len(s.Actions) > 0, "actions")
	}
	if s.Type != "decision" {
		add(len(s.If) > 0, "if")
	}
	if s.Type != "subflow" {
		add(s.Subflow != "", "subflow")
		add(len(s.Input) > 0, "input")
	}
	if s.Type != "subflow" && s.Type != "end" {
		add(len(s.Output) > 0, "output")
	}
	if s.Type == "end" {
		add(len(s.OnExit) > 0, "on_exit")
		add(len(s.Transitions) > 0, "transitions")
	}
	if len(bad) > 0 {
		return fmt.Errorf("%v not supported by %s states", bad, s.Type)
	}
	return nil
}

func (b *Builder) viewFactory(s *StateModel) (engine.ViewFactory, error) {
	name := s.View
	if name == "" {
		name = s.ID
	}
	if b.resolver != nil {
		return b.resolver(name, s)
	}
	if b.templates == nil {
		return nil, fmt.Errorf("view %q: no templates configured", name)
	}
	var opts []view.TemplateOption
	if s.Model != "" {
		model, err := dsl.ParseCondition(s.Model)
		if err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		opts = append(opts, view.WithModel(model))
	}
	for _, bm := range s.Bindings {
		opts = append(opts, view.WithBindings(view.Binding{Param: bm.Param, Property: bm.Property, Required: bm.Required}))
	}
	return view.NewTemplateViewFactory(b.templates, name, opts...)
}

// renderAction answers the final request of a flow with a view.
func renderAction(factory engine.ViewFactory) engine.Action {
	return engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		v, err := factory.GetView(rc)
		if err != nil {
			return nil, err
		}
		if err := v.Render(); err != nil {
			return nil, err
		}
		return engine.Success("finalResponse"), nil
	})
}

func (b *Builder) transitionOptions(t TransitionModel) ([]engine.TransitionOption, error) {
	var opts []engine.TransitionOption
	h, err := domain.ParseHistory(t.History)
	if err != nil {
		return nil, err
	}
	if t.History != "" {
		opts = append(opts, engine.WithHistory(h))
	}
	var guards []engine.TransitionCriteria
	if t.If != "" {
		expr, err := dsl.ParseCondition(t.If)
		if err != nil {
			return nil, fmt.Errorf("if: %w", err)
		}
		guards = append(guards, engine.ExpressionCriteria{Expr: expr})
	}
	acts, err := b.actionList(t.Actions)
	if err != nil {
		return nil, err
	}
	if len(acts) > 0 {
		guards = append(guards, engine.ActionCriteria(acts...))
	}
	switch len(guards) {
	case 0:
	case 1:
		opts = append(opts, engine.Guard(guards[0]))
	default:
		opts = append(opts, engine.Guard(engine.And(guards...)))
	}
	return opts, nil
}

func (b *Builder) actionList(models []ActionModel) ([]engine.Action, error) {
	var out []engine.Action
	for i, m := range models {
		a, err := b.action(m)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (b *Builder) action(m ActionModel) (engine.Action, error) {
	set := 0
	for _, v := range []string{m.Name, m.Evaluate, m.Set, m.ExternalRedirect, m.FlowRedirect} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of name, evaluate, set, external_redirect or flow_redirect is required")
	}
	if m.Result != "" && m.Evaluate == "" {
		return nil, errors.New("result requires evaluate")
	}

	switch {
	case m.Name != "":
		return b.actions.Lookup(m.Name)
	case m.Evaluate != "":
		expr, err := dsl.ParseCondition(m.Evaluate)
		if err != nil {
			return nil, err
		}
		var opts []action.EvaluateOption
		if m.Result != "" {
			target, err := expression.NewPath(m.Result)
			if err != nil {
				return nil, fmt.Errorf("result: %w", err)
			}
			opts = append(opts, action.StoreResult(target, nil))
		}
		return action.NewEvaluate(expr, opts...)
	case m.Set != "":
		target, err := expression.NewPath(m.Set)
		if err != nil {
			return nil, err
		}
		value, err := expression.Parse(m.Value)
		if err != nil {
			return nil, err
		}
		return action.NewSet(target, value, nil)
	case m.ExternalRedirect != "":
		loc, err := expression.Parse(m.ExternalRedirect)
		if err != nil {
			return nil, err
		}
		return action.NewExternalRedirect(loc)
	default:
		target, err := expression.Parse(m.FlowRedirect)
		if err != nil {
			return nil, err
		}
		return action.NewFlowDefinitionRedirect(target)
	}
}

var inputTypes = map[string]reflect.Type{
	"string":   reflect.TypeOf(""),
	"int":      reflect.TypeOf(0),
	"int64":    reflect.TypeOf(int64(0)),
	"float64":  reflect.TypeOf(float64(0)),
	"bool":     reflect.TypeOf(false),
	"duration": reflect.TypeOf(time.Duration(0)),
	"time":     reflect.TypeOf(time.Time{}),
}

func inputMapping(in InputModel) (*mapping.Mapping, error) {
	m, err := mapping.Paths(in.Name, engine.VarFlowScope+"."+in.Name)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", in.Name, err)
	}
	if in.Required {
		m.AsRequired()
	}
	if in.Type != "" {
		t, ok := inputTypes[in.Type]
		if !ok {
			return nil, fmt.Errorf("input %q: unknown type %q", in.Name, in.Type)
		}
		m.As(t)
	}
	return m, nil
}

// copyFactory initialises a variable with a fresh copy of a document value, so
// executions never share mutable maps or slices.
func copyFactory(v any) engine.VariableValueFactory {
	return engine.ValueFactoryFuncs{
		Create: func(engine.RequestContext) (any, error) { return deepCopy(v), nil },
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}
