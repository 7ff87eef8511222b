package view

import (
	"errors"
	"fmt"
	"html/template"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/binding/mapping"
	"github.com/aretw0/webflow/pkg/binding/message"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// Binding maps one request parameter onto a property of the view model.
type Binding struct {
	Param    string
	Property string
	Required bool
}

// TemplateViewFactory renders a named html/template and binds submitted parameters
// onto an optional model object before signalling the user event.
type TemplateViewFactory struct {
	templates *template.Template
	name      string
	model     expression.Expression
	bindings  []Binding
	validate  *validator.Validate
}

// TemplateOption configures a TemplateViewFactory.
type TemplateOption func(*TemplateViewFactory)

// WithModel sets the expression resolving the object parameters are bound to.
func WithModel(model expression.Expression) TemplateOption {
	return func(f *TemplateViewFactory) { f.model = model }
}

// WithBindings restricts binding to the given parameters. Without bindings every
// parameter not starting with "_" is bound to the property of the same name, and
// parameters without a matching property are ignored.
func WithBindings(b ...Binding) TemplateOption {
	return func(f *TemplateViewFactory) { f.bindings = append(f.bindings, b...) }
}

// WithValidator replaces the validator run on struct models after binding.
func WithValidator(v *validator.Validate) TemplateOption {
	return func(f *TemplateViewFactory) { f.validate = v }
}

func NewTemplateViewFactory(templates *template.Template, name string, opts ...TemplateOption) (*TemplateViewFactory, error) {
	if templates == nil || templates.Lookup(name) == nil {
		return nil, fmt.Errorf("template %q is not defined", name)
	}
	f := &TemplateViewFactory{
		templates: templates,
		name:      name,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *TemplateViewFactory) Name() string { return f.name }

func (f *TemplateViewFactory) GetView(rc engine.RequestContext) (engine.View, error) {
	return &templateView{factory: f, rc: rc, eventID: FindEventID(rc.RequestParameters())}, nil
}

type templateView struct {
	factory   *TemplateViewFactory
	rc        engine.RequestContext
	eventID   string
	event     *domain.Event
	processed bool
}

// Render executes the template with the request context as data: every scoped attribute
// plus "model", "messages", "flowExecutionUrl" and, after a redirect following a failed
// submission, "submitted".
func (v *templateView) Render() error {
	data := v.rc.AsMap()
	if v.factory.model != nil {
		model, err := v.factory.model.GetValue(v.rc)
		if err != nil {
			return err
		}
		data["model"] = model
	}
	data["messages"] = v.rc.MessageContext().All()
	data[engine.VarFlowExecutionURL] = v.rc.FlowExecutionURL()
	if submitted, ok := v.rc.FlashScope().Lookup(engine.UserEventStateAttribute); ok {
		data["submitted"] = submitted
	}
	return v.factory.templates.ExecuteTemplate(v.rc.ExternalContext().ResponseWriter(), v.factory.name, data)
}

func (v *templateView) UserEventQueued() bool { return v.eventID != "" }

// ProcessUserEvent binds and validates the model. Any error message withholds the
// flow event so the view is shown again.
func (v *templateView) ProcessUserEvent() error {
	v.processed = true
	messages := v.rc.MessageContext()
	if v.factory.model != nil {
		model, err := v.factory.model.GetValue(v.rc)
		if err != nil {
			return err
		}
		if model != nil {
			v.bind(model, messages)
			if err := v.validate(model, messages); err != nil {
				return err
			}
		}
	}
	if messages.HasErrors() {
		v.rc.Logger().Debug("user event withheld", "event", v.eventID, "errors", messages.Len())
		return nil
	}
	v.event = domain.NewEvent(v.factory.name, v.eventID)
	return nil
}

func (v *templateView) bind(model any, messages *message.Context) {
	params := v.rc.RequestParameters()
	explicit := len(v.factory.bindings) > 0
	var mappings []*mapping.Mapping
	if explicit {
		for _, b := range v.factory.bindings {
			m, err := mapping.Paths(b.Param, b.Property)
			if err != nil {
				messages.Errorf(b.Param, "%v", err)
				continue
			}
			if b.Required {
				m.AsRequired()
			}
			mappings = append(mappings, m)
		}
	} else {
		for _, name := range params.Names() {
			if strings.HasPrefix(name, "_") || !expression.IsPath(name) {
				continue
			}
			mappings = append(mappings, mapping.MustPaths(name, name))
		}
	}
	results := mapping.NewMapper(mappings, mapping.WithConversionService(v.rc.ConversionService())).Map(params, model)
	for _, res := range results.Errors() {
		if !explicit && (res.Code == mapping.TargetAccessError || res.Code == mapping.SourceAccessError) {
			continue
		}
		messages.Add(message.FromResult(res))
	}
}

func (v *templateView) validate(model any, messages *message.Context) error {
	rv := reflect.ValueOf(model)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	err := v.factory.validate.Struct(model)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			messages.Add(message.Message{
				Source:   fe.Field(),
				Code:     fe.Tag(),
				Text:     fmt.Sprintf("%s failed the %q check", fe.Field(), fe.Tag()),
				Severity: message.Error,
			})
		}
		return nil
	}
	return err
}

func (v *templateView) HasFlowEvent() bool { return v.processed && v.event != nil }

func (v *templateView) FlowEvent() *domain.Event { return v.event }

func (v *templateView) SaveState() {}

// UserEventState keeps the submitted values so the form can be refilled after a
// redirect.
func (v *templateView) UserEventState() any {
	return v.rc.RequestParameters().AsMap()
}
