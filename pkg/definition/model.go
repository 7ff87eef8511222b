package definition

// FlowModel is the document form of a flow definition.
//
// Mappings use Name/Value pairs whose meaning depends on where they appear:
//
//	inputs:            Name is the flow input attribute, stored into flowScope.Name
//	outputs, end state: Name is the output attribute, Value the expression it is read from
//	subflow input:     Name is the subflow input attribute, Value read in the parent
//	subflow output:    Name is the subflow output attribute, Value the parent target path
type FlowModel struct {
	ID                string            `yaml:"id" mapstructure:"id" validate:"required"`
	Start             string            `yaml:"start" mapstructure:"start"`
	Attributes        map[string]any    `yaml:"attributes" mapstructure:"attributes"`
	Inputs            []InputModel      `yaml:"inputs" mapstructure:"inputs" validate:"dive"`
	Outputs           []MappingModel    `yaml:"outputs" mapstructure:"outputs" validate:"dive"`
	Vars              []VarModel        `yaml:"vars" mapstructure:"vars" validate:"dive"`
	OnStart           []ActionModel     `yaml:"on_start" mapstructure:"on_start" validate:"dive"`
	OnEnd             []ActionModel     `yaml:"on_end" mapstructure:"on_end" validate:"dive"`
	GlobalTransitions []TransitionModel `yaml:"global_transitions" mapstructure:"global_transitions" validate:"dive"`
	ExceptionHandlers []HandlerModel    `yaml:"exception_handlers" mapstructure:"exception_handlers" validate:"dive"`
	States            []StateModel      `yaml:"states" mapstructure:"states" validate:"required,min=1,dive"`
}

// InputModel declares a flow input.
type InputModel struct {
	Name     string `yaml:"name" mapstructure:"name" validate:"required"`
	Type     string `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=string int int64 float64 bool duration time"`
	Required bool   `yaml:"required" mapstructure:"required"`
}

// MappingModel pairs a name with an expression.
type MappingModel struct {
	Name  string `yaml:"name" mapstructure:"name" validate:"required"`
	Value string `yaml:"value" mapstructure:"value" validate:"required"`
}

// VarModel declares a variable initialised with a copy of Value.
type VarModel struct {
	Name  string `yaml:"name" mapstructure:"name" validate:"required"`
	Value any    `yaml:"value" mapstructure:"value"`
}

// ActionModel references exactly one action: a registered one by Name, or one of the
// built-in evaluate, set and redirect actions.
type ActionModel struct {
	Name             string `yaml:"name" mapstructure:"name"`
	Evaluate         string `yaml:"evaluate" mapstructure:"evaluate"`
	Result           string `yaml:"result" mapstructure:"result"`
	Set              string `yaml:"set" mapstructure:"set"`
	Value            string `yaml:"value" mapstructure:"value" validate:"required_with=Set"`
	ExternalRedirect string `yaml:"external_redirect" mapstructure:"external_redirect"`
	FlowRedirect     string `yaml:"flow_redirect" mapstructure:"flow_redirect"`
}

// TransitionModel is a transition on an event.
type TransitionModel struct {
	On      string        `yaml:"on" mapstructure:"on" validate:"required"`
	To      string        `yaml:"to" mapstructure:"to"`
	If      string        `yaml:"if" mapstructure:"if"`
	History string        `yaml:"history" mapstructure:"history" validate:"omitempty,oneof=preserve discard invalidate"`
	Actions []ActionModel `yaml:"actions" mapstructure:"actions" validate:"dive"`
}

// HandlerModel routes errors raised in a flow or state to a state.
type HandlerModel struct {
	To string `yaml:"to" mapstructure:"to" validate:"required"`
}

// IfModel is one decision rule.
type IfModel struct {
	Test string `yaml:"test" mapstructure:"test" validate:"required"`
	Then string `yaml:"then" mapstructure:"then" validate:"required"`
	Else string `yaml:"else" mapstructure:"else"`
}

// BindingModel binds a request parameter onto a property of the view model.
type BindingModel struct {
	Param    string `yaml:"param" mapstructure:"param" validate:"required"`
	Property string `yaml:"property" mapstructure:"property"`
	Required bool   `yaml:"required" mapstructure:"required"`
}

// StateModel describes a state of any kind; fields that do not apply to Type are
// rejected when the flow is built.
type StateModel struct {
	ID                string            `yaml:"id" mapstructure:"id" validate:"required"`
	Type              string            `yaml:"type" mapstructure:"type" validate:"required,oneof=view action decision subflow end"`
	Attributes        map[string]any    `yaml:"attributes" mapstructure:"attributes"`
	OnEntry           []ActionModel     `yaml:"on_entry" mapstructure:"on_entry" validate:"dive"`
	OnExit            []ActionModel     `yaml:"on_exit" mapstructure:"on_exit" validate:"dive"`
	Transitions       []TransitionModel `yaml:"transitions" mapstructure:"transitions" validate:"dive"`
	ExceptionHandlers []HandlerModel    `yaml:"exception_handlers" mapstructure:"exception_handlers" validate:"dive"`

	// view and end states
	View string `yaml:"view" mapstructure:"view"`

	// view states
	Redirect *bool          `yaml:"redirect" mapstructure:"redirect"`
	Popup    bool           `yaml:"popup" mapstructure:"popup"`
	Model    string         `yaml:"model" mapstructure:"model"`
	Bindings []BindingModel `yaml:"bindings" mapstructure:"bindings" validate:"dive"`
	Vars     []VarModel     `yaml:"vars" mapstructure:"vars" validate:"dive"`
	OnRender []ActionModel  `yaml:"on_render" mapstructure:"on_render" validate:"dive"`

	// action states
	Actions []ActionModel `yaml:"actions" mapstructure:"actions" validate:"dive"`

	// decision states
	If []IfModel `yaml:"if" mapstructure:"if" validate:"dive"`

	// subflow states
	Subflow string         `yaml:"subflow" mapstructure:"subflow"`
	Input   []MappingModel `yaml:"input" mapstructure:"input" validate:"dive"`

	// subflow and end states
	Output []MappingModel `yaml:"output" mapstructure:"output" validate:"dive"`
}
