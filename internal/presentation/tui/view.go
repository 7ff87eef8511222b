package tui

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"text/template"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/view"
)

// MarkdownViewFactory renders a named text/template as markdown for the console.
// The user event is read from the "_eventId" parameter like any other view, so the
// same flow definition can be driven from the terminal.
type MarkdownViewFactory struct {
	templates *template.Template
	name      string
	render    ContentRenderer
}

// NewMarkdownViewFactory creates a factory for the template called name. A nil
// renderer writes the markdown unchanged.
func NewMarkdownViewFactory(templates *template.Template, name string, render ContentRenderer) (*MarkdownViewFactory, error) {
	if templates == nil || templates.Lookup(name) == nil {
		return nil, fmt.Errorf("template %q is not defined", name)
	}
	if render == nil {
		render = Plain
	}
	return &MarkdownViewFactory{templates: templates, name: name, render: render}, nil
}

func (f *MarkdownViewFactory) GetView(rc engine.RequestContext) (engine.View, error) {
	return &markdownView{factory: f, rc: rc, eventID: view.FindEventID(rc.RequestParameters())}, nil
}

type markdownView struct {
	factory *MarkdownViewFactory
	rc      engine.RequestContext
	eventID string
}

// Render executes the template with every scoped attribute plus "messages" and
// "events", the ids the current state reacts to.
func (v *markdownView) Render() error {
	data := v.rc.AsMap()
	data["messages"] = v.rc.MessageContext().All()
	data["events"] = Events(v.rc.CurrentState())

	var buf bytes.Buffer
	if err := v.factory.templates.ExecuteTemplate(&buf, v.factory.name, data); err != nil {
		return err
	}
	out, err := v.factory.render(buf.String())
	if err != nil {
		return err
	}
	_, err = io.WriteString(v.rc.ExternalContext().ResponseWriter(), out)
	return err
}

func (v *markdownView) UserEventQueued() bool { return v.eventID != "" }

func (v *markdownView) ProcessUserEvent() error { return nil }

func (v *markdownView) HasFlowEvent() bool { return v.eventID != "" }

func (v *markdownView) FlowEvent() *domain.Event {
	return domain.NewEvent(v.factory.name, v.eventID)
}

func (v *markdownView) SaveState() {}

func (v *markdownView) UserEventState() any { return nil }

// Events lists the event ids that trigger a transition out of s, sorted.
func Events(s engine.State) []string {
	ts, ok := s.(engine.TransitionableState)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	collect := func(set *engine.TransitionSet) {
		for _, t := range set.All() {
			if id := t.ID(); id != "" && id != engine.Wildcard && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	collect(ts.Transitions())
	if f := s.Flow(); f != nil {
		collect(f.GlobalTransitions())
	}
	sort.Strings(ids)
	return ids
}
