// Package message holds user facing messages produced while handling a request,
// such as validation failures derived from mapping errors.
package message

import (
	"fmt"
	"sync"

	"github.com/aretw0/webflow/pkg/binding/mapping"
)

// Severity of a message.
type Severity string

const (
	Info    Severity = "info"
	Warning Severity = "warning"
	Error   Severity = "error"
	Fatal   Severity = "fatal"
)

// Message is a resolved, displayable message. Source is empty for global messages.
type Message struct {
	Source   string   `json:"source,omitempty"`
	Code     string   `json:"code,omitempty"`
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

// Memento is the serializable state of a Context.
type Memento struct {
	Messages []Message `json:"messages"`
}

// Context stores the messages of one request. It is safe for concurrent use.
type Context struct {
	mu       sync.Mutex
	messages []Message
}

// NewContext returns an empty message context.
func NewContext() *Context {
	return &Context{}
}

func (c *Context) Add(m Message) {
	if m.Severity == "" {
		m.Severity = Info
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

// Errorf adds an error message for source.
func (c *Context) Errorf(source, format string, args ...any) {
	c.Add(Message{Source: source, Severity: Error, Text: fmt.Sprintf(format, args...)})
}

// Infof adds an informational message for source.
func (c *Context) Infof(source, format string, args ...any) {
	c.Add(Message{Source: source, Severity: Info, Text: fmt.Sprintf(format, args...)})
}

func (c *Context) All() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// BySource returns the messages attached to source.
func (c *Context) BySource(source string) []Message {
	return c.Select(func(m Message) bool { return m.Source == source })
}

// Select returns the messages accepted by fn.
func (c *Context) Select(fn func(Message) bool) []Message {
	var out []Message
	for _, m := range c.All() {
		if fn(m) {
			out = append(out, m)
		}
	}
	return out
}

// HasErrors reports whether any message is an error or fatal.
func (c *Context) HasErrors() bool {
	return len(c.Select(func(m Message) bool {
		return m.Severity == Error || m.Severity == Fatal
	})) > 0
}

func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// Memento captures the current messages.
func (c *Context) Memento() Memento {
	return Memento{Messages: c.All()}
}

// Restore replaces the current messages with the memento's.
func (c *Context) Restore(m Memento) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append([]Message(nil), m.Messages...)
}

// AddMappingErrors adds one error message per failed mapping, keyed by the mapping's
// target expression.
func (c *Context) AddMappingErrors(results *mapping.Results) {
	for _, res := range results.Errors() {
		c.Add(FromResult(res))
	}
}

// FromResult converts a failed mapping result into an error message.
func FromResult(res mapping.Result) Message {
	source := res.Mapping.Target.String()
	var text string
	switch res.Code {
	case mapping.RequiredError:
		text = fmt.Sprintf("%s is required", source)
	case mapping.TypeConversionError:
		text = fmt.Sprintf("%s has an invalid value %q", source, fmt.Sprint(res.OriginalValue))
	default:
		text = fmt.Sprintf("%s could not be mapped: %v", source, res.Err)
	}
	return Message{Source: source, Code: string(res.Code), Text: text, Severity: Error}
}
