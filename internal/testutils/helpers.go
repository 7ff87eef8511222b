package testutils

import (
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// EventParameter is the request parameter StubView reads the user event from.
const EventParameter = "_eventId"

// KeyRecorder is an engine.KeyFactory that hands out sequential keys and records every
// snapshot call, so tests can assert on history policies.
type KeyRecorder struct {
	mu           sync.Mutex
	Conversation string
	next         int
	calls        []string
}

// NewKeyRecorder creates a recorder for conversation "c1".
func NewKeyRecorder() *KeyRecorder {
	return &KeyRecorder{Conversation: "c1"}
}

func (k *KeyRecorder) GetKey(*engine.FlowExecution) (domain.FlowExecutionKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.next++
	k.calls = append(k.calls, "get")
	return domain.FlowExecutionKey{ConversationID: k.Conversation, SnapshotID: k.next}, nil
}

func (k *KeyRecorder) UpdateSnapshot(*engine.FlowExecution) error {
	return k.record("update")
}

func (k *KeyRecorder) RemoveSnapshot(*engine.FlowExecution) error {
	return k.record("remove")
}

func (k *KeyRecorder) RemoveAllSnapshots(*engine.FlowExecution) error {
	return k.record("removeAll")
}

func (k *KeyRecorder) record(call string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, call)
	return nil
}

// Calls returns the recorded calls in order.
func (k *KeyRecorder) Calls() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.calls...)
}

// Count returns how many times call was recorded.
func (k *KeyRecorder) Count(call string) int {
	n := 0
	for _, c := range k.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// ViewRecorder builds stub views and records what they render.
type ViewRecorder struct {
	mu      sync.Mutex
	renders []string
	saves   int
}

// Factory returns a view factory whose views render name.
func (r *ViewRecorder) Factory(name string) engine.ViewFactory {
	return engine.ViewFactoryFunc(func(rc engine.RequestContext) (engine.View, error) {
		return &StubView{name: name, rc: rc, recorder: r}, nil
	})
}

// Renders returns the names of the rendered views in order.
func (r *ViewRecorder) Renders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.renders...)
}

// Saves returns how many times a view saved its state.
func (r *ViewRecorder) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// StubView signals the event named by the EventParameter request parameter and renders
// its name followed by the flow scope.
type StubView struct {
	name     string
	rc       engine.RequestContext
	recorder *ViewRecorder
	event    *domain.Event
}

func (v *StubView) Render() error {
	v.recorder.mu.Lock()
	v.recorder.renders = append(v.recorder.renders, v.name)
	v.recorder.mu.Unlock()
	w := v.rc.ExternalContext().ResponseWriter()
	if fs := v.rc.FlowScope(); fs != nil {
		_, err := fmt.Fprintf(w, "%s %s", v.name, fs)
		return err
	}
	_, err := io.WriteString(w, v.name)
	return err
}

func (v *StubView) UserEventQueued() bool {
	return v.rc.RequestParameters().Contains(EventParameter)
}

func (v *StubView) ProcessUserEvent() error {
	v.event = domain.NewEvent(v.name, v.rc.RequestParameters().Get(EventParameter))
	return nil
}

func (v *StubView) HasFlowEvent() bool { return v.event != nil }

func (v *StubView) FlowEvent() *domain.Event { return v.event }

func (v *StubView) SaveState() {
	v.recorder.mu.Lock()
	v.recorder.saves++
	v.recorder.mu.Unlock()
}

func (v *StubView) UserEventState() any { return nil }
