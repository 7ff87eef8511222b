// Package registry holds the flow definitions and named actions of an application.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// Flows is an arena of flow definitions keyed by id. Executions reference flows only
// by id, so a registry is also the engine.FlowLocator used to restore them.
type Flows struct {
	mu    sync.RWMutex
	flows map[string]*engine.Flow
}

var _ engine.FlowLocator = (*Flows)(nil)

// NewFlows creates an empty flow registry.
func NewFlows() *Flows {
	return &Flows{flows: make(map[string]*engine.Flow)}
}

// Register validates and adds flows. A flow with an id already present replaces it.
func (r *Flows) Register(flows ...*engine.Flow) error {
	for _, f := range flows {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("register flow %q: %w", f.ID(), err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range flows {
		r.flows[f.ID()] = f
	}
	return nil
}

// Get returns the flow with the given id.
func (r *Flows) Get(id string) (*engine.Flow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[id]
	return f, ok
}

// Flow implements engine.FlowLocator.
func (r *Flows) Flow(id string) (*engine.Flow, error) {
	if f, ok := r.Get(id); ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrFlowNotFound, id)
}

// IDs returns the registered flow ids, sorted.
func (r *Flows) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.flows))
	for id := range r.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Actions maps names used in flow definitions to actions.
type Actions struct {
	mu      sync.RWMutex
	actions map[string]engine.Action
}

// NewActions creates an empty action registry.
func NewActions() *Actions {
	return &Actions{actions: make(map[string]engine.Action)}
}

// Register adds an action. If an action with the same name exists, it is overwritten.
func (r *Actions) Register(name string, a engine.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = a
}

// RegisterFunc is Register for plain functions.
func (r *Actions) RegisterFunc(name string, fn func(rc engine.RequestContext) (*domain.Event, error)) {
	r.Register(name, engine.ActionFunc(fn))
}

// Lookup returns the action registered under name.
func (r *Actions) Lookup(name string) (engine.Action, error) {
	r.mu.RLock()
	a, ok := r.actions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("action not found: %s", name)
	}
	return a, nil
}

// Names returns the registered action names, sorted.
func (r *Actions) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
