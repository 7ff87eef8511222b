package webflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/binding/convert"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/repository"
	"github.com/aretw0/webflow/pkg/scope"
	"github.com/aretw0/webflow/pkg/session"
)

// Executor is the high-level entry point of the library.
// It launches and resumes flow executions, one request at a time, keeping paused
// executions in a repository between requests.
type Executor struct {
	locator    engine.FlowLocator
	repo       *repository.Repository
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	attributes map[string]any
	conversion convert.Service
}

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithRepository sets where paused executions are kept. The default is an in-memory
// repository.
func WithRepository(r *repository.Repository) Option {
	return func(e *Executor) {
		e.repo = r
	}
}

// WithLifecycleHooks registers observability hooks on every execution.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithExecutionAttributes sets attributes copied into every new execution, such as
// engine.AlwaysRedirectOnPauseAttribute.
func WithExecutionAttributes(attrs map[string]any) Option {
	return func(e *Executor) {
		e.attributes = attrs
	}
}

// WithConversionService replaces the conversion service of executions.
func WithConversionService(s convert.Service) Option {
	return func(e *Executor) {
		e.conversion = s
	}
}

// Result describes where a request left an execution.
type Result struct {
	FlowID string
	// Key identifies the paused execution; empty once it has ended.
	Key     string
	Paused  bool
	Outcome *domain.Outcome
	// Redirect is what the request asked the caller to do, if the external context
	// records it.
	Redirect external.Redirect
}

// New creates an executor resolving flows through locator.
func New(locator engine.FlowLocator, opts ...Option) (*Executor, error) {
	if locator == nil {
		return nil, fmt.Errorf("a flow locator is required")
	}
	e := &Executor{locator: locator}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.repo == nil {
		e.repo = repository.New(locator, session.NewManager(memory.NewStore()), repository.WithLogger(e.logger))
	}
	return e, nil
}

func (e *Executor) executionOptions() []engine.ExecutionOption {
	opts := []engine.ExecutionOption{
		engine.WithFlowLocator(e.locator),
		engine.WithLifecycleHooks(e.hooks),
		engine.WithLogger(e.logger),
	}
	if e.attributes != nil {
		opts = append(opts, engine.WithAttributes(e.attributes))
	}
	if e.conversion != nil {
		opts = append(opts, engine.WithConversionService(e.conversion))
	}
	return opts
}

// Launch starts a new execution of flowID and runs it until it pauses or ends.
func (e *Executor) Launch(ctx context.Context, flowID string, input map[string]any, ext external.Context) (*Result, error) {
	flow, err := e.locator.Flow(flowID)
	if err != nil {
		return nil, err
	}
	unit, err := e.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer unit.Close()

	exec := engine.NewExecution(flow, append(e.executionOptions(), engine.WithKeyFactory(unit))...)
	if err := exec.Start(ctx, scope.FromMap(input), ext); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx, exec); err != nil {
		return nil, err
	}
	e.logger.Debug("flow launched", "flow_id", flowID, "execution", exec.Key().String(), "ended", exec.HasEnded())
	return result(exec, ext), nil
}

// Resume restores the execution identified by key and lets it handle the request.
func (e *Executor) Resume(ctx context.Context, key string, ext external.Context) (*Result, error) {
	unit, exec, err := e.repo.Open(ctx, key, e.executionOptions()...)
	if err != nil {
		return nil, err
	}
	defer unit.Close()

	if err := exec.Resume(ctx, ext); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx, exec); err != nil {
		return nil, err
	}
	e.logger.Debug("flow resumed", "flow_id", exec.Definition().ID(), "execution", key, "ended", exec.HasEnded())
	return result(exec, ext), nil
}

func result(exec *engine.FlowExecution, ext external.Context) *Result {
	r := &Result{FlowID: exec.Definition().ID(), Outcome: exec.Outcome()}
	if exec.IsActive() {
		r.Paused = true
		r.Key = exec.Key().String()
	}
	if rec, ok := ext.(external.RedirectRecorder); ok {
		r.Redirect = rec.Redirect()
	}
	return r
}
