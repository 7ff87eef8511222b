package cli

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/pkg/adapters/bolt"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	redisadapter "github.com/aretw0/webflow/pkg/adapters/redis"
	"github.com/aretw0/webflow/pkg/definition"
	"github.com/aretw0/webflow/pkg/observability"
	"github.com/aretw0/webflow/pkg/persistence/middleware"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/aretw0/webflow/pkg/repository"
	"github.com/aretw0/webflow/pkg/session"
)

// Stack is everything a command needs to run flows, built from a Config.
type Stack struct {
	Config   config.Config
	Logger   *slog.Logger
	Flows    *registry.Flows
	Executor *webflow.Executor
	// Metrics and Gatherer are nil unless metrics are enabled.
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	closers []func() error
}

// NewStack wires the conversation store, repository, flow definitions and hooks
// described by cfg. opts apply to every flow definition, after the defaults.
func NewStack(cfg config.Config, logger *slog.Logger, opts ...definition.Option) (*Stack, error) {
	s := &Stack{Config: cfg, Logger: logger}

	store, locker, err := s.openStore()
	if err != nil {
		return nil, err
	}
	key, err := cfg.Key()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if key != nil {
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
		if ttl := cfg.Store.Redis.LockTTL; ttl > 0 {
			sessionOpts = append(sessionOpts, session.WithLockTTL(ttl))
		}
	}
	sessions := session.NewManager(store, sessionOpts...)

	flows, err := LoadFlows(cfg.FlowsDir, cfg.Flows, logger, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Flows = flows

	hooks := observability.LoggingHooks(logger)
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		s.Metrics = observability.NewMetrics(reg)
		s.Gatherer = reg
		hooks = observability.Combine(hooks, s.Metrics.Hooks())
	}

	repo := repository.New(flows, sessions,
		repository.WithMaxSnapshots(cfg.MaxSnapshots),
		repository.WithLogger(logger),
	)
	s.Executor, err = webflow.New(flows,
		webflow.WithRepository(repo),
		webflow.WithLifecycleHooks(hooks),
		webflow.WithLogger(logger),
		webflow.WithExecutionAttributes(cfg.ExecutionAttributes()),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stack) openStore() (ports.ConversationStore, ports.DistributedLocker, error) {
	sc := s.Config.Store
	switch sc.Backend {
	case config.StoreRedis:
		prefix := sc.Redis.Prefix
		if prefix == "" {
			prefix = redisadapter.DefaultPrefix
		}
		store := redisadapter.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB,
			redisadapter.WithPrefix(prefix),
			redisadapter.WithTTL(sc.Redis.TTL),
		)
		s.closers = append(s.closers, store.Close)
		s.Logger.Debug("using redis store", "addr", sc.Redis.Addr, "db", sc.Redis.DB)
		return store, redisadapter.NewLocker(store.Client(), prefix), nil
	case config.StoreBolt:
		store, err := bolt.Open(sc.Bolt.Path)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, store.Close)
		s.Logger.Debug("using bolt store", "path", sc.Bolt.Path)
		return store, nil, nil
	}
	return memory.NewStore(), nil, nil
}

// Close releases the store connections.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// LoadFlows builds every definition of dir, then the inline definitions, into a
// registry. HTML templates found in dir render the view states by name.
func LoadFlows(dir string, inline map[string]string, logger *slog.Logger, opts ...definition.Option) (*registry.Flows, error) {
	builderOpts := []definition.Option{definition.WithLogger(logger)}
	pages, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(pages) > 0 {
		t := template.New("pages")
		for _, page := range pages {
			data, err := os.ReadFile(page)
			if err != nil {
				return nil, err
			}
			if _, err := t.New(stem(page)).Parse(string(data)); err != nil {
				return nil, fmt.Errorf("parse template %s: %w", page, err)
			}
		}
		builderOpts = append(builderOpts, definition.WithTemplates(t))
	}
	builderOpts = append(builderOpts, opts...)

	b := definition.NewBuilder(builderOpts...)
	built, err := definition.LoadDir(dir, b)
	if err != nil {
		return nil, err
	}
	if len(inline) > 0 {
		more, err := definition.Load(memory.NewLoader(inline), b)
		if err != nil {
			return nil, fmt.Errorf("inline flows: %w", err)
		}
		built = append(built, more...)
	}
	flows := registry.NewFlows()
	if err := flows.Register(built...); err != nil {
		return nil, err
	}
	logger.Debug("flows loaded", "dir", dir, "inline", len(inline), "count", len(built))
	return flows, nil
}

// stem names a template after its file: "review.html" defines "review".
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
