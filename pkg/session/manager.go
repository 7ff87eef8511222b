package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// ReleaseFunc releases a lock taken with Acquire.
type ReleaseFunc func()

// Manager orchestrates conversation access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ConversationStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given store.
func NewManager(store ports.ConversationStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultLockTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Acquire locks the conversation until the returned function is called. The release
// function is idempotent.
func (m *Manager) Acquire(ctx context.Context, id string) (ReleaseFunc, error) {
	entry := m.acquire(id)
	entry.mu.Lock()
	local := func() {
		entry.mu.Unlock()
		m.release(id)
	}

	var unlock ports.UnlockFunc
	if m.locker != nil {
		var err error
		unlock, err = m.locker.Lock(ctx, id, m.ttl)
		if err != nil {
			local()
			return nil, fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if unlock != nil {
				// The request context may be done by now; the lock must still go.
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
						"conversation_id", id,
						"err", err,
					)
				}
			}
			local()
		})
	}, nil
}

// WithLock executes a function while holding the lock for the conversation.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	release, err := m.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Load retrieves a conversation under its lock.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	var c *domain.Conversation
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		c, err = m.store.Load(ctx, id)
		return err
	})
	return c, err
}

// Save persists the conversation under its lock.
func (m *Manager) Save(ctx context.Context, c *domain.Conversation) error {
	return m.WithLock(ctx, c.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, c)
	})
}

// Delete removes the conversation under its lock.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying conversation store.
func (m *Manager) Store() ports.ConversationStore {
	return m.store
}
