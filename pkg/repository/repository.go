// Package repository stores paused flow executions as snapshot groups.
//
// Every execution owns one conversation; each view-state entry assigns it a new key
// (conversation id plus snapshot id) and each paused request stores a snapshot under
// that key, so the browser back button and bookmarked URLs resume from the state the
// key was issued in. A conversation is locked for the whole request that works on it.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/session"
)

// DefaultMaxSnapshots is the number of snapshots kept per conversation.
const DefaultMaxSnapshots = 30

// Repository creates and restores flow executions backed by a conversation store.
type Repository struct {
	locator  ports.FlowLocator
	sessions *session.Manager
	max      int
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithMaxSnapshots bounds the snapshots of a conversation; the oldest are pruned.
// Zero or less keeps every snapshot.
func WithMaxSnapshots(n int) Option {
	return func(r *Repository) { r.max = n }
}

// WithIDGenerator replaces the random conversation id generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) { r.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New creates a repository. locator resolves the flows referenced by snapshots.
func New(locator ports.FlowLocator, sessions *session.Manager, opts ...Option) *Repository {
	r := &Repository{
		locator:  locator,
		sessions: sessions,
		max:      DefaultMaxSnapshots,
		newID:    uuid.NewString,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin opens a unit for a new execution, under a fresh conversation id that is held
// locked until Close. The conversation is only persisted if the execution pauses.
func (r *Repository) Begin(ctx context.Context) (*Unit, error) {
	id := r.newID()
	release, err := r.sessions.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Unit{repo: r, id: id, release: release}, nil
}

// Open locks the conversation named by key and restores the execution from the key's
// snapshot. opts configure the restored execution; the unit is installed as its key
// factory. The caller must Close the unit.
func (r *Repository) Open(ctx context.Context, rawKey string, opts ...engine.ExecutionOption) (*Unit, *engine.FlowExecution, error) {
	key, err := domain.ParseKey(rawKey)
	if err != nil {
		return nil, nil, err
	}
	release, err := r.sessions.Acquire(ctx, key.ConversationID)
	if err != nil {
		return nil, nil, err
	}
	u := &Unit{repo: r, id: key.ConversationID, release: release}

	exec, err := u.restore(ctx, key, opts)
	if err != nil {
		u.Close()
		return nil, nil, err
	}
	return u, exec, nil
}

func (u *Unit) restore(ctx context.Context, key domain.FlowExecutionKey, opts []engine.ExecutionOption) (*engine.FlowExecution, error) {
	conv, err := u.repo.sessions.Store().Load(ctx, key.ConversationID)
	if err != nil {
		return nil, err
	}
	u.conv = conv
	u.persisted = true

	entry, ok := conv.Snapshot(key.SnapshotID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, key)
	}
	var snap domain.ExecutionSnapshot
	if err := json.Unmarshal(entry.Data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	// A refreshed snapshot keeps the key it was taken under.
	snap.Key = key.String()
	opts = append(append([]engine.ExecutionOption(nil), opts...), engine.WithKeyFactory(u))
	return engine.Restore(&snap, u.repo.locator, opts...)
}

// Unit is the repository's view of one conversation for the duration of a request.
// It is the execution's engine.KeyFactory; snapshot changes are kept in memory and
// written by Commit.
type Unit struct {
	repo      *Repository
	id        string
	conv      *domain.Conversation
	persisted bool
	release   session.ReleaseFunc
	closed    bool
}

var _ engine.KeyFactory = (*Unit)(nil)

// ConversationID returns the id of the unit's conversation.
func (u *Unit) ConversationID() string { return u.id }

func (u *Unit) conversation(e *engine.FlowExecution) *domain.Conversation {
	if u.conv == nil {
		u.conv = domain.NewConversation(u.id, e.Definition().ID())
	}
	return u.conv
}

// GetKey issues the next snapshot id of the conversation.
func (u *Unit) GetKey(e *engine.FlowExecution) (domain.FlowExecutionKey, error) {
	conv := u.conversation(e)
	key := domain.FlowExecutionKey{ConversationID: conv.ID, SnapshotID: conv.NextSnapshotID}
	conv.NextSnapshotID++
	return key, nil
}

// UpdateSnapshot stores the execution's current state under its current key.
func (u *Unit) UpdateSnapshot(e *engine.FlowExecution) error {
	if e.Key().IsZero() {
		return nil
	}
	snap, err := e.Snapshot()
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", e.Key(), err)
	}
	u.conversation(e).PutSnapshot(e.Key().SnapshotID, data, u.repo.max)
	return nil
}

// RemoveSnapshot forgets the snapshot of the execution's current key.
func (u *Unit) RemoveSnapshot(e *engine.FlowExecution) error {
	if u.conv != nil {
		u.conv.RemoveSnapshot(e.Key().SnapshotID)
	}
	return nil
}

// RemoveAllSnapshots forgets every snapshot of the conversation.
func (u *Unit) RemoveAllSnapshots(*engine.FlowExecution) error {
	if u.conv != nil {
		u.conv.RemoveAllSnapshots()
	}
	return nil
}

// Commit persists the outcome of the request: a paused execution is snapshotted under
// its current key; an ended execution has its conversation deleted.
func (u *Unit) Commit(ctx context.Context, e *engine.FlowExecution) error {
	if u.closed {
		return fmt.Errorf("%w: commit of a closed unit", domain.ErrIllegalState)
	}
	store := u.repo.sessions.Store()
	if e.HasEnded() {
		if !u.persisted {
			return nil
		}
		if err := store.Delete(ctx, u.id); err != nil {
			return fmt.Errorf("delete conversation %s: %w", u.id, err)
		}
		u.persisted = false
		u.repo.logger.Debug("conversation ended", "conversation_id", u.id)
		return nil
	}
	if !e.IsActive() || e.Key().IsZero() {
		return nil
	}
	if err := u.UpdateSnapshot(e); err != nil {
		return err
	}
	if err := store.Save(ctx, u.conv); err != nil {
		return fmt.Errorf("save conversation %s: %w", u.id, err)
	}
	u.persisted = true
	u.repo.logger.Debug("snapshot saved", "execution", e.Key().String(), "snapshots", len(u.conv.Snapshots))
	return nil
}

// Close releases the conversation lock. It is safe to call more than once.
func (u *Unit) Close() {
	if u.closed {
		return
	}
	u.closed = true
	u.release()
}

// IsNotFound reports whether err means the key names no stored execution.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrConversationNotFound) || errors.Is(err, domain.ErrSnapshotNotFound)
}
