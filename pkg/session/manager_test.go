package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/session"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func (s SlowStore) Save(ctx context.Context, c *domain.Conversation) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, c)
}

func TestManager_SerializesReadModifyWrite(t *testing.T) {
	store := SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"
	require.NoError(t, manager.Save(ctx, domain.NewConversation(id, "booking")))

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				c, err := store.Load(ctx, id)
				if err != nil {
					return err
				}
				c.NextSnapshotID++
				return store.Save(ctx, c)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1+writers, c.NextSnapshotID, "no update may be lost")
}

type recordingLocker struct {
	mu     sync.Mutex
	locked []string
	freed  []string
	err    error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, key)
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.freed = append(l.freed, key)
		l.mu.Unlock()
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))

	release, err := manager.Acquire(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, locker.locked)
	assert.Empty(t, locker.freed)

	release()
	assert.Equal(t, []string{"c1"}, locker.freed)
}

func TestManager_DistributedLockFailureReleasesLocalLock(t *testing.T) {
	boom := errors.New("redis down")
	locker := &recordingLocker{err: boom}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	_, err := manager.Acquire(context.Background(), "c1")
	require.ErrorIs(t, err, boom)

	// The local mutex must be free again.
	locker.err = nil
	done := make(chan struct{})
	go func() {
		_ = manager.WithLock(context.Background(), "c1", func(context.Context) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}
