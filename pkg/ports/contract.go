package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/domain"
)

// RunConversationStoreContract runs a suite of tests to verify that a ConversationStore
// implementation adheres to the interface contract.
func RunConversationStoreContract(t *testing.T, store ConversationStore) {
	ctx := context.Background()
	id := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		c := domain.NewConversation(id, "booking")
		c.PutSnapshot(1, []byte(`{"state":"form"}`), 0)
		c.PutSnapshot(2, []byte(`{"state":"confirm"}`), 0)
		c.NextSnapshotID = 3

		require.NoError(t, store.Save(ctx, c), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "booking", loaded.FlowID)
		assert.Equal(t, 3, loaded.NextSnapshotID)
		require.Len(t, loaded.Snapshots, 2)
		entry, ok := loaded.Snapshot(2)
		require.True(t, ok)
		assert.JSONEq(t, `{"state":"confirm"}`, string(entry.Data))
	})

	t.Run("Save Replaces", func(t *testing.T) {
		c := domain.NewConversation(id, "booking")
		c.PutSnapshot(5, []byte(`{}`), 0)
		require.NoError(t, store.Save(ctx, c))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.Len(t, loaded.Snapshots, 1)
		assert.Equal(t, 5, loaded.Snapshots[0].ID)
	})

	t.Run("Load Isolated From Caller", func(t *testing.T) {
		c := domain.NewConversation(id, "booking")
		c.PutSnapshot(1, []byte(`{}`), 0)
		require.NoError(t, store.Save(ctx, c))
		c.RemoveAllSnapshots()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Len(t, loaded.Snapshots, 1, "mutating the saved value must not change the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewConversation(id, "booking")))

		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound, "Load after Delete should return ErrConversationNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Delete of a missing conversation should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		require.NoError(t, store.Save(ctx, domain.NewConversation(id1, "booking")))
		require.NoError(t, store.Save(ctx, domain.NewConversation(id2, "booking")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
