package ports

import (
	"context"

	"github.com/aretw0/webflow/pkg/domain"
)

// ConversationStore defines the interface for persisting flow executions.
// A conversation holds every snapshot of one execution; it is saved and loaded whole.
type ConversationStore interface {
	// Save persists the conversation under its ID, replacing any previous version.
	Save(ctx context.Context, c *domain.Conversation) error

	// Load retrieves the conversation with the given ID.
	// Returns domain.ErrConversationNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Conversation, error)

	// Delete removes the conversation. Deleting a missing conversation is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of the stored conversations.
	List(ctx context.Context) ([]string, error)
}
