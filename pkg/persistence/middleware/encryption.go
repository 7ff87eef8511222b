package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next      ports.ConversationStore
	active    cipher.AEAD
	fallbacks []cipher.AEAD
}

// NewEncryptionMiddleware creates a middleware that seals every snapshot of a
// conversation with AES-GCM. Conversation metadata (ids, snapshot numbering, times)
// stays readable so stores can index and expire conversations. Each snapshot is bound
// to its conversation and snapshot id, so sealed data moved elsewhere fails to open.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	active := mustAEAD(config.ActiveKey)
	fallbacks := make([]cipher.AEAD, 0, len(config.FallbackKeys))
	for _, key := range config.FallbackKeys {
		fallbacks = append(fallbacks, mustAEAD(key))
	}
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &encryptionMiddleware{next: next, active: active, fallbacks: fallbacks}
	}
}

func mustAEAD(key []byte) cipher.AEAD {
	if len(key) != 32 {
		panic("encryption keys must be 32 bytes (AES-256)")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		panic(err)
	}
	return gcm
}

func (m *encryptionMiddleware) Save(ctx context.Context, c *domain.Conversation) error {
	envelope := c.Clone()
	for i := range envelope.Snapshots {
		snap := &envelope.Snapshots[i]
		nonce := make([]byte, m.active.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return fmt.Errorf("failed to encrypt snapshot %d: %w", snap.ID, err)
		}
		snap.Data = m.active.Seal(nonce, nonce, snap.Data, associatedData(c.ID, snap.ID))
	}
	return m.next.Save(ctx, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	c, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range c.Snapshots {
		snap := &c.Snapshots[i]
		plain, err := m.open(snap.Data, associatedData(c.ID, snap.ID))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt snapshot %d: %w", snap.ID, err)
		}
		snap.Data = plain
	}
	return c, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// open tries the active key, then every fallback key in order.
func (m *encryptionMiddleware) open(sealed, ad []byte) ([]byte, error) {
	for _, gcm := range append([]cipher.AEAD{m.active}, m.fallbacks...) {
		if len(sealed) < gcm.NonceSize() {
			return nil, errors.New("ciphertext too short")
		}
		nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
		if plain, err := gcm.Open(nil, nonce, body, ad); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func associatedData(conversationID string, snapshotID int) []byte {
	return fmt.Appendf(nil, "%s/%d", conversationID, snapshotID)
}
