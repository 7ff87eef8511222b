package domain

import (
	"encoding/json"
	"time"
)

// SessionSnapshot is the persisted form of one flow session on the stack.
// Flows are referenced by id and resolved against a registry on restore.
type SessionSnapshot struct {
	FlowID    string          `json:"flow_id"`
	StateID   string          `json:"state_id,omitempty"`
	Scope     json.RawMessage `json:"scope,omitempty"`
	ViewScope json.RawMessage `json:"view_scope,omitempty"`
	Embedded  bool            `json:"embedded,omitempty"`
}

// ExecutionSnapshot is the persisted form of a paused flow execution.
// Sessions are ordered root first.
type ExecutionSnapshot struct {
	FlowID       string            `json:"flow_id"`
	Key          string            `json:"key,omitempty"`
	Status       ExecutionStatus   `json:"status"`
	Sessions     []SessionSnapshot `json:"sessions"`
	Flash        json.RawMessage   `json:"flash,omitempty"`
	Conversation json.RawMessage   `json:"conversation,omitempty"`
	Attributes   json.RawMessage   `json:"attributes,omitempty"`
}

// SnapshotEntry is one stored snapshot inside a conversation.
type SnapshotEntry struct {
	ID      int       `json:"id"`
	Data    []byte    `json:"data"`
	SavedAt time.Time `json:"saved_at"`
}

// Conversation groups every snapshot of one flow execution.
// It is the unit that stores persist and lockers guard.
type Conversation struct {
	ID             string          `json:"id"`
	FlowID         string          `json:"flow_id"`
	NextSnapshotID int             `json:"next_snapshot_id"`
	Snapshots      []SnapshotEntry `json:"snapshots"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewConversation creates an empty conversation for the given flow.
func NewConversation(id, flowID string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:             id,
		FlowID:         flowID,
		NextSnapshotID: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Snapshot returns the entry with the given id.
func (c *Conversation) Snapshot(id int) (SnapshotEntry, bool) {
	for _, s := range c.Snapshots {
		if s.ID == id {
			return s, true
		}
	}
	return SnapshotEntry{}, false
}

// PutSnapshot stores data under id, replacing any existing entry, and prunes the
// oldest entries beyond max (max <= 0 means unlimited).
func (c *Conversation) PutSnapshot(id int, data []byte, max int) {
	now := time.Now()
	c.UpdatedAt = now
	for i := range c.Snapshots {
		if c.Snapshots[i].ID == id {
			c.Snapshots[i].Data = data
			c.Snapshots[i].SavedAt = now
			return
		}
	}
	c.Snapshots = append(c.Snapshots, SnapshotEntry{ID: id, Data: data, SavedAt: now})
	if max > 0 && len(c.Snapshots) > max {
		c.Snapshots = append([]SnapshotEntry(nil), c.Snapshots[len(c.Snapshots)-max:]...)
	}
}

// RemoveSnapshot deletes the entry with the given id, if present.
func (c *Conversation) RemoveSnapshot(id int) {
	for i := range c.Snapshots {
		if c.Snapshots[i].ID == id {
			c.Snapshots = append(c.Snapshots[:i], c.Snapshots[i+1:]...)
			c.UpdatedAt = time.Now()
			return
		}
	}
}

// RemoveAllSnapshots clears the snapshot group.
func (c *Conversation) RemoveAllSnapshots() {
	c.Snapshots = nil
	c.UpdatedAt = time.Now()
}

// Clone returns a deep copy so stores never share slices with callers.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Snapshots = make([]SnapshotEntry, len(c.Snapshots))
	for i, s := range c.Snapshots {
		s.Data = append([]byte(nil), s.Data...)
		out.Snapshots[i] = s
	}
	return &out
}
