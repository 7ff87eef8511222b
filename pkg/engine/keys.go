package engine

import (
	"strconv"
	"sync/atomic"

	"github.com/aretw0/webflow/pkg/domain"
)

// KeyFactory issues execution keys and maintains the snapshots they identify.
// Repositories implement it; the engine only calls it as the history policy requires.
type KeyFactory interface {
	// GetKey returns the key for the snapshot about to be taken.
	GetKey(e *FlowExecution) (domain.FlowExecutionKey, error)
	// UpdateSnapshot refreshes the snapshot for the execution's current key.
	UpdateSnapshot(e *FlowExecution) error
	// RemoveSnapshot deletes the snapshot for the execution's current key.
	RemoveSnapshot(e *FlowExecution) error
	// RemoveAllSnapshots deletes every snapshot of the execution.
	RemoveAllSnapshots(e *FlowExecution) error
}

// sequenceKeys numbers snapshots of a single unpersisted execution.
type sequenceKeys struct {
	conversation string
	next         int
}

func (k *sequenceKeys) GetKey(*FlowExecution) (domain.FlowExecutionKey, error) {
	k.next++
	return domain.FlowExecutionKey{ConversationID: k.conversation, SnapshotID: k.next}, nil
}

func (k *sequenceKeys) UpdateSnapshot(*FlowExecution) error     { return nil }
func (k *sequenceKeys) RemoveSnapshot(*FlowExecution) error     { return nil }
func (k *sequenceKeys) RemoveAllSnapshots(*FlowExecution) error { return nil }

var localConversations atomic.Int64

func newSequenceKeys() *sequenceKeys {
	n := localConversations.Add(1)
	return &sequenceKeys{conversation: "local" + strconv.FormatInt(n, 10)}
}
