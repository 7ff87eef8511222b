package domain

import "errors"

// ErrConversationNotFound is returned when a conversation ID cannot be found in the store.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrSnapshotNotFound is returned when a key points to a snapshot that was removed or pruned.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrFlowNotFound is returned when a flow definition id is not registered.
var ErrFlowNotFound = errors.New("flow definition not found")

// ErrIllegalState is returned when an operation is invoked in a state that does not allow it.
var ErrIllegalState = errors.New("illegal state")

// ErrBadKey is returned when a flow execution key cannot be parsed.
var ErrBadKey = errors.New("bad flow execution key")
