package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FlowExecutionKey identifies one snapshot of one conversation.
// The engine never interprets it; only the repository that issued it does.
type FlowExecutionKey struct {
	ConversationID string `json:"conversation_id"`
	SnapshotID     int    `json:"snapshot_id"`
}

// String renders the key as "e<conversation>s<snapshot>".
func (k FlowExecutionKey) String() string {
	return "e" + k.ConversationID + "s" + strconv.Itoa(k.SnapshotID)
}

// IsZero reports whether the key was never assigned.
func (k FlowExecutionKey) IsZero() bool {
	return k.ConversationID == "" && k.SnapshotID == 0
}

// ParseKey parses the string form produced by FlowExecutionKey.String.
func ParseKey(raw string) (FlowExecutionKey, error) {
	if !strings.HasPrefix(raw, "e") {
		return FlowExecutionKey{}, fmt.Errorf("%w: %q", ErrBadKey, raw)
	}
	idx := strings.LastIndex(raw, "s")
	if idx <= 1 || idx == len(raw)-1 {
		return FlowExecutionKey{}, fmt.Errorf("%w: %q", ErrBadKey, raw)
	}
	snapshot, err := strconv.Atoi(raw[idx+1:])
	if err != nil || snapshot <= 0 {
		return FlowExecutionKey{}, fmt.Errorf("%w: %q", ErrBadKey, raw)
	}
	return FlowExecutionKey{ConversationID: raw[1:idx], SnapshotID: snapshot}, nil
}
