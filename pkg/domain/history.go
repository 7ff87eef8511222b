package domain

import "fmt"

// History is the snapshot policy applied when a transition leaves a view state.
type History string

const (
	// HistoryPreserve keeps (and refreshes) the snapshot of the state being left,
	// so the browser back button can return to it.
	HistoryPreserve History = "preserve"
	// HistoryDiscard removes the snapshot of the state being left.
	HistoryDiscard History = "discard"
	// HistoryInvalidate removes every snapshot of the execution.
	HistoryInvalidate History = "invalidate"
)

// HistoryAttribute is the transition attribute holding the History policy.
const HistoryAttribute = "history"

// ParseHistory converts a textual policy; the empty string means HistoryPreserve.
func ParseHistory(raw string) (History, error) {
	switch History(raw) {
	case "", HistoryPreserve:
		return HistoryPreserve, nil
	case HistoryDiscard:
		return HistoryDiscard, nil
	case HistoryInvalidate:
		return HistoryInvalidate, nil
	}
	return "", fmt.Errorf("unknown history policy %q", raw)
}
