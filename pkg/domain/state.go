package domain

// ExecutionStatus is the lifecycle phase of a flow execution.
type ExecutionStatus string

const (
	StatusNotStarted ExecutionStatus = "not_started"
	StatusActive     ExecutionStatus = "active"
	StatusEnded      ExecutionStatus = "ended"
)

// Outcome is the result of an ended flow execution: the id of the end state
// reached by the root session plus the root flow output.
type Outcome struct {
	ID     string         `json:"id"`
	Output map[string]any `json:"output,omitempty"`
}
