package types

// NodeStatus represents the derived display state of a topology node.
type NodeStatus string

const (
	StatusIdle      NodeStatus = "idle"
	StatusActive    NodeStatus = "active"
	StatusCompleted NodeStatus = "completed"
	StatusError     NodeStatus = "error"
)

// ExecutionStatus is the terminal status reported by a synchronous execution.
type ExecutionStatus string

const (
	ExecutionCompleted         ExecutionStatus = "COMPLETED"
	ExecutionError             ExecutionStatus = "ERROR"
	ExecutionPendingHumanInput ExecutionStatus = "PENDING_HUMAN_INPUT"
)
