package workflow

import "fmt"

// WorkflowErrorCode identifies a specific definition or evaluation failure.
type WorkflowErrorCode string

const (
	WorkflowErrorInvalidDefinition WorkflowErrorCode = "invalid_definition"
	WorkflowErrorMissingNode       WorkflowErrorCode = "missing_node"
	WorkflowErrorNoStartNode       WorkflowErrorCode = "no_start_node"
	WorkflowErrorMultipleStarts    WorkflowErrorCode = "multiple_start_nodes"
	WorkflowErrorNoTerminal        WorkflowErrorCode = "no_terminal_node"
	WorkflowErrorUnreachableNode   WorkflowErrorCode = "unreachable_node"
	WorkflowErrorNoTerminalPath    WorkflowErrorCode = "no_terminal_path"
	WorkflowErrorCycleDetected     WorkflowErrorCode = "cycle_detected"
	WorkflowErrorInvalidCondition  WorkflowErrorCode = "invalid_condition"
	WorkflowErrorInvalidNode       WorkflowErrorCode = "invalid_node"
)

// WorkflowError is an error raised during definition validation or condition
// parsing. NodeID is set when the error is attributable to a single node.
type WorkflowError struct {
	Code    WorkflowErrorCode `json:"code"`
	Message string            `json:"message"`
	NodeID  string            `json:"node_id,omitempty"`
	Cause   error             `json:"-"`
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if e.NodeID != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s [node: %s]: %s (caused by: %v)", e.Code, e.NodeID, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s [node: %s]: %s", e.Code, e.NodeID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *WorkflowError) Unwrap() error {
	return e.Cause
}
