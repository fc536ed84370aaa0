package engine

import (
	"github.com/ghost-ng/Papertrail/internal/database"
	"github.com/ghost-ng/Papertrail/internal/workflow"
)

// TransitionResult reports the outcome of a submitted routing event.
type TransitionResult struct {
	// Moved is false when no outgoing edge was satisfied; the instance
	// stays where it is and waits for further events.
	Moved bool

	// From and To name the endpoints of the overall move. When the
	// instance traversed a chain of action or branch nodes, To is the
	// final resting node.
	From string
	To   string

	// Path lists every node entered during the move, in order, excluding
	// From.
	Path []string

	// Status is the instance status after the event.
	Status database.InstanceStatus

	// ApprovalRecorded is true when the event added the actor to the
	// current approval node's approver set.
	ApprovalRecorded bool

	// ActionFailures lists side effects that failed terminally during
	// this event. Failures never revert the move.
	ActionFailures []ActionFailure
}

// ActionFailure describes one side effect that exhausted its retries.
type ActionFailure struct {
	NodeID     string
	ActionType workflow.ActionType
	Err        string
}
