package events

import (
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// EventType identifies the category and nature of an event.
type EventType string

// Instance lifecycle events.
// These events track a document's traversal of its workflow.
const (
	EventInstanceCreated    EventType = "instance.created"
	EventInstanceMoved      EventType = "instance.moved"
	EventInstanceCompleted  EventType = "instance.completed"
	EventInstanceRejected   EventType = "instance.rejected"
	EventInstanceCancelled  EventType = "instance.cancelled"
	EventInstanceExpired    EventType = "instance.expired"
	EventApprovalRecorded   EventType = "instance.approval_recorded"
	EventVerificationFailed EventType = "instance.verification_failed"
)

// Action dispatch events.
// These events track side effects executed by action nodes.
const (
	EventActionDispatched     EventType = "action.dispatched"
	EventActionDelivered      EventType = "action.delivered"
	EventActionDeliveryFailed EventType = "action.delivery_failed"
)

// Definition events.
const (
	EventDefinitionPublished EventType = "definition.published"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event represents an observability event emitted by the engine and the
// action dispatcher. It is JSON-serializable and carries enough context
// for filtering without consulting the database.
type Event struct {
	// Type identifies the category and nature of the event
	Type EventType `json:"type"`

	// Timestamp records when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// InstanceID associates the event with a workflow instance
	InstanceID types.ID `json:"instance_id,omitempty"`

	// DefinitionID associates the event with a workflow definition
	DefinitionID types.ID `json:"definition_id,omitempty"`

	// NodeID identifies the node the event concerns, if any
	NodeID string `json:"node_id,omitempty"`

	// Actor identifies who triggered the event (empty for system events)
	Actor types.ID `json:"actor,omitempty"`

	// Payload contains event-specific typed data (use type assertion to access)
	Payload any `json:"payload,omitempty"`

	// Attrs contains additional key-value attributes
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Filter defines criteria for filtering events in subscriptions.
// All fields use AND logic; empty fields act as wildcards.
type Filter struct {
	// Types filters by event types (empty = all types)
	Types []EventType `json:"types,omitempty"`

	// InstanceID filters by instance (empty = all instances)
	InstanceID types.ID `json:"instance_id,omitempty"`

	// DefinitionID filters by definition (empty = all definitions)
	DefinitionID types.ID `json:"definition_id,omitempty"`
}

// Matches determines if the given event matches this filter's criteria.
func (f *Filter) Matches(event Event) bool {
	if len(f.Types) > 0 {
		matched := false
		for _, t := range f.Types {
			if event.Type == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.InstanceID != "" && event.InstanceID != f.InstanceID {
		return false
	}
	if f.DefinitionID != "" && event.DefinitionID != f.DefinitionID {
		return false
	}
	return true
}

// MovedPayload contains data for instance.moved events.
type MovedPayload struct {
	FromNode string `json:"from_node"`
	ToNode   string `json:"to_node"`
	EdgeHops int    `json:"edge_hops"`
}

// ApprovalPayload contains data for instance.approval_recorded events.
type ApprovalPayload struct {
	NodeID   string `json:"node_id"`
	Approver string `json:"approver"`
	Count    int    `json:"count"`
	Required int    `json:"required"`
}

// DeliveryPayload contains data for action.* events.
type DeliveryPayload struct {
	NodeID     string `json:"node_id"`
	ActionType string `json:"action_type"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error,omitempty"`
}

// VerificationPayload contains data for instance.verification_failed events.
type VerificationPayload struct {
	DocumentID       string `json:"document_id"`
	HashMatches      bool   `json:"hash_matches"`
	ChainValid       bool   `json:"chain_valid"`
	SignatureValid   bool   `json:"signature_valid"`
	RevocationStatus string `json:"revocation_status"`
}
