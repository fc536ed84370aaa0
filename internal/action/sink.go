package action

import (
	"context"
	"time"

	"github.com/ghost-ng/Papertrail/internal/events"
	"github.com/ghost-ng/Papertrail/internal/types"
	"github.com/ghost-ng/Papertrail/internal/workflow"
)

// Request describes one side effect to deliver. AttemptGroup is stable
// across the retries of a single dispatch, so downstream receivers can
// deduplicate at-least-once redeliveries.
type Request struct {
	InstanceID   types.ID
	DefinitionID types.ID
	DocumentID   types.ID
	NodeID       string
	ActionType   workflow.ActionType
	Params       map[string]any
	AttemptGroup types.ID
}

// DeliverySink delivers one kind of side effect. Deliver returns nil only
// when the effect demonstrably reached its destination; any other outcome
// is an error eligible for retry.
type DeliverySink interface {
	// Type reports which action type this sink handles.
	Type() workflow.ActionType

	// Deliver executes the side effect once.
	Deliver(ctx context.Context, req Request) error
}

// NotifySink publishes notify actions onto the event bus, where alerting
// subscribers pick them up.
type NotifySink struct {
	bus events.EventBus
}

// NewNotifySink creates a NotifySink publishing to bus.
func NewNotifySink(bus events.EventBus) *NotifySink {
	return &NotifySink{bus: bus}
}

func (s *NotifySink) Type() workflow.ActionType {
	return workflow.ActionNotify
}

func (s *NotifySink) Deliver(ctx context.Context, req Request) error {
	return s.bus.Publish(ctx, events.Event{
		Type:         events.EventActionDispatched,
		Timestamp:    time.Now().UTC(),
		InstanceID:   req.InstanceID,
		DefinitionID: req.DefinitionID,
		NodeID:       req.NodeID,
		Payload: events.DeliveryPayload{
			NodeID:     req.NodeID,
			ActionType: string(req.ActionType),
		},
		Attrs: map[string]any{
			"attempt_group": req.AttemptGroup.String(),
			"params":        req.Params,
		},
	})
}

var _ DeliverySink = (*NotifySink)(nil)
