package action

import (
	"context"
	"log/slog"
	"time"

	"github.com/ghost-ng/Papertrail/internal/events"
	"github.com/ghost-ng/Papertrail/internal/types"
	"github.com/ghost-ng/Papertrail/internal/workflow"
)

// ActiveFunc reports whether an instance is still active. The dispatcher
// consults it before every retry so side effects for instances that were
// cancelled or expired mid-backoff are abandoned.
type ActiveFunc func(ctx context.Context, instanceID types.ID) (bool, error)

// ExhaustedFunc is invoked when delivery fails terminally. The engine
// uses it to append a delivery-failed annotation to the audit trail.
type ExhaustedFunc func(ctx context.Context, req Request, attempts int, lastErr error)

// Dispatcher delivers action-node side effects at-least-once with bounded
// retry. Delivery outcomes never influence routing; a failed delivery is
// surfaced through the exhausted callback and the event bus, and the
// instance continues on its path.
type Dispatcher struct {
	sinks     map[workflow.ActionType]DeliverySink
	policy    RetryPolicy
	bus       events.EventBus
	active    ActiveFunc
	exhausted ExhaustedFunc
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRetryPolicy overrides the delivery retry policy.
func WithRetryPolicy(policy RetryPolicy) DispatcherOption {
	return func(d *Dispatcher) {
		d.policy = policy
	}
}

// WithActiveCheck sets the instance liveness check run before retries.
func WithActiveCheck(fn ActiveFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.active = fn
	}
}

// WithExhaustedCallback sets the terminal-failure callback.
func WithExhaustedCallback(fn ExhaustedFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.exhausted = fn
	}
}

// WithDispatchLogger sets the dispatcher's logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// withSleep overrides backoff sleeping, for tests.
func withSleep(fn func(ctx context.Context, d time.Duration) error) DispatcherOption {
	return func(d *Dispatcher) {
		d.sleep = fn
	}
}

// NewDispatcher creates a Dispatcher routing to the given sinks.
func NewDispatcher(bus events.EventBus, sinks []DeliverySink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sinks:  make(map[workflow.ActionType]DeliverySink, len(sinks)),
		policy: DefaultRetryPolicy(),
		bus:    bus,
		logger: slog.Default(),
		sleep:  sleepCtx,
	}
	for _, sink := range sinks {
		d.sinks[sink.Type()] = sink
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers req, retrying per the policy. It blocks through the
// backoff schedule and returns the final delivery error, nil on success.
// Callers run it after the triggering transition has committed, off the
// instance lock.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	if req.AttemptGroup == "" {
		req.AttemptGroup = types.NewID()
	}

	sink, ok := d.sinks[req.ActionType]
	if !ok {
		err := types.NewErrorf(types.ACTION_DISPATCH_FAILED,
			"no sink registered for action type %q", req.ActionType)
		d.fail(ctx, req, 0, err)
		return err
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= d.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := d.sleep(ctx, d.policy.CalculateDelay(attempt - 1)); err != nil {
				d.fail(ctx, req, attempts, lastErr)
				return lastErr
			}
			// The instance may have gone terminal during backoff.
			if d.active != nil {
				active, err := d.active(ctx, req.InstanceID)
				if err == nil && !active {
					d.logger.InfoContext(ctx, "abandoning delivery for inactive instance",
						"instance_id", req.InstanceID,
						"node_id", req.NodeID,
						"action_type", req.ActionType)
					return nil
				}
			}
		}

		attempts++
		lastErr = sink.Deliver(ctx, req)
		if lastErr == nil {
			d.publish(ctx, events.EventActionDelivered, req, attempts, nil)
			return nil
		}

		d.logger.WarnContext(ctx, "action delivery failed",
			"instance_id", req.InstanceID,
			"node_id", req.NodeID,
			"action_type", req.ActionType,
			"attempt", attempts,
			"error", lastErr)

		if !types.IsRetryable(lastErr) {
			break
		}
	}

	d.fail(ctx, req, attempts, lastErr)
	return lastErr
}

func (d *Dispatcher) fail(ctx context.Context, req Request, attempts int, err error) {
	if d.exhausted != nil {
		d.exhausted(ctx, req, attempts, err)
	}
	d.publish(ctx, events.EventActionDeliveryFailed, req, attempts, err)
}

func (d *Dispatcher) publish(ctx context.Context, typ events.EventType, req Request, attempts int, err error) {
	if d.bus == nil {
		return
	}
	payload := events.DeliveryPayload{
		NodeID:     req.NodeID,
		ActionType: string(req.ActionType),
		Attempts:   attempts,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	d.bus.Publish(ctx, events.Event{
		Type:         typ,
		Timestamp:    time.Now().UTC(),
		InstanceID:   req.InstanceID,
		DefinitionID: req.DefinitionID,
		NodeID:       req.NodeID,
		Payload:      payload,
	})
}

func sleepCtx(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
