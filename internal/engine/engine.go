// Package engine drives document instances through published workflow
// definitions. Transitions are committed atomically with their audit
// events; side effects run after commit and never influence routing.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ghost-ng/Papertrail/internal/action"
	"github.com/ghost-ng/Papertrail/internal/audit"
	"github.com/ghost-ng/Papertrail/internal/database"
	"github.com/ghost-ng/Papertrail/internal/events"
	"github.com/ghost-ng/Papertrail/internal/identity"
	"github.com/ghost-ng/Papertrail/internal/pki"
	"github.com/ghost-ng/Papertrail/internal/types"
	"github.com/ghost-ng/Papertrail/internal/workflow"
)

// Engine coordinates instance lifecycle: creation, event-driven
// transitions, cancellation, and expiry. All state mutation goes through
// the instance DAO's version CAS, so concurrent writers from other
// processes surface as CONCURRENT_MODIFICATION rather than lost updates.
type Engine struct {
	mu          sync.RWMutex
	definitions map[types.ID]*workflow.Definition

	db            *database.DB
	instances     database.InstanceDAO
	verifications database.VerificationDAO
	recorder      *audit.Recorder
	verifier      *pki.Verifier
	documents     pki.Store
	identities    identity.Provider
	dispatcher    *action.Dispatcher
	bus           events.EventBus
	locks         *lockMap

	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
	deadline time.Duration
	sweepers int
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer for the engine.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithDeadline sets how long an instance may sit idle before the expiry
// sweep retires it. Default: 30 days.
func WithDeadline(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.deadline = d
		}
	}
}

// WithEventBus sets the bus lifecycle events are published to.
func WithEventBus(bus events.EventBus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithDispatcher sets the action dispatcher.
func WithDispatcher(d *action.Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithSweepConcurrency bounds how many instances SweepExpired retires in
// parallel. Default: 4.
func WithSweepConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sweepers = n
		}
	}
}

// New creates an Engine. The database must already be migrated.
func New(
	db *database.DB,
	documents pki.Store,
	verifier *pki.Verifier,
	identities identity.Provider,
	opts ...Option,
) *Engine {
	e := &Engine{
		definitions:   make(map[types.ID]*workflow.Definition),
		db:            db,
		instances:     database.NewInstanceDAO(db),
		verifications: database.NewVerificationDAO(db),
		recorder:      audit.NewRecorder(db),
		verifier:      verifier,
		documents:     documents,
		identities:    identities,
		locks:         newLockMap(),
		logger:        slog.Default(),
		tracer:        trace.NewNoopTracerProvider().Tracer("engine"),
		now:           time.Now,
		deadline:      30 * 24 * time.Hour,
		sweepers:      4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recorder exposes the audit recorder, for report generation and the
// audit verify command.
func (e *Engine) Recorder() *audit.Recorder {
	return e.recorder
}

// RegisterDefinition publishes and registers a definition. Registration
// fails if validation fails or the ID is already taken.
func (e *Engine) RegisterDefinition(ctx context.Context, def *workflow.Definition) error {
	if err := def.Publish(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.definitions[def.ID]; exists {
		return types.NewErrorf(types.DEFINITION_INVALID, "definition %s already registered", def.ID)
	}
	e.definitions[def.ID] = def

	e.logger.InfoContext(ctx, "definition registered",
		"definition_id", def.ID,
		"name", def.Name,
		"nodes", len(def.Nodes))
	e.publishEvent(ctx, events.Event{
		Type:         events.EventDefinitionPublished,
		DefinitionID: def.ID,
	})
	return nil
}

// Definition returns a registered definition.
func (e *Engine) Definition(id types.ID) (*workflow.Definition, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.definitions[id]
	if !ok {
		return nil, types.NewErrorf(types.DEFINITION_NOT_FOUND, "definition %s not found", id)
	}
	return def, nil
}

// CreateInstance starts routing a document through a registered
// definition. The instance begins at the definition's start node with an
// instance-created audit event.
func (e *Engine) CreateInstance(ctx context.Context, definitionID, documentID, initiator types.ID) (*database.Instance, error) {
	ctx, span := e.tracer.Start(ctx, "engine.CreateInstance")
	defer span.End()

	def, err := e.Definition(definitionID)
	if err != nil {
		return nil, err
	}
	if _, err := e.documents.Get(ctx, documentID); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	inst := &database.Instance{
		ID:           types.NewID(),
		DefinitionID: definitionID,
		DocumentID:   documentID,
		CurrentNode:  def.StartNode(),
		Status:       database.InstanceStatusActive,
		CreatedBy:    initiator,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	span.SetAttributes(attribute.String("instance_id", inst.ID.String()))

	err = e.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.instances.CreateTx(ctx, tx, inst); err != nil {
			return err
		}
		return e.recorder.AppendTx(ctx, tx, &audit.Event{
			InstanceID: inst.ID,
			Kind:       audit.EventInstanceCreated,
			ToNode:     inst.CurrentNode,
			Actor:      initiator,
			Timestamp:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "instance created",
		"instance_id", inst.ID,
		"definition_id", definitionID,
		"document_id", documentID,
		"start_node", inst.CurrentNode)
	e.publishEvent(ctx, events.Event{
		Type:         events.EventInstanceCreated,
		InstanceID:   inst.ID,
		DefinitionID: definitionID,
		NodeID:       inst.CurrentNode,
		Actor:        initiator,
	})
	return inst, nil
}

// SubmitEvent processes a routing event from actor against the instance's
// current node. Outgoing edges are evaluated in priority order and the
// first satisfied edge wins; no satisfied edge leaves the instance in
// place with Moved=false. At approval nodes the actor's approval is
// recorded before edges are evaluated, so a submit that does not yet meet
// the threshold still counts toward it.
func (e *Engine) SubmitEvent(ctx context.Context, instanceID, actorID types.ID, comment string) (*TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.SubmitEvent",
		trace.WithAttributes(attribute.String("instance_id", instanceID.String())))
	defer span.End()

	release := e.locks.acquire(instanceID)
	defer func() {
		if release != nil {
			release()
		}
	}()

	inst, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status.IsTerminal() {
		return nil, types.NewErrorf(types.INSTANCE_TERMINAL,
			"instance %s is %s", instanceID, inst.Status)
	}

	def, err := e.Definition(inst.DefinitionID)
	if err != nil {
		return nil, err
	}
	actor, err := e.identities.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	verification, verifyAnnotation, err := e.verifyDocument(ctx, inst.DocumentID, now)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{From: inst.CurrentNode, Status: inst.Status}
	var trail []*audit.Event

	current := def.GetNode(inst.CurrentNode)
	if current == nil {
		return nil, types.NewErrorf(types.DEFINITION_INVALID,
			"instance %s rests on unknown node %q", instanceID, inst.CurrentNode)
	}

	if current.Kind == workflow.NodeKindApproval {
		if inst.RecordApproval(current.ID, actorID) {
			result.ApprovalRecorded = true
			trail = append(trail, &audit.Event{
				InstanceID: inst.ID,
				Kind:       audit.EventApprovalRecorded,
				FromNode:   current.ID,
				ToNode:     current.ID,
				Actor:      actorID,
				Annotation: comment,
				Timestamp:  now,
			})
		}
	}

	evalCtx := workflow.EvalContext{
		Actor:           actor,
		ApprovalsByNode: inst.ApprovalsByNode,
		Verification:    verification,
		Now:             now,
	}

	hops, _ := e.traverse(def, inst.CurrentNode, evalCtx)
	if verifyAnnotation != "" {
		trail = append(trail, &audit.Event{
			InstanceID: inst.ID,
			Kind:       audit.EventAnnotation,
			FromNode:   inst.CurrentNode,
			ToNode:     inst.CurrentNode,
			Actor:      identity.System,
			Annotation: verifyAnnotation,
			Timestamp:  now,
		})
	}

	if len(hops) == 0 {
		// Nothing moved. Persist only if the approval set changed or an
		// annotation was produced.
		if len(trail) > 0 {
			inst.UpdatedAt = now
			if err := e.commit(ctx, inst, trail); err != nil {
				return nil, err
			}
			e.publishApproval(ctx, inst, current, actorID)
		}
		result.To = inst.CurrentNode
		return result, nil
	}

	var dispatches []action.Request
	for _, hop := range hops {
		node := def.GetNode(hop.To)
		trail = append(trail, &audit.Event{
			InstanceID: inst.ID,
			Kind:       audit.EventTransition,
			FromNode:   hop.From,
			ToNode:     hop.To,
			Actor:      hop.Actor,
			Annotation: hop.Annotation,
			Timestamp:  now,
		})
		result.Path = append(result.Path, hop.To)

		if node.Kind == workflow.NodeKindAction {
			dispatches = append(dispatches, action.Request{
				InstanceID:   inst.ID,
				DefinitionID: inst.DefinitionID,
				DocumentID:   inst.DocumentID,
				NodeID:       node.ID,
				ActionType:   node.ActionType,
				Params:       node.ActionParams,
				AttemptGroup: types.NewID(),
			})
		}
	}

	final := def.GetNode(hops[len(hops)-1].To)
	inst.CurrentNode = final.ID
	inst.UpdatedAt = now

	if final.Kind == workflow.NodeKindTerminal {
		completed := now
		inst.CompletedAt = &completed
		switch final.TerminalOutcome {
		case workflow.OutcomeRejected:
			inst.Status = database.InstanceStatusRejected
			trail = append(trail, &audit.Event{
				InstanceID: inst.ID,
				Kind:       audit.EventInstanceRejected,
				ToNode:     final.ID,
				Actor:      actorID,
				Timestamp:  now,
			})
		default:
			inst.Status = database.InstanceStatusCompleted
			trail = append(trail, &audit.Event{
				InstanceID: inst.ID,
				Kind:       audit.EventInstanceCompleted,
				ToNode:     final.ID,
				Actor:      actorID,
				Timestamp:  now,
			})
		}
	}

	if err := e.commit(ctx, inst, trail); err != nil {
		return nil, err
	}

	result.Moved = true
	result.To = inst.CurrentNode
	result.Status = inst.Status

	e.logger.InfoContext(ctx, "instance moved",
		"instance_id", inst.ID,
		"from", result.From,
		"to", result.To,
		"status", inst.Status,
		"hops", len(hops))
	e.publishMove(ctx, inst, result, actorID)

	// Side effects run after the move is durable and off the instance
	// lock, so retry backoff does not block cancellation, expiry, or
	// further submits. Failures are surfaced in the result and the audit
	// trail, never reverted.
	release()
	release = nil
	for _, req := range dispatches {
		node := def.GetNode(req.NodeID)
		if err := e.dispatch(ctx, req); err != nil {
			result.ActionFailures = append(result.ActionFailures, ActionFailure{
				NodeID:     req.NodeID,
				ActionType: node.ActionType,
				Err:        err.Error(),
			})
		}
	}
	return result, nil
}

// hop is one edge taken during a single submitted event.
type hop struct {
	From       string
	To         string
	Actor      types.ID
	Annotation string
}

// traverse walks from startNode, taking the first satisfied edge at each
// node. Action and branch nodes the instance enters are traversed
// immediately, so a single event can carry the instance through a chain
// of automatic nodes until it reaches an approval, review, terminal, or
// unsatisfied node. The walk is bounded by the node count so a
// mis-declared graph cannot loop forever; pending is true when the walk
// stopped because no edge was satisfied.
func (e *Engine) traverse(def *workflow.Definition, startNode string, evalCtx workflow.EvalContext) (hops []hop, pending bool) {
	current := startNode
	maxHops := len(def.Nodes) + 1

	for i := 0; i < maxHops; i++ {
		edge := e.selectEdge(def, current, evalCtx)
		if edge == nil {
			return hops, true
		}

		actor := evalCtx.Actor.ID
		annotation := ""
		if len(hops) > 0 {
			// Hops past the first are automatic continuations.
			actor = identity.System
			annotation = fmt.Sprintf("automatic continuation from %s", current)
		}
		hops = append(hops, hop{From: current, To: edge.To, Actor: actor, Annotation: annotation})
		current = edge.To

		node := def.GetNode(current)
		if node.Kind != workflow.NodeKindAction && node.Kind != workflow.NodeKindBranch {
			return hops, false
		}
	}
	return hops, false
}

// selectEdge returns the first satisfied outgoing edge of nodeID in
// (priority, declaration order), or nil when none is satisfied.
func (e *Engine) selectEdge(def *workflow.Definition, nodeID string, evalCtx workflow.EvalContext) *workflow.Edge {
	for _, edge := range def.OutgoingEdges(nodeID) {
		if workflow.Evaluate(edge.Condition, def, evalCtx) {
			return &edge
		}
	}
	return nil
}

// verifyDocument loads the document, verifies its signatures, persists
// the per-signature results, and condenses them into the verdict edge
// conditions consult. A hash mismatch yields an annotation for the audit
// trail.
func (e *Engine) verifyDocument(ctx context.Context, documentID types.ID, now time.Time) (workflow.DocumentVerification, string, error) {
	doc, err := e.documents.Get(ctx, documentID)
	if err != nil {
		return workflow.DocumentVerification{}, "", err
	}

	verdict := workflow.DocumentVerification{
		HashMatches: doc.ComputeContentHash() == doc.ContentHash,
	}

	results := e.verifier.VerifyDocument(ctx, doc)
	for i, res := range results {
		if res.Trusted() {
			verdict.CertificateValid = true
		}
		rec := &database.VerificationRecord{
			DocumentID:       documentID,
			SignatureDigest:  doc.Signatures[i].Digest(),
			ChainValid:       res.CertificateChainValid,
			SignatureValid:   res.SignatureValid,
			RevocationStatus: string(res.Revocation),
			HashMatches:      res.HashMatches,
			VerifiedAt:       res.VerifiedAt,
		}
		if err := e.verifications.Put(ctx, rec); err != nil {
			e.logger.WarnContext(ctx, "failed to persist verification record",
				"document_id", documentID, "error", err)
		}
	}

	annotation := ""
	if !verdict.HashMatches {
		annotation = fmt.Sprintf("document %s content hash does not match recorded hash", documentID)
		e.publishEvent(ctx, events.Event{
			Type: events.EventVerificationFailed,
			Payload: events.VerificationPayload{
				DocumentID:  documentID.String(),
				HashMatches: false,
			},
		})
	}
	return verdict, annotation, nil
}

// commit persists the instance under its version CAS together with the
// audit events, in one transaction.
func (e *Engine) commit(ctx context.Context, inst *database.Instance, trail []*audit.Event) error {
	return e.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.instances.UpdateCASTx(ctx, tx, inst); err != nil {
			return err
		}
		return e.recorder.AppendTx(ctx, tx, trail...)
	})
}

// CancelInstance cancels an active instance. Cancelling an instance that
// is already terminal returns its state unchanged without appending a
// second lifecycle event.
func (e *Engine) CancelInstance(ctx context.Context, instanceID, actorID types.ID, reason string) (*database.Instance, error) {
	ctx, span := e.tracer.Start(ctx, "engine.CancelInstance",
		trace.WithAttributes(attribute.String("instance_id", instanceID.String())))
	defer span.End()

	release := e.locks.acquire(instanceID)
	defer release()

	inst, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status.IsTerminal() {
		return inst, nil
	}

	now := e.now().UTC()
	inst.Status = database.InstanceStatusCancelled
	inst.UpdatedAt = now
	inst.CompletedAt = &now

	err = e.commit(ctx, inst, []*audit.Event{{
		InstanceID: inst.ID,
		Kind:       audit.EventInstanceCancelled,
		FromNode:   inst.CurrentNode,
		ToNode:     inst.CurrentNode,
		Actor:      actorID,
		Annotation: reason,
		Timestamp:  now,
	}})
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "instance cancelled",
		"instance_id", inst.ID, "actor", actorID, "reason", reason)
	e.publishEvent(ctx, events.Event{
		Type:         events.EventInstanceCancelled,
		InstanceID:   inst.ID,
		DefinitionID: inst.DefinitionID,
		NodeID:       inst.CurrentNode,
		Actor:        actorID,
	})
	return inst, nil
}

// ExpireIfOverdue retires the instance when it has sat idle past the
// engine deadline. An instance that moved or went terminal concurrently
// is left alone; losing the CAS race is not an error.
func (e *Engine) ExpireIfOverdue(ctx context.Context, instanceID types.ID, now time.Time) (bool, error) {
	release := e.locks.acquire(instanceID)
	defer release()

	inst, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return false, err
	}
	if inst.Status != database.InstanceStatusActive {
		return false, nil
	}
	if now.Sub(inst.UpdatedAt) <= e.deadline {
		return false, nil
	}

	expiredAt := now.UTC()
	idleSince := inst.UpdatedAt
	inst.Status = database.InstanceStatusExpired
	inst.UpdatedAt = expiredAt
	inst.CompletedAt = &expiredAt

	err = e.commit(ctx, inst, []*audit.Event{{
		InstanceID: inst.ID,
		Kind:       audit.EventInstanceExpired,
		FromNode:   inst.CurrentNode,
		ToNode:     inst.CurrentNode,
		Actor:      identity.System,
		Annotation: fmt.Sprintf("idle since %s", idleSince.Format(time.RFC3339)),
		Timestamp:  expiredAt,
	}})
	if err != nil {
		if types.CodeOf(err) == types.CONCURRENT_MODIFICATION {
			return false, nil
		}
		return false, err
	}

	e.logger.InfoContext(ctx, "instance expired", "instance_id", inst.ID)
	e.publishEvent(ctx, events.Event{
		Type:         events.EventInstanceExpired,
		InstanceID:   inst.ID,
		DefinitionID: inst.DefinitionID,
		NodeID:       inst.CurrentNode,
	})
	return true, nil
}

// SweepExpired expires every overdue active instance, bounded by the
// configured sweep concurrency. It returns how many instances were
// retired.
func (e *Engine) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := e.tracer.Start(ctx, "engine.SweepExpired")
	defer span.End()

	overdue, err := e.instances.ListOverdue(ctx, now.Add(-e.deadline))
	if err != nil {
		return 0, err
	}

	var mu sync.Mutex
	expired := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.sweepers)
	for _, inst := range overdue {
		inst := inst
		g.Go(func() error {
			ok, err := e.ExpireIfOverdue(gctx, inst.ID, now)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				expired++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return expired, err
	}
	return expired, nil
}

// GetInstanceState returns the current persisted instance.
func (e *Engine) GetInstanceState(ctx context.Context, instanceID types.ID) (*database.Instance, error) {
	return e.instances.GetByID(ctx, instanceID)
}

// AuditTrail returns the instance's audit events in sequence order.
func (e *Engine) AuditTrail(ctx context.Context, instanceID types.ID) ([]*audit.Event, error) {
	return e.recorder.List(ctx, instanceID)
}

// VerifyChain verifies the integrity of the instance's audit chain.
func (e *Engine) VerifyChain(ctx context.Context, instanceID types.ID) error {
	return e.recorder.VerifyChain(ctx, instanceID)
}

// InstanceActive reports whether the instance is still active. The action
// dispatcher uses it to abandon deliveries for retired instances.
func (e *Engine) InstanceActive(ctx context.Context, instanceID types.ID) (bool, error) {
	inst, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return false, err
	}
	return inst.Status == database.InstanceStatusActive, nil
}

// RecordDeliveryFailure appends a delivery-failed annotation to the
// instance's audit trail. Wired as the dispatcher's exhausted callback.
func (e *Engine) RecordDeliveryFailure(ctx context.Context, req action.Request, attempts int, lastErr error) {
	msg := fmt.Sprintf("delivery of %s action at node %s failed after %d attempts",
		req.ActionType, req.NodeID, attempts)
	if lastErr != nil {
		msg += ": " + lastErr.Error()
	}
	err := e.recorder.Append(ctx, &audit.Event{
		InstanceID: req.InstanceID,
		Kind:       audit.EventDeliveryFailed,
		FromNode:   req.NodeID,
		ToNode:     req.NodeID,
		Actor:      identity.System,
		Annotation: msg,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to record delivery failure",
			"instance_id", req.InstanceID, "error", err)
	}
}

func (e *Engine) dispatch(ctx context.Context, req action.Request) error {
	if e.dispatcher == nil {
		return nil
	}
	return e.dispatcher.Dispatch(ctx, req)
}

func (e *Engine) publishEvent(ctx context.Context, ev events.Event) {
	if e.bus == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now().UTC()
	}
	e.bus.Publish(ctx, ev)
}

func (e *Engine) publishMove(ctx context.Context, inst *database.Instance, result *TransitionResult, actorID types.ID) {
	e.publishEvent(ctx, events.Event{
		Type:         events.EventInstanceMoved,
		InstanceID:   inst.ID,
		DefinitionID: inst.DefinitionID,
		NodeID:       inst.CurrentNode,
		Actor:        actorID,
		Payload: events.MovedPayload{
			FromNode: result.From,
			ToNode:   result.To,
			EdgeHops: len(result.Path),
		},
	})
	switch inst.Status {
	case database.InstanceStatusCompleted:
		e.publishEvent(ctx, events.Event{
			Type:         events.EventInstanceCompleted,
			InstanceID:   inst.ID,
			DefinitionID: inst.DefinitionID,
			NodeID:       inst.CurrentNode,
			Actor:        actorID,
		})
	case database.InstanceStatusRejected:
		e.publishEvent(ctx, events.Event{
			Type:         events.EventInstanceRejected,
			InstanceID:   inst.ID,
			DefinitionID: inst.DefinitionID,
			NodeID:       inst.CurrentNode,
			Actor:        actorID,
		})
	}
}

func (e *Engine) publishApproval(ctx context.Context, inst *database.Instance, node *workflow.Node, actorID types.ID) {
	required := node.Approvals
	if required <= 0 {
		required = 1
	}
	e.publishEvent(ctx, events.Event{
		Type:         events.EventApprovalRecorded,
		InstanceID:   inst.ID,
		DefinitionID: inst.DefinitionID,
		NodeID:       node.ID,
		Actor:        actorID,
		Payload: events.ApprovalPayload{
			NodeID:   node.ID,
			Approver: actorID.String(),
			Count:    len(inst.ApprovalsByNode[node.ID]),
			Required: required,
		},
	})
}
