package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ghost-ng/Papertrail/internal/database"
	"github.com/ghost-ng/Papertrail/internal/types"
)

// Recorder appends to and verifies per-instance audit chains. Sequence
// numbers and hash linkage are assigned at append time from the current
// chain tail, inside the caller's transaction when one is supplied, so a
// committed instance update and its audit entries are atomic.
type Recorder struct {
	db     *database.DB
	logger *slog.Logger
	now    func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the recorder's logger.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a Recorder backed by db.
func NewRecorder(db *database.DB, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Append seals and persists events at the tail of the instance's chain,
// in its own transaction.
func (r *Recorder) Append(ctx context.Context, events ...*Event) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return r.AppendTx(ctx, tx, events...)
	})
}

// AppendTx seals and persists events inside an existing transaction. All
// events must belong to the same instance. Timestamps left zero are set
// from the recorder's clock.
func (r *Recorder) AppendTx(ctx context.Context, tx *sql.Tx, events ...*Event) error {
	if len(events) == 0 {
		return nil
	}
	instanceID := events[0].InstanceID

	seq, prevHash, err := chainTail(ctx, tx, instanceID)
	if err != nil {
		return err
	}

	for _, ev := range events {
		if ev.InstanceID != instanceID {
			return types.NewError(types.AUDIT_APPEND_FAILED,
				"cannot append events for multiple instances in one batch")
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = r.now().UTC()
		}
		seq++
		ev.Sequence = seq
		ev.Seal(prevHash)
		prevHash = ev.Hash

		if err := insertEvent(ctx, tx, ev); err != nil {
			return err
		}
	}

	r.logger.DebugContext(ctx, "audit events appended",
		"instance_id", instanceID,
		"count", len(events),
		"tail_sequence", seq)
	return nil
}

func chainTail(ctx context.Context, q querier, instanceID types.ID) (int64, string, error) {
	var seq int64
	var hash string
	err := q.QueryRowContext(ctx,
		`SELECT sequence, hash FROM audit_events WHERE instance_id = ? ORDER BY sequence DESC LIMIT 1`,
		instanceID).Scan(&seq, &hash)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", types.WrapError(types.DB_QUERY_FAILED, "failed to read chain tail", err)
	}
	return seq, hash, nil
}

func insertEvent(ctx context.Context, q querier, ev *Event) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_events (
			instance_id, sequence, kind, from_node, to_node, actor,
			annotation, created_at, prev_hash, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.InstanceID,
		ev.Sequence,
		ev.Kind,
		ev.FromNode,
		ev.ToNode,
		ev.Actor,
		ev.Annotation,
		ev.Timestamp,
		ev.PrevHash,
		ev.Hash,
	)
	if err != nil {
		return types.WrapError(types.AUDIT_APPEND_FAILED, "failed to append audit event", err)
	}
	return nil
}

// List returns an instance's events in sequence order.
func (r *Recorder) List(ctx context.Context, instanceID types.ID) ([]*Event, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT instance_id, sequence, kind, from_node, to_node, actor,
			annotation, created_at, prev_hash, hash
		FROM audit_events WHERE instance_id = ? ORDER BY sequence`,
		instanceID)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list audit events", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var ev Event
		err := rows.Scan(
			&ev.InstanceID,
			&ev.Sequence,
			&ev.Kind,
			&ev.FromNode,
			&ev.ToNode,
			&ev.Actor,
			&ev.Annotation,
			&ev.Timestamp,
			&ev.PrevHash,
			&ev.Hash,
		)
		if err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan audit event", err)
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "audit row iteration failed", err)
	}
	return out, nil
}

// VerifyChain recomputes every hash in the instance's chain and checks
// linkage and sequence continuity. It streams rows rather than loading
// the whole chain, so long-lived instances verify in constant memory.
func (r *Recorder) VerifyChain(ctx context.Context, instanceID types.ID) error {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT instance_id, sequence, kind, from_node, to_node, actor,
			annotation, created_at, prev_hash, hash
		FROM audit_events WHERE instance_id = ? ORDER BY sequence`,
		instanceID)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to read audit chain", err)
	}
	defer rows.Close()

	var expectedSeq int64
	var prevHash string
	for rows.Next() {
		var ev Event
		err := rows.Scan(
			&ev.InstanceID,
			&ev.Sequence,
			&ev.Kind,
			&ev.FromNode,
			&ev.ToNode,
			&ev.Actor,
			&ev.Annotation,
			&ev.Timestamp,
			&ev.PrevHash,
			&ev.Hash,
		)
		if err != nil {
			return types.WrapError(types.DB_QUERY_FAILED, "failed to scan audit event", err)
		}
		expectedSeq++
		if ev.Sequence != expectedSeq {
			return types.NewError(types.CHAIN_CORRUPTED,
				fmt.Sprintf("chain for instance %s jumps from sequence %d to %d",
					instanceID, expectedSeq-1, ev.Sequence))
		}
		if err := ev.Verify(prevHash); err != nil {
			return err
		}
		prevHash = ev.Hash
	}
	return rows.Err()
}
