package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// InstanceStatus represents the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	// InstanceStatusActive indicates the instance is traversing its graph.
	InstanceStatusActive InstanceStatus = "active"
	// InstanceStatusCompleted indicates a terminal node with a completed outcome was reached.
	InstanceStatusCompleted InstanceStatus = "completed"
	// InstanceStatusRejected indicates a terminal node with a rejected outcome was reached.
	InstanceStatusRejected InstanceStatus = "rejected"
	// InstanceStatusCancelled indicates explicit cancellation.
	InstanceStatusCancelled InstanceStatus = "cancelled"
	// InstanceStatusExpired indicates the expiry sweep retired the instance.
	InstanceStatusExpired InstanceStatus = "expired"
)

// IsTerminal reports whether the status is one of the four mutually
// exclusive terminal states. No transition leaves a terminal state.
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case InstanceStatusCompleted, InstanceStatusRejected, InstanceStatusCancelled, InstanceStatusExpired:
		return true
	default:
		return false
	}
}

// Instance is one document's live traversal of a workflow definition.
// The engine owns all mutation; Version backs its optimistic concurrency
// check.
type Instance struct {
	ID              types.ID            `json:"id"`
	DefinitionID    types.ID            `json:"definition_id"`
	DocumentID      types.ID            `json:"document_id"`
	CurrentNode     string              `json:"current_node"`
	Status          InstanceStatus      `json:"status"`
	ApprovalsByNode map[string][]string `json:"approvals_by_node,omitempty"`
	CreatedBy       types.ID            `json:"created_by"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
}

// RecordApproval adds approver to the node's approval set if not already
// present, returning whether the set changed.
func (i *Instance) RecordApproval(nodeID string, approver types.ID) bool {
	if i.ApprovalsByNode == nil {
		i.ApprovalsByNode = make(map[string][]string)
	}
	for _, existing := range i.ApprovalsByNode[nodeID] {
		if existing == approver.String() {
			return false
		}
	}
	i.ApprovalsByNode[nodeID] = append(i.ApprovalsByNode[nodeID], approver.String())
	return true
}

// InstanceDAO provides database operations for workflow instances.
type InstanceDAO interface {
	// Create persists a new instance.
	Create(ctx context.Context, instance *Instance) error

	// CreateTx is Create inside an existing transaction.
	CreateTx(ctx context.Context, tx *sql.Tx, instance *Instance) error

	// GetByID retrieves an instance by ID.
	GetByID(ctx context.Context, id types.ID) (*Instance, error)

	// List lists instances, optionally filtered by status (empty = all).
	List(ctx context.Context, status InstanceStatus) ([]*Instance, error)

	// ListOverdue lists active instances not updated since cutoff.
	ListOverdue(ctx context.Context, cutoff time.Time) ([]*Instance, error)

	// UpdateCAS persists instance changes guarded by the version the caller
	// read. On success the instance's Version is advanced. A stale version
	// yields a CONCURRENT_MODIFICATION error.
	UpdateCAS(ctx context.Context, instance *Instance) error

	// UpdateCASTx is UpdateCAS inside an existing transaction.
	UpdateCASTx(ctx context.Context, tx *sql.Tx, instance *Instance) error
}

type instanceDAO struct {
	db *DB
}

// NewInstanceDAO creates an InstanceDAO.
func NewInstanceDAO(db *DB) InstanceDAO {
	return &instanceDAO{db: db}
}

func (d *instanceDAO) Create(ctx context.Context, instance *Instance) error {
	return d.create(ctx, d.db.conn, instance)
}

func (d *instanceDAO) CreateTx(ctx context.Context, tx *sql.Tx, instance *Instance) error {
	return d.create(ctx, tx, instance)
}

func (d *instanceDAO) create(ctx context.Context, ex execer, instance *Instance) error {
	if instance.ID == "" {
		instance.ID = types.NewID()
	}
	if instance.Version == 0 {
		instance.Version = 1
	}
	approvals, err := marshalApprovals(instance.ApprovalsByNode)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO instances (
			id, definition_id, document_id, current_node, status, approvals,
			created_by, version, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		instance.ID,
		instance.DefinitionID,
		instance.DocumentID,
		instance.CurrentNode,
		instance.Status,
		approvals,
		instance.CreatedBy,
		instance.Version,
		instance.CreatedAt,
		instance.UpdatedAt,
		instance.CompletedAt,
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to create instance", err)
	}
	return nil
}

const instanceColumns = `id, definition_id, document_id, current_node, status, approvals,
	created_by, version, created_at, updated_at, completed_at`

func (d *instanceDAO) GetByID(ctx context.Context, id types.ID) (*Instance, error) {
	row := d.db.conn.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id)
	instance, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, types.NewErrorf(types.INSTANCE_NOT_FOUND, "instance %s not found", id)
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to load instance", err)
	}
	return instance, nil
}

func (d *instanceDAO) List(ctx context.Context, status InstanceStatus) ([]*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list instances", err)
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (d *instanceDAO) ListOverdue(ctx context.Context, cutoff time.Time) ([]*Instance, error) {
	rows, err := d.db.conn.QueryContext(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE status = ? AND updated_at < ? ORDER BY updated_at`,
		InstanceStatusActive, cutoff)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list overdue instances", err)
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (d *instanceDAO) UpdateCAS(ctx context.Context, instance *Instance) error {
	return d.updateCAS(ctx, d.db.conn, instance)
}

func (d *instanceDAO) UpdateCASTx(ctx context.Context, tx *sql.Tx, instance *Instance) error {
	return d.updateCAS(ctx, tx, instance)
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (d *instanceDAO) updateCAS(ctx context.Context, ex execer, instance *Instance) error {
	approvals, err := marshalApprovals(instance.ApprovalsByNode)
	if err != nil {
		return err
	}

	res, err := ex.ExecContext(ctx, `
		UPDATE instances
		SET current_node = ?, status = ?, approvals = ?, version = version + 1,
			updated_at = ?, completed_at = ?
		WHERE id = ? AND version = ?`,
		instance.CurrentNode,
		instance.Status,
		approvals,
		instance.UpdatedAt,
		instance.CompletedAt,
		instance.ID,
		instance.Version,
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to update instance", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to read update result", err)
	}
	if affected == 0 {
		return types.NewRetryableError(types.CONCURRENT_MODIFICATION,
			fmt.Sprintf("instance %s was modified concurrently", instance.ID), nil)
	}
	instance.Version++
	return nil
}

func marshalApprovals(approvals map[string][]string) (string, error) {
	if approvals == nil {
		return "{}", nil
	}
	data, err := json.Marshal(approvals)
	if err != nil {
		return "", types.WrapError(types.DB_QUERY_FAILED, "failed to marshal approvals", err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (*Instance, error) {
	var instance Instance
	var approvals string
	var completedAt sql.NullTime
	err := row.Scan(
		&instance.ID,
		&instance.DefinitionID,
		&instance.DocumentID,
		&instance.CurrentNode,
		&instance.Status,
		&approvals,
		&instance.CreatedBy,
		&instance.Version,
		&instance.CreatedAt,
		&instance.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		instance.CompletedAt = &completedAt.Time
	}
	if approvals != "" && approvals != "{}" {
		if err := json.Unmarshal([]byte(approvals), &instance.ApprovalsByNode); err != nil {
			return nil, fmt.Errorf("failed to unmarshal approvals: %w", err)
		}
	}
	return &instance, nil
}

func collectInstances(rows *sql.Rows) ([]*Instance, error) {
	var out []*Instance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan instance", err)
		}
		out = append(out, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "instance row iteration failed", err)
	}
	return out, nil
}
