package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-ng/Papertrail/internal/types"
)

func newTestInstance() *Instance {
	now := time.Now().UTC().Truncate(time.Second)
	return &Instance{
		ID:           types.NewID(),
		DefinitionID: types.NewID(),
		DocumentID:   types.NewID(),
		CurrentNode:  "review",
		Status:       InstanceStatusActive,
		CreatedBy:    types.NewID(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestInstanceCreateAndGet(t *testing.T) {
	db := testDB(t)
	dao := NewInstanceDAO(db)
	ctx := context.Background()

	inst := newTestInstance()
	inst.ApprovalsByNode = map[string][]string{"approve": {"u1"}}
	require.NoError(t, dao.Create(ctx, inst))

	got, err := dao.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.CurrentNode, got.CurrentNode)
	assert.Equal(t, InstanceStatusActive, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, []string{"u1"}, got.ApprovalsByNode["approve"])
	assert.Nil(t, got.CompletedAt)
}

func TestInstanceCreateTxIsTransactional(t *testing.T) {
	db := testDB(t)
	dao := NewInstanceDAO(db)
	ctx := context.Background()

	// A rolled-back transaction leaves no instance row behind.
	rolledBack := newTestInstance()
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := dao.CreateTx(ctx, tx, rolledBack); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)
	_, err = dao.GetByID(ctx, rolledBack.ID)
	assert.Equal(t, types.INSTANCE_NOT_FOUND, types.CodeOf(err))

	// A committed one is visible, including when the tx holds the pool's
	// only connection.
	committed := newTestInstance()
	require.NoError(t, db.WithTx(ctx, func(tx *sql.Tx) error {
		return dao.CreateTx(ctx, tx, committed)
	}))
	got, err := dao.GetByID(ctx, committed.ID)
	require.NoError(t, err)
	assert.Equal(t, committed.ID, got.ID)
}

func TestInstanceGetMissing(t *testing.T) {
	db := testDB(t)
	dao := NewInstanceDAO(db)

	_, err := dao.GetByID(context.Background(), types.NewID())
	assert.Equal(t, types.INSTANCE_NOT_FOUND, types.CodeOf(err))
}

func TestInstanceUpdateCAS(t *testing.T) {
	db := testDB(t)
	dao := NewInstanceDAO(db)
	ctx := context.Background()

	inst := newTestInstance()
	require.NoError(t, dao.Create(ctx, inst))

	inst.CurrentNode = "approve"
	inst.UpdatedAt = time.Now().UTC()
	require.NoError(t, dao.UpdateCAS(ctx, inst))
	assert.Equal(t, int64(2), inst.Version)

	got, err := dao.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "approve", got.CurrentNode)
	assert.Equal(t, int64(2), got.Version)
}

func TestInstanceUpdateCASConflict(t *testing.T) {
	db := testDB(t)
	dao := NewInstanceDAO(db)
	ctx := context.Background()

	inst := newTestInstance()
	require.NoError(t, dao.Create(ctx, inst))

	stale := *inst
	inst.CurrentNode = "approve"
	require.NoError(t, dao.UpdateCAS(ctx, inst))

	stale.CurrentNode = "rejected"
	err := dao.UpdateCAS(ctx, &stale)
	assert.Equal(t, types.CONCURRENT_MODIFICATION, types.CodeOf(err))
	assert.True(t, types.IsRetryable(err))

	got, err := dao.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "approve", got.CurrentNode)
}

func TestInstanceListByStatus(t *testing.T) {
	db := testDB(t)
	dao := NewInstanceDAO(db)
	ctx := context.Background()

	active := newTestInstance()
	require.NoError(t, dao.Create(ctx, active))

	done := newTestInstance()
	done.Status = InstanceStatusCompleted
	require.NoError(t, dao.Create(ctx, done))

	all, err := dao.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := dao.List(ctx, InstanceStatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)
}

func TestInstanceListOverdue(t *testing.T) {
	db := testDB(t)
	dao := NewInstanceDAO(db)
	ctx := context.Background()

	stale := newTestInstance()
	stale.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, dao.Create(ctx, stale))

	fresh := newTestInstance()
	require.NoError(t, dao.Create(ctx, fresh))

	terminal := newTestInstance()
	terminal.Status = InstanceStatusCancelled
	terminal.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, dao.Create(ctx, terminal))

	overdue, err := dao.ListOverdue(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, stale.ID, overdue[0].ID)
}

func TestInstanceStatusTerminal(t *testing.T) {
	assert.False(t, InstanceStatusActive.IsTerminal())
	for _, s := range []InstanceStatus{
		InstanceStatusCompleted, InstanceStatusRejected,
		InstanceStatusCancelled, InstanceStatusExpired,
	} {
		assert.True(t, s.IsTerminal(), string(s))
	}
}

func TestRecordApprovalDeduplicates(t *testing.T) {
	inst := newTestInstance()
	approver := types.NewID()

	assert.True(t, inst.RecordApproval("approve", approver))
	assert.False(t, inst.RecordApproval("approve", approver))
	assert.True(t, inst.RecordApproval("approve", types.NewID()))
	assert.Len(t, inst.ApprovalsByNode["approve"], 2)
}
