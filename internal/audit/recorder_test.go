package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-ng/Papertrail/internal/database"
	"github.com/ghost-ng/Papertrail/internal/types"
)

func testRecorder(t *testing.T) (*Recorder, *database.DB) {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewRecorder(db), db
}

func TestAppendAssignsSequenceAndChain(t *testing.T) {
	r, _ := testRecorder(t)
	ctx := context.Background()
	instanceID := types.NewID()
	actor := types.NewID()

	require.NoError(t, r.Append(ctx, &Event{
		InstanceID: instanceID,
		Kind:       EventInstanceCreated,
		ToNode:     "review",
		Actor:      actor,
	}))
	require.NoError(t, r.Append(ctx,
		&Event{InstanceID: instanceID, Kind: EventTransition, FromNode: "review", ToNode: "approve", Actor: actor},
		&Event{InstanceID: instanceID, Kind: EventTransition, FromNode: "approve", ToNode: "done", Actor: actor},
	))

	trail, err := r.List(ctx, instanceID)
	require.NoError(t, err)
	require.Len(t, trail, 3)

	for i, ev := range trail {
		assert.Equal(t, int64(i+1), ev.Sequence)
		assert.NotEmpty(t, ev.Hash)
		if i == 0 {
			assert.Empty(t, ev.PrevHash)
		} else {
			assert.Equal(t, trail[i-1].Hash, ev.PrevHash)
		}
	}
}

func TestVerifyChainPasses(t *testing.T) {
	r, _ := testRecorder(t)
	ctx := context.Background()
	instanceID := types.NewID()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Append(ctx, &Event{
			InstanceID: instanceID,
			Kind:       EventTransition,
			FromNode:   "a",
			ToNode:     "b",
			Actor:      types.NewID(),
		}))
	}
	assert.NoError(t, r.VerifyChain(ctx, instanceID))
}

func TestVerifyChainEmptyIsIntact(t *testing.T) {
	r, _ := testRecorder(t)
	assert.NoError(t, r.VerifyChain(context.Background(), types.NewID()))
}

func TestVerifyChainDetectsAlteredField(t *testing.T) {
	r, db := testRecorder(t)
	ctx := context.Background()
	instanceID := types.NewID()

	require.NoError(t, r.Append(ctx,
		&Event{InstanceID: instanceID, Kind: EventTransition, FromNode: "a", ToNode: "b", Actor: types.NewID()},
		&Event{InstanceID: instanceID, Kind: EventTransition, FromNode: "b", ToNode: "c", Actor: types.NewID()},
	))

	_, err := db.Conn().ExecContext(ctx,
		`UPDATE audit_events SET actor = ? WHERE instance_id = ? AND sequence = 1`,
		types.NewID(), instanceID)
	require.NoError(t, err)

	err = r.VerifyChain(ctx, instanceID)
	assert.Equal(t, types.CHAIN_CORRUPTED, types.CodeOf(err))
}

func TestVerifyChainDetectsRemovedEntry(t *testing.T) {
	r, db := testRecorder(t)
	ctx := context.Background()
	instanceID := types.NewID()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Append(ctx, &Event{
			InstanceID: instanceID, Kind: EventTransition, Actor: types.NewID(),
		}))
	}

	_, err := db.Conn().ExecContext(ctx,
		`DELETE FROM audit_events WHERE instance_id = ? AND sequence = 2`, instanceID)
	require.NoError(t, err)

	err = r.VerifyChain(ctx, instanceID)
	assert.Equal(t, types.CHAIN_CORRUPTED, types.CodeOf(err))
}

func TestVerifyChainDetectsRewrittenHash(t *testing.T) {
	r, db := testRecorder(t)
	ctx := context.Background()
	instanceID := types.NewID()

	require.NoError(t, r.Append(ctx,
		&Event{InstanceID: instanceID, Kind: EventTransition, Actor: types.NewID()},
	))

	_, err := db.Conn().ExecContext(ctx,
		`UPDATE audit_events SET hash = 'deadbeef' WHERE instance_id = ?`, instanceID)
	require.NoError(t, err)

	err = r.VerifyChain(ctx, instanceID)
	assert.Equal(t, types.CHAIN_CORRUPTED, types.CodeOf(err))
}

func TestAppendRejectsMixedInstances(t *testing.T) {
	r, _ := testRecorder(t)
	err := r.Append(context.Background(),
		&Event{InstanceID: types.NewID(), Kind: EventTransition, Actor: types.NewID()},
		&Event{InstanceID: types.NewID(), Kind: EventTransition, Actor: types.NewID()},
	)
	assert.Equal(t, types.AUDIT_APPEND_FAILED, types.CodeOf(err))
}

func TestSealAndVerify(t *testing.T) {
	ev := &Event{
		InstanceID: types.NewID(),
		Sequence:   1,
		Kind:       EventTransition,
		FromNode:   "a",
		ToNode:     "b",
		Actor:      types.NewID(),
		Timestamp:  time.Now().UTC(),
	}
	ev.Seal("")
	require.NoError(t, ev.Verify(""))

	ev.Annotation = "tampered"
	assert.Error(t, ev.Verify(""))
}
