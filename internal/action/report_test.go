package action

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-ng/Papertrail/internal/audit"
	"github.com/ghost-ng/Papertrail/internal/identity"
	"github.com/ghost-ng/Papertrail/internal/types"
	"github.com/ghost-ng/Papertrail/internal/workflow"
)

type staticAuditReader struct {
	events []*audit.Event
	err    error
}

func (r *staticAuditReader) List(_ context.Context, _ types.ID) ([]*audit.Event, error) {
	return r.events, r.err
}

func TestReportDeliverWritesTrail(t *testing.T) {
	instanceID := types.NewID()
	actor := types.NewID()
	trail := []*audit.Event{
		{
			InstanceID: instanceID,
			Sequence:   1,
			Kind:       audit.EventInstanceCreated,
			ToNode:     "review",
			Actor:      actor,
			Timestamp:  time.Now().UTC(),
		},
		{
			InstanceID: instanceID,
			Sequence:   2,
			Kind:       audit.EventTransition,
			FromNode:   "review",
			ToNode:     "notify",
			Actor:      actor,
			Timestamp:  time.Now().UTC(),
		},
		{
			InstanceID: instanceID,
			Sequence:   3,
			Kind:       audit.EventTransition,
			FromNode:   "notify",
			ToNode:     "approve",
			Actor:      identity.System,
			Timestamp:  time.Now().UTC(),
		},
	}

	outDir := t.TempDir()
	sink := NewReportSink(&staticAuditReader{events: trail}, outDir)

	req := Request{
		InstanceID:   instanceID,
		DefinitionID: types.NewID(),
		DocumentID:   types.NewID(),
		NodeID:       "report",
		ActionType:   workflow.ActionGenerateReport,
		AttemptGroup: types.NewID(),
	}
	require.NoError(t, sink.Deliver(context.Background(), req))

	path := filepath.Join(outDir, fmt.Sprintf("%s-%s.json", req.InstanceID, req.AttemptGroup))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rendered report
	require.NoError(t, json.Unmarshal(data, &rendered))
	assert.Equal(t, req.InstanceID, rendered.InstanceID)
	assert.Equal(t, req.DocumentID, rendered.DocumentID)
	require.Len(t, rendered.Events, 3)
	assert.Equal(t, int64(3), rendered.Events[2].Sequence)
	assert.Equal(t, types.ID(identity.System), rendered.Events[2].Actor)
}

func TestReportDeliverReaderFailure(t *testing.T) {
	sink := NewReportSink(&staticAuditReader{err: types.NewError(types.DB_QUERY_FAILED, "closed")}, t.TempDir())

	err := sink.Deliver(context.Background(), Request{
		InstanceID:   types.NewID(),
		AttemptGroup: types.NewID(),
	})
	assert.Equal(t, types.REPORT_FAILED, types.CodeOf(err))
}

func TestReportDeliverOverwriteSameAttemptGroup(t *testing.T) {
	outDir := t.TempDir()
	sink := NewReportSink(&staticAuditReader{}, outDir)

	req := Request{
		InstanceID:   types.NewID(),
		DefinitionID: types.NewID(),
		DocumentID:   types.NewID(),
		AttemptGroup: types.NewID(),
	}
	// At-least-once delivery can render the same report twice.
	require.NoError(t, sink.Deliver(context.Background(), req))
	require.NoError(t, sink.Deliver(context.Background(), req))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
