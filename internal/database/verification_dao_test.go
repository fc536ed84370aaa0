package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-ng/Papertrail/internal/types"
)

func TestVerificationPutGet(t *testing.T) {
	db := testDB(t)
	dao := NewVerificationDAO(db)
	ctx := context.Background()

	rec := &VerificationRecord{
		DocumentID:       types.NewID(),
		SignatureDigest:  "abc123",
		ChainValid:       true,
		SignatureValid:   true,
		RevocationStatus: "good",
		HashMatches:      true,
		VerifiedAt:       time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, dao.Put(ctx, rec))

	got, err := dao.Get(ctx, rec.DocumentID, rec.SignatureDigest)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.ChainValid)
	assert.Equal(t, "good", got.RevocationStatus)
}

func TestVerificationGetMissingReturnsNil(t *testing.T) {
	db := testDB(t)
	dao := NewVerificationDAO(db)

	got, err := dao.Get(context.Background(), types.NewID(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVerificationPutReplaces(t *testing.T) {
	db := testDB(t)
	dao := NewVerificationDAO(db)
	ctx := context.Background()

	rec := &VerificationRecord{
		DocumentID:       types.NewID(),
		SignatureDigest:  "sig1",
		RevocationStatus: "unknown",
		VerifiedAt:       time.Now().UTC(),
	}
	require.NoError(t, dao.Put(ctx, rec))

	rec.RevocationStatus = "good"
	rec.ChainValid = true
	require.NoError(t, dao.Put(ctx, rec))

	all, err := dao.ListByDocument(ctx, rec.DocumentID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].RevocationStatus)
}
