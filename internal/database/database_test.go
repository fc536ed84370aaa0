package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Migrate(context.Background()))

	var count int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestWithTxCommits(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audit_events (instance_id, sequence, kind, actor, created_at, hash)
			VALUES ('i1', 1, 'transition', 'a1', CURRENT_TIMESTAMP, 'h1')`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM audit_events`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO audit_events (instance_id, sequence, kind, actor, created_at, hash)
			VALUES ('i1', 1, 'transition', 'a1', CURRENT_TIMESTAMP, 'h1')`)
		require.NoError(t, execErr)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM audit_events`).Scan(&count))
	assert.Zero(t, count)
}

func TestDuplicateSequenceRejected(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	insert := `INSERT INTO audit_events (instance_id, sequence, kind, actor, created_at, hash)
		VALUES ('i1', 1, 'transition', 'a1', CURRENT_TIMESTAMP, ?)`
	_, err := db.Conn().ExecContext(ctx, insert, "h1")
	require.NoError(t, err)
	_, err = db.Conn().ExecContext(ctx, insert, "h2")
	assert.Error(t, err)
}
