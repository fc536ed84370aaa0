package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// VerificationRecord is the persisted outcome of verifying one signature
// of one document. The engine records these so audit annotations survive
// restarts and cache eviction.
type VerificationRecord struct {
	DocumentID       types.ID
	SignatureDigest  string
	ChainValid       bool
	SignatureValid   bool
	RevocationStatus string
	HashMatches      bool
	VerifiedAt       time.Time
}

// VerificationDAO provides database operations for verification records.
type VerificationDAO interface {
	// Put inserts or replaces the record for (document, signature).
	Put(ctx context.Context, rec *VerificationRecord) error

	// Get retrieves the record for (document, signature), or nil if absent.
	Get(ctx context.Context, documentID types.ID, signatureDigest string) (*VerificationRecord, error)

	// ListByDocument retrieves all records for a document.
	ListByDocument(ctx context.Context, documentID types.ID) ([]*VerificationRecord, error)
}

type verificationDAO struct {
	db *DB
}

// NewVerificationDAO creates a VerificationDAO.
func NewVerificationDAO(db *DB) VerificationDAO {
	return &verificationDAO{db: db}
}

func (d *verificationDAO) Put(ctx context.Context, rec *VerificationRecord) error {
	_, err := d.db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO verification_results (
			document_id, signature_digest, chain_valid, signature_valid,
			revocation_status, hash_matches, verified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.DocumentID,
		rec.SignatureDigest,
		rec.ChainValid,
		rec.SignatureValid,
		rec.RevocationStatus,
		rec.HashMatches,
		rec.VerifiedAt,
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to store verification record", err)
	}
	return nil
}

const verificationColumns = `document_id, signature_digest, chain_valid, signature_valid,
	revocation_status, hash_matches, verified_at`

func (d *verificationDAO) Get(ctx context.Context, documentID types.ID, signatureDigest string) (*VerificationRecord, error) {
	row := d.db.conn.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM verification_results
		WHERE document_id = ? AND signature_digest = ?`,
		documentID, signatureDigest)
	rec, err := scanVerification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to load verification record", err)
	}
	return rec, nil
}

func (d *verificationDAO) ListByDocument(ctx context.Context, documentID types.ID) ([]*VerificationRecord, error) {
	rows, err := d.db.conn.QueryContext(ctx,
		`SELECT `+verificationColumns+` FROM verification_results
		WHERE document_id = ? ORDER BY verified_at`,
		documentID)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list verification records", err)
	}
	defer rows.Close()

	var out []*VerificationRecord
	for rows.Next() {
		rec, err := scanVerification(rows)
		if err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan verification record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "verification row iteration failed", err)
	}
	return out, nil
}

func scanVerification(row rowScanner) (*VerificationRecord, error) {
	var rec VerificationRecord
	err := row.Scan(
		&rec.DocumentID,
		&rec.SignatureDigest,
		&rec.ChainValid,
		&rec.SignatureValid,
		&rec.RevocationStatus,
		&rec.HashMatches,
		&rec.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
