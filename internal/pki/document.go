// Package pki verifies document signatures against X.509 certificate chains
// and PGP key fingerprints, binds signatures to document content hashes, and
// consults an external revocation authority. The engine consumes its results
// through condition evaluation; verification never mutates documents.
package pki

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// SignatureMethod distinguishes the credential type backing a signature.
type SignatureMethod string

const (
	MethodX509 SignatureMethod = "x509"
	MethodPGP  SignatureMethod = "pgp"
)

// Signature is one signature attached to a document: the signer's credential,
// the signed canonical payload, and the signature bytes.
type Signature struct {
	Method SignatureMethod `json:"method"`

	// CertificatePEM holds the signer certificate for x509 signatures.
	CertificatePEM []byte `json:"certificate_pem,omitempty"`

	// KeyFingerprint identifies the signing key for pgp signatures and is
	// also recorded for x509 ones.
	KeyFingerprint string `json:"key_fingerprint,omitempty"`

	// Payload is the canonical byte sequence that was signed.
	Payload []byte `json:"payload"`

	// Blob is the raw signature bytes over Payload.
	Blob []byte `json:"blob"`

	Timestamp time.Time `json:"timestamp"`
}

// Digest returns a stable hex digest of the signature bytes, used as a cache
// key component.
func (s Signature) Digest() string {
	h := sha256.Sum256(s.Blob)
	return hex.EncodeToString(h[:])
}

// Document is the engine's read-only view of a stored document: its content,
// the content hash recorded at signing time, and its attached signatures.
type Document struct {
	ID          types.ID    `json:"id"`
	Content     []byte      `json:"-"`
	ContentHash string      `json:"content_hash"`
	Signatures  []Signature `json:"signatures,omitempty"`
}

// ComputeContentHash returns the hex SHA-256 of the document's current
// content.
func (d Document) ComputeContentHash() string {
	h := sha256.Sum256(d.Content)
	return hex.EncodeToString(h[:])
}

// Store supplies documents to the engine. The document store itself is an
// external collaborator; the engine only reads hashes and signatures and
// appends verification results.
type Store interface {
	Get(ctx context.Context, id types.ID) (Document, error)
}

// Result is the verification verdict for one (document, signature) pair.
type Result struct {
	// CertificateChainValid reports whether the signer credential chains to
	// a trusted root (x509) or is a known, unrevoked key (pgp).
	CertificateChainValid bool `json:"certificate_chain_valid"`

	// SignatureValid reports whether the signature bytes verify over the
	// signed payload.
	SignatureValid bool `json:"signature_valid"`

	// Revocation is the credential's revocation status at verification time.
	Revocation RevocationStatus `json:"revocation_status"`

	// HashMatches reports whether the document's recomputed content hash
	// equals the recorded one. False overrides everything else: content
	// altered after signing is never trusted.
	HashMatches bool `json:"hash_matches"`

	VerifiedAt time.Time `json:"verified_at"`
}

// Trusted reports whether the pair may satisfy a certificate_valid
// condition: intact content, a valid chain, a verifying signature, and a
// revocation status of good. Unknown revocation never counts as good.
func (r Result) Trusted() bool {
	return r.HashMatches && r.CertificateChainValid && r.SignatureValid && r.Revocation == RevocationGood
}
