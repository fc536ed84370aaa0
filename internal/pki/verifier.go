package pki

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// Verifier validates document signatures against a configured trust store
// and revocation authority. It is safe for concurrent use; results are
// cached per (document, signature) within the revocation TTL.
type Verifier struct {
	roots         *x509.CertPool
	intermediates *x509.CertPool
	revocation    RevocationChecker
	cache         *resultCache
	logger        *slog.Logger
	now           func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithRevocationChecker sets the revocation authority client.
func WithRevocationChecker(checker RevocationChecker) VerifierOption {
	return func(v *Verifier) {
		v.revocation = checker
	}
}

// WithIntermediates adds intermediate CA certificates for chain building.
func WithIntermediates(pool *x509.CertPool) VerifierOption {
	return func(v *Verifier) {
		v.intermediates = pool
	}
}

// WithCacheTTL bounds how long verification results (and the revocation data
// inside them) may be reused before recomputation.
func WithCacheTTL(ttl time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.cache = newResultCache(ttl)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithClock overrides the verification clock. Used by tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a Verifier trusting the given root pool. Defaults: no
// revocation checking (status not-checked), 15 minute result TTL,
// slog.Default().
func NewVerifier(roots *x509.CertPool, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		roots:  roots,
		cache:  newResultCache(15 * time.Minute),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// LoadTrustRoots reads PEM certificate files into a pool for NewVerifier.
func LoadTrustRoots(paths []string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, types.WrapError(types.TRUST_STORE_INVALID, fmt.Sprintf("failed to read trust root %s", path), err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, types.NewErrorf(types.TRUST_STORE_INVALID, "no certificates found in %s", path)
		}
	}
	return pool, nil
}

// VerifyDocument verifies every signature on the document. The result slice
// is ordered like doc.Signatures.
func (v *Verifier) VerifyDocument(ctx context.Context, doc Document) []Result {
	results := make([]Result, 0, len(doc.Signatures))
	for _, sig := range doc.Signatures {
		results = append(results, v.VerifySignature(ctx, doc, sig))
	}
	return results
}

// VerifySignature verifies one signature against the document. The content
// hash is always recomputed from current stored content; a mismatch marks
// the result untrusted regardless of certificate status.
func (v *Verifier) VerifySignature(ctx context.Context, doc Document, sig Signature) Result {
	now := v.now()

	if cached, ok := v.cache.get(doc.ID, sig.Digest(), now); ok {
		// Content may have changed since the result was cached, so the hash
		// comparison is always refreshed.
		cached.HashMatches = doc.ComputeContentHash() == doc.ContentHash
		return cached
	}

	result := Result{
		Revocation: RevocationNotChecked,
		VerifiedAt: now,
	}
	result.HashMatches = doc.ComputeContentHash() == doc.ContentHash

	switch sig.Method {
	case MethodX509:
		v.verifyX509(ctx, sig, now, &result)
	case MethodPGP:
		v.verifyPGP(ctx, sig, &result)
	default:
		v.logger.WarnContext(ctx, "unknown signature method",
			"document_id", doc.ID,
			"method", sig.Method,
		)
	}

	if !result.HashMatches {
		v.logger.WarnContext(ctx, "document content hash mismatch",
			"document_id", doc.ID,
			"recorded_hash", doc.ContentHash,
		)
	}

	v.cache.put(doc.ID, sig.Digest(), result, now)
	return result
}

// verifyX509 validates the certificate chain, the signature bytes, and the
// revocation status for an x509 signature.
func (v *Verifier) verifyX509(ctx context.Context, sig Signature, now time.Time, result *Result) {
	block, _ := pem.Decode(sig.CertificatePEM)
	if block == nil || block.Type != "CERTIFICATE" {
		v.logger.WarnContext(ctx, "signature carries no parseable certificate")
		return
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		v.logger.WarnContext(ctx, "failed to parse signer certificate", "error", err)
		return
	}

	chains, err := cert.Verify(x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: v.intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		v.logger.InfoContext(ctx, "certificate chain verification failed", "error", err)
	} else {
		result.CertificateChainValid = true
	}

	result.SignatureValid = verifyBlob(cert, sig.Payload, sig.Blob)

	if v.revocation == nil {
		return
	}
	issuer := cert
	if err == nil && len(chains) > 0 && len(chains[0]) > 1 {
		issuer = chains[0][1]
	}
	status, revErr := v.revocation.CheckCertificate(ctx, cert, issuer)
	if revErr != nil {
		// Unreachable authority fails closed to unknown, never good.
		v.logger.WarnContext(ctx, "revocation check unavailable",
			"serial", cert.SerialNumber.String(),
			"error", revErr,
		)
	}
	result.Revocation = status
	if status == RevocationRevoked {
		result.CertificateChainValid = false
	}
}

// verifyPGP checks a PGP signature. The corpus carries no OpenPGP
// implementation, so validity is established through the key server: a known
// fingerprint in good standing whose recorded binding digest matches the
// payload. This is a documented trade-off, not full web-of-trust
// verification.
func (v *Verifier) verifyPGP(ctx context.Context, sig Signature, result *Result) {
	if sig.KeyFingerprint == "" {
		return
	}

	result.SignatureValid = bytes.Equal(sig.Blob, PGPBindingDigest(sig.Payload, sig.KeyFingerprint))

	if v.revocation == nil {
		return
	}
	status, err := v.revocation.CheckKey(ctx, sig.KeyFingerprint)
	if err != nil {
		v.logger.WarnContext(ctx, "key server unavailable",
			"fingerprint", sig.KeyFingerprint,
			"error", err,
		)
	}
	result.Revocation = status
	result.CertificateChainValid = status == RevocationGood
}

// PGPBindingDigest computes the binding digest recorded as the signature
// blob for pgp-method signatures: SHA-256 over the canonical payload joined
// with the key fingerprint.
func PGPBindingDigest(payload []byte, fingerprint string) []byte {
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(":"))
	h.Write([]byte(fingerprint))
	sum := h.Sum(nil)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}

// verifyBlob verifies signature bytes over payload with the certificate's
// public key. RSA PKCS#1 v1.5, ECDSA, and Ed25519 keys are supported; the
// payload is hashed with SHA-256 for RSA and ECDSA.
func verifyBlob(cert *x509.Certificate, payload, blob []byte) bool {
	digest := sha256.Sum256(payload)
	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], blob) == nil
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(key, digest[:], blob)
	case ed25519.PublicKey:
		return ed25519.Verify(key, payload, blob)
	default:
		return false
	}
}
