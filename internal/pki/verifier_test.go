package pki

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// testSigner is a self-signed certificate plus its key, usable both as a
// signer credential and as a trust root.
type testSigner struct {
	cert *x509.Certificate
	pem  []byte
	key  *ecdsa.PrivateKey
	pool *x509.CertPool
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "records-office-signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	return &testSigner{
		cert: cert,
		pem:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		key:  key,
		pool: pool,
	}
}

func (s *testSigner) sign(t *testing.T, payload []byte) []byte {
	t.Helper()
	digest := sha256.Sum256(payload)
	blob, err := ecdsa.SignASN1(rand.Reader, s.key, digest[:])
	require.NoError(t, err)
	return blob
}

func signedDocument(t *testing.T, signer *testSigner) Document {
	t.Helper()
	doc := Document{
		ID:      types.NewID(),
		Content: []byte("purchase requisition #42"),
	}
	doc.ContentHash = doc.ComputeContentHash()

	payload, err := SigningPayload{
		InstanceID:  types.NewID(),
		NodeID:      "approve",
		SignerID:    types.NewID(),
		DocumentID:  doc.ID,
		ContentHash: doc.ContentHash,
		Timestamp:   time.Now().UTC(),
	}.Canonical()
	require.NoError(t, err)

	doc.Signatures = []Signature{{
		Method:         MethodX509,
		CertificatePEM: signer.pem,
		Payload:        payload,
		Blob:           signer.sign(t, payload),
		Timestamp:      time.Now().UTC(),
	}}
	return doc
}

func TestVerifyTrustedSignature(t *testing.T) {
	signer := newTestSigner(t)
	doc := signedDocument(t, signer)
	v := NewVerifier(signer.pool)

	results := v.VerifyDocument(context.Background(), doc)
	require.Len(t, results, 1)
	res := results[0]

	assert.True(t, res.CertificateChainValid)
	assert.True(t, res.SignatureValid)
	assert.True(t, res.HashMatches)
	assert.Equal(t, RevocationNotChecked, res.Revocation)
	// Trusted requires an affirmative revocation verdict.
	assert.False(t, res.Trusted())
}

func TestVerifyTrustedWithGoodRevocation(t *testing.T) {
	signer := newTestSigner(t)
	doc := signedDocument(t, signer)
	v := NewVerifier(signer.pool,
		WithRevocationChecker(NewStaticChecker(RevocationGood)))

	res := v.VerifySignature(context.Background(), doc, doc.Signatures[0])
	assert.True(t, res.Trusted())
}

func TestVerifyRevokedCertificate(t *testing.T) {
	signer := newTestSigner(t)
	doc := signedDocument(t, signer)

	checker := NewStaticChecker(RevocationGood)
	checker.SetCertificate(signer.cert.SerialNumber.String(), RevocationRevoked)
	v := NewVerifier(signer.pool, WithRevocationChecker(checker))

	res := v.VerifySignature(context.Background(), doc, doc.Signatures[0])
	assert.Equal(t, RevocationRevoked, res.Revocation)
	assert.False(t, res.CertificateChainValid)
	assert.False(t, res.Trusted())
}

func TestVerifyUnknownRevocationNeverTrusted(t *testing.T) {
	signer := newTestSigner(t)
	doc := signedDocument(t, signer)

	checker := NewStaticChecker(RevocationGood)
	checker.Fail(errors.New("responder unreachable"))
	v := NewVerifier(signer.pool, WithRevocationChecker(checker))

	res := v.VerifySignature(context.Background(), doc, doc.Signatures[0])
	assert.Equal(t, RevocationUnknown, res.Revocation)
	assert.True(t, res.CertificateChainValid)
	assert.False(t, res.Trusted())
}

func TestVerifyAlteredContent(t *testing.T) {
	signer := newTestSigner(t)
	doc := signedDocument(t, signer)
	doc.Content = []byte("purchase requisition #42 (amount changed)")

	v := NewVerifier(signer.pool,
		WithRevocationChecker(NewStaticChecker(RevocationGood)))
	res := v.VerifySignature(context.Background(), doc, doc.Signatures[0])

	assert.False(t, res.HashMatches)
	// The chain and signature still verify; the mismatch alone blocks trust.
	assert.True(t, res.CertificateChainValid)
	assert.True(t, res.SignatureValid)
	assert.False(t, res.Trusted())
}

func TestVerifyUntrustedRoot(t *testing.T) {
	signer := newTestSigner(t)
	stranger := newTestSigner(t)
	doc := signedDocument(t, stranger)

	v := NewVerifier(signer.pool)
	res := v.VerifySignature(context.Background(), doc, doc.Signatures[0])

	assert.False(t, res.CertificateChainValid)
	assert.True(t, res.SignatureValid)
}

func TestVerifyTamperedSignatureBlob(t *testing.T) {
	signer := newTestSigner(t)
	doc := signedDocument(t, signer)
	doc.Signatures[0].Blob[0] ^= 0xff

	v := NewVerifier(signer.pool)
	res := v.VerifySignature(context.Background(), doc, doc.Signatures[0])
	assert.False(t, res.SignatureValid)
}

func TestVerifyCacheRefreshesHashMatch(t *testing.T) {
	signer := newTestSigner(t)
	doc := signedDocument(t, signer)
	v := NewVerifier(signer.pool)

	first := v.VerifySignature(context.Background(), doc, doc.Signatures[0])
	assert.True(t, first.HashMatches)

	// Alter content after the result was cached; the cached entry must not
	// hide the mismatch.
	doc.Content = []byte("altered after verification")
	second := v.VerifySignature(context.Background(), doc, doc.Signatures[0])
	assert.False(t, second.HashMatches)
	assert.Equal(t, first.VerifiedAt, second.VerifiedAt)
}

func TestVerifyPGPBinding(t *testing.T) {
	doc := Document{ID: types.NewID(), Content: []byte("memo")}
	doc.ContentHash = doc.ComputeContentHash()

	payload := []byte(`{"document":"memo"}`)
	fingerprint := "A1B2C3D4E5F6"
	doc.Signatures = []Signature{{
		Method:         MethodPGP,
		KeyFingerprint: fingerprint,
		Payload:        payload,
		Blob:           PGPBindingDigest(payload, fingerprint),
	}}

	checker := NewStaticChecker(RevocationGood)
	v := NewVerifier(x509.NewCertPool(), WithRevocationChecker(checker))

	res := v.VerifySignature(context.Background(), doc, doc.Signatures[0])
	assert.True(t, res.SignatureValid)
	assert.True(t, res.CertificateChainValid)
	assert.True(t, res.Trusted())

	checker.SetKey(fingerprint, RevocationRevoked)
	// Fresh verifier so the earlier good result is not served from cache.
	v = NewVerifier(x509.NewCertPool(), WithRevocationChecker(checker))
	res = v.VerifySignature(context.Background(), doc, doc.Signatures[0])
	assert.True(t, res.SignatureValid)
	assert.False(t, res.Trusted())
}
