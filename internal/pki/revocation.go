package pki

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/ocsp"
)

// RevocationStatus is the answer from the revocation authority.
type RevocationStatus string

const (
	RevocationGood       RevocationStatus = "good"
	RevocationRevoked    RevocationStatus = "revoked"
	RevocationUnknown    RevocationStatus = "unknown"
	RevocationNotChecked RevocationStatus = "not-checked"
)

// RevocationChecker consults an external authority for credential status.
// An unreachable authority yields RevocationUnknown, never RevocationGood.
type RevocationChecker interface {
	// CheckCertificate checks an X.509 certificate against OCSP.
	CheckCertificate(ctx context.Context, cert, issuer *x509.Certificate) (RevocationStatus, error)

	// CheckKey checks a PGP key fingerprint against a key server.
	CheckKey(ctx context.Context, fingerprint string) (RevocationStatus, error)
}

// OCSPChecker implements RevocationChecker over an OCSP responder and an
// optional key-server endpoint.
type OCSPChecker struct {
	client       *http.Client
	responderURL string
	keyServerURL string
}

// OCSPOption configures an OCSPChecker.
type OCSPOption func(*OCSPChecker)

// WithHTTPClient overrides the HTTP client used for responder calls.
func WithHTTPClient(client *http.Client) OCSPOption {
	return func(c *OCSPChecker) {
		c.client = client
	}
}

// WithKeyServer sets the key-server endpoint for PGP fingerprint lookups.
func WithKeyServer(url string) OCSPOption {
	return func(c *OCSPChecker) {
		c.keyServerURL = url
	}
}

// NewOCSPChecker creates a checker against the given OCSP responder URL.
func NewOCSPChecker(responderURL string, opts ...OCSPOption) *OCSPChecker {
	c := &OCSPChecker{
		client:       &http.Client{Timeout: 10 * time.Second},
		responderURL: responderURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckCertificate builds an OCSP request for cert, POSTs it to the
// responder, and maps the parsed response status. Any transport or parse
// failure degrades to RevocationUnknown with the cause returned alongside.
func (c *OCSPChecker) CheckCertificate(ctx context.Context, cert, issuer *x509.Certificate) (RevocationStatus, error) {
	if c.responderURL == "" {
		return RevocationNotChecked, nil
	}
	if cert == nil || issuer == nil {
		return RevocationUnknown, fmt.Errorf("certificate and issuer are required for OCSP")
	}

	reqBytes, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return RevocationUnknown, fmt.Errorf("failed to build OCSP request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.responderURL, bytes.NewReader(reqBytes))
	if err != nil {
		return RevocationUnknown, err
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")
	httpReq.Header.Set("Accept", "application/ocsp-response")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return RevocationUnknown, fmt.Errorf("OCSP responder unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RevocationUnknown, fmt.Errorf("OCSP responder returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return RevocationUnknown, fmt.Errorf("failed to read OCSP response: %w", err)
	}

	parsed, err := ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return RevocationUnknown, fmt.Errorf("failed to parse OCSP response: %w", err)
	}

	switch parsed.Status {
	case ocsp.Good:
		return RevocationGood, nil
	case ocsp.Revoked:
		return RevocationRevoked, nil
	default:
		return RevocationUnknown, nil
	}
}

// CheckKey looks up a PGP key fingerprint on the configured key server. The
// server answers {"status": "good"|"revoked"|"unknown"}.
func (c *OCSPChecker) CheckKey(ctx context.Context, fingerprint string) (RevocationStatus, error) {
	if c.keyServerURL == "" {
		return RevocationNotChecked, nil
	}
	if fingerprint == "" {
		return RevocationUnknown, fmt.Errorf("key fingerprint is required")
	}

	url := fmt.Sprintf("%s/keys/%s/status", c.keyServerURL, fingerprint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RevocationUnknown, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return RevocationUnknown, fmt.Errorf("key server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RevocationUnknown, fmt.Errorf("key server returned status %d", resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return RevocationUnknown, fmt.Errorf("failed to decode key server response: %w", err)
	}

	switch RevocationStatus(payload.Status) {
	case RevocationGood:
		return RevocationGood, nil
	case RevocationRevoked:
		return RevocationRevoked, nil
	default:
		return RevocationUnknown, nil
	}
}

// StaticChecker is an in-memory RevocationChecker for tests and offline
// setups. Unlisted credentials report the configured default status.
type StaticChecker struct {
	mu           sync.RWMutex
	certs        map[string]RevocationStatus // keyed by serial number string
	keys         map[string]RevocationStatus
	defaultState RevocationStatus
	err          error
}

// NewStaticChecker creates a StaticChecker with the given default status.
func NewStaticChecker(defaultState RevocationStatus) *StaticChecker {
	return &StaticChecker{
		certs:        make(map[string]RevocationStatus),
		keys:         make(map[string]RevocationStatus),
		defaultState: defaultState,
	}
}

// SetCertificate fixes the status reported for a certificate serial.
func (s *StaticChecker) SetCertificate(serial string, status RevocationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[serial] = status
}

// SetKey fixes the status reported for a key fingerprint.
func (s *StaticChecker) SetKey(fingerprint string, status RevocationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[fingerprint] = status
}

// Fail makes every lookup return RevocationUnknown with err, simulating an
// unreachable authority.
func (s *StaticChecker) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// CheckCertificate implements RevocationChecker.
func (s *StaticChecker) CheckCertificate(_ context.Context, cert, _ *x509.Certificate) (RevocationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return RevocationUnknown, s.err
	}
	if cert != nil {
		if status, ok := s.certs[cert.SerialNumber.String()]; ok {
			return status, nil
		}
	}
	return s.defaultState, nil
}

// CheckKey implements RevocationChecker.
func (s *StaticChecker) CheckKey(_ context.Context, fingerprint string) (RevocationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return RevocationUnknown, s.err
	}
	if status, ok := s.keys[fingerprint]; ok {
		return status, nil
	}
	return s.defaultState, nil
}
