package pki

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// SigningPayload is the canonical structure a signer commits to: the
// instance, the node acted on, the signer, and the document hash at signing
// time. Serializing it deterministically lets a later verification prove
// exactly what was signed.
type SigningPayload struct {
	InstanceID  types.ID  `json:"instance_id"`
	NodeID      string    `json:"node_id"`
	SignerID    types.ID  `json:"signer_id"`
	SignerEmail string    `json:"signer_email,omitempty"`
	DocumentID  types.ID  `json:"document_id"`
	ContentHash string    `json:"content_hash"`
	Timestamp   time.Time `json:"timestamp"`
}

// Canonical serializes the payload as compact JSON. encoding/json emits
// struct fields in declaration order with no extra whitespace, which gives a
// deterministic byte sequence for signing and re-verification.
func (p SigningPayload) Canonical() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize signing payload: %w", err)
	}
	return data, nil
}
