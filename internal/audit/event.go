package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// EventKind identifies what an audit event records.
type EventKind string

const (
	// EventInstanceCreated marks instance creation at its start node.
	EventInstanceCreated EventKind = "instance_created"
	// EventTransition records movement along an edge.
	EventTransition EventKind = "transition"
	// EventApprovalRecorded records an approval that did not yet move the instance.
	EventApprovalRecorded EventKind = "approval_recorded"
	// EventAnnotation records free-form context such as verification outcomes.
	EventAnnotation EventKind = "annotation"
	// EventDeliveryFailed records a side effect that exhausted its retries.
	EventDeliveryFailed EventKind = "delivery_failed"
	// EventInstanceCancelled records explicit cancellation.
	EventInstanceCancelled EventKind = "instance_cancelled"
	// EventInstanceExpired records retirement by the expiry sweep.
	EventInstanceExpired EventKind = "instance_expired"
	// EventInstanceCompleted records arrival at a completing terminal node.
	EventInstanceCompleted EventKind = "instance_completed"
	// EventInstanceRejected records arrival at a rejecting terminal node.
	EventInstanceRejected EventKind = "instance_rejected"
)

// Event is one entry in an instance's hash-chained audit trail. Sequence
// is assigned by the recorder and starts at 1. Hash covers every field
// plus PrevHash, so altering or removing any earlier entry invalidates
// all later hashes.
type Event struct {
	InstanceID types.ID  `json:"instance_id"`
	Sequence   int64     `json:"sequence"`
	Kind       EventKind `json:"kind"`
	FromNode   string    `json:"from_node,omitempty"`
	ToNode     string    `json:"to_node,omitempty"`
	Actor      types.ID  `json:"actor"`
	Annotation string    `json:"annotation,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	PrevHash   string    `json:"prev_hash,omitempty"`
	Hash       string    `json:"hash"`
}

// canonical returns the byte representation the hash covers. Fields are
// joined in a fixed order with a separator that cannot appear in IDs or
// node names, and the timestamp is normalized to UTC nanoseconds so the
// representation does not depend on driver round-tripping.
func (e *Event) canonical() []byte {
	parts := []string{
		e.InstanceID.String(),
		strconv.FormatInt(e.Sequence, 10),
		string(e.Kind),
		e.FromNode,
		e.ToNode,
		e.Actor.String(),
		e.Annotation,
		strconv.FormatInt(e.Timestamp.UTC().UnixNano(), 10),
		e.PrevHash,
	}
	return []byte(strings.Join(parts, "\x1f"))
}

// ComputeHash returns the hex SHA-256 over the event's canonical bytes.
func (e *Event) ComputeHash() string {
	sum := sha256.Sum256(e.canonical())
	return hex.EncodeToString(sum[:])
}

// Seal sets PrevHash from the preceding entry and computes Hash. An empty
// prevHash marks the first entry of a chain.
func (e *Event) Seal(prevHash string) {
	e.PrevHash = prevHash
	e.Hash = e.ComputeHash()
}

// Verify recomputes the hash and checks linkage against the expected
// predecessor hash.
func (e *Event) Verify(expectedPrevHash string) error {
	if e.PrevHash != expectedPrevHash {
		return types.NewError(types.CHAIN_CORRUPTED,
			fmt.Sprintf("event %d of instance %s links to %q, expected %q",
				e.Sequence, e.InstanceID, truncHash(e.PrevHash), truncHash(expectedPrevHash)))
	}
	if got := e.ComputeHash(); got != e.Hash {
		return types.NewError(types.CHAIN_CORRUPTED,
			fmt.Sprintf("event %d of instance %s has hash %q, recomputed %q",
				e.Sequence, e.InstanceID, truncHash(e.Hash), truncHash(got)))
	}
	return nil
}

func truncHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
