package workflow

import (
	"time"

	"github.com/ghost-ng/Papertrail/internal/identity"
)

// Condition evaluation for edge gating.
//
// Conditions are a closed set of tagged variants rather than a free-form
// expression language: the eight predicate kinds below are the only ones the
// engine evaluates, which keeps evaluation total, deterministic, and
// reproducible from the audit trail. Evaluation is side-effect-free; all
// inputs arrive through EvalContext.
//
// An unknown predicate kind evaluates to false. A condition never authorizes
// a transition by default.

// PredicateKind identifies a condition variant.
type PredicateKind string

const (
	PredicateRoleIn               PredicateKind = "role_in"
	PredicateOfficeMembership     PredicateKind = "office_membership"
	PredicateApprovalCountAtLeast PredicateKind = "approval_count_at_least"
	PredicateCertificateValid     PredicateKind = "certificate_valid"
	PredicateHashMatches          PredicateKind = "hash_matches"
	PredicateAnd                  PredicateKind = "and"
	PredicateOr                   PredicateKind = "or"
	PredicateNot                  PredicateKind = "not"
)

// Condition is one node of a condition expression tree. Exactly the fields
// relevant to its Kind are populated.
type Condition struct {
	Kind PredicateKind `json:"kind"`

	// Roles is the role set for role_in.
	Roles []string `json:"roles,omitempty"`

	// OfficeID is the office for office_membership.
	OfficeID string `json:"office_id,omitempty"`

	// NodeID and Count parameterize approval_count_at_least. A zero Count
	// means the node's own Approvals requirement.
	NodeID string `json:"node_id,omitempty"`
	Count  int    `json:"count,omitempty"`

	// Operands holds children for and/or/not.
	Operands []*Condition `json:"operands,omitempty"`
}

// DocumentVerification is the condensed PKI verdict a condition consults.
// The engine computes it from per-signature verification results before edge
// evaluation so that evaluation itself stays pure.
type DocumentVerification struct {
	// CertificateValid is true when at least one signature on the document
	// has a valid, unrevoked certificate chain.
	CertificateValid bool

	// HashMatches is true when the document's recomputed content hash equals
	// the recorded one. When false it overrides CertificateValid: a document
	// altered after signing is never certificate-valid.
	HashMatches bool
}

// EvalContext carries everything a condition may consult: the acting
// identity, accumulated approvals, the document verification verdict, and
// the evaluation timestamp.
type EvalContext struct {
	Actor           identity.Identity
	ApprovalsByNode map[string][]string
	Verification    DocumentVerification
	Now             time.Time
}

// ApprovalCount returns the number of distinct approvers recorded at nodeID.
func (c EvalContext) ApprovalCount(nodeID string) int {
	return len(c.ApprovalsByNode[nodeID])
}

// Evaluate evaluates cond against ctx. def supplies node metadata for
// approval thresholds; it may be nil when no approval_count_at_least
// predicate appears. A nil condition evaluates to true (an ungated edge).
// Everything else that cannot be positively established evaluates to false.
func Evaluate(cond *Condition, def *Definition, ctx EvalContext) bool {
	if cond == nil {
		return true
	}

	switch cond.Kind {
	case PredicateRoleIn:
		if len(cond.Roles) == 0 {
			return false
		}
		return ctx.Actor.HasRole(cond.Roles...)

	case PredicateOfficeMembership:
		if cond.OfficeID == "" {
			return false
		}
		return ctx.Actor.MemberOf(cond.OfficeID)

	case PredicateApprovalCountAtLeast:
		if cond.NodeID == "" {
			return false
		}
		need := cond.Count
		if need <= 0 {
			need = 1
			if def != nil {
				if n := def.GetNode(cond.NodeID); n != nil && n.Approvals > 0 {
					need = n.Approvals
				}
			}
		}
		return ctx.ApprovalCount(cond.NodeID) >= need

	case PredicateCertificateValid:
		// A hash mismatch overrides certificate status: content altered
		// after signing invalidates every signature on it.
		return ctx.Verification.HashMatches && ctx.Verification.CertificateValid

	case PredicateHashMatches:
		return ctx.Verification.HashMatches

	case PredicateAnd:
		if len(cond.Operands) == 0 {
			return false
		}
		for _, op := range cond.Operands {
			if op == nil || !Evaluate(op, def, ctx) {
				return false
			}
		}
		return true

	case PredicateOr:
		for _, op := range cond.Operands {
			if op != nil && Evaluate(op, def, ctx) {
				return true
			}
		}
		return false

	case PredicateNot:
		if len(cond.Operands) != 1 || cond.Operands[0] == nil {
			return false
		}
		return !Evaluate(cond.Operands[0], def, ctx)

	default:
		// Unknown predicate kinds fail closed.
		return false
	}
}

// ValidateCondition checks a condition tree for structural problems:
// malformed combinators, empty predicate parameters, or unknown kinds.
// Validation is stricter than evaluation, which silently fails closed.
func ValidateCondition(cond *Condition) error {
	if cond == nil {
		return nil
	}
	switch cond.Kind {
	case PredicateRoleIn:
		if len(cond.Roles) == 0 {
			return &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: "role_in requires at least one role"}
		}
	case PredicateOfficeMembership:
		if cond.OfficeID == "" {
			return &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: "office_membership requires an office ID"}
		}
	case PredicateApprovalCountAtLeast:
		if cond.NodeID == "" {
			return &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: "approval_count_at_least requires a node ID"}
		}
		if cond.Count < 0 {
			return &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: "approval_count_at_least count cannot be negative"}
		}
	case PredicateCertificateValid, PredicateHashMatches:
		// No parameters.
	case PredicateAnd, PredicateOr:
		if len(cond.Operands) == 0 {
			return &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: string(cond.Kind) + " requires at least one operand"}
		}
		for _, op := range cond.Operands {
			if err := ValidateCondition(op); err != nil {
				return err
			}
		}
	case PredicateNot:
		if len(cond.Operands) != 1 {
			return &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: "not requires exactly one operand"}
		}
		return ValidateCondition(cond.Operands[0])
	default:
		return &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: "unknown predicate kind: " + string(cond.Kind)}
	}
	return nil
}

// And combines conditions with logical AND.
func And(operands ...*Condition) *Condition {
	return &Condition{Kind: PredicateAnd, Operands: operands}
}

// Or combines conditions with logical OR.
func Or(operands ...*Condition) *Condition {
	return &Condition{Kind: PredicateOr, Operands: operands}
}

// Not negates a condition.
func Not(operand *Condition) *Condition {
	return &Condition{Kind: PredicateNot, Operands: []*Condition{operand}}
}

// RoleIn builds a role_in predicate.
func RoleIn(roles ...string) *Condition {
	return &Condition{Kind: PredicateRoleIn, Roles: roles}
}

// OfficeMembership builds an office_membership predicate.
func OfficeMembership(officeID string) *Condition {
	return &Condition{Kind: PredicateOfficeMembership, OfficeID: officeID}
}

// ApprovalCountAtLeast builds an approval_count_at_least predicate.
func ApprovalCountAtLeast(nodeID string, count int) *Condition {
	return &Condition{Kind: PredicateApprovalCountAtLeast, NodeID: nodeID, Count: count}
}

// CertificateValid builds a certificate_valid predicate.
func CertificateValid() *Condition {
	return &Condition{Kind: PredicateCertificateValid}
}

// HashMatches builds a hash_matches predicate.
func HashMatches() *Condition {
	return &Condition{Kind: PredicateHashMatches}
}
