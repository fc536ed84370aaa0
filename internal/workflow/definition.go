package workflow

import (
	"sort"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// NodeKind defines the kind of a workflow node.
type NodeKind string

const (
	NodeKindApproval NodeKind = "approval"
	NodeKindReview   NodeKind = "review"
	NodeKindBranch   NodeKind = "conditional-branch"
	NodeKindAction   NodeKind = "action"
	NodeKindTerminal NodeKind = "terminal"
)

// ActionType defines the side effect dispatched when an action node is
// entered.
type ActionType string

const (
	ActionNotify         ActionType = "notify"
	ActionWebhook        ActionType = "webhook"
	ActionGenerateReport ActionType = "generate-report"
)

// TerminalOutcome is the instance status assigned when a terminal node is
// reached.
type TerminalOutcome string

const (
	OutcomeCompleted TerminalOutcome = "completed"
	OutcomeRejected  TerminalOutcome = "rejected"
)

// Node is a single node in a workflow definition graph. Nodes are immutable
// once the definition is published.
type Node struct {
	// ID is the node identifier, unique within the definition.
	ID string `json:"id"`

	// Kind determines how the engine treats arrival at this node.
	Kind NodeKind `json:"kind"`

	// Name is a human-readable label.
	Name string `json:"name,omitempty"`

	// Approvals is the number of distinct approvers required at an approval
	// node before an approval_count_at_least condition on it can pass with
	// the default threshold. Zero means one.
	Approvals int `json:"approvals,omitempty"`

	// ActionType and ActionParams configure action nodes.
	ActionType   ActionType     `json:"action_type,omitempty"`
	ActionParams map[string]any `json:"action_params,omitempty"`

	// TerminalOutcome sets the instance status for terminal nodes.
	TerminalOutcome TerminalOutcome `json:"terminal_outcome,omitempty"`
}

// Edge is a directed, condition-gated connection between two nodes.
type Edge struct {
	// From and To are node IDs within the same definition.
	From string `json:"from"`
	To   string `json:"to"`

	// Priority orders edge evaluation; lower values are evaluated first.
	// Ties break by declaration order.
	Priority int `json:"priority"`

	// Return marks a loop-back edge to an earlier node ("send back for
	// review"). Cycles are only legal through return edges.
	Return bool `json:"return,omitempty"`

	// Condition gates traversal. A nil condition always passes.
	Condition *Condition `json:"condition,omitempty"`
}

// Definition is an immutable workflow template: a directed graph of nodes and
// condition-gated edges that a document instance traverses.
type Definition struct {
	ID          types.ID         `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Version     int              `json:"version"`
	Nodes       map[string]*Node `json:"nodes"`
	Edges       []Edge           `json:"edges"`
	CreatedAt   time.Time        `json:"created_at"`

	// startNode is resolved at publish time.
	startNode string
	published bool
}

// GetNode returns the node with the given ID, or nil if it does not exist.
func (d *Definition) GetNode(id string) *Node {
	if d.Nodes == nil {
		return nil
	}
	return d.Nodes[id]
}

// StartNode returns the resolved start node ID. Empty until the definition
// has been published.
func (d *Definition) StartNode() string {
	return d.startNode
}

// Published reports whether the definition passed publish-time validation.
func (d *Definition) Published() bool {
	return d.published
}

// Publish validates the definition's structural invariants and freezes it.
// Instances can only be created from published definitions. Validation runs
// once here, not per instance.
func (d *Definition) Publish() error {
	v := NewValidator()
	start, err := v.Validate(d)
	if err != nil {
		return err
	}
	d.startNode = start
	d.published = true
	return nil
}

// OutgoingEdges returns the edges leaving nodeID ordered by priority, with
// declaration order breaking ties. The ordering is what makes edge selection
// deterministic.
func (d *Definition) OutgoingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// TerminalNodes returns the IDs of all terminal nodes.
func (d *Definition) TerminalNodes() []string {
	var ids []string
	for id, n := range d.Nodes {
		if n != nil && n.Kind == NodeKindTerminal {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
