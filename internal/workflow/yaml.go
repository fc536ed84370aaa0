// YAML-based workflow definition parsing.
//
// Definitions are authored in a human-readable YAML format and converted into
// Definition structures, then published (validated) before use.
//
// Example:
//
//	name: Standard document approval
//	nodes:
//	  - id: review
//	    kind: review
//	    name: Initial review
//	  - id: approve
//	    kind: approval
//	    approvals: 2
//	  - id: notify
//	    kind: action
//	    action: notify
//	    params:
//	      recipients: [originator]
//	  - id: done
//	    kind: terminal
//	    outcome: completed
//	edges:
//	  - from: review
//	    to: approve
//	    condition:
//	      and:
//	        - role_in: [reviewer]
//	        - hash_matches: true
//	  - from: approve
//	    to: notify
//	    condition:
//	      and:
//	        - approval_count_at_least: {node: approve}
//	        - certificate_valid: true
//	  - from: notify
//	    to: done
//
// Conditions are a nested mapping mirroring the predicate variants. Omitting
// a condition makes the edge unconditional.
package workflow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// YAMLDefinition is the top-level structure of a definition YAML file.
type YAMLDefinition struct {
	ID          string     `yaml:"id,omitempty"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Version     int        `yaml:"version,omitempty"`
	Nodes       []YAMLNode `yaml:"nodes"`
	Edges       []YAMLEdge `yaml:"edges"`
}

// YAMLNode is one node entry in a definition file.
type YAMLNode struct {
	ID        string         `yaml:"id"`
	Kind      string         `yaml:"kind"`
	Name      string         `yaml:"name,omitempty"`
	Approvals int            `yaml:"approvals,omitempty"`
	Action    string         `yaml:"action,omitempty"`
	Params    map[string]any `yaml:"params,omitempty"`
	Outcome   string         `yaml:"outcome,omitempty"`
}

// YAMLEdge is one edge entry in a definition file.
type YAMLEdge struct {
	From      string         `yaml:"from"`
	To        string         `yaml:"to"`
	Priority  int            `yaml:"priority,omitempty"`
	Return    bool           `yaml:"return,omitempty"`
	Condition *YAMLCondition `yaml:"condition,omitempty"`
}

// YAMLCondition mirrors the condition variants as a nested mapping. Exactly
// one field may be set per node of the tree.
type YAMLCondition struct {
	RoleIn               []string          `yaml:"role_in,omitempty"`
	OfficeMembership     string            `yaml:"office_membership,omitempty"`
	ApprovalCountAtLeast *YAMLApprovalPred `yaml:"approval_count_at_least,omitempty"`
	CertificateValid     bool              `yaml:"certificate_valid,omitempty"`
	HashMatches          bool              `yaml:"hash_matches,omitempty"`
	And                  []*YAMLCondition  `yaml:"and,omitempty"`
	Or                   []*YAMLCondition  `yaml:"or,omitempty"`
	Not                  *YAMLCondition    `yaml:"not,omitempty"`
}

// YAMLApprovalPred parameterizes approval_count_at_least. Count zero falls
// back to the referenced node's approvals requirement.
type YAMLApprovalPred struct {
	Node  string `yaml:"node"`
	Count int    `yaml:"count,omitempty"`
}

// LoadDefinition reads and parses a definition YAML file. The returned
// definition is not yet published.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}
	return ParseDefinition(data)
}

// ParseDefinition parses YAML bytes into a Definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var raw YAMLDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &WorkflowError{
			Code:    WorkflowErrorInvalidDefinition,
			Message: "failed to parse definition YAML",
			Cause:   err,
		}
	}
	return raw.ToDefinition()
}

// ToDefinition converts the YAML form into a Definition.
func (y *YAMLDefinition) ToDefinition() (*Definition, error) {
	if y.Name == "" {
		return nil, &WorkflowError{Code: WorkflowErrorInvalidDefinition, Message: "definition name is required"}
	}

	id := types.NewID()
	if y.ID != "" {
		parsed, err := types.ParseID(y.ID)
		if err != nil {
			return nil, &WorkflowError{Code: WorkflowErrorInvalidDefinition, Message: "invalid definition ID", Cause: err}
		}
		id = parsed
	}

	version := y.Version
	if version <= 0 {
		version = 1
	}

	def := &Definition{
		ID:          id,
		Name:        y.Name,
		Description: y.Description,
		Version:     version,
		Nodes:       make(map[string]*Node, len(y.Nodes)),
		CreatedAt:   time.Now().UTC(),
	}

	for _, yn := range y.Nodes {
		if yn.ID == "" {
			return nil, &WorkflowError{Code: WorkflowErrorInvalidNode, Message: "node ID is required"}
		}
		if _, dup := def.Nodes[yn.ID]; dup {
			return nil, &WorkflowError{
				Code:    WorkflowErrorInvalidNode,
				Message: fmt.Sprintf("duplicate node ID %q", yn.ID),
				NodeID:  yn.ID,
			}
		}
		def.Nodes[yn.ID] = &Node{
			ID:              yn.ID,
			Kind:            NodeKind(yn.Kind),
			Name:            yn.Name,
			Approvals:       yn.Approvals,
			ActionType:      ActionType(yn.Action),
			ActionParams:    yn.Params,
			TerminalOutcome: TerminalOutcome(yn.Outcome),
		}
	}

	for _, ye := range y.Edges {
		cond, err := ye.Condition.toCondition()
		if err != nil {
			return nil, err
		}
		def.Edges = append(def.Edges, Edge{
			From:      ye.From,
			To:        ye.To,
			Priority:  ye.Priority,
			Return:    ye.Return,
			Condition: cond,
		})
	}

	return def, nil
}

// toCondition converts a YAML condition node into the tagged-variant tree.
// A nil receiver yields a nil (always true) condition.
func (y *YAMLCondition) toCondition() (*Condition, error) {
	if y == nil {
		return nil, nil
	}

	set := 0
	var cond *Condition

	if len(y.RoleIn) > 0 {
		set++
		cond = RoleIn(y.RoleIn...)
	}
	if y.OfficeMembership != "" {
		set++
		cond = OfficeMembership(y.OfficeMembership)
	}
	if y.ApprovalCountAtLeast != nil {
		set++
		cond = ApprovalCountAtLeast(y.ApprovalCountAtLeast.Node, y.ApprovalCountAtLeast.Count)
	}
	if y.CertificateValid {
		set++
		cond = CertificateValid()
	}
	if y.HashMatches {
		set++
		cond = HashMatches()
	}
	if len(y.And) > 0 {
		set++
		operands, err := toConditions(y.And)
		if err != nil {
			return nil, err
		}
		cond = And(operands...)
	}
	if len(y.Or) > 0 {
		set++
		operands, err := toConditions(y.Or)
		if err != nil {
			return nil, err
		}
		cond = Or(operands...)
	}
	if y.Not != nil {
		set++
		operand, err := y.Not.toCondition()
		if err != nil {
			return nil, err
		}
		cond = Not(operand)
	}

	if set == 0 {
		return nil, &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: "condition mapping is empty"}
	}
	if set > 1 {
		return nil, &WorkflowError{Code: WorkflowErrorInvalidCondition, Message: "condition mapping must set exactly one predicate"}
	}
	return cond, nil
}

func toConditions(ys []*YAMLCondition) ([]*Condition, error) {
	out := make([]*Condition, 0, len(ys))
	for _, y := range ys {
		c, err := y.toCondition()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
