package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const approvalYAML = `
name: Standard document approval
nodes:
  - id: review
    kind: review
  - id: approve
    kind: approval
    approvals: 2
  - id: notify
    kind: action
    action: notify
    params:
      recipients: [originator]
  - id: done
    kind: terminal
    outcome: completed
  - id: rejected
    kind: terminal
    outcome: rejected
edges:
  - from: review
    to: approve
    condition:
      and:
        - role_in: [reviewer]
        - hash_matches: true
  - from: approve
    to: notify
    priority: 1
    condition:
      and:
        - approval_count_at_least: {node: approve}
        - certificate_valid: true
  - from: approve
    to: rejected
    priority: 2
    condition:
      not:
        hash_matches: true
  - from: notify
    to: done
`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(approvalYAML))
	require.NoError(t, err)

	assert.Equal(t, "Standard document approval", def.Name)
	assert.Equal(t, 1, def.Version)
	assert.Len(t, def.Nodes, 5)
	assert.Len(t, def.Edges, 4)

	approve := def.GetNode("approve")
	require.NotNil(t, approve)
	assert.Equal(t, NodeKindApproval, approve.Kind)
	assert.Equal(t, 2, approve.Approvals)

	notify := def.GetNode("notify")
	require.NotNil(t, notify)
	assert.Equal(t, ActionNotify, notify.ActionType)
	assert.Equal(t, []any{"originator"}, notify.ActionParams["recipients"])

	require.NoError(t, def.Publish())
	assert.Equal(t, "review", def.StartNode())
}

func TestParseDefinitionConditionTree(t *testing.T) {
	def, err := ParseDefinition([]byte(approvalYAML))
	require.NoError(t, err)

	cond := def.Edges[0].Condition
	require.NotNil(t, cond)
	assert.Equal(t, PredicateAnd, cond.Kind)
	require.Len(t, cond.Operands, 2)
	assert.Equal(t, PredicateRoleIn, cond.Operands[0].Kind)
	assert.Equal(t, []string{"reviewer"}, cond.Operands[0].Roles)
	assert.Equal(t, PredicateHashMatches, cond.Operands[1].Kind)

	reject := def.Edges[2].Condition
	require.NotNil(t, reject)
	assert.Equal(t, PredicateNot, reject.Kind)
}

func TestParseDefinitionUnconditionalEdge(t *testing.T) {
	def, err := ParseDefinition([]byte(approvalYAML))
	require.NoError(t, err)
	assert.Nil(t, def.Edges[3].Condition)
}

func TestParseDefinitionRejectsAmbiguousCondition(t *testing.T) {
	bad := `
name: ambiguous
nodes:
  - id: a
    kind: review
  - id: b
    kind: terminal
    outcome: completed
edges:
  - from: a
    to: b
    condition:
      role_in: [clerk]
      hash_matches: true
`
	_, err := ParseDefinition([]byte(bad))
	var werr *WorkflowError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, WorkflowErrorInvalidCondition, werr.Code)
}

func TestParseDefinitionRejectsDuplicateNode(t *testing.T) {
	bad := `
name: dup
nodes:
  - id: a
    kind: review
  - id: a
    kind: review
edges: []
`
	_, err := ParseDefinition([]byte(bad))
	var werr *WorkflowError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, WorkflowErrorInvalidNode, werr.Code)
}

func TestParseDefinitionRequiresName(t *testing.T) {
	_, err := ParseDefinition([]byte("nodes: []\nedges: []\n"))
	assert.Error(t, err)
}
