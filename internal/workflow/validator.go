package workflow

import (
	"fmt"
	"strings"
)

// Validator checks the structural invariants of a workflow definition at
// publish time. It is stateless and safe for concurrent use.
//
// Invariants enforced:
//   - at least one node, exactly one start node, at least one terminal node
//   - every edge references defined nodes
//   - terminal nodes have no outgoing edges
//   - action nodes declare a known action type
//   - every node is reachable from the start node
//   - every non-terminal node has a path to some terminal node
//   - cycles exist only through edges explicitly marked as return edges
//   - every edge condition is well-formed
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs all checks and returns the resolved start node ID on
// success.
func (v *Validator) Validate(d *Definition) (string, error) {
	if d == nil {
		return "", &WorkflowError{Code: WorkflowErrorInvalidDefinition, Message: "definition cannot be nil"}
	}
	if len(d.Nodes) == 0 {
		return "", &WorkflowError{Code: WorkflowErrorInvalidDefinition, Message: "definition must contain at least one node"}
	}

	if err := v.validateNodes(d); err != nil {
		return "", err
	}
	if err := v.validateEdges(d); err != nil {
		return "", err
	}

	start, err := v.findStartNode(d)
	if err != nil {
		return "", err
	}

	if err := v.validateReachability(d, start); err != nil {
		return "", err
	}
	if err := v.validateTerminalPaths(d); err != nil {
		return "", err
	}
	if cycle := v.detectForwardCycle(d); len(cycle) > 0 {
		return "", &WorkflowError{
			Code:    WorkflowErrorCycleDetected,
			Message: fmt.Sprintf("cycle without a return edge: %s", strings.Join(cycle, " -> ")),
		}
	}

	return start, nil
}

func (v *Validator) validateNodes(d *Definition) error {
	terminals := 0
	for id, node := range d.Nodes {
		if node == nil {
			return &WorkflowError{Code: WorkflowErrorInvalidNode, Message: "node cannot be nil", NodeID: id}
		}
		if node.ID != id {
			return &WorkflowError{
				Code:    WorkflowErrorInvalidNode,
				Message: fmt.Sprintf("node ID %q does not match its map key %q", node.ID, id),
				NodeID:  id,
			}
		}
		switch node.Kind {
		case NodeKindApproval, NodeKindReview, NodeKindBranch:
		case NodeKindAction:
			switch node.ActionType {
			case ActionNotify, ActionWebhook, ActionGenerateReport:
			default:
				return &WorkflowError{
					Code:    WorkflowErrorInvalidNode,
					Message: fmt.Sprintf("action node has unknown action type %q", node.ActionType),
					NodeID:  id,
				}
			}
		case NodeKindTerminal:
			terminals++
			switch node.TerminalOutcome {
			case OutcomeCompleted, OutcomeRejected:
			default:
				return &WorkflowError{
					Code:    WorkflowErrorInvalidNode,
					Message: fmt.Sprintf("terminal node has unknown outcome %q", node.TerminalOutcome),
					NodeID:  id,
				}
			}
		default:
			return &WorkflowError{
				Code:    WorkflowErrorInvalidNode,
				Message: fmt.Sprintf("unknown node kind %q", node.Kind),
				NodeID:  id,
			}
		}
	}
	if terminals == 0 {
		return &WorkflowError{Code: WorkflowErrorNoTerminal, Message: "definition must contain at least one terminal node"}
	}
	return nil
}

func (v *Validator) validateEdges(d *Definition) error {
	for _, edge := range d.Edges {
		from, ok := d.Nodes[edge.From]
		if !ok {
			return &WorkflowError{
				Code:    WorkflowErrorMissingNode,
				Message: fmt.Sprintf("edge references undefined source node %q", edge.From),
			}
		}
		if _, ok := d.Nodes[edge.To]; !ok {
			return &WorkflowError{
				Code:    WorkflowErrorMissingNode,
				Message: fmt.Sprintf("edge references undefined destination node %q", edge.To),
			}
		}
		if from != nil && from.Kind == NodeKindTerminal {
			return &WorkflowError{
				Code:    WorkflowErrorInvalidDefinition,
				Message: fmt.Sprintf("terminal node %q cannot have outgoing edges", edge.From),
				NodeID:  edge.From,
			}
		}
		if err := ValidateCondition(edge.Condition); err != nil {
			return err
		}
	}
	return nil
}

// findStartNode resolves the unique node with no incoming edges. Return
// edges do not count as incoming: a loop-back to the first review stage must
// not disqualify it as the start.
func (v *Validator) findStartNode(d *Definition) (string, error) {
	hasIncoming := make(map[string]bool, len(d.Nodes))
	for _, edge := range d.Edges {
		if edge.Return {
			continue
		}
		hasIncoming[edge.To] = true
	}

	var starts []string
	for id := range d.Nodes {
		if !hasIncoming[id] {
			starts = append(starts, id)
		}
	}

	switch len(starts) {
	case 0:
		return "", &WorkflowError{Code: WorkflowErrorNoStartNode, Message: "no start node: every node has incoming edges"}
	case 1:
		return starts[0], nil
	default:
		return "", &WorkflowError{
			Code:    WorkflowErrorMultipleStarts,
			Message: fmt.Sprintf("definition must have exactly one start node, found %d", len(starts)),
		}
	}
}

// validateReachability checks that every node is reachable from start by BFS
// over all edges, return edges included.
func (v *Validator) validateReachability(d *Definition, start string) error {
	visited := map[string]bool{start: true}
	queue := []string{start}
	adj := v.adjacency(d, true)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	for id := range d.Nodes {
		if !visited[id] {
			return &WorkflowError{
				Code:    WorkflowErrorUnreachableNode,
				Message: fmt.Sprintf("node %q is not reachable from start node %q", id, start),
				NodeID:  id,
			}
		}
	}
	return nil
}

// validateTerminalPaths checks that every node can reach some terminal node,
// by BFS over reversed edges starting from the terminal set.
func (v *Validator) validateTerminalPaths(d *Definition) error {
	reverse := make(map[string][]string, len(d.Nodes))
	for _, edge := range d.Edges {
		reverse[edge.To] = append(reverse[edge.To], edge.From)
	}

	canTerminate := make(map[string]bool, len(d.Nodes))
	var queue []string
	for id, node := range d.Nodes {
		if node.Kind == NodeKindTerminal {
			canTerminate[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, prev := range reverse[current] {
			if !canTerminate[prev] {
				canTerminate[prev] = true
				queue = append(queue, prev)
			}
		}
	}

	for id := range d.Nodes {
		if !canTerminate[id] {
			return &WorkflowError{
				Code:    WorkflowErrorNoTerminalPath,
				Message: fmt.Sprintf("node %q has no path to a terminal node", id),
				NodeID:  id,
			}
		}
	}
	return nil
}

// detectForwardCycle runs DFS with color marking over the graph restricted
// to non-return edges. Colors: 0 = unvisited, 1 = in progress, 2 = done.
// Returns the nodes of a cycle if one exists.
func (v *Validator) detectForwardCycle(d *Definition) []string {
	color := make(map[string]int, len(d.Nodes))
	parent := make(map[string]string, len(d.Nodes))
	adj := v.adjacency(d, false)

	var dfs func(nodeID string) []string
	dfs = func(nodeID string) []string {
		color[nodeID] = 1
		for _, next := range adj[nodeID] {
			switch color[next] {
			case 0:
				parent[next] = nodeID
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			case 1:
				// Back edge: reconstruct the cycle path.
				cycle := []string{next}
				for current := nodeID; current != next; current = parent[current] {
					cycle = append([]string{current}, cycle...)
				}
				return append([]string{next}, cycle...)
			}
		}
		color[nodeID] = 2
		return nil
	}

	for id := range d.Nodes {
		if color[id] == 0 {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// adjacency builds the adjacency list, optionally including return edges.
func (v *Validator) adjacency(d *Definition, includeReturn bool) map[string][]string {
	adj := make(map[string][]string, len(d.Nodes))
	for _, edge := range d.Edges {
		if edge.Return && !includeReturn {
			continue
		}
		adj[edge.From] = append(adj[edge.From], edge.To)
	}
	return adj
}
