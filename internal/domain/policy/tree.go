// Package policy holds the tariff decision tree and the rate resolver that
// turns an outcome's rate text into a structured computation.
//
// The tree is stored arena-style: a flat node slice indexed by id and a flat
// edge slice indexed by target.  Nothing holds parent or child pointers;
// traversal always goes through the edge index.
package policy

import (
	"github.com/haebom/tariff/pkg/errors"
)

// NodeKind classifies a tree node.  It is decided once at load time.
type NodeKind string

const (
	KindRoot     NodeKind = "root"
	KindCountry  NodeKind = "country"
	KindQuestion NodeKind = "question"
	KindOutcome  NodeKind = "outcome"
)

// RootID is the id of the synthetic root node.
const RootID = "root"

// Branch labels carried by question edges.
const (
	BranchYes     = "YES"
	BranchNo      = "NO"
	BranchSpecial = "SPECIAL"
)

// Node is an immutable decision-tree node.
type Node struct {
	ID             string   `json:"id"`
	Kind           NodeKind `json:"kind"`
	Label          string   `json:"label"`
	Keyword        string   `json:"keyword,omitempty"`
	RateExpression string   `json:"rate_expression,omitempty"`
}

// CrossLinkPhrase is the phrase used for keyword extraction: the keyword
// when present, otherwise the label.
func (n Node) CrossLinkPhrase() string {
	if n.Keyword != "" {
		return n.Keyword
	}
	return n.Label
}

// Edge is a directed parent→child relation.  BranchLabel is set on edges
// leaving a question node ("YES"/"NO").
type Edge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	BranchLabel string `json:"branch_label,omitempty"`
}

// Omission records a branch that was skipped while loading because it was
// missing or malformed.  Omissions are data, not errors.
type Omission struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Tree is a loaded policy tree.  It is never mutated after LoadTree returns
// and is safe for concurrent readers.
type Tree struct {
	nodes    []Node
	index    map[string]int
	edges    []Edge
	incoming map[string]int
	outgoing map[string][]int

	// Omissions lists the branches skipped during load, in document order.
	Omissions []Omission
}

func newTree(root Node) *Tree {
	t := &Tree{
		index:    make(map[string]int),
		incoming: make(map[string]int),
		outgoing: make(map[string][]int),
	}
	t.nodes = append(t.nodes, root)
	t.index[root.ID] = 0
	return t
}

// attach adds child under parent.  The loader guarantees ids are unique.
func (t *Tree) attach(parent string, child Node, branch string) {
	t.index[child.ID] = len(t.nodes)
	t.nodes = append(t.nodes, child)
	t.incoming[child.ID] = len(t.edges)
	t.outgoing[parent] = append(t.outgoing[parent], len(t.edges))
	t.edges = append(t.edges, Edge{Source: parent, Target: child.ID, BranchLabel: branch})
}

// Root returns the root node.
func (t *Tree) Root() Node { return t.nodes[0] }

// Len returns the number of nodes, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Node looks a node up by id.
func (t *Tree) Node(id string) (Node, bool) {
	i, ok := t.index[id]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

// Nodes returns a copy of all nodes in load order (root first).
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Edges returns a copy of all edges in load order.
func (t *Tree) Edges() []Edge {
	out := make([]Edge, len(t.edges))
	copy(out, t.edges)
	return out
}

// Children returns the outgoing edges of id in document order.
func (t *Tree) Children(id string) []Edge {
	idx := t.outgoing[id]
	out := make([]Edge, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.edges[i])
	}
	return out
}

// Parent returns the incoming edge of id.  The root has none.
func (t *Tree) Parent(id string) (Edge, bool) {
	i, ok := t.incoming[id]
	if !ok {
		return Edge{}, false
	}
	return t.edges[i], true
}

// Outcomes returns every outcome node in load order.
func (t *Tree) Outcomes() []Node {
	var out []Node
	for _, n := range t.nodes {
		if n.Kind == KindOutcome {
			out = append(out, n)
		}
	}
	return out
}

// PathToRoot returns the edges leading from the root to nodeID, root first.
// The root itself yields an empty path.
func (t *Tree) PathToRoot(nodeID string) ([]Edge, error) {
	if _, ok := t.index[nodeID]; !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "policy node not found").WithDetail(nodeID)
	}

	var rev []Edge
	cur := nodeID
	// A strict hierarchy has depth < len(nodes); the bound guards against a
	// corrupted index looping forever.
	for steps := 0; steps < len(t.nodes); steps++ {
		e, ok := t.Parent(cur)
		if !ok {
			break
		}
		rev = append(rev, e)
		cur = e.Source
	}

	path := make([]Edge, len(rev))
	for i, e := range rev {
		path[len(rev)-1-i] = e
	}
	return path, nil
}

// PathNodeIDs returns the node ids along PathToRoot, root first and nodeID last.
func (t *Tree) PathNodeIDs(nodeID string) ([]string, error) {
	path, err := t.PathToRoot(nodeID)
	if err != nil {
		return nil, err
	}
	ids := []string{t.Root().ID}
	for _, e := range path {
		ids = append(ids, e.Target)
	}
	return ids, nil
}
