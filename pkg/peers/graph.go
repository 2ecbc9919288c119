package peers

import (
	"encoding/json"
	"maps"
	"slices"
)

// Node is a package that declares peer requirements, or is referenced as a
// peer by one that does.
type Node struct {
	Name            string `json:"name"`
	ResolvedVersion string `json:"resolvedVersion"`
	// PeerRequirements maps a peer package name to the range it must satisfy.
	PeerRequirements map[string]string `json:"peerRequirements"`
}

// PeerNames returns the node's peer names in sorted order.
func (n Node) PeerNames() []string {
	return slices.Sorted(maps.Keys(n.PeerRequirements))
}

// Graph is the peer graph: an arena of nodes indexed by name plus the
// ordered direct dependencies the traversal starts from. A Graph is
// read-only once built.
type Graph struct {
	nodes   []Node
	index   map[string]int
	roots   []string
	unknown []string
}

// NewGraph creates an empty graph with the given roots. Duplicate roots are
// dropped, keeping first-seen order.
func NewGraph(roots []string) *Graph {
	g := &Graph{index: map[string]int{}}
	seen := map[string]bool{}
	for _, r := range roots {
		if !seen[r] {
			seen[r] = true
			g.roots = append(g.roots, r)
		}
	}
	return g
}

// AddNode inserts n unless a node with the same name exists. It reports
// whether n was added. The requirement map is copied.
func (g *Graph) AddNode(n Node) bool {
	if _, ok := g.index[n.Name]; ok {
		return false
	}
	n.PeerRequirements = maps.Clone(n.PeerRequirements)
	if n.PeerRequirements == nil {
		n.PeerRequirements = map[string]string{}
	}
	g.index[n.Name] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return true
}

// MarkUnknown records that name's peer requirements could not be fetched.
func (g *Graph) MarkUnknown(name string) {
	if !slices.Contains(g.unknown, name) {
		g.unknown = append(g.unknown, name)
	}
}

// Node returns the node for name.
func (g *Graph) Node(name string) (Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node { return slices.Clone(g.nodes) }

// Roots returns the direct dependency names in discovery order.
func (g *Graph) Roots() []string { return slices.Clone(g.roots) }

// Unknown returns the packages whose peer requirements were unavailable.
// Their absence from the graph does not mean they have no peers.
func (g *Graph) Unknown() []string { return slices.Clone(g.unknown) }

type graphJSON struct {
	Nodes   map[string]Node `json:"nodes"`
	Roots   []string        `json:"roots"`
	Unknown []string        `json:"unknown,omitempty"`
}

// MarshalJSON encodes the graph as {"nodes": {name: node}, "roots": [...]}.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{Nodes: make(map[string]Node, len(g.nodes)), Roots: g.roots, Unknown: g.unknown}
	if out.Roots == nil {
		out.Roots = []string{}
	}
	for _, n := range g.nodes {
		out.Nodes[n.Name] = n
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form produced by MarshalJSON. Nodes are inserted
// in sorted name order; node names default to their map key.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*g = *NewGraph(in.Roots)
	for _, name := range slices.Sorted(maps.Keys(in.Nodes)) {
		n := in.Nodes[name]
		n.Name = name
		g.AddNode(n)
	}
	for _, u := range in.Unknown {
		g.MarkUnknown(u)
	}
	return nil
}
