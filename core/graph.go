package core

import "sort"

// rootIndex is the fixed node index occupied by the dependency graph's
// distinguished root.
const rootIndex = 0

// Granularity controls how DependencyGraph.Exists compares the version
// resident in the graph against the version being probed for.
type Granularity int

const (
	// All requires an exact version match.
	All Granularity = iota
	// IgnoreVersion requires only that the loose identity is present.
	IgnoreVersion
	// LesserVersion requires the resident version to be strictly lower.
	LesserVersion
	// GreaterVersion requires the resident version to be strictly higher.
	GreaterVersion
)

type node struct {
	ref   PackageReference
	edges []int // outgoing edge target indices
}

// DependencyGraph is a directed graph of package references, with a
// distinguished root node at a fixed index (0). Edges denote "depends on"
// from parent to child; edges from root denote "directly requested by the
// user." At most one node exists per loose identity: two packages with the
// same (namespace, name) but different versions collapse into a single
// node whose version is the maximum ever seen.
type DependencyGraph struct {
	nodes []node
	index map[string]int // loose ident -> node index
}

// NewDependencyGraph returns a graph containing only the root node.
func NewDependencyGraph() *DependencyGraph {
	g := &DependencyGraph{index: make(map[string]int)}
	g.nodes = append(g.nodes, node{ref: Root})
	g.index[Root.LooseIdent()] = rootIndex
	return g
}

// Add inserts ref if its loose identity is absent, or upgrades the
// resident node's version if ref's version is strictly greater. A node's
// version is never downgraded.
func (g *DependencyGraph) Add(ref PackageReference) {
	loose := ref.LooseIdent()
	idx, ok := g.index[loose]
	if !ok {
		g.index[loose] = len(g.nodes)
		g.nodes = append(g.nodes, node{ref: ref})
		return
	}
	if g.nodes[idx].ref.Version.LessThan(ref.Version) {
		g.nodes[idx].ref = ref
	}
}

// AddEdge adds a directed edge from parent to child, located by loose
// identity. Both must already be present in the graph. Parallel edges are
// permitted but semantically redundant.
func (g *DependencyGraph) AddEdge(parent, child PackageReference) {
	pIdx, ok := g.index[parent.LooseIdent()]
	if !ok {
		return
	}
	cIdx, ok := g.index[child.LooseIdent()]
	if !ok {
		return
	}
	g.nodes[pIdx].edges = append(g.nodes[pIdx].edges, cIdx)
}

// AddRootedEdge adds an edge from the root to child.
func (g *DependencyGraph) AddRootedEdge(child PackageReference) {
	g.AddEdge(Root, child)
}

// Exists reports whether a node matching ref's loose identity is present
// and satisfies the given version granularity.
func (g *DependencyGraph) Exists(ref PackageReference, gran Granularity) bool {
	idx, ok := g.index[ref.LooseIdent()]
	if !ok {
		return false
	}
	resident := g.nodes[idx].ref.Version
	switch gran {
	case All:
		return resident.Equal(ref.Version)
	case IgnoreVersion:
		return true
	case LesserVersion:
		return resident.LessThan(ref.Version)
	case GreaterVersion:
		return resident.GreaterThan(ref.Version)
	default:
		return false
	}
}

// Get returns the resident reference for a loose identity, and whether one
// was found.
func (g *DependencyGraph) Get(loose string) (PackageReference, bool) {
	idx, ok := g.index[loose]
	if !ok {
		return PackageReference{}, false
	}
	return g.nodes[idx].ref, true
}

// GetDependencies returns every node reachable from ref, sorted ascending
// by BFS traversal cost (number of edge hops). ref itself is never
// included, even when a cycle leads back to it.
func (g *DependencyGraph) GetDependencies(ref PackageReference) ([]PackageReference, bool) {
	start, ok := g.index[ref.LooseIdent()]
	if !ok {
		return nil, false
	}

	cost := map[int]int{start: 0}
	queue := []int{start}
	order := []int{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.nodes[cur].edges {
			if _, seen := cost[next]; seen {
				continue
			}
			cost[next] = cost[cur] + 1
			order = append(order, next)
			queue = append(queue, next)
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return cost[order[i]] < cost[order[j]] })

	result := make([]PackageReference, 0, len(order))
	for _, idx := range order {
		result = append(result, g.nodes[idx].ref)
	}
	return result, true
}

// Edge is one direct parent -> child relationship, addressed by loose
// identity, as stored in the graph's node arena.
type Edge struct {
	Parent string
	Child  string
}

// Edges returns every direct edge in the graph, including those from the
// root, in an unspecified but stable-per-call order. Used for
// serialization, where the wire form addresses edges by loose identity
// rather than by internal arena index.
func (g *DependencyGraph) Edges() []Edge {
	var out []Edge
	for _, n := range g.nodes {
		for _, target := range n.edges {
			out = append(out, Edge{Parent: n.ref.LooseIdent(), Child: g.nodes[target].ref.LooseIdent()})
		}
	}
	return out
}

// Digest walks the graph depth-first in post-order from the root,
// excluding the root itself, yielding a leaves-first topological order
// suitable for installation.
func (g *DependencyGraph) Digest() []PackageReference {
	visited := make([]bool, len(g.nodes))
	var out []PackageReference

	var visit func(idx int)
	visit = func(idx int) {
		if visited[idx] {
			return
		}
		visited[idx] = true
		for _, next := range g.nodes[idx].edges {
			visit(next)
		}
		if idx != rootIndex {
			out = append(out, g.nodes[idx].ref)
		}
	}
	visit(rootIndex)
	return out
}

// GraphDelta is the pair of add and remove lists describing the
// transition from one graph to another.
type GraphDelta struct {
	// Add lists references present in the new graph but missing (or at a
	// lower version) in the old one, ordered by the new graph's digest
	// position, ascending (roots toward leaves is preserved by reversing
	// at consumption time, per spec.md §3).
	Add []PackageReference
	// Del lists references present in the old graph but missing (or
	// superseded) in the new one, ordered by the old graph's digest
	// position, ascending.
	Del []PackageReference
}

// GraphDelta computes the add/remove transition from g to other.
func (g *DependencyGraph) GraphDelta(other *DependencyGraph) GraphDelta {
	type positioned struct {
		pos int
		ref PackageReference
	}

	selfDigest := g.Digest()
	otherDigest := other.Digest()

	selfTable := make(map[string]positioned, len(selfDigest))
	for i, ref := range selfDigest {
		selfTable[ref.LooseIdent()] = positioned{pos: i, ref: ref}
	}
	otherTable := make(map[string]positioned, len(otherDigest))
	for i, ref := range otherDigest {
		otherTable[ref.LooseIdent()] = positioned{pos: i, ref: ref}
	}

	type posRef struct {
		pos int
		ref PackageReference
	}
	var addPos, delPos []posRef

	for key, self := range selfTable {
		o, ok := otherTable[key]
		switch {
		case !ok:
			delPos = append(delPos, posRef{self.pos, self.ref})
		case self.ref.Version.LessThan(o.ref.Version):
			addPos = append(addPos, posRef{o.pos, o.ref})
			delPos = append(delPos, posRef{self.pos, self.ref})
		default:
			// present in both at the same version, or self holds the
			// greater version: no-op, so the delta never downgrades.
		}
	}
	for key, o := range otherTable {
		if _, ok := selfTable[key]; !ok {
			addPos = append(addPos, posRef{o.pos, o.ref})
		}
	}

	sort.SliceStable(addPos, func(i, j int) bool { return addPos[i].pos < addPos[j].pos })
	sort.SliceStable(delPos, func(i, j int) bool { return delPos[i].pos < delPos[j].pos })

	delta := GraphDelta{Add: make([]PackageReference, len(addPos)), Del: make([]PackageReference, len(delPos))}
	for i, p := range addPos {
		delta.Add[i] = p.ref
	}
	for i, p := range delPos {
		delta.Del[i] = p.ref
	}
	return delta
}
