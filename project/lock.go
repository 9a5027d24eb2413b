package project

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/core"
)

// LockFile is the persisted, serialized dependency graph plus an
// integrity digest, per spec.md §3 (LockFile) and §6 (Thunderstore.lock).
//
// The digest is computed over a canonical re-encoding of the graph (nodes
// sorted by loose identity, edges sorted by parent, then child), not over whatever
// byte layout json.Marshal happens to produce for a Go map — map key
// order is runtime-randomized in Go, so hashing the literal serialized
// bytes would make GraphHash spuriously change between otherwise-identical
// lockfiles. See DESIGN.md for the Open Question this resolves.
type LockFile struct {
	Version      int              `json:"version"`
	GraphHash    string           `json:"graph_hash"`
	PackageGraph SerializedGraph  `json:"package_graph"`
}

const lockFormatVersion = 1

// SerializedGraph is the wire form of a *core.DependencyGraph: a flat list
// of nodes (loose identity order) plus edges addressed by loose identity,
// so the round trip is independent of the graph's internal arena layout.
type SerializedGraph struct {
	Nodes []core.PackageReference `json:"nodes"`
	Edges []GraphEdge             `json:"edges"`
}

// GraphEdge is one parent -> child edge, addressed by loose identity.
// Root is represented by the sentinel core.Root loose identity.
type GraphEdge struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// SerializeGraph converts a graph to its wire form in a stable order.
func SerializeGraph(g *core.DependencyGraph) SerializedGraph {
	digest := g.Digest()
	out := SerializedGraph{Nodes: append([]core.PackageReference(nil), digest...)}
	sort.Slice(out.Nodes, func(i, j int) bool { return out.Nodes[i].LooseIdent() < out.Nodes[j].LooseIdent() })

	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Parent != edges[j].Parent {
			return edges[i].Parent < edges[j].Parent
		}
		return edges[i].Child < edges[j].Child
	})
	for _, e := range edges {
		out.Edges = append(out.Edges, GraphEdge{Parent: e.Parent, Child: e.Child})
	}
	return out
}

// GraphHash computes the integrity digest of a serialized graph: a
// SHA-256 over its JSON encoding once nodes and edges are placed in a
// deterministic order by SerializeGraph.
func GraphHash(sg SerializedGraph) string {
	b, _ := json.Marshal(sg)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ReadLockFile reads the lockfile at path. A missing file is not an
// error: callers treat it as "no prior graph" per spec.md §4.4 step 1.
func ReadLockFile(path string) (*LockFile, *core.DependencyGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewDependencyGraph(), nil
		}
		return nil, nil, errors.Wrapf(err, "opening lockfile %s", path)
	}
	defer f.Close()

	var lf LockFile
	if err := json.NewDecoder(f).Decode(&lf); err != nil {
		return nil, nil, errors.Wrapf(err, "decoding lockfile %s", path)
	}

	g := DeserializeGraph(lf.PackageGraph)
	return &lf, g, nil
}

// DeserializeGraph rebuilds a *core.DependencyGraph from its wire form.
func DeserializeGraph(sg SerializedGraph) *core.DependencyGraph {
	g := core.NewDependencyGraph()
	for _, ref := range sg.Nodes {
		g.Add(ref)
	}
	for _, e := range sg.Edges {
		parent, ok := g.Get(e.Parent)
		if !ok && e.Parent == core.Root.LooseIdent() {
			parent = core.Root
			ok = true
		}
		child, childOK := g.Get(e.Child)
		if ok && childOK {
			g.AddEdge(parent, child)
		}
	}
	return g
}

// WriteLockFile persists graph as a pretty-printed lockfile at path.
func WriteLockFile(path string, graph *core.DependencyGraph) error {
	sg := SerializeGraph(graph)
	lf := LockFile{
		Version:      lockFormatVersion,
		GraphHash:    GraphHash(sg),
		PackageGraph: sg,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "writing lockfile %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(lf)
}
