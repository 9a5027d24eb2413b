package core

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ref(t *testing.T, ns, name string, major, minor, patch uint64) PackageReference {
	t.Helper()
	r, err := NewPackageReference(ns, name, NewVersion(major, minor, patch))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func looseIdents(refs []PackageReference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.LooseIdent()
	}
	sort.Strings(out)
	return out
}

func TestGraphAddNeverDowngrades(t *testing.T) {
	g := NewDependencyGraph()
	a := ref(t, "bbepis", "BepInExPack", 5, 4, 2112)
	b := ref(t, "bbepis", "BepInExPack", 5, 4, 2113)

	g.Add(a)
	g.Add(b)
	resident, ok := g.Get(a.LooseIdent())
	assert.True(t, ok)
	assert.Equal(t, b.Version, resident.Version)

	// Adding the lower version again must not regress the resident node.
	g.Add(a)
	resident, _ = g.Get(a.LooseIdent())
	assert.Equal(t, b.Version, resident.Version)
}

func TestGraphDigestExcludesRoot(t *testing.T) {
	g := NewDependencyGraph()
	root := ref(t, "bbepis", "BepInExPack", 5, 4, 2113)
	dep := ref(t, "RiskofThunder", "BepInEx_GUI", 3, 0, 1)

	g.Add(root)
	g.Add(dep)
	g.AddEdge(root, dep)
	g.AddRootedEdge(root)

	digest := g.Digest()
	assert.Len(t, digest, 2)
	assert.Equal(t, looseIdents([]PackageReference{root, dep}), looseIdents(digest))

	// Leaves-first: dep must precede root in the digest order.
	var depPos, rootPos int
	for i, r := range digest {
		if r.LooseIdent() == dep.LooseIdent() {
			depPos = i
		}
		if r.LooseIdent() == root.LooseIdent() {
			rootPos = i
		}
	}
	assert.Less(t, depPos, rootPos)
}

func TestGraphDeltaAdditionsAndRemovals(t *testing.T) {
	base := ref(t, "bbepis", "BepInExPack", 5, 4, 2113)
	d1 := ref(t, "RiskofThunder", "BepInEx_GUI", 3, 0, 1)
	d2 := ref(t, "RiskofThunder", "FixPluginTypesSerialization", 1, 0, 3)
	d3 := ref(t, "RiskofThunder", "RoR2BepInExPack", 1, 9, 0)

	old := NewDependencyGraph()
	for _, r := range []PackageReference{base, d1, d2, d3} {
		old.Add(r)
	}
	for _, d := range []PackageReference{d1, d2, d3} {
		old.AddEdge(base, d)
	}
	old.AddRootedEdge(base)

	// New graph depends only on d1 (S3 in spec.md §8).
	next := NewDependencyGraph()
	next.Add(d1)
	next.AddRootedEdge(d1)

	delta := old.GraphDelta(next)
	assert.Empty(t, delta.Add)
	assert.Equal(t, looseIdents([]PackageReference{base, d2, d3}), looseIdents(delta.Del))
}

func TestGraphDeltaUpgrade(t *testing.T) {
	loose := "bbepis-BepInExPack"
	low := ref(t, "bbepis", "BepInExPack", 5, 4, 2112)
	high := ref(t, "bbepis", "BepInExPack", 5, 4, 2113)

	old := NewDependencyGraph()
	old.Add(low)
	old.AddRootedEdge(low)

	next := NewDependencyGraph()
	next.Add(high)
	next.AddRootedEdge(high)

	delta := old.GraphDelta(next)
	if assert.Len(t, delta.Add, 1) {
		assert.Equal(t, high, delta.Add[0])
	}
	if assert.Len(t, delta.Del, 1) {
		assert.Equal(t, low, delta.Del[0])
	}
	assert.Equal(t, loose, delta.Add[0].LooseIdent())
}
