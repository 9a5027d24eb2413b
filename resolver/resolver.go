// Package resolver builds a DependencyGraph from a manifest's direct
// package references, looking up each package's own dependencies in the
// Package Index (spec.md §4.2).
package resolver

import (
	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/core"
	"github.com/thunderstore-io/tcli-go/index"
)

// PackageLookup is the subset of index.Index the resolver needs: a single
// strict-reference lookup. Kept as an interface so the resolver can be
// tested against a fake catalog without touching disk.
type PackageLookup interface {
	GetPackage(ref core.PackageReference) (core.PackageIndexEntry, error)
}

// PackageNotFoundError reports that a manifest or transitive dependency
// reference has no matching entry in the index.
type PackageNotFoundError struct {
	Ref core.PackageReference
}

func (e *PackageNotFoundError) Error() string {
	return "package not found in index: " + e.Ref.String()
}

// Resolve computes the transitive closure of direct, producing a graph
// whose root has an edge to each direct input, per spec.md §4.2.
//
// The BFS guard — never re-queueing a loose identity once a strictly
// greater version of it is already in the graph — is the sole recursion
// terminator, and is what makes the result independent of traversal order.
func Resolve(lookup PackageLookup, direct []core.PackageReference) (*core.DependencyGraph, error) {
	graph := core.NewDependencyGraph()

	queue := append([]core.PackageReference(nil), direct...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		entry, err := lookup.GetPackage(cur)
		if err != nil {
			var notFound *PackageNotFoundError
			switch {
			case errors.As(err, &notFound):
				// lookup already reported this precisely; don't re-wrap it.
				return nil, err
			case errors.Is(err, index.ErrPackageNotFound):
				return nil, &PackageNotFoundError{Ref: cur}
			default:
				return nil, errors.Wrapf(err, "looking up %s in package index", cur)
			}
		}
		graph.Add(cur)

		for _, dep := range entry.Dependencies {
			if !graph.Exists(dep, core.GreaterVersion) {
				graph.Add(dep)
				graph.AddEdge(cur, dep)
				queue = append(queue, dep)
			} else {
				graph.AddEdge(cur, dep)
			}
		}
	}

	for _, d := range direct {
		graph.AddRootedEdge(d)
	}

	return graph, nil
}
