// Package manifest loads and mutates a project's Thunderstore.toml. The
// project manifest file format loader is explicitly out of the core's
// scope per spec.md §1 (the resolver consumes a parsed list of package
// references); this package exists only to give cmd/tcli something to
// feed the resolver, grounded on golang-dep's own toml.go/manifest.go
// manifest-loading pair.
package manifest

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/core"
)

// FileName is the manifest's fixed filename within a project directory.
const FileName = "Thunderstore.toml"

// PackageInfo describes the project's own identity; present for mod
// projects, absent (zero value) for bare profiles.
type PackageInfo struct {
	Namespace   string `toml:"namespace,omitempty"`
	Name        string `toml:"name,omitempty"`
	Description string `toml:"description,omitempty"`
}

// Manifest is the parsed contents of Thunderstore.toml: the project's own
// package metadata (if any) plus its flat list of direct dependencies.
type Manifest struct {
	Package      PackageInfo `toml:"package,omitempty"`
	Dependencies []string    `toml:"dependencies"`
}

// Read parses the manifest at path.
func Read(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", path)
	}
	var m Manifest
	if err := toml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest %s", path)
	}
	return &m, nil
}

// Write serializes the manifest back to path.
func (m *Manifest) Write(path string) error {
	b, err := toml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "writing manifest %s", path)
	}
	return nil
}

// PackageReferences parses every dependency string into a
// core.PackageReference, the shape the resolver consumes.
func (m *Manifest) PackageReferences() ([]core.PackageReference, error) {
	refs := make([]core.PackageReference, 0, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		ref, err := core.ParsePackageReference(dep)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest dependency %q", dep)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// AddPackages merges packages into the manifest's dependency list:
// add if absent, replace if the manifest's version is lower than the
// given one, leave alone otherwise. Does not write the manifest.
// Grounded on original_source/src/project/mod.rs's add_packages.
func (m *Manifest) AddPackages(packages []core.PackageReference) error {
	existing, err := m.PackageReferences()
	if err != nil {
		return err
	}

	byLoose := make(map[string]int, len(existing))
	for i, e := range existing {
		byLoose[e.LooseIdent()] = i
	}

	for _, p := range packages {
		if i, ok := byLoose[p.LooseIdent()]; ok {
			if existing[i].Version.LessThan(p.Version) {
				existing[i] = p
			}
			continue
		}
		byLoose[p.LooseIdent()] = len(existing)
		existing = append(existing, p)
	}

	m.Dependencies = refsToStrings(existing)
	return nil
}

// RemovePackages drops any dependency sharing a loose identity with one of
// packages. Does not write the manifest.
func (m *Manifest) RemovePackages(packages []core.PackageReference) error {
	existing, err := m.PackageReferences()
	if err != nil {
		return err
	}

	remove := make(map[string]bool, len(packages))
	for _, p := range packages {
		remove[p.LooseIdent()] = true
	}

	kept := existing[:0]
	for _, e := range existing {
		if !remove[e.LooseIdent()] {
			kept = append(kept, e)
		}
	}

	m.Dependencies = refsToStrings(kept)
	return nil
}

func refsToStrings(refs []core.PackageReference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.StrictIdent()
	}
	return out
}
