package core

import (
	"strings"

	"github.com/pkg/errors"
)

// PackageReference identifies one published artifact: a namespace, a name,
// and a version. Two identity forms are used throughout this module:
// strict ("namespace-name-version", equality includes version) and loose
// ("namespace-name", version-independent).
type PackageReference struct {
	Namespace string  `json:"namespace"`
	Name      string  `json:"name"`
	Version   Version `json:"version_number"`
}

// NewPackageReference validates and constructs a PackageReference.
// Namespace and name must be non-empty and must not contain a hyphen,
// since the strict/loose identity strings are hyphen-joined.
func NewPackageReference(namespace, name string, version Version) (PackageReference, error) {
	if namespace == "" || strings.Contains(namespace, "-") {
		return PackageReference{}, errors.Errorf("invalid namespace %q", namespace)
	}
	if name == "" || strings.Contains(name, "-") {
		return PackageReference{}, errors.Errorf("invalid name %q", name)
	}
	return PackageReference{Namespace: namespace, Name: name, Version: version}, nil
}

// StrictIdent returns the "namespace-name-version" identity string.
func (p PackageReference) StrictIdent() string {
	return p.Namespace + "-" + p.Name + "-" + p.Version.String()
}

// LooseIdent returns the "namespace-name" identity string, used to collapse
// multiple versions of the same package into a single dependency graph node.
func (p PackageReference) LooseIdent() string {
	return p.Namespace + "-" + p.Name
}

// String renders the reference the way it's shown to users: its strict
// identity.
func (p PackageReference) String() string {
	return p.StrictIdent()
}

// Root is the sentinel reference occupying the dependency graph's root
// node. It is never a resolvable package.
var Root = PackageReference{Namespace: "@", Name: "@", Version: Version{}}

// ParsePackageReference parses a "namespace-name-version" strict identity
// string, as found in manifests and CLI arguments.
func ParsePackageReference(s string) (PackageReference, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return PackageReference{}, errors.Errorf("invalid package reference %q: expected namespace-name-version", s)
	}
	v, err := ParseVersion(parts[2])
	if err != nil {
		return PackageReference{}, errors.Wrapf(err, "invalid package reference %q", s)
	}
	return NewPackageReference(parts[0], parts[1], v)
}
