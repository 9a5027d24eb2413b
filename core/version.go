// Package core holds the value types shared by every other package in this
// module: package references, semantic versions, and the index entries they
// are resolved from.
package core

import (
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// Version is a (major, minor, patch) triple of nonnegative integers.
// Ordering is lexicographic on the triple. The zero value, Version{}, is a
// sentinel used only for the dependency graph's root node; it is never a
// valid published version.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// NewVersion builds a Version directly from its components.
func NewVersion(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// ParseVersion parses a "major.minor.patch" string. Parsing is delegated to
// Masterminds/semver so that malformed input is rejected the same way the
// rest of the Go ecosystem rejects it; pre-release and build-metadata
// suffixes are not part of this system's version model and are rejected.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, errors.Wrapf(err, "invalid version %q", s)
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, errors.Errorf("invalid version %q: pre-release/build metadata is not supported", s)
	}
	return Version{
		Major: uint64(sv.Major()),
		Minor: uint64(sv.Minor()),
		Patch: uint64(sv.Patch()),
	}, nil
}

// String renders the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than o.
func (v Version) Compare(o Version) int {
	// Route through semver.Version.Compare so the comparison rule is the
	// library's, not a hand-rolled one: this is the only place that cares
	// about exact tie-break behavior and it should track semver.Version.
	a, err := semver.NewVersion(v.String())
	if err != nil {
		panic(err) // v is always constructed from valid nonnegative components
	}
	b, err := semver.NewVersion(o.String())
	if err != nil {
		panic(err)
	}
	return a.Compare(b)
}

// LessThan reports whether v orders strictly before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// GreaterThan reports whether v orders strictly after o.
func (v Version) GreaterThan(o Version) bool { return v.Compare(o) > 0 }

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// MarshalJSON renders the version the way the remote catalog and on-disk
// files expect it: a plain "major.minor.patch" string.
func (v Version) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON accepts the "major.minor.patch" string form.
func (v *Version) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
