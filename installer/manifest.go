package installer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// ManifestFileName is the installer package's own manifest, distinct from
// the Thunderstore package manifest it sits alongside, per spec.md §4.3.
const ManifestFileName = "manifest.json"

// ErrNoManifest is returned when an installer package directory has no
// manifest.json, matching the Installer error kind of the same name.
var ErrNoManifest = errors.New("installer package has no manifest")

// ErrNoExecutableForHost is returned when a manifest's matrix has no
// triple for the running host's OS/architecture.
var ErrNoExecutableForHost = errors.New("installer manifest has no executable for this host")

// Target is one (target_os, architecture, executable) triple, grounded on
// the Rust original's InstallerMatrix (install/manifest.rs).
type Target struct {
	OS         string `json:"target_os"`
	Arch       string `json:"architecture"`
	Executable string `json:"executable"`
}

// Manifest enumerates the executables an installer package ships, one per
// supported host, grounded on the Rust original's InstallerManifest
// (install/manifest.rs). OS and Arch values are runtime.GOOS/runtime.GOARCH
// strings ("windows", "darwin", "linux", "amd64", "arm64", ...).
type Manifest struct {
	InstallerVersion uint32   `json:"installer_version"`
	Matrix           []Target `json:"matrix"`
}

// ReadManifest reads dir's manifest.json.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoManifest, "%s", dir)
		}
		return nil, errors.Wrapf(err, "reading installer manifest %s", path)
	}

	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "decoding installer manifest %s", path)
	}
	return &m, nil
}

// SelectExecutable reads dir's installer manifest and returns the absolute
// path to the executable whose target_os/architecture triple matches the
// running host, per spec.md §4.3.
func SelectExecutable(dir string) (string, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return "", err
	}

	for _, t := range m.Matrix {
		if t.OS == runtime.GOOS && t.Arch == runtime.GOARCH {
			return filepath.Join(dir, t.Executable), nil
		}
	}
	return "", errors.Wrapf(ErrNoExecutableForHost, "%s/%s in %s", runtime.GOOS, runtime.GOARCH, dir)
}
