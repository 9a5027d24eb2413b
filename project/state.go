// Package project implements the lockfile, statefile, and project
// directory discipline described in spec.md §4.4 and §3 (Project Layout):
// the pieces that make install and uninstall recoverable and incremental.
package project

import (
	"crypto/md5" //nolint:gosec // content-identity digest, not a security boundary
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/core"
	"github.com/thunderstore-io/tcli-go/installer"
)

// StagedFile is a TrackedFile whose path lies under the project's staging
// directory, decorated with the MD5 digest of its contents at staging
// time and every destination it has since been copied to.
type StagedFile struct {
	Action installer.TrackedFile `json:"action"`
	Dest   []string              `json:"dest"`
	MD5    string                `json:"md5"`
}

// NewStagedFile digests the file at action.Path and records it as a
// freshly-staged file with no destinations yet.
func NewStagedFile(action installer.TrackedFile) (StagedFile, error) {
	digest, err := md5File(action.Path)
	if err != nil {
		return StagedFile{}, err
	}
	return StagedFile{Action: action, MD5: digest}, nil
}

// IsSameAs reports whether the file at path exists and its MD5 digest
// equals the one recorded at staging time.
func (s StagedFile) IsSameAs(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "statting %s", path)
	}
	if info.IsDir() {
		return false, nil
	}
	digest, err := md5File(path)
	if err != nil {
		return false, err
	}
	return digest == s.MD5, nil
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s for digest", path)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "digesting %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// StateEntry is the per-package bookkeeping recorded by a commit: the
// files it staged (destined for the game directory) and the files it
// linked (destined for the project's persistent state directory).
type StateEntry struct {
	Staged []StagedFile            `json:"staged"`
	Linked []installer.TrackedFile `json:"linked"`
}

// StateFile is the on-disk record of every currently-installed package,
// keyed by its strict identity string, per spec.md §6 (.tcli/state.json).
//
// Commit (project.go) fans install/uninstall jobs out across a worker pool
// and each job's closure calls Put/Get/Delete on the same *StateFile, so
// the map itself needs its own lock rather than relying on callers to
// serialize access.
type StateFile struct {
	mu    sync.Mutex
	State map[string]StateEntry `json:"state"`
}

// NewStateFile returns an empty statefile.
func NewStateFile() *StateFile {
	return &StateFile{State: make(map[string]StateEntry)}
}

// OpenStateFile reads the statefile at path, creating an empty one if it
// does not yet exist.
func OpenStateFile(path string) (*StateFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStateFile(), nil
		}
		return nil, errors.Wrapf(err, "opening statefile %s", path)
	}
	defer f.Close()

	var sf StateFile
	if err := json.NewDecoder(f).Decode(&sf); err != nil {
		return nil, errors.Wrapf(err, "decoding statefile %s", path)
	}
	if sf.State == nil {
		sf.State = make(map[string]StateEntry)
	}
	return &sf, nil
}

// Write persists the statefile as pretty-printed JSON.
func (sf *StateFile) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "writing statefile %s", path)
	}
	defer f.Close()

	sf.mu.Lock()
	defer sf.mu.Unlock()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(sf)
}

// Put records the given entry under ref's strict identity. Safe to call
// from concurrent install jobs.
func (sf *StateFile) Put(ref core.PackageReference, entry StateEntry) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.State == nil {
		sf.State = make(map[string]StateEntry)
	}
	sf.State[ref.StrictIdent()] = entry
}

// Get returns the entry recorded for ref, if any. Safe to call from
// concurrent uninstall jobs.
func (sf *StateFile) Get(ref core.PackageReference) (StateEntry, bool) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	e, ok := sf.State[ref.StrictIdent()]
	return e, ok
}

// Delete removes ref's entry. Safe to call from concurrent uninstall jobs.
func (sf *StateFile) Delete(ref core.PackageReference) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	delete(sf.State, ref.StrictIdent())
}
