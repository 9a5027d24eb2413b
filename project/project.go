package project

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/thunderstore-io/tcli-go/core"
	"github.com/thunderstore-io/tcli-go/downloader"
	"github.com/thunderstore-io/tcli-go/installer"
)

// Layout is the fixed set of paths rooted at a project directory,
// per spec.md §3 (Project Layout).
type Layout struct {
	Root         string
	Manifest     string
	LockFile     string
	ProjectState string
	Staging      string
	StateFile    string
	GameRegistry string
}

func layoutFor(root string) Layout {
	dot := filepath.Join(root, ".tcli")
	return Layout{
		Root:         root,
		Manifest:     filepath.Join(root, "Thunderstore.toml"),
		LockFile:     filepath.Join(root, "Thunderstore.lock"),
		ProjectState: filepath.Join(dot, "project_state"),
		Staging:      filepath.Join(dot, "staging"),
		StateFile:    filepath.Join(dot, "state.json"),
		GameRegistry: filepath.Join(dot, "game_registry.json"),
	}
}

func (l Layout) pidPath(gameIdentifier string) string {
	return filepath.Join(l.Root, ".tcli", gameIdentifier+".pid")
}

// Resolver is the subset of the resolver package's Resolve function a
// Project needs, kept as a function value so callers supply their own
// index-backed lookup.
type Resolver func(direct []core.PackageReference) (*core.DependencyGraph, error)

// Installers selects the installer client responsible for a given
// package reference, or for a game's own launch step. Most projects have
// exactly one modloader/ecosystem installer, but the interface allows
// per-package dispatch.
type Installers interface {
	For(ref core.PackageReference) (*installer.Client, error)
	ForGame(gameIdentifier string) (*installer.Client, error)
}

// Project is an opened project directory: layout paths, an advisory
// lock, and the collaborators needed to run a commit or a launch.
type Project struct {
	Layout     Layout
	Lock       *flock.Flock
	Downloader *downloader.Downloader
	Installers Installers
	Concurrency int
}

// Open canonicalizes dir, assembles its layout, acquires the project's
// advisory lock, and garbage-collects stale PID files, per spec.md §4.4.
func Open(dir string, dl *downloader.Downloader, installers Installers) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving project directory %s", dir)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "statting project directory %s", abs)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating project directory %s", abs)
		}
	} else if !info.IsDir() {
		return nil, errors.Errorf("project path %s is a file, not a directory", abs)
	}

	layout := layoutFor(abs)
	if err := os.MkdirAll(filepath.Join(abs, ".tcli"), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", filepath.Join(abs, ".tcli"))
	}

	lock := flock.NewFlock(filepath.Join(abs, ".tcli", "project.lock"))
	if err := lock.Lock(); err != nil {
		return nil, errors.Wrapf(err, "acquiring project lock for %s", abs)
	}

	if err := gcStalePIDs(layout); err != nil {
		lock.Unlock()
		return nil, err
	}

	return &Project{
		Layout:      layout,
		Lock:        lock,
		Downloader:  dl,
		Installers:  installers,
		Concurrency: 4,
	}, nil
}

// Close releases the project's advisory lock.
func (p *Project) Close() error {
	return p.Lock.Unlock()
}

// gcStalePIDs removes every *.pid file in .tcli/ whose recorded PID does
// not belong to a currently-running process.
func gcStalePIDs(layout Layout) error {
	dotDir := filepath.Join(layout.Root, ".tcli")
	entries, err := os.ReadDir(dotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading %s", dotDir)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pid") {
			continue
		}
		path := filepath.Join(dotDir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
		if err != nil || !processRunning(pid) {
			os.Remove(path)
		}
	}
	return nil
}

func processRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// os.FindProcess always succeeds on POSIX; Signal(0) is the portable
	// liveness probe.
	return proc.Signal(syscallSig0) == nil
}

// Commit resolves direct against the index (via resolve), diffs the
// result against the lockfile's prior graph, and drives the installer to
// reconcile the filesystem, per spec.md §4.4.
func (p *Project) Commit(ctx context.Context, resolve Resolver, direct []core.PackageReference) error {
	_, old, err := ReadLockFile(p.Layout.LockFile)
	if err != nil {
		return err
	}

	newGraph, err := resolve(direct)
	if err != nil {
		return err
	}

	delta := old.GraphDelta(newGraph)

	state, err := OpenStateFile(p.Layout.StateFile)
	if err != nil {
		return err
	}

	// Uninstall proceeds in reverse of delta.Del's order (leaves first in
	// the pre-transition digest, so reversing starts roots before leaves),
	// per spec.md §4.4 step 4.
	if err := p.runConcurrent(ctx, reverse(delta.Del), func(ctx context.Context, ref core.PackageReference) error {
		return p.uninstallOne(ctx, state, ref)
	}); err != nil {
		state.Write(p.Layout.StateFile) //nolint:errcheck // best-effort partial persistence on abort
		return err
	}

	if err := p.runConcurrent(ctx, reverse(delta.Add), func(ctx context.Context, ref core.PackageReference) error {
		deps, _ := newGraph.GetDependencies(ref)
		return p.installOne(ctx, state, ref, deps)
	}); err != nil {
		state.Write(p.Layout.StateFile) //nolint:errcheck
		return err
	}

	if err := state.Write(p.Layout.StateFile); err != nil {
		return err
	}
	return WriteLockFile(p.Layout.LockFile, newGraph)
}

func reverse(refs []core.PackageReference) []core.PackageReference {
	out := make([]core.PackageReference, len(refs))
	for i, r := range refs {
		out[len(refs)-1-i] = r
	}
	return out
}

// runConcurrent fans jobs out across p.Concurrency workers. Every job is
// started and runs to completion, even after another has failed; the
// first error encountered is returned once all have finished, and jobs
// that succeeded keep their statefile mutations, per spec.md §5.
func (p *Project) runConcurrent(ctx context.Context, items []core.PackageReference, job func(context.Context, core.PackageReference) error) error {
	if len(items) == 0 {
		return nil
	}

	limit := p.Concurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, ref := range items {
		ref := ref
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := job(ctx, ref); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = errors.Wrapf(err, "package %s", ref)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func (p *Project) uninstallOne(ctx context.Context, state *StateFile, ref core.PackageReference) error {
	entry, ok := state.Get(ref)
	if !ok {
		return nil
	}

	client, err := p.Installers.For(ref)
	if err != nil {
		return err
	}

	tracked := make([]installer.TrackedFile, 0, len(entry.Staged)+len(entry.Linked))
	for _, s := range entry.Staged {
		tracked = append(tracked, s.Action)
	}
	tracked = append(tracked, entry.Linked...)

	if _, err := client.Uninstall(ctx, installer.PackageUninstallRequest{
		Package:      ref,
		PackageDir:   p.packageDir(ref),
		StateDir:     p.Layout.ProjectState,
		StagingDir:   p.Layout.Staging,
		TrackedFiles: tracked,
	}); err != nil {
		return err
	}

	if err := p.pruneStagedDestinations(entry.Staged); err != nil {
		return err
	}

	if err := pruneEmptyDirs(p.Layout.Staging); err != nil {
		return err
	}
	if err := pruneEmptyDirs(p.Layout.ProjectState); err != nil {
		return err
	}

	state.Delete(ref)
	return nil
}

// pruneStagedDestinations implements spec.md §4.3's uninstall cleanup: a
// staged file whose source has been removed by the installer has its
// previously-synced destinations deleted, but only those whose digest
// still matches what was staged — a destination the user edited by hand
// is left alone.
func (p *Project) pruneStagedDestinations(staged []StagedFile) error {
	for _, s := range staged {
		if _, err := os.Stat(s.Action.Path); err == nil {
			continue
		}
		for _, dest := range s.Dest {
			same, err := s.IsSameAs(dest)
			if err != nil {
				return err
			}
			if same {
				os.Remove(dest)
			}
		}
	}
	return nil
}

// pruneEmptyDirs removes directories under root that are empty,
// processing children before parents so a chain of now-empty ancestors
// collapses in one pass, grounded on golang-dep's use of a walker for
// bulk filesystem traversal (its copy/remove helpers in the vendored
// termie/go-shutil area, generalized here to a godirwalk walk whose
// pre-order directory list is then reversed).
func pruneEmptyDirs(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}

	var dirs []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", root)
	}

	// Deepest paths first, so a parent only attempts removal after all of
	// its descendants have had a chance to.
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	for _, d := range dirs {
		if strings.Count(d, string(filepath.Separator)) <= strings.Count(root, string(filepath.Separator)) {
			continue
		}
		os.Remove(d) // no-op (ENOTEMPTY) if not actually empty
	}
	return nil
}

func (p *Project) installOne(ctx context.Context, state *StateFile, ref core.PackageReference, deps []core.PackageReference) error {
	archive, err := p.Downloader.Fetch(ctx, ref)
	if err != nil {
		return err
	}

	client, err := p.Installers.For(ref)
	if err != nil {
		return err
	}
	if _, err := client.Handshake(ctx); err != nil {
		return err
	}

	pkgDir := p.packageDir(ref)
	if err := extractArchive(archive, pkgDir); err != nil {
		return err
	}

	depRefs := make([]core.PackageReference, len(deps))
	copy(depRefs, deps)

	resp, err := client.Install(ctx, installer.PackageInstallRequest{
		Package:     ref,
		PackageDeps: depRefs,
		PackageDir:  pkgDir,
		StateDir:    p.Layout.ProjectState,
		StagingDir:  p.Layout.Staging,
	})
	if err != nil {
		return err
	}

	entry := StateEntry{}
	for _, tf := range resp.TrackedFiles {
		switch {
		case isUnder(p.Layout.Staging, tf.Path):
			sf, err := NewStagedFile(tf)
			if err != nil {
				return err
			}
			entry.Staged = append(entry.Staged, sf)
		case isUnder(p.Layout.ProjectState, tf.Path):
			entry.Linked = append(entry.Linked, tf)
		}
		// Paths outside both roots are a protocol violation; silently
		// dropped per spec.md §4.3.
	}

	state.Put(ref, entry)
	return nil
}

func (p *Project) packageDir(ref core.PackageReference) string {
	return filepath.Join(p.Layout.Root, ".tcli", "packages", ref.StrictIdent())
}

func isUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Launch loads the active game record, syncs every staged file into the
// game directory, and starts the game, per spec.md §4.4 Launch.
func (p *Project) Launch(ctx context.Context, modsEnabled bool, args []string) (int, error) {
	reg, err := OpenGameRegistry(p.Layout.GameRegistry)
	if err != nil {
		return 0, err
	}
	active, err := reg.ActiveRecord()
	if err != nil {
		return 0, err
	}

	state, err := OpenStateFile(p.Layout.StateFile)
	if err != nil {
		return 0, err
	}

	for ref, entry := range state.State {
		for i := range entry.Staged {
			if err := p.syncStagedFile(&entry.Staged[i], active.GameDir); err != nil {
				return 0, errors.Wrapf(err, "syncing staged file for %s", ref)
			}
		}
		state.State[ref] = entry
	}

	if err := state.Write(p.Layout.StateFile); err != nil {
		return 0, err
	}

	client, err := p.installerForGame(active)
	if err != nil {
		return 0, err
	}

	resp, err := client.StartGame(ctx, installer.StartGameRequest{
		ModsEnabled:  modsEnabled,
		ProjectState: p.Layout.ProjectState,
		GameDir:      active.GameDir,
		GameExe:      active.GameExe,
		Args:         args,
	})
	if err != nil {
		return 0, err
	}

	pidPath := p.Layout.pidPath(active.Identifier)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(resp.PID)), 0o644); err != nil {
		return 0, errors.Wrapf(err, "writing %s", pidPath)
	}

	return resp.PID, nil
}

func (p *Project) syncStagedFile(s *StagedFile, gameDir string) error {
	rel, err := filepath.Rel(p.Layout.Staging, s.Action.Path)
	if err != nil {
		return err
	}
	dest := filepath.Join(gameDir, rel)

	same, err := s.IsSameAs(dest)
	if err != nil {
		return err
	}
	if same {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(dest))
	}
	if err := copyFile(s.Action.Path, dest); err != nil {
		return err
	}

	for _, d := range s.Dest {
		if d == dest {
			return nil
		}
	}
	s.Dest = append(s.Dest, dest)
	return nil
}

func (p *Project) installerForGame(active GameRecord) (*installer.Client, error) {
	return p.Installers.ForGame(active.Identifier)
}
