package installer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir string, matrix []Target) {
	t.Helper()
	b, err := json.Marshal(Manifest{InstallerVersion: 1, Matrix: matrix})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), b, 0o644))
}

func TestSelectExecutableMatchesHost(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, []Target{
		{OS: "plan9", Arch: "amd64", Executable: "installer-plan9"},
		{OS: runtime.GOOS, Arch: runtime.GOARCH, Executable: "installer-bin"},
	})

	exe, err := SelectExecutable(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "installer-bin"), exe)
}

func TestSelectExecutableNoManifest(t *testing.T) {
	dir := t.TempDir()
	_, err := SelectExecutable(dir)
	assert.ErrorIs(t, err, ErrNoManifest)
}

func TestSelectExecutableNoMatchForHost(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, []Target{
		{OS: "plan9", Arch: "amd64", Executable: "installer-plan9"},
	})

	_, err := SelectExecutable(dir)
	assert.ErrorIs(t, err, ErrNoExecutableForHost)
}
