package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunderstore-io/tcli-go/core"
	"github.com/thunderstore-io/tcli-go/installer"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNewStagedFileDigests(t *testing.T) {
	path := writeTemp(t, "hello")
	sf, err := NewStagedFile(installer.TrackedFile{Action: installer.ActionCreate, Path: path})
	require.NoError(t, err)
	assert.NotEmpty(t, sf.MD5)
	assert.Equal(t, path, sf.Action.Path)
}

func TestIsSameAsDetectsModification(t *testing.T) {
	path := writeTemp(t, "hello")
	sf, err := NewStagedFile(installer.TrackedFile{Action: installer.ActionCreate, Path: path})
	require.NoError(t, err)

	same, err := sf.IsSameAs(path)
	require.NoError(t, err)
	assert.True(t, same)

	require.NoError(t, os.WriteFile(path, []byte("modified"), 0o644))
	same, err = sf.IsSameAs(path)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestIsSameAsMissingFile(t *testing.T) {
	path := writeTemp(t, "hello")
	sf, err := NewStagedFile(installer.TrackedFile{Action: installer.ActionCreate, Path: path})
	require.NoError(t, err)

	same, err := sf.IsSameAs(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.False(t, same)
}

func TestStateFilePutGetDelete(t *testing.T) {
	sf := NewStateFile()
	ref, err := core.NewPackageReference("bbepis", "BepInExPack", core.NewVersion(5, 4, 2113))
	require.NoError(t, err)

	sf.Put(ref, StateEntry{Linked: []installer.TrackedFile{{Action: installer.ActionCreate, Path: "config.cfg"}}})
	entry, ok := sf.Get(ref)
	require.True(t, ok)
	assert.Len(t, entry.Linked, 1)

	sf.Delete(ref)
	_, ok = sf.Get(ref)
	assert.False(t, ok)
}

func TestStateFileRoundTrip(t *testing.T) {
	sf := NewStateFile()
	ref, err := core.NewPackageReference("bbepis", "BepInExPack", core.NewVersion(5, 4, 2113))
	require.NoError(t, err)
	sf.Put(ref, StateEntry{Linked: []installer.TrackedFile{{Action: installer.ActionCreate, Path: "config.cfg"}}})

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	require.NoError(t, sf.Write(path))

	reread, err := OpenStateFile(path)
	require.NoError(t, err)
	entry, ok := reread.Get(ref)
	require.True(t, ok)
	assert.Equal(t, "config.cfg", entry.Linked[0].Path)
}

func TestOpenStateFileMissing(t *testing.T) {
	sf, err := OpenStateFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, sf.State)
}
