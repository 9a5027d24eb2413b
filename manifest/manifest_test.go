package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunderstore-io/tcli-go/core"
)

const sample = `
[package]
namespace = "my-profile"
name = "main"

dependencies = [
  "bbepis-BepInExPack-5.4.2113",
  "RiskofThunder-BepInEx_GUI-3.0.1",
]
`

func TestReadParsesDependencies(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	m, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, m.Dependencies, 2)

	refs, err := m.PackageReferences()
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "bbepis-BepInExPack", refs[0].LooseIdent())
	assert.Equal(t, "RiskofThunder-BepInEx_GUI", refs[1].LooseIdent())
}

func TestWriteRoundTrip(t *testing.T) {
	m := &Manifest{Dependencies: []string{"bbepis-BepInExPack-5.4.2113"}}
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, m.Write(path))

	reread, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, m.Dependencies, reread.Dependencies)
}

func TestAddPackagesUpgradesInPlace(t *testing.T) {
	m := &Manifest{Dependencies: []string{"bbepis-BepInExPack-5.4.2112"}}

	upgraded, err := core.NewPackageReference("bbepis", "BepInExPack", core.NewVersion(5, 4, 2113))
	require.NoError(t, err)

	require.NoError(t, m.AddPackages([]core.PackageReference{upgraded}))
	assert.Equal(t, []string{"bbepis-BepInExPack-5.4.2113"}, m.Dependencies)
}

func TestAddPackagesIgnoresLowerVersion(t *testing.T) {
	m := &Manifest{Dependencies: []string{"bbepis-BepInExPack-5.4.2113"}}

	lower, err := core.NewPackageReference("bbepis", "BepInExPack", core.NewVersion(5, 4, 2112))
	require.NoError(t, err)

	require.NoError(t, m.AddPackages([]core.PackageReference{lower}))
	assert.Equal(t, []string{"bbepis-BepInExPack-5.4.2113"}, m.Dependencies)
}

func TestAddPackagesAppendsNew(t *testing.T) {
	m := &Manifest{}
	ref, err := core.NewPackageReference("RiskofThunder", "BepInEx_GUI", core.NewVersion(3, 0, 1))
	require.NoError(t, err)

	require.NoError(t, m.AddPackages([]core.PackageReference{ref}))
	assert.Equal(t, []string{"RiskofThunder-BepInEx_GUI-3.0.1"}, m.Dependencies)
}

func TestRemovePackages(t *testing.T) {
	m := &Manifest{Dependencies: []string{
		"bbepis-BepInExPack-5.4.2113",
		"RiskofThunder-BepInEx_GUI-3.0.1",
	}}

	ref, err := core.NewPackageReference("bbepis", "BepInExPack", core.NewVersion(1, 0, 0))
	require.NoError(t, err)

	require.NoError(t, m.RemovePackages([]core.PackageReference{ref}))
	assert.Equal(t, []string{"RiskofThunder-BepInEx_GUI-3.0.1"}, m.Dependencies)
}
