package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageReferenceIdents(t *testing.T) {
	ref, err := NewPackageReference("bbepis", "BepInExPack", NewVersion(5, 4, 2113))
	require.NoError(t, err)

	assert.Equal(t, "bbepis-BepInExPack-5.4.2113", ref.StrictIdent())
	assert.Equal(t, "bbepis-BepInExPack", ref.LooseIdent())
}

func TestNewPackageReferenceRejectsHyphens(t *testing.T) {
	_, err := NewPackageReference("bad-ns", "name", NewVersion(1, 0, 0))
	assert.Error(t, err)

	_, err = NewPackageReference("ns", "bad-name", NewVersion(1, 0, 0))
	assert.Error(t, err)
}

func TestParsePackageReference(t *testing.T) {
	ref, err := ParsePackageReference("RiskofThunder-BepInEx_GUI-3.0.1")
	require.NoError(t, err)
	assert.Equal(t, "RiskofThunder", ref.Namespace)
	assert.Equal(t, "BepInEx_GUI", ref.Name)
	assert.Equal(t, NewVersion(3, 0, 1), ref.Version)
}
