package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenGameRegistryMissing(t *testing.T) {
	reg, err := OpenGameRegistry(filepath.Join(t.TempDir(), "game_registry.json"))
	require.NoError(t, err)
	assert.Empty(t, reg.Games)

	_, err = reg.ActiveRecord()
	assert.ErrorIs(t, err, ErrNoActiveGame)
}

func TestGameRegistryPutAndWrite(t *testing.T) {
	reg := &GameRegistry{}
	reg.Put(GameRecord{Identifier: "riskofrain2", DisplayName: "Risk of Rain 2", Active: true})
	reg.Put(GameRecord{Identifier: "riskofrain2", DisplayName: "Risk of Rain 2 (Updated)", Active: true})

	require.Len(t, reg.Games, 1)
	assert.Equal(t, "Risk of Rain 2 (Updated)", reg.Games[0].DisplayName)

	path := filepath.Join(t.TempDir(), "nested", "game_registry.json")
	require.NoError(t, reg.Write(path))

	reread, err := OpenGameRegistry(path)
	require.NoError(t, err)
	active, err := reread.ActiveRecord()
	require.NoError(t, err)
	assert.Equal(t, "riskofrain2", active.Identifier)
}
