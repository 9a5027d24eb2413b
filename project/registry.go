package project

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// GameRecord is a discovered game installation. The detectors that probe
// OS registries and launcher manifests to populate this are out of
// scope per spec.md §1; this type and its accessors only consume
// already-resolved records.
type GameRecord struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	GameDir     string `json:"game_dir"`
	GameExe     string `json:"game_exe"`
	Active      bool   `json:"active"`
}

// GameRegistry is the on-disk record of discovered games, per spec.md §3
// (.tcli/game_registry.json).
type GameRegistry struct {
	Games []GameRecord `json:"games"`
}

// OpenGameRegistry reads the registry at path, returning an empty
// registry if it does not yet exist.
func OpenGameRegistry(path string) (*GameRegistry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GameRegistry{}, nil
		}
		return nil, errors.Wrapf(err, "reading game registry %s", path)
	}
	if len(b) == 0 {
		return &GameRegistry{}, nil
	}
	var reg GameRegistry
	if err := json.Unmarshal(b, &reg); err != nil {
		return nil, errors.Wrapf(err, "decoding game registry %s", path)
	}
	return &reg, nil
}

// Write persists the registry as pretty-printed JSON.
func (r *GameRegistry) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Put inserts or replaces the record for record.Identifier.
func (r *GameRegistry) Put(record GameRecord) {
	for i, g := range r.Games {
		if g.Identifier == record.Identifier {
			r.Games[i] = record
			return
		}
	}
	r.Games = append(r.Games, record)
}

// ErrNoActiveGame is returned by ActiveRecord when no record is flagged
// active.
var ErrNoActiveGame = errors.New("no active game record in registry")

// ActiveRecord returns the first game record flagged active, per
// spec.md §4.4 Launch's "Load the active game record from the registry".
func (r *GameRegistry) ActiveRecord() (GameRecord, error) {
	for _, g := range r.Games {
		if g.Active {
			return g, nil
		}
	}
	return GameRecord{}, ErrNoActiveGame
}
