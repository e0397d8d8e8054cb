package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"meritbot/domain/entities"

	log "github.com/sirupsen/logrus"
)

// FileSnapshotStore persists the guild-state document as a single JSON file.
// Writes go through a temp file and rename so a crash mid-save never leaves
// a truncated snapshot behind.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a store writing to path.
func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Load reads the latest snapshot. A missing file yields empty state, not an
// error: first boot starts from nothing.
func (s *FileSnapshotStore) Load(ctx context.Context) (entities.GuildState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", s.path).Info("No snapshot found, starting with empty state")
		return make(entities.GuildState), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var state entities.GuildState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	state.EnsureDefaults()
	return state, nil
}

// Save writes the full state document.
func (s *FileSnapshotStore) Save(ctx context.Context, state entities.GuildState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	log.WithFields(log.Fields{
		"path":   s.path,
		"guilds": len(state),
		"bytes":  len(data),
	}).Debug("Snapshot saved")
	return nil
}
