package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"meritbot/database"
	"meritbot/domain/entities"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// PostgresSnapshotStore persists the guild-state document as append-only
// JSONB rows. Load reads the newest row; old snapshots are kept for manual
// recovery (no compaction).
type PostgresSnapshotStore struct {
	db *database.DB
}

// NewPostgresSnapshotStore creates a store on an existing connection pool.
func NewPostgresSnapshotStore(db *database.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// Load reads the most recent snapshot. An empty table yields empty state.
func (s *PostgresSnapshotStore) Load(ctx context.Context) (entities.GuildState, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM guild_snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Info("No snapshot rows found, starting with empty state")
		return make(entities.GuildState), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var state entities.GuildState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	state.EnsureDefaults()
	return state, nil
}

// Save appends a new snapshot row.
func (s *PostgresSnapshotStore) Save(ctx context.Context, state entities.GuildState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO guild_snapshots (data) VALUES ($1)`, data,
	); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	log.WithFields(log.Fields{
		"guilds": len(state),
		"bytes":  len(data),
	}).Debug("Snapshot saved to database")
	return nil
}
