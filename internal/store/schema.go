package store

import (
	"context"
	"fmt"
)

// schemaStatements creates the tables the pipeline persists to. Statements
// are idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS fixtures (
		id UUID PRIMARY KEY,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		league TEXT NOT NULL,
		kickoff TIMESTAMPTZ NOT NULL,
		UNIQUE (home_team, away_team, league, kickoff)
	)`,
	`CREATE TABLE IF NOT EXISTS source_records (
		id UUID PRIMARY KEY,
		source TEXT NOT NULL,
		fixture_id UUID NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL,
		staleness_window_seconds INT NOT NULL,
		payload JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_source_records_lookup
		ON source_records (source, fixture_id, captured_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_source_records_fixture
		ON source_records (fixture_id, captured_at DESC)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		fixture_id UUID PRIMARY KEY,
		outcome SMALLINT NOT NULL,
		home_goals INT NOT NULL,
		away_goals INT NOT NULL,
		resolved_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resolved_samples (
		model_id UUID NOT NULL,
		fixture_id UUID NOT NULL,
		predicted JSONB NOT NULL,
		observed SMALLINT NOT NULL,
		resolved_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resolved_samples_model
		ON resolved_samples (model_id, resolved_at DESC)`,
}

// EnsureSchema creates any missing tables and indexes
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
