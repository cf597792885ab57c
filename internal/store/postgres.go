package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/models"
)

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new store backed by PostgreSQL
func NewPostgresStore(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Ping verifies database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// WriteRecord persists a single source record
func (s *PostgresStore) WriteRecord(ctx context.Context, rec *models.SourceRecord) error {
	payload, err := models.EncodePayload(rec.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	query := `
		INSERT INTO source_records (id, source, fixture_id, captured_at, staleness_window_seconds, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		rec.ID, rec.Source, rec.FixtureID, rec.CapturedAt,
		int(rec.StalenessWindow.Seconds()), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert source record: %w", err)
	}

	return nil
}

// WriteRecords persists a batch of source records using COPY
func (s *PostgresStore) WriteRecords(ctx context.Context, recs []models.SourceRecord) error {
	if len(recs) == 0 {
		return nil
	}

	columns := []string{"id", "source", "fixture_id", "captured_at", "staleness_window_seconds", "payload"}

	rows := make([][]interface{}, len(recs))
	for i, rec := range recs {
		payload, err := models.EncodePayload(rec.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload for record %s: %w", rec.ID, err)
		}
		rows[i] = []interface{}{
			rec.ID, rec.Source, rec.FixtureID, rec.CapturedAt,
			int(rec.StalenessWindow.Seconds()), payload,
		}
	}

	count, err := s.pool.CopyFrom(ctx, pgx.Identifier{"source_records"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to batch insert source records: %w", err)
	}

	if count != int64(len(recs)) {
		return fmt.Errorf("inserted %d rows, expected %d", count, len(recs))
	}

	return nil
}

// ReadLatest returns the most recent record for a source and fixture
func (s *PostgresStore) ReadLatest(ctx context.Context, source models.SourceKind, fixtureID uuid.UUID) (*models.SourceRecord, error) {
	query := `
		SELECT id, source, fixture_id, captured_at, staleness_window_seconds, payload
		FROM source_records
		WHERE source = $1 AND fixture_id = $2
		ORDER BY captured_at DESC
		LIMIT 1
	`

	rec, err := s.scanRecord(s.pool.QueryRow(ctx, query, source, fixtureID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query latest record: %w", err)
	}

	return rec, nil
}

// ReadAllLatest returns the most recent record per source for a fixture
func (s *PostgresStore) ReadAllLatest(ctx context.Context, fixtureID uuid.UUID) (map[models.SourceKind]*models.SourceRecord, error) {
	query := `
		SELECT DISTINCT ON (source) id, source, fixture_id, captured_at, staleness_window_seconds, payload
		FROM source_records
		WHERE fixture_id = $1
		ORDER BY source, captured_at DESC
	`

	rows, err := s.pool.Query(ctx, query, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest records: %w", err)
	}
	defer rows.Close()

	result := make(map[models.SourceKind]*models.SourceRecord)
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result[rec.Source] = rec
	}

	return result, rows.Err()
}

// HasRecordSince reports whether a record exists inside the dedup window
func (s *PostgresStore) HasRecordSince(ctx context.Context, source models.SourceKind, fixtureID uuid.UUID, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM source_records
			WHERE source = $1 AND fixture_id = $2 AND captured_at >= $3
		)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, source, fixtureID, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check dedup window: %w", err)
	}

	return exists, nil
}

// WriteResult persists the final outcome of a fixture
func (s *PostgresStore) WriteResult(ctx context.Context, result *models.MatchResult) error {
	query := `
		INSERT INTO match_results (fixture_id, outcome, home_goals, away_goals, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fixture_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			home_goals = EXCLUDED.home_goals,
			away_goals = EXCLUDED.away_goals,
			resolved_at = EXCLUDED.resolved_at
	`

	_, err := s.pool.Exec(ctx, query,
		result.FixtureID, int(result.Outcome), result.HomeGoals, result.AwayGoals, result.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match result: %w", err)
	}

	return nil
}

// AppendSample appends a resolved prediction sample for a model
func (s *PostgresStore) AppendSample(ctx context.Context, sample *models.ResolvedSample) error {
	predicted, err := json.Marshal(sample.Predicted)
	if err != nil {
		return fmt.Errorf("failed to encode predicted triple: %w", err)
	}

	query := `
		INSERT INTO resolved_samples (model_id, fixture_id, predicted, observed, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.pool.Exec(ctx, query,
		sample.ModelID, sample.FixtureID, predicted, int(sample.Observed), sample.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append resolved sample: %w", err)
	}

	return nil
}

// ResolvedSamples returns up to limit newest samples for a model, oldest first
func (s *PostgresStore) ResolvedSamples(ctx context.Context, modelID uuid.UUID, limit int) ([]models.ResolvedSample, error) {
	query := `
		SELECT model_id, fixture_id, predicted, observed, resolved_at FROM (
			SELECT model_id, fixture_id, predicted, observed, resolved_at
			FROM resolved_samples
			WHERE model_id = $1
			ORDER BY resolved_at DESC
			LIMIT $2
		) newest
		ORDER BY resolved_at ASC
	`

	rows, err := s.pool.Query(ctx, query, modelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved samples: %w", err)
	}
	defer rows.Close()

	var samples []models.ResolvedSample
	for rows.Next() {
		var (
			sample    models.ResolvedSample
			predicted []byte
			observed  int
		)
		if err := rows.Scan(&sample.ModelID, &sample.FixtureID, &predicted, &observed, &sample.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolved sample: %w", err)
		}
		if err := json.Unmarshal(predicted, &sample.Predicted); err != nil {
			return nil, fmt.Errorf("failed to decode predicted triple: %w", err)
		}
		sample.Observed = models.Outcome(observed)
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// UpsertFixture creates the fixture if absent
func (s *PostgresStore) UpsertFixture(ctx context.Context, fixture *models.Fixture) error {
	query := `
		INSERT INTO fixtures (id, home_team, away_team, league, kickoff)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (home_team, away_team, league, kickoff) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		fixture.ID, fixture.HomeTeam, fixture.AwayTeam, fixture.League, fixture.Kickoff,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fixture: %w", err)
	}

	return nil
}

// FindFixture locates a fixture by teams and league
func (s *PostgresStore) FindFixture(ctx context.Context, homeTeam, awayTeam, league string) (*models.Fixture, error) {
	query := `
		SELECT id, home_team, away_team, league, kickoff
		FROM fixtures
		WHERE home_team = $1 AND away_team = $2 AND league = $3
		ORDER BY kickoff DESC
		LIMIT 1
	`

	fixture := &models.Fixture{}
	err := s.pool.QueryRow(ctx, query, homeTeam, awayTeam, league).Scan(
		&fixture.ID, &fixture.HomeTeam, &fixture.AwayTeam, &fixture.League, &fixture.Kickoff,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query fixture: %w", err)
	}

	return fixture, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for record scanning
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanRecord(row rowScanner) (*models.SourceRecord, error) {
	var (
		rec              models.SourceRecord
		stalenessSeconds int
		payload          []byte
	)
	if err := row.Scan(&rec.ID, &rec.Source, &rec.FixtureID, &rec.CapturedAt, &stalenessSeconds, &payload); err != nil {
		return nil, err
	}

	rec.StalenessWindow = time.Duration(stalenessSeconds) * time.Second

	decoded, err := models.DecodePayload(rec.Source, payload)
	if err != nil {
		return nil, err
	}
	rec.Payload = decoded

	return &rec, nil
}
