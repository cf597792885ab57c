// Package store provides persistence for source records, outcomes and
// calibration samples.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/footy-edge/internal/models"
)

// Store errors
var (
	// ErrNotFound is returned when no record matches
	ErrNotFound = errors.New("record not found")
)

// RecordStore persists normalized source records. Writers may be concurrent;
// last-writer-wins per dedup key is acceptable.
type RecordStore interface {
	// WriteRecord persists a source record
	WriteRecord(ctx context.Context, rec *models.SourceRecord) error

	// WriteRecords persists a batch of source records
	WriteRecords(ctx context.Context, recs []models.SourceRecord) error

	// ReadLatest returns the most recent record for a source and fixture
	ReadLatest(ctx context.Context, source models.SourceKind, fixtureID uuid.UUID) (*models.SourceRecord, error)

	// ReadAllLatest returns the most recent record per source for a fixture
	ReadAllLatest(ctx context.Context, fixtureID uuid.UUID) (map[models.SourceKind]*models.SourceRecord, error)

	// HasRecordSince reports whether a record with the same source and
	// fixture was already persisted within the dedup window
	HasRecordSince(ctx context.Context, source models.SourceKind, fixtureID uuid.UUID, since time.Time) (bool, error)
}

// OutcomeStore persists resolved outcomes and calibration samples
type OutcomeStore interface {
	// WriteResult persists the final outcome of a fixture
	WriteResult(ctx context.Context, result *models.MatchResult) error

	// AppendSample appends a resolved prediction sample for a model
	AppendSample(ctx context.Context, sample *models.ResolvedSample) error

	// ResolvedSamples returns up to limit newest samples for a model,
	// oldest first
	ResolvedSamples(ctx context.Context, modelID uuid.UUID, limit int) ([]models.ResolvedSample, error)
}

// FixtureStore resolves and persists fixtures
type FixtureStore interface {
	// UpsertFixture creates the fixture if absent and returns its ID
	UpsertFixture(ctx context.Context, fixture *models.Fixture) error

	// FindFixture locates a fixture by teams and league
	FindFixture(ctx context.Context, homeTeam, awayTeam, league string) (*models.Fixture, error)
}

// Store aggregates all persistence capabilities
type Store interface {
	RecordStore
	OutcomeStore
	FixtureStore

	// Ping verifies connectivity, for readiness checks
	Ping(ctx context.Context) error
}
