package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/footy-edge/internal/models"
)

// MemoryStore is an in-process Store used by tests and as a fallback when no
// database is configured. Concurrent writers are safe; last writer wins.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[uuid.UUID][]models.SourceRecord // keyed by fixture
	results  map[uuid.UUID]models.MatchResult
	samples  map[uuid.UUID][]models.ResolvedSample // keyed by model
	fixtures []models.Fixture
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID][]models.SourceRecord),
		results: make(map[uuid.UUID]models.MatchResult),
		samples: make(map[uuid.UUID][]models.ResolvedSample),
	}
}

// Ping implements Store
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// WriteRecord persists a single source record
func (s *MemoryStore) WriteRecord(ctx context.Context, rec *models.SourceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.FixtureID] = append(s.records[rec.FixtureID], *rec)
	return nil
}

// WriteRecords persists a batch of source records
func (s *MemoryStore) WriteRecords(ctx context.Context, recs []models.SourceRecord) error {
	for i := range recs {
		if err := s.WriteRecord(ctx, &recs[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadLatest returns the most recent record for a source and fixture
func (s *MemoryStore) ReadLatest(ctx context.Context, source models.SourceKind, fixtureID uuid.UUID) (*models.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.SourceRecord
	for i := range s.records[fixtureID] {
		rec := &s.records[fixtureID][i]
		if rec.Source != source {
			continue
		}
		if latest == nil || rec.CapturedAt.After(latest.CapturedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}

	out := *latest
	return &out, nil
}

// ReadAllLatest returns the most recent record per source for a fixture
func (s *MemoryStore) ReadAllLatest(ctx context.Context, fixtureID uuid.UUID) (map[models.SourceKind]*models.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[models.SourceKind]*models.SourceRecord)
	for i := range s.records[fixtureID] {
		rec := s.records[fixtureID][i]
		cur, ok := result[rec.Source]
		if !ok || rec.CapturedAt.After(cur.CapturedAt) {
			copied := rec
			result[rec.Source] = &copied
		}
	}
	return result, nil
}

// HasRecordSince reports whether a record exists inside the dedup window
func (s *MemoryStore) HasRecordSince(ctx context.Context, source models.SourceKind, fixtureID uuid.UUID, since time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records[fixtureID] {
		if rec.Source == source && !rec.CapturedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// WriteResult persists the final outcome of a fixture
func (s *MemoryStore) WriteResult(ctx context.Context, result *models.MatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.FixtureID] = *result
	return nil
}

// AppendSample appends a resolved prediction sample for a model
func (s *MemoryStore) AppendSample(ctx context.Context, sample *models.ResolvedSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[sample.ModelID] = append(s.samples[sample.ModelID], *sample)
	return nil
}

// ResolvedSamples returns up to limit newest samples for a model, oldest first
func (s *MemoryStore) ResolvedSamples(ctx context.Context, modelID uuid.UUID, limit int) ([]models.ResolvedSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.ResolvedSample, len(s.samples[modelID]))
	copy(all, s.samples[modelID])
	sort.Slice(all, func(i, j int) bool { return all[i].ResolvedAt.Before(all[j].ResolvedAt) })

	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// UpsertFixture creates the fixture if absent
func (s *MemoryStore) UpsertFixture(ctx context.Context, fixture *models.Fixture) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.fixtures {
		if f.HomeTeam == fixture.HomeTeam && f.AwayTeam == fixture.AwayTeam &&
			f.League == fixture.League && f.Kickoff.Equal(fixture.Kickoff) {
			return nil
		}
	}
	s.fixtures = append(s.fixtures, *fixture)
	return nil
}

// FindFixture locates a fixture by teams and league
func (s *MemoryStore) FindFixture(ctx context.Context, homeTeam, awayTeam, league string) (*models.Fixture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Fixture
	for i := range s.fixtures {
		f := &s.fixtures[i]
		if f.HomeTeam == homeTeam && f.AwayTeam == awayTeam && f.League == league {
			if found == nil || f.Kickoff.After(found.Kickoff) {
				found = f
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}

	out := *found
	return &out, nil
}
