package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/footy-edge/internal/models"
)

func ratingsRecord(fixtureID uuid.UUID, capturedAt time.Time, homeRating float64) models.SourceRecord {
	return models.SourceRecord{
		ID:              uuid.New(),
		Source:          models.SourceRatings,
		FixtureID:       fixtureID,
		CapturedAt:      capturedAt,
		StalenessWindow: time.Hour,
		Payload:         models.RatingsPayload{HomeRating: homeRating, AwayRating: 1700},
	}
}

func TestMemoryStoreReadLatest(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	fixtureID := uuid.New()
	now := time.Now()

	older := ratingsRecord(fixtureID, now.Add(-time.Hour), 1800)
	newer := ratingsRecord(fixtureID, now, 1850)

	// Write newest first to prove ordering comes from CapturedAt, not insertion
	require.NoError(t, st.WriteRecord(ctx, &newer))
	require.NoError(t, st.WriteRecord(ctx, &older))

	got, err := st.ReadLatest(ctx, models.SourceRatings, fixtureID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	_, err = st.ReadLatest(ctx, models.SourceXG, fixtureID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.ReadLatest(ctx, models.SourceRatings, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreReadAllLatest(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	fixtureID := uuid.New()
	now := time.Now()

	stale := ratingsRecord(fixtureID, now.Add(-time.Hour), 1800)
	fresh := ratingsRecord(fixtureID, now, 1850)
	xg := models.SourceRecord{
		ID:         uuid.New(),
		Source:     models.SourceXG,
		FixtureID:  fixtureID,
		CapturedAt: now,
		Payload:    models.XGPayload{HomeXGFor: 9.0, MatchesSampled: 6},
	}
	require.NoError(t, st.WriteRecords(ctx, []models.SourceRecord{stale, fresh, xg}))

	latest, err := st.ReadAllLatest(ctx, fixtureID)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, fresh.ID, latest[models.SourceRatings].ID)
	assert.Equal(t, xg.ID, latest[models.SourceXG].ID)

	empty, err := st.ReadAllLatest(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreHasRecordSince(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	fixtureID := uuid.New()
	now := time.Now()

	rec := ratingsRecord(fixtureID, now.Add(-30*time.Second), 1800)
	require.NoError(t, st.WriteRecord(ctx, &rec))

	ok, err := st.HasRecordSince(ctx, models.SourceRatings, fixtureID, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.HasRecordSince(ctx, models.SourceRatings, fixtureID, now.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "record older than the window does not count")

	ok, err = st.HasRecordSince(ctx, models.SourceXG, fixtureID, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreResolvedSamples(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	modelID := uuid.New()
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, st.AppendSample(ctx, &models.ResolvedSample{
			ModelID:    modelID,
			FixtureID:  uuid.New(),
			Predicted:  models.ProbabilityTriple{0.48, 0.27, 0.25},
			Observed:   models.OutcomeHome,
			ResolvedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Limit keeps the newest samples, returned oldest first
	samples, err := st.ResolvedSamples(ctx, modelID, 3)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, now.Add(2*time.Minute).Unix(), samples[0].ResolvedAt.Unix())
	assert.Equal(t, now.Add(4*time.Minute).Unix(), samples[2].ResolvedAt.Unix())

	all, err := st.ResolvedSamples(ctx, modelID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := st.ResolvedSamples(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreFixtures(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	first := models.Fixture{
		ID: uuid.New(), HomeTeam: "Harton Rovers", AwayTeam: "Dunmore City",
		League: "premier", Kickoff: now.Add(-30 * 24 * time.Hour),
	}
	rematch := models.Fixture{
		ID: uuid.New(), HomeTeam: "Harton Rovers", AwayTeam: "Dunmore City",
		League: "premier", Kickoff: now.Add(2 * time.Hour),
	}
	require.NoError(t, st.UpsertFixture(ctx, &first))
	require.NoError(t, st.UpsertFixture(ctx, &rematch))

	// Same pairing twice: the newest kickoff wins the lookup
	got, err := st.FindFixture(ctx, "Harton Rovers", "Dunmore City", "premier")
	require.NoError(t, err)
	assert.Equal(t, rematch.ID, got.ID)

	// Re-upserting an existing fixture is a no-op
	dup := rematch
	dup.ID = uuid.New()
	require.NoError(t, st.UpsertFixture(ctx, &dup))
	got, err = st.FindFixture(ctx, "Harton Rovers", "Dunmore City", "premier")
	require.NoError(t, err)
	assert.Equal(t, rematch.ID, got.ID)

	_, err = st.FindFixture(ctx, "Harton Rovers", "Dunmore City", "championship")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreWriteResult(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.WriteResult(ctx, &models.MatchResult{
		FixtureID:  uuid.New(),
		Outcome:    models.OutcomeDraw,
		HomeGoals:  1,
		AwayGoals:  1,
		ResolvedAt: time.Now(),
	}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := st.WriteResult(cancelled, &models.MatchResult{FixtureID: uuid.New()})
	assert.ErrorIs(t, err, context.Canceled)
}
