package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/connector"
	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/store"
)

// fakeConnector serves canned records or errors on each poll
type fakeConnector struct {
	mu      sync.Mutex
	kind    models.SourceKind
	cadence time.Duration
	records []models.SourceRecord
	err     error
	polls   int
	lastSel connector.FixtureSelector
}

func (f *fakeConnector) Poll(ctx context.Context, sel connector.FixtureSelector) ([]models.SourceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	f.lastSel = sel
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeConnector) Health() connector.Health {
	return connector.Health{Status: connector.StatusHealthy, LastSuccessAt: time.Now()}
}

func (f *fakeConnector) Kind() models.SourceKind        { return f.kind }
func (f *fakeConnector) Cadence() time.Duration         { return f.cadence }
func (f *fakeConnector) StalenessWindow() time.Duration { return time.Hour }

func (f *fakeConnector) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func testIngestionConfig() *config.IngestionConfig {
	return &config.IngestionConfig{
		DedupWindowSeconds:    60,
		MaxRetries:            3,
		BackoffInitialSeconds: 1,
		BackoffMaxSeconds:     8,
		DegradedAfterFailures: 3,
	}
}

func testOrchestrator(connectors ...connector.Connector) (*Orchestrator, *store.MemoryStore) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	st := store.NewMemoryStore()
	return New(testIngestionConfig(), connectors, st, logger), st
}

func ratingsRecord(fixtureID uuid.UUID, capturedAt time.Time) models.SourceRecord {
	return models.SourceRecord{
		ID:              uuid.New(),
		Source:          models.SourceRatings,
		FixtureID:       fixtureID,
		CapturedAt:      capturedAt,
		StalenessWindow: time.Hour,
		Payload:         models.RatingsPayload{HomeRating: 1800, AwayRating: 1700},
	}
}

func TestPollOncePersistsRecords(t *testing.T) {
	fixtureID := uuid.New()
	fake := &fakeConnector{
		kind:    models.SourceRatings,
		cadence: time.Minute,
		records: []models.SourceRecord{ratingsRecord(fixtureID, time.Now())},
	}
	orch, st := testOrchestrator(fake)

	err := orch.Sync(context.Background(), models.SourceRatings, DefaultSelector(time.Now()))
	require.NoError(t, err)

	rec, err := st.ReadLatest(context.Background(), models.SourceRatings, fixtureID)
	require.NoError(t, err)
	assert.Equal(t, models.SourceRatings, rec.Source)

	snap := orch.Stats()[models.SourceRatings]
	assert.Equal(t, 1, snap.Calls)
	assert.Equal(t, 1, snap.Persisted)
	assert.Zero(t, snap.Deduped)
}

func TestPollOnceDedupesWithinWindow(t *testing.T) {
	fixtureID := uuid.New()
	now := time.Now()
	fake := &fakeConnector{
		kind:    models.SourceRatings,
		cadence: time.Minute,
		records: []models.SourceRecord{ratingsRecord(fixtureID, now)},
	}
	orch, _ := testOrchestrator(fake)

	require.NoError(t, orch.Sync(context.Background(), models.SourceRatings, DefaultSelector(now)))

	// Second capture inside the 60s dedup window is dropped
	fake.records = []models.SourceRecord{ratingsRecord(fixtureID, now.Add(10*time.Second))}
	require.NoError(t, orch.Sync(context.Background(), models.SourceRatings, DefaultSelector(now)))

	snap := orch.Stats()[models.SourceRatings]
	assert.Equal(t, 1, snap.Persisted)
	assert.Equal(t, 1, snap.Deduped)

	// A capture past the window persists
	fake.records = []models.SourceRecord{ratingsRecord(fixtureID, now.Add(2*time.Minute))}
	require.NoError(t, orch.Sync(context.Background(), models.SourceRatings, DefaultSelector(now)))

	snap = orch.Stats()[models.SourceRatings]
	assert.Equal(t, 2, snap.Persisted)
}

func TestPollOnceRecordsErrors(t *testing.T) {
	fake := &fakeConnector{
		kind:    models.SourceXG,
		cadence: time.Minute,
		err:     connector.NewConnectorError(models.SourceXG, connector.ErrCodeServerError, "upstream 503", nil),
	}
	orch, _ := testOrchestrator(fake)

	err := orch.Sync(context.Background(), models.SourceXG, DefaultSelector(time.Now()))
	require.Error(t, err)

	snap := orch.Stats()[models.SourceXG]
	assert.Equal(t, 1, snap.Calls)
	assert.Equal(t, 1, snap.Errors)
	assert.Zero(t, snap.SuccessRate)
}

func TestSyncUnknownKind(t *testing.T) {
	orch, _ := testOrchestrator()
	err := orch.Sync(context.Background(), models.SourceXG, DefaultSelector(time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no connector registered")
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	orch, _ := testOrchestrator()

	b := orch.nextBackoff(0)
	assert.Equal(t, time.Second, b)

	b = orch.nextBackoff(b)
	assert.Equal(t, 2*time.Second, b)

	b = orch.nextBackoff(b)
	assert.Equal(t, 4*time.Second, b)

	b = orch.nextBackoff(b)
	assert.Equal(t, 8*time.Second, b)

	// Capped at the configured maximum
	b = orch.nextBackoff(b)
	assert.Equal(t, 8*time.Second, b)
}

func TestStartPollsOnCadence(t *testing.T) {
	fake := &fakeConnector{kind: models.SourceStandings, cadence: 10 * time.Millisecond}
	orch, _ := testOrchestrator(fake)

	require.NoError(t, orch.Start(context.Background()))
	defer orch.Stop()

	require.Eventually(t, func() bool {
		return fake.pollCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStopDrainsLoops(t *testing.T) {
	fake := &fakeConnector{kind: models.SourceStandings, cadence: 5 * time.Millisecond}
	orch, _ := testOrchestrator(fake)

	require.NoError(t, orch.Start(context.Background()))
	require.Eventually(t, func() bool { return fake.pollCount() > 0 }, time.Second, time.Millisecond)

	orch.Stop()
	after := fake.pollCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, fake.pollCount(), "no polls after Stop returns")

	// Stop is idempotent
	orch.Stop()
}

func TestFailingConnectorDoesNotBlockOthers(t *testing.T) {
	broken := &fakeConnector{
		kind:    models.SourceXG,
		cadence: 5 * time.Millisecond,
		err:     errors.New("connection refused"),
	}
	healthy := &fakeConnector{kind: models.SourceRatings, cadence: 5 * time.Millisecond}
	orch, _ := testOrchestrator(broken, healthy)

	require.NoError(t, orch.Start(context.Background()))
	defer orch.Stop()

	require.Eventually(t, func() bool {
		return healthy.pollCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSetSelectorOverridesWindow(t *testing.T) {
	fake := &fakeConnector{kind: models.SourceRatings, cadence: 5 * time.Millisecond}
	orch, _ := testOrchestrator(fake)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	orch.SetSelector(func(now time.Time) connector.FixtureSelector {
		return connector.FixtureSelector{From: from, To: to}
	})

	require.NoError(t, orch.Start(context.Background()))
	defer orch.Stop()

	require.Eventually(t, func() bool { return fake.pollCount() > 0 }, time.Second, time.Millisecond)

	fake.mu.Lock()
	sel := fake.lastSel
	fake.mu.Unlock()
	assert.Equal(t, from, sel.From)
	assert.Equal(t, to, sel.To)
}

func TestDefaultSelectorWindow(t *testing.T) {
	now := time.Now()
	sel := DefaultSelector(now)
	assert.Equal(t, now.Add(-2*time.Hour), sel.From)
	assert.Equal(t, now.Add(48*time.Hour), sel.To)
}
