package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/footy-edge/internal/calibration"
	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/ensemble"
	"github.com/yourusername/footy-edge/internal/feature"
	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/staking"
	"github.com/yourusername/footy-edge/internal/store"
)

// fixedArtifact returns an artifact over the real feature schema whose zero
// weights make every estimator emit the same probabilities regardless of
// input: softmax of the intercepts.
func fixedArtifact(name string, home, draw, away float64) *ensemble.ModelArtifact {
	names := feature.Names()
	zeroRow := func() []float64 { return make([]float64, len(names)) }

	return &ensemble.ModelArtifact{
		ModelID:       uuid.New(),
		Name:          name,
		TrainedAt:     time.Now(),
		SchemaVersion: feature.SchemaVersion,
		FeatureNames:  names,
		Estimators: []ensemble.EstimatorParams{
			{
				Name:       "fixed",
				Weights:    [][]float64{zeroRow(), zeroRow(), zeroRow()},
				Intercepts: []float64{math.Log(home), math.Log(draw), math.Log(away)},
			},
		},
		Meta: ensemble.MetaParams{EstimatorWeights: []float64{1.0}},
	}
}

type testHarness struct {
	engine  *Engine
	st      *store.MemoryStore
	calib   *calibration.Controller
	ens     *ensemble.Engine
	fixture models.Fixture
}

func newHarness(t *testing.T, secondary *ensemble.ModelArtifact, baseHome float64) *testHarness {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	st := store.NewMemoryStore()

	infCfg := &config.InferenceConfig{
		ArtifactDir:                     "unused",
		SecondaryStackEnabled:           secondary != nil,
		SecondaryStackTimeBudgetSeconds: 1,
		RequestTimeoutSeconds:           5,
		MinCompletenessGroups:           2,
	}
	calCfg := &config.CalibrationConfig{
		WindowSize:     10,
		MinSamples:     2,
		RefitEvery:     2,
		BlendWeightMin: 0.1,
		BlendWeightMax: 0.9,
	}
	stakeCfg := &config.StakingConfig{
		MinEdgeThreshold:       0.02,
		MinConfidenceThreshold: 0.4,
		KellyFraction:          0.125,
		MaxStakeFraction:       0.05,
	}

	base := fixedArtifact("base", baseHome, (1-baseHome)*0.52, (1-baseHome)*0.48)
	ens := ensemble.NewEngineFromArtifacts(base, secondary, time.Second, logger)
	calib := calibration.NewController(calCfg, st, logger)
	assembler := feature.NewAssembler(st, logger)
	stake := staking.NewEngine(stakeCfg, logger)

	engine := New(infCfg, st, assembler, ens, calib, stake, nil, logger)

	fixture := models.Fixture{
		ID:       uuid.New(),
		HomeTeam: "Harton Rovers",
		AwayTeam: "Dunmore City",
		League:   "premier",
		Kickoff:  time.Now().Add(2 * time.Hour),
	}
	require.NoError(t, st.UpsertFixture(context.Background(), &fixture))

	return &testHarness{engine: engine, st: st, calib: calib, ens: ens, fixture: fixture}
}

func (h *testHarness) seedCalibration(t *testing.T, modelID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, h.calib.AddResolved(context.Background(), &models.ResolvedSample{
			ModelID:    modelID,
			FixtureID:  uuid.New(),
			Predicted:  models.ProbabilityTriple{0.48, 0.27, 0.25},
			Observed:   models.OutcomeHome,
			ResolvedAt: time.Now(),
		}))
	}
}

func (h *testHarness) writeSources(t *testing.T, kinds ...models.SourceKind) {
	t.Helper()
	window := time.Hour
	payloads := map[models.SourceKind]models.Payload{
		models.SourceLiveScores: models.LiveScorePayload{HomeGoals: 0, AwayGoals: 0, MinutesPlayed: 0},
		models.SourceExchangeOdds: models.OddsPayload{
			Home: decimal.NewFromFloat(2.42), Draw: decimal.NewFromFloat(3.23),
			Away: decimal.NewFromFloat(3.23), OddsSource: models.SourceExchangeOdds,
		},
		models.SourceClosingLine: models.OddsPayload{
			Home: decimal.NewFromFloat(2.5), Draw: decimal.NewFromFloat(3.2),
			Away: decimal.NewFromFloat(3.2), OddsSource: models.SourceClosingLine,
		},
		models.SourceXG: models.XGPayload{
			HomeXGFor: 9.0, HomeXGAgainst: 6.0, AwayXGFor: 6.6, AwayXGAgainst: 8.4, MatchesSampled: 6,
		},
		models.SourceRatings:   models.RatingsPayload{HomeRating: 1850, AwayRating: 1750},
		models.SourceStandings: models.StandingsPayload{
			HomePosition: 4, AwayPosition: 9, HomePointsPerGame: 1.9, AwayPointsPerGame: 1.4,
			HomeRecentForm: "WWDWL", AwayRecentForm: "DLWDL",
			HomeDaysSinceLastMatch: 6, AwayDaysSinceLastMatch: 4, LeagueSize: 20,
		},
		models.SourceValuations: models.ValuationsPayload{
			HomeSquadValue: decimal.NewFromInt(450), AwaySquadValue: decimal.NewFromInt(380),
		},
		models.SourceHistoricalOdds: models.HistoricalOddsPayload{
			Meetings: 8, HomeWins: 4, Draws: 2, AwayWins: 2, AvgHomeClosing: 2.1,
		},
	}

	for _, kind := range kinds {
		p, ok := payloads[kind]
		require.True(t, ok, "no payload fixture for %s", kind)
		require.NoError(t, h.st.WriteRecord(context.Background(), &models.SourceRecord{
			ID:              uuid.New(),
			Source:          kind,
			FixtureID:       h.fixture.ID,
			CapturedAt:      time.Now(),
			StalenessWindow: window,
			Payload:         p,
		}))
	}
}

func marketOdds() models.MarketOdds {
	// Home implied probability normalizes to roughly 0.40
	return models.MarketOdds{
		Home: decimal.NewFromFloat(2.42),
		Draw: decimal.NewFromFloat(3.23),
		Away: decimal.NewFromFloat(3.23),
	}
}

func (h *testHarness) request() *models.PredictionRequest {
	return &models.PredictionRequest{
		HomeTeam:    h.fixture.HomeTeam,
		AwayTeam:    h.fixture.AwayTeam,
		League:      h.fixture.League,
		RequestedAt: time.Now(),
		MarketOdds:  marketOdds(),
	}
}

// All 8 sources healthy, model edge 0.08 on the home win against a 0.40
// market: the prediction carries a stake recommendation within the cap.
func TestPredictAllSourcesHealthy(t *testing.T) {
	h := newHarness(t, nil, 0.48)
	h.writeSources(t, models.AllSourceKinds...)
	h.seedCalibration(t, h.ens.BaseModelID(), 2)

	result, err := h.engine.Predict(context.Background(), h.request())
	require.NoError(t, err)

	assert.Empty(t, result.MissingGroups)
	assert.GreaterOrEqual(t, result.Probabilities[models.OutcomeHome], 0.46)
	assert.GreaterOrEqual(t, result.Confidence, 0.4)

	require.NotNil(t, result.Recommendation)
	assert.Equal(t, models.OutcomeHome, result.Recommendation.Outcome)
	stake, _ := result.Recommendation.StakeFraction.Float64()
	assert.Greater(t, stake, 0.0)
	assert.LessOrEqual(t, stake, 0.05, "stake never exceeds the configured cap")
	assert.Contains(t, result.ContributingModelIDs, h.ens.BaseModelID())
}

// 5 of 8 sources missing: the completeness mask reflects exactly the groups
// fed by the healthy sources and the prediction still returns.
func TestPredictDegradedSources(t *testing.T) {
	h := newHarness(t, nil, 0.48)
	h.writeSources(t, models.SourceXG, models.SourceExchangeOdds, models.SourceHistoricalOdds)
	h.seedCalibration(t, h.ens.BaseModelID(), 2)

	healthy := newHarness(t, nil, 0.48)
	healthy.writeSources(t, models.AllSourceKinds...)
	healthy.seedCalibration(t, healthy.ens.BaseModelID(), 2)

	result, err := h.engine.Predict(context.Background(), h.request())
	require.NoError(t, err, "degraded sources reduce confidence, they do not fail the request")

	assert.ElementsMatch(t,
		[]models.FeatureGroup{models.GroupForm, models.GroupFatigue, models.GroupSquadStrength},
		result.MissingGroups)

	full, err := healthy.engine.Predict(context.Background(), healthy.request())
	require.NoError(t, err)
	assert.Less(t, result.Confidence, full.Confidence, "missing groups lower confidence")
}

// Secondary stack disabled: the final probabilities equal the calibrated base
// path exactly.
func TestPredictSecondaryDisabled(t *testing.T) {
	h := newHarness(t, nil, 0.48)
	h.writeSources(t, models.AllSourceKinds...)
	h.seedCalibration(t, h.ens.BaseModelID(), 2)

	result, err := h.engine.Predict(context.Background(), h.request())
	require.NoError(t, err)

	fv, err := feature.NewAssembler(h.st, logrusNop()).Assemble(context.Background(), h.fixture.ID)
	require.NoError(t, err)
	base, secondary := h.ens.Infer(context.Background(), fv)
	require.True(t, base.Available)
	require.False(t, secondary.Available)

	expected, _ := h.calib.Calibrate(base.ModelID, base.Probabilities)
	assert.Equal(t, expected, result.Probabilities, "base-only result is the calibrated base path exactly")
}

func TestPredictWithSecondaryBlends(t *testing.T) {
	secondary := fixedArtifact("secondary", 0.52, 0.25, 0.23)
	h := newHarness(t, secondary, 0.48)
	h.writeSources(t, models.AllSourceKinds...)

	result, err := h.engine.Predict(context.Background(), h.request())
	require.NoError(t, err)

	assert.True(t, result.Probabilities.IsNormalized())
	assert.Len(t, result.ContributingModelIDs, 2)

	// Thin calibration sample: blend weight is the clipped midpoint, so the
	// final home probability sits between the two paths
	assert.Greater(t, result.Probabilities[models.OutcomeHome], 0.47)
	assert.Less(t, result.Probabilities[models.OutcomeHome], 0.53)
}

func TestPredictUnknownFixture(t *testing.T) {
	h := newHarness(t, nil, 0.48)

	req := h.request()
	req.HomeTeam = "Nonexistent United"

	_, err := h.engine.Predict(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPredictInsufficientData(t *testing.T) {
	h := newHarness(t, nil, 0.48)
	// Only one group's worth of sources
	h.writeSources(t, models.SourceXG)

	_, err := h.engine.Predict(context.Background(), h.request())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestResolveFeedsCalibration(t *testing.T) {
	h := newHarness(t, nil, 0.48)
	h.writeSources(t, models.AllSourceKinds...)

	_, err := h.engine.Predict(context.Background(), h.request())
	require.NoError(t, err)

	baseID := h.ens.BaseModelID()
	before := h.calib.SampleSize(baseID)

	require.NoError(t, h.engine.Resolve(context.Background(), &models.MatchResult{
		FixtureID:  h.fixture.ID,
		Outcome:    models.OutcomeHome,
		HomeGoals:  2,
		AwayGoals:  0,
		ResolvedAt: time.Now(),
	}))

	assert.Equal(t, before+1, h.calib.SampleSize(baseID), "resolution appends the pending prediction")

	// Resolving again without a pending prediction is not an error
	require.NoError(t, h.engine.Resolve(context.Background(), &models.MatchResult{
		FixtureID:  h.fixture.ID,
		Outcome:    models.OutcomeHome,
		ResolvedAt: time.Now(),
	}))
	assert.Equal(t, before+1, h.calib.SampleSize(baseID))
}

func logrusNop() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}
