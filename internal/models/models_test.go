package models

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbabilityTripleNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input ProbabilityTriple
	}{
		{name: "already normalized", input: ProbabilityTriple{0.5, 0.3, 0.2}},
		{name: "unnormalized mass", input: ProbabilityTriple{2.0, 1.0, 1.0}},
		{name: "tiny mass", input: ProbabilityTriple{1e-9, 2e-9, 3e-9}},
		{name: "skewed", input: ProbabilityTriple{0.91, 0.05, 0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.input.Normalize()
			assert.InDelta(t, 1.0, out.Sum(), ProbabilityTolerance)
			assert.True(t, out.IsNormalized())
		})
	}
}

func TestProbabilityTripleNormalizeDegenerate(t *testing.T) {
	for _, p := range []ProbabilityTriple{
		{0, 0, 0},
		{-1, 0.5, 0.5},
		{math.NaN(), 0.5, 0.5},
	} {
		out := p.Normalize()
		assert.True(t, out.IsNormalized())
		for i := range out {
			assert.GreaterOrEqual(t, out[i], 0.0)
		}
	}
}

func TestProbabilityTripleMax(t *testing.T) {
	p := ProbabilityTriple{0.2, 0.5, 0.3}
	outcome, prob := p.Max()
	assert.Equal(t, OutcomeDraw, outcome)
	assert.Equal(t, 0.5, prob)
}

func TestImpliedProbabilities(t *testing.T) {
	odds := MarketOdds{
		Home: decimal.NewFromFloat(2.5),
		Draw: decimal.NewFromFloat(3.4),
		Away: decimal.NewFromFloat(3.1),
	}

	probs, err := odds.ImpliedProbabilities()
	require.NoError(t, err)

	sum := probs[OutcomeHome] + probs[OutcomeDraw] + probs[OutcomeAway]
	assert.InDelta(t, 1.0, sum, ProbabilityTolerance, "overround must be normalized away")
	assert.Greater(t, probs[OutcomeHome], probs[OutcomeDraw], "shorter odds imply higher probability")
}

func TestImpliedProbabilitiesInvalidOdds(t *testing.T) {
	odds := MarketOdds{
		Home: decimal.NewFromFloat(1.0),
		Draw: decimal.NewFromFloat(3.4),
		Away: decimal.NewFromFloat(3.1),
	}

	_, err := odds.ImpliedProbabilities()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOdds)
}

func TestSourceRecordStaleness(t *testing.T) {
	now := time.Now()
	rec := SourceRecord{
		CapturedAt:      now.Add(-10 * time.Minute),
		StalenessWindow: 5 * time.Minute,
	}
	assert.True(t, rec.IsStale(now))

	rec.StalenessWindow = 15 * time.Minute
	assert.False(t, rec.IsStale(now))
}

func TestDedupKeyBucketing(t *testing.T) {
	fixtureID := uuid.New()
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	window := time.Minute

	a := SourceRecord{Source: SourceXG, FixtureID: fixtureID, CapturedAt: base.Add(5 * time.Second)}
	b := SourceRecord{Source: SourceXG, FixtureID: fixtureID, CapturedAt: base.Add(40 * time.Second)}
	c := SourceRecord{Source: SourceXG, FixtureID: fixtureID, CapturedAt: base.Add(70 * time.Second)}
	d := SourceRecord{Source: SourceRatings, FixtureID: fixtureID, CapturedAt: base.Add(5 * time.Second)}

	assert.Equal(t, a.DedupKey(window), b.DedupKey(window), "same bucket, same key")
	assert.NotEqual(t, a.DedupKey(window), c.DedupKey(window), "different bucket")
	assert.NotEqual(t, a.DedupKey(window), d.DedupKey(window), "different source")
}

func TestPayloadRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{"live score", LiveScorePayload{HomeGoals: 2, AwayGoals: 1, MinutesPlayed: 67, Period: "2H"}},
		{"xg", XGPayload{HomeXGFor: 1.8, HomeXGAgainst: 0.9, AwayXGFor: 1.1, AwayXGAgainst: 1.4, MatchesSampled: 6}},
		{"ratings", RatingsPayload{HomeRating: 1820, AwayRating: 1765}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.payload)
			require.NoError(t, err)

			decoded, err := DecodePayload(tt.payload.Kind(), data)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, decoded)
		})
	}
}

func TestDecodePayloadUnknownKind(t *testing.T) {
	_, err := DecodePayload(SourceKind("telepathy"), []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestBrierContribution(t *testing.T) {
	perfect := ResolvedSample{
		Predicted: ProbabilityTriple{1, 0, 0},
		Observed:  OutcomeHome,
	}
	assert.InDelta(t, 0.0, perfect.BrierContribution(), 1e-12)

	worst := ResolvedSample{
		Predicted: ProbabilityTriple{0, 1, 0},
		Observed:  OutcomeHome,
	}
	assert.InDelta(t, 2.0, worst.BrierContribution(), 1e-12)

	uniform := ResolvedSample{
		Predicted: ProbabilityTriple{1.0 / 3, 1.0 / 3, 1.0 / 3},
		Observed:  OutcomeAway,
	}
	assert.InDelta(t, 2.0/3.0, uniform.BrierContribution(), 1e-9)
}
