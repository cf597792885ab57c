package connector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/footy-edge/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testHTTPClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 0
	cfg.RateLimit = 1000
	return NewRateLimitedHTTPClient(cfg, testLogger())
}

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		Cadence:         time.Minute,
		StalenessWindow: time.Hour,
		DegradedAfter:   3,
	}
}

func TestExchangeOddsPoll(t *testing.T) {
	fixtureID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/exchange/odds", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.URL.Query().Get("from"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"fixture_id":"` + fixtureID.String() +
			`","home":2.42,"draw":3.23,"away":3.23,"traded_volume":15000}]`))
	}))
	defer srv.Close()

	c := NewExchangeOddsConnector(testOptions(srv.URL), testHTTPClient(), testLogger())
	require.Equal(t, models.SourceExchangeOdds, c.Kind())

	recs, err := c.Poll(context.Background(), FixtureSelector{
		From: time.Now(), To: time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, models.SourceExchangeOdds, rec.Source)
	assert.Equal(t, fixtureID, rec.FixtureID)
	assert.Equal(t, time.Hour, rec.StalenessWindow)
	assert.False(t, rec.CapturedAt.IsZero())

	odds, ok := rec.Payload.(models.OddsPayload)
	require.True(t, ok)
	assert.Equal(t, "2.42", odds.Home.String())
	assert.Equal(t, models.SourceExchangeOdds, odds.Kind())

	health := c.Health()
	assert.Equal(t, StatusHealthy, health.Status)
}

func TestPollRejectsMalformedOdds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"fixture_id":"` + uuid.NewString() + `","home":0.5,"draw":3.2,"away":3.1}]`))
	}))
	defer srv.Close()

	c := NewExchangeOddsConnector(testOptions(srv.URL), testHTTPClient(), testLogger())
	_, err := c.Poll(context.Background(), FixtureSelector{})
	require.Error(t, err)

	var ce ConnectorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeInvalidData, ce.Code)
	assert.False(t, IsTransient(err), "a bad feed is not retryable")
}

func TestPollStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      string
		transient bool
	}{
		{"unauthorized", http.StatusUnauthorized, ErrCodeAuthenticationFailed, false},
		{"forbidden", http.StatusForbidden, ErrCodeAuthenticationFailed, false},
		{"not found", http.StatusNotFound, ErrCodeNotFound, false},
		{"rate limited", http.StatusTooManyRequests, ErrCodeRateLimitExceeded, true},
		{"server error", http.StatusBadGateway, ErrCodeServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewXGConnector(testOptions(srv.URL), testHTTPClient(), testLogger())
			_, err := c.Poll(context.Background(), FixtureSelector{})
			require.Error(t, err)

			var ce ConnectorError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestHealthTransitions(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewRatingsConnector(testOptions(srv.URL), testHTTPClient(), testLogger())
	assert.Equal(t, StatusDown, c.Health().Status, "never succeeded")

	_, err := c.Poll(context.Background(), FixtureSelector{})
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, c.Health().Status)

	failing.Store(true)
	for i := 0; i < 3; i++ {
		_, err = c.Poll(context.Background(), FixtureSelector{})
		require.Error(t, err)
	}
	health := c.Health()
	assert.Equal(t, StatusDegraded, health.Status)
	assert.Equal(t, 3, health.ConsecutiveFailures)

	// One success heals the connector
	failing.Store(false)
	_, err = c.Poll(context.Background(), FixtureSelector{})
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, c.Health().Status)
}

func TestParseXGEntries(t *testing.T) {
	fixtureID := uuid.New()
	body := []byte(`[{"fixture_id":"` + fixtureID.String() +
		`","home_xg_for":9.1,"home_xg_against":5.2,"away_xg_for":6.6,"away_xg_against":8.4,"matches_sampled":6}]`)

	recs, err := parseXGEntries(body, FixtureSelector{}, time.Now())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	xg, ok := recs[0].Payload.(models.XGPayload)
	require.True(t, ok)
	assert.InDelta(t, 9.1, xg.HomeXGFor, 1e-9)
	assert.Equal(t, 6, xg.MatchesSampled)
}

func TestParseEntriesRejectBadFixtureID(t *testing.T) {
	body := []byte(`[{"fixture_id":"not-a-uuid","home_rating":1800,"away_rating":1700}]`)
	_, err := parseRatingsEntries(body, FixtureSelector{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fixture id")
}

func TestParseValuationsRejectsNegativeValues(t *testing.T) {
	body := []byte(`[{"fixture_id":"` + uuid.NewString() + `","home_squad_value":-10,"away_squad_value":380}]`)
	_, err := parseValuationsEntries(body, FixtureSelector{}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestParseHistoricalOddsEntries(t *testing.T) {
	fixtureID := uuid.New()
	body := []byte(`[{"fixture_id":"` + fixtureID.String() +
		`","meetings":10,"home_wins":5,"draws":3,"away_wins":2,"avg_home_closing":2.1}]`)

	recs, err := parseHistoricalOddsEntries(body, FixtureSelector{}, time.Now())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	h2h, ok := recs[0].Payload.(models.HistoricalOddsPayload)
	require.True(t, ok)
	assert.Equal(t, 10, h2h.Meetings)
	assert.Equal(t, 5, h2h.HomeWins)
}

func TestIsTransientClassification(t *testing.T) {
	transient := NewConnectorError(models.SourceXG, ErrCodeNetworkError, "timeout", nil)
	assert.True(t, IsTransient(transient))

	permanent := NewConnectorError(models.SourceXG, ErrCodeAuthenticationFailed, "bad key", nil)
	assert.False(t, IsTransient(permanent))

	// Wrapped connector errors still classify
	wrapped := errors.Join(errors.New("poll failed"), transient)
	assert.True(t, IsTransient(wrapped))

	// Unclassified errors default to transient
	assert.True(t, IsTransient(errors.New("something unexpected")))
}
