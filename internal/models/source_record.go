package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceKind identifies one of the closed set of external data sources
type SourceKind string

const (
	// SourceLiveScores is the in-play score/event stream
	SourceLiveScores SourceKind = "live_scores"
	// SourceExchangeOdds is current exchange-traded 1X2 odds
	SourceExchangeOdds SourceKind = "exchange_odds"
	// SourceClosingLine is the pre-kickoff closing odds feed
	SourceClosingLine SourceKind = "closing_line"
	// SourceXG is the expected-goals / shot data feed
	SourceXG SourceKind = "xg"
	// SourceRatings is the team rating feed (Elo-style)
	SourceRatings SourceKind = "ratings"
	// SourceStandings is the league table feed
	SourceStandings SourceKind = "standings"
	// SourceValuations is the squad market-valuation feed
	SourceValuations SourceKind = "valuations"
	// SourceHistoricalOdds is the historical closing-odds archive
	SourceHistoricalOdds SourceKind = "historical_odds"
)

// AllSourceKinds lists every connector kind in schema order
var AllSourceKinds = []SourceKind{
	SourceLiveScores,
	SourceExchangeOdds,
	SourceClosingLine,
	SourceXG,
	SourceRatings,
	SourceStandings,
	SourceValuations,
	SourceHistoricalOdds,
}

// Payload is the typed per-kind content of a SourceRecord
type Payload interface {
	Kind() SourceKind
}

// SourceRecord is one immutable capture from a source for a fixture.
// Later captures supersede it; it is never mutated in place.
type SourceRecord struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	Source          SourceKind    `db:"source" json:"source" validate:"required"`
	FixtureID       uuid.UUID     `db:"fixture_id" json:"fixture_id" validate:"required"`
	CapturedAt      time.Time     `db:"captured_at" json:"captured_at" validate:"required"`
	StalenessWindow time.Duration `db:"staleness_window" json:"staleness_window"`
	Payload         Payload       `db:"-" json:"payload"`
}

// IsStale reports whether the record is older than its staleness window
func (r *SourceRecord) IsStale(now time.Time) bool {
	return now.Sub(r.CapturedAt) > r.StalenessWindow
}

// DedupKey returns the (source, fixture, time-bucket) key used by the
// orchestrator to drop re-captures inside the dedup window.
func (r *SourceRecord) DedupKey(window time.Duration) string {
	bucket := r.CapturedAt.Truncate(window).Unix()
	return fmt.Sprintf("%s:%s:%d", r.Source, r.FixtureID, bucket)
}

// LiveScorePayload carries the in-play state of a fixture
type LiveScorePayload struct {
	HomeGoals     int    `json:"home_goals"`
	AwayGoals     int    `json:"away_goals"`
	MinutesPlayed int    `json:"minutes_played"`
	Period        string `json:"period"`
	HomeRedCards  int    `json:"home_red_cards"`
	AwayRedCards  int    `json:"away_red_cards"`
}

// Kind implements Payload
func (LiveScorePayload) Kind() SourceKind { return SourceLiveScores }

// OddsPayload carries a 1X2 odds snapshot (exchange, closing line or archive)
type OddsPayload struct {
	Home          decimal.Decimal `json:"home"`
	Draw          decimal.Decimal `json:"draw"`
	Away          decimal.Decimal `json:"away"`
	TradedVolume  decimal.Decimal `json:"traded_volume"`
	OddsSource    SourceKind      `json:"odds_source"`
}

// Kind implements Payload
func (p OddsPayload) Kind() SourceKind {
	if p.OddsSource != "" {
		return p.OddsSource
	}
	return SourceExchangeOdds
}

// XGPayload carries rolling expected-goals and shot-quality figures
type XGPayload struct {
	HomeXGFor       float64 `json:"home_xg_for"`
	HomeXGAgainst   float64 `json:"home_xg_against"`
	AwayXGFor       float64 `json:"away_xg_for"`
	AwayXGAgainst   float64 `json:"away_xg_against"`
	HomeShotsOnGoal int     `json:"home_shots_on_goal"`
	AwayShotsOnGoal int     `json:"away_shots_on_goal"`
	MatchesSampled  int     `json:"matches_sampled"`
}

// Kind implements Payload
func (XGPayload) Kind() SourceKind { return SourceXG }

// RatingsPayload carries Elo-style team strength ratings
type RatingsPayload struct {
	HomeRating      float64 `json:"home_rating"`
	AwayRating      float64 `json:"away_rating"`
	HomeRatingDelta float64 `json:"home_rating_delta"`
	AwayRatingDelta float64 `json:"away_rating_delta"`
}

// Kind implements Payload
func (RatingsPayload) Kind() SourceKind { return SourceRatings }

// StandingsPayload carries league-table context for both teams
type StandingsPayload struct {
	HomePosition   int     `json:"home_position"`
	AwayPosition   int     `json:"away_position"`
	HomePointsPerGame float64 `json:"home_points_per_game"`
	AwayPointsPerGame float64 `json:"away_points_per_game"`
	HomeRecentForm string  `json:"home_recent_form"` // e.g. "WWDLW", most recent last
	AwayRecentForm string  `json:"away_recent_form"`
	HomeDaysSinceLastMatch int `json:"home_days_since_last_match"`
	AwayDaysSinceLastMatch int `json:"away_days_since_last_match"`
	LeagueSize     int     `json:"league_size"`
}

// Kind implements Payload
func (StandingsPayload) Kind() SourceKind { return SourceStandings }

// ValuationsPayload carries squad market valuations
type ValuationsPayload struct {
	HomeSquadValue decimal.Decimal `json:"home_squad_value"`
	AwaySquadValue decimal.Decimal `json:"away_squad_value"`
	Currency       string          `json:"currency"`
}

// Kind implements Payload
func (ValuationsPayload) Kind() SourceKind { return SourceValuations }

// HistoricalOddsPayload carries head-to-head closing-odds history
type HistoricalOddsPayload struct {
	Meetings        int     `json:"meetings"`
	HomeWins        int     `json:"home_wins"`
	Draws           int     `json:"draws"`
	AwayWins        int     `json:"away_wins"`
	AvgHomeClosing  float64 `json:"avg_home_closing"`
	AvgDrawClosing  float64 `json:"avg_draw_closing"`
	AvgAwayClosing  float64 `json:"avg_away_closing"`
}

// Kind implements Payload
func (HistoricalOddsPayload) Kind() SourceKind { return SourceHistoricalOdds }

// EncodePayload serializes a typed payload for persistence
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("encode payload: %w", ErrInvalidPayload)
	}
	return json.Marshal(p)
}

// DecodePayload deserializes a persisted payload according to the source kind
func DecodePayload(kind SourceKind, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case SourceLiveScores:
		var v LiveScorePayload
		err = json.Unmarshal(data, &v)
		p = v
	case SourceExchangeOdds, SourceClosingLine:
		var v OddsPayload
		err = json.Unmarshal(data, &v)
		v.OddsSource = kind
		p = v
	case SourceHistoricalOdds:
		var v HistoricalOddsPayload
		err = json.Unmarshal(data, &v)
		p = v
	case SourceXG:
		var v XGPayload
		err = json.Unmarshal(data, &v)
		p = v
	case SourceRatings:
		var v RatingsPayload
		err = json.Unmarshal(data, &v)
		p = v
	case SourceStandings:
		var v StandingsPayload
		err = json.Unmarshal(data, &v)
		p = v
	case SourceValuations:
		var v ValuationsPayload
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown source kind %q: %w", kind, ErrInvalidPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}
