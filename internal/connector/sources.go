package connector

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/models"
)

// Options carries the per-connector settings resolved from configuration
type Options struct {
	BaseURL         string
	APIKey          string
	Cadence         time.Duration
	StalenessWindow time.Duration
	DegradedAfter   int
}

// oddsEntry is the wire format shared by the exchange and closing-line feeds
type oddsEntry struct {
	FixtureID    string  `json:"fixture_id"`
	Home         float64 `json:"home"`
	Draw         float64 `json:"draw"`
	Away         float64 `json:"away"`
	TradedVolume float64 `json:"traded_volume"`
}

func parseOddsEntries(kind models.SourceKind) parseFunc {
	return func(body []byte, _ FixtureSelector, capturedAt time.Time) ([]models.SourceRecord, error) {
		var entries []oddsEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode odds feed: %w", err)
		}

		records := make([]models.SourceRecord, 0, len(entries))
		for _, e := range entries {
			fixtureID, err := uuid.Parse(e.FixtureID)
			if err != nil {
				return nil, fmt.Errorf("invalid fixture id %q: %w", e.FixtureID, err)
			}
			if e.Home <= 1.0 || e.Draw <= 1.0 || e.Away <= 1.0 {
				return nil, fmt.Errorf("odds out of range for fixture %s: %w", e.FixtureID, ErrInvalidData)
			}
			records = append(records, models.SourceRecord{
				ID:         uuid.New(),
				FixtureID:  fixtureID,
				CapturedAt: capturedAt,
				Payload: models.OddsPayload{
					Home:         decimal.NewFromFloat(e.Home),
					Draw:         decimal.NewFromFloat(e.Draw),
					Away:         decimal.NewFromFloat(e.Away),
					TradedVolume: decimal.NewFromFloat(e.TradedVolume),
					OddsSource:   kind,
				},
			})
		}
		return records, nil
	}
}

// NewExchangeOddsConnector polls current exchange-traded 1X2 odds
func NewExchangeOddsConnector(opts Options, client *RateLimitedHTTPClient, logger *logrus.Logger) Connector {
	return newRESTConnector(models.SourceExchangeOdds, opts.BaseURL, "/v1/exchange/odds",
		opts.APIKey, opts.Cadence, opts.StalenessWindow, opts.DegradedAfter,
		client, parseOddsEntries(models.SourceExchangeOdds), logger)
}

// NewClosingLineConnector polls the pre-kickoff closing odds feed
func NewClosingLineConnector(opts Options, client *RateLimitedHTTPClient, logger *logrus.Logger) Connector {
	return newRESTConnector(models.SourceClosingLine, opts.BaseURL, "/v1/closing-line",
		opts.APIKey, opts.Cadence, opts.StalenessWindow, opts.DegradedAfter,
		client, parseOddsEntries(models.SourceClosingLine), logger)
}

type xgEntry struct {
	FixtureID       string  `json:"fixture_id"`
	HomeXGFor       float64 `json:"home_xg_for"`
	HomeXGAgainst   float64 `json:"home_xg_against"`
	AwayXGFor       float64 `json:"away_xg_for"`
	AwayXGAgainst   float64 `json:"away_xg_against"`
	HomeShotsOnGoal int     `json:"home_shots_on_goal"`
	AwayShotsOnGoal int     `json:"away_shots_on_goal"`
	MatchesSampled  int     `json:"matches_sampled"`
}

func parseXGEntries(body []byte, _ FixtureSelector, capturedAt time.Time) ([]models.SourceRecord, error) {
	var entries []xgEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode xg feed: %w", err)
	}

	records := make([]models.SourceRecord, 0, len(entries))
	for _, e := range entries {
		fixtureID, err := uuid.Parse(e.FixtureID)
		if err != nil {
			return nil, fmt.Errorf("invalid fixture id %q: %w", e.FixtureID, err)
		}
		records = append(records, models.SourceRecord{
			ID:         uuid.New(),
			FixtureID:  fixtureID,
			CapturedAt: capturedAt,
			Payload: models.XGPayload{
				HomeXGFor:       e.HomeXGFor,
				HomeXGAgainst:   e.HomeXGAgainst,
				AwayXGFor:       e.AwayXGFor,
				AwayXGAgainst:   e.AwayXGAgainst,
				HomeShotsOnGoal: e.HomeShotsOnGoal,
				AwayShotsOnGoal: e.AwayShotsOnGoal,
				MatchesSampled:  e.MatchesSampled,
			},
		})
	}
	return records, nil
}

// NewXGConnector polls the expected-goals / shot data feed
func NewXGConnector(opts Options, client *RateLimitedHTTPClient, logger *logrus.Logger) Connector {
	return newRESTConnector(models.SourceXG, opts.BaseURL, "/v1/xg",
		opts.APIKey, opts.Cadence, opts.StalenessWindow, opts.DegradedAfter,
		client, parseXGEntries, logger)
}

type ratingsEntry struct {
	FixtureID       string  `json:"fixture_id"`
	HomeRating      float64 `json:"home_rating"`
	AwayRating      float64 `json:"away_rating"`
	HomeRatingDelta float64 `json:"home_rating_delta"`
	AwayRatingDelta float64 `json:"away_rating_delta"`
}

func parseRatingsEntries(body []byte, _ FixtureSelector, capturedAt time.Time) ([]models.SourceRecord, error) {
	var entries []ratingsEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ratings feed: %w", err)
	}

	records := make([]models.SourceRecord, 0, len(entries))
	for _, e := range entries {
		fixtureID, err := uuid.Parse(e.FixtureID)
		if err != nil {
			return nil, fmt.Errorf("invalid fixture id %q: %w", e.FixtureID, err)
		}
		records = append(records, models.SourceRecord{
			ID:         uuid.New(),
			FixtureID:  fixtureID,
			CapturedAt: capturedAt,
			Payload: models.RatingsPayload{
				HomeRating:      e.HomeRating,
				AwayRating:      e.AwayRating,
				HomeRatingDelta: e.HomeRatingDelta,
				AwayRatingDelta: e.AwayRatingDelta,
			},
		})
	}
	return records, nil
}

// NewRatingsConnector polls the team rating feed
func NewRatingsConnector(opts Options, client *RateLimitedHTTPClient, logger *logrus.Logger) Connector {
	return newRESTConnector(models.SourceRatings, opts.BaseURL, "/v1/ratings",
		opts.APIKey, opts.Cadence, opts.StalenessWindow, opts.DegradedAfter,
		client, parseRatingsEntries, logger)
}

type standingsEntry struct {
	FixtureID              string  `json:"fixture_id"`
	HomePosition           int     `json:"home_position"`
	AwayPosition           int     `json:"away_position"`
	HomePointsPerGame      float64 `json:"home_points_per_game"`
	AwayPointsPerGame      float64 `json:"away_points_per_game"`
	HomeRecentForm         string  `json:"home_recent_form"`
	AwayRecentForm         string  `json:"away_recent_form"`
	HomeDaysSinceLastMatch int     `json:"home_days_since_last_match"`
	AwayDaysSinceLastMatch int     `json:"away_days_since_last_match"`
	LeagueSize             int     `json:"league_size"`
}

func parseStandingsEntries(body []byte, _ FixtureSelector, capturedAt time.Time) ([]models.SourceRecord, error) {
	var entries []standingsEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode standings feed: %w", err)
	}

	records := make([]models.SourceRecord, 0, len(entries))
	for _, e := range entries {
		fixtureID, err := uuid.Parse(e.FixtureID)
		if err != nil {
			return nil, fmt.Errorf("invalid fixture id %q: %w", e.FixtureID, err)
		}
		records = append(records, models.SourceRecord{
			ID:         uuid.New(),
			FixtureID:  fixtureID,
			CapturedAt: capturedAt,
			Payload: models.StandingsPayload{
				HomePosition:           e.HomePosition,
				AwayPosition:           e.AwayPosition,
				HomePointsPerGame:      e.HomePointsPerGame,
				AwayPointsPerGame:      e.AwayPointsPerGame,
				HomeRecentForm:         e.HomeRecentForm,
				AwayRecentForm:         e.AwayRecentForm,
				HomeDaysSinceLastMatch: e.HomeDaysSinceLastMatch,
				AwayDaysSinceLastMatch: e.AwayDaysSinceLastMatch,
				LeagueSize:             e.LeagueSize,
			},
		})
	}
	return records, nil
}

// NewStandingsConnector polls the league table feed
func NewStandingsConnector(opts Options, client *RateLimitedHTTPClient, logger *logrus.Logger) Connector {
	return newRESTConnector(models.SourceStandings, opts.BaseURL, "/v1/standings",
		opts.APIKey, opts.Cadence, opts.StalenessWindow, opts.DegradedAfter,
		client, parseStandingsEntries, logger)
}

type valuationsEntry struct {
	FixtureID      string  `json:"fixture_id"`
	HomeSquadValue float64 `json:"home_squad_value"`
	AwaySquadValue float64 `json:"away_squad_value"`
	Currency       string  `json:"currency"`
}

func parseValuationsEntries(body []byte, _ FixtureSelector, capturedAt time.Time) ([]models.SourceRecord, error) {
	var entries []valuationsEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode valuations feed: %w", err)
	}

	records := make([]models.SourceRecord, 0, len(entries))
	for _, e := range entries {
		fixtureID, err := uuid.Parse(e.FixtureID)
		if err != nil {
			return nil, fmt.Errorf("invalid fixture id %q: %w", e.FixtureID, err)
		}
		if e.HomeSquadValue < 0 || e.AwaySquadValue < 0 {
			return nil, fmt.Errorf("negative squad value for fixture %s: %w", e.FixtureID, ErrInvalidData)
		}
		records = append(records, models.SourceRecord{
			ID:         uuid.New(),
			FixtureID:  fixtureID,
			CapturedAt: capturedAt,
			Payload: models.ValuationsPayload{
				HomeSquadValue: decimal.NewFromFloat(e.HomeSquadValue),
				AwaySquadValue: decimal.NewFromFloat(e.AwaySquadValue),
				Currency:       e.Currency,
			},
		})
	}
	return records, nil
}

// NewValuationsConnector polls the squad market-valuation feed (daily cadence)
func NewValuationsConnector(opts Options, client *RateLimitedHTTPClient, logger *logrus.Logger) Connector {
	return newRESTConnector(models.SourceValuations, opts.BaseURL, "/v1/valuations",
		opts.APIKey, opts.Cadence, opts.StalenessWindow, opts.DegradedAfter,
		client, parseValuationsEntries, logger)
}

type historicalOddsEntry struct {
	FixtureID      string  `json:"fixture_id"`
	Meetings       int     `json:"meetings"`
	HomeWins       int     `json:"home_wins"`
	Draws          int     `json:"draws"`
	AwayWins       int     `json:"away_wins"`
	AvgHomeClosing float64 `json:"avg_home_closing"`
	AvgDrawClosing float64 `json:"avg_draw_closing"`
	AvgAwayClosing float64 `json:"avg_away_closing"`
}

func parseHistoricalOddsEntries(body []byte, _ FixtureSelector, capturedAt time.Time) ([]models.SourceRecord, error) {
	var entries []historicalOddsEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode historical odds feed: %w", err)
	}

	records := make([]models.SourceRecord, 0, len(entries))
	for _, e := range entries {
		fixtureID, err := uuid.Parse(e.FixtureID)
		if err != nil {
			return nil, fmt.Errorf("invalid fixture id %q: %w", e.FixtureID, err)
		}
		records = append(records, models.SourceRecord{
			ID:         uuid.New(),
			FixtureID:  fixtureID,
			CapturedAt: capturedAt,
			Payload: models.HistoricalOddsPayload{
				Meetings:       e.Meetings,
				HomeWins:       e.HomeWins,
				Draws:          e.Draws,
				AwayWins:       e.AwayWins,
				AvgHomeClosing: e.AvgHomeClosing,
				AvgDrawClosing: e.AvgDrawClosing,
				AvgAwayClosing: e.AvgAwayClosing,
			},
		})
	}
	return records, nil
}

// NewHistoricalOddsConnector polls the historical closing-odds archive
func NewHistoricalOddsConnector(opts Options, client *RateLimitedHTTPClient, logger *logrus.Logger) Connector {
	return newRESTConnector(models.SourceHistoricalOdds, opts.BaseURL, "/v1/historical/odds",
		opts.APIKey, opts.Cadence, opts.StalenessWindow, opts.DegradedAfter,
		client, parseHistoricalOddsEntries, logger)
}
