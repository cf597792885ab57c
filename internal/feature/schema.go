// Package feature assembles normalized source records into fixed-width
// feature vectors.
package feature

import (
	"fmt"

	"github.com/yourusername/footy-edge/internal/models"
)

// SchemaVersion is the current feature schema version. Model artifacts are
// trained against a specific version; changing the feature list or its order
// requires bumping this and retraining (or an explicit compatibility shim).
const SchemaVersion = "v1"

// Feature describes one schema entry: its position is its index in Schema.
// Neutral is the documented league-average default used when the feature's
// group has no live data.
type Feature struct {
	Name    string
	Group   models.FeatureGroup
	Neutral float64
}

// Schema is the ordered feature list for SchemaVersion. Order is load-bearing:
// artifacts index into vectors by position.
var Schema = []Feature{
	// Recent-results form, from the standings feed
	{Name: "form_home_weighted_points", Group: models.GroupForm, Neutral: 1.35},
	{Name: "form_away_weighted_points", Group: models.GroupForm, Neutral: 1.35},
	{Name: "form_ppg_diff", Group: models.GroupForm, Neutral: 0},
	{Name: "form_position_gap", Group: models.GroupForm, Neutral: 0},

	// Shot quality, from the xG feed
	{Name: "shot_home_xg_for", Group: models.GroupShotQuality, Neutral: 1.40},
	{Name: "shot_home_xg_against", Group: models.GroupShotQuality, Neutral: 1.25},
	{Name: "shot_away_xg_for", Group: models.GroupShotQuality, Neutral: 1.15},
	{Name: "shot_away_xg_against", Group: models.GroupShotQuality, Neutral: 1.40},
	{Name: "shot_xg_ratio", Group: models.GroupShotQuality, Neutral: 1.0},

	// Fatigue, from rest-day data on the standings feed
	{Name: "fatigue_home_rest_days", Group: models.GroupFatigue, Neutral: 6},
	{Name: "fatigue_away_rest_days", Group: models.GroupFatigue, Neutral: 6},
	{Name: "fatigue_rest_advantage", Group: models.GroupFatigue, Neutral: 0},

	// Market-derived, from exchange odds, closing line and live scores
	{Name: "market_implied_home", Group: models.GroupMarket, Neutral: 0.45},
	{Name: "market_implied_draw", Group: models.GroupMarket, Neutral: 0.26},
	{Name: "market_implied_away", Group: models.GroupMarket, Neutral: 0.29},
	{Name: "market_closing_drift_home", Group: models.GroupMarket, Neutral: 0},
	{Name: "market_live_goal_diff", Group: models.GroupMarket, Neutral: 0},
	{Name: "market_live_minutes_ratio", Group: models.GroupMarket, Neutral: 0},

	// Head-to-head, from the historical closing-odds archive
	{Name: "h2h_home_win_rate", Group: models.GroupHeadToHead, Neutral: 0.45},
	{Name: "h2h_draw_rate", Group: models.GroupHeadToHead, Neutral: 0.26},
	{Name: "h2h_away_win_rate", Group: models.GroupHeadToHead, Neutral: 0.29},
	{Name: "h2h_avg_home_closing_implied", Group: models.GroupHeadToHead, Neutral: 0.45},

	// Squad strength, from the ratings and valuation feeds
	{Name: "squad_rating_diff", Group: models.GroupSquadStrength, Neutral: 0},
	{Name: "squad_rating_momentum", Group: models.GroupSquadStrength, Neutral: 0},
	{Name: "squad_value_ratio_log", Group: models.GroupSquadStrength, Neutral: 0},
}

// GroupSources maps each feature group to the source kinds that feed it.
// A group is flagged present when at least one contributing source has a
// live, non-stale record.
var GroupSources = map[models.FeatureGroup][]models.SourceKind{
	models.GroupForm:          {models.SourceStandings},
	models.GroupShotQuality:   {models.SourceXG},
	models.GroupFatigue:       {models.SourceStandings},
	models.GroupMarket:        {models.SourceExchangeOdds, models.SourceClosingLine, models.SourceLiveScores},
	models.GroupHeadToHead:    {models.SourceHistoricalOdds},
	models.GroupSquadStrength: {models.SourceRatings, models.SourceValuations},
}

// Names returns the ordered feature names for the current schema
func Names() []string {
	names := make([]string, len(Schema))
	for i, f := range Schema {
		names[i] = f.Name
	}
	return names
}

// index maps feature names to schema positions
var index = func() map[string]int {
	m := make(map[string]int, len(Schema))
	for i, f := range Schema {
		m[f.Name] = i
	}
	return m
}()

// Index returns the schema position of a feature name
func Index(name string) (int, error) {
	i, ok := index[name]
	if !ok {
		return 0, fmt.Errorf("unknown feature %q in schema %s: %w", name, SchemaVersion, models.ErrSchemaMismatch)
	}
	return i, nil
}
