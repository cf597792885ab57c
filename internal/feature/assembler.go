package feature

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/metrics"
	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/store"
)

// Assembler joins the latest valid source records for a fixture into a
// FeatureVector. Stale or absent sources never fail assembly: the affected
// groups are filled with neutral defaults and cleared in the completeness
// mask.
type Assembler struct {
	records store.RecordStore
	logger  *logrus.Logger
	now     func() time.Time
}

// NewAssembler creates a new feature assembler
func NewAssembler(records store.RecordStore, logger *logrus.Logger) *Assembler {
	return &Assembler{
		records: records,
		logger:  logger,
		now:     time.Now,
	}
}

// Assemble builds the feature vector for a fixture from the latest non-stale
// record per source.
func (a *Assembler) Assemble(ctx context.Context, fixtureID uuid.UUID) (*models.FeatureVector, error) {
	start := time.Now()
	defer func() {
		metrics.FeatureAssemblyDuration.Observe(time.Since(start).Seconds())
	}()

	latest, err := a.records.ReadAllLatest(ctx, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest records: %w", err)
	}

	now := a.now()
	fresh := make(map[models.SourceKind]models.Payload)
	for kind, rec := range latest {
		if rec.IsStale(now) {
			a.logger.WithFields(logrus.Fields{
				"source":      kind,
				"fixture_id":  fixtureID,
				"captured_at": rec.CapturedAt,
			}).Debug("Dropping stale source record")
			continue
		}
		fresh[kind] = rec.Payload
	}

	mask := make(models.CompletenessMask, len(models.AllFeatureGroups))
	for group, sources := range GroupSources {
		for _, src := range sources {
			if _, ok := fresh[src]; ok {
				mask[group] = true
				break
			}
		}
	}

	values := make([]float64, len(Schema))
	for i, f := range Schema {
		values[i] = f.Neutral
	}

	if mask[models.GroupForm] || mask[models.GroupFatigue] {
		if p, ok := fresh[models.SourceStandings].(models.StandingsPayload); ok {
			a.applyStandings(values, p)
		}
	}
	if mask[models.GroupShotQuality] {
		if p, ok := fresh[models.SourceXG].(models.XGPayload); ok {
			a.applyXG(values, p)
		}
	}
	if mask[models.GroupMarket] {
		a.applyMarket(values, fresh)
	}
	if mask[models.GroupHeadToHead] {
		if p, ok := fresh[models.SourceHistoricalOdds].(models.HistoricalOddsPayload); ok {
			a.applyHeadToHead(values, p)
		}
	}
	if mask[models.GroupSquadStrength] {
		a.applySquadStrength(values, fresh)
	}

	fv := &models.FeatureVector{
		FixtureID:     fixtureID,
		SchemaVersion: SchemaVersion,
		ComputedAt:    now.UTC(),
		Names:         Names(),
		Values:        values,
		Completeness:  mask,
	}

	if missing := mask.Missing(); len(missing) > 0 {
		a.logger.WithFields(logrus.Fields{
			"fixture_id":     fixtureID,
			"missing_groups": missing,
		}).Debug("Assembled feature vector with neutral defaults")
	}

	return fv, nil
}

func set(values []float64, name string, v float64) {
	if i, err := Index(name); err == nil {
		values[i] = v
	}
}

// applyStandings fills the form and fatigue groups
func (a *Assembler) applyStandings(values []float64, p models.StandingsPayload) {
	homeForm := weightedFormPoints(p.HomeRecentForm)
	awayForm := weightedFormPoints(p.AwayRecentForm)
	set(values, "form_home_weighted_points", homeForm)
	set(values, "form_away_weighted_points", awayForm)
	set(values, "form_ppg_diff", p.HomePointsPerGame-p.AwayPointsPerGame)

	if p.LeagueSize > 1 {
		gap := float64(p.AwayPosition-p.HomePosition) / float64(p.LeagueSize-1)
		set(values, "form_position_gap", gap)
	}

	homeRest := clampRestDays(p.HomeDaysSinceLastMatch)
	awayRest := clampRestDays(p.AwayDaysSinceLastMatch)
	set(values, "fatigue_home_rest_days", homeRest)
	set(values, "fatigue_away_rest_days", awayRest)
	set(values, "fatigue_rest_advantage", homeRest-awayRest)
}

// applyXG fills the shot-quality group
func (a *Assembler) applyXG(values []float64, p models.XGPayload) {
	n := float64(p.MatchesSampled)
	if n < 1 {
		n = 1
	}
	homeFor := p.HomeXGFor / n
	homeAgainst := p.HomeXGAgainst / n
	awayFor := p.AwayXGFor / n
	awayAgainst := p.AwayXGAgainst / n

	set(values, "shot_home_xg_for", homeFor)
	set(values, "shot_home_xg_against", homeAgainst)
	set(values, "shot_away_xg_for", awayFor)
	set(values, "shot_away_xg_against", awayAgainst)

	// Rate ratio of home attack vs away attack, both adjusted by the
	// opposing defense
	homeAttack := homeFor * awayAgainst
	awayAttack := awayFor * homeAgainst
	if awayAttack > 0 {
		set(values, "shot_xg_ratio", homeAttack/awayAttack)
	}
}

// applyMarket fills the market group from whichever market sources are fresh
func (a *Assembler) applyMarket(values []float64, fresh map[models.SourceKind]models.Payload) {
	var exchangeImplied [models.NumOutcomes]float64
	haveExchange := false

	if p, ok := fresh[models.SourceExchangeOdds].(models.OddsPayload); ok {
		odds := models.MarketOdds{Home: p.Home, Draw: p.Draw, Away: p.Away}
		if implied, err := odds.ImpliedProbabilities(); err == nil {
			exchangeImplied = implied
			haveExchange = true
			set(values, "market_implied_home", implied[models.OutcomeHome])
			set(values, "market_implied_draw", implied[models.OutcomeDraw])
			set(values, "market_implied_away", implied[models.OutcomeAway])
		}
	}

	if p, ok := fresh[models.SourceClosingLine].(models.OddsPayload); ok && haveExchange {
		odds := models.MarketOdds{Home: p.Home, Draw: p.Draw, Away: p.Away}
		if implied, err := odds.ImpliedProbabilities(); err == nil {
			set(values, "market_closing_drift_home",
				exchangeImplied[models.OutcomeHome]-implied[models.OutcomeHome])
		}
	}

	if p, ok := fresh[models.SourceLiveScores].(models.LiveScorePayload); ok {
		set(values, "market_live_goal_diff", float64(p.HomeGoals-p.AwayGoals))
		set(values, "market_live_minutes_ratio", math.Min(float64(p.MinutesPlayed)/90.0, 1.0))
	}
}

// applyHeadToHead fills the head-to-head group
func (a *Assembler) applyHeadToHead(values []float64, p models.HistoricalOddsPayload) {
	if p.Meetings > 0 {
		n := float64(p.Meetings)
		set(values, "h2h_home_win_rate", float64(p.HomeWins)/n)
		set(values, "h2h_draw_rate", float64(p.Draws)/n)
		set(values, "h2h_away_win_rate", float64(p.AwayWins)/n)
	}
	if p.AvgHomeClosing > 1.0 {
		set(values, "h2h_avg_home_closing_implied", 1.0/p.AvgHomeClosing)
	}
}

// applySquadStrength fills the squad-strength group from ratings and valuations
func (a *Assembler) applySquadStrength(values []float64, fresh map[models.SourceKind]models.Payload) {
	if p, ok := fresh[models.SourceRatings].(models.RatingsPayload); ok {
		// Elo-style scaling keeps the diff in a small numeric range
		set(values, "squad_rating_diff", (p.HomeRating-p.AwayRating)/400.0)
		set(values, "squad_rating_momentum", (p.HomeRatingDelta-p.AwayRatingDelta)/100.0)
	}
	if p, ok := fresh[models.SourceValuations].(models.ValuationsPayload); ok {
		home, _ := p.HomeSquadValue.Float64()
		away, _ := p.AwaySquadValue.Float64()
		if home > 0 && away > 0 {
			set(values, "squad_value_ratio_log", math.Log(home/away))
		}
	}
}

// weightedFormPoints converts a form string ("WWDLW", most recent last) into
// recency-weighted points per game. W=3, D=1, L=0 with geometric decay.
func weightedFormPoints(form string) float64 {
	if len(form) == 0 {
		return 1.35
	}

	const decay = 0.8
	weight := 1.0
	totalWeight := 0.0
	totalPoints := 0.0

	// Walk most recent first
	for i := len(form) - 1; i >= 0; i-- {
		points := 0.0
		switch form[i] {
		case 'W', 'w':
			points = 3
		case 'D', 'd':
			points = 1
		case 'L', 'l':
			points = 0
		default:
			continue
		}
		totalPoints += points * weight
		totalWeight += weight
		weight *= decay
	}

	if totalWeight == 0 {
		return 1.35
	}
	return totalPoints / totalWeight
}

// clampRestDays bounds rest days to a sane range; congestion effects saturate
func clampRestDays(days int) float64 {
	if days < 0 {
		return 0
	}
	if days > 14 {
		return 14
	}
	return float64(days)
}
