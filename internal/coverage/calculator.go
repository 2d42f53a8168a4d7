// Package coverage computes per-league, per-endpoint data-quality scores
// from raw/core row counts and freshness, mirroring the weighted formula
// the original collector uses to drive its coverage dashboard.
package coverage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// lagSentinelMinutes is returned when a league/endpoint has no rows at
// all yet, so freshness scores to zero instead of looking artificially
// fresh.
const lagSentinelMinutes = 9999

// Weights is the count/freshness/pipeline weighting, renormalized when a
// league has no configured expected-fixture count.
type Weights struct {
	Count     float64
	Freshness float64
	Pipeline  float64
}

// Config is the coverage calculator's tunables.
type Config struct {
	ExpectedFixtures map[int]int
	MaxLagMinutes    int
	Weights          Weights
}

// Report is one endpoint's coverage scorecard for a league/season.
type Report struct {
	LeagueID          int
	LeagueName        string
	Season            int
	Endpoint          string
	ExpectedCount     *int
	ActualCount       int
	CountCoverage     *float64
	LastUpdate        *string
	LagMinutes        int
	FreshnessCoverage float64
	RawCount          int
	CoreCount         int
	PipelineCoverage  float64
	OverallCoverage   float64
}

// Calculator computes coverage reports by querying raw/core tables
// directly, the way the original calculator issues scalar SQL queries.
type Calculator struct {
	db  *pgxpool.Pool
	cfg Config
}

// New builds a Calculator over db.
func New(db *pgxpool.Pool, cfg Config) *Calculator {
	return &Calculator{db: db, cfg: cfg}
}

func lagMinutes(lastUpdate *time.Time) int {
	if lastUpdate == nil {
		return lagSentinelMinutes
	}
	return int(time.Since(*lastUpdate).Minutes())
}

func (c *Calculator) scalarInt(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := c.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("coverage scalar query: %w", err)
	}
	return n, nil
}

func (c *Calculator) lastUpdate(ctx context.Context, query string, args ...interface{}) (*time.Time, error) {
	var ts *time.Time
	if err := c.db.QueryRow(ctx, query, args...).Scan(&ts); err != nil {
		return nil, fmt.Errorf("coverage last-update query: %w", err)
	}
	return ts, nil
}

func (c *Calculator) leagueName(ctx context.Context, leagueID int) string {
	var name string
	if err := c.db.QueryRow(ctx, `SELECT name FROM core.leagues WHERE id = $1`, leagueID).Scan(&name); err != nil {
		return ""
	}
	return name
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// FixturesCoverage scores the /fixtures endpoint for a league/season.
func (c *Calculator) FixturesCoverage(ctx context.Context, leagueID, season int) (Report, error) {
	expected, expectedKnown := c.cfg.ExpectedFixtures[leagueID]

	actual, err := c.scalarInt(ctx, `SELECT COUNT(*) FROM core.fixtures WHERE league_id = $1 AND season = $2`, leagueID, season)
	if err != nil {
		return Report{}, err
	}

	lastUpdate, err := c.lastUpdate(ctx, `SELECT MAX(updated_at) FROM core.fixtures WHERE league_id = $1 AND season = $2`, leagueID, season)
	if err != nil {
		return Report{}, err
	}
	lag := lagMinutes(lastUpdate)

	maxLag := c.cfg.MaxLagMinutes
	freshness := 0.0
	if maxLag > 0 {
		freshness = max0(100.0 - (float64(lag)/float64(maxLag))*100.0)
	}

	rawCount, err := c.scalarInt(ctx, `
		SELECT COUNT(*) FROM raw.api_responses
		WHERE endpoint = '/fixtures' AND fetched_at > NOW() - INTERVAL '24 hours'
		  AND requested_params->>'league' = $1 AND requested_params->>'season' = $2
	`, fmt.Sprint(leagueID), fmt.Sprint(season))
	if err != nil {
		return Report{}, err
	}

	pipeline := 0.0
	if rawCount > 0 {
		pipeline = float64(actual) / float64(rawCount) * 100.0
	}

	w := c.cfg.Weights
	var countCov *float64
	var overall float64
	if expectedKnown && expected > 0 {
		cc := float64(actual) / float64(expected) * 100.0
		countCov = &cc
		overall = cc*w.Count + freshness*w.Freshness + pipeline*w.Pipeline
	} else {
		denom := w.Freshness + w.Pipeline
		if denom == 0 {
			denom = 1.0
		}
		overall = (freshness*w.Freshness + pipeline*w.Pipeline) / denom
	}

	report := Report{
		LeagueID:          leagueID,
		LeagueName:        c.leagueName(ctx, leagueID),
		Season:            season,
		Endpoint:          "/fixtures",
		ActualCount:       actual,
		LagMinutes:        lag,
		FreshnessCoverage: round2(freshness),
		RawCount:          rawCount,
		CoreCount:         actual,
		PipelineCoverage:  round2(pipeline),
		OverallCoverage:   round2(overall),
	}
	if expectedKnown {
		e := expected
		report.ExpectedCount = &e
	}
	if countCov != nil {
		cc := round2(*countCov)
		report.CountCoverage = &cc
	}
	if lastUpdate != nil {
		s := lastUpdate.UTC().Format(time.RFC3339)
		report.LastUpdate = &s
	}
	return report, nil
}

// InjuriesCoverage scores the /injuries endpoint (current-only: presence
// plus freshness, expected_count is always 1).
func (c *Calculator) InjuriesCoverage(ctx context.Context, leagueID, season int) (Report, error) {
	coreTotal, err := c.scalarInt(ctx, `SELECT COUNT(*) FROM core.injuries WHERE league_id = $1 AND season = $2`, leagueID, season)
	if err != nil {
		return Report{}, err
	}
	actual := 0
	if coreTotal > 0 {
		actual = 1
	}
	countCov := 0.0
	if actual >= 1 {
		countCov = 100.0
	}

	lastUpdate, err := c.lastUpdate(ctx, `SELECT MAX(updated_at) FROM core.injuries WHERE league_id = $1 AND season = $2`, leagueID, season)
	if err != nil {
		return Report{}, err
	}
	lag := lagMinutes(lastUpdate)
	maxLag := c.cfg.MaxLagMinutes
	freshness := 0.0
	if maxLag > 0 {
		freshness = max0(100.0 - (float64(lag)/float64(maxLag))*100.0)
	}

	rawCount, err := c.scalarInt(ctx, `
		SELECT COUNT(*) FROM raw.api_responses
		WHERE endpoint = '/injuries' AND fetched_at > NOW() - INTERVAL '24 hours'
		  AND requested_params->>'league' = $1 AND requested_params->>'season' = $2
	`, fmt.Sprint(leagueID), fmt.Sprint(season))
	if err != nil {
		return Report{}, err
	}

	pipeline := 0.0
	if rawCount > 0 {
		pipeline = 100.0
	}

	w := c.cfg.Weights
	overall := countCov*w.Count + freshness*w.Freshness + pipeline*w.Pipeline

	expected := 1
	report := Report{
		LeagueID:          leagueID,
		LeagueName:        c.leagueName(ctx, leagueID),
		Season:            season,
		Endpoint:          "/injuries",
		ExpectedCount:      &expected,
		ActualCount:       actual,
		LagMinutes:        lag,
		FreshnessCoverage: round2(freshness),
		RawCount:          rawCount,
		CoreCount:         coreTotal,
		PipelineCoverage:  round2(pipeline),
		OverallCoverage:   round2(overall),
	}
	cc := round2(countCov)
	report.CountCoverage = &cc
	if lastUpdate != nil {
		s := lastUpdate.UTC().Format(time.RFC3339)
		report.LastUpdate = &s
	}
	return report, nil
}

// FixtureEndpointCoverage scores a per-fixture endpoint (players, events,
// statistics, lineups) over a rolling window of completed fixtures.
func (c *Calculator) FixtureEndpointCoverage(ctx context.Context, leagueID, season int, endpoint, coreTable string, days int) (Report, error) {
	expected, err := c.scalarInt(ctx, `
		SELECT COUNT(*) FROM core.fixtures
		WHERE league_id = $1 AND season = $2
		  AND date >= NOW() - ($3 || ' days')::interval
		  AND status_short = ANY(ARRAY['FT','AET','PEN'])
	`, leagueID, season, days)
	if err != nil {
		return Report{}, err
	}

	rawFixtures, err := c.scalarInt(ctx, `
		SELECT COUNT(DISTINCT f.id)
		FROM raw.api_responses r
		JOIN core.fixtures f ON f.id = (r.requested_params->>'fixture')::bigint
		WHERE r.endpoint = $1 AND f.league_id = $2 AND f.season = $3
		  AND f.date >= NOW() - ($4 || ' days')::interval
		  AND f.status_short = ANY(ARRAY['FT','AET','PEN'])
	`, endpoint, leagueID, season, days)
	if err != nil {
		return Report{}, err
	}

	coreQuery := fmt.Sprintf(`
		SELECT COUNT(DISTINCT t.fixture_id)
		FROM %s t
		JOIN core.fixtures f ON f.id = t.fixture_id
		WHERE f.league_id = $1 AND f.season = $2
		  AND f.date >= NOW() - ($3 || ' days')::interval
		  AND f.status_short = ANY(ARRAY['FT','AET','PEN'])
	`, coreTable)
	coreFixtures, err := c.scalarInt(ctx, coreQuery, leagueID, season, days)
	if err != nil {
		return Report{}, err
	}

	countCov := 0.0
	if expected > 0 {
		countCov = float64(rawFixtures) / float64(expected) * 100.0
	}

	lastUpdate, err := c.lastUpdate(ctx, `
		SELECT MAX(r.fetched_at)
		FROM raw.api_responses r
		JOIN core.fixtures f ON f.id = (r.requested_params->>'fixture')::bigint
		WHERE r.endpoint = $1 AND f.league_id = $2 AND f.season = $3
	`, endpoint, leagueID, season)
	if err != nil {
		return Report{}, err
	}
	lag := lagMinutes(lastUpdate)
	maxLag := c.cfg.MaxLagMinutes
	freshness := 0.0
	if maxLag > 0 {
		freshness = max0(100.0 - (float64(lag)/float64(maxLag))*100.0)
	}

	rawCount24h, err := c.scalarInt(ctx, `
		SELECT COUNT(*)
		FROM raw.api_responses r
		JOIN core.fixtures f ON f.id = (r.requested_params->>'fixture')::bigint
		WHERE r.endpoint = $1 AND r.fetched_at > NOW() - INTERVAL '24 hours'
		  AND f.league_id = $2 AND f.season = $3
	`, endpoint, leagueID, season)
	if err != nil {
		return Report{}, err
	}

	pipeline := 0.0
	if rawFixtures > 0 {
		pipeline = float64(coreFixtures) / float64(rawFixtures) * 100.0
	}

	w := c.cfg.Weights
	overall := countCov*w.Count + freshness*w.Freshness + pipeline*w.Pipeline

	report := Report{
		LeagueID:          leagueID,
		LeagueName:        c.leagueName(ctx, leagueID),
		Season:            season,
		Endpoint:          endpoint,
		ExpectedCount:     &expected,
		ActualCount:       rawFixtures,
		LagMinutes:        lag,
		FreshnessCoverage: round2(freshness),
		RawCount:          rawCount24h,
		CoreCount:         coreFixtures,
		PipelineCoverage:  round2(pipeline),
		OverallCoverage:   round2(overall),
	}
	cc := round2(countCov)
	report.CountCoverage = &cc
	if lastUpdate != nil {
		s := lastUpdate.UTC().Format(time.RFC3339)
		report.LastUpdate = &s
	}
	return report, nil
}

// TopScorersCoverage scores /players/topscorers: presence plus freshness,
// the same shape as InjuriesCoverage since the endpoint returns one
// leaderboard rather than a per-entity count.
func (c *Calculator) TopScorersCoverage(ctx context.Context, leagueID, season int) (Report, error) {
	coreTotal, err := c.scalarInt(ctx, `SELECT COUNT(*) FROM core.top_scorers WHERE league_id = $1 AND season = $2`, leagueID, season)
	if err != nil {
		return Report{}, err
	}
	actual := 0
	if coreTotal > 0 {
		actual = 1
	}
	countCov := 0.0
	if actual >= 1 {
		countCov = 100.0
	}

	lastUpdate, err := c.lastUpdate(ctx, `SELECT MAX(updated_at) FROM core.top_scorers WHERE league_id = $1 AND season = $2`, leagueID, season)
	if err != nil {
		return Report{}, err
	}
	lag := lagMinutes(lastUpdate)
	maxLag := c.cfg.MaxLagMinutes
	freshness := 0.0
	if maxLag > 0 {
		freshness = max0(100.0 - (float64(lag)/float64(maxLag))*100.0)
	}

	rawCount, err := c.scalarInt(ctx, `
		SELECT COUNT(*) FROM raw.api_responses
		WHERE endpoint = '/players/topscorers' AND fetched_at > NOW() - INTERVAL '24 hours'
		  AND requested_params->>'league' = $1 AND requested_params->>'season' = $2
	`, fmt.Sprint(leagueID), fmt.Sprint(season))
	if err != nil {
		return Report{}, err
	}
	pipeline := 0.0
	if rawCount > 0 {
		pipeline = 100.0
	}

	w := c.cfg.Weights
	overall := countCov*w.Count + freshness*w.Freshness + pipeline*w.Pipeline

	expected := 1
	report := Report{
		LeagueID:          leagueID,
		LeagueName:        c.leagueName(ctx, leagueID),
		Season:            season,
		Endpoint:          "/players/topscorers",
		ExpectedCount:     &expected,
		ActualCount:       actual,
		LagMinutes:        lag,
		FreshnessCoverage: round2(freshness),
		RawCount:          rawCount,
		CoreCount:         coreTotal,
		PipelineCoverage:  round2(pipeline),
		OverallCoverage:   round2(overall),
	}
	cc := round2(countCov)
	report.CountCoverage = &cc
	if lastUpdate != nil {
		s := lastUpdate.UTC().Format(time.RFC3339)
		report.LastUpdate = &s
	}
	return report, nil
}

// TeamStatisticsCoverage scores /teams/statistics against the number of
// distinct teams observed in core.fixtures for the league/season - the
// expected denominator for a distributed, per-team endpoint.
func (c *Calculator) TeamStatisticsCoverage(ctx context.Context, leagueID, season int) (Report, error) {
	expected, err := c.scalarInt(ctx, `
		SELECT COUNT(DISTINCT team_id) FROM (
			SELECT home_team_id AS team_id FROM core.fixtures WHERE league_id = $1 AND season = $2
			UNION
			SELECT away_team_id AS team_id FROM core.fixtures WHERE league_id = $1 AND season = $2
		) t
	`, leagueID, season)
	if err != nil {
		return Report{}, err
	}

	actual, err := c.scalarInt(ctx, `SELECT COUNT(*) FROM core.team_statistics WHERE league_id = $1 AND season = $2`, leagueID, season)
	if err != nil {
		return Report{}, err
	}

	countCov := 0.0
	if expected > 0 {
		countCov = float64(actual) / float64(expected) * 100.0
	}

	lastUpdate, err := c.lastUpdate(ctx, `SELECT MAX(refreshed_at) FROM core.team_statistics WHERE league_id = $1 AND season = $2`, leagueID, season)
	if err != nil {
		return Report{}, err
	}
	lag := lagMinutes(lastUpdate)
	maxLag := c.cfg.MaxLagMinutes
	freshness := 0.0
	if maxLag > 0 {
		freshness = max0(100.0 - (float64(lag)/float64(maxLag))*100.0)
	}

	rawCount, err := c.scalarInt(ctx, `
		SELECT COUNT(*) FROM raw.api_responses
		WHERE endpoint = '/teams/statistics' AND fetched_at > NOW() - INTERVAL '24 hours'
		  AND requested_params->>'league' = $1 AND requested_params->>'season' = $2
	`, fmt.Sprint(leagueID), fmt.Sprint(season))
	if err != nil {
		return Report{}, err
	}
	pipeline := 0.0
	if rawCount > 0 {
		pipeline = float64(actual) / float64(rawCount) * 100.0
		if pipeline > 100.0 {
			pipeline = 100.0
		}
	}

	w := c.cfg.Weights
	overall := countCov*w.Count + freshness*w.Freshness + pipeline*w.Pipeline

	report := Report{
		LeagueID:          leagueID,
		LeagueName:        c.leagueName(ctx, leagueID),
		Season:            season,
		Endpoint:          "/teams/statistics",
		ExpectedCount:     &expected,
		ActualCount:       actual,
		LagMinutes:        lag,
		FreshnessCoverage: round2(freshness),
		RawCount:          rawCount,
		CoreCount:         actual,
		PipelineCoverage:  round2(pipeline),
		OverallCoverage:   round2(overall),
	}
	cc := round2(countCov)
	report.CountCoverage = &cc
	if lastUpdate != nil {
		s := lastUpdate.UTC().Format(time.RFC3339)
		report.LastUpdate = &s
	}
	return report, nil
}

func max0(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
