// Package jobs implements the job catalogue's runnable job families -
// bootstrap, daily polling, backfill, and maintenance jobs - each
// driven by a config.JobSpec and a shared Deps bundle.
package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/coverage"
	"github.com/mrab54/football-ingestor/internal/delta"
	"github.com/mrab54/football-ingestor/internal/depresolve"
	"github.com/mrab54/football-ingestor/internal/ratelimit"
	"github.com/mrab54/football-ingestor/internal/scope"
	"github.com/mrab54/football-ingestor/internal/storage"
	"github.com/mrab54/football-ingestor/internal/storage/core"
	"github.com/mrab54/football-ingestor/internal/storage/mart"
	"github.com/mrab54/football-ingestor/internal/storage/raw"
)

// Deps bundles every shared component a job needs. One Deps is built once
// at startup and passed to every job run.
type Deps struct {
	Client   *apifootball.Client
	Limiter  *ratelimit.Limiter
	DB       *storage.DB
	Raw      *raw.Repository
	Core     *core.Repository
	Scope    *scope.Policy
	Delta    *delta.Detector
	Coverage *coverage.Calculator
	Mart     *mart.Repository
	Resolver *depresolve.Resolver
	Logger   *zap.Logger
	Tracked  *config.TrackedConfig
}

// Job is one runnable catalogue entry.
type Job interface {
	Run(ctx context.Context, deps *Deps, spec config.JobSpec) error
}

// Registry maps a catalogue entry's type string to its Job implementation.
var Registry = map[string]Job{
	"bootstrap_countries":             BootstrapCountries{},
	"bootstrap_timezones":             BootstrapTimezones{},
	"bootstrap_leagues":               BootstrapLeagues{},
	"bootstrap_teams":                 BootstrapTeams{},
	"daily_fixtures_by_date":          DailyFixturesByDate{},
	"daily_standings":                 DailyStandings{},
	"injuries_hourly":                 InjuriesHourly{},
	"top_scorers_daily":               TopScorersDaily{},
	"team_statistics_refresh":         TeamStatisticsRefresh{},
	"fixture_details_backfill_90d":    FixtureDetailsBackfill{Days: 90},
	"fixture_details_recent_finalize": FixtureDetailsRecentFinalize{},
	"fixtures_backfill_league_season": FixturesBackfillLeagueSeason{},
	"standings_backfill_league_season": StandingsBackfillLeagueSeason{},
	"season_rollover_watch":           SeasonRolloverWatch{},
	"stale_live_refresh":              StaleLiveRefresh{},
	"stale_scheduled_finalize":        StaleScheduledFinalize{},
	"auto_finish_stale_fixtures":      AutoFinishStaleFixtures{},
	"auto_finish_verification":        AutoFinishVerification{},
	"coverage_compute":                CoverageCompute{},
}

// forEachLeague runs fn for every tracked league, logging and continuing
// past a per-league failure rather than aborting the whole job - jobs
// scoped to many leagues must not let one bad league block the rest.
func forEachLeague(ctx context.Context, logger *zap.Logger, jobID string, leagues []config.TrackedLeague, fn func(ctx context.Context, l config.TrackedLeague) error) {
	for _, l := range leagues {
		if err := fn(ctx, l); err != nil {
			logger.Error("job_league_failed", zap.String("job", jobID), zap.Int("league_id", l.ID), zap.Int("season", l.Season), zap.Error(err))
		}
	}
}

// intParam reads an int-valued param from spec.Params, falling back to def.
func intParam(params map[string]interface{}, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// boolParam reads a bool-valued param from spec.Params, falling back to def.
func boolParam(params map[string]interface{}, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// int64SliceParam reads an int64 slice param (e.g. "leagues": [39, 61])
// from spec.Params.
func int64SliceParam(params map[string]interface{}, key string) []int64 {
	v, ok := params[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(raw))
	for _, item := range raw {
		switch n := item.(type) {
		case int:
			out = append(out, int64(n))
		case int64:
			out = append(out, n)
		case float64:
			out = append(out, int64(n))
		}
	}
	return out
}

// clampInt bounds v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chunkInt64 splits ids into batches of at most size, matching
// API-Football's ids=id1-id2-... batching limit.
func chunkInt64(ids []int64, size int) [][]int64 {
	if size <= 0 {
		return [][]int64{ids}
	}
	var out [][]int64
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}
