package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/config"
)

// fixtureDetailEndpoints are the per-fixture sub-resources scored by
// FixtureEndpointCoverage, paired with the core table that holds them.
var fixtureDetailEndpoints = []struct {
	endpoint  string
	coreTable string
}{
	{"/fixtures/events", "core.fixture_events"},
	{"/fixtures/players", "core.fixture_players"},
	{"/fixtures/statistics", "core.fixture_statistics"},
	{"/fixtures/lineups", "core.fixture_lineups"},
}

// CoverageCompute scores every tracked (league, season) against every
// listed endpoint (the scope policy is not consulted) and writes the
// scorecards to the mart tier, satisfying spec.md's
// invariant that any endpoint with at least one successful raw envelope
// has a coverage row.
type CoverageCompute struct{}

func (CoverageCompute) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	if deps.Tracked == nil {
		return fmt.Errorf("coverage_compute: no tracked leagues configured")
	}
	windowDays := clampInt(intParam(spec.Params, "fixture_endpoint_window_days", 90), 1, 365)

	forEachLeague(ctx, deps.Logger, "coverage_compute", deps.Tracked.Leagues, func(ctx context.Context, l config.TrackedLeague) error {
		if rep, err := deps.Coverage.FixturesCoverage(ctx, l.ID, l.Season); err != nil {
			deps.Logger.Error("coverage_fixtures_failed", zap.Int("league_id", l.ID), zap.Error(err))
		} else if err := deps.Mart.UpsertCoverage(ctx, rep); err != nil {
			deps.Logger.Error("coverage_upsert_failed", zap.String("endpoint", "/fixtures"), zap.Error(err))
		}

		if rep, err := deps.Coverage.InjuriesCoverage(ctx, l.ID, l.Season); err != nil {
			deps.Logger.Error("coverage_injuries_failed", zap.Int("league_id", l.ID), zap.Error(err))
		} else if err := deps.Mart.UpsertCoverage(ctx, rep); err != nil {
			deps.Logger.Error("coverage_upsert_failed", zap.String("endpoint", "/injuries"), zap.Error(err))
		}

		if rep, err := deps.Coverage.TopScorersCoverage(ctx, l.ID, l.Season); err != nil {
			deps.Logger.Error("coverage_top_scorers_failed", zap.Int("league_id", l.ID), zap.Error(err))
		} else if err := deps.Mart.UpsertCoverage(ctx, rep); err != nil {
			deps.Logger.Error("coverage_upsert_failed", zap.String("endpoint", "/players/topscorers"), zap.Error(err))
		}

		if rep, err := deps.Coverage.TeamStatisticsCoverage(ctx, l.ID, l.Season); err != nil {
			deps.Logger.Error("coverage_team_statistics_failed", zap.Int("league_id", l.ID), zap.Error(err))
		} else if err := deps.Mart.UpsertCoverage(ctx, rep); err != nil {
			deps.Logger.Error("coverage_upsert_failed", zap.String("endpoint", "/teams/statistics"), zap.Error(err))
		}

		for _, fe := range fixtureDetailEndpoints {
			rep, err := deps.Coverage.FixtureEndpointCoverage(ctx, l.ID, l.Season, fe.endpoint, fe.coreTable, windowDays)
			if err != nil {
				deps.Logger.Error("coverage_fixture_endpoint_failed", zap.Int("league_id", l.ID), zap.String("endpoint", fe.endpoint), zap.Error(err))
				continue
			}
			if err := deps.Mart.UpsertCoverage(ctx, rep); err != nil {
				deps.Logger.Error("coverage_upsert_failed", zap.String("endpoint", fe.endpoint), zap.Error(err))
			}
		}
		return nil
	})

	if err := deps.Mart.RefreshDashboardViews(ctx); err != nil {
		deps.Logger.Error("coverage_dashboard_refresh_failed", zap.Error(err))
	}
	return nil
}
