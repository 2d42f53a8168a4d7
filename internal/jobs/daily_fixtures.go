package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/transform"
)

const fixturesEndpoint = "/fixtures"

// DailyFixturesByDate covers today's fixtures for the tracked scope, in
// one of two modes: per_league issues one /fixtures call per tracked
// (league, season) pair; global_by_date issues one paginated /fixtures
// call for the whole day and groups results by (league, season).
type DailyFixturesByDate struct{}

func (DailyFixturesByDate) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	mode, _ := spec.Params["mode"].(string)
	if mode == "" {
		mode = "per_league"
	}
	today := time.Now().UTC().Format("2006-01-02")

	switch mode {
	case "global_by_date":
		return runGlobalByDate(ctx, deps, today)
	default:
		return runPerLeague(ctx, deps, today)
	}
}

func runPerLeague(ctx context.Context, deps *Deps, date string) error {
	if deps.Tracked == nil {
		return fmt.Errorf("daily_fixtures_by_date: no tracked leagues configured")
	}
	forEachLeague(ctx, deps.Logger, "daily_fixtures_by_date", deps.Tracked.Leagues, func(ctx context.Context, l config.TrackedLeague) error {
		leagueType, known := deps.Core.LeagueType(ctx, l.ID)
		decision := deps.Scope.Decide(l.ID, l.Season, fixturesEndpoint, func(int) (string, bool) { return leagueType, known })
		if !decision.InScope {
			deps.Logger.Debug("daily_fixtures_skipped_out_of_scope", zap.Int("league_id", l.ID), zap.String("reason", decision.Reason))
			return nil
		}

		params := map[string]string{"league": fmt.Sprint(l.ID), "season": fmt.Sprint(l.Season), "date": date}
		env, err := deps.Client.Get(ctx, fixturesEndpoint, params)
		if err != nil {
			return fmt.Errorf("fetch fixtures league=%d: %w", l.ID, err)
		}
		if err := archiveAndPersistFixtures(ctx, deps, params, env); err != nil {
			return err
		}
		return nil
	})
	return nil
}

func runGlobalByDate(ctx context.Context, deps *Deps, date string) error {
	page := 1
	seen := map[int64]struct{}{}
	grouped := map[[2]int64][]apifootball.Fixture{}

	for {
		params := map[string]string{"date": date, "timezone": "UTC", "page": fmt.Sprint(page)}
		env, err := deps.Client.Get(ctx, fixturesEndpoint, params)
		if err != nil {
			return fmt.Errorf("fetch fixtures page=%d: %w", page, err)
		}

		if _, err := deps.Raw.Store(ctx, fixturesEndpoint, map[string]interface{}{"date": date, "timezone": "UTC", "page": page}, 200, env.Response, 0); err != nil {
			deps.Logger.Error("archive_raw_failed", zap.String("endpoint", fixturesEndpoint), zap.Error(err))
		}

		var fixtures []apifootball.Fixture
		if err := json.Unmarshal(env.Response, &fixtures); err != nil {
			return fmt.Errorf("decode fixtures page=%d: %w", page, err)
		}

		for _, f := range fixtures {
			if _, dup := seen[f.Fixture.ID]; dup {
				continue
			}
			seen[f.Fixture.ID] = struct{}{}
			key := [2]int64{f.League.ID, int64(f.League.Season)}
			grouped[key] = append(grouped[key], f)
		}

		if env.Paging.Total <= page || len(fixtures) == 0 {
			break
		}
		page++
	}

	for key, fixtures := range grouped {
		leagueID, season := key[0], int(key[1])
		leagueType, known := deps.Core.LeagueType(ctx, int(leagueID))
		decision := deps.Scope.Decide(int(leagueID), season, fixturesEndpoint, func(int) (string, bool) { return leagueType, known })
		if !decision.InScope {
			deps.Logger.Debug("daily_fixtures_global_skipped_out_of_scope", zap.Int64("league_id", leagueID), zap.String("reason", decision.Reason))
			continue
		}
		if err := persistFixtureGroup(ctx, deps, leagueID, season, fixtures); err != nil {
			deps.Logger.Error("daily_fixtures_global_persist_failed", zap.Int64("league_id", leagueID), zap.Int("season", season), zap.Error(err))
		}
	}
	return nil
}

// archiveAndPersistFixtures stores the raw envelope, then decodes and
// persists it - the per-league code path.
func archiveAndPersistFixtures(ctx context.Context, deps *Deps, params map[string]string, env *apifootball.Envelope) error {
	rawParams := map[string]interface{}{}
	for k, v := range params {
		rawParams[k] = v
	}
	if _, err := deps.Raw.Store(ctx, fixturesEndpoint, rawParams, 200, env.Response, 0); err != nil {
		deps.Logger.Error("archive_raw_failed", zap.String("endpoint", fixturesEndpoint), zap.Error(err))
	}

	var fixtures []apifootball.Fixture
	if err := json.Unmarshal(env.Response, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	if len(fixtures) == 0 {
		return nil
	}
	leagueID := fixtures[0].League.ID
	season := fixtures[0].League.Season
	return persistFixtureGroup(ctx, deps, leagueID, season, fixtures)
}

// persistFixtureGroup resolves dependencies (league/season/teams) then
// upserts a set of fixtures scoped to a single (league, season).
func persistFixtureGroup(ctx context.Context, deps *Deps, leagueID int64, season int, fixtures []apifootball.Fixture) error {
	if err := deps.Resolver.EnsureLeagueSeason(ctx, leagueID, season); err != nil {
		return fmt.Errorf("ensure league/season: %w", err)
	}

	if err := deps.Resolver.EnsureVenues(ctx, fixtures); err != nil {
		return fmt.Errorf("ensure venues: %w", err)
	}

	teamIDs := make([]int64, 0, len(fixtures)*2)
	for _, f := range fixtures {
		teamIDs = append(teamIDs, f.Teams.Home.ID, f.Teams.Away.ID)
	}
	if err := deps.Resolver.EnsureTeams(ctx, leagueID, season, teamIDs); err != nil {
		return fmt.Errorf("ensure teams: %w", err)
	}

	rows := transform.Fixtures(fixtures)
	for _, row := range rows {
		if err := deps.Core.UpsertFixture(ctx, row); err != nil {
			deps.Logger.Error("fixture_upsert_failed", zap.Int64("fixture_id", row.ID), zap.Error(err))
			continue
		}
		if err := deps.Core.RebuildFixtureDetails(ctx, row.ID); err != nil {
			deps.Logger.Error("fixture_details_rebuild_failed", zap.Int64("fixture_id", row.ID), zap.Error(err))
		}
	}
	return nil
}
