package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/storage/core"
	"github.com/mrab54/football-ingestor/internal/transform"
)

// FixturesBackfillLeagueSeason resumeably backfills every page of
// /fixtures?league=L&season=S for the tracked scope, advancing
// next_page on success and marking a pair completed on empty results or
// once next_page exceeds paging.total.
type FixturesBackfillLeagueSeason struct{}

func (FixturesBackfillLeagueSeason) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	if deps.Tracked == nil {
		return fmt.Errorf("fixtures_backfill_league_season: no tracked leagues configured")
	}
	leagueIDs, seasons := scopePairs(deps.Tracked)
	if err := deps.Core.EnsureBackfillProgressRows(ctx, spec.ID, leagueIDs, seasons); err != nil {
		return fmt.Errorf("seed backfill progress: %w", err)
	}

	batchSize := clampInt(intParam(spec.Params, "batch_size", 5), 1, 50)
	batch, err := deps.Core.NextBackfillBatch(ctx, spec.ID, batchSize)
	if err != nil {
		return fmt.Errorf("load backfill batch: %w", err)
	}

	for _, p := range batch {
		params := map[string]string{"league": fmt.Sprint(p.LeagueID), "season": fmt.Sprint(p.Season), "page": fmt.Sprint(p.NextPage)}
		env, err := deps.Client.Get(ctx, fixturesEndpoint, params)
		if err != nil {
			deps.Logger.Error("fixtures_backfill_fetch_failed", zap.Int64("league_id", p.LeagueID), zap.Int("season", p.Season), zap.Error(err))
			_ = deps.Core.RecordBackfillError(ctx, spec.ID, p.LeagueID, p.Season, err.Error())
			continue
		}

		rawParams := map[string]interface{}{"league": p.LeagueID, "season": p.Season, "page": p.NextPage}
		if _, err := deps.Raw.Store(ctx, fixturesEndpoint, rawParams, 200, env.Response, 0); err != nil {
			deps.Logger.Error("archive_raw_failed", zap.String("endpoint", fixturesEndpoint), zap.Error(err))
		}

		var fixtures []apifootball.Fixture
		if err := json.Unmarshal(env.Response, &fixtures); err != nil {
			_ = deps.Core.RecordBackfillError(ctx, spec.ID, p.LeagueID, p.Season, err.Error())
			continue
		}

		if len(fixtures) == 0 || p.NextPage >= env.Paging.Total {
			if len(fixtures) > 0 {
				if err := persistFixtureGroup(ctx, deps, p.LeagueID, p.Season, fixtures); err != nil {
					deps.Logger.Error("fixtures_backfill_persist_failed", zap.Int64("league_id", p.LeagueID), zap.Error(err))
				}
			}
			_ = deps.Core.CompleteBackfillProgress(ctx, spec.ID, p.LeagueID, p.Season)
			continue
		}

		if err := persistFixtureGroup(ctx, deps, p.LeagueID, p.Season, fixtures); err != nil {
			deps.Logger.Error("fixtures_backfill_persist_failed", zap.Int64("league_id", p.LeagueID), zap.Error(err))
			_ = deps.Core.RecordBackfillError(ctx, spec.ID, p.LeagueID, p.Season, err.Error())
			continue
		}
		_ = deps.Core.AdvanceBackfillProgress(ctx, spec.ID, p.LeagueID, p.Season, p.NextPage+1)
	}
	return nil
}

// StandingsBackfillLeagueSeason resumeably backfills standings for the
// tracked scope - standings has no real pagination (one call returns the
// whole table) so the "page" cursor here just gates one attempt per run
// per pair before marking complete.
type StandingsBackfillLeagueSeason struct{}

func (StandingsBackfillLeagueSeason) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	if deps.Tracked == nil {
		return fmt.Errorf("standings_backfill_league_season: no tracked leagues configured")
	}
	leagueIDs, seasons := scopePairs(deps.Tracked)
	if err := deps.Core.EnsureBackfillProgressRows(ctx, spec.ID, leagueIDs, seasons); err != nil {
		return fmt.Errorf("seed backfill progress: %w", err)
	}

	batchSize := clampInt(intParam(spec.Params, "batch_size", 5), 1, 50)
	batch, err := deps.Core.NextBackfillBatch(ctx, spec.ID, batchSize)
	if err != nil {
		return fmt.Errorf("load backfill batch: %w", err)
	}

	for _, p := range batch {
		groups, err := deps.Client.GetStandings(ctx, int(p.LeagueID), p.Season)
		if err != nil {
			deps.Logger.Error("standings_backfill_fetch_failed", zap.Int64("league_id", p.LeagueID), zap.Error(err))
			_ = deps.Core.RecordBackfillError(ctx, spec.ID, p.LeagueID, p.Season, err.Error())
			continue
		}
		if len(groups) == 0 {
			_ = deps.Core.CompleteBackfillProgress(ctx, spec.ID, p.LeagueID, p.Season)
			continue
		}

		rows := transform.Standings(groups, p.LeagueID, p.Season)
		coreRows := make([]core.StandingRow, 0, len(rows))
		for _, r := range rows {
			coreRows = append(coreRows, core.StandingRow{
				LeagueID: r.LeagueID, Season: r.Season, TeamID: r.TeamID, Rank: r.Rank, GroupName: r.Group,
				Points: r.Points, Played: r.Played, Win: r.Win, Draw: r.Draw, Lose: r.Lose,
				GoalsFor: r.GoalsFor, GoalsAgt: r.GoalsAgt,
			})
		}

		err = deps.DB.WithTx(ctx, func(tx pgx.Tx) error {
			return deps.Core.ReplaceStandings(ctx, tx, p.LeagueID, p.Season, coreRows)
		})
		if err != nil {
			deps.Logger.Error("standings_backfill_replace_failed", zap.Int64("league_id", p.LeagueID), zap.Error(err))
			_ = deps.Core.RecordBackfillError(ctx, spec.ID, p.LeagueID, p.Season, err.Error())
			continue
		}
		_ = deps.Core.CompleteBackfillProgress(ctx, spec.ID, p.LeagueID, p.Season)
	}
	return nil
}

// scopePairs splits a tracked list into its distinct league ids and seasons.
func scopePairs(tracked *config.TrackedConfig) ([]int64, []int) {
	ids := make([]int64, 0, len(tracked.LeagueIDs()))
	for _, id := range tracked.LeagueIDs() {
		ids = append(ids, int64(id))
	}
	return ids, tracked.Seasons()
}
