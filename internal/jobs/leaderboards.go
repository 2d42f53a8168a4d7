package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/transform"
)

const topScorersEndpoint = "/players/topscorers"
const teamStatisticsEndpoint = "/teams/statistics"

// TopScorersDaily refreshes the top-scorers leaderboard for every tracked
// (league, season) pair.
type TopScorersDaily struct{}

func (TopScorersDaily) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	if deps.Tracked == nil {
		return fmt.Errorf("top_scorers_daily: no tracked leagues configured")
	}
	forEachLeague(ctx, deps.Logger, "top_scorers_daily", deps.Tracked.Leagues, func(ctx context.Context, l config.TrackedLeague) error {
		leagueType, known := deps.Core.LeagueType(ctx, l.ID)
		decision := deps.Scope.Decide(l.ID, l.Season, topScorersEndpoint, func(int) (string, bool) { return leagueType, known })
		if !decision.InScope {
			deps.Logger.Debug("top_scorers_skipped_out_of_scope", zap.Int("league_id", l.ID), zap.String("reason", decision.Reason))
			return nil
		}

		scorers, err := deps.Client.GetTopScorers(ctx, l.ID, l.Season)
		if err != nil {
			return fmt.Errorf("fetch top scorers league=%d: %w", l.ID, err)
		}
		for _, row := range transform.TopScorers(scorers, int64(l.ID), l.Season) {
			if err := deps.Core.UpsertTopScorer(ctx, row); err != nil {
				deps.Logger.Error("top_scorer_upsert_failed", zap.Int("league_id", l.ID), zap.Error(err))
			}
		}
		return nil
	})
	return nil
}

// TeamStatisticsRefresh is distributed: it discovers (league, season,
// team) triples from core.fixtures, seeds progress rows for any not yet
// tracked, then refreshes only entries whose last fetch is older than
// the configured interval, bounded by a per-run ceiling.
type TeamStatisticsRefresh struct{}

func (TeamStatisticsRefresh) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	if err := deps.Core.SeedTeamStatisticsProgress(ctx); err != nil {
		return fmt.Errorf("seed team statistics progress: %w", err)
	}

	refreshHours := intParam(spec.Params, "refresh_interval_hours", 24)
	limit := clampInt(intParam(spec.Params, "max_per_run", 50), 1, 500)

	stale, err := deps.Core.StaleTeamStatistics(ctx, refreshHours, limit)
	if err != nil {
		return fmt.Errorf("query stale team statistics: %w", err)
	}

	for _, e := range stale {
		leagueType, known := deps.Core.LeagueType(ctx, int(e.LeagueID))
		decision := deps.Scope.Decide(int(e.LeagueID), e.Season, teamStatisticsEndpoint, func(int) (string, bool) { return leagueType, known })
		if !decision.InScope {
			deps.Logger.Debug("team_statistics_skipped_out_of_scope", zap.Int64("league_id", e.LeagueID), zap.String("reason", decision.Reason))
			continue
		}

		stats, err := deps.Client.GetTeamStatistics(ctx, int(e.LeagueID), e.Season, e.TeamID)
		if err != nil {
			deps.Logger.Error("team_statistics_fetch_failed", zap.Int64("league_id", e.LeagueID), zap.Int64("team_id", e.TeamID), zap.Error(err))
			continue
		}
		row := transform.TeamStatisticsFromAPI(*stats)
		row.LeagueID, row.Season, row.TeamID = e.LeagueID, e.Season, e.TeamID
		if err := deps.Core.UpsertTeamStatistics(ctx, row); err != nil {
			deps.Logger.Error("team_statistics_upsert_failed", zap.Int64("team_id", e.TeamID), zap.Error(err))
			continue
		}
		if err := deps.Core.MarkTeamStatisticsFetched(ctx, e.LeagueID, e.Season, e.TeamID); err != nil {
			deps.Logger.Error("team_statistics_mark_fetched_failed", zap.Int64("team_id", e.TeamID), zap.Error(err))
		}
	}
	return nil
}
