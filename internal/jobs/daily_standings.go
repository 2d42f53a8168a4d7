package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/storage/core"
	"github.com/mrab54/football-ingestor/internal/transform"
)

const standingsEndpoint = "/standings"

// DailyStandings refreshes standings tables for the tracked scope. When
// batch_size is set it round-robins at most N pairs per run using the
// persistent standings_refresh_progress cursor so a large tracked set
// doesn't burn the whole daily quota in one run and a restart resumes
// where the last run left off instead of starting a fresh lap;
// otherwise it processes every tracked pair.
type DailyStandings struct{}

func (DailyStandings) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	if deps.Tracked == nil {
		return fmt.Errorf("daily_standings: no tracked leagues configured")
	}
	pairs := deps.Tracked.Leagues
	batchSize := intParam(spec.Params, "batch_size", 0)

	var batch []config.TrackedLeague
	if batchSize <= 0 || batchSize >= len(pairs) {
		batch = pairs
	} else {
		cursor, err := deps.Core.StandingsRefreshCursor(ctx)
		if err != nil {
			return fmt.Errorf("read standings refresh cursor: %w", err)
		}
		start := cursor.Position % len(pairs)
		for i := 0; i < batchSize; i++ {
			batch = append(batch, pairs[(start+i)%len(pairs)])
		}
		next := (start + batchSize) % len(pairs)
		wrapped := start+batchSize >= len(pairs)
		if err := deps.Core.AdvanceStandingsRefreshCursor(ctx, next, wrapped); err != nil {
			return fmt.Errorf("advance standings refresh cursor: %w", err)
		}
	}

	forEachLeague(ctx, deps.Logger, "daily_standings", batch, func(ctx context.Context, l config.TrackedLeague) error {
		return refreshStandingsForLeague(ctx, deps, l)
	})
	return nil
}

func refreshStandingsForLeague(ctx context.Context, deps *Deps, l config.TrackedLeague) error {
	leagueType, known := deps.Core.LeagueType(ctx, l.ID)
	decision := deps.Scope.Decide(l.ID, l.Season, standingsEndpoint, func(int) (string, bool) { return leagueType, known })
	if !decision.InScope {
		deps.Logger.Debug("daily_standings_skipped_out_of_scope", zap.Int("league_id", l.ID), zap.String("reason", decision.Reason))
		return nil
	}

	groups, err := deps.Client.GetStandings(ctx, l.ID, l.Season)
	if err != nil {
		return fmt.Errorf("fetch standings league=%d: %w", l.ID, err)
	}
	if len(groups) == 0 {
		return nil
	}

	rows := transform.Standings(groups, int64(l.ID), l.Season)

	// Safety: a referenced team missing from core.teams is resolved via
	// EnsureTeam; if that fails, the replace is skipped and the error is
	// logged rather than leaving a partial/empty standings table.
	for _, row := range rows {
		bootstrapped, err := deps.Core.IsTeamBootstrapped(ctx, row.TeamID)
		if err != nil {
			return fmt.Errorf("check team bootstrapped team=%d: %w", row.TeamID, err)
		}
		if !bootstrapped {
			if err := deps.Resolver.EnsureTeam(ctx, row.TeamID); err != nil {
				deps.Logger.Error("daily_standings_missing_team_skip", zap.Int("league_id", l.ID), zap.Int64("team_id", row.TeamID), zap.Error(err))
				return nil
			}
		}
	}

	coreRows := make([]core.StandingRow, 0, len(rows))
	for _, r := range rows {
		coreRows = append(coreRows, core.StandingRow{
			LeagueID: r.LeagueID, Season: r.Season, TeamID: r.TeamID, Rank: r.Rank, GroupName: r.Group,
			Points: r.Points, Played: r.Played, Win: r.Win, Draw: r.Draw, Lose: r.Lose,
			GoalsFor: r.GoalsFor, GoalsAgt: r.GoalsAgt,
		})
	}

	err = deps.DB.WithTx(ctx, func(tx pgx.Tx) error {
		return deps.Core.ReplaceStandings(ctx, tx, int64(l.ID), l.Season, coreRows)
	})
	if err != nil {
		deps.Logger.Error("daily_standings_replace_failed", zap.Int("league_id", l.ID), zap.Int("season", l.Season), zap.Error(err))
		return nil
	}
	return nil
}
