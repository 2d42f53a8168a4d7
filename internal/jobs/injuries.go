package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/transform"
)

const injuriesEndpoint = "/injuries"

// InjuriesHourly refreshes /injuries for every tracked (league, season)
// pair, upserting rows keyed by a content-hash injury_key so repeat polls
// of an unresolved injury don't accumulate duplicates.
type InjuriesHourly struct{}

func (InjuriesHourly) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	if deps.Tracked == nil {
		return fmt.Errorf("injuries_hourly: no tracked leagues configured")
	}

	forEachLeague(ctx, deps.Logger, "injuries_hourly", deps.Tracked.Leagues, func(ctx context.Context, l config.TrackedLeague) error {
		leagueType, known := deps.Core.LeagueType(ctx, l.ID)
		decision := deps.Scope.Decide(l.ID, l.Season, injuriesEndpoint, func(int) (string, bool) { return leagueType, known })
		if !decision.InScope {
			deps.Logger.Debug("injuries_skipped_out_of_scope", zap.Int("league_id", l.ID), zap.String("reason", decision.Reason))
			return nil
		}

		params := map[string]string{"league": fmt.Sprint(l.ID), "season": fmt.Sprint(l.Season)}
		injuries, err := deps.Client.GetInjuries(ctx, params)
		if err != nil {
			return fmt.Errorf("fetch injuries league=%d: %w", l.ID, err)
		}

		for _, row := range transform.Injuries(injuries, int64(l.ID), l.Season) {
			if err := deps.Core.UpsertInjury(ctx, row); err != nil {
				deps.Logger.Error("injury_upsert_failed", zap.Int("league_id", l.ID), zap.Error(err))
			}
		}
		return nil
	})
	return nil
}
