package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/config"
)

// SeasonRolloverWatch checks, once per distinct tracked season, whether a
// tracked league id already appears in next season's /leagues response -
// a signal that config should be bumped to the new season. It never
// rewrites config itself, only emits an actionable warning.
type SeasonRolloverWatch struct{}

func (SeasonRolloverWatch) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	if deps.Tracked == nil {
		return fmt.Errorf("season_rollover_watch: no tracked leagues configured")
	}

	nextSeasons := map[int]struct{}{}
	for _, s := range deps.Tracked.Seasons() {
		nextSeasons[s+1] = struct{}{}
	}

	availableByNextSeason := map[int]map[int64]struct{}{}
	for ns := range nextSeasons {
		leagues, err := deps.Client.GetLeagues(ctx, map[string]string{"season": fmt.Sprint(ns)})
		if err != nil {
			deps.Logger.Error("season_rollover_fetch_failed", zap.Int("next_season", ns), zap.Error(err))
			continue
		}
		ids := map[int64]struct{}{}
		for _, l := range leagues {
			ids[int64(l.League.ID)] = struct{}{}
		}
		availableByNextSeason[ns] = ids
	}

	for _, l := range deps.Tracked.Leagues {
		ns := l.Season + 1
		available, ok := availableByNextSeason[ns]
		if !ok {
			continue
		}
		if _, found := available[int64(l.ID)]; found {
			deps.Logger.Warn("season_rollover_available",
				zap.Int("league_id", l.ID), zap.String("league_name", l.Name),
				zap.Int("current_season", l.Season), zap.Int("next_season", ns),
				zap.String("action", fmt.Sprintf("update tracked_leagues entry for league %d to season=%d", l.ID, ns)),
			)
		}
	}
	return nil
}
