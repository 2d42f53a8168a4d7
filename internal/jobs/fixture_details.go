package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/transform"
)

// FixtureDetailsBackfill scans fixtures within Days days old, in a final
// status, missing a raw /fixtures/players call, and fetches all four
// per-fixture endpoints for them, bounded per run.
type FixtureDetailsBackfill struct {
	Days int
}

func (j FixtureDetailsBackfill) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	days := j.Days
	if d := intParam(spec.Params, "days", 0); d > 0 {
		days = d
	}
	limit := clampInt(intParam(spec.Params, "max_per_run", 50), 1, 500)

	fixtures, err := deps.Core.FixturesMissingDetails(ctx, days, limit)
	if err != nil {
		return fmt.Errorf("query fixtures missing details: %w", err)
	}
	for _, f := range fixtures {
		fetchFixtureDetails(ctx, deps, f.ID)
	}
	return nil
}

// FixtureDetailsRecentFinalize covers fixtures finalized in the last 24h
// plus a kickoff window (T-2h..T+1h), keeping lineups/events current for
// matches that just concluded or are about to start.
type FixtureDetailsRecentFinalize struct{}

func (FixtureDetailsRecentFinalize) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	limit := clampInt(intParam(spec.Params, "max_per_run", 100), 1, 1000)
	fixtures, err := deps.Core.FixturesRecentlyFinalized(ctx, limit)
	if err != nil {
		return fmt.Errorf("query recently finalized fixtures: %w", err)
	}
	for _, f := range fixtures {
		fetchFixtureDetails(ctx, deps, f.ID)
	}
	return nil
}

// fetchFixtureDetails fetches and persists events/players/statistics/
// lineups for one fixture, logging and continuing past a per-endpoint
// failure so one bad sub-resource doesn't lose the other three.
func fetchFixtureDetails(ctx context.Context, deps *Deps, fixtureID int64) {
	events, err := deps.Client.GetFixtureEvents(ctx, fixtureID)
	if err != nil {
		deps.Logger.Error("fixture_events_fetch_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
	} else {
		for _, row := range transform.FixtureEvents(events, fixtureID) {
			if err := deps.Core.UpsertFixtureEvent(ctx, row); err != nil {
				deps.Logger.Error("fixture_event_upsert_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
			}
		}
	}

	if items, err := fetchFixtureSubresource[transform.FixturePlayersResponseItem](ctx, deps, "/fixtures/players", fixtureID); err != nil {
		deps.Logger.Error("fixture_players_fetch_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
	} else {
		for _, row := range transform.FixturePlayers(items, fixtureID) {
			if err := deps.Core.UpsertFixturePlayer(ctx, row); err != nil {
				deps.Logger.Error("fixture_player_upsert_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
			}
		}
	}

	if items, err := fetchFixtureSubresource[transform.FixtureStatisticsResponseItem](ctx, deps, "/fixtures/statistics", fixtureID); err != nil {
		deps.Logger.Error("fixture_statistics_fetch_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
	} else {
		for _, row := range transform.FixtureStatistics(items, fixtureID) {
			if err := deps.Core.UpsertFixtureStatistics(ctx, row); err != nil {
				deps.Logger.Error("fixture_statistics_upsert_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
			}
		}
	}

	if items, err := fetchFixtureSubresource[transform.FixtureLineupResponseItem](ctx, deps, "/fixtures/lineups", fixtureID); err != nil {
		deps.Logger.Error("fixture_lineups_fetch_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
	} else {
		for _, row := range transform.FixtureLineups(items, fixtureID) {
			if err := deps.Core.UpsertFixtureLineup(ctx, row); err != nil {
				deps.Logger.Error("fixture_lineup_upsert_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
			}
		}
	}

	if err := deps.Core.RebuildFixtureDetails(ctx, fixtureID); err != nil {
		deps.Logger.Error("fixture_details_rebuild_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
	}
}

// fetchFixtureSubresource fetches and archives one of the three
// per-fixture endpoints whose response item shape doesn't warrant its
// own typed apifootball.Client method.
func fetchFixtureSubresource[T any](ctx context.Context, deps *Deps, endpoint string, fixtureID int64) ([]T, error) {
	params := map[string]string{"fixture": fmt.Sprint(fixtureID)}
	env, err := deps.Client.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	rawParams := map[string]interface{}{"fixture": fixtureID}
	if _, err := deps.Raw.Store(ctx, endpoint, rawParams, 200, env.Response, 0); err != nil {
		deps.Logger.Error("archive_raw_failed", zap.String("endpoint", endpoint), zap.Error(err))
	}

	var items []T
	if err := json.Unmarshal(env.Response, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return items, nil
}
