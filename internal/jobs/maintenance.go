package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/config"
)

// liveStatuses are API-Football's in-play status codes - fixtures in
// these states are polled more aggressively by stale_live_refresh.
var liveStatuses = []string{"1H", "2H", "HT", "ET", "BT", "P", "LIVE", "SUSP", "INT"}

// intermediateStatuses are scheduled-or-in-play states that should have
// transitioned to a final status by now if the fixture weren't stuck.
var intermediateStatuses = []string{"NS", "HT", "2H", "1H", "LIVE", "BT", "ET", "P", "SUSP", "INT"}

// scheduledStatuses are pre-kickoff states.
var scheduledStatuses = []string{"NS", "TBD"}

// StaleLiveRefresh finds fixtures that look live but haven't been
// updated in N minutes and refetches them in batches of up to 20 via
// /fixtures?ids=id1-id2-....
type StaleLiveRefresh struct{}

func (StaleLiveRefresh) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	threshold := clampInt(intParam(spec.Params, "stale_threshold_minutes", 30), 5, 24*60)
	batchSize := clampInt(intParam(spec.Params, "batch_size", 20), 1, 20)

	stale, err := deps.Core.FixturesStaleSince(ctx, liveStatuses, threshold)
	if err != nil {
		return fmt.Errorf("query stale live fixtures: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(stale))
	for _, f := range stale {
		ids = append(ids, f.ID)
	}
	return refetchByIDs(ctx, deps, ids, batchSize)
}

// StaleScheduledFinalize finds fixtures still in NS/TBD whose scheduled
// kickoff is more than N minutes in the past and refetches them - a
// fixture that never flipped off "not started" usually got postponed or
// rescheduled without the tracker noticing.
type StaleScheduledFinalize struct{}

func (StaleScheduledFinalize) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	threshold := clampInt(intParam(spec.Params, "stale_threshold_minutes", 180), 5, 7*24*60)
	batchSize := clampInt(intParam(spec.Params, "batch_size", 20), 1, 20)

	stale, err := deps.Core.FixturesStaleSince(ctx, scheduledStatuses, threshold)
	if err != nil {
		return fmt.Errorf("query stale scheduled fixtures: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(stale))
	for _, f := range stale {
		ids = append(ids, f.ID)
	}
	return refetchByIDs(ctx, deps, ids, batchSize)
}

// refetchByIDs batch-fetches /fixtures?ids=... and upserts the results,
// continuing past a bad batch rather than aborting the whole run.
func refetchByIDs(ctx context.Context, deps *Deps, ids []int64, batchSize int) error {
	for _, batch := range chunkInt64(ids, batchSize) {
		idsParam := joinInt64(batch, "-")
		params := map[string]string{"ids": idsParam}

		env, err := deps.Client.Get(ctx, fixturesEndpoint, params)
		if err != nil {
			deps.Logger.Error("stale_refresh_fetch_failed", zap.String("ids", idsParam), zap.Error(err))
			continue
		}

		if _, err := deps.Raw.Store(ctx, fixturesEndpoint, map[string]interface{}{"ids": idsParam}, 200, env.Response, 0); err != nil {
			deps.Logger.Error("archive_raw_failed", zap.String("endpoint", fixturesEndpoint), zap.Error(err))
		}

		var fixtures []apifootball.Fixture
		if err := json.Unmarshal(env.Response, &fixtures); err != nil {
			deps.Logger.Error("stale_refresh_decode_failed", zap.Error(err))
			continue
		}

		grouped := map[[2]int64][]apifootball.Fixture{}
		for _, f := range fixtures {
			key := [2]int64{f.League.ID, int64(f.League.Season)}
			grouped[key] = append(grouped[key], f)
		}
		for key, group := range grouped {
			if err := persistFixtureGroup(ctx, deps, key[0], int(key[1]), group); err != nil {
				deps.Logger.Error("stale_refresh_persist_failed", zap.Int64("league_id", key[0]), zap.Error(err))
			}
		}
	}
	return nil
}

func joinInt64(ids []int64, sep string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += sep
		}
		out += fmt.Sprint(id)
	}
	return out
}

// AutoFinishStaleFixtures applies a double-threshold safety check to
// fixtures stuck in an intermediate live status: scheduled kickoff must
// be threshold_hours in the past AND the row must not have been updated
// in safety_lag_hours. When try_fetch_first is set it only refetches the
// candidates from the API, with no synthetic finish; otherwise (the
// default) it synthesizes a finish without an API call and flags the
// fixture for later verification.
type AutoFinishStaleFixtures struct{}

func (AutoFinishStaleFixtures) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	thresholdHours := clampInt(intParam(spec.Params, "threshold_hours", 2), 1, 7*24)
	safetyLagHours := clampInt(intParam(spec.Params, "safety_lag_hours", 3), 1, 7*24)
	maxFixtures := clampInt(intParam(spec.Params, "max_fixtures_per_run", 1000), 1, 10000)
	dryRun := boolParam(spec.Params, "dry_run", false)
	tryFetchFirst := boolParam(spec.Params, "try_fetch_first", false)

	candidates, err := staleIntermediateFixtures(ctx, deps, thresholdHours, safetyLagHours, maxFixtures)
	if err != nil {
		return fmt.Errorf("select stale intermediate fixtures: %w", err)
	}
	if len(candidates) == 0 || dryRun {
		if dryRun {
			deps.Logger.Info("auto_finish_stale_fixtures_dry_run", zap.Int("candidates", len(candidates)))
		}
		return nil
	}

	if tryFetchFirst {
		ids := make([]int64, 0, len(candidates))
		for _, id := range candidates {
			ids = append(ids, id)
		}
		return refetchByIDs(ctx, deps, ids, 20)
	}

	for _, id := range candidates {
		if err := deps.Core.FinalizeStaleFixtureSynthetic(ctx, id); err != nil {
			deps.Logger.Error("auto_finish_synthetic_failed", zap.Int64("fixture_id", id), zap.Error(err))
		}
	}
	deps.Logger.Info("auto_finish_stale_fixtures_complete", zap.Int("finished", len(candidates)))
	return nil
}

// staleIntermediateFixtures applies the double-threshold filter: a
// fixture only qualifies once its scheduled kickoff is thresholdHours in
// the past AND the row itself hasn't been touched in safetyLagHours -
// either alone risks force-finishing a fixture that merely polls slowly.
func staleIntermediateFixtures(ctx context.Context, deps *Deps, thresholdHours, safetyLagHours, limit int) ([]int64, error) {
	refs, err := deps.Core.StaleIntermediateFixtures(ctx, intermediateStatuses, thresholdHours, safetyLagHours*60, limit)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(refs))
	for _, f := range refs {
		out = append(out, f.ID)
	}
	return out, nil
}

// AutoFinishVerification, under a daily-quota guard, batch-refetches
// fixtures flagged needs_score_verification and clears the flag once a
// real result lands.
type AutoFinishVerification struct{}

func (AutoFinishVerification) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	minDailyQuota := clampInt(intParam(spec.Params, "min_daily_quota", 50000), 1000, 100000)
	batchSize := clampInt(intParam(spec.Params, "batch_size", 20), 1, 20)
	maxFixtures := clampInt(intParam(spec.Params, "max_fixtures_per_run", 200), 1, 10000)

	quota := deps.Limiter.Quota()
	if quota.DailyRemaining != nil && *quota.DailyRemaining < minDailyQuota {
		deps.Logger.Warn("auto_finish_verification_skipped_low_quota", zap.Int("daily_remaining", *quota.DailyRemaining), zap.Int("min_daily_quota", minDailyQuota))
		return nil
	}

	fixtures, err := deps.Core.FixturesNeedingVerification(ctx, maxFixtures)
	if err != nil {
		return fmt.Errorf("query fixtures needing verification: %w", err)
	}
	if len(fixtures) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(fixtures))
	for _, f := range fixtures {
		ids = append(ids, f.ID)
	}
	if err := refetchByIDs(ctx, deps, ids, batchSize); err != nil {
		return err
	}
	for _, id := range ids {
		if err := deps.Core.UpdateFixtureNeedsVerification(ctx, id, false); err != nil {
			deps.Logger.Error("auto_finish_verification_clear_flag_failed", zap.Int64("fixture_id", id), zap.Error(err))
		}
	}
	return nil
}
