// Package mart persists computed coverage scorecards, the metrics tier
// consumed by the daily dashboard and live scoreboard views.
package mart

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrab54/football-ingestor/internal/coverage"
)

// Repository writes coverage.Report rows into mart.coverage.
type Repository struct {
	db *pgxpool.Pool
}

// New builds a mart Repository over db.
func New(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertCoverage writes one (league, season, endpoint) scorecard,
// recomputing calculated_at on every call.
func (r *Repository) UpsertCoverage(ctx context.Context, rep coverage.Report) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO mart.coverage (
			league_id, league_name, season, endpoint,
			expected_count, actual_count, count_coverage,
			last_update, lag_minutes, freshness_coverage,
			raw_count, core_count, pipeline_coverage,
			overall_coverage, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (league_id, season, endpoint) DO UPDATE SET
			league_name = EXCLUDED.league_name,
			expected_count = EXCLUDED.expected_count,
			actual_count = EXCLUDED.actual_count,
			count_coverage = EXCLUDED.count_coverage,
			last_update = EXCLUDED.last_update,
			lag_minutes = EXCLUDED.lag_minutes,
			freshness_coverage = EXCLUDED.freshness_coverage,
			raw_count = EXCLUDED.raw_count,
			core_count = EXCLUDED.core_count,
			pipeline_coverage = EXCLUDED.pipeline_coverage,
			overall_coverage = EXCLUDED.overall_coverage,
			calculated_at = NOW()
	`,
		rep.LeagueID, rep.LeagueName, rep.Season, rep.Endpoint,
		rep.ExpectedCount, rep.ActualCount, rep.CountCoverage,
		rep.LastUpdate, rep.LagMinutes, rep.FreshnessCoverage,
		rep.RawCount, rep.CoreCount, rep.PipelineCoverage,
		rep.OverallCoverage,
	)
	if err != nil {
		return fmt.Errorf("upsert mart coverage league=%d season=%d endpoint=%s: %w", rep.LeagueID, rep.Season, rep.Endpoint, err)
	}
	return nil
}

// RefreshDashboardViews refreshes the materialized views backing the
// daily dashboard and live scoreboard, non-concurrently, matching the
// original's refresh timing at the end of jobs that modify coverage.
func (r *Repository) RefreshDashboardViews(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `REFRESH MATERIALIZED VIEW mart.daily_dashboard`); err != nil {
		return fmt.Errorf("refresh daily_dashboard: %w", err)
	}
	if _, err := r.db.Exec(ctx, `REFRESH MATERIALIZED VIEW mart.live_scoreboard`); err != nil {
		return fmt.Errorf("refresh live_scoreboard: %w", err)
	}
	return nil
}
