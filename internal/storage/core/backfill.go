package core

import (
	"context"
	"fmt"
)

// BackfillProgress is one resumable cursor row for a league/season pair
// within a named backfill job (fixtures, standings).
type BackfillProgress struct {
	JobID     string
	LeagueID  int64
	Season    int
	NextPage  int
	Completed bool
	LastError *string
}

// EnsureBackfillProgressRows seeds missing (job, league, season) progress
// rows at next_page=1 so a resumable backfill has a starting point.
func (r *Repository) EnsureBackfillProgressRows(ctx context.Context, jobID string, leagueIDs []int64, seasons []int) error {
	for _, lid := range leagueIDs {
		for _, season := range seasons {
			_, err := r.db.Exec(ctx, `
				INSERT INTO core.backfill_progress (job_id, league_id, season, next_page, completed)
				VALUES ($1, $2, $3, 1, false)
				ON CONFLICT (job_id, league_id, season) DO NOTHING
			`, jobID, lid, season)
			if err != nil {
				return fmt.Errorf("seed backfill progress %s/%d/%d: %w", jobID, lid, season, err)
			}
		}
	}
	return nil
}

// NextBackfillBatch returns incomplete progress rows for a job, ordered
// so the same league/season keeps being advanced before moving on.
func (r *Repository) NextBackfillBatch(ctx context.Context, jobID string, limit int) ([]BackfillProgress, error) {
	rows, err := r.db.Query(ctx, `
		SELECT job_id, league_id, season, next_page, completed, last_error
		FROM core.backfill_progress
		WHERE job_id = $1 AND completed = false
		ORDER BY league_id, season
		LIMIT $2
	`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("query backfill batch: %w", err)
	}
	defer rows.Close()

	var out []BackfillProgress
	for rows.Next() {
		var p BackfillProgress
		if err := rows.Scan(&p.JobID, &p.LeagueID, &p.Season, &p.NextPage, &p.Completed, &p.LastError); err != nil {
			return nil, fmt.Errorf("scan backfill progress: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// AdvanceBackfillProgress moves a progress row's cursor forward after a
// successful page fetch.
func (r *Repository) AdvanceBackfillProgress(ctx context.Context, jobID string, leagueID int64, season, nextPage int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE core.backfill_progress SET next_page = $4, last_error = NULL
		WHERE job_id = $1 AND league_id = $2 AND season = $3
	`, jobID, leagueID, season, nextPage)
	if err != nil {
		return fmt.Errorf("advance backfill progress: %w", err)
	}
	return nil
}

// CompleteBackfillProgress marks a progress row done - on empty results
// or a page beyond paging.total.
func (r *Repository) CompleteBackfillProgress(ctx context.Context, jobID string, leagueID int64, season int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE core.backfill_progress SET completed = true WHERE job_id = $1 AND league_id = $2 AND season = $3
	`, jobID, leagueID, season)
	if err != nil {
		return fmt.Errorf("complete backfill progress: %w", err)
	}
	return nil
}

// RecordBackfillError persists the last error for visibility without
// interrupting progress for other league/season pairs.
func (r *Repository) RecordBackfillError(ctx context.Context, jobID string, leagueID int64, season int, errMsg string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE core.backfill_progress SET last_error = $4 WHERE job_id = $1 AND league_id = $2 AND season = $3
	`, jobID, leagueID, season, errMsg)
	if err != nil {
		return fmt.Errorf("record backfill error: %w", err)
	}
	return nil
}
