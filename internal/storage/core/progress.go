package core

import (
	"context"
	"fmt"
)

// StandingsCursor is the round-robin cursor daily_standings uses to
// spread a large tracked set across runs instead of refetching
// everything every time.
type StandingsCursor struct {
	Position int
	Lap      int
}

// StandingsRefreshCursor reads the persistent standings_refresh_progress
// singleton row, seeding it at position 0 / lap 0 on first use.
func (r *Repository) StandingsRefreshCursor(ctx context.Context) (StandingsCursor, error) {
	var c StandingsCursor
	err := r.db.QueryRow(ctx, `
		INSERT INTO core.standings_refresh_progress (id, position, lap)
		VALUES (1, 0, 0)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING position, lap
	`).Scan(&c.Position, &c.Lap)
	if err != nil {
		return StandingsCursor{}, fmt.Errorf("read standings refresh cursor: %w", err)
	}
	return c, nil
}

// AdvanceStandingsRefreshCursor persists the cursor's new position,
// incrementing lap whenever the cursor wraps back to (or past) 0.
func (r *Repository) AdvanceStandingsRefreshCursor(ctx context.Context, position int, wrapped bool) error {
	query := `UPDATE core.standings_refresh_progress SET position = $1, lap = lap + $2 WHERE id = 1`
	inc := 0
	if wrapped {
		inc = 1
	}
	if _, err := r.db.Exec(ctx, query, position, inc); err != nil {
		return fmt.Errorf("advance standings refresh cursor: %w", err)
	}
	return nil
}

// IsLeagueSeasonTeamsBootstrapped reports whether every team referenced
// by (leagueID, season) has already been resolved once, letting
// EnsureTeams skip a per-team existence check on the common path.
func (r *Repository) IsLeagueSeasonTeamsBootstrapped(ctx context.Context, leagueID int64, season int) (bool, error) {
	var complete bool
	err := r.db.QueryRow(ctx, `
		SELECT completed FROM core.team_bootstrap_progress WHERE league_id = $1 AND season = $2
	`, leagueID, season).Scan(&complete)
	if err != nil {
		return false, nil
	}
	return complete, nil
}

// MarkLeagueSeasonTeamsBootstrapped records (leagueID, season) as fully
// resolved.
func (r *Repository) MarkLeagueSeasonTeamsBootstrapped(ctx context.Context, leagueID int64, season int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.team_bootstrap_progress (league_id, season, completed, updated_at)
		VALUES ($1, $2, true, NOW())
		ON CONFLICT (league_id, season) DO UPDATE SET completed = true, updated_at = NOW()
	`, leagueID, season)
	if err != nil {
		return fmt.Errorf("mark teams bootstrapped league=%d season=%d: %w", leagueID, season, err)
	}
	return nil
}

// MarkLeagueSeasonTeamsIncomplete flips a (leagueID, season) marker back
// to incomplete, used when reconciliation finds a referenced team
// missing despite the marker claiming otherwise.
func (r *Repository) MarkLeagueSeasonTeamsIncomplete(ctx context.Context, leagueID int64, season int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE core.team_bootstrap_progress SET completed = false, updated_at = NOW()
		WHERE league_id = $1 AND season = $2
	`, leagueID, season)
	if err != nil {
		return fmt.Errorf("mark teams incomplete league=%d season=%d: %w", leagueID, season, err)
	}
	return nil
}

// MissingTeamIDs returns the subset of teamIDs not yet present in
// core.teams, used to reconcile a team_bootstrap_progress marker against
// reality before trusting it.
func (r *Repository) MissingTeamIDs(ctx context.Context, teamIDs []int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id FROM unnest($1::bigint[]) AS t(id)
		WHERE NOT EXISTS (SELECT 1 FROM core.teams WHERE core.teams.id = t.id)
	`, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("query missing team ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan missing team id: %w", err)
		}
		out = append(out, id)
	}
	return out, nil
}
