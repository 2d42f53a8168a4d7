package core

import (
	"context"
	"fmt"
)

// UpsertFixtureEvent inserts or updates one fixture event keyed by its
// content-hash event_key.
func (r *Repository) UpsertFixtureEvent(ctx context.Context, e FixtureEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.fixture_events (
			fixture_id, event_key, time_elapsed, time_extra, team_id, player_id,
			assist_id, type, detail, comments, raw
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (fixture_id, event_key) DO UPDATE SET
			type = EXCLUDED.type, detail = EXCLUDED.detail, comments = EXCLUDED.comments,
			raw = EXCLUDED.raw, updated_at = NOW()
	`, e.FixtureID, e.EventKey, e.TimeElapsed, e.TimeExtra, e.TeamID, e.PlayerID,
		e.AssistID, e.Type, e.Detail, e.Comments, e.Raw,
	)
	if err != nil {
		return fmt.Errorf("upsert fixture event fixture=%d: %w", e.FixtureID, err)
	}
	return nil
}

// UpsertFixturePlayer inserts or updates one fixture_players row.
func (r *Repository) UpsertFixturePlayer(ctx context.Context, p FixturePlayer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.fixture_players (fixture_id, team_id, player_id, player_name, statistics)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (fixture_id, player_id) DO UPDATE SET
			player_name = EXCLUDED.player_name, statistics = EXCLUDED.statistics, updated_at = NOW()
	`, p.FixtureID, p.TeamID, p.PlayerID, p.PlayerName, p.Statistics)
	if err != nil {
		return fmt.Errorf("upsert fixture player fixture=%d player=%d: %w", p.FixtureID, p.PlayerID, err)
	}
	return nil
}

// UpsertFixtureStatistics inserts or updates one fixture_statistics row.
func (r *Repository) UpsertFixtureStatistics(ctx context.Context, s FixtureStatistics) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.fixture_statistics (fixture_id, team_id, statistics)
		VALUES ($1,$2,$3)
		ON CONFLICT (fixture_id, team_id) DO UPDATE SET statistics = EXCLUDED.statistics, updated_at = NOW()
	`, s.FixtureID, s.TeamID, s.Statistics)
	if err != nil {
		return fmt.Errorf("upsert fixture statistics fixture=%d: %w", s.FixtureID, err)
	}
	return nil
}

// UpsertFixtureLineup inserts or updates one fixture_lineups row.
func (r *Repository) UpsertFixtureLineup(ctx context.Context, l FixtureLineup) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.fixture_lineups (fixture_id, team_id, formation, start_xi, substitutes, coach)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (fixture_id, team_id) DO UPDATE SET
			formation = EXCLUDED.formation, start_xi = EXCLUDED.start_xi,
			substitutes = EXCLUDED.substitutes, coach = EXCLUDED.coach, updated_at = NOW()
	`, l.FixtureID, l.TeamID, l.Formation, l.StartXI, l.Substitutes, l.Coach)
	if err != nil {
		return fmt.Errorf("upsert fixture lineup fixture=%d: %w", l.FixtureID, err)
	}
	return nil
}

// UpsertInjury inserts or updates one injury row keyed by its
// content-hash injury_key.
func (r *Repository) UpsertInjury(ctx context.Context, in Injury) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.injuries (league_id, season, injury_key, team_id, player_id, player_name, type, reason, raw)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (league_id, season, injury_key) DO UPDATE SET
			type = EXCLUDED.type, reason = EXCLUDED.reason, raw = EXCLUDED.raw, updated_at = NOW()
	`, in.LeagueID, in.Season, in.InjuryKey, in.TeamID, in.PlayerID, in.PlayerName, in.Type, in.Reason, in.Raw)
	if err != nil {
		return fmt.Errorf("upsert injury league=%d season=%d: %w", in.LeagueID, in.Season, err)
	}
	return nil
}

// UpsertTopScorer inserts or updates one top_scorers row.
func (r *Repository) UpsertTopScorer(ctx context.Context, t TopScorer) error {
	if t.PlayerID == nil {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.top_scorers (league_id, season, player_id, player_name, team_id, goals, assists)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (league_id, season, player_id) DO UPDATE SET
			player_name = EXCLUDED.player_name, team_id = EXCLUDED.team_id,
			goals = EXCLUDED.goals, assists = EXCLUDED.assists, updated_at = NOW()
	`, t.LeagueID, t.Season, *t.PlayerID, t.PlayerName, t.TeamID, t.Goals, t.Assists)
	if err != nil {
		return fmt.Errorf("upsert top scorer league=%d player=%d: %w", t.LeagueID, *t.PlayerID, err)
	}
	return nil
}

// UpsertTeamStatistics inserts or updates one team_statistics row.
func (r *Repository) UpsertTeamStatistics(ctx context.Context, t TeamStatistics) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.team_statistics (league_id, season, team_id, played_total, wins_total, draws_total, loses_total, refreshed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (league_id, season, team_id) DO UPDATE SET
			played_total = EXCLUDED.played_total, wins_total = EXCLUDED.wins_total,
			draws_total = EXCLUDED.draws_total, loses_total = EXCLUDED.loses_total,
			refreshed_at = NOW(), updated_at = NOW()
	`, t.LeagueID, t.Season, t.TeamID, t.PlayedTotal, t.WinsTotal, t.DrawsTotal, t.LosesTotal)
	if err != nil {
		return fmt.Errorf("upsert team statistics league=%d team=%d: %w", t.LeagueID, t.TeamID, err)
	}
	return nil
}

// TeamStatisticsStaleEntry is a team/league/season due for a statistics
// refresh because it's past the configured refresh interval (or has
// never been fetched).
type TeamStatisticsStaleEntry struct {
	LeagueID int64
	Season   int
	TeamID   int64
}

// SeedTeamStatisticsProgress discovers distinct (league, season, team)
// triples from core.fixtures and inserts a progress row for any not
// already tracked, distributed discovery per the team-statistics job.
func (r *Repository) SeedTeamStatisticsProgress(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.team_statistics_progress (league_id, season, team_id, last_fetched_at)
		SELECT DISTINCT league_id, season, home_team_id, NULL FROM core.fixtures
		ON CONFLICT (league_id, season, team_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("seed team statistics progress (home): %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO core.team_statistics_progress (league_id, season, team_id, last_fetched_at)
		SELECT DISTINCT league_id, season, away_team_id, NULL FROM core.fixtures
		ON CONFLICT (league_id, season, team_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("seed team statistics progress (away): %w", err)
	}
	return nil
}

// StaleTeamStatistics returns up to limit entries whose last fetch is
// older than refreshInterval (or have never been fetched).
func (r *Repository) StaleTeamStatistics(ctx context.Context, refreshIntervalHours, limit int) ([]TeamStatisticsStaleEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT league_id, season, team_id FROM core.team_statistics_progress
		WHERE last_fetched_at IS NULL OR last_fetched_at < NOW() - ($1 || ' hours')::interval
		ORDER BY last_fetched_at NULLS FIRST
		LIMIT $2
	`, refreshIntervalHours, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale team statistics: %w", err)
	}
	defer rows.Close()

	var out []TeamStatisticsStaleEntry
	for rows.Next() {
		var e TeamStatisticsStaleEntry
		if err := rows.Scan(&e.LeagueID, &e.Season, &e.TeamID); err != nil {
			return nil, fmt.Errorf("scan stale team statistics: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// MarkTeamStatisticsFetched updates a progress row's last_fetched_at.
func (r *Repository) MarkTeamStatisticsFetched(ctx context.Context, leagueID int64, season int, teamID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE core.team_statistics_progress SET last_fetched_at = NOW()
		WHERE league_id = $1 AND season = $2 AND team_id = $3
	`, leagueID, season, teamID)
	if err != nil {
		return fmt.Errorf("mark team statistics fetched: %w", err)
	}
	return nil
}

// UpdateFixtureNeedsVerification flags (or clears) a fixture's
// needs_score_verification marker, used by the double-threshold
// auto-finish jobs.
func (r *Repository) UpdateFixtureNeedsVerification(ctx context.Context, fixtureID int64, needsVerification bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE core.fixtures SET needs_score_verification = $2, updated_at = NOW() WHERE id = $1
	`, fixtureID, needsVerification)
	if err != nil {
		return fmt.Errorf("update needs_score_verification fixture=%d: %w", fixtureID, err)
	}
	return nil
}

// FixturesNeedingVerification returns up to limit fixtures flagged for
// score verification.
func (r *Repository) FixturesNeedingVerification(ctx context.Context, limit int) ([]FixtureRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, league_id, season, date FROM core.fixtures
		WHERE needs_score_verification = true
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query fixtures needing verification: %w", err)
	}
	defer rows.Close()

	var out []FixtureRef
	for rows.Next() {
		var f FixtureRef
		if err := rows.Scan(&f.ID, &f.LeagueID, &f.Season, &f.Date); err != nil {
			return nil, fmt.Errorf("scan fixture ref: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// FinalizeStaleFixtureSynthetic force-finishes a fixture without a fresh
// API call: status FT, elapsed 90, a fulltime score synthesized from the
// fixture's current goals_home/goals_away, and needs_score_verification
// set true so a later verification pass reconciles it against a real
// result. status_long carries "Auto-finished" rather than a real
// API-Football status string, so synthetic finishes are distinguishable
// from genuine ones downstream.
func (r *Repository) FinalizeStaleFixtureSynthetic(ctx context.Context, fixtureID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE core.fixtures
		SET status_short = 'FT',
		    status_long = 'Auto-finished (stale intermediate status)',
		    elapsed = 90,
		    score = jsonb_build_object('fulltime', jsonb_build_object('home', goals_home, 'away', goals_away)),
		    needs_score_verification = true,
		    updated_at = NOW()
		WHERE id = $1
	`, fixtureID)
	if err != nil {
		return fmt.Errorf("synthesize finish fixture=%d: %w", fixtureID, err)
	}
	return nil
}

// RebuildFixtureDetails recomputes the denormalized fixture_details row
// for fixtureID from whatever is currently on file in the four
// normalized tables - called alongside UpsertFixture so the convenience
// tier stays in sync with the normalized one even for call sites (like
// the live loop and daily fixture polls) that only ever see the bare
// /fixtures payload and never fetch sub-resources themselves. It's a
// no-op when nothing has been persisted for the fixture's sub-resources.
func (r *Repository) RebuildFixtureDetails(ctx context.Context, fixtureID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO core.fixture_details (fixture_id, events, lineups, statistics, players)
		SELECT d.fixture_id, d.events, d.lineups, d.statistics, d.players
		FROM (
			SELECT
				$1::bigint AS fixture_id,
				(SELECT jsonb_agg(raw ORDER BY event_key) FROM core.fixture_events WHERE fixture_id = $1) AS events,
				(SELECT jsonb_object_agg(COALESCE(team_id, 0), jsonb_build_object(
					'formation', formation, 'startXI', start_xi, 'substitutes', substitutes, 'coach', coach
				)) FROM core.fixture_lineups WHERE fixture_id = $1) AS lineups,
				(SELECT jsonb_object_agg(COALESCE(team_id, 0), statistics) FROM core.fixture_statistics WHERE fixture_id = $1) AS statistics,
				(SELECT jsonb_agg(jsonb_build_object(
					'team_id', team_id, 'player_id', player_id, 'player_name', player_name, 'statistics', statistics
				)) FROM core.fixture_players WHERE fixture_id = $1) AS players
		) d
		WHERE d.events IS NOT NULL OR d.lineups IS NOT NULL OR d.statistics IS NOT NULL OR d.players IS NOT NULL
		ON CONFLICT (fixture_id) DO UPDATE SET
			events = EXCLUDED.events, lineups = EXCLUDED.lineups,
			statistics = EXCLUDED.statistics, players = EXCLUDED.players, updated_at = NOW()
	`, fixtureID)
	if err != nil {
		return fmt.Errorf("rebuild fixture details fixture=%d: %w", fixtureID, err)
	}
	return nil
}

// RawHasEndpointForFixture reports whether a raw envelope for endpoint
// already exists for the given fixture. The fixture-details backfill does
// not call it; it selects fixtures with FixturesMissingDetails instead.
func (r *Repository) RawHasEndpointForFixture(ctx context.Context, endpoint string, fixtureID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM raw.api_responses
			WHERE endpoint = $1 AND (requested_params->>'fixture')::bigint = $2
		)
	`, endpoint, fixtureID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check raw endpoint coverage: %w", err)
	}
	return exists, nil
}

// FixturesMissingDetails returns fixtures in a final status within the
// last `days` days that are missing a raw /fixtures/players call.
func (r *Repository) FixturesMissingDetails(ctx context.Context, days, limit int) ([]FixtureRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT f.id, f.league_id, f.season, f.date
		FROM core.fixtures f
		WHERE f.status_short = ANY(ARRAY['FT','AET','PEN'])
		  AND f.date >= NOW() - ($1 || ' days')::interval
		  AND NOT EXISTS (
		    SELECT 1 FROM raw.api_responses r
		    WHERE r.endpoint = '/fixtures/players' AND (r.requested_params->>'fixture')::bigint = f.id
		  )
		ORDER BY f.date DESC
		LIMIT $2
	`, days, limit)
	if err != nil {
		return nil, fmt.Errorf("query fixtures missing details: %w", err)
	}
	defer rows.Close()

	var out []FixtureRef
	for rows.Next() {
		var f FixtureRef
		if err := rows.Scan(&f.ID, &f.LeagueID, &f.Season, &f.Date); err != nil {
			return nil, fmt.Errorf("scan fixture ref: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// FixturesRecentlyFinalized returns fixtures completed within the last
// 24h plus any fixture inside the T-2h..T+1h kickoff window, for the
// "recent finalize" variant of the fixture-details backfill.
func (r *Repository) FixturesRecentlyFinalized(ctx context.Context, limit int) ([]FixtureRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, league_id, season, date FROM core.fixtures
		WHERE (status_short = ANY(ARRAY['FT','AET','PEN']) AND updated_at > NOW() - INTERVAL '24 hours')
		   OR (date BETWEEN NOW() - INTERVAL '2 hours' AND NOW() + INTERVAL '1 hour')
		ORDER BY date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recently finalized fixtures: %w", err)
	}
	defer rows.Close()

	var out []FixtureRef
	for rows.Next() {
		var f FixtureRef
		if err := rows.Scan(&f.ID, &f.LeagueID, &f.Season, &f.Date); err != nil {
			return nil, fmt.Errorf("scan fixture ref: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}
