// Package core stores the normalized API-Football entities derived from
// the raw envelopes: leagues, teams, venues, fixtures and their
// sub-documents, standings, injuries, and statistics.
package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repository holds the normalized domain tables.
type Repository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// New builds a Repository over db.
func New(db *pgxpool.Pool, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// League is the normalized core.leagues row.
type League struct {
	ID      int64
	Name    string
	Type    string
	Country string
	LogoURL string
}

// UpsertLeague inserts or updates a league's metadata, keyed by id - the
// dependency resolver calls this before fetching anything else for a
// league so later FK-dependent inserts never fail on a missing parent.
func (r *Repository) UpsertLeague(ctx context.Context, l League) error {
	query := `
		INSERT INTO core.leagues (id, name, type, country, logo_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			country = EXCLUDED.country,
			logo_url = EXCLUDED.logo_url,
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, l.ID, l.Name, l.Type, l.Country, l.LogoURL); err != nil {
		return fmt.Errorf("upsert league %d: %w", l.ID, err)
	}
	return nil
}

// LeagueType fetches core.leagues.type for the scope policy's
// league-type-based cascade. Returns ok=false when the league is unknown.
func (r *Repository) LeagueType(ctx context.Context, leagueID int) (string, bool) {
	var t string
	err := r.db.QueryRow(ctx, `SELECT type FROM core.leagues WHERE id = $1`, leagueID).Scan(&t)
	if err != nil {
		return "", false
	}
	return t, true
}

// SeasonMeta is the normalized core.league_seasons row (year + coverage
// window), resolved once per (league, season) by the dependency resolver.
type SeasonMeta struct {
	LeagueID  int64
	Season    int
	StartDate *string
	EndDate   *string
	Current   bool
}

// UpsertSeason records the season metadata for a league.
func (r *Repository) UpsertSeason(ctx context.Context, s SeasonMeta) error {
	query := `
		INSERT INTO core.league_seasons (league_id, season, start_date, end_date, current)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (league_id, season) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			current = EXCLUDED.current
	`
	if _, err := r.db.Exec(ctx, query, s.LeagueID, s.Season, s.StartDate, s.EndDate, s.Current); err != nil {
		return fmt.Errorf("upsert season %d/%d: %w", s.LeagueID, s.Season, err)
	}
	return nil
}

// SeasonExists reports whether season metadata is already on file for a
// (league, season) pair, so the resolver can skip a redundant /leagues call.
func (r *Repository) SeasonExists(ctx context.Context, leagueID int64, season int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM core.league_seasons WHERE league_id = $1 AND season = $2)`,
		leagueID, season,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check season exists: %w", err)
	}
	return exists, nil
}

// Team is the normalized core.teams row.
type Team struct {
	ID       int64
	Name     string
	Code     string
	Country  string
	National bool
	LogoURL  string
}

// UpsertTeam inserts or updates a team, recording bootstrapped_at on the
// first insert.
func (r *Repository) UpsertTeam(ctx context.Context, t Team) error {
	query := `
		INSERT INTO core.teams (id, name, code, country, national, logo_url, bootstrapped_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			country = EXCLUDED.country,
			national = EXCLUDED.national,
			logo_url = EXCLUDED.logo_url,
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, t.ID, t.Name, t.Code, t.Country, t.National, t.LogoURL); err != nil {
		return fmt.Errorf("upsert team %d: %w", t.ID, err)
	}
	return nil
}

// IsTeamBootstrapped reports whether a team is already in core.teams,
// used by the dependency resolver and the daily standings job to skip
// teams already on file.
func (r *Repository) IsTeamBootstrapped(ctx context.Context, teamID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM core.teams WHERE id = $1)`, teamID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check team bootstrapped: %w", err)
	}
	return exists, nil
}

// Venue is the normalized core.venues row.
type Venue struct {
	ID       *int64
	Name     string
	City     string
	Capacity *int
}

// UpsertVenue inserts or updates a venue. Venues without an API-assigned
// id are skipped (spec treats those as unidentifiable).
func (r *Repository) UpsertVenue(ctx context.Context, v Venue) error {
	if v.ID == nil {
		return nil
	}
	query := `
		INSERT INTO core.venues (id, name, city, capacity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			capacity = EXCLUDED.capacity,
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, *v.ID, v.Name, v.City, v.Capacity); err != nil {
		return fmt.Errorf("upsert venue %d: %w", *v.ID, err)
	}
	return nil
}

// Fixture is the normalized core.fixtures row.
type Fixture struct {
	ID          int64
	LeagueID    int64
	Season      int
	Round       string
	Date        string
	StatusShort string
	StatusLong  string
	Elapsed     *int
	VenueID     *int64
	HomeTeamID  int64
	AwayTeamID  int64
	GoalsHome   *int
	GoalsAway   *int
	Score       json.RawMessage
}

// UpsertFixture inserts or updates a fixture's scoreboard state. The live
// loop calls it only for fixtures the delta detector reports as changed;
// the scheduled jobs call it for every fixture they fetch.
func (r *Repository) UpsertFixture(ctx context.Context, f Fixture) error {
	query := `
		INSERT INTO core.fixtures (
			id, league_id, season, round, date, status_short, status_long,
			elapsed, venue_id, home_team_id, away_team_id, goals_home, goals_away, score
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			status_short = EXCLUDED.status_short,
			status_long = EXCLUDED.status_long,
			elapsed = EXCLUDED.elapsed,
			goals_home = EXCLUDED.goals_home,
			goals_away = EXCLUDED.goals_away,
			score = EXCLUDED.score,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		f.ID, f.LeagueID, f.Season, f.Round, f.Date, f.StatusShort, f.StatusLong,
		f.Elapsed, f.VenueID, f.HomeTeamID, f.AwayTeamID, f.GoalsHome, f.GoalsAway, f.Score,
	)
	if err != nil {
		return fmt.Errorf("upsert fixture %d: %w", f.ID, err)
	}
	return nil
}

// FixtureRef is a fixture id with league/season/date context, returned
// by the fixture-selection queries below. FixturesInStatuses returns
// refs for fixtures in one of the given statuses; nothing in this module
// calls it.
type FixtureRef struct {
	ID       int64
	LeagueID int64
	Season   int
	Date     string
}

func (r *Repository) FixturesInStatuses(ctx context.Context, statuses []string) ([]FixtureRef, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, league_id, season, date FROM core.fixtures WHERE status_short = ANY($1)`,
		statuses,
	)
	if err != nil {
		return nil, fmt.Errorf("query fixtures by status: %w", err)
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

// FixturesStaleSince returns fixtures whose status is in statuses and
// whose last update is older than the given staleness threshold.
func (r *Repository) FixturesStaleSince(ctx context.Context, statuses []string, staleMinutes int) ([]FixtureRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, league_id, season, date FROM core.fixtures
		WHERE status_short = ANY($1) AND updated_at < NOW() - ($2 || ' minutes')::interval
	`, statuses, staleMinutes)
	if err != nil {
		return nil, fmt.Errorf("query stale fixtures: %w", err)
	}
	defer rows.Close()

	var out []FixtureRef
	for rows.Next() {
		var f FixtureRef
		if err := rows.Scan(&f.ID, &f.LeagueID, &f.Season, &f.Date); err != nil {
			return nil, fmt.Errorf("scan stale fixture: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// StaleIntermediateFixtures returns up to limit fixtures stuck in one of
// statuses whose scheduled kickoff (date) is at least thresholdHours in
// the past AND whose last update is at least safetyLagMinutes stale -
// both predicates must hold, since kickoff age alone would also match a
// fixture the live loop just hasn't polled yet this minute.
func (r *Repository) StaleIntermediateFixtures(ctx context.Context, statuses []string, thresholdHours, safetyLagMinutes, limit int) ([]FixtureRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, league_id, season, date FROM core.fixtures
		WHERE status_short = ANY($1)
		  AND date < NOW() - ($2 || ' hours')::interval
		  AND updated_at < NOW() - ($3 || ' minutes')::interval
		ORDER BY date
		LIMIT $4
	`, statuses, thresholdHours, safetyLagMinutes, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale intermediate fixtures: %w", err)
	}
	defer rows.Close()

	var out []FixtureRef
	for rows.Next() {
		var f FixtureRef
		if err := rows.Scan(&f.ID, &f.LeagueID, &f.Season, &f.Date); err != nil {
			return nil, fmt.Errorf("scan stale intermediate fixture: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// StandingRow is one team's row within a league standings table.
type StandingRow struct {
	LeagueID  int64
	Season    int
	TeamID    int64
	Rank      int
	GroupName string
	Points    int
	Played    int
	Win       int
	Draw      int
	Lose      int
	GoalsFor  int
	GoalsAgt  int
}

// ReplaceStandings atomically replaces every standings row for a
// (league, season) with the freshly fetched set - API-Football returns
// the full table on every call, so delete-then-insert inside one
// transaction is the only race-free way to apply it.
func (r *Repository) ReplaceStandings(ctx context.Context, tx pgx.Tx, leagueID int64, season int, rows []StandingRow) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM core.standings WHERE league_id = $1 AND season = $2`,
		leagueID, season,
	); err != nil {
		return fmt.Errorf("delete standings %d/%d: %w", leagueID, season, err)
	}

	for _, row := range rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO core.standings (
				league_id, season, team_id, rank, group_name, points,
				played, win, draw, lose, goals_for, goals_against
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, row.LeagueID, row.Season, row.TeamID, row.Rank, row.GroupName, row.Points,
			row.Played, row.Win, row.Draw, row.Lose, row.GoalsFor, row.GoalsAgt,
		)
		if err != nil {
			return fmt.Errorf("insert standing row team=%d: %w", row.TeamID, err)
		}
	}
	return nil
}

// LastUpdate returns the most recent updated_at for a table/where clause.
// The coverage calculator does not use it (it queries the pool directly).
// Callers must only pass trusted, non-user-supplied table/where fragments.
func (r *Repository) LastUpdate(ctx context.Context, table, where string, args ...interface{}) (*string, error) {
	query := fmt.Sprintf(`SELECT MAX(updated_at)::text FROM %s WHERE %s`, table, where)
	var ts *string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&ts); err != nil {
		return nil, fmt.Errorf("query last update: %w", err)
	}
	return ts, nil
}

// Count runs a trusted COUNT(*) query.
func (r *Repository) Count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}
