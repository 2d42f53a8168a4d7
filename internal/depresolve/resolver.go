// Package depresolve ensures foreign-key dependencies are satisfied
// before fixture/standings/statistics rows reference them: league/season
// metadata must exist, teams must be bootstrapped once, and venues are
// pre-created up to a bounded per-run budget.
package depresolve

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/storage/core"
	"github.com/mrab54/football-ingestor/internal/transform"
)

// Resolver reconciles core.leagues/core.league_seasons/core.teams/
// core.venues against the API before a caller persists fixture-level data.
type Resolver struct {
	client *apifootball.Client
	core   *core.Repository
	logger *zap.Logger

	// VenuesBackfillMaxPerRun bounds how many venues EnsureVenues will
	// fetch full detail for in a single call; 0 disables the backfill.
	VenuesBackfillMaxPerRun int
}

// New builds a Resolver.
func New(client *apifootball.Client, coreRepo *core.Repository, logger *zap.Logger) *Resolver {
	return &Resolver{client: client, core: coreRepo, logger: logger}
}

// EnsureLeagueSeason guarantees core.leagues and core.league_seasons carry
// an entry for (leagueID, season), fetching /leagues only on a cache miss.
func (r *Resolver) EnsureLeagueSeason(ctx context.Context, leagueID int64, season int) error {
	exists, err := r.core.SeasonExists(ctx, leagueID, season)
	if err != nil {
		return fmt.Errorf("check season exists: %w", err)
	}
	if exists {
		return nil
	}

	leagues, err := r.client.GetLeagues(ctx, map[string]string{"id": fmt.Sprint(leagueID)})
	if err != nil {
		return fmt.Errorf("fetch league metadata: %w", err)
	}
	rows := transform.Leagues(leagues)
	for _, row := range rows {
		if err := r.core.UpsertLeague(ctx, core.League{
			ID: row.ID, Name: row.Name, Type: row.Type, Country: row.Country, LogoURL: row.LogoURL,
		}); err != nil {
			return err
		}
		for _, s := range row.Seasons {
			if err := r.core.UpsertSeason(ctx, core.SeasonMeta{
				LeagueID: row.ID, Season: s.Year, StartDate: strPtr(s.Start), EndDate: strPtr(s.End), Current: s.Current,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EnsureTeam guarantees a team (and its venue, if known) is bootstrapped
// before a fixture referencing it is persisted. Returns without an API
// call when the team is already on file.
func (r *Resolver) EnsureTeam(ctx context.Context, teamID int64) error {
	known, err := r.core.IsTeamBootstrapped(ctx, teamID)
	if err != nil {
		return fmt.Errorf("check team bootstrapped: %w", err)
	}
	if known {
		return nil
	}

	teams, err := r.client.GetTeams(ctx, map[string]string{"id": fmt.Sprint(teamID)})
	if err != nil {
		return fmt.Errorf("fetch team metadata: %w", err)
	}
	rows := transform.Teams(teams)
	for _, row := range rows {
		if row.Venue != nil {
			if err := r.core.UpsertVenue(ctx, core.Venue{ID: int64Ptr(row.Venue.ID), Name: row.Venue.Name, City: row.Venue.City, Capacity: row.Venue.Capacity}); err != nil {
				return err
			}
		}
		if err := r.core.UpsertTeam(ctx, core.Team{
			ID: row.ID, Name: row.Name, Code: row.Code, Country: row.Country, National: row.National, LogoURL: row.LogoURL,
		}); err != nil {
			return err
		}
	}
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

// EnsureTeams resolves every distinct team id referenced by (leagueID,
// season). Once team_bootstrap_progress says the pair is fully resolved,
// later calls skip straight to a MissingTeamIDs reconciliation instead of
// re-checking every team individually - and flip the marker back to
// incomplete if reality disagrees with it.
func (r *Resolver) EnsureTeams(ctx context.Context, leagueID int64, season int, teamIDs []int64) error {
	seen := map[int64]struct{}{}
	unique := make([]int64, 0, len(teamIDs))
	for _, id := range teamIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil
	}

	bootstrapped, err := r.core.IsLeagueSeasonTeamsBootstrapped(ctx, leagueID, season)
	if err != nil {
		return fmt.Errorf("check team bootstrap progress: %w", err)
	}

	toResolve := unique
	if bootstrapped {
		missing, err := r.core.MissingTeamIDs(ctx, unique)
		if err != nil {
			return fmt.Errorf("reconcile team bootstrap progress: %w", err)
		}
		if len(missing) == 0 {
			return nil
		}
		if err := r.core.MarkLeagueSeasonTeamsIncomplete(ctx, leagueID, season); err != nil {
			return fmt.Errorf("mark teams incomplete: %w", err)
		}
		toResolve = missing
	}

	for _, id := range toResolve {
		if err := r.EnsureTeam(ctx, id); err != nil {
			r.logger.Warn("team dependency resolution failed", zap.Int64("team_id", id), zap.Error(err))
		}
	}

	if err := r.core.MarkLeagueSeasonTeamsBootstrapped(ctx, leagueID, season); err != nil {
		return fmt.Errorf("mark teams bootstrapped: %w", err)
	}
	return nil
}

// EnsureVenues pre-creates venues referenced by a batch of fixtures using
// the minimal (id, name, city) data already present on the /fixtures
// payload, then - bounded by VenuesBackfillMaxPerRun - fetches full venue
// detail (capacity) for venues still missing it via /venues. A zero bound
// disables the backfill entirely; only the minimal UPSERT runs.
func (r *Resolver) EnsureVenues(ctx context.Context, fixtures []apifootball.Fixture) error {
	seen := map[int64]apifootball.Venue{}
	for _, f := range fixtures {
		v := f.Fixture.Venue
		if v.ID == nil || *v.ID == 0 {
			continue
		}
		seen[int64(*v.ID)] = v
	}

	backfilled := 0
	for id, v := range seen {
		if err := r.core.UpsertVenue(ctx, core.Venue{ID: int64Ptr(id), Name: v.Name, City: v.City, Capacity: v.Capacity}); err != nil {
			return fmt.Errorf("upsert venue %d: %w", id, err)
		}

		if r.VenuesBackfillMaxPerRun <= 0 || backfilled >= r.VenuesBackfillMaxPerRun || v.Capacity != nil {
			continue
		}
		backfilled++
		if err := r.backfillVenueDetail(ctx, id); err != nil {
			r.logger.Warn("venue_backfill_failed", zap.Int64("venue_id", id), zap.Error(err))
		}
	}
	return nil
}

// backfillVenueDetail fetches a single venue's full record and upserts it,
// picking up fields (capacity) the fixture payload never carries.
func (r *Resolver) backfillVenueDetail(ctx context.Context, venueID int64) error {
	env, err := r.client.Get(ctx, "/venues", map[string]string{"id": fmt.Sprint(venueID)})
	if err != nil {
		return fmt.Errorf("fetch venue detail %d: %w", venueID, err)
	}
	var venues []apifootball.Venue
	if err := json.Unmarshal(env.Response, &venues); err != nil {
		return fmt.Errorf("decode venue detail %d: %w", venueID, err)
	}
	for _, v := range venues {
		if v.ID == nil {
			continue
		}
		if err := r.core.UpsertVenue(ctx, core.Venue{ID: v.ID, Name: v.Name, City: v.City, Capacity: v.Capacity}); err != nil {
			return err
		}
	}
	return nil
}
