package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/storage/core"
	"github.com/mrab54/football-ingestor/internal/transform"
)

// BootstrapCountries loads the full country reference list once, on an
// empty destination table - API-Football's /countries list barely
// changes and costs one call.
type BootstrapCountries struct{}

func (BootstrapCountries) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	empty, err := deps.Core.IsEmpty(ctx, "core.countries")
	if err != nil {
		return fmt.Errorf("check countries empty: %w", err)
	}
	if !empty {
		deps.Logger.Info("bootstrap_countries_skipped", zap.String("reason", "already_populated"))
		return nil
	}

	countries, err := deps.Client.GetCountries(ctx)
	if err != nil {
		return fmt.Errorf("fetch countries: %w", err)
	}
	for _, c := range countries {
		if err := deps.Core.UpsertCountry(ctx, c.Name, c.Code, c.Flag); err != nil {
			deps.Logger.Error("upsert_country_failed", zap.String("country", c.Name), zap.Error(err))
		}
	}
	deps.Logger.Info("bootstrap_countries_complete", zap.Int("count", len(countries)))
	return nil
}

// BootstrapTimezones loads the full IANA timezone list once, on an empty
// destination table.
type BootstrapTimezones struct{}

func (BootstrapTimezones) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	empty, err := deps.Core.IsEmpty(ctx, "core.timezones")
	if err != nil {
		return fmt.Errorf("check timezones empty: %w", err)
	}
	if !empty {
		deps.Logger.Info("bootstrap_timezones_skipped", zap.String("reason", "already_populated"))
		return nil
	}

	zones, err := deps.Client.GetTimezones(ctx)
	if err != nil {
		return fmt.Errorf("fetch timezones: %w", err)
	}
	for _, z := range zones {
		if err := deps.Core.UpsertTimezone(ctx, z); err != nil {
			deps.Logger.Error("upsert_timezone_failed", zap.String("timezone", z), zap.Error(err))
		}
	}
	deps.Logger.Info("bootstrap_timezones_complete", zap.Int("count", len(zones)))
	return nil
}

// BootstrapLeagues fetches /leagues?season=Y once per tracked league id
// and upserts the tracked subset into core.leagues/core.league_seasons.
type BootstrapLeagues struct{}

func (BootstrapLeagues) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	leagueIDs := int64SliceParam(spec.Params, "leagues")
	season := intParam(spec.Params, "season", 0)
	if len(leagueIDs) == 0 || season == 0 {
		return fmt.Errorf("bootstrap_leagues: missing leagues/season params (did bootstrap scope inheritance run?)")
	}

	for _, id := range leagueIDs {
		leagues, err := deps.Client.GetLeagues(ctx, map[string]string{"id": fmt.Sprint(id), "season": fmt.Sprint(season)})
		if err != nil {
			deps.Logger.Error("bootstrap_league_fetch_failed", zap.Int64("league_id", id), zap.Error(err))
			continue
		}
		for _, row := range transform.Leagues(leagues) {
			if err := deps.Core.UpsertLeague(ctx, core.League{ID: row.ID, Name: row.Name, Type: row.Type, Country: row.Country, LogoURL: row.LogoURL}); err != nil {
				deps.Logger.Error("bootstrap_league_upsert_failed", zap.Int64("league_id", id), zap.Error(err))
				continue
			}
			for _, s := range row.Seasons {
				start, end := strPtrOrNil(s.Start), strPtrOrNil(s.End)
				if err := deps.Core.UpsertSeason(ctx, core.SeasonMeta{LeagueID: row.ID, Season: s.Year, StartDate: start, EndDate: end, Current: s.Current}); err != nil {
					deps.Logger.Error("bootstrap_season_upsert_failed", zap.Int64("league_id", id), zap.Int("season", s.Year), zap.Error(err))
				}
			}
		}
	}
	return nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BootstrapTeams fetches /teams?league=L&season=Y for each tracked league,
// extracting venues first so teams referencing them satisfy their FK.
type BootstrapTeams struct{}

func (BootstrapTeams) Run(ctx context.Context, deps *Deps, spec config.JobSpec) error {
	leagueIDs := int64SliceParam(spec.Params, "leagues")
	season := intParam(spec.Params, "season", 0)
	if len(leagueIDs) == 0 || season == 0 {
		return fmt.Errorf("bootstrap_teams: missing leagues/season params (did bootstrap scope inheritance run?)")
	}

	for _, leagueID := range leagueIDs {
		teams, err := deps.Client.GetTeams(ctx, map[string]string{"league": fmt.Sprint(leagueID), "season": fmt.Sprint(season)})
		if err != nil {
			deps.Logger.Error("bootstrap_teams_fetch_failed", zap.Int64("league_id", leagueID), zap.Error(err))
			continue
		}
		for _, row := range transform.Teams(teams) {
			if row.Venue != nil {
				if err := deps.Core.UpsertVenue(ctx, core.Venue{ID: &row.Venue.ID, Name: row.Venue.Name, City: row.Venue.City, Capacity: row.Venue.Capacity}); err != nil {
					deps.Logger.Error("bootstrap_venue_upsert_failed", zap.Int64("league_id", leagueID), zap.Error(err))
				}
			}
			if err := deps.Core.UpsertTeam(ctx, core.Team{ID: row.ID, Name: row.Name, Code: row.Code, Country: row.Country, National: row.National, LogoURL: row.LogoURL}); err != nil {
				deps.Logger.Error("bootstrap_team_upsert_failed", zap.Int64("league_id", leagueID), zap.Int64("team_id", row.ID), zap.Error(err))
			}
		}
	}
	return nil
}
