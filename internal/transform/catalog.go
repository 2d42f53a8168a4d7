package transform

import (
	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/storage/core"
)

// LeagueRow is a core.leagues + core.league_seasons pair for one /leagues
// response element.
type LeagueRow struct {
	ID      int64
	Name    string
	Type    string
	Country string
	LogoURL string
	Seasons []SeasonRow
}

// SeasonRow is a core.league_seasons row.
type SeasonRow struct {
	Year    int
	Start   string
	End     string
	Current bool
}

// Leagues converts /leagues response elements into core.leagues +
// core.league_seasons rows.
func Leagues(leagues []apifootball.League) []LeagueRow {
	rows := make([]LeagueRow, 0, len(leagues))
	for _, l := range leagues {
		seasons := make([]SeasonRow, 0, len(l.Seasons))
		for _, s := range l.Seasons {
			seasons = append(seasons, SeasonRow{Year: s.Year, Start: s.Start, End: s.End, Current: s.Current})
		}
		rows = append(rows, LeagueRow{
			ID:      int64(l.League.ID),
			Name:    l.League.Name,
			Type:    l.League.Type,
			Country: l.Country.Name,
			LogoURL: l.League.Logo,
			Seasons: seasons,
		})
	}
	return rows
}

// TeamRow is a core.teams + core.venues pair for one /teams response
// element.
type TeamRow struct {
	ID       int64
	Name     string
	Code     string
	Country  string
	National bool
	LogoURL  string
	Venue    *VenueRow
}

// VenueRow is a core.venues row.
type VenueRow struct {
	ID       int64
	Name     string
	City     string
	Capacity *int
}

// Teams converts /teams response elements into core.teams + core.venues
// rows. Teams whose venue has no API-assigned id (id 0/missing) carry a
// nil Venue - the dependency resolver treats those as not pre-creatable.
func Teams(teams []apifootball.Team) []TeamRow {
	rows := make([]TeamRow, 0, len(teams))
	for _, t := range teams {
		row := TeamRow{
			ID:       int64(t.Team.ID),
			Name:     t.Team.Name,
			Code:     t.Team.Code,
			Country:  t.Team.Country,
			National: t.Team.National,
			LogoURL:  t.Team.Logo,
		}
		if t.Venue.ID != nil && *t.Venue.ID != 0 {
			row.Venue = &VenueRow{
				ID:       int64(*t.Venue.ID),
				Name:     t.Venue.Name,
				City:     t.Venue.City,
				Capacity: t.Venue.Capacity,
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// TopScorers converts /players/topscorers response elements into
// core.top_scorers rows for a league/season, picking each player's
// statistics block matching that league.
func TopScorers(scorers []apifootball.TopScorer, leagueID int64, season int) []core.TopScorer {
	rows := make([]core.TopScorer, 0, len(scorers))
	for _, s := range scorers {
		var block *apifootball.PlayerStatBlock
		for i := range s.Statistics {
			if int64(s.Statistics[i].League.ID) == leagueID {
				block = &s.Statistics[i]
				break
			}
		}
		if block == nil && len(s.Statistics) > 0 {
			block = &s.Statistics[0]
		}

		row := core.TopScorer{
			LeagueID:   leagueID,
			Season:     season,
			PlayerID:   s.Player.ID,
			PlayerName: s.Player.Name,
		}
		if block != nil {
			if block.Team.ID != 0 {
				id := block.Team.ID
				row.TeamID = &id
			}
			row.Goals = deref0(block.Goals.Total)
			row.Assists = deref0(block.Goals.Assists)
		}
		rows = append(rows, row)
	}
	return rows
}

// TeamStatisticsFromAPI converts a /teams/statistics response into a
// core.team_statistics row.
func TeamStatisticsFromAPI(stats apifootball.TeamStatistics) core.TeamStatistics {
	return core.TeamStatistics{
		LeagueID:    stats.League.ID,
		Season:      stats.League.Season,
		TeamID:      stats.Team.ID,
		PlayedTotal: stats.Fixtures.Played.Total,
		WinsTotal:   stats.Fixtures.Wins.Total,
		DrawsTotal:  stats.Fixtures.Draws.Total,
		LosesTotal:  stats.Fixtures.Loses.Total,
	}
}
