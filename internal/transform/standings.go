package transform

import "github.com/mrab54/football-ingestor/internal/apifootball"

// StandingRow is a core.standings row.
type StandingRow struct {
	LeagueID int64
	Season   int
	TeamID   int64
	Rank     int
	Group    string
	Points   int
	Played   int
	Win      int
	Draw     int
	Lose     int
	GoalsFor int
	GoalsAgt int
}

// Standings flattens a /standings nested group table (API-Football
// returns one array per group, e.g. separate conference tables) into
// core.standings rows for a single league/season.
func Standings(groups [][]apifootball.Standing, leagueID int64, season int) []StandingRow {
	var rows []StandingRow
	for _, group := range groups {
		for _, s := range group {
			rows = append(rows, StandingRow{
				LeagueID: leagueID,
				Season:   season,
				TeamID:   s.Team.ID,
				Rank:     s.Rank,
				Group:    s.Group,
				Points:   s.Points,
				Played:   s.All.Played,
				Win:      s.All.Win,
				Draw:     s.All.Draw,
				Lose:     s.All.Lose,
				GoalsFor: deref0(s.All.Goals.For),
				GoalsAgt: deref0(s.All.Goals.Against),
			})
		}
	}
	return rows
}

func deref0(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
