package core

import "encoding/json"

// FixtureEvent is a core.fixture_events row, produced by
// transform.FixtureEvents.
type FixtureEvent struct {
	FixtureID   int64
	EventKey    string
	TimeElapsed int
	TimeExtra   *int
	TeamID      *int64
	PlayerID    *int64
	AssistID    *int64
	Type        string
	Detail      string
	Comments    *string
	Raw         json.RawMessage
}

// FixturePlayer is a core.fixture_players row, produced by
// transform.FixturePlayers.
type FixturePlayer struct {
	FixtureID      int64
	TeamID         *int64
	PlayerID       int64
	PlayerIDIsReal bool
	PlayerName     string
	Statistics     json.RawMessage
}

// FixtureStatistics is a core.fixture_statistics row, produced by
// transform.FixtureStatistics.
type FixtureStatistics struct {
	FixtureID  int64
	TeamID     *int64
	Statistics json.RawMessage
}

// FixtureLineup is a core.fixture_lineups row, produced by
// transform.FixtureLineups.
type FixtureLineup struct {
	FixtureID   int64
	TeamID      *int64
	Formation   string
	StartXI     json.RawMessage
	Substitutes json.RawMessage
	Coach       json.RawMessage
}

// Injury is a core.injuries row, produced by transform.Injuries.
type Injury struct {
	LeagueID   int64
	Season     int
	InjuryKey  string
	TeamID     *int64
	PlayerID   *int64
	PlayerName string
	TeamName   string
	Type       string
	Reason     string
	Date       *string
	Raw        json.RawMessage
}

// TopScorer is a core.top_scorers row, produced by transform.TopScorers.
type TopScorer struct {
	LeagueID   int64
	Season     int
	PlayerID   *int64
	PlayerName string
	TeamID     *int64
	Goals      int
	Assists    int
}

// TeamStatistics is a core.team_statistics row, produced by
// transform.TeamStatisticsFromAPI.
type TeamStatistics struct {
	LeagueID    int64
	Season      int
	TeamID      int64
	PlayedTotal int
	WinsTotal   int
	DrawsTotal  int
	LosesTotal  int
}
