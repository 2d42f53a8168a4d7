package transform

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/storage/core"
)

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func intOrEmpty(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}

func intPOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}

func eventKey(fixtureID int64, elapsed int, extra *int, teamID, playerID, assistID *int64, typ, detail, comments string, fallbackIndex int) string {
	base := strings.Join([]string{
		fmt.Sprint(fixtureID),
		fmt.Sprint(elapsed),
		intPOrEmpty(extra),
		intOrEmpty(teamID),
		intOrEmpty(playerID),
		intOrEmpty(assistID),
		lower(typ),
		lower(detail),
		lower(comments),
		fmt.Sprint(fallbackIndex),
	}, "|")
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

// FixtureEvents converts /fixtures/events response elements into
// core.fixture_events rows, keyed by a content-hash event_key so replays
// of the same event (a very common API-Football occurrence on live
// polls) upsert instead of duplicating.
func FixtureEvents(events []apifootball.FixtureEvent, fixtureID int64) []core.FixtureEvent {
	rows := make([]core.FixtureEvent, 0, len(events))
	for idx, e := range events {
		var teamID *int64
		if e.Team.ID != 0 {
			id := e.Team.ID
			teamID = &id
		}
		var playerID, assistID *int64
		if e.Player.ID != nil {
			playerID = e.Player.ID
		}
		if e.Assist.ID != nil {
			assistID = e.Assist.ID
		}

		comments := ""
		if e.Comments != nil {
			comments = *e.Comments
		}

		raw, _ := json.Marshal(e)
		raw = normalizeJSON(raw)

		rows = append(rows, core.FixtureEvent{
			FixtureID:   fixtureID,
			EventKey:    eventKey(fixtureID, e.Time.Elapsed, e.Time.Extra, teamID, playerID, assistID, e.Type, e.Detail, comments, idx),
			TimeElapsed: e.Time.Elapsed,
			TimeExtra:   e.Time.Extra,
			TeamID:      teamID,
			PlayerID:    playerID,
			AssistID:    assistID,
			Type:        e.Type,
			Detail:      e.Detail,
			Comments:    e.Comments,
			Raw:         raw,
		})
	}
	return rows
}

// syntheticPlayerID derives a deterministic negative id for a player
// missing an API-assigned id, so fixture_players rows still satisfy a
// NOT NULL player_id without colliding with any real (positive)
// API-Football player id.
func syntheticPlayerID(fixtureID int64, teamID *int64, name string, index int) int64 {
	base := strings.Join([]string{fmt.Sprint(fixtureID), intOrEmpty(teamID), lower(name), fmt.Sprint(index)}, "|")
	sum := sha1.Sum([]byte(base))
	// Use the low 31 bits of the hash as a stable non-negative magnitude,
	// then negate: real API-Football player ids are always positive.
	magnitude := int64(sum[0])<<24 | int64(sum[1])<<16 | int64(sum[2])<<8 | int64(sum[3])
	magnitude &= 0x7FFFFFFF
	if magnitude == 0 {
		magnitude = 1
	}
	return -magnitude
}

// FixturePlayersResponseItem mirrors one element of /fixtures/players's
// response array: a team block plus its nested per-player stat blocks.
type FixturePlayersResponseItem struct {
	Team struct {
		ID *int64 `json:"id"`
	} `json:"team"`
	Players []struct {
		Player struct {
			ID   *int64 `json:"id"`
			Name string `json:"name"`
		} `json:"player"`
		Statistics json.RawMessage `json:"statistics"`
	} `json:"players"`
}

// FixturePlayers converts /fixtures/players response elements into
// core.fixture_players rows, synthesizing a negative id for any player
// with a missing or zero API-assigned id - API-Football emits id:0 for
// some unregistered players rather than omitting the field entirely.
func FixturePlayers(items []FixturePlayersResponseItem, fixtureID int64) []core.FixturePlayer {
	var rows []core.FixturePlayer
	for _, item := range items {
		teamID := item.Team.ID
		for idx, p := range item.Players {
			var playerID int64
			isReal := p.Player.ID != nil && *p.Player.ID != 0
			if isReal {
				playerID = *p.Player.ID
			} else {
				playerID = syntheticPlayerID(fixtureID, teamID, p.Player.Name, idx)
			}
			rows = append(rows, core.FixturePlayer{
				FixtureID:      fixtureID,
				TeamID:         teamID,
				PlayerID:       playerID,
				PlayerIDIsReal: isReal,
				PlayerName:     p.Player.Name,
				Statistics:     normalizeJSON(p.Statistics),
			})
		}
	}
	return rows
}

// FixtureStatisticsResponseItem mirrors one element of
// /fixtures/statistics's response array.
type FixtureStatisticsResponseItem struct {
	Team struct {
		ID *int64 `json:"id"`
	} `json:"team"`
	Statistics json.RawMessage `json:"statistics"`
}

// FixtureStatistics converts /fixtures/statistics response elements into
// core.fixture_statistics rows.
func FixtureStatistics(items []FixtureStatisticsResponseItem, fixtureID int64) []core.FixtureStatistics {
	rows := make([]core.FixtureStatistics, 0, len(items))
	for _, item := range items {
		rows = append(rows, core.FixtureStatistics{
			FixtureID:  fixtureID,
			TeamID:     item.Team.ID,
			Statistics: normalizeJSON(item.Statistics),
		})
	}
	return rows
}

// FixtureLineupResponseItem mirrors one element of /fixtures/lineups's
// response array.
type FixtureLineupResponseItem struct {
	Team struct {
		ID *int64 `json:"id"`
	} `json:"team"`
	Formation   string          `json:"formation"`
	StartXI     json.RawMessage `json:"startXI"`
	Substitutes json.RawMessage `json:"substitutes"`
	Coach       json.RawMessage `json:"coach"`
}

// FixtureLineups converts /fixtures/lineups response elements into
// core.fixture_lineups rows.
func FixtureLineups(items []FixtureLineupResponseItem, fixtureID int64) []core.FixtureLineup {
	rows := make([]core.FixtureLineup, 0, len(items))
	for _, item := range items {
		rows = append(rows, core.FixtureLineup{
			FixtureID:   fixtureID,
			TeamID:      item.Team.ID,
			Formation:   item.Formation,
			StartXI:     normalizeJSON(item.StartXI),
			Substitutes: normalizeJSON(item.Substitutes),
			Coach:       normalizeJSON(item.Coach),
		})
	}
	return rows
}
