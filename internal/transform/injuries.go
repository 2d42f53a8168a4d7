package transform

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/storage/core"
)

func injuryKey(leagueID int64, season int, teamID, playerID *int64, date, typ, reason string) string {
	base := strings.Join([]string{
		fmtInt(leagueID), fmtInt(int64(season)), intOrEmpty(teamID), intOrEmpty(playerID),
		date, lower(typ), lower(reason),
	}, "|")
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

func fmtInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// parseDate normalizes an injury-response date/datetime string to a
// YYYY-MM-DD date. Injuries does not call it: the decoded Injury carries
// no date, so the injury_key's date component is always empty.
func parseDate(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if len(raw) >= 10 {
		candidate := raw[:10]
		if t, err := time.Parse("2006-01-02", candidate); err == nil {
			s := t.Format("2006-01-02")
			return &s
		}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		s := t.UTC().Format("2006-01-02")
		return &s
	}
	return nil
}

// Injuries converts /injuries response elements into core.injuries rows,
// keyed by a content-hash injury_key so repeated polls of an unresolved
// injury upsert instead of accumulating duplicate rows.
func Injuries(injuries []apifootball.Injury, leagueID int64, season int) []core.Injury {
	rows := make([]core.Injury, 0, len(injuries))
	for _, inj := range injuries {
		var teamID, playerID *int64
		if inj.Team.ID != 0 {
			id := inj.Team.ID
			teamID = &id
		}
		if inj.Player.ID != nil {
			playerID = inj.Player.ID
		}

		raw, _ := json.Marshal(inj)

		ik := injuryKey(leagueID, season, teamID, playerID, "", inj.Player.Type, inj.Player.Reason)

		rows = append(rows, core.Injury{
			LeagueID:   leagueID,
			Season:     season,
			InjuryKey:  ik,
			TeamID:     teamID,
			PlayerID:   playerID,
			PlayerName: inj.Player.Name,
			Type:       inj.Player.Type,
			Reason:     inj.Player.Reason,
			Raw:        raw,
		})
	}
	return rows
}
