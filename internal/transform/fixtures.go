// Package transform converts API-Football response elements into
// core-table rows, grounded on the original collector's pure transformer
// functions (one file per endpoint family).
package transform

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/storage/core"
)

// Fixtures converts /fixtures response elements into deduplicated,
// id-sorted core.fixtures rows. API-Football treats venue id 0 as
// "unknown", so it's normalized to nil to satisfy the FK constraint.
func Fixtures(fixtures []apifootball.Fixture) []core.Fixture {
	byID := make(map[int64]core.Fixture, len(fixtures))

	for _, f := range fixtures {
		var venueID *int64
		if f.Fixture.Venue.ID != nil && *f.Fixture.Venue.ID != 0 {
			id := int64(*f.Fixture.Venue.ID)
			venueID = &id
		}

		scoreJSON, _ := json.Marshal(f.Score)
		scoreJSON = normalizeJSON(scoreJSON)

		byID[f.Fixture.ID] = core.Fixture{
			ID:          f.Fixture.ID,
			LeagueID:    f.League.ID,
			Season:      f.League.Season,
			Round:       f.League.Round,
			Date:        ensureUTCDate(f.Fixture.Date),
			StatusShort: f.Fixture.Status.Short,
			StatusLong:  f.Fixture.Status.Long,
			Elapsed:     f.Fixture.Status.Elapsed,
			VenueID:     venueID,
			HomeTeamID:  f.Teams.Home.ID,
			AwayTeamID:  f.Teams.Away.ID,
			GoalsHome:   f.Goals.Home,
			GoalsAway:   f.Goals.Away,
			Score:       scoreJSON,
		}
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]core.Fixture, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, byID[id])
	}
	return rows
}

// ensureUTCDate normalizes an API-Football fixture date string (which
// always includes a UTC offset) to a UTC RFC3339 string - DB timestamps
// are always stored in UTC.
func ensureUTCDate(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format(time.RFC3339)
}
