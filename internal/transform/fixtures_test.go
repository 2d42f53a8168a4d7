package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrab54/football-ingestor/internal/apifootball"
)

func intP(v int) *int { return &v }

func sampleFixture(id int64, date string, venueID *int) apifootball.Fixture {
	return apifootball.Fixture{
		Fixture: apifootball.FixtureInfo{
			ID:     id,
			Date:   date,
			Venue:  apifootball.Venue{ID: venueID},
			Status: apifootball.FixtureStatus{Short: "NS", Long: "Not Started"},
		},
		League: apifootball.FixtureLeague{ID: 39, Season: 2024, Round: "Regular Season - 1"},
		Teams: apifootball.FixtureTeams{
			Home: apifootball.FixtureTeamRef{ID: 33},
			Away: apifootball.FixtureTeamRef{ID: 34},
		},
		Goals: apifootball.FixtureGoals{Home: intP(0), Away: intP(0)},
	}
}

func TestFixtures_DedupesByID(t *testing.T) {
	stale := sampleFixture(1, "2024-08-10T15:00:00+00:00", intP(1))
	fresh := sampleFixture(1, "2024-08-10T15:00:00+00:00", intP(1))
	fresh.Fixture.Status.Short = "FT"

	rows := Fixtures([]apifootball.Fixture{stale, fresh})
	require.Len(t, rows, 1)
	require.Equal(t, "FT", rows[0].StatusShort)
}

func TestFixtures_SortedByID(t *testing.T) {
	rows := Fixtures([]apifootball.Fixture{
		sampleFixture(30, "2024-08-10T15:00:00+00:00", intP(1)),
		sampleFixture(10, "2024-08-10T15:00:00+00:00", intP(1)),
		sampleFixture(20, "2024-08-10T15:00:00+00:00", intP(1)),
	})
	require.Len(t, rows, 3)
	require.Equal(t, []int64{10, 20, 30}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestFixtures_VenueIDZeroNormalizedToNil(t *testing.T) {
	rows := Fixtures([]apifootball.Fixture{sampleFixture(1, "2024-08-10T15:00:00+00:00", intP(0))})
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].VenueID)
}

func TestFixtures_VenueIDPreservedWhenNonZero(t *testing.T) {
	rows := Fixtures([]apifootball.Fixture{sampleFixture(1, "2024-08-10T15:00:00+00:00", intP(556))})
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].VenueID)
	require.Equal(t, int64(556), *rows[0].VenueID)
}

func TestFixtures_DateNormalizedToUTC(t *testing.T) {
	rows := Fixtures([]apifootball.Fixture{sampleFixture(1, "2024-08-10T15:00:00+02:00", intP(1))})
	require.Len(t, rows, 1)
	require.Equal(t, "2024-08-10T13:00:00Z", rows[0].Date)
}

func TestFixtures_UnparsableDatePassedThrough(t *testing.T) {
	rows := Fixtures([]apifootball.Fixture{sampleFixture(1, "not-a-date", intP(1))})
	require.Len(t, rows, 1)
	require.Equal(t, "not-a-date", rows[0].Date)
}
