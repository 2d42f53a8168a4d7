package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixturePlayers_MissingIDGetsSyntheticNegativeID(t *testing.T) {
	items := []FixturePlayersResponseItem{{
		Players: []struct {
			Player struct {
				ID   *int64 `json:"id"`
				Name string `json:"name"`
			} `json:"player"`
			Statistics json.RawMessage `json:"statistics"`
		}{{}},
	}}
	items[0].Players[0].Player.Name = "Player A"

	rows := FixturePlayers(items, 1)
	require.Len(t, rows, 1)
	require.False(t, rows[0].PlayerIDIsReal)
	require.Less(t, rows[0].PlayerID, int64(0))
}

func TestFixturePlayers_ZeroIDAlsoGetsSyntheticNegativeID(t *testing.T) {
	zero := int64(0)
	items := []FixturePlayersResponseItem{{
		Players: []struct {
			Player struct {
				ID   *int64 `json:"id"`
				Name string `json:"name"`
			} `json:"player"`
			Statistics json.RawMessage `json:"statistics"`
		}{{}},
	}}
	items[0].Players[0].Player.ID = &zero
	items[0].Players[0].Player.Name = "Player B"

	rows := FixturePlayers(items, 1)
	require.Len(t, rows, 1)
	require.False(t, rows[0].PlayerIDIsReal)
	require.Less(t, rows[0].PlayerID, int64(0))
}

func TestFixturePlayers_RealNonZeroIDPreserved(t *testing.T) {
	id := int64(42)
	items := []FixturePlayersResponseItem{{
		Players: []struct {
			Player struct {
				ID   *int64 `json:"id"`
				Name string `json:"name"`
			} `json:"player"`
			Statistics json.RawMessage `json:"statistics"`
		}{{}},
	}}
	items[0].Players[0].Player.ID = &id
	items[0].Players[0].Player.Name = "Player C"

	rows := FixturePlayers(items, 1)
	require.Len(t, rows, 1)
	require.True(t, rows[0].PlayerIDIsReal)
	require.Equal(t, int64(42), rows[0].PlayerID)
}

func TestFixtureLineups_NestedTimestampsNormalizedToUTC(t *testing.T) {
	items := []FixtureLineupResponseItem{{
		Formation: "4-3-3",
		Coach:     json.RawMessage(`{"name":"Coach","updated_at":"2024-08-10T15:00:00+02:00"}`),
	}}

	rows := FixtureLineups(items, 1)
	require.Len(t, rows, 1)
	require.JSONEq(t, `{"name":"Coach","updated_at":"2024-08-10T13:00:00Z"}`, string(rows[0].Coach))
}
