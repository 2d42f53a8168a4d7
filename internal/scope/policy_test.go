package scope

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecide_BaselineEndpointAlwaysInScope(t *testing.T) {
	p := &Policy{
		Version:                  1,
		BaselineEnabledEndpoints: map[string]struct{}{"/fixtures": {}},
		ByCompetitionType: map[string]typeRule{
			"cup": {DisabledEndpoints: []string{"/fixtures"}},
		},
	}

	d := p.Decide(39, 2024, "/fixtures", func(int) (string, bool) { return "cup", true })
	require.True(t, d.InScope)
	require.Equal(t, "baseline_enabled", d.Reason)
}

func TestDecide_CupCompetitionExcludesStandings(t *testing.T) {
	p := &Policy{
		Version:                  1,
		BaselineEnabledEndpoints: map[string]struct{}{},
		ByCompetitionType: map[string]typeRule{
			"cup": {DisabledEndpoints: []string{"/standings"}},
		},
	}

	d := p.Decide(48, 2024, "/standings", func(int) (string, bool) { return "cup", true })
	require.False(t, d.InScope)
	require.Equal(t, "type_cup_disabled", d.Reason)
}

func TestDecide_OverrideEnableWinsOverTypeDisable(t *testing.T) {
	p := &Policy{
		Version:                  1,
		BaselineEnabledEndpoints: map[string]struct{}{},
		ByCompetitionType: map[string]typeRule{
			"cup": {DisabledEndpoints: []string{"/standings"}},
		},
		Overrides: []Override{
			{LeagueID: 48, EnabledEndpoints: []string{"/standings"}},
		},
	}

	d := p.Decide(48, 2024, "/standings", func(int) (string, bool) { return "cup", true })
	require.True(t, d.InScope)
	require.Equal(t, "override_enabled", d.Reason)
}

func TestDecide_OverrideIsSeasonScoped(t *testing.T) {
	season2023 := 2023
	p := &Policy{
		BaselineEnabledEndpoints: map[string]struct{}{},
		ByCompetitionType:        map[string]typeRule{},
		Overrides: []Override{
			{LeagueID: 48, Season: &season2023, DisabledEndpoints: []string{"/injuries"}},
		},
	}

	d2023 := p.Decide(48, 2023, "/injuries", func(int) (string, bool) { return "league", true })
	require.False(t, d2023.InScope)

	d2024 := p.Decide(48, 2024, "/injuries", func(int) (string, bool) { return "league", true })
	require.True(t, d2024.InScope, "override scoped to 2023 must not apply to 2024")
}

func TestDecide_UnknownLeagueTypeFailsOpen(t *testing.T) {
	p := &Policy{
		BaselineEnabledEndpoints: map[string]struct{}{},
		ByCompetitionType: map[string]typeRule{
			"cup": {DisabledEndpoints: []string{"/standings"}},
		},
	}

	d := p.Decide(999, 2024, "/standings", func(int) (string, bool) { return "", false })
	require.True(t, d.InScope)
	require.Equal(t, "league_type_unknown_fail_open", d.Reason)
}

func TestFilterTrackedLeagues_SplitsInAndOutOfScope(t *testing.T) {
	p := &Policy{
		BaselineEnabledEndpoints: map[string]struct{}{},
		ByCompetitionType: map[string]typeRule{
			"cup": {DisabledEndpoints: []string{"/standings"}},
		},
	}
	leagues := []LeagueRef{{ID: 39, Season: 2024}, {ID: 45, Season: 2024}}
	types := map[int]string{39: "league", 45: "cup"}

	inScope, excluded := p.FilterTrackedLeagues(leagues, "/standings", func(id int) (string, bool) {
		t, ok := types[id]
		return t, ok
	})

	require.Len(t, inScope, 1)
	require.Equal(t, 39, inScope[0].ID)
	require.Len(t, excluded, 1)
	require.Equal(t, 45, excluded[0].ID)
}
