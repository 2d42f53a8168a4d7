// Package scope decides whether a given (league, season, endpoint) triple
// should be fetched, based on a baseline allowlist, per-league overrides,
// and per-competition-type allow/deny lists.
package scope

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Decision is the outcome of evaluating a scope policy for one endpoint.
type Decision struct {
	InScope       bool
	Reason        string
	PolicyVersion int
	LeagueType    string
}

// Override is a per-league (optionally per-season) allow/deny entry.
type Override struct {
	LeagueID          int      `yaml:"league_id"`
	Season            *int     `yaml:"season"`
	EnabledEndpoints  []string `yaml:"enabled_endpoints"`
	DisabledEndpoints []string `yaml:"disabled_endpoints"`
}

type typeRule struct {
	EnabledEndpoints  []string `yaml:"enabled_endpoints"`
	DisabledEndpoints []string `yaml:"disabled_endpoints"`
}

// rawPolicy mirrors scope_policy.yaml's on-disk shape.
type rawPolicy struct {
	Version                 int                 `yaml:"version"`
	BaselineEnabledEndpoints []string           `yaml:"baseline_enabled_endpoints"`
	ByCompetitionType       map[string]typeRule `yaml:"by_competition_type"`
	Overrides               []Override          `yaml:"overrides"`
}

// Policy is the parsed, query-ready form of scope_policy.yaml.
type Policy struct {
	Version                  int
	BaselineEnabledEndpoints map[string]struct{}
	ByCompetitionType        map[string]typeRule
	Overrides                []Override
}

// LoadPolicy reads and parses scope_policy.yaml from path.
func LoadPolicy(path string) (*Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scope policy: %w", err)
	}

	var raw rawPolicy
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse scope policy: %w", err)
	}

	version := raw.Version
	if version == 0 {
		version = 1
	}

	baseline := make(map[string]struct{}, len(raw.BaselineEnabledEndpoints))
	for _, ep := range raw.BaselineEnabledEndpoints {
		baseline[ep] = struct{}{}
	}

	return &Policy{
		Version:                  version,
		BaselineEnabledEndpoints: baseline,
		ByCompetitionType:        raw.ByCompetitionType,
		Overrides:                raw.Overrides,
	}, nil
}

// LeagueTypeProvider resolves a league id to its core.leagues.type value.
// Returns ("", false) when the type is unknown.
type LeagueTypeProvider func(leagueID int) (string, bool)

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func (p *Policy) applyOverrides(leagueID, season int, endpoint string) (forced *bool, reason string) {
	for _, o := range p.Overrides {
		if o.LeagueID != leagueID {
			continue
		}
		if o.Season != nil && *o.Season != season {
			continue
		}
		if contains(o.DisabledEndpoints, endpoint) {
			f := false
			return &f, "override_disabled"
		}
		if contains(o.EnabledEndpoints, endpoint) {
			t := true
			return &t, "override_enabled"
		}
	}
	return nil, ""
}

// Decide evaluates the scope policy cascade for one (league, season, endpoint)
// triple: baseline -> overrides (deny wins within an override) -> type-based
// allow/deny -> default allow. League type lookup failures fail open.
func (p *Policy) Decide(leagueID, season int, endpoint string, leagueType LeagueTypeProvider) Decision {
	if _, ok := p.BaselineEnabledEndpoints[endpoint]; ok {
		return Decision{InScope: true, Reason: "baseline_enabled", PolicyVersion: p.Version}
	}

	if forced, reason := p.applyOverrides(leagueID, season, endpoint); forced != nil {
		return Decision{InScope: *forced, Reason: reason, PolicyVersion: p.Version}
	}

	lt, ok := leagueType(leagueID)
	if !ok {
		return Decision{InScope: true, Reason: "league_type_unknown_fail_open", PolicyVersion: p.Version}
	}

	rule := p.ByCompetitionType[lt]

	if contains(rule.DisabledEndpoints, endpoint) {
		return Decision{InScope: false, Reason: fmt.Sprintf("type_%s_disabled", lt), PolicyVersion: p.Version, LeagueType: lt}
	}

	if len(rule.EnabledEndpoints) > 0 {
		if contains(rule.EnabledEndpoints, endpoint) {
			return Decision{InScope: true, Reason: fmt.Sprintf("type_%s_enabled", lt), PolicyVersion: p.Version, LeagueType: lt}
		}
		return Decision{InScope: false, Reason: fmt.Sprintf("type_%s_not_in_enabled_list", lt), PolicyVersion: p.Version, LeagueType: lt}
	}

	return Decision{InScope: true, Reason: fmt.Sprintf("type_%s_default_allow", lt), PolicyVersion: p.Version, LeagueType: lt}
}

// LeagueRef is the minimal identity needed to evaluate scope for one league.
type LeagueRef struct {
	ID     int
	Season int
}

// FilterResult pairs a league with its scope decision when excluded.
type FilterResult struct {
	LeagueRef
	Decision
}

// FilterTrackedLeagues splits leagues into in-scope and out-of-scope sets
// for a given endpoint.
func (p *Policy) FilterTrackedLeagues(leagues []LeagueRef, endpoint string, leagueType LeagueTypeProvider) (inScope []LeagueRef, excluded []FilterResult) {
	for _, l := range leagues {
		d := p.Decide(l.ID, l.Season, endpoint, leagueType)
		if d.InScope {
			inScope = append(inScope, l)
		} else {
			excluded = append(excluded, FilterResult{LeagueRef: l, Decision: d})
		}
	}
	return inScope, excluded
}
