package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TrackedLeague is one entry of daily.yaml's tracked_leagues list - the
// scope every daily/maintenance job operates within.
type TrackedLeague struct {
	ID     int    `yaml:"id"`
	Season int    `yaml:"season"`
	Name   string `yaml:"name"`
}

// rawTracked mirrors daily.yaml's on-disk shape: a top-level season
// fallback plus a tracked_leagues list where each entry may omit season.
type rawTracked struct {
	Season         *int `yaml:"season"`
	TrackedLeagues []struct {
		ID     int    `yaml:"id"`
		Season *int   `yaml:"season"`
		Name   string `yaml:"name"`
	} `yaml:"tracked_leagues"`
}

// TrackedConfig is the parsed, ready-to-use tracked-leagues scope.
type TrackedConfig struct {
	Leagues []TrackedLeague
}

// LoadTracked reads daily.yaml's tracked_leagues list, filling in any
// entry missing its own season from the top-level season field.
func LoadTracked(path string) (*TrackedConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tracked config: %w", err)
	}

	var raw rawTracked
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse tracked config: %w", err)
	}
	if len(raw.TrackedLeagues) == 0 {
		return nil, fmt.Errorf("missing tracked_leagues in %s", path)
	}

	out := &TrackedConfig{}
	for _, l := range raw.TrackedLeagues {
		season := 0
		switch {
		case l.Season != nil:
			season = *l.Season
		case raw.Season != nil:
			season = *raw.Season
		default:
			return nil, fmt.Errorf("missing season for tracked league %d in %s", l.ID, path)
		}
		out.Leagues = append(out.Leagues, TrackedLeague{ID: l.ID, Season: season, Name: l.Name})
	}
	return out, nil
}

// LeagueIDs returns the distinct league ids tracked.
func (c *TrackedConfig) LeagueIDs() []int {
	seen := map[int]struct{}{}
	var ids []int
	for _, l := range c.Leagues {
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		ids = append(ids, l.ID)
	}
	return ids
}

// Seasons returns the distinct seasons tracked.
func (c *TrackedConfig) Seasons() []int {
	seen := map[int]struct{}{}
	var out []int
	for _, l := range c.Leagues {
		if _, ok := seen[l.Season]; ok {
			continue
		}
		seen[l.Season] = struct{}{}
		out = append(out, l.Season)
	}
	return out
}

// UnambiguousSeason reports the single season in play when every tracked
// league shares the same season - the bootstrap-scope-inheritance
// condition for filling in a bootstrap job's season.
func (c *TrackedConfig) UnambiguousSeason() (int, bool) {
	seasons := c.Seasons()
	if len(seasons) != 1 {
		return 0, false
	}
	return seasons[0], true
}
