package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// JobSpec is one entry of the jobs/*.yaml catalogue - a tagged union
// whose "type" field selects which of the job families in internal/jobs
// runs it. Every job shares id/enabled/type/trigger; the rest are
// consumed ad hoc by each job's Run implementation via Params.
type JobSpec struct {
	ID           string                 `yaml:"id"`
	Enabled      bool                   `yaml:"enabled"`
	Type         string                 `yaml:"type"`
	Endpoint     string                 `yaml:"endpoint"`
	Trigger      Trigger                `yaml:"trigger"`
	DependsOn    []string               `yaml:"depends_on"`
	TrackedMode  string                 `yaml:"tracked_mode"`
	Params       map[string]interface{} `yaml:"params"`
}

// Trigger is a cron expression or an interval in seconds - exactly one
// should be set.
type Trigger struct {
	Cron            string `yaml:"cron"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// Catalogue is the full set of job specs loaded from jobs/*.yaml.
type Catalogue struct {
	Jobs []JobSpec
}

// LoadCatalogue reads every *.yaml file in dir and concatenates their job
// lists, matching the spec's static+daily+live job file split.
func LoadCatalogue(dir string) (*Catalogue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read jobs dir: %w", err)
	}

	cat := &Catalogue{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var doc struct {
			Jobs []JobSpec `yaml:"jobs"`
		}
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cat.Jobs = append(cat.Jobs, doc.Jobs...)
	}
	return cat, nil
}

// ApplyBootstrapScopeInheritance fills in a bootstrap job's tracked
// leagues from the daily config's tracked list when the bootstrap job
// doesn't specify its own. The season is inherited the same way, but only
// when the daily list is unambiguous (exactly one season in play).
func (c *Catalogue) ApplyBootstrapScopeInheritance(trackedLeagueIDs []int, trackedSeason int, unambiguousSeason bool) {
	for i := range c.Jobs {
		j := &c.Jobs[i]
		if j.Type != "bootstrap_leagues" && j.Type != "bootstrap_teams" {
			continue
		}
		if j.Params == nil {
			j.Params = map[string]interface{}{}
		}
		if _, ok := j.Params["leagues"]; !ok {
			ids := make([]interface{}, len(trackedLeagueIDs))
			for i, id := range trackedLeagueIDs {
				ids[i] = id
			}
			j.Params["leagues"] = ids
		}
		if _, ok := j.Params["season"]; !ok && unambiguousSeason {
			j.Params["season"] = trackedSeason
		}
	}
}
