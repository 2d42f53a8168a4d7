// Package delta implements a Redis-backed change detector for live
// fixture state, used to skip writes when nothing has actually changed.
package delta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTTLSeconds = 7200

// FixtureState is the subset of live fixture fields compared across polls.
type FixtureState struct {
	Status     *string `json:"status"`
	GoalsHome  *int    `json:"goals_home"`
	GoalsAway  *int    `json:"goals_away"`
	Elapsed    *int    `json:"elapsed"`
}

// FieldDiff describes the before/after of one changed field.
type FieldDiff struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Detector is a Redis-backed delta detector. Cache key: fixture:{id}.
// Fails open (treats as changed) on any Redis error or corrupt payload.
type Detector struct {
	rdb        *redis.Client
	ttlSeconds int
	logger     *zap.Logger
}

// New builds a Detector against rdb with the given TTL (0 uses the 2h default).
func New(rdb *redis.Client, ttlSeconds int, logger *zap.Logger) *Detector {
	if ttlSeconds <= 0 {
		ttlSeconds = defaultTTLSeconds
	}
	return &Detector{rdb: rdb, ttlSeconds: ttlSeconds, logger: logger}
}

func key(fixtureID int64) string {
	return fmt.Sprintf("fixture:%d", fixtureID)
}

func (d *Detector) getCached(ctx context.Context, fixtureID int64) (*FixtureState, error) {
	raw, err := d.rdb.Get(ctx, key(fixtureID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("redis_get_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
		}
		return nil, err
	}

	var state FixtureState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		if d.logger != nil {
			d.logger.Warn("redis_payload_invalid_json", zap.Int64("fixture_id", fixtureID))
		}
		return nil, nil
	}
	return &state, nil
}

// HasChanged reports whether current differs from the cached state. A
// missing cache entry or a Redis error both report changed=true.
func (d *Detector) HasChanged(ctx context.Context, fixtureID int64, current FixtureState) bool {
	cached, err := d.getCached(ctx, fixtureID)
	if err != nil || cached == nil {
		return true
	}
	return !equalState(*cached, current)
}

func equalState(a, b FixtureState) bool {
	return intPtrEqual(a.GoalsHome, b.GoalsHome) &&
		intPtrEqual(a.GoalsAway, b.GoalsAway) &&
		intPtrEqual(a.Elapsed, b.Elapsed) &&
		strPtrEqual(a.Status, b.Status)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// GetDiff returns per-field {old, new} pairs for changed fields. When the
// cache is genuinely missing (first-seen fixture, confirmed via EXISTS) it
// returns all tracked fields with old=nil. When Redis itself is
// unreachable, it returns a diff with only the "_cache_unavailable" marker
// so callers can distinguish "new data" from "can't tell".
func (d *Detector) GetDiff(ctx context.Context, fixtureID int64, current FixtureState) map[string]FieldDiff {
	cached, err := d.getCached(ctx, fixtureID)
	if cached != nil {
		return diffFields(*cached, current)
	}
	if err == nil {
		// Confirmed cache miss (no error): first-seen fixture.
		return map[string]FieldDiff{
			"status":     {Old: nil, New: deref(current.Status)},
			"goals_home": {Old: nil, New: deref(current.GoalsHome)},
			"goals_away": {Old: nil, New: deref(current.GoalsAway)},
			"elapsed":    {Old: nil, New: deref(current.Elapsed)},
		}
	}

	exists, existsErr := d.rdb.Exists(ctx, key(fixtureID)).Result()
	if existsErr != nil {
		return map[string]FieldDiff{"_cache_unavailable": {Old: true, New: true}}
	}
	if exists == 0 {
		return map[string]FieldDiff{
			"status":     {Old: nil, New: deref(current.Status)},
			"goals_home": {Old: nil, New: deref(current.GoalsHome)},
			"goals_away": {Old: nil, New: deref(current.GoalsAway)},
			"elapsed":    {Old: nil, New: deref(current.Elapsed)},
		}
	}
	return map[string]FieldDiff{"_cache_unavailable": {Old: true, New: true}}
}

func deref(v any) any {
	switch p := v.(type) {
	case *int:
		if p == nil {
			return nil
		}
		return *p
	case *string:
		if p == nil {
			return nil
		}
		return *p
	default:
		return v
	}
}

func diffFields(cached, current FixtureState) map[string]FieldDiff {
	out := map[string]FieldDiff{}
	if !strPtrEqual(cached.Status, current.Status) {
		out["status"] = FieldDiff{Old: deref(cached.Status), New: deref(current.Status)}
	}
	if !intPtrEqual(cached.GoalsHome, current.GoalsHome) {
		out["goals_home"] = FieldDiff{Old: deref(cached.GoalsHome), New: deref(current.GoalsHome)}
	}
	if !intPtrEqual(cached.GoalsAway, current.GoalsAway) {
		out["goals_away"] = FieldDiff{Old: deref(cached.GoalsAway), New: deref(current.GoalsAway)}
	}
	if !intPtrEqual(cached.Elapsed, current.Elapsed) {
		out["elapsed"] = FieldDiff{Old: deref(cached.Elapsed), New: deref(current.Elapsed)}
	}
	return out
}

// UpdateCache stores current state with the configured TTL. Errors are
// logged and swallowed; the cache is best-effort.
func (d *Detector) UpdateCache(ctx context.Context, fixtureID int64, current FixtureState) {
	payload, err := json.Marshal(current)
	if err != nil {
		return
	}
	if err := d.rdb.SetEx(ctx, key(fixtureID), payload, time.Duration(d.ttlSeconds)*time.Second).Err(); err != nil {
		if d.logger != nil {
			d.logger.Warn("redis_setex_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
		}
	}
}

// ClearCache deletes the cached state for a fixture.
func (d *Detector) ClearCache(ctx context.Context, fixtureID int64) {
	if err := d.rdb.Del(ctx, key(fixtureID)).Err(); err != nil {
		if d.logger != nil {
			d.logger.Warn("redis_delete_failed", zap.Int64("fixture_id", fixtureID), zap.Error(err))
		}
	}
}
