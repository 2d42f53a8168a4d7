package delta

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, 60, nil)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestHasChanged_FirstSeenFixture(t *testing.T) {
	d := newTestDetector(t)
	ctx := context.Background()

	changed := d.HasChanged(ctx, 1001, FixtureState{Status: strPtr("1H"), GoalsHome: intPtr(0), GoalsAway: intPtr(0)})
	require.True(t, changed, "a fixture never seen before must report changed")
}

func TestHasChanged_NoScoreChange(t *testing.T) {
	d := newTestDetector(t)
	ctx := context.Background()

	state := FixtureState{Status: strPtr("1H"), GoalsHome: intPtr(1), GoalsAway: intPtr(0), Elapsed: intPtr(23)}
	d.UpdateCache(ctx, 2002, state)

	sameState := FixtureState{Status: strPtr("1H"), GoalsHome: intPtr(1), GoalsAway: intPtr(0), Elapsed: intPtr(23)}
	require.False(t, d.HasChanged(ctx, 2002, sameState), "identical state must not report changed")
}

func TestHasChanged_ScoreChange(t *testing.T) {
	d := newTestDetector(t)
	ctx := context.Background()

	d.UpdateCache(ctx, 3003, FixtureState{Status: strPtr("1H"), GoalsHome: intPtr(0), GoalsAway: intPtr(0)})

	after := FixtureState{Status: strPtr("1H"), GoalsHome: intPtr(1), GoalsAway: intPtr(0)}
	require.True(t, d.HasChanged(ctx, 3003, after), "a goal change must report changed")
}

func TestGetDiff_FirstSeenReportsAllFieldsWithNilOld(t *testing.T) {
	d := newTestDetector(t)
	ctx := context.Background()

	diff := d.GetDiff(ctx, 4004, FixtureState{Status: strPtr("NS"), GoalsHome: intPtr(0), GoalsAway: intPtr(0)})
	require.Len(t, diff, 4)
	require.Nil(t, diff["status"].Old)
	require.Equal(t, "NS", diff["status"].New)
}

func TestGetDiff_OnlyChangedFieldsReported(t *testing.T) {
	d := newTestDetector(t)
	ctx := context.Background()

	d.UpdateCache(ctx, 5005, FixtureState{Status: strPtr("1H"), GoalsHome: intPtr(0), GoalsAway: intPtr(0), Elapsed: intPtr(10)})

	diff := d.GetDiff(ctx, 5005, FixtureState{Status: strPtr("1H"), GoalsHome: intPtr(0), GoalsAway: intPtr(0), Elapsed: intPtr(11)})
	require.Len(t, diff, 1)
	_, ok := diff["elapsed"]
	require.True(t, ok)
}

func TestClearCache_ResetsToFirstSeen(t *testing.T) {
	d := newTestDetector(t)
	ctx := context.Background()

	d.UpdateCache(ctx, 6006, FixtureState{Status: strPtr("FT"), GoalsHome: intPtr(2), GoalsAway: intPtr(1)})
	d.ClearCache(ctx, 6006)

	require.True(t, d.HasChanged(ctx, 6006, FixtureState{Status: strPtr("FT"), GoalsHome: intPtr(2), GoalsAway: intPtr(1)}))
}
