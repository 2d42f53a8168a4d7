package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntParam_UsesDefaultWhenMissing(t *testing.T) {
	require.Equal(t, 30, intParam(map[string]interface{}{}, "stale_threshold_minutes", 30))
}

func TestIntParam_AcceptsYAMLNumericTypes(t *testing.T) {
	require.Equal(t, 45, intParam(map[string]interface{}{"k": 45}, "k", 0))
	require.Equal(t, 45, intParam(map[string]interface{}{"k": int64(45)}, "k", 0))
	require.Equal(t, 45, intParam(map[string]interface{}{"k": float64(45)}, "k", 0))
}

func TestBoolParam_UsesDefaultOnWrongType(t *testing.T) {
	require.True(t, boolParam(map[string]interface{}{"k": "not-a-bool"}, "k", true))
	require.False(t, boolParam(map[string]interface{}{"k": false}, "k", true))
}

func TestClampInt_ClampsToRange(t *testing.T) {
	require.Equal(t, 5, clampInt(1, 5, 24*60))
	require.Equal(t, 24*60, clampInt(999999, 5, 24*60))
	require.Equal(t, 30, clampInt(30, 5, 24*60))
}

func TestChunkInt64_SplitsIntoBatchesOfAtMostSize(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	batches := chunkInt64(ids, 3)
	require.Len(t, batches, 3)
	require.Equal(t, []int64{1, 2, 3}, batches[0])
	require.Equal(t, []int64{4, 5, 6}, batches[1])
	require.Equal(t, []int64{7}, batches[2])
}

func TestChunkInt64_EmptyInputYieldsNoBatches(t *testing.T) {
	require.Empty(t, chunkInt64(nil, 20))
}

func TestJoinInt64_JoinsWithSeparator(t *testing.T) {
	require.Equal(t, "1-2-3", joinInt64([]int64{1, 2, 3}, "-"))
	require.Equal(t, "", joinInt64(nil, "-"))
	require.Equal(t, "7", joinInt64([]int64{7}, "-"))
}
