package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSON_NestedOffsetTimestampConverted(t *testing.T) {
	raw := json.RawMessage(`{"events":[{"time":"2024-08-10T15:00:00+02:00","detail":"Goal"}]}`)
	out := normalizeJSON(raw)
	require.JSONEq(t, `{"events":[{"time":"2024-08-10T13:00:00Z","detail":"Goal"}]}`, string(out))
}

func TestNormalizeJSON_NaiveTimestampTreatedAsUTC(t *testing.T) {
	raw := json.RawMessage(`{"kickoff":"2024-08-10T15:00:00"}`)
	out := normalizeJSON(raw)
	require.JSONEq(t, `{"kickoff":"2024-08-10T15:00:00Z"}`, string(out))
}

func TestNormalizeJSON_NonDatetimeStringsUntouched(t *testing.T) {
	raw := json.RawMessage(`{"name":"Goal","code":"2024-13-99"}`)
	out := normalizeJSON(raw)
	require.JSONEq(t, `{"name":"Goal","code":"2024-13-99"}`, string(out))
}

func TestNormalizeJSON_EmptyPayloadPassedThrough(t *testing.T) {
	require.Equal(t, json.RawMessage(nil), normalizeJSON(nil))
}

func TestNormalizeJSON_ArraysWalkedRecursively(t *testing.T) {
	raw := json.RawMessage(`[{"ts":"2024-01-01T00:00:00Z"},{"ts":"2024-01-02T00:00:00+05:00"}]`)
	out := normalizeJSON(raw)
	require.JSONEq(t, `[{"ts":"2024-01-01T00:00:00Z"},{"ts":"2024-01-01T19:00:00Z"}]`, string(out))
}
