package transform

import (
	"encoding/json"
	"regexp"
	"time"
)

// isoDatetimeRE is a small heuristic for "looks like an ISO-8601
// datetime string", not a full RFC3339 validator.
var isoDatetimeRE = regexp.MustCompile(
	`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d{1,6})?(?:Z|[+-]\d{2}:\d{2})?$`,
)

// normalizeNestedTimestamps walks arbitrary decoded JSON (maps, slices,
// scalars) and rewrites any ISO-8601 datetime string to UTC: a naive
// string (no Z/offset suffix) is treated as already UTC, and an
// offset/Z suffix is converted. Non-datetime strings and every other
// value pass through unchanged.
func normalizeNestedTimestamps(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			val[k] = normalizeNestedTimestamps(child)
		}
		return val
	case []interface{}:
		for i, child := range val {
			val[i] = normalizeNestedTimestamps(child)
		}
		return val
	case string:
		return normalizeTimestampString(val)
	default:
		return v
	}
}

// normalizeTimestampString converts s to a UTC RFC3339 string if it
// looks like an ISO-8601 datetime, otherwise returns it unchanged.
func normalizeTimestampString(s string) string {
	if !isoDatetimeRE.MatchString(s) {
		return s
	}

	layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

// normalizeJSON decodes a JSON payload, applies normalizeNestedTimestamps
// recursively, and re-encodes it. An empty or unparsable payload is
// returned unchanged - only shaped JSON gets rewritten.
func normalizeJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return raw
	}

	out, err := json.Marshal(normalizeNestedTimestamps(decoded))
	if err != nil {
		return raw
	}
	return out
}
