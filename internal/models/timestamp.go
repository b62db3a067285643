package models

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type storeTimestamp struct {
	Seconds      *int64 `json:"seconds"`
	Nanoseconds  int64  `json:"nanoseconds"`
	USeconds     *int64 `json:"_seconds"`
	UNanoseconds int64  `json:"_nanoseconds"`
}

// ParseTimestamp normalizes the timestamp encodings written by the mobile apps
// into a time.Time. Accepted forms: null or empty (zero time), epoch
// milliseconds, date strings, and {seconds,nanoseconds} objects with or
// without leading underscores.
func ParseTimestamp(raw []byte) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("failed to decode timestamp string: %w", err)
		}
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)

	case '{':
		var ts storeTimestamp
		if err := json.Unmarshal(raw, &ts); err != nil {
			return time.Time{}, fmt.Errorf("failed to decode timestamp object: %w", err)
		}
		switch {
		case ts.Seconds != nil:
			return time.Unix(*ts.Seconds, ts.Nanoseconds), nil
		case ts.USeconds != nil:
			return time.Unix(*ts.USeconds, ts.UNanoseconds), nil
		}
		return time.Time{}, fmt.Errorf("timestamp object without seconds")

	default:
		var ms float64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return time.Time{}, fmt.Errorf("failed to decode timestamp number: %w", err)
		}
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return time.Time{}, fmt.Errorf("non-finite timestamp")
		}
		return time.UnixMilli(int64(ms)), nil
	}
}
