package settings

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHistoryLimit_SnapshotOverridesFallback(t *testing.T) {
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		HistoryLimitKey:         json.RawMessage(`"5"`),
		HistoryRetentionDaysKey: json.RawMessage(`-1`),
	})
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	if got := HistoryLimit(10); got != 5 {
		t.Fatalf("expected limit 5, got %d", got)
	}
	if got := HistoryRetentionDays(30); got != 30 {
		t.Fatalf("expected fallback retention 30 for invalid value, got %d", got)
	}
}

func TestParseNonNegativeInt(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{raw: `7`, want: 7, ok: true},
		{raw: `"12"`, want: 12, ok: true},
		{raw: `3.0`, want: 3, ok: true},
		{raw: `3.5`, ok: false},
		{raw: `-2`, want: -2, ok: false},
		{raw: `true`, ok: false},
		{raw: ``, ok: false},
	}
	for _, tc := range cases {
		got, ok := ParseNonNegativeInt(json.RawMessage(tc.raw))
		if ok != tc.ok {
			t.Fatalf("raw %q: expected ok=%v, got %v", tc.raw, tc.ok, ok)
		}
		if ok && got != tc.want {
			t.Fatalf("raw %q: expected %d, got %d", tc.raw, tc.want, got)
		}
	}
}
