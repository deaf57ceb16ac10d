package timeutil

import (
	"testing"
	"time"
)

func TestGameDateKeepsLateGamesOnTipOffNight(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC), "2024-01-01"},  // 22:00 ET
		{time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), "2024-01-01"},  // 03:00 ET
		{time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC), "2024-01-02"}, // 06:00 ET
	}
	for _, tc := range cases {
		if got := GameDate(tc.at, ny); got != tc.want {
			t.Fatalf("GameDate(%s) = %s, want %s", tc.at, got, tc.want)
		}
	}
}

func TestGameDateDefaultsToUTC(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := GameDate(at, nil); got != "2024-03-10" {
		t.Fatalf("expected UTC date, got %s", got)
	}
}

func TestLoadLocation(t *testing.T) {
	if loc := LoadLocation("UTC", nil); loc == nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v", loc)
	}
	fallback := time.FixedZone("fallback", 0)
	if loc := LoadLocation("Not/AZone", fallback); loc != fallback {
		t.Fatalf("expected fallback for unknown zone, got %v", loc)
	}
	if loc := LoadLocation("", nil); loc != nil {
		t.Fatalf("expected nil fallback for empty name, got %v", loc)
	}
}
