package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestRecorderTracksProviderAttemptsAndErrors(t *testing.T) {
	rec := NewRecorder()
	rec.RecordProviderAttempt("balldontlie", 10*time.Millisecond, nil)
	rec.RecordProviderAttempt("balldontlie", 15*time.Millisecond, errors.New("boom"))

	if got := rec.ProviderCalls("balldontlie"); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
	if got := rec.ProviderErrors("balldontlie"); got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}

	snap := rec.Snapshot("balldontlie")
	if snap.Calls != 2 || snap.Errors != 1 || snap.LastCallLatency != 15*time.Millisecond {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRecorderTracksRateLimits(t *testing.T) {
	rec := NewRecorder()
	rec.RecordRateLimit("balldontlie", 5*time.Second)
	rec.RecordRateLimit("balldontlie", 0)

	if got := rec.RateLimitHits("balldontlie"); got != 2 {
		t.Fatalf("expected 2 rate limit hits, got %d", got)
	}
	if got := rec.LastRetryAfter("balldontlie"); got != 5*time.Second {
		t.Fatalf("expected last retry-after to be 5s, got %s", got)
	}
}

func TestRecorderTracksCacheAccessAndEvictions(t *testing.T) {
	rec := NewRecorder()
	rec.RecordCacheAccess("games", true)
	rec.RecordCacheAccess("games", false)
	rec.RecordCacheAccess("games", true)
	rec.RecordCacheEviction("games", "capacity")

	stats := rec.Cache("games")
	if stats.Hits != 2 || stats.Misses != 1 || stats.Evictions != 1 {
		t.Fatalf("unexpected cache stats %+v", stats)
	}
	if rec.Cache("unknown") != (CacheStats{}) {
		t.Fatalf("expected empty stats for unknown cache")
	}
}

func TestRecorderTracksActivity(t *testing.T) {
	rec := NewRecorder()
	rec.AddSubscribers(3)
	rec.AddSubscribers(-1)
	rec.RecordBroadcast(2, 1)
	rec.RecordMoment("tie")
	rec.RecordMoment("tie")
	rec.RecordInferenceCall(4, time.Millisecond, nil)
	rec.RecordInferenceCall(2, time.Millisecond, errors.New("boom"))
	rec.RecordLimiterWait(time.Second)

	act := rec.Activity()
	if act.Subscribers != 2 || act.Broadcasts != 1 || act.SendFailures != 1 {
		t.Fatalf("unexpected fanout activity %+v", act)
	}
	if act.Moments["tie"] != 2 {
		t.Fatalf("expected 2 tie moments, got %d", act.Moments["tie"])
	}
	if act.InferenceCalls != 2 || act.InferenceErrors != 1 || act.LimiterWaits != 1 {
		t.Fatalf("unexpected inference activity %+v", act)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.RecordProviderAttempt("p", time.Millisecond, nil)
	rec.RecordRateLimit("p", time.Second)
	rec.RecordPollerCycle("scoreboard", time.Millisecond, nil)
	rec.RecordCacheAccess("games", true)
	rec.RecordCacheEviction("games", "swept")
	rec.RecordBroadcast(1, 0)
	rec.AddSubscribers(1)
	rec.RecordMoment("run")
	rec.RecordInferenceCall(1, time.Millisecond, nil)
	rec.RecordLimiterWait(time.Millisecond)
	if rec.Snapshot("p") != (Snapshot{}) {
		t.Fatalf("expected empty snapshot from nil recorder")
	}
	if rec.Activity().Broadcasts != 0 {
		t.Fatalf("expected empty activity from nil recorder")
	}
}
