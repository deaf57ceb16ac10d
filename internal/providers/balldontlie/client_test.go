package balldontlie

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/providers"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestFetchScoreboardHitsAPIAndMapsResponse(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC) // should still yield 2024-01-01 in America/New_York
	var capturedAuth string
	var capturedQueries []string

	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/games" {
			t.Fatalf("expected /games path, got %s", req.URL.Path)
		}
		capturedQueries = append(capturedQueries, req.URL.RawQuery)
		capturedAuth = req.Header.Get("Authorization")

		if len(capturedQueries) == 1 {
			return jsonResponse(http.StatusOK, `{
				"data": [
					{
						"id": 10,
						"date": "2024-01-02T15:00:00Z",
						"status": "Final",
						"period": 4,
						"home_team": { "id": 1, "full_name": "Home Team", "abbreviation": "HOM" },
						"visitor_team": { "id": 2, "full_name": "Away Team", "abbreviation": "AWY" },
						"home_team_score": 110,
						"visitor_team_score": 102,
						"season": 2023
					}
				],
				"meta": { "total_pages": 2 }
			}`), nil
		}
		return jsonResponse(http.StatusOK, `{
			"data": [
				{
					"id": 11,
					"date": "2024-01-03T15:00:00Z",
					"status": "3rd Qtr",
					"time": "Q3 5:23",
					"period": 3,
					"home_team": { "id": 3, "full_name": "Another Team" },
					"visitor_team": { "id": 4, "full_name": "Away Team 2" },
					"home_team_score": 80,
					"visitor_team_score": 75,
					"season": 2023
				}
			],
			"meta": { "total_pages": 2 }
		}`), nil
	})

	client := NewClient(Config{
		BaseURL:    "http://example.com",
		APIKey:     "secret",
		HTTPClient: &http.Client{Transport: rt},
		Timezone:   "America/New_York",
		MaxPages:   2,
	})
	client.now = func() time.Time { return fixed }

	list, err := client.FetchScoreboard(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if capturedAuth != "Bearer secret" {
		t.Fatalf("expected authorization header, got %s", capturedAuth)
	}
	if len(capturedQueries) != 2 {
		t.Fatalf("expected 2 requests (pagination), got %d", len(capturedQueries))
	}
	q, err := url.ParseQuery(capturedQueries[0])
	if err != nil {
		t.Fatalf("failed parsing query %s: %v", capturedQueries[0], err)
	}
	if q.Get("per_page") != "100" {
		t.Fatalf("expected per_page=100, got %s", q.Get("per_page"))
	}
	if q.Get("dates[]") != "2024-01-01" {
		t.Fatalf("expected date=2024-01-01 in NY, got %s", q.Get("dates[]"))
	}
	if len(list) != 2 {
		t.Fatalf("expected games from both pages, got %d", len(list))
	}

	final := list[0]
	if final.ID != "balldontlie-10" || final.Provider != "balldontlie" {
		t.Fatalf("unexpected game identifiers %+v", final)
	}
	if final.Status != games.StatusFinal || final.Score.Home != 110 || final.Score.Away != 102 {
		t.Fatalf("unexpected final game %+v", final)
	}
	live := list[1]
	if live.Status != games.StatusLive || live.Period != 3 || live.Clock != "5:23" {
		t.Fatalf("unexpected live game %+v", live)
	}
}

func TestFetchScoreboardHandlesNon200(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusBadGateway, "boom"), nil
	})

	client := NewClient(Config{BaseURL: "http://example.com", HTTPClient: &http.Client{Transport: rt}})
	if _, err := client.FetchScoreboard(context.Background()); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestFetchScoreboardReturnsRateLimitError(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		resp := jsonResponse(http.StatusTooManyRequests, "slow down")
		resp.Header.Set("Retry-After", "7")
		resp.Header.Set("X-RateLimit-Remaining", "0")
		return resp, nil
	})

	client := NewClient(Config{BaseURL: "http://example.com", HTTPClient: &http.Client{Transport: rt}})
	_, err := client.FetchScoreboard(context.Background())
	rlErr, ok := providers.AsRateLimitError(err)
	if !ok {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rlErr.RetryAfter != 7*time.Second || rlErr.Remaining != "0" || rlErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected rate limit error %+v", rlErr)
	}
}

func TestFetchScoreboardHandlesDecodeError(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusOK, "{bad json"), nil
	})

	client := NewClient(Config{BaseURL: "http://example.com", HTTPClient: &http.Client{Transport: rt}})
	if _, err := client.FetchScoreboard(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetchScoreboardRespectsMaxPagesCap(t *testing.T) {
	calls := 0
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{
			"data": [
				{
					"id": 1,
					"date": "2024-01-01T00:00:00Z",
					"status": "Final",
					"home_team": { "id": 1, "full_name": "Home" },
					"visitor_team": { "id": 2, "full_name": "Away" },
					"home_team_score": 10,
					"visitor_team_score": 5,
					"season": 2023
				}
			],
			"meta": { "total_pages": 10 }
		}`), nil
	})

	client := NewClient(Config{BaseURL: "http://example.com", HTTPClient: &http.Client{Transport: rt}, MaxPages: 1})

	list, err := client.FetchScoreboard(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 game, got %d", len(list))
	}
	if calls != 1 {
		t.Fatalf("expected to stop after max pages, got %d calls", calls)
	}
}

func TestFetchEventsFollowsCursorAndMapsSides(t *testing.T) {
	var paths []string
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		paths = append(paths, req.URL.Path+"?"+req.URL.RawQuery)
		switch {
		case req.URL.Path == "/games":
			return jsonResponse(http.StatusOK, `{
				"data": [{
					"id": 42, "status": "4th Qtr", "period": 4,
					"home_team": { "id": 1 }, "visitor_team": { "id": 2 },
					"home_team_score": 2, "visitor_team_score": 3
				}],
				"meta": { "total_pages": 1 }
			}`), nil
		case req.URL.Query().Get("cursor") == "":
			if req.URL.Query().Get("game_id") != "42" {
				t.Fatalf("expected game_id=42, got %s", req.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, `{
				"data": [
					{ "order": 1, "type": "Jumpball", "text": "Jump ball", "period": 1, "clock": "12:00", "home_score": 0, "away_score": 0 },
					{ "order": 2, "type": "Jump Shot", "text": "Guard makes jumper", "period": 1, "clock": "11:40",
					  "home_score": 2, "away_score": 0, "scoring_play": true, "shooting_play": true, "score_value": 2, "team": { "id": 1 } }
				],
				"meta": { "next_cursor": 2 }
			}`), nil
		default:
			return jsonResponse(http.StatusOK, `{
				"data": [
					{ "order": 3, "type": "Three Point Jumper", "text": "Wing makes three point jumper", "period": 1, "clock": "11:10",
					  "home_score": 2, "away_score": 3, "scoring_play": true, "shooting_play": true, "score_value": 3, "team": { "id": 2 } },
					{ "order": 4, "type": "Jump Shot", "text": "Guard misses three point jumper", "period": 1, "clock": "10:55",
					  "home_score": 2, "away_score": 3, "shooting_play": true, "team": { "id": 1 } }
				],
				"meta": {}
			}`), nil
		}
	})

	client := NewClient(Config{BaseURL: "http://example.com", HTTPClient: &http.Client{Transport: rt}})
	if _, err := client.FetchScoreboard(context.Background()); err != nil {
		t.Fatalf("expected scoreboard, got %v", err)
	}

	evs, err := client.FetchEvents(context.Background(), "balldontlie-42")
	if err != nil {
		t.Fatalf("expected events, got %v", err)
	}
	if len(evs) != 4 {
		t.Fatalf("expected 4 events across pages, got %d (%v)", len(evs), paths)
	}
	if evs[1].Side != games.SideHome || evs[1].Points != 2 || evs[1].Action != games.ActionMadeShot {
		t.Fatalf("unexpected home basket %+v", evs[1])
	}
	if evs[2].Side != games.SideAway || !evs[2].IsThree() || evs[2].Score.Away != 3 {
		t.Fatalf("unexpected away three %+v", evs[2])
	}
	if evs[3].Action != games.ActionMissedShot || evs[3].ShotValue != 3 || evs[3].Points != 0 {
		t.Fatalf("unexpected missed three %+v", evs[3])
	}
}

func TestFetchEventsRejectsUnknownGameID(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://example.com"})
	if _, err := client.FetchEvents(context.Background(), "nope"); !errors.Is(err, providers.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestFetchEventsMaps404ToGameNotFound(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusNotFound, "missing"), nil
	})
	client := NewClient(Config{BaseURL: "http://example.com", HTTPClient: &http.Client{Transport: rt}})
	if _, err := client.FetchEvents(context.Background(), "balldontlie-7"); !errors.Is(err, providers.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestNewClientSetsDefaultHTTPClient(t *testing.T) {
	c := NewClient(Config{})
	httpClient, ok := c.httpClient.(*http.Client)
	if !ok {
		t.Fatalf("expected default http client")
	}
	if httpClient.Timeout == 0 {
		t.Fatalf("expected timeout to be set on default http client")
	}
}

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
