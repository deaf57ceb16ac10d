package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/http/handlers"
	"github.com/preston-bernstein/nba-live-service/internal/testutil"
)

func TestRouterRoutesKnownPaths(t *testing.T) {
	s := testutil.NewLiveStoreWithGames([]games.Game{testutil.SampleLiveGame("g1", 3, 0)})
	h := handlers.NewHandler(s, nil, nil, nil, nil)

	router := NewRouter(h, nil)

	cases := map[string]int{
		"/health":            http.StatusOK,
		"/ready":             http.StatusOK,
		"/games":             http.StatusOK,
		"/games/g1":          http.StatusOK,
		"/games/g1/moments":  http.StatusOK,
		"/games/foo":         http.StatusNotFound,
		"/games/g1/events":   http.StatusServiceUnavailable,
		"/ws/games":          http.StatusServiceUnavailable,
		"/does-not-exist":    http.StatusNotFound,
		"/admin/refresh":     http.StatusNotFound,
		"/games/g1/whatever": http.StatusNotFound,
	}

	for path, expected := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != expected {
			t.Fatalf("route %s expected status %d, got %d", path, expected, rr.Code)
		}
	}
}

func TestRouterMountsAdminWhenConfigured(t *testing.T) {
	h := handlers.NewHandler(testutil.NewLiveStoreWithGames(nil), nil, nil, nil, nil)
	admin := handlers.NewAdminHandler(handlers.RefreshFunc(func(context.Context) (int, error) { return 0, nil }), "secret", nil)

	router := NewRouter(h, admin)

	req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected admin refresh to be routed, got %d", rr.Code)
	}
}
