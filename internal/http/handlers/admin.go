package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/preston-bernstein/nba-live-service/internal/http/requestutil"
	"github.com/preston-bernstein/nba-live-service/internal/logging"
)

// Refresher runs one out-of-band refresh and reports how many games it saw.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context) (int, error)

func (f RefreshFunc) Refresh(ctx context.Context) (int, error) { return f(ctx) }

// AdminHandler exposes token-guarded operator endpoints.
type AdminHandler struct {
	refresher Refresher
	token     string
	logger    *slog.Logger
}

// NewAdminHandler constructs an AdminHandler. An empty token rejects every request.
func NewAdminHandler(refresher Refresher, token string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		refresher: refresher,
		token:     token,
		logger:    logger,
	}
}

// Refresh polls the scoreboard immediately instead of waiting for the next tick.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost, h.logger) {
		return
	}
	logger := loggerFromContext(r, h.logger)
	if !h.authorize(r) {
		logging.Warn(logger, "admin unauthorized",
			slog.String(logging.FieldPath, r.URL.Path),
			slog.String("client_ip", requestutil.ClientIP(r)),
		)
		writeError(w, r, http.StatusUnauthorized, "unauthorized", logger)
		return
	}
	if h.refresher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "refresh not configured", logger)
		return
	}

	count, err := h.refresher.Refresh(r.Context())
	if err != nil {
		logging.Warn(logger, "admin refresh failed", slog.Any("error", err))
		writeError(w, r, http.StatusBadGateway, "refresh failed", logger)
		return
	}
	logging.Info(logger, "admin refresh complete", slog.Int(logging.FieldCount, count))
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"games":  count,
	}, logger)
}

func (h *AdminHandler) authorize(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	want := []byte("Bearer " + h.token)
	return subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) == 1
}
