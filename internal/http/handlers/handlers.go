package handlers

import (
	"context"
	"log/slog"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/fanout"
	"github.com/preston-bernstein/nba-live-service/internal/logging"
	"github.com/preston-bernstein/nba-live-service/internal/moments"
	"github.com/preston-bernstein/nba-live-service/internal/poller"
)

// GameReader is the read side of the live store.
type GameReader interface {
	Games() ([]games.Game, bool)
	Game(id string) (games.Game, bool)
	Events(gameID string) ([]games.PlayEvent, bool)
	IsLive(id string) bool
	Ready() bool
}

// MomentReader returns the retained moments of one game.
type MomentReader interface {
	ForGame(gameID string) []moments.Moment
}

// Hub registers websocket subscribers for pushes.
type Hub interface {
	Connect(ctx context.Context, sub fanout.Subscriber) error
	Disconnect(id string) bool
}

// EventsResponse is the body of GET /games/{id}/events.
type EventsResponse struct {
	GameID string            `json:"gameId"`
	Events []games.PlayEvent `json:"events"`
}

// MomentsResponse is the body of GET /games/{id}/moments.
type MomentsResponse struct {
	GameID  string           `json:"gameId"`
	Moments []moments.Moment `json:"moments"`
}

// Handler serves the read-only HTTP surface over the caches.
type Handler struct {
	games    GameReader
	moments  MomentReader
	hub      Hub
	logger   *slog.Logger
	statusFn func() poller.Status
}

// NewHandler constructs a Handler. moments, hub and statusFn may be nil.
func NewHandler(reader GameReader, momentReader MomentReader, hub Hub, logger *slog.Logger, statusFn func() poller.Status) *Handler {
	return &Handler{
		games:    reader,
		moments:  momentReader,
		hub:      hub,
		logger:   logger,
		statusFn: statusFn,
	}
}

func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	switch {
	case r.URL.Path == "/health":
		h.Health(w, r)
	case r.URL.Path == "/ready":
		h.Ready(w, r)
	case r.URL.Path == "/games":
		h.Games(w, r)
	case r.URL.Path == "/ws/games":
		h.Stream(w, r)
	case strings.HasPrefix(r.URL.Path, "/games/"):
		h.GameRoutes(w, r)
	default:
		writeError(w, r, nethttp.StatusNotFound, "not found", h.logger)
	}
}

// Health reports process liveness.
func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	if err := r.Context().Err(); err != nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports whether the scoreboard poller is healthy.
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	if h.statusFn == nil {
		if h.games != nil && h.games.Ready() {
			writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
			return
		}
		writeError(w, r, nethttp.StatusServiceUnavailable, "not ready", h.logger)
		return
	}
	status := h.statusFn()
	if status.IsReady() {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	msg := status.LastError
	if msg == "" {
		msg = "not ready"
	}
	writeError(w, r, nethttp.StatusServiceUnavailable, msg, h.logger)
}

// Games returns the cached scoreboard.
func (h *Handler) Games(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	list, ok := h.games.Games()
	if !ok {
		writeError(w, r, nethttp.StatusServiceUnavailable, msgNotYetAvailable, h.logger)
		return
	}
	logging.Info(loggerFromContext(r, h.logger), "served cached games", logging.FieldCount, len(list))
	writeJSON(w, nethttp.StatusOK, games.Scoreboard{Games: list}, h.logger)
}

// GameRoutes dispatches /games/{id}, /games/{id}/events and /games/{id}/moments.
func (h *Handler) GameRoutes(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	id, sub, ok := parseGamePath(r.URL.Path)
	if !ok {
		writeError(w, r, nethttp.StatusBadRequest, "invalid game id", h.logger)
		return
	}
	switch sub {
	case "":
		h.gameByID(w, r, id)
	case "events":
		h.gameEvents(w, r, id)
	case "moments":
		h.gameMoments(w, r, id)
	default:
		writeError(w, r, nethttp.StatusNotFound, "not found", h.logger)
	}
}

func (h *Handler) gameByID(w nethttp.ResponseWriter, r *nethttp.Request, id string) {
	game, ok := h.lookup(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, nethttp.StatusOK, game, h.logger)
}

func (h *Handler) gameEvents(w nethttp.ResponseWriter, r *nethttp.Request, id string) {
	if _, ok := h.lookup(w, r, id); !ok {
		return
	}
	events, ok := h.games.Events(id)
	if !ok {
		if h.games.IsLive(id) {
			writeError(w, r, nethttp.StatusServiceUnavailable, msgNotYetAvailable, h.logger)
			return
		}
		events = []games.PlayEvent{}
	}
	writeJSON(w, nethttp.StatusOK, EventsResponse{GameID: id, Events: events}, h.logger)
}

func (h *Handler) gameMoments(w nethttp.ResponseWriter, r *nethttp.Request, id string) {
	if _, ok := h.lookup(w, r, id); !ok {
		return
	}
	list := []moments.Moment{}
	if h.moments != nil {
		if found := h.moments.ForGame(id); len(found) > 0 {
			list = found
		}
	}
	writeJSON(w, nethttp.StatusOK, MomentsResponse{GameID: id, Moments: list}, h.logger)
}

// lookup writes 503 before the first scoreboard and 404 for unknown ids.
func (h *Handler) lookup(w nethttp.ResponseWriter, r *nethttp.Request, id string) (games.Game, bool) {
	game, ok := h.games.Game(id)
	if ok {
		return game, true
	}
	if !h.games.Ready() {
		writeError(w, r, nethttp.StatusServiceUnavailable, msgNotYetAvailable, h.logger)
		return games.Game{}, false
	}
	writeError(w, r, nethttp.StatusNotFound, "game not found", h.logger)
	return games.Game{}, false
}

// Stream upgrades to a websocket and keeps the subscriber connected until the
// client goes away.
func (h *Handler) Stream(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet, h.logger) {
		return
	}
	if h.hub == nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "streaming disabled", h.logger)
		return
	}
	logger := loggerFromContext(r, h.logger)

	conn, err := fanout.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		logging.Warn(logger, "websocket upgrade failed", "error", err)
		return
	}
	sub := fanout.NewWebsocketSubscriber(conn)
	if err := h.hub.Connect(r.Context(), sub); err != nil {
		logging.Warn(logger, "websocket initial sync failed", logging.FieldSubscriber, sub.ID(), "error", err)
		return
	}
	sub.ReadPump()
	h.hub.Disconnect(sub.ID())
}

func parseGamePath(path string) (id, sub string, ok bool) {
	rest := strings.Trim(strings.TrimPrefix(path, "/games"), "/")
	if rest == "" {
		return "", "", false
	}
	rawID, sub, _ := strings.Cut(rest, "/")
	id, err := url.PathUnescape(rawID)
	if err != nil || id == "" || strings.ContainsAny(id, " \t/") {
		return "", "", false
	}
	return id, sub, true
}
