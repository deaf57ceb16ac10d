package http

import (
	nethttp "net/http"

	"github.com/preston-bernstein/nba-live-service/internal/http/handlers"
)

// NewRouter registers HTTP routes on a ServeMux. admin may be nil.
func NewRouter(handler *handlers.Handler, admin *handlers.AdminHandler) *nethttp.ServeMux {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/ready", handler.Ready)
	mux.HandleFunc("/games", handler.Games)
	mux.HandleFunc("/games/", handler.GameRoutes)
	mux.HandleFunc("/ws/games", handler.Stream)
	if admin != nil {
		mux.HandleFunc("/admin/refresh", admin.Refresh)
	}
	mux.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		handler.ServeHTTP(w, r)
	})
	return mux
}
