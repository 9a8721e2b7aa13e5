package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/omochice/room-chat/internal/chat"
)

// Stats is the body of GET /stats.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// NewHandler builds the HTTP surface: the WebSocket endpoint at wsPath (and at "/"),
// plus /healthz, /stats and /metrics, all behind CORS.
func NewHandler(hub *chat.Hub, wsHandler http.Handler, wsPath string, gatherer prometheus.Gatherer, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(wsPath, wsHandler)
	if wsPath != "/" {
		mux.Handle("/{$}", wsHandler)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Stats{Rooms: hub.RoomCount(), Connections: hub.ClientCount()})
	})
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}
