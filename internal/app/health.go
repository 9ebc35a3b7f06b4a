package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/tripbot/core/buildinfo"
	"github.com/m3rciful/tripbot/core/logger"
)

const aliveText = "Ich bin online!"

type healthResponse struct {
	Status         string         `json:"status"`
	Build          buildinfo.Info `json:"build"`
	ActiveSessions int            `json:"active_sessions"`
	Uptime         string         `json:"uptime"`
}

// NewHealthHandler serves the keep-alive ping on "/", a JSON status on
// "/healthz" and Prometheus metrics on "/metrics".
func NewHealthHandler(sessions func() int, startedAt time.Time) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, aliveText)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status: "ok",
			Build:  buildinfo.Current(),
			Uptime: time.Since(startedAt).Round(time.Second).String(),
		}
		if sessions != nil {
			resp.ActiveSessions = sessions()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.LogEvent(r.Context(), logger.HTTP, slog.LevelWarn, "healthz.encode",
				slog.String("err", err.Error()),
			)
		}
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// newServer wraps handler with the listener timeouts.
func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
