package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/postfeed/internal/config"
	"github.com/rickgao/postfeed/internal/connection"
	"github.com/rickgao/postfeed/internal/feed"
	"github.com/rickgao/postfeed/internal/version"
)

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(client *feed.Client, reg *prometheus.Registry, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(config.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		stats := client.Stats()

		health := struct {
			Status         string `json:"status"`
			Connection     string `json:"connection"`
			Failures       int    `json:"failures"`
			AttemptPending bool   `json:"attempt_pending"`
			TransportOpens int    `json:"transport_opens"`
			Version        string `json:"version"`
		}{
			Status:         "healthy",
			Connection:     stats.State.String(),
			Failures:       stats.Failures,
			AttemptPending: stats.AttemptPending,
			TransportOpens: stats.TransportOpens,
			Version:        version.Get().Version,
		}

		switch stats.State {
		case connection.StateConnecting:
			health.Status = "degraded"
		case connection.StateDisconnected:
			health.Status = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}
