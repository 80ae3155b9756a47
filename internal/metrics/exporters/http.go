// Package exporters exposes collected metrics to scrapers.
package exporters

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer returns an HTTP server that serves the default
// Prometheus registry on /metrics. Everything registered through
// promauto is picked up without further wiring. The caller owns the
// listen and shutdown lifecycle.
func NewHTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
