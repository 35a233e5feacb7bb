// Package server provides the artifact preview HTTP server: it exposes the
// generated map and report files, along with health and metrics endpoints.
package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Config holds configuration for the preview server.
type Config struct {
	// MapPath and ReportPath locate the generated artifacts. A missing
	// file yields 404, not an error; the pipeline may simply not have run
	// yet.
	MapPath    string
	ReportPath string

	Version string
	Logger  zerolog.Logger

	// RateLimit is the per-IP request budget per minute (default: 100).
	RateLimit int
}

// NewRouter creates a chi router serving the artifacts.
func NewRouter(cfg Config) *chi.Mux {
	rateLimit := cfg.RateLimit
	if rateLimit == 0 {
		rateLimit = 100
	}

	r := chi.NewRouter()

	// Order matters: the request ID feeds the logger.
	r.Use(RequestID)
	r.Use(Logger(cfg.Logger))
	r.Use(Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(RateLimitByIP(rateLimit, time.Minute))

	r.Get("/", indexHandler)
	r.Get("/map", artifactHandler(cfg.MapPath, "text/html; charset=utf-8"))
	r.Get("/report.csv", artifactHandler(cfg.ReportPath, "text/csv; charset=utf-8"))
	r.Get("/healthz", healthHandler(cfg.Version))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func indexHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>aqimap</title></head><body>
<h1>aqimap artifacts</h1>
<ul>
<li><a href="/map">AQI map</a></li>
<li><a href="/report.csv">AQI report (CSV)</a></li>
</ul>
</body></html>
`)
}

func artifactHandler(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(path); err != nil {
			http.Error(w, "artifact not generated yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		http.ServeFile(w, r, path)
	}
}

func healthHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"healthy","version":%q}`, version)
	}
}
