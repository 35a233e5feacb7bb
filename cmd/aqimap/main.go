// Package main provides the entrypoint for the one-shot AQI pipeline: it
// fetches the current station dataset, renders the map artifact, and writes
// the distance-ranked report.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/aqimap/aqimap/internal/aqi/moenv"
	"github.com/aqimap/aqimap/internal/config"
	"github.com/aqimap/aqimap/internal/observability"
	"github.com/aqimap/aqimap/internal/pipeline"
	"github.com/aqimap/aqimap/internal/render"
	"github.com/aqimap/aqimap/internal/report"
	"github.com/aqimap/aqimap/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aqimap"

	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	log := newLogger(serviceName)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log = log.Level(parseLevel(log, cfg.LogLevel))
	if cfg.LogFormat == "text" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	log.Info().Str("build_time", BuildTime).Msg("starting AQI pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	p := pipeline.New(pipeline.Config{
		Fetcher: moenv.NewClient(moenv.ClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.FetchTimeout,
		}),
		Map: render.NewMapRenderer(render.Config{
			OutputPath: cfg.MapPath(),
			Logger:     log,
			Metrics:    metrics,
		}),
		Report: report.NewBuilder(report.Config{
			OutputPath: cfg.ReportPath(),
			Reference:  cfg.Reference,
			Logger:     log,
			Metrics:    metrics,
		}),
		FetchLimit: cfg.FetchLimit,
		Logger:     log,
		Metrics:    metrics,
	})

	result, err := p.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("pipeline run failed")
		os.Exit(1)
	}

	event := log.Info().
		Str("run_id", result.RunID).
		Int("records", result.RecordCount).
		Str("map", result.MapPath).
		Str("report", result.ReportPath)
	if result.Nearest != nil {
		event = event.
			Str("nearest_station", result.Nearest.SiteName).
			Float64("nearest_distance_km", result.Nearest.DistanceKM)
	}
	event.Msg("done")
}

func newLogger(serviceName string) zerolog.Logger {
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
}

func parseLevel(log zerolog.Logger, level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
		return zerolog.InfoLevel
	}
	return lvl
}
