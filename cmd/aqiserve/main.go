// Package main provides the entrypoint for the artifact preview server. It
// serves the map and report files generated by the aqimap pipeline.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/aqimap/aqimap/internal/config"
	"github.com/aqimap/aqimap/internal/server"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "aqiserve").
		Str("version", Version).
		Logger()

	cfg, err := config.LoadPreview()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if lvl, lvlErr := zerolog.ParseLevel(cfg.LogLevel); lvlErr == nil {
		log = log.Level(lvl)
	}
	if cfg.LogFormat == "text" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	router := server.NewRouter(server.Config{
		MapPath:    cfg.MapPath(),
		ReportPath: cfg.ReportPath(),
		Version:    Version,
		Logger:     log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("build_time", BuildTime).
			Msg("preview server listening")
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Fatal().Err(serveErr).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
