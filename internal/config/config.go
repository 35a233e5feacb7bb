// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aqimap/aqimap/internal/geo"
)

// Taipei Main Station, the reference point station distances are measured
// against.
const (
	defaultReferenceLat = 25.0478
	defaultReferenceLon = 121.5170
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	// APIKey is the MOENV open-data platform key. Required; its absence is
	// fatal before any network call.
	APIKey string

	BaseURL      string
	FetchLimit   int
	FetchTimeout time.Duration

	OutputDir  string
	MapFile    string
	ReportFile string

	// Reference is the point all station distances are measured against.
	Reference geo.Point

	LogLevel  string
	LogFormat string

	OTelEnabled  bool
	OTLPEndpoint string
	Environment  string
}

// MapPath returns the full path of the map artifact.
func (c *Config) MapPath() string { return filepath.Join(c.OutputDir, c.MapFile) }

// ReportPath returns the full path of the report artifact.
func (c *Config) ReportPath() string { return filepath.Join(c.OutputDir, c.ReportFile) }

// Load reads pipeline configuration from environment variables, applying
// defaults where unset. MOENV_API_KEY has no default.
func Load() (*Config, error) {
	apiKey := os.Getenv("MOENV_API_KEY")
	if apiKey == "" {
		return nil, errors.New("MOENV_API_KEY is required")
	}

	fetchLimit, err := parsePositiveInt("FETCH_LIMIT", 1000)
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	refLat, err := parseFloat("REFERENCE_LAT", defaultReferenceLat)
	if err != nil {
		return nil, err
	}
	refLon, err := parseFloat("REFERENCE_LON", defaultReferenceLon)
	if err != nil {
		return nil, err
	}

	return &Config{
		APIKey:       apiKey,
		BaseURL:      os.Getenv("AQI_BASE_URL"),
		FetchLimit:   fetchLimit,
		FetchTimeout: fetchTimeout,
		OutputDir:    envOrDefault("OUTPUT_DIR", "outputs"),
		MapFile:      envOrDefault("MAP_FILE", "aqi_map.html"),
		ReportFile:   envOrDefault("REPORT_FILE", "aqi_report.csv"),
		Reference:    geo.Point{Lat: refLat, Lon: refLon},
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "json"),
		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint: envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Environment:  envOrDefault("APP_ENV", "development"),
	}, nil
}

// PreviewConfig holds the artifact preview server settings. The preview
// server only reads generated files, so it does not need the API key.
type PreviewConfig struct {
	HTTPAddr   string
	OutputDir  string
	MapFile    string
	ReportFile string
	LogLevel   string
	LogFormat  string
}

// MapPath returns the full path of the map artifact.
func (c *PreviewConfig) MapPath() string { return filepath.Join(c.OutputDir, c.MapFile) }

// ReportPath returns the full path of the report artifact.
func (c *PreviewConfig) ReportPath() string { return filepath.Join(c.OutputDir, c.ReportFile) }

// LoadPreview reads preview server configuration from environment
// variables.
func LoadPreview() (*PreviewConfig, error) {
	return &PreviewConfig{
		HTTPAddr:   envOrDefault("HTTP_ADDR", ":8080"),
		OutputDir:  envOrDefault("OUTPUT_DIR", "outputs"),
		MapFile:    envOrDefault("MAP_FILE", "aqi_map.html"),
		ReportFile: envOrDefault("REPORT_FILE", "aqi_report.csv"),
		LogLevel:   envOrDefault("LOG_LEVEL", "info"),
		LogFormat:  envOrDefault("LOG_FORMAT", "json"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}
