// Package pipeline sequences the fetch, map, and report stages of a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aqimap/aqimap/internal/aqi"
	"github.com/aqimap/aqimap/internal/observability"
	"github.com/aqimap/aqimap/internal/render"
	"github.com/aqimap/aqimap/internal/report"
)

const tracerName = "github.com/aqimap/aqimap/internal/pipeline"

// ErrNoData means the fetch succeeded but returned zero records; there is
// nothing to render, so the run aborts.
var ErrNoData = errors.New("no station data available")

// Fetcher retrieves the raw station dataset. Close releases the underlying
// connection after the single fetch cycle.
type Fetcher interface {
	FetchRecords(ctx context.Context, limit int) ([]aqi.StationRecord, error)
	Close()
}

// MapArtifact renders the interactive map document.
type MapArtifact interface {
	Render(records []aqi.StationRecord) (string, error)
}

// ReportArtifact builds the distance-ranked tabular document.
type ReportArtifact interface {
	Build(records []aqi.StationRecord) (string, *report.Summary, error)
}

// Config holds the pipeline's collaborators. All fields are required;
// Metrics must be a registered metric set.
type Config struct {
	Fetcher    Fetcher
	Map        MapArtifact
	Report     ReportArtifact
	FetchLimit int
	Logger     zerolog.Logger
	Metrics    *observability.Metrics
}

// Pipeline runs one fetch-classify-render cycle. Both artifacts consume the
// same record slice; neither mutates it.
type Pipeline struct {
	fetcher    Fetcher
	mapArt     MapArtifact
	reportArt  ReportArtifact
	fetchLimit int
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// Result summarizes a completed run.
type Result struct {
	RunID       string
	RecordCount int
	MapPath     string // empty when no station was renderable or rendering failed
	ReportPath  string // empty when report construction failed
	Nearest     *report.Summary
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		fetcher:    cfg.Fetcher,
		mapArt:     cfg.Map,
		reportArt:  cfg.Report,
		fetchLimit: cfg.FetchLimit,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Run executes one cycle. A fetch failure or an empty dataset aborts the
// run with an error; artifact-level failures are reported, isolated from
// each other, and never abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	log := p.logger.With().Str("run_id", runID).Logger()
	tracer := otel.Tracer(tracerName)

	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID))

	records, err := p.fetch(ctx, log)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID, RecordCount: len(records)}

	p.renderMap(ctx, log, records, result)
	p.buildReport(ctx, log, records, result)

	log.Info().
		Str("map_path", result.MapPath).
		Str("report_path", result.ReportPath).
		Msg("pipeline run completed")
	return result, nil
}

func (p *Pipeline) fetch(ctx context.Context, log zerolog.Logger) ([]aqi.StationRecord, error) {
	tracer := otel.Tracer(tracerName)
	fetchCtx, span := tracer.Start(ctx, "pipeline.fetch")
	defer span.End()

	log.Info().Int("limit", p.fetchLimit).Msg("fetching station records")
	start := time.Now()
	records, err := p.fetcher.FetchRecords(fetchCtx, p.fetchLimit)
	p.fetcher.Close()
	p.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		p.metrics.FetchFailures.Inc()
		return nil, fmt.Errorf("fetch station records: %w", err)
	}

	p.metrics.RecordsFetched.Add(float64(len(records)))
	log.Info().Int("records", len(records)).Msg("station records fetched")

	if len(records) == 0 {
		return nil, ErrNoData
	}
	return records, nil
}

func (p *Pipeline) renderMap(ctx context.Context, log zerolog.Logger, records []aqi.StationRecord, result *Result) {
	_, span := otel.Tracer(tracerName).Start(ctx, "pipeline.render_map")
	defer span.End()

	log.Info().Msg("rendering map artifact")
	path, err := p.mapArt.Render(records)
	switch {
	case errors.Is(err, render.ErrNoRenderableStations):
		log.Warn().Msg("no renderable stations, map artifact skipped")
	case err != nil:
		p.metrics.RenderFailures.Inc()
		log.Error().Err(err).Msg("map rendering failed")
	default:
		result.MapPath = path
	}
}

func (p *Pipeline) buildReport(ctx context.Context, log zerolog.Logger, records []aqi.StationRecord, result *Result) {
	_, span := otel.Tracer(tracerName).Start(ctx, "pipeline.build_report")
	defer span.End()

	log.Info().Msg("building report artifact")
	path, summary, err := p.reportArt.Build(records)
	if err != nil {
		p.metrics.ReportFailures.Inc()
		log.Error().Err(err).Msg("report construction failed")
		return
	}

	result.ReportPath = path
	result.Nearest = summary
}
