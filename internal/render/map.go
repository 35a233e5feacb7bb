// Package render produces the interactive station map artifact.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aqimap/aqimap/internal/aqi"
	"github.com/aqimap/aqimap/internal/geo"
	"github.com/aqimap/aqimap/internal/observability"
)

// ErrNoRenderableStations is returned when every record fails validation.
// The map artifact is skipped, no file is written, and the run continues;
// absence of renderable data is expected, not fatal.
var ErrNoRenderableStations = errors.New("no renderable station records")

// The map frame is fixed so runs stay visually comparable regardless of
// which stations happen to report: roughly the geographic center of Taiwan
// at an island-wide zoom.
var DefaultCenter = geo.Point{Lat: 23.5, Lon: 121.0}

// DefaultZoom is the fixed initial zoom level.
const DefaultZoom = 7

// Config holds configuration for the map renderer.
type Config struct {
	// OutputPath is where the HTML document is written.
	OutputPath string

	// Center and Zoom fix the initial frame (defaults: DefaultCenter,
	// DefaultZoom). The map never auto-fits to markers.
	Center geo.Point
	Zoom   int

	// Logger for skip diagnostics.
	Logger zerolog.Logger

	// Clock supplies the generated-at stamp (defaults to the real clock).
	Clock clockwork.Clock

	// Metrics, when set, records plotted and skipped station counts.
	Metrics *observability.Metrics
}

// MapRenderer places classified station records on a Leaflet map with a
// fixed severity legend.
type MapRenderer struct {
	outputPath string
	center     geo.Point
	zoom       int
	logger     zerolog.Logger
	clock      clockwork.Clock
	metrics    *observability.Metrics
}

// NewMapRenderer creates a map renderer.
func NewMapRenderer(cfg Config) *MapRenderer {
	center := cfg.Center
	if center == (geo.Point{}) {
		center = DefaultCenter
	}
	zoom := cfg.Zoom
	if zoom == 0 {
		zoom = DefaultZoom
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &MapRenderer{
		outputPath: cfg.OutputPath,
		center:     center,
		zoom:       zoom,
		logger:     cfg.Logger,
		clock:      clock,
		metrics:    cfg.Metrics,
	}
}

// stationMarker is one circle marker on the map. The struct is embedded
// into the document as JSON, so the tags are the contract with the script.
type stationMarker struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Name   string  `json:"name"`
	County string  `json:"county"`
	AQI    string  `json:"aqi"`
	Label  string  `json:"label"`
	Color  string  `json:"color"`
}

type legendEntry struct {
	Range string
	Label string
	Color string
}

type mapDocument struct {
	// ViewCall and Stations are prebuilt JS fragments; the template's
	// contextual escaper would otherwise space-pad numbers and re-quote
	// the marker JSON.
	ViewCall    template.JS
	Stations    template.JS
	GeneratedAt string
	Legend      []legendEntry
}

// Render classifies and plots every renderable record, writes the map
// document, and returns its path. Records without a name or a parsable
// coordinate pair are skipped with a logged reason. When nothing survives
// filtering, no file is written and ErrNoRenderableStations is returned.
func (m *MapRenderer) Render(records []aqi.StationRecord) (string, error) {
	markers := make([]stationMarker, 0, len(records))

	for _, rec := range records {
		pt, rej := aqi.Validate(rec)
		if rej != nil {
			m.logger.Debug().
				Str("sitename", rec.SiteName).
				Str("reason", string(rej.Reason)).
				Msg("skipping station")
			if m.metrics != nil {
				m.metrics.RecordsSkipped.WithLabelValues(string(rej.Reason)).Inc()
			}
			continue
		}

		tier := aqi.ClassifyAQI(rec.AQI)
		aqiText := strings.TrimSpace(rec.AQI)
		if aqiText == "" {
			aqiText = "N/A"
		}

		markers = append(markers, stationMarker{
			Lat:    pt.Lat,
			Lon:    pt.Lon,
			Name:   rec.SiteName,
			County: rec.County,
			AQI:    aqiText,
			Label:  tier.Label,
			Color:  tier.Color,
		})
	}

	if len(markers) == 0 {
		return "", ErrNoRenderableStations
	}

	stationsJSON, err := json.Marshal(markers)
	if err != nil {
		return "", fmt.Errorf("encode markers: %w", err)
	}

	doc := mapDocument{
		ViewCall: template.JS(fmt.Sprintf("setView([%s, %s], %d)",
			formatCoord(m.center.Lat), formatCoord(m.center.Lon), m.zoom)),
		Stations:    template.JS(stationsJSON),
		GeneratedAt: m.clock.Now().UTC().Format(time.RFC3339),
		Legend:      buildLegend(),
	}

	if err := m.writeDocument(doc); err != nil {
		return "", err
	}

	if m.metrics != nil {
		m.metrics.StationsPlotted.Add(float64(len(markers)))
	}
	m.logger.Info().
		Int("stations", len(markers)).
		Str("path", m.outputPath).
		Msg("map artifact written")

	return m.outputPath, nil
}

func (m *MapRenderer) writeDocument(doc mapDocument) error {
	if dir := filepath.Dir(m.outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(m.outputPath)
	if err != nil {
		return fmt.Errorf("create map file: %w", err)
	}

	if err := mapTemplate.Execute(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("render map template: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close map file: %w", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// buildLegend lists the numeric severity bands. The final band is shown
// open-ended, matching how the scale is commonly presented.
func buildLegend() []legendEntry {
	bands := aqi.SeverityBands()
	legend := make([]legendEntry, 0, len(bands))
	for i, band := range bands {
		r := fmt.Sprintf("%.0f-%.0f", band.Min, band.Max)
		if i == len(bands)-1 {
			r = fmt.Sprintf("%.0f+", band.Min)
		}
		legend = append(legend, legendEntry{Range: r, Label: band.Label, Color: band.Color})
	}
	return legend
}

var mapTemplate = template.Must(template.New("aqi_map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Air Quality Index Map</title>
<meta name="generated-at" content="{{.GeneratedAt}}">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  .aqi-legend {
    position: fixed; bottom: 50px; right: 50px; width: 200px;
    background-color: white; border: 2px solid #333; z-index: 9999;
    font-size: 13px; padding: 12px; border-radius: 5px;
    font-family: sans-serif;
  }
  .aqi-legend .swatch { padding: 4px 10px; border-radius: 3px; font-weight: bold; }
  .aqi-legend hr { margin: 5px 0; border: none; border-top: 1px solid #ddd; }
</style>
</head>
<body>
<div id="map"></div>
<div class="aqi-legend">
  <p style="margin: 0 0 8px 0; font-weight: bold; text-align: center;">AQI severity</p>
  <hr>
{{range .Legend}}  <p style="margin: 5px 0;"><span class="swatch" style="background-color: {{.Color}};">{{.Range}}</span> {{.Label}}</p>
{{end}}</div>
<script>
  var map = L.map('map').{{.ViewCall}};
  L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
    attribution: '&copy; OpenStreetMap contributors'
  }).addTo(map);

  var stations = {{.Stations}};
  stations.forEach(function (s) {
    var popup = '<div style="width: 180px;"><b>' + s.name + '</b><br>' + s.county +
      '<hr style="margin: 5px 0;"><span style="color: ' + s.color + '; font-weight: bold;">AQI: ' + s.aqi +
      '</span><br>' + s.label + '</div>';

    L.circleMarker([s.lat, s.lon], {
      radius: 10,
      color: s.color,
      fillColor: s.color,
      fillOpacity: 0.8,
      weight: 2
    }).addTo(map)
      .bindPopup(popup, { maxWidth: 200 })
      .bindTooltip(s.name + ' - AQI: ' + s.aqi);
  });
</script>
</body>
</html>
`))
