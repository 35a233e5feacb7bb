// Package report produces the distance-ranked tabular artifact.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aqimap/aqimap/internal/aqi"
	"github.com/aqimap/aqimap/internal/geo"
	"github.com/aqimap/aqimap/internal/observability"
)

// utf8BOM marks the file as UTF-8 so spreadsheet tools decode CJK station
// and county names correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// distanceColumn is the derived column; it is always emitted since it is
// the report's ordering key.
const distanceColumn = "distance_km"

// inputColumns, in output order. A column is emitted only when at least one
// record carries a value for it.
var inputColumns = []string{
	"sitename", "county", "aqi", "pollutant", "status",
	"latitude", "longitude", "publishtime",
}

// Row is one report line: a station record plus its computed distance to
// the reference point. DistanceKM is nil when either coordinate does not
// parse.
type Row struct {
	Record     aqi.StationRecord
	DistanceKM *float64
}

// Summary describes the nearest station in the generated report.
type Summary struct {
	SiteName   string
	DistanceKM float64
}

// Config holds configuration for the report builder.
type Config struct {
	// OutputPath is where the CSV file is written.
	OutputPath string

	// Reference is the fixed point all station distances are measured
	// against.
	Reference geo.Point

	// Logger for the nearest-station summary line.
	Logger zerolog.Logger

	// Clock supplies timestamps (defaults to the real clock).
	Clock clockwork.Clock

	// Metrics, when set, records the emitted row count.
	Metrics *observability.Metrics
}

// Builder writes station records to a CSV report sorted by distance from
// the reference point.
type Builder struct {
	outputPath string
	reference  geo.Point
	logger     zerolog.Logger
	clock      clockwork.Clock
	metrics    *observability.Metrics
}

// NewBuilder creates a report builder.
func NewBuilder(cfg Config) *Builder {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{
		outputPath: cfg.OutputPath,
		reference:  cfg.Reference,
		logger:     cfg.Logger,
		clock:      clock,
		metrics:    cfg.Metrics,
	}
}

// Build computes each record's distance to the reference point, sorts rows
// ascending by distance with unknown distances last, writes the CSV file,
// and returns its path plus the nearest-station summary. The summary is nil
// when no row has a computable distance.
func (b *Builder) Build(records []aqi.StationRecord) (string, *Summary, error) {
	rows := b.buildRows(records)

	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rows[i].DistanceKM, rows[j].DistanceKM
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})

	if err := b.writeCSV(rows); err != nil {
		return "", nil, err
	}

	if b.metrics != nil {
		b.metrics.ReportRows.Add(float64(len(rows)))
	}

	var summary *Summary
	if len(rows) > 0 && rows[0].DistanceKM != nil {
		summary = &Summary{SiteName: rows[0].Record.SiteName, DistanceKM: *rows[0].DistanceKM}
		b.logger.Info().
			Str("sitename", summary.SiteName).
			Float64("distance_km", summary.DistanceKM).
			Msg("nearest station")
	}

	b.logger.Info().
		Int("rows", len(rows)).
		Str("path", b.outputPath).
		Time("generated_at", b.clock.Now().UTC()).
		Msg("report artifact written")

	return b.outputPath, summary, nil
}

func (b *Builder) buildRows(records []aqi.StationRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{Record: rec}
		if pt, ok := rec.Coordinates(); ok {
			if d, err := geo.Distance(pt, b.reference); err == nil {
				row.DistanceKM = &d
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (b *Builder) writeCSV(rows []Row) error {
	columns := presentColumns(rows)

	if dir := filepath.Dir(b.outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(b.outputPath)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	if err := writeRows(f, columns, rows); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	return nil
}

func writeRows(f *os.File, columns []string, rows []Row) error {
	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("write byte order mark: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		line := make([]string, 0, len(columns))
		for _, col := range columns {
			line = append(line, fieldValue(row, col))
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// presentColumns returns the header: every input column that carries at
// least one value, in canonical order, with the derived distance column
// inserted before publishtime.
func presentColumns(rows []Row) []string {
	columns := make([]string, 0, len(inputColumns)+1)
	for _, col := range inputColumns {
		if col == "publishtime" {
			columns = append(columns, distanceColumn)
		}
		for _, row := range rows {
			if strings.TrimSpace(rawField(row.Record, col)) != "" {
				columns = append(columns, col)
				break
			}
		}
	}
	return columns
}

func rawField(rec aqi.StationRecord, col string) string {
	switch col {
	case "sitename":
		return rec.SiteName
	case "county":
		return rec.County
	case "aqi":
		return rec.AQI
	case "pollutant":
		return rec.Pollutant
	case "status":
		return rec.Status
	case "latitude":
		return rec.Latitude
	case "longitude":
		return rec.Longitude
	case "publishtime":
		return rec.PublishTime
	default:
		return ""
	}
}

func fieldValue(row Row, col string) string {
	if col == distanceColumn {
		if row.DistanceKM == nil {
			return ""
		}
		return strconv.FormatFloat(*row.DistanceKM, 'f', 2, 64)
	}
	return rawField(row.Record, col)
}
