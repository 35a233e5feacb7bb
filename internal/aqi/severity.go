package aqi

import (
	"strconv"
	"strings"
)

// SeverityTier is a labeled, colored bucket covering an AQI sub-range.
// Min and Max are inclusive.
type SeverityTier struct {
	Min   float64
	Max   float64
	Label string
	Color string
}

// Tiers outside the numeric bands.
var (
	// TierUnknown covers missing or unparsable AQI values. An explicit "0"
	// is a valid reading and classifies as good; only empty or non-numeric
	// input lands here.
	TierUnknown = SeverityTier{Label: "unknown", Color: "#95a5a6"}

	// TierHazardous is the catch-all above the last explicit band.
	TierHazardous = SeverityTier{Min: 501, Max: 9999, Label: "hazardous", Color: "#4b0082"}
)

// severityBands partitions [0,500] in ascending order with no gaps.
var severityBands = []SeverityTier{
	{Min: 0, Max: 50, Label: "good", Color: "#2ecc71"},
	{Min: 51, Max: 100, Label: "moderate", Color: "#ffd700"},
	{Min: 101, Max: 500, Label: "unhealthy", Color: "#ff4444"},
}

// SeverityBands returns a copy of the ordered numeric bands, for legend
// rendering.
func SeverityBands() []SeverityTier {
	return append([]SeverityTier(nil), severityBands...)
}

// ClassifyAQI maps a raw AQI value onto a severity tier. The function is
// total: empty or unparsable input (including negative sensor glitches,
// which fall below every band) maps to TierUnknown, values above the last
// band map to TierHazardous, and everything else matches exactly one band.
func ClassifyAQI(raw string) SeverityTier {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TierUnknown
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return TierUnknown
	}

	for _, band := range severityBands {
		if v >= band.Min && v <= band.Max {
			return band
		}
	}
	if v > severityBands[len(severityBands)-1].Max {
		return TierHazardous
	}
	return TierUnknown
}
