// Package aqi defines the station observation model shared by the map and
// report renderers, plus the severity classification rule.
package aqi

import (
	"strconv"
	"strings"

	"github.com/aqimap/aqimap/internal/geo"
)

// StationRecord is one observation for one monitoring station at fetch
// time. The upstream dataset publishes every field as a string, including
// coordinates and the AQI value, so parsing happens at the point of use.
// Records are created fresh on every fetch and never mutated.
type StationRecord struct {
	SiteName    string `json:"sitename"`
	County      string `json:"county"`
	AQI         string `json:"aqi"`
	Pollutant   string `json:"pollutant"`
	Status      string `json:"status"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	PublishTime string `json:"publishtime"`
}

// RejectReason classifies why a record cannot be placed on the map.
type RejectReason string

const (
	RejectMissingName  RejectReason = "missing sitename"
	RejectBadLatitude  RejectReason = "missing or non-numeric latitude"
	RejectBadLongitude RejectReason = "missing or non-numeric longitude"
)

// Rejection pairs a skipped record with the reason it was skipped, so runs
// can report what was dropped instead of discarding it silently.
type Rejection struct {
	Record StationRecord
	Reason RejectReason
}

// Coordinates returns the parsed coordinate pair, or false when either
// component is absent or not numeric.
func (r StationRecord) Coordinates() (geo.Point, bool) {
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(r.Latitude), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(r.Longitude), 64)
	if latErr != nil || lonErr != nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lon: lon}, true
}

// Validate reports whether the record is renderable. A renderable record
// has a non-empty station name and both coordinates parsable as floating
// point; everything else is optional. On failure the returned Rejection
// carries the first reason found.
func Validate(r StationRecord) (geo.Point, *Rejection) {
	if strings.TrimSpace(r.SiteName) == "" {
		return geo.Point{}, &Rejection{Record: r, Reason: RejectMissingName}
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(r.Latitude), 64); err != nil {
		return geo.Point{}, &Rejection{Record: r, Reason: RejectBadLatitude}
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(r.Longitude), 64); err != nil {
		return geo.Point{}, &Rejection{Record: r, Reason: RejectBadLongitude}
	}

	pt, _ := r.Coordinates()
	return pt, nil
}
