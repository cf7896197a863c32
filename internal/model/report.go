package model

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

type ReportKind string

const (
	KindReport       ReportKind = "report"
	KindBreedingSite ReportKind = "breeding_site"
	KindIntervention ReportKind = "intervention"
)

// Report is an item of the reports/interventions feed.
type Report struct {
	ID          string     `json:"id"`
	Kind        ReportKind `json:"type"`
	Status      string     `json:"status"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Barangay    string     `json:"barangay,omitempty"`
	Description string     `json:"description,omitempty"`
	ReportedAt  time.Time  `json:"timestamp"`
}

// Location returns the report position and whether it is usable.
func (r Report) Location() (orb.Point, bool) {
	if !ValidCoordinates(r.Lat, r.Lng) {
		return orb.Point{}, false
	}
	return orb.Point{r.Lng, r.Lat}, true
}

func (r Report) Identifier() string { return r.ID }

// ValidCoordinates rejects NaN, out-of-range and null-island coordinates.
func ValidCoordinates(lat, lng float64) bool {
	return CoordinatesInRange(lat, lng) && (lat != 0 || lng != 0)
}

// CoordinatesInRange only checks that lat/lng are finite and on the globe.
// Geometry vertices use it; (0,0) is a legitimate polygon corner.
func CoordinatesInRange(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
