package model

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// PatternType is the trend label attached to an area by the classification feed.
// The zero value means "not provided" and is distinct from PatternNone.
type PatternType string

const (
	PatternSpike       PatternType = "spike"
	PatternGradualRise PatternType = "gradual_rise"
	PatternStability   PatternType = "stability"
	PatternDecline     PatternType = "decline"
	PatternNone        PatternType = "none"
)

// ParsePatternType maps the spellings used by the different data producers
// onto a PatternType. Unrecognized non-empty input maps to PatternNone.
func ParsePatternType(s string) PatternType {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch key {
	case "":
		return ""
	case "spike", "spiking":
		return PatternSpike
	case "gradual_rise", "gradual", "rising":
		return PatternGradualRise
	case "stability", "stable":
		return PatternStability
	case "decline", "declining", "decreasing":
		return PatternDecline
	default:
		return PatternNone
	}
}

// RiskLevel is the risk label attached to an area. The zero value means "not provided".
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// ParseRiskLevel maps free-form risk strings onto a RiskLevel.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "low":
		return RiskLow
	case "medium", "moderate":
		return RiskMedium
	case "high", "critical":
		return RiskHigh
	default:
		return RiskUnknown
	}
}

// BoundaryProperties holds the typed subset of a boundary feature's GeoJSON properties.
type BoundaryProperties struct {
	Name        string
	District    string
	City        string
	PatternHint PatternType // optional pattern embedded in the boundary file
	RiskHint    RiskLevel
}

// BoundaryFeature is one administrative area (barangay). Immutable once loaded.
type BoundaryFeature struct {
	Name           string
	NormalizedName string
	DisplayName    string
	Geometry       orb.MultiPolygon
	Bound          orb.Bound
	Properties     BoundaryProperties
	Order          int // position in the source dataset
}

// ClassificationRecord is one entry of the classification feed. Immutable once handed over.
type ClassificationRecord struct {
	Name             string
	PatternType      PatternType
	RiskLevel        RiskLevel
	AlertText        string
	LastAnalysisTime *time.Time
}

// Color is a named palette entry.
type Color struct {
	Name string
	Hex  string
}

// Style is the display-ready descriptor of an area.
type Style struct {
	PatternType PatternType
	RiskLevel   RiskLevel
	Color       Color
	Label       string
}

// ResolvedArea joins a boundary with its (possibly absent) classification.
type ResolvedArea struct {
	Boundary       *BoundaryFeature
	Classification *ClassificationRecord
	Style          Style
}

// Key returns the normalized name of the underlying boundary.
func (a ResolvedArea) Key() string {
	if a.Boundary == nil {
		return ""
	}
	return a.Boundary.NormalizedName
}

// Pin is a user-placed coordinate.
type Pin struct {
	ID             string
	Point          orb.Point // [lng, lat]
	ContainingArea *ResolvedArea
	Valid          bool
}

func (p Pin) Lat() float64 { return p.Point.Lat() }
func (p Pin) Lng() float64 { return p.Point.Lon() }

type FocusKind string

const (
	FocusArea FocusKind = "area"
	FocusPin  FocusKind = "pin"
)

// FocusCommand tells the map where to look.
type FocusCommand struct {
	Kind   FocusKind
	Area   string    // area name, for FocusArea
	Target orb.Point // camera center [lng, lat]
	Zoom   float64
}
