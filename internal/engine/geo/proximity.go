package geo

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6371000.0

// Located is anything the proximity engine can measure.
type Located interface {
	Location() (orb.Point, bool)
	Identifier() string
}

// ProximityResult pairs an item with its distance from the reference point.
type ProximityResult[T Located] struct {
	Item           T
	DistanceMeters float64
}

// NearestOptions bounds a nearest query. Zero values mean "no bound".
type NearestOptions struct {
	RadiusMeters float64
	Limit        int
}

// DistanceMeters is the haversine great-circle distance between two [lng, lat] points.
func DistanceMeters(a, b orb.Point) float64 {
	la := s2.LatLngFromDegrees(a.Lat(), a.Lon())
	lb := s2.LatLngFromDegrees(b.Lat(), b.Lon())
	return la.Distance(lb).Radians() * earthRadiusMeters
}

// Nearest returns the items within opts.RadiusMeters of ref, closest first,
// ties broken by identifier, truncated to opts.Limit. Items without a usable
// location are ignored. It keeps no state between calls.
func Nearest[T Located](ref orb.Point, items []T, opts NearestOptions) []ProximityResult[T] {
	var out []ProximityResult[T]
	for _, it := range items {
		p, ok := it.Location()
		if !ok {
			continue
		}
		d := DistanceMeters(ref, p)
		if math.IsNaN(d) {
			continue
		}
		if opts.RadiusMeters > 0 && d > opts.RadiusMeters {
			continue
		}
		out = append(out, ProximityResult[T]{Item: it, DistanceMeters: d})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Item.Identifier() < out[j].Item.Identifier()
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
