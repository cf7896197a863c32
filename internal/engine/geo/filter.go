package geo

import (
	"github.com/paulmach/orb/planar"

	"github.com/rendis/denguemap/internal/model"
)

// ReportsWithin keeps the reports whose coordinates fall inside the boundary.
func ReportsWithin(f *model.BoundaryFeature, reports []model.Report) []model.Report {
	if f == nil {
		return nil
	}
	var inside []model.Report
	for _, r := range reports {
		p, ok := r.Location()
		if !ok || !f.Bound.Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(f.Geometry, p) {
			inside = append(inside, r)
		}
	}
	return inside
}

// CountByArea tallies located reports per boundary key.
func (bi *BoundaryIndex) CountByArea(reports []model.Report) map[string]int {
	counts := make(map[string]int)
	for _, r := range reports {
		p, ok := r.Location()
		if !ok {
			continue
		}
		if f := bi.Locate(p); f != nil {
			counts[f.NormalizedName]++
		}
	}
	return counts
}
