package overlay

import (
	"fmt"
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/paulmach/orb"

	"github.com/rendis/denguemap/internal/model"
)

var clusterColor = model.Color{Name: "indigo", Hex: "#4F46E5"}

// clusterMarkers groups markers sharing a geohash cell. Cells holding a single
// marker are drawn as that marker.
func clusterMarkers(markers []model.Report, precision int) []Overlay {
	cells := make(map[string][]model.Report)
	for _, m := range markers {
		p, _ := m.Location()
		cell := geohash.EncodeWithPrecision(p.Lat(), p.Lon(), precision)
		cells[cell] = append(cells[cell], m)
	}

	keys := make([]string, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Overlay, 0, len(keys))
	for _, cell := range keys {
		members := cells[cell]
		if len(members) == 1 {
			out = append(out, markerOverlay(members[0]))
			continue
		}
		out = append(out, Overlay{
			ID:   "cluster:" + cell,
			Kind: KindCluster,
			Visual: Visual{
				Color:    clusterColor,
				ZIndex:   zCluster,
				Position: meanPoint(members),
				Count:    len(members),
				Label:    fmt.Sprintf("%d reports", len(members)),
			},
		})
	}
	return out
}

func meanPoint(rs []model.Report) orb.Point {
	var lng, lat float64
	for _, r := range rs {
		p, _ := r.Location()
		lng += p.Lon()
		lat += p.Lat()
	}
	n := float64(len(rs))
	return orb.Point{lng / n, lat / n}
}
