package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/model"
)

var areaHeader = []string{
	"name", "display_name", "district", "city",
	"pattern", "risk", "color", "alert", "last_analysis",
	"centroid_lat", "centroid_lng", "reports",
}

// AreasCSV writes one row per resolved area, in the order given.
func AreasCSV(w io.Writer, idx *geo.BoundaryIndex, areas []model.ResolvedArea, reports []model.Report) error {
	if idx == nil {
		return model.ErrNotReady
	}
	counts := idx.CountByArea(reports)

	cw := csv.NewWriter(w)
	if err := cw.Write(areaHeader); err != nil {
		return err
	}
	for _, a := range areas {
		b := a.Boundary
		if b == nil {
			continue
		}
		c := idx.Centroid(b)
		var alert, analyzed string
		if a.Classification != nil {
			alert = a.Classification.AlertText
			if t := a.Classification.LastAnalysisTime; t != nil {
				analyzed = t.Format("2006-01-02T15:04:05Z07:00")
			}
		}
		row := []string{
			b.Name,
			b.DisplayName,
			b.Properties.District,
			b.Properties.City,
			string(a.Style.PatternType),
			string(a.Style.RiskLevel),
			a.Style.Color.Hex,
			alert,
			analyzed,
			fmt.Sprintf("%.6f", c.Lat()),
			fmt.Sprintf("%.6f", c.Lon()),
			fmt.Sprintf("%d", counts[b.NormalizedName]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AreasCSVFile writes AreasCSV to path and returns the number of areas written.
func AreasCSVFile(path string, idx *geo.BoundaryIndex, areas []model.ResolvedArea, reports []model.Report) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := AreasCSV(f, idx, areas, reports); err != nil {
		f.Close()
		return 0, err
	}
	return len(areas), f.Close()
}
