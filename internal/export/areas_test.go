package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/engine/style"
	"github.com/rendis/denguemap/internal/model"
)

func TestAreasCSV(t *testing.T) {
	idx, _, err := geo.LoadEmbedded(nil)
	if err != nil {
		t.Fatal(err)
	}
	cs := style.IndexClassifications([]model.ClassificationRecord{
		{Name: "Commonwealth", PatternType: model.PatternSpike, RiskLevel: model.RiskHigh, AlertText: "cluster"},
	})
	areas := style.Join(idx.Features(), cs)
	reports := []model.Report{
		{ID: "a", Lat: 14.705, Lng: 121.085},
		{ID: "b", Lat: 14.706, Lng: 121.085},
		{ID: "c"}, // no coordinates
	}

	var buf bytes.Buffer
	if err := AreasCSV(&buf, idx, areas, reports); err != nil {
		t.Fatalf("AreasCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != len(areas)+1 {
		t.Fatalf("rows = %d, want %d", len(rows), len(areas)+1)
	}

	var found bool
	for _, r := range rows[1:] {
		if r[0] != "Commonwealth" && r[0] != "Barangay Commonwealth" {
			continue
		}
		found = true
		if r[4] != string(model.PatternSpike) || r[6] != "#EF4444" || r[7] != "cluster" {
			t.Errorf("commonwealth row = %v", r)
		}
		if r[11] != "2" {
			t.Errorf("commonwealth reports = %s, want 2", r[11])
		}
	}
	if !found {
		t.Error("commonwealth row missing")
	}
}

func TestAreasCSVNotReady(t *testing.T) {
	var buf bytes.Buffer
	if err := AreasCSV(&buf, nil, nil, nil); !errors.Is(err, model.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}
