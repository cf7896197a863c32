package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/engine/storage"
	"github.com/rendis/denguemap/internal/model"
)

func testConfig() config.Config {
	return config.Config{
		NearestRadiusM:   1000,
		NearestLimit:     5,
		DefaultAreaZoom:  15,
		DefaultPinZoom:   17,
		FeedTimeout:      time.Second,
		ClusterPrecision: 7,
	}
}

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.db")
	store, err := storage.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	_, err = store.InsertBatch(context.Background(), []model.Report{
		{ID: "near", Kind: model.KindReport, Status: "open", Lat: 14.705, Lng: 121.085},
		{ID: "far", Kind: model.KindBreedingSite, Status: "open", Lat: 14.709, Lng: 121.085},
		{ID: "elsewhere", Kind: model.KindIntervention, Status: "done", Lat: 14.675, Lng: 121.035},
	})
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLocate(t *testing.T) {
	var out bytes.Buffer
	err := runLocate(testConfig(), []string{"-lat", "14.705", "-lng", "121.085"}, &out)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if !strings.Contains(out.String(), "Area:       Commonwealth") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "#6B7280") {
		t.Errorf("unclassified area should be gray: %q", out.String())
	}
}

func TestLocateOutsideCoverage(t *testing.T) {
	var out bytes.Buffer
	err := runLocate(testConfig(), []string{"-lat", "10.3", "-lng", "123.9"}, &out)
	if !errors.Is(err, model.ErrOutsideCoverage) {
		t.Fatalf("err = %v, want ErrOutsideCoverage", err)
	}
}

func TestLocateRequiresCoordinates(t *testing.T) {
	if err := runLocate(testConfig(), nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error without coordinates")
	}
}

func TestNearestFromDB(t *testing.T) {
	db := seedDB(t)
	var out bytes.Buffer
	err := runNearest(testConfig(), []string{"-lat", "14.705", "-lng", "121.085", "-reports-db", db}, &out)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	s := out.String()
	iNear, iFar := strings.Index(s, "near"), strings.Index(s, "far")
	if iNear < 0 || iFar < 0 || iNear > iFar {
		t.Errorf("expected near before far:\n%s", s)
	}
	if strings.Contains(s, "elsewhere") {
		t.Errorf("report outside radius listed:\n%s", s)
	}
}

func TestNearestFromArea(t *testing.T) {
	db := seedDB(t)
	var out bytes.Buffer
	err := runNearest(testConfig(), []string{"-area", "Tandang Sora", "-reports-db", db}, &out)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if !strings.Contains(out.String(), "elsewhere") {
		t.Errorf("output = %q", out.String())
	}
}

func TestNearestUnknownArea(t *testing.T) {
	db := seedDB(t)
	err := runNearest(testConfig(), []string{"-area", "Atlantis", "-reports-db", db}, &bytes.Buffer{})
	if !errors.Is(err, model.ErrAreaNotFound) {
		t.Fatalf("err = %v, want ErrAreaNotFound", err)
	}
}

func TestAreasToStdout(t *testing.T) {
	db := seedDB(t)
	var out bytes.Buffer
	if err := runAreas(testConfig(), []string{"-reports-db", db}, &out); err != nil {
		t.Fatalf("areas: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 10 {
		t.Fatalf("lines = %d, want header + 9 areas", len(lines))
	}
	if !strings.HasPrefix(lines[0], "name,display_name") {
		t.Errorf("header = %q", lines[0])
	}
}
