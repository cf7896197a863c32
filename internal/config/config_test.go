package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	c, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if c.NearestRadiusM != 1000 || c.NearestLimit != 5 {
		t.Errorf("nearest defaults = %v/%d", c.NearestRadiusM, c.NearestLimit)
	}
	if c.DefaultAreaZoom != 15 || c.DefaultPinZoom != 17 {
		t.Errorf("zoom defaults = %v/%v", c.DefaultAreaZoom, c.DefaultPinZoom)
	}
	if c.SearchDebounce != 300*time.Millisecond || c.FeedTimeout != 10*time.Second {
		t.Errorf("durations = %v/%v", c.SearchDebounce, c.FeedTimeout)
	}
	if c.RefreshInterval != 0 || c.ClusterThreshold != 20 || c.ClusterPrecision != 7 {
		t.Errorf("refresh/cluster defaults = %v/%d/%d", c.RefreshInterval, c.ClusterThreshold, c.ClusterPrecision)
	}
}

func TestFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	body := "REPORTS_URL=http://file.example/reports\nNEAREST_LIMIT=9\nREFRESH_INTERVAL=1m\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.staging"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEAREST_LIMIT", "3")

	c, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if c.ReportsURL != "http://file.example/reports" {
		t.Errorf("ReportsURL = %q", c.ReportsURL)
	}
	if c.NearestLimit != 3 {
		t.Errorf("NearestLimit = %d, want env value 3", c.NearestLimit)
	}
	if c.RefreshInterval != time.Minute {
		t.Errorf("RefreshInterval = %v", c.RefreshInterval)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("CLUSTER_PRECISION", "20")
	if _, err := LoadFrom(t.TempDir()); err == nil {
		t.Fatal("expected validation error")
	}
}
