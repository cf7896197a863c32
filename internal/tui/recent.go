package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rendis/denguemap/internal/tui/views"
)

const maxRecent = 10

type recentFile struct {
	Path     string           `json:"path"`
	Kind     views.RecentKind `json:"kind"`
	OpenedAt time.Time        `json:"opened_at"`
}

// recentDir is where recent.json lives; tests point it at a temp dir.
var recentDir = func() string {
	cfg, _ := os.UserConfigDir()
	return filepath.Join(cfg, "denguemap")
}

func recentFilePath() string {
	return filepath.Join(recentDir(), "recent.json")
}

// LoadRecent returns the remembered data files, most recent first.
func LoadRecent() []views.RecentEntry {
	data, err := os.ReadFile(recentFilePath())
	if err != nil {
		return nil
	}
	var files []recentFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil
	}
	entries := make([]views.RecentEntry, 0, len(files))
	for _, f := range files {
		kind := f.Kind
		if kind == "" {
			kind = views.KindOf(f.Path)
		}
		entries = append(entries, views.RecentEntry{Path: f.Path, Kind: kind, OpenedAt: f.OpenedAt})
	}
	return entries
}

// SaveRecent moves path to the front of the list, keeping at most maxRecent entries.
func SaveRecent(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	entries := slices.DeleteFunc(LoadRecent(), func(e views.RecentEntry) bool { return e.Path == abs })
	entries = append([]views.RecentEntry{{Path: abs, Kind: views.KindOf(abs), OpenedAt: time.Now()}}, entries...)
	if len(entries) > maxRecent {
		entries = entries[:maxRecent]
	}
	writeRecent(entries)
}

// ForgetRecent drops path from the list.
func ForgetRecent(path string) {
	entries := LoadRecent()
	kept := slices.DeleteFunc(entries, func(e views.RecentEntry) bool { return e.Path == path })
	writeRecent(kept)
}

func writeRecent(entries []views.RecentEntry) {
	files := make([]recentFile, len(entries))
	for i, e := range entries {
		files[i] = recentFile{Path: e.Path, Kind: e.Kind, OpenedAt: e.OpenedAt}
	}
	data, _ := json.MarshalIndent(files, "", "  ")
	os.MkdirAll(recentDir(), 0755)
	os.WriteFile(recentFilePath(), data, 0644)
}
