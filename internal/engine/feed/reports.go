package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/denguemap/internal/model"
)

type reportWire struct {
	ID          json.RawMessage `json:"id"`
	Coordinates []float64       `json:"coordinates"` // [lng, lat]
	Lat         *float64        `json:"lat"`
	Lng         *float64        `json:"lng"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Barangay    string          `json:"barangay"`
	Description string          `json:"description"`
	Timestamp   string          `json:"timestamp"`
}

func (w reportWire) report() model.Report {
	r := model.Report{
		ID:          rawID(w.ID),
		Kind:        parseKind(w.Type),
		Status:      strings.ToLower(strings.TrimSpace(w.Status)),
		Barangay:    w.Barangay,
		Description: w.Description,
	}
	switch {
	case len(w.Coordinates) >= 2:
		r.Lng, r.Lat = w.Coordinates[0], w.Coordinates[1]
	case w.Lat != nil && w.Lng != nil:
		r.Lat, r.Lng = *w.Lat, *w.Lng
	}
	if t, ok := parseTime(w.Timestamp); ok {
		r.ReportedAt = t
	}
	return r
}

func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func parseKind(s string) model.ReportKind {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "breeding_site", "breeding":
		return model.KindBreedingSite
	case "intervention":
		return model.KindIntervention
	default:
		return model.KindReport
	}
}

// DecodeReports parses a reports payload. Items with unusable coordinates are
// kept; proximity and rendering skip them.
func DecodeReports(data []byte) ([]model.Report, error) {
	var wire []reportWire
	if err := decodeList(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding reports: %w", err)
	}
	out := make([]model.Report, 0, len(wire))
	for i, w := range wire {
		r := w.report()
		if r.ID == "" || r.ID == "null" {
			r.ID = fmt.Sprintf("item-%d", i)
		}
		out = append(out, r)
	}
	return out, nil
}

// ReportsFeed reads the reports/interventions feed over HTTP.
type ReportsFeed struct {
	Client *Client
	URL    string
}

func (f *ReportsFeed) Reports(ctx context.Context) model.Result[[]model.Report] {
	if f == nil || f.URL == "" {
		return model.Ok[[]model.Report](nil)
	}
	body, err := f.Client.Get(ctx, f.URL)
	if err != nil {
		return model.Err[[]model.Report](fmt.Errorf("fetching reports: %w", err))
	}
	reports, err := DecodeReports(body)
	if err != nil {
		return model.Err[[]model.Report](err)
	}
	return model.Ok(reports)
}
