package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rendis/denguemap/internal/model"
)

// classificationWire is one record as the reporting API sends it. Producers
// disagree on field names, so the aliases are all accepted.
type classificationWire struct {
	Name             string `json:"name"`
	Barangay         string `json:"barangay"`
	Pattern          string `json:"pattern"`
	PatternType      string `json:"pattern_type"`
	Status           string `json:"status"`
	RiskLevel        string `json:"risk_level"`
	Alert            string `json:"alert"`
	LastAnalysisTime string `json:"last_analysis_time"`
}

func (w classificationWire) record() (model.ClassificationRecord, bool) {
	name := strings.TrimSpace(firstNonEmpty(w.Name, w.Barangay))
	if name == "" {
		return model.ClassificationRecord{}, false
	}
	rec := model.ClassificationRecord{
		Name:        name,
		PatternType: model.ParsePatternType(firstNonEmpty(w.PatternType, w.Pattern, w.Status)),
		RiskLevel:   model.ParseRiskLevel(w.RiskLevel),
		AlertText:   strings.TrimSpace(w.Alert),
	}
	if t, ok := parseTime(w.LastAnalysisTime); ok {
		rec.LastAnalysisTime = &t
	}
	return rec, true
}

// DecodeClassifications parses a classification payload: either a bare array
// or an object wrapping it under "data". Records without a name are dropped.
func DecodeClassifications(data []byte) ([]model.ClassificationRecord, error) {
	var wire []classificationWire
	if err := decodeList(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding classifications: %w", err)
	}
	out := make([]model.ClassificationRecord, 0, len(wire))
	for _, w := range wire {
		if rec, ok := w.record(); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ClassificationFeed reads the classification feed over HTTP.
type ClassificationFeed struct {
	Client *Client
	URL    string
}

// Classifications fetches and decodes the feed. Failures come back as an Err result.
func (f *ClassificationFeed) Classifications(ctx context.Context) model.Result[[]model.ClassificationRecord] {
	if f == nil || f.URL == "" {
		return model.Ok[[]model.ClassificationRecord](nil)
	}
	body, err := f.Client.Get(ctx, f.URL)
	if err != nil {
		return model.Err[[]model.ClassificationRecord](fmt.Errorf("fetching classifications: %w", err))
	}
	recs, err := DecodeClassifications(body)
	if err != nil {
		return model.Err[[]model.ClassificationRecord](err)
	}
	return model.Ok(recs)
}

// decodeList accepts `[...]` or `{"data": [...]}`.
func decodeList(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return err
		}
		if len(envelope.Data) == 0 {
			return fmt.Errorf("object payload without a data field")
		}
		trimmed = envelope.Data
	}
	return json.Unmarshal(trimmed, v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
