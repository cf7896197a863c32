package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rendis/denguemap/internal/model"
)

func testClient() *Client {
	return NewClient(ClientOptions{Timeout: 2 * time.Second, Retries: 3, Backoff: time.Millisecond})
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient()
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "[]" || calls.Load() != 3 {
		t.Fatalf("body=%q calls=%d", body, calls.Load())
	}
	if c.ConsecutiveFailures() != 0 {
		t.Errorf("failures not reset after success")
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient().Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClassificationFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [
			{"name": "commonwealth", "pattern": "spike", "risk_level": "high", "alert": "Rapid increase", "last_analysis_time": "2024-06-01T08:00:00Z"},
			{"barangay": "Payatas", "status": "stable"},
			{"pattern": "spike"}
		]}`))
	}))
	defer srv.Close()

	f := &ClassificationFeed{Client: testClient(), URL: srv.URL}
	recs, err := f.Classifications(context.Background()).Get()
	if err != nil {
		t.Fatalf("Classifications: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].PatternType != model.PatternSpike || recs[0].RiskLevel != model.RiskHigh || recs[0].AlertText != "Rapid increase" {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[0].LastAnalysisTime == nil || recs[0].LastAnalysisTime.Year() != 2024 {
		t.Errorf("analysis time not parsed: %v", recs[0].LastAnalysisTime)
	}
	if recs[1].Name != "Payatas" || recs[1].PatternType != model.PatternStability || recs[1].RiskLevel != "" {
		t.Errorf("second record = %+v", recs[1])
	}
}

func TestClassificationFeedFailureIsErrResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	res := (&ClassificationFeed{Client: testClient(), URL: srv.URL}).Classifications(context.Background())
	if res.IsOk() {
		t.Fatal("expected an error result")
	}
	if got := res.ValueOr(nil); got != nil {
		t.Errorf("ValueOr = %v, want nil", got)
	}
}

func TestDecodeReports(t *testing.T) {
	data := []byte(`[
		{"id": 7, "coordinates": [121.08, 14.70], "type": "breeding_site", "status": "Open", "timestamp": "2024-05-01 10:00:00"},
		{"id": "r-2", "lat": 14.71, "lng": 121.07, "type": "intervention", "status": "done"},
		{"type": "report"}
	]`)
	reports, err := DecodeReports(data)
	if err != nil {
		t.Fatalf("DecodeReports: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}

	r0 := reports[0]
	if r0.ID != "7" || r0.Lat != 14.70 || r0.Lng != 121.08 || r0.Kind != model.KindBreedingSite || r0.Status != "open" {
		t.Errorf("first report = %+v", r0)
	}
	if r0.ReportedAt.IsZero() {
		t.Errorf("timestamp not parsed")
	}
	if reports[1].ID != "r-2" || reports[1].Kind != model.KindIntervention {
		t.Errorf("second report = %+v", reports[1])
	}
	if _, ok := reports[2].Location(); ok {
		t.Errorf("report without coordinates should not be locatable")
	}
	if reports[2].ID != "item-2" {
		t.Errorf("fallback id = %q", reports[2].ID)
	}
}

func TestGuard(t *testing.T) {
	var g Guard
	first := g.Begin()
	second := g.Begin()
	if first.Current() {
		t.Error("superseded ticket still current")
	}
	if !second.Current() {
		t.Error("latest ticket not current")
	}

	res := Deliver(second, model.Ok(1))
	if v, err := res.Get(); err != nil || v != 1 {
		t.Errorf("Deliver current = %v, %v", v, err)
	}

	g.Close()
	if second.Current() {
		t.Error("ticket current after Close")
	}
	if _, err := Deliver(second, model.Ok(1)).Get(); !errors.Is(err, model.ErrStale) {
		t.Errorf("Deliver after close err = %v, want ErrStale", err)
	}
}

func TestBoundaryServiceLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	data, err := os.ReadFile(filepath.Join("..", "geo", "geodata", "qc_barangays.geojson"))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.Write(data)
	}))
	defer srv.Close()

	s := NewBoundaryService(testClient(), BoundarySource{URL: srv.URL}, nil)
	if s.IsReady() {
		t.Fatal("ready before load")
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Ready(context.Background()); err != nil {
				t.Errorf("Ready: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("dataset fetched %d times, want 1", calls.Load())
	}
	if !s.IsReady() || s.Index().Len() != 9 {
		t.Fatalf("index not cached: ready=%v", s.IsReady())
	}
	if _, err := s.Ready(context.Background()); err != nil || calls.Load() != 1 {
		t.Errorf("second Ready refetched: err=%v calls=%d", err, calls.Load())
	}
}

func TestBoundaryServiceFailureNotCached(t *testing.T) {
	s := NewBoundaryService(nil, BoundarySource{Path: filepath.Join(t.TempDir(), "missing.geojson")}, nil)
	if _, err := s.Ready(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
	if s.IsReady() {
		t.Error("failed load marked ready")
	}
}

func TestSharedBoundariesReusesService(t *testing.T) {
	a := SharedBoundaries(nil, BoundarySource{}, nil)
	b := SharedBoundaries(nil, BoundarySource{}, nil)
	if a != b {
		t.Fatal("embedded source produced two services")
	}
	idx, err := a.Ready(context.Background())
	if err != nil || idx.Len() == 0 {
		t.Fatalf("embedded load: %v", err)
	}
}

func TestPollBacksOffAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	errs := make(chan error, 10)

	stats := Poll(ctx, func(context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("feed down")
		}
		return nil
	}, PollOptions{
		Interval: 5 * time.Millisecond,
		OnError:  func(err error) { errs <- err },
	})

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if stats.Failures.Load() != 1 {
		t.Errorf("failures = %d, want 1", stats.Failures.Load())
	}
	if len(errs) != 1 {
		t.Errorf("OnError called %d times, want 1", len(errs))
	}
}
