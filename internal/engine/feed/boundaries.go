package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rendis/denguemap/internal/engine/geo"
)

// BoundarySource says where the boundary dataset comes from. With neither
// field set the embedded dataset is used.
type BoundarySource struct {
	Path string
	URL  string
}

func (s BoundarySource) key() string {
	switch {
	case s.URL != "":
		return "url:" + s.URL
	case s.Path != "":
		return "file:" + s.Path
	default:
		return "embedded"
	}
}

// BoundaryService loads the boundary dataset once and caches it. Concurrent
// callers share a single in-flight load; a failed load is not cached.
type BoundaryService struct {
	client *Client
	source BoundarySource
	logger *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	index  *geo.BoundaryIndex
	report geo.LoadReport
}

func NewBoundaryService(client *Client, source BoundarySource, logger *slog.Logger) *BoundaryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BoundaryService{client: client, source: source, logger: logger}
}

var (
	sharedMu         sync.Mutex
	sharedBoundaries = map[string]*BoundaryService{}
)

// SharedBoundaries returns the process-wide service for source, creating it on
// first use, so every session in the process reuses one loaded index.
func SharedBoundaries(client *Client, source BoundarySource, logger *slog.Logger) *BoundaryService {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if s, ok := sharedBoundaries[source.key()]; ok {
		return s
	}
	s := NewBoundaryService(client, source, logger)
	sharedBoundaries[source.key()] = s
	return s
}

// Init starts loading in the background and returns immediately.
func (s *BoundaryService) Init(ctx context.Context) {
	if s.IsReady() {
		return
	}
	go func() {
		if _, err := s.Ready(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("boundary dataset load failed", "source", s.source.key(), "err", err)
		}
	}()
}

// Ready returns the index, loading it first if needed. It blocks until the
// load finishes or ctx is done.
func (s *BoundaryService) Ready(ctx context.Context) (*geo.BoundaryIndex, error) {
	if idx := s.Index(); idx != nil {
		return idx, nil
	}

	ch := s.group.DoChan(s.source.key(), func() (any, error) {
		if idx := s.Index(); idx != nil {
			return idx, nil
		}
		idx, report, err := s.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.index = idx
		s.report = report
		s.mu.Unlock()
		return idx, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*geo.BoundaryIndex), nil
	}
}

// IsReady reports whether the dataset has been loaded.
func (s *BoundaryService) IsReady() bool {
	return s.Index() != nil
}

// Index returns the loaded index, or nil before the first successful load.
func (s *BoundaryService) Index() *geo.BoundaryIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Report returns the summary of the successful load.
func (s *BoundaryService) Report() geo.LoadReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

func (s *BoundaryService) load(ctx context.Context) (*geo.BoundaryIndex, geo.LoadReport, error) {
	switch {
	case s.source.URL != "":
		if s.client == nil {
			return nil, geo.LoadReport{}, fmt.Errorf("loading boundaries from %s: no http client", s.source.URL)
		}
		data, err := s.client.Get(ctx, s.source.URL)
		if err != nil {
			return nil, geo.LoadReport{}, fmt.Errorf("fetching boundaries: %w", err)
		}
		return geo.Load(data, s.logger)
	case s.source.Path != "":
		data, err := os.ReadFile(s.source.Path)
		if err != nil {
			return nil, geo.LoadReport{}, fmt.Errorf("reading boundaries: %w", err)
		}
		return geo.Load(data, s.logger)
	default:
		return geo.LoadEmbedded(s.logger)
	}
}
