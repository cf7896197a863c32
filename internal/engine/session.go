// Package engine wires the boundary index, style resolver, selection
// coordinator and overlay renderer into one Session a host UI drives.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/rendis/denguemap/internal/engine/feed"
	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/engine/overlay"
	"github.com/rendis/denguemap/internal/engine/selection"
	"github.com/rendis/denguemap/internal/engine/style"
	"github.com/rendis/denguemap/internal/model"
)

// BoundaryProvider yields the boundary index once it is loaded.
type BoundaryProvider interface {
	Ready(ctx context.Context) (*geo.BoundaryIndex, error)
}

type ClassificationSource interface {
	Classifications(ctx context.Context) model.Result[[]model.ClassificationRecord]
}

type ReportSource interface {
	Reports(ctx context.Context) model.Result[[]model.Report]
}

// Data source names passed to OnDataError.
const (
	SourceBoundaries      = "boundaries"
	SourceClassifications = "classifications"
	SourceReports         = "reports"
)

// Callbacks are the host hooks. They run synchronously while the session is
// locked and must not call back into the Session.
type Callbacks struct {
	OnAreaSelected func(model.ResolvedArea)
	OnPinChanged   func(*model.Pin)
	OnFocusCommand func(model.FocusCommand)
	OnOverlayDiff  func(overlay.Diff)
	// OnDataError reports a failed load; previous data stays on screen.
	OnDataError func(source string, err error)
}

type Options struct {
	Boundaries      BoundaryProvider
	Classifications ClassificationSource
	Reports         ReportSource

	AreaZoom float64
	PinZoom  float64
	Nearest  geo.NearestOptions
	Overlay  overlay.Options

	// RefreshInterval re-fetches classifications and reports periodically when > 0.
	RefreshInterval time.Duration

	Callbacks
	Logger *slog.Logger
}

// Session is the engine facade. All state changes are serialized by one lock,
// so network completions and UI commands may arrive from any goroutine.
type Session struct {
	opts   Options
	logger *slog.Logger

	mu              sync.Mutex
	index           *geo.BoundaryIndex
	classifications style.Classifications
	areas           []model.ResolvedArea
	reports         []model.Report
	visibility      overlay.Visibility
	overlays        overlay.Set

	coord    *selection.Coordinator
	renderer *overlay.Renderer

	boundaryGuard feed.Guard
	classGuard    feed.Guard
	reportGuard   feed.Guard

	cancel  context.CancelFunc
	started bool
}

func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		opts:     opts,
		logger:   opts.Logger,
		overlays: overlay.Set{},
		renderer: overlay.NewRenderer(opts.Overlay),
	}
	s.coord = selection.New(selection.Options{
		Resolve:  s.resolveArea,
		AreaZoom: opts.AreaZoom,
		PinZoom:  opts.PinZoom,
		Callbacks: selection.Callbacks{
			OnAreaSelected: opts.OnAreaSelected,
			OnPinChanged:   opts.OnPinChanged,
			OnFocusCommand: opts.OnFocusCommand,
		},
		Logger: opts.Logger,
	})
	return s
}

func (s *Session) resolveArea(b *model.BoundaryFeature) model.ResolvedArea {
	return s.classifications.ResolveArea(b)
}

// Start begins the asynchronous loads and, when configured, periodic refresh.
// It returns immediately; data is applied as it arrives. Only the first call
// on an open session has any effect.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.boundaryGuard.Closed() {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true
	s.mu.Unlock()

	if s.opts.Boundaries != nil {
		ticket := s.boundaryGuard.Begin()
		go func() {
			idx, err := s.opts.Boundaries.Ready(ctx)
			s.deliverBoundaries(ticket, idx, err)
		}()
	}

	go func() {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("initial data load incomplete", "err", err)
		}
	}()

	if s.opts.RefreshInterval > 0 {
		feed.Poll(ctx, s.Refresh, feed.PollOptions{
			Interval: s.opts.RefreshInterval,
			Logger:   s.logger,
		})
	}
}

// Close stops background work. Responses still in flight are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boundaryGuard.Close()
	s.classGuard.Close()
	s.reportGuard.Close()
	if s.cancel != nil {
		s.cancel()
	}
}

// Refresh re-fetches classifications and reports concurrently. A failed
// source keeps its previous data; the joined error names every failure.
func (s *Session) Refresh(ctx context.Context) error {
	var classErr, reportErr error
	g, gctx := errgroup.WithContext(ctx)

	if src := s.opts.Classifications; src != nil {
		ticket := s.classGuard.Begin()
		g.Go(func() error {
			classErr = s.deliverClassifications(ticket, src.Classifications(gctx))
			return nil
		})
	}
	if src := s.opts.Reports; src != nil {
		ticket := s.reportGuard.Begin()
		g.Go(func() error {
			reportErr = s.deliverReports(ticket, src.Reports(gctx))
			return nil
		})
	}
	g.Wait()
	return errors.Join(classErr, reportErr)
}

func (s *Session) deliverBoundaries(t feed.Ticket, idx *geo.BoundaryIndex, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.Current() {
		s.logger.Debug("late boundary response discarded")
		return
	}
	if err != nil {
		s.dataError(SourceBoundaries, err)
		return
	}
	s.applyBoundaries(idx)
}

func (s *Session) deliverClassifications(t feed.Ticket, res model.Result[[]model.ClassificationRecord]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := feed.Deliver(t, res).Get()
	switch {
	case errors.Is(err, model.ErrStale):
		s.logger.Debug("late classification response discarded")
		return nil
	case err != nil:
		s.dataError(SourceClassifications, err)
		return fmt.Errorf("%s: %w", SourceClassifications, err)
	}
	s.applyClassifications(recs)
	return nil
}

func (s *Session) deliverReports(t feed.Ticket, res model.Result[[]model.Report]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reports, err := feed.Deliver(t, res).Get()
	switch {
	case errors.Is(err, model.ErrStale):
		s.logger.Debug("late reports response discarded")
		return nil
	case err != nil:
		s.dataError(SourceReports, err)
		return fmt.Errorf("%s: %w", SourceReports, err)
	}
	s.applyReports(reports)
	return nil
}

func (s *Session) dataError(source string, err error) {
	s.logger.Warn("data load failed, keeping previous data", "source", source, "err", err)
	if s.opts.OnDataError != nil {
		s.opts.OnDataError(source, err)
	}
}

// ApplyBoundaries installs a loaded boundary index. Commands issued before it
// arrived are replayed against it.
func (s *Session) ApplyBoundaries(idx *geo.BoundaryIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyBoundaries(idx)
}

func (s *Session) applyBoundaries(idx *geo.BoundaryIndex) {
	s.index = idx
	s.areas = style.Join(idx.Features(), s.classifications)
	s.coord.SetIndex(idx)
	s.render()
}

// ApplyClassifications replaces the classification data and re-resolves
// everything that depends on it.
func (s *Session) ApplyClassifications(recs []model.ClassificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyClassifications(recs)
}

func (s *Session) applyClassifications(recs []model.ClassificationRecord) {
	s.classifications = style.IndexClassifications(recs)
	s.areas = style.Join(s.index.Features(), s.classifications)
	s.coord.Refresh()
	s.render()
}

func (s *Session) ApplyReports(reports []model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyReports(reports)
}

func (s *Session) applyReports(reports []model.Report) {
	s.reports = reports
	s.render()
}

// SelectArea focuses an area by any spelling of its name.
func (s *Session) SelectArea(name string) (selection.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.coord.SelectArea(name)
	s.render()
	return v, err
}

// PlacePin places the pin, or moves the existing one, at p ([lng, lat]).
func (s *Session) PlacePin(p orb.Point) (selection.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.coord.PlacePin(p)
	s.render()
	return v, err
}

// MovePin drags the existing pin. Without a pin it places a new one.
func (s *Session) MovePin(p orb.Point) (selection.Validation, error) {
	return s.PlacePin(p)
}

func (s *Session) ExternalFocus(fc model.FocusCommand) (selection.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.coord.ExternalFocus(fc)
	s.render()
	return v, err
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coord.Clear()
	s.render()
}

func (s *Session) ClearPin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coord.ClearPin()
	s.render()
}

// SetVisibility changes which report markers are drawn.
func (s *Session) SetVisibility(v overlay.Visibility) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visibility = v
	s.render()
}

func (s *Session) Visibility() overlay.Visibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibility
}

// Redraw re-emits the diff for the current state; it is empty unless the
// state changed since the last render.
func (s *Session) Redraw() overlay.Diff {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render()
}

func (s *Session) render() overlay.Diff {
	f := s.coord.Focus()
	st := overlay.State{
		Areas:      s.areas,
		Pin:        f.Pin,
		Markers:    s.reports,
		Visibility: s.visibility,
	}
	if f.Area != nil {
		st.SelectedArea = f.Area.Boundary
	}
	d := s.renderer.Render(s.overlays, st)
	s.overlays = d.Next
	if !d.Empty() && s.opts.OnOverlayDiff != nil {
		s.opts.OnOverlayDiff(d)
	}
	return d
}

// Nearest returns the reports closest to ref under the session's radius and limit.
func (s *Session) Nearest(ref orb.Point) []geo.ProximityResult[model.Report] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return geo.Nearest(ref, s.reports, s.opts.Nearest)
}

// NearestToFocus measures from the valid pin, else the selected area's
// centroid. It returns nil when nothing is focused.
func (s *Session) NearestToFocus() []geo.ProximityResult[model.Report] {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.focusPoint()
	if !ok {
		return nil
	}
	return geo.Nearest(ref, s.reports, s.opts.Nearest)
}

func (s *Session) focusPoint() (orb.Point, bool) {
	f := s.coord.Focus()
	switch {
	case f.Pin != nil && f.Pin.Valid:
		return f.Pin.Point, true
	case f.Area != nil && f.Area.Boundary != nil:
		return s.index.Centroid(f.Area.Boundary), true
	}
	return orb.Point{}, false
}

// ReportsIn returns the reports located inside the named area.
func (s *Session) ReportsIn(name string) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil, model.ErrNotReady
	}
	f := s.index.ByName(name)
	if f == nil {
		return nil, fmt.Errorf("%q: %w", name, model.ErrAreaNotFound)
	}
	return geo.ReportsWithin(f, s.reports), nil
}

// Search proxies the index search for the search box.
func (s *Session) Search(query string, limit int) []*model.BoundaryFeature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Search(query, limit)
}

func (s *Session) Focus() selection.Focus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coord.Focus()
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index != nil
}

func (s *Session) Index() *geo.BoundaryIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Areas returns every boundary joined with its classification, in load order.
func (s *Session) Areas() []model.ResolvedArea {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ResolvedArea(nil), s.areas...)
}

func (s *Session) Reports() []model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Report(nil), s.reports...)
}

// Overlays returns the overlay set as of the last render.
func (s *Session) Overlays() overlay.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(overlay.Set, len(s.overlays))
	for k, v := range s.overlays {
		out[k] = v
	}
	return out
}
