package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/engine"
	"github.com/rendis/denguemap/internal/engine/feed"
	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/engine/storage"
	"github.com/rendis/denguemap/internal/logger"
)

// sourceFlags are the data source flags shared by the headless commands.
type sourceFlags struct {
	boundaryPath      string
	boundaryURL       string
	classificationURL string
	reportsURL        string
	reportsDB         string
}

func (f *sourceFlags) register(fs *flag.FlagSet, cfg config.Config) {
	fs.StringVar(&f.boundaryPath, "boundaries", cfg.BoundaryPath, "Boundary GeoJSON file (default: bundled Quezon City)")
	fs.StringVar(&f.boundaryURL, "boundaries-url", cfg.BoundaryURL, "Boundary GeoJSON URL")
	fs.StringVar(&f.classificationURL, "classifications-url", cfg.ClassificationURL, "Classification feed URL")
	fs.StringVar(&f.reportsURL, "reports-url", cfg.ReportsURL, "Reports feed URL")
	fs.StringVar(&f.reportsDB, "reports-db", cfg.ReportsDB, "Reports .db file (takes precedence over -reports-url)")
}

// openSession loads boundaries and fetches the feeds once. Feed failures are
// logged and leave that layer empty; a boundary failure is fatal.
func openSession(ctx context.Context, cfg config.Config, f sourceFlags, nearest geo.NearestOptions) (*engine.Session, func(), error) {
	log := logger.L()
	client := feed.NewClient(feed.ClientOptions{
		Timeout: cfg.FeedTimeout,
		Retries: cfg.FeedRetries,
		Logger:  log,
	})

	opts := engine.Options{
		AreaZoom: cfg.DefaultAreaZoom,
		PinZoom:  cfg.DefaultPinZoom,
		Nearest:  nearest,
		Logger:   log,
		Callbacks: engine.Callbacks{
			OnDataError: func(source string, err error) {
				log.Warn("data source unavailable", slog.String("source", source), slog.Any("error", err))
			},
		},
	}
	if f.classificationURL != "" {
		opts.Classifications = &feed.ClassificationFeed{Client: client, URL: f.classificationURL}
	}

	cleanup := func() {}
	switch {
	case f.reportsDB != "":
		if _, err := os.Stat(f.reportsDB); err != nil {
			return nil, nil, fmt.Errorf("reports db: %w", err)
		}
		store, err := storage.NewStore(f.reportsDB)
		if err != nil {
			return nil, nil, fmt.Errorf("opening reports db: %w", err)
		}
		opts.Reports = store
		cleanup = func() { store.Close() }
	case f.reportsURL != "":
		opts.Reports = &feed.ReportsFeed{Client: client, URL: f.reportsURL}
	}

	boundaries := feed.NewBoundaryService(client, feed.BoundarySource{Path: f.boundaryPath, URL: f.boundaryURL}, log)
	idx, err := boundaries.Ready(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("loading boundaries: %w", err)
	}
	if r := boundaries.Report(); len(r.Skipped) > 0 {
		log.Warn("boundary features skipped", slog.Int("count", len(r.Skipped)))
	}

	s := engine.NewSession(opts)
	s.ApplyBoundaries(idx)
	// Errors were already reported through OnDataError.
	_ = s.Refresh(ctx)

	return s, func() {
		s.Close()
		cleanup()
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nShutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
