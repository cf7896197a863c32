package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/engine/feed"
	"github.com/rendis/denguemap/internal/engine/storage"
	"github.com/rendis/denguemap/internal/logger"
	"github.com/rendis/denguemap/internal/model"
	"github.com/rendis/denguemap/internal/tui"
)

func runImport(cfg config.Config, args []string) error {
	var url, file, dbPath string

	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.StringVar(&url, "url", cfg.ReportsURL, "Reports feed URL")
	fs.StringVar(&file, "file", "", "Reports JSON file (instead of -url)")
	fs.StringVar(&dbPath, "db", cfg.ReportsDB, "Destination .db file (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: denguemap import [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  denguemap import -url https://api.example/reports -db reports.db\n")
		fmt.Fprintf(os.Stderr, "  denguemap import -file reports.json -db reports.db\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	if url == "" && file == "" {
		return fmt.Errorf("either -url or -file is required")
	}

	ctx, cancel := signalContext()
	defer cancel()
	log := logger.L()
	start := time.Now()

	var reports []model.Report
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading reports: %w", err)
		}
		if reports, err = feed.DecodeReports(data); err != nil {
			return err
		}
	} else {
		client := feed.NewClient(feed.ClientOptions{Timeout: cfg.FeedTimeout, Retries: cfg.FeedRetries, Logger: log})
		var err error
		if reports, err = (&feed.ReportsFeed{Client: client, URL: url}).Reports(ctx).Get(); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating db dir: %w", err)
		}
	}
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	inserted, err := store.InsertBatch(ctx, reports)
	if err != nil {
		return fmt.Errorf("storing reports: %w", err)
	}
	total, _ := store.Count()

	var located int
	for _, r := range reports {
		if _, ok := r.Location(); ok {
			located++
		}
	}
	log.Info("import done",
		slog.Int("fetched", len(reports)),
		slog.Int("inserted", inserted),
		slog.Int("total", total),
		slog.Duration("took", time.Since(start)))

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Import Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Fetched:    %d (%d with coordinates)\n", len(reports), located)
	fmt.Fprintf(os.Stderr, "  New:        %d\n", inserted)
	fmt.Fprintf(os.Stderr, "  In DB:      %d\n", total)
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", time.Since(start).Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Database:   %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	tui.SaveRecent(dbPath)
	return nil
}
