package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/engine/geo"
	"github.com/rendis/denguemap/internal/model"
)

func cfgNearest(cfg config.Config) geo.NearestOptions {
	return geo.NearestOptions{RadiusMeters: cfg.NearestRadiusM, Limit: cfg.NearestLimit}
}

func runNearest(cfg config.Config, args []string, out io.Writer) error {
	var src sourceFlags
	var lat, lng float64
	var area string
	opts := cfgNearest(cfg)

	fs := flag.NewFlagSet("nearest", flag.ContinueOnError)
	fs.Float64Var(&lat, "lat", 0, "Reference latitude")
	fs.Float64Var(&lng, "lng", 0, "Reference longitude")
	fs.StringVar(&area, "area", "", "Measure from this barangay's centroid instead of -lat/-lng")
	fs.Float64Var(&opts.RadiusMeters, "radius", opts.RadiusMeters, "Search radius in meters (0 = unbounded)")
	fs.IntVar(&opts.Limit, "limit", opts.Limit, "Max results (0 = all)")
	src.register(fs, cfg)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: denguemap nearest [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  denguemap nearest -lat 14.705 -lng 121.085 -radius 500 -reports-db reports.db\n")
		fmt.Fprintf(os.Stderr, "  denguemap nearest -area \"Holy Spirit\" -limit 10 -reports-url https://api.example/reports\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.RadiusMeters < 0 || opts.Limit < 0 {
		return fmt.Errorf("-radius and -limit must not be negative")
	}
	if area == "" && !model.ValidCoordinates(lat, lng) {
		return fmt.Errorf("either -area or a valid -lat/-lng is required")
	}
	if src.reportsDB == "" && src.reportsURL == "" {
		return fmt.Errorf("-reports-db or -reports-url is required")
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, closeFn, err := openSession(ctx, cfg, src, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	var results []geo.ProximityResult[model.Report]
	if area != "" {
		if _, err := s.SelectArea(area); err != nil {
			return err
		}
		results = s.NearestToFocus()
	} else {
		results = s.Nearest(orb.Point{lng, lat})
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No reports found")
		return nil
	}
	fmt.Fprintf(out, "%-12s %-14s %-10s %10s  %s\n", "ID", "TYPE", "STATUS", "DISTANCE", "BARANGAY")
	for _, r := range results {
		fmt.Fprintf(out, "%-12s %-14s %-10s %10s  %s\n",
			r.Item.ID, r.Item.Kind, r.Item.Status, fmt.Sprintf("%.0f m", r.DistanceMeters), r.Item.Barangay)
	}
	return nil
}
