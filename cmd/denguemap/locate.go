package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/engine/selection"
	"github.com/rendis/denguemap/internal/model"
)

func runLocate(cfg config.Config, args []string, out io.Writer) error {
	var src sourceFlags
	var lat, lng float64

	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	fs.Float64Var(&lat, "lat", 0, "Latitude (required)")
	fs.Float64Var(&lng, "lng", 0, "Longitude (required)")
	src.register(fs, cfg)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: denguemap locate -lat <lat> -lng <lng> [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  denguemap locate -lat 14.705 -lng 121.085 -classifications-url https://api.example/classifications\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if !model.ValidCoordinates(lat, lng) {
		return fmt.Errorf("-lat and -lng must be a valid non-zero coordinate")
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, closeFn, err := openSession(ctx, cfg, src, cfgNearest(cfg))
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := s.PlacePin(orb.Point{lng, lat})
	if err != nil {
		return err
	}
	if v == selection.OutsideCoverage {
		return fmt.Errorf("(%.6f, %.6f): %w", lat, lng, model.ErrOutsideCoverage)
	}

	pin := s.Focus().Pin
	if pin == nil || pin.ContainingArea == nil {
		return fmt.Errorf("(%.6f, %.6f): %w", lat, lng, model.ErrOutsideCoverage)
	}
	a := pin.ContainingArea

	inside, _ := s.ReportsIn(a.Boundary.Name)
	printArea(out, *a, len(inside))
	return nil
}

func printArea(out io.Writer, a model.ResolvedArea, reports int) {
	b := a.Boundary
	fmt.Fprintf(out, "Area:       %s\n", b.DisplayName)
	if b.Properties.District != "" {
		fmt.Fprintf(out, "District:   %s\n", b.Properties.District)
	}
	if b.Properties.City != "" {
		fmt.Fprintf(out, "City:       %s\n", b.Properties.City)
	}
	fmt.Fprintf(out, "Pattern:    %s (%s)\n", a.Style.Label, a.Style.PatternType)
	fmt.Fprintf(out, "Risk:       %s\n", a.Style.RiskLevel)
	fmt.Fprintf(out, "Color:      %s %s\n", a.Style.Color.Name, a.Style.Color.Hex)
	if c := a.Classification; c != nil {
		if c.AlertText != "" {
			fmt.Fprintf(out, "Alert:      %s\n", c.AlertText)
		}
		if c.LastAnalysisTime != nil {
			fmt.Fprintf(out, "Analyzed:   %s\n", c.LastAnalysisTime.Format("2006-01-02 15:04"))
		}
	}
	fmt.Fprintf(out, "Reports:    %d\n", reports)
}
