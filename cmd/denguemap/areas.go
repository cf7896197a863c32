package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/export"
)

func runAreas(cfg config.Config, args []string, out io.Writer) error {
	var src sourceFlags
	var outputPath string

	fs := flag.NewFlagSet("areas", flag.ContinueOnError)
	fs.StringVar(&outputPath, "output", "", "Output CSV path (default: stdout)")
	src.register(fs, cfg)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: denguemap areas [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  denguemap areas -classifications-url https://api.example/classifications\n")
		fmt.Fprintf(os.Stderr, "  denguemap areas -reports-db reports.db -output areas.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, closeFn, err := openSession(ctx, cfg, src, cfgNearest(cfg))
	if err != nil {
		return err
	}
	defer closeFn()

	if outputPath == "" {
		return export.AreasCSV(out, s.Index(), s.Areas(), s.Reports())
	}
	n, err := export.AreasCSVFile(outputPath, s.Index(), s.Areas(), s.Reports())
	if err != nil {
		return fmt.Errorf("exporting areas: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d areas to %s\n", n, outputPath)
	return nil
}
