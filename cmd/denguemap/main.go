package main

import (
	"fmt"
	"os"

	"github.com/rendis/denguemap/internal/config"
	"github.com/rendis/denguemap/internal/logger"
	"github.com/rendis/denguemap/internal/tui"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		var run func(config.Config, []string) error
		switch os.Args[1] {
		case "locate":
			run = func(c config.Config, a []string) error { return runLocate(c, a, os.Stdout) }
		case "nearest":
			run = func(c config.Config, a []string) error { return runNearest(c, a, os.Stdout) }
		case "areas":
			run = func(c config.Config, a []string) error { return runAreas(c, a, os.Stdout) }
		case "import":
			run = runImport
		case "version":
			fmt.Println("denguemap " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
		if run != nil {
			logger.Setup()
			if err := run(cfg, os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// No subcommand → launch TUI; logs go to a file so they stay off the alt screen.
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger.SetupTo(logFile)

	if err := tui.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `denguemap - barangay dengue surveillance map

Usage:
  denguemap                 Launch interactive TUI
  denguemap locate [flags]  Find the barangay containing a point
  denguemap nearest [flags] List reports nearest to a point
  denguemap areas [flags]   Export barangays with their classification to CSV
  denguemap import [flags]  Store a reports feed in a .db file
  denguemap version         Show version

Run 'denguemap <command> --help' for flags.
`)
}
