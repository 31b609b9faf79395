package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jaki95/tracklist-collector/config"
	"github.com/jaki95/tracklist-collector/internal/pipeline"
	"github.com/jaki95/tracklist-collector/internal/scraper"
	"github.com/jaki95/tracklist-collector/internal/state"
	"github.com/jaki95/tracklist-collector/internal/storage"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to the config file")
	seedURLs := flag.String("seed", "", "Extra seed listing pages to discover from, comma separated (optional)")
	maxPages := flag.Int("max-pages", 0, "Cap on discovery passes per seed (overrides config)")
	discoverOnly := flag.Bool("discover-only", false, "Collect tracklist urls without parsing them")
	skipDiscovery := flag.Bool("skip-discovery", false, "Parse already discovered urls without re-scanning seed pages")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *discoverOnly && *skipDiscovery {
		fmt.Fprintln(flag.CommandLine.Output(), "-discover-only and -skip-discovery are mutually exclusive")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if *seedURLs != "" {
		for _, seed := range strings.Split(*seedURLs, ",") {
			if seed = strings.TrimSpace(seed); seed != "" {
				cfg.SeedURLs = append(cfg.SeedURLs, seed)
			}
		}
	}

	if *maxPages > 0 {
		cfg.Discovery.MaxPages = *maxPages
	}

	ctx := context.Background()

	backend, err := storage.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create storage backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	store, err := state.New(ctx, backend)
	if err != nil {
		slog.Error("Failed to load crawl state", "error", err)
		os.Exit(1)
	}

	p, err := pipeline.New(cfg, scraper.New(cfg), store)
	if err != nil {
		slog.Error("Failed to create pipeline", "error", err)
		os.Exit(1)
	}

	switch {
	case *discoverOnly:
		err = p.DiscoverURLs(ctx)
	case *skipDiscovery:
		err = p.ProcessURLs(ctx)
	default:
		err = p.Run(ctx)
	}
	if err != nil {
		slog.Error("Collector run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Collector run complete", "tracklists", len(store.Tracklists()))
}
