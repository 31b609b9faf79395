package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/jaki95/tracklist-collector/config"
	"github.com/jaki95/tracklist-collector/internal/domain"
	"github.com/jaki95/tracklist-collector/internal/loader"
	"github.com/jaki95/tracklist-collector/internal/state"
	"github.com/jaki95/tracklist-collector/internal/storage"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to the config file")
	dbPath := flag.String("db", "", "Path to the sqlite database file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	ctx := context.Background()

	backend, err := storage.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create storage backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	exists, err := backend.Exists(ctx, state.CorpusFile)
	if err != nil {
		slog.Error("Failed to check corpus file", "error", err)
		os.Exit(1)
	}
	if !exists {
		slog.Error("No corpus file to load", "file", state.CorpusFile)
		os.Exit(1)
	}

	data, err := backend.ReadFile(ctx, state.CorpusFile)
	if err != nil {
		slog.Error("Failed to read corpus file", "error", err)
		os.Exit(1)
	}

	var tracklists []*domain.Tracklist
	if err := json.Unmarshal(data, &tracklists); err != nil {
		slog.Error("Failed to parse corpus file", "file", state.CorpusFile, "error", err)
		os.Exit(1)
	}

	db, err := loader.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}

	inserted, err := db.Load(tracklists)
	if err != nil {
		slog.Error("Failed to load corpus into database", "error", err)
		os.Exit(1)
	}

	slog.Info("Corpus loaded", "db", cfg.Database.Path, "tracklists", len(tracklists), "inserted", inserted)
}
