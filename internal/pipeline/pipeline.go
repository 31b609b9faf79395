package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	ansi "github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"github.com/jaki95/tracklist-collector/config"
	"github.com/jaki95/tracklist-collector/internal/discovery"
	"github.com/jaki95/tracklist-collector/internal/parser"
	"github.com/jaki95/tracklist-collector/internal/state"
)

// Fetcher retrieves a page as a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Pipeline wires discovery, fetching, parsing and the state store into the
// sequential collect loop. Pages are handled strictly one at a time.
type Pipeline struct {
	cfg        *config.Config
	fetcher    Fetcher
	discoverer *discovery.Discoverer
	store      *state.Store
	baseURL    *url.URL
}

func New(cfg *config.Config, fetcher Fetcher, store *state.Store) (*Pipeline, error) {
	discoverer, err := discovery.New(fetcher, cfg)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", cfg.BaseURL, err)
	}

	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		discoverer: discoverer,
		store:      store,
		baseURL:    base,
	}, nil
}

// Run discovers tracklist URLs from the configured seed pages, then
// processes every known URL that has not been handled yet.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.DiscoverURLs(ctx); err != nil {
		return err
	}
	return p.ProcessURLs(ctx)
}

// DiscoverURLs collects tracklist URLs from each seed page and persists
// them. A seed that cannot be discovered is logged and skipped.
func (p *Pipeline) DiscoverURLs(ctx context.Context) error {
	for _, seed := range p.cfg.SeedURLs {
		if err := ctx.Err(); err != nil {
			return err
		}

		slog.Info("Collecting tracklist urls", "seed", seed)

		urls, err := p.discoverer.Discover(ctx, seed)
		if err != nil {
			slog.Error("Discovery failed for seed, moving on", "seed", seed, "error", err)
			continue
		}

		added, err := p.store.SaveDiscovered(ctx, urls)
		if err != nil {
			return err
		}
		slog.Info("Saved discovered urls", "seed", seed, "new", added)
	}

	return nil
}

// ProcessURLs fetches and parses every discovered URL that is neither in
// the corpus nor marked processed. Failures on one URL never stop the rest
// of the run; only state persistence errors are fatal.
func (p *Pipeline) ProcessURLs(ctx context.Context) error {
	var pending []string
	for _, raw := range p.store.Discovered() {
		pageURL := p.absoluteURL(raw)
		if pageURL == "" {
			slog.Warn("Skipping unusable discovered url", "url", raw)
			continue
		}
		if p.store.Has(pageURL) || p.store.IsProcessed(pageURL) {
			continue
		}
		pending = append(pending, pageURL)
	}

	if len(pending) == 0 {
		slog.Info("No new urls to process")
		return nil
	}

	slog.Info("Processing tracklist urls", "count", len(pending))

	bar := progressbar.NewOptions(
		len(pending),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		// Same value as progressbar.ThemeASCII, which requires progressbar
		// >= v3.16.0 (Go 1.22+); spelled out to stay on v3.15.0 for Go 1.21.
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: ".",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan][2/2][reset] Parsing tracklists..."),
	)

	for _, url := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.processURL(ctx, url); err != nil {
			return err
		}

		if err := bar.Add(1); err != nil {
			slog.Debug("Failed to update progress bar", "error", err)
		}
	}

	return nil
}

func (p *Pipeline) processURL(ctx context.Context, url string) error {
	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		// The url stays unmarked so a later run can try it again
		slog.Error("Page unavailable, skipping", "url", url, "error", err)
		return nil
	}

	tracklist, err := parser.Parse(doc, url)
	if err != nil {
		slog.Warn("Parse failed", "url", url, "error", err)
		return p.store.MarkProcessed(ctx, url)
	}

	if err := p.store.Upsert(ctx, tracklist); err != nil {
		return err
	}
	if err := p.store.MarkProcessed(ctx, url); err != nil {
		return err
	}

	slog.Info("Parsed tracklist", "url", url, "event", tracklist.EventName, "tracks", len(tracklist.Tracks))
	return nil
}

// absoluteURL resolves a discovered entry against the base URL, since the
// backing file may carry site-relative paths.
func (p *Pipeline) absoluteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	resolved, err := p.baseURL.Parse(raw)
	if err != nil {
		return ""
	}
	return resolved.String()
}
