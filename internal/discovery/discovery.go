package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jaki95/tracklist-collector/config"
)

// Fetcher retrieves a page as a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Listing rows navigate via inline onclick handlers rather than plain
// anchors, e.g. onclick="window.location='/tracklist/abc/x.html';".
var onclickURLRE = regexp.MustCompile(`window\.location(?:\.href)?\s*=\s*'([^']+)'`)

// Discoverer collects tracklist detail-page URLs from seed listing pages.
type Discoverer struct {
	fetcher     Fetcher
	baseURL     *url.URL
	noNewPasses int
	maxPages    int
}

func New(fetcher Fetcher, cfg *config.Config) (*Discoverer, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", cfg.BaseURL, err)
	}

	return &Discoverer{
		fetcher:     fetcher,
		baseURL:     base,
		noNewPasses: cfg.Discovery.NoNewPasses,
		maxPages:    cfg.Discovery.MaxPages,
	}, nil
}

// Discover repeatedly fetches the seed listing page and scans it for
// tracklist links, accumulating across passes since the listing serves
// varying slices of its content. It stops after a fixed number of
// consecutive passes that turn up nothing new. The returned URLs are
// absolute, deduplicated and in first-seen order.
func (d *Discoverer) Discover(ctx context.Context, seedURL string) ([]string, error) {
	// Seeds may be site-relative
	seed, err := d.baseURL.Parse(strings.TrimSpace(seedURL))
	if err != nil {
		return nil, fmt.Errorf("invalid seed url %s: %w", seedURL, err)
	}
	seedURL = seed.String()

	urls := make([]string, 0)
	seen := make(map[string]bool)

	noNew := 0
	passes := 0
	for noNew < d.noNewPasses {
		if d.maxPages > 0 && passes >= d.maxPages {
			slog.Info("Reached page cap for discovery", "seed", seedURL, "passes", passes)
			break
		}
		passes++

		doc, err := d.fetcher.Fetch(ctx, seedURL)
		if err != nil {
			if passes == 1 {
				return nil, fmt.Errorf("failed to fetch seed page: %w", err)
			}
			slog.Warn("Discovery pass failed", "seed", seedURL, "pass", passes, "error", err)
			noNew++
			continue
		}

		added := 0
		for _, u := range d.extractTracklistURLs(doc) {
			if seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
			added++
		}

		if added > 0 {
			slog.Info("Found new tracklist urls", "seed", seedURL, "pass", passes, "new", added, "total", len(urls))
			noNew = 0
		} else {
			slog.Debug("No new urls in this pass", "seed", seedURL, "pass", passes)
			noNew++
		}
	}

	slog.Info("Finished collecting urls", "seed", seedURL, "total", len(urls))
	return urls, nil
}

// extractTracklistURLs pulls detail-page URLs out of anchors and onclick
// handlers. Elements without a usable target are skipped, and each URL is
// reported once per scan.
func (d *Discoverer) extractTracklistURLs(doc *goquery.Document) []string {
	var urls []string
	seen := make(map[string]bool)

	add := func(raw string) {
		u := d.normalizeURL(raw)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}

	doc.Find("a[href*='/tracklist/']").Each(func(_ int, link *goquery.Selection) {
		add(link.AttrOr("href", ""))
	})

	doc.Find("[onclick]").Each(func(_ int, el *goquery.Selection) {
		match := onclickURLRE.FindStringSubmatch(el.AttrOr("onclick", ""))
		if match == nil {
			return
		}
		add(match[1])
	})

	return urls
}

// normalizeURL resolves raw against the site base URL and returns the
// absolute form, or "" if it is not a usable tracklist link.
func (d *Discoverer) normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "javascript:") || strings.HasPrefix(raw, "mailto:") {
		return ""
	}

	resolved, err := d.baseURL.Parse(raw)
	if err != nil {
		return ""
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if !strings.Contains(resolved.Path, "/tracklist/") {
		return ""
	}

	resolved.Fragment = ""
	return resolved.String()
}
