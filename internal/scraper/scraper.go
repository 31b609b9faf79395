package scraper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"

	"github.com/jaki95/tracklist-collector/config"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// WaitFunc blocks until a bot challenge has been dealt with out-of-band.
type WaitFunc func()

// Scraper fetches pages from the tracklist site one at a time, with
// randomized pacing between requests, bounded retries, persistent cookies
// and an interactive pause when a bot challenge page comes back.
type Scraper struct {
	collector  *colly.Collector
	baseURL    string
	cookieFile string
	maxRetries int
	baseDelay  time.Duration
	waitFunc   WaitFunc

	// Body of the most recent response. Requests are strictly sequential,
	// so a single slot is enough.
	body []byte
}

// New creates a Scraper from the scraper section of the config. A detected
// bot challenge blocks on operator input.
func New(cfg *config.Config) *Scraper {
	s := &Scraper{
		baseURL:    cfg.BaseURL,
		cookieFile: cfg.Scraper.CookieFile,
		maxRetries: cfg.Scraper.MaxRetries,
		baseDelay:  time.Duration(cfg.Scraper.BaseDelaySeconds) * time.Second,
		waitFunc:   waitForOperator,
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxDepth(1),
		colly.UserAgent(userAgents[rand.Intn(len(userAgents))]),
	)

	c.SetRequestTimeout(time.Duration(cfg.Scraper.RequestTimeoutSeconds) * time.Second)
	c.WithTransport(cloudflarebp.AddCloudFlareByPass(http.DefaultTransport))

	// The site penalizes fast access, so consecutive requests are spaced
	// out by a randomized interval
	if cfg.Scraper.MaxDelaySeconds > 0 {
		err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Delay:       time.Duration(cfg.Scraper.MinDelaySeconds) * time.Second,
			RandomDelay: time.Duration(cfg.Scraper.MaxDelaySeconds-cfg.Scraper.MinDelaySeconds) * time.Second,
		})
		if err != nil {
			slog.Warn("Failed to set request pacing", "error", err)
		}
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		r.Headers.Set("Connection", "keep-alive")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
		r.Headers.Set("Referer", s.baseURL+"/")
		r.Headers.Set("Cache-Control", "max-age=0")
	})

	c.OnResponse(func(r *colly.Response) {
		s.body = r.Body

		// Save cookies for future use
		if err := s.saveCookies(); err != nil {
			slog.Warn("Failed to save cookies", "error", err)
		}
	})

	s.collector = c

	if err := s.loadCookies(); err != nil {
		slog.Warn("Failed to load cookies", "error", err)
	}

	return s
}

// Fetch retrieves a single page and returns its parsed document. Transport
// failures are retried with backoff; a bot challenge page triggers the wait
// func and one refetch. Any returned error means the page is unavailable
// and the caller should move on to the next URL.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if isChallengePage(doc) {
		slog.Warn("Bot challenge detected", "url", pageURL)
		s.waitFunc()

		doc, err = s.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if isChallengePage(doc) {
			return nil, fmt.Errorf("bot challenge still present after wait: %s", pageURL)
		}
	}

	return doc, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.visitWithRetries(ctx, pageURL); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(s.body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response body: %w", err)
	}

	return doc, nil
}

func (s *Scraper) visitWithRetries(ctx context.Context, url string) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if attempt > 0 {
			delay := s.baseDelay * time.Duration(1<<uint(attempt))
			jitter := time.Duration(rand.Int63n(3000)) * time.Millisecond
			totalDelay := delay + jitter
			slog.Info("Retrying request", "attempt", attempt+1, "delay", totalDelay.String(), "url", url)
			time.Sleep(totalDelay)
		}

		lastErr = s.collector.Visit(url)
		if lastErr == nil {
			return nil
		}
		slog.Warn("Request failed", "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("failed after %d attempts: %w", s.maxRetries, lastErr)
}

// isChallengePage reports whether the document looks like a CAPTCHA or
// similar bot-challenge interstitial rather than a content page.
func isChallengePage(doc *goquery.Document) bool {
	selectors := []string{
		"iframe[src*='captcha']",
		"iframe[src*='recaptcha']",
		"div.g-recaptcha",
		"#captcha",
		"input[name*='captcha']",
	}

	for _, selector := range selectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}

	return false
}

// waitForOperator asks the operator to solve the challenge in a browser
// and waits for confirmation. Without interactive input it falls back to a
// fixed pause.
func waitForOperator() {
	fmt.Println("\nBot challenge detected. Please:")
	fmt.Println("1. Open the page in a browser and solve the challenge")
	fmt.Println("2. Press Enter in this terminal to continue...")

	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
		slog.Info("Running in non-interactive mode, waiting 30 seconds")
		time.Sleep(30 * time.Second)
	}
}

func (s *Scraper) loadCookies() error {
	if s.cookieFile == "" {
		return nil
	}

	if _, err := os.Stat(s.cookieFile); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(s.cookieFile)
	if err != nil {
		return err
	}
	defer file.Close()

	var cookies []*http.Cookie
	if err := json.NewDecoder(file).Decode(&cookies); err != nil {
		return err
	}

	// Filter out expired cookies
	var validCookies []*http.Cookie
	now := time.Now()
	for _, cookie := range cookies {
		if cookie.Expires.IsZero() || cookie.Expires.After(now) {
			validCookies = append(validCookies, cookie)
		}
	}

	if err := s.collector.SetCookies(s.baseURL, validCookies); err != nil {
		return err
	}
	slog.Info("Loaded cookies", "count", len(validCookies), "file", s.cookieFile)
	return nil
}

func (s *Scraper) saveCookies() error {
	if s.cookieFile == "" {
		return nil
	}

	cookies := s.collector.Cookies(s.baseURL)
	if len(cookies) == 0 {
		return nil
	}

	jsonBytes, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.cookieFile, jsonBytes, 0644)
}
