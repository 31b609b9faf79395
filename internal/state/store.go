package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jaki95/tracklist-collector/internal/domain"
	"github.com/jaki95/tracklist-collector/internal/storage"
)

// Backing file names, relative to the storage backend's data directory.
const (
	CorpusFile     = "tracklists.json"
	ProcessedFile  = "processed_urls.json"
	DiscoveredFile = "tracklist_urls.json"
)

// Store tracks which tracklist URLs have been discovered, which have been
// attempted, and which have a parsed record in the corpus. All three sets
// are held in memory and rewritten to their backing files in full on every
// mutating call, so each write leaves a complete snapshot behind.
type Store struct {
	backend storage.Backend

	tracklists []*domain.Tracklist
	byURL      map[string]int

	processed    []string
	processedSet map[string]bool

	discovered    []string
	discoveredSet map[string]bool
}

// New creates a Store backed by the given storage backend and loads any
// existing state files. A missing backing file yields an empty set; an
// unparsable one is logged and treated as empty.
func New(ctx context.Context, backend storage.Backend) (*Store, error) {
	s := &Store{
		backend:       backend,
		byURL:         make(map[string]int),
		processedSet:  make(map[string]bool),
		discoveredSet: make(map[string]bool),
	}

	if err := s.loadCorpus(ctx); err != nil {
		return nil, err
	}

	if err := s.loadProcessed(ctx); err != nil {
		return nil, err
	}

	if err := s.loadDiscovered(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Has reports whether the corpus already contains a record for url.
func (s *Store) Has(url string) bool {
	_, ok := s.byURL[url]
	return ok
}

// Upsert inserts or replaces the corpus record for tracklist.URL and
// rewrites the corpus file. Upserting the same tracklist twice leaves a
// single record for its URL.
func (s *Store) Upsert(ctx context.Context, tracklist *domain.Tracklist) error {
	if i, ok := s.byURL[tracklist.URL]; ok {
		s.tracklists[i] = tracklist
	} else {
		s.byURL[tracklist.URL] = len(s.tracklists)
		s.tracklists = append(s.tracklists, tracklist)
	}

	return s.saveCorpus(ctx)
}

// MarkProcessed records that an attempt at url is complete, whether or not
// it produced a corpus record.
func (s *Store) MarkProcessed(ctx context.Context, url string) error {
	if s.processedSet[url] {
		return nil
	}

	s.processedSet[url] = true
	s.processed = append(s.processed, url)

	return s.saveProcessed(ctx)
}

// IsProcessed reports whether url has already been attempted.
func (s *Store) IsProcessed(url string) bool {
	return s.processedSet[url]
}

// SaveDiscovered merges urls into the persisted discovered set and returns
// how many of them were new.
func (s *Store) SaveDiscovered(ctx context.Context, urls []string) (int, error) {
	added := 0
	for _, url := range urls {
		if s.discoveredSet[url] {
			continue
		}
		s.discoveredSet[url] = true
		s.discovered = append(s.discovered, url)
		added++
	}

	if added == 0 {
		return 0, nil
	}

	if err := s.saveDiscovered(ctx); err != nil {
		return added, err
	}

	return added, nil
}

// Discovered returns the discovered URLs in first-seen order.
func (s *Store) Discovered() []string {
	return s.discovered
}

// Tracklists returns the corpus records in persisted order.
func (s *Store) Tracklists() []*domain.Tracklist {
	return s.tracklists
}

func (s *Store) loadCorpus(ctx context.Context) error {
	data, ok, err := s.readIfExists(ctx, CorpusFile)
	if err != nil || !ok {
		return err
	}

	var tracklists []*domain.Tracklist
	if err := json.Unmarshal(data, &tracklists); err != nil {
		slog.Error("Could not parse existing corpus file, starting fresh", "file", CorpusFile, "error", err)
		return nil
	}

	s.tracklists = tracklists
	for i, tracklist := range tracklists {
		s.byURL[tracklist.URL] = i
	}

	return nil
}

func (s *Store) loadProcessed(ctx context.Context) error {
	data, ok, err := s.readIfExists(ctx, ProcessedFile)
	if err != nil || !ok {
		return err
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		slog.Warn("Could not parse processed urls file, starting fresh", "file", ProcessedFile, "error", err)
		return nil
	}

	s.processed = urls
	for _, url := range urls {
		s.processedSet[url] = true
	}

	return nil
}

func (s *Store) loadDiscovered(ctx context.Context) error {
	data, ok, err := s.readIfExists(ctx, DiscoveredFile)
	if err != nil || !ok {
		return err
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		slog.Warn("Could not parse discovered urls file, starting fresh", "file", DiscoveredFile, "error", err)
		return nil
	}

	s.discovered = urls
	for _, url := range urls {
		s.discoveredSet[url] = true
	}

	return nil
}

func (s *Store) readIfExists(ctx context.Context, name string) ([]byte, bool, error) {
	exists, err := s.backend.Exists(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check state file %s: %w", name, err)
	}
	if !exists {
		return nil, false, nil
	}

	data, err := s.backend.ReadFile(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read state file %s: %w", name, err)
	}

	return data, true, nil
}

func (s *Store) saveCorpus(ctx context.Context) error {
	data, err := json.MarshalIndent(s.tracklists, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}

	return s.backend.WriteFile(ctx, CorpusFile, data)
}

func (s *Store) saveProcessed(ctx context.Context) error {
	data, err := json.MarshalIndent(s.processed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal processed urls: %w", err)
	}

	return s.backend.WriteFile(ctx, ProcessedFile, data)
}

func (s *Store) saveDiscovered(ctx context.Context) error {
	data, err := json.MarshalIndent(s.discovered, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal discovered urls: %w", err)
	}

	return s.backend.WriteFile(ctx, DiscoveredFile, data)
}
