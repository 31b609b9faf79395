package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jaki95/tracklist-collector/internal/domain"
)

// Parse failures for pages that loaded but yielded no usable record. The
// caller should mark the page as attempted and move on.
var (
	ErrMissingEventName = errors.New("missing event name")
	ErrNoTracksFound    = errors.New("no tracks found")
)

// Track entries are divs with a tlp-prefixed id; the matching _content divs
// are expandable detail panes, not tracks of their own.
const trackEntrySelector = "div[id^='tlp']:not([id$='_content'])"

const playedTogetherMarker = "span[title='played together with previous track']"

// Parse extracts a tracklist record from a fetched page. The event name
// comes from page-level metadata and each track from its entry div; entries
// repeating an already seen track number are dropped, first one wins. A
// page without an event name or without any tracks is a failed parse.
func Parse(doc *goquery.Document, pageURL string) (*domain.Tracklist, error) {
	eventName := extractEventName(doc)
	if eventName == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingEventName, pageURL)
	}

	playedTogetherIDs := collectPlayedTogetherIDs(doc)

	var tracks []*domain.TrackEntry
	seen := make(map[string]bool)

	doc.Find(trackEntrySelector).Each(func(_ int, div *goquery.Selection) {
		trackNumber := strings.TrimPrefix(div.AttrOr("id", ""), "tlp")
		if trackNumber == "" {
			return
		}

		if seen[trackNumber] {
			slog.Debug("Skipping duplicate track number", "trackNumber", trackNumber, "url", pageURL)
			return
		}
		seen[trackNumber] = true

		track := extractTrack(div, playedTogetherIDs)
		track.TrackNumber = trackNumber
		track.Position = len(tracks) + 1
		tracks = append(tracks, track)
	})

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTracksFound, pageURL)
	}

	return &domain.Tracklist{
		EventName: eventName,
		URL:       pageURL,
		Tracks:    tracks,
		ParsedAt:  time.Now(),
	}, nil
}

func extractEventName(doc *goquery.Document) string {
	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if name := strings.TrimSpace(content); name != "" {
			return name
		}
	}

	// Older page layouts carry the title in an element instead
	return strings.TrimSpace(doc.Find(".tracklistTitle").First().Text())
}

// collectPlayedTogetherIDs gathers the ids of the page's "played together"
// marker spans so each track can be checked by its data-trno index.
func collectPlayedTogetherIDs(doc *goquery.Document) map[string]bool {
	ids := make(map[string]bool)
	doc.Find(playedTogetherMarker).Each(func(_ int, span *goquery.Selection) {
		if id, ok := span.Attr("id"); ok {
			ids[id] = true
		}
	})
	return ids
}

func extractTrack(div *goquery.Selection, playedTogetherIDs map[string]bool) *domain.TrackEntry {
	_, isMashup := div.Attr("data-mashpos")

	playedTogether := false
	if trno, ok := div.Attr("data-trno"); ok {
		playedTogether = playedTogetherIDs["tlp"+trno+"_tracknumber_value"]
	}

	// Artists stays non-nil so it always serializes as an array
	artists := []string{}
	div.Find("meta[itemprop='byArtist']").Each(func(_ int, meta *goquery.Selection) {
		if artist := strings.TrimSpace(meta.AttrOr("content", "")); artist != "" {
			artists = append(artists, artist)
		}
	})

	return &domain.TrackEntry{
		Title:           strings.TrimSpace(div.Find("meta[itemprop='name']").AttrOr("content", "")),
		TimeOffset:      strings.TrimSpace(div.Find(".cueValueField").First().Text()),
		Artists:         artists,
		RecordLabel:     strings.TrimSpace(div.Find("meta[itemprop='recordLabel']").AttrOr("content", "")),
		PlayedTogether:  playedTogether,
		IsMashupElement: isMashup,
	}
}
