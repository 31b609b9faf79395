package domain

import (
	"encoding/json"
	"time"
)

// TrackEntry represents a single track within a tracklist.
type TrackEntry struct {
	Title           string   `json:"title,omitempty"`
	TimeOffset      string   `json:"time,omitempty"`
	Artists         []string `json:"artist"`
	RecordLabel     string   `json:"record_label,omitempty"`
	PlayedTogether  bool     `json:"played_together"`
	IsMashupElement bool     `json:"is_mashup_element"`
	TrackNumber     string   `json:"track_number"`

	// Position is the 1-based document order of the track within its
	// tracklist. On the wire it is the array index, not a field.
	Position int `json:"-"`
}

// Tracklist is the parsed record of one DJ set, identified by its source URL.
type Tracklist struct {
	EventName string        `json:"event"`
	URL       string        `json:"url"`
	Tracks    []*TrackEntry `json:"tracks"`
	ParsedAt  time.Time     `json:"parsed_at"`
}

// UnmarshalJSON implements json.Unmarshaler for Tracklist, restoring each
// track's Position from its array index.
func (t *Tracklist) UnmarshalJSON(data []byte) error {
	type Alias Tracklist
	aux := (*Alias)(t)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	for i, track := range t.Tracks {
		if track != nil {
			track.Position = i + 1
		}
	}
	return nil
}
