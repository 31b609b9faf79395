package loader

import (
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jaki95/tracklist-collector/internal/domain"
)

// DB represents the sqlite3 database file the corpus is loaded into.
type DB struct{ *gorm.DB }

//go:embed schema.sql
var schema string

// Tracklist is one corpus record row. The url is the natural key; the
// numeric id exists to link tracks back to their tracklist.
type Tracklist struct {
	ID       int64
	URL      string
	Event    string
	ParsedAt time.Time
}

// Track is one row of the tracks table.
type Track struct {
	ID              int64
	TracklistID     int64
	Title           string
	Artist          []string `gorm:"serializer:json"`
	PlayedTogether  bool
	IsMashupElement bool
	TrackNumber     string
	Position        int
}

// Open returns a connection to a migrated sqlite3 database file on disk,
// creating the file and running migrations if necessary.
func Open(filename string) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(filename), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening db file at '%s': %w", filename, err)
	}

	db := &DB{gdb}

	if err := db.Exec(schema).Error; err != nil {
		return nil, fmt.Errorf("error migrating db at '%s': %w", filename, err)
	}

	return db, nil
}

// Load inserts corpus records and their tracks, skipping any tracklist
// whose url is already in the database so reloading the same corpus is a
// no-op. Returns the number of tracklists actually inserted.
func (db *DB) Load(tracklists []*domain.Tracklist) (int, error) {
	loaded := 0
	for _, tracklist := range tracklists {
		inserted, err := db.insertTracklist(tracklist)
		if err != nil {
			return loaded, err
		}
		if inserted {
			loaded++
		}
	}

	slog.Info("Finished loading corpus", "tracklists", len(tracklists), "inserted", loaded)
	return loaded, nil
}

func (db *DB) insertTracklist(tracklist *domain.Tracklist) (bool, error) {
	row := &Tracklist{
		URL:      tracklist.URL,
		Event:    tracklist.EventName,
		ParsedAt: tracklist.ParsedAt,
	}

	inserted := false
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return fmt.Errorf("error inserting tracklist '%s': %w", tracklist.URL, res.Error)
		}
		if res.RowsAffected == 0 {
			slog.Debug("Tracklist already loaded", "url", tracklist.URL)
			return nil
		}

		trackRows := make([]*Track, 0, len(tracklist.Tracks))
		for i, track := range tracklist.Tracks {
			trackRows = append(trackRows, &Track{
				TracklistID:     row.ID,
				Title:           titleOrSentinel(track.Title),
				Artist:          artistsOrSentinel(track.Artists),
				PlayedTogether:  track.PlayedTogether,
				IsMashupElement: track.IsMashupElement,
				TrackNumber:     track.TrackNumber,
				Position:        i + 1,
			})
		}

		if len(trackRows) > 0 {
			if err := tx.Create(&trackRows).Error; err != nil {
				return fmt.Errorf("error inserting tracks for '%s': %w", tracklist.URL, err)
			}
		}

		inserted = true
		return nil
	})

	return inserted, err
}

func titleOrSentinel(title string) string {
	if title == "" {
		return "Unknown Title"
	}
	return title
}

// artistsOrSentinel substitutes the sentinel only when the artist list is
// missing entirely; a present-but-empty list is loaded as is.
func artistsOrSentinel(artists []string) []string {
	if artists == nil {
		return []string{"Unknown Artist"}
	}
	return artists
}
