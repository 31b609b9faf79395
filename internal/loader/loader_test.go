package loader

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/tracklist-collector/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return db
}

func corpusFixture() []*domain.Tracklist {
	return []*domain.Tracklist{
		{
			EventName: "Set A @ Festival",
			URL:       "https://example.com/tracklist/a.html",
			Tracks: []*domain.TrackEntry{
				{Title: "Opener", Artists: []string{"X"}, TrackNumber: "1"},
				{Title: "Peak", Artists: []string{"X", "Y"}, PlayedTogether: true, TrackNumber: "2"},
				{Title: "Closer", Artists: []string{"Z"}, IsMashupElement: true, TrackNumber: "3"},
			},
			ParsedAt: time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC),
		},
		{
			EventName: "Set B @ Club Night",
			URL:       "https://example.com/tracklist/b.html",
			Tracks: []*domain.TrackEntry{
				{Title: "Only Track", Artists: []string{"W"}, TrackNumber: "1"},
			},
			ParsedAt: time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC),
		},
	}
}

func TestLoadInsertsTracklistsAndTracks(t *testing.T) {
	db := openTestDB(t)

	inserted, err := db.Load(corpusFixture())
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	var tracklistCount, trackCount int64
	require.NoError(t, db.Model(&Tracklist{}).Count(&tracklistCount).Error)
	require.NoError(t, db.Model(&Track{}).Count(&trackCount).Error)
	assert.Equal(t, int64(2), tracklistCount)
	assert.Equal(t, int64(4), trackCount)

	// The tracklist row keeps the event name and url
	var row Tracklist
	require.NoError(t, db.Where("url = ?", "https://example.com/tracklist/a.html").First(&row).Error)
	assert.Equal(t, "Set A @ Festival", row.Event)

	// Tracks link back to their tracklist with 1-based positions
	var tracks []Track
	require.NoError(t, db.Where("tracklist_id = ?", row.ID).Order("position").Find(&tracks).Error)
	require.Len(t, tracks, 3)

	assert.Equal(t, "Opener", tracks[0].Title)
	assert.Equal(t, []string{"X"}, tracks[0].Artist)
	assert.Equal(t, 1, tracks[0].Position)

	assert.Equal(t, []string{"X", "Y"}, tracks[1].Artist)
	assert.True(t, tracks[1].PlayedTogether)
	assert.Equal(t, 2, tracks[1].Position)

	assert.True(t, tracks[2].IsMashupElement)
	assert.Equal(t, "3", tracks[2].TrackNumber)
	assert.Equal(t, 3, tracks[2].Position)
}

func TestLoadIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	corpus := corpusFixture()

	inserted, err := db.Load(corpus)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Loading the same corpus again inserts nothing new
	inserted, err = db.Load(corpus)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	var tracklistCount, trackCount int64
	require.NoError(t, db.Model(&Tracklist{}).Count(&tracklistCount).Error)
	require.NoError(t, db.Model(&Track{}).Count(&trackCount).Error)
	assert.Equal(t, int64(2), tracklistCount)
	assert.Equal(t, int64(4), trackCount)
}

func TestLoadAppliesSentinels(t *testing.T) {
	db := openTestDB(t)

	corpus := []*domain.Tracklist{
		{
			EventName: "Sparse Set",
			URL:       "https://example.com/tracklist/sparse.html",
			Tracks: []*domain.TrackEntry{
				{TrackNumber: "1"},
				{Title: "Known", Artists: []string{}, TrackNumber: "2"},
			},
			ParsedAt: time.Now(),
		},
	}

	_, err := db.Load(corpus)
	require.NoError(t, err)

	var tracks []Track
	require.NoError(t, db.Order("position").Find(&tracks).Error)
	require.Len(t, tracks, 2)

	// Missing fields fall back to sentinels
	assert.Equal(t, "Unknown Title", tracks[0].Title)
	assert.Equal(t, []string{"Unknown Artist"}, tracks[0].Artist)

	// An explicitly empty artist list is kept empty
	assert.Equal(t, "Known", tracks[1].Title)
	assert.Empty(t, tracks[1].Artist)
}
