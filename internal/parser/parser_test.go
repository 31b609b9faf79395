package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tracklistPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="Eric Prydz @ Tomorrowland Weekend 1 2024"/>
</head>
<body>
<div id="tlp1" data-trno="1">
	<meta itemprop="name" content=" Generate "/>
	<meta itemprop="byArtist" content="Eric Prydz"/>
	<meta itemprop="recordLabel" content="Pryda"/>
	<span class="cueValueField"> 0:00 </span>
	<span id="tlp1_tracknumber_value">1</span>
</div>
<div id="tlp1_content">
	<meta itemprop="name" content="Detail Pane Entry"/>
</div>
<div id="tlp2" data-trno="2">
	<meta itemprop="name" content="Opus (Four Tet Remix)"/>
	<meta itemprop="byArtist" content="Eric Prydz"/>
	<meta itemprop="byArtist" content="Four Tet"/>
	<span class="cueValueField">4:30</span>
	<span id="tlp2_tracknumber_value" title="played together with previous track">w/</span>
</div>
<div id="tlp2_content"></div>
<div id="tlp3" data-trno="3" data-mashpos="1">
	<meta itemprop="byArtist" content="ID"/>
	<span id="tlp3_tracknumber_value">2</span>
</div>
</body>
</html>`

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseTracklistPage(t *testing.T) {
	doc := parseHTML(t, tracklistPage)
	url := "https://www.1001tracklists.com/tracklist/abc/eric-prydz-tomorrowland-2024.html"

	tracklist, err := Parse(doc, url)
	require.NoError(t, err)

	assert.Equal(t, "Eric Prydz @ Tomorrowland Weekend 1 2024", tracklist.EventName)
	assert.Equal(t, url, tracklist.URL)
	assert.WithinDuration(t, time.Now(), tracklist.ParsedAt, time.Minute)
	require.Len(t, tracklist.Tracks, 3)

	first := tracklist.Tracks[0]
	assert.Equal(t, "Generate", first.Title)
	assert.Equal(t, "0:00", first.TimeOffset)
	assert.Equal(t, []string{"Eric Prydz"}, first.Artists)
	assert.Equal(t, "Pryda", first.RecordLabel)
	assert.False(t, first.PlayedTogether)
	assert.False(t, first.IsMashupElement)
	assert.Equal(t, "1", first.TrackNumber)
	assert.Equal(t, 1, first.Position)

	second := tracklist.Tracks[1]
	assert.Equal(t, "Opus (Four Tet Remix)", second.Title)
	assert.Equal(t, []string{"Eric Prydz", "Four Tet"}, second.Artists)
	assert.Empty(t, second.RecordLabel)
	assert.True(t, second.PlayedTogether)
	assert.False(t, second.IsMashupElement)
	assert.Equal(t, "2", second.TrackNumber)
	assert.Equal(t, 2, second.Position)

	third := tracklist.Tracks[2]
	assert.Empty(t, third.Title)
	assert.Empty(t, third.TimeOffset)
	assert.Equal(t, []string{"ID"}, third.Artists)
	assert.True(t, third.IsMashupElement)
	assert.False(t, third.PlayedTogether)
	assert.Equal(t, "3", third.TrackNumber)
	assert.Equal(t, 3, third.Position)
}

func TestParseSkipsDetailPanes(t *testing.T) {
	doc := parseHTML(t, tracklistPage)

	tracklist, err := Parse(doc, "https://example.com/tracklist/1.html")
	require.NoError(t, err)

	for _, track := range tracklist.Tracks {
		assert.NotEqual(t, "Detail Pane Entry", track.Title)
		assert.NotContains(t, track.TrackNumber, "_content")
	}
}

func TestParseDropsDuplicateTrackNumbers(t *testing.T) {
	page := `<html>
<head><meta property="og:title" content="Duplicate Set"/></head>
<body>
<div id="tlp5" data-trno="1"><meta itemprop="name" content="First Version"/><meta itemprop="byArtist" content="A"/></div>
<div id="tlp5" data-trno="2"><meta itemprop="name" content="Second Version"/><meta itemprop="byArtist" content="B"/></div>
<div id="tlp6" data-trno="3"><meta itemprop="name" content="Closer"/><meta itemprop="byArtist" content="C"/></div>
</body>
</html>`

	tracklist, err := Parse(parseHTML(t, page), "https://example.com/tracklist/2.html")
	require.NoError(t, err)
	require.Len(t, tracklist.Tracks, 2)

	// First occurrence wins
	assert.Equal(t, "5", tracklist.Tracks[0].TrackNumber)
	assert.Equal(t, "First Version", tracklist.Tracks[0].Title)
	assert.Equal(t, 1, tracklist.Tracks[0].Position)

	assert.Equal(t, "6", tracklist.Tracks[1].TrackNumber)
	assert.Equal(t, 2, tracklist.Tracks[1].Position)
}

func TestParseFailsWithoutEventName(t *testing.T) {
	page := `<html>
<head></head>
<body>
<div id="tlp1" data-trno="1"><meta itemprop="name" content="Track"/><meta itemprop="byArtist" content="A"/></div>
</body>
</html>`

	tracklist, err := Parse(parseHTML(t, page), "https://example.com/tracklist/3.html")
	assert.Nil(t, tracklist)
	assert.ErrorIs(t, err, ErrMissingEventName)
}

func TestParseFallsBackToTitleElement(t *testing.T) {
	page := `<html>
<head></head>
<body>
<div class="tracklistTitle"> Adam Beyer @ Awakenings 2023 </div>
<div id="tlp1" data-trno="1"><meta itemprop="name" content="Track"/><meta itemprop="byArtist" content="A"/></div>
</body>
</html>`

	tracklist, err := Parse(parseHTML(t, page), "https://example.com/tracklist/4.html")
	require.NoError(t, err)
	assert.Equal(t, "Adam Beyer @ Awakenings 2023", tracklist.EventName)
}

func TestParseFailsWithoutTracks(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{
			name: "no track divs at all",
			page: `<html><head><meta property="og:title" content="Empty Set"/></head><body></body></html>`,
		},
		{
			name: "only detail panes",
			page: `<html><head><meta property="og:title" content="Empty Set"/></head><body>
<div id="tlp1_content"><meta itemprop="name" content="Detail"/></div>
</body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracklist, err := Parse(parseHTML(t, tt.page), "https://example.com/tracklist/5.html")
			assert.Nil(t, tracklist)
			assert.ErrorIs(t, err, ErrNoTracksFound)
		})
	}
}

func TestParseKeepsArtistsNonNil(t *testing.T) {
	page := `<html>
<head><meta property="og:title" content="Sparse Set"/></head>
<body>
<div id="tlp1" data-trno="1"><meta itemprop="name" content="ID - ID"/></div>
</body>
</html>`

	tracklist, err := Parse(parseHTML(t, page), "https://example.com/tracklist/6.html")
	require.NoError(t, err)
	require.Len(t, tracklist.Tracks, 1)

	assert.NotNil(t, tracklist.Tracks[0].Artists)
	assert.Empty(t, tracklist.Tracks[0].Artists)
}
