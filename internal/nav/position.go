// Package nav owns the reader's location: which story, chapter, page and
// paragraph are addressed, encoded the same way the web reader encodes them in
// its address bar, plus back/forward history over those locations.
package nav

import (
	"net/url"
	"strconv"
	"strings"
)

// Query keys of the location
const (
	KeyStory     = "story"
	KeyChapter   = "chapter"
	KeyPage      = "page"
	KeyParagraph = "paragraph"
)

// Position is the full addressable location. Zero ids mean "not selected".
type Position struct {
	StoryID     int64
	ChapterID   int64
	Page        int
	ParagraphID int64
}

// Normalize keeps page at least 1 and drops everything below the story when
// no story is selected.
func (p Position) Normalize() Position {
	if p.StoryID <= 0 {
		return Position{Page: 1}
	}
	if p.ChapterID < 0 {
		p.ChapterID = 0
	}
	if p.ParagraphID < 0 {
		p.ParagraphID = 0
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

// HasStory reports whether a story is addressed
func (p Position) HasStory() bool { return p.StoryID > 0 }

// HasChapter reports whether a chapter is addressed
func (p Position) HasChapter() bool { return p.StoryID > 0 && p.ChapterID > 0 }

// HasParagraph reports whether a paragraph is focused
func (p Position) HasParagraph() bool { return p.StoryID > 0 && p.ParagraphID > 0 }

// PageKey identifies the page of paragraphs a position shows, ignoring focus
func (p Position) PageKey() PageKey {
	p = p.Normalize()
	return PageKey{StoryID: p.StoryID, ChapterID: p.ChapterID, Page: p.Page}
}

// WithPage returns a copy on another page with paragraph focus cleared
func (p Position) WithPage(page int) Position {
	p.Page = page
	p.ParagraphID = 0
	return p
}

// String returns the encoded location
func (p Position) String() string { return Encode(p) }

// PageKey is the identity of a fetched paragraph page
type PageKey struct {
	StoryID   int64
	ChapterID int64
	Page      int
}

// Encode renders a position as a location query. Keys appear in a fixed
// order; page is always present once a story is selected and paragraph only
// when one is focused.
func Encode(p Position) string {
	p = p.Normalize()
	if !p.HasStory() {
		return ""
	}
	var b strings.Builder
	b.WriteString(KeyStory + "=" + strconv.FormatInt(p.StoryID, 10))
	if p.ChapterID > 0 {
		b.WriteString("&" + KeyChapter + "=" + strconv.FormatInt(p.ChapterID, 10))
	}
	b.WriteString("&" + KeyPage + "=" + strconv.Itoa(p.Page))
	if p.ParagraphID > 0 {
		b.WriteString("&" + KeyParagraph + "=" + strconv.FormatInt(p.ParagraphID, 10))
	}
	return b.String()
}

// Parse reads a position from a location. It accepts a bare query, a query
// with a leading "?", or a full URL. Malformed ids are dropped and a missing
// or malformed page becomes 1.
func Parse(location string) Position {
	location = strings.TrimSpace(location)
	if i := strings.IndexByte(location, '?'); i >= 0 {
		location = location[i+1:]
	}
	if i := strings.IndexByte(location, '#'); i >= 0 {
		location = location[:i]
	}
	// ParseQuery keeps the pairs it could decode
	values, _ := url.ParseQuery(location)
	p := Position{
		StoryID:     parseID(values.Get(KeyStory)),
		ChapterID:   parseID(values.Get(KeyChapter)),
		ParagraphID: parseID(values.Get(KeyParagraph)),
		Page:        1,
	}
	if n, err := strconv.Atoi(values.Get(KeyPage)); err == nil && n >= 1 {
		p.Page = n
	}
	return p.Normalize()
}

func parseID(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
