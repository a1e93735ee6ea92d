package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LoginResponse represents the login response. The server creates the
// reader on first login.
type LoginResponse struct {
	Email         string `json:"email"`
	IsNewReader   bool   `json:"is_new_reader"`
	WalletAddress string `json:"wallet_address"`
}

// Story represents a top-level narrative
type Story struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chapter represents an ordered unit within a story
type Chapter struct {
	ID     int64  `json:"id"`
	Story  int64  `json:"story"`
	Number int    `json:"chapter_number"`
	Title  string `json:"title"`
}

// Label returns the display label used in chapter lists
func (c Chapter) Label() string {
	return fmt.Sprintf("Chapter %d: %s", c.Number, c.Title)
}

// SortChapters orders chapters by number in place
func SortChapters(chapters []Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Number < chapters[j].Number
	})
}

// Paragraph is the smallest content unit. Locked paragraphs carry a price
// and no text until unlocked.
type Paragraph struct {
	ID          int64               `json:"id"`
	Chapter     int64               `json:"chapter"`
	Number      int                 `json:"paragraph_number"`
	Page        int                 `json:"page"`
	Text        string              `json:"text"`
	IsLocked    bool                `json:"is_locked"`
	UnlockPrice decimal.NullDecimal `json:"unlock_price"`
}

// Sanitized returns a copy that is safe to hand to a renderer: a locked
// paragraph never exposes text, whatever the server sent.
func (p Paragraph) Sanitized() Paragraph {
	if p.IsLocked {
		p.Text = ""
		return p
	}
	p.UnlockPrice = decimal.NullDecimal{}
	return p
}

// ParagraphPage is one page of a chapter's paragraphs
type ParagraphPage struct {
	Results []Paragraph `json:"results"`
	HasNext bool        `json:"has_next"`
}

// ReadingProgress is the server-owned record of a reader's progress in a story
type ReadingProgress struct {
	ID               int64     `json:"id"`
	Story            int64     `json:"story"`
	CurrentChapter   *int64    `json:"current_chapter,omitempty"`
	CurrentParagraph *int64    `json:"current_paragraph,omitempty"`
	ViewedParagraphs []int64   `json:"viewed_paragraphs"`
	LastAccessed     time.Time `json:"last_accessed"`
}

// ViewEvent is the payload of a mark-viewed request
type ViewEvent struct {
	Story     int64  `json:"story"`
	Chapter   *int64 `json:"chapter,omitempty"`
	Paragraph int64  `json:"paragraph"`
}

// ProgressUpdate is the payload of a reading-progress upsert
type ProgressUpdate struct {
	Story            int64  `json:"story"`
	CurrentChapter   *int64 `json:"current_chapter"`
	CurrentParagraph *int64 `json:"current_paragraph"`
}

// HistoryEntry is one paragraph view in the server's navigation history
type HistoryEntry struct {
	ParagraphID int64     `json:"paragraph_id"`
	ChapterID   int64     `json:"chapter_id"`
	ViewOrder   int       `json:"view_order"`
	ViewedAt    time.Time `json:"viewed_at"`
}

// ErrorResponse represents an API error. The server uses either key.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Message returns whichever error text the server populated
func (e ErrorResponse) Message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}

// OptionalID returns nil for a zero id, used for nullable foreign keys
func OptionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
