package reader

import "github.com/justyntemme/tales-t/pkg/models"

// Mode is the top-level state of the reader
type Mode int

const (
	ModeStoryList Mode = iota
	ModeStoryReading
)

func (m Mode) String() string {
	if m == ModeStoryReading {
		return "reading"
	}
	return "list"
}

// Direction moves between pages
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// Intent is a user action handed to Dispatch
type Intent interface {
	intent()
}

// LoadStories fetches the story list
type LoadStories struct{}

// Hydrate replays the current location: story, then chapter and page, then
// paragraph
type Hydrate struct{}

// Navigate moves to a typed location and hydrates it
type Navigate struct {
	Location string
}

// SelectStory opens a story from the list
type SelectStory struct {
	Story models.Story
}

// SelectChapter opens a chapter. Page 0 means the first page.
type SelectChapter struct {
	ChapterID int64
	Page      int
}

// NavigatePage moves one page in Direction
type NavigatePage struct {
	Direction Direction
}

// NextPage moves to the next page, or generates one when the chapter has no
// further page
type NextPage struct{}

// GenerateParagraph asks the server for another paragraph on the current page
type GenerateParagraph struct{}

// FocusParagraph focuses a paragraph on the current page and records the view
type FocusParagraph struct {
	ParagraphID int64
}

// Unlock pays the advertised price of a locked paragraph
type Unlock struct {
	ParagraphID int64
}

// Back leaves the story and returns to the list
type Back struct{}

// HistoryBack steps back through location history
type HistoryBack struct{}

// HistoryForward steps forward through location history
type HistoryForward struct{}

// Reload re-fetches the current page
type Reload struct{}

// DismissError clears the error line and a failed generation state
type DismissError struct{}

func (LoadStories) intent()       {}
func (Hydrate) intent()           {}
func (Navigate) intent()          {}
func (SelectStory) intent()       {}
func (SelectChapter) intent()     {}
func (NavigatePage) intent()      {}
func (NextPage) intent()          {}
func (GenerateParagraph) intent() {}
func (FocusParagraph) intent()    {}
func (Unlock) intent()            {}
func (Back) intent()              {}
func (HistoryBack) intent()       {}
func (HistoryForward) intent()    {}
func (Reload) intent()            {}
func (DismissError) intent()      {}
