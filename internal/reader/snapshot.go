package reader

import (
	"github.com/justyntemme/tales-t/internal/nav"
	"github.com/justyntemme/tales-t/pkg/models"
)

// GenerationKind says what a generation request produces
type GenerationKind int

const (
	KindPage GenerationKind = iota
	KindParagraph
)

func (k GenerationKind) String() string {
	if k == KindParagraph {
		return "paragraph"
	}
	return "page"
}

// AffordanceState is the state of the generate affordance
type AffordanceState int

const (
	Idle AffordanceState = iota
	Busy
	Failed
)

// Affordance describes the generate button: disabled while Busy, offering a
// retry when Failed
type Affordance struct {
	State AffordanceState
	Kind  GenerationKind
	Err   error
}

// Enabled reports whether the affordance accepts input
func (a Affordance) Enabled() bool { return a.State != Busy }

// ParagraphView is a sanitized paragraph with its per-session marks
type ParagraphView struct {
	models.Paragraph
	Viewed    bool
	Focused   bool
	Unlocking bool
}

// Snapshot is everything the render layer needs. It is a copy; mutating it
// does not affect the controller.
type Snapshot struct {
	Mode     Mode
	Location string
	Position nav.Position

	Stories        []models.Story
	StoriesLoading bool

	Story    *models.Story
	Chapters []models.Chapter
	Chapter  *models.Chapter

	Paragraphs  []ParagraphView
	PageLoading bool
	HasPrev     bool
	HasNext     bool
	// NextGenerates is set when the next affordance generates instead of
	// navigating
	NextGenerates bool
	Generation    Affordance

	Progress    *models.ReadingProgress
	Percent     int
	ViewedCount int

	CanHistoryBack    bool
	CanHistoryForward bool

	Err          error
	AuthRequired bool
}

// Focused returns the index of the focused paragraph, or -1
func (s Snapshot) Focused() int {
	for i, p := range s.Paragraphs {
		if p.Focused {
			return i
		}
	}
	return -1
}
