// Package reader is the reading state machine. User actions arrive as
// intents, remote work leaves as tasks, and task results come back through
// Apply, which is the only place reader state changes.
package reader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/justyntemme/tales-t/internal/api"
	"github.com/justyntemme/tales-t/internal/nav"
	"github.com/justyntemme/tales-t/internal/progress"
	"github.com/justyntemme/tales-t/pkg/models"
)

// API is the part of the story API the controller uses
type API interface {
	ListStories(ctx context.Context) ([]models.Story, error)
	GetStory(ctx context.Context, id int64) (*models.Story, error)
	ListChapters(ctx context.Context, storyID int64) ([]models.Chapter, error)
	GetChapter(ctx context.Context, id int64) (*models.Chapter, error)
	ListParagraphs(ctx context.Context, chapterID int64, page int) (*models.ParagraphPage, error)
	GetParagraph(ctx context.Context, id int64) (*models.Paragraph, error)
	UnlockParagraph(ctx context.Context, id int64, price decimal.Decimal) error
	GenerateNextPage(ctx context.Context, chapterID int64, currentPage int) (*models.Paragraph, error)
	GenerateNextParagraph(ctx context.Context, chapterID int64, page int) (*models.Paragraph, error)
}

// Tracker records views and positions. *progress.Tracker implements it.
type Tracker interface {
	MarkViewed(event models.ViewEvent) bool
	RecordPosition(storyID, chapterID, paragraphID int64)
	LoadProgress(ctx context.Context, storyID int64) (*models.ReadingProgress, error)
	Viewed(id int64) bool
	Len() int
}

// Controller owns the reader state. Dispatch, Apply and Snapshot must be
// called from one goroutine; tasks may run anywhere.
type Controller struct {
	api      API
	progress Tracker
	nav      *nav.State
	logger   *slog.Logger

	mode Mode
	// epoch is bumped by every hydration; stages from an older hydration,
	// or for ids the location no longer addresses, are discarded
	epoch uint64

	stories        []models.Story
	storiesLoading bool

	story           *models.Story
	chapters        []models.Chapter
	chaptersFor     int64
	chapter         *models.Chapter
	readingProgress *models.ReadingProgress
	progressFor     int64

	// paragraphs are sanitized and belong to pageKey
	paragraphs []models.Paragraph
	pageKey    nav.PageKey
	pageFailed bool
	hasNext    bool
	focus      int64

	gen       Affordance
	genSeq    uint64
	genTarget nav.PageKey

	unlocking map[int64]bool

	err          error
	authRequired bool
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a controller over the given location state. Dispatch Hydrate
// to load what the location addresses.
func New(client API, tracker Tracker, state *nav.State, opts ...Option) *Controller {
	c := &Controller{
		api:       client,
		progress:  tracker,
		nav:       state,
		logger:    slog.Default(),
		unlocking: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Nav returns the location state the controller drives
func (c *Controller) Nav() *nav.State {
	return c.nav
}

// Dispatch applies a user intent and returns the remote work it needs
func (c *Controller) Dispatch(in Intent) []Task {
	tasks := c.dispatch(in)
	c.settleGeneration()
	return tasks
}

func (c *Controller) dispatch(in Intent) []Task {
	switch in := in.(type) {
	case LoadStories:
		return c.requestStories()
	case Hydrate:
		return c.hydrate()
	case Navigate:
		c.nav.Set(nav.Parse(in.Location), true)
		return c.hydrate()
	case SelectStory:
		return c.selectStory(in.Story)
	case SelectChapter:
		return c.selectChapter(in.ChapterID, in.Page)
	case NavigatePage:
		return c.navigatePage(in.Direction)
	case NextPage:
		return c.next()
	case GenerateParagraph:
		return c.startGeneration(KindParagraph)
	case FocusParagraph:
		return c.focusParagraph(in.ParagraphID)
	case Unlock:
		return c.unlockParagraph(in.ParagraphID)
	case Back:
		return c.back()
	case HistoryBack:
		if c.nav.Back() {
			return c.hydrate()
		}
	case HistoryForward:
		if c.nav.Forward() {
			return c.hydrate()
		}
	case Reload:
		pos := c.nav.Current()
		if pos.HasChapter() && c.chapter != nil {
			c.err = nil
			return []Task{c.fetchPage(pos.PageKey())}
		}
		return c.hydrate()
	case DismissError:
		c.err = nil
		c.authRequired = false
		if c.gen.State == Failed {
			c.gen = Affordance{}
		}
	default:
		c.logger.Warn("unknown intent", slog.String("type", fmt.Sprintf("%T", in)))
	}
	return nil
}

func (c *Controller) requestStories() []Task {
	c.storiesLoading = true
	return []Task{c.loadStories()}
}

// hydrate replays the current location from scratch. It never touches
// history.
func (c *Controller) hydrate() []Task {
	c.epoch++
	c.focus = 0
	c.err = nil
	pos := c.nav.Current()

	if !pos.HasStory() {
		c.leaveStory()
		if c.stories == nil && !c.storiesLoading {
			return c.requestStories()
		}
		return nil
	}

	c.mode = ModeStoryReading
	if c.story == nil || c.story.ID != pos.StoryID {
		c.resetStory()
	}
	if c.chapter != nil && c.chapter.ID != pos.ChapterID {
		c.chapter = nil
	}
	c.logger.Debug("hydrating location",
		slog.String("location", c.nav.Location()),
		slog.Uint64("epoch", c.epoch))
	return []Task{c.fetchStory(c.epoch, pos.StoryID)}
}

func (c *Controller) selectStory(story models.Story) []Task {
	c.resetStory()
	c.mode = ModeStoryReading
	c.story = &story
	c.focus = 0
	c.err = nil
	c.nav.Set(nav.Position{StoryID: story.ID, Page: 1}, true)

	c.chaptersFor = story.ID
	c.progressFor = story.ID
	return []Task{c.fetchChapters(story.ID), c.loadProgress(story.ID)}
}

func (c *Controller) selectChapter(chapterID int64, page int) []Task {
	pos := c.nav.Current()
	if !pos.HasStory() || chapterID <= 0 {
		return nil
	}
	if page < 1 {
		page = 1
	}

	c.focus = 0
	c.err = nil
	next := nav.Position{StoryID: pos.StoryID, ChapterID: chapterID, Page: page}
	c.nav.Set(next, true)
	c.progress.RecordPosition(pos.StoryID, chapterID, 0)

	if ch, ok := c.findChapter(chapterID); ok {
		c.chapter = &ch
		return []Task{c.fetchPage(next.PageKey())}
	}
	// not in the list yet, go through the chapter stage which fetches the page
	c.chapter = nil
	return []Task{c.fetchChapter(c.epoch, chapterID)}
}

func (c *Controller) navigatePage(dir Direction) []Task {
	pos := c.nav.Current()
	if !pos.HasChapter() {
		return nil
	}
	page := pos.Page + int(dir)
	if page < 1 {
		return nil
	}

	c.focus = 0
	next := pos.WithPage(page)
	c.nav.Set(next, true)
	return []Task{c.fetchPage(next.PageKey())}
}

func (c *Controller) next() []Task {
	pos := c.nav.Current()
	if !pos.HasChapter() || c.pageKey != pos.PageKey() || c.pageFailed {
		return nil
	}
	if c.hasNext {
		return c.navigatePage(Next)
	}
	return c.startGeneration(KindPage)
}

func (c *Controller) startGeneration(kind GenerationKind) []Task {
	pos := c.nav.Current()
	if !pos.HasChapter() || !c.gen.Enabled() {
		return nil
	}
	c.genSeq++
	c.gen = Affordance{State: Busy, Kind: kind}
	c.genTarget = nav.PageKey{}
	c.logger.Info("generation requested",
		slog.String("kind", kind.String()),
		slog.Int64("chapter", pos.ChapterID),
		slog.Int("page", pos.Page))
	return []Task{c.generate(c.genSeq, kind, pos.PageKey())}
}

// focusParagraph counts any click as a view, locked paragraphs included
func (c *Controller) focusParagraph(id int64) []Task {
	pos := c.nav.Current()
	if !pos.HasChapter() || c.pageKey != pos.PageKey() {
		return nil
	}
	p, ok := c.findParagraph(id)
	if !ok {
		return nil
	}

	c.focus = id
	c.progress.MarkViewed(models.ViewEvent{
		Story:     pos.StoryID,
		Chapter:   models.OptionalID(pos.ChapterID),
		Paragraph: id,
	})
	next := pos
	next.ParagraphID = id
	if p.Page >= 1 {
		next.Page = p.Page
	}
	c.nav.Set(next, true)
	c.progress.RecordPosition(pos.StoryID, pos.ChapterID, id)

	if next.Page != pos.Page {
		return []Task{c.fetchPage(next.PageKey())}
	}
	return nil
}

func (c *Controller) unlockParagraph(id int64) []Task {
	pos := c.nav.Current()
	if c.pageKey != pos.PageKey() || c.unlocking[id] {
		return nil
	}
	p, ok := c.findParagraph(id)
	if !ok || !p.IsLocked || !p.UnlockPrice.Valid {
		return nil
	}
	c.unlocking[id] = true
	c.logger.Info("unlock requested",
		slog.Int64("paragraph", id),
		slog.String("price", p.UnlockPrice.Decimal.String()))
	return []Task{c.unlock(id, p.UnlockPrice.Decimal, pos.PageKey())}
}

func (c *Controller) back() []Task {
	c.leaveStory()
	c.focus = 0
	c.err = nil
	c.nav.Set(nav.Position{}, true)
	if c.stories == nil && !c.storiesLoading {
		return c.requestStories()
	}
	return nil
}

// Apply folds a task result into the state and returns follow-up work
func (c *Controller) Apply(r Result) []Task {
	tasks := c.apply(r)
	c.settleGeneration()
	return tasks
}

func (c *Controller) apply(r Result) []Task {
	switch r := r.(type) {
	case storiesLoaded:
		c.storiesLoading = false
		if r.err != nil {
			c.fail("load stories", r.err)
			return nil
		}
		c.stories = r.stories

	case storyLoaded:
		if r.epoch != c.epoch || r.id != c.nav.Current().StoryID {
			c.stale("story", slog.Uint64("epoch", r.epoch))
			return nil
		}
		if r.err != nil {
			c.fail("load story", r.err)
			return nil
		}
		pos := c.nav.Current()
		c.story = r.story

		var tasks []Task
		if c.chaptersFor != pos.StoryID {
			c.chaptersFor = pos.StoryID
			tasks = append(tasks, c.fetchChapters(pos.StoryID))
		}
		if c.progressFor != pos.StoryID {
			c.progressFor = pos.StoryID
			tasks = append(tasks, c.loadProgress(pos.StoryID))
		}
		switch {
		case pos.HasChapter():
			tasks = append(tasks, c.fetchChapter(c.epoch, pos.ChapterID))
		case pos.HasParagraph():
			tasks = append(tasks, c.fetchParagraph(c.epoch, pos.ParagraphID))
		}
		return tasks

	case chapterLoaded:
		if r.epoch != c.epoch || r.id != c.nav.Current().ChapterID {
			c.stale("chapter", slog.Uint64("epoch", r.epoch))
			return nil
		}
		if r.err != nil {
			c.fail("load chapter", r.err)
			return nil
		}
		pos := c.nav.Current()
		c.chapter = r.chapter
		tasks := []Task{c.fetchPage(pos.PageKey())}
		if pos.HasParagraph() {
			tasks = append(tasks, c.fetchParagraph(c.epoch, pos.ParagraphID))
		}
		return tasks

	case paragraphLoaded:
		if r.epoch != c.epoch || r.id != c.nav.Current().ParagraphID {
			c.stale("paragraph", slog.Uint64("epoch", r.epoch))
			return nil
		}
		if r.err != nil {
			c.fail("load paragraph", r.err)
			return nil
		}
		pos := c.nav.Current()
		c.focus = r.paragraph.ID
		c.progress.MarkViewed(models.ViewEvent{
			Story:     pos.StoryID,
			Chapter:   models.OptionalID(pos.ChapterID),
			Paragraph: r.paragraph.ID,
		})

	case chaptersLoaded:
		if r.storyID != c.nav.Current().StoryID || r.storyID != c.chaptersFor {
			c.stale("chapters", slog.Int64("story", r.storyID))
			return nil
		}
		if r.err != nil {
			c.fail("load chapters", r.err)
			return nil
		}
		c.chapters = r.chapters
		if pos := c.nav.Current(); c.chapter == nil && pos.HasChapter() {
			if ch, ok := c.findChapter(pos.ChapterID); ok {
				c.chapter = &ch
			}
		}

	case progressLoaded:
		if r.storyID != c.nav.Current().StoryID {
			c.stale("progress", slog.Int64("story", r.storyID))
			return nil
		}
		if r.err != nil {
			// the indicator is optional, the reader keeps going without it
			c.logger.Warn("load progress failed", slog.Int64("story", r.storyID), slog.Any("error", r.err))
			return nil
		}
		c.readingProgress = r.progress

	case pageLoaded:
		if r.key != c.nav.Current().PageKey() {
			c.stale("page",
				slog.Int64("chapter", r.key.ChapterID),
				slog.Int("page", r.key.Page))
			return nil
		}
		c.pageKey = r.key
		if r.err != nil {
			c.paragraphs = nil
			c.hasNext = false
			c.pageFailed = true
			c.fail("load page", r.err)
			return nil
		}
		c.pageFailed = false
		c.hasNext = r.page.HasNext
		c.paragraphs = make([]models.Paragraph, 0, len(r.page.Results))
		for _, p := range r.page.Results {
			p = p.Sanitized()
			if p.Page < 1 {
				p.Page = r.key.Page
			}
			c.paragraphs = append(c.paragraphs, p)
		}

	case generated:
		if r.seq != c.genSeq || c.gen.State != Busy {
			c.stale("generation", slog.Uint64("seq", r.seq))
			return nil
		}
		pos := c.nav.Current()
		if pos.PageKey() != r.origin {
			c.logger.Debug("generation finished after navigation", slog.String("kind", r.kind.String()))
			c.gen = Affordance{}
			return nil
		}
		if r.err != nil {
			c.logger.Warn("generation failed", slog.String("kind", r.kind.String()), slog.Any("error", r.err))
			c.gen = Affordance{State: Failed, Kind: r.kind, Err: r.err}
			c.checkAuth(r.err)
			return nil
		}
		if r.kind == KindParagraph {
			c.gen = Affordance{}
			return []Task{c.fetchPage(r.origin)}
		}
		// stays busy until the new page has loaded
		c.focus = 0
		next := pos.WithPage(r.origin.Page + 1)
		c.nav.Set(next, true)
		c.genTarget = next.PageKey()
		return []Task{c.fetchPage(c.genTarget)}

	case unlocked:
		delete(c.unlocking, r.paragraphID)
		if r.key != c.nav.Current().PageKey() {
			c.stale("unlock", slog.Int64("paragraph", r.paragraphID))
			return nil
		}
		if r.err != nil {
			c.fail("unlock paragraph", r.err)
			return nil
		}
		return []Task{c.fetchPage(r.key)}

	default:
		c.logger.Warn("unknown result", slog.String("type", fmt.Sprintf("%T", r)))
	}
	return nil
}

// settleGeneration re-enables a page generation once its page has loaded or
// the reader has moved elsewhere
func (c *Controller) settleGeneration() {
	if c.gen.State != Busy || c.genTarget == (nav.PageKey{}) {
		return
	}
	if c.nav.Current().PageKey() != c.genTarget || c.pageKey == c.genTarget {
		c.gen = Affordance{}
		c.genTarget = nav.PageKey{}
	}
}

func (c *Controller) fail(op string, err error) {
	c.logger.Warn("request failed", slog.String("op", op), slog.Any("error", err))
	c.err = fmt.Errorf("%s: %w", op, err)
	c.checkAuth(err)
}

func (c *Controller) checkAuth(err error) {
	switch api.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.authRequired = true
	}
}

func (c *Controller) stale(kind string, attrs ...any) {
	c.logger.Debug("stale response discarded", append([]any{slog.String("result", kind)}, attrs...)...)
}

func (c *Controller) resetStory() {
	c.story = nil
	c.chapters = nil
	c.chaptersFor = 0
	c.chapter = nil
	c.readingProgress = nil
	c.progressFor = 0
	c.paragraphs = nil
	c.pageKey = nav.PageKey{}
	c.pageFailed = false
	c.hasNext = false
}

func (c *Controller) leaveStory() {
	c.mode = ModeStoryList
	c.resetStory()
}

func (c *Controller) findChapter(id int64) (models.Chapter, bool) {
	for _, ch := range c.chapters {
		if ch.ID == id {
			return ch, true
		}
	}
	return models.Chapter{}, false
}

func (c *Controller) findParagraph(id int64) (models.Paragraph, bool) {
	for _, p := range c.paragraphs {
		if p.ID == id {
			return p, true
		}
	}
	return models.Paragraph{}, false
}

// Snapshot returns a copy of the state for rendering
func (c *Controller) Snapshot() Snapshot {
	pos := c.nav.Current()
	s := Snapshot{
		Mode:              c.mode,
		Location:          c.nav.Location(),
		Position:          pos,
		Stories:           append([]models.Story(nil), c.stories...),
		StoriesLoading:    c.storiesLoading,
		Chapters:          append([]models.Chapter(nil), c.chapters...),
		Generation:        c.gen,
		Progress:          c.readingProgress,
		Percent:           progress.Percent(c.readingProgress, c.chapters),
		ViewedCount:       c.progress.Len(),
		CanHistoryBack:    c.nav.CanBack(),
		CanHistoryForward: c.nav.CanForward(),
		Err:               c.err,
		AuthRequired:      c.authRequired,
	}
	if c.story != nil {
		story := *c.story
		s.Story = &story
	}
	if c.chapter != nil {
		chapter := *c.chapter
		s.Chapter = &chapter
	}
	if !pos.HasChapter() {
		return s
	}

	s.HasPrev = pos.Page > 1
	if c.pageKey != pos.PageKey() {
		s.PageLoading = true
		return s
	}
	s.HasNext = c.hasNext
	s.NextGenerates = !c.hasNext && !c.pageFailed
	s.Paragraphs = make([]ParagraphView, 0, len(c.paragraphs))
	for _, p := range c.paragraphs {
		s.Paragraphs = append(s.Paragraphs, ParagraphView{
			Paragraph: p,
			Viewed:    c.progress.Viewed(p.ID),
			Focused:   p.ID == c.focus,
			Unlocking: c.unlocking[p.ID],
		})
	}
	return s
}
