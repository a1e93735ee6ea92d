package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/tales-t/internal/api"
	"github.com/justyntemme/tales-t/internal/nav"
	"github.com/justyntemme/tales-t/pkg/models"
)

type pageID struct {
	chapter int64
	page    int
}

type fakeAPI struct {
	stories  []models.Story
	chapters map[int64][]models.Chapter
	pages    map[pageID]*models.ParagraphPage
	calls    map[string]int

	listErr error
	genErr  error
}

func paragraphID(chapter int64, page, i int) int64 {
	return chapter*100 + int64(page*10+i)
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{
		stories: []models.Story{
			{ID: 1, Title: "The Long Road"},
			{ID: 2, Title: "Salt and Iron"},
		},
		chapters: map[int64][]models.Chapter{
			1: {
				{ID: 10, Story: 1, Number: 1, Title: "Departure"},
				{ID: 20, Story: 1, Number: 2, Title: "The Ford"},
			},
		},
		pages: make(map[pageID]*models.ParagraphPage),
		calls: make(map[string]int),
	}
	f.addPage(10, 1, true)
	f.addPage(10, 2, true)
	f.addPage(10, 3, false)
	f.addPage(20, 1, false)

	// the server leaks text for a locked paragraph; it must never render
	p := &f.pages[pageID{10, 2}].Results[1]
	p.IsLocked = true
	p.Text = "secret"
	p.UnlockPrice = decimal.NewNullDecimal(decimal.RequireFromString("1.50"))
	return f
}

func (f *fakeAPI) addPage(chapter int64, page int, hasNext bool) {
	pg := &models.ParagraphPage{HasNext: hasNext}
	for i := 1; i <= 2; i++ {
		pg.Results = append(pg.Results, models.Paragraph{
			ID:      paragraphID(chapter, page, i),
			Chapter: chapter,
			Number:  i,
			Page:    page,
			Text:    fmt.Sprintf("chapter %d page %d paragraph %d", chapter, page, i),
		})
	}
	f.pages[pageID{chapter, page}] = pg
}

func notFound(op string) error {
	return &api.Error{Op: op, Kind: api.ErrStatus, StatusCode: http.StatusNotFound, Message: "Not found."}
}

func (f *fakeAPI) ListStories(context.Context) ([]models.Story, error) {
	f.calls["ListStories"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Story(nil), f.stories...), nil
}

func (f *fakeAPI) GetStory(_ context.Context, id int64) (*models.Story, error) {
	f.calls["GetStory"]++
	for _, s := range f.stories {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, notFound("get story")
}

func (f *fakeAPI) ListChapters(_ context.Context, storyID int64) ([]models.Chapter, error) {
	f.calls["ListChapters"]++
	return append([]models.Chapter(nil), f.chapters[storyID]...), nil
}

func (f *fakeAPI) GetChapter(_ context.Context, id int64) (*models.Chapter, error) {
	f.calls["GetChapter"]++
	for _, chapters := range f.chapters {
		for _, ch := range chapters {
			if ch.ID == id {
				return &ch, nil
			}
		}
	}
	return nil, notFound("get chapter")
}

func (f *fakeAPI) ListParagraphs(_ context.Context, chapterID int64, page int) (*models.ParagraphPage, error) {
	f.calls["ListParagraphs"]++
	pg, ok := f.pages[pageID{chapterID, page}]
	if !ok {
		return nil, notFound("list paragraphs")
	}
	cp := *pg
	cp.Results = append([]models.Paragraph(nil), pg.Results...)
	return &cp, nil
}

func (f *fakeAPI) find(id int64) *models.Paragraph {
	for _, pg := range f.pages {
		for i := range pg.Results {
			if pg.Results[i].ID == id {
				return &pg.Results[i]
			}
		}
	}
	return nil
}

func (f *fakeAPI) GetParagraph(_ context.Context, id int64) (*models.Paragraph, error) {
	f.calls["GetParagraph"]++
	if p := f.find(id); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, notFound("get paragraph")
}

func (f *fakeAPI) UnlockParagraph(_ context.Context, id int64, price decimal.Decimal) error {
	f.calls["UnlockParagraph"]++
	p := f.find(id)
	if p == nil || !p.UnlockPrice.Valid || !p.UnlockPrice.Decimal.Equal(price) {
		return &api.Error{Op: "unlock paragraph", Kind: api.ErrStatus, StatusCode: http.StatusBadRequest}
	}
	p.IsLocked = false
	p.Text = "revealed"
	p.UnlockPrice = decimal.NullDecimal{}
	return nil
}

func (f *fakeAPI) GenerateNextPage(_ context.Context, chapterID int64, currentPage int) (*models.Paragraph, error) {
	f.calls["GenerateNextPage"]++
	if f.genErr != nil {
		return nil, f.genErr
	}
	f.pages[pageID{chapterID, currentPage}].HasNext = true
	f.addPage(chapterID, currentPage+1, false)
	p := f.pages[pageID{chapterID, currentPage + 1}].Results[0]
	return &p, nil
}

func (f *fakeAPI) GenerateNextParagraph(_ context.Context, chapterID int64, page int) (*models.Paragraph, error) {
	f.calls["GenerateNextParagraph"]++
	if f.genErr != nil {
		return nil, f.genErr
	}
	pg := f.pages[pageID{chapterID, page}]
	p := models.Paragraph{
		ID:      paragraphID(chapterID, page, len(pg.Results)+1),
		Chapter: chapterID,
		Number:  len(pg.Results) + 1,
		Page:    page,
		Text:    "freshly written",
	}
	pg.Results = append(pg.Results, p)
	return &p, nil
}

type fakeTracker struct {
	viewed    map[int64]bool
	views     []models.ViewEvent
	positions [][3]int64
	loads     []int64
	progress  *models.ReadingProgress
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{viewed: make(map[int64]bool)}
}

func (f *fakeTracker) MarkViewed(event models.ViewEvent) bool {
	f.views = append(f.views, event)
	seen := f.viewed[event.Paragraph]
	f.viewed[event.Paragraph] = true
	return !seen
}

func (f *fakeTracker) RecordPosition(storyID, chapterID, paragraphID int64) {
	f.positions = append(f.positions, [3]int64{storyID, chapterID, paragraphID})
}

func (f *fakeTracker) LoadProgress(_ context.Context, storyID int64) (*models.ReadingProgress, error) {
	f.loads = append(f.loads, storyID)
	return f.progress, nil
}

func (f *fakeTracker) Viewed(id int64) bool { return f.viewed[id] }

func (f *fakeTracker) Len() int { return len(f.viewed) }

func newController(f *fakeAPI, location string) (*Controller, *fakeTracker) {
	tr := newFakeTracker()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f, tr, nav.New(location), WithLogger(logger)), tr
}

// run executes tasks in order, feeding every result back through Apply
func run(c *Controller, tasks []Task) {
	for len(tasks) > 0 {
		task := tasks[0]
		tasks = append(tasks[1:], c.Apply(task(context.Background()))...)
	}
}

func dispatch(c *Controller, in Intent) {
	run(c, c.Dispatch(in))
}

// openPage selects story 1, a chapter, and pages forward to page
func openPage(t *testing.T, c *Controller, f *fakeAPI, chapter int64, page int) {
	t.Helper()
	dispatch(c, SelectStory{Story: f.stories[0]})
	dispatch(c, SelectChapter{ChapterID: chapter})
	for c.Snapshot().Position.Page < page {
		dispatch(c, NextPage{})
	}
	require.Equal(t, nav.Position{StoryID: 1, ChapterID: chapter, Page: page}, c.Snapshot().Position)
}

func paragraphIDs(s Snapshot) []int64 {
	ids := make([]int64, 0, len(s.Paragraphs))
	for _, p := range s.Paragraphs {
		ids = append(ids, p.ID)
	}
	return ids
}

func assertNoLockedText(t *testing.T, s Snapshot) {
	t.Helper()
	for _, p := range s.Paragraphs {
		if p.IsLocked {
			assert.Empty(t, p.Text, "locked paragraph %d exposes text", p.ID)
		}
	}
}

func TestSelectStoryEntersReading(t *testing.T) {
	f := newFakeAPI()
	c, tr := newController(f, "")

	dispatch(c, LoadStories{})
	require.Len(t, c.Snapshot().Stories, 2)

	dispatch(c, SelectStory{Story: f.stories[0]})
	s := c.Snapshot()
	assert.Equal(t, ModeStoryReading, s.Mode)
	assert.Equal(t, "story=1&page=1", s.Location)
	require.Len(t, s.Chapters, 2)
	assert.Nil(t, s.Chapter)
	assert.Empty(t, s.Paragraphs)
	assert.Equal(t, []int64{1}, tr.loads)
}

func TestPrevOnFirstPageIsNoop(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 1)

	before := c.Snapshot()
	historyLen := c.Nav().Len()
	fetches := f.calls["ListParagraphs"]

	tasks := c.Dispatch(NavigatePage{Direction: Prev})
	assert.Empty(t, tasks)
	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, historyLen, c.Nav().Len())
	assert.Equal(t, fetches, f.calls["ListParagraphs"])
	assert.False(t, before.HasPrev)
}

func TestPageNavigation(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 2)

	s := c.Snapshot()
	assert.True(t, s.HasPrev)
	assert.True(t, s.HasNext)
	assert.Equal(t, []int64{1021, 1022}, paragraphIDs(s))

	dispatch(c, NavigatePage{Direction: Prev})
	s = c.Snapshot()
	assert.Equal(t, 1, s.Position.Page)
	assert.Equal(t, []int64{1011, 1012}, paragraphIDs(s))
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 1)

	toA := c.Dispatch(NavigatePage{Direction: Next})
	toB := c.Dispatch(SelectChapter{ChapterID: 20})

	// B resolves first, then the abandoned A
	run(c, toB)
	run(c, toA)

	s := c.Snapshot()
	assert.Equal(t, nav.Position{StoryID: 1, ChapterID: 20, Page: 1}, s.Position)
	assert.Equal(t, []int64{2011, 2012}, paragraphIDs(s))
	assert.Equal(t, int64(20), s.Chapter.ID)
}

func TestPendingPageRendersNothing(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 1)

	tasks := c.Dispatch(NavigatePage{Direction: Next})
	s := c.Snapshot()
	assert.True(t, s.PageLoading)
	assert.Empty(t, s.Paragraphs)

	run(c, tasks)
	assert.False(t, c.Snapshot().PageLoading)
}

func TestLockedParagraphNeverExposesText(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 2)

	s := c.Snapshot()
	assertNoLockedText(t, s)
	locked := s.Paragraphs[1]
	require.True(t, locked.IsLocked)
	assert.Empty(t, locked.Text)
	assert.True(t, decimal.RequireFromString("1.5").Equal(locked.UnlockPrice.Decimal))

	// focusing a locked paragraph does not reveal it
	dispatch(c, FocusParagraph{ParagraphID: locked.ID})
	assertNoLockedText(t, c.Snapshot())

	dispatch(c, Reload{})
	assertNoLockedText(t, c.Snapshot())
}

func TestUnlockRefetchesPage(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 2)

	tasks := c.Dispatch(Unlock{ParagraphID: 1022})
	require.Len(t, tasks, 1)
	assert.Empty(t, c.Dispatch(Unlock{ParagraphID: 1022}), "repeat unlock while pending")
	assert.True(t, c.Snapshot().Paragraphs[1].Unlocking)

	fetches := f.calls["ListParagraphs"]
	run(c, tasks)

	assert.Equal(t, fetches+1, f.calls["ListParagraphs"])
	assert.Equal(t, 1, f.calls["UnlockParagraph"])
	p := c.Snapshot().Paragraphs[1]
	assert.False(t, p.IsLocked)
	assert.False(t, p.Unlocking)
	assert.Equal(t, "revealed", p.Text)
}

func TestUnlockIgnoresOpenParagraphs(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 2)

	assert.Empty(t, c.Dispatch(Unlock{ParagraphID: 1021}))
	assert.Empty(t, c.Dispatch(Unlock{ParagraphID: 9999}))
}

func TestChapterSwitchResetsPage(t *testing.T) {
	f := newFakeAPI()
	c, tr := newController(f, "")
	openPage(t, c, f, 10, 3)

	dispatch(c, SelectChapter{ChapterID: 20})
	s := c.Snapshot()
	assert.Equal(t, nav.Position{StoryID: 1, ChapterID: 20, Page: 1}, s.Position)
	assert.Equal(t, "story=1&chapter=20&page=1", s.Location)
	assert.Contains(t, tr.positions, [3]int64{1, 20, 0})
}

func TestGenerationThenNavigate(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 3)

	s := c.Snapshot()
	require.False(t, s.HasNext)
	require.True(t, s.NextGenerates)

	tasks := c.Dispatch(NextPage{})
	require.Len(t, tasks, 1)
	assert.Equal(t, Busy, c.Snapshot().Generation.State)
	assert.Empty(t, c.Dispatch(NextPage{}), "generation already in flight")
	assert.Empty(t, c.Dispatch(GenerateParagraph{}), "generation already in flight")

	// the affordance stays busy until the new page arrives
	follow := c.Apply(tasks[0](context.Background()))
	s = c.Snapshot()
	assert.Equal(t, 4, s.Position.Page)
	assert.Equal(t, Busy, s.Generation.State)

	run(c, follow)
	s = c.Snapshot()
	assert.Equal(t, 4, s.Position.Page)
	assert.Equal(t, Idle, s.Generation.State)
	assert.Equal(t, []int64{1041, 1042}, paragraphIDs(s))
	assert.Equal(t, 1, f.calls["GenerateNextPage"])
}

func TestGenerationFailureKeepsPage(t *testing.T) {
	f := newFakeAPI()
	f.genErr = &api.Error{Op: "generate next page", Kind: api.ErrGeneration, StatusCode: http.StatusInternalServerError}
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 3)

	dispatch(c, NextPage{})
	s := c.Snapshot()
	assert.Equal(t, 3, s.Position.Page)
	assert.Equal(t, Failed, s.Generation.State)
	assert.True(t, errors.Is(s.Generation.Err, api.ErrGeneration))
	assert.True(t, s.Generation.Enabled())
	assert.Equal(t, []int64{1031, 1032}, paragraphIDs(s))

	// manual retry
	f.genErr = nil
	dispatch(c, NextPage{})
	s = c.Snapshot()
	assert.Equal(t, 4, s.Position.Page)
	assert.Equal(t, Idle, s.Generation.State)
}

func TestGenerationAfterNavigationDoesNotMove(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 3)

	gen := c.Dispatch(NextPage{})
	dispatch(c, SelectChapter{ChapterID: 20})
	run(c, gen)

	s := c.Snapshot()
	assert.Equal(t, nav.Position{StoryID: 1, ChapterID: 20, Page: 1}, s.Position)
	assert.Equal(t, Idle, s.Generation.State)
	assert.Equal(t, []int64{2011, 2012}, paragraphIDs(s))
}

func TestGenerateParagraphRefetchesPage(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 20, 1)

	dispatch(c, GenerateParagraph{})
	s := c.Snapshot()
	assert.Equal(t, 1, s.Position.Page)
	assert.Equal(t, Idle, s.Generation.State)
	assert.Equal(t, []int64{2011, 2012, 2013}, paragraphIDs(s))
}

func TestFocusParagraphMarksViewedAndPushesLocation(t *testing.T) {
	f := newFakeAPI()
	c, tr := newController(f, "")
	openPage(t, c, f, 10, 2)
	historyLen := c.Nav().Len()

	dispatch(c, FocusParagraph{ParagraphID: 1022})
	s := c.Snapshot()
	assert.Equal(t, "story=1&chapter=10&page=2&paragraph=1022", s.Location)
	assert.Equal(t, historyLen+1, c.Nav().Len())
	assert.Equal(t, 1, s.Focused())
	assert.True(t, s.Paragraphs[1].Viewed)
	assert.Equal(t, [3]int64{1, 10, 1022}, tr.positions[len(tr.positions)-1])
	require.NotEmpty(t, tr.views)
	last := tr.views[len(tr.views)-1]
	assert.Equal(t, int64(1022), last.Paragraph)
	require.NotNil(t, last.Chapter)
	assert.Equal(t, int64(10), *last.Chapter)

	// refocusing the same paragraph adds no history
	dispatch(c, FocusParagraph{ParagraphID: 1022})
	assert.Equal(t, historyLen+1, c.Nav().Len())
	assert.Equal(t, 1, c.Snapshot().ViewedCount)

	assert.Empty(t, c.Dispatch(FocusParagraph{ParagraphID: 4242}))
}

func TestHydrationCascade(t *testing.T) {
	f := newFakeAPI()
	c, tr := newController(f, "story=1&chapter=10&page=2&paragraph=1021")

	dispatch(c, Hydrate{})
	s := c.Snapshot()
	assert.Equal(t, ModeStoryReading, s.Mode)
	require.NotNil(t, s.Story)
	assert.Equal(t, "The Long Road", s.Story.Title)
	require.NotNil(t, s.Chapter)
	assert.Equal(t, int64(10), s.Chapter.ID)
	assert.Equal(t, []int64{1021, 1022}, paragraphIDs(s))
	assert.Equal(t, 0, s.Focused())
	assert.True(t, tr.viewed[1021])
	assertNoLockedText(t, s)

	// hydration never adds history and keeps the location as given
	assert.Equal(t, 1, c.Nav().Len())
	assert.Equal(t, "story=1&chapter=10&page=2&paragraph=1021", s.Location)
	assert.Equal(t, []int64{1}, tr.loads)
}

func TestHydrationIsDeterministic(t *testing.T) {
	location := "story=1&chapter=20&page=1&paragraph=2012"

	f1 := newFakeAPI()
	c1, _ := newController(f1, location)
	dispatch(c1, Hydrate{})

	f2 := newFakeAPI()
	c2, _ := newController(f2, "")
	openPage(t, c2, f2, 10, 2)
	dispatch(c2, Navigate{Location: location})

	s1, s2 := c1.Snapshot(), c2.Snapshot()
	assert.Equal(t, s1.Position, s2.Position)
	assert.Equal(t, paragraphIDs(s1), paragraphIDs(s2))
	assert.Equal(t, s1.Focused(), s2.Focused())
	assert.Equal(t, s1.Chapter, s2.Chapter)
}

func TestHydrationStopsAtFailedStage(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "story=1&chapter=99&page=1&paragraph=1011")

	dispatch(c, Hydrate{})
	s := c.Snapshot()
	require.NotNil(t, s.Story, "earlier stages are kept")
	assert.Nil(t, s.Chapter)
	assert.Error(t, s.Err)
	assert.Equal(t, 0, f.calls["ListParagraphs"])
	assert.Equal(t, 0, f.calls["GetParagraph"])
	assert.Equal(t, -1, s.Focused())
}

func TestHydrationWithoutChapterFocusesParagraph(t *testing.T) {
	f := newFakeAPI()
	c, tr := newController(f, "story=1&paragraph=1011")

	dispatch(c, Hydrate{})
	assert.True(t, tr.viewed[1011])
	assert.Equal(t, 0, f.calls["ListParagraphs"])
}

func TestHistoryBackAndForwardRehydrate(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 2)

	dispatch(c, HistoryBack{})
	s := c.Snapshot()
	assert.Equal(t, nav.Position{StoryID: 1, ChapterID: 10, Page: 1}, s.Position)
	assert.Equal(t, []int64{1011, 1012}, paragraphIDs(s))

	dispatch(c, HistoryBack{})
	s = c.Snapshot()
	assert.Equal(t, ModeStoryReading, s.Mode)
	assert.Nil(t, s.Chapter)
	assert.Empty(t, s.Paragraphs)

	dispatch(c, HistoryBack{})
	assert.Equal(t, ModeStoryList, c.Snapshot().Mode)
	assert.Empty(t, c.Dispatch(HistoryBack{}))

	dispatch(c, HistoryForward{})
	dispatch(c, HistoryForward{})
	dispatch(c, HistoryForward{})
	s = c.Snapshot()
	assert.Equal(t, nav.Position{StoryID: 1, ChapterID: 10, Page: 2}, s.Position)
	assert.Equal(t, []int64{1021, 1022}, paragraphIDs(s))
	assert.False(t, s.CanHistoryForward)
}

func TestProgressLoadsOncePerSelectionAndNeverMoves(t *testing.T) {
	f := newFakeAPI()
	c, tr := newController(f, "")
	stored := int64(20)
	tr.progress = &models.ReadingProgress{Story: 1, CurrentChapter: &stored}

	openPage(t, c, f, 10, 2)
	dispatch(c, HistoryBack{})
	dispatch(c, SelectChapter{ChapterID: 20})

	assert.Equal(t, []int64{1}, tr.loads)
	s := c.Snapshot()
	assert.Equal(t, 100, s.Percent)

	// stored progress points at chapter 20 but the location decides
	c2, tr2 := newController(newFakeAPI(), "story=1&chapter=10&page=1")
	tr2.progress = tr.progress
	dispatch(c2, Hydrate{})
	assert.Equal(t, int64(10), c2.Snapshot().Position.ChapterID)

	// a new selection loads again
	dispatch(c, Back{})
	dispatch(c, SelectStory{Story: f.stories[0]})
	assert.Equal(t, []int64{1, 1}, tr.loads)
}

func TestBackReturnsToList(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 1)

	dispatch(c, Back{})
	s := c.Snapshot()
	assert.Equal(t, ModeStoryList, s.Mode)
	assert.Equal(t, "", s.Location)
	assert.Nil(t, s.Story)
	assert.Nil(t, s.Chapter)
	assert.Empty(t, s.Chapters)
	assert.Len(t, s.Stories, 2)
}

func TestUnauthorizedRequiresLogin(t *testing.T) {
	f := newFakeAPI()
	f.listErr = &api.Error{Op: "list stories", Kind: api.ErrStatus, StatusCode: http.StatusForbidden}
	c, _ := newController(f, "")

	dispatch(c, Hydrate{})
	s := c.Snapshot()
	assert.True(t, s.AuthRequired)
	assert.Error(t, s.Err)
	assert.False(t, s.StoriesLoading)

	dispatch(c, DismissError{})
	s = c.Snapshot()
	assert.False(t, s.AuthRequired)
	assert.NoError(t, s.Err)
}

func forbidden(op string) error {
	return &api.Error{Op: op, Kind: api.ErrStatus, StatusCode: http.StatusForbidden}
}

func TestFailedStageAfterNavigationIsDiscarded(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "story=1&chapter=99&page=1")

	story := c.Dispatch(Hydrate{})
	require.Len(t, story, 1)
	var held []Result
	for _, task := range c.Apply(story[0](context.Background())) {
		r := task(context.Background())
		if _, ok := r.(chapterLoaded); ok {
			held = append(held, r)
			continue
		}
		run(c, c.Apply(r))
	}
	require.Len(t, held, 1)

	// the reader picks another chapter while chapter 99 is still in flight
	dispatch(c, SelectChapter{ChapterID: 10})
	run(c, c.Apply(held[0]))

	s := c.Snapshot()
	assert.Equal(t, nav.Position{StoryID: 1, ChapterID: 10, Page: 1}, s.Position)
	assert.NoError(t, s.Err)
	assert.Equal(t, []int64{1011, 1012}, paragraphIDs(s))
}

func TestStaleAuthFailuresDoNotRequireLogin(t *testing.T) {
	f := newFakeAPI()
	c, _ := newController(f, "")
	openPage(t, c, f, 10, 2)
	key := c.Snapshot().Position.PageKey()

	require.Len(t, c.Dispatch(Unlock{ParagraphID: 1022}), 1)
	dispatch(c, NextPage{})
	require.Equal(t, 3, c.Snapshot().Position.Page)

	assert.Empty(t, c.Apply(unlocked{paragraphID: 1022, key: key, err: forbidden("unlock paragraph")}))
	assert.Empty(t, c.Apply(chapterLoaded{epoch: c.epoch, id: 20, err: forbidden("get chapter")}))
	assert.Empty(t, c.Apply(paragraphLoaded{epoch: c.epoch, id: 1011, err: forbidden("get paragraph")}))
	assert.Empty(t, c.Apply(storyLoaded{epoch: c.epoch, id: 2, err: forbidden("get story")}))

	s := c.Snapshot()
	assert.False(t, s.AuthRequired)
	assert.NoError(t, s.Err)
	assert.Equal(t, []int64{1031, 1032}, paragraphIDs(s))
}
