package reader

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/justyntemme/tales-t/internal/nav"
	"github.com/justyntemme/tales-t/pkg/models"
)

// Task is a unit of remote work. Tasks run off the UI goroutine and only
// talk to the API; their Result goes back through Apply.
type Task func(ctx context.Context) Result

// Result is the outcome of a Task
type Result interface {
	result()
}

type storiesLoaded struct {
	stories []models.Story
	err     error
}

// storyLoaded, chapterLoaded and paragraphLoaded are the hydration stages.
// They carry the epoch they were issued in and the id they asked for.
type storyLoaded struct {
	epoch uint64
	id    int64
	story *models.Story
	err   error
}

type chapterLoaded struct {
	epoch   uint64
	id      int64
	chapter *models.Chapter
	err     error
}

type paragraphLoaded struct {
	epoch     uint64
	id        int64
	paragraph *models.Paragraph
	err       error
}

type chaptersLoaded struct {
	storyID  int64
	chapters []models.Chapter
	err      error
}

type progressLoaded struct {
	storyID  int64
	progress *models.ReadingProgress
	err      error
}

type pageLoaded struct {
	key  nav.PageKey
	page *models.ParagraphPage
	err  error
}

type generated struct {
	seq    uint64
	kind   GenerationKind
	origin nav.PageKey
	err    error
}

type unlocked struct {
	paragraphID int64
	key         nav.PageKey
	err         error
}

func (storiesLoaded) result()   {}
func (storyLoaded) result()     {}
func (chapterLoaded) result()   {}
func (paragraphLoaded) result() {}
func (chaptersLoaded) result()  {}
func (progressLoaded) result()  {}
func (pageLoaded) result()      {}
func (generated) result()       {}
func (unlocked) result()        {}

func (c *Controller) loadStories() Task {
	return func(ctx context.Context) Result {
		stories, err := c.api.ListStories(ctx)
		return storiesLoaded{stories: stories, err: err}
	}
}

func (c *Controller) fetchStory(epoch uint64, id int64) Task {
	return func(ctx context.Context) Result {
		story, err := c.api.GetStory(ctx, id)
		return storyLoaded{epoch: epoch, id: id, story: story, err: err}
	}
}

func (c *Controller) fetchChapter(epoch uint64, id int64) Task {
	return func(ctx context.Context) Result {
		chapter, err := c.api.GetChapter(ctx, id)
		return chapterLoaded{epoch: epoch, id: id, chapter: chapter, err: err}
	}
}

func (c *Controller) fetchParagraph(epoch uint64, id int64) Task {
	return func(ctx context.Context) Result {
		p, err := c.api.GetParagraph(ctx, id)
		return paragraphLoaded{epoch: epoch, id: id, paragraph: p, err: err}
	}
}

func (c *Controller) fetchChapters(storyID int64) Task {
	return func(ctx context.Context) Result {
		chapters, err := c.api.ListChapters(ctx, storyID)
		return chaptersLoaded{storyID: storyID, chapters: chapters, err: err}
	}
}

func (c *Controller) loadProgress(storyID int64) Task {
	return func(ctx context.Context) Result {
		p, err := c.progress.LoadProgress(ctx, storyID)
		return progressLoaded{storyID: storyID, progress: p, err: err}
	}
}

func (c *Controller) fetchPage(key nav.PageKey) Task {
	return func(ctx context.Context) Result {
		page, err := c.api.ListParagraphs(ctx, key.ChapterID, key.Page)
		return pageLoaded{key: key, page: page, err: err}
	}
}

func (c *Controller) generate(seq uint64, kind GenerationKind, origin nav.PageKey) Task {
	return func(ctx context.Context) Result {
		var err error
		switch kind {
		case KindPage:
			_, err = c.api.GenerateNextPage(ctx, origin.ChapterID, origin.Page)
		case KindParagraph:
			_, err = c.api.GenerateNextParagraph(ctx, origin.ChapterID, origin.Page)
		}
		return generated{seq: seq, kind: kind, origin: origin, err: err}
	}
}

func (c *Controller) unlock(id int64, price decimal.Decimal, key nav.PageKey) Task {
	return func(ctx context.Context) Result {
		err := c.api.UnlockParagraph(ctx, id, price)
		return unlocked{paragraphID: id, key: key, err: err}
	}
}
