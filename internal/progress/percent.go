package progress

import "github.com/justyntemme/tales-t/pkg/models"

// Percent estimates how far through a story the reader is: the share of the
// story's chapters, in chapter order, up to and including the chapter of the
// stored progress. Without progress, chapters, or a known current chapter it
// returns 0.
func Percent(p *models.ReadingProgress, chapters []models.Chapter) int {
	if p == nil || p.CurrentChapter == nil || len(chapters) == 0 {
		return 0
	}

	ordered := append([]models.Chapter(nil), chapters...)
	models.SortChapters(ordered)
	for i, ch := range ordered {
		if ch.ID == *p.CurrentChapter {
			return (i + 1) * 100 / len(ordered)
		}
	}
	return 0
}
