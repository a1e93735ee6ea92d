// Package progress tracks which paragraphs a reader has seen and reports
// reading progress to the server in the background.
package progress

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/justyntemme/tales-t/pkg/models"
)

// Defaults for the background writer
const (
	DefaultQueueSize    = 64
	DefaultRate         = 10
	DefaultBurst        = 5
	DefaultWriteTimeout = 10 * time.Second
)

// Remote is the part of the story API the tracker talks to
type Remote interface {
	MarkViewed(ctx context.Context, event models.ViewEvent) error
	PostReadingProgress(ctx context.Context, update models.ProgressUpdate) error
	GetReadingProgress(ctx context.Context, storyID int64) ([]models.ReadingProgress, error)
}

type write struct {
	op string
	do func(ctx context.Context) error
}

// Tracker holds the local viewed set and a queue of progress writes. Writes
// are best effort: failures are logged and never surface to the caller.
type Tracker struct {
	remote  Remote
	logger  *slog.Logger
	limiter *rate.Limiter
	timeout time.Duration

	mu     sync.Mutex
	viewed map[int64]struct{}

	qmu     sync.Mutex
	queue   chan write
	started bool
	closed  bool
	done    chan struct{}
}

// Option configures a Tracker
type Option func(*Tracker)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRate paces remote writes to r per second with the given burst
func WithRate(r rate.Limit, burst int) Option {
	return func(t *Tracker) {
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(r, burst)
	}
}

// WithQueueSize sets how many writes may wait before new ones are dropped
func WithQueueSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.queue = make(chan write, n)
		}
	}
}

// WithWriteTimeout bounds each remote write
func WithWriteTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// New creates a tracker. Call Start to begin sending writes.
func New(remote Remote, opts ...Option) *Tracker {
	t := &Tracker{
		remote:  remote,
		logger:  slog.Default(),
		limiter: rate.NewLimiter(DefaultRate, DefaultBurst),
		timeout: DefaultWriteTimeout,
		viewed:  make(map[int64]struct{}),
		queue:   make(chan write, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start runs the writer until ctx is cancelled or Close is called
func (t *Tracker) Start(ctx context.Context) {
	t.qmu.Lock()
	defer t.qmu.Unlock()
	if t.started || t.closed {
		return
	}
	t.started = true
	go t.run(ctx)
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)
	for w := range t.queue {
		if err := t.limiter.Wait(ctx); err != nil {
			t.logger.Warn("progress write dropped", slog.String("op", w.op), slog.Any("error", err))
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, t.timeout)
		err := w.do(wctx)
		cancel()
		if err != nil {
			t.logger.Warn("progress write failed", slog.String("op", w.op), slog.Any("error", err))
			continue
		}
		t.logger.Debug("progress write sent", slog.String("op", w.op))
	}
}

// Close stops accepting writes and waits for queued ones to be sent
func (t *Tracker) Close() {
	t.qmu.Lock()
	if t.closed {
		t.qmu.Unlock()
		return
	}
	t.closed = true
	started := t.started
	close(t.queue)
	t.qmu.Unlock()

	if started {
		<-t.done
	}
}

func (t *Tracker) enqueue(w write) {
	t.qmu.Lock()
	defer t.qmu.Unlock()
	if t.closed {
		t.logger.Debug("progress write after close", slog.String("op", w.op))
		return
	}
	select {
	case t.queue <- w:
	default:
		t.logger.Warn("progress queue full, write dropped", slog.String("op", w.op))
	}
}

// MarkViewed records a view locally and queues the server write. It reports
// whether the paragraph was newly added to the viewed set. The write is sent
// even for an already-viewed paragraph.
func (t *Tracker) MarkViewed(event models.ViewEvent) bool {
	t.mu.Lock()
	_, seen := t.viewed[event.Paragraph]
	t.viewed[event.Paragraph] = struct{}{}
	t.mu.Unlock()

	t.enqueue(write{
		op: "mark_viewed",
		do: func(ctx context.Context) error {
			return t.remote.MarkViewed(ctx, event)
		},
	})
	return !seen
}

// RecordPosition queues a reading-progress upsert for the story. Zero chapter
// or paragraph ids are sent as null.
func (t *Tracker) RecordPosition(storyID, chapterID, paragraphID int64) {
	update := models.ProgressUpdate{
		Story:            storyID,
		CurrentChapter:   models.OptionalID(chapterID),
		CurrentParagraph: models.OptionalID(paragraphID),
	}
	t.enqueue(write{
		op: "record_position",
		do: func(ctx context.Context) error {
			return t.remote.PostReadingProgress(ctx, update)
		},
	})
}

// LoadProgress fetches the stored progress for a story and merges its viewed
// paragraphs into the local set. It returns nil when the server has no record.
func (t *Tracker) LoadProgress(ctx context.Context, storyID int64) (*models.ReadingProgress, error) {
	records, err := t.remote.GetReadingProgress(ctx, storyID)
	if err != nil {
		return nil, err
	}

	var found *models.ReadingProgress
	t.mu.Lock()
	for i := range records {
		rec := records[i]
		if rec.Story != 0 && rec.Story != storyID {
			continue
		}
		for _, id := range rec.ViewedParagraphs {
			t.viewed[id] = struct{}{}
		}
		if found == nil {
			found = &rec
		}
	}
	t.mu.Unlock()

	return found, nil
}

// Viewed reports whether a paragraph has been seen
func (t *Tracker) Viewed(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.viewed[id]
	return ok
}

// Len returns the number of distinct viewed paragraphs
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.viewed)
}

// IDs returns the viewed paragraph ids in ascending order
func (t *Tracker) IDs() []int64 {
	t.mu.Lock()
	ids := make([]int64, 0, len(t.viewed))
	for id := range t.viewed {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
