package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/nao1215/linkcheck/internal/model"
)

// DefaultConcurrency is the number of fetches allowed in flight at once.
const DefaultConcurrency = 5

// Progress marks written once per completed fetch.
const (
	healthyMark = "."
	brokenMark  = "!"
)

// errSchedulerIdle is returned by Next when nothing is pending or in flight,
// so waiting would block forever.
var errSchedulerIdle = errors.New("scheduler has no pending or in-flight fetches")

// Fetcher performs a single fetch. Implementations must be safe for
// concurrent use and must report failures inside the Outcome.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) model.Outcome
}

type job struct {
	url    string
	onDone func(model.Outcome)
}

type completion struct {
	job     job
	outcome model.Outcome
}

// Scheduler bounds the number of in-flight fetches and hands every outcome
// back to a single consumer.
//
// Fetches run on their own goroutines, but completion handlers do not: they
// run inside Next, on the caller's goroutine, one at a time. A URL counts as
// in flight from dispatch until its handler has been started, so InFlight
// never exceeds the limit and a handler that enqueues more work is always
// observed by the next Idle check.
type Scheduler struct {
	fetcher  Fetcher
	limit    int
	limiter  *rate.Limiter
	progress io.Writer
	broken   *color.Color

	pending  []job
	inFlight int

	completions chan completion
	wg          sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerRateLimit limits dispatched fetches to perSecond requests per
// second. Zero or negative disables limiting.
func WithSchedulerRateLimit(perSecond float64) SchedulerOption {
	return func(s *Scheduler) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithSchedulerProgress sets where progress marks are written.
// Nil discards them.
func WithSchedulerProgress(w io.Writer) SchedulerOption {
	return func(s *Scheduler) {
		s.progress = w
	}
}

// NewScheduler returns a scheduler that runs at most limit fetches at once.
// A limit below one falls back to DefaultConcurrency.
func NewScheduler(fetcher Fetcher, limit int, opts ...SchedulerOption) *Scheduler {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	s := &Scheduler{
		fetcher:  fetcher,
		limit:    limit,
		progress: io.Discard,
		broken:   color.New(color.FgRed, color.Bold),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.progress == nil {
		s.progress = io.Discard
	}
	// Every in-flight fetch sends exactly once, so a buffer of limit means
	// fetch goroutines never block, even after the consumer has gone away.
	s.completions = make(chan completion, s.limit)
	return s
}

// Enqueue appends rawURL to the pending queue and dispatches queued work
// while slots are free. onDone is called exactly once, from a later call to
// Next, never from Enqueue itself.
func (s *Scheduler) Enqueue(ctx context.Context, rawURL string, onDone func(model.Outcome)) {
	s.pending = append(s.pending, job{url: rawURL, onDone: onDone})
	s.dispatch(ctx)
}

// dispatch starts pending jobs in FIFO order until the limit is reached.
func (s *Scheduler) dispatch(ctx context.Context) {
	for s.inFlight < s.limit && len(s.pending) > 0 {
		j := s.pending[0]
		s.pending[0] = job{}
		s.pending = s.pending[1:]
		s.inFlight++

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.completions <- completion{job: j, outcome: s.fetch(ctx, j.url)}
		}()
	}
}

func (s *Scheduler) fetch(ctx context.Context, rawURL string) model.Outcome {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return model.Outcome{URL: rawURL, Err: err}
		}
	}
	outcome := s.fetcher.Fetch(ctx, rawURL)
	outcome.URL = rawURL
	return outcome
}

// Next waits for one fetch to complete, writes its progress mark, runs its
// handler and refills free slots from the pending queue. It returns the
// context error if ctx is cancelled first.
func (s *Scheduler) Next(ctx context.Context) error {
	if s.Idle() {
		return errSchedulerIdle
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c := <-s.completions:
		s.inFlight--
		s.mark(c.outcome)
		c.job.onDone(c.outcome)
		s.dispatch(ctx)
		return nil
	}
}

func (s *Scheduler) mark(o model.Outcome) {
	if o.Healthy() {
		fmt.Fprint(s.progress, healthyMark)
		return
	}
	s.broken.Fprint(s.progress, brokenMark) //nolint:errcheck // progress output is best effort
}

// Idle reports whether nothing is pending and no outcome is outstanding.
func (s *Scheduler) Idle() bool {
	return s.inFlight == 0 && len(s.pending) == 0
}

// Quiescent reports whether the scheduler is idle and no completion is
// buffered. It is the confirmation step used before declaring a crawl done.
func (s *Scheduler) Quiescent() bool {
	return s.Idle() && len(s.completions) == 0
}

// InFlight returns the number of dispatched fetches whose outcome has not
// been handled yet.
func (s *Scheduler) InFlight() int {
	return s.inFlight
}

// Pending returns the number of queued, undispatched fetches.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Wait blocks until every dispatched fetch goroutine has returned.
// It is used after cancellation so no goroutine outlives the crawl.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
