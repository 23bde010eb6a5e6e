package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
)

// ErrInvalidStartURL is returned when the start URL is not an absolute
// http or https URL.
var ErrInvalidStartURL = errors.New("invalid start URL: must be an absolute http or https URL")

// State is a stage of a crawl.
type State int

const (
	// StateSeeding means the registry is still empty.
	StateSeeding State = iota
	// StateCrawling means at least one fetch is pending or in flight.
	StateCrawling
	// StateDraining means a completion left the scheduler idle and the
	// driver is confirming that no work remains.
	StateDraining
	// StateDone is terminal: every registered URL has an outcome.
	StateDone
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateSeeding:
		return "seeding"
	case StateCrawling:
		return "crawling"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Checker crawls a site from one start URL and checks every reference it
// can reach. Each call to Run is an independent crawl with its own
// registry, scheduler and tally.
type Checker struct {
	start          string
	fetcher        Fetcher
	parser         DocumentParser
	concurrency    int
	rateLimit      float64
	ignorePatterns []string
	progress       io.Writer
	logger         *slog.Logger
	observe        func(State)
}

// Option configures a Checker.
type Option func(*Checker)

// WithConcurrency sets the maximum number of in-flight fetches.
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		c.concurrency = n
	}
}

// WithFetcher replaces the default HTTPFetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Checker) {
		c.fetcher = f
	}
}

// WithParser replaces the default HTMLParser.
func WithParser(p DocumentParser) Option {
	return func(c *Checker) {
		c.parser = p
	}
}

// WithRateLimit caps requests per second. Zero means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *Checker) {
		c.rateLimit = perSecond
	}
}

// WithIgnorePatterns skips references whose path matches any glob pattern
// (e.g. "/drafts/*", "*.zip"). Skipped references are never registered.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Checker) {
		c.ignorePatterns = patterns
	}
}

// WithProgress writes one mark per completed fetch to w:
// "." for healthy, "!" for broken.
func WithProgress(w io.Writer) Option {
	return func(c *Checker) {
		c.progress = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithStateObserver registers fn to be called on every state transition.
func WithStateObserver(fn func(State)) Option {
	return func(c *Checker) {
		c.observe = fn
	}
}

// NewChecker returns a Checker seeded at startURL.
func NewChecker(startURL string, opts ...Option) (*Checker, error) {
	u, err := url.Parse(startURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}
	start, _ := Normalize(startURL)

	c := &Checker{
		start:       start,
		parser:      HTMLParser{},
		concurrency: DefaultConcurrency,
		progress:    io.Discard,
		logger:      slog.Default(),
		observe:     func(State) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher()
	}
	return c, nil
}

// StartURL returns the normalized start URL. It is also the origin prefix:
// only documents whose URL starts with it are parsed for links.
func (c *Checker) StartURL() string {
	return c.start
}

// Run crawls until every reachable URL has an outcome and returns the
// tally. Individual fetch failures never stop the crawl; they are recorded
// as broken links. Run only returns an error when ctx is cancelled, in
// which case no result is produced.
func (c *Checker) Run(ctx context.Context) (*model.Result, error) {
	cr := &crawl{
		Checker:    c,
		registry:   NewRegistry(),
		classifier: NewClassifier(c.start, c.parser),
		result:     model.NewResult(c.start),
	}
	cr.scheduler = NewScheduler(c.fetcher, c.concurrency,
		WithSchedulerRateLimit(c.rateLimit),
		WithSchedulerProgress(c.progress),
	)
	return cr.run(ctx)
}

// brokenEntry is a failure whose referrers are attached only at Done,
// because more documents may reference the URL after it failed.
type brokenEntry struct {
	url  string
	code string
}

// crawl is the state of one Run. All fields are owned by the goroutine
// executing run; completion handlers execute there too.
type crawl struct {
	*Checker

	state      State
	registry   *Registry
	scheduler  *Scheduler
	classifier *Classifier
	result     *model.Result
	broken     []brokenEntry
}

func (cr *crawl) run(ctx context.Context) (*model.Result, error) {
	cr.enter(StateSeeding)
	seed, _ := cr.registry.Register(cr.start, model.StartReferrer)
	cr.enqueue(ctx, seed)
	cr.enter(StateCrawling)

	for cr.state != StateDone {
		err := cr.scheduler.Next(ctx)
		if err == nil {
			// An outcome caused by cancellation must not be reported.
			err = ctx.Err()
		}
		if err != nil {
			cr.scheduler.Wait()
			return nil, err
		}
		if !cr.scheduler.Idle() {
			continue
		}

		// The handler that just ran may have been the last one, or it may
		// have enqueued new work. Confirm emptiness before finishing.
		cr.enter(StateDraining)
		if cr.scheduler.Quiescent() {
			cr.finish()
			cr.enter(StateDone)
		} else {
			cr.enter(StateCrawling)
		}
	}
	return cr.result, nil
}

func (cr *crawl) enter(s State) {
	if cr.state == s && s != StateSeeding {
		return
	}
	cr.state = s
	cr.logger.Debug("crawl state changed", "start", cr.start, "state", s.String())
	cr.observe(s)
}

func (cr *crawl) enqueue(ctx context.Context, rawURL string) {
	cr.scheduler.Enqueue(ctx, rawURL, func(o model.Outcome) {
		cr.handle(ctx, o)
	})
}

// handle processes one outcome: tally it, then register and enqueue the
// links of crawlable documents. Registration and the enqueue decision for
// a link happen together, so every URL is fetched exactly once.
func (cr *crawl) handle(ctx context.Context, o model.Outcome) {
	verdict, err := cr.classifier.Classify(o)
	if err != nil {
		cr.logger.Warn("document not parsed", "url", o.URL, "error", err)
	}

	if verdict.Healthy {
		cr.result.OK++
	} else {
		cr.result.Broken++
		cr.broken = append(cr.broken, brokenEntry{url: o.URL, code: o.Code()})
	}
	cr.logger.Debug("fetched",
		"url", o.URL,
		"code", o.Code(),
		"elapsed", o.Elapsed,
		"links", len(verdict.Links),
	)

	// A document references each URL once, however many fragments point at it.
	seen := make(map[string]struct{}, len(verdict.Links))
	for _, link := range verdict.Links {
		if ignored(cr.ignorePatterns, link) {
			continue
		}
		key, ok := Normalize(link)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if normalized, isNew := cr.registry.Register(key, o.URL); isNew {
			cr.enqueue(ctx, normalized)
		}
	}
}

func (cr *crawl) finish() {
	cr.result.Registered = cr.registry.Len()
	cr.result.Duration = time.Since(cr.result.StartedAt)
	for _, b := range cr.broken {
		cr.result.Failures = append(cr.result.Failures, model.BrokenLink{
			URL:       b.url,
			Code:      b.code,
			Referrers: cr.registry.Referrers(b.url),
		})
	}
	cr.logger.Info("crawl finished",
		"start", cr.start,
		"ok", cr.result.OK,
		"broken", cr.result.Broken,
		"registered", cr.result.Registered,
		"elapsed", cr.result.Duration,
	)
}
