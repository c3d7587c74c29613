// Package preview loads the tiers shown next to an interactive selection.
//
// A Fetcher reads in the background while the caller keeps responding to
// input. Selections change faster than reads finish, so each Bind supersedes
// the previous one: its read is cancelled and its result is never delivered.
package preview

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/logging"
)

// Request names the tiers to load; no levels means every level.
type Request struct {
	AnnotationID string
	SpeakerID    string
	Levels       []string
}

// Result is a finished read. Generation matches the value Bind returned.
type Result struct {
	Request
	Generation uint64
	Group      *annotation.TierGroup
	Err        error
	Elapsed    time.Duration
}

// Fetcher runs one read at a time against a datastore and delivers only the
// result of the newest request.
type Fetcher struct {
	store  datastore.TierStore
	logger *slog.Logger

	// fetchMu serialises datastore access.
	fetchMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	closed  bool
	results chan Result
	wg      sync.WaitGroup
}

// NewFetcher returns a fetcher reading from store.
func NewFetcher(store datastore.TierStore, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		store:   store,
		logger:  logging.NewComponentLogger(logger, "preview"),
		results: make(chan Result, 1),
	}
}

// Results delivers finished reads. At most one result is buffered; a newer
// result replaces an unread older one. The channel is closed by Close.
func (f *Fetcher) Results() <-chan Result { return f.results }

// Bind starts loading req and returns its generation. Any earlier request
// still running is cancelled.
func (f *Fetcher) Bind(ctx context.Context, req Request) (uint64, error) {
	if req.AnnotationID == "" {
		return 0, corpuserr.Validation("preview", "annotation id is required")
	}
	req.Levels = slices.Clone(req.Levels)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, corpuserr.Validation("preview", "fetcher is closed")
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		defer cancel()
		f.fetch(fetchCtx, gen, req)
	}()
	return gen, nil
}

// Generation returns the newest generation handed out by Bind.
func (f *Fetcher) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

func (f *Fetcher) fetch(ctx context.Context, gen uint64, req Request) {
	f.fetchMu.Lock()
	defer f.fetchMu.Unlock()

	if !f.current(gen) {
		return
	}
	start := time.Now()
	group, err := f.store.Tiers(ctx, req.AnnotationID, req.SpeakerID, req.Levels...)
	res := Result{Request: req, Generation: gen, Group: group, Err: err, Elapsed: time.Since(start)}

	logger := f.logger.With(logging.Subject(req.AnnotationID, req.SpeakerID, "")...)
	if err != nil && ctx.Err() == nil {
		logging.WarnWithContext(logger, "preview read failed", "preview_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "selection shows no tiers"),
		)
	}
	f.deliver(res)
	logger.Debug("preview read finished", logging.Duration("elapsed", res.Elapsed))
}

func (f *Fetcher) current(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed && gen == f.gen
}

// deliver drops res unless it is still the newest request.
func (f *Fetcher) deliver(res Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || res.Generation != f.gen {
		return
	}
	select {
	case <-f.results:
	default:
	}
	f.results <- res
}

// Close cancels any running read, waits for it and closes Results.
func (f *Fetcher) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()

	f.wg.Wait()
	close(f.results)
}
