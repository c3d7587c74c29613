package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"annotcore/internal/config"
	"annotcore/internal/corpuserr"
	"annotcore/internal/logging"
)

// Progress is the coarse state of a running pass.
type Progress struct {
	Processed int
	Total     int
}

// Percent returns the completion percentage, or -1 when Total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Processed) * 100 / float64(p.Total)
}

// Options controls how a pass runs.
type Options struct {
	// YieldEvery calls runtime.Gosched after this many annotations; zero
	// disables yielding.
	YieldEvery int
	// ProgressBucket is the percentage step between progress log lines.
	ProgressBucket float64
	// OnProgress is called after every annotation.
	OnProgress func(Progress)
	Logger     *slog.Logger
}

// OptionsFromConfig reads the [batch] settings.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	opts := Options{Logger: logger}
	if cfg != nil {
		opts.YieldEvery = cfg.Batch.YieldEvery
		opts.ProgressBucket = cfg.Batch.ProgressBucket
	}
	return opts
}

// runner drives one pass over a list of annotations.
type runner struct {
	pass    string
	opts    Options
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	report  *Report
}

func newRunner(ctx context.Context, pass string, opts Options) (context.Context, *runner) {
	correlationID := uuid.NewString()
	ctx = logging.WithCorrelationID(ctx, correlationID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "batch"))
	return ctx, &runner{
		pass:    pass,
		opts:    opts,
		logger:  logger,
		sampler: logging.NewProgressSampler(opts.ProgressBucket),
		report:  newReport(pass, correlationID),
	}
}

// run calls fn for every annotation ID. fn reports per-annotation problems
// through its error: I/O failures and cancellation end the pass, anything
// else is recorded and skipped.
func (r *runner) run(ctx context.Context, ids []string, fn func(ctx context.Context, annotationID string) error) error {
	start := time.Now()
	r.report.Total = len(ids)
	r.logger.Info("batch pass started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("pass", r.pass),
		logging.Int("total", len(ids)),
	)
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return r.abort(id, err)
		}
		actx := logging.WithAnnotationID(ctx, id)
		if err := fn(actx, id); err != nil {
			if fatal(ctx, err) {
				return r.abort(id, err)
			}
			r.report.addError(id, err)
			logging.WarnWithContext(logging.WithContext(actx, r.logger), "annotation skipped", "batch_annotation_failed",
				logging.String("pass", r.pass),
				logging.Error(err),
				logging.String(logging.FieldImpact, "annotation left unchanged; listed in the report"),
			)
		}
		r.report.Processed = i + 1
		r.progress(Progress{Processed: i + 1, Total: len(ids)})
		if r.opts.YieldEvery > 0 && (i+1)%r.opts.YieldEvery == 0 {
			runtime.Gosched()
		}
	}
	r.report.Finished = time.Now().UTC()
	r.logger.Info("batch pass finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.String("pass", r.pass),
		logging.Int("processed", r.report.Processed),
		logging.Int("changes", r.report.Changed),
		logging.Int("skipped", len(r.report.Problems)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *runner) progress(p Progress) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(p)
	}
	if r.sampler.Sample(p.Processed, p.Total) {
		r.logger.Info("batch progress",
			logging.String("pass", r.pass),
			logging.Int("processed", p.Processed),
			logging.Int("total", p.Total),
			logging.Float64("percent", p.Percent()),
		)
	}
}

func (r *runner) abort(annotationID string, err error) error {
	r.report.Finished = time.Now().UTC()
	logging.ErrorWithContext(r.logger, "batch pass aborted", "batch_aborted",
		logging.String("pass", r.pass),
		logging.String(logging.FieldAnnotationID, annotationID),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the corpus datastore is reachable and not locked"),
	)
	return fmt.Errorf("%s pass stopped at annotation %q: %w", r.pass, annotationID, err)
}

func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return corpuserr.Is(err, corpuserr.KindIO)
}
