package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
	"github.com/couchcryptid/sheet-ladder-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// TableSource loads the normalized input table.
type TableSource interface {
	Load(ctx context.Context) (domain.Table, error)
}

// Stage names the part of a run an error came from.
type Stage string

const (
	StageSource     Stage = "source"
	StageValidation Stage = "validation"
	StageExpansion  Stage = "expansion"
	StageConversion Stage = "conversion"
	StageSink       Stage = "sink"
)

// StageError attributes a run failure to a stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options configure a Runner.
type Options struct {
	RunID       string
	ValueFields []string
	DryRun      bool
	// Geocoder fills missing coordinates before expansion. Nil disables it.
	Geocoder domain.Geocoder
}

// Summary reports what one run did.
type Summary struct {
	RunID        string               `json:"run_id"`
	RowsLoaded   int                  `json:"rows_loaded"`
	RowsGeocoded int                  `json:"rows_geocoded"`
	RowsExpanded int                  `json:"rows_expanded"`
	Features     int                  `json:"features"`
	Skipped      int                  `json:"skipped"`
	Upload       domain.UploadOutcome `json:"upload"`
	DryRun       bool                 `json:"dry_run"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
}

// Duration returns the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Runner orchestrates load → fill → expand → convert → upload.
type Runner struct {
	source   TableSource
	uploader *Uploader
	observer domain.Observer
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	opts     Options
	ready    atomic.Bool

	mu       sync.Mutex
	snapshot Summary
}

// NewRunner creates a Runner. uploader may be nil for dry runs.
func NewRunner(source TableSource, uploader *Uploader, opts Options, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		source:   source,
		uploader: uploader,
		observer: observability.NewRunObserver(logger, metrics),
		logger:   logger.With("run_id", opts.RunID),
		metrics:  metrics,
		clock:    clock,
		opts:     opts,
	}
}

// CheckReadiness returns nil once the source table has been loaded.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("source table not loaded yet")
	}
	return nil
}

// Snapshot returns the summary of the run so far. It is safe to call from
// other goroutines while Run is in progress.
func (r *Runner) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

func (r *Runner) record(sum Summary) {
	r.mu.Lock()
	r.snapshot = sum
	r.mu.Unlock()
}

// Run executes one pass over the source. Failures are returned as
// *StageError, except cancellation, which returns the context error and no
// counts. When every batch failed the summary still carries the outcome.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: r.opts.RunID, DryRun: r.opts.DryRun, StartedAt: r.clock.Now()}
	r.metrics.RunRunning.Set(1)
	defer r.metrics.RunRunning.Set(0)
	if r.opts.Geocoder != nil {
		r.metrics.GeocodeEnabled.Set(1)
	}

	r.record(sum)
	r.logger.Info("run started", "dry_run", r.opts.DryRun, "geocoding", r.opts.Geocoder != nil)

	table, err := r.source.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Summary{}, ctx.Err()
		}
		if errors.Is(err, domain.ErrInvalidTable) {
			return sum, &StageError{Stage: StageValidation, Err: err}
		}
		return sum, &StageError{Stage: StageSource, Err: err}
	}
	sum.RowsLoaded = len(table)
	r.metrics.RowsLoaded.Add(float64(len(table)))
	r.ready.Store(true)
	r.record(sum)
	r.logger.Info("source table loaded", "rows", len(table))

	if r.opts.Geocoder != nil {
		table, sum.RowsGeocoded = domain.FillCoordinates(ctx, table, r.opts.Geocoder, r.logger)
		r.logger.Info("coordinates filled", "rows", sum.RowsGeocoded)
	}

	expanded, err := domain.ExpandTable(table, r.opts.ValueFields, r.observer)
	if err != nil {
		return sum, &StageError{Stage: StageExpansion, Err: err}
	}
	sum.RowsExpanded = len(expanded)

	converted, err := domain.ConvertFeatures(expanded, r.opts.ValueFields, r.observer)
	if err != nil {
		return sum, &StageError{Stage: StageConversion, Err: err}
	}
	sum.Features = len(converted.Features)
	sum.Skipped = converted.Skipped
	r.record(sum)

	if r.opts.DryRun {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		r.logger.Info("dry run, skipping upload", "features", sum.Features)
		sum.FinishedAt = r.clock.Now()
		r.record(sum)
		return sum, nil
	}
	if r.uploader == nil {
		return sum, &StageError{Stage: StageSink, Err: errors.New("no feature sink configured")}
	}

	r.logger.Info("starting batch upload", "features", sum.Features, "batch_size", r.uploader.BatchSize())
	outcome, err := r.uploader.Upload(ctx, converted.Features)
	if err != nil && ctx.Err() != nil {
		return Summary{}, ctx.Err()
	}
	sum.Upload = outcome
	sum.FinishedAt = r.clock.Now()
	r.record(sum)
	r.logger.Info("upload complete",
		"succeeded", outcome.Succeeded,
		"failed", outcome.Failed,
		"total", outcome.Total,
		"duration", sum.Duration(),
	)
	if err != nil {
		return sum, &StageError{Stage: StageSink, Err: err}
	}
	return sum, nil
}
