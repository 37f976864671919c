package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
	"github.com/couchcryptid/sheet-ladder-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrAllBatchesFailed is returned when a non-empty upload had no successful feature.
var ErrAllBatchesFailed = errors.New("all batches failed")

// FeatureSink accepts batches of features. A nil result, or one with no
// items, with a nil error means the sink accepted the batch without
// reporting per item.
type FeatureSink interface {
	SubmitBatch(ctx context.Context, features []domain.Feature) (*domain.BatchResult, error)
}

// Uploader submits features to a sink in fixed-size chunks, one attempt per
// chunk, and tallies per-feature success.
type Uploader struct {
	sink      FeatureSink
	batchSize int
	observer  domain.Observer
	metrics   *observability.Metrics
	clock     clockwork.Clock
}

// NewUploader creates an Uploader. batchSize must be positive and metrics
// non-nil; a nil observer or clock falls back to a no-op observer and the
// real clock.
func NewUploader(sink FeatureSink, batchSize int, observer domain.Observer, metrics *observability.Metrics, clock clockwork.Clock) (*Uploader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if metrics == nil {
		return nil, errors.New("metrics must not be nil")
	}
	if observer == nil {
		observer = domain.NopObserver{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Uploader{
		sink:      sink,
		batchSize: batchSize,
		observer:  observer,
		metrics:   metrics,
		clock:     clock,
	}, nil
}

// BatchSize returns the configured chunk size.
func (u *Uploader) BatchSize() int {
	return u.batchSize
}

// Upload submits features chunk by chunk in order. A chunk whose submission
// errors counts entirely as failed and the upload moves on. If no feature of
// a non-empty input succeeded, the outcome is returned with
// ErrAllBatchesFailed. Cancelling ctx aborts the upload and discards the counts.
func (u *Uploader) Upload(ctx context.Context, features []domain.Feature) (domain.UploadOutcome, error) {
	out := domain.UploadOutcome{Total: len(features)}

	for i, chunk := range Chunks(features, u.batchSize) {
		if err := ctx.Err(); err != nil {
			return domain.UploadOutcome{}, err
		}
		report := u.submit(ctx, i, i*u.batchSize, chunk)
		out.Succeeded += report.Succeeded
		out.Failed += report.Failed
		out.Batches++
		u.observer.BatchUploaded(report)
	}
	if err := ctx.Err(); err != nil {
		return domain.UploadOutcome{}, err
	}

	if out.Total > 0 && out.Succeeded == 0 {
		return out, ErrAllBatchesFailed
	}
	return out, nil
}

func (u *Uploader) submit(ctx context.Context, index, offset int, chunk []domain.Feature) domain.BatchReport {
	report := domain.BatchReport{Index: index, Offset: offset, Size: len(chunk)}

	start := u.clock.Now()
	result, err := u.sink.SubmitBatch(ctx, chunk)
	u.metrics.BatchDuration.Observe(u.clock.Since(start).Seconds())

	switch {
	case err != nil:
		report.Failed = len(chunk)
		report.Err = err
	case result == nil || len(result.Items) == 0:
		report.Succeeded = len(chunk)
	default:
		// Items the sink did not report on count as failed.
		report.Succeeded = min(result.Succeeded(), len(chunk))
		report.Failed = len(chunk) - report.Succeeded
	}
	return report
}

// Chunks splits items into consecutive slices of at most size elements. The
// slices share the backing array of items.
func Chunks[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
