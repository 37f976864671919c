package observability

import (
	"log/slog"

	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
)

// RunObserver implements domain.Observer by logging each report and
// recording it in the run metrics.
type RunObserver struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewRunObserver creates an observer that reports to logger and metrics.
func NewRunObserver(logger *slog.Logger, metrics *Metrics) *RunObserver {
	return &RunObserver{logger: logger, metrics: metrics}
}

func (o *RunObserver) TableExpanded(rowsIn, rowsOut int) {
	o.metrics.RowsExpanded.Add(float64(rowsOut))
	o.logger.Info("table expanded", "rows_in", rowsIn, "rows_out", rowsOut)
}

func (o *RunObserver) FeaturesConverted(converted, skipped int) {
	o.metrics.FeaturesConverted.Add(float64(converted))
	o.metrics.FeaturesSkipped.Add(float64(skipped))
	if skipped > 0 {
		o.logger.Warn("skipped rows with invalid coordinates", "skipped", skipped)
	}
	o.logger.Info("features created", "features", converted)
}

func (o *RunObserver) BatchUploaded(r domain.BatchReport) {
	o.metrics.BatchSize.Observe(float64(r.Size))
	o.metrics.FeaturesUploaded.WithLabelValues("success").Add(float64(r.Succeeded))
	o.metrics.FeaturesUploaded.WithLabelValues("failed").Add(float64(r.Failed))

	switch {
	case r.Err != nil:
		o.metrics.Batches.WithLabelValues("error").Inc()
		o.logger.Error("batch failed",
			"batch", r.Index,
			"from", r.Offset,
			"to", r.Offset+r.Size,
			"error", r.Err,
		)
	case r.Failed > 0:
		o.metrics.Batches.WithLabelValues("partial").Inc()
		o.logger.Warn("batch partially rejected",
			"batch", r.Index,
			"from", r.Offset,
			"to", r.Offset+r.Size,
			"succeeded", r.Succeeded,
			"failed", r.Failed,
		)
	default:
		o.metrics.Batches.WithLabelValues("ok").Inc()
		o.logger.Info("batch added",
			"batch", r.Index,
			"from", r.Offset,
			"to", r.Offset+r.Size,
		)
	}
}
