package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/couchcryptid/sheet-ladder-etl/internal/adapter/arcgis"
	"github.com/couchcryptid/sheet-ladder-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/sheet-ladder-etl/internal/adapter/kafka"
	"github.com/couchcryptid/sheet-ladder-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/sheet-ladder-etl/internal/adapter/sheets"
	"github.com/couchcryptid/sheet-ladder-etl/internal/config"
	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
	"github.com/couchcryptid/sheet-ladder-etl/internal/observability"
	"github.com/couchcryptid/sheet-ladder-etl/internal/pipeline"
	"github.com/google/uuid"
)

const pushJob = "sheet-ladder-etl"

// run performs one load → expand → convert → upload pass, or lists the layer
// fields when listFields is set.
func run(ctx context.Context, cfg *config.Config, listFields bool, stdout, stderr io.Writer) error {
	logger, closeLog, err := newLogger(cfg, stderr)
	if err != nil {
		return &configError{err: err}
	}
	defer closeLog()

	if listFields {
		return listLayerFields(ctx, cfg, logger, stdout)
	}

	runID := uuid.NewString()
	reg := observability.NewRegistry()
	metrics := observability.NewMetricsWith(reg)

	ref, err := sheets.ParseURL(cfg.SheetURL)
	if err != nil {
		return &pipeline.StageError{Stage: pipeline.StageSource, Err: err}
	}
	schema := domain.NewSchema(cfg.ValueColumnPrefix)
	source := sheets.NewClient(ref, schema, cfg.SheetBaseURL, cfg.SheetTimeout, logger)

	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	}

	var uploader *pipeline.Uploader
	if !cfg.DryRun {
		sink, closeSink, err := openSink(ctx, cfg, runID, logger)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &pipeline.StageError{Stage: pipeline.StageSink, Err: err}
		}
		defer closeSink()

		uploader, err = pipeline.NewUploader(sink, cfg.BatchSize, observability.NewRunObserver(logger, metrics), metrics, nil)
		if err != nil {
			return &configError{err: err}
		}
	}

	runner := pipeline.NewRunner(source, uploader, pipeline.Options{
		RunID:       runID,
		ValueFields: schema.ValueColumns,
		DryRun:      cfg.DryRun,
		Geocoder:    geocoder,
	}, logger, metrics, nil)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, runner, reg, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	sum, runErr := runner.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := observability.Push(pushCtx, cfg.PushgatewayURL, pushJob, runID, reg); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
		cancel()
	}

	if runErr == nil || errors.Is(runErr, pipeline.ErrAllBatchesFailed) {
		printSummary(stdout, sum)
	}
	return runErr
}

// openSink builds the configured feature sink and a function releasing it.
func openSink(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger) (pipeline.FeatureSink, func(), error) {
	switch cfg.Sink {
	case config.SinkKafka:
		w := kafkaadapter.NewWriter(cfg, runID, logger)
		logger.Info("publishing to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
		return w, func() {
			if err := w.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}, nil
	case config.SinkArcGIS:
		client := arcgis.NewClient(cfg.ArcGISPortalURL, cfg.ArcGISToken, cfg.ArcGISTimeout, logger)
		layer, err := client.ResolveLayer(ctx, cfg.ArcGISItemID, cfg.ArcGISLayerIndex)
		if err != nil {
			return nil, nil, err
		}
		return layer, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

func listLayerFields(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	client := arcgis.NewClient(cfg.ArcGISPortalURL, cfg.ArcGISToken, cfg.ArcGISTimeout, logger)
	layer, err := client.ResolveLayer(ctx, cfg.ArcGISItemID, cfg.ArcGISLayerIndex)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &pipeline.StageError{Stage: pipeline.StageSink, Err: err}
	}
	return printFields(stdout, layer.Info())
}

// newLogger writes to stderr and, when LOG_FILE is set, appends to that file too.
func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return observability.NewLogger(cfg.LogLevel, cfg.LogFormat, stderr), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, io.MultiWriter(stderr, f))
	return logger, func() { _ = f.Close() }, nil
}
