package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Sink names.
const (
	SinkArcGIS = "arcgis"
	SinkKafka  = "kafka"
)

const (
	defaultBatchSize = 500
	maxBatchSize     = 2000
)

// Config holds all run settings, populated from environment variables.
// CLI flags override individual fields after Load.
type Config struct {
	SheetURL          string
	SheetBaseURL      string
	SheetTimeout      time.Duration
	ValueColumnPrefix string

	BatchSize int
	Sink      string
	DryRun    bool

	ArcGISPortalURL  string
	ArcGISItemID     string
	ArcGISLayerIndex int
	ArcGISToken      string
	ArcGISTimeout    time.Duration

	KafkaBrokers   []string
	KafkaSinkTopic string

	// HTTPAddr serves health and metrics while the run is in progress.
	// Empty disables the server.
	HTTPAddr        string
	PushgatewayURL  string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sheetTimeout, err := parseDuration("SHEET_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	arcgisTimeout, err := parseDuration("ARCGIS_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseInt("BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, err
	}
	layerIndex, err := parseInt("ARCGIS_LAYER_INDEX", 0)
	if err != nil {
		return nil, err
	}

	dryRun := false
	if v := os.Getenv("DRY_RUN"); v != "" {
		dryRun, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid DRY_RUN")
		}
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		SheetURL:          os.Getenv("SHEET_URL"),
		SheetBaseURL:      sharedcfg.EnvOrDefault("SHEET_BASE_URL", "https://docs.google.com"),
		SheetTimeout:      sheetTimeout,
		ValueColumnPrefix: sharedcfg.EnvOrDefault("VALUE_COLUMN_PREFIX", "Значення "),

		BatchSize: batchSize,
		Sink:      sharedcfg.EnvOrDefault("SINK", SinkArcGIS),
		DryRun:    dryRun,

		ArcGISPortalURL:  sharedcfg.EnvOrDefault("ARCGIS_PORTAL_URL", "https://www.arcgis.com"),
		ArcGISItemID:     sharedcfg.EnvOrDefault("ARCGIS_ITEM_ID", "2250ee027e04401dae8c72e09159af25"),
		ArcGISLayerIndex: layerIndex,
		ArcGISToken:      os.Getenv("ARCGIS_TOKEN"),
		ArcGISTimeout:    arcgisTimeout,

		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "ladder-features"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		LogFile:         os.Getenv("LOG_FILE"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field requirements. It is called by
// Load and again after flag overrides.
func (c *Config) Validate() error {
	if c.BatchSize < 1 || c.BatchSize > maxBatchSize {
		return fmt.Errorf("BATCH_SIZE must be between 1 and %d, got %d", maxBatchSize, c.BatchSize)
	}
	if c.ArcGISLayerIndex < 0 {
		return fmt.Errorf("ARCGIS_LAYER_INDEX must not be negative, got %d", c.ArcGISLayerIndex)
	}
	switch c.Sink {
	case SinkArcGIS:
		if c.ArcGISItemID == "" {
			return errors.New("ARCGIS_ITEM_ID is required for the arcgis sink")
		}
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka sink")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required for the kafka sink")
		}
	default:
		return fmt.Errorf("SINK must be %q or %q, got %q", SinkArcGIS, SinkKafka, c.Sink)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
