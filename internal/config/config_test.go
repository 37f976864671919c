package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
	testSheetURL    = "https://docs.google.com/spreadsheets/d/abc123/edit?gid=0#gid=0"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.SheetURL)
	assert.Equal(t, "https://docs.google.com", cfg.SheetBaseURL)
	assert.Equal(t, 30*time.Second, cfg.SheetTimeout)
	assert.Equal(t, "Значення ", cfg.ValueColumnPrefix)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, SinkArcGIS, cfg.Sink)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, "https://www.arcgis.com", cfg.ArcGISPortalURL)
	assert.Equal(t, "2250ee027e04401dae8c72e09159af25", cfg.ArcGISItemID)
	assert.Equal(t, 0, cfg.ArcGISLayerIndex)
	assert.Empty(t, cfg.ArcGISToken)
	assert.Equal(t, 60*time.Second, cfg.ArcGISTimeout)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "ladder-features", cfg.KafkaSinkTopic)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SHEET_URL", testSheetURL)
	t.Setenv("SHEET_BASE_URL", "http://sheets.internal")
	t.Setenv("SHEET_TIMEOUT", "10s")
	t.Setenv("VALUE_COLUMN_PREFIX", "Value ")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("SINK", "kafka")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("ARCGIS_PORTAL_URL", "https://gis.example.org/portal")
	t.Setenv("ARCGIS_ITEM_ID", "item-1")
	t.Setenv("ARCGIS_LAYER_INDEX", "2")
	t.Setenv("ARCGIS_TOKEN", "secret")
	t.Setenv("ARCGIS_TIMEOUT", "2m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "/tmp/ladder.log")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testSheetURL, cfg.SheetURL)
	assert.Equal(t, "http://sheets.internal", cfg.SheetBaseURL)
	assert.Equal(t, 10*time.Second, cfg.SheetTimeout)
	assert.Equal(t, "Value ", cfg.ValueColumnPrefix)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, SinkKafka, cfg.Sink)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "https://gis.example.org/portal", cfg.ArcGISPortalURL)
	assert.Equal(t, "item-1", cfg.ArcGISItemID)
	assert.Equal(t, 2, cfg.ArcGISLayerIndex)
	assert.Equal(t, "secret", cfg.ArcGISToken)
	assert.Equal(t, 2*time.Minute, cfg.ArcGISTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/ladder.log", cfg.LogFile)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"shutdown timeout", "SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-1s"},
		{"sheet timeout", "SHEET_TIMEOUT", "soon"},
		{"arcgis timeout", "ARCGIS_TIMEOUT", "0s"},
		{"mapbox timeout", "MAPBOX_TIMEOUT", "bad"},
		{"batch size not a number", "BATCH_SIZE", "lots"},
		{"batch size zero", "BATCH_SIZE", "0"},
		{"batch size too large", "BATCH_SIZE", "2001"},
		{"layer index", "ARCGIS_LAYER_INDEX", "-1"},
		{"sink", "SINK", "s3"},
		{"dry run", "DRY_RUN", "maybe"},
		{"log format", "LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_BatchSizeBounds(t *testing.T) {
	for _, v := range []string{"1", "2000"} {
		t.Setenv("BATCH_SIZE", v)
		_, err := Load()
		require.NoError(t, err, v)
	}
}

func TestValidate_KafkaSinkRequiresTopic(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Sink = SinkKafka
	cfg.KafkaSinkTopic = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_SINK_TOPIC")
}

func TestValidate_ArcGISSinkRequiresItem(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.ArcGISItemID = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCGIS_ITEM_ID")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
