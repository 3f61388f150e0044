package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data/mock/reco.csv", cfg.RecoCSVPath)
	assert.Equal(t, "data/mock", cfg.FixtureDir)
	assert.Equal(t, "seongsu", cfg.DefaultArea)
	assert.Equal(t, 250.0, cfg.CellMeters)
	assert.False(t, cfg.LegacyAPIEnabled)
	assert.Empty(t, cfg.LegacyAPIURL)
	assert.Equal(t, 5*time.Second, cfg.LegacyAPITimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.False(t, cfg.AuthRequired)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "reco-model-output", cfg.KafkaRefreshTopic)
	assert.False(t, cfg.RefreshEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("RECO_CSV_PATH", "/srv/reco.csv")
	t.Setenv("FIXTURE_DIR", "/srv/mock")
	t.Setenv("DEFAULT_AREA", "mapo")
	t.Setenv("GRID_CELL_METERS", "500")
	t.Setenv("LEGACY_API_URL", "http://legacy:8000/")
	t.Setenv("LEGACY_API_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", "https://viewer.example, https://staging.example")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("REFRESH_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/reco.csv", cfg.RecoCSVPath)
	assert.Equal(t, "mapo", cfg.DefaultArea)
	assert.Equal(t, 500.0, cfg.CellMeters)
	assert.True(t, cfg.LegacyAPIEnabled)
	assert.Equal(t, "http://legacy:8000", cfg.LegacyAPIURL, "trailing slash trimmed")
	assert.Equal(t, 2*time.Second, cfg.LegacyAPITimeout)
	assert.Equal(t, []string{"https://viewer.example", "https://staging.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RefreshEnabled)
}

func TestLoad_LegacyFlagWithoutURL(t *testing.T) {
	t.Setenv("LEGACY_API_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEGACY_API_URL")
}

func TestLoad_LegacyURLDisabledExplicitly(t *testing.T) {
	t.Setenv("LEGACY_API_URL", "http://legacy:8000")
	t.Setenv("LEGACY_API_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.LegacyAPIEnabled)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidCellSize(t *testing.T) {
	t.Setenv("GRID_CELL_METERS", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRID_CELL_METERS")
}
