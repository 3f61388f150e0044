package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Recommendation data sources.
	RecoCSVPath string
	FixtureDir  string
	DefaultArea string
	CellMeters  float64

	// Legacy backend configuration (feature-flagged via LEGACY_API_URL /
	// LEGACY_API_ENABLED).
	LegacyAPIURL     string
	LegacyAPIEnabled bool
	LegacyAPITimeout time.Duration

	// CORS origins for the SPA.
	AllowedOrigins []string

	// Placeholder login gate. Deliberately a single hardcoded pair; this is
	// display-tool auth, not production auth.
	AuthUser     string
	AuthPassword string
	AuthSecret   string
	AuthRequired bool
	TokenTTL     time.Duration

	// Kafka refresh configuration (feature-flagged via REFRESH_ENABLED).
	KafkaBrokers      []string
	KafkaRefreshTopic string
	KafkaGroupID      string
	RefreshEnabled    bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	legacyTimeout, err := parseDurationEnv("LEGACY_API_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	tokenTTL, err := parseDurationEnv("AUTH_TOKEN_TTL", "12h")
	if err != nil {
		return nil, err
	}

	cellMeters, err := parseFloatEnv("GRID_CELL_METERS", 250)
	if err != nil {
		return nil, err
	}

	legacyURL := strings.TrimRight(os.Getenv("LEGACY_API_URL"), "/")
	legacyEnabled := legacyURL != ""
	if v := os.Getenv("LEGACY_API_ENABLED"); v != "" {
		legacyEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RecoCSVPath: envOrDefault("RECO_CSV_PATH", "data/mock/reco.csv"),
		FixtureDir:  envOrDefault("FIXTURE_DIR", "data/mock"),
		DefaultArea: envOrDefault("DEFAULT_AREA", "seongsu"),
		CellMeters:  cellMeters,

		LegacyAPIURL:     legacyURL,
		LegacyAPIEnabled: legacyEnabled,
		LegacyAPITimeout: legacyTimeout,

		AllowedOrigins: splitList(envOrDefault("ALLOWED_ORIGINS", "http://localhost:5173")),

		AuthUser:     envOrDefault("AUTH_USER", "admin"),
		AuthPassword: envOrDefault("AUTH_PASSWORD", "seoul1234"),
		AuthSecret:   envOrDefault("AUTH_SECRET", "insecure-dev-secret"),
		AuthRequired: os.Getenv("AUTH_REQUIRED") == "true",
		TokenTTL:     tokenTTL,

		KafkaBrokers:      splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRefreshTopic: envOrDefault("KAFKA_REFRESH_TOPIC", "reco-model-output"),
		KafkaGroupID:      envOrDefault("KAFKA_GROUP_ID", "dimming-reco-service"),
		RefreshEnabled:    os.Getenv("REFRESH_ENABLED") == "true",
	}

	if cfg.LegacyAPIEnabled && cfg.LegacyAPIURL == "" {
		return nil, errors.New("LEGACY_API_ENABLED is true but LEGACY_API_URL is not set")
	}
	if cfg.RefreshEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("REFRESH_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.RefreshEnabled && cfg.KafkaRefreshTopic == "" {
		return nil, errors.New("REFRESH_ENABLED is true but KAFKA_REFRESH_TOPIC is empty")
	}
	if cfg.CellMeters <= 0 {
		return nil, errors.New("GRID_CELL_METERS must be positive")
	}
	if cfg.AuthRequired && cfg.AuthSecret == "" {
		return nil, errors.New("AUTH_REQUIRED is true but AUTH_SECRET is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
