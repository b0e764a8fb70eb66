package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
// The target date and output path are CLI flags, not configuration.
type Config struct {
	ReportBaseURL    string
	FetchTimeout     time.Duration
	FetchMaxAttempts int
	FetchBaseDelay   time.Duration

	// Summary backend configuration. An empty LLMAPIKey disables the
	// backend entirely; every summary then comes from the template.
	LLMAPIKey     string
	LLMBaseURL    string // empty = OpenAI default; set for llama.cpp/vLLM servers
	LLMModel      string
	LLMTimeout    time.Duration
	SummaryMaxLen int

	Concurrency int
	RunTimeout  time.Duration

	// Mapbox remote geocoding fallback.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	GeocodeCacheLen int

	// Optional feature sink for downstream consumers.
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Optional observability server; empty disables it.
	HTTPAddr        string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	fetchBaseDelay, err := parseDuration("FETCH_BASE_DELAY", "1s")
	if err != nil {
		return nil, err
	}
	llmTimeout, err := parseDuration("LLM_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	runTimeout, err := parseDuration("RUN_TIMEOUT", "10m")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		ReportBaseURL:    sharedcfg.EnvOrDefault("REPORT_BASE_URL", "https://data.gdeltproject.org/dailytrendreport"),
		FetchTimeout:     fetchTimeout,
		FetchMaxAttempts: parsePositiveInt("FETCH_MAX_ATTEMPTS", 3),
		FetchBaseDelay:   fetchBaseDelay,

		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMBaseURL:    os.Getenv("LLM_BASE_URL"),
		LLMModel:      sharedcfg.EnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:    llmTimeout,
		SummaryMaxLen: parsePositiveInt("SUMMARY_MAX_LEN", 280),

		Concurrency: parsePositiveInt("CONCURRENCY", 8),
		RunTimeout:  runTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		GeocodeCacheLen: parsePositiveInt("GEOCODE_CACHE_SIZE", 1000),

		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "geo-event-features"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.ReportBaseURL == "" {
		return nil, errors.New("REPORT_BASE_URL is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_SINK_TOPIC is empty")
	}

	return cfg, nil
}

// SinkEnabled reports whether the optional Kafka feature sink is configured.
func (c *Config) SinkEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseDuration(name, fallback string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(name, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return d, nil
}

func parsePositiveInt(name string, fallback int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
