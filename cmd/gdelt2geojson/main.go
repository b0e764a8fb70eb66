// Command gdelt2geojson converts one day's geopolitical event trend report
// into a GeoJSON FeatureCollection with per-event summaries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/gdelt-geojson/internal/adapter/gdelt"
	"github.com/couchcryptid/gdelt-geojson/internal/adapter/geocode"
	"github.com/couchcryptid/gdelt-geojson/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/gdelt-geojson/internal/adapter/kafka"
	"github.com/couchcryptid/gdelt-geojson/internal/adapter/llm"
	"github.com/couchcryptid/gdelt-geojson/internal/config"
	"github.com/couchcryptid/gdelt-geojson/internal/domain"
	"github.com/couchcryptid/gdelt-geojson/internal/observability"
	"github.com/couchcryptid/gdelt-geojson/internal/pipeline"
	"github.com/couchcryptid/gdelt-geojson/internal/summary"
)

func main() {
	dateFlag := flag.String("date", "", "report date as YYYY-MM-DD (default: today, UTC)")
	outFlag := flag.String("out", "events.geojson", "output file path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	date, err := parseDate(*dateFlag)
	if err != nil {
		logger.Error("invalid -date flag", "error", err)
		os.Exit(1)
	}

	fetcher := gdelt.NewFetcher(cfg.ReportBaseURL, cfg.FetchTimeout, cfg.FetchMaxAttempts, cfg.FetchBaseDelay, metrics, logger)

	// Remote geocoding is feature-flagged; the built-in gazetteer always runs.
	var remote geocode.RemoteGeocoder
	if cfg.MapboxEnabled {
		remote = geocode.NewMapboxClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		logger.Info("mapbox geocoding enabled", "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled, gazetteer only")
	}
	resolver := geocode.NewResolver(remote, cfg.GeocodeCacheLen, metrics, logger)

	// An empty API key means template-only summaries.
	var backend domain.Generator
	if cfg.LLMAPIKey != "" {
		backend = llm.NewBackend(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
		logger.Info("summary backend enabled", "model", cfg.LLMModel)
	} else {
		logger.Info("summary backend disabled, template summaries only")
	}
	engine := summary.NewEngine(backend, cfg.SummaryMaxLen, metrics, logger)

	var sink pipeline.FeatureSink
	var writer *kafkaadapter.Writer
	if cfg.SinkEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sink = writer
		logger.Info("feature sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(fetcher, gdelt.Parse, resolver, engine, sink, logger, metrics, cfg.Concurrency, cfg.RunTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("observability server error", "error", err)
			}
		}()
	}

	result, runErr := p.Run(ctx, date, *outFlag)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("observability server shutdown error", "error", err)
		}
		cancel()
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("run failed", "date", date.Format("2006-01-02"), "error", runErr)
		os.Exit(1)
	}

	logger.Info("wrote feature collection",
		"path", *outFlag,
		"features", result.Features,
		"unresolved", result.Unresolved,
		"dropped_rows", result.DroppedRows,
		"fallback_summaries", result.FallbackSummaries,
	)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return domain.Clock().Now().UTC().Truncate(24 * time.Hour), nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD, got %q", s)
	}
	return d.UTC(), nil
}
