// Package pipeline orchestrates the fetch-parse-enrich-assemble run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	orbgeojson "github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/gdelt-geojson/internal/domain"
	"github.com/couchcryptid/gdelt-geojson/internal/geojson"
	"github.com/couchcryptid/gdelt-geojson/internal/observability"
)

// ReportFetcher downloads the raw report document for a calendar date.
type ReportFetcher interface {
	Fetch(ctx context.Context, date time.Time) ([]byte, error)
}

// ParseFunc turns a raw report document into events in document order,
// returning the dropped-row count alongside.
type ParseFunc func(data []byte, reportDate time.Time) ([]domain.RawEvent, int, error)

// Summarizer produces a synopsis per event. It never fails; degraded
// backends yield template text.
type Summarizer interface {
	Summarize(ctx context.Context, ev domain.RawEvent) domain.EventSummary
}

// FeatureSink publishes the assembled collection to downstream consumers.
type FeatureSink interface {
	Publish(ctx context.Context, reportDate time.Time, fc *orbgeojson.FeatureCollection) error
}

// Result carries the diagnostics counts of one completed run.
type Result struct {
	Features          int
	Unresolved        int
	DroppedRows       int
	FallbackSummaries int
}

// RunStatus is a point-in-time view of the current or last run, served by
// the observability endpoints.
type RunStatus struct {
	Date              string `json:"date,omitempty"`
	State             string `json:"state"` // idle, running, done, failed
	Features          int    `json:"features"`
	Unresolved        int    `json:"unresolved"`
	DroppedRows       int    `json:"dropped_rows"`
	FallbackSummaries int    `json:"fallback_summaries"`
	Error             string `json:"error,omitempty"`
}

// Pipeline runs one report date end to end: fetch, parse, concurrent
// enrichment, ordered assembly, atomic file write, optional sink publish.
type Pipeline struct {
	fetcher    ReportFetcher
	parse      ParseFunc
	resolver   domain.Resolver
	summarizer Summarizer
	sink       FeatureSink // nil disables publishing

	logger  *slog.Logger
	metrics *observability.Metrics

	concurrency int
	runTimeout  time.Duration
	ready       atomic.Bool

	statusMu sync.Mutex
	status   RunStatus
}

// New creates a Pipeline. Pass a nil sink when no downstream topic is
// configured.
func New(
	fetcher ReportFetcher,
	parse ParseFunc,
	resolver domain.Resolver,
	summarizer Summarizer,
	sink FeatureSink,
	logger *slog.Logger,
	metrics *observability.Metrics,
	concurrency int,
	runTimeout time.Duration,
) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		parse:       parse,
		resolver:    resolver,
		summarizer:  summarizer,
		sink:        sink,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
		runTimeout:  runTimeout,
	}
}

// CheckReadiness returns nil once the run has assembled at least one feature.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not assembled any features yet")
	}
	return nil
}

// Status returns a snapshot of the current or last run.
func (p *Pipeline) Status() RunStatus {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	if p.status.State == "" {
		return RunStatus{State: "idle"}
	}
	return p.status
}

func (p *Pipeline) setStatus(s RunStatus) {
	p.statusMu.Lock()
	p.status = s
	p.statusMu.Unlock()
}

// Run processes one report date and writes the collection to outPath. A
// failed run leaves no file behind; the write is temp-file-plus-rename. Any
// returned error means no usable output exists at outPath from this run.
func (p *Pipeline) Run(ctx context.Context, date time.Time, outPath string) (result Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.runTimeout)
	defer cancel()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	start := domain.Clock().Now()
	defer func() {
		p.metrics.RunDuration.Observe(domain.Clock().Since(start).Seconds())
	}()

	dateStr := date.Format("2006-01-02")
	p.setStatus(RunStatus{Date: dateStr, State: "running"})
	defer func() {
		if err != nil {
			p.setStatus(RunStatus{Date: dateStr, State: "failed", Error: err.Error()})
			return
		}
		p.setStatus(RunStatus{
			Date:              dateStr,
			State:             "done",
			Features:          result.Features,
			Unresolved:        result.Unresolved,
			DroppedRows:       result.DroppedRows,
			FallbackSummaries: result.FallbackSummaries,
		})
	}()

	p.logger.Info("run started",
		"date", dateStr,
		"out", outPath,
		"concurrency", p.concurrency,
	)

	body, err := p.fetcher.Fetch(ctx, date)
	if err != nil {
		return Result{}, err
	}

	events, dropped, err := p.parse(body, date)
	if err != nil {
		return Result{}, err
	}
	p.metrics.RowsParsed.Add(float64(len(events)))
	p.metrics.RowsDropped.Add(float64(dropped))
	p.logger.Info("report parsed", "events", len(events), "dropped_rows", dropped)

	entries, err := p.enrich(ctx, events)
	if err != nil {
		return Result{}, err
	}

	fc, stats, err := geojson.Assemble(entries)
	if err != nil {
		return Result{}, err
	}
	p.metrics.FeaturesEmitted.Add(float64(stats.Features))
	if stats.Features > 0 {
		p.ready.Store(true)
	}

	data, err := geojson.Encode(fc)
	if err != nil {
		return Result{}, err
	}
	if err := writeAtomic(outPath, data); err != nil {
		return Result{}, err
	}

	if p.sink != nil {
		if err := p.sink.Publish(ctx, date, fc); err != nil {
			return Result{}, fmt.Errorf("publish features: %w", err)
		}
	}

	result = Result{
		Features:          stats.Features,
		Unresolved:        stats.Unresolved,
		DroppedRows:       dropped,
		FallbackSummaries: countFallbacks(entries),
	}
	p.logger.Info("run complete",
		"features", result.Features,
		"unresolved", result.Unresolved,
		"dropped_rows", result.DroppedRows,
		"fallback_summaries", result.FallbackSummaries,
	)
	return result, nil
}

// enrich resolves and summarizes every event through a bounded worker pool.
// Resolution and summarization for one event run concurrently with each
// other; results land at the event's slot, so pool completion order never
// affects output order.
func (p *Pipeline) enrich(ctx context.Context, events []domain.RawEvent) ([]geojson.Entry, error) {
	entries := make([]geojson.Entry, len(events))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, ev := range events {
		g.Go(func() error {
			summaryCh := make(chan domain.EventSummary, 1)
			go func() {
				summaryCh <- p.summarizer.Summarize(ctx, ev)
			}()

			loc, err := p.resolver.Resolve(ctx, ev.LocationText)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", ev.LocationText, err)
			}

			entries[i] = geojson.Entry{
				Event:    ev,
				Location: loc,
				Summary:  <-summaryCh,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// countFallbacks counts template summaries among entries that will be
// emitted.
func countFallbacks(entries []geojson.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Location.Resolved && e.Summary.Source == "template" {
			n++
		}
	}
	return n
}

// writeAtomic writes data to path via a temp file in the same directory and
// a rename, so readers never observe a partial document.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}
