package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	orbgeojson "github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gdelt-geojson/internal/adapter/gdelt"
	"github.com/couchcryptid/gdelt-geojson/internal/domain"
	"github.com/couchcryptid/gdelt-geojson/internal/observability"
)

var testDate = time.Date(2024, time.November, 20, 0, 0, 0, 0, time.UTC)

const testReport = `GDELT Daily Trend Report
20 November 2024

Narrative overview text that the parser skips.

Location            Event Type      Tone    Mentions
------------------------------------------------------
Paris, France       Protest         3.2     120
Unknown Atlantis    Conflict        -2.0    15
Khartoum, Sudan     Conflict        -6.1    88
`

// --- stub stages ---

type stubFetcher struct {
	body  []byte
	err   error
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, _ time.Time) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

// stubResolver resolves the names in its table and marks everything else
// unresolved. A nil table with block set simulates a hung remote.
type stubResolver struct {
	table map[string]domain.Coordinates
	block bool
	calls atomic.Int64
}

func (r *stubResolver) Resolve(ctx context.Context, locationText string) (domain.ResolvedLocation, error) {
	r.calls.Add(1)
	if r.block {
		<-ctx.Done()
		return domain.ResolvedLocation{}, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return domain.ResolvedLocation{}, err
	}
	coords, ok := r.table[locationText]
	if !ok {
		return domain.ResolvedLocation{}, nil
	}
	return domain.ResolvedLocation{
		Coordinates: coords,
		PlaceName:   locationText,
		Source:      "gazetteer",
		Resolved:    true,
	}, nil
}

type stubSummarizer struct {
	source string // "backend" or "template"
}

func (s *stubSummarizer) Summarize(_ context.Context, ev domain.RawEvent) domain.EventSummary {
	return domain.EventSummary{
		Text:   fmt.Sprintf("%s in %s", ev.Category, ev.LocationText),
		Source: s.source,
	}
}

type stubSink struct {
	published []*orbgeojson.FeatureCollection
	err       error
}

func (s *stubSink) Publish(_ context.Context, _ time.Time, fc *orbgeojson.FeatureCollection) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, fc)
	return nil
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func worldResolver() *stubResolver {
	return &stubResolver{table: map[string]domain.Coordinates{
		"Paris, France":   {Lon: 2.3522, Lat: 48.8566},
		"Khartoum, Sudan": {Lon: 32.5599, Lat: 15.5007},
	}}
}

func testPipeline(fetcher ReportFetcher, resolver domain.Resolver, summarizer Summarizer, sink FeatureSink) *Pipeline {
	return New(
		fetcher,
		gdelt.Parse,
		resolver,
		summarizer,
		sink,
		discardLogger(),
		observability.NewMetricsForTesting(),
		4,
		5*time.Second,
	)
}

func outFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "events.geojson")
}

// --- tests ---

func TestPipeline_Run_EndToEnd(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(testReport)}
	sink := &stubSink{}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "backend"}, sink)

	out := outFile(t)
	result, err := p.Run(context.Background(), testDate, out)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Features)
	assert.Equal(t, 1, result.Unresolved, "Unknown Atlantis is excluded, not defaulted")
	assert.Equal(t, 0, result.DroppedRows)
	assert.Equal(t, 3, result.Features+result.Unresolved, "every valid row is either emitted or counted unresolved")

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	fc, err := orbgeojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "Protest", first.Properties["event"])
	assert.Equal(t, "Protest in Paris, France", first.Properties["summary"])
	assert.Equal(t, "2024-11-20", first.Properties["timestamp"])
	assert.InDelta(t, 3.2, first.Properties["tone"], 1e-9)
	assert.EqualValues(t, 120, first.Properties["mentions"])

	second := fc.Features[1]
	assert.Equal(t, "Conflict", second.Properties["event"])
	assert.Equal(t, "Khartoum, Sudan", second.Properties["place"])

	require.Len(t, sink.published, 1)
	assert.Len(t, sink.published[0].Features, 2)
}

func TestPipeline_Run_KnownAndUnknownLocations(t *testing.T) {
	report := "Location            Event Type  Tone    Mentions\n" +
		"Paris, France       Protest     3.2     120\n" +
		"Unknown Atlantis    Unrest      -5.0    4\n"
	fetcher := &stubFetcher{body: []byte(report)}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "backend"}, nil)

	out := outFile(t)
	result, err := p.Run(context.Background(), testDate, out)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Features)
	assert.Equal(t, 1, result.Unresolved)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	fc, err := orbgeojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "Protest", f.Properties["event"])
	assert.InDelta(t, 3.2, f.Properties["tone"], 1e-9)

	point := f.Geometry.(orb.Point)
	assert.InDelta(t, 2.3522, point.Lon(), 0.01)
	assert.InDelta(t, 48.8566, point.Lat(), 0.01)
}

func TestPipeline_Run_OutputOrderIsDocumentOrder(t *testing.T) {
	report := "Location  Event Type  Tone\n"
	table := map[string]domain.Coordinates{}
	for i := range 40 {
		name := fmt.Sprintf("City %02d, Nowhere", i)
		report += fmt.Sprintf("%s  Protest  %d.0\n", name, i%10)
		table[name] = domain.Coordinates{Lon: float64(i), Lat: float64(i)}
	}

	fetcher := &stubFetcher{body: []byte(report)}
	resolver := &stubResolver{table: table}
	p := testPipeline(fetcher, resolver, &stubSummarizer{source: "template"}, nil)

	out := outFile(t)
	result, err := p.Run(context.Background(), testDate, out)
	require.NoError(t, err)
	assert.Equal(t, 40, result.Features)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	fc, err := orbgeojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 40)
	for i, f := range fc.Features {
		assert.Equal(t, fmt.Sprintf("City %02d, Nowhere", i), f.Properties["place"])
	}
}

func TestPipeline_Run_FetchErrorLeavesNoFile(t *testing.T) {
	fetcher := &stubFetcher{err: &domain.TransientFetchError{Attempts: 3, Err: errors.New("status 503")}}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "template"}, nil)

	out := outFile(t)
	_, err := p.Run(context.Background(), testDate, out)
	var transient *domain.TransientFetchError
	require.ErrorAs(t, err, &transient)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "failed run must not leave an output file")
}

func TestPipeline_Run_EmptyReportFails(t *testing.T) {
	fetcher := &stubFetcher{body: []byte("nothing tabular here\n")}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "template"}, nil)

	out := outFile(t)
	_, err := p.Run(context.Background(), testDate, out)
	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_Run_FallbackSummariesStillSucceed(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(testReport)}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "template"}, nil)

	result, err := p.Run(context.Background(), testDate, outFile(t))
	require.NoError(t, err, "degraded summaries never fail the run")
	assert.Equal(t, 2, result.FallbackSummaries, "counted per emitted feature")
}

func TestPipeline_Run_SinkErrorFailsRun(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(testReport)}
	sink := &stubSink{err: errors.New("broker unreachable")}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "backend"}, sink)

	_, err := p.Run(context.Background(), testDate, outFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish features")
}

func TestPipeline_Run_NilSinkSkipsPublishing(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(testReport)}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "backend"}, nil)

	_, err := p.Run(context.Background(), testDate, outFile(t))
	require.NoError(t, err)
}

func TestPipeline_Run_TimeoutFailsRun(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(testReport)}
	resolver := &stubResolver{block: true}
	p := New(
		fetcher,
		gdelt.Parse,
		resolver,
		&stubSummarizer{source: "template"},
		nil,
		discardLogger(),
		observability.NewMetricsForTesting(),
		4,
		20*time.Millisecond,
	)

	out := outFile(t)
	_, err := p.Run(context.Background(), testDate, out)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "timed-out run must not leave an output file")
}

func TestPipeline_Run_OverwritesPreviousOutputAtomically(t *testing.T) {
	out := outFile(t)
	require.NoError(t, os.WriteFile(out, []byte("old contents"), 0o644))

	fetcher := &stubFetcher{body: []byte(testReport)}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "backend"}, nil)

	_, err := p.Run(context.Background(), testDate, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old contents")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(out), ".*tmp*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "no temp files left behind")
}

func TestPipeline_Run_FailureKeepsPreviousOutput(t *testing.T) {
	out := outFile(t)
	require.NoError(t, os.WriteFile(out, []byte("previous run"), 0o644))

	fetcher := &stubFetcher{err: domain.ErrReportNotFound}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "template"}, nil)

	_, err := p.Run(context.Background(), testDate, out)
	require.ErrorIs(t, err, domain.ErrReportNotFound)

	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	assert.Equal(t, "previous run", string(data), "earlier output survives a failed run")
}

func TestPipeline_CheckReadiness(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(testReport)}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "backend"}, nil)

	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Run(context.Background(), testDate, outFile(t))
	require.NoError(t, err)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_StatusLifecycle(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(testReport)}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "backend"}, nil)

	assert.Equal(t, RunStatus{State: "idle"}, p.Status())

	_, err := p.Run(context.Background(), testDate, outFile(t))
	require.NoError(t, err)

	status := p.Status()
	assert.Equal(t, "done", status.State)
	assert.Equal(t, "2024-11-20", status.Date)
	assert.Equal(t, 2, status.Features)
	assert.Equal(t, 1, status.Unresolved)
	assert.Empty(t, status.Error)
}

func TestPipeline_StatusRecordsFailure(t *testing.T) {
	fetcher := &stubFetcher{err: domain.ErrReportNotFound}
	p := testPipeline(fetcher, worldResolver(), &stubSummarizer{source: "template"}, nil)

	_, err := p.Run(context.Background(), testDate, outFile(t))
	require.Error(t, err)

	status := p.Status()
	assert.Equal(t, "failed", status.State)
	assert.NotEmpty(t, status.Error)
}

func TestPipeline_Run_ResolvesEveryRowOnce(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(testReport)}
	resolver := worldResolver()
	p := testPipeline(fetcher, resolver, &stubSummarizer{source: "backend"}, nil)

	_, err := p.Run(context.Background(), testDate, outFile(t))
	require.NoError(t, err)
	assert.EqualValues(t, 3, resolver.calls.Load())
}
