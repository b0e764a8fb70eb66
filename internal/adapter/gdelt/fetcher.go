// Package gdelt retrieves and parses GDELT daily trend reports.
package gdelt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/gdelt-geojson/internal/domain"
	"github.com/couchcryptid/gdelt-geojson/internal/observability"
)

// retentionStart is the GDELT v2 epoch; no reports exist before it.
var retentionStart = time.Date(2015, time.February, 19, 0, 0, 0, 0, time.UTC)

// Fetcher downloads the daily trend report for a calendar date.
type Fetcher struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewFetcher creates a report fetcher. maxAttempts bounds the total number of
// tries for transient failures; baseDelay seeds the exponential backoff.
func NewFetcher(baseURL string, timeout time.Duration, maxAttempts int, baseDelay time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		metrics:     metrics,
		logger:      logger,
	}
}

// Fetch returns the raw report document for the given date.
//
// Dates in the future or before the retention window fail with
// domain.ErrReportNotFound without touching the network, as does an HTTP 404.
// Timeouts and 5xx responses are retried with exponential backoff and jitter;
// exhaustion surfaces a *domain.TransientFetchError. Other client errors are
// *domain.FatalFetchError and are never retried.
func (f *Fetcher) Fetch(ctx context.Context, date time.Time) ([]byte, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	today := domain.Clock().Now().UTC().Truncate(24 * time.Hour)
	if day.After(today) {
		return nil, fmt.Errorf("date %s is in the future: %w", day.Format("2006-01-02"), domain.ErrReportNotFound)
	}
	if day.Before(retentionStart) {
		return nil, fmt.Errorf("date %s predates the retention window: %w", day.Format("2006-01-02"), domain.ErrReportNotFound)
	}

	reportURL := fmt.Sprintf("%s/%s.txt", f.baseURL, day.Format("20060102"))
	if _, err := url.Parse(reportURL); err != nil {
		return nil, &domain.FatalFetchError{Err: fmt.Errorf("malformed report URL: %w", err)}
	}

	delay := f.baseDelay
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		f.metrics.FetchAttempts.Inc()

		body, retryable, err := f.fetchOnce(ctx, reportURL)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err

		f.logger.Warn("transient fetch failure",
			"url", reportURL,
			"attempt", attempt,
			"max_attempts", f.maxAttempts,
			"error", err,
		)

		if attempt == f.maxAttempts {
			break
		}
		f.metrics.FetchRetries.Inc()
		if !sleepWithContext(ctx, withJitter(delay)) {
			return nil, ctx.Err()
		}
		delay *= 2
	}

	return nil, &domain.TransientFetchError{Attempts: f.maxAttempts, Err: lastErr}
}

// fetchOnce performs a single GET. The second return value reports whether
// the failure is eligible for retry.
func (f *Fetcher) fetchOnce(ctx context.Context, reportURL string) ([]byte, bool, error) {
	start := domain.Clock().Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, false, &domain.FatalFetchError{Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		// Network-level failures (timeout, refused, reset) are transient.
		return nil, true, fmt.Errorf("report request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// handled below
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("source returned 404: %w", domain.ErrReportNotFound)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("source returned status %d", resp.StatusCode)
	default:
		return nil, false, &domain.FatalFetchError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status from report source"),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read report body: %w", err)
	}

	f.metrics.FetchDuration.Observe(domain.Clock().Since(start).Seconds())
	return body, false, nil
}

// withJitter spreads retries across [d/2, d) to avoid synchronized storms.
func withJitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
