// Package summary turns raw events into short natural-language synopses.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/couchcryptid/gdelt-geojson/internal/domain"
	"github.com/couchcryptid/gdelt-geojson/internal/observability"
)

// retryDelay is the pause before the single backend retry.
const retryDelay = 500 * time.Millisecond

var (
	// codeFenceRe strips fenced blocks some models wrap answers in.
	codeFenceRe = regexp.MustCompile("(?s)```[a-z]*\\n?|```")

	// labelPrefixRe strips leading "Summary:"-style labels.
	labelPrefixRe = regexp.MustCompile(`(?i)^\s*(summary|synopsis|answer)\s*:\s*`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Engine produces an EventSummary per RawEvent. Summarization never fails:
// if the backend is down, unset, or keeps erroring after one retry, the
// engine falls back to a deterministic template built from the event fields.
type Engine struct {
	backend domain.Generator // nil = template-only mode
	maxLen  int              // rune limit for the summary text
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewEngine creates a summary engine. Pass a nil backend to run template-only.
func NewEngine(backend domain.Generator, maxLen int, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		backend: backend,
		maxLen:  maxLen,
		metrics: metrics,
		logger:  logger,
	}
}

// Summarize returns a non-empty summary for the event. The RawEvent is never
// mutated.
func (e *Engine) Summarize(ctx context.Context, ev domain.RawEvent) domain.EventSummary {
	if e.backend == nil {
		e.metrics.Summaries.WithLabelValues("template").Inc()
		return domain.EventSummary{Text: e.template(ev), Source: "template"}
	}

	text, err := e.generateWithRetry(ctx, ev)
	if err != nil {
		e.logger.Warn("summary backend unavailable, using template",
			"location", ev.LocationText,
			"category", ev.Category,
			"error", err,
		)
		e.metrics.Summaries.WithLabelValues("template").Inc()
		return domain.EventSummary{Text: e.template(ev), Source: "template"}
	}

	e.metrics.Summaries.WithLabelValues("backend").Inc()
	return domain.EventSummary{Text: text, Source: "backend"}
}

// generateWithRetry calls the backend, retrying once after a short pause.
// A sanitized-to-empty response counts as a failure.
func (e *Engine) generateWithRetry(ctx context.Context, ev domain.RawEvent) (string, error) {
	prompt := buildPrompt(ev)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			e.metrics.SummaryRetries.Inc()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-domain.Clock().After(retryDelay):
			}
		}

		start := domain.Clock().Now()
		raw, err := e.backend.Generate(ctx, prompt)
		e.metrics.SummaryDuration.Observe(domain.Clock().Since(start).Seconds())
		if err != nil {
			lastErr = fmt.Errorf("%w: %w", domain.ErrSummaryUnavailable, err)
			if ctx.Err() != nil {
				return "", lastErr
			}
			continue
		}

		text := e.sanitize(raw)
		if text == "" {
			lastErr = fmt.Errorf("%w: backend returned empty text", domain.ErrSummaryUnavailable)
			continue
		}
		return text, nil
	}
	return "", lastErr
}

// buildPrompt constructs a bounded prompt from the event fields. Location
// text is report-controlled, so it is clipped defensively.
func buildPrompt(ev domain.RawEvent) string {
	location := truncateRunes(ev.LocationText, 120)
	var b strings.Builder
	fmt.Fprintf(&b, "Write a one-sentence summary of this event for a map tooltip.\n")
	fmt.Fprintf(&b, "Event type: %s\n", ev.Category)
	fmt.Fprintf(&b, "Location: %s\n", location)
	fmt.Fprintf(&b, "Date: %s\n", ev.ReportDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Tone score: %.1f (negative is unfavorable, range -10 to 10)\n", ev.Tone)
	if ev.Mentions != nil {
		fmt.Fprintf(&b, "Source mentions: %d\n", *ev.Mentions)
	}
	return b.String()
}

// sanitize strips formatting the backend may add and enforces the length
// limit.
func (e *Engine) sanitize(raw string) string {
	text := codeFenceRe.ReplaceAllString(raw, " ")
	text = labelPrefixRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "`", "")
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	return truncateRunes(text, e.maxLen)
}

// template is the deterministic fallback synopsis.
func (e *Engine) template(ev domain.RawEvent) string {
	text := fmt.Sprintf("%s reported in %s (tone %.1f)", ev.Category, ev.LocationText, ev.Tone)
	return truncateRunes(text, e.maxLen)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
