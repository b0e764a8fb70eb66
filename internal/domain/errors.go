package domain

import (
	"errors"
	"fmt"
)

// ErrReportNotFound indicates no report exists for the requested date:
// the date is outside the retention window, in the future, or the source
// returned 404. Terminal, not retryable.
var ErrReportNotFound = errors.New("no report published for date")

// ErrSummaryUnavailable indicates the text-generation backend could not
// produce a summary. Recovered locally via the template fallback; it never
// aborts a run.
var ErrSummaryUnavailable = errors.New("summary backend unavailable")

// TransientFetchError wraps a recoverable fetch failure (timeout, 5xx) after
// retries were exhausted. Terminal once surfaced.
type TransientFetchError struct {
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// FatalFetchError wraps a non-recoverable fetch failure (malformed URL,
// unexpected 4xx). Never retried.
type FatalFetchError struct {
	Status int // HTTP status when applicable, 0 otherwise
	Err    error
}

func (e *FatalFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch failed: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

func (e *FatalFetchError) Unwrap() error { return e.Err }

// ParseError indicates a report that produced no usable rows, or one that
// could not be read to the end. An empty report is suspicious, not a valid
// empty pipeline run; a truncated scan would silently lose rows.
type ParseError struct {
	Lines   int   // total lines examined
	Dropped int   // rows that matched the table shape but failed coercion
	Err     error // non-nil when reading the document failed mid-scan
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("report read failed after %d lines: %v", e.Lines, e.Err)
	}
	return fmt.Sprintf("report yielded no valid event rows (%d lines, %d dropped rows)", e.Lines, e.Dropped)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AssemblyError indicates an internal invariant violation while building the
// feature collection, e.g. out-of-range coordinates reaching assembly. It
// signals a bug upstream and is fatal for the run.
type AssemblyError struct {
	Index  int
	Reason string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly invariant violated at row %d: %s", e.Index, e.Reason)
}
