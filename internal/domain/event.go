package domain

import (
	"context"
	"time"
)

// RawEvent is one parsed row of the daily trend report.
// Index records the row's position in document order; the final feature
// collection is emitted in ascending Index order regardless of how
// resolution and summarization interleave.
type RawEvent struct {
	Index        int
	LocationText string
	Category     string
	Tone         float64
	ReportDate   time.Time
	Mentions     *int // nil when the report omits the column value
}

// Coordinates is a WGS-84 longitude/latitude pair, in GeoJSON axis order.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the pair lies within WGS-84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// ResolvedLocation is the outcome of resolving one location string.
// Resolved false is the explicit "unresolved" marker; Coordinates and
// PlaceName are meaningless in that case.
type ResolvedLocation struct {
	Coordinates Coordinates
	PlaceName   string
	Source      string // "gazetteer", "remote", or "" when unresolved
	Resolved    bool
}

// EventSummary is a short prose synopsis of one event.
type EventSummary struct {
	Text   string
	Source string // "backend" or "template"
}

// Resolver maps free-text place names to coordinates. Unknown names are an
// expected outcome and yield an unresolved marker, never an error; the error
// return exists only for context cancellation.
type Resolver interface {
	Resolve(ctx context.Context, locationText string) (ResolvedLocation, error)
}

// Generator is the pluggable text-generation capability behind
// summarization. Implementations may be remote APIs or local model servers;
// callers treat them as opaque.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
