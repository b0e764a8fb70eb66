// Package geojson builds the output FeatureCollection from enriched events.
package geojson

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/gdelt-geojson/internal/domain"
)

// Entry is one event with its enrichment results, as produced by the
// pipeline's worker pool.
type Entry struct {
	Event    domain.RawEvent
	Location domain.ResolvedLocation
	Summary  domain.EventSummary
}

// Stats reports what assembly kept and what it skipped.
type Stats struct {
	Features   int
	Unresolved int
}

// Assemble builds a FeatureCollection from the entries. Unresolved entries
// are skipped and counted, never emitted with placeholder coordinates.
// Features appear in ascending row order regardless of the slice order the
// worker pool produced. Out-of-range coordinates or empty category/summary
// reaching this point indicate an upstream bug and abort with an
// AssemblyError.
func Assemble(entries []Entry) (*geojson.FeatureCollection, Stats, error) {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Event.Index < ordered[j].Event.Index
	})

	fc := geojson.NewFeatureCollection()
	var stats Stats
	for _, entry := range ordered {
		if !entry.Location.Resolved {
			stats.Unresolved++
			continue
		}
		feature, err := buildFeature(entry)
		if err != nil {
			return nil, Stats{}, err
		}
		fc.Append(feature)
		stats.Features++
	}
	return fc, stats, nil
}

func buildFeature(entry Entry) (*geojson.Feature, error) {
	coords := entry.Location.Coordinates
	if !coords.Valid() {
		return nil, &domain.AssemblyError{
			Index:  entry.Event.Index,
			Reason: fmt.Sprintf("coordinates out of range: lon=%f lat=%f", coords.Lon, coords.Lat),
		}
	}
	if entry.Event.Category == "" {
		return nil, &domain.AssemblyError{Index: entry.Event.Index, Reason: "empty event category"}
	}
	if entry.Summary.Text == "" {
		return nil, &domain.AssemblyError{Index: entry.Event.Index, Reason: "empty summary text"}
	}

	f := geojson.NewFeature(orb.Point{coords.Lon, coords.Lat})
	f.Properties = geojson.Properties{
		"event":     entry.Event.Category,
		"summary":   entry.Summary.Text,
		"timestamp": entry.Event.ReportDate.Format("2006-01-02"),
		"tone":      entry.Event.Tone,
	}
	if entry.Event.Mentions != nil {
		f.Properties["mentions"] = *entry.Event.Mentions
	}
	if entry.Location.PlaceName != "" {
		f.Properties["place"] = entry.Location.PlaceName
	}
	return f, nil
}

// Encode serializes the collection as indented GeoJSON, ready to write to
// disk or publish.
func Encode(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode feature collection: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses GeoJSON back into a collection. Used by the validator and
// round-trip tests.
func Decode(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return fc, nil
}
