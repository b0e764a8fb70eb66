// Command validate performs integrity checks on a generated GeoJSON feature
// collection: document shape, geometry ranges, property presence and types,
// and single-day consistency. It is the post-run sanity gate for output
// files before they are handed to map frontends.
//
// Usage:
//
//	go run ./cmd/validate -in events.geojson
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/paulmach/orb"
	orbgeojson "github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/gdelt-geojson/internal/geojson"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	in := flag.String("in", "", "path to the GeoJSON file to validate")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*in))
}

func run(path string) int {
	fmt.Println("=== Feature Collection Integrity Validation ===")
	fmt.Println()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read input: %v\n", err)
		return 1
	}

	fc, err := geojson.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateGeometry(fc),
		validateProperties(fc),
		validateConsistency(fc),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Features: %d\n", len(fc.Features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Geometry ──
// Every feature is a Point within WGS-84 bounds.

func validateGeometry(fc *orbgeojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 1: Geometry (points, ranges)"}

	for i, f := range fc.Features {
		point, ok := f.Geometry.(orb.Point)
		if !ok {
			p.errorf("feature %d: geometry is %T, want Point", i, f.Geometry)
			continue
		}
		lon, lat := point.Lon(), point.Lat()
		if lon < -180 || lon > 180 {
			p.errorf("feature %d: longitude %g out of [-180, 180]", i, lon)
		}
		if lat < -90 || lat > 90 {
			p.errorf("feature %d: latitude %g out of [-90, 90]", i, lat)
		}
		if math.IsNaN(lon) || math.IsNaN(lat) {
			p.errorf("feature %d: NaN coordinate", i)
		}
	}
	return p
}

// ── Phase 2: Properties ──
// Required properties present with the right types; optional ones sane.

func validateProperties(fc *orbgeojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 2: Properties (presence, types)"}

	for i, f := range fc.Features {
		checkRequiredString(p, i, f, "event")
		checkRequiredString(p, i, f, "summary")

		ts, ok := f.Properties["timestamp"].(string)
		if !ok {
			p.errorf("feature %d: timestamp missing or not a string", i)
		} else if _, err := time.Parse("2006-01-02", ts); err != nil {
			p.errorf("feature %d: timestamp %q is not an ISO date", i, ts)
		}

		tone, ok := f.Properties["tone"].(float64)
		if !ok {
			p.errorf("feature %d: tone missing or not a number", i)
		} else if math.IsNaN(tone) {
			p.errorf("feature %d: tone is NaN", i)
		}

		if raw, present := f.Properties["mentions"]; present {
			n, ok := raw.(float64)
			if !ok || n != math.Trunc(n) || n < 0 {
				p.errorf("feature %d: mentions %v is not a non-negative integer", i, raw)
			}
		}
	}
	return p
}

func checkRequiredString(p *phase, i int, f *orbgeojson.Feature, key string) {
	v, ok := f.Properties[key].(string)
	if !ok || v == "" {
		p.errorf("feature %d: %s missing or empty", i, key)
	}
}

// ── Phase 3: Consistency ──
// A collection covers exactly one report date.

func validateConsistency(fc *orbgeojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 3: Consistency (single report date)"}

	dates := map[string]int{}
	for _, f := range fc.Features {
		if ts, ok := f.Properties["timestamp"].(string); ok {
			dates[ts]++
		}
	}
	if len(dates) > 1 {
		p.errorf("collection spans %d distinct dates: %v", len(dates), dates)
	}
	return p
}
