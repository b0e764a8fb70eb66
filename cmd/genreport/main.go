// Command genreport generates a synthetic daily trend report in the source
// document format. It exists so the converter can be exercised end to end
// without hitting the real report host, and so fixture documents for tests
// stay reproducible.
//
// Usage:
//
//	go run ./cmd/genreport -date 2024-11-20 -rows 40 -out testdata/20241120.txt
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// knownLocations resolve through the built-in gazetteer; the rest exercise
// the unresolved path.
var knownLocations = []string{
	"Paris, France",
	"Khartoum, Sudan",
	"Kyiv, Ukraine",
	"Geneva, Switzerland",
	"Tripoli, Libya",
	"Tokyo, Japan",
	"New York, United States",
	"Nairobi, Kenya",
	"Baghdad, Iraq",
	"Caracas, Venezuela",
}

var unknownLocations = []string{
	"Unknown Atlantis",
	"Shangri-La Valley",
	"Neo Carthage",
}

var categories = []string{
	"Protest",
	"Armed Conflict",
	"Diplomacy",
	"Humanitarian Crisis",
	"Election",
	"Sanctions",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dateFlag := flag.String("date", "", "report date as YYYY-MM-DD (required)")
	out := flag.String("out", "", "output path (default: stdout)")
	rows := flag.Int("rows", 25, "number of event rows to generate")
	seed := flag.Int64("seed", 1, "random seed for reproducible documents")
	malformed := flag.Bool("malformed", true, "include a few malformed rows the parser must drop")
	flag.Parse()

	if *dateFlag == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -date")
	}
	date, err := time.Parse("2006-01-02", *dateFlag)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}

	doc := generate(date, *rows, *seed, *malformed)

	if *out == "" {
		fmt.Print(doc)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, []byte(doc), 0o600); err != nil {
		return err
	}
	log.Printf("wrote %s (%d rows)", *out, *rows)
	return nil
}

func generate(date time.Time, rows int, seed int64, malformed bool) string {
	rng := rand.New(rand.NewSource(seed))

	var b strings.Builder
	fmt.Fprintf(&b, "GDELT Daily Trend Report\n%s\n\n", date.Format("2 January 2006"))
	b.WriteString("Global coverage of geopolitical events aggregated from worldwide\n")
	b.WriteString("news sources over the preceding 24 hours. Tone scores range from\n")
	b.WriteString("-10 (most negative) to +10 (most positive).\n\n")

	b.WriteString("Location\tEvent Type\tTone\tMentions\n")
	b.WriteString("------------------------------------------------------------\n")

	for i := range rows {
		// Page break roughly every 15 rows, with the header repeated the
		// way the print layout does it.
		if i > 0 && i%15 == 0 {
			fmt.Fprintf(&b, "\n--- Page %d of %d ---\n\n", i/15+1, rows/15+1)
			b.WriteString("Location\tEvent Type\tTone\tMentions\n")
			b.WriteString("------------------------------------------------------------\n")
		}

		location := knownLocations[rng.Intn(len(knownLocations))]
		if rng.Intn(10) == 0 {
			location = unknownLocations[rng.Intn(len(unknownLocations))]
		}
		category := categories[rng.Intn(len(categories))]
		tone := rng.Float64()*20 - 10

		// One row in eight omits the mentions column.
		if rng.Intn(8) == 0 {
			fmt.Fprintf(&b, "%s\t%s\t%.1f\n", location, category, tone)
		} else {
			fmt.Fprintf(&b, "%s\t%s\t%.1f\t%d\n", location, category, tone, rng.Intn(500)+1)
		}
	}

	if malformed {
		b.WriteString("\t\t\t\n")
		b.WriteString("Lagos, Nigeria\tProtest\tn/a\t12\n")
		b.WriteString("Somewhere\t\t1.0\t3\n")
	}

	b.WriteString("\nEnd of report.\n")
	return b.String()
}
