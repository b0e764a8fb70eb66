package gdelt

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/gdelt-geojson/internal/domain"
)

var (
	// pageBreakRe matches print-pagination artifacts ("Page 3 of 12",
	// optionally with surrounding decoration).
	pageBreakRe = regexp.MustCompile(`(?i)^\s*[-=]*\s*page\s+\d+\s+of\s+\d+\s*[-=]*\s*$`)

	// ruleRe matches horizontal rules under headers.
	ruleRe = regexp.MustCompile(`^\s*[-=_]{3,}\s*$`)

	// columnSplitRe splits a row on tabs or runs of two or more spaces.
	columnSplitRe = regexp.MustCompile(`\t+|\s{2,}`)
)

// Scanner yields RawEvents from a report document in document order.
// It is lazy, finite, and non-restartable; re-parsing requires a new Scanner.
//
// Usage follows bufio.Scanner:
//
//	sc := gdelt.NewScanner(data, reportDate)
//	for sc.Scan() {
//	    ev := sc.Event()
//	    ...
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	lines      *bufio.Scanner
	reportDate time.Time

	inTable bool
	current domain.RawEvent
	next    int // index assigned to the next valid row
	lineNum int
	dropped int
	done    bool
}

// maxLineBytes caps a single report line. Real rows are a few hundred bytes;
// the cap only guards against runaway input, and exceeding it surfaces
// through Err instead of silently ending the scan.
const maxLineBytes = 1 << 20

// NewScanner creates a Scanner over a raw report document. reportDate is
// stamped onto every event; the document itself does not repeat the date
// per row.
func NewScanner(data []byte, reportDate time.Time) *Scanner {
	lines := bufio.NewScanner(bytes.NewReader(data))
	lines.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Scanner{
		lines:      lines,
		reportDate: reportDate.UTC().Truncate(24 * time.Hour),
	}
}

// Scan advances to the next valid event row. It returns false at end of
// document; Err then reports whether the document produced any rows at all.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	for s.lines.Scan() {
		s.lineNum++
		line := strings.Trim(s.lines.Text(), "\f\r")

		if strings.TrimSpace(line) == "" || pageBreakRe.MatchString(line) || ruleRe.MatchString(line) {
			continue
		}
		if isHeader(line) {
			// A header opens a region; repeated headers after page
			// breaks are absorbed the same way.
			s.inTable = true
			continue
		}
		if !s.inTable {
			continue // narrative text before the first table
		}

		ev, ok := s.parseRow(line)
		if !ok {
			continue
		}
		ev.Index = s.next
		s.next++
		s.current = ev
		return true
	}
	s.done = true
	return false
}

// Event returns the row produced by the last successful Scan.
func (s *Scanner) Event() domain.RawEvent { return s.current }

// Dropped returns the number of table-shaped rows discarded so far for
// missing required fields or failed coercion.
func (s *Scanner) Dropped() int { return s.dropped }

// Err returns a *domain.ParseError when reading the document failed partway
// through (so later rows were never seen), or when the fully-consumed
// document yielded zero valid rows. It is nil otherwise or while scanning is
// still in progress.
func (s *Scanner) Err() error {
	if err := s.lines.Err(); err != nil {
		return &domain.ParseError{Lines: s.lineNum, Dropped: s.dropped, Err: err}
	}
	if s.done && s.next == 0 {
		return &domain.ParseError{Lines: s.lineNum, Dropped: s.dropped}
	}
	return nil
}

// Parse drains a fresh Scanner over the document and returns all events in
// document order, plus the dropped-row count.
func Parse(data []byte, reportDate time.Time) ([]domain.RawEvent, int, error) {
	sc := NewScanner(data, reportDate)
	var events []domain.RawEvent
	for sc.Scan() {
		events = append(events, sc.Event())
	}
	if err := sc.Err(); err != nil {
		return nil, sc.Dropped(), err
	}
	return events, sc.Dropped(), nil
}

// isHeader reports whether a line is a column header: its first column is
// "Location" and some later column is "Tone", in any casing.
func isHeader(line string) bool {
	fields := columnSplitRe.Split(strings.TrimSpace(line), -1)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "location") {
		return false
	}
	for _, f := range fields[1:] {
		if strings.EqualFold(f, "tone") {
			return true
		}
	}
	return false
}

// parseRow splits one in-table line into an event. A line that does not have
// enough columns ends the current tabular region (narrative text resumes);
// a line with table shape but bad field values is dropped and counted.
func (s *Scanner) parseRow(line string) (domain.RawEvent, bool) {
	fields := columnSplitRe.Split(strings.TrimSpace(line), -1)
	if len(fields) < 3 {
		s.inTable = false
		return domain.RawEvent{}, false
	}

	locationText := strings.TrimSpace(fields[0])
	category := strings.TrimSpace(fields[1])
	if locationText == "" || category == "" {
		s.dropped++
		return domain.RawEvent{}, false
	}
	if _, err := strconv.ParseFloat(category, 64); err == nil {
		// A numeric category means the row is missing a field and the
		// columns shifted left.
		s.dropped++
		return domain.RawEvent{}, false
	}

	tone, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		s.dropped++
		return domain.RawEvent{}, false
	}

	ev := domain.RawEvent{
		LocationText: locationText,
		Category:     category,
		Tone:         tone,
		ReportDate:   s.reportDate,
	}

	if len(fields) >= 4 {
		if n, err := strconv.Atoi(strings.TrimSpace(fields[3])); err == nil && n >= 0 {
			ev.Mentions = &n
		}
		// A malformed mentions value leaves the field unset; mentions is
		// optional and never worth dropping the row over.
	}

	return ev, true
}
