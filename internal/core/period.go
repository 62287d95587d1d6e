package core

import (
	"fmt"
	"strings"
	"time"
)

// periodSeparator joins the two timestamps in a period's canonical
// string form. Distinct from KeyDelimiter so period keys stay parseable.
const periodSeparator = "__"

const msPerDay = 24 * 60 * 60 * 1000

// Period is a closed calendar interval [Start, End] used to scope metric
// aggregation. Its canonical string form is used only as a store key.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a period, rejecting inverted intervals.
func NewPeriod(start, end time.Time) (Period, error) {
	if start.After(end) {
		return Period{}, fmt.Errorf("period %s..%s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), ErrInvalidPeriod)
	}
	return Period{Start: start, End: end}, nil
}

// String returns the canonical form "<startRFC3339>__<endRFC3339>".
func (p Period) String() string {
	return p.Start.UTC().Format(time.RFC3339) + periodSeparator + p.End.UTC().Format(time.RFC3339)
}

// ParsePeriod is the inverse of String.
func ParsePeriod(s string) (Period, error) {
	parts := strings.SplitN(s, periodSeparator, 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("malformed period %q: %w", s, ErrInvalidPeriod)
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("malformed period start %q: %w", parts[0], ErrInvalidPeriod)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("malformed period end %q: %w", parts[1], ErrInvalidPeriod)
	}
	return NewPeriod(start, end)
}

// Days returns the day count used for per-day averages:
// max(1, floor((end-start)/86400000ms)+1).
func (p Period) Days() int {
	diffMs := p.End.Sub(p.Start).Milliseconds()
	days := int(diffMs/msPerDay) + 1
	if days < 1 {
		return 1
	}
	return days
}

// Contains reports whether t falls inside the closed interval.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}
