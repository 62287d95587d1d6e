package core

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewPeriodRejectsInverted(t *testing.T) {
	_, err := NewPeriod(date(2023, 2, 1), date(2023, 1, 1))
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestPeriodDays(t *testing.T) {
	cases := []struct {
		start, end time.Time
		days       int
	}{
		{date(2023, 1, 1), date(2023, 1, 31), 31},
		{date(2023, 1, 1), date(2023, 1, 1), 1},
		{date(2023, 2, 1), date(2023, 2, 28), 28},
		// Sub-day interval still counts as one day.
		{date(2023, 1, 1), date(2023, 1, 1).Add(6 * time.Hour), 1},
		{date(2023, 1, 1), date(2023, 1, 2).Add(-time.Millisecond), 1},
		{date(2023, 1, 1), date(2023, 1, 2), 2},
	}
	for _, tc := range cases {
		p, err := NewPeriod(tc.start, tc.end)
		if err != nil {
			t.Fatalf("NewPeriod(%v, %v): %v", tc.start, tc.end, err)
		}
		if got := p.Days(); got != tc.days {
			t.Fatalf("Days(%v..%v) = %d, want %d", tc.start, tc.end, got, tc.days)
		}
	}
}

func TestPeriodStringRoundTrip(t *testing.T) {
	p, _ := NewPeriod(date(2023, 3, 1), date(2023, 3, 31))
	got, err := ParsePeriod(p.String())
	if err != nil {
		t.Fatalf("ParsePeriod(%q): %v", p.String(), err)
	}
	if !got.Start.Equal(p.Start) || !got.End.Equal(p.End) {
		t.Fatalf("round trip mismatch: %v vs %v", got, p)
	}

	if _, err := ParsePeriod("garbage"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod for garbage, got %v", err)
	}
}

func TestPeriodContainsIsInclusive(t *testing.T) {
	p, _ := NewPeriod(date(2023, 1, 10), date(2023, 1, 20))
	for _, tt := range []struct {
		t  time.Time
		in bool
	}{
		{date(2023, 1, 10), true},
		{date(2023, 1, 20), true},
		{date(2023, 1, 15), true},
		{date(2023, 1, 9), false},
		{date(2023, 1, 21), false},
	} {
		if got := p.Contains(tt.t); got != tt.in {
			t.Fatalf("Contains(%v) = %v, want %v", tt.t, got, tt.in)
		}
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	good := LedgerEntry{TxID: "tx1", Amount: 12.5, Date: date(2023, 1, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	for name, e := range map[string]LedgerEntry{
		"negative amount": {TxID: "tx1", Amount: -1, Date: date(2023, 1, 1)},
		"zero date":       {TxID: "tx1", Amount: 1},
		"bad tx id":       {TxID: "a:b", Amount: 1, Date: date(2023, 1, 1)},
	} {
		if err := e.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
