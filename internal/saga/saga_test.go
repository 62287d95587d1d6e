package saga

import (
	"context"
	"errors"
	"testing"
)

func TestRunAllStepsSucceed(t *testing.T) {
	var order []string
	err := Run(context.Background(), nil,
		Step{Name: "a", Do: func(context.Context) error { order = append(order, "a"); return nil }},
		Step{Name: "b", Do: func(context.Context) error { order = append(order, "b"); return nil }},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v", order)
	}
}

func TestRunCompensatesInReverse(t *testing.T) {
	boom := errors.New("boom")
	var events []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error { events = append(events, name); return nil }
	}

	err := Run(context.Background(), nil,
		Step{Name: "first", Do: record("do-first"), Compensate: record("undo-first")},
		Step{Name: "second", Do: record("do-second"), Compensate: record("undo-second")},
		Step{Name: "third", Do: func(context.Context) error { return boom }, Compensate: record("undo-third")},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	want := []string{"do-first", "do-second", "undo-second", "undo-first"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestRunReturnsOriginalErrorWhenCompensationFails(t *testing.T) {
	boom := errors.New("boom")
	undoErr := errors.New("undo failed")

	err := Run(context.Background(), nil,
		Step{
			Name:       "first",
			Do:         func(context.Context) error { return nil },
			Compensate: func(context.Context) error { return undoErr },
		},
		Step{Name: "second", Do: func(context.Context) error { return boom }},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
}

func TestRunSkipsNilCompensations(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), nil,
		Step{Name: "first", Do: func(context.Context) error { return nil }},
		Step{Name: "second", Do: func(context.Context) error { return boom }},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
