package category

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/docstore"
	"github.com/madalinagriza/flashfinance/internal/docstore/memory"
)

// faultStore wraps a real store and fails scheduled Put calls,
// simulating write faults in the middle of a multi-document operation.
// failOn maps "collection/key" to the 1-based Put call numbers on that
// key that must fail.
type faultStore struct {
	docstore.Store
	calls  map[string]int
	failOn map[string][]int
}

var errInjected = errors.New("injected write failure")

func newFaultStore(base docstore.Store) *faultStore {
	return &faultStore{Store: base, calls: map[string]int{}, failOn: map[string][]int{}}
}

func (f *faultStore) failPut(collection, key string, callNums ...int) {
	k := collection + "/" + key
	f.failOn[k] = append(f.failOn[k], callNums...)
}

func (f *faultStore) Put(ctx context.Context, collection, key string, doc any) error {
	k := collection + "/" + key
	f.calls[k]++
	for _, n := range f.failOn[k] {
		if n == f.calls[k] {
			return errInjected
		}
	}
	return f.Store.Put(ctx, collection, key, doc)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustPeriod(t *testing.T, start, end time.Time) core.Period {
	t.Helper()
	p, err := core.NewPeriod(start, end)
	if err != nil {
		t.Fatalf("NewPeriod: %v", err)
	}
	return p
}

func newLedgerFixture(t *testing.T) (*Registry, *Ledger, core.Category) {
	t.Helper()
	store := memory.New()
	r := NewRegistry(store, testLogger())
	l := NewLedger(store, testLogger())
	cat, err := r.Create(context.Background(), "alice", "Rent")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return r, l, cat
}

func TestAddTransaction(t *testing.T) {
	ctx := context.Background()
	_, l, cat := newLedgerFixture(t)

	entry := core.LedgerEntry{TxID: "tx1", Amount: 42.5, Date: day(2023, 1, 15)}
	if err := l.AddTransaction(ctx, "alice", cat.ID, entry); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	t.Run("replay of the same tx id is rejected", func(t *testing.T) {
		err := l.AddTransaction(ctx, "alice", cat.ID, entry)
		if !errors.Is(err, core.ErrDuplicateTx) {
			t.Fatalf("expected ErrDuplicateTx, got %v", err)
		}
		entries, err := l.ListTransactions(ctx, "alice", cat.ID)
		if err != nil || len(entries) != 1 {
			t.Fatalf("entries = %+v, %v", entries, err)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		err := l.AddTransaction(ctx, "alice", "nope", entry)
		if !errors.Is(err, core.ErrCategoryNotFound) {
			t.Fatalf("expected ErrCategoryNotFound, got %v", err)
		}
	})

	t.Run("invalid amounts", func(t *testing.T) {
		for _, amount := range []float64{-1, math.NaN(), math.Inf(1)} {
			err := l.AddTransaction(ctx, "alice", cat.ID, core.LedgerEntry{TxID: "tx9", Amount: amount, Date: day(2023, 1, 1)})
			if !errors.Is(err, core.ErrInvalidAmount) {
				t.Fatalf("amount %v: expected ErrInvalidAmount, got %v", amount, err)
			}
		}
	})

	t.Run("trash is created lazily", func(t *testing.T) {
		err := l.AddTransaction(ctx, "alice", core.TrashCategoryID, core.LedgerEntry{TxID: "tx2", Amount: 1, Date: day(2023, 1, 1)})
		if err != nil {
			t.Fatalf("AddTransaction to trash: %v", err)
		}
	})
}

func TestRemoveTransaction(t *testing.T) {
	ctx := context.Background()
	_, l, cat := newLedgerFixture(t)

	if err := l.RemoveTransaction(ctx, "alice", cat.ID, "tx1"); !errors.Is(err, core.ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound, got %v", err)
	}

	if err := l.AddTransaction(ctx, "alice", cat.ID, core.LedgerEntry{TxID: "tx1", Amount: 5, Date: day(2023, 1, 1)}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := l.RemoveTransaction(ctx, "alice", cat.ID, "missing"); !errors.Is(err, core.ErrTxNotFound) {
		t.Fatalf("expected ErrTxNotFound, got %v", err)
	}
	if err := l.RemoveTransaction(ctx, "alice", cat.ID, "tx1"); err != nil {
		t.Fatalf("RemoveTransaction: %v", err)
	}
	entries, err := l.ListTransactions(ctx, "alice", cat.ID)
	if err != nil || len(entries) != 0 {
		t.Fatalf("entries = %+v, %v", entries, err)
	}
}

func TestMoveTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewRegistry(store, testLogger())
	l := NewLedger(store, testLogger())

	catA, _ := r.Create(ctx, "alice", "A")
	catB, _ := r.Create(ctx, "alice", "B")

	entry := core.LedgerEntry{TxID: "tx1", Amount: 12.34, Date: day(2023, 3, 1)}
	if err := l.AddTransaction(ctx, "alice", catA.ID, entry); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	t.Run("same source and destination is a no-op", func(t *testing.T) {
		if err := l.MoveTransaction(ctx, "alice", "tx1", catA.ID, catA.ID); err != nil {
			t.Fatalf("MoveTransaction: %v", err)
		}
	})

	t.Run("missing destination", func(t *testing.T) {
		err := l.MoveTransaction(ctx, "alice", "tx1", catA.ID, "nope")
		if !errors.Is(err, core.ErrDestinationNotFound) {
			t.Fatalf("expected ErrDestinationNotFound, got %v", err)
		}
	})

	t.Run("missing tx", func(t *testing.T) {
		err := l.MoveTransaction(ctx, "alice", "ghost", catA.ID, catB.ID)
		if !errors.Is(err, core.ErrTxNotFound) {
			t.Fatalf("expected ErrTxNotFound, got %v", err)
		}
	})

	t.Run("moves with amount and date intact", func(t *testing.T) {
		if err := l.MoveTransaction(ctx, "alice", "tx1", catA.ID, catB.ID); err != nil {
			t.Fatalf("MoveTransaction: %v", err)
		}
		holders, err := l.FindTransaction(ctx, "alice", "tx1")
		if err != nil {
			t.Fatalf("FindTransaction: %v", err)
		}
		if len(holders) != 1 || holders[0] != catB.ID {
			t.Fatalf("holders = %v", holders)
		}
		entries, _ := l.ListTransactions(ctx, "alice", catB.ID)
		if len(entries) != 1 || entries[0] != entry {
			t.Fatalf("destination entries = %+v", entries)
		}
	})
}

func TestMoveTransactionCompensatesOnDestinationFailure(t *testing.T) {
	ctx := context.Background()
	store := newFaultStore(memory.New())
	r := NewRegistry(store, testLogger())
	l := NewLedger(store, testLogger())

	catA, _ := r.Create(ctx, "alice", "A")
	catB, _ := r.Create(ctx, "alice", "B")

	entry := core.LedgerEntry{TxID: "tx1", Amount: 99.99, Date: day(2023, 5, 5)}
	if err := l.AddTransaction(ctx, "alice", catA.ID, entry); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	// First write to B's bucket fails.
	store.failPut(collLedgerBuckets, core.CategoryKey("alice", catB.ID), 1)
	err := l.MoveTransaction(ctx, "alice", "tx1", catA.ID, catB.ID)
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected the injected error, got %v", err)
	}

	// Compensation restored the entry to the source.
	holders, err := l.FindTransaction(ctx, "alice", "tx1")
	if err != nil {
		t.Fatalf("FindTransaction: %v", err)
	}
	if len(holders) != 1 || holders[0] != catA.ID {
		t.Fatalf("holders = %v, want [%s]", holders, catA.ID)
	}
	entries, _ := l.ListTransactions(ctx, "alice", catA.ID)
	if len(entries) != 1 || entries[0] != entry {
		t.Fatalf("source entries = %+v", entries)
	}
}

func TestMoveTransactionDoubleFaultIsDetectable(t *testing.T) {
	ctx := context.Background()
	store := newFaultStore(memory.New())
	r := NewRegistry(store, testLogger())
	l := NewLedger(store, testLogger())

	catA, _ := r.Create(ctx, "alice", "A")
	catB, _ := r.Create(ctx, "alice", "B")

	if err := l.AddTransaction(ctx, "alice", catA.ID, core.LedgerEntry{TxID: "tx1", Amount: 1, Date: day(2023, 1, 1)}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	// Writes on A's bucket: #1 was the add above, #2 is the move's
	// remove, #3 is the compensating re-add. Fail the destination write
	// and the compensation: both steps of the saga go wrong.
	store.failPut(collLedgerBuckets, core.CategoryKey("alice", catB.ID), 1)
	store.failPut(collLedgerBuckets, core.CategoryKey("alice", catA.ID), 3)

	err := l.MoveTransaction(ctx, "alice", "tx1", catA.ID, catB.ID)
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected the original injected error, got %v", err)
	}

	// The entry is now in neither bucket; the reconciliation query makes
	// the inconsistency visible instead of hiding it.
	holders, ferr := l.FindTransaction(ctx, "alice", "tx1")
	if ferr != nil {
		t.Fatalf("FindTransaction: %v", ferr)
	}
	if len(holders) != 0 {
		t.Fatalf("holders = %v, want none after double fault", holders)
	}
}

func TestMoveTransactionToTrash(t *testing.T) {
	ctx := context.Background()
	_, l, cat := newLedgerFixture(t)

	entry := core.LedgerEntry{TxID: "tx1", Amount: 7, Date: day(2023, 2, 2)}
	if err := l.AddTransaction(ctx, "alice", cat.ID, entry); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := l.MoveTransactionToTrash(ctx, "alice", cat.ID, "tx1"); err != nil {
		t.Fatalf("MoveTransactionToTrash: %v", err)
	}
	holders, err := l.FindTransaction(ctx, "alice", "tx1")
	if err != nil {
		t.Fatalf("FindTransaction: %v", err)
	}
	if len(holders) != 1 || holders[0] != core.TrashCategoryID {
		t.Fatalf("holders = %v", holders)
	}
}

func TestBulkAddTransactions(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewRegistry(store, testLogger())
	l := NewLedger(store, testLogger())

	catA, _ := r.Create(ctx, "alice", "A")
	catB, _ := r.Create(ctx, "alice", "B")

	entries := []BulkEntry{
		{CategoryID: catA.ID, Entry: core.LedgerEntry{TxID: "tx1", Amount: 1, Date: day(2023, 1, 1)}},
		{CategoryID: catA.ID, Entry: core.LedgerEntry{TxID: "tx2", Amount: 2, Date: day(2023, 1, 2)}},
		{CategoryID: catB.ID, Entry: core.LedgerEntry{TxID: "tx3", Amount: 3, Date: day(2023, 1, 3)}},
	}
	if err := l.BulkAddTransactions(ctx, "alice", entries); err != nil {
		t.Fatalf("BulkAddTransactions: %v", err)
	}
	a, _ := l.ListTransactions(ctx, "alice", catA.ID)
	b, _ := l.ListTransactions(ctx, "alice", catB.ID)
	if len(a) != 2 || len(b) != 1 {
		t.Fatalf("buckets after bulk add: a=%d b=%d", len(a), len(b))
	}

	t.Run("partial failure keeps applied entries", func(t *testing.T) {
		err := l.BulkAddTransactions(ctx, "alice", []BulkEntry{
			{CategoryID: catB.ID, Entry: core.LedgerEntry{TxID: "tx4", Amount: 4, Date: day(2023, 1, 4)}},
			{CategoryID: catB.ID, Entry: core.LedgerEntry{TxID: "tx3", Amount: 3, Date: day(2023, 1, 3)}},
		})
		if !errors.Is(err, core.ErrDuplicateTx) {
			t.Fatalf("expected ErrDuplicateTx, got %v", err)
		}
		b, _ := l.ListTransactions(ctx, "alice", catB.ID)
		if len(b) != 2 {
			t.Fatalf("tx4 should remain applied, bucket = %+v", b)
		}
	})
}

func TestGetMetricStats(t *testing.T) {
	ctx := context.Background()
	_, l, cat := newLedgerFixture(t)

	jan := mustPeriod(t, day(2023, 1, 1), day(2023, 1, 31))

	t.Run("missing bucket yields zero stats", func(t *testing.T) {
		stats, err := l.GetMetricStats(ctx, "alice", cat.ID, jan)
		if err != nil {
			t.Fatalf("GetMetricStats: %v", err)
		}
		want := core.MetricStats{Days: 31}
		if stats != want {
			t.Fatalf("stats = %+v, want %+v", stats, want)
		}
	})

	for _, e := range []core.LedgerEntry{
		{TxID: "tx1", Amount: 1200.50, Date: day(2023, 1, 15)},
		{TxID: "tx2", Amount: 1250.75, Date: day(2023, 2, 10)},
		{TxID: "tx3", Amount: 99.25, Date: day(2023, 1, 31)},
	} {
		if err := l.AddTransaction(ctx, "alice", cat.ID, e); err != nil {
			t.Fatalf("AddTransaction %s: %v", e.TxID, err)
		}
	}

	t.Run("filters inclusively and averages over days", func(t *testing.T) {
		stats, err := l.GetMetricStats(ctx, "alice", cat.ID, jan)
		if err != nil {
			t.Fatalf("GetMetricStats: %v", err)
		}
		if stats.TransactionCount != 2 || stats.Days != 31 {
			t.Fatalf("stats = %+v", stats)
		}
		wantTotal := 1200.50 + 99.25
		if math.Abs(stats.TotalAmount-wantTotal) > 1e-9 {
			t.Fatalf("total = %v, want %v", stats.TotalAmount, wantTotal)
		}
		if math.Abs(stats.AveragePerDay-wantTotal/31) > 1e-9 {
			t.Fatalf("average = %v, want %v", stats.AveragePerDay, wantTotal/31)
		}
	})

	t.Run("no entries in range", func(t *testing.T) {
		march := mustPeriod(t, day(2023, 3, 1), day(2023, 3, 31))
		stats, err := l.GetMetricStats(ctx, "alice", cat.ID, march)
		if err != nil {
			t.Fatalf("GetMetricStats: %v", err)
		}
		want := core.MetricStats{Days: 31}
		if stats != want {
			t.Fatalf("stats = %+v, want %+v", stats, want)
		}
	})
}

func TestDeleteMetricsForCategory(t *testing.T) {
	ctx := context.Background()
	_, l, cat := newLedgerFixture(t)

	n, err := l.DeleteMetricsForCategory(ctx, "alice", cat.ID)
	if err != nil || n != 0 {
		t.Fatalf("DeleteMetricsForCategory = (%d, %v), want (0, nil)", n, err)
	}

	if err := l.AddTransaction(ctx, "alice", cat.ID, core.LedgerEntry{TxID: "tx1", Amount: 1, Date: day(2023, 1, 1)}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	n, err = l.DeleteMetricsForCategory(ctx, "alice", cat.ID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteMetricsForCategory = (%d, %v), want (1, nil)", n, err)
	}
	n, err = l.DeleteMetricsForCategory(ctx, "alice", cat.ID)
	if err != nil || n != 0 {
		t.Fatalf("second DeleteMetricsForCategory = (%d, %v), want (0, nil)", n, err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewRegistry(store, testLogger())
	l := NewLedger(store, testLogger())

	cat, err := r.Create(ctx, "owner-u", "Rent")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := l.AddTransaction(ctx, "owner-u", cat.ID, core.LedgerEntry{TxID: "tx1", Amount: 1200.50, Date: day(2023, 1, 15)}); err != nil {
		t.Fatalf("AddTransaction tx1: %v", err)
	}
	if err := l.AddTransaction(ctx, "owner-u", cat.ID, core.LedgerEntry{TxID: "tx2", Amount: 1250.75, Date: day(2023, 2, 10)}); err != nil {
		t.Fatalf("AddTransaction tx2: %v", err)
	}
	if _, err := r.Rename(ctx, "owner-u", cat.ID, "Housing"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	stats, err := l.GetMetricStats(ctx, "owner-u", cat.ID, mustPeriod(t, day(2023, 1, 1), day(2023, 1, 31)))
	if err != nil {
		t.Fatalf("GetMetricStats: %v", err)
	}
	if stats.TotalAmount != 1200.50 || stats.TransactionCount != 1 || stats.Days != 31 {
		t.Fatalf("stats = %+v", stats)
	}
	if math.Abs(stats.AveragePerDay-1200.50/31) > 1e-9 {
		t.Fatalf("average = %v", stats.AveragePerDay)
	}
}
