package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/docstore"
	"github.com/madalinagriza/flashfinance/internal/log"
	"github.com/madalinagriza/flashfinance/internal/saga"
)

// bucketDoc is the stored shape of one (owner, category) ledger bucket.
// The whole entry list lives in a single document so every add/remove is
// one atomic rewrite.
type bucketDoc struct {
	OwnerID    core.OwnerID      `json:"owner_id"`
	CategoryID core.CategoryID   `json:"category_id"`
	Entries    []core.LedgerEntry `json:"entries"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (b *bucketDoc) unmarshal(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, b); err != nil {
		return fmt.Errorf("decode ledger bucket: %w", err)
	}
	return nil
}

func (b *bucketDoc) find(tx core.TxID) (core.LedgerEntry, bool) {
	for _, e := range b.Entries {
		if e.TxID == tx {
			return e, true
		}
	}
	return core.LedgerEntry{}, false
}

// BulkEntry pairs a ledger entry with the category it should land in.
type BulkEntry struct {
	CategoryID core.CategoryID
	Entry      core.LedgerEntry
}

// Ledger maintains the append-only transaction journal per (owner,
// category) bucket.
type Ledger struct {
	store  docstore.Store
	logger *log.Logger
}

func NewLedger(store docstore.Store, logger *log.Logger) *Ledger {
	return &Ledger{store: store, logger: logger.WithComponent("category-ledger")}
}

// AddTransaction appends an entry to the category's bucket, creating the
// bucket lazily. Re-adding a tx id already in the bucket fails with
// ErrDuplicateTx rather than silently succeeding.
func (l *Ledger) AddTransaction(ctx context.Context, owner core.OwnerID, id core.CategoryID, entry core.LedgerEntry) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if err := id.Validate(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	if id == core.TrashCategoryID {
		if err := l.EnsureTrash(ctx, owner); err != nil {
			return err
		}
	} else if err := l.categoryExists(ctx, owner, id); err != nil {
		return err
	}

	return l.appendEntry(ctx, owner, id, entry)
}

// appendEntry is the read-modify-write on the bucket document. It
// assumes the category has already been verified.
func (l *Ledger) appendEntry(ctx context.Context, owner core.OwnerID, id core.CategoryID, entry core.LedgerEntry) error {
	key := core.CategoryKey(owner, id)
	bucket, err := l.loadBucket(ctx, key)
	if errors.Is(err, docstore.ErrNotFound) {
		bucket = bucketDoc{OwnerID: owner, CategoryID: id}
	} else if err != nil {
		return err
	}

	if _, found := bucket.find(entry.TxID); found {
		return fmt.Errorf("tx %q already in category %q: %w", entry.TxID, id, core.ErrDuplicateTx)
	}

	bucket.Entries = append(bucket.Entries, entry)
	bucket.UpdatedAt = time.Now().UTC()
	if err := l.store.Put(ctx, collLedgerBuckets, key, bucket); err != nil {
		return fmt.Errorf("write ledger bucket: %w", err)
	}

	l.logger.InfoContext(ctx, "ledger entry recorded",
		log.FieldOwner, owner, log.FieldCategory, id, log.FieldTx, entry.TxID, "amount", entry.Amount)
	return nil
}

// RemoveTransaction filters the entry out of the bucket and rewrites it.
func (l *Ledger) RemoveTransaction(ctx context.Context, owner core.OwnerID, id core.CategoryID, tx core.TxID) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if err := id.Validate(); err != nil {
		return err
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := l.removeEntry(ctx, owner, id, tx)
	return err
}

// removeEntry removes and returns the entry so move can re-add it with
// identical amount and date.
func (l *Ledger) removeEntry(ctx context.Context, owner core.OwnerID, id core.CategoryID, tx core.TxID) (core.LedgerEntry, error) {
	key := core.CategoryKey(owner, id)
	bucket, err := l.loadBucket(ctx, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return core.LedgerEntry{}, fmt.Errorf("bucket for category %q: %w", id, core.ErrBucketNotFound)
	}
	if err != nil {
		return core.LedgerEntry{}, err
	}

	removed, found := bucket.find(tx)
	if !found {
		return core.LedgerEntry{}, fmt.Errorf("tx %q in category %q: %w", tx, id, core.ErrTxNotFound)
	}

	kept := bucket.Entries[:0:0]
	for _, e := range bucket.Entries {
		if e.TxID != tx {
			kept = append(kept, e)
		}
	}
	bucket.Entries = kept
	bucket.UpdatedAt = time.Now().UTC()
	if err := l.store.Put(ctx, collLedgerBuckets, key, bucket); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("write ledger bucket: %w", err)
	}

	l.logger.InfoContext(ctx, "ledger entry removed",
		log.FieldOwner, owner, log.FieldCategory, id, log.FieldTx, tx)
	return removed, nil
}

// MoveTransaction relocates an entry between two categories as a
// two-step saga: remove from the source, add to the destination. If the
// add fails the entry is re-added to the source with identical amount
// and date, and the original error is returned. A crash between the two
// steps leaves the ledger transiently inconsistent; FindTransaction
// exists to detect that.
func (l *Ledger) MoveTransaction(ctx context.Context, owner core.OwnerID, tx core.TxID, from, to core.CategoryID) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := from.Validate(); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	fromBucket, err := l.loadBucket(ctx, core.CategoryKey(owner, from))
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("tx %q in category %q: %w", tx, from, core.ErrTxNotFound)
	}
	if err != nil {
		return err
	}
	if _, found := fromBucket.find(tx); !found {
		return fmt.Errorf("tx %q in category %q: %w", tx, from, core.ErrTxNotFound)
	}

	if to == core.TrashCategoryID {
		if err := l.EnsureTrash(ctx, owner); err != nil {
			return err
		}
	} else if err := l.categoryExists(ctx, owner, to); err != nil {
		if errors.Is(err, core.ErrCategoryNotFound) {
			return fmt.Errorf("destination category %q: %w", to, core.ErrDestinationNotFound)
		}
		return err
	}

	return l.moveSaga(ctx, owner, tx, from, to)
}

// MoveTransactionToTrash is MoveTransaction targeting the reserved
// Trash category, which is created lazily.
func (l *Ledger) MoveTransactionToTrash(ctx context.Context, owner core.OwnerID, from core.CategoryID, tx core.TxID) error {
	return l.MoveTransaction(ctx, owner, tx, from, core.TrashCategoryID)
}

func (l *Ledger) moveSaga(ctx context.Context, owner core.OwnerID, tx core.TxID, from, to core.CategoryID) error {
	var moved core.LedgerEntry
	return saga.Run(ctx, l.logger,
		saga.Step{
			Name: "remove from source",
			Do: func(ctx context.Context) error {
				var err error
				moved, err = l.removeEntry(ctx, owner, from, tx)
				return err
			},
			Compensate: func(ctx context.Context) error {
				return l.appendEntry(ctx, owner, from, moved)
			},
		},
		saga.Step{
			Name: "add to destination",
			Do: func(ctx context.Context) error {
				return l.appendEntry(ctx, owner, to, moved)
			},
		},
	)
}

// BulkAddTransactions fans the entries out as independent adds, grouped
// per category so writes to the same bucket never race. There is no
// rollback across entries: on failure, entries already applied stay
// applied and the first error is returned.
func (l *Ledger) BulkAddTransactions(ctx context.Context, owner core.OwnerID, entries []BulkEntry) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	byCategory := make(map[core.CategoryID][]core.LedgerEntry)
	order := make([]core.CategoryID, 0)
	for _, be := range entries {
		if _, seen := byCategory[be.CategoryID]; !seen {
			order = append(order, be.CategoryID)
		}
		byCategory[be.CategoryID] = append(byCategory[be.CategoryID], be.Entry)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range order {
		id, batch := id, byCategory[id]
		g.Go(func() error {
			for _, entry := range batch {
				if err := l.AddTransaction(gctx, owner, id, entry); err != nil {
					return fmt.Errorf("bulk add tx %q to category %q: %w", entry.TxID, id, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// GetMetricStats aggregates the bucket's entries whose date falls inside
// the closed period. A missing bucket or an empty range yields zeroed
// stats, never an error.
func (l *Ledger) GetMetricStats(ctx context.Context, owner core.OwnerID, id core.CategoryID, period core.Period) (core.MetricStats, error) {
	if err := owner.Validate(); err != nil {
		return core.MetricStats{}, err
	}
	if err := id.Validate(); err != nil {
		return core.MetricStats{}, err
	}

	stats := core.MetricStats{Days: period.Days()}
	bucket, err := l.loadBucket(ctx, core.CategoryKey(owner, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return stats, nil
	}
	if err != nil {
		return core.MetricStats{}, err
	}

	for _, e := range bucket.Entries {
		if !period.Contains(e.Date) {
			continue
		}
		stats.TotalAmount += e.Amount
		stats.TransactionCount++
	}
	if stats.TransactionCount > 0 {
		stats.AveragePerDay = stats.TotalAmount / float64(stats.Days)
	}
	return stats, nil
}

// DeleteMetricsForCategory drops the bucket outright, returning how many
// buckets were removed (0 or 1).
func (l *Ledger) DeleteMetricsForCategory(ctx context.Context, owner core.OwnerID, id core.CategoryID) (int, error) {
	if err := owner.Validate(); err != nil {
		return 0, err
	}
	if err := id.Validate(); err != nil {
		return 0, err
	}
	existed, err := l.store.Delete(ctx, collLedgerBuckets, core.CategoryKey(owner, id))
	if err != nil {
		return 0, fmt.Errorf("delete ledger bucket: %w", err)
	}
	if !existed {
		return 0, nil
	}
	l.logger.InfoContext(ctx, "ledger bucket deleted", log.FieldOwner, owner, log.FieldCategory, id)
	return 1, nil
}

// ListTransactions returns the bucket's entries in insertion order. A
// missing bucket is an empty list.
func (l *Ledger) ListTransactions(ctx context.Context, owner core.OwnerID, id core.CategoryID) ([]core.LedgerEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	bucket, err := l.loadBucket(ctx, core.CategoryKey(owner, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bucket.Entries, nil
}

// FindTransaction reports every category whose bucket contains the tx
// id. After a move saga double fault the tx is either in zero or two
// buckets; this is the reconciliation query that detects both cases.
func (l *Ledger) FindTransaction(ctx context.Context, owner core.OwnerID, tx core.TxID) ([]core.CategoryID, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	docs, err := l.store.List(ctx, collLedgerBuckets, core.OwnerPrefix(owner))
	if err != nil {
		return nil, fmt.Errorf("list ledger buckets: %w", err)
	}

	var holders []core.CategoryID
	for _, doc := range docs {
		var bucket bucketDoc
		if err := bucket.unmarshal(doc.Value); err != nil {
			return nil, err
		}
		if _, found := bucket.find(tx); found {
			holders = append(holders, bucket.CategoryID)
		}
	}
	return holders, nil
}

// EnsureTrash lazily materializes the reserved Trash category for the
// owner. It bypasses the name-claim index: Trash is an implementation
// sentinel, not a user-managed name.
func (l *Ledger) EnsureTrash(ctx context.Context, owner core.OwnerID) error {
	trash := core.Category{OwnerID: owner, ID: core.TrashCategoryID, Name: core.TrashCategoryName}
	err := l.store.Insert(ctx, collCategories, core.CategoryKey(owner, core.TrashCategoryID), trash)
	if err != nil && !errors.Is(err, docstore.ErrKeyExists) {
		return fmt.Errorf("create trash category: %w", err)
	}
	return nil
}

func (l *Ledger) categoryExists(ctx context.Context, owner core.OwnerID, id core.CategoryID) error {
	_, err := l.store.Get(ctx, collCategories, core.CategoryKey(owner, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("category %q for owner %q: %w", id, owner, core.ErrCategoryNotFound)
	}
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	return nil
}

func (l *Ledger) loadBucket(ctx context.Context, key string) (bucketDoc, error) {
	raw, err := l.store.Get(ctx, collLedgerBuckets, key)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return bucketDoc{}, err
		}
		return bucketDoc{}, fmt.Errorf("load ledger bucket: %w", err)
	}
	var bucket bucketDoc
	if err := bucket.unmarshal(raw); err != nil {
		return bucketDoc{}, err
	}
	return bucket, nil
}
