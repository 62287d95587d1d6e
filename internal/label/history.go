// Package label implements the two-phase labeling workflow: a per-user
// staging workspace and the committed label history with its
// category-to-transactions index.
package label

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/docstore"
	"github.com/madalinagriza/flashfinance/internal/log"
)

// Collection names in the document store.
const (
	collLabels       = "labels"
	collCategoryTx   = "category_tx"
	collTxInfos      = "tx_infos"
	collStagedLabels = "staged_labels"
)

// Label is a committed (user, tx) -> category mapping. Exactly one
// exists per (user, tx); updates overwrite in place.
type Label struct {
	UserID     core.OwnerID    `json:"user_id"`
	TxID       core.TxID       `json:"tx_id"`
	CategoryID core.CategoryID `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

// indexEntry mirrors Label.CategoryID under a per-category key so
// category history is a prefix scan, not a full-collection filter.
type indexEntry struct {
	UserID     core.OwnerID    `json:"user_id"`
	CategoryID core.CategoryID `json:"category_id"`
	TxID       core.TxID       `json:"tx_id"`
}

// History stores committed labels, the category->tx index, and the
// tx-info cache. The three documents of one label are mutated together
// by Commit and Update, never independently.
type History struct {
	store  docstore.Store
	logger *log.Logger
	now    func() time.Time
}

func NewHistory(store docstore.Store, logger *log.Logger) *History {
	return &History{
		store:  store,
		logger: logger.WithComponent("label-history"),
		now:    time.Now,
	}
}

// Commit writes the label, its index entry, and the tx-info cache entry.
// All three writes are upserts, so re-committing the same label after a
// partial failure converges instead of erroring.
func (h *History) Commit(ctx context.Context, user core.OwnerID, category core.CategoryID, info core.TransactionInfo) (Label, error) {
	if err := user.Validate(); err != nil {
		return Label{}, err
	}
	if err := category.Validate(); err != nil {
		return Label{}, err
	}
	if err := info.TxID.Validate(); err != nil {
		return Label{}, err
	}

	key := core.UserTxKey(user, info.TxID)
	if err := h.store.Put(ctx, collTxInfos, key, info); err != nil {
		return Label{}, fmt.Errorf("write tx info: %w", err)
	}

	lbl := Label{UserID: user, TxID: info.TxID, CategoryID: category, CreatedAt: h.now().UTC()}
	if err := h.store.Put(ctx, collLabels, key, lbl); err != nil {
		return Label{}, fmt.Errorf("write label: %w", err)
	}

	idx := indexEntry{UserID: user, CategoryID: category, TxID: info.TxID}
	if err := h.store.Put(ctx, collCategoryTx, core.CategoryTxKey(user, category, info.TxID), idx); err != nil {
		return Label{}, fmt.Errorf("write label index: %w", err)
	}

	h.logger.InfoContext(ctx, "label committed",
		log.FieldUser, user, log.FieldTx, info.TxID, log.FieldCategory, category)
	return lbl, nil
}

// Update re-points an existing committed label at a new category,
// bumping created_at and syncing the index. Last write wins.
func (h *History) Update(ctx context.Context, user core.OwnerID, tx core.TxID, newCategory core.CategoryID) (Label, error) {
	if err := newCategory.Validate(); err != nil {
		return Label{}, err
	}

	lbl, err := h.Get(ctx, user, tx)
	if err != nil {
		return Label{}, err
	}

	oldCategory := lbl.CategoryID
	lbl.CategoryID = newCategory
	lbl.CreatedAt = h.now().UTC()

	key := core.UserTxKey(user, tx)
	if err := h.store.Put(ctx, collLabels, key, lbl); err != nil {
		return Label{}, fmt.Errorf("write label: %w", err)
	}

	if oldCategory != newCategory {
		if _, err := h.store.Delete(ctx, collCategoryTx, core.CategoryTxKey(user, oldCategory, tx)); err != nil {
			return Label{}, fmt.Errorf("remove stale label index: %w", err)
		}
	}
	idx := indexEntry{UserID: user, CategoryID: newCategory, TxID: tx}
	if err := h.store.Put(ctx, collCategoryTx, core.CategoryTxKey(user, newCategory, tx), idx); err != nil {
		return Label{}, fmt.Errorf("write label index: %w", err)
	}

	h.logger.InfoContext(ctx, "label updated",
		log.FieldUser, user, log.FieldTx, tx, "from", oldCategory, "to", newCategory)
	return lbl, nil
}

// RemoveToTrash is Update targeting the reserved Trash category.
func (h *History) RemoveToTrash(ctx context.Context, user core.OwnerID, tx core.TxID) (Label, error) {
	return h.Update(ctx, user, tx, core.TrashCategoryID)
}

// Get loads the committed label for (user, tx).
func (h *History) Get(ctx context.Context, user core.OwnerID, tx core.TxID) (Label, error) {
	if err := user.Validate(); err != nil {
		return Label{}, err
	}
	if err := tx.Validate(); err != nil {
		return Label{}, err
	}
	lbl, err := docstore.Load[Label](ctx, h.store, collLabels, core.UserTxKey(user, tx))
	if errors.Is(err, docstore.ErrNotFound) {
		return Label{}, fmt.Errorf("label for tx %q: %w", tx, core.ErrLabelNotFound)
	}
	if err != nil {
		return Label{}, fmt.Errorf("load label: %w", err)
	}
	return lbl, nil
}

// Exists reports whether a committed label exists for (user, tx).
func (h *History) Exists(ctx context.Context, user core.OwnerID, tx core.TxID) (bool, error) {
	_, err := h.store.Get(ctx, collLabels, core.UserTxKey(user, tx))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check label: %w", err)
	}
	return true, nil
}

// UserLabels returns every committed label of the user, in key order.
func (h *History) UserLabels(ctx context.Context, user core.OwnerID) ([]Label, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	docs, err := h.store.List(ctx, collLabels, core.OwnerPrefix(user))
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	labels := make([]Label, 0, len(docs))
	for _, doc := range docs {
		var lbl Label
		if err := doc.Unmarshal(&lbl); err != nil {
			return nil, fmt.Errorf("decode label %q: %w", doc.Key, err)
		}
		labels = append(labels, lbl)
	}
	return labels, nil
}

// CategoryHistory returns the tx ids committed under one category, in
// key order.
func (h *History) CategoryHistory(ctx context.Context, user core.OwnerID, category core.CategoryID) ([]core.TxID, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := category.Validate(); err != nil {
		return nil, err
	}
	docs, err := h.store.List(ctx, collCategoryTx, core.CategoryTxPrefix(user, category))
	if err != nil {
		return nil, fmt.Errorf("list label index: %w", err)
	}
	txs := make([]core.TxID, 0, len(docs))
	for _, doc := range docs {
		var idx indexEntry
		if err := doc.Unmarshal(&idx); err != nil {
			return nil, fmt.Errorf("decode label index %q: %w", doc.Key, err)
		}
		txs = append(txs, idx.TxID)
	}
	return txs, nil
}

// TransactionsInTrash lists the tx ids currently labeled into Trash.
func (h *History) TransactionsInTrash(ctx context.Context, user core.OwnerID) ([]core.TxID, error) {
	return h.CategoryHistory(ctx, user, core.TrashCategoryID)
}

// HasAnyForCategory reports whether any committed label points at the
// category.
func (h *History) HasAnyForCategory(ctx context.Context, user core.OwnerID, category core.CategoryID) (bool, error) {
	txs, err := h.CategoryHistory(ctx, user, category)
	if err != nil {
		return false, err
	}
	return len(txs) > 0, nil
}

// TxInfo loads the cached display info for a transaction.
func (h *History) TxInfo(ctx context.Context, user core.OwnerID, tx core.TxID) (core.TransactionInfo, error) {
	info, err := docstore.Load[core.TransactionInfo](ctx, h.store, collTxInfos, core.UserTxKey(user, tx))
	if errors.Is(err, docstore.ErrNotFound) {
		return core.TransactionInfo{}, fmt.Errorf("tx info for %q: %w", tx, core.ErrTxNotFound)
	}
	if err != nil {
		return core.TransactionInfo{}, fmt.Errorf("load tx info: %w", err)
	}
	return info, nil
}

// HistorySnapshot assembles, per category, the display info of every
// transaction committed under it. Index entries whose tx info is missing
// are skipped: the snapshot feeds the suggester and a hole in the cache
// must not fail the whole call.
func (h *History) HistorySnapshot(ctx context.Context, user core.OwnerID, categories []core.CategoryRef) (map[core.CategoryID][]core.TransactionInfo, error) {
	snapshot := make(map[core.CategoryID][]core.TransactionInfo, len(categories))
	for _, ref := range categories {
		txs, err := h.CategoryHistory(ctx, user, ref.ID)
		if err != nil {
			return nil, err
		}
		infos := make([]core.TransactionInfo, 0, len(txs))
		for _, tx := range txs {
			info, err := h.TxInfo(ctx, user, tx)
			if errors.Is(err, core.ErrTxNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			infos = append(infos, info)
		}
		snapshot[ref.ID] = infos
	}
	return snapshot, nil
}
