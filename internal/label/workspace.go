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

// Staged is a proposed, not-yet-committed label held in a user's
// workspace. At most one exists per (user, tx).
type Staged struct {
	UserID     core.OwnerID    `json:"user_id"`
	TxID       core.TxID       `json:"tx_id"`
	CategoryID core.CategoryID `json:"category_id"`
	TxName     string          `json:"tx_name"`
	TxMerchant string          `json:"tx_merchant"`
	StagedAt   time.Time       `json:"staged_at"`
}

// Workspace is the per-user staging area. The lifecycle per (user, tx)
// is Unlabeled -> Staged -> Committed or Discarded; re-staging over a
// committed label is blocked, only History.Update may change one.
type Workspace struct {
	store   docstore.Store
	history *History
	logger  *log.Logger
	now     func() time.Time
}

func NewWorkspace(store docstore.Store, history *History, logger *log.Logger) *Workspace {
	return &Workspace{
		store:   store,
		history: history,
		logger:  logger.WithComponent("label-workspace"),
		now:     time.Now,
	}
}

// Stage records a proposed label. The committed check runs first; the
// staged check is the Insert itself, so two racing stages for the same
// (user, tx) resolve into one success and one ErrAlreadyStaged.
func (w *Workspace) Stage(ctx context.Context, user core.OwnerID, category core.CategoryID, info core.TransactionInfo) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if err := category.Validate(); err != nil {
		return err
	}
	if err := info.TxID.Validate(); err != nil {
		return err
	}

	committed, err := w.history.Exists(ctx, user, info.TxID)
	if err != nil {
		return err
	}
	if committed {
		return fmt.Errorf("tx %q for user %q: %w", info.TxID, user, core.ErrAlreadyCommitted)
	}

	staged := Staged{
		UserID:     user,
		TxID:       info.TxID,
		CategoryID: category,
		TxName:     info.Name,
		TxMerchant: info.Merchant,
		StagedAt:   w.now().UTC(),
	}
	if err := w.store.Insert(ctx, collStagedLabels, core.UserTxKey(user, info.TxID), staged); err != nil {
		if errors.Is(err, docstore.ErrKeyExists) {
			return fmt.Errorf("tx %q for user %q: %w", info.TxID, user, core.ErrAlreadyStaged)
		}
		return fmt.Errorf("stage label: %w", err)
	}

	w.logger.InfoContext(ctx, "label staged",
		log.FieldUser, user, log.FieldTx, info.TxID, log.FieldCategory, category)
	return nil
}

// DiscardUnstagedToTrash is Stage with the category fixed to Trash.
func (w *Workspace) DiscardUnstagedToTrash(ctx context.Context, user core.OwnerID, info core.TransactionInfo) error {
	return w.Stage(ctx, user, core.TrashCategoryID, info)
}

// Staged returns the user's staged labels in key order.
func (w *Workspace) Staged(ctx context.Context, user core.OwnerID) ([]Staged, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	docs, err := w.store.List(ctx, collStagedLabels, core.OwnerPrefix(user))
	if err != nil {
		return nil, fmt.Errorf("list staged labels: %w", err)
	}
	staged := make([]Staged, 0, len(docs))
	for _, doc := range docs {
		var s Staged
		if err := doc.Unmarshal(&s); err != nil {
			return nil, fmt.Errorf("decode staged label %q: %w", doc.Key, err)
		}
		staged = append(staged, s)
	}
	return staged, nil
}

// Finalize commits the user's whole staging batch. The conflict check
// covers the entire batch up front and commits nothing when it fails,
// reporting every conflicting key. The commit loop that follows is N
// independent per-entry commits: a crash mid-batch leaves the remainder
// staged, and re-running Finalize picks it up safely because each
// commit is an upsert and each staged entry is deleted only after its
// commit lands. Returns the number of labels committed.
func (w *Workspace) Finalize(ctx context.Context, user core.OwnerID) (int, error) {
	staged, err := w.Staged(ctx, user)
	if err != nil {
		return 0, err
	}
	if len(staged) == 0 {
		return 0, nil
	}

	var conflicts []string
	for _, s := range staged {
		committed, err := w.history.Exists(ctx, user, s.TxID)
		if err != nil {
			return 0, err
		}
		if committed {
			conflicts = append(conflicts, core.UserTxKey(user, s.TxID))
		}
	}
	if len(conflicts) > 0 {
		return 0, &core.ConflictError{Keys: conflicts}
	}

	for i, s := range staged {
		info := core.TransactionInfo{TxID: s.TxID, Name: s.TxName, Merchant: s.TxMerchant}
		if _, err := w.history.Commit(ctx, user, s.CategoryID, info); err != nil {
			return i, fmt.Errorf("commit staged label for tx %q: %w", s.TxID, err)
		}
		if _, err := w.store.Delete(ctx, collStagedLabels, core.UserTxKey(user, s.TxID)); err != nil {
			return i + 1, fmt.Errorf("clear staged label for tx %q: %w", s.TxID, err)
		}
	}

	w.logger.InfoContext(ctx, "staging batch finalized",
		log.FieldUser, user, log.FieldCount, len(staged))
	return len(staged), nil
}

// CancelSession drops every staged label of the user unconditionally,
// returning how many were discarded.
func (w *Workspace) CancelSession(ctx context.Context, user core.OwnerID) (int, error) {
	staged, err := w.Staged(ctx, user)
	if err != nil {
		return 0, err
	}
	for _, s := range staged {
		if _, err := w.store.Delete(ctx, collStagedLabels, core.UserTxKey(user, s.TxID)); err != nil {
			return 0, fmt.Errorf("discard staged label for tx %q: %w", s.TxID, err)
		}
	}
	if len(staged) > 0 {
		w.logger.InfoContext(ctx, "staging session cancelled",
			log.FieldUser, user, log.FieldCount, len(staged))
	}
	return len(staged), nil
}
