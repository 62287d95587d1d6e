// Package core holds the canonical domain types shared by the registry,
// ledger, and labeling components: identifiers, composite keys, periods,
// and the error taxonomy.
package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// KeyDelimiter separates id segments inside composite document keys.
// Ids must never contain it, otherwise two different id tuples could
// collide on the same key.
const KeyDelimiter = ":"

type (
	// OwnerID identifies the user that owns categories, ledger buckets,
	// and labels. Categories are never shared between owners.
	OwnerID string

	// CategoryID identifies a category within one owner's namespace.
	CategoryID string

	// TxID identifies an imported bank transaction.
	TxID string
)

// TrashCategoryID is the reserved per-owner sink for discarded
// transactions. It is materialized lazily on first reference and is not
// deletable through the normal category-delete path.
const TrashCategoryID CategoryID = "TRASH_CATEGORY"

// TrashCategoryName is the display name given to the lazily created
// Trash category.
const TrashCategoryName = "Trash"

// NewCategoryID generates a fresh category id.
func NewCategoryID() CategoryID {
	return CategoryID(uuid.NewString())
}

func (id OwnerID) String() string    { return string(id) }
func (id CategoryID) String() string { return string(id) }
func (id TxID) String() string       { return string(id) }

// Validate reports whether the id is usable inside a composite key.
func (id OwnerID) Validate() error    { return validateID("owner id", string(id)) }
func (id CategoryID) Validate() error { return validateID("category id", string(id)) }
func (id TxID) Validate() error       { return validateID("tx id", string(id)) }

func validateID(kind, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is empty: %w", kind, ErrInvalidID)
	}
	if strings.Contains(value, KeyDelimiter) {
		return fmt.Errorf("%s %q contains reserved delimiter %q: %w", kind, value, KeyDelimiter, ErrInvalidID)
	}
	return nil
}
