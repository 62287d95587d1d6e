// Package export appends committed labels to an external audit surface.
// The document store stays the source of truth; export is asynchronous
// and best-effort, driven by the worker off the finalized-labels queue.
package export

import (
	"context"

	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/label"
)

// Row is one exported label with its display info and category name
// resolved.
type Row struct {
	UserID       core.OwnerID
	TxID         core.TxID
	TxName       string
	TxMerchant   string
	CategoryID   core.CategoryID
	CategoryName string
	CreatedAt    string
}

// RowFromLabel builds an export row from a committed label and its
// cached display info.
func RowFromLabel(lbl label.Label, info core.TransactionInfo, categoryName string) Row {
	return Row{
		UserID:       lbl.UserID,
		TxID:         lbl.TxID,
		TxName:       info.Name,
		TxMerchant:   info.Merchant,
		CategoryID:   lbl.CategoryID,
		CategoryName: categoryName,
		CreatedAt:    lbl.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// LabelWriter is the export destination.
type LabelWriter interface {
	AppendLabels(ctx context.Context, rows []Row) error
}
