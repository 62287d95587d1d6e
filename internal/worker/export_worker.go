// Package worker runs the asynchronous label export: it consumes
// finalized-labels events and appends the user's committed labels to
// the configured export destination.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/madalinagriza/flashfinance/internal/amqp"
	"github.com/madalinagriza/flashfinance/internal/category"
	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/export"
	"github.com/madalinagriza/flashfinance/internal/label"
	"github.com/madalinagriza/flashfinance/internal/log"
)

const handleTimeout = 30 * time.Second

// ExportWorker bridges the finalized-labels queue to the export writer.
type ExportWorker struct {
	client   *amqp.Client
	history  *label.History
	registry *category.Registry
	writer   export.LabelWriter
	logger   *log.Logger
}

func NewExportWorker(client *amqp.Client, history *label.History, registry *category.Registry, writer export.LabelWriter, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		client:   client,
		history:  history,
		registry: registry,
		writer:   writer,
		logger:   logger.WithComponent("export-worker"),
	}
}

// Run consumes until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context) error {
	return w.client.ConsumeLabelsFinalized(ctx, func(msg *amqp.LabelsFinalizedMessage) error {
		hctx, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()
		return w.handle(hctx, msg)
	})
}

// handle loads the user's committed labels and appends them as rows.
// The export sheet is an audit log, not a mirror: re-processing a
// requeued message appends duplicate rows rather than losing data.
func (w *ExportWorker) handle(ctx context.Context, msg *amqp.LabelsFinalizedMessage) error {
	w.logger.InfoContext(ctx, "processing labels finalized event",
		log.FieldUser, msg.UserID, log.FieldCount, msg.Count)

	labels, err := w.history.UserLabels(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}
	if len(labels) == 0 {
		return nil
	}

	names := make(map[core.CategoryID]string)
	rows := make([]export.Row, 0, len(labels))
	for _, lbl := range labels {
		info, err := w.history.TxInfo(ctx, msg.UserID, lbl.TxID)
		if errors.Is(err, core.ErrTxNotFound) {
			info = core.TransactionInfo{TxID: lbl.TxID}
		} else if err != nil {
			return fmt.Errorf("load tx info: %w", err)
		}

		name, ok := names[lbl.CategoryID]
		if !ok {
			name, err = w.registry.NameByID(ctx, msg.UserID, lbl.CategoryID)
			if errors.Is(err, core.ErrCategoryNotFound) {
				// Deleted since the label was committed; keep the id.
				name = string(lbl.CategoryID)
			} else if err != nil {
				return fmt.Errorf("resolve category name: %w", err)
			}
			names[lbl.CategoryID] = name
		}

		rows = append(rows, export.RowFromLabel(lbl, info, name))
	}

	if err := w.writer.AppendLabels(ctx, rows); err != nil {
		return fmt.Errorf("append labels: %w", err)
	}

	w.logger.InfoContext(ctx, "exported labels",
		log.FieldUser, msg.UserID, log.FieldCount, len(rows))
	return nil
}
