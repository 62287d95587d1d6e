// Package services wires the domain components into the flows the
// transport layer exposes: suggestion-assisted staging, finalize with
// event publishing, and ledger recording with event publishing.
package services

import (
	"context"

	"github.com/madalinagriza/flashfinance/internal/amqp"
	"github.com/madalinagriza/flashfinance/internal/category"
	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/label"
	"github.com/madalinagriza/flashfinance/internal/log"
)

// Suggester is the suggestion boundary consumed by the service.
type Suggester interface {
	Suggest(ctx context.Context, user core.OwnerID, categories []core.CategoryRef, tx core.TransactionInfo) (core.CategoryRef, error)
}

// LabelingService orchestrates categories, the ledger, and the labeling
// workflow. Event publishing is best-effort: the document store is the
// source of truth and a broker outage never fails a request.
type LabelingService struct {
	registry  *category.Registry
	ledger    *category.Ledger
	workspace *label.Workspace
	history   *label.History
	suggester Suggester
	events    *amqp.Client
	logger    *log.Logger
}

func NewLabelingService(
	registry *category.Registry,
	ledger *category.Ledger,
	workspace *label.Workspace,
	history *label.History,
	suggester Suggester,
	events *amqp.Client,
	logger *log.Logger,
) *LabelingService {
	return &LabelingService{
		registry:  registry,
		ledger:    ledger,
		workspace: workspace,
		history:   history,
		suggester: suggester,
		events:    events,
		logger:    logger.WithComponent("labeling-service"),
	}
}

// SuggestCategory asks the classifier for a category using the user's
// own category list and labeling history as context.
func (s *LabelingService) SuggestCategory(ctx context.Context, user core.OwnerID, tx core.TransactionInfo) (core.CategoryRef, error) {
	categories, err := s.registry.List(ctx, user)
	if err != nil {
		return core.CategoryRef{}, err
	}
	return s.suggester.Suggest(ctx, user, categories, tx)
}

// SuggestAndStage suggests a category and immediately stages the
// transaction under it. Nothing is staged when the suggestion fails.
func (s *LabelingService) SuggestAndStage(ctx context.Context, user core.OwnerID, tx core.TransactionInfo) (core.CategoryRef, error) {
	chosen, err := s.SuggestCategory(ctx, user, tx)
	if err != nil {
		return core.CategoryRef{}, err
	}
	if err := s.workspace.Stage(ctx, user, chosen.ID, tx); err != nil {
		return core.CategoryRef{}, err
	}
	return chosen, nil
}

// FinalizeLabels commits the user's staging batch and announces it on
// the event bus.
func (s *LabelingService) FinalizeLabels(ctx context.Context, user core.OwnerID) (int, error) {
	n, err := s.workspace.Finalize(ctx, user)
	if err != nil {
		return n, err
	}
	if n > 0 {
		if perr := s.events.PublishLabelsFinalized(ctx, amqp.NewLabelsFinalizedMessage(user, n)); perr != nil {
			s.logger.ErrorContext(ctx, "failed to publish labels finalized event",
				log.FieldUser, user, log.FieldCount, n, log.FieldError, perr)
		}
	}
	return n, nil
}

// RecordTransaction appends a ledger entry and announces it on the
// event bus.
func (s *LabelingService) RecordTransaction(ctx context.Context, owner core.OwnerID, categoryID core.CategoryID, entry core.LedgerEntry) error {
	if err := s.ledger.AddTransaction(ctx, owner, categoryID, entry); err != nil {
		return err
	}
	if perr := s.events.PublishLedgerEntryRecorded(ctx, amqp.NewLedgerEntryRecordedMessage(owner, categoryID, entry.TxID)); perr != nil {
		s.logger.ErrorContext(ctx, "failed to publish ledger entry recorded event",
			log.FieldOwner, owner, log.FieldTx, entry.TxID, log.FieldError, perr)
	}
	return nil
}
