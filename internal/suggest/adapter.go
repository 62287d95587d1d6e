// Package suggest builds classification requests for the external
// model and validates its replies against the known category set. The
// classifier is a narrow injected interface: prompt in, free text out.
package suggest

import (
	"context"
	"fmt"

	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/label"
	"github.com/madalinagriza/flashfinance/internal/log"
)

// Classifier is the external model boundary. Implementations must honor
// the context deadline; the reply is free text expected to contain one
// JSON object.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// Adapter assembles the per-category history context, calls the
// classifier, and strictly validates the reply.
type Adapter struct {
	history    *label.History
	classifier Classifier
	logger     *log.Logger
}

func NewAdapter(history *label.History, classifier Classifier, logger *log.Logger) *Adapter {
	return &Adapter{
		history:    history,
		classifier: classifier,
		logger:     logger.WithComponent("suggestion-adapter"),
	}
}

// Suggest returns the category the classifier picked for the
// transaction. It fails with ErrNoCategories when the list is empty,
// ErrSuggestionUnavailable when the classifier call itself fails, and
// SuggestionError when the reply violates the response contract. There
// is no best-guess fallback.
func (a *Adapter) Suggest(ctx context.Context, user core.OwnerID, categories []core.CategoryRef, tx core.TransactionInfo) (core.CategoryRef, error) {
	if err := user.Validate(); err != nil {
		return core.CategoryRef{}, err
	}
	if len(categories) == 0 {
		return core.CategoryRef{}, fmt.Errorf("user %q: %w", user, core.ErrNoCategories)
	}

	history, err := a.history.HistorySnapshot(ctx, user, categories)
	if err != nil {
		return core.CategoryRef{}, fmt.Errorf("build history snapshot: %w", err)
	}

	prompt := buildPrompt(user, categories, tx, history)

	reply, err := a.classifier.Classify(ctx, prompt)
	if err != nil {
		a.logger.ErrorContext(ctx, "classifier call failed",
			log.FieldUser, user, log.FieldTx, tx.TxID, log.FieldError, err)
		return core.CategoryRef{}, fmt.Errorf("%w: %v", core.ErrSuggestionUnavailable, err)
	}

	chosen, err := parseReply(reply, categories)
	if err != nil {
		a.logger.WarnContext(ctx, "classifier reply rejected",
			log.FieldUser, user, log.FieldTx, tx.TxID, log.FieldError, err)
		return core.CategoryRef{}, err
	}

	a.logger.InfoContext(ctx, "suggestion produced",
		log.FieldUser, user, log.FieldTx, tx.TxID, log.FieldCategory, chosen.ID)
	return chosen, nil
}
