// Package saga runs sequences of document writes that must appear
// atomic even though the store only guarantees atomicity per document.
// When a step fails, the compensations of the steps that already ran
// are executed in reverse order and the original error is returned.
package saga

import (
	"context"

	"github.com/madalinagriza/flashfinance/internal/log"
)

// Step is a single forward action with an optional compensation that
// undoes it. Compensate may be nil for steps with nothing to roll back.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Run executes the steps in order. On the first failure it compensates
// the completed steps in reverse and returns the failing step's error.
// Compensation failures are logged and do not mask the original error:
// the caller must always see why the saga failed.
func Run(ctx context.Context, logger *log.Logger, steps ...Step) error {
	for i, step := range steps {
		if err := step.Do(ctx); err != nil {
			compensate(ctx, logger, steps[:i], err)
			return err
		}
	}
	return nil
}

func compensate(ctx context.Context, logger *log.Logger, done []Step, cause error) {
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil && logger != nil {
			logger.ErrorContext(ctx, "saga compensation failed",
				"step", step.Name,
				"cause", cause,
				log.FieldError, err,
			)
		}
	}
}
