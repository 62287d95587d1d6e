package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the precondition taxonomy. Callers match them with
// errors.Is; wrapping sites add the offending ids and names so every
// error is safe to surface verbatim.
var (
	ErrInvalidID     = errors.New("invalid identifier")
	ErrInvalidAmount = errors.New("amount must be a nonnegative finite number")
	ErrInvalidDate   = errors.New("invalid transaction date")
	ErrInvalidPeriod = errors.New("period start cannot be after its end")

	ErrDuplicateName = errors.New("category name already in use")
	ErrDuplicateTx   = errors.New("transaction already recorded")

	ErrCategoryNotFound    = errors.New("category not found")
	ErrBucketNotFound      = errors.New("ledger bucket not found")
	ErrTxNotFound          = errors.New("transaction not found")
	ErrDestinationNotFound = errors.New("destination category not found")
	ErrLabelNotFound       = errors.New("label not found")

	ErrCategoryNotEmpty = errors.New("category still contains transactions")

	ErrAlreadyStaged    = errors.New("a staged label already exists")
	ErrAlreadyCommitted = errors.New("a committed label already exists")

	ErrNoCategories          = errors.New("no categories available")
	ErrSuggestionUnavailable = errors.New("suggestion service unavailable")
)

// ConflictError is returned by finalize when one or more staged labels
// already have committed counterparts. Nothing is committed when it is
// returned; Keys lists every conflicting user:tx key so the caller can
// resolve them and retry.
type ConflictError struct {
	Keys []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot finalize: committed labels already exist for %s", strings.Join(e.Keys, ", "))
}

// SuggestionError reports a classifier reply that violated the response
// contract. Value carries the offending raw text for diagnostics; the
// adapter never coerces a bad reply into a best-guess category.
type SuggestionError struct {
	Reason string
	Value  string
}

func (e *SuggestionError) Error() string {
	if e.Value == "" {
		return "invalid suggestion: " + e.Reason
	}
	return fmt.Sprintf("invalid suggestion: %s (got %q)", e.Reason, e.Value)
}
