package core

import (
	"fmt"
	"math"
	"time"
)

// Category is one owner's named bucket for transactions.
type Category struct {
	OwnerID OwnerID    `json:"owner_id"`
	ID      CategoryID `json:"category_id"`
	Name    string     `json:"name"`
}

// CategoryRef is the (id, name) pair handed to the suggester and
// returned by per-owner listings.
type CategoryRef struct {
	ID   CategoryID `json:"category_id"`
	Name string     `json:"name"`
}

// LedgerEntry is one recorded transaction inside a ledger bucket.
type LedgerEntry struct {
	TxID   TxID      `json:"tx_id"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"tx_date"`
}

// Validate checks the shape constraints the ledger enforces on entry.
func (e LedgerEntry) Validate() error {
	if err := e.TxID.Validate(); err != nil {
		return err
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) || e.Amount < 0 {
		return fmt.Errorf("amount %v for tx %q: %w", e.Amount, e.TxID, ErrInvalidAmount)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("tx %q: %w", e.TxID, ErrInvalidDate)
	}
	return nil
}

// MetricStats aggregates the ledger entries of one category over a period.
type MetricStats struct {
	TotalAmount      float64 `json:"total_amount"`
	TransactionCount int     `json:"transaction_count"`
	AveragePerDay    float64 `json:"average_per_day"`
	Days             int     `json:"days"`
}

// TransactionInfo is the displayable shape of a transaction used by the
// labeling workflow and the suggester.
type TransactionInfo struct {
	TxID     TxID   `json:"tx_id"`
	Name     string `json:"tx_name"`
	Merchant string `json:"tx_merchant"`
}
