package amqp

import (
	"encoding/json"
	"time"

	"github.com/madalinagriza/flashfinance/internal/core"
)

// LabelsFinalizedMessage announces that a user's staging batch was
// committed. It carries only the user id and count; the worker fetches
// the committed labels itself.
type LabelsFinalizedMessage struct {
	UserID    core.OwnerID `json:"user_id"`
	Count     int          `json:"count"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewLabelsFinalizedMessage(user core.OwnerID, count int) *LabelsFinalizedMessage {
	return &LabelsFinalizedMessage{UserID: user, Count: count, Timestamp: time.Now()}
}

func (m *LabelsFinalizedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LabelsFinalizedMessageFromJSON(data []byte) (*LabelsFinalizedMessage, error) {
	var msg LabelsFinalizedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// LedgerEntryRecordedMessage announces a newly recorded ledger entry.
type LedgerEntryRecordedMessage struct {
	OwnerID    core.OwnerID    `json:"owner_id"`
	CategoryID core.CategoryID `json:"category_id"`
	TxID       core.TxID       `json:"tx_id"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewLedgerEntryRecordedMessage(owner core.OwnerID, category core.CategoryID, tx core.TxID) *LedgerEntryRecordedMessage {
	return &LedgerEntryRecordedMessage{OwnerID: owner, CategoryID: category, TxID: tx, Timestamp: time.Now()}
}

func (m *LedgerEntryRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEntryRecordedMessageFromJSON(data []byte) (*LedgerEntryRecordedMessage, error) {
	var msg LedgerEntryRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
