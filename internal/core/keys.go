package core

import (
	"fmt"
	"strings"
)

// Composite keys are the primary keys of every stored document. The
// formats are load-bearing: each tuple of ids maps to exactly one key
// and back, which is why ids are validated against the delimiter.

// CategoryKey addresses a category document: "<owner>:<category>".
// Ledger buckets share the same key shape in their own collection.
func CategoryKey(owner OwnerID, category CategoryID) string {
	return string(owner) + KeyDelimiter + string(category)
}

// CategoryNameKey addresses the name-claim document enforcing
// (owner, name) uniqueness: "<owner>:<name>". The name is the trailing
// segment, so it may itself contain the delimiter without ambiguity.
func CategoryNameKey(owner OwnerID, name string) string {
	return string(owner) + KeyDelimiter + name
}

// MetricPeriodKey addresses a period-scoped metric cache entry:
// "<owner>:<category>:<period>".
func MetricPeriodKey(owner OwnerID, category CategoryID, period Period) string {
	return string(owner) + KeyDelimiter + string(category) + KeyDelimiter + period.String()
}

// UserTxKey addresses label, staging, and tx-info documents:
// "<user>:<tx>".
func UserTxKey(user OwnerID, tx TxID) string {
	return string(user) + KeyDelimiter + string(tx)
}

// CategoryTxKey addresses one entry of the category-to-transactions
// index: "<user>:<category>:<tx>".
func CategoryTxKey(user OwnerID, category CategoryID, tx TxID) string {
	return string(user) + KeyDelimiter + string(category) + KeyDelimiter + string(tx)
}

// CategoryTxPrefix is the scan prefix selecting every indexed tx of one
// (user, category) pair.
func CategoryTxPrefix(user OwnerID, category CategoryID) string {
	return string(user) + KeyDelimiter + string(category) + KeyDelimiter
}

// OwnerPrefix is the scan prefix selecting every key belonging to one
// owner within a collection.
func OwnerPrefix(owner OwnerID) string {
	return string(owner) + KeyDelimiter
}

// SplitUserTxKey recovers the (user, tx) pair from a UserTxKey.
func SplitUserTxKey(key string) (OwnerID, TxID, error) {
	parts := strings.SplitN(key, KeyDelimiter, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed user:tx key %q: %w", key, ErrInvalidID)
	}
	return OwnerID(parts[0]), TxID(parts[1]), nil
}
