package log

// Common field names for structured logging across the service.
const (
	FieldOwner    = "owner_id"
	FieldUser     = "user_id"
	FieldCategory = "category_id"
	FieldTx       = "tx_id"
	FieldError    = "error"
	FieldCount    = "count"
	FieldBackend  = "backend"
)
