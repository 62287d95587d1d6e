// Package category implements the per-owner category registry and the
// append-only transaction ledger kept in per-category buckets.
package category

// Collection names in the document store.
const (
	collCategories    = "categories"
	collCategoryNames = "category_names"
	collLedgerBuckets = "ledger_buckets"
)
