/*
store.go - Persistence contract for the inventory core

PURPOSE:
  Defines the interface between the domain logic and the database. Four
  tables back the model: categories, products, sales, stock_logs. Sales and
  stock_logs are append-only; there are no update or delete methods for
  either, ever. Corrections happen through new ledger entries.

TRANSACTION MODEL:
  All stock-affecting work runs through WithTx: acquire, operate, then
  commit on nil or roll back on error - on every exit path. Within a
  transaction, GetProductForUpdate reads the product row such that a
  concurrent writer of the same row cannot interleave its own
  read-check-write sequence. Two concurrent sales against one product
  therefore serialize; neither can validate against a stale stock value.

  Read-only methods on Store run outside any explicit transaction and only
  need the store's snapshot consistency.

CONSTRAINT BACKSTOP:
  The store enforces UNIQUE(products.sku) and UNIQUE(categories.name) at
  the schema level and translates violations to ConflictError, so a
  race-lost application-level check still surfaces as Conflict, not a raw
  driver error.

IMPLEMENTATIONS:
  - store/sqlite:   production SQLite store
  - inventory/store: in-memory store for tests and dev
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Top-level persistence interface
// =============================================================================

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	// Search matches case-insensitively as a substring of name or sku.
	// Empty means no filter.
	Search string

	// LowStockOnly keeps only products at or below their reorder threshold.
	LowStockOnly bool
}

// Store is the ledger store the core depends on.
type Store interface {
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// GetProduct returns the product joined with its category name, or
	// (nil, nil) if absent.
	GetProduct(ctx context.Context, id ProductID) (*ProductWithCategory, error)

	// ListProducts returns products joined with category names, filtered
	// and sorted by name ascending.
	ListProducts(ctx context.Context, filter ProductFilter) ([]ProductWithCategory, error)

	// ListCategories returns all categories sorted by name ascending.
	ListCategories(ctx context.Context) ([]Category, error)

	// InsertCategory adds a category. Duplicate names return ConflictError.
	InsertCategory(ctx context.Context, name string, now time.Time) (CategoryID, error)

	// ListSales returns the most recent sales joined with product name/sku,
	// descending by sale time, at most limit rows.
	ListSales(ctx context.Context, limit int) ([]SaleWithProduct, error)

	// SalesBetween returns sales with from <= SaleTime < to.
	SalesBetween(ctx context.Context, from, to time.Time) ([]SaleRecord, error)

	// CountSales returns the total number of sale records.
	CountSales(ctx context.Context) (int64, error)

	// StockLogEntries returns the full ledger for a product, oldest first.
	StockLogEntries(ctx context.Context, id ProductID) ([]StockLogEntry, error)

	// WithTx executes fn inside a single transaction. If fn returns an
	// error the transaction rolls back with no partial effects; otherwise
	// it commits. The error from fn is returned as-is.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// =============================================================================
// TX - Operations available inside a transaction
// =============================================================================

// ProductFieldUpdate carries the descriptive fields of a partial product
// update. Nil means "not provided". Stock changes do NOT go through here -
// they route through UpdateProductStock plus a ledger append.
type ProductFieldUpdate struct {
	Name             *string
	SKU              *string
	CategoryID       *CategoryID
	UnitPrice        *decimal.Decimal
	UnitCost         *decimal.Decimal
	ReorderThreshold *int
}

// Tx is the transactional surface. Every method participates in the
// enclosing WithTx transaction.
type Tx interface {
	// GetProductForUpdate reads the product row for modification. Returns
	// (nil, nil) if absent. The row is held against concurrent writers
	// until the transaction ends.
	GetProductForUpdate(ctx context.Context, id ProductID) (*Product, error)

	// GetCategory returns the category or (nil, nil) if absent.
	GetCategory(ctx context.Context, id CategoryID) (*Category, error)

	// FindProductIDBySKU returns the owning product's ID if the sku is
	// taken. Used for uniqueness checks that must see in-transaction state.
	FindProductIDBySKU(ctx context.Context, sku string) (ProductID, bool, error)

	// InsertProduct adds a product row and returns its ID. Duplicate skus
	// return ConflictError.
	InsertProduct(ctx context.Context, p Product) (ProductID, error)

	// UpdateProductFields applies a partial descriptive update and bumps
	// updated_at. Duplicate skus return ConflictError.
	UpdateProductFields(ctx context.Context, id ProductID, fields ProductFieldUpdate, now time.Time) error

	// UpdateProductStock writes the cached stock projection and bumps
	// updated_at. Callers must append a matching ledger entry in the same
	// transaction.
	UpdateProductStock(ctx context.Context, id ProductID, newQty int, now time.Time) error

	// InsertSale appends an immutable sale record and returns its ID.
	InsertSale(ctx context.Context, s SaleRecord) (SaleID, error)

	// AppendStockLog appends a ledger entry. Append-only.
	AppendStockLog(ctx context.Context, e StockLogEntry) error
}
