/*
Package inventory provides the transactional core of the inventory engine.

PURPOSE:
  Tracks products, categories, sales, and the stock ledger. The stock_logs
  ledger is the source of truth for every quantity change; the product's
  stock_quantity column is a cached projection that is only ever written in
  the same transaction as a ledger append.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product/Category/SaleRecord/StockLogEntry: the persisted domain model
  - Stock log reasons: structured tags for ledger entries
  - Clock: injected time source so tests control timestamps

DESIGN PRINCIPLES:
  1. Ledger first: stock never changes without a StockLogEntry
  2. Precision: decimal.Decimal for all money, never float64
  3. Type safety: distinct ID types prevent mixing product/category IDs
  4. Explicit dependencies: stores and clocks are passed in, never global

SEE ALSO:
  - engine.go:    stock-affecting operations (sale, restock, adjust)
  - catalog.go:   product/category lifecycle
  - reporting.go: read-only dashboard aggregates
  - store.go:     persistence contract
*/
package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID int64
type CategoryID int64
type SaleID int64

// =============================================================================
// DOMAIN MODEL
// =============================================================================

// Category groups products. Names are unique and categories are never
// deleted in normal operation (products reference them).
type Category struct {
	ID        CategoryID
	Name      string
	CreatedAt time.Time
}

// Product is the catalog entry plus its cached stock projection.
//
// INVARIANT: StockQuantity equals the sum of all StockLogEntry.ChangeAmount
// values for this product. The two are only ever written together, inside
// one store transaction.
type Product struct {
	ID               ProductID
	Name             string
	SKU              string
	CategoryID       CategoryID
	UnitPrice        decimal.Decimal // selling price, > 0
	UnitCost         decimal.Decimal // purchasing price, >= 0
	StockQuantity    int             // >= 0, cached projection of the ledger
	ReorderThreshold int             // low-stock flag level, >= 0
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p Product) LowStock() bool {
	return p.StockQuantity <= p.ReorderThreshold
}

// ProductWithCategory is a product joined with its category name, as
// returned by list and get reads.
type ProductWithCategory struct {
	Product
	CategoryName string
}

// SaleRecord is immutable once created. Only the stock engine writes sales,
// in the same transaction as the stock decrement and ledger append.
type SaleRecord struct {
	ID          SaleID
	ProductID   ProductID
	Quantity    int // > 0
	TotalAmount decimal.Decimal
	SaleTime    time.Time
}

// SaleWithProduct is a sale joined with product name/sku for history views.
type SaleWithProduct struct {
	SaleRecord
	ProductName string
	ProductSKU  string
}

// StockLogEntry is one row of the append-only stock ledger.
// Entries are never updated or deleted.
type StockLogEntry struct {
	ID           int64
	ProductID    ProductID
	ChangeAmount int // signed, never zero
	Reason       string
	Timestamp    time.Time
}

// =============================================================================
// LEDGER REASONS
// =============================================================================

const (
	ReasonInitialStock  = "Initial stock"
	ReasonManualRestock = "Manual restock"
	ReasonAdjustment    = "Stock adjustment"
	ReasonReduction     = "Stock reduction"
)

// SaleReason is the ledger reason for a sale's stock decrement. It
// references the sale row so the ledger can be traced back to the order.
func SaleReason(id SaleID) string {
	return fmt.Sprintf("Sale #%d", id)
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock supplies timestamps to the engine, catalog, and reporter.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock. Always UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock returns a constant time. For tests.
type FixedClock struct {
	Time time.Time
}

func (c FixedClock) Now() time.Time { return c.Time }
