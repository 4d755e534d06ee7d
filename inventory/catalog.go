/*
catalog.go - Catalog manager: product and category lifecycle

PURPOSE:
  Owns product/category creation and descriptive updates. Quantity fields
  are NOT written here directly: a product update that includes
  stock_quantity routes through the stock engine's adjust semantics inside
  the same transaction, so the ledger discipline holds no matter which
  surface triggered the change.

VALIDATION:
  Field-level validation happens before the transaction opens; checks that
  need row state (sku uniqueness, category existence) run inside it. The
  store's unique constraints remain the backstop for race-lost checks.

PARTIAL UPDATES:
  UpdateProduct takes optional pointer fields resolved into fixed store
  calls - no dynamically assembled SQL, no untyped field dispatch.
*/
package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG MANAGER
// =============================================================================

// Catalog manages product and category lifecycle.
type Catalog struct {
	store  Store
	engine *StockEngine
	clock  Clock
}

// NewCatalog creates a catalog manager. A nil clock defaults to SystemClock.
func NewCatalog(store Store, engine *StockEngine, clock Clock) *Catalog {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Catalog{store: store, engine: engine, clock: clock}
}

// =============================================================================
// PRODUCT CREATION
// =============================================================================

// CreateProductInput holds all fields for a new product.
type CreateProductInput struct {
	Name             string
	SKU              string
	CategoryID       CategoryID
	UnitPrice        decimal.Decimal
	UnitCost         decimal.Decimal
	InitialStock     int
	ReorderThreshold int
}

func (in *CreateProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)

	switch {
	case in.Name == "":
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	case in.SKU == "":
		return &ValidationError{Field: "sku", Message: "cannot be empty"}
	case !in.UnitPrice.IsPositive():
		return &ValidationError{Field: "price", Message: "must be greater than 0"}
	case in.UnitCost.IsNegative():
		return &ValidationError{Field: "purchasing_price", Message: "cannot be negative"}
	case in.InitialStock < 0:
		return &ValidationError{Field: "stock_quantity", Message: "cannot be negative"}
	case in.ReorderThreshold < 0:
		return &ValidationError{Field: "min_stock_level", Message: "cannot be negative"}
	}
	return nil
}

// CreateProduct inserts a product. If the initial stock is positive, the
// "Initial stock" ledger entry lands in the same transaction as the row.
func (c *Catalog) CreateProduct(ctx context.Context, in CreateProductInput) (*ProductWithCategory, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created ProductWithCategory
	err := c.store.WithTx(ctx, func(tx Tx) error {
		if _, taken, err := tx.FindProductIDBySKU(ctx, in.SKU); err != nil {
			return err
		} else if taken {
			return &ConflictError{Field: "sku", Value: in.SKU}
		}

		cat, err := tx.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if cat == nil {
			return &NotFoundError{Kind: "category", ID: int64(in.CategoryID)}
		}

		now := c.clock.Now()
		p := Product{
			Name:             in.Name,
			SKU:              in.SKU,
			CategoryID:       in.CategoryID,
			UnitPrice:        in.UnitPrice,
			UnitCost:         in.UnitCost,
			StockQuantity:    in.InitialStock,
			ReorderThreshold: in.ReorderThreshold,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		id, err := tx.InsertProduct(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id

		if in.InitialStock > 0 {
			if err := tx.AppendStockLog(ctx, StockLogEntry{
				ProductID:    id,
				ChangeAmount: in.InitialStock,
				Reason:       ReasonInitialStock,
				Timestamp:    now,
			}); err != nil {
				return err
			}
		}

		created = ProductWithCategory{Product: p, CategoryName: cat.Name}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// =============================================================================
// PRODUCT UPDATE
// =============================================================================

// UpdateProductInput is a partial update: nil fields are left untouched.
type UpdateProductInput struct {
	Name             *string
	SKU              *string
	CategoryID       *CategoryID
	UnitPrice        *decimal.Decimal
	UnitCost         *decimal.Decimal
	StockQuantity    *int
	ReorderThreshold *int
}

func (in *UpdateProductInput) empty() bool {
	return in.Name == nil && in.SKU == nil && in.CategoryID == nil &&
		in.UnitPrice == nil && in.UnitCost == nil &&
		in.StockQuantity == nil && in.ReorderThreshold == nil
}

func (in *UpdateProductInput) validate() error {
	if in.empty() {
		return &ValidationError{Field: "fields", Message: "no fields to update"}
	}
	if in.Name != nil {
		*in.Name = strings.TrimSpace(*in.Name)
		if *in.Name == "" {
			return &ValidationError{Field: "name", Message: "cannot be empty"}
		}
	}
	if in.SKU != nil {
		*in.SKU = strings.TrimSpace(*in.SKU)
		if *in.SKU == "" {
			return &ValidationError{Field: "sku", Message: "cannot be empty"}
		}
	}
	if in.UnitPrice != nil && !in.UnitPrice.IsPositive() {
		return &ValidationError{Field: "price", Message: "must be greater than 0"}
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return &ValidationError{Field: "purchasing_price", Message: "cannot be negative"}
	}
	if in.StockQuantity != nil && *in.StockQuantity < 0 {
		return &ValidationError{Field: "stock_quantity", Message: "cannot be negative"}
	}
	if in.ReorderThreshold != nil && *in.ReorderThreshold < 0 {
		return &ValidationError{Field: "min_stock_level", Message: "cannot be negative"}
	}
	return nil
}

// UpdateProduct applies a partial update. Descriptive fields are written
// directly; a provided stock_quantity goes through the stock engine's
// delta-and-ledger semantics in the same transaction. Updating stock to
// its current value writes no ledger entry.
func (c *Catalog) UpdateProduct(ctx context.Context, id ProductID, in UpdateProductInput) error {
	if err := in.validate(); err != nil {
		return err
	}

	return c.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Kind: "product", ID: int64(id)}
		}

		if in.SKU != nil {
			// Uniqueness check excludes the product's own row.
			owner, taken, err := tx.FindProductIDBySKU(ctx, *in.SKU)
			if err != nil {
				return err
			}
			if taken && owner != id {
				return &ConflictError{Field: "sku", Value: *in.SKU}
			}
		}

		if in.CategoryID != nil {
			cat, err := tx.GetCategory(ctx, *in.CategoryID)
			if err != nil {
				return err
			}
			if cat == nil {
				return &NotFoundError{Kind: "category", ID: int64(*in.CategoryID)}
			}
		}

		now := c.clock.Now()

		fields := ProductFieldUpdate{
			Name:             in.Name,
			SKU:              in.SKU,
			CategoryID:       in.CategoryID,
			UnitPrice:        in.UnitPrice,
			UnitCost:         in.UnitCost,
			ReorderThreshold: in.ReorderThreshold,
		}
		if fields != (ProductFieldUpdate{}) {
			if err := tx.UpdateProductFields(ctx, id, fields, now); err != nil {
				return err
			}
		}

		if in.StockQuantity != nil {
			return c.engine.adjustStockTx(ctx, tx, p, *in.StockQuantity, now)
		}
		return nil
	})
}

// =============================================================================
// READS
// =============================================================================

// GetProduct returns a product joined with its category name.
func (c *Catalog) GetProduct(ctx context.Context, id ProductID) (*ProductWithCategory, error) {
	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &NotFoundError{Kind: "product", ID: int64(id)}
	}
	return p, nil
}

// ListProducts returns products matching the filter, sorted by name.
func (c *Catalog) ListProducts(ctx context.Context, filter ProductFilter) ([]ProductWithCategory, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return c.store.ListProducts(ctx, filter)
}

// =============================================================================
// CATEGORIES
// =============================================================================

// CreateCategory adds a category. Duplicate names return Conflict.
func (c *Catalog) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "cannot be empty"}
	}

	now := c.clock.Now()
	id, err := c.store.InsertCategory(ctx, name, now)
	if err != nil {
		return nil, err
	}
	return &Category{ID: id, Name: name, CreatedAt: now}, nil
}

// ListCategories returns all categories sorted by name.
func (c *Catalog) ListCategories(ctx context.Context) ([]Category, error) {
	return c.store.ListCategories(ctx)
}
