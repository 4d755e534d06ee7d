/*
engine.go - Stock engine: all quantity transitions

PURPOSE:
  The stock engine is the sole writer of sales and stock_logs, and the only
  component allowed to change a product's stock quantity. Each operation is
  one atomic unit against the store:

    RecordSale   read stock -> check sufficiency -> decrement -> insert sale
                 -> append ledger entry
    Restock      read stock -> increment -> append ledger entry
    AdjustStock  read stock -> compute delta -> write -> append ledger entry
                 (zero delta appends nothing)

CRITICAL INVARIANTS:
  1. Stock never changes without a ledger entry in the same transaction.
  2. Stock never goes negative; insufficiency is checked against the stock
     read inside the transaction, never a stale value.
  3. No partial effects: any failure rolls the whole operation back.

CONCURRENCY:
  The read-check-write sequence runs under one store transaction with the
  product row held for update, so two concurrent sales against the same
  product serialize rather than both passing the check against stale stock.
  The engine itself keeps no in-process state between requests.

SEE ALSO:
  - store.go:   transaction contract the engine relies on
  - catalog.go: routes stock_quantity updates through adjustStockTx
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STOCK ENGINE
// =============================================================================

// StockEngine validates and applies stock-affecting operations.
type StockEngine struct {
	store Store
	clock Clock
}

// NewStockEngine creates a stock engine. A nil clock defaults to SystemClock.
func NewStockEngine(store Store, clock Clock) *StockEngine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StockEngine{store: store, clock: clock}
}

// SaleResult reports a successful sale.
type SaleResult struct {
	SaleID         SaleID
	ProductName    string
	TotalAmount    decimal.Decimal
	RemainingStock int
}

// RecordSale sells quantity units of a product. The total amount is
// computed from the unit price read inside the transaction (a price
// snapshot at sale time). Either all four effects land - stock decrement,
// sale insert, ledger append, commit - or none do.
func (e *StockEngine) RecordSale(ctx context.Context, productID ProductID, quantity int) (*SaleResult, error) {
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: "must be greater than 0"}
	}

	var result *SaleResult
	err := e.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Kind: "product", ID: int64(productID)}
		}
		if p.StockQuantity < quantity {
			return &InsufficientStockError{
				ProductID: productID,
				Available: p.StockQuantity,
				Requested: quantity,
			}
		}

		now := e.clock.Now()
		newStock := p.StockQuantity - quantity
		total := p.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))

		if err := tx.UpdateProductStock(ctx, productID, newStock, now); err != nil {
			return err
		}

		saleID, err := tx.InsertSale(ctx, SaleRecord{
			ProductID:   productID,
			Quantity:    quantity,
			TotalAmount: total,
			SaleTime:    now,
		})
		if err != nil {
			return err
		}

		if err := tx.AppendStockLog(ctx, StockLogEntry{
			ProductID:    productID,
			ChangeAmount: -quantity,
			Reason:       SaleReason(saleID),
			Timestamp:    now,
		}); err != nil {
			return err
		}

		result = &SaleResult{
			SaleID:         saleID,
			ProductName:    p.Name,
			TotalAmount:    total,
			RemainingStock: newStock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Restock increases a product's stock by quantity and returns the new
// stock level. An empty reason defaults to "Manual restock".
func (e *StockEngine) Restock(ctx context.Context, productID ProductID, quantity int, reason string) (int, error) {
	if quantity <= 0 {
		return 0, &ValidationError{Field: "quantity", Message: "must be greater than 0"}
	}
	if reason == "" {
		reason = ReasonManualRestock
	}

	var newStock int
	err := e.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Kind: "product", ID: int64(productID)}
		}

		now := e.clock.Now()
		newStock = p.StockQuantity + quantity

		if err := tx.UpdateProductStock(ctx, productID, newStock, now); err != nil {
			return err
		}
		return tx.AppendStockLog(ctx, StockLogEntry{
			ProductID:    productID,
			ChangeAmount: quantity,
			Reason:       reason,
			Timestamp:    now,
		})
	})
	if err != nil {
		return 0, err
	}
	return newStock, nil
}

// AdjustStock sets a product's stock to newQuantity. The ledger entry
// records the signed delta; setting the current value is a no-op and
// appends nothing.
func (e *StockEngine) AdjustStock(ctx context.Context, productID ProductID, newQuantity int) (int, error) {
	if newQuantity < 0 {
		return 0, &ValidationError{Field: "stock_quantity", Message: "cannot be negative"}
	}

	err := e.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Kind: "product", ID: int64(productID)}
		}
		return e.adjustStockTx(ctx, tx, p, newQuantity, e.clock.Now())
	})
	if err != nil {
		return 0, err
	}
	return newQuantity, nil
}

// adjustStockTx applies AdjustStock semantics inside a caller's
// transaction. Used by the catalog manager so a product update that
// includes stock_quantity shares one transaction with the field writes.
func (e *StockEngine) adjustStockTx(ctx context.Context, tx Tx, p *Product, newQuantity int, now time.Time) error {
	delta := newQuantity - p.StockQuantity
	if delta == 0 {
		return nil
	}

	reason := ReasonAdjustment
	if delta < 0 {
		reason = ReasonReduction
	}

	if err := tx.UpdateProductStock(ctx, p.ID, newQuantity, now); err != nil {
		return err
	}
	return tx.AppendStockLog(ctx, StockLogEntry{
		ProductID:    p.ID,
		ChangeAmount: delta,
		Reason:       reason,
		Timestamp:    now,
	})
}
