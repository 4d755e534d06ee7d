package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartims/inventory-engine/inventory"
	"github.com/smartims/inventory-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCategory(t *testing.T, s *sqlite.Store, name string) inventory.CategoryID {
	t.Helper()
	id, err := s.InsertCategory(context.Background(), name, time.Now().UTC())
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, s *sqlite.Store, catID inventory.CategoryID, sku string, stock int) inventory.ProductID {
	t.Helper()
	now := time.Now().UTC()
	var id inventory.ProductID
	err := s.WithTx(context.Background(), func(tx inventory.Tx) error {
		var err error
		id, err = tx.InsertProduct(context.Background(), inventory.Product{
			Name:             "Widget " + sku,
			SKU:              sku,
			CategoryID:       catID,
			UnitPrice:        decimal.RequireFromString("10.00"),
			UnitCost:         decimal.RequireFromString("4.00"),
			StockQuantity:    stock,
			ReorderThreshold: 5,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		return err
	})
	require.NoError(t, err)
	return id
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestStore_ProductRoundTrip(t *testing.T) {
	// GIVEN: A product inserted through a transaction
	// WHEN: Reading it back
	// THEN: Every field survives, including decimal precision

	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Electronics")
	id := seedProduct(t, s, catID, "ELEC-001", 7)

	p, err := s.GetProduct(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "Widget ELEC-001", p.Name)
	assert.Equal(t, "ELEC-001", p.SKU)
	assert.Equal(t, "Electronics", p.CategoryName)
	assert.True(t, p.UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, p.UnitCost.Equal(decimal.RequireFromString("4.00")))
	assert.Equal(t, 7, p.StockQuantity)
	assert.Equal(t, 5, p.ReorderThreshold)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestStore_GetProduct_Absent(t *testing.T) {
	s := newTestStore(t)

	p, err := s.GetProduct(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, p, "absent product must be (nil, nil)")
}

func TestStore_ListProducts_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Electronics")
	seedProduct(t, s, catID, "MOUSE-01", 50)
	lowID := seedProduct(t, s, catID, "KEYB-01", 2)

	all, err := s.ListProducts(ctx, inventory.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySearch, err := s.ListProducts(ctx, inventory.ProductFilter{Search: "mouse"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "MOUSE-01", bySearch[0].SKU)

	low, err := s.ListProducts(ctx, inventory.ProductFilter{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, lowID, low[0].ID)
}

// =============================================================================
// CONSTRAINT BACKSTOP TESTS
// =============================================================================

func TestStore_DuplicateSKU_ConflictError(t *testing.T) {
	// GIVEN: A product with sku DUP-01
	// WHEN: Inserting a second row with the same sku
	// THEN: The UNIQUE violation surfaces as ConflictError, not a driver error

	s := newTestStore(t)
	catID := seedCategory(t, s, "Books")
	seedProduct(t, s, catID, "DUP-01", 1)

	now := time.Now().UTC()
	err := s.WithTx(context.Background(), func(tx inventory.Tx) error {
		_, err := tx.InsertProduct(context.Background(), inventory.Product{
			Name: "Copy", SKU: "DUP-01", CategoryID: catID,
			UnitPrice: decimal.RequireFromString("1.00"),
			CreatedAt: now, UpdatedAt: now,
		})
		return err
	})

	require.Error(t, err)
	var conflict *inventory.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.True(t, inventory.IsConflict(err))
}

func TestStore_DuplicateCategoryName_ConflictError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertCategory(ctx, "Books", time.Now().UTC())
	require.NoError(t, err)

	_, err = s.InsertCategory(ctx, "Books", time.Now().UTC())
	assert.True(t, inventory.IsConflict(err))
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestStore_WithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that updates stock then fails
	// WHEN: WithTx returns the error
	// THEN: The stock write did not survive

	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Books")
	id := seedProduct(t, s, catID, "TX-01", 10)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx inventory.Tx) error {
		if err := tx.UpdateProductStock(ctx, id, 99, time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockQuantity, "rolled-back write must not persist")
}

func TestStore_WithTx_RollbackOnPanic(t *testing.T) {
	// GIVEN: A transaction that writes stock then panics
	// WHEN: The panic propagates out of WithTx
	// THEN: The deferred rollback discards the write and the store stays usable

	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Books")
	id := seedProduct(t, s, catID, "PANIC-01", 10)

	func() {
		defer func() {
			require.Equal(t, "boom", recover(), "panic must propagate")
		}()
		_ = s.WithTx(ctx, func(tx inventory.Tx) error {
			if err := tx.UpdateProductStock(ctx, id, 99, time.Now().UTC()); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	p, err := s.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockQuantity, "stock write must not survive the panic")

	// The store mutex and connection must have been released
	_, err = s.InsertCategory(ctx, "Magazines", time.Now().UTC())
	assert.NoError(t, err)
}

func TestStore_WithTx_SaleEffectsAtomic(t *testing.T) {
	// GIVEN: A sale written as decrement + sale row + ledger entry
	// WHEN: The transaction commits
	// THEN: All three effects are visible together

	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Books")
	id := seedProduct(t, s, catID, "SALE-01", 5)

	now := time.Now().UTC()
	err := s.WithTx(ctx, func(tx inventory.Tx) error {
		if err := tx.UpdateProductStock(ctx, id, 2, now); err != nil {
			return err
		}
		saleID, err := tx.InsertSale(ctx, inventory.SaleRecord{
			ProductID: id, Quantity: 3,
			TotalAmount: decimal.RequireFromString("30.00"),
			SaleTime:    now,
		})
		if err != nil {
			return err
		}
		return tx.AppendStockLog(ctx, inventory.StockLogEntry{
			ProductID: id, ChangeAmount: -3,
			Reason: inventory.SaleReason(saleID), Timestamp: now,
		})
	})
	require.NoError(t, err)

	p, err := s.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, p.StockQuantity)

	count, err := s.CountSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entries, err := s.StockLogEntries(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, -3, entries[0].ChangeAmount)
	assert.Equal(t, "Sale #1", entries[0].Reason)
}

func TestStore_UpdateProductFields_Partial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Books")
	id := seedProduct(t, s, catID, "UPD-01", 5)

	name := "Renamed"
	price := decimal.RequireFromString("19.99")
	err := s.WithTx(ctx, func(tx inventory.Tx) error {
		return tx.UpdateProductFields(ctx, id, inventory.ProductFieldUpdate{
			Name:      &name,
			UnitPrice: &price,
		}, time.Now().UTC())
	})
	require.NoError(t, err)

	p, err := s.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
	assert.True(t, p.UnitPrice.Equal(price))
	assert.Equal(t, "UPD-01", p.SKU, "unset fields stay untouched")
	assert.Equal(t, 5, p.StockQuantity)
}

// =============================================================================
// TIME WINDOW TESTS
// =============================================================================

func TestStore_SalesBetween_HalfOpenInterval(t *testing.T) {
	// GIVEN: Sales exactly at the from and to boundaries
	// WHEN: Querying [from, to)
	// THEN: The from boundary is included, the to boundary is not

	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Books")
	id := seedProduct(t, s, catID, "WIN-01", 100)

	from := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC)

	insertSaleAt := func(at time.Time) {
		err := s.WithTx(ctx, func(tx inventory.Tx) error {
			_, err := tx.InsertSale(ctx, inventory.SaleRecord{
				ProductID: id, Quantity: 1,
				TotalAmount: decimal.RequireFromString("10.00"),
				SaleTime:    at,
			})
			return err
		})
		require.NoError(t, err)
	}

	insertSaleAt(from.Add(-time.Second)) // before window
	insertSaleAt(from)                   // inclusive lower bound
	insertSaleAt(from.Add(time.Hour))    // inside
	insertSaleAt(to)                     // exclusive upper bound

	sales, err := s.SalesBetween(ctx, from, to)
	require.NoError(t, err)
	assert.Len(t, sales, 2)
}

func TestStore_SalesBetween_FractionalSecondsCompareChronologically(t *testing.T) {
	// GIVEN: Sales with fractional-second timestamps near the window edges
	// WHEN: Querying [from, to) where the bounds fall on whole seconds
	// THEN: String comparison on stored timestamps still matches time order

	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Books")
	id := seedProduct(t, s, catID, "FRAC-01", 100)

	from := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	insertSaleAt := func(at time.Time) {
		err := s.WithTx(ctx, func(tx inventory.Tx) error {
			_, err := tx.InsertSale(ctx, inventory.SaleRecord{
				ProductID: id, Quantity: 1,
				TotalAmount: decimal.RequireFromString("10.00"),
				SaleTime:    at,
			})
			return err
		})
		require.NoError(t, err)
	}

	insertSaleAt(from.Add(500 * time.Millisecond)) // first second of the window
	insertSaleAt(from.Add(time.Second))            // whole second inside
	insertSaleAt(to.Add(-time.Nanosecond))         // last instant inside
	insertSaleAt(to.Add(250 * time.Millisecond))   // past the upper bound

	sales, err := s.SalesBetween(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, sales, 3)

	// Ascending by sale time, fractional seconds included
	assert.True(t, sales[0].SaleTime.Equal(from.Add(500*time.Millisecond)))
	assert.True(t, sales[1].SaleTime.Equal(from.Add(time.Second)))
	assert.True(t, sales[2].SaleTime.Equal(to.Add(-time.Nanosecond)))
}

// =============================================================================
// ENGINE-ON-SQLITE TESTS
// =============================================================================

func TestEngine_OnSQLite_LedgerReconciles(t *testing.T) {
	// GIVEN: The stock engine running on a real SQLite store
	// WHEN: Mixing sales, restocks, and adjustments
	// THEN: The ledger replay equals the cached projection

	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Electronics")
	id := seedProduct(t, s, catID, "ENG-01", 20)
	engine := inventory.NewStockEngine(s, nil)

	_, err := engine.RecordSale(ctx, id, 7)
	require.NoError(t, err)
	_, err = engine.Restock(ctx, id, 12, "")
	require.NoError(t, err)
	_, err = engine.AdjustStock(ctx, id, 18)
	require.NoError(t, err)

	p, err := s.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 18, p.StockQuantity)

	entries, err := s.StockLogEntries(ctx, id)
	require.NoError(t, err)
	sum := 0
	for _, e := range entries {
		sum += e.ChangeAmount
	}
	// Seeded stock bypassed the ledger, so replay covers the delta from 20.
	assert.Equal(t, p.StockQuantity-20, sum)
}

func TestEngine_OnSQLite_ConcurrentSales_NeverOversell(t *testing.T) {
	// GIVEN: Product with stock 10 in SQLite
	// WHEN: 30 goroutines each sell 1 unit
	// THEN: Exactly 10 succeed and the projection reaches 0

	s := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, s, "Electronics")
	id := seedProduct(t, s, catID, "CONC-01", 10)
	engine := inventory.NewStockEngine(s, nil)

	const attempts = 30
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.RecordSale(ctx, id, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, inventory.IsInsufficientStock(err), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 10, succeeded)

	p, err := s.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.StockQuantity)

	count, err := s.CountSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
}
