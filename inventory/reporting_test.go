package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartims/inventory-engine/inventory"
)

// =============================================================================
// DASHBOARD STATS TESTS
// =============================================================================

func TestDashboardStats_WorkedExample(t *testing.T) {
	// GIVEN: Two products:
	//   A: price 10.00, cost 4.00, stock 10, threshold 5
	//   B: price 25.00, cost 15.00, stock 2, threshold 5 (low)
	// WHEN: Computing dashboard stats
	// THEN: total_value 150.00, total_profit 80.00, low_stock_count 1

	f := newFixture(t)
	ctx := context.Background()
	reporter := inventory.NewReporter(f.store, f.clock)

	cat, err := f.catalog.CreateCategory(ctx, "Electronics")
	require.NoError(t, err)

	_, err = f.catalog.CreateProduct(ctx, inventory.CreateProductInput{
		Name: "A", SKU: "A-001", CategoryID: cat.ID,
		UnitPrice: mustDecimal(t, "10.00"), UnitCost: mustDecimal(t, "4.00"),
		InitialStock: 10, ReorderThreshold: 5,
	})
	require.NoError(t, err)

	_, err = f.catalog.CreateProduct(ctx, inventory.CreateProductInput{
		Name: "B", SKU: "B-001", CategoryID: cat.ID,
		UnitPrice: mustDecimal(t, "25.00"), UnitCost: mustDecimal(t, "15.00"),
		InitialStock: 2, ReorderThreshold: 5,
	})
	require.NoError(t, err)

	stats, err := reporter.DashboardStats(ctx)
	require.NoError(t, err)

	assert.True(t, stats.TotalValue.Equal(mustDecimal(t, "150.00")),
		"expected total value 150.00, got %s", stats.TotalValue)
	assert.True(t, stats.TotalProfit.Equal(mustDecimal(t, "80.00")),
		"expected total profit 80.00, got %s", stats.TotalProfit)
	assert.Equal(t, 1, stats.LowStockCount)
	assert.Equal(t, int64(0), stats.TotalOrders)
}

func TestDashboardStats_EmptyStore(t *testing.T) {
	f := newFixture(t)
	reporter := inventory.NewReporter(f.store, f.clock)

	stats, err := reporter.DashboardStats(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.TotalValue.IsZero())
	assert.True(t, stats.TotalProfit.IsZero())
	assert.Zero(t, stats.LowStockCount)
	assert.Zero(t, stats.TotalOrders)
	assert.Len(t, stats.SalesTrend, 7, "trend always has 7 points")
}

// =============================================================================
// SALES TREND TESTS
// =============================================================================

func TestSalesTrend_BucketsByCalendarDay_ZeroFilled(t *testing.T) {
	// GIVEN: Sales on day-6, day-2, and today; none on the other days
	// WHEN: Computing the 7-day trend
	// THEN: 7 points oldest first, sale days carry totals, the rest are zero

	f := newFixture(t)
	ctx := context.Background()
	reporter := inventory.NewReporter(f.store, f.clock)

	id := f.seedProduct(t, "10.00", 100)
	today := f.clock.Time

	// Two sales six days ago
	f.clock.Time = today.AddDate(0, 0, -6)
	_, err := f.engine.RecordSale(ctx, id, 2) // 20.00
	require.NoError(t, err)
	_, err = f.engine.RecordSale(ctx, id, 1) // 10.00
	require.NoError(t, err)

	// One sale two days ago
	f.clock.Time = today.AddDate(0, 0, -2)
	_, err = f.engine.RecordSale(ctx, id, 5) // 50.00
	require.NoError(t, err)

	// One sale today, and one just outside the window (8 days ago)
	f.clock.Time = today.AddDate(0, 0, -8)
	_, err = f.engine.RecordSale(ctx, id, 4)
	require.NoError(t, err)
	f.clock.Time = today
	_, err = f.engine.RecordSale(ctx, id, 3) // 30.00
	require.NoError(t, err)

	stats, err := reporter.DashboardStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.SalesTrend, 7)

	wantDates := make([]string, 7)
	for i := 0; i < 7; i++ {
		wantDates[i] = today.AddDate(0, 0, i-6).Format("2006-01-02")
	}
	wantValues := []string{"30", "0", "0", "0", "50", "0", "30"}

	for i, point := range stats.SalesTrend {
		assert.Equal(t, wantDates[i], point.Date, "point %d date", i)
		assert.True(t, point.Value.Equal(mustDecimal(t, wantValues[i])),
			"point %d: expected %s, got %s", i, wantValues[i], point.Value)
	}

	// All five sales still count as orders
	assert.Equal(t, int64(5), stats.TotalOrders)
}

func TestSalesTrend_DayBoundaries(t *testing.T) {
	// GIVEN: A sale at 23:59 six days ago and one at 00:00 today
	// WHEN: Computing the trend
	// THEN: Each lands in its own calendar-day bucket

	f := newFixture(t)
	ctx := context.Background()
	reporter := inventory.NewReporter(f.store, f.clock)

	id := f.seedProduct(t, "10.00", 100)
	today := f.clock.Time
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	f.clock.Time = midnight.AddDate(0, 0, -6).Add(23*time.Hour + 59*time.Minute)
	_, err := f.engine.RecordSale(ctx, id, 1)
	require.NoError(t, err)

	f.clock.Time = midnight
	_, err = f.engine.RecordSale(ctx, id, 2)
	require.NoError(t, err)
	f.clock.Time = today

	stats, err := reporter.DashboardStats(ctx)
	require.NoError(t, err)

	assert.True(t, stats.SalesTrend[0].Value.Equal(mustDecimal(t, "10")))
	assert.True(t, stats.SalesTrend[6].Value.Equal(mustDecimal(t, "20")))
}

// =============================================================================
// SALES HISTORY TESTS
// =============================================================================

func TestSalesHistory_NewestFirst_DefaultLimit(t *testing.T) {
	// GIVEN: Three sales across three days
	// WHEN: Fetching history with no limit
	// THEN: Newest first, joined with product name/sku

	f := newFixture(t)
	ctx := context.Background()
	reporter := inventory.NewReporter(f.store, f.clock)

	id := f.seedProduct(t, "10.00", 100)
	today := f.clock.Time

	for _, offset := range []int{-2, -1, 0} {
		f.clock.Time = today.AddDate(0, 0, offset)
		_, err := f.engine.RecordSale(ctx, id, 1)
		require.NoError(t, err)
	}

	sales, err := reporter.SalesHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sales, 3)

	assert.Equal(t, "Widget", sales[0].ProductName)
	assert.True(t, sales[0].SaleTime.After(sales[1].SaleTime))
	assert.True(t, sales[1].SaleTime.After(sales[2].SaleTime))
}

func TestSalesHistory_LimitApplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reporter := inventory.NewReporter(f.store, f.clock)

	id := f.seedProduct(t, "10.00", 100)
	for i := 0; i < 5; i++ {
		_, err := f.engine.RecordSale(ctx, id, 1)
		require.NoError(t, err)
	}

	sales, err := reporter.SalesHistory(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, sales, 2)
}
