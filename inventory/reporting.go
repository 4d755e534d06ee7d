/*
reporting.go - Read-only dashboard aggregates

PURPOSE:
  Computes dashboard statistics and sales history from the store's current
  snapshot. Pure read path: no transaction, no caching, no invariants to
  maintain beyond reflecting a consistent snapshot.

TREND SEMANTICS:
  The 7-day sales trend covers the trailing 7 calendar days including
  today. Day boundaries are calendar dates from the injected clock, not
  rolling 24h windows. Days with no sales report an explicit zero.
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORTING AGGREGATOR
// =============================================================================

// Reporter answers read-only dashboard queries.
type Reporter struct {
	store Store
	clock Clock
}

// NewReporter creates a reporter. A nil clock defaults to SystemClock.
func NewReporter(store Store, clock Clock) *Reporter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Reporter{store: store, clock: clock}
}

// TrendPoint is one calendar day of the sales trend.
type TrendPoint struct {
	Date  string // YYYY-MM-DD
	Value decimal.Decimal
}

// Stats is the dashboard summary.
type Stats struct {
	TotalValue    decimal.Decimal // sum(unit_price * stock_quantity)
	TotalProfit   decimal.Decimal // sum((unit_price - unit_cost) * stock_quantity)
	LowStockCount int
	TotalOrders   int64
	SalesTrend    []TrendPoint // exactly 7 points, oldest first
}

const trendDays = 7

// DashboardStats computes the dashboard summary from the current snapshot.
func (r *Reporter) DashboardStats(ctx context.Context) (*Stats, error) {
	products, err := r.store.ListProducts(ctx, ProductFilter{})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalValue:  decimal.Zero,
		TotalProfit: decimal.Zero,
	}
	for _, p := range products {
		qty := decimal.NewFromInt(int64(p.StockQuantity))
		stats.TotalValue = stats.TotalValue.Add(p.UnitPrice.Mul(qty))
		stats.TotalProfit = stats.TotalProfit.Add(p.UnitPrice.Sub(p.UnitCost).Mul(qty))
		if p.LowStock() {
			stats.LowStockCount++
		}
	}

	stats.TotalOrders, err = r.store.CountSales(ctx)
	if err != nil {
		return nil, err
	}

	stats.SalesTrend, err = r.salesTrend(ctx)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// salesTrend buckets sale totals by calendar date over the trailing week.
func (r *Reporter) salesTrend(ctx context.Context) ([]TrendPoint, error) {
	now := r.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(trendDays - 1))
	end := today.AddDate(0, 0, 1)

	sales, err := r.store.SalesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]decimal.Decimal, trendDays)
	for _, s := range sales {
		key := s.SaleTime.In(now.Location()).Format("2006-01-02")
		byDate[key] = byDate[key].Add(s.TotalAmount)
	}

	trend := make([]TrendPoint, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		value, ok := byDate[day]
		if !ok {
			value = decimal.Zero
		}
		trend = append(trend, TrendPoint{Date: day, Value: value})
	}
	return trend, nil
}

// DefaultHistoryLimit bounds SalesHistory when the caller passes no limit.
const DefaultHistoryLimit = 100

// SalesHistory returns the most recent sales joined with product name/sku,
// newest first.
func (r *Reporter) SalesHistory(ctx context.Context, limit int) ([]SaleWithProduct, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return r.store.ListSales(ctx, limit)
}
