/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract: prices are
  decimal internally and float64 at the JSON boundary, timestamps are
  RFC3339 strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (required fields, ranges) lives in the domain
  inputs; DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartims/inventory-engine/inventory"
)

// =============================================================================
// PRODUCT TYPES
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	CategoryID    int64   `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	Price         float64 `json:"price"`
	PurchasePrice float64 `json:"purchasing_price"`
	StockQuantity int     `json:"stock_quantity"`
	MinStockLevel int     `json:"min_stock_level"`
	LowStock      bool    `json:"low_stock"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toProductDTO(p inventory.ProductWithCategory) ProductDTO {
	return ProductDTO{
		ID:            int64(p.ID),
		Name:          p.Name,
		SKU:           p.SKU,
		CategoryID:    int64(p.CategoryID),
		CategoryName:  p.CategoryName,
		Price:         p.UnitPrice.InexactFloat64(),
		PurchasePrice: p.UnitCost.InexactFloat64(),
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.ReorderThreshold,
		LowStock:      p.LowStock(),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateProductRequest is the request to create a product.
type CreateProductRequest struct {
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	CategoryID    int64   `json:"category_id"`
	Price         float64 `json:"price"`
	PurchasePrice float64 `json:"purchasing_price"`
	StockQuantity int     `json:"stock_quantity"`
	MinStockLevel int     `json:"min_stock_level"`
}

// UpdateProductRequest is a partial product update. Absent fields are
// left untouched; a present stock_quantity goes through adjust semantics.
type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	SKU           *string  `json:"sku"`
	CategoryID    *int64   `json:"category_id"`
	Price         *float64 `json:"price"`
	PurchasePrice *float64 `json:"purchasing_price"`
	StockQuantity *int     `json:"stock_quantity"`
	MinStockLevel *int     `json:"min_stock_level"`
}

// =============================================================================
// CATEGORY TYPES
// =============================================================================

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toCategoryDTO(c inventory.Category) CategoryDTO {
	return CategoryDTO{
		ID:        int64(c.ID),
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// CreateCategoryRequest is the request to create a category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// SALE TYPES
// =============================================================================

// AddSaleRequest records a sale of a product.
type AddSaleRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AddSaleResponse reports a recorded sale.
type AddSaleResponse struct {
	Success        bool    `json:"success"`
	SaleID         int64   `json:"sale_id"`
	Message        string  `json:"message"`
	TotalPrice     float64 `json:"total_price"`
	RemainingStock int     `json:"remaining_stock"`
}

// SaleDTO represents a sale in API responses.
type SaleDTO struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	ProductSKU  string  `json:"product_sku"`
	Quantity    int     `json:"quantity"`
	TotalAmount float64 `json:"total_amount"`
	SaleTime    string  `json:"sale_time"`
}

func toSaleDTO(s inventory.SaleWithProduct) SaleDTO {
	return SaleDTO{
		ID:          int64(s.ID),
		ProductID:   int64(s.ProductID),
		ProductName: s.ProductName,
		ProductSKU:  s.ProductSKU,
		Quantity:    s.Quantity,
		TotalAmount: s.TotalAmount.InexactFloat64(),
		SaleTime:    s.SaleTime.Format(time.RFC3339),
	}
}

// =============================================================================
// STOCK TYPES
// =============================================================================

// RestockRequest increases a product's stock.
type RestockRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason,omitempty"`
}

// RestockResponse reports the stock level after a restock.
type RestockResponse struct {
	Success  bool   `json:"success"`
	NewStock int    `json:"new_stock"`
	Message  string `json:"message"`
}

// StockLogDTO is one ledger entry in API responses.
type StockLogDTO struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product_id"`
	ChangeAmount int    `json:"change_amount"`
	Reason       string `json:"reason"`
	Timestamp    string `json:"timestamp"`
}

func toStockLogDTO(e inventory.StockLogEntry) StockLogDTO {
	return StockLogDTO{
		ID:           e.ID,
		ProductID:    int64(e.ProductID),
		ChangeAmount: e.ChangeAmount,
		Reason:       e.Reason,
		Timestamp:    e.Timestamp.Format(time.RFC3339),
	}
}

// =============================================================================
// DASHBOARD TYPES
// =============================================================================

// TrendPointDTO is one calendar day of the sales trend.
type TrendPointDTO struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// DashboardStatsDTO is the dashboard summary.
type DashboardStatsDTO struct {
	TotalValue    float64         `json:"total_value"`
	TotalProfit   float64         `json:"total_profit"`
	LowStockCount int             `json:"low_stock_count"`
	TotalOrders   int64           `json:"total_orders"`
	SalesTrend    []TrendPointDTO `json:"sales_trend"`
}

func toDashboardDTO(s *inventory.Stats) DashboardStatsDTO {
	trend := make([]TrendPointDTO, len(s.SalesTrend))
	for i, p := range s.SalesTrend {
		trend[i] = TrendPointDTO{Date: p.Date, Value: p.Value.InexactFloat64()}
	}
	return DashboardStatsDTO{
		TotalValue:    s.TotalValue.InexactFloat64(),
		TotalProfit:   s.TotalProfit.InexactFloat64(),
		LowStockCount: s.LowStockCount,
		TotalOrders:   s.TotalOrders,
		SalesTrend:    trend,
	}
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// priceFromFloat converts a JSON price into the internal decimal type.
func priceFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
