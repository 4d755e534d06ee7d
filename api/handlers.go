/*
handlers.go - HTTP API handlers for the inventory system

PURPOSE:
  Exposes the inventory engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Dashboard:
    GET    /api/dashboard-stats        Totals, low-stock count, 7-day trend

  Products:
    GET    /api/products               List products (?search=, ?low_stock=)
    POST   /api/products               Create product
    GET    /api/products/{id}          Get product details
    PUT    /api/products/{id}          Partial update
    GET    /api/products/{id}/stock-logs  Stock ledger for one product

  Sales:
    POST   /api/add-sale               Record a sale atomically
    GET    /api/sales                  Recent sales history (?limit=)

  Stock:
    POST   /api/restock                Increase stock with ledger entry

  Categories:
    GET    /api/categories             List categories
    POST   /api/categories             Create category

  Health:
    GET    /api/health                 Liveness plus store reachability

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Product or category not found
  - 409: Conflict (duplicate sku/name) and insufficient stock
  - 500: Internal errors (logged, details withheld from the client)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/smartims/inventory-engine/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog  *inventory.Catalog
	Engine   *inventory.StockEngine
	Reporter *inventory.Reporter
	Store    inventory.Store
	Logger   *zap.Logger
}

// NewHandler creates a handler over the given store. A nil logger
// defaults to a no-op logger.
func NewHandler(store inventory.Store, clock inventory.Clock, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := inventory.NewStockEngine(store, clock)
	return &Handler{
		Catalog:  inventory.NewCatalog(store, engine, clock),
		Engine:   engine,
		Reporter: inventory.NewReporter(store, clock),
		Store:    store,
		Logger:   logger,
	}
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// DashboardStats returns inventory totals and the 7-day sales trend.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reporter.DashboardStats(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to compute dashboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(stats))
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns products, optionally filtered by search text or
// low-stock status.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := inventory.ProductFilter{
		Search:       r.URL.Query().Get("search"),
		LowStockOnly: r.URL.Query().Get("low_stock") == "true",
	}

	products, err := h.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct creates a product; a positive initial stock lands a
// ledger entry in the same transaction.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Catalog.CreateProduct(r.Context(), inventory.CreateProductInput{
		Name:             req.Name,
		SKU:              req.SKU,
		CategoryID:       inventory.CategoryID(req.CategoryID),
		UnitPrice:        priceFromFloat(req.Price),
		UnitCost:         priceFromFloat(req.PurchasePrice),
		InitialStock:     req.StockQuantity,
		ReorderThreshold: req.MinStockLevel,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(*created))
}

// GetProduct returns one product with its category name.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	p, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// UpdateProduct applies a partial update. A provided stock_quantity is
// applied as an adjustment with a ledger entry.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := inventory.UpdateProductInput{
		Name:             req.Name,
		SKU:              req.SKU,
		StockQuantity:    req.StockQuantity,
		ReorderThreshold: req.MinStockLevel,
	}
	if req.CategoryID != nil {
		cid := inventory.CategoryID(*req.CategoryID)
		in.CategoryID = &cid
	}
	if req.Price != nil {
		price := priceFromFloat(*req.Price)
		in.UnitPrice = &price
	}
	if req.PurchasePrice != nil {
		cost := priceFromFloat(*req.PurchasePrice)
		in.UnitCost = &cost
	}

	if err := h.Catalog.UpdateProduct(r.Context(), id, in); err != nil {
		h.writeDomainError(w, "Failed to update product", err)
		return
	}

	updated, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to load updated product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*updated))
}

// ProductStockLogs returns the full stock ledger for a product, oldest
// first.
func (h *Handler) ProductStockLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	// 404 for unknown products rather than an empty ledger.
	if _, err := h.Catalog.GetProduct(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get product", err)
		return
	}

	entries, err := h.Store.StockLogEntries(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list stock logs", err)
		return
	}

	dtos := make([]StockLogDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toStockLogDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// AddSale records a sale. Stock decrement, sale row, and ledger entry
// land atomically or not at all.
func (h *Handler) AddSale(w http.ResponseWriter, r *http.Request) {
	var req AddSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.RecordSale(r.Context(), inventory.ProductID(req.ProductID), req.Quantity)
	if err != nil {
		h.writeDomainError(w, "Failed to record sale", err)
		return
	}

	writeJSON(w, http.StatusCreated, AddSaleResponse{
		Success:        true,
		SaleID:         int64(result.SaleID),
		Message:        "Sale recorded: " + result.ProductName,
		TotalPrice:     result.TotalAmount.InexactFloat64(),
		RemainingStock: result.RemainingStock,
	})
}

// ListSales returns recent sales, newest first.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	sales, err := h.Reporter.SalesHistory(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, "Failed to list sales", err)
		return
	}

	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// Restock increases a product's stock with a ledger entry.
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	newStock, err := h.Engine.Restock(r.Context(), inventory.ProductID(req.ProductID), req.Quantity, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to restock", err)
		return
	}

	writeJSON(w, http.StatusOK, RestockResponse{
		Success:  true,
		NewStock: newStock,
		Message:  "Stock updated",
	})
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory adds a category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Catalog.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.writeDomainError(w, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(*created))
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness and store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Logger.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// =============================================================================
// HELPERS
// =============================================================================

func productIDParam(w http.ResponseWriter, r *http.Request) (inventory.ProductID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid product id", err)
		return 0, false
	}
	return inventory.ProductID(id), true
}

// writeDomainError maps domain errors to HTTP statuses. Client errors
// carry their own message; internal errors are logged and the client
// gets the generic message only.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case inventory.IsInvalidArgument(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case inventory.IsConflict(err), inventory.IsInsufficientStock(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
