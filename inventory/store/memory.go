// Package store provides an in-memory inventory.Store implementation
// for tests and development.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smartims/inventory-engine/inventory"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory is a map-backed Store. WithTx is simulated with a full snapshot
// restored on any non-commit exit, which gives the same all-or-nothing
// guarantee the SQL stores provide. A single mutex serializes transactions, so
// read-check-write sequences against the same product cannot interleave.
type Memory struct {
	mu sync.RWMutex

	categories map[inventory.CategoryID]inventory.Category
	products   map[inventory.ProductID]inventory.Product
	sales      []inventory.SaleRecord
	stockLogs  []inventory.StockLogEntry

	nextCategoryID inventory.CategoryID
	nextProductID  inventory.ProductID
	nextSaleID     inventory.SaleID
	nextLogID      int64
}

func NewMemory() *Memory {
	return &Memory{
		categories:     make(map[inventory.CategoryID]inventory.Category),
		products:       make(map[inventory.ProductID]inventory.Product),
		nextCategoryID: 1,
		nextProductID:  1,
		nextSaleID:     1,
		nextLogID:      1,
	}
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(_ context.Context) error { return nil }

// =============================================================================
// READS
// =============================================================================

func (m *Memory) GetProduct(_ context.Context, id inventory.ProductID) (*inventory.ProductWithCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	joined := inventory.ProductWithCategory{Product: p, CategoryName: m.categories[p.CategoryID].Name}
	return &joined, nil
}

func (m *Memory) ListProducts(_ context.Context, filter inventory.ProductFilter) ([]inventory.ProductWithCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var result []inventory.ProductWithCategory
	for _, p := range m.products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		if filter.LowStockOnly && !p.LowStock() {
			continue
		}
		result = append(result, inventory.ProductWithCategory{
			Product:      p,
			CategoryName: m.categories[p.CategoryID].Name,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) ListCategories(_ context.Context) ([]inventory.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.Category, 0, len(m.categories))
	for _, c := range m.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) ListSales(_ context.Context, limit int) ([]inventory.SaleWithProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sales := make([]inventory.SaleRecord, len(m.sales))
	copy(sales, m.sales)
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].SaleTime.Equal(sales[j].SaleTime) {
			return sales[i].ID > sales[j].ID
		}
		return sales[i].SaleTime.After(sales[j].SaleTime)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}

	result := make([]inventory.SaleWithProduct, 0, len(sales))
	for _, s := range sales {
		p := m.products[s.ProductID]
		result = append(result, inventory.SaleWithProduct{
			SaleRecord:  s,
			ProductName: p.Name,
			ProductSKU:  p.SKU,
		})
	}
	return result, nil
}

func (m *Memory) SalesBetween(_ context.Context, from, to time.Time) ([]inventory.SaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []inventory.SaleRecord
	for _, s := range m.sales {
		if !s.SaleTime.Before(from) && s.SaleTime.Before(to) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *Memory) CountSales(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.sales)), nil
}

func (m *Memory) StockLogEntries(_ context.Context, id inventory.ProductID) ([]inventory.StockLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []inventory.StockLogEntry
	for _, e := range m.stockLogs {
		if e.ProductID == id {
			result = append(result, e)
		}
	}
	return result, nil
}

// =============================================================================
// CATEGORY WRITES
// =============================================================================

func (m *Memory) InsertCategory(_ context.Context, name string, now time.Time) (inventory.CategoryID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.categories {
		if c.Name == name {
			return 0, &inventory.ConflictError{Field: "category name", Value: name}
		}
	}

	id := m.nextCategoryID
	m.nextCategoryID++
	m.categories[id] = inventory.Category{ID: id, Name: name, CreatedAt: now}
	return id, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn under the write lock against a snapshot-backed view.
// The snapshot is restored unless fn completes cleanly, so neither an
// error nor a panic leaves partial effects behind.
func (m *Memory) WithTx(_ context.Context, fn func(inventory.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	committed := false
	defer func() {
		if !committed {
			m.restore(snap)
		}
	}()

	if err := fn(&memoryTx{store: m}); err != nil {
		return err
	}
	committed = true
	return nil
}

type memorySnapshot struct {
	categories map[inventory.CategoryID]inventory.Category
	products   map[inventory.ProductID]inventory.Product
	sales      []inventory.SaleRecord
	stockLogs  []inventory.StockLogEntry

	nextCategoryID inventory.CategoryID
	nextProductID  inventory.ProductID
	nextSaleID     inventory.SaleID
	nextLogID      int64
}

func (m *Memory) snapshot() memorySnapshot {
	cats := make(map[inventory.CategoryID]inventory.Category, len(m.categories))
	for k, v := range m.categories {
		cats[k] = v
	}
	prods := make(map[inventory.ProductID]inventory.Product, len(m.products))
	for k, v := range m.products {
		prods[k] = v
	}
	return memorySnapshot{
		categories:     cats,
		products:       prods,
		sales:          append([]inventory.SaleRecord{}, m.sales...),
		stockLogs:      append([]inventory.StockLogEntry{}, m.stockLogs...),
		nextCategoryID: m.nextCategoryID,
		nextProductID:  m.nextProductID,
		nextSaleID:     m.nextSaleID,
		nextLogID:      m.nextLogID,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.categories = s.categories
	m.products = s.products
	m.sales = s.sales
	m.stockLogs = s.stockLogs
	m.nextCategoryID = s.nextCategoryID
	m.nextProductID = s.nextProductID
	m.nextSaleID = s.nextSaleID
	m.nextLogID = s.nextLogID
}

type memoryTx struct {
	store *Memory
}

func (t *memoryTx) GetProductForUpdate(_ context.Context, id inventory.ProductID) (*inventory.Product, error) {
	p, ok := t.store.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memoryTx) GetCategory(_ context.Context, id inventory.CategoryID) (*inventory.Category, error) {
	c, ok := t.store.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (t *memoryTx) FindProductIDBySKU(_ context.Context, sku string) (inventory.ProductID, bool, error) {
	for _, p := range t.store.products {
		if p.SKU == sku {
			return p.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *memoryTx) InsertProduct(_ context.Context, p inventory.Product) (inventory.ProductID, error) {
	for _, existing := range t.store.products {
		if existing.SKU == p.SKU {
			return 0, &inventory.ConflictError{Field: "sku", Value: p.SKU}
		}
	}

	id := t.store.nextProductID
	t.store.nextProductID++
	p.ID = id
	t.store.products[id] = p
	return id, nil
}

func (t *memoryTx) UpdateProductFields(_ context.Context, id inventory.ProductID, fields inventory.ProductFieldUpdate, now time.Time) error {
	p, ok := t.store.products[id]
	if !ok {
		return &inventory.NotFoundError{Kind: "product", ID: int64(id)}
	}

	if fields.SKU != nil {
		for _, other := range t.store.products {
			if other.ID != id && other.SKU == *fields.SKU {
				return &inventory.ConflictError{Field: "sku", Value: *fields.SKU}
			}
		}
		p.SKU = *fields.SKU
	}
	if fields.Name != nil {
		p.Name = *fields.Name
	}
	if fields.CategoryID != nil {
		p.CategoryID = *fields.CategoryID
	}
	if fields.UnitPrice != nil {
		p.UnitPrice = *fields.UnitPrice
	}
	if fields.UnitCost != nil {
		p.UnitCost = *fields.UnitCost
	}
	if fields.ReorderThreshold != nil {
		p.ReorderThreshold = *fields.ReorderThreshold
	}
	p.UpdatedAt = now
	t.store.products[id] = p
	return nil
}

func (t *memoryTx) UpdateProductStock(_ context.Context, id inventory.ProductID, newQty int, now time.Time) error {
	p, ok := t.store.products[id]
	if !ok {
		return &inventory.NotFoundError{Kind: "product", ID: int64(id)}
	}
	p.StockQuantity = newQty
	p.UpdatedAt = now
	t.store.products[id] = p
	return nil
}

func (t *memoryTx) InsertSale(_ context.Context, s inventory.SaleRecord) (inventory.SaleID, error) {
	id := t.store.nextSaleID
	t.store.nextSaleID++
	s.ID = id
	t.store.sales = append(t.store.sales, s)
	return id, nil
}

func (t *memoryTx) AppendStockLog(_ context.Context, e inventory.StockLogEntry) error {
	e.ID = t.store.nextLogID
	t.store.nextLogID++
	t.store.stockLogs = append(t.store.stockLogs, e)
	return nil
}
