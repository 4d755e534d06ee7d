/*
Package sqlite provides the SQLite-backed implementation of inventory.Store.

PURPOSE:
  Persists the four inventory tables - categories, products, sales,
  stock_logs - and implements the transactional contract the stock engine
  and catalog manager depend on. The same patterns apply to PostgreSQL;
  only SQL dialect details differ.

APPEND-ONLY ENFORCEMENT:
  sales and stock_logs have no UPDATE or DELETE statements anywhere in
  this package. The ledger is immutable history.

CONSTRAINT BACKSTOP:
  UNIQUE(products.sku) and UNIQUE(categories.name) are enforced at the
  schema level. Violations are translated to inventory.ConflictError, so
  an application-level check that lost a race still surfaces as Conflict
  rather than a raw driver error.

CONCURRENCY:
  SQLite allows a single writer; a sync.Mutex additionally holds each
  write transaction for its full duration, so the read-check-write
  sequence of two concurrent stock operations on the same product cannot
  interleave. Reads take the RWMutex read side and run concurrently. With
  PostgreSQL the same contract would come from SELECT ... FOR UPDATE
  row locks instead.

WAL MODE:
  The database opens with WAL journaling and foreign keys on: readers
  don't block the writer, and crash recovery keeps committed transactions.

MIGRATION:
  Schema is created on New(). For production, a versioned migration tool
  would own this instead.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/smartims/inventory-engine/inventory"
)

// Store implements inventory.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: SQLite allows one writer anyway, and an
	// in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		sku TEXT NOT NULL UNIQUE,
		category_id INTEGER NOT NULL REFERENCES categories(id),
		unit_price TEXT NOT NULL,
		unit_cost TEXT NOT NULL DEFAULT '0',
		stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		reorder_threshold INTEGER NOT NULL DEFAULT 5 CHECK (reorder_threshold >= 0),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Immutable: inserted by the stock engine, never updated or deleted
	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		total_amount TEXT NOT NULL,
		sale_time TEXT NOT NULL
	);

	-- Append-only stock ledger
	CREATE TABLE IF NOT EXISTS stock_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id),
		change_amount INTEGER NOT NULL CHECK (change_amount <> 0),
		reason TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
	CREATE INDEX IF NOT EXISTS idx_sales_time ON sales(sale_time);
	CREATE INDEX IF NOT EXISTS idx_sales_product ON sales(product_id);
	CREATE INDEX IF NOT EXISTS idx_stock_logs_product ON stock_logs(product_id);
	CREATE INDEX IF NOT EXISTS idx_stock_logs_timestamp ON stock_logs(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READS (inventory.Store)
// =============================================================================

const productColumns = `
	p.id, p.name, p.sku, p.category_id, c.name,
	p.unit_price, p.unit_cost, p.stock_quantity, p.reorder_threshold,
	p.created_at, p.updated_at`

// GetProduct returns the product joined with its category, or (nil, nil).
func (s *Store) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.ProductWithCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)
	p, err := scanProductWithCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns filtered products sorted by name ascending.
func (s *Store) ListProducts(ctx context.Context, filter inventory.ProductFilter) ([]inventory.ProductWithCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON p.category_id = c.id
		WHERE 1=1
	`
	var args []any

	if filter.Search != "" {
		query += " AND (LOWER(p.name) LIKE ? OR LOWER(p.sku) LIKE ?)"
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.LowStockOnly {
		query += " AND p.stock_quantity <= p.reorder_threshold"
	}
	query += " ORDER BY p.name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []inventory.ProductWithCategory
	for rows.Next() {
		p, err := scanProductWithCategory(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// ListCategories returns all categories sorted by name.
func (s *Store) ListCategories(ctx context.Context) ([]inventory.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []inventory.Category
	for rows.Next() {
		var c inventory.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListSales returns the newest sales joined with product name/sku.
func (s *Store) ListSales(ctx context.Context, limit int) ([]inventory.SaleWithProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT s.id, s.product_id, p.name, p.sku, s.quantity, s.total_amount, s.sale_time
		FROM sales s
		JOIN products p ON s.product_id = p.id
		ORDER BY s.sale_time DESC, s.id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []inventory.SaleWithProduct
	for rows.Next() {
		var sale inventory.SaleWithProduct
		var total, saleTime string
		if err := rows.Scan(&sale.ID, &sale.ProductID, &sale.ProductName, &sale.ProductSKU,
			&sale.Quantity, &total, &saleTime); err != nil {
			return nil, err
		}
		sale.TotalAmount = parseDecimal(total)
		sale.SaleTime = parseTime(saleTime)
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// SalesBetween returns sales with from <= sale_time < to.
func (s *Store) SalesBetween(ctx context.Context, from, to time.Time) ([]inventory.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, product_id, quantity, total_amount, sale_time
		FROM sales
		WHERE sale_time >= ? AND sale_time < ?
		ORDER BY sale_time ASC
	`
	rows, err := s.db.QueryContext(ctx, query, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []inventory.SaleRecord
	for rows.Next() {
		var sale inventory.SaleRecord
		var total, saleTime string
		if err := rows.Scan(&sale.ID, &sale.ProductID, &sale.Quantity, &total, &saleTime); err != nil {
			return nil, err
		}
		sale.TotalAmount = parseDecimal(total)
		sale.SaleTime = parseTime(saleTime)
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// CountSales returns the number of sale records.
func (s *Store) CountSales(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales").Scan(&count)
	return count, err
}

// StockLogEntries returns the full ledger for a product, oldest first.
func (s *Store) StockLogEntries(ctx context.Context, id inventory.ProductID) ([]inventory.StockLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, product_id, change_amount, reason, timestamp
		FROM stock_logs
		WHERE product_id = ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock logs: %w", err)
	}
	defer rows.Close()

	var entries []inventory.StockLogEntry
	for rows.Next() {
		var e inventory.StockLogEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.ProductID, &e.ChangeAmount, &e.Reason, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// CATEGORY WRITES
// =============================================================================

// InsertCategory adds a category; duplicate names become ConflictError.
func (s *Store) InsertCategory(ctx context.Context, name string, now time.Time) (inventory.CategoryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (name, created_at) VALUES (?, ?)",
		name, formatTime(now))
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, &inventory.ConflictError{Field: "category name", Value: name}
		}
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return inventory.CategoryID(id), nil
}

// =============================================================================
// TRANSACTIONS (inventory.Store WithTx)
// =============================================================================

// WithTx runs fn in one database transaction. The mutex is held for the
// whole transaction, so concurrent read-check-write sequences against the
// same product row serialize instead of interleaving.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&storeTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type storeTx struct {
	tx *sql.Tx
}

// GetProductForUpdate reads the product row inside the write transaction.
// SQLite's single-writer model plus the store mutex make this equivalent
// to a SELECT ... FOR UPDATE row lock.
func (t *storeTx) GetProductForUpdate(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	query := `
		SELECT id, name, sku, category_id, unit_price, unit_cost,
		       stock_quantity, reorder_threshold, created_at, updated_at
		FROM products
		WHERE id = ?
	`
	row := t.tx.QueryRowContext(ctx, query, id)

	var p inventory.Product
	var price, cost, createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.CategoryID, &price, &cost,
		&p.StockQuantity, &p.ReorderThreshold, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	p.UnitPrice = parseDecimal(price)
	p.UnitCost = parseDecimal(cost)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (t *storeTx) GetCategory(ctx context.Context, id inventory.CategoryID) (*inventory.Category, error) {
	var c inventory.Category
	var createdAt string
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (t *storeTx) FindProductIDBySKU(ctx context.Context, sku string) (inventory.ProductID, bool, error) {
	var id inventory.ProductID
	err := t.tx.QueryRowContext(ctx, "SELECT id FROM products WHERE sku = ?", sku).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *storeTx) InsertProduct(ctx context.Context, p inventory.Product) (inventory.ProductID, error) {
	query := `
		INSERT INTO products
		(name, sku, category_id, unit_price, unit_cost, stock_quantity, reorder_threshold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := t.tx.ExecContext(ctx, query,
		p.Name, p.SKU, p.CategoryID,
		p.UnitPrice.String(), p.UnitCost.String(),
		p.StockQuantity, p.ReorderThreshold,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, &inventory.ConflictError{Field: "sku", Value: p.SKU}
		}
		return 0, fmt.Errorf("failed to insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return inventory.ProductID(id), nil
}

func (t *storeTx) UpdateProductFields(ctx context.Context, id inventory.ProductID, fields inventory.ProductFieldUpdate, now time.Time) error {
	// Fixed column list resolved from the typed partial update; request
	// data only ever flows through placeholders.
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(now)}

	if fields.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *fields.Name)
	}
	if fields.SKU != nil {
		sets = append(sets, "sku = ?")
		args = append(args, *fields.SKU)
	}
	if fields.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *fields.CategoryID)
	}
	if fields.UnitPrice != nil {
		sets = append(sets, "unit_price = ?")
		args = append(args, fields.UnitPrice.String())
	}
	if fields.UnitCost != nil {
		sets = append(sets, "unit_cost = ?")
		args = append(args, fields.UnitCost.String())
	}
	if fields.ReorderThreshold != nil {
		sets = append(sets, "reorder_threshold = ?")
		args = append(args, *fields.ReorderThreshold)
	}
	args = append(args, id)

	query := "UPDATE products SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintError(err) {
			sku := ""
			if fields.SKU != nil {
				sku = *fields.SKU
			}
			return &inventory.ConflictError{Field: "sku", Value: sku}
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (t *storeTx) UpdateProductStock(ctx context.Context, id inventory.ProductID, newQty int, now time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?",
		newQty, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return nil
}

func (t *storeTx) InsertSale(ctx context.Context, sale inventory.SaleRecord) (inventory.SaleID, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO sales (product_id, quantity, total_amount, sale_time) VALUES (?, ?, ?, ?)",
		sale.ProductID, sale.Quantity, sale.TotalAmount.String(), formatTime(sale.SaleTime))
	if err != nil {
		return 0, fmt.Errorf("failed to insert sale: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return inventory.SaleID(id), nil
}

func (t *storeTx) AppendStockLog(ctx context.Context, e inventory.StockLogEntry) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO stock_logs (product_id, change_amount, reason, timestamp) VALUES (?, ?, ?, ?)",
		e.ProductID, e.ChangeAmount, e.Reason, formatTime(e.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to append stock log: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProductWithCategory(row rowScanner) (*inventory.ProductWithCategory, error) {
	var p inventory.ProductWithCategory
	var price, cost, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.CategoryID, &p.CategoryName,
		&price, &cost, &p.StockQuantity, &p.ReorderThreshold, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.UnitPrice = parseDecimal(price)
	p.UnitCost = parseDecimal(cost)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// timeLayout is fixed-width: nanoseconds are zero-padded, never trimmed.
// Stored timestamps compare chronologically as strings, which the
// sale_time range predicates and ORDER BY clauses rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
