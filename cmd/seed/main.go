/*
main.go - Database seeder

PURPOSE:
  Populates a database with the default category set and a few sample
  products for local development and demos. All writes go through the
  catalog manager, so initial stock lands with proper ledger entries.

USAGE:
  ./seed -db="./inventory.db"

  Re-running against an existing database is safe: duplicate categories
  and skus are skipped, not duplicated.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/smartims/inventory-engine/inventory"
	"github.com/smartims/inventory-engine/store/sqlite"
)

var defaultCategories = []string{
	"Electronics",
	"Clothing",
	"Food & Beverages",
	"Books",
	"Home & Garden",
	"Sports & Outdoors",
	"Toys & Games",
	"Health & Beauty",
}

type sampleProduct struct {
	name      string
	sku       string
	category  string
	price     string
	cost      string
	stock     int
	threshold int
}

var sampleProducts = []sampleProduct{
	{"Wireless Mouse", "ELEC-0001", "Electronics", "29.99", "14.50", 40, 10},
	{"USB-C Cable 2m", "ELEC-0002", "Electronics", "9.99", "2.10", 120, 25},
	{"Cotton T-Shirt M", "CLTH-0001", "Clothing", "14.99", "4.80", 60, 15},
	{"Espresso Beans 1kg", "FOOD-0001", "Food & Beverages", "18.50", "9.20", 35, 8},
	{"Garden Trowel", "HOME-0001", "Home & Garden", "12.00", "5.40", 20, 5},
	{"Yoga Mat", "SPRT-0001", "Sports & Outdoors", "24.99", "11.00", 18, 5},
}

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", "inventory.db", "SQLite database path")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	engine := inventory.NewStockEngine(store, nil)
	catalog := inventory.NewCatalog(store, engine, nil)

	categoryIDs := make(map[string]inventory.CategoryID)
	for _, name := range defaultCategories {
		c, err := catalog.CreateCategory(ctx, name)
		if err != nil {
			if inventory.IsConflict(err) {
				continue
			}
			log.Fatalf("Failed to create category %q: %v", name, err)
		}
		categoryIDs[name] = c.ID
		log.Printf("Created category %q (id=%d)", name, c.ID)
	}

	// Re-resolve IDs for categories that already existed.
	existing, err := catalog.ListCategories(ctx)
	if err != nil {
		log.Fatalf("Failed to list categories: %v", err)
	}
	for _, c := range existing {
		categoryIDs[c.Name] = c.ID
	}

	for _, sp := range sampleProducts {
		price, err := decimal.NewFromString(sp.price)
		if err != nil {
			log.Fatalf("Bad price for %q: %v", sp.sku, err)
		}
		cost, err := decimal.NewFromString(sp.cost)
		if err != nil {
			log.Fatalf("Bad cost for %q: %v", sp.sku, err)
		}

		created, err := catalog.CreateProduct(ctx, inventory.CreateProductInput{
			Name:             sp.name,
			SKU:              sp.sku,
			CategoryID:       categoryIDs[sp.category],
			UnitPrice:        price,
			UnitCost:         cost,
			InitialStock:     sp.stock,
			ReorderThreshold: sp.threshold,
		})
		if err != nil {
			var conflict *inventory.ConflictError
			if errors.As(err, &conflict) {
				log.Printf("Skipping %q: already exists", sp.sku)
				continue
			}
			log.Fatalf("Failed to create product %q: %v", sp.sku, err)
		}
		log.Printf("Created product %q (id=%d, stock=%d)", created.SKU, created.ID, created.StockQuantity)
	}

	log.Println("Seed complete")
}
