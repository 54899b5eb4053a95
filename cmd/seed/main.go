// Command seed imports product catalog prices from an XLSX sheet.
//
// The first sheet must have a header row followed by rows of
// category | name | price, e.g. "hoodie | Hoodie | 39.99".
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/app/repository"
	"github.com/ikkim/tshirt-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	productRepo := repository.NewProductRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, skipped, err := readProductsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Products to import: %d (skipped rows: %d)\n", len(products), skipped)
	for _, p := range products {
		fmt.Printf("  %-8s %-20s %s\n", p.Category, p.Name, p.Price.StringFixed(2))
	}

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	if err := productRepo.Upsert(context.Background(), products); err != nil {
		log.Fatal("Failed to import products:", err)
	}

	fmt.Println("Import completed successfully!")
}

// readProductsFromXLSX parses the first sheet. Rows with an unknown category
// or an unparsable price are skipped; a later row for the same category
// replaces an earlier one.
func readProductsFromXLSX(filePath string) ([]model.Product, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	byCategory := make(map[model.ProductCategory]int)
	var products []model.Product
	skipped := 0

	// Row 0 is the header
	for _, row := range rows[1:] {
		if len(row) < 3 {
			skipped++
			continue
		}

		category := model.ProductCategory(strings.ToLower(strings.TrimSpace(row[0])))
		name := strings.TrimSpace(row[1])
		price, err := decimal.NewFromString(strings.TrimSpace(row[2]))

		if !category.IsValid() || name == "" || err != nil || !price.IsPositive() {
			skipped++
			continue
		}

		product := model.Product{Category: category, Name: name, Price: price.Round(2)}
		if i, seen := byCategory[category]; seen {
			products[i] = product
			continue
		}
		byCategory[category] = len(products)
		products = append(products, product)
	}

	return products, skipped, nil
}
