package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const catalogSheet = "Products"

// catalogHeader is shared by the export and the seed import. One row per SKU;
// consecutive rows with the same product name form one product.
var catalogHeader = []interface{}{
	"Product ID", "Name", "Category", "Summary", "Description", "Cover",
	"SKU", "Size", "Color", "Price", "Quantity",
}

const (
	colName = iota + 1
	colCategory
	colSummary
	colDescription
	colCover
	colSku
	colSize
	colColor
	colPrice
	colQuantity
)

// ExportXLSX writes every active product and its SKUs as a spreadsheet.
func (s *productService) ExportXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), catalogSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(catalogSheet, "A1", &catalogHeader); err != nil {
		return err
	}

	row := 2
	p := repository.Pagination{Size: repository.MaxPageSize, SortBy: "id", SortDir: "asc"}
	for {
		page, err := s.productRepo.FindWithFilter(repository.ProductFilter{}, p)
		if err != nil {
			return err
		}
		for _, product := range page.Content {
			for _, values := range exportRows(product) {
				cell, err := excelize.CoordinatesToCellName(1, row)
				if err != nil {
					return err
				}
				if err := f.SetSheetRow(catalogSheet, cell, &values); err != nil {
					return err
				}
				row++
			}
		}
		p.Page++
		if p.Page >= page.TotalPages {
			break
		}
	}

	logger.Info("Product catalog exported", map[string]interface{}{
		"rows": row - 2,
	})
	return f.Write(w)
}

func exportRows(product model.Product) [][]interface{} {
	category := ""
	if product.Category != nil {
		category = product.Category.Name
	}
	base := []interface{}{product.ID, product.Name, category, product.Summary, product.Description, product.Cover}
	if len(product.Skus) == 0 {
		return [][]interface{}{append(base, "", "", "", "", "")}
	}

	rows := make([][]interface{}, 0, len(product.Skus))
	for _, sku := range product.Skus {
		size, color := "", ""
		if sku.SizeAttribute != nil {
			size = sku.SizeAttribute.Value
		}
		if sku.ColorAttribute != nil {
			color = sku.ColorAttribute.Value
		}
		row := append(append([]interface{}{}, base...), sku.Sku, size, color, sku.Price, sku.Quantity)
		rows = append(rows, row)
	}
	return rows
}

// ImportXLSX creates products from a spreadsheet in the export layout.
// Missing categories are created on the fly. Bad rows are reported and skipped.
func (s *productService) ImportXLSX(ctx context.Context, r io.Reader) (*BulkResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	result := newBulkResult()
	categories := make(map[string]*uint)

	var current *ProductInput
	flush := func() {
		if current == nil {
			return
		}
		if _, err := s.Create(ctx, *current); err != nil {
			result.fail(fmt.Sprintf("%s: %v", current.Name, err))
		} else {
			result.ok()
		}
		current = nil
	}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		name := cell(row, colName)
		if name == "" {
			continue
		}

		if current == nil || current.Name != name {
			flush()
			categoryID, err := s.importCategory(categories, cell(row, colCategory))
			if err != nil {
				result.fail(fmt.Sprintf("row %d: %v", i+1, err))
				continue
			}
			current = &ProductInput{
				Name:        name,
				Summary:     cell(row, colSummary),
				Description: cell(row, colDescription),
				Cover:       cell(row, colCover),
				CategoryID:  categoryID,
			}
		}

		priceText := cell(row, colPrice)
		if priceText == "" {
			continue
		}
		price, err := strconv.ParseFloat(priceText, 64)
		if err != nil {
			result.fail(fmt.Sprintf("row %d: invalid price %q", i+1, priceText))
			continue
		}
		qty, err := strconv.Atoi(cell(row, colQuantity))
		if err != nil {
			qty = 0
		}
		current.Skus = append(current.Skus, SkuInput{
			Sku:      cell(row, colSku),
			Size:     cell(row, colSize),
			Color:    cell(row, colColor),
			Price:    price,
			Quantity: qty,
		})
	}
	flush()

	logger.Info("Product catalog imported", map[string]interface{}{
		"success": result.SuccessCount,
		"failure": result.FailureCount,
	})
	return result, nil
}

func (s *productService) importCategory(cache map[string]*uint, name string) (*uint, error) {
	if name == "" {
		return nil, nil
	}
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}

	category, err := s.categoryRepo.FindByName(name)
	if err != nil {
		category = &model.Category{Name: name}
		if err := s.categoryRepo.Create(category); err != nil {
			return nil, err
		}
	}
	cache[key] = &category.ID
	return &category.ID, nil
}

// cell reads a 1-based column, tolerating short rows.
func cell(row []string, col int) string {
	if col > len(row) {
		return ""
	}
	return strings.TrimSpace(row[col-1])
}
