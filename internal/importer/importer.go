package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/money"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads product CSV files and inserts/updates products by slug.
// Column names follow either the plain layout (title, price, ...) or the
// commercetools export layout (name.en, variants.prices.value.centAmount, ...).
type CSVImporter struct {
	reader          *csv.Reader
	productRepo     ProductWriter
	defaultCurrency string
}

func NewCSVImporter(r io.Reader, repo ProductWriter, defaultCurrency string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:          csvr,
		productRepo:     repo,
		defaultCurrency: money.NormalizeCurrency(defaultCurrency),
	}
}

// columns lists accepted header names per field, in preference order.
var columns = map[string][]string{
	"id":          {"id"},
	"title":       {"title", "name.en", "name"},
	"slug":        {"slug", "slug.en", "key"},
	"description": {"description", "description.en"},
	"price":       {"price", "variants.prices.value.centAmount"},
	"sale_price":  {"sale_price"},
	"currency":    {"currency", "variants.prices.value.currencyCode"},
	"stock":       {"stock", "stock_quantity"},
	"active":      {"active", "is_active"},
}

type csvRow struct {
	line int
	ID   string
	Title,
	Slug,
	Desc,
	Price,
	SalePrice,
	Currency,
	Stock,
	Active string
}

// Run parses CSV rows and upserts one product per row. Rows without a title
// are skipped.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["title"]; !ok {
		return 0, errors.New("read headers: no title column")
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		row := parseRow(record, index)
		if row.Title == "" {
			continue
		}
		row.line = line
		p, err := i.product(row)
		if err != nil {
			return imported, err
		}
		if _, err := i.productRepo.Upsert(ctx, p); err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", p.Slug, err)
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) product(row csvRow) (domain.Product, error) {
	if row.ID != "" {
		if _, err := uuid.Parse(row.ID); err != nil {
			return domain.Product{}, fmt.Errorf("line %d: invalid id %q", row.line, row.ID)
		}
	}
	s := slug.Make(row.Slug)
	if s == "" {
		s = slug.Make(row.Title)
	}
	price, err := parseAmount(row.Price)
	if err != nil || row.Price == "" {
		return domain.Product{}, fmt.Errorf("line %d: invalid price %q", row.line, row.Price)
	}
	currency := money.NormalizeCurrency(row.Currency)
	if currency == "" {
		currency = i.defaultCurrency
	}
	if !money.ValidCurrency(currency) {
		return domain.Product{}, fmt.Errorf("line %d: invalid currency %q", row.line, row.Currency)
	}

	p := domain.Product{
		ID:          row.ID,
		Title:       row.Title,
		Slug:        s,
		Description: row.Desc,
		Price:       price,
		Currency:    currency,
		IsActive:    true,
	}
	if row.SalePrice != "" {
		sale, err := parseAmount(row.SalePrice)
		if err != nil {
			return domain.Product{}, fmt.Errorf("line %d: invalid sale price %q", row.line, row.SalePrice)
		}
		p.SalePrice = &sale
	}
	if row.Stock != "" {
		stock, err := strconv.Atoi(row.Stock)
		if err != nil || stock < 0 {
			return domain.Product{}, fmt.Errorf("line %d: invalid stock %q", row.line, row.Stock)
		}
		p.StockQuantity = stock
	}
	if row.Active != "" {
		active, err := strconv.ParseBool(row.Active)
		if err != nil {
			return domain.Product{}, fmt.Errorf("line %d: invalid active flag %q", row.line, row.Active)
		}
		p.IsActive = active
	}
	return p, nil
}

func parseAmount(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %d", v)
	}
	return v, nil
}

// headerIndex maps each known field to the position of its first matching column.
func headerIndex(headers []string) map[string]int {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		pos[strings.TrimSpace(strings.ToLower(h))] = i
	}
	idx := make(map[string]int, len(columns))
	for field, names := range columns {
		for _, name := range names {
			if p, ok := pos[name]; ok {
				idx[field] = p
				break
			}
		}
	}
	return idx
}

func parseRow(record []string, index map[string]int) csvRow {
	return csvRow{
		ID:        pick(record, index, "id"),
		Title:     pick(record, index, "title"),
		Slug:      pick(record, index, "slug"),
		Desc:      pick(record, index, "description"),
		Price:     pick(record, index, "price"),
		SalePrice: pick(record, index, "sale_price"),
		Currency:  pick(record, index, "currency"),
		Stock:     pick(record, index, "stock"),
		Active:    pick(record, index, "active"),
	}
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
