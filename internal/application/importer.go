package application

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bnema/stock-admin-cli/internal/adapters/store"
	"github.com/bnema/stock-admin-cli/internal/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	defaultProductType = "accessory"

	// placeholderAddress fills the address of a warehouse created on the fly
	// for an imported row that names a warehouse the store does not know yet.
	placeholderAddress = "unspecified"
)

// ProductRow is one row of a bulk import, already mapped from its
// spreadsheet columns.
type ProductRow struct {
	Name      string
	Type      string
	Price     float64
	Quantity  int
	Warehouse string
}

type RowError struct {
	Row     int
	Message string
}

type ImportSummary struct {
	Succeeded int
	Failed    int
	Errors    []RowError
}

// Importer drives bulk product import: per-row warehouse resolution and
// product creation with collect-and-continue error handling, followed by
// exactly one full aggregate recompute.
type Importer struct {
	data       *DataService
	store      *store.Client
	aggregates *AggregateService
	logger     *zap.Logger
}

func NewImporter(data *DataService, client *store.Client, aggregates *AggregateService, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{data: data, store: client, aggregates: aggregates, logger: logger}
}

// Run imports every row regardless of prior failures. Rows are numbered from
// 2 in error messages, matching their position in the source sheet below the
// header row. After the batch, all warehouse aggregates are recomputed once.
func (im *Importer) Run(ctx context.Context, rows []ProductRow) ImportSummary {
	var summary ImportSummary

	for i, row := range rows {
		if err := im.importRow(ctx, row); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, RowError{Row: i + 2, Message: err.Error()})
			im.logger.Warn("import row failed", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		summary.Succeeded++
	}

	im.aggregates.RecomputeAll(ctx)
	return summary
}

func (im *Importer) importRow(ctx context.Context, row ProductRow) error {
	product := domain.Record{
		"name":     row.Name,
		"type":     row.Type,
		"price":    row.Price,
		"quantity": row.Quantity,
	}
	if product.String("type") == "" {
		product["type"] = defaultProductType
	}

	if row.Warehouse != "" {
		warehouseID, err := im.resolveWarehouse(ctx, row.Warehouse)
		if err != nil {
			return err
		}
		product["warehouse"] = warehouseID
	}

	if _, err := im.data.Create(ctx, domain.ResourceProducts, product); err != nil {
		return err
	}
	return nil
}

// resolveWarehouse finds a warehouse by exact name, creating one with a
// placeholder address when no match exists.
func (im *Importer) resolveWarehouse(ctx context.Context, name string) (string, error) {
	matches, err := im.store.FullList(ctx, domain.ResourceWarehouses, store.ListOptions{
		Filter: fmt.Sprintf("name=%s", quoteFilterValue(name)),
		Fields: "id,name",
	})
	if err != nil {
		return "", fmt.Errorf("resolve warehouse %q: %w", name, err)
	}
	if len(matches) > 0 {
		return matches[0].ID(), nil
	}

	created, err := im.data.Create(ctx, domain.ResourceWarehouses, domain.Record{
		"name":    name,
		"address": placeholderAddress,
	})
	if err != nil {
		return "", fmt.Errorf("create warehouse %q: %w", name, err)
	}
	return created.ID(), nil
}

// column aliases accepted in the header row, lowercased.
var columnAliases = map[string]string{
	"name":       "name",
	"название":   "name",
	"type":       "type",
	"тип":        "type",
	"price":      "price",
	"цена":       "price",
	"quantity":   "quantity",
	"количество": "quantity",
	"warehouse":  "warehouse",
	"склад":      "warehouse",
}

// ParseXLSX reads product rows from the first sheet of an .xlsx workbook.
// The first row is the header; unknown columns are ignored, and blank rows
// are skipped.
func ParseXLSX(r io.Reader) ([]ProductRow, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = workbook.Close() }()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	cells, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(cells) == 0 {
		return nil, nil
	}

	columns := map[int]string{}
	for i, header := range cells[0] {
		if field, ok := columnAliases[strings.ToLower(strings.TrimSpace(header))]; ok {
			columns[i] = field
		}
	}

	rows := make([]ProductRow, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row, empty := mapRow(columns, line)
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func mapRow(columns map[int]string, line []string) (ProductRow, bool) {
	var row ProductRow
	empty := true

	for i, cell := range line {
		value := strings.TrimSpace(cell)
		if value == "" {
			continue
		}
		field, ok := columns[i]
		if !ok {
			continue
		}
		empty = false

		switch field {
		case "name":
			row.Name = value
		case "type":
			row.Type = value
		case "price":
			row.Price, _ = strconv.ParseFloat(value, 64)
		case "quantity":
			row.Quantity, _ = strconv.Atoi(value)
		case "warehouse":
			row.Warehouse = value
		}
	}
	return row, empty
}
