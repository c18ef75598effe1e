// Package report builds spreadsheet exports for the document archives.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"tokopos/backend/internal/domain"
)

var orderHeader = []string{"No", "Date", "Code", "Product", "Price", "QTY", "Total Price", "Subtotal", "Tax", "Grand Total"}

// OrdersWorkbook renders one row per order line, with the document-level
// totals repeated on the document's first row only.
func OrdersWorkbook(orders []domain.Order) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	if err := writeHeader(file, sheet, orderHeader); err != nil {
		return nil, err
	}

	row := 2
	for i, order := range orders {
		for j, line := range order.Lines {
			cells := []any{
				i + 1,
				order.Date.Format("2006-01-02"),
				order.Code,
				line.ProductName,
				cents(line.PriceCents),
				line.Qty,
				cents(line.TotalCents),
				nil, nil, nil,
			}
			if j == 0 {
				cells[7] = cents(order.SubtotalCents)
				cells[8] = cents(order.TaxCents)
				cells[9] = cents(order.GrandTotalCents)
			}
			if err := writeRow(file, sheet, row, cells); err != nil {
				return nil, err
			}
			row++
		}
	}

	return save(file)
}

var purchaseHeader = []string{"No", "Date", "Code", "Note", "Product", "Price", "QTY", "Total Price", "Subtotal", "Tax", "Grand Total"}

func PurchasesWorkbook(purchases []domain.Purchase) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	if err := writeHeader(file, sheet, purchaseHeader); err != nil {
		return nil, err
	}

	row := 2
	for i, purchase := range purchases {
		for j, line := range purchase.Lines {
			cells := []any{
				i + 1,
				purchase.Date.Format("2006-01-02"),
				purchase.Code,
				purchase.Note,
				line.ProductName,
				cents(line.PriceCents),
				line.Qty,
				cents(line.TotalCents),
				nil, nil, nil,
			}
			if j == 0 {
				cells[8] = cents(purchase.SubtotalCents)
				cells[9] = cents(purchase.TaxCents)
				cells[10] = cents(purchase.GrandTotalCents)
			}
			if err := writeRow(file, sheet, row, cells); err != nil {
				return nil, err
			}
			row++
		}
	}

	return save(file)
}

// ExportFilename builds the attachment name for a date-range export,
// e.g. orders_2026-01-01_2026-01-31.xlsx.
func ExportFilename(kind string, from, to time.Time) string {
	return fmt.Sprintf("%s_%s_%s.xlsx", kind, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func writeHeader(file *excelize.File, sheet string, header []string) error {
	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(file *excelize.File, sheet string, row int, cells []any) error {
	for i, value := range cells {
		if value == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

func save(file *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cents(v int64) float64 {
	return float64(v) / 100
}
