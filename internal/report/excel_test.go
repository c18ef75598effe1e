package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"tokopos/backend/internal/domain"
)

func TestOrdersWorkbookLayout(t *testing.T) {
	date := time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{
			Code: "ORD-000001", Date: date,
			SubtotalCents: 24000, TaxCents: 2640, GrandTotalCents: 26640,
			Lines: []domain.OrderLine{
				{ProductName: "Kopi Sachet", PriceCents: 2600, Qty: 2, TotalCents: 5200},
				{ProductName: "Telur 10 Butir", PriceCents: 26500, Qty: 1, TotalCents: 26500},
			},
		},
	}

	payload, err := OrdersWorkbook(orders)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	file, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows(file.GetSheetName(0))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 line rows, got %d", len(rows))
	}
	if rows[0][0] != "No" || rows[0][2] != "Code" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][2] != "ORD-000001" || rows[1][3] != "Kopi Sachet" {
		t.Fatalf("unexpected first line row: %v", rows[1])
	}
	// Document totals only on the document's first row.
	if len(rows[2]) > 8 {
		t.Fatalf("second line row must not repeat totals: %v", rows[2])
	}
	if rows[1][1] != "2026-02-10" {
		t.Fatalf("unexpected date cell: %v", rows[1][1])
	}
}

func TestExportFilename(t *testing.T) {
	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	if got := ExportFilename("orders", from, to); got != "orders_2026-01-01_2026-01-31.xlsx" {
		t.Fatalf("unexpected filename %s", got)
	}
}

func TestPurchasesWorkbookEmptyRange(t *testing.T) {
	payload, err := PurchasesWorkbook(nil)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}
	file, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows(file.GetSheetName(0))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
