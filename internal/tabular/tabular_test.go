package tabular

import (
	"testing"

	"repairdesk/internal/dataset"
	"repairdesk/pkg/models"
)

func TestTablesRowWidthsMatchHeaders(t *testing.T) {
	doc := &dataset.Document{
		Purchases: []models.Purchase{{ID: "PUR-1001", PartName: "Other", PartNameOther: "Flex cable"}},
		Sales:     []models.Sale{{ID: "SAL-1001", Customer: "Ravi"}},
		Expenses:  []models.Expense{{ID: "EXP-1001"}},
		Customers: []models.Customer{{ID: "CUST-1001", Name: "Ravi"}},
		JobSheets: []models.JobSheet{{ID: "DM-1001", FaultCategory: []string{"Display", "Battery"}}},
		Invoices:  []models.Invoice{{ID: "INV-2026-0001"}},
		Suppliers: []models.Supplier{{ID: "SUP-1001", Name: "Alpha"}},
	}

	tables := Tables(doc)
	if len(tables) != 7 {
		t.Fatalf("tables = %d, want 7", len(tables))
	}
	for _, tbl := range tables {
		if len(tbl.Rows) != 1 {
			t.Errorf("%s: rows = %d, want 1", tbl.Name, len(tbl.Rows))
			continue
		}
		if len(tbl.Rows[0]) != len(tbl.Headers) {
			t.Errorf("%s: row has %d cells, %d headers", tbl.Name, len(tbl.Rows[0]), len(tbl.Headers))
		}
	}

	if got := Purchases(doc).Rows[0][3]; got != "Flex cable" {
		t.Errorf("purchase part = %v, want Flex cable", got)
	}
	if got := JobSheets(doc).Rows[0][9]; got != "Display, Battery" {
		t.Errorf("faults = %v", got)
	}
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{0: "A", 16: "Q", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"}
	for i, want := range tests {
		if got := ColumnName(i); got != want {
			t.Errorf("ColumnName(%d) = %s, want %s", i, got, want)
		}
	}
}
