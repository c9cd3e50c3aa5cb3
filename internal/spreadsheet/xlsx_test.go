package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
	"repairdesk/internal/tabular"
)

func TestWriteWorkbook(t *testing.T) {
	tables := []tabular.Table{
		{
			Name:    "Customers",
			Headers: []string{"ID", "Name"},
			Rows:    [][]interface{}{{"CUST-1001", "Ravi"}, {"CUST-1002", "Meena"}},
		},
		{
			Name:    "Suppliers",
			Headers: []string{"ID", "Name", "Contact"},
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, tables); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Customers" || sheets[1] != "Suppliers" {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows("Customers")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][1] != "Name" || rows[2][1] != "Meena" {
		t.Fatalf("rows = %v", rows)
	}

	rows, err = f.GetRows("Suppliers")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || len(rows[0]) != 3 {
		t.Fatalf("supplier rows = %v", rows)
	}
}
