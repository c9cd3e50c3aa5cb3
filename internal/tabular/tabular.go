// Package tabular flattens the dataset into header-plus-rows tables, one per
// collection, for the spreadsheet exports.
package tabular

import (
	"strings"

	"repairdesk/internal/dataset"
)

// Table is one collection rendered as rows.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// Tables renders every collection of doc in a fixed order.
func Tables(doc *dataset.Document) []Table {
	return []Table{
		JobSheets(doc),
		Invoices(doc),
		Sales(doc),
		Purchases(doc),
		Expenses(doc),
		Customers(doc),
		Suppliers(doc),
	}
}

func JobSheets(doc *dataset.Document) Table {
	t := Table{
		Name: "Job Sheets",
		Headers: []string{
			"ID", "Date", "Status", "Customer", "Mobile", "Customer ID", "Device Brand",
			"Device Model", "IMEI", "Faults", "Estimated", "Advance", "Pending", "Updated",
		},
	}
	for _, j := range doc.JobSheets {
		t.Rows = append(t.Rows, []interface{}{
			j.ID, j.Date, j.Status, j.CustomerName, j.CustomerMobile, j.CustomerID, j.DeviceBrand,
			j.DeviceModel, j.IMEI, strings.Join(j.FaultCategory, ", "), j.EstimatedCost, j.AdvancePayment, j.PendingAmount, j.UpdatedAt,
		})
	}
	return t
}

func Invoices(doc *dataset.Document) Table {
	t := Table{
		Name: "Invoices",
		Headers: []string{
			"ID", "Date", "Customer", "Mobile", "Device", "Items", "Subtotal", "Tax %",
			"Discount", "Total", "Status", "Paid", "Balance",
		},
	}
	for _, inv := range doc.Invoices {
		device := strings.TrimSpace(inv.DeviceBrand + " " + inv.DeviceModel)
		t.Rows = append(t.Rows, []interface{}{
			inv.ID, inv.Date, inv.CustomerName, inv.CustomerMobile, device, len(inv.Items), inv.Subtotal, inv.TaxPercent,
			inv.Discount, inv.TotalAmount, inv.PaymentStatus, inv.AmountPaid, inv.BalanceDue,
		})
	}
	return t
}

func Sales(doc *dataset.Document) Table {
	t := Table{
		Name: "Sales",
		Headers: []string{
			"ID", "Date", "Customer", "Mobile", "Customer ID", "Part", "Device",
			"Price", "Cost", "Profit", "Payment", "Pending",
		},
	}
	for _, s := range doc.Sales {
		t.Rows = append(t.Rows, []interface{}{
			s.ID, s.Date, s.Customer, s.CustomerMobile, s.CustomerID, partName(s.PartName, s.PartNameOther),
			strings.TrimSpace(s.DeviceBrand + " " + s.DeviceModel),
			s.UnitPrice, s.PurchaseCost, s.Profit, s.PaymentMode, s.PendingAmount,
		})
	}
	return t
}

func Purchases(doc *dataset.Document) Table {
	t := Table{
		Name:    "Purchases",
		Headers: []string{"ID", "Date", "Supplier", "Part", "Device", "Unit Price", "Total", "Notes"},
	}
	for _, p := range doc.Purchases {
		t.Rows = append(t.Rows, []interface{}{
			p.ID, p.Date, p.Supplier, partName(p.PartName, p.PartNameOther),
			strings.TrimSpace(p.DeviceBrand + " " + p.DeviceModel), p.UnitPrice, p.TotalAmount, p.Notes,
		})
	}
	return t
}

func Expenses(doc *dataset.Document) Table {
	t := Table{
		Name:    "Expenses",
		Headers: []string{"ID", "Date", "Category", "Description", "Vendor", "Amount", "Payment", "Receipt"},
	}
	for _, e := range doc.Expenses {
		t.Rows = append(t.Rows, []interface{}{
			e.ID, e.Date, e.Category, e.Description, e.Vendor, e.Amount, e.PaymentMode, e.Receipt,
		})
	}
	return t
}

func Customers(doc *dataset.Document) Table {
	t := Table{
		Name:    "Customers",
		Headers: []string{"ID", "Name", "Mobile", "Address", "Notes"},
	}
	for _, c := range doc.Customers {
		t.Rows = append(t.Rows, []interface{}{c.ID, c.Name, c.Mobile, c.Address, c.Notes})
	}
	return t
}

func Suppliers(doc *dataset.Document) Table {
	t := Table{
		Name:    "Suppliers",
		Headers: []string{"ID", "Name", "Contact"},
	}
	for _, s := range doc.Suppliers {
		t.Rows = append(t.Rows, []interface{}{s.ID, s.Name, s.ContactInfo})
	}
	return t
}

// partName prefers the free-text name entered when "Other" was picked.
func partName(name, other string) string {
	if strings.EqualFold(name, "Other") && other != "" {
		return other
	}
	return name
}

// ColumnName converts a zero-based column index to A, B, ..., Z, AA, ...
func ColumnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}
