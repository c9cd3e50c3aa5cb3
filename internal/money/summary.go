package money

import (
	"github.com/shopspring/decimal"
	"repairdesk/pkg/models"
)

// Totals aggregates the money flowing through the shop over a set of records.
// Receivable covers unpaid sales, open job sheets and invoice balances; Net is
// profit minus expenses.
type Totals struct {
	Sales       float64 `json:"sales"`
	Profit      float64 `json:"profit"`
	Purchases   float64 `json:"purchases"`
	Expenses    float64 `json:"expenses"`
	Invoiced    float64 `json:"invoiced"`
	Receivable  float64 `json:"receivable"`
	OpenJobs    int     `json:"openJobs"`
	Net         float64 `json:"net"`
	RecordCount int     `json:"recordCount"`
}

// Ledger is the subset of the dataset Summarize reads.
type Ledger struct {
	Sales     []models.Sale
	Purchases []models.Purchase
	Expenses  []models.Expense
	JobSheets []models.JobSheet
	Invoices  []models.Invoice
}

// Summarize adds up l. Stored derived amounts are trusted as given.
func Summarize(l Ledger) Totals {
	var sales, profit, purchases, expenses, invoiced, receivable decimal.Decimal
	var t Totals

	for _, s := range l.Sales {
		sales = sales.Add(d(s.TotalAmount))
		profit = profit.Add(d(s.Profit))
		if s.PaymentMode == PaymentPending {
			receivable = receivable.Add(d(pendingOr(s.PendingAmount, s.TotalAmount)))
		}
	}
	for _, p := range l.Purchases {
		purchases = purchases.Add(d(p.TotalAmount))
	}
	for _, e := range l.Expenses {
		expenses = expenses.Add(d(e.Amount))
	}
	for _, j := range l.JobSheets {
		if isOpen(j.Status) {
			t.OpenJobs++
			receivable = receivable.Add(d(j.PendingAmount))
		}
	}
	for _, inv := range l.Invoices {
		invoiced = invoiced.Add(d(inv.TotalAmount))
		receivable = receivable.Add(d(inv.BalanceDue))
	}

	t.Sales = f(sales)
	t.Profit = f(profit)
	t.Purchases = f(purchases)
	t.Expenses = f(expenses)
	t.Invoiced = f(invoiced)
	t.Receivable = f(receivable)
	t.Net = f(profit.Sub(expenses))
	t.RecordCount = len(l.Sales) + len(l.Purchases) + len(l.Expenses) + len(l.JobSheets) + len(l.Invoices)
	return t
}

func pendingOr(pending, total float64) float64 {
	if pending > 0 {
		return pending
	}
	return total
}

// isOpen reports whether a job sheet still awaits collection.
func isOpen(status string) bool {
	return status != models.JobStatusDelivered && status != models.JobStatusCancelled
}
