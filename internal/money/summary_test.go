package money

import (
	"testing"

	"repairdesk/pkg/models"
)

func TestSummarize(t *testing.T) {
	l := Ledger{
		Sales: []models.Sale{
			{TotalAmount: 0.1, Profit: 0.05, PaymentMode: "Cash"},
			{TotalAmount: 0.2, Profit: 0.05, PaymentMode: PaymentPending},
			{TotalAmount: 500, Profit: 120, PaymentMode: PaymentPending, PendingAmount: 200},
		},
		Purchases: []models.Purchase{{TotalAmount: 380}},
		Expenses:  []models.Expense{{Amount: 50.25}},
		JobSheets: []models.JobSheet{
			{Status: "In Progress", PendingAmount: 1500},
			{Status: "Delivered", PendingAmount: 999},
		},
		Invoices: []models.Invoice{{TotalAmount: 1000, BalanceDue: 400}},
	}

	got := Summarize(l)
	want := Totals{
		Sales:       500.3,
		Profit:      120.1,
		Purchases:   380,
		Expenses:    50.25,
		Invoiced:    1000,
		Receivable:  2100.2,
		OpenJobs:    1,
		Net:         69.85,
		RecordCount: 8,
	}
	if got != want {
		t.Errorf("Summarize =\n%+v\nwant\n%+v", got, want)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(Ledger{}); got != (Totals{}) {
		t.Errorf("Summarize(empty) = %+v", got)
	}
}
