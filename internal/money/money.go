// Package money computes the derived amounts entry forms fill in before a
// record is handed to the store: sale profit, job sheet pending amount and
// invoice totals. The store itself never recomputes them.
//
// Arithmetic is done in decimal and rounded to two places, so 0.1 + 0.2
// style float drift never reaches a stored record.
package money

import (
	"github.com/shopspring/decimal"
	"repairdesk/pkg/models"
)

// Places is the number of decimal places amounts are rounded to.
const Places = 2

// PaymentPending is the invoice payment status that leaves a balance due.
const PaymentPending = "Pending"

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func f(v decimal.Decimal) float64 {
	return v.Round(Places).InexactFloat64()
}

// Round rounds v to Places.
func Round(v float64) float64 {
	return f(d(v))
}

// FillPurchase sets the purchase total from its unit price.
func FillPurchase(p *models.Purchase) {
	p.TotalAmount = Round(p.UnitPrice)
}

// FillSale sets total and profit from unit price and purchase cost.
func FillSale(s *models.Sale) {
	price := d(s.UnitPrice)
	s.TotalAmount = f(price)
	s.Profit = f(price.Sub(d(s.PurchaseCost)))
}

// FillJobSheet sets the pending amount: estimate minus advance.
func FillJobSheet(j *models.JobSheet) {
	j.PendingAmount = f(d(j.EstimatedCost).Sub(d(j.AdvancePayment)))
}

// LineTotal is quantity times price.
func LineTotal(item models.InvoiceItem) float64 {
	return f(d(item.Quantity).Mul(d(item.Price)))
}

// FillInvoice recomputes every line total, the subtotal, the total after tax
// and discount (never below zero) and the balance due. Any status other than
// Pending marks the invoice fully paid.
func FillInvoice(inv *models.Invoice) {
	subtotal := decimal.Zero
	for i := range inv.Items {
		inv.Items[i].Total = LineTotal(inv.Items[i])
		subtotal = subtotal.Add(d(inv.Items[i].Total))
	}

	tax := subtotal.Mul(d(inv.TaxPercent)).Div(decimal.NewFromInt(100))
	total := subtotal.Add(tax).Sub(d(inv.Discount))
	if total.IsNegative() {
		total = decimal.Zero
	}

	inv.Subtotal = f(subtotal)
	inv.TotalAmount = f(total)
	if inv.PaymentStatus != PaymentPending {
		inv.AmountPaid = inv.TotalAmount
	}
	inv.BalanceDue = f(total.Round(Places).Sub(d(inv.AmountPaid)))
}
