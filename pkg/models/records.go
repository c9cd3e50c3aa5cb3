package models

import (
	"encoding/json"
	"strings"
)

// Record is implemented by every stored entity. Methods use value receivers
// so the store can hand out copies and replace whole values on update.
type Record[T any] interface {
	GetID() string
	WithID(id string) T
}

// Dated records are ordered newest first by their date when loaded.
type Dated interface {
	RecordDate() string
}

// Cloner is implemented by records holding slices that must not be shared
// between the store and its readers.
type Cloner[T any] interface {
	Clone() T
}

// Customer is the canonical identity that sales and job sheets reconcile against.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Mobile  string `json:"mobile,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func (c Customer) GetID() string { return c.ID }
func (c Customer) WithID(id string) Customer { c.ID = id; return c }

// Supplier is a parts vendor. Names are unique.
type Supplier struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContactInfo string `json:"contactInfo,omitempty"`
}

func (s Supplier) GetID() string { return s.ID }
func (s Supplier) WithID(id string) Supplier { s.ID = id; return s }

// UnmarshalJSON accepts both the record form and the bare name strings
// written by older versions of the supplier list.
func (s *Supplier) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*s = Supplier{Name: name}
		return nil
	}

	type plain Supplier
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Supplier(p)
	return nil
}

// Purchase is stock bought from a supplier.
type Purchase struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	Supplier      string  `json:"supplier"`
	DeviceBrand   string  `json:"deviceBrand"`
	DeviceModel   string  `json:"deviceModel,omitempty"`
	PartName      string  `json:"partName"`
	PartNameOther string  `json:"partNameOther,omitempty"`
	UnitPrice     float64 `json:"unitPrice"`
	TotalAmount   float64 `json:"totalAmount"`
	Notes         string  `json:"notes,omitempty"`
}

func (p Purchase) GetID() string { return p.ID }
func (p Purchase) WithID(id string) Purchase { p.ID = id; return p }
func (p Purchase) RecordDate() string { return p.Date }

// Sale is a counter sale. Customer and CustomerMobile are denormalized; CustomerID
// points at the reconciled Customer.
type Sale struct {
	ID             string  `json:"id"`
	Date           string  `json:"date"`
	Customer       string  `json:"customer"`
	CustomerMobile string  `json:"customerMobile,omitempty"`
	CustomerID     string  `json:"customerId,omitempty"`
	DeviceBrand    string  `json:"deviceBrand"`
	DeviceModel    string  `json:"deviceModel,omitempty"`
	Problem        string  `json:"problem,omitempty"`
	PartName       string  `json:"partName"`
	PartNameOther  string  `json:"partNameOther,omitempty"`
	UnitPrice      float64 `json:"unitPrice"`
	PurchaseCost   float64 `json:"purchaseCost"`
	Profit         float64 `json:"profit"` // unitPrice - purchaseCost
	TotalAmount    float64 `json:"totalAmount"`
	Notes          string  `json:"notes,omitempty"`
	PaymentMode    string  `json:"paymentMode"` // Cash, Online, Pending
	PendingAmount  float64 `json:"pendingAmount,omitempty"`
}

func (s Sale) GetID() string { return s.ID }
func (s Sale) WithID(id string) Sale { s.ID = id; return s }
func (s Sale) RecordDate() string { return s.Date }

// Expense is money spent on running the shop.
type Expense struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Vendor        string  `json:"vendor,omitempty"`
	Amount        float64 `json:"amount"`
	PaymentMode   string  `json:"paymentMode"`       // Cash, Online, Card, Cheque
	Receipt       string  `json:"receipt,omitempty"` // No, Yes, Digital, Bill
	ReceiptNumber string  `json:"receiptNumber,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

func (e Expense) GetID() string { return e.ID }
func (e Expense) WithID(id string) Expense { e.ID = id; return e }
func (e Expense) RecordDate() string { return e.Date }
