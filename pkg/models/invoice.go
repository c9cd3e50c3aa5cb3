package models

// InvoiceItem is a single billed line. Total is quantity * price, computed by the caller.
type InvoiceItem struct {
	Type        string  `json:"type"` // "service" or "part"
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Warranty    string  `json:"warranty"`
	Total       float64 `json:"total"`
}

// Invoice is a customer bill. IDs are year scoped: INV-2026-0001.
type Invoice struct {
	ID   string `json:"id"`
	Date string `json:"date"` // ISO string

	// Customer
	CustomerName    string `json:"customerName"`
	CustomerMobile  string `json:"customerMobile"`
	CustomerAddress string `json:"customerAddress,omitempty"`

	// Device
	DeviceType        string `json:"deviceType"`
	DeviceBrand       string `json:"deviceBrand"`
	DeviceModel       string `json:"deviceModel"`
	DeviceIMEI        string `json:"deviceImei"`
	DeviceIssues      string `json:"deviceIssues"`
	DeviceAccessories string `json:"deviceAccessories"`

	Items []InvoiceItem `json:"items"`

	// Financials
	Subtotal    float64 `json:"subtotal"`
	TaxPercent  float64 `json:"taxPercent"`
	Discount    float64 `json:"discount"`
	TotalAmount float64 `json:"totalAmount"`

	// Payment
	PaymentStatus string  `json:"paymentStatus"` // Paid, Cash, Google Pay, Pending
	AmountPaid    float64 `json:"amountPaid"`
	BalanceDue    float64 `json:"balanceDue"` // derived, trusted as given

	WarrantyInfo    string `json:"warrantyInfo"`
	TechnicianNotes string `json:"technicianNotes,omitempty"`
}

func (i Invoice) GetID() string { return i.ID }
func (i Invoice) WithID(id string) Invoice { i.ID = id; return i }
func (i Invoice) RecordDate() string { return i.Date }

// Clone copies the items slice so edits to the copy never reach the stored record.
func (i Invoice) Clone() Invoice {
	if i.Items != nil {
		i.Items = append([]InvoiceItem(nil), i.Items...)
	}
	return i
}

// AddItem appends a line.
func (i *Invoice) AddItem(item InvoiceItem) {
	i.Items = append(i.Items, item)
}

// RemoveItem drops the line at index. Out of range indexes are ignored.
func (i *Invoice) RemoveItem(index int) {
	if index < 0 || index >= len(i.Items) {
		return
	}
	i.Items = append(i.Items[:index:index], i.Items[index+1:]...)
}
