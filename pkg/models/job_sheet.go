package models

// Job sheet statuses.
const (
	JobStatusPending         = "Pending"
	JobStatusDiagnosing      = "Diagnosing"
	JobStatusWaitingApproval = "Waiting for Approval"
	JobStatusReady           = "Ready"
	JobStatusDelivered       = "Delivered"
	JobStatusCancelled       = "Cancelled"
)

// JobSheet is a repair ticket (DM-1001).
type JobSheet struct {
	ID     string `json:"id"`
	Date   string `json:"date"` // ISO string
	Status string `json:"status"`

	// Customer
	CustomerName      string `json:"customerName"`
	CustomerMobile    string `json:"customerMobile"`
	CustomerAltMobile string `json:"customerAltMobile,omitempty"`
	CustomerAddress   string `json:"customerAddress,omitempty"`
	CustomerID        string `json:"customerId,omitempty"`

	// Service
	ServiceType string `json:"serviceType,omitempty"` // Walk-in, On-Site, Pickup
	JobType     string `json:"jobType,omitempty"`     // New, Warranty, AMC
	Priority    string `json:"priority,omitempty"`

	// Device
	DeviceBrand string `json:"deviceBrand"`
	DeviceModel string `json:"deviceModel"`
	IMEI        string `json:"imei"`
	Color       string `json:"color,omitempty"`
	LockType    string `json:"lockType,omitempty"` // Pattern, PIN/Password, None
	LockCode    string `json:"lockCode,omitempty"`

	// Problem
	FaultCategory  []string `json:"faultCategory"`
	CustomerRemark string   `json:"customerRemark,omitempty"`
	TechnicianNote string   `json:"technicianNote,omitempty"`

	// Physical condition
	Scratches       *bool    `json:"scratches,omitempty"`
	Dents           *bool    `json:"dents,omitempty"`
	BackGlassBroken *bool    `json:"backGlassBroken,omitempty"`
	BentFrame       *bool    `json:"bentFrame,omitempty"`
	AccessoriesRec  []string `json:"accessoriesRec,omitempty"`

	// Financials
	EstimatedCost  float64 `json:"estimatedCost"`
	AdvancePayment float64 `json:"advancePayment"`
	PendingAmount  float64 `json:"pendingAmount"` // derived, trusted as given

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (j JobSheet) GetID() string { return j.ID }
func (j JobSheet) WithID(id string) JobSheet { j.ID = id; return j }
func (j JobSheet) RecordDate() string { return j.Date }

func (j JobSheet) Clone() JobSheet {
	if j.FaultCategory != nil {
		j.FaultCategory = append([]string(nil), j.FaultCategory...)
	}
	if j.AccessoriesRec != nil {
		j.AccessoriesRec = append([]string(nil), j.AccessoriesRec...)
	}
	j.Scratches = cloneBool(j.Scratches)
	j.Dents = cloneBool(j.Dents)
	j.BackGlassBroken = cloneBool(j.BackGlassBroken)
	j.BentFrame = cloneBool(j.BentFrame)
	return j
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
