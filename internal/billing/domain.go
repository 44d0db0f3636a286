package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rvt-fleet/fleetledger/internal/pricing"
	"github.com/rvt-fleet/fleetledger/internal/shared"
)

// Status is the payment state of an invoice.
type Status string

const (
	StatusUnpaid  Status = "Unpaid"
	StatusPartial Status = "Partial"
	StatusPaid    Status = "Paid"
)

// paidTolerance absorbs rounding when comparing paid against total.
var paidTolerance = decimal.RequireFromString("0.1")

// StatusFor derives the invoice status from what has been paid against total.
func StatusFor(paid, total decimal.Decimal) Status {
	switch {
	case !paid.IsPositive():
		return StatusUnpaid
	case paid.GreaterThanOrEqual(total.Sub(paidTolerance)):
		return StatusPaid
	default:
		return StatusPartial
	}
}

// Invoice bills a set of trips for one contractor, material and route.
type Invoice struct {
	ID               int64      `json:"id"`
	Number           string     `json:"invoiceNumber"`
	ContractorID     int64      `json:"contractorId"`
	ContractorName   string     `json:"contractorName,omitempty"`
	IssueDate        time.Time  `json:"issueDate"`
	Material         string     `json:"material"`
	From             string     `json:"from"`
	To               string     `json:"to"`
	NetAmount        float64    `json:"netAmount"`
	VATAmount        float64    `json:"vatAmount"`
	TotalAmount      float64    `json:"totalAmount"`
	PaidAmount       float64    `json:"paidAmount"`
	Status           Status     `json:"status"`
	Letterhead       string     `json:"letterhead,omitempty"`
	Metadata         *string    `json:"metadata,omitempty"`
	Received         bool       `json:"received"`
	ReceptionDate    *time.Time `json:"receptionDate,omitempty"`
	ReceptionCopyURL string     `json:"receptionCopyUrl,omitempty"`
	TripIDs          []int64    `json:"tripIds"`
	CreatedBy        int64      `json:"createdBy,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Paid returns the paid amount as a decimal.
func (inv Invoice) Paid() decimal.Decimal { return decimal.NewFromFloat(inv.PaidAmount) }

// Total returns the gross total as a decimal.
func (inv Invoice) Total() decimal.Decimal { return decimal.NewFromFloat(inv.TotalAmount) }

// Payment is a receipt applied against one invoice.
type Payment struct {
	ID           int64     `json:"id"`
	InvoiceID    int64     `json:"invoiceId"`
	ContractorID int64     `json:"contractorId"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	ChequeNo     string    `json:"chequeNo,omitempty"`
	BankName     string    `json:"bankName,omitempty"`
	Note         string    `json:"note,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GenerateInvoiceInput selects the trips to bill.
type GenerateInvoiceInput struct {
	ContractorID int64
	TripIDs      []int64
	Material     string
	Route        pricing.Route
	Letterhead   string
}

// PaymentInput carries the editable payment fields.
type PaymentInput struct {
	Date     time.Time `json:"date" validate:"required"`
	Type     string    `json:"type" validate:"required"`
	Amount   float64   `json:"amount" validate:"gt=0"`
	ChequeNo string    `json:"chequeNo"`
	BankName string    `json:"bankName"`
	Note     string    `json:"note"`
	ImageURL string    `json:"imageUrl" validate:"omitempty,url"`
}

// ReceptionInput records that the contractor acknowledged the invoice.
type ReceptionInput struct {
	Received bool       `json:"received"`
	Date     *time.Time `json:"receptionDate"`
	CopyURL  string     `json:"receptionCopyUrl" validate:"omitempty,url"`
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	ContractorID int64
	Status       Status
	Page         int
	PerPage      int
}

// InvoicePage is one page of invoices.
type InvoicePage struct {
	Invoices   []Invoice         `json:"invoices"`
	Pagination shared.Pagination `json:"pagination"`
}
