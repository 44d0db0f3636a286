package statements

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind tags the source document a ledger line mirrors.
type ItemKind string

const (
	KindInvoice ItemKind = "INVOICE"
	KindPayment ItemKind = "PAYMENT"
)

const (
	invoicePrefix = "inv-"
	paymentPrefix = "pay-"
)

// ItemKey identifies the invoice or payment behind a line. The zero key marks a
// manual line with no source document.
type ItemKey struct {
	Kind ItemKind
	ID   int64
}

// InvoiceKey builds the key for an invoice line.
func InvoiceKey(id int64) ItemKey { return ItemKey{Kind: KindInvoice, ID: id} }

// PaymentKey builds the key for a payment line.
func PaymentKey(id int64) ItemKey { return ItemKey{Kind: KindPayment, ID: id} }

// IsZero reports whether the key points at no source document.
func (k ItemKey) IsZero() bool { return k.Kind == "" }

// Matches reports whether both keys refer to the same source document.
func (k ItemKey) Matches(other ItemKey) bool {
	return !k.IsZero() && k.Kind == other.Kind && k.ID == other.ID
}

// String renders the persisted line id.
func (k ItemKey) String() string {
	switch k.Kind {
	case KindInvoice:
		return invoicePrefix + strconv.FormatInt(k.ID, 10)
	case KindPayment:
		return paymentPrefix + strconv.FormatInt(k.ID, 10)
	default:
		return ""
	}
}

// ParseItemKey decodes "inv-<n>" and "pay-<n>".
func ParseItemKey(raw string) (ItemKey, bool) {
	for prefix, kind := range map[string]ItemKind{invoicePrefix: KindInvoice, paymentPrefix: KindPayment} {
		if rest, ok := strings.CutPrefix(raw, prefix); ok {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil || id <= 0 {
				return ItemKey{}, false
			}
			return ItemKey{Kind: kind, ID: id}, true
		}
	}
	return ItemKey{}, false
}

// Item is one ledger line.
type Item struct {
	Key         ItemKey
	Date        string
	Description string
	Credit      decimal.Decimal
	Debit       decimal.Decimal
	Balance     decimal.Decimal
	Vehicle     string

	// stored id/originalId/type when they differ from what Key would render.
	rawID         string
	rawOriginalID json.RawMessage
	rawType       string
}

// ID returns the persisted line id, used for ordering.
func (it Item) ID() string {
	if it.rawID != "" {
		return it.rawID
	}
	return it.Key.String()
}

// Net is credit minus debit.
func (it Item) Net() decimal.Decimal {
	return it.Credit.Sub(it.Debit)
}

// Details is the printable body of a statement.
type Details struct {
	ContractorName string
	Date           string
	LpoNo          string
	Site           string
	Items          []Item
}

// Statement is a denormalised statement of account.
type Statement struct {
	ID           int64     `json:"id"`
	ContractorID *int64    `json:"contractorId,omitempty"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Date         time.Time `json:"date"`
	Letterhead   string    `json:"letterhead"`
	Details      Details   `json:"details"`
	RawDetails   string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BelongsTo reports whether the statement is scoped to contractorID.
func (s Statement) BelongsTo(contractorID int64) bool {
	return s.ContractorID != nil && *s.ContractorID == contractorID
}

// InvoiceSnapshot is the invoice data mirrored into a line.
type InvoiceSnapshot struct {
	ID           int64
	ContractorID int64
	Number       string
	IssueDate    time.Time
	Amount       float64
}

// PaymentSnapshot is the payment data mirrored into a line.
type PaymentSnapshot struct {
	ID           int64
	InvoiceID    int64
	ContractorID int64
	Date         time.Time
	Type         string
	ChequeNo     string
	Amount       float64
}

// PaymentPatch carries the edited payment fields pushed into existing lines.
type PaymentPatch struct {
	Amount   *float64
	Date     *time.Time
	Type     string
	ChequeNo string
}

// CreateStatementInput describes a new statement.
type CreateStatementInput struct {
	ContractorID   *int64    `json:"contractorId"`
	ContractorName string    `json:"contractorName"`
	Name           string    `json:"name" validate:"required"`
	Type           string    `json:"type"`
	Date           time.Time `json:"date"`
	Letterhead     string    `json:"letterhead"`
	LpoNo          string    `json:"lpoNo"`
	Site           string    `json:"site"`
}

// ReconcileResult summarises a reconciliation sweep.
type ReconcileResult struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Skipped  int `json:"skipped"`
}

func (r ReconcileResult) String() string {
	return fmt.Sprintf("scanned=%d repaired=%d skipped=%d", r.Scanned, r.Repaired, r.Skipped)
}
