package statements

import "github.com/rvt-fleet/fleetledger/internal/platform/httpx"

var (
	ErrStatementNotFound = httpx.NewError(httpx.ErrNotFound, "Statement not found")
	ErrInvoiceNotFound   = httpx.NewError(httpx.ErrNotFound, "Invoice not found")
	ErrPaymentNotFound   = httpx.NewError(httpx.ErrNotFound, "Payment not found")
	ErrDuplicatePayment  = httpx.NewError(httpx.ErrDuplicate, "Payment already exists in this statement")
	ErrInvalidDetails    = httpx.NewError(httpx.ErrValidation, "Invalid statement details")
	ErrInvalidOrder      = httpx.NewError(httpx.ErrValidation, "order must list every statement item exactly once")
	ErrWrongContractor   = httpx.NewError(httpx.ErrValidation, "document belongs to a different contractor")
)
