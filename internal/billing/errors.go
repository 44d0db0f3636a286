package billing

import (
	"fmt"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/pricing"
)

var (
	ErrNoTrips            = httpx.NewError(httpx.ErrValidation, "No trips selected")
	ErrContractorNotFound = pricing.ErrContractorNotFound
	ErrPriceNotDefined    = pricing.ErrPriceNotDefined
	ErrMixedSelection     = httpx.NewError(httpx.ErrValidation, "selected trips must share the same material and route")
	ErrInvoiceNotFound    = httpx.NewError(httpx.ErrNotFound, "Invoice not found")
	ErrPaymentNotFound    = httpx.NewError(httpx.ErrNotFound, "Payment not found")
	ErrInvalidMetadata    = httpx.NewError(httpx.ErrValidation, "metadata must be a JSON object")
	ErrInvalidTotal       = httpx.NewError(httpx.ErrValidation, "total amount must not be negative")
	ErrNumberTaken        = httpx.NewError(httpx.ErrDuplicate, "invoice number already issued, please retry")
)

func errTripInvoiced(id int64) error {
	return httpx.NewError(httpx.ErrValidation, fmt.Sprintf("trip %d is already invoiced", id))
}

func errTripContractor(id int64) error {
	return httpx.NewError(httpx.ErrValidation, fmt.Sprintf("trip %d belongs to a different contractor", id))
}
