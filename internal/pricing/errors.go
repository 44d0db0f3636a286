package pricing

import (
	"errors"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
)

var (
	// ErrContractorNotFound is returned when the contractor id is unknown.
	ErrContractorNotFound = httpx.NewError(httpx.ErrNotFound, "Contractor not found")
	// ErrPriceNotDefined is returned when no rule prices the requested material and route.
	ErrPriceNotDefined = httpx.NewError(httpx.ErrValidation, "price not defined for this material and route")
	// ErrInvalidRoute flags a route string that is not "From|To".
	ErrInvalidRoute = errors.New("route must be formatted as From|To")
)
