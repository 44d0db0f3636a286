package trips

import "github.com/rvt-fleet/fleetledger/internal/platform/httpx"

// ErrInvalidDateRange is returned when the filter's end precedes its start.
var ErrInvalidDateRange = httpx.NewError(httpx.ErrValidation, "date range end precedes start")
