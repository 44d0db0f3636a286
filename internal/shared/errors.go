package shared

import (
	"errors"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
)

var (
	// ErrUnauthorized is returned by every mutating operation when the caller is not an admin.
	ErrUnauthorized = httpx.NewError(httpx.ErrUnauthorized, "Unauthorized")
	// ErrSessionNotFound indicates the bearer token does not map to a live session.
	ErrSessionNotFound = errors.New("session not found")
)
