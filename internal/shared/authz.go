package shared

import (
	"context"
	"strings"
)

// Role is the coarse role carried by a session.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// ParseRole normalises a stored role name.
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Actor identifies the caller of an operation.
type Actor struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the actor may mutate billing data.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// RequireAdmin is the first check of every mutating operation.
func RequireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || !actor.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

// RequireActor rejects anonymous callers of read operations.
func RequireActor(ctx context.Context) error {
	if _, ok := ActorFromContext(ctx); !ok {
		return ErrUnauthorized
	}
	return nil
}

// ActorID returns the caller's user id, zero when anonymous.
func ActorID(ctx context.Context) int64 {
	actor, _ := ActorFromContext(ctx)
	return actor.UserID
}
