package authz

import (
	"errors"
	"time"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("authz: not found")

// User is the directory record the authorizer needs about an account.
type User struct {
	ID       int64
	Email    string
	IsActive bool
}

// Role represents a named bundle of permissions. Priority orders roles when a
// user holds several; grants are additive so priority only affects listing
// order, never the outcome of a check.
type Role struct {
	ID          int64
	Name        string
	Description string
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability stored in the catalog.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// UserRole links a user to a role.
type UserRole struct {
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
}

// Decision is the outcome of a permission check. Reason is populated on
// denial so callers can distinguish "inactive account" from "missing grant".
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Snapshot is the resolved authorization state for one user, as cached
// between store lookups.
type Snapshot struct {
	UserID      int64
	Active      bool
	Permissions PermissionSet
	ResolvedAt  time.Time
}

// Invalidator evicts cached authorization state. Role and user mutations go
// through this interface so admin modules do not depend on the evaluator.
type Invalidator interface {
	InvalidateUser(userID int64)
	InvalidateAll()
}
