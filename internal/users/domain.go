package users

import "time"

// User represents a user account for management.
type User struct {
	ID        int64
	Email     string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleAssignment describes a role held by a user.
type RoleAssignment struct {
	RoleID   int64
	RoleName string
}
