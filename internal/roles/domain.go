package roles

import "time"

// Role represents a role for management.
type Role struct {
	ID          int64
	Name        string
	Description string
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an assignable capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}
