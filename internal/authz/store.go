package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the durable source of truth for users, roles and grants.
type Store interface {
	// GetUser fetches the directory record for a user. Returns ErrNotFound
	// when the account does not exist.
	GetUser(ctx context.Context, userID int64) (User, error)
	// GetRolesForUser returns the roles held by a user, highest priority
	// first. Returns ErrNotFound when the user does not exist and an empty
	// slice when the user holds no roles.
	GetRolesForUser(ctx context.Context, userID int64) ([]Role, error)
	// GetPermissionsForRoles returns the union of permission names granted
	// to the given roles. An empty input yields an empty result without
	// touching the database.
	GetPermissionsForRoles(ctx context.Context, roleIDs []int64) ([]string, error)
	// GetDirectPermissions returns permission names granted to the user
	// directly, outside any role.
	GetDirectPermissions(ctx context.Context, userID int64) ([]string, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// GetUser fetches a user by ID.
func (s *PGStore) GetUser(ctx context.Context, userID int64) (User, error) {
	var user User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, is_active FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// GetRolesForUser returns the roles assigned to a user.
func (s *PGStore) GetRolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.priority, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.priority DESC, r.name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Priority, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		// Distinguish "no roles" from "no such user".
		if _, err := s.GetUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// GetPermissionsForRoles returns deduplicated permission names for the roles.
func (s *PGStore) GetPermissionsForRoles(ctx context.Context, roleIDs []int64) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ANY($1)`,
		roleIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows)
}

// GetDirectPermissions returns permission names granted straight to the user.
func (s *PGStore) GetDirectPermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.name
		FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows)
}

func scanNames(rows pgx.Rows) ([]string, error) {
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

var _ Store = (*PGStore)(nil)
