package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/snd-erp/snd-erp/internal/authz"
	"github.com/snd-erp/snd-erp/internal/shared"
)

// Service handles user administration. Mutations that change a user's
// authorization inputs evict that user's cached permission snapshot.
type Service struct {
	repo        RepositoryPort
	invalidator authz.Invalidator
	audit       *shared.AuditLogger
	logger      *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, invalidator authz.Invalidator, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, invalidator: invalidator, audit: audit, logger: logger}
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	list, total, err := s.repo.ListUsers(ctx, p)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// GetUser fetches a single user with role assignments.
func (s *Service) GetUser(ctx context.Context, id int64) (User, []RoleAssignment, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	assignments, err := s.repo.ListUserRoles(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	return user, assignments, nil
}

// SetActive activates or deactivates an account and evicts the user's cached
// permissions so the new state takes effect immediately.
func (s *Service) SetActive(ctx context.Context, actorID, userID int64, active bool) error {
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}
	action := "user.deactivate"
	if active {
		action = "user.activate"
	}
	s.recordAudit(ctx, actorID, action, userID, nil)
	return nil
}

// AssignRole grants a role to a user.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}
	s.recordAudit(ctx, actorID, "user.role.assign", userID, map[string]any{"role_id": roleID})
	return nil
}

// RemoveRole revokes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}
	s.recordAudit(ctx, actorID, "user.role.remove", userID, map[string]any{"role_id": roleID})
	return nil
}

// SetRoles replaces a user's role assignments with the given set.
func (s *Service) SetRoles(ctx context.Context, actorID, userID int64, roleIDs []int64) error {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	current, err := s.repo.ListUserRoles(ctx, userID)
	if err != nil {
		return err
	}
	currentSet := make(map[int64]bool, len(current))
	for _, a := range current {
		currentSet[a.RoleID] = true
	}
	wantSet := make(map[int64]bool, len(roleIDs))
	for _, id := range roleIDs {
		wantSet[id] = true
	}
	for id := range wantSet {
		if !currentSet[id] {
			if err := s.repo.AssignRole(ctx, userID, id); err != nil {
				return fmt.Errorf("assign role %d: %w", id, err)
			}
		}
	}
	for id := range currentSet {
		if !wantSet[id] {
			if err := s.repo.RemoveRole(ctx, userID, id); err != nil {
				return fmt.Errorf("remove role %d: %w", id, err)
			}
		}
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}
	s.recordAudit(ctx, actorID, "user.roles.set", userID, map[string]any{"role_ids": roleIDs})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
