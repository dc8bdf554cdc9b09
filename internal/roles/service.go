package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/snd-erp/snd-erp/internal/authz"
	"github.com/snd-erp/snd-erp/internal/platform/httpx"
	"github.com/snd-erp/snd-erp/internal/shared"
)

// Service handles role business logic. Mutations evict affected cache
// entries through the invalidator and are written to the audit log.
type Service struct {
	repo        RepositoryPort
	invalidator authz.Invalidator
	audit       *shared.AuditLogger
	logger      *slog.Logger
}

// NewService builds Service instance. Invalidator and audit may be nil in tests.
func NewService(repo RepositoryPort, invalidator authz.Invalidator, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, invalidator: invalidator, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role with its permissions.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, []Permission, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	perms, err := s.repo.ListRolePermissions(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	return role, perms, nil
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string, priority int) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", httpx.ErrValidation)
	}
	role, err := s.repo.CreateRole(ctx, name, strings.TrimSpace(description), priority)
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.create", role.ID)
	return role, nil
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, name, description string, priority int) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", httpx.ErrValidation)
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description), priority)
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.update", role.ID)
	return role, nil
}

// DeleteRole removes a role. Every cached permission set may reference the
// role, so the whole cache is cleared.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateAll()
	}
	s.recordAudit(ctx, actorID, "role.delete", id)
	return nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// EnsurePermission upserts a permission, validating its grammar first.
func (s *Service) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	ref, err := authz.ParsePermission(name)
	if err != nil {
		return Permission{}, fmt.Errorf("%w: permission must be action.subject or a wildcard", httpx.ErrValidation)
	}
	return s.repo.EnsurePermission(ctx, ref.String(), strings.TrimSpace(description))
}

// SetRolePermissions replaces the permission set of a role. The blast radius
// spans every user holding the role, so the whole cache is cleared afterwards.
func (s *Service) SetRolePermissions(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	unique := make(map[int64]struct{}, len(permissionIDs))
	deduped := make([]int64, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		deduped = append(deduped, id)
	}
	if err := s.repo.ReplacePermissions(ctx, roleID, deduped); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateAll()
	}
	s.recordAudit(ctx, actorID, "role.permissions.set", roleID)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, roleID int64) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
