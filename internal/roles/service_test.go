package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snd-erp/snd-erp/internal/platform/httpx"
)

type memoryRepo struct {
	roles     map[int64]Role
	perms     map[int64]Permission
	rolePerms map[int64]map[int64]struct{}
	nextRole  int64
	nextPerm  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		roles:     make(map[int64]Role),
		perms:     make(map[int64]Permission),
		rolePerms: make(map[int64]map[int64]struct{}),
	}
}

func (r *memoryRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *memoryRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, httpx.ErrNotFound
	}
	return role, nil
}

func (r *memoryRepo) CreateRole(ctx context.Context, name, description string, priority int) (Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return Role{}, httpx.ErrDuplicate
		}
	}
	r.nextRole++
	role := Role{ID: r.nextRole, Name: name, Description: description, Priority: priority, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.roles[role.ID] = role
	r.rolePerms[role.ID] = make(map[int64]struct{})
	return role, nil
}

func (r *memoryRepo) UpdateRole(ctx context.Context, id int64, name, description string, priority int) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, httpx.ErrNotFound
	}
	role.Name = name
	role.Description = description
	role.Priority = priority
	r.roles[id] = role
	return role, nil
}

func (r *memoryRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := r.roles[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.roles, id)
	delete(r.rolePerms, id)
	return nil
}

func (r *memoryRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(r.perms))
	for _, perm := range r.perms {
		out = append(out, perm)
	}
	return out, nil
}

func (r *memoryRepo) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	for _, perm := range r.perms {
		if perm.Name == name {
			perm.Description = description
			r.perms[perm.ID] = perm
			return perm, nil
		}
	}
	r.nextPerm++
	perm := Permission{ID: r.nextPerm, Name: name, Description: description}
	r.perms[perm.ID] = perm
	return perm, nil
}

func (r *memoryRepo) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	out := make([]Permission, 0)
	for id := range r.rolePerms[roleID] {
		out = append(out, r.perms[id])
	}
	return out, nil
}

func (r *memoryRepo) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	next := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		next[id] = struct{}{}
	}
	r.rolePerms[roleID] = next
	return nil
}

type spyInvalidator struct {
	users []int64
	all   int
}

func (s *spyInvalidator) InvalidateUser(userID int64) {
	s.users = append(s.users, userID)
}

func (s *spyInvalidator) InvalidateAll() {
	s.all++
}

func TestCreateRoleValidatesName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	_, err := svc.CreateRole(context.Background(), 1, "   ", "", 0)
	require.ErrorIs(t, err, httpx.ErrValidation)

	role, err := svc.CreateRole(context.Background(), 1, "  Admin  ", " full access ", 10)
	require.NoError(t, err)
	require.Equal(t, "Admin", role.Name)
	require.Equal(t, "full access", role.Description)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	_, err := svc.CreateRole(context.Background(), 1, "Admin", "", 0)
	require.NoError(t, err)
	_, err = svc.CreateRole(context.Background(), 1, "Admin", "", 0)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestDeleteRoleClearsCache(t *testing.T) {
	repo := newMemoryRepo()
	spy := &spyInvalidator{}
	svc := NewService(repo, spy, nil, nil)

	role, err := svc.CreateRole(context.Background(), 1, "Admin", "", 0)
	require.NoError(t, err)
	require.Zero(t, spy.all, "creation does not touch the cache")

	require.NoError(t, svc.DeleteRole(context.Background(), 1, role.ID))
	require.Equal(t, 1, spy.all)

	require.ErrorIs(t, svc.DeleteRole(context.Background(), 1, role.ID), httpx.ErrNotFound)
	require.Equal(t, 1, spy.all, "failed delete must not invalidate")
}

func TestEnsurePermissionValidatesGrammar(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	_, err := svc.EnsurePermission(context.Background(), "notapermission", "")
	require.ErrorIs(t, err, httpx.ErrValidation)

	perm, err := svc.EnsurePermission(context.Background(), " Read.Employee ", "view employees")
	require.NoError(t, err)
	require.Equal(t, "read.employee", perm.Name)

	perm, err = svc.EnsurePermission(context.Background(), "*", "superuser")
	require.NoError(t, err)
	require.Equal(t, "*", perm.Name)
}

func TestSetRolePermissionsDiffs(t *testing.T) {
	repo := newMemoryRepo()
	spy := &spyInvalidator{}
	svc := NewService(repo, spy, nil, nil)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, 1, "Operator", "", 0)
	require.NoError(t, err)
	read, err := svc.EnsurePermission(ctx, "read.equipment", "")
	require.NoError(t, err)
	update, err := svc.EnsurePermission(ctx, "update.equipment", "")
	require.NoError(t, err)
	manage, err := svc.EnsurePermission(ctx, "manage.rental", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetRolePermissions(ctx, 1, role.ID, []int64{read.ID, update.ID}))
	require.Equal(t, 1, spy.all)

	_, perms, err := svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 2)

	require.NoError(t, svc.SetRolePermissions(ctx, 1, role.ID, []int64{update.ID, manage.ID}))
	require.Equal(t, 2, spy.all)

	_, perms, err = svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	names := make(map[string]bool, len(perms))
	for _, perm := range perms {
		names[perm.Name] = true
	}
	require.True(t, names["update.equipment"])
	require.True(t, names["manage.rental"])
	require.False(t, names["read.equipment"])
}

func TestSetRolePermissionsUnknownRole(t *testing.T) {
	spy := &spyInvalidator{}
	svc := NewService(newMemoryRepo(), spy, nil, nil)

	err := svc.SetRolePermissions(context.Background(), 1, 99, []int64{1})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Zero(t, spy.all)
}
