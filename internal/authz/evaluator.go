package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/snd-erp/snd-erp/internal/observability"
)

// Denial reasons surfaced through Decision.Reason.
const (
	ReasonUserNotFound = "user not found"
	ReasonUserInactive = "user account is inactive"
)

// Evaluator decides whether a user may perform an action on a subject,
// consulting the cache before the store. It fails closed: a store error
// during resolution surfaces as an error, never as an allow.
type Evaluator struct {
	store   Store
	cache   *Cache
	metrics *observability.AuthzMetrics
	logger  *slog.Logger
	group   singleflight.Group
}

// NewEvaluator wires an evaluator from its collaborators. Metrics and logger
// may be nil.
func NewEvaluator(store Store, cache *Cache, metrics *observability.AuthzMetrics, logger *slog.Logger) *Evaluator {
	return &Evaluator{store: store, cache: cache, metrics: metrics, logger: logger}
}

// CheckPermission reports whether the user may perform action on subject.
// Unknown or inactive users deny with a reason; only store failures return a
// non-nil error.
func (e *Evaluator) CheckPermission(ctx context.Context, userID int64, action, subject string) (Decision, error) {
	snapshot, err := e.snapshot(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.metrics.Decision("deny")
			return Decision{Allowed: false, Reason: ReasonUserNotFound}, nil
		}
		e.metrics.Decision("error")
		return Decision{}, fmt.Errorf("authz: resolve permissions for user %d: %w", userID, err)
	}
	if !snapshot.Active {
		e.metrics.Decision("deny")
		return Decision{Allowed: false, Reason: ReasonUserInactive}, nil
	}
	if snapshot.Permissions.Allows(action, subject) {
		e.metrics.Decision("allow")
		return Decision{Allowed: true}, nil
	}
	e.metrics.Decision("deny")
	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("missing permission %s.%s", Normalize(action), Normalize(subject)),
	}, nil
}

// EffectivePermissions returns the user's resolved permission strings in
// sorted order, using the same cache-then-store path as CheckPermission.
func (e *Evaluator) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	snapshot, err := e.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return snapshot.Permissions.List(), nil
}

// Warm resolves a user's snapshot from the store and installs it in the
// cache, regardless of any existing entry. Used by the warmup job.
func (e *Evaluator) Warm(ctx context.Context, userID int64) error {
	snapshot, err := e.resolve(ctx, userID)
	if err != nil {
		return err
	}
	e.cache.Set(snapshot)
	return nil
}

// InvalidateUser evicts one user's cached snapshot.
func (e *Evaluator) InvalidateUser(userID int64) {
	e.cache.Invalidate(userID)
	e.metrics.Invalidation("user")
	if e.logger != nil {
		e.logger.Debug("authz cache invalidated", slog.Int64("user_id", userID))
	}
}

// InvalidateAll clears the whole cache.
func (e *Evaluator) InvalidateAll() {
	e.cache.InvalidateAll()
	e.metrics.Invalidation("all")
	if e.logger != nil {
		e.logger.Debug("authz cache cleared")
	}
}

var _ Invalidator = (*Evaluator)(nil)

func (e *Evaluator) snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	if snapshot, ok := e.cache.Get(userID); ok {
		e.metrics.CacheHit()
		return snapshot, nil
	}
	e.metrics.CacheMiss()

	// Concurrent misses for the same user collapse to one store round-trip.
	// Resolution runs detached from request cancellation: permission data is
	// cheap and reusable, so an abandoned request still populates the cache.
	value, err, _ := e.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		snapshot, err := e.resolve(context.WithoutCancel(ctx), userID)
		if err != nil {
			return nil, err
		}
		e.cache.Set(snapshot)
		return snapshot, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return value.(Snapshot), nil
}

func (e *Evaluator) resolve(ctx context.Context, userID int64) (Snapshot, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	roles, err := e.store.GetRolesForUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	roleIDs := make([]int64, len(roles))
	for i, role := range roles {
		roleIDs[i] = role.ID
	}
	rolePerms, err := e.store.GetPermissionsForRoles(ctx, roleIDs)
	if err != nil {
		return Snapshot{}, err
	}
	directPerms, err := e.store.GetDirectPermissions(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		UserID:      userID,
		Active:      user.IsActive,
		Permissions: NewPermissionSet(rolePerms, directPerms),
		ResolvedAt:  e.cache.now(),
	}, nil
}
