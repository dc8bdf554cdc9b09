package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/snd-erp/snd-erp/internal/platform/httpx"
	"github.com/snd-erp/snd-erp/internal/shared"
)

// Middleware adapts the evaluator into request-wrapping authorization
// guards. Authorization failures are resolved entirely here; the wrapped
// handler never runs on a denial.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// RequirePermission guards a route with a single (action, subject) check.
// No session user rejects with 401, an inactive user or missing grant with
// 403, and an evaluator failure with 500.
func (m Middleware) RequirePermission(action, subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			decision, err := m.Evaluator.CheckPermission(r.Context(), userID, action, subject)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz check", slog.String("action", action), slog.String("subject", subject), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !decision.Allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", decision.Reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current user holds at least one of the required
// permission strings. Wildcard grants satisfy the requirement the same way
// they do for RequirePermission.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	required := parseRequirements(perms)
	return m.requireFunc(required, func(set PermissionSet, refs []PermissionRef) bool {
		for _, ref := range refs {
			if set.Allows(ref.Action, ref.Subject) {
				return true
			}
		}
		return false
	})
}

// RequireAll ensures the current user holds every required permission string.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	required := parseRequirements(perms)
	return m.requireFunc(required, func(set PermissionSet, refs []PermissionRef) bool {
		for _, ref := range refs {
			if !set.Allows(ref.Action, ref.Subject) {
				return false
			}
		}
		return true
	})
}

func (m Middleware) requireFunc(required []PermissionRef, satisfied func(PermissionSet, []PermissionRef) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := m.currentUserID(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			snapshot, err := m.Evaluator.snapshot(r.Context(), userID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", ReasonUserNotFound)
					return
				}
				if m.Logger != nil {
					m.Logger.Error("authz require", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !snapshot.Active {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", ReasonUserInactive)
				return
			}
			if satisfied(snapshot.Permissions, required) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func parseRequirements(perms []string) []PermissionRef {
	unique := make(map[string]PermissionRef, len(perms))
	for _, raw := range perms {
		ref, err := ParsePermission(raw)
		if err != nil {
			continue
		}
		unique[ref.String()] = ref
	}
	refs := make([]PermissionRef, 0, len(unique))
	for _, ref := range unique {
		refs = append(refs, ref)
	}
	return refs
}
