package authz

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/snd-erp/snd-erp/internal/platform/httpx"
	"github.com/snd-erp/snd-erp/internal/shared"
)

// Handler exposes the administrative authorization endpoints: cache
// invalidation, effective permission listing and the vocabulary catalog.
type Handler struct {
	logger    *slog.Logger
	evaluator *Evaluator
	audit     *shared.AuditLogger
	mw        Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, evaluator *Evaluator, audit *shared.AuditLogger, mw Middleware) *Handler {
	return &Handler{logger: logger, evaluator: evaluator, audit: audit, mw: mw}
}

// MountRoutes registers the authz admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission("read", "settings"))
		r.Get("/catalog", h.catalog)
		r.Get("/permissions/{userID}", h.effectivePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission("manage", "settings"))
		r.Post("/cache/invalidate", h.invalidateCache)
	})
}

type invalidateRequest struct {
	UserID string `json:"user_id"`
}

type invalidateResponse struct {
	Status string `json:"status"`
	Scope  string `json:"scope"`
}

func (h *Handler) invalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	scope := "all"
	if req.UserID != "" {
		userID, err := strconv.ParseInt(req.UserID, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id must be numeric")
			return
		}
		h.evaluator.InvalidateUser(userID)
		scope = "user"
		h.recordAudit(r, "authz.cache.invalidate", req.UserID)
	} else {
		h.evaluator.InvalidateAll()
		h.recordAudit(r, "authz.cache.invalidate_all", "*")
	}

	httpx.JSON(w, http.StatusOK, invalidateResponse{Status: "ok", Scope: scope})
}

type effectivePermissionsResponse struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user id must be numeric")
		return
	}
	perms, err := h.evaluator.EffectivePermissions(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("effective permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, effectivePermissionsResponse{
		UserID:      strconv.FormatInt(userID, 10),
		Permissions: perms,
	})
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"catalog": Catalog()})
}

func (h *Handler) recordAudit(r *http.Request, action, entityID string) {
	if h.audit == nil {
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "authz_cache",
		EntityID: entityID,
	}); err != nil && h.logger != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
