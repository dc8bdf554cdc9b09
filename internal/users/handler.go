package users

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/snd-erp/snd-erp/internal/authz"
	"github.com/snd-erp/snd-erp/internal/platform/httpx"
	"github.com/snd-erp/snd-erp/internal/shared"
)

// Handler wires the user administration HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	mw        authz.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), mw: mw}
}

// MountRoutes registers user routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission("read", "user"))
		r.Get("/", h.list)
		r.Get("/{userID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission("manage", "user"))
		r.Post("/{userID}/activate", h.activate)
		r.Post("/{userID}/deactivate", h.deactivate)
		r.Put("/{userID}/roles", h.setRoles)
		r.Post("/{userID}/roles/{roleID}", h.assignRole)
		r.Delete("/{userID}/roles/{roleID}", h.removeRole)
	})
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type roleAssignmentResponse struct {
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
}

type userDetailResponse struct {
	userResponse
	Roles []roleAssignmentResponse `json:"roles"`
}

type listResponse struct {
	Users      []userResponse `json:"users"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

type setRolesForm struct {
	RoleIDs []string `json:"role_ids" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	list, pagination, err := h.service.ListUsers(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := listResponse{
		Users:      make([]userResponse, 0, len(list)),
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		Total:      pagination.Total,
		TotalPages: pagination.TotalPages,
	}
	for _, user := range list {
		resp.Users = append(resp.Users, toUserResponse(user))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, assignments, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := userDetailResponse{
		userResponse: toUserResponse(user),
		Roles:        make([]roleAssignmentResponse, 0, len(assignments)),
	}
	for _, a := range assignments {
		resp.Roles = append(resp.Roles, roleAssignmentResponse{
			RoleID:   strconv.FormatInt(a.RoleID, 10),
			RoleName: a.RoleName,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetActive(r.Context(), h.actorID(r), id, active); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) setRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var form setRolesForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	roleIDs := make([]int64, 0, len(form.RoleIDs))
	for _, raw := range form.RoleIDs {
		roleID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role ids must be numeric")
			return
		}
		roleIDs = append(roleIDs, roleID)
	}
	if err := h.service.SetRoles(r.Context(), h.actorID(r), id, roleIDs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := h.userAndRoleID(w, r)
	if !ok {
		return
	}
	if err := h.service.AssignRole(r.Context(), h.actorID(r), userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := h.userAndRoleID(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveRole(r.Context(), h.actorID(r), userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) userAndRoleID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := h.userID(w, r)
	if !ok {
		return 0, 0, false
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role id must be numeric")
		return 0, 0, false
	}
	return userID, roleID, true
}

func (h *Handler) actorID(r *http.Request) int64 {
	id, _ := shared.CurrentUserID(r.Context())
	return id
}

func toUserResponse(user User) userResponse {
	return userResponse{
		ID:        strconv.FormatInt(user.ID, 10),
		Email:     user.Email,
		Name:      user.Name,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
