package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comfyhome/storefront/internal/service"
	"github.com/comfyhome/storefront/pkg/httputil"
	"github.com/comfyhome/storefront/pkg/validator"
)

// UserHandler handles account endpoints for authenticated users.
type UserHandler struct {
	users  *service.UserService
	cookie CookieConfig
	logger *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(users *service.UserService, cookie CookieConfig, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, cookie: cookie, logger: logger}
}

// --- Request DTOs ---

// UpdateUserRequest is the JSON request body for a profile update.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required,min=3,max=15"`
	Email string `json:"email" validate:"required,email"`
}

// UpdatePasswordRequest is the JSON request body for a password change.
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// --- Handlers ---

// ListUsers handles GET /api/v1/users. Admin only.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, users)
}

// ShowMe handles GET /api/v1/users/showMe.
func (h *UserHandler) ShowMe(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(w, r)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, UserResponse{User: id})
}

// GetUser handles GET /api/v1/users/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), requester, id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// UpdateUser handles PATCH /api/v1/users/updateUser and re-issues the cookie.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	session, err := h.users.UpdateProfile(r.Context(), requester, req.Name, req.Email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setTokenCookie(w, h.cookie, session)
	httputil.WriteData(w, http.StatusOK, UserResponse{User: session.User.Identity()})
}

// UpdatePassword handles PATCH /api/v1/users/updateUserPassword.
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	requester, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.users.UpdatePassword(r.Context(), requester, req.OldPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, MessageResponse{Message: "password updated"})
}
