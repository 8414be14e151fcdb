package http

import (
	"log/slog"
	"net/http"

	"github.com/comfyhome/storefront/internal/auth"
	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/service"
	"github.com/comfyhome/storefront/pkg/httputil"
	"github.com/comfyhome/storefront/pkg/middleware"
	"github.com/comfyhome/storefront/pkg/validator"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	users  *service.UserService
	auth   *auth.Authenticator
	cookie CookieConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(users *service.UserService, authenticator *auth.Authenticator, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		auth:   authenticator,
		cookie: cookie,
		logger: logger,
	}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=15"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the JSON request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse wraps the token identity returned by auth endpoints.
type UserResponse struct {
	User domain.Identity `json:"user"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	session, err := h.users.Register(r.Context(), &service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setTokenCookie(w, h.cookie, session)
	httputil.WriteData(w, http.StatusCreated, UserResponse{User: session.User.Identity()})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setTokenCookie(w, h.cookie, session)
	httputil.WriteData(w, http.StatusOK, UserResponse{User: session.User.Identity()})
}

// Logout handles GET /api/v1/auth/logout. The cookie is always cleared; a
// still valid token is also denylisted until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r, h.cookie.Name); token != "" {
		if claims, err := h.auth.Validate(r.Context(), token); err == nil {
			if err := h.auth.Revoke(r.Context(), claims); err != nil {
				httputil.WriteError(w, r, err, h.logger)
				return
			}
		}
	}

	clearTokenCookie(w, h.cookie)
	httputil.WriteData(w, http.StatusOK, MessageResponse{Message: "user logged out"})
}
