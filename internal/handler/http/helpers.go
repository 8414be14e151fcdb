package http

import (
	"net/http"
	"time"

	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/service"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
	"github.com/comfyhome/storefront/pkg/httputil"
	"github.com/comfyhome/storefront/pkg/middleware"
)

// CookieConfig controls the auth cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// MessageResponse is the body of endpoints that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// identityFromRequest returns the caller identity stored by the auth
// middleware. It writes a 401 and returns false when none is present.
func identityFromRequest(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication invalid"), nil)
		return domain.Identity{}, false
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication invalid"), nil)
		return domain.Identity{}, false
	}

	return domain.Identity{UserID: claims.UserID, Name: claims.Name, Role: role}, true
}

func setTokenCookie(w http.ResponseWriter, cfg CookieConfig, session *service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "logout",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
