package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/comfyhome/storefront/pkg/errors"
	"github.com/comfyhome/storefront/pkg/httputil"
	"github.com/comfyhome/storefront/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Claims is the authenticated identity carried by a request.
type Claims struct {
	UserID    string
	Name      string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// TokenValidator verifies a raw token and returns its claims. It receives the
// request context so it can consult a revocation store.
type TokenValidator func(ctx context.Context, token string) (*Claims, error)

// TokenFromRequest returns the token from the named cookie, falling back to
// an "Authorization: Bearer" header. It returns "" when neither is present.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Auth rejects requests without a valid token with 401 and stores the claims
// in the request context otherwise.
func Auth(cookieName string, validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication invalid"), nil)
				return
			}

			claims, err := validate(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication invalid"), nil)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", claims.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole answers 403 unless the authenticated role is one of roles.
// It must be mounted after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication invalid"), nil)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				httputil.WriteError(w, r, apperrors.Forbidden("not allowed to access this route"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by Auth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}
