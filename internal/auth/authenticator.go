package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comfyhome/storefront/pkg/middleware"
)

// ErrRevoked is returned for tokens that were logged out.
var ErrRevoked = errors.New("token revoked")

// Denylist records revoked token ids until their natural expiry.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator validates request tokens and handles logout.
type Authenticator struct {
	tokens   *TokenManager
	denylist Denylist
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *TokenManager, denylist Denylist) *Authenticator {
	return &Authenticator{tokens: tokens, denylist: denylist}
}

// Validate satisfies middleware.TokenValidator.
func (a *Authenticator) Validate(ctx context.Context, token string) (*middleware.Claims, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := a.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	return &middleware.Claims{
		UserID:    claims.UserID,
		Name:      claims.Name,
		Role:      claims.Role.String(),
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke denylists the token for the rest of its lifetime. Already expired
// tokens need no entry.
func (a *Authenticator) Revoke(ctx context.Context, claims *middleware.Claims) error {
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 || claims.TokenID == "" {
		return nil
	}
	if err := a.denylist.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
