// Package access decides whether a caller may act on a user-owned resource.
package access

import (
	"strings"

	"github.com/google/uuid"

	"github.com/comfyhome/storefront/internal/domain"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

// OwnerID is the set of types an owner reference may be held in.
type OwnerID interface {
	string | uuid.UUID
}

// CheckPermissions allows admins unconditionally and everyone else only when
// they own the resource. Failure is a 401 Unauthorized application error.
func CheckPermissions[T OwnerID](requester domain.Identity, ownerID T) error {
	if requester.IsAdmin() {
		return nil
	}

	self := canonical(requester.UserID)
	if self != "" && self == canonicalOwner(ownerID) {
		return nil
	}

	return apperrors.Unauthorized("not authorized to access this route")
}

func canonicalOwner[T OwnerID](id T) string {
	switch v := any(id).(type) {
	case uuid.UUID:
		if v == uuid.Nil {
			return ""
		}
		return v.String()
	case string:
		return canonical(v)
	}
	return ""
}

// canonical renders UUID-shaped ids in lowercase hyphenated form and trims
// everything else, so differently formatted references to one user compare equal.
func canonical(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}
