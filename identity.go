package tokenx

import (
	"errors"

	"github.com/google/uuid"
)

// Identity is the normalized view of a token's claims.
type Identity struct {
	ID          Claim
	Name        Claim
	Email       Claim
	Role        string
	PhoneNumber Claim
	Raw         ClaimsMap
}

// HasRole reports whether the identity's role matches any of roles, ignoring case.
func (i *Identity) HasRole(roles ...string) bool {
	if i == nil || i.Role == "" {
		return false
	}
	for _, role := range roles {
		if normalizeRole(role) == i.Role {
			return true
		}
	}
	return false
}

// UserID parses the identity's ID claim as a UUID.
func (i *Identity) UserID() (uuid.UUID, error) {
	if i == nil {
		return uuid.Nil, errors.New("identity is nil")
	}
	id, ok := i.ID.Text()
	if !ok {
		return uuid.Nil, errors.New("id claim is absent")
	}
	return uuid.Parse(id)
}

// Anonymous reports whether the identity carries neither a role nor an id.
func (i *Identity) Anonymous() bool {
	if i == nil {
		return true
	}
	return i.Role == "" && !i.ID.Present
}
