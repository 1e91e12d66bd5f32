package access

import (
	"context"

	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
)

// RoleStore returns models.RoleNone when the identity has no role row.
type RoleStore interface {
	GetRole(ctx context.Context, userID uuid.UUID) (models.Role, error)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
	// Set when the session was minted for an admin acting as this user.
	ImpersonatorID *uuid.UUID
}

func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil
}

// Guard resolves the caller's role from the store on every check.
// The role is never taken from the token.
type Guard struct {
	roles RoleStore
}

func NewGuard(roles RoleStore) *Guard {
	return &Guard{roles: roles}
}

func (g *Guard) Resolve(ctx context.Context, p Principal) (models.Role, error) {
	if !p.Authenticated() {
		return models.RoleNone, apperr.Unauthenticated()
	}
	role, err := g.roles.GetRole(ctx, p.UserID)
	if err != nil {
		return models.RoleNone, apperr.Downstream(err)
	}
	if !role.Valid() {
		return models.RoleNone, nil
	}
	return role, nil
}

// Require passes when the caller's role is one of allowed.
func (g *Guard) Require(ctx context.Context, p Principal, allowed ...models.Role) (models.Role, error) {
	role, err := g.Resolve(ctx, p)
	if err != nil {
		return role, err
	}
	if !Allowed(role, allowed...) {
		return role, apperr.Forbidden()
	}
	return role, nil
}

func (g *Guard) RequireAdmin(ctx context.Context, p Principal) error {
	_, err := g.Require(ctx, p, models.RoleAdmin)
	return err
}

func Allowed(role models.Role, allowed ...models.Role) bool {
	if role == models.RoleNone {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
