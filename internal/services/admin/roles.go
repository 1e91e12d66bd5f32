package admin

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/google/uuid"
)

func (s *Service) ListRoles(ctx context.Context, p access.Principal) ([]*models.RoleAssignment, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx)
}

// SetRole assigns the single role of a user, replacing the previous one.
func (s *Service) SetRole(ctx context.Context, p access.Principal, userID uuid.UUID, role models.Role) error {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return err
	}
	if !role.Valid() {
		return apperr.Validation("role must be one of user, pvz, admin")
	}
	if userID == p.UserID && role != models.RoleAdmin {
		return apperr.Validation("you cannot take the admin role from yourself")
	}
	err := s.repo.SetRole(ctx, userID, role)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return err
	}
	slog.Info("role changed", "admin_id", p.UserID, "user_id", userID, "role", role)
	return nil
}

// DeleteRole leaves the user without any role; such a user can only sign in.
func (s *Service) DeleteRole(ctx context.Context, p access.Principal, userID uuid.UUID) error {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return err
	}
	if userID == p.UserID {
		return apperr.Validation("you cannot take the admin role from yourself")
	}
	err := s.repo.DeleteRole(ctx, userID)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return apperr.NotFound("role not found")
	}
	if err != nil {
		return err
	}
	slog.Info("role deleted", "admin_id", p.UserID, "user_id", userID)
	return nil
}
