// Package users is the admin side of user management: listing, editing,
// deleting and bulk-importing client accounts.
package users

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/clientcode"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/services/privileged"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/google/uuid"
)

type Profiles interface {
	ListProfiles(ctx context.Context, f models.ProfileFilter) ([]*models.Profile, error)
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
}

// Accounts removes the identity; profile and role go with it.
type Accounts interface {
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// Creator is privileged.Service.
type Creator interface {
	CreateUser(ctx context.Context, p access.Principal, in privileged.CreateUserInput) (uuid.UUID, error)
}

type Service struct {
	profiles Profiles
	accounts Accounts
	guard    *access.Guard
	creator  Creator
}

func New(profiles Profiles, accounts Accounts, guard *access.Guard, creator Creator) *Service {
	return &Service{
		profiles: profiles,
		accounts: accounts,
		guard:    guard,
		creator:  creator,
	}
}

// List returns profiles newest first, optionally narrowed to one pickup point
// and a substring of client code, name or phone.
func (s *Service) List(ctx context.Context, p access.Principal, f models.ProfileFilter) ([]*models.Profile, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	if f.PVZLocation != "" && !f.PVZLocation.Valid() {
		return nil, apperr.Validation("pvz must be one of nariman, zhiydalik, dostuk")
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.profiles.ListProfiles(ctx, f)
}

type UpdateInput struct {
	FullName    *string             `json:"full_name,omitempty"`
	Phone       *string             `json:"phone,omitempty"`
	PVZLocation *models.PVZLocation `json:"pvz_location,omitempty"`
	ClientCode  *string             `json:"client_code,omitempty"`
	TelegramID  *string             `json:"telegram_id,omitempty"`
}

// Update edits another user's profile. A new client code moves the user to the
// pickup point of its prefix; pvz_location may only agree with that prefix.
func (s *Service) Update(ctx context.Context, p access.Principal, userID uuid.UUID, in UpdateInput) (*models.Profile, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}

	upd := models.ProfileUpdate{TelegramID: in.TelegramID}
	if in.FullName != nil {
		v := strings.TrimSpace(*in.FullName)
		if v == "" {
			return nil, apperr.Validation("full_name must not be empty")
		}
		upd.FullName = &v
	}
	if in.Phone != nil {
		v := strings.TrimSpace(*in.Phone)
		if v == "" {
			return nil, apperr.Validation("phone must not be empty")
		}
		upd.Phone = &v
	}
	if in.PVZLocation != nil && !in.PVZLocation.Valid() {
		return nil, apperr.Validation("pvz_location must be one of nariman, zhiydalik, dostuk")
	}
	if in.ClientCode != nil {
		code := clientcode.Normalize(*in.ClientCode)
		loc, ok := clientcode.Derive(code)
		if !ok {
			return nil, apperr.Validation("client_code must start with YQ, YX or JL")
		}
		if in.PVZLocation != nil && *in.PVZLocation != loc {
			return nil, apperr.Validation("client_code prefix does not match pvz_location")
		}
		upd.ClientCode = &code
		upd.PVZLocation = &loc
	} else if in.PVZLocation != nil {
		cur, err := s.profiles.GetProfileByUserID(ctx, userID)
		if stderrors.Is(err, pgcargo.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		if err != nil {
			return nil, err
		}
		// коды без известного префикса (bootstrap-админ) не привязаны к ПВЗ
		if loc, ok := clientcode.Derive(cur.ClientCode); ok && loc != *in.PVZLocation {
			return nil, apperr.Validation("pvz_location must match the client_code prefix; change client_code instead")
		}
		loc := *in.PVZLocation
		upd.PVZLocation = &loc
	}

	profile, err := s.profiles.UpdateProfile(ctx, userID, upd)
	switch {
	case stderrors.Is(err, pgcargo.ErrNotFound):
		return nil, apperr.NotFound("user not found")
	case pgcargo.IsDuplicate(err, pgcargo.ConstraintProfileClientCode):
		return nil, apperr.Conflict("user with this client code already exists")
	case pgcargo.IsDuplicate(err, pgcargo.ConstraintProfileTelegramID):
		return nil, apperr.Conflict("telegram id is linked to another user")
	case err != nil:
		return nil, err
	}
	slog.Info("user updated by admin", "admin_id", p.UserID, "user_id", userID)
	return profile, nil
}

// Delete removes the user's identity together with the profile and role.
// Packages keep their client code and lose the user id.
func (s *Service) Delete(ctx context.Context, p access.Principal, userID uuid.UUID) error {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return err
	}
	if userID == p.UserID {
		return apperr.Validation("you cannot delete yourself")
	}
	if err := s.accounts.DeleteUser(ctx, userID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		return apperr.Downstream(err)
	}
	slog.Info("user deleted by admin", "admin_id", p.UserID, "user_id", userID)
	return nil
}
