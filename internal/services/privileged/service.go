// Package privileged holds the operations that act on other people's accounts:
// create-user, admin-login-as-user, telegram-auth and the admin bootstrap.
package privileged

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/clientcode"
	"github.com/BearBump/CargoBox/internal/identity"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/BearBump/CargoBox/internal/validation"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Profiles interface {
	CreateProfile(ctx context.Context, in models.ProfileCreateInput) (*models.Profile, error)
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetProfileByClientCode(ctx context.Context, code string) (*models.Profile, error)
	GetProfileByTelegramID(ctx context.Context, telegramID string) (*models.Profile, error)
}

// Tickets is satisfied by rediscache.TokenStore.
type Tickets interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Take(ctx context.Context, key string) ([]byte, bool, error)
}

type Bootstrap struct {
	Phone       string
	Password    string
	FullName    string
	PVZLocation models.PVZLocation
	// ClientCode of the bootstrap profile; the phone when empty.
	ClientCode string
}

type Service struct {
	gw        identity.Gateway
	profiles  Profiles
	guard     *access.Guard
	tickets   Tickets
	ticketTTL time.Duration
	bootstrap Bootstrap
}

func New(gw identity.Gateway, profiles Profiles, guard *access.Guard, tickets Tickets, ticketTTL time.Duration, bootstrap Bootstrap) *Service {
	if ticketTTL <= 0 {
		ticketTTL = 8 * time.Hour
	}
	if bootstrap.FullName == "" {
		bootstrap.FullName = "Системный Администратор"
	}
	if bootstrap.PVZLocation == "" {
		bootstrap.PVZLocation = models.PVZNariman
	}
	if bootstrap.ClientCode == "" {
		bootstrap.ClientCode = strings.TrimSpace(bootstrap.Phone)
	}
	return &Service{
		gw:        gw,
		profiles:  profiles,
		guard:     guard,
		tickets:   tickets,
		ticketTTL: ticketTTL,
		bootstrap: bootstrap,
	}
}

type CreateUserInput struct {
	ClientCode  string             `json:"client_code" validate:"required"`
	FullName    string             `json:"full_name" validate:"required"`
	Phone       string             `json:"phone" validate:"required"`
	PVZLocation models.PVZLocation `json:"pvz_location" validate:"required,pvz"`
	Password    string             `json:"password" validate:"required"`
}

// CreateUser creates an identity and its profile with the given client code. Admin only.
// The code prefix must name the same pickup point as pvz_location.
func (s *Service) CreateUser(ctx context.Context, p access.Principal, in CreateUserInput) (uuid.UUID, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return uuid.Nil, err
	}
	in.ClientCode = clientcode.Normalize(in.ClientCode)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validation.Struct(in); err != nil {
		return uuid.Nil, err
	}
	loc, ok := clientcode.Derive(in.ClientCode)
	if !ok {
		return uuid.Nil, apperr.Validation("client_code must start with YQ, YX or JL")
	}
	if loc != in.PVZLocation {
		return uuid.Nil, apperr.Validation("client_code prefix does not match pvz_location")
	}

	_, err := s.profiles.GetProfileByClientCode(ctx, in.ClientCode)
	if err == nil {
		return uuid.Nil, apperr.Conflict("user with this client code already exists")
	}
	if !stderrors.Is(err, pgcargo.ErrNotFound) {
		return uuid.Nil, err
	}

	acc, err := s.gw.SignUp(ctx, in.Phone, in.Password)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindConflict, apperr.KindValidation:
			return uuid.Nil, err
		}
		slog.Error("create-user: gateway sign-up failed", "client_code", in.ClientCode, "err", err)
		return uuid.Nil, apperr.Downstream(err)
	}

	_, err = s.profiles.CreateProfile(ctx, models.ProfileCreateInput{
		UserID:      acc.ID,
		ClientCode:  in.ClientCode,
		FullName:    in.FullName,
		Phone:       in.Phone,
		PVZLocation: in.PVZLocation,
		Role:        models.RoleUser,
	})
	if err != nil {
		if delErr := s.gw.DeleteUser(ctx, acc.ID); delErr != nil {
			slog.Error("create-user: rollback account failed", "user_id", acc.ID, "err", delErr)
		}
		if pgcargo.IsDuplicate(err, pgcargo.ConstraintProfileClientCode) {
			return uuid.Nil, apperr.Conflict("user with this client code already exists")
		}
		return uuid.Nil, err
	}

	slog.Info("user created by admin", "admin_id", p.UserID, "user_id", acc.ID, "client_code", in.ClientCode)
	return acc.ID, nil
}

type Impersonation struct {
	LoginToken string
	Ticket     string
	UserName   string
	ClientCode string
	AdminID    uuid.UUID
	ExpiresAt  time.Time
}

type ticket struct {
	AdminID  uuid.UUID `json:"admin_id"`
	TargetID uuid.UUID `json:"target_id"`
}

// LoginAsUser mints a login token for the target and a ticket the admin later
// trades back for their own session. Admin only.
func (s *Service) LoginAsUser(ctx context.Context, p access.Principal, targetUserID uuid.UUID) (*Impersonation, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	if targetUserID == uuid.Nil {
		return nil, apperr.Validation("target_user_id is required")
	}

	target, err := s.profiles.GetProfileByUserID(ctx, targetUserID)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}

	admin := p.UserID
	tok, err := s.gw.GenerateLoginToken(ctx, target.UserID, &admin)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		slog.Error("admin-login-as-user: generate token failed", "target", target.UserID, "err", err)
		return nil, apperr.Downstream(err)
	}

	id, err := randomID()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(ticket{AdminID: admin, TargetID: target.UserID})
	if err != nil {
		return nil, errors.Wrap(err, "encode ticket")
	}
	if err := s.tickets.Put(ctx, ticketKey(id), b, s.ticketTTL); err != nil {
		return nil, apperr.Downstream(err)
	}

	slog.Info("admin logged in as user", "admin_id", admin, "user_id", target.UserID)
	return &Impersonation{
		LoginToken: tok,
		Ticket:     id,
		UserName:   target.FullName,
		ClientCode: target.ClientCode,
		AdminID:    admin,
		ExpiresAt:  time.Now().Add(s.ticketTTL),
	}, nil
}

// RestoreAdminSession trades an impersonation ticket for a fresh admin session.
// The ticket is single-use and only the impersonated user or the admin may present it.
func (s *Service) RestoreAdminSession(ctx context.Context, p access.Principal, ticketID string) (*identity.Session, error) {
	if !p.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	if ticketID == "" {
		return nil, apperr.Validation("ticket is required")
	}
	b, ok, err := s.tickets.Take(ctx, ticketKey(ticketID))
	if err != nil {
		return nil, apperr.Downstream(err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindUnauthenticated, "impersonation ticket is invalid or expired")
	}
	var t ticket
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, errors.Wrap(err, "decode ticket")
	}
	if p.UserID != t.TargetID && p.UserID != t.AdminID {
		return nil, apperr.Forbidden()
	}
	// роль могли снять, пока админ сидел под пользователем
	if err := s.guard.RequireAdmin(ctx, access.Principal{UserID: t.AdminID}); err != nil {
		return nil, err
	}
	return s.gw.IssueSession(ctx, t.AdminID)
}

type TelegramLogin struct {
	LoginToken string
	ClientCode string
	FullName   string
}

// TelegramAuth logs in the user linked to the telegram id. Not found means the
// client should send the user to registration with the id pre-filled.
func (s *Service) TelegramAuth(ctx context.Context, telegramID string) (*TelegramLogin, error) {
	telegramID = strings.TrimSpace(telegramID)
	if telegramID == "" {
		return nil, apperr.Validation("telegram_id is required")
	}
	profile, err := s.profiles.GetProfileByTelegramID(ctx, telegramID)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	tok, err := s.gw.GenerateLoginToken(ctx, profile.UserID, nil)
	if err != nil {
		slog.Error("telegram-auth: generate token failed", "user_id", profile.UserID, "err", err)
		return nil, apperr.Downstream(err)
	}
	return &TelegramLogin{LoginToken: tok, ClientCode: profile.ClientCode, FullName: profile.FullName}, nil
}

type CreateAdminResult struct {
	UserID  uuid.UUID
	Created bool
	Message string
}

// CreateAdmin bootstraps the system administrator from configured credentials.
// Calling it again reports that the admin already exists.
func (s *Service) CreateAdmin(ctx context.Context) (*CreateAdminResult, error) {
	b := s.bootstrap
	if b.Phone == "" || b.Password == "" {
		return nil, apperr.Validation("bootstrap admin credentials are not configured")
	}

	existing, err := s.profiles.GetProfileByClientCode(ctx, b.ClientCode)
	if err == nil {
		return &CreateAdminResult{UserID: existing.UserID, Message: "Admin already exists"}, nil
	}
	if !stderrors.Is(err, pgcargo.ErrNotFound) {
		return nil, err
	}

	acc, err := s.gw.SignUp(ctx, b.Phone, b.Password)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("bootstrap phone is already registered by another user")
		}
		return nil, apperr.Downstream(err)
	}
	_, err = s.profiles.CreateProfile(ctx, models.ProfileCreateInput{
		UserID:      acc.ID,
		ClientCode:  b.ClientCode,
		FullName:    b.FullName,
		Phone:       b.Phone,
		PVZLocation: b.PVZLocation,
		Role:        models.RoleAdmin,
	})
	if err != nil {
		if delErr := s.gw.DeleteUser(ctx, acc.ID); delErr != nil {
			slog.Error("create-admin: rollback account failed", "user_id", acc.ID, "err", delErr)
		}
		return nil, err
	}

	slog.Info("system admin created", "user_id", acc.ID)
	return &CreateAdminResult{UserID: acc.ID, Created: true, Message: "Admin created successfully"}, nil
}

func ticketKey(id string) string { return "imp:" + id }

func randomID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "random ticket")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
