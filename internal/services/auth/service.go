package auth

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/broker/messages"
	"github.com/BearBump/CargoBox/internal/identity"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/BearBump/CargoBox/internal/validation"
	"github.com/google/uuid"
)

type Profiles interface {
	CreateProfile(ctx context.Context, in models.ProfileCreateInput) (*models.Profile, error)
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
	Reset(ctx context.Context, key string) error
}

type Service struct {
	gw       identity.Gateway
	profiles Profiles
	guard    *access.Guard
	pub      Publisher
	limiter  Limiter

	loginLimit int64
}

// New: pub and limiter may be nil, then events and throttling are off.
func New(gw identity.Gateway, profiles Profiles, guard *access.Guard, pub Publisher, limiter Limiter, loginLimitPerMinute int64) *Service {
	return &Service{
		gw:         gw,
		profiles:   profiles,
		guard:      guard,
		pub:        pub,
		limiter:    limiter,
		loginLimit: loginLimitPerMinute,
	}
}

type RegisterInput struct {
	FullName    string             `json:"full_name" validate:"required"`
	Phone       string             `json:"phone" validate:"required"`
	Password    string             `json:"password" validate:"required,min=6"`
	PVZLocation models.PVZLocation `json:"pvz_location" validate:"required,pvz"`
	TelegramID  *string            `json:"telegram_id,omitempty"`
}

type RegisterResult struct {
	Session *identity.Session
	Profile *models.Profile
}

// Register creates the identity, then the profile with a generated client code and role user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.TelegramID != nil && strings.TrimSpace(*in.TelegramID) == "" {
		in.TelegramID = nil
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	acc, err := s.gw.SignUp(ctx, in.Phone, in.Password)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("user with this phone is already registered")
		}
		return nil, err
	}

	profile, err := s.profiles.CreateProfile(ctx, models.ProfileCreateInput{
		UserID:      acc.ID,
		FullName:    in.FullName,
		Phone:       in.Phone,
		PVZLocation: in.PVZLocation,
		TelegramID:  in.TelegramID,
		Role:        models.RoleUser,
	})
	if err != nil {
		// без профиля аккаунт бесполезен
		if delErr := s.gw.DeleteUser(ctx, acc.ID); delErr != nil {
			slog.Error("rollback account failed", "user_id", acc.ID, "err", delErr)
		}
		if pgcargo.IsDuplicate(err, pgcargo.ConstraintProfileTelegramID) {
			return nil, apperr.Conflict("telegram account is already linked")
		}
		return nil, err
	}

	sess, err := s.gw.IssueSession(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	if profile.TelegramID != nil {
		s.publishRegistered(ctx, profile)
	}

	slog.Info("user registered", "user_id", acc.ID, "client_code", profile.ClientCode)
	return &RegisterResult{Session: sess, Profile: profile}, nil
}

func (s *Service) publishRegistered(ctx context.Context, p *models.Profile) {
	if s.pub == nil {
		return
	}
	msg := messages.UserRegistered{
		UserID:       p.UserID.String(),
		TelegramID:   *p.TelegramID,
		FullName:     p.FullName,
		ClientCode:   p.ClientCode,
		Phone:        identity.PhoneDigits(p.Phone),
		PVZ:          string(p.PVZLocation),
		RegisteredAt: p.CreatedAt,
	}
	if err := s.pub.PublishJSON(ctx, messages.TopicUserRegistered, msg.UserID, msg); err != nil {
		slog.Warn("publish user.registered failed", "user_id", msg.UserID, "err", err)
	}
}

func (s *Service) SignIn(ctx context.Context, phone, password string) (*identity.Session, error) {
	key := "rl:signin:" + identity.PhoneDigits(phone)
	if s.limiter != nil && s.loginLimit > 0 {
		ok, _, err := s.limiter.Allow(ctx, key, s.loginLimit, time.Minute)
		if err != nil {
			// redis недоступен - не блокируем вход
			slog.Warn("login rate limiter failed", "err", err)
		} else if !ok {
			return nil, apperr.New(apperr.KindRateLimited, "too many sign-in attempts, try again later")
		}
	}

	sess, err := s.gw.SignIn(ctx, phone, password)
	if err != nil {
		return nil, err
	}
	if s.limiter != nil {
		_ = s.limiter.Reset(ctx, key)
	}
	return sess, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	if refreshToken == "" {
		return nil, apperr.Validation("refresh_token is required")
	}
	return s.gw.Refresh(ctx, refreshToken)
}

func (s *Service) Verify(ctx context.Context, token string) (*identity.Session, error) {
	return s.gw.RedeemLoginToken(ctx, token)
}

func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	return s.gw.SignOut(ctx, accessToken)
}

func (s *Service) ChangePassword(ctx context.Context, p access.Principal, password string) error {
	if !p.Authenticated() {
		return apperr.Unauthenticated()
	}
	return s.gw.UpdatePassword(ctx, p.UserID, password)
}

type Me struct {
	Profile        *models.Profile
	Role           models.Role
	ImpersonatorID *uuid.UUID
}

func (s *Service) Me(ctx context.Context, p access.Principal) (*Me, error) {
	role, err := s.guard.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetProfileByUserID(ctx, p.UserID)
	if err != nil {
		if stderrors.Is(err, pgcargo.ErrNotFound) {
			return nil, apperr.NotFound("profile not found")
		}
		return nil, err
	}
	return &Me{Profile: profile, Role: role, ImpersonatorID: p.ImpersonatorID}, nil
}

type UpdateMeInput struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=1"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,min=1"`
}

// UpdateMe lets a user fix their name and phone. Client code and pickup point stay with the admin.
func (s *Service) UpdateMe(ctx context.Context, p access.Principal, in UpdateMeInput) (*models.Profile, error) {
	if !p.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	profile, err := s.profiles.UpdateProfile(ctx, p.UserID, models.ProfileUpdate{
		FullName: in.FullName,
		Phone:    in.Phone,
	})
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	return profile, err
}
