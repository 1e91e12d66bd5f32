package identity

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
)

// Gateway is the identity provider: accounts, sessions and one-time login tokens.
type Gateway interface {
	EmailFor(phone string) string
	SignUp(ctx context.Context, phone, password string) (*models.Account, error)
	SignIn(ctx context.Context, phone, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Authenticate(ctx context.Context, accessToken string) (access.Principal, error)

	// GenerateLoginToken mints a single-use token for the account. impersonator
	// marks sessions redeemed from it as an admin acting as the user.
	GenerateLoginToken(ctx context.Context, userID uuid.UUID, impersonator *uuid.UUID) (string, error)
	RedeemLoginToken(ctx context.Context, token string) (*Session, error)

	IssueSession(ctx context.Context, userID uuid.UUID) (*Session, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type Session struct {
	AccessToken    string     `json:"access_token"`
	RefreshToken   string     `json:"refresh_token"`
	TokenType      string     `json:"token_type"`
	ExpiresAt      time.Time  `json:"expires_at"`
	UserID         uuid.UUID  `json:"user_id"`
	Email          string     `json:"email"`
	ImpersonatorID *uuid.UUID `json:"impersonator_id,omitempty"`
}

// PhoneDigits keeps only the digits of a phone number.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SyntheticEmail turns "+996 555 000-111" into "996555000111@<domain>".
// Returns "" when the phone has no digits.
func SyntheticEmail(phone, domain string) string {
	d := PhoneDigits(phone)
	if d == "" {
		return ""
	}
	return d + "@" + domain
}
