package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims of both tokens of a session. They share the jti, so revoking
// the session id kills the pair.
type Claims struct {
	Email        string `json:"email"`
	Type         string `json:"typ"`
	Impersonator string `json:"imp,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) userID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

func (c *Claims) impersonatorID() *uuid.UUID {
	if c.Impersonator == "" {
		return nil
	}
	id, err := uuid.Parse(c.Impersonator)
	if err != nil {
		return nil
	}
	return &id
}

type signer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (s *signer) issue(userID uuid.UUID, email string, impersonator *uuid.UUID) (*Session, error) {
	now := s.now()
	jti := uuid.NewString()
	imp := ""
	if impersonator != nil {
		imp = impersonator.String()
	}

	mk := func(typ string, ttl time.Duration) (string, time.Time, error) {
		exp := now.Add(ttl)
		claims := &Claims{
			Email:        email,
			Type:         typ,
			Impersonator: imp,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        jti,
				Subject:   userID.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(exp),
			},
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
		return tok, exp, err
	}

	access, exp, err := mk(tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, errors.Wrap(err, "sign access token")
	}
	refresh, _, err := mk(tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, errors.Wrap(err, "sign refresh token")
	}

	return &Session{
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenType:      "bearer",
		ExpiresAt:      exp,
		UserID:         userID,
		Email:          email,
		ImpersonatorID: impersonator,
	}, nil
}

func (s *signer) parse(token, wantType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !tok.Valid || claims.Type != wantType {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
