package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type AccountStore interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateAccountPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// TokenStore is satisfied by rediscache.TokenStore.
type TokenStore interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Take(ctx context.Context, key string) ([]byte, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type Config struct {
	Secret        []byte
	EmailDomain   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	LoginTokenTTL time.Duration
	BcryptCost    int
	MinPassword   int
}

// Local is the gateway backed by the accounts table and redis.
type Local struct {
	accounts AccountStore
	tokens   TokenStore
	cfg      Config
	signer   *signer
}

func NewLocal(accounts AccountStore, tokens TokenStore, cfg Config) *Local {
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "abucargo.app"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.LoginTokenTTL <= 0 {
		cfg.LoginTokenTTL = 5 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.MinPassword <= 0 {
		cfg.MinPassword = 6
	}
	return &Local{
		accounts: accounts,
		tokens:   tokens,
		cfg:      cfg,
		signer: &signer{
			secret:     cfg.Secret,
			accessTTL:  cfg.AccessTTL,
			refreshTTL: cfg.RefreshTTL,
			now:        time.Now,
		},
	}
}

func (l *Local) EmailFor(phone string) string {
	return SyntheticEmail(phone, l.cfg.EmailDomain)
}

func (l *Local) SignUp(ctx context.Context, phone, password string) (*models.Account, error) {
	email := l.EmailFor(phone)
	if email == "" {
		return nil, apperr.Validation("phone is required")
	}
	if len(password) < l.cfg.MinPassword {
		return nil, apperr.Validation("password is too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cfg.BcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	a := &models.Account{Email: email, Phone: phone, PasswordHash: string(hash)}
	if err := l.accounts.CreateAccount(ctx, a); err != nil {
		if stderrors.Is(err, pgcargo.ErrDuplicate) {
			return nil, apperr.Conflict("user already registered")
		}
		return nil, err
	}
	return a, nil
}

func (l *Local) SignIn(ctx context.Context, phone, password string) (*Session, error) {
	email := l.EmailFor(phone)
	if email == "" || password == "" {
		return nil, apperr.Validation("phone and password are required")
	}
	a, err := l.accounts.GetAccountByEmail(ctx, email)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid phone or password")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid phone or password")
	}
	return l.signer.issue(a.ID, a.Email, nil)
}

func (l *Local) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := l.signer.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, err, "invalid refresh token")
	}
	if err := l.checkNotRevoked(ctx, claims); err != nil {
		return nil, err
	}
	userID, err := claims.userID()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, err, "invalid refresh token")
	}
	// старую пару гасим, чтобы refresh нельзя было переиграть
	if err := l.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return l.signer.issue(userID, claims.Email, claims.impersonatorID())
}

func (l *Local) SignOut(ctx context.Context, accessToken string) error {
	claims, err := l.signer.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return apperr.Wrap(apperr.KindUnauthenticated, err, "invalid access token")
	}
	return l.revoke(ctx, claims)
}

func (l *Local) Authenticate(ctx context.Context, accessToken string) (access.Principal, error) {
	claims, err := l.signer.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return access.Principal{}, apperr.Wrap(apperr.KindUnauthenticated, err, "invalid access token")
	}
	if err := l.checkNotRevoked(ctx, claims); err != nil {
		return access.Principal{}, err
	}
	userID, err := claims.userID()
	if err != nil {
		return access.Principal{}, apperr.Wrap(apperr.KindUnauthenticated, err, "invalid access token")
	}
	return access.Principal{
		UserID:         userID,
		Email:          claims.Email,
		ImpersonatorID: claims.impersonatorID(),
	}, nil
}

type loginToken struct {
	UserID       uuid.UUID  `json:"user_id"`
	Email        string     `json:"email"`
	Impersonator *uuid.UUID `json:"impersonator,omitempty"`
}

func (l *Local) GenerateLoginToken(ctx context.Context, userID uuid.UUID, impersonator *uuid.UUID) (string, error) {
	a, err := l.accounts.GetAccountByID(ctx, userID)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return "", apperr.NotFound("account not found")
	}
	if err != nil {
		return "", err
	}
	tok, err := randomToken()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(loginToken{UserID: a.ID, Email: a.Email, Impersonator: impersonator})
	if err != nil {
		return "", errors.Wrap(err, "encode login token")
	}
	if err := l.tokens.Put(ctx, loginTokenKey(tok), b, l.cfg.LoginTokenTTL); err != nil {
		return "", err
	}
	return tok, nil
}

func (l *Local) RedeemLoginToken(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperr.Validation("token is required")
	}
	b, ok, err := l.tokens.Take(ctx, loginTokenKey(token))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindUnauthenticated, "login token is invalid or expired")
	}
	var lt loginToken
	if err := json.Unmarshal(b, &lt); err != nil {
		return nil, errors.Wrap(err, "decode login token")
	}
	return l.signer.issue(lt.UserID, lt.Email, lt.Impersonator)
}

func (l *Local) IssueSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	a, err := l.accounts.GetAccountByID(ctx, userID)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return nil, apperr.NotFound("account not found")
	}
	if err != nil {
		return nil, err
	}
	return l.signer.issue(a.ID, a.Email, nil)
}

func (l *Local) UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error {
	if len(password) < l.cfg.MinPassword {
		return apperr.Validation("password is too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cfg.BcryptCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	err = l.accounts.UpdateAccountPassword(ctx, userID, string(hash))
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return apperr.NotFound("account not found")
	}
	return err
}

func (l *Local) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	err := l.accounts.DeleteAccount(ctx, userID)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return apperr.NotFound("account not found")
	}
	return err
}

func (l *Local) revoke(ctx context.Context, c *Claims) error {
	ttl := l.cfg.RefreshTTL
	if c.IssuedAt != nil {
		if left := c.IssuedAt.Add(l.cfg.RefreshTTL).Sub(l.signer.now()); left > 0 {
			ttl = left
		}
	}
	err := l.tokens.Put(ctx, revokedKey(c.ID), []byte("1"), ttl)
	if err != nil {
		// повторный logout той же сессии не ошибка
		if ok, exErr := l.tokens.Exists(ctx, revokedKey(c.ID)); exErr == nil && ok {
			return nil
		}
		slog.Warn("revoke session failed", "jti", c.ID, "err", err)
		return err
	}
	return nil
}

func (l *Local) checkNotRevoked(ctx context.Context, c *Claims) error {
	revoked, err := l.tokens.Exists(ctx, revokedKey(c.ID))
	if err != nil {
		return err
	}
	if revoked {
		return apperr.New(apperr.KindUnauthenticated, "session revoked")
	}
	return nil
}

func loginTokenKey(tok string) string { return "otl:" + tok }
func revokedKey(jti string) string    { return "revoked:" + jti }

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "random token")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
