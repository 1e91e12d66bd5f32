package pgcargo

import (
	"context"
	"time"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func (s *Storage) CreateAccount(ctx context.Context, a *models.Account) error {
	now := time.Now().UTC()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO accounts (id, email, phone, password_hash, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$5)
`, a.ID, a.Email, a.Phone, a.PasswordHash, now)
	if err != nil {
		return errors.Wrap(mapErr(err), "insert account")
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (s *Storage) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.getAccount(ctx, `WHERE id = $1`, id)
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccount(ctx, `WHERE email = $1`, email)
}

func (s *Storage) getAccount(ctx context.Context, where string, arg any) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRow(ctx, `
SELECT id, email, phone, password_hash, created_at, updated_at
FROM accounts `+where, arg).Scan(&a.ID, &a.Email, &a.Phone, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(mapErr(err), "select account")
	}
	return &a, nil
}

func (s *Storage) UpdateAccountPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := s.db.Exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return errors.Wrap(err, "update account password")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(ErrNotFound, "update account password")
	}
	return nil
}

// DeleteAccount removes the identity; profile and role go with it,
// packages keep their rows with user_id cleared.
func (s *Storage) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete account")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(ErrNotFound, "delete account")
	}
	return nil
}
