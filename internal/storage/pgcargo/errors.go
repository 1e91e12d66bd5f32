package pgcargo

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = stderrors.New("not found")
	ErrDuplicate = stderrors.New("duplicate")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// DuplicateError carries the violated constraint so callers can tell
// a taken client code from a taken telegram id.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return "duplicate: " + e.Constraint
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return &DuplicateError{Constraint: pgErr.ConstraintName}
		case foreignKeyViolation:
			// ссылка на несуществующий аккаунт
			return ErrNotFound
		}
	}
	return err
}

// IsDuplicate reports a unique violation, optionally of a specific constraint.
func IsDuplicate(err error, constraint string) bool {
	var de *DuplicateError
	if !stderrors.As(err, &de) {
		return false
	}
	return constraint == "" || de.Constraint == constraint
}

const (
	ConstraintAccountEmail      = "accounts_email_key"
	ConstraintProfileUserID     = "profiles_user_id_key"
	ConstraintProfileClientCode = "profiles_client_code_key"
	ConstraintProfileTelegramID = "profiles_telegram_id_key"
	ConstraintPackageTrack      = "packages_track_number_key"
)
