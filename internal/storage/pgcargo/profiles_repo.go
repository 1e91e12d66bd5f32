package pgcargo

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/CargoBox/internal/clientcode"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Generated codes start above this value, e.g. YQ1001.
const clientCodeSeqStart = 1000

const profileColumns = `
  id, user_id, client_code, full_name, phone, pvz_location, telegram_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var pvz string
	if err := row.Scan(
		&p.ID, &p.UserID, &p.ClientCode, &p.FullName, &p.Phone, &pvz, &p.TelegramID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.PVZLocation = models.PVZLocation(pvz)
	return &p, nil
}

// CreateProfile inserts the profile and its role row in one transaction.
// An empty ClientCode is generated from the pickup point prefix.
func (s *Storage) CreateProfile(ctx context.Context, in models.ProfileCreateInput) (*models.Profile, error) {
	now := time.Now().UTC()
	role := in.Role
	if role == models.RoleNone {
		role = models.RoleUser
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	code := in.ClientCode
	if code == "" {
		code, err = nextClientCode(ctx, tx, in.PVZLocation)
		if err != nil {
			return nil, err
		}
	}

	p, err := scanProfile(tx.QueryRow(ctx, `
INSERT INTO profiles (id, user_id, client_code, full_name, phone, pvz_location, telegram_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
RETURNING`+profileColumns,
		uuid.New(), in.UserID, code, in.FullName, in.Phone, string(in.PVZLocation), in.TelegramID, now))
	if err != nil {
		return nil, errors.Wrap(mapErr(err), "insert profile")
	}

	_, err = tx.Exec(ctx, `
INSERT INTO user_roles (id, user_id, role, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id) DO NOTHING
`, uuid.New(), in.UserID, string(role), now)
	if err != nil {
		return nil, errors.Wrap(err, "insert role")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return p, nil
}

// nextClientCode takes the next counter value for the prefix and skips codes
// that were already imported by hand.
func nextClientCode(ctx context.Context, tx pgx.Tx, loc models.PVZLocation) (string, error) {
	prefix, ok := clientcode.PrefixFor(loc)
	if !ok {
		return "", errors.Errorf("unknown pvz location %q", loc)
	}
	for i := 0; i < 100; i++ {
		var n int64
		err := tx.QueryRow(ctx, `
INSERT INTO client_code_counters (prefix, last_value)
VALUES ($1, $2)
ON CONFLICT (prefix) DO UPDATE SET last_value = client_code_counters.last_value + 1
RETURNING last_value
`, prefix, clientCodeSeqStart+1).Scan(&n)
		if err != nil {
			return "", errors.Wrap(err, "next client code")
		}
		code := clientcode.Format(prefix, n)

		var taken bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE client_code = $1)`, code).Scan(&taken); err != nil {
			return "", errors.Wrap(err, "check client code")
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("client code counter exhausted")
}

func (s *Storage) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return s.getProfile(ctx, `WHERE user_id = $1`, userID)
}

func (s *Storage) GetProfileByClientCode(ctx context.Context, code string) (*models.Profile, error) {
	return s.getProfile(ctx, `WHERE client_code = $1`, code)
}

func (s *Storage) GetProfileByTelegramID(ctx context.Context, telegramID string) (*models.Profile, error) {
	return s.getProfile(ctx, `WHERE telegram_id = $1`, telegramID)
}

func (s *Storage) getProfile(ctx context.Context, where string, arg any) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT`+profileColumns+` FROM profiles `+where, arg))
	if err != nil {
		return nil, errors.Wrap(mapErr(err), "select profile")
	}
	return p, nil
}

func (s *Storage) ListProfiles(ctx context.Context, f models.ProfileFilter) ([]*models.Profile, error) {
	var (
		conds []string
		args  []any
	)
	if f.PVZLocation != "" {
		args = append(args, string(f.PVZLocation))
		conds = append(conds, "pvz_location = $1")
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		conds = append(conds, "(client_code ILIKE $"+itoa(n)+" OR full_name ILIKE $"+itoa(n)+" OR phone ILIKE $"+itoa(n)+")")
	}
	query := `SELECT` + profileColumns + ` FROM profiles`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select profiles")
	}
	defer rows.Close()

	out := make([]*models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan profile")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	var pvz *string
	if upd.PVZLocation != nil {
		v := string(*upd.PVZLocation)
		pvz = &v
	}
	p, err := scanProfile(s.db.QueryRow(ctx, `
UPDATE profiles SET
  full_name = COALESCE($2, full_name),
  phone = COALESCE($3, phone),
  pvz_location = COALESCE($4, pvz_location),
  client_code = COALESCE($5, client_code),
  telegram_id = COALESCE($6, telegram_id),
  updated_at = now()
WHERE user_id = $1
RETURNING`+profileColumns,
		userID, upd.FullName, upd.Phone, pvz, upd.ClientCode, upd.TelegramID))
	if err != nil {
		return nil, errors.Wrap(mapErr(err), "update profile")
	}
	return p, nil
}
