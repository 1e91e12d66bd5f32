package pgcargo

import (
	"context"
	stderrors "errors"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// GetRole returns RoleNone when the identity has no role row.
func (s *Storage) GetRole(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	var role string
	err := s.db.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return models.RoleNone, nil
	}
	if err != nil {
		return models.RoleNone, errors.Wrap(err, "select role")
	}
	return models.Role(role), nil
}

// SetRole upserts the single role row; ErrNotFound when the account does not exist.
func (s *Storage) SetRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO user_roles (id, user_id, role, created_at)
VALUES ($1,$2,$3,now())
ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
`, uuid.New(), userID, string(role))
	if err != nil {
		return errors.Wrap(mapErr(err), "upsert role")
	}
	return nil
}

func (s *Storage) DeleteRole(ctx context.Context, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return errors.Wrap(err, "delete role")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(ErrNotFound, "delete role")
	}
	return nil
}

func (s *Storage) ListRoles(ctx context.Context) ([]*models.RoleAssignment, error) {
	rows, err := s.db.Query(ctx, `
SELECT r.id, r.user_id, r.role, r.created_at, COALESCE(p.client_code, ''), COALESCE(p.full_name, '')
FROM user_roles r
LEFT JOIN profiles p ON p.user_id = r.user_id
ORDER BY r.created_at DESC
`)
	if err != nil {
		return nil, errors.Wrap(err, "select roles")
	}
	defer rows.Close()

	out := make([]*models.RoleAssignment, 0)
	for rows.Next() {
		var ra models.RoleAssignment
		var role string
		if err := rows.Scan(&ra.ID, &ra.UserID, &role, &ra.CreatedAt, &ra.ClientCode, &ra.FullName); err != nil {
			return nil, errors.Wrap(err, "scan role")
		}
		ra.Role = models.Role(role)
		out = append(out, &ra)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
