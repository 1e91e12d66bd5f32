package pgcargo

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const packageColumns = `
  id, track_number, weight::float8, price_per_kg::float8, total_price::float8, status,
  user_id, client_code, arrived_at, delivered_at, created_at, updated_at`

func scanPackage(row rowScanner) (*models.Package, error) {
	var p models.Package
	var status string
	if err := row.Scan(
		&p.ID, &p.TrackNumber, &p.Weight, &p.PricePerKg, &p.TotalPrice, &status,
		&p.UserID, &p.ClientCode, &p.ArrivedAt, &p.DeliveredAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = models.PackageStatus(status)
	return &p, nil
}

func (s *Storage) CreatePackage(ctx context.Context, p *models.Package) error {
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.Exec(ctx, `
INSERT INTO packages (
  id, track_number, weight, price_per_kg, total_price, status,
  user_id, client_code, arrived_at, delivered_at, created_at, updated_at
) VALUES ($1,$2,$3::float8,$4::float8,$5::float8,$6,$7,$8,$9,$10,$11,$12)
`, p.ID, p.TrackNumber, p.Weight, p.PricePerKg, p.TotalPrice, string(p.Status),
		p.UserID, p.ClientCode, p.ArrivedAt, p.DeliveredAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return errors.Wrap(mapErr(err), "insert package")
	}
	return nil
}

// UpdatePackage overwrites every mutable column; callers load, change, save.
func (s *Storage) UpdatePackage(ctx context.Context, p *models.Package) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
UPDATE packages SET
  weight = $2::float8,
  price_per_kg = $3::float8,
  total_price = $4::float8,
  status = $5,
  user_id = $6,
  client_code = $7,
  arrived_at = $8,
  delivered_at = $9,
  updated_at = $10
WHERE id = $1
`, p.ID, p.Weight, p.PricePerKg, p.TotalPrice, string(p.Status),
		p.UserID, p.ClientCode, p.ArrivedAt, p.DeliveredAt, p.UpdatedAt)
	if err != nil {
		return errors.Wrap(mapErr(err), "update package")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(ErrNotFound, "update package")
	}
	return nil
}

func (s *Storage) GetPackageByID(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	p, err := scanPackage(s.db.QueryRow(ctx, `SELECT`+packageColumns+` FROM packages WHERE id = $1`, id))
	if err != nil {
		return nil, errors.Wrap(mapErr(err), "select package")
	}
	return p, nil
}

func (s *Storage) GetPackageByTrackNumber(ctx context.Context, track string) (*models.Package, error) {
	p, err := scanPackage(s.db.QueryRow(ctx, `SELECT`+packageColumns+` FROM packages WHERE track_number = $1`, track))
	if err != nil {
		return nil, errors.Wrap(mapErr(err), "select package")
	}
	return p, nil
}

// ListPackagesByOwner returns packages bound to the identity or to its client code.
func (s *Storage) ListPackagesByOwner(ctx context.Context, userID uuid.UUID, clientCode, search string) ([]*models.Package, error) {
	args := []any{userID, clientCode}
	query := `SELECT` + packageColumns + ` FROM packages WHERE (user_id = $1 OR ($2 <> '' AND client_code = $2))`
	if q := strings.TrimSpace(search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		query += ` AND track_number ILIKE $3`
	}
	query += ` ORDER BY created_at DESC`
	return s.queryPackages(ctx, query, args...)
}

func (s *Storage) ListPackagesByStatus(ctx context.Context, status models.PackageStatus, search string) ([]*models.Package, error) {
	args := []any{string(status)}
	query := `SELECT` + packageColumns + ` FROM packages WHERE status = $1`
	if q := strings.TrimSpace(search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		query += ` AND (track_number ILIKE $2 OR client_code ILIKE $2)`
	}
	query += ` ORDER BY updated_at DESC`
	return s.queryPackages(ctx, query, args...)
}

func (s *Storage) queryPackages(ctx context.Context, query string, args ...any) ([]*models.Package, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select packages")
	}
	defer rows.Close()

	out := make([]*models.Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan package")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
