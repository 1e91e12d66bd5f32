package pgcargo

import (
	"context"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) ListPickupPoints(ctx context.Context) ([]*models.PickupPoint, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, location, name, address, china_warehouse_address, created_at, updated_at
FROM pvz_locations
ORDER BY id
`)
	if err != nil {
		return nil, errors.Wrap(err, "select pvz")
	}
	defer rows.Close()

	out := make([]*models.PickupPoint, 0)
	for rows.Next() {
		var p models.PickupPoint
		var loc string
		if err := rows.Scan(&p.ID, &loc, &p.Name, &p.Address, &p.ChinaWarehouseAddress, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan pvz")
		}
		p.Location = models.PVZLocation(loc)
		out = append(out, &p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) UpsertPickupPoint(ctx context.Context, p *models.PickupPoint) error {
	err := s.db.QueryRow(ctx, `
INSERT INTO pvz_locations (id, location, name, address, china_warehouse_address, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,now(),now())
ON CONFLICT (id) DO UPDATE SET
  location = EXCLUDED.location,
  name = EXCLUDED.name,
  address = EXCLUDED.address,
  china_warehouse_address = EXCLUDED.china_warehouse_address,
  updated_at = now()
RETURNING created_at, updated_at
`, p.ID, string(p.Location), p.Name, p.Address, p.ChinaWarehouseAddress).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "upsert pvz")
	}
	return nil
}

func (s *Storage) DeletePickupPoint(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM pvz_locations WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete pvz")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(ErrNotFound, "delete pvz")
	}
	return nil
}
