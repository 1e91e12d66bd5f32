package admin

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/clientcode"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/BearBump/CargoBox/internal/validation"
)

// PickupPoints is public: the registration form and the client's
// "where to ship" page both need the addresses.
func (s *Service) PickupPoints(ctx context.Context) ([]*models.PickupPoint, error) {
	return s.repo.ListPickupPoints(ctx)
}

type PickupPointInput struct {
	Name                  string `json:"name" validate:"required"`
	Address               string `json:"address"`
	ChinaWarehouseAddress string `json:"china_warehouse_address"`
}

// SavePickupPoint creates or edits the pickup point behind a client-code prefix.
func (s *Service) SavePickupPoint(ctx context.Context, p access.Principal, id string, in PickupPointInput) (*models.PickupPoint, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	id = clientcode.Normalize(id)
	loc, ok := clientcode.Derive(id)
	if !ok || len(id) != clientcode.PrefixLen {
		return nil, apperr.Validation("id must be one of YQ, YX, JL")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	pp := &models.PickupPoint{
		ID:                    id,
		Location:              loc,
		Name:                  in.Name,
		Address:               strings.TrimSpace(in.Address),
		ChinaWarehouseAddress: strings.TrimSpace(in.ChinaWarehouseAddress),
	}
	if err := s.repo.UpsertPickupPoint(ctx, pp); err != nil {
		return nil, err
	}
	return pp, nil
}

func (s *Service) DeletePickupPoint(ctx context.Context, p access.Principal, id string) error {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return err
	}
	err := s.repo.DeletePickupPoint(ctx, clientcode.Normalize(id))
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return apperr.NotFound("pickup point not found")
	}
	return err
}
