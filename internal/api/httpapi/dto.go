package httpapi

import (
	"time"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
)

type profileResponse struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	ClientCode  string             `json:"client_code"`
	FullName    string             `json:"full_name"`
	Phone       string             `json:"phone"`
	PVZLocation models.PVZLocation `json:"pvz_location"`
	TelegramID  *string            `json:"telegram_id"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func toProfile(p *models.Profile) *profileResponse {
	if p == nil {
		return nil
	}
	return &profileResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		ClientCode:  p.ClientCode,
		FullName:    p.FullName,
		Phone:       p.Phone,
		PVZLocation: p.PVZLocation,
		TelegramID:  p.TelegramID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProfiles(ps []*models.Profile) []*profileResponse {
	out := make([]*profileResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProfile(p))
	}
	return out
}

type ownerResponse struct {
	UserID      uuid.UUID          `json:"user_id"`
	ClientCode  string             `json:"client_code"`
	FullName    string             `json:"full_name"`
	Phone       string             `json:"phone"`
	PVZLocation models.PVZLocation `json:"pvz_location"`
}

type packageResponse struct {
	ID          uuid.UUID            `json:"id"`
	TrackNumber string               `json:"track_number"`
	Weight      float64              `json:"weight"`
	PricePerKg  *float64             `json:"price_per_kg"`
	TotalPrice  *float64             `json:"total_price"`
	Status      models.PackageStatus `json:"status"`
	StatusLabel string               `json:"status_label"`
	UserID      *uuid.UUID           `json:"user_id"`
	ClientCode  *string              `json:"client_code"`
	ArrivedAt   *time.Time           `json:"arrived_at"`
	DeliveredAt *time.Time           `json:"delivered_at"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Owner       *ownerResponse       `json:"owner,omitempty"`
}

func (a *API) toPackage(p *models.Package, lang string) *packageResponse {
	return &packageResponse{
		ID:          p.ID,
		TrackNumber: p.TrackNumber,
		Weight:      p.Weight,
		PricePerKg:  p.PricePerKg,
		TotalPrice:  p.TotalPrice,
		Status:      p.Status,
		StatusLabel: a.labels.Label(p.Status, lang),
		UserID:      p.UserID,
		ClientCode:  p.ClientCode,
		ArrivedAt:   p.ArrivedAt,
		DeliveredAt: p.DeliveredAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (a *API) toPackages(ps []*models.Package, lang string) []*packageResponse {
	out := make([]*packageResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, a.toPackage(p, lang))
	}
	return out
}

func (a *API) toBoard(items []*models.PackageWithOwner, lang string) []*packageResponse {
	out := make([]*packageResponse, 0, len(items))
	for _, it := range items {
		pr := a.toPackage(it.Package, lang)
		if o := it.Owner; o != nil {
			pr.Owner = &ownerResponse{
				UserID:      o.UserID,
				ClientCode:  o.ClientCode,
				FullName:    o.FullName,
				Phone:       o.Phone,
				PVZLocation: o.PVZLocation,
			}
		}
		out = append(out, pr)
	}
	return out
}

type roleResponse struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"user_id"`
	Role       models.Role `json:"role"`
	ClientCode string      `json:"client_code"`
	FullName   string      `json:"full_name"`
	CreatedAt  time.Time   `json:"created_at"`
}

func toRoles(rs []*models.RoleAssignment) []*roleResponse {
	out := make([]*roleResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, &roleResponse{
			ID:         r.ID,
			UserID:     r.UserID,
			Role:       r.Role,
			ClientCode: r.ClientCode,
			FullName:   r.FullName,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out
}

type pickupPointResponse struct {
	ID                    string             `json:"id"`
	Location              models.PVZLocation `json:"location"`
	Name                  string             `json:"name"`
	Address               string             `json:"address"`
	ChinaWarehouseAddress string             `json:"china_warehouse_address"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

func toPickupPoint(p *models.PickupPoint) *pickupPointResponse {
	return &pickupPointResponse{
		ID:                    p.ID,
		Location:              p.Location,
		Name:                  p.Name,
		Address:               p.Address,
		ChinaWarehouseAddress: p.ChinaWarehouseAddress,
		UpdatedAt:             p.UpdatedAt,
	}
}
