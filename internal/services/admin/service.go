// Package admin covers the back-office pages: roles, pickup points and app settings.
package admin

import (
	"context"
	"time"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/cache"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
)

type Repository interface {
	ListRoles(ctx context.Context) ([]*models.RoleAssignment, error)
	SetRole(ctx context.Context, userID uuid.UUID, role models.Role) error
	DeleteRole(ctx context.Context, userID uuid.UUID) error

	ListPickupPoints(ctx context.Context) ([]*models.PickupPoint, error)
	UpsertPickupPoint(ctx context.Context, p *models.PickupPoint) error
	DeletePickupPoint(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, st *models.Settings) error
}

type Service struct {
	repo  Repository
	guard *access.Guard
	cache cache.BytesCache

	settingsTTL  time.Duration
	defaultPrice float64
	newID        func() string
}

// New: c may be nil, then settings are read from the database every time.
// defaultPrice is used while nobody has saved a price yet.
func New(repo Repository, guard *access.Guard, c cache.BytesCache, settingsTTL time.Duration, defaultPrice float64) *Service {
	return &Service{
		repo:         repo,
		guard:        guard,
		cache:        c,
		settingsTTL:  settingsTTL,
		defaultPrice: defaultPrice,
		newID:        func() string { return uuid.NewString() },
	}
}
