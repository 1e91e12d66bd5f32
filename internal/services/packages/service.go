package packages

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/broker/messages"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/google/uuid"
)

type Repository interface {
	CreatePackage(ctx context.Context, p *models.Package) error
	UpdatePackage(ctx context.Context, p *models.Package) error
	GetPackageByID(ctx context.Context, id uuid.UUID) (*models.Package, error)
	GetPackageByTrackNumber(ctx context.Context, track string) (*models.Package, error)
	ListPackagesByOwner(ctx context.Context, userID uuid.UUID, clientCode, search string) ([]*models.Package, error)
	ListPackagesByStatus(ctx context.Context, status models.PackageStatus, search string) ([]*models.Package, error)
}

type Profiles interface {
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetProfileByClientCode(ctx context.Context, code string) (*models.Profile, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

// PriceSource gives the default price per kg when an import does not set one.
type PriceSource interface {
	PricePerKg(ctx context.Context) (*float64, error)
}

type Service struct {
	repo     Repository
	profiles Profiles
	guard    *access.Guard
	pub      Publisher
	prices   PriceSource
	now      func() time.Time
}

// New: pub and prices may be nil.
func New(repo Repository, profiles Profiles, guard *access.Guard, pub Publisher, prices PriceSource) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		guard:    guard,
		pub:      pub,
		prices:   prices,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddOwn registers a tracking number for the caller before the cargo arrives.
// An imported package nobody owns yet is claimed instead.
func (s *Service) AddOwn(ctx context.Context, p access.Principal, trackNumber string) (*models.Package, error) {
	if !p.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	trackNumber = strings.TrimSpace(trackNumber)
	if trackNumber == "" {
		return nil, apperr.Validation("track_number is required")
	}

	var clientCode *string
	profile, err := s.profiles.GetProfileByUserID(ctx, p.UserID)
	switch {
	case err == nil:
		clientCode = &profile.ClientCode
	case !stderrors.Is(err, pgcargo.ErrNotFound):
		return nil, err
	}

	existing, err := s.repo.GetPackageByTrackNumber(ctx, trackNumber)
	if err == nil {
		if existing.UserID != nil || existing.ClientCode != nil {
			return nil, apperr.Conflict("tracking number is already added")
		}
		uid := p.UserID
		existing.UserID = &uid
		existing.ClientCode = clientCode
		if err := s.repo.UpdatePackage(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !stderrors.Is(err, pgcargo.ErrNotFound) {
		return nil, err
	}

	uid := p.UserID
	pkg := &models.Package{
		TrackNumber: trackNumber,
		Status:      models.PackageStatusWaitingArrival,
		UserID:      &uid,
		ClientCode:  clientCode,
	}
	if err := s.repo.CreatePackage(ctx, pkg); err != nil {
		if pgcargo.IsDuplicate(err, "") {
			return nil, apperr.Conflict("tracking number is already added")
		}
		return nil, err
	}
	return pkg, nil
}

// ListOwn returns packages owned by the caller's identity or client code.
func (s *Service) ListOwn(ctx context.Context, p access.Principal, search string) ([]*models.Package, error) {
	if !p.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	code := ""
	profile, err := s.profiles.GetProfileByUserID(ctx, p.UserID)
	switch {
	case err == nil:
		code = profile.ClientCode
	case !stderrors.Is(err, pgcargo.ErrNotFound):
		return nil, err
	}
	return s.repo.ListPackagesByOwner(ctx, p.UserID, code, search)
}

// ListInTransit is the pickup-point board: in-transit packages with their owners.
func (s *Service) ListInTransit(ctx context.Context, p access.Principal, search string) ([]*models.PackageWithOwner, error) {
	if _, err := s.guard.Require(ctx, p, models.RoleAdmin, models.RolePVZ); err != nil {
		return nil, err
	}
	pkgs, err := s.repo.ListPackagesByStatus(ctx, models.PackageStatusInTransit, search)
	if err != nil {
		return nil, err
	}

	r := newOwnerResolver(s.profiles)
	out := make([]*models.PackageWithOwner, 0, len(pkgs))
	for _, pkg := range pkgs {
		owner, err := r.resolve(ctx, pkg)
		if err != nil {
			return nil, err
		}
		out = append(out, &models.PackageWithOwner{Package: pkg, Owner: owner})
	}
	return out, nil
}

// SetStatus changes the package status; admin or pvz.
func (s *Service) SetStatus(ctx context.Context, p access.Principal, id uuid.UUID, to models.PackageStatus) (*models.Package, error) {
	if _, err := s.guard.Require(ctx, p, models.RoleAdmin, models.RolePVZ); err != nil {
		return nil, err
	}
	pkg, err := s.repo.GetPackageByID(ctx, id)
	if stderrors.Is(err, pgcargo.ErrNotFound) {
		return nil, apperr.NotFound("package not found")
	}
	if err != nil {
		return nil, err
	}

	from := pkg.Status
	if err := Transition(pkg, to, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePackage(ctx, pkg); err != nil {
		return nil, err
	}

	slog.Info("package status changed", "package_id", pkg.ID, "from", from, "to", to, "by", p.UserID)
	s.publishStatusChanged(ctx, pkg, from)
	return pkg, nil
}

func (s *Service) publishStatusChanged(ctx context.Context, pkg *models.Package, from models.PackageStatus) {
	if s.pub == nil {
		return
	}
	msg := messages.PackageStatusChanged{
		PackageID:   pkg.ID.String(),
		TrackNumber: pkg.TrackNumber,
		ClientCode:  pkg.ClientCode,
		From:        string(from),
		To:          string(pkg.Status),
		ChangedAt:   pkg.UpdatedAt,
	}
	if pkg.UserID != nil {
		uid := pkg.UserID.String()
		msg.UserID = &uid
	}
	if profile, err := newOwnerResolver(s.profiles).profile(ctx, pkg); err == nil && profile != nil {
		msg.TelegramID = profile.TelegramID
	}
	if err := s.pub.PublishJSON(ctx, messages.TopicPackageStatusChanged, pkg.TrackNumber, msg); err != nil {
		slog.Warn("publish package.status_changed failed", "package_id", pkg.ID, "err", err)
	}
}

// ownerResolver looks the owner up by identity first, then by client code,
// and remembers what it found for the rest of the listing.
type ownerResolver struct {
	profiles Profiles
	byUser   map[uuid.UUID]*models.Profile
	byCode   map[string]*models.Profile
}

func newOwnerResolver(profiles Profiles) *ownerResolver {
	return &ownerResolver{
		profiles: profiles,
		byUser:   map[uuid.UUID]*models.Profile{},
		byCode:   map[string]*models.Profile{},
	}
}

func (r *ownerResolver) profile(ctx context.Context, pkg *models.Package) (*models.Profile, error) {
	if pkg.UserID != nil {
		p, ok := r.byUser[*pkg.UserID]
		if !ok {
			var err error
			p, err = r.profiles.GetProfileByUserID(ctx, *pkg.UserID)
			if err != nil && !stderrors.Is(err, pgcargo.ErrNotFound) {
				return nil, err
			}
			r.byUser[*pkg.UserID] = p
		}
		if p != nil {
			return p, nil
		}
	}
	if pkg.ClientCode != nil && *pkg.ClientCode != "" {
		p, ok := r.byCode[*pkg.ClientCode]
		if !ok {
			var err error
			p, err = r.profiles.GetProfileByClientCode(ctx, *pkg.ClientCode)
			if err != nil && !stderrors.Is(err, pgcargo.ErrNotFound) {
				return nil, err
			}
			r.byCode[*pkg.ClientCode] = p
		}
		return p, nil
	}
	return nil, nil
}

func (r *ownerResolver) resolve(ctx context.Context, pkg *models.Package) (*models.PackageOwner, error) {
	p, err := r.profile(ctx, pkg)
	if err != nil || p == nil {
		return nil, err
	}
	return &models.PackageOwner{
		UserID:      p.UserID,
		ClientCode:  p.ClientCode,
		FullName:    p.FullName,
		Phone:       p.Phone,
		PVZLocation: p.PVZLocation,
	}, nil
}
