package packages

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/broker/messages"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type memRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*models.Package
	failFor string
}

func newMemRepo() *memRepo { return &memRepo{items: map[uuid.UUID]*models.Package{}} }

func (m *memRepo) CreatePackage(_ context.Context, p *models.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.TrackNumber == m.failFor {
		return errors.New("db is gone")
	}
	for _, x := range m.items {
		if x.TrackNumber == p.TrackNumber {
			return &pgcargo.DuplicateError{Constraint: pgcargo.ConstraintPackageTrack}
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memRepo) UpdatePackage(_ context.Context, p *models.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return pgcargo.ErrNotFound
	}
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memRepo) GetPackageByID(_ context.Context, id uuid.UUID) (*models.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, pgcargo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) GetPackageByTrackNumber(_ context.Context, track string) (*models.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.TrackNumber == track {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgcargo.ErrNotFound
}

func (m *memRepo) list(match func(*models.Package) bool) []*models.Package {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Package{}
	for _, p := range m.items {
		if match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackNumber < out[j].TrackNumber })
	return out
}

func (m *memRepo) ListPackagesByOwner(_ context.Context, userID uuid.UUID, code, search string) ([]*models.Package, error) {
	return m.list(func(p *models.Package) bool {
		owned := (p.UserID != nil && *p.UserID == userID) || (code != "" && p.ClientCode != nil && *p.ClientCode == code)
		return owned && strings.Contains(strings.ToLower(p.TrackNumber), strings.ToLower(search))
	}), nil
}

func (m *memRepo) ListPackagesByStatus(_ context.Context, st models.PackageStatus, search string) ([]*models.Package, error) {
	return m.list(func(p *models.Package) bool {
		return p.Status == st && strings.Contains(p.TrackNumber, search)
	}), nil
}

type memProfiles struct {
	items []*models.Profile
	roles map[uuid.UUID]models.Role
}

func (m *memProfiles) GetProfileByUserID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	for _, p := range m.items {
		if p.UserID == id {
			return p, nil
		}
	}
	return nil, pgcargo.ErrNotFound
}

func (m *memProfiles) GetProfileByClientCode(_ context.Context, code string) (*models.Profile, error) {
	for _, p := range m.items {
		if p.ClientCode == code {
			return p, nil
		}
	}
	return nil, pgcargo.ErrNotFound
}

func (m *memProfiles) GetRole(_ context.Context, id uuid.UUID) (models.Role, error) {
	return m.roles[id], nil
}

type recPublisher struct {
	msgs []messages.PackageStatusChanged
}

func (p *recPublisher) PublishJSON(_ context.Context, topic, _ string, v any) error {
	if topic == messages.TopicPackageStatusChanged {
		p.msgs = append(p.msgs, v.(messages.PackageStatusChanged))
	}
	return nil
}

type fixedPrice float64

func (f fixedPrice) PricePerKg(context.Context) (*float64, error) {
	v := float64(f)
	return &v, nil
}

type ServiceSuite struct {
	suite.Suite

	repo     *memRepo
	profiles *memProfiles
	pub      *recPublisher
	svc      *Service

	admin, pvz, user access.Principal
	userProfile      *models.Profile
}

func (s *ServiceSuite) SetupTest() {
	s.repo = newMemRepo()
	s.admin = access.Principal{UserID: uuid.New()}
	s.pvz = access.Principal{UserID: uuid.New()}
	s.user = access.Principal{UserID: uuid.New()}
	tg := "4242"
	s.userProfile = &models.Profile{UserID: s.user.UserID, ClientCode: "YQ1001", FullName: "Асан", Phone: "+996555", PVZLocation: models.PVZNariman, TelegramID: &tg}
	s.profiles = &memProfiles{
		items: []*models.Profile{s.userProfile},
		roles: map[uuid.UUID]models.Role{
			s.admin.UserID: models.RoleAdmin,
			s.pvz.UserID:   models.RolePVZ,
			s.user.UserID:  models.RoleUser,
		},
	}
	s.pub = &recPublisher{}
	s.svc = New(s.repo, s.profiles, access.NewGuard(s.profiles), s.pub, fixedPrice(10))
	s.svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
}

func (s *ServiceSuite) TestImport_InsertUpdateAndTotals() {
	price := 12.0
	res, err := s.svc.Import(context.Background(), s.admin, ImportRequest{
		Rows:         [][]string{{"A1", "2.0"}, {"A2", "0"}, {"A1", "3.0"}},
		TrackColumn:  1,
		WeightColumn: 2,
		PricePerKg:   &price,
	})
	s.Require().NoError(err)
	s.Require().Equal(2, res.Inserted)
	s.Require().Equal(1, res.Updated)
	s.Require().Equal(0, res.Skipped)

	a1, err := s.repo.GetPackageByTrackNumber(context.Background(), "A1")
	s.Require().NoError(err)
	s.Require().Equal(models.PackageStatusInTransit, a1.Status)
	s.Require().InDelta(3.0, a1.Weight, 1e-9)
	s.Require().NotNil(a1.TotalPrice)
	s.Require().InDelta(36.0, *a1.TotalPrice, 1e-9)
	s.Require().NotNil(a1.ArrivedAt)

	a2, err := s.repo.GetPackageByTrackNumber(context.Background(), "A2")
	s.Require().NoError(err)
	s.Require().Zero(a2.Weight)
	s.Require().Nil(a2.TotalPrice)
	s.Require().Nil(a2.PricePerKg)
}

func (s *ServiceSuite) TestImport_SkipsBlankAndBadRows() {
	s.repo.failFor = "BROKEN"
	res, err := s.svc.Import(context.Background(), s.admin, ImportRequest{
		Rows: [][]string{
			{"", "1", ""},
			{"B1", "1,5", "15.03.2024"},
			{"B2", "x", "когда-то"},
			{"BROKEN", "1", ""},
			{"B3"},
		},
		TrackColumn:  1,
		WeightColumn: 2,
		DateColumn:   3,
	})
	s.Require().NoError(err)
	s.Require().Equal(2, res.Inserted)
	s.Require().Equal(0, res.Updated)
	s.Require().Equal(3, res.Skipped)
	s.Require().Len(res.Errors, 2)
	s.Require().Equal(4, res.Errors[0].Row)

	b1, err := s.repo.GetPackageByTrackNumber(context.Background(), "B1")
	s.Require().NoError(err)
	s.Require().InDelta(15.0, *b1.TotalPrice, 1e-9) // цена из настроек
	s.Require().Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *b1.ArrivedAt)

	b3, err := s.repo.GetPackageByTrackNumber(context.Background(), "B3")
	s.Require().NoError(err)
	s.Require().Equal(s.svc.now(), *b3.ArrivedAt)
}

func (s *ServiceSuite) TestImport_OperatorDateWins() {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err := s.svc.Import(context.Background(), s.admin, ImportRequest{
		Rows:        [][]string{{"C1", "2024-03-01"}},
		TrackColumn: 1, DateColumn: 2, ArrivalDate: &day,
	})
	s.Require().NoError(err)
	c1, _ := s.repo.GetPackageByTrackNumber(context.Background(), "C1")
	s.Require().Equal(day, *c1.ArrivedAt)
}

func (s *ServiceSuite) TestImport_KeepsWeightWhenRowHasNone() {
	ctx := context.Background()
	price := 5.0
	_, err := s.svc.Import(ctx, s.admin, ImportRequest{Rows: [][]string{{"D1", "4"}}, TrackColumn: 1, WeightColumn: 2, PricePerKg: &price})
	s.Require().NoError(err)
	res, err := s.svc.Import(ctx, s.admin, ImportRequest{Rows: [][]string{{"D1", ""}}, TrackColumn: 1, WeightColumn: 2, PricePerKg: &price})
	s.Require().NoError(err)
	s.Require().Equal(1, res.Updated)

	d1, _ := s.repo.GetPackageByTrackNumber(ctx, "D1")
	s.Require().InDelta(4.0, d1.Weight, 1e-9)
	s.Require().InDelta(20.0, *d1.TotalPrice, 1e-9)
}

func (s *ServiceSuite) TestImport_CancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.svc.Import(ctx, s.admin, ImportRequest{Rows: [][]string{{"E1"}}, TrackColumn: 1})
	s.Require().ErrorIs(err, context.Canceled)
	s.Require().NotNil(res)
	s.Require().Zero(res.Inserted)
}

func (s *ServiceSuite) TestImport_AccessAndValidation() {
	for _, p := range []access.Principal{s.pvz, s.user, {UserID: uuid.New()}} {
		_, err := s.svc.Import(context.Background(), p, ImportRequest{TrackColumn: 1})
		s.Require().True(apperr.Is(err, apperr.KindForbidden))
	}
	_, err := s.svc.Import(context.Background(), s.admin, ImportRequest{})
	s.Require().True(apperr.Is(err, apperr.KindValidation))
}

func (s *ServiceSuite) TestAddOwnAndList() {
	ctx := context.Background()
	pkg, err := s.svc.AddOwn(ctx, s.user, "  Z9  ")
	s.Require().NoError(err)
	s.Require().Equal("Z9", pkg.TrackNumber)
	s.Require().Equal(models.PackageStatusWaitingArrival, pkg.Status)
	s.Require().Equal("YQ1001", *pkg.ClientCode)

	_, err = s.svc.AddOwn(ctx, s.user, "Z9")
	s.Require().True(apperr.Is(err, apperr.KindConflict))

	// импортированную посылку без владельца можно забрать себе
	_, err = s.svc.Import(ctx, s.admin, ImportRequest{Rows: [][]string{{"Z1"}}, TrackColumn: 1})
	s.Require().NoError(err)
	claimed, err := s.svc.AddOwn(ctx, s.user, "Z1")
	s.Require().NoError(err)
	s.Require().Equal(models.PackageStatusInTransit, claimed.Status)

	// посылка по client_code без user_id тоже видна владельцу
	code := "YQ1001"
	s.Require().NoError(s.repo.CreatePackage(ctx, &models.Package{TrackNumber: "Z5", Status: models.PackageStatusArrived, ClientCode: &code}))

	own, err := s.svc.ListOwn(ctx, s.user, "")
	s.Require().NoError(err)
	s.Require().Len(own, 3)
	own, err = s.svc.ListOwn(ctx, s.user, "z5")
	s.Require().NoError(err)
	s.Require().Len(own, 1)

	_, err = s.svc.AddOwn(ctx, s.user, " ")
	s.Require().True(apperr.Is(err, apperr.KindValidation))
	_, err = s.svc.ListOwn(ctx, access.Principal{}, "")
	s.Require().True(apperr.Is(err, apperr.KindUnauthenticated))
}

func (s *ServiceSuite) TestListInTransit_ResolvesOwner() {
	ctx := context.Background()
	uid := s.user.UserID
	code := "YQ1001"
	unknown := "JL404"
	s.Require().NoError(s.repo.CreatePackage(ctx, &models.Package{TrackNumber: "T1", Status: models.PackageStatusInTransit, UserID: &uid}))
	s.Require().NoError(s.repo.CreatePackage(ctx, &models.Package{TrackNumber: "T2", Status: models.PackageStatusInTransit, ClientCode: &code}))
	s.Require().NoError(s.repo.CreatePackage(ctx, &models.Package{TrackNumber: "T3", Status: models.PackageStatusInTransit, ClientCode: &unknown}))
	s.Require().NoError(s.repo.CreatePackage(ctx, &models.Package{TrackNumber: "T4", Status: models.PackageStatusDelivered}))

	board, err := s.svc.ListInTransit(ctx, s.pvz, "")
	s.Require().NoError(err)
	s.Require().Len(board, 3)
	s.Require().Equal("Асан", board[0].Owner.FullName)
	s.Require().Equal("YQ1001", board[1].Owner.ClientCode)
	s.Require().Nil(board[2].Owner)

	_, err = s.svc.ListInTransit(ctx, s.user, "")
	s.Require().True(apperr.Is(err, apperr.KindForbidden))
}

func (s *ServiceSuite) TestSetStatus_SideEffects() {
	ctx := context.Background()
	uid := s.user.UserID
	pkg := &models.Package{TrackNumber: "S1", Status: models.PackageStatusInTransit, UserID: &uid}
	s.Require().NoError(s.repo.CreatePackage(ctx, pkg))

	got, err := s.svc.SetStatus(ctx, s.pvz, pkg.ID, models.PackageStatusArrived)
	s.Require().NoError(err)
	s.Require().Equal(s.svc.now(), *got.ArrivedAt)
	s.Require().Nil(got.DeliveredAt)

	// arrived_at не перезаписывается
	s.svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	got, err = s.svc.SetStatus(ctx, s.admin, pkg.ID, models.PackageStatusDelivered)
	s.Require().NoError(err)
	s.Require().Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), *got.ArrivedAt)
	s.Require().Equal(s.svc.now(), *got.DeliveredAt)
	s.Require().Equal(s.svc.now(), got.UpdatedAt)

	// назад тоже можно
	got, err = s.svc.SetStatus(ctx, s.admin, pkg.ID, models.PackageStatusWaitingArrival)
	s.Require().NoError(err)
	s.Require().Equal(models.PackageStatusWaitingArrival, got.Status)

	s.Require().Len(s.pub.msgs, 3)
	s.Require().Equal("in_transit", s.pub.msgs[0].From)
	s.Require().Equal("arrived", s.pub.msgs[0].To)
	s.Require().Equal("4242", *s.pub.msgs[0].TelegramID)
}

func (s *ServiceSuite) TestSetStatus_Errors() {
	ctx := context.Background()
	pkg := &models.Package{TrackNumber: "S2", Status: models.PackageStatusInTransit}
	s.Require().NoError(s.repo.CreatePackage(ctx, pkg))

	_, err := s.svc.SetStatus(ctx, s.admin, pkg.ID, models.PackageStatusReadyPickup)
	s.Require().True(apperr.Is(err, apperr.KindValidation))
	s.Require().Equal("status must be one of waiting_arrival, in_transit, arrived, delivered", apperr.PublicMessage(err))
	_, err = s.svc.SetStatus(ctx, s.admin, uuid.New(), models.PackageStatusArrived)
	s.Require().True(apperr.Is(err, apperr.KindNotFound))
	_, err = s.svc.SetStatus(ctx, s.user, pkg.ID, models.PackageStatusArrived)
	s.Require().True(apperr.Is(err, apperr.KindForbidden))
	_, err = s.svc.SetStatus(ctx, access.Principal{}, pkg.ID, models.PackageStatusArrived)
	s.Require().True(apperr.Is(err, apperr.KindUnauthenticated))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
