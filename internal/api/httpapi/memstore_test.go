package httpapi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/CargoBox/internal/clientcode"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
	"github.com/google/uuid"
)

// memStore stands in for pgcargo.Storage in handler tests.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
	profiles map[uuid.UUID]*models.Profile
	roles    map[uuid.UUID]models.Role
	packages map[uuid.UUID]*models.Package
	points   map[string]*models.PickupPoint
	settings *models.Settings
	seq      map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[uuid.UUID]*models.Account{},
		profiles: map[uuid.UUID]*models.Profile{},
		roles:    map[uuid.UUID]models.Role{},
		packages: map[uuid.UUID]*models.Package{},
		points:   map[string]*models.PickupPoint{},
		seq:      map[string]int64{},
	}
}

func (m *memStore) CreateAccount(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.accounts {
		if x.Email == a.Email {
			return &pgcargo.DuplicateError{Constraint: pgcargo.ConstraintAccountEmail}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memStore) GetAccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, pgcargo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgcargo.ErrNotFound
}

func (m *memStore) UpdateAccountPassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return pgcargo.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (m *memStore) DeleteAccount(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return pgcargo.ErrNotFound
	}
	delete(m.accounts, id)
	delete(m.profiles, id)
	delete(m.roles, id)
	for _, p := range m.packages {
		if p.UserID != nil && *p.UserID == id {
			p.UserID = nil
		}
	}
	return nil
}

func (m *memStore) CreateProfile(_ context.Context, in models.ProfileCreateInput) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code := in.ClientCode
	if code == "" {
		prefix, _ := clientcode.PrefixFor(in.PVZLocation)
		if m.seq[prefix] == 0 {
			m.seq[prefix] = 1000
		}
		m.seq[prefix]++
		code = clientcode.Format(prefix, m.seq[prefix])
	}
	for _, p := range m.profiles {
		if p.ClientCode == code {
			return nil, &pgcargo.DuplicateError{Constraint: pgcargo.ConstraintProfileClientCode}
		}
		if in.TelegramID != nil && p.TelegramID != nil && *p.TelegramID == *in.TelegramID {
			return nil, &pgcargo.DuplicateError{Constraint: pgcargo.ConstraintProfileTelegramID}
		}
	}
	now := time.Now().UTC()
	p := &models.Profile{
		ID: uuid.New(), UserID: in.UserID, ClientCode: code, FullName: in.FullName, Phone: in.Phone,
		PVZLocation: in.PVZLocation, TelegramID: in.TelegramID, CreatedAt: now, UpdatedAt: now,
	}
	m.profiles[in.UserID] = p
	role := in.Role
	if role == models.RoleNone {
		role = models.RoleUser
	}
	m.roles[in.UserID] = role
	cp := *p
	return &cp, nil
}

func (m *memStore) findProfile(match func(*models.Profile) bool) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgcargo.ErrNotFound
}

func (m *memStore) GetProfileByUserID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	return m.findProfile(func(p *models.Profile) bool { return p.UserID == id })
}

func (m *memStore) GetProfileByClientCode(_ context.Context, code string) (*models.Profile, error) {
	return m.findProfile(func(p *models.Profile) bool { return p.ClientCode == code })
}

func (m *memStore) GetProfileByTelegramID(_ context.Context, tg string) (*models.Profile, error) {
	return m.findProfile(func(p *models.Profile) bool { return p.TelegramID != nil && *p.TelegramID == tg })
}

func (m *memStore) ListProfiles(_ context.Context, f models.ProfileFilter) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(f.Search)
	out := []*models.Profile{}
	for _, p := range m.profiles {
		if f.PVZLocation != "" && p.PVZLocation != f.PVZLocation {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.ClientCode+"|"+p.FullName+"|"+p.Phone), q) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientCode < out[j].ClientCode })
	return out, nil
}

func (m *memStore) UpdateProfile(_ context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, pgcargo.ErrNotFound
	}
	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.Phone != nil {
		p.Phone = *upd.Phone
	}
	if upd.PVZLocation != nil {
		p.PVZLocation = *upd.PVZLocation
	}
	if upd.ClientCode != nil {
		p.ClientCode = *upd.ClientCode
	}
	if upd.TelegramID != nil {
		p.TelegramID = upd.TelegramID
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetRole(_ context.Context, id uuid.UUID) (models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[id], nil
}

func (m *memStore) SetRole(_ context.Context, id uuid.UUID, r models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return pgcargo.ErrNotFound
	}
	m.roles[id] = r
	return nil
}

func (m *memStore) DeleteRole(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return pgcargo.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *memStore) ListRoles(context.Context) ([]*models.RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.RoleAssignment{}
	for id, r := range m.roles {
		ra := &models.RoleAssignment{ID: uuid.New(), UserID: id, Role: r}
		if p, ok := m.profiles[id]; ok {
			ra.ClientCode, ra.FullName = p.ClientCode, p.FullName
		}
		out = append(out, ra)
	}
	return out, nil
}

func (m *memStore) CreatePackage(_ context.Context, p *models.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.packages {
		if x.TrackNumber == p.TrackNumber {
			return &pgcargo.DuplicateError{Constraint: pgcargo.ConstraintPackageTrack}
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.packages[p.ID] = &cp
	return nil
}

func (m *memStore) UpdatePackage(_ context.Context, p *models.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[p.ID]; !ok {
		return pgcargo.ErrNotFound
	}
	cp := *p
	m.packages[p.ID] = &cp
	return nil
}

func (m *memStore) GetPackageByID(_ context.Context, id uuid.UUID) (*models.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packages[id]
	if !ok {
		return nil, pgcargo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetPackageByTrackNumber(_ context.Context, track string) (*models.Package, error) {
	return m.firstPackage(func(p *models.Package) bool { return p.TrackNumber == track })
}

func (m *memStore) firstPackage(match func(*models.Package) bool) (*models.Package, error) {
	ps := m.listPackages(match)
	if len(ps) == 0 {
		return nil, pgcargo.ErrNotFound
	}
	return ps[0], nil
}

func (m *memStore) listPackages(match func(*models.Package) bool) []*models.Package {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Package{}
	for _, p := range m.packages {
		if match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackNumber < out[j].TrackNumber })
	return out
}

func (m *memStore) ListPackagesByOwner(_ context.Context, id uuid.UUID, code, search string) ([]*models.Package, error) {
	return m.listPackages(func(p *models.Package) bool {
		owned := (p.UserID != nil && *p.UserID == id) || (code != "" && p.ClientCode != nil && *p.ClientCode == code)
		return owned && strings.Contains(strings.ToLower(p.TrackNumber), strings.ToLower(search))
	}), nil
}

func (m *memStore) ListPackagesByStatus(_ context.Context, st models.PackageStatus, search string) ([]*models.Package, error) {
	return m.listPackages(func(p *models.Package) bool {
		return p.Status == st && strings.Contains(strings.ToLower(p.TrackNumber), strings.ToLower(search))
	}), nil
}

func (m *memStore) ListPickupPoints(context.Context) ([]*models.PickupPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.PickupPoint{}
	for _, p := range m.points {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpsertPickupPoint(_ context.Context, p *models.PickupPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	m.points[p.ID] = &cp
	return nil
}

func (m *memStore) DeletePickupPoint(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.points[id]; !ok {
		return pgcargo.ErrNotFound
	}
	delete(m.points, id)
	return nil
}

func (m *memStore) GetSettings(context.Context) (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return &models.Settings{Contacts: []models.Contact{}}, nil
	}
	cp := *m.settings
	cp.Contacts = append([]models.Contact{}, m.settings.Contacts...)
	return &cp, nil
}

func (m *memStore) SaveSettings(_ context.Context, st *models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.settings = &cp
	return nil
}
