package pgcargo

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "cargobox_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/cargobox_test?sslmode=disable"
	var st *Storage
	// порт открывается раньше, чем postgres готов принимать запросы
	require.Eventually(t, func() bool {
		st, err = New(dsn)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(st.Close)
	return st
}

func createAccount(t *testing.T, st *Storage, phone string) *models.Account {
	t.Helper()
	a := &models.Account{Email: phone + "@test.local", Phone: phone, PasswordHash: "x"}
	require.NoError(t, st.CreateAccount(context.Background(), a))
	return a
}

func TestPGCargo_RepoFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()
	st := startStorage(t)

	// аккаунт + профиль с генерацией кода
	acc := createAccount(t, st, "996555000111")
	dup := &models.Account{Email: acc.Email, Phone: acc.Phone, PasswordHash: "y"}
	require.ErrorIs(t, st.CreateAccount(ctx, dup), ErrDuplicate)

	p, err := st.CreateProfile(ctx, models.ProfileCreateInput{
		UserID:      acc.ID,
		FullName:    "Асан",
		Phone:       "+996555000111",
		PVZLocation: models.PVZNariman,
	})
	require.NoError(t, err)
	require.Equal(t, "YQ1001", p.ClientCode)

	role, err := st.GetRole(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, role)

	// ручной код, который совпадёт со следующим сгенерированным, пропускается
	acc2 := createAccount(t, st, "996555000222")
	_, err = st.CreateProfile(ctx, models.ProfileCreateInput{
		UserID: acc2.ID, ClientCode: "YQ1002", FullName: "B", Phone: "2", PVZLocation: models.PVZNariman,
	})
	require.NoError(t, err)

	acc3 := createAccount(t, st, "996555000333")
	p3, err := st.CreateProfile(ctx, models.ProfileCreateInput{
		UserID: acc3.ID, FullName: "C", Phone: "3", PVZLocation: models.PVZNariman, Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, "YQ1003", p3.ClientCode)

	// повтор кода -> duplicate с именем constraint
	acc4 := createAccount(t, st, "996555000444")
	_, err = st.CreateProfile(ctx, models.ProfileCreateInput{
		UserID: acc4.ID, ClientCode: "YQ1001", FullName: "D", Phone: "4", PVZLocation: models.PVZNariman,
	})
	var de *DuplicateError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "profiles_client_code_key", de.Constraint)

	list, err := st.ListProfiles(ctx, models.ProfileFilter{PVZLocation: models.PVZNariman, Search: "yq1001"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	name := "Асан Уулу"
	upd, err := st.UpdateProfile(ctx, acc.ID, models.ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	require.Equal(t, name, upd.FullName)
	require.Equal(t, "YQ1001", upd.ClientCode)

	// роли
	require.NoError(t, st.SetRole(ctx, acc.ID, models.RolePVZ))
	require.ErrorIs(t, st.SetRole(ctx, uuid.New(), models.RolePVZ), ErrNotFound)
	role, err = st.GetRole(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, models.RolePVZ, role)
	require.NoError(t, st.DeleteRole(ctx, acc.ID))
	role, err = st.GetRole(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleNone, role)
	roles, err := st.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	// посылки: владелец по client_code
	code := "YQ1001"
	price := 12.0
	total := 36.0
	now := time.Now().UTC()
	pkg := &models.Package{
		TrackNumber: "A1", Weight: 3, PricePerKg: &price, TotalPrice: &total,
		Status: models.PackageStatusInTransit, ClientCode: &code, ArrivedAt: &now,
	}
	require.NoError(t, st.CreatePackage(ctx, pkg))
	require.ErrorIs(t, st.CreatePackage(ctx, &models.Package{TrackNumber: "A1", Status: models.PackageStatusInTransit}), ErrDuplicate)

	own, err := st.ListPackagesByOwner(ctx, acc.ID, code, "a")
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.InDelta(t, 36.0, *own[0].TotalPrice, 0.001)
	require.Nil(t, own[0].UserID)

	got, err := st.GetPackageByTrackNumber(ctx, "A1")
	require.NoError(t, err)
	got.Status = models.PackageStatusDelivered
	got.DeliveredAt = &now
	require.NoError(t, st.UpdatePackage(ctx, got))

	inTransit, err := st.ListPackagesByStatus(ctx, models.PackageStatusInTransit, "")
	require.NoError(t, err)
	require.Empty(t, inTransit)

	_, err = st.GetPackageByID(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	// pvz + settings
	pts, err := st.ListPickupPoints(ctx)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	require.NoError(t, st.UpsertPickupPoint(ctx, &models.PickupPoint{
		ID: "YQ", Location: models.PVZNariman, Name: "Нариман", Address: "ул. 1", ChinaWarehouseAddress: "Guangzhou",
	}))

	s0, err := st.GetSettings(ctx)
	require.NoError(t, err)
	require.Empty(t, s0.Contacts)
	s0.PricePerKg = &price
	s0.Contacts = []models.Contact{{ID: "c1", Name: "Склад", Phone: "+996"}}
	require.NoError(t, st.SaveSettings(ctx, s0))
	s1, err := st.GetSettings(ctx)
	require.NoError(t, err)
	require.InDelta(t, 12.0, *s1.PricePerKg, 0.001)
	require.Len(t, s1.Contacts, 1)

	// удаление аккаунта отвязывает посылки
	require.NoError(t, st.DeleteAccount(ctx, acc.ID))
	_, err = st.GetProfileByUserID(ctx, acc.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
