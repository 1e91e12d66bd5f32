// Package httpapi is the JSON-over-HTTP surface of cargo-api.
package httpapi

import (
	"net/http"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/identity"
	"github.com/BearBump/CargoBox/internal/labels"
	"github.com/BearBump/CargoBox/internal/services/admin"
	"github.com/BearBump/CargoBox/internal/services/auth"
	"github.com/BearBump/CargoBox/internal/services/packages"
	"github.com/BearBump/CargoBox/internal/services/privileged"
	"github.com/BearBump/CargoBox/internal/services/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxUpload = 10 << 20

type Services struct {
	Auth       *auth.Service
	Privileged *privileged.Service
	Packages   *packages.Service
	Users      *users.Service
	Admin      *admin.Service
	// Guard gates the upload routes before the body is read.
	Guard      *access.Guard
}

type API struct {
	gw        identity.Gateway
	svc       Services
	labels    *labels.Catalog
	maxUpload int64
}

func New(gw identity.Gateway, svc Services, catalog *labels.Catalog) *API {
	return &API{gw: gw, svc: svc, labels: catalog, maxUpload: defaultMaxUpload}
}

// Routes mounts every endpoint on r. Role checks happen in the services;
// the import routes are also gated here so a non-admin never gets a
// multipart body parsed.
func (a *API) Routes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/signup", a.signUp)
		r.Post("/token", a.signIn)
		r.Post("/refresh", a.refresh)
		r.Post("/verify", a.verify)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/logout", a.signOut)
			r.Put("/password", a.changePassword)
		})
	})

	r.Route("/functions/v1", func(r chi.Router) {
		r.Post("/telegram-auth", a.telegramAuth)
		r.Post("/create-admin", a.createAdmin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/create-user", a.createUser)
			r.Post("/admin-login-as-user", a.loginAsUser)
			r.Post("/restore-admin-session", a.restoreAdminSession)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/settings/public", a.publicSettings)
		r.Get("/pvz", a.listPickupPoints)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Get("/me", a.me)
			r.Patch("/me", a.updateMe)
			r.Get("/me/packages", a.listOwnPackages)
			r.Post("/me/packages", a.addOwnPackage)

			r.Get("/packages/in-transit", a.listInTransit)
			r.Patch("/packages/{id}/status", a.setPackageStatus)
			r.With(a.requireAdmin).Post("/packages/import", a.importPackages)

			r.Get("/users", a.listUsers)
			r.With(a.requireAdmin).Post("/users/import", a.importUsers)
			r.Patch("/users/{userID}", a.updateUser)
			r.Delete("/users/{userID}", a.deleteUser)

			r.Get("/roles", a.listRoles)
			r.Put("/roles/{userID}", a.setRole)
			r.Delete("/roles/{userID}", a.deleteRole)

			r.Put("/pvz/{id}", a.savePickupPoint)
			r.Delete("/pvz/{id}", a.deletePickupPoint)

			r.Get("/settings", a.getSettings)
			r.Put("/settings", a.updateSettings)
			r.Put("/settings/price", a.setPrice)
			r.Post("/settings/contacts", a.addContact)
			r.Delete("/settings/contacts/{id}", a.removeContact)
		})
	})
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	a.Routes(r)
	return r
}
