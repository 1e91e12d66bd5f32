package httpapi

import (
	"net/http"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/services/admin"
	"github.com/go-chi/chi/v5"
)

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	rs, err := a.svc.Admin.ListRoles(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoles(rs))
}

func (a *API) setRole(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	var in struct {
		Role models.Role `json:"role"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := a.svc.Admin.SetRole(r.Context(), principal(r), id, in.Role); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	if err := a.svc.Admin.DeleteRole(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listPickupPoints(w http.ResponseWriter, r *http.Request) {
	ps, err := a.svc.Admin.PickupPoints(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]*pickupPointResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPickupPoint(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) savePickupPoint(w http.ResponseWriter, r *http.Request) {
	var in admin.PickupPointInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := a.svc.Admin.SavePickupPoint(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPickupPoint(p))
}

func (a *API) deletePickupPoint(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Admin.DeletePickupPoint(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) publicSettings(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Admin.PublicSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Admin.Settings(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	var in admin.SettingsInput
	if !decodeJSON(w, r, &in) {
		return
	}
	st, err := a.svc.Admin.UpdateSettings(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) setPrice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PricePerKg float64 `json:"price_per_kg"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	st, err := a.svc.Admin.SetPrice(r.Context(), principal(r), in.PricePerKg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) addContact(w http.ResponseWriter, r *http.Request) {
	var in admin.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := a.svc.Admin.AddContact(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) removeContact(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Admin.RemoveContact(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
