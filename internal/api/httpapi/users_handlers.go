package httpapi

import (
	"net/http"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/services/users"
)

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ps, err := a.svc.Users.List(r.Context(), principal(r), models.ProfileFilter{
		PVZLocation: models.PVZLocation(q.Get("pvz")),
		Search:      q.Get("q"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfiles(ps))
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	var in users.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := a.svc.Users.Update(r.Context(), principal(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(p))
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	if err := a.svc.Users.Delete(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) importUsers(w http.ResponseWriter, r *http.Request) {
	t, ok := a.readUpload(w, r)
	if !ok {
		return
	}
	res, err := a.svc.Users.Import(r.Context(), principal(r), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
