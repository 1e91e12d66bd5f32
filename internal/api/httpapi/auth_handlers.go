package httpapi

import (
	"net/http"

	"github.com/BearBump/CargoBox/internal/identity"
	"github.com/BearBump/CargoBox/internal/services/auth"
	"github.com/google/uuid"
)

type signUpResponse struct {
	Session *identity.Session `json:"session"`
	Profile *profileResponse  `json:"profile"`
}

func (a *API) signUp(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := a.svc.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, signUpResponse{Session: res.Session, Profile: toProfile(res.Profile)})
}

type credentials struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (a *API) signIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeJSON(w, r, &in) {
		return
	}
	sess, err := a.svc.Auth.SignIn(r.Context(), in.Phone, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	sess, err := a.svc.Auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// verify redeems a one-time login token from telegram-auth or admin-login-as-user.
func (a *API) verify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	sess, err := a.svc.Auth.Verify(r.Context(), in.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) signOut(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Auth.SignOut(r.Context(), accessToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := a.svc.Auth.ChangePassword(r.Context(), principal(r), in.Password); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	Profile        *profileResponse `json:"profile"`
	Role           string           `json:"role"`
	Impersonating  bool             `json:"impersonating"`
	ImpersonatorID *uuid.UUID       `json:"impersonator_id,omitempty"`
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	me, err := a.svc.Auth.Me(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Profile:        toProfile(me.Profile),
		Role:           string(me.Role),
		Impersonating:  me.ImpersonatorID != nil,
		ImpersonatorID: me.ImpersonatorID,
	})
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request) {
	var in auth.UpdateMeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := a.svc.Auth.UpdateMe(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(p))
}
