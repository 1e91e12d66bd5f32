package httpapi

import (
	"net/http"
	"time"

	"github.com/BearBump/CargoBox/internal/services/privileged"
	"github.com/google/uuid"
)

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var in privileged.CreateUserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	id, err := a.svc.Privileged.CreateUser(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user_id": id})
}

type impersonationResponse struct {
	LoginToken string    `json:"login_token"`
	Ticket     string    `json:"ticket"`
	UserName   string    `json:"user_name"`
	ClientCode string    `json:"client_code"`
	AdminID    uuid.UUID `json:"admin_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (a *API) loginAsUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TargetUserID uuid.UUID `json:"target_user_id"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	imp, err := a.svc.Privileged.LoginAsUser(r.Context(), principal(r), in.TargetUserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, impersonationResponse{
		LoginToken: imp.LoginToken,
		Ticket:     imp.Ticket,
		UserName:   imp.UserName,
		ClientCode: imp.ClientCode,
		AdminID:    imp.AdminID,
		ExpiresAt:  imp.ExpiresAt,
	})
}

func (a *API) restoreAdminSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Ticket string `json:"ticket"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	sess, err := a.svc.Privileged.RestoreAdminSession(r.Context(), principal(r), in.Ticket)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) telegramAuth(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TelegramID string `json:"telegram_id"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := a.svc.Privileged.TelegramAuth(r.Context(), in.TelegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"login_token": res.LoginToken,
		"client_code": res.ClientCode,
		"full_name":   res.FullName,
	})
}

// createAdmin takes no body; credentials come from the server config.
func (a *API) createAdmin(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Privileged.CreateAdmin(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"success": true,
		"created": res.Created,
		"user_id": res.UserID,
		"message": res.Message,
	})
}
