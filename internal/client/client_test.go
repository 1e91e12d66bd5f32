package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BearBump/CargoBox/internal/identity"
	"github.com/BearBump/CargoBox/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	admin := uuid.New()
	target := uuid.New()

	r := chi.NewRouter()
	r.Post("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"unauthenticated","message":"invalid credentials"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(identity.Session{AccessToken: "admin-1", UserID: admin})
	})
	r.Post("/functions/v1/admin-login-as-user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer admin-1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"login_token":"otl","ticket":"t-1","user_name":"Айгуль","client_code":"YX1001"}`)
	})
	r.Post("/auth/v1/verify", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "otl", in["token"])
		_ = json.NewEncoder(w).Encode(identity.Session{AccessToken: "user-1", UserID: target, ImpersonatorID: &admin})
	})
	r.Post("/functions/v1/restore-admin-session", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer user-1", r.Header.Get("Authorization"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "t-1", in["ticket"])
		_ = json.NewEncoder(w).Encode(identity.Session{AccessToken: "admin-2", UserID: admin})
	})
	r.Post("/api/v1/packages/import", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "2", r.FormValue("track_column"))
		require.Equal(t, "12.50", r.FormValue("price_per_kg"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "batch.csv", hdr.Filename)
		body, _ := io.ReadAll(f)
		require.Equal(t, "A1\nA2\n", string(body))
		_, _ = io.WriteString(w, `{"inserted":2,"updated":0,"skipped":0}`)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestImpersonationRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(fakeAPI(t).URL)

	_, err := c.SignIn(ctx, "+996555000111", "secret1")
	require.NoError(t, err)
	require.Equal(t, session.StateNormal, c.Session().State())

	imp, err := c.LoginAsUser(ctx, uuid.New())
	require.NoError(t, err)
	require.Equal(t, "YX1001", imp.ClientCode)
	require.Equal(t, session.StateImpersonating, c.Session().State())
	require.Equal(t, "user-1", c.Session().Current().AccessToken)

	require.NoError(t, c.RestoreAdmin(ctx))
	require.Equal(t, session.StateNormal, c.Session().State())
	require.Equal(t, "admin-2", c.Session().Current().AccessToken)

	require.ErrorIs(t, c.RestoreAdmin(ctx), session.ErrNotImpersonating)
}

func TestSignInError(t *testing.T) {
	c := New(fakeAPI(t).URL)
	_, err := c.SignIn(context.Background(), "+996555000111", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "invalid credentials", apiErr.Message)
	require.Equal(t, session.StateSignedOut, c.Session().State())
}

func TestAuthedCallNeedsSession(t *testing.T) {
	c := New(fakeAPI(t).URL)
	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestImportPackagesForm(t *testing.T) {
	ctx := context.Background()
	c := New(fakeAPI(t).URL)
	_, err := c.SignIn(ctx, "+996555000111", "secret1")
	require.NoError(t, err)

	res, err := c.ImportPackages(ctx, "batch.csv", strings.NewReader("A1\nA2\n"), PackageImport{TrackColumn: 2, PricePerKg: 12.5})
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
}
