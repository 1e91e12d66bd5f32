// Package client talks to cargo-api over HTTP. cargo-admin is built on it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BearBump/CargoBox/internal/identity"
	"github.com/BearBump/CargoBox/internal/services/packages"
	"github.com/BearBump/CargoBox/internal/services/users"
	"github.com/BearBump/CargoBox/internal/session"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status  int
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Kind, e.Message)
}

type Client struct {
	baseURL string
	httpc   *http.Client
	stack   *session.Stack
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 2 * time.Minute},
		stack:   &session.Stack{},
	}
}

func (c *Client) Session() *session.Stack { return c.stack }

func (c *Client) SignIn(ctx context.Context, phone, password string) (*identity.Session, error) {
	var sess identity.Session
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token", false, map[string]string{
		"phone": phone, "password": password,
	}, &sess)
	if err != nil {
		return nil, err
	}
	c.stack.SignIn(&sess)
	return &sess, nil
}

type CreateAdminResult struct {
	Created bool      `json:"created"`
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

func (c *Client) CreateAdmin(ctx context.Context) (*CreateAdminResult, error) {
	var out CreateAdminResult
	if err := c.doJSON(ctx, http.MethodPost, "/functions/v1/create-admin", false, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type Me struct {
	Profile struct {
		UserID      uuid.UUID `json:"user_id"`
		ClientCode  string    `json:"client_code"`
		FullName    string    `json:"full_name"`
		Phone       string    `json:"phone"`
		PVZLocation string    `json:"pvz_location"`
	} `json:"profile"`
	Role          string `json:"role"`
	Impersonating bool   `json:"impersonating"`
}

func (c *Client) Me(ctx context.Context) (*Me, error) {
	var out Me
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/me", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginAsUser switches the client to the target user. RestoreAdmin switches back.
func (c *Client) LoginAsUser(ctx context.Context, target uuid.UUID) (*session.Impersonation, error) {
	var imp struct {
		LoginToken string `json:"login_token"`
		Ticket     string `json:"ticket"`
		UserName   string `json:"user_name"`
		ClientCode string `json:"client_code"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/functions/v1/admin-login-as-user", true, map[string]string{
		"target_user_id": target.String(),
	}, &imp)
	if err != nil {
		return nil, err
	}

	var sess identity.Session
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/verify", false, map[string]string{"token": imp.LoginToken}, &sess); err != nil {
		return nil, err
	}
	info := session.Impersonation{Ticket: imp.Ticket, UserName: imp.UserName, ClientCode: imp.ClientCode}
	if err := c.stack.Impersonate(&sess, info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) RestoreAdmin(ctx context.Context) error {
	imp := c.stack.Impersonating()
	if imp == nil {
		return session.ErrNotImpersonating
	}
	var sess identity.Session
	if err := c.doJSON(ctx, http.MethodPost, "/functions/v1/restore-admin-session", true, map[string]string{"ticket": imp.Ticket}, &sess); err != nil {
		return err
	}
	return c.stack.Restore(&sess)
}

func (c *Client) ImportUsers(ctx context.Context, filename string, file io.Reader) (*users.ImportResult, error) {
	var out users.ImportResult
	if err := c.upload(ctx, "/api/v1/users/import", filename, file, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PackageImport mirrors the form of /api/v1/packages/import; zero values are not sent.
type PackageImport struct {
	TrackColumn  int
	WeightColumn int
	DateColumn   int
	ArrivalDate  string
	PricePerKg   float64
}

func (c *Client) ImportPackages(ctx context.Context, filename string, file io.Reader, opts PackageImport) (*packages.ImportResult, error) {
	fields := map[string]string{}
	if opts.TrackColumn > 0 {
		fields["track_column"] = strconv.Itoa(opts.TrackColumn)
	}
	if opts.WeightColumn > 0 {
		fields["weight_column"] = strconv.Itoa(opts.WeightColumn)
	}
	if opts.DateColumn > 0 {
		fields["date_column"] = strconv.Itoa(opts.DateColumn)
	}
	if opts.ArrivalDate != "" {
		fields["arrival_date"] = opts.ArrivalDate
	}
	if opts.PricePerKg > 0 {
		fields["price_per_kg"] = strconv.FormatFloat(opts.PricePerKg, 'f', 2, 64)
	}
	var out packages.ImportResult
	if err := c.upload(ctx, "/api/v1/packages/import", filename, file, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) upload(ctx context.Context, path, filename string, file io.Reader, fields map[string]string, out any) error {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return errors.Wrap(err, "multipart file")
	}
	if _, err := io.Copy(fw, file); err != nil {
		return errors.Wrap(err, "copy file")
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return errors.Wrap(err, "multipart field")
		}
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "multipart close")
	}
	return c.do(ctx, http.MethodPost, path, true, buf, mw.FormDataContentType(), out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal")
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}
	return c.do(ctx, method, path, authed, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, authed bool, body io.Reader, contentType string, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		sess := c.stack.Current()
		if sess == nil {
			return session.ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
