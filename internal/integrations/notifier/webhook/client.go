package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/CargoBox/internal/integrations/notifier"
	"github.com/pkg/errors"
)

// Client posts notifications to the external bot service.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Поля названы так, как их ждёт бот.
type registeredReq struct {
	TelegramID string `json:"telegramId"`
	FIO        string `json:"fio"`
	Code       string `json:"code"`
	Phone      string `json:"phone"`
	PVZ        string `json:"pvz"`
}

type statusReq struct {
	TelegramID string `json:"telegramId"`
	Track      string `json:"track"`
	Status     string `json:"status"`
	Label      string `json:"label"`
}

func (c *Client) NotifyRegistered(ctx context.Context, r notifier.Registration) error {
	return c.post(ctx, "/notify", registeredReq{
		TelegramID: r.TelegramID,
		FIO:        r.FullName,
		Code:       r.ClientCode,
		Phone:      r.Phone,
		PVZ:        r.PVZ,
	})
}

func (c *Client) NotifyStatusChanged(ctx context.Context, s notifier.StatusChange) error {
	return c.post(ctx, "/package-status", statusReq{
		TelegramID: s.TelegramID,
		Track:      s.TrackNumber,
		Status:     s.Status,
		Label:      s.StatusLabel,
	})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u = u.JoinPath(path)

	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("bot webhook http %d", resp.StatusCode)
	}
	return nil
}
