package notifier

import (
	"context"
)

// Registration is what the bot needs to greet a user who signed up from Telegram.
type Registration struct {
	TelegramID string
	FullName   string
	ClientCode string
	Phone      string
	PVZ        string
}

type StatusChange struct {
	TelegramID  string
	TrackNumber string
	Status      string
	StatusLabel string
}

type Notifier interface {
	NotifyRegistered(ctx context.Context, r Registration) error
	NotifyStatusChanged(ctx context.Context, c StatusChange) error
}
