package messages

import (
	"time"
)

const (
	TopicUserRegistered       = "user.registered"
	TopicPackageStatusChanged = "package.status_changed"
)

// UserRegistered is published on sign-up when the user came from the Telegram bot.
type UserRegistered struct {
	UserID       string    `json:"user_id"`
	TelegramID   string    `json:"telegram_id"`
	FullName     string    `json:"full_name"`
	ClientCode   string    `json:"client_code"`
	Phone        string    `json:"phone"`
	PVZ          string    `json:"pvz"`
	RegisteredAt time.Time `json:"registered_at"`
}

type PackageStatusChanged struct {
	PackageID   string    `json:"package_id"`
	TrackNumber string    `json:"track_number"`
	UserID      *string   `json:"user_id,omitempty"`
	ClientCode  *string   `json:"client_code,omitempty"`
	// Telegram id of the owner, when the owner came from the bot.
	TelegramID  *string   `json:"telegram_id,omitempty"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ChangedAt   time.Time `json:"changed_at"`
}
