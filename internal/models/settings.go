package models

import "time"

// Contact is an entry of the public contact list (contact_info).
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Note  string `json:"note,omitempty"`
}

// Settings is a singleton row. Cached as JSON in redis, hence the tags.
type Settings struct {
	LogoURL         *string   `json:"logo_url,omitempty"`
	PrimaryColor    *string   `json:"primary_color,omitempty"`
	PricePerKg      *float64  `json:"price_per_kg,omitempty"`
	ContactPhone    *string   `json:"contact_phone,omitempty"`
	ContactEmail    *string   `json:"contact_email,omitempty"`
	ContactTelegram *string   `json:"contact_telegram,omitempty"`
	ContactWhatsApp *string   `json:"contact_whatsapp,omitempty"`
	Contacts        []Contact `json:"contacts"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
