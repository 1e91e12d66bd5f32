package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/validation"
)

const settingsKey = "settings:current"

// settings reads the singleton through the cache. The cache is best-effort:
// any cache error falls through to the database.
func (s *Service) settings(ctx context.Context) (*models.Settings, error) {
	if s.cache != nil && s.settingsTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, settingsKey); err == nil && ok {
			var st models.Settings
			if json.Unmarshal(b, &st) == nil {
				return &st, nil
			}
		}
	}

	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.settingsTTL > 0 {
		b, _ := json.Marshal(st)
		_ = s.cache.Set(ctx, settingsKey, b, s.settingsTTL)
	}
	return st, nil
}

func (s *Service) save(ctx context.Context, st *models.Settings) error {
	if err := s.repo.SaveSettings(ctx, st); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, settingsKey); err != nil {
			slog.Warn("settings cache invalidation failed", "err", err)
		}
	}
	return nil
}

// PublicSettings is what unauthenticated pages render.
type PublicSettings struct {
	LogoURL         *string          `json:"logo_url"`
	PrimaryColor    *string          `json:"primary_color"`
	PricePerKg      float64          `json:"price_per_kg"`
	ContactPhone    *string          `json:"contact_phone"`
	ContactEmail    *string          `json:"contact_email"`
	ContactTelegram *string          `json:"contact_telegram"`
	ContactWhatsApp *string          `json:"contact_whatsapp"`
	Contacts        []models.Contact `json:"contacts"`
}

func (s *Service) PublicSettings(ctx context.Context) (*PublicSettings, error) {
	st, err := s.settings(ctx)
	if err != nil {
		return nil, err
	}
	price := s.defaultPrice
	if st.PricePerKg != nil {
		price = *st.PricePerKg
	}
	contacts := st.Contacts
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return &PublicSettings{
		LogoURL:         st.LogoURL,
		PrimaryColor:    st.PrimaryColor,
		PricePerKg:      price,
		ContactPhone:    st.ContactPhone,
		ContactEmail:    st.ContactEmail,
		ContactTelegram: st.ContactTelegram,
		ContactWhatsApp: st.ContactWhatsApp,
		Contacts:        contacts,
	}, nil
}

// PricePerKg is the price package imports fall back to.
func (s *Service) PricePerKg(ctx context.Context) (*float64, error) {
	st, err := s.settings(ctx)
	if err != nil {
		return nil, err
	}
	if st.PricePerKg != nil {
		v := *st.PricePerKg
		return &v, nil
	}
	if s.defaultPrice > 0 {
		v := s.defaultPrice
		return &v, nil
	}
	return nil, nil
}

func (s *Service) Settings(ctx context.Context, p access.Principal) (*models.Settings, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	return s.settings(ctx)
}

type SettingsInput struct {
	LogoURL         *string  `json:"logo_url" validate:"omitempty,url"`
	PrimaryColor    *string  `json:"primary_color" validate:"omitempty,hexcolor"`
	PricePerKg      *float64 `json:"price_per_kg" validate:"omitempty,gte=0"`
	ContactPhone    *string  `json:"contact_phone"`
	ContactEmail    *string  `json:"contact_email" validate:"omitempty,email"`
	ContactTelegram *string  `json:"contact_telegram"`
	ContactWhatsApp *string  `json:"contact_whatsapp"`
}

// UpdateSettings replaces the branding and contact fields. The contact list is
// edited separately and is kept as is.
func (s *Service) UpdateSettings(ctx context.Context, p access.Principal, in SettingsInput) (*models.Settings, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	for _, f := range []**string{&in.LogoURL, &in.PrimaryColor, &in.ContactPhone, &in.ContactEmail, &in.ContactTelegram, &in.ContactWhatsApp} {
		blankToNil(f)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	st.LogoURL = in.LogoURL
	st.PrimaryColor = in.PrimaryColor
	st.PricePerKg = in.PricePerKg
	st.ContactPhone = in.ContactPhone
	st.ContactEmail = in.ContactEmail
	st.ContactTelegram = in.ContactTelegram
	st.ContactWhatsApp = in.ContactWhatsApp
	if err := s.save(ctx, st); err != nil {
		return nil, err
	}
	slog.Info("settings updated", "admin_id", p.UserID)
	return st, nil
}

func (s *Service) SetPrice(ctx context.Context, p access.Principal, price float64) (*models.Settings, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, apperr.Validation("price_per_kg must be positive")
	}
	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	st.PricePerKg = &price
	if err := s.save(ctx, st); err != nil {
		return nil, err
	}
	slog.Info("price per kg changed", "admin_id", p.UserID, "price", price)
	return st, nil
}

type ContactInput struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
	Note  string `json:"note"`
}

func (s *Service) AddContact(ctx context.Context, p access.Principal, in ContactInput) (*models.Contact, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	c := models.Contact{ID: s.newID(), Name: in.Name, Phone: in.Phone, Note: strings.TrimSpace(in.Note)}
	st.Contacts = append(st.Contacts, c)
	if err := s.save(ctx, st); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) RemoveContact(ctx context.Context, p access.Principal, id string) error {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return err
	}
	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	kept := make([]models.Contact, 0, len(st.Contacts))
	for _, c := range st.Contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(st.Contacts) {
		return apperr.NotFound("contact not found")
	}
	st.Contacts = kept
	return s.save(ctx, st)
}

func blankToNil(p **string) {
	if *p != nil && strings.TrimSpace(**p) == "" {
		*p = nil
	}
}
