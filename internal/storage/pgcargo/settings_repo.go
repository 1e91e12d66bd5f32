package pgcargo

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// GetSettings returns an empty settings value until an admin saves the first one.
func (s *Storage) GetSettings(ctx context.Context) (*models.Settings, error) {
	var st models.Settings
	var contacts string
	err := s.db.QueryRow(ctx, `
SELECT logo_url, primary_color, price_per_kg::float8,
       contact_phone, contact_email, contact_telegram, contact_whatsapp,
       contact_info::text, created_at, updated_at
FROM settings WHERE id = 1
`).Scan(
		&st.LogoURL, &st.PrimaryColor, &st.PricePerKg,
		&st.ContactPhone, &st.ContactEmail, &st.ContactTelegram, &st.ContactWhatsApp,
		&contacts, &st.CreatedAt, &st.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return &models.Settings{Contacts: []models.Contact{}}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select settings")
	}
	if err := json.Unmarshal([]byte(contacts), &st.Contacts); err != nil {
		return nil, errors.Wrap(err, "decode contact_info")
	}
	if st.Contacts == nil {
		st.Contacts = []models.Contact{}
	}
	return &st, nil
}

func (s *Storage) SaveSettings(ctx context.Context, st *models.Settings) error {
	contacts := st.Contacts
	if contacts == nil {
		contacts = []models.Contact{}
	}
	b, err := json.Marshal(contacts)
	if err != nil {
		return errors.Wrap(err, "encode contact_info")
	}
	err = s.db.QueryRow(ctx, `
INSERT INTO settings (
  id, logo_url, primary_color, price_per_kg,
  contact_phone, contact_email, contact_telegram, contact_whatsapp,
  contact_info, created_at, updated_at
) VALUES (1,$1,$2,$3::float8,$4,$5,$6,$7,$8::text::jsonb,now(),now())
ON CONFLICT (id) DO UPDATE SET
  logo_url = EXCLUDED.logo_url,
  primary_color = EXCLUDED.primary_color,
  price_per_kg = EXCLUDED.price_per_kg,
  contact_phone = EXCLUDED.contact_phone,
  contact_email = EXCLUDED.contact_email,
  contact_telegram = EXCLUDED.contact_telegram,
  contact_whatsapp = EXCLUDED.contact_whatsapp,
  contact_info = EXCLUDED.contact_info,
  updated_at = now()
RETURNING created_at, updated_at
`, st.LogoURL, st.PrimaryColor, st.PricePerKg,
		st.ContactPhone, st.ContactEmail, st.ContactTelegram, st.ContactWhatsApp,
		string(b)).Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "upsert settings")
	}
	st.Contacts = contacts
	return nil
}
