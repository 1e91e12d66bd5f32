package pgcargo

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS accounts (
  id UUID PRIMARY KEY,
  email TEXT NOT NULL,
  phone TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT accounts_email_key UNIQUE (email)
)`,
		`
CREATE TABLE IF NOT EXISTS profiles (
  id UUID PRIMARY KEY,
  user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  client_code TEXT NOT NULL,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  pvz_location TEXT NOT NULL CHECK (pvz_location IN ('nariman', 'zhiydalik', 'dostuk')),
  telegram_id TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT profiles_user_id_key UNIQUE (user_id),
  CONSTRAINT profiles_client_code_key UNIQUE (client_code),
  CONSTRAINT profiles_telegram_id_key UNIQUE (telegram_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_pvz_location ON profiles(pvz_location)`,
		`
CREATE TABLE IF NOT EXISTS user_roles (
  id UUID PRIMARY KEY,
  user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  role TEXT NOT NULL CHECK (role IN ('user', 'pvz', 'admin')),
  created_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT user_roles_user_id_key UNIQUE (user_id)
)`,
		`
CREATE TABLE IF NOT EXISTS client_code_counters (
  prefix TEXT PRIMARY KEY,
  last_value BIGINT NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS packages (
  id UUID PRIMARY KEY,
  track_number TEXT NOT NULL,
  weight NUMERIC(10,3) NOT NULL DEFAULT 0,
  price_per_kg NUMERIC(12,2) NULL,
  total_price NUMERIC(12,2) NULL,
  status TEXT NOT NULL CHECK (status IN ('waiting_arrival', 'in_transit', 'arrived', 'delivered')),
  user_id UUID NULL REFERENCES accounts(id) ON DELETE SET NULL,
  client_code TEXT NULL,
  arrived_at TIMESTAMPTZ NULL,
  delivered_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT packages_track_number_key UNIQUE (track_number)
)`,
		`CREATE INDEX IF NOT EXISTS idx_packages_user_id ON packages(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_packages_client_code ON packages(client_code)`,
		`CREATE INDEX IF NOT EXISTS idx_packages_status ON packages(status)`,
		`
CREATE TABLE IF NOT EXISTS pvz_locations (
  id TEXT PRIMARY KEY,
  location TEXT NOT NULL,
  name TEXT NOT NULL,
  address TEXT NOT NULL,
  china_warehouse_address TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		// Seed the three known pickup points; admins edit the addresses later.
		`
INSERT INTO pvz_locations (id, location, name, address, china_warehouse_address, created_at, updated_at)
VALUES
  ('YQ', 'nariman', 'Нариман', '', '', now(), now()),
  ('YX', 'zhiydalik', 'Жийдалик', '', '', now(), now()),
  ('JL', 'dostuk', 'Достук', '', '', now(), now())
ON CONFLICT (id) DO NOTHING
`,
		`
CREATE TABLE IF NOT EXISTS settings (
  id SMALLINT PRIMARY KEY CHECK (id = 1),
  logo_url TEXT NULL,
  primary_color TEXT NULL,
  price_per_kg NUMERIC(12,2) NULL,
  contact_phone TEXT NULL,
  contact_email TEXT NULL,
  contact_telegram TEXT NULL,
  contact_whatsapp TEXT NULL,
  contact_info JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
