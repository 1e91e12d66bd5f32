package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  user_registered_topic: "user.registered"
redis:
  host: "localhost"
  port: 6379
cargobox:
  grpc_addr: ":50051"
  http_addr: ":8080"
  default_price_per_kg: 12.5
  bootstrap_admin:
    phone: "+996558105551"
    full_name: "Админ"
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "user.registered", cfg.Kafka.UserRegisteredTopic)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.CargoBox.HTTPAddr)
	require.Equal(t, 12.5, cfg.CargoBox.DefaultPricePerKg)
	require.Equal(t, "Админ", cfg.CargoBox.BootstrapAdmin.FullName)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CARGOBOX_TEST_FROM_FILE=1\nCARGOBOX_BOOTSTRAP_ADMIN_PASSWORD=from-file\n"), 0o600))

	t.Setenv("CARGOBOX_JWT_SECRET", "env-secret")
	t.Setenv("CARGOBOX_BOOTSTRAP_ADMIN_PHONE", "")
	// godotenv does not override variables that are already set, so clear them first.
	t.Setenv("CARGOBOX_BOOTSTRAP_ADMIN_PASSWORD", "")
	require.NoError(t, os.Unsetenv("CARGOBOX_BOOTSTRAP_ADMIN_PASSWORD"))
	t.Setenv("CARGOBOX_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("CARGOBOX_TEST_FROM_FILE"))

	cfg := &Config{CargoBox: CargoBoxConfig{
		JWTSecret:      "yaml-secret",
		BootstrapAdmin: BootstrapAdminConfig{Phone: "+996700000000"},
	}}
	require.NoError(t, cfg.ApplyEnv(envFile, filepath.Join(dir, "missing.env")))

	require.Equal(t, "env-secret", cfg.CargoBox.JWTSecret)
	// empty env value keeps the yaml one
	require.Equal(t, "+996700000000", cfg.CargoBox.BootstrapAdmin.Phone)
	require.Equal(t, "from-file", cfg.CargoBox.BootstrapAdmin.Password)
	require.Equal(t, "1", os.Getenv("CARGOBOX_TEST_FROM_FILE"))
}
