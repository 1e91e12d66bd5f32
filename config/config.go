package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	CargoBox CargoBoxConfig `yaml:"cargobox"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                      string `yaml:"host"`
	Port                      int    `yaml:"port"`
	UserRegisteredTopic       string `yaml:"user_registered_topic"`
	PackageStatusChangedTopic string `yaml:"package_status_changed_topic"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type CargoBoxConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`

	JWTSecret            string `yaml:"jwt_secret"`
	EmailDomain          string `yaml:"email_domain"`
	AccessTTLSeconds     int    `yaml:"access_ttl_seconds"`
	RefreshTTLSeconds    int    `yaml:"refresh_ttl_seconds"`
	LoginTokenTTLSeconds int    `yaml:"login_token_ttl_seconds"`
	// Срок жизни тикета возврата в админку после входа под пользователем.
	ImpersonationTTLSeconds int `yaml:"impersonation_ttl_seconds"`
	LoginRateLimitPerMinute int `yaml:"login_rate_limit_per_minute"`

	SettingsTTLSeconds int     `yaml:"settings_ttl_seconds"`
	DefaultPricePerKg  float64 `yaml:"default_price_per_kg"`

	BootstrapAdmin BootstrapAdminConfig `yaml:"bootstrap_admin"`

	NotifierHTTPAddr      string `yaml:"notifier_http_addr"`
	NotifierConsumerGroup string `yaml:"notifier_consumer_group"`
	// "telegram" | "webhook" | "fake"
	NotifierMode           string `yaml:"notifier_mode"`
	NotifierSendsPerMinute int    `yaml:"notifier_sends_per_minute"`
	NotifierRetryAttempts  int    `yaml:"notifier_retry_attempts"`
	TelegramBotToken       string `yaml:"telegram_bot_token"`
	BotWebhookURL          string `yaml:"bot_webhook_url"`
}

type BootstrapAdminConfig struct {
	Phone       string `yaml:"phone"`
	Password    string `yaml:"password"`
	FullName    string `yaml:"full_name"`
	PVZLocation string `yaml:"pvz_location"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

// ApplyEnv loads the given .env files (missing ones are skipped) and lets the
// environment override secrets from the YAML file.
func (c *Config) ApplyEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	overrides := []struct {
		key string
		dst *string
	}{
		{"CARGOBOX_JWT_SECRET", &c.CargoBox.JWTSecret},
		{"CARGOBOX_BOOTSTRAP_ADMIN_PHONE", &c.CargoBox.BootstrapAdmin.Phone},
		{"CARGOBOX_BOOTSTRAP_ADMIN_PASSWORD", &c.CargoBox.BootstrapAdmin.Password},
		{"CARGOBOX_TELEGRAM_BOT_TOKEN", &c.CargoBox.TelegramBotToken},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
	return nil
}
