package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BearBump/CargoBox/config"
	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/api/httpapi"
	"github.com/BearBump/CargoBox/internal/broker/kafka"
	"github.com/BearBump/CargoBox/internal/broker/messages"
	"github.com/BearBump/CargoBox/internal/cache/rediscache"
	"github.com/BearBump/CargoBox/internal/identity"
	"github.com/BearBump/CargoBox/internal/labels"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/services/admin"
	"github.com/BearBump/CargoBox/internal/services/auth"
	"github.com/BearBump/CargoBox/internal/services/packages"
	"github.com/BearBump/CargoBox/internal/services/privileged"
	"github.com/BearBump/CargoBox/internal/services/users"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
)

type cargoAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   cargoAPIOpts
	api    *httpapi.API
	deps   []pinger

	closers []func() error
	closeDB func()
}

func mustBootstrapCargoAPI() *cargoAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	if err := cfg.ApplyEnv(".env"); err != nil {
		panic(err)
	}
	setupLogger(cfg.CargoBox.LogLevel)

	cb := cfg.CargoBox
	if cb.GRPCAddr == "" {
		cb.GRPCAddr = ":50051"
	}
	if cb.HTTPAddr == "" {
		cb.HTTPAddr = ":8080"
	}
	if cb.JWTSecret == "" {
		panic("jwt secret is required (cargobox.jwt_secret or CARGOBOX_JWT_SECRET)")
	}
	if cb.LoginRateLimitPerMinute <= 0 {
		cb.LoginRateLimitPerMinute = 10
	}
	if cb.DefaultPricePerKg <= 0 {
		cb.DefaultPricePerKg = 10
	}
	settingsTTL := seconds(cb.SettingsTTLSeconds, 10*time.Minute)
	ticketTTL := seconds(cb.ImpersonationTTLSeconds, 2*time.Hour)

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rdb := rediscache.Dial(redisAddr)
	rc := rediscache.NewWithClient(rdb)
	tokens := rediscache.NewTokenStoreWithClient(rdb)
	limiter := rediscache.NewRateLimiterWithClient(rdb)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)

	gw := identity.NewLocal(st, tokens, identity.Config{
		Secret:        []byte(cb.JWTSecret),
		EmailDomain:   cb.EmailDomain,
		AccessTTL:     seconds(cb.AccessTTLSeconds, 0),
		RefreshTTL:    seconds(cb.RefreshTTLSeconds, 0),
		LoginTokenTTL: seconds(cb.LoginTokenTTLSeconds, 0),
	})
	guard := access.NewGuard(st)

	adminSvc := admin.New(st, guard, rc, settingsTTL, cb.DefaultPricePerKg)
	priv := privileged.New(gw, st, guard, tokens, ticketTTL, privileged.Bootstrap{
		Phone:       cfg.CargoBox.BootstrapAdmin.Phone,
		Password:    cfg.CargoBox.BootstrapAdmin.Password,
		FullName:    cfg.CargoBox.BootstrapAdmin.FullName,
		PVZLocation: models.PVZLocation(cfg.CargoBox.BootstrapAdmin.PVZLocation),
	})

	api := httpapi.New(gw, httpapi.Services{
		Auth:       auth.New(gw, st, guard, topicPublisher(producer, cfg.Kafka.UserRegisteredTopic, messages.TopicUserRegistered), limiter, int64(cb.LoginRateLimitPerMinute)),
		Privileged: priv,
		Packages:   packages.New(st, st, guard, topicPublisher(producer, cfg.Kafka.PackageStatusChangedTopic, messages.TopicPackageStatusChanged), adminSvc),
		Users:      users.New(st, gw, guard, priv),
		Admin:      adminSvc,
		Guard:      guard,
	}, labels.MustNew())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &cargoAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: cargoAPIOpts{
			grpcAddr:    cb.GRPCAddr,
			httpAddr:    cb.HTTPAddr,
			swaggerPath: swaggerPath,
		},
		api:     api,
		deps:    []pinger{st, rc},
		closers: []func() error{producer.Close, rdb.Close},
		closeDB: st.Close,
	}
}

func seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgcargo.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgcargo.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *cargoAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		_ = c()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *cargoAPIApp) Run() error {
	return runCargoAPI(a.ctx, a.opts, a.api, a.deps)
}

type renamedTopic struct {
	p        *kafka.Producer
	from, to string
}

func (r renamedTopic) PublishJSON(ctx context.Context, topic, key string, v any) error {
	if topic == r.from {
		topic = r.to
	}
	return r.p.PublishJSON(ctx, topic, key, v)
}

// topicPublisher publishes events of the default topic under the configured name.
func topicPublisher(p *kafka.Producer, configured, def string) renamedTopic {
	if configured == "" {
		configured = def
	}
	return renamedTopic{p: p, from: def, to: configured}
}
