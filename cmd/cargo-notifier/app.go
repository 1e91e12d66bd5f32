package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BearBump/CargoBox/config"
	"github.com/BearBump/CargoBox/internal/broker/kafka"
	"github.com/BearBump/CargoBox/internal/broker/messages"
	"github.com/BearBump/CargoBox/internal/cache/rediscache"
	"github.com/BearBump/CargoBox/internal/integrations/notifier"
	"github.com/BearBump/CargoBox/internal/integrations/notifier/fake"
	"github.com/BearBump/CargoBox/internal/integrations/notifier/telegram"
	"github.com/BearBump/CargoBox/internal/integrations/notifier/webhook"
	"github.com/BearBump/CargoBox/internal/labels"
	"github.com/BearBump/CargoBox/internal/services/dispatcher"
)

type closableConsumer interface {
	dispatcher.Consumer
	Close() error
}

type notifierFactories struct {
	newConsumer    func(cfg *config.Config, topic string) closableConsumer
	newRateLimiter func(cfg *config.Config) dispatcher.RateLimiter
	newNotifier    func(cfg *config.Config) (notifier.Notifier, error)
}

func defaultNotifierFactories() notifierFactories {
	return notifierFactories{
		newConsumer: func(cfg *config.Config, topic string) closableConsumer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			group := cfg.CargoBox.NotifierConsumerGroup
			if group == "" {
				group = "cargo-notifier"
			}
			return kafka.NewConsumer(brokers, topic, group)
		},
		newRateLimiter: func(cfg *config.Config) dispatcher.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newNotifier: func(cfg *config.Config) (notifier.Notifier, error) {
			switch cfg.CargoBox.NotifierMode {
			case "telegram":
				c, err := telegram.New(cfg.CargoBox.TelegramBotToken)
				if err != nil {
					return nil, err
				}
				return c, nil
			case "webhook":
				return webhook.New(cfg.CargoBox.BotWebhookURL), nil
			default:
				// Без бота уведомления только пишутся в лог.
				return fake.New(), nil
			}
		},
	}
}

func topics(cfg *config.Config) (registered, statusChanged string) {
	registered = cfg.Kafka.UserRegisteredTopic
	if registered == "" {
		registered = messages.TopicUserRegistered
	}
	statusChanged = cfg.Kafka.PackageStatusChangedTopic
	if statusChanged == "" {
		statusChanged = messages.TopicPackageStatusChanged
	}
	return registered, statusChanged
}

// buildDispatcher wires the dispatcher and its sources; closeFn releases the consumers.
func buildDispatcher(cfg *config.Config, f notifierFactories) (*dispatcher.Dispatcher, []dispatcher.Source, func(), error) {
	n, err := f.newNotifier(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	d := dispatcher.New(n, labels.MustNew(), f.newRateLimiter(cfg)).
		WithSettings(int64(cfg.CargoBox.NotifierSendsPerMinute), dispatcher.RetryConfig{
			Attempts: cfg.CargoBox.NotifierRetryAttempts,
		})

	registered, statusChanged := topics(cfg)
	users := f.newConsumer(cfg, registered)
	pkgs := f.newConsumer(cfg, statusChanged)

	// Handle switches on the canonical event name, the kafka topic may be renamed in config.
	sources := []dispatcher.Source{
		{Topic: messages.TopicUserRegistered, Consumer: users},
		{Topic: messages.TopicPackageStatusChanged, Consumer: pkgs},
	}
	closeFn := func() {
		for _, c := range []closableConsumer{users, pkgs} {
			if err := c.Close(); err != nil {
				slog.Warn("close consumer", "error", err.Error())
			}
		}
	}
	return d, sources, closeFn, nil
}

func RunCargoNotifier(ctx context.Context, cfg *config.Config, f notifierFactories, httpOpts notifierHTTPOpts) error {
	d, sources, closeFn, err := buildDispatcher(cfg, f)
	if err != nil {
		return err
	}
	defer closeFn()

	httpOpts.dispatcher = d
	httpOpts.cfg = cfg
	httpErr := make(chan error, 1)
	go func() { httpErr <- runNotifierHTTPServer(ctx, httpOpts) }()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx, sources...) }()

	select {
	case err := <-runErr:
		return err
	case err := <-httpErr:
		if ctx.Err() != nil {
			return <-runErr
		}
		return err
	}
}
