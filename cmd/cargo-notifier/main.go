package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/CargoBox/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	if err := cfg.ApplyEnv(".env"); err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = RunCargoNotifier(ctx, cfg, defaultNotifierFactories(), notifierHTTPOpts{
		httpAddr: cfg.CargoBox.NotifierHTTPAddr,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("cargo-notifier stopped", "err", err)
		os.Exit(1)
	}
}
