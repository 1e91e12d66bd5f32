package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/CargoBox/config"
	"github.com/BearBump/CargoBox/internal/services/dispatcher"
	"github.com/go-chi/chi/v5"
)

type notifierHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	dispatcher *dispatcher.Dispatcher
	cfg        *config.Config
}

func runNotifierHTTPServer(ctx context.Context, opts notifierHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: notifierRouter(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}

func notifierRouter(opts notifierHTTPOpts) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.dispatcher == nil {
			_, _ = w.Write([]byte(`{"error":"dispatcher not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.dispatcher.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		registered, statusChanged := topics(opts.cfg)
		// без токенов и адресов
		out := map[string]any{
			"mode":                opts.cfg.CargoBox.NotifierMode,
			"sendsPerMinute":      opts.cfg.CargoBox.NotifierSendsPerMinute,
			"retryAttempts":       opts.cfg.CargoBox.NotifierRetryAttempts,
			"userRegisteredTopic": registered,
			"statusChangedTopic":  statusChanged,
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	return r
}
