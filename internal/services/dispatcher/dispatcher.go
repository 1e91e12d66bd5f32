// Package dispatcher turns domain events from kafka into Telegram notifications.
// Delivery is best-effort: a message that still fails after the configured retries is
// logged, counted and committed.
package dispatcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/CargoBox/internal/broker/messages"
	"github.com/BearBump/CargoBox/internal/integrations/notifier"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/pkg/errors"
)

type Labeler interface {
	Label(status models.PackageStatus, langs ...string) string
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Consumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

// Source binds a consumer to the event type it reads.
type Source struct {
	Topic    string
	Consumer Consumer
}

type Dispatcher struct {
	n      notifier.Notifier
	labels Labeler
	rl     RateLimiter

	sendsPerMinute int64
	retry          *retryPlan
	sleep          func(ctx context.Context, d time.Duration) error

	startedAtUnixNano   int64
	lastMessageUnixNano atomic.Int64
	totalReceived       atomic.Int64
	totalDelivered      atomic.Int64
	totalSkipped        atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(n notifier.Notifier, labels Labeler, rl RateLimiter) *Dispatcher {
	return &Dispatcher{
		n: n, labels: labels, rl: rl,
		sendsPerMinute:    600,
		retry:             newRetryPlan(DefaultRetryConfig(), nil),
		sleep:             sleepCtx,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (d *Dispatcher) WithSettings(sendsPerMinute int64, retry RetryConfig) *Dispatcher {
	if sendsPerMinute > 0 {
		d.sendsPerMinute = sendsPerMinute
	}
	d.retry = newRetryPlan(retry, nil)
	return d
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
	TotalReceived  int64      `json:"totalReceived"`
	TotalDelivered int64      `json:"totalDelivered"`
	TotalSkipped   int64      `json:"totalSkipped"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (d *Dispatcher) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, d.startedAtUnixNano).UTC(),
		TotalReceived:  d.totalReceived.Load(),
		TotalDelivered: d.totalDelivered.Load(),
		TotalSkipped:   d.totalSkipped.Load(),
		TotalErrors:    d.totalErrors.Load(),
		InFlight:       d.inFlight.Load(),
	}
	if n := d.lastMessageUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastMessageAt = &t
	}
	d.lastErrorMu.Lock()
	st.LastError = d.lastError
	d.lastErrorMu.Unlock()
	return st
}

// Run consumes every source until ctx is done or one of the consumers fails.
func (d *Dispatcher) Run(ctx context.Context, sources ...Source) error {
	if len(sources) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(sources))
	for _, src := range sources {
		go func() {
			slog.Info("kafka consumer started", "topic", src.Topic)
			err := src.Consumer.Consume(runCtx, func(_ []byte, value []byte) error {
				return d.Handle(runCtx, src.Topic, value)
			})
			errCh <- errors.Wrapf(err, "consume %s", src.Topic)
		}()
	}

	first := <-errCh
	cancel()
	for i := 1; i < len(sources); i++ {
		<-errCh
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return first
}

// Handle processes one event. It returns an error only when ctx is done, so
// the consumer does not commit a message it never looked at.
func (d *Dispatcher) Handle(ctx context.Context, topic string, value []byte) error {
	d.totalReceived.Add(1)
	d.lastMessageUnixNano.Store(time.Now().UTC().UnixNano())
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	var (
		send func(ctx context.Context) error
		err  error
	)
	switch topic {
	case messages.TopicUserRegistered:
		send, err = d.registered(value)
	case messages.TopicPackageStatusChanged:
		send, err = d.statusChanged(value)
	default:
		slog.Warn("unknown topic", "topic", topic)
	}
	if err != nil {
		d.fail(err)
		slog.Error("bad event", "topic", topic, "error", err.Error())
		return nil
	}
	if send == nil {
		d.totalSkipped.Add(1)
		return nil
	}

	if err := d.deliver(ctx, send); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.fail(err)
		slog.Error("notify", "topic", topic, "error", err.Error())
		return nil
	}
	d.totalDelivered.Add(1)
	return nil
}

func (d *Dispatcher) registered(value []byte) (func(context.Context) error, error) {
	var m messages.UserRegistered
	if err := json.Unmarshal(value, &m); err != nil {
		return nil, errors.Wrap(err, "decode user.registered")
	}
	if m.TelegramID == "" {
		return nil, nil
	}
	r := notifier.Registration{
		TelegramID: m.TelegramID,
		FullName:   m.FullName,
		ClientCode: m.ClientCode,
		Phone:      m.Phone,
		PVZ:        m.PVZ,
	}
	return func(ctx context.Context) error { return d.n.NotifyRegistered(ctx, r) }, nil
}

func (d *Dispatcher) statusChanged(value []byte) (func(context.Context) error, error) {
	var m messages.PackageStatusChanged
	if err := json.Unmarshal(value, &m); err != nil {
		return nil, errors.Wrap(err, "decode package.status_changed")
	}
	if m.TelegramID == nil || *m.TelegramID == "" {
		return nil, nil
	}
	c := notifier.StatusChange{
		TelegramID:  *m.TelegramID,
		TrackNumber: m.TrackNumber,
		Status:      m.To,
		StatusLabel: m.To,
	}
	if d.labels != nil {
		c.StatusLabel = d.labels.Label(models.PackageStatus(m.To))
	}
	return func(ctx context.Context) error { return d.n.NotifyStatusChanged(ctx, c) }, nil
}

func (d *Dispatcher) deliver(ctx context.Context, send func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if werr := d.waitTurn(ctx); werr != nil {
			return werr
		}
		if err = send(ctx); err == nil {
			return nil
		}
		if attempt >= d.retry.cfg.Attempts {
			return err
		}
		slog.Warn("notify failed, retrying", "attempt", attempt, "error", err.Error())
		if serr := d.sleep(ctx, d.retry.delay(attempt)); serr != nil {
			return serr
		}
	}
}

// waitTurn keeps the bot under its per-minute send budget, shared by every replica through redis.
func (d *Dispatcher) waitTurn(ctx context.Context) error {
	if d.rl == nil || d.sendsPerMinute <= 0 {
		return nil
	}
	for {
		minuteKey := "rl:notify:" + time.Now().UTC().Format("200601021504")
		allowed, n, err := d.rl.Allow(ctx, minuteKey, d.sendsPerMinute, 70*time.Second)
		if err != nil {
			// redis недоступен: отправляем без лимита
			slog.Warn("notify rate limit", "error", err.Error())
			return nil
		}
		if allowed {
			return nil
		}
		slog.Warn("notify rate limit exceeded", "count", n)
		if err := d.sleep(ctx, time.Second); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) fail(err error) {
	d.totalErrors.Add(1)
	d.lastErrorMu.Lock()
	d.lastError = err.Error()
	d.lastErrorMu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
