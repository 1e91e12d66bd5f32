package fake

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BearBump/CargoBox/internal/integrations/notifier"
)

// Notifier только пишет в лог и запоминает вызовы. Для локального запуска и тестов.
type Notifier struct {
	mu         sync.Mutex
	registered []notifier.Registration
	changes    []notifier.StatusChange
	err        error
}

func New() *Notifier { return &Notifier{} }

// FailWith makes every following call return err.
func (n *Notifier) FailWith(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

func (n *Notifier) NotifyRegistered(_ context.Context, r notifier.Registration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	slog.Info("fake notify registered", "telegram_id", r.TelegramID, "client_code", r.ClientCode)
	n.registered = append(n.registered, r)
	return n.err
}

func (n *Notifier) NotifyStatusChanged(_ context.Context, c notifier.StatusChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	slog.Info("fake notify status", "telegram_id", c.TelegramID, "track", c.TrackNumber, "status", c.Status)
	n.changes = append(n.changes, c)
	return n.err
}

func (n *Notifier) Registered() []notifier.Registration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.Registration(nil), n.registered...)
}

func (n *Notifier) StatusChanges() []notifier.StatusChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.StatusChange(nil), n.changes...)
}
