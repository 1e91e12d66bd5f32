package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/BearBump/CargoBox/internal/integrations/notifier"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/pkg/errors"
)

// Client sends direct messages through the Bot API instead of the bot service.
type Client struct {
	bot *telego.Bot
}

// New validates the token format; it does not call the Bot API.
func New(token string, opts ...telego.BotOption) (*Client, error) {
	opts = append([]telego.BotOption{telego.WithDiscardLogger()}, opts...)
	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	return &Client{bot: bot}, nil
}

var pvzNames = map[string]string{
	"nariman":   "Нариман",
	"zhiydalik": "Жийдалик",
	"dostuk":    "Достук",
}

func (c *Client) NotifyRegistered(ctx context.Context, r notifier.Registration) error {
	pvz := pvzNames[r.PVZ]
	if pvz == "" {
		pvz = r.PVZ
	}
	text := fmt.Sprintf(
		"Регистрация завершена!\n\nФИО: %s\nКод клиента: %s\nТелефон: %s\nПВЗ: %s",
		r.FullName, r.ClientCode, r.Phone, pvz,
	)
	return c.send(ctx, r.TelegramID, text)
}

func (c *Client) NotifyStatusChanged(ctx context.Context, s notifier.StatusChange) error {
	label := s.StatusLabel
	if label == "" {
		label = s.Status
	}
	return c.send(ctx, s.TelegramID, fmt.Sprintf("Посылка %s: %s", s.TrackNumber, label))
}

func (c *Client) send(ctx context.Context, telegramID, text string) error {
	chatID, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "bad telegram id %q", telegramID)
	}
	_, err = c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		return errors.Wrap(err, "telegram send")
	}
	return nil
}
