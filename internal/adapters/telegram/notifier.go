package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"hermes/internal/adapters/config"
	"hermes/internal/market"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Notifier pushes signal alerts to a single Telegram chat. It is a one-way
// channel: the bot sends messages and never polls for updates.
type Notifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewNotifier creates the Telegram alert channel.
func NewNotifier(cfg config.TelegramConfig, log *logger.Logger) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, errors.Wrap(errors.ErrMissingConfig, "telegram bot token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.Wrap(errors.ErrMissingConfig, "telegram chat id is required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}

	return &Notifier{
		api:    api,
		chatID: cfg.ChatID,
		// Telegram allows ~30 msg/sec; stay well under it.
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		log:     log.With("component", "telegram"),
	}, nil
}

// SendAlert pushes a plain text alert.
func (n *Notifier) SendAlert(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "telegram rate limiter")
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return errors.Wrapf(errors.ErrExternal, "telegram send: %v", err)
	}

	n.log.Debugw("alert sent", "chars", len(text))
	return nil
}

// SendSignals formats and pushes the strongest recommendations from one
// analysis run. HOLD records are skipped: only actionable signals alert.
func (n *Notifier) SendSignals(ctx context.Context, stocks []market.StockRecord) error {
	var b strings.Builder
	for _, rec := range stocks {
		if rec.Recommendation.Label == market.LabelHold {
			continue
		}
		fmt.Fprintf(&b, "%s %s at %.2f PKR (%+.2f%%) - %s\n",
			rec.Recommendation.Label, rec.Symbol, rec.Price, rec.ChangePercent,
			rec.Recommendation.Reason)
	}
	if b.Len() == 0 {
		return nil
	}

	return n.SendAlert(ctx, "PSX signals:\n"+b.String())
}
