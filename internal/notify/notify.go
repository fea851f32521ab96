// Package notify fans an admin alert out to whichever channels are
// configured (Telegram, Slack), implementing port.Notifier.
//
// Grounded on the teacher's notification adapters
// (backend/internal/infrastructure/notification/{telegram,slack}/
// adapter.go) for the per-channel client wiring, and its fan-out
// service (backend/internal/core/notification/service.go) for the
// "attempt every configured channel, only fail if all of them failed"
// policy — generalized here from per-user channel preferences (this
// pipeline has one operator, not many users) to a flat list of
// always-on channels.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// TelegramNotifier sends admin alerts to a single fixed chat.
type TelegramNotifier struct {
	client *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot api: %w", err)
	}
	return &TelegramNotifier{
		client: bot,
		chatID: chatID,
		logger: logger.With().Str("component", "notify.telegram").Logger(),
	}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, level, message string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	full := fmt.Sprintf("*%s*\n\n%s", escapeMarkdown(strings.ToUpper(level)), escapeMarkdown(message))
	msg := tgbotapi.NewMessage(n.chatID, full)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.client.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("failed to send telegram alert")
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func escapeMarkdown(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '_', '*', '`', '[':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SlackNotifier sends admin alerts to a single fixed channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  zerolog.Logger
}

func NewSlackNotifier(token, channel string, logger zerolog.Logger) (*SlackNotifier, error) {
	client := slack.New(token)
	if _, err := client.AuthTest(); err != nil {
		return nil, fmt.Errorf("authenticate slack client: %w", err)
	}
	return &SlackNotifier{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "notify.slack").Logger(),
	}, nil
}

func (n *SlackNotifier) Notify(ctx context.Context, level, message string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	full := fmt.Sprintf("*%s*\n\n%s", strings.ToUpper(level), message)
	options := []slack.MsgOption{slack.MsgOptionText(full, false)}
	if _, _, err := n.client.PostMessageContext(ctx, n.channel, options...); err != nil {
		n.logger.Error().Err(err).Msg("failed to send slack alert")
		return fmt.Errorf("send slack message: %w", err)
	}
	return nil
}

// FanOut dispatches a Notify call to every configured channel in
// parallel-free sequence (alert volume is low enough this never
// matters) and only reports failure when every channel failed.
type FanOut struct {
	channels []port.Notifier
	logger   zerolog.Logger
}

func NewFanOut(logger zerolog.Logger, channels ...port.Notifier) *FanOut {
	return &FanOut{channels: channels, logger: logger.With().Str("component", "notify.fanout").Logger()}
}

func (f *FanOut) Notify(ctx context.Context, level, message string) error {
	if len(f.channels) == 0 {
		return nil
	}
	var errs []string
	succeeded := 0
	for _, ch := range f.channels {
		if err := ch.Notify(ctx, level, message); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		succeeded++
	}
	if succeeded == 0 {
		return fmt.Errorf("all notification channels failed: %s", strings.Join(errs, "; "))
	}
	if len(errs) > 0 {
		f.logger.Warn().Strs("errors", errs).Msg("some notification channels failed")
	}
	return nil
}

// Noop discards every alert, used when neither Telegram nor Slack is
// configured so callers never need a nil check.
type Noop struct{}

func (Noop) Notify(ctx context.Context, level, message string) error { return nil }

var (
	_ port.Notifier = (*TelegramNotifier)(nil)
	_ port.Notifier = (*SlackNotifier)(nil)
	_ port.Notifier = (*FanOut)(nil)
	_ port.Notifier = Noop{}
)
