package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
	"gopkg.in/telebot.v4"
)

// Bot - Telegram-транспорт поверх Handlers
type Bot struct {
	bot      *telebot.Bot
	handlers *Handlers
	logger   *slog.Logger
	mode     string
}

// New создаёт бота в режиме long polling или webhook.
// Все текстовые сообщения идут через свой разбор команд.
func New(cfg config.TelegramConfig, handlers *Handlers, logger *slog.Logger) (*Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: newPoller(cfg),
		OnError: func(err error, c telebot.Context) {
			attrs := []any{slog.String("error", err.Error())}
			if c != nil && c.Chat() != nil {
				attrs = append(attrs, slog.Int64("chat_id", c.Chat().ID))
			}
			logger.Error("bot: update failed", attrs...)
		},
	})
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		bot:      b,
		handlers: handlers,
		logger:   logger,
		mode:     cfg.Mode,
	}

	// команды не регистрируются в telebot: их разбирает command.Parse
	b.Handle(telebot.OnText, bot.onText)
	return bot, nil
}

func newPoller(cfg config.TelegramConfig) telebot.Poller {
	if cfg.Mode != config.ModeWebhook {
		return &telebot.LongPoller{Timeout: cfg.LongPollTimeout}
	}
	return &telebot.Webhook{
		Listen:      cfg.WebhookListen,
		SecretToken: cfg.WebhookSecret,
		Endpoint: &telebot.WebhookEndpoint{
			PublicURL: webhookURL(cfg.PublicURL, cfg.Token),
		},
	}
}

// webhookURL - public_url + /bot<token>
func webhookURL(publicURL, token string) string {
	return strings.TrimRight(publicURL, "/") + "/bot" + token
}

func (b *Bot) onText(c telebot.Context) error {
	return b.handlers.Dispatch(context.Background(), telebotReplier{c: c}, c.Text())
}

// Start запускает получение апдейтов в отдельной горутине
func (b *Bot) Start(_ context.Context) {
	b.logger.Info("bot: started",
		slog.String("username", b.bot.Me.Username),
		slog.String("mode", b.mode),
	)
	go b.bot.Start()
}

// Stop останавливает бота
func (b *Bot) Stop() {
	b.bot.Stop()
}

type telebotReplier struct {
	c telebot.Context
}

func (r telebotReplier) Reply(text string) error {
	return r.c.Send(text)
}

func (r telebotReplier) ReplyWithPhoto(url string) error {
	return r.c.Send(&telebot.Photo{File: telebot.FromURL(url)})
}
