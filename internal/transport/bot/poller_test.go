package bot

import (
	"testing"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v4"
)

func TestNewPoller_Polling(t *testing.T) {
	t.Parallel()

	p := newPoller(config.TelegramConfig{Mode: config.ModePolling, LongPollTimeout: 10 * time.Second})

	lp, ok := p.(*telebot.LongPoller)
	require.True(t, ok, "expected LongPoller, got %T", p)
	require.Equal(t, 10*time.Second, lp.Timeout)
}

func TestNewPoller_Webhook(t *testing.T) {
	t.Parallel()

	p := newPoller(config.TelegramConfig{
		Mode:          config.ModeWebhook,
		Token:         "123:abc",
		PublicURL:     "https://bot.example.com/",
		WebhookListen: ":8443",
		WebhookSecret: "s3cret",
	})

	wh, ok := p.(*telebot.Webhook)
	require.True(t, ok, "expected Webhook, got %T", p)
	require.Equal(t, ":8443", wh.Listen)
	require.Equal(t, "s3cret", wh.SecretToken)
	require.NotNil(t, wh.Endpoint)
	require.Equal(t, "https://bot.example.com/bot123:abc", wh.Endpoint.PublicURL)
}
