package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t", RunMode: " Polling "},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback ", ""}},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"no token":       {},
		"unknown mode":   {Telegram: TelegramConfig{Token: "t", RunMode: "push"}},
		"bare webhook":   {Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}},
		"bad exclusion":  {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}},
		"negative rate":  {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{IntervalMS: -1}},
		"bad log format": {Telegram: TelegramConfig{Token: "t"}, Logging: LoggingConfig{Format: "xml"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(&cfg))
		})
	}
}

func TestWebhookMode(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t", RunMode: "WEBHOOK"},
		Webhook:  WebhookConfig{URL: "https://bot.example.com/hook", Listen: "0.0.0.0", Port: 8443},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
}
