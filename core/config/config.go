// Package config holds the settings every bot process shares: Telegram
// access, webhook, logging and the per-user rate limit.
package config

// Run modes for receiving updates.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds that may bypass the rate limit.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

// TelegramConfig is the bot identity and update source.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN" validate:"required"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	// RunMode is longpoll (default, "polling" accepted) or webhook.
	RunMode                string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	LongPollTimeoutSeconds int    `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS" validate:"gte=0"`
}

// WebhookConfig is only read in webhook mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig drives core/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" validate:"omitempty,oneof=json kv text pretty"`
	// KeysOrder is a comma separated list overriding the leading keys of
	// every record.
	KeysOrder string `yaml:"keys_order"`
	// DebugSample keeps one sampled debug record out of N ("1/50", "0" off).
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`

	Dir        string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile    string `yaml:"bot_file"`
	ErrorsFile string `yaml:"errors_file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`

	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig is a per-user token bucket: one token every IntervalMS,
// at most Burst stored. IntervalMS 0 disables it.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS" validate:"gte=0"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config is the shared part of every bot configuration. Application
// configs embed it inline.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}
