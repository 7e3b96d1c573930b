package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Decode fills dst from .env, then the YAML file at path, then the process
// environment. Variables already exported win over .env.
func Decode(path string, dst any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: .env: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		mode = RunModeLongpoll
	case RunModeWebhook:
		w := cfg.Webhook
		if strings.TrimSpace(w.URL) == "" || strings.TrimSpace(w.Listen) == "" || w.Port <= 0 {
			return errors.New("config: webhook mode needs webhook.url, webhook.listen and webhook.port")
		}
	default:
		return fmt.Errorf("config: unknown telegram.run_mode %q", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = mode

	if cfg.RateLimit.Burst < 1 {
		cfg.RateLimit.Burst = 1
	}
	kinds := cfg.RateLimit.ExcludeUpdates[:0]
	for _, k := range cfg.RateLimit.ExcludeUpdates {
		k = strings.ToLower(strings.TrimSpace(k))
		switch k {
		case "":
			continue
		case UpdateCallback, UpdateMessage, UpdateInlineQuery:
			kinds = append(kinds, k)
		default:
			return fmt.Errorf("config: rate_limit.exclude_updates: unknown update kind %q", k)
		}
	}
	cfg.RateLimit.ExcludeUpdates = kinds
	return nil
}
