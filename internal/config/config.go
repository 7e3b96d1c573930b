// Package config holds the application configuration shared by both bots.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	coreconfig "github.com/m3rciful/servicebot/core/config"
	coredatabase "github.com/m3rciful/servicebot/core/database"
	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/authcache"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/upstream"
)

const (
	defaultTimeoutSeconds = 10
	defaultTTLMinutes     = 30
	defaultCleanupMinutes = 5
	defaultLanes          = 8
)

// UpstreamConfig points at the catalog, auth and orders API.
type UpstreamConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"API_BASE_URL" validate:"required,url"`
	Username       string `yaml:"username" envconfig:"API_USERNAME"`
	Password       string `yaml:"password" envconfig:"API_PASSWORD"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"API_TIMEOUT_SECONDS" validate:"gte=0"`
}

// Client returns the upstream client settings.
func (u UpstreamConfig) Client() upstream.Config {
	return upstream.Config{
		BaseURL:  u.BaseURL,
		Username: u.Username,
		Password: u.Password,
		Timeout:  time.Duration(u.TimeoutSeconds) * time.Second,
	}
}

// SessionConfig controls conversation expiry.
type SessionConfig struct {
	TTLMinutes     int `yaml:"ttl_minutes" envconfig:"SESSION_TTL_MINUTES" validate:"gte=0"`
	CleanupMinutes int `yaml:"cleanup_minutes" envconfig:"SESSION_CLEANUP_MINUTES" validate:"gte=0"`
}

// StoreOptions returns the session store settings. onExpired may be nil.
func (s SessionConfig) StoreOptions(onExpired func(state.Key, state.State)) state.Options {
	return state.Options{
		TTL:       time.Duration(s.TTLMinutes) * time.Minute,
		Cleanup:   time.Duration(s.CleanupMinutes) * time.Minute,
		OnExpired: onExpired,
	}
}

// OpsConfig configures the health and metrics listener. An empty Listen
// disables it.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN" validate:"omitempty,hostname_port"`
}

// StaffConfig selects the orders served by the staff bot.
type StaffConfig struct {
	OrderType string `yaml:"order_type" envconfig:"STAFF_ORDER_TYPE"`
}

// AppConfig is the full configuration of one bot process.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`

	Upstream  UpstreamConfig      `yaml:"upstream"`
	Session   SessionConfig       `yaml:"session"`
	AuthCache authcache.Config    `yaml:"auth_cache"`
	Database  coredatabase.Config `yaml:"database"`
	Ops       OpsConfig           `yaml:"ops"`
	Staff     StaffConfig         `yaml:"staff"`
	// Lanes is the number of update workers.
	Lanes int `yaml:"lanes" envconfig:"TELEGRAM_LANES" validate:"gte=0"`
}

// CoreConfig exposes the embedded core section to the runner.
func (c *AppConfig) CoreConfig() *coreconfig.Config { return &c.Config }

// UsesDatabase reports whether a postgres connection is needed.
func (c *AppConfig) UsesDatabase() bool {
	return strings.EqualFold(strings.TrimSpace(c.AuthCache.Backend), authcache.BackendPostgres)
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Upstream.TimeoutSeconds == 0 {
		cfg.Upstream.TimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = defaultTTLMinutes
	}
	if cfg.Session.CleanupMinutes == 0 {
		cfg.Session.CleanupMinutes = defaultCleanupMinutes
	}
	if cfg.Lanes == 0 {
		cfg.Lanes = defaultLanes
	}

	switch strings.TrimSpace(cfg.Staff.OrderType) {
	case "":
		cfg.Staff.OrderType = model.OrderKindServiceBay
	case model.OrderKindCustomer, model.OrderKindServiceBay:
		cfg.Staff.OrderType = strings.TrimSpace(cfg.Staff.OrderType)
	default:
		return fmt.Errorf("invalid staff.order_type %q; allowed: %s, %s",
			cfg.Staff.OrderType, model.OrderKindCustomer, model.OrderKindServiceBay)
	}

	if cfg.UsesDatabase() && strings.TrimSpace(cfg.Database.Host) == "" {
		return fmt.Errorf("database.host is required when auth_cache.backend is postgres")
	}
	return nil
}
