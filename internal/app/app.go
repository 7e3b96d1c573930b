// Package app assembles a bot process from its configuration: logger,
// optional database, upstream client, session store, auth cache, metrics and
// the ops listener.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/bootstrap"
	corecmd "github.com/m3rciful/servicebot/core/cmd"
	"github.com/m3rciful/servicebot/core/logger"
	tg "github.com/m3rciful/servicebot/core/telegram"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
	"github.com/m3rciful/servicebot/core/telegram/router"
	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/authcache"
	"github.com/m3rciful/servicebot/internal/bot"
	"github.com/m3rciful/servicebot/internal/config"
	"github.com/m3rciful/servicebot/internal/metrics"
	"github.com/m3rciful/servicebot/internal/ops"
	"github.com/m3rciful/servicebot/internal/upstream"
	"github.com/m3rciful/servicebot/migrations"
)

const (
	component   = "app"
	textLimited = "⏳ Слишком много запросов. Подождите немного."
)

// Handlers is what a bot flavour contributes: its routes and fallbacks.
type Handlers interface {
	Register(reg *tg.Registry) error
	router.Fallbacks
}

// Deps are the shared services handed to a bot flavour.
type Deps struct {
	Config  *config.AppConfig
	API     *upstream.Client
	Store   *state.Store
	Cache   authcache.Cache
	Cleaner *bot.Cleaner
	Metrics *metrics.Metrics
}

// Builder creates the handlers of one flavour.
type Builder func(Deps) Handlers

// App is a bootstrapped bot process.
type App struct {
	cfg      *config.AppConfig
	infra    *bootstrap.Result
	metrics  *metrics.Metrics
	store    *state.Store
	api      *upstream.Client
	closer   io.Closer
	cleaner  *bot.Cleaner
	ops      *ops.Server
	handlers Handlers
}

// Bootstrap builds the shared services for namespace ("client" or "staff")
// and hands them to build.
func Bootstrap(ctx context.Context, cfg *config.AppConfig, namespace string, build Builder) (*App, error) {
	opts := bootstrap.Options{Config: &cfg.Config, Migrations: migrations.FS}
	if cfg.UsesDatabase() {
		db := cfg.Database
		opts.Database = &db
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	store := state.NewStore(cfg.Session.StoreOptions(func(state.Key, state.State) { m.SessionExpired() }))
	api := upstream.New(cfg.Upstream.Client(), upstream.WithObserver(m))
	cache, closer, err := authcache.Open(ctx, cfg.AuthCache, namespace, infra.DB)
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("app: auth cache: %w", err)
	}

	a := &App{
		cfg:     cfg,
		infra:   infra,
		metrics: m,
		store:   store,
		api:     api,
		closer:  closer,
		cleaner: bot.NewCleaner(m),
		ops:     ops.NewServer(api, m.Registry),
	}
	a.handlers = build(Deps{
		Config:  cfg,
		API:     api,
		Store:   store,
		Cache:   cache,
		Cleaner: a.cleaner,
		Metrics: m,
	})
	logger.Info(ctx, component, "app.bootstrap",
		slog.String("namespace", namespace),
		slog.String("auth_cache", cfg.AuthCache.Backend),
		slog.Bool("database", infra.DB != nil),
		slog.Bool("ops", cfg.Ops.Listen != ""),
	)
	return a, nil
}

// TelegramRunOptions wires registry, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}
	router.SetObserver(a.metrics.HandlerDone)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: a.cfg.Telegram.AdminID})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{NotFound: a.handlers.UnknownCallback()}))
	routes = append(routes, router.TextRoutes(a.store, reg, router.TextOptions{
		UnknownText:     a.handlers.UnknownText(),
		UnknownDocument: a.handlers.UnknownDocument(),
	})...)

	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, a.onLimited),
		Routes:      routes,
		Lanes:       a.cfg.Lanes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.cleaner.Attach(rt.Bot)
			a.ops.Start(ctx, a.cfg.Ops.Listen)
			return nil
		},
		OnStop: func(ctx context.Context, _ tg.Runtime) error {
			return a.Close(ctx)
		},
	}, nil
}

// Close releases everything Bootstrap opened.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(
		a.ops.Shutdown(ctx),
		a.closer.Close(),
		a.infra.Close(),
	)
}

func (a *App) onLimited(c tele.Context) error {
	a.metrics.RateLimited()
	if c.Callback() != nil {
		return tghelpers.Toast(c, textLimited)
	}
	return nil
}

// Main runs a bot flavour with the shared command runner.
func Main(defaultConfig, namespace string, build Builder) error {
	return corecmd.Run(corecmd.Options{
		DefaultConfigPath: defaultConfig,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			appCfg, ok := cfg.(*config.AppConfig)
			if !ok {
				return nil, fmt.Errorf("app: unexpected config type %T", cfg)
			}
			return Bootstrap(ctx, appCfg, namespace, build)
		},
	})
}
