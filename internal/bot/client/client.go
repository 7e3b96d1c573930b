// Package client wires the customer bot: catalog browsing, registration,
// login, profile and purchase history.
package client

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/servicebot/core/telegram"
	"github.com/m3rciful/servicebot/core/telegram/callbacks"
	"github.com/m3rciful/servicebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
	"github.com/m3rciful/servicebot/core/telegram/middleware"
	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/authcache"
	"github.com/m3rciful/servicebot/internal/bot"
	"github.com/m3rciful/servicebot/internal/catalog"
	"github.com/m3rciful/servicebot/internal/dialog"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/present"
	"github.com/m3rciful/servicebot/internal/tokens"
)

// API is the upstream surface the customer bot calls.
type API interface {
	catalog.API
	dialog.Authenticator
	Logout(ctx context.Context) error
	History(ctx context.Context, phone string) ([]model.Order, error)
}

// Options wire a Bot. Cleaner and Observer may be nil.
type Options struct {
	API      API
	Store    *state.Store
	Cache    authcache.Cache
	Cleaner  dialog.Cleaner
	Observer dialog.Observer
}

// Bot holds the customer handlers.
type Bot struct {
	api     API
	store   *state.Store
	cache   authcache.Cache
	dialogs *dialog.Engine
	browser *catalog.Browser
}

// New builds the customer bot.
func New(opts Options) *Bot {
	return &Bot{
		api:   opts.API,
		store: opts.Store,
		cache: opts.Cache,
		dialogs: dialog.New(dialog.Options{
			Store:    opts.Store,
			Auth:     opts.API,
			Cache:    opts.Cache,
			Cleaner:  opts.Cleaner,
			Observer: opts.Observer,
		}),
		browser: catalog.New(opts.API, opts.Store),
	}
}

var datasets = []string{tokens.Products, tokens.Services, tokens.Categories, tokens.CategoryProducts}

// Register binds commands, callbacks and dialog states.
func (b *Bot) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{Handler: b.onStart, Description: "Запустить бота / вернуться в главное меню"})
	reg.RegisterCommand("/help", commands.Command{Handler: b.onHelp, Description: "Получить помощь по использованию бота"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: b.onCancel, Description: "Прервать регистрацию или вход"})

	for _, st := range b.dialogs.States() {
		b.store.RegisterHandler(st, "dialog."+string(st), b.onDialogInput)
	}

	onChoice := middleware.State(b.store, string(dialog.StateRegLoginChoice))(b.onDialogInput)
	exact := map[string]tele.HandlerFunc{
		tokens.MainMenu:          b.onMainMenu,
		tokens.About:             b.onAbout,
		tokens.CatalogProducts:   b.onList(tokens.Products),
		tokens.CatalogServices:   b.onList(tokens.Services),
		tokens.CatalogCategories: b.onList(tokens.Categories),
		tokens.Profile:           b.onProfile,
		tokens.Login:             b.onLogin,
		tokens.Register:          b.onRegister,
		tokens.Logout:            b.onLogout,
		tokens.Cancel:            b.onCancel,
		tokens.OrderHistory:      b.onHistory,
		tokens.UseEmailLogin:     onChoice,
		tokens.ManualLogin:       onChoice,
	}
	prefixes := map[string]tele.HandlerFunc{
		tokens.EntityPrefix(tokens.Product):     b.onProduct,
		tokens.EntityPrefix(tokens.Service):     b.onService,
		tokens.EntityPrefix(tokens.Category):    b.onCategory,
		tokens.EntityPrefix(tokens.AddToCart):   alert(present.CartNotReady),
		tokens.EntityPrefix(tokens.BookService): alert(present.BookingNotReady),
	}
	for _, ds := range datasets {
		exact[tokens.Back(ds)] = b.onBack(ds)
		exact[tokens.CurrentPage(ds)] = noop
		prefixes[tokens.PagePrefix(ds)] = b.onPage(ds)
	}

	for key, h := range exact {
		if err := reg.RegisterCallback(key, h); err != nil {
			return fmt.Errorf("client: %w", err)
		}
	}
	for prefix, h := range prefixes {
		if err := reg.RegisterPrefix(prefix, h); err != nil {
			return fmt.Errorf("client: %w", err)
		}
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	return nil
}

// UnknownText answers free text outside a dialog.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return bot.Send(c, present.UnknownMessage(bot.FirstName(c)))
	}
}

// UnknownDocument answers files outside a dialog.
func (b *Bot) UnknownDocument() tele.HandlerFunc { return b.UnknownText() }

// UnknownCallback answers buttons nobody handles.
func (b *Bot) UnknownCallback() tele.HandlerFunc { return alert(present.NotReady) }

func noop(tele.Context) error { return nil }

func alert(text string) tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.Alert(c, text) }
}

func (b *Bot) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key := state.KeyFrom(c)
	if b.dialogs.Active(key) {
		b.dialogs.Cancel(ctx, key)
	}
	return bot.Send(c, present.MainMenu(bot.FirstName(c)))
}

func (b *Bot) onHelp(c tele.Context) error { return bot.Send(c, present.Help()) }

func (b *Bot) onAbout(c tele.Context) error { return bot.Show(c, present.About()) }

func (b *Bot) onMainMenu(c tele.Context) error {
	return bot.Show(c, present.MainMenu(bot.FirstName(c)))
}

func (b *Bot) onCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return bot.Reply(c, b.dialogs, b.dialogs.Cancel(ctx, state.KeyFrom(c)))
}

func (b *Bot) onRegister(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return bot.Reply(c, b.dialogs, b.dialogs.StartRegistration(ctx, state.KeyFrom(c)))
}

func (b *Bot) onLogin(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return bot.Reply(c, b.dialogs, b.dialogs.StartLogin(ctx, state.KeyFrom(c)))
}

func (b *Bot) onDialogInput(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return bot.Reply(c, b.dialogs, b.dialogs.Handle(ctx, state.KeyFrom(c), bot.Input(c)))
}

var loading = map[string]string{
	tokens.Products:   "товары",
	tokens.Services:   "услуги",
	tokens.Categories: "категории",
}

func (b *Bot) onList(dataset string) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		key := state.KeyFrom(c)
		if err := bot.Show(c, present.Loading(loading[dataset])); err != nil {
			return err
		}
		var (
			l   catalog.Listing
			err error
		)
		switch dataset {
		case tokens.Services:
			l, err = b.browser.Services(ctx, key)
		case tokens.Categories:
			l, err = b.browser.Categories(ctx, key)
		default:
			l, err = b.browser.Products(ctx, key)
		}
		return b.showListing(c, l, err)
	}
}

func (b *Bot) onPage(dataset string) tele.HandlerFunc {
	return func(c tele.Context) error {
		n, ok := tokens.ParsePage(dataset, callbacks.Key(c))
		if !ok {
			return nil
		}
		ctx := tghelpers.BuildContext(c)
		l, err := b.browser.Page(ctx, state.KeyFrom(c), dataset, n)
		return b.showListing(c, l, err)
	}
}

func (b *Bot) onBack(dataset string) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		l, err := b.browser.Back(ctx, state.KeyFrom(c), dataset)
		return b.showListing(c, l, err)
	}
}

func (b *Bot) onCategory(c tele.Context) error {
	id, ok := tokens.ParseEntity(tokens.Category, callbacks.Key(c))
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	l, err := b.browser.CategoryProducts(ctx, state.KeyFrom(c), id)
	return b.showListing(c, l, err)
}

func (b *Bot) showListing(c tele.Context, l catalog.Listing, err error) error {
	if err != nil {
		bot.Warn(tghelpers.BuildContext(c), "catalog.list", err)
		return bot.Show(c, present.CatalogError(err))
	}
	return bot.Show(c, present.Listing(l))
}

func (b *Bot) onProduct(c tele.Context) error {
	id, ok := tokens.ParseEntity(tokens.Product, callbacks.Key(c))
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	d, err := b.browser.Product(ctx, state.KeyFrom(c), id)
	if err != nil {
		bot.Warn(ctx, "catalog.product", err)
		return bot.Show(c, present.ProductError(d, err))
	}
	return bot.Show(c, present.ProductDetail(d))
}

func (b *Bot) onService(c tele.Context) error {
	id, ok := tokens.ParseEntity(tokens.Service, callbacks.Key(c))
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	d, err := b.browser.Service(ctx, state.KeyFrom(c), id)
	if err != nil {
		bot.Warn(ctx, "catalog.service", err)
		return bot.Show(c, present.ServiceError(err))
	}
	return bot.Show(c, present.ServiceDetail(d))
}

func (b *Bot) onProfile(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key := state.KeyFrom(c)
	name := bot.FirstName(c)
	if u, ok := b.dialogs.Profile(key); ok && u.Name != "" {
		name = u.Name
	}
	return bot.Show(c, present.Profile(name, authcache.IsAuthenticated(ctx, b.cache, key.UserID)))
}

func (b *Bot) onLogout(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key := state.KeyFrom(c)
	if err := b.api.Logout(ctx); err != nil {
		bot.Warn(ctx, "auth.logout", err)
		return bot.Show(c, present.LogoutFailed())
	}
	if err := b.dialogs.Logout(ctx, key); err != nil {
		bot.Warn(ctx, "auth.logout", err)
		return bot.Show(c, present.LogoutFailed())
	}
	b.browser.Forget(key)
	return bot.Show(c, present.LoggedOut())
}

func (b *Bot) onHistory(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key := state.KeyFrom(c)
	u, ok := b.dialogs.Profile(key)
	if !ok || !authcache.IsAuthenticated(ctx, b.cache, key.UserID) {
		return bot.Show(c, present.HistoryError(apperr.Lookup("history", "no profile in session")))
	}
	orders, err := b.api.History(ctx, u.Phone)
	if err != nil {
		bot.Warn(ctx, "history", err)
		return bot.Show(c, present.HistoryError(err))
	}
	return bot.Show(c, present.History(orders))
}
