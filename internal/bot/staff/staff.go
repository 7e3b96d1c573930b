// Package staff wires the staff bot: staff login and the order status
// workflow.
package staff

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
	"github.com/m3rciful/servicebot/internal/authcache"
	"github.com/m3rciful/servicebot/internal/bot"
	"github.com/m3rciful/servicebot/internal/dialog"
	"github.com/m3rciful/servicebot/internal/orders"
	"github.com/m3rciful/servicebot/internal/present"
	"github.com/m3rciful/servicebot/internal/tokens"
)

// API is the upstream surface the staff bot calls.
type API interface {
	orders.API
	dialog.Authenticator
}

// Options wire a Bot. AdminID passes every access check.
type Options struct {
	API       API
	Store     *state.Store
	Cache     authcache.Cache
	Cleaner   dialog.Cleaner
	Observer  dialog.Observer
	OrderType string
	AdminID   int64
}

// Bot holds the staff handlers.
type Bot struct {
	store    *state.Store
	cache    authcache.Cache
	adminID  int64
	dialogs  *dialog.Engine
	workflow *orders.Workflow
}

// New builds the staff bot.
func New(opts Options) *Bot {
	return &Bot{
		store:   opts.Store,
		cache:   opts.Cache,
		adminID: opts.AdminID,
		dialogs: dialog.New(dialog.Options{
			Store:    opts.Store,
			Auth:     opts.API,
			Cache:    opts.Cache,
			Cleaner:  opts.Cleaner,
			Observer: opts.Observer,
		}),
		workflow: orders.New(opts.API, opts.Store, opts.OrderType, present.OrderText),
	}
}

// Register binds commands, callbacks and the login dialog.
func (b *Bot) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{Handler: b.onStart, Description: "Запустить бота / вернуться в главное меню"})
	reg.RegisterCommand("/help", commands.Command{Handler: b.onHelp, Description: "Получить помощь по использованию бота"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: b.onCancel, Description: "Прервать вход", Hidden: true})

	for _, st := range []state.State{dialog.StateLogin, dialog.StateLoginPassword} {
		b.store.RegisterHandler(st, "dialog."+string(st), b.onDialogInput)
	}

	exact := map[string]tele.HandlerFunc{
		tokens.ShowOrders:                 b.protect(b.onOrders),
		tokens.CurrentPage(tokens.Orders): noop,
		tokens.StaffMenu:                  b.protect(b.onMenu),
		tokens.Help:                       b.onHelp,
		tokens.Cancel:                     b.onCancel,
	}
	prefixes := map[string]tele.HandlerFunc{
		tokens.PagePrefix(tokens.Orders):  b.protect(b.onPage),
		tokens.EntityPrefix(tokens.Order): b.protect(b.onOrder),
		tokens.ChangeStatus + "_":         b.protect(b.onChangeStatus),
		tokens.SetStatus + "_":            b.protect(b.onSetStatus),
	}
	for key, h := range exact {
		if err := reg.RegisterCallback(key, h); err != nil {
			return fmt.Errorf("staff: %w", err)
		}
	}
	for prefix, h := range prefixes {
		if err := reg.RegisterPrefix(prefix, h); err != nil {
			return fmt.Errorf("staff: %w", err)
		}
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	return nil
}

// UnknownText points free text back to the menu.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error { return bot.Send(c, present.StaffHelp()) }
}

// UnknownDocument ignores files.
func (b *Bot) UnknownDocument() tele.HandlerFunc { return noop }

// UnknownCallback answers buttons nobody handles.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.Alert(c, present.NotReady) }
}

// Authorized reports whether userID may use the order workflow.
func (b *Bot) Authorized(ctx context.Context, userID int64) bool {
	return authcache.IsAuthenticated(ctx, b.cache, userID)
}

func (b *Bot) protect(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RequireAuth(middleware.AccessOptions{
		AdminID: b.adminID,
		Auth:    b,
		OnReject: func(c tele.Context) error {
			if c.Callback() != nil {
				return tghelpers.Alert(c, present.StaffUnauthorized())
			}
			return tghelpers.SendHTML(c, present.StaffUnauthorized())
		},
	}, h)
}

func noop(tele.Context) error { return nil }

func (b *Bot) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key := state.KeyFrom(c)
	if b.dialogs.Active(key) {
		b.dialogs.Cancel(ctx, key)
	}
	if err := bot.Send(c, present.StaffWelcome()); err != nil {
		return err
	}
	return bot.Reply(c, b.dialogs, b.dialogs.StartLogin(ctx, key))
}

func (b *Bot) onHelp(c tele.Context) error { return bot.Show(c, present.StaffHelp()) }

func (b *Bot) onMenu(c tele.Context) error { return bot.Show(c, present.StaffMenu()) }

func (b *Bot) onCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key := state.KeyFrom(c)
	r := b.dialogs.Cancel(ctx, key)
	return bot.Send(c, present.StaffCancelled(r.Text, b.Authorized(ctx, key.UserID)))
}

func (b *Bot) onDialogInput(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	r := b.dialogs.Handle(ctx, state.KeyFrom(c), bot.Input(c))
	switch {
	case r.Outcome == dialog.OutcomeSucceeded:
		return bot.Send(c, present.StaffLoggedIn(r.User.Username))
	case r.Outcome == dialog.OutcomeFailed:
		return bot.Send(c, present.StaffLoginFailed(r.Text))
	}
	return bot.Reply(c, b.dialogs, r)
}

func (b *Bot) onOrders(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	l, err := b.workflow.List(ctx, state.KeyFrom(c))
	if err != nil {
		return bot.Send(c, present.OrderError(err))
	}
	return bot.Send(c, present.OrderList(l))
}

func (b *Bot) onPage(c tele.Context) error {
	n, ok := tokens.ParsePage(tokens.Orders, callbacks.Key(c))
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	l, err := b.workflow.Page(ctx, state.KeyFrom(c), n)
	if err != nil {
		return bot.Send(c, present.OrderError(err))
	}
	return bot.Show(c, present.OrderList(l))
}

func (b *Bot) onOrder(c tele.Context) error {
	number, ok := tokens.ParseEntity(tokens.Order, callbacks.Key(c))
	if !ok {
		return nil
	}
	d, err := b.workflow.Detail(tghelpers.BuildContext(c), number)
	if err != nil {
		return bot.Send(c, present.OrderError(err))
	}
	return bot.Send(c, present.OrderDetail(d))
}

func (b *Bot) onChangeStatus(c tele.Context) error {
	number, ok := callbacks.Suffix(c, tokens.ChangeStatus+"_")
	if !ok {
		return nil
	}
	ch, err := b.workflow.StatusChoices(tghelpers.BuildContext(c), number)
	if err != nil {
		return bot.Send(c, present.OrderError(err))
	}
	return bot.Send(c, present.StatusPicker(ch))
}

func (b *Bot) onSetStatus(c tele.Context) error {
	number, code, ok := tokens.ParseStatusSet(callbacks.Key(c))
	if !ok {
		return tghelpers.Alert(c, present.NotReady)
	}
	res, err := b.workflow.SetStatus(tghelpers.BuildContext(c), number, code)
	if err != nil {
		return bot.Send(c, present.OrderError(err))
	}
	_ = tghelpers.Toast(c, present.StatusToast(res))
	return bot.Send(c, present.StatusChanged(res))
}
