// Package dialog drives the registration and login conversations.
//
// Every dialog is a fixed sequence of states held in the session store.
// Each state has one validator and one success transition; invalid input
// keeps the state and re-prompts with a warning. The last step submits the
// collected fields upstream, and on success the prompts tracked during the
// dialog are deleted once.
package dialog

import (
	"context"
	"log/slog"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/authcache"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/upstream"
)

const component = "dialog"

// Flows.
const (
	FlowRegister = "register"
	FlowLogin    = "login"
)

// Dialog states.
const (
	StateRegName        state.State = "register.name"
	StateRegPhone       state.State = "register.phone"
	StateRegEmail       state.State = "register.email"
	StateRegLoginChoice state.State = "register.login_choice"
	StateRegManualLogin state.State = "register.manual_login"
	StateRegPassword    state.State = "register.password"
	StateLogin          state.State = "login.login"
	StateLoginPassword  state.State = "login.password"
)

// Form field keys.
const (
	FieldName           = "name"
	FieldPhone          = "phone"
	FieldFormattedPhone = "formatted_phone"
	FieldEmail          = "email"
	FieldLogin          = "login"
	FieldPassword       = "password"
)

// Login choices offered after the email step.
const (
	ChoiceEmail  = "use_email_as_login"
	ChoiceManual = "manual_login"
)

// ProfileKey is the session temp key holding the user of a successful login.
const ProfileKey = "profile"

// Keyboard names the markup a reply needs. The messaging layer maps it to
// real buttons.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardCancel
	KeyboardContact
	KeyboardLoginChoice
	KeyboardRemove
	KeyboardMainMenu
	KeyboardAuthMenu
)

// Outcome classifies a reply.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomePrompt    Outcome = "prompt"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Input is one user action inside a dialog.
type Input struct {
	Text string
	// Contact carries the phone of a shared contact.
	Contact string
	// Choice carries a button token.
	Choice string
	// MessageID is the id of the user's message, tracked for deletion.
	MessageID int
}

// Reply tells the messaging layer what to show.
type Reply struct {
	Flow     string
	Outcome  Outcome
	Text     string
	Keyboard Keyboard
	// Track asks the caller to report the id of the sent message back
	// through Engine.Track.
	Track bool
	// User is set after a successful login.
	User model.User
}

// Done reports whether the dialog reached its terminal state.
func (r Reply) Done() bool {
	switch r.Outcome {
	case OutcomeSucceeded, OutcomeFailed, OutcomeCancelled:
		return true
	}
	return false
}

// Authenticator is the part of the auth API the dialogs call.
type Authenticator interface {
	Login(ctx context.Context, login, password string) (model.User, error)
	Register(ctx context.Context, r upstream.Registration) error
}

// Cleaner deletes tracked messages. Implementations are best effort and
// never fail the caller.
type Cleaner interface {
	Delete(ctx context.Context, key state.Key, ids []int)
}

// CleanerFunc adapts a function to Cleaner.
type CleanerFunc func(ctx context.Context, key state.Key, ids []int)

// Delete implements Cleaner.
func (f CleanerFunc) Delete(ctx context.Context, key state.Key, ids []int) { f(ctx, key, ids) }

// Observer receives one sample per handled step.
type Observer interface {
	DialogStep(flow, state, result string)
}

// Options wire an Engine.
type Options struct {
	Store    *state.Store
	Auth     Authenticator
	Cache    authcache.Cache
	Cleaner  Cleaner
	Observer Observer
}

// Engine runs dialogs for one bot.
type Engine struct {
	store   *state.Store
	auth    Authenticator
	cache   authcache.Cache
	cleaner Cleaner
	obs     Observer
	steps   map[state.State]step
}

// New builds an Engine. Store, Auth and Cache are required.
func New(opts Options) *Engine {
	e := &Engine{
		store:   opts.Store,
		auth:    opts.Auth,
		cache:   opts.Cache,
		cleaner: opts.Cleaner,
		obs:     opts.Observer,
	}
	e.steps = e.table()
	return e
}

// States lists every state the engine handles.
func (e *Engine) States() []state.State {
	return []state.State{
		StateRegName, StateRegPhone, StateRegEmail, StateRegLoginChoice,
		StateRegManualLogin, StateRegPassword, StateLogin, StateLoginPassword,
	}
}

// Active reports whether key is inside one of the engine's dialogs.
func (e *Engine) Active(key state.Key) bool {
	_, ok := e.steps[e.store.State(key)]
	return ok
}

// Track records ids of messages sent for the current dialog.
func (e *Engine) Track(key state.Key, ids ...int) {
	var clean []int
	for _, id := range ids {
		if id != 0 {
			clean = append(clean, id)
		}
	}
	e.store.Track(key, clean...)
}

// StartRegistration enters the first registration step. A dialog already
// in progress is replaced and its fields are discarded.
func (e *Engine) StartRegistration(ctx context.Context, key state.Key) Reply {
	e.begin(ctx, key, FlowRegister, StateRegName)
	return Reply{
		Flow:     FlowRegister,
		Outcome:  OutcomePrompt,
		Text:     promptName,
		Keyboard: KeyboardCancel,
		Track:    true,
	}
}

// StartLogin enters the first login step.
func (e *Engine) StartLogin(ctx context.Context, key state.Key) Reply {
	e.begin(ctx, key, FlowLogin, StateLogin)
	return Reply{
		Flow:     FlowLogin,
		Outcome:  OutcomePrompt,
		Text:     promptLogin,
		Keyboard: KeyboardCancel,
		Track:    true,
	}
}

func (e *Engine) begin(ctx context.Context, key state.Key, flow string, first state.State) {
	e.store.Do(key, func(s *state.Session) {
		clear(s.Fields)
		s.State = first
	})
	logger.Info(ctx, component, "dialog.start",
		slog.String("flow", flow),
		slog.String("state", string(first)),
	)
	e.observe(flow, first, "start")
}

// Handle feeds one input to the current step. Input outside a dialog is
// ignored.
func (e *Engine) Handle(ctx context.Context, key state.Key, in Input) Reply {
	st := e.store.State(key)
	sp, ok := e.steps[st]
	if !ok {
		return Reply{Outcome: OutcomeIgnored}
	}
	e.Track(key, in.MessageID)

	fields := e.store.Fields(key)
	value, warning := sp.validate(in, fields)
	if warning != "" {
		logger.Debug(ctx, component, "dialog.invalid",
			slog.String("flow", sp.flow),
			slog.String("state", string(st)),
		)
		e.observe(sp.flow, st, "invalid")
		return Reply{
			Flow:     sp.flow,
			Outcome:  OutcomeInvalid,
			Text:     warningText(warning),
			Keyboard: sp.keyboard,
			Track:    true,
		}
	}

	e.observe(sp.flow, st, "ok")
	return sp.advance(ctx, key, value)
}

// Cancel ends any dialog of key and deletes its tracked prompts.
func (e *Engine) Cancel(ctx context.Context, key state.Key) Reply {
	st := e.store.State(key)
	sp, active := e.steps[st]
	flow := ""
	if active {
		flow = sp.flow
		e.finish(ctx, key)
		e.observe(flow, st, "cancel")
		logger.Info(ctx, component, "dialog.cancel",
			slog.String("flow", flow),
			slog.String("state", string(st)),
		)
	}
	return Reply{
		Flow:     flow,
		Outcome:  OutcomeCancelled,
		Text:     textCancelled,
		Keyboard: KeyboardMainMenu,
	}
}

// Logout clears the auth flag and the remembered profile of key.
func (e *Engine) Logout(ctx context.Context, key state.Key) error {
	if err := e.cache.Delete(ctx, key.UserID); err != nil {
		return err
	}
	e.store.ClearTemp(key, ProfileKey)
	return nil
}

// Profile returns the user remembered from the last login of key.
func (e *Engine) Profile(key state.Key) (model.User, bool) {
	v, ok := e.store.Temp(key, ProfileKey)
	if !ok {
		return model.User{}, false
	}
	u, ok := v.(model.User)
	return u, ok
}

// finish ends the dialog and flushes its tracked messages.
func (e *Engine) finish(ctx context.Context, key state.Key) {
	ids := e.store.Finish(key)
	if len(ids) > 0 && e.cleaner != nil {
		e.cleaner.Delete(ctx, key, ids)
	}
}

// abort ends the dialog but leaves the tracked messages in place.
func (e *Engine) abort(key state.Key) {
	e.store.Abort(key)
}

func (e *Engine) observe(flow string, st state.State, result string) {
	if e.obs != nil {
		e.obs.DialogStep(flow, string(st), result)
	}
}
