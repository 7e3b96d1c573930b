// Package bot holds the Telegram glue shared by the client and staff bots.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/dialog"
	"github.com/m3rciful/servicebot/internal/present"
)

const component = "bot"

// Show renders a screen. Callbacks edit the message they came from, other
// updates get a new message.
func Show(c tele.Context, s present.Screen) error {
	if c.Callback() != nil {
		return tghelpers.EditOrSendHTML(c, s.Text, s.Markup)
	}
	return tghelpers.SendHTML(c, s.Text, s.Markup)
}

// Send always posts a new message.
func Send(c tele.Context, s present.Screen) error {
	return tghelpers.SendHTML(c, s.Text, s.Markup)
}

// Reply delivers a dialog reply. Tracked prompts are sent synchronously so
// their ids can be handed back to the engine for later cleanup.
func Reply(c tele.Context, e *dialog.Engine, r dialog.Reply) error {
	if r.Outcome == dialog.OutcomeIgnored || r.Text == "" {
		return nil
	}
	s := present.DialogReply(r)
	if !r.Track {
		return Send(c, s)
	}
	id, err := tghelpers.SendTracked(c, s.Text, s.Markup)
	if err != nil {
		return err
	}
	e.Track(state.KeyFrom(c), id)
	return nil
}

// Input converts a message or a button press into dialog input.
func Input(c tele.Context) dialog.Input {
	var in dialog.Input
	if cb := c.Callback(); cb != nil {
		in.Choice = callbacks.Key(c)
		return in
	}
	msg := c.Message()
	if msg == nil {
		return in
	}
	in.MessageID = msg.ID
	if msg.Contact != nil {
		in.Contact = msg.Contact.PhoneNumber
		return in
	}
	in.Text = strings.TrimSpace(msg.Text)
	return in
}

// Warn logs a failure that was already shown to the user.
func Warn(ctx context.Context, event string, err error) {
	logger.Warn(ctx, component, event,
		slog.String("status", "fail"),
		slog.String("err_code", string(apperr.KindOf(err))),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

// FirstName returns the sender's first name, if any.
func FirstName(c tele.Context) string {
	if u := c.Sender(); u != nil {
		return u.FirstName
	}
	return ""
}

// CleanupObserver counts failed deletions.
type CleanupObserver interface {
	CleanupFailed()
}

// Cleaner deletes tracked dialog prompts through the running bot. It is
// created before the bot exists and attached on start.
type Cleaner struct {
	api atomic.Pointer[tele.Bot]
	obs CleanupObserver
}

// NewCleaner builds a detached Cleaner. obs may be nil.
func NewCleaner(obs CleanupObserver) *Cleaner {
	return &Cleaner{obs: obs}
}

// Attach binds the cleaner to a started bot.
func (cl *Cleaner) Attach(b *tele.Bot) { cl.api.Store(b) }

// Delete implements dialog.Cleaner. Failures are logged and counted and
// never stop the remaining deletions.
func (cl *Cleaner) Delete(ctx context.Context, key state.Key, ids []int) {
	b := cl.api.Load()
	if b == nil {
		logger.Warn(ctx, component, "cleanup.detached", slog.Int("messages", len(ids)))
		return
	}
	tghelpers.DeleteMessages(ctx, b, key.ChatID, ids, func(id int, err error) {
		if cl.obs != nil {
			cl.obs.CleanupFailed()
		}
		logger.Warn(ctx, component, "cleanup.delete",
			slog.Int("message_id", id),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	})
}
