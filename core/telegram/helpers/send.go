package helpers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes the helpers below through d. With nil they call the
// Bot API directly.
func SetDispatcher(d *sender.Dispatcher) { dispatcher.Store(d) }

// through runs fn via the dispatcher on the chat's shard. wait makes the
// call synchronous. A full or closed queue degrades to a direct call.
func through(ctx context.Context, chatID int64, action, endpoint string, wait bool, fn func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return fn()
	}
	var err error
	if wait {
		err = d.Call(ctx, chatID, action, endpoint, fn)
	} else {
		err = d.Enqueue(ctx, chatID, action, endpoint, fn)
	}
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return fn()
	}
	return err
}

func chatOf(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

// SendText queues a plain message to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var o *tele.SendOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	count(c, o)
	return through(BuildContext(c), chatOf(c), "send.text", "sendMessage", false, func() error {
		if o != nil {
			return c.Send(text, o)
		}
		return c.Send(text)
	})
}

// SendHTML queues an HTML message with optional markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return SendText(c, text, htmlOptions(markup))
}

// EditOrSendHTML edits the message behind a callback, or sends a new one
// when there is nothing to edit or the edit fails.
func EditOrSendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := htmlOptions(markup)
	if c.Callback() == nil || c.Message() == nil {
		return SendText(c, text, opts)
	}
	ctx := BuildContext(c)
	err := through(ctx, chatOf(c), "edit.text", "editMessageText", true, func() error {
		return c.Edit(text, opts)
	})
	if err == nil || strings.Contains(err.Error(), "message is not modified") {
		count(c, opts)
		return nil
	}
	logger.Debug(ctx, "tg.sender", "edit.fallback",
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	return SendText(c, text, opts)
}

// SendTracked sends after everything already queued for the chat and
// returns the id of the new message so the caller can delete it later.
func SendTracked(c tele.Context, text string, markup ...*tele.ReplyMarkup) (int, error) {
	var id int
	opts := htmlOptions(markup)
	count(c, opts)
	err := through(BuildContext(c), chatOf(c), "send.tracked", "sendMessage", true, func() error {
		msg, err := c.Bot().Send(c.Recipient(), text, opts)
		if err != nil {
			return err
		}
		if msg != nil {
			id = msg.ID
		}
		return nil
	})
	return id, err
}

// DeleteMessages queues deletions in one chat. onFail is called once per
// message that could not be removed; failures never stop the rest.
func DeleteMessages(ctx context.Context, api tele.API, chatID int64, ids []int, onFail func(id int, err error)) {
	if api == nil {
		return
	}
	for _, id := range ids {
		msg := tele.StoredMessage{MessageID: strconv.Itoa(id), ChatID: chatID}
		_ = through(ctx, chatID, "delete.message", "deleteMessage", false, func() error {
			if err := api.Delete(msg); err != nil && onFail != nil {
				onFail(id, err)
			}
			return nil
		})
	}
}

func htmlOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm}
}
