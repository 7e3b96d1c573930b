package helpers

import tele "gopkg.in/telebot.v4"

const (
	keyMessages = "messages"
	keyKeyboard = "kb"
)

// count records one response of the current handler. It runs when the
// response is queued, not when it is delivered.
func count(c tele.Context, opts *tele.SendOptions) {
	n, _ := c.Get(keyMessages).(int)
	c.Set(keyMessages, n+1)
	if opts != nil && opts.ReplyMarkup != nil {
		c.Set(keyKeyboard, true)
	}
}

// Counters reports how many responses the handler produced and whether any
// of them carried a keyboard.
func Counters(c tele.Context) (messages int, keyboard bool) {
	messages, _ = c.Get(keyMessages).(int)
	keyboard, _ = c.Get(keyKeyboard).(bool)
	return messages, keyboard
}
