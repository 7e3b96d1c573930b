package helpers

import tele "gopkg.in/telebot.v4"

const answeredKey = "cb_answered"

// Answer responds to the current callback query. Telegram accepts one answer
// per query, so calls after the first are no-ops.
func Answer(c tele.Context, resp *tele.CallbackResponse) error {
	if c == nil || c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	if resp == nil {
		return c.Respond()
	}
	return c.Respond(resp)
}

// Alert answers the callback with a modal alert.
func Alert(c tele.Context, text string) error {
	return Answer(c, &tele.CallbackResponse{Text: text, ShowAlert: true})
}

// Toast answers the callback with a short notification.
func Toast(c tele.Context, text string) error {
	return Answer(c, &tele.CallbackResponse{Text: text})
}

// Answered reports whether the callback was already answered.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
