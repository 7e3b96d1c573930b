// Package keyboard builds reply and inline markups.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button routed by Token.
type Button struct {
	Text  string
	Token string
}

// Inline lays buttons out row by row. Empty rows are dropped.
func Inline(rows ...[]Button) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, *m.Data(b.Text, b.Token).Inline())
		}
		m.InlineKeyboard = append(m.InlineKeyboard, line)
	}
	return m
}

// Contact is a one-time reply keyboard asking for the user's phone.
func Contact(label string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	m.Reply(m.Row(m.Contact(label)))
	return m
}

// Remove hides a reply keyboard.
func Remove() *tele.ReplyMarkup { return &tele.ReplyMarkup{RemoveKeyboard: true} }
