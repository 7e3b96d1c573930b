// Package format holds text helpers for messages sent with HTML parse mode.
package format

import (
	"html"
	"strings"
)

// Message kinds prefixed with an emoji by Decorate.
const (
	KindSuccess = "success"
	KindInfo    = "info"
	KindWarning = "warning"
	KindError   = "error"
)

var emoji = map[string]string{
	KindSuccess: "✅",
	KindInfo:    "ℹ️",
	KindWarning: "⚠️",
	KindError:   "❌",
}

// Escape makes text safe inside an HTML message.
func Escape(text string) string { return html.EscapeString(text) }

// Bold wraps escaped text in <b>.
func Bold(text string) string { return "<b>" + Escape(text) + "</b>" }

// Decorate prefixes a message with the emoji of its kind. Unknown kinds use
// the info emoji.
func Decorate(kind, text string) string {
	e, ok := emoji[kind]
	if !ok {
		e = emoji[KindInfo]
	}
	return e + " " + text
}

// Success decorates a success message.
func Success(text string) string { return Decorate(KindSuccess, text) }

// Warning decorates a warning message.
func Warning(text string) string { return Decorate(KindWarning, text) }

// Error decorates an error message.
func Error(text string) string { return Decorate(KindError, text) }

// Or returns text, or fallback when text is blank.
func Or(text, fallback string) string {
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}
