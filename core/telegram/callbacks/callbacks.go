// Package callbacks reads the routing key out of inline-button callbacks.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split returns the routing key and payload of cb. Telebot fills Unique
// only when it matched the button itself; otherwise Data still carries the
// raw "\f<unique>|<payload>" form.
func Split(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}

// Key returns the routing key of the callback in c.
func Key(c tele.Context) string {
	k, _ := Split(c.Callback())
	return k
}

// Suffix returns what follows prefix in the callback key. ok is false when
// the prefix is missing or nothing follows it.
func Suffix(c tele.Context, prefix string) (string, bool) {
	rest, found := strings.CutPrefix(Key(c), prefix)
	return rest, found && rest != ""
}
