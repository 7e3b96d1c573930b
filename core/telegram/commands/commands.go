// Package commands describes slash commands shown in the bot menu.
package commands

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is one slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin and stay out of
	// the menu.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

// Validate checks a command before registration under name.
func (c Command) Validate(name string) error {
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return errors.New("name must start with a slash")
	case c.Handler == nil:
		return errors.New("nil handler")
	case strings.TrimSpace(c.Description) == "":
		return errors.New("empty description")
	}
	return nil
}

// Visible reports whether the command belongs in the Telegram menu.
func (c Command) Visible() bool { return !c.Hidden && !c.AdminOnly }

// Answers reports whether c is reachable as name through an alias. name
// may be given with or without the slash.
func (c Command) Answers(name string) bool {
	name = strings.TrimPrefix(name, "/")
	for _, a := range c.Aliases {
		if strings.TrimPrefix(a, "/") == name {
			return true
		}
	}
	return false
}
