package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
)

const wireComponent = "tg.wire"

// Registry maps commands and callback keys to handlers. Callback lookup
// tries the exact key first, then prefixes from the longest down, so
// "category_products_page_" wins over "category_".
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	callbacks map[string]tele.HandlerFunc
	prefixes  []prefixRoute

	notFound     tele.HandlerFunc
	textFallback tele.HandlerFunc
}

type prefixRoute struct {
	prefix string
	h      tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown callbacks get a
// short toast.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		notFound: func(c tele.Context) error {
			return tghelpers.Toast(c, "Неизвестное действие")
		},
	}
}

// RegisterCommand adds a command. Invalid and duplicate commands are
// logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reason := ""
	if err := cmd.Validate(name); err != nil {
		reason = err.Error()
	} else if _, dup := r.commands[name]; dup {
		reason = "duplicate"
	}
	if reason != "" {
		logger.Warn(context.Background(), wireComponent, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return
	}
	r.commands[name] = cmd
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// ListCommands returns the commands for the Telegram menu, sorted by name.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for name, cmd := range r.commands {
		if visibleOnly && !cmd.Visible() {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand finds a command by name or alias and returns its
// canonical name.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		if cmd.Answers(name) {
			return key, cmd, true
		}
	}
	return "", commands.Command{}, false
}

// RegisterCallback binds an exact callback key.
func (r *Registry) RegisterCallback(key string, h tele.HandlerFunc) error {
	if key == "" || h == nil {
		return fmt.Errorf("invalid callback registration %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		logger.Warn(context.Background(), wireComponent, "register.callback.duplicate", slog.String("key", key))
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = h
	return nil
}

// RegisterPrefix binds every key starting with prefix.
func (r *Registry) RegisterPrefix(prefix string, h tele.HandlerFunc) error {
	if prefix == "" || h == nil {
		return fmt.Errorf("invalid prefix registration %q", prefix)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.prefixes {
		if p.prefix == prefix {
			logger.Warn(context.Background(), wireComponent, "register.prefix.duplicate", slog.String("prefix", prefix))
			return fmt.Errorf("callback prefix already registered: %s", prefix)
		}
	}
	r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, h: h})
	sort.SliceStable(r.prefixes, func(i, j int) bool {
		return len(r.prefixes[i].prefix) > len(r.prefixes[j].prefix)
	})
	return nil
}

// GetCallback resolves a callback key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.callbacks[key]; ok {
		return h, true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(key, p.prefix) {
			return p.h, true
		}
	}
	return nil, false
}

// ListCallbacks returns the sorted exact keys and prefixes, the latter with
// a trailing "*".
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks)+len(r.prefixes))
	for k := range r.callbacks {
		names = append(names, k)
	}
	for _, p := range r.prefixes {
		names = append(names, p.prefix+"*")
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the handler for unknown callbacks. nil is
// ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.notFound = h
	}
}

// CallbackNotFound returns the handler for unknown callbacks.
func (r *Registry) CallbackNotFound() tele.HandlerFunc { return r.notFound }

// SetTextFallback sets the handler for text outside commands and dialogs.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) { r.textFallback = h }

// TextFallback returns the text fallback, if any.
func (r *Registry) TextFallback() tele.HandlerFunc { return r.textFallback }

// InitBotCommands publishes the visible commands to the Telegram menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.Error(context.Background(), wireComponent, "register.commands.set_failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
